package competition

import (
	"testing"
	"time"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		base    int
		loss    int
		want    int
	}{
		{"instant", 0, 5, 1, 5},
		{"under a minute", 59 * time.Second, 5, 1, 5},
		{"exactly one minute", time.Minute, 5, 1, 4},
		{"partial minutes ignored", 90 * time.Second, 5, 1, 4},
		{"three minutes", 3 * time.Minute, 5, 1, 2},
		{"floor at zero", 5 * time.Minute, 5, 1, 0},
		{"way past floor", time.Hour, 5, 1, 0},
		{"no decay", time.Hour, 5, 0, 5},
		{"steep decay", 2 * time.Minute, 5, 3, 0},
		{"negative elapsed clamped", -time.Minute, 5, 1, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.elapsed, tc.base, tc.loss); got != tc.want {
				t.Fatalf("Score(%v, %d, %d) = %d, want %d", tc.elapsed, tc.base, tc.loss, got, tc.want)
			}
		})
	}
}

func TestScoreNeverIncreasesWithDelay(t *testing.T) {
	prev := Score(0, 5, 1)
	for s := 1; s <= 600; s += 7 {
		got := Score(time.Duration(s)*time.Second, 5, 1)
		if got > prev {
			t.Fatalf("score rose from %d to %d at %ds", prev, got, s)
		}
		prev = got
	}
}
