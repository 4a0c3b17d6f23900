package app

import (
	"strings"
	"testing"
	"time"

	"quizbot/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{Token: "123:abc"},
		Competition: config.CompetitionConfig{
			PointsPerQuestion:  5,
			PointLossPerMinute: 1,
			QuestionTimeout:    "5m",
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validate(baseConfig()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*config.Config)
		want string
	}{
		{"missing token", func(c *config.Config) { c.Telegram.Token = " " }, "telegram.token"},
		{"negative workers", func(c *config.Config) { c.Scheduler.Workers = -1 }, "scheduler.workers"},
		{"bad poll timeout", func(c *config.Config) { c.Telegram.PollTimeout = "soon" }, "telegram.poll_timeout"},
		{"bad timezone", func(c *config.Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "scheduler.timezone"},
		{"bad question timeout", func(c *config.Config) { c.Competition.QuestionTimeout = "whenever" }, "competition.question_timeout"},
		{"negative points", func(c *config.Config) { c.Competition.PointsPerQuestion = -1 }, "points_per_question"},
		{"negative loss", func(c *config.Config) { c.Competition.PointLossPerMinute = -2 }, "point_loss_per_minute"},
		{"missing questions file", func(c *config.Config) { c.Competition.QuestionsFile = "/does/not/exist.yaml" }, "questions file"},
		{"autostart without cron", func(c *config.Config) {
			c.Competition.Autostart = config.AutostartConfig{Enabled: true, ChatID: 100}
		}, "autostart"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mut(cfg)
			err := validate(cfg)
			if err == nil {
				t.Fatal("validate accepted a bad config")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestParseGroupLog(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"", 0},
		{"   ", 0},
		{"-100123", -100123},
		{"42", 42},
		{"not-a-number", 0},
	}
	for _, tc := range cases {
		if got := parseGroupLog(tc.raw); got != tc.want {
			t.Fatalf("parseGroupLog(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestCompetitionSettings(t *testing.T) {
	cfg := baseConfig()
	set, err := competitionSettings(cfg)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if set.QuestionTimeout != 5*time.Minute {
		t.Fatalf("timeout = %v, want 5m", set.QuestionTimeout)
	}

	cfg.Competition.QuestionTimeout = ""
	set, err = competitionSettings(cfg)
	if err != nil {
		t.Fatalf("settings with empty timeout: %v", err)
	}
	if set.QuestionTimeout != 5*time.Minute {
		t.Fatalf("default timeout = %v, want 5m", set.QuestionTimeout)
	}
}
