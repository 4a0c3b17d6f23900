package telegram

import (
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestSplitTelegramTextShort(t *testing.T) {
	got := splitTelegramText("hello", 10, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v", got)
	}
}

func TestSplitTelegramTextPrefersNewlines(t *testing.T) {
	text := strings.Repeat("aaaa aaaa\n", 20)
	chunks := splitTelegramText(text, 55, "")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 55 {
			t.Fatalf("chunk %d over limit: %d runes", i, len([]rune(c)))
		}
		if strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d ends with newline", i)
		}
	}
	joined := strings.Join(chunks, "\n") + "\n"
	if joined != text {
		t.Fatalf("content lost in split:\n%q\nvs\n%q", joined, text)
	}
}

func TestSplitTelegramTextAvoidsHTMLTagSplit(t *testing.T) {
	text := strings.Repeat("x", 30) + "<b>bold text here</b>" + strings.Repeat("y", 30)
	for _, c := range splitTelegramText(text, 40, "HTML") {
		open := strings.Count(c, "<")
		closed := strings.Count(c, ">")
		if open != closed {
			t.Fatalf("chunk splits a tag: %q", c)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		user tele.User
		want string
	}{
		{tele.User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{tele.User{FirstName: "Ada"}, "Ada"},
		{tele.User{Username: "ada"}, "ada"},
		{tele.User{ID: 42}, "42"},
	}
	for _, tc := range cases {
		u := tc.user
		if got := displayName(&u); got != tc.want {
			t.Fatalf("displayName(%+v) = %q, want %q", tc.user, got, tc.want)
		}
	}
}
