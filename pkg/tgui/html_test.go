package tgui

import "testing"

func TestEsc(t *testing.T) {
	if got := Esc(`<b> & "q"`); got != "&lt;b&gt; &amp; &#34;q&#34;" {
		t.Fatalf("Esc = %q", got)
	}
}

func TestWrappers(t *testing.T) {
	if got := B("x<y"); got != "<b>x&lt;y</b>" {
		t.Fatalf("B = %q", got)
	}
	if got := Code("a&b"); got != "<code>a&amp;b</code>" {
		t.Fatalf("Code = %q", got)
	}
}

func TestMention(t *testing.T) {
	got := Mention("Ada & Co", 42)
	want := `<a href="tg://user?id=42">Ada &amp; Co</a>`
	if string(got) != want {
		t.Fatalf("Mention = %q, want %q", got, want)
	}
}

func TestJoinHSkipsBlanks(t *testing.T) {
	got := JoinH("\n", B("a"), Raw("  "), Esc("b"))
	if string(got) != "<b>a</b>\nb" {
		t.Fatalf("JoinH = %q", got)
	}
}
