package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	kit "quizbot/internal/transport"
	logx "quizbot/pkg/logx"
)

type stubGateway struct {
	mu        sync.Mutex
	announced []string
	admins    map[int64]bool
}

func newStubGateway() *stubGateway {
	return &stubGateway{admins: map[int64]bool{}}
}

func (g *stubGateway) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (g *stubGateway) Stop(ctx context.Context) error                         { return nil }

func (g *stubGateway) Announce(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.announced = append(g.announced, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(g.announced)}, nil
}

func (g *stubGateway) DirectMessage(ctx context.Context, userID int64, text string, opt *kit.SendOptions) error {
	return nil
}
func (g *stubGateway) DeleteMessage(ctx context.Context, ref kit.MessageRef) error { return nil }
func (g *stubGateway) LockChannel(ctx context.Context, chatID int64) error         { return nil }
func (g *stubGateway) UnlockChannel(ctx context.Context, chatID int64) error       { return nil }
func (g *stubGateway) ChannelMembers(ctx context.Context, chatID int64) ([]kit.Member, error) {
	return nil, nil
}
func (g *stubGateway) IsChannelAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	return g.admins[userID], nil
}

func (g *stubGateway) last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.announced) == 0 {
		return ""
	}
	return g.announced[len(g.announced)-1]
}

func (g *stubGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.announced)
}

// run feeds updates through a live dispatch loop and waits for handlers to
// drain before returning.
func run(t *testing.T, d *Dispatcher, msgs ...*kit.Message) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan kit.Update, len(msgs))
	for _, m := range msgs {
		updates <- kit.Update{Kind: kit.UpdateMessage, Message: m}
	}
	close(updates)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.DispatchLoop(ctx, updates)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch loop did not drain")
	}
	cancel()
}

func TestDispatcherRoutesCommand(t *testing.T) {
	gw := newStubGateway()
	d := New(gw, logx.Nop(), nil)

	var mu sync.Mutex
	var got []string
	d.Register(Command{
		Name:    "ping",
		Aliases: []string{"p"},
		Handle: func(ctx context.Context, req *Request) error {
			mu.Lock()
			got = append(got, req.ArgText)
			mu.Unlock()
			return nil
		},
	})

	run(t, d,
		&kit.Message{ChatID: 1, FromID: 7, Text: "/ping hello world"},
		&kit.Message{ChatID: 1, FromID: 7, Text: "/p again"},
		&kit.Message{ChatID: 1, FromID: 7, Text: "/PING@quiz_bot case"},
		&kit.Message{ChatID: 1, FromID: 7, Text: "not a command"},
	)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("handled %d commands, want 3: %v", len(got), got)
	}
	if got[0] != "hello world" {
		t.Fatalf("arg text = %q, want %q", got[0], "hello world")
	}
}

func TestDispatcherUnknownCommand(t *testing.T) {
	gw := newStubGateway()
	d := New(gw, logx.Nop(), nil)

	run(t, d, &kit.Message{ChatID: 1, FromID: 7, Text: "/nope"})
	if !strings.Contains(gw.last(), "unknown command") {
		t.Fatalf("private unknown got %q", gw.last())
	}

	before := gw.count()
	run(t, d, &kit.Message{ChatID: 100, FromID: 7, Text: "/nope", IsGroup: true})
	if gw.count() != before {
		t.Fatal("group unknown command produced a reply")
	}
}

func TestDispatcherAccessChecks(t *testing.T) {
	gw := newStubGateway()
	gw.admins[8] = true
	d := New(gw, logx.Nop(), []int64{42})

	var mu sync.Mutex
	calls := 0
	d.Register(Command{
		Name:   "manage",
		Access: AccessManager,
		Handle: func(ctx context.Context, req *Request) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil
		},
	})

	run(t, d,
		&kit.Message{ChatID: 100, FromID: 7, Text: "/manage", IsGroup: true}, // plain member
		&kit.Message{ChatID: 100, FromID: 8, Text: "/manage", IsGroup: true}, // channel admin
		&kit.Message{ChatID: 100, FromID: 42, Text: "/manage", IsGroup: true}, // owner
	)

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestDispatcherDMOnlyInterception(t *testing.T) {
	gw := newStubGateway()
	d := New(gw, logx.Nop(), nil)

	var mu sync.Mutex
	handled, intercepted := 0, 0
	d.Register(Command{
		Name:    "secret",
		Aliases: []string{"s"},
		DMOnly:  true,
		Handle: func(ctx context.Context, req *Request) error {
			mu.Lock()
			handled++
			mu.Unlock()
			return nil
		},
	})
	d.SetInterceptor(func(ctx context.Context, msg *kit.Message) bool {
		mu.Lock()
		intercepted++
		mu.Unlock()
		return true
	})

	run(t, d,
		&kit.Message{ChatID: 1, FromID: 7, Text: "/secret"},
		&kit.Message{ChatID: 100, FromID: 7, Text: "/secret", IsGroup: true},
		&kit.Message{ChatID: 100, FromID: 7, Text: "/s now", IsGroup: true},
	)

	mu.Lock()
	defer mu.Unlock()
	if handled != 1 {
		t.Fatalf("handled = %d, want 1", handled)
	}
	// The alias form reaches the interceptor too.
	if intercepted != 2 {
		t.Fatalf("intercepted = %d, want 2", intercepted)
	}
}

func TestDispatcherHelp(t *testing.T) {
	gw := newStubGateway()
	d := New(gw, logx.Nop(), nil)
	d.Register(Command{
		Name:        "lb",
		Description: "show the leaderboard",
		Usage:       "/lb",
		Handle:      func(ctx context.Context, req *Request) error { return nil },
	})

	run(t, d, &kit.Message{ChatID: 1, FromID: 7, Text: "/help"})
	help := gw.last()
	if !strings.Contains(help, "/lb") || !strings.Contains(help, "leaderboard") {
		t.Fatalf("help missing registered command: %q", help)
	}
}
