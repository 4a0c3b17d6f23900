package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "quizbot/pkg/logx"
)

func startService(t *testing.T) *Service {
	t.Helper()
	s := New(Config{Workers: 2}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		s.Stop(stopCtx)
		cancel()
	})
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestAddOnceFires(t *testing.T) {
	s := startService(t)
	var fired atomic.Int32
	if err := s.AddOnce("t1", 10*time.Millisecond, func(ctx context.Context) error {
		fired.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	waitFor(t, "timer to fire", func() bool { return fired.Load() == 1 })

	// A fired timer is gone; removing it reports false.
	if s.Remove("t1") {
		t.Fatal("fired timer still pending")
	}
}

func TestAddOnceReplacesSameName(t *testing.T) {
	s := startService(t)
	var old, replacement atomic.Int32
	_ = s.AddOnce("t", 20*time.Millisecond, func(ctx context.Context) error {
		old.Add(1)
		return nil
	})
	_ = s.AddOnce("t", 30*time.Millisecond, func(ctx context.Context) error {
		replacement.Add(1)
		return nil
	})

	waitFor(t, "replacement to fire", func() bool { return replacement.Load() == 1 })
	if old.Load() != 0 {
		t.Fatal("replaced timer fired")
	}
}

func TestRemoveCancelsTimer(t *testing.T) {
	s := startService(t)
	var fired atomic.Int32
	_ = s.AddOnce("t", 30*time.Millisecond, func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})
	if !s.Remove("t") {
		t.Fatal("pending timer not reported")
	}
	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("removed timer fired")
	}
}

func TestAddOnceValidation(t *testing.T) {
	s := New(Config{}, logx.Nop())
	if err := s.AddOnce("", time.Second, func(ctx context.Context) error { return nil }); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := s.AddOnce("t", time.Second, nil); err == nil {
		t.Fatal("nil job accepted")
	}
}

func TestAddCronValidatesSpec(t *testing.T) {
	s := New(Config{}, logx.Nop())
	job := func(ctx context.Context) error { return nil }
	if err := s.AddCron("bad", "not a cron", job); err == nil {
		t.Fatal("invalid spec accepted")
	}
	if err := s.AddCron("five", "*/5 * * * *", job); err != nil {
		t.Fatalf("5-field spec rejected: %v", err)
	}
	if err := s.AddCron("six", "0 */5 * * * *", job); err != nil {
		t.Fatalf("6-field spec rejected: %v", err)
	}
	if err := s.AddCron("daily", "@daily", job); err != nil {
		t.Fatalf("descriptor rejected: %v", err)
	}
}

func TestCronFiresWithSeconds(t *testing.T) {
	s := startService(t)
	var fired atomic.Int32
	// Every-second spec keeps the test fast.
	if err := s.AddCron("tick", "* * * * * *", func(ctx context.Context) error {
		fired.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("add cron: %v", err)
	}
	waitFor(t, "cron to fire", func() bool { return fired.Load() >= 1 })
}

func TestStopCancelsPendingTimers(t *testing.T) {
	s := New(Config{Workers: 1}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	var fired atomic.Int32
	_ = s.AddOnce("t", 30*time.Millisecond, func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	s.Stop(stopCtx)

	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("timer fired after stop")
	}
}

func TestPanickingTaskDoesNotKillWorker(t *testing.T) {
	s := startService(t)
	var fired atomic.Int32
	_ = s.AddOnce("boom", time.Millisecond, func(ctx context.Context) error {
		panic("kaboom")
	})
	_ = s.AddOnce("after", 20*time.Millisecond, func(ctx context.Context) error {
		fired.Add(1)
		return nil
	})
	waitFor(t, "task after panic", func() bool { return fired.Load() == 1 })
}
