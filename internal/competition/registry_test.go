package competition

import (
	"errors"
	"testing"

	"quizbot/internal/storage"
	logx "quizbot/pkg/logx"
)

func registrySession(chatID int64) *Session {
	return newSession(chatID, DefaultBank(), testSettings(), newFakeGateway(), storage.NewMemory(), newFakeTimers(), logx.Nop())
}

func TestRegistryCreateAndLookup(t *testing.T) {
	r := NewRegistry()

	s, err := r.Create(100, func() *Session { return registrySession(100) })
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.Create(100, func() *Session {
		t.Fatal("factory called for duplicate channel")
		return nil
	}); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("duplicate create: err = %v, want ErrAlreadyActive", err)
	}

	got, ok := r.ByChannel(100)
	if !ok || got != s {
		t.Fatalf("ByChannel = %v, %v", got, ok)
	}
	if _, ok := r.ByChannel(200); ok {
		t.Fatal("ByChannel found a session in an empty channel")
	}
	if r.Active() != 1 {
		t.Fatalf("Active = %d, want 1", r.Active())
	}
}

func TestRegistryRoutes(t *testing.T) {
	r := NewRegistry()
	s, _ := r.Create(100, func() *Session { return registrySession(100) })

	if _, err := r.ByParticipant(7); !errors.Is(err, ErrNotParticipating) {
		t.Fatalf("unrouted: err = %v, want ErrNotParticipating", err)
	}

	r.AddRoute(7, 100)
	got, err := r.ByParticipant(7)
	if err != nil || got != s {
		t.Fatalf("ByParticipant = %v, %v", got, err)
	}

	// Routes into channels without a session are refused.
	r.AddRoute(8, 200)
	if _, err := r.ByParticipant(8); !errors.Is(err, ErrNotParticipating) {
		t.Fatalf("dead-channel route: err = %v, want ErrNotParticipating", err)
	}
}

func TestRegistryRemovePurgesRoutes(t *testing.T) {
	r := NewRegistry()
	r.Create(100, func() *Session { return registrySession(100) })
	r.Create(200, func() *Session { return registrySession(200) })
	r.AddRoute(7, 100)
	r.AddRoute(8, 100)
	r.AddRoute(9, 200)

	if !r.Remove(100) {
		t.Fatal("remove reported no session")
	}
	if r.Remove(100) {
		t.Fatal("second remove reported a session")
	}

	for _, userID := range []int64{7, 8} {
		if _, err := r.ByParticipant(userID); !errors.Is(err, ErrNotParticipating) {
			t.Fatalf("user %d still routed after remove", userID)
		}
	}
	if _, err := r.ByParticipant(9); err != nil {
		t.Fatalf("user 9 lost their route: %v", err)
	}
}

func TestRegistrySole(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Sole(); ok {
		t.Fatal("Sole on empty registry")
	}

	s, _ := r.Create(100, func() *Session { return registrySession(100) })
	got, ok := r.Sole()
	if !ok || got != s {
		t.Fatalf("Sole = %v, %v", got, ok)
	}

	r.Create(200, func() *Session { return registrySession(200) })
	if _, ok := r.Sole(); ok {
		t.Fatal("Sole with two sessions")
	}
}
