package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	logx "quizbot/pkg/logx"
)

func openRedisStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := Open(Config{Driver: "redis", Redis: RedisConfig{Addr: mr.Addr()}}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStoreAwardAndSnapshot(t *testing.T) {
	s, _ := openRedisStore(t)
	ctx := context.Background()

	total, err := s.Award(ctx, 1, "Alice", 5)
	if err != nil || total != 5 {
		t.Fatalf("award = %d, %v", total, err)
	}
	if _, err := s.Award(ctx, 2, "Bob", 9); err != nil {
		t.Fatalf("award: %v", err)
	}
	total, err = s.Award(ctx, 1, "Alice", 3)
	if err != nil || total != 8 {
		t.Fatalf("second award = %d, %v", total, err)
	}

	got, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[0].UserID != 2 || got[0].Score != 9 || got[0].Name != "Bob" {
		t.Fatalf("leader = %+v", got[0])
	}
}

func TestRedisStoreTiesKeepFirstAwardOrder(t *testing.T) {
	s, _ := openRedisStore(t)
	ctx := context.Background()

	_, _ = s.Award(ctx, 10, "First", 5)
	_, _ = s.Award(ctx, 20, "Second", 5)

	got, _ := s.Snapshot(ctx)
	if len(got) != 2 || got[0].UserID != 10 || got[1].UserID != 20 {
		t.Fatalf("tie order wrong: %+v", got)
	}
}

func TestRedisStoreConcurrentFirstAwardsSingleRow(t *testing.T) {
	s, _ := openRedisStore(t)
	ctx := context.Background()

	// The order slot for a new user is claimed atomically, so concurrent
	// first awards must not duplicate the leaderboard row.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Award(ctx, 1, "Alice", 1)
		}()
	}
	wg.Wait()

	got, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %+v, want a single row", got)
	}
	if got[0].Score != 16 {
		t.Fatalf("score = %d, want 16", got[0].Score)
	}
}

func TestRedisStoreRejectsNegativeDelta(t *testing.T) {
	s, _ := openRedisStore(t)
	if _, err := s.Award(context.Background(), 1, "Alice", -1); err == nil {
		t.Fatal("negative delta accepted")
	}
}

func TestRedisStoreEmptySnapshot(t *testing.T) {
	s, _ := openRedisStore(t)
	got, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("entries = %+v, want none", got)
	}
}

func TestRedisStoreAwardAfterServerGone(t *testing.T) {
	s, mr := openRedisStore(t)
	mr.Close()
	if _, err := s.Award(context.Background(), 1, "Alice", 5); err == nil {
		t.Fatal("award succeeded against a dead server")
	}
}

func TestOpenRedisRequiresAddr(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("missing addr accepted")
	}
}
