package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/tilawa/backend/internal/metrics"
	"github.com/zhouzirui/tilawa/backend/internal/service/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func strPtr(s string) *string { return &s }

func TestStoreGetAfterCreate(t *testing.T) {
	store := session.NewMemoryStore()

	id := store.Create("Al-Fatiha", "ar")
	got, ok := store.Get(id)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if got.ID != id || got.Topic != "Al-Fatiha" || got.Language != "ar" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if len(got.History) != 0 || got.LastTranscript != "" || got.TransportRef != "" {
		t.Fatalf("fresh session should be empty: %+v", got)
	}
}

func TestStoreCreateDoesNotValidateLanguage(t *testing.T) {
	store := session.NewMemoryStore()
	id := store.Create("", "xx")
	got, ok := store.Get(id)
	if !ok || got.Language != "xx" {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
}

func TestStoreIDsAreUnique(t *testing.T) {
	store := session.NewMemoryStore()
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id := store.Create("", "en")
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
	if store.Len() != 200 {
		t.Fatalf("Len = %d, want 200", store.Len())
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := session.NewMemoryStore()
	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected missing session")
	}
	if store.Update("missing", session.Patch{LastTranscript: strPtr("x")}) {
		t.Fatal("update on missing session should fail")
	}
	if store.Remove("missing") {
		t.Fatal("remove on missing session should fail")
	}
}

func TestStoreUpdateMergesPatch(t *testing.T) {
	store := session.NewMemoryStore()
	id := store.Create("", "en")

	if !store.Update(id, session.Patch{AppendHistory: []string{"first"}, LastTranscript: strPtr("first")}) {
		t.Fatal("update failed")
	}
	if !store.Update(id, session.Patch{AppendHistory: []string{"second"}}) {
		t.Fatal("update failed")
	}
	if !store.Update(id, session.Patch{TransportRef: strPtr("conn-1")}) {
		t.Fatal("update failed")
	}

	got, _ := store.Get(id)
	if len(got.History) != 2 || got.History[0] != "first" || got.History[1] != "second" {
		t.Fatalf("history = %v", got.History)
	}
	if got.LastTranscript != "first" {
		t.Fatalf("last transcript = %q, want untouched %q", got.LastTranscript, "first")
	}
	if got.TransportRef != "conn-1" {
		t.Fatalf("transport ref = %q", got.TransportRef)
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store := session.NewMemoryStore()
	id := store.Create("", "en")
	store.Update(id, session.Patch{AppendHistory: []string{"a"}})

	snap, _ := store.Get(id)
	snap.History[0] = "mutated"
	snap.History = append(snap.History, "extra")

	got, _ := store.Get(id)
	if len(got.History) != 1 || got.History[0] != "a" {
		t.Fatalf("store leaked internal state: %v", got.History)
	}
}

func TestStoreLastActivityMonotonic(t *testing.T) {
	clock := newFakeClock()
	store := session.NewMemoryStore(session.WithClock(clock.Now))
	id := store.Create("", "en")

	clock.Advance(time.Minute)
	first, _ := store.Get(id)

	clock.Set(first.LastActivity.Add(-30 * time.Second))
	store.Update(id, session.Patch{AppendHistory: []string{"x"}})

	second, _ := store.Get(id)
	if second.LastActivity.Before(first.LastActivity) {
		t.Fatalf("last activity moved backwards: %s -> %s", first.LastActivity, second.LastActivity)
	}
}

func TestStoreEvictOlderThan(t *testing.T) {
	clock := newFakeClock()
	store := session.NewMemoryStore(session.WithClock(clock.Now))

	stale := store.Create("", "en")
	clock.Advance(2 * time.Minute)
	fresh := store.Create("", "ar")

	// stale is now 61m idle, fresh 59m.
	clock.Advance(59 * time.Minute)

	if removed := store.EvictOlderThan(60 * time.Minute); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := store.Get(stale); ok {
		t.Fatal("stale session should be evicted")
	}
	if _, ok := store.Get(fresh); !ok {
		t.Fatal("fresh session should survive")
	}
}

func TestStoreGetRefreshesActivity(t *testing.T) {
	clock := newFakeClock()
	store := session.NewMemoryStore(session.WithClock(clock.Now))
	id := store.Create("", "en")

	clock.Advance(50 * time.Minute)
	store.Get(id)
	clock.Advance(50 * time.Minute)

	if removed := store.EvictOlderThan(60 * time.Minute); removed != 0 {
		t.Fatalf("removed = %d, want 0 after refresh", removed)
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	store := session.NewMemoryStore()
	ids := []string{store.Create("", "en"), store.Create("", "ar")}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(id string, i int) {
				defer wg.Done()
				store.Update(id, session.Patch{AppendHistory: []string{fmt.Sprintf("t%d", i)}})
				store.Get(id)
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range ids {
		got, _ := store.Get(id)
		if len(got.History) != 50 {
			t.Fatalf("session %s history len = %d, want 50", id, len(got.History))
		}
	}
}

func TestSweeperSweep(t *testing.T) {
	clock := newFakeClock()
	store := session.NewMemoryStore(session.WithClock(clock.Now))
	store.Create("", "en")
	store.Create("", "en")

	m := metrics.New("test")
	sweeper := session.NewSweeper(store, time.Hour, time.Minute, nil, m)

	if removed := sweeper.Sweep(); removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	clock.Advance(61 * time.Minute)
	if removed := sweeper.Sweep(); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if store.Len() != 0 {
		t.Fatalf("Len = %d, want 0", store.Len())
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := session.NewMemoryStore()
	sweeper := session.NewSweeper(store, time.Hour, time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
