package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/kvstore"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestScheduler(kv kvstore.Store) (*Scheduler, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)}
	return New(kv, Config{Now: clock.Now}, nil), clock
}

func TestScheduler_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s, _ := newTestScheduler(kv)

	created, err := s.Ensure(ctx, "runFetchingBot", 5*time.Minute)
	if err != nil || !created {
		t.Fatalf("first Ensure() = %v, %v; want created", created, err)
	}
	created, err = s.Ensure(ctx, "runFetchingBot", time.Minute)
	if err != nil || created {
		t.Fatalf("second Ensure() = %v, %v; want skipped", created, err)
	}

	// A fresh process sees the same registration.
	other, _ := newTestScheduler(kv)
	created, err = other.Ensure(ctx, "runFetchingBot", time.Minute)
	if err != nil || created {
		t.Fatalf("Ensure() after restart = %v, %v; want skipped", created, err)
	}

	tr, err := other.Load(ctx, "runFetchingBot")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tr.Every != 5*time.Minute {
		t.Errorf("Every = %s, want original 5m", tr.Every)
	}
}

func TestScheduler_EnsureValidation(t *testing.T) {
	s, _ := newTestScheduler(kvstore.NewMemory())
	tests := []struct {
		name  string
		every time.Duration
	}{
		{name: " ", every: time.Minute},
		{name: "job", every: 0},
	}
	for _, tt := range tests {
		if _, err := s.Ensure(context.Background(), tt.name, tt.every); err == nil {
			t.Errorf("Ensure(%q, %s) error = nil", tt.name, tt.every)
		}
	}
}

func TestScheduler_Load(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	s, _ := newTestScheduler(kv)

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrUnknownTrigger) {
		t.Errorf("Load(missing) error = %v, want ErrUnknownTrigger", err)
	}

	_ = kv.Set(ctx, keyPrefix+"broken", "{")
	if _, err := s.Load(ctx, "broken"); err == nil || errors.Is(err, ErrUnknownTrigger) {
		t.Errorf("Load(broken) error = %v, want decode error", err)
	}
}

func TestScheduler_Tick(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestScheduler(kvstore.NewMemory())

	calls := 0
	s.Handle("runFetchingBot", func(context.Context) error {
		calls++
		if calls == 2 {
			return errors.New("boom")
		}
		return nil
	})
	if _, err := s.Ensure(ctx, "runFetchingBot", 5*time.Minute); err != nil {
		t.Fatal(err)
	}

	if n := s.Tick(ctx); n != 0 {
		t.Fatalf("Tick() before due = %d", n)
	}

	clock.advance(5 * time.Minute)
	if n := s.Tick(ctx); n != 1 {
		t.Fatalf("Tick() at due = %d, want 1", n)
	}
	if n := s.Tick(ctx); n != 0 {
		t.Fatalf("Tick() right after run = %d, want 0", n)
	}

	// A failing handler keeps its schedule.
	clock.advance(5 * time.Minute)
	if n := s.Tick(ctx); n != 1 {
		t.Fatalf("Tick() = %d, want 1", n)
	}

	// Missed intervals collapse into a single run.
	clock.advance(23 * time.Minute)
	if n := s.Tick(ctx); n != 1 {
		t.Fatalf("Tick() after gap = %d, want 1", n)
	}
	if n := s.Tick(ctx); n != 0 {
		t.Fatalf("Tick() after catch-up = %d, want 0", n)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestScheduler_RunRestoresPersistedTriggers(t *testing.T) {
	kv := kvstore.NewMemory()
	first, _ := newTestScheduler(kv)
	if _, err := first.Ensure(context.Background(), "job", time.Millisecond); err != nil {
		t.Fatal(err)
	}

	s := New(kv, Config{Resolution: time.Millisecond}, nil)
	fired := make(chan struct{}, 1)
	s.Handle("job", func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("restored trigger never fired")
	}
	cancel()
	<-done
}
