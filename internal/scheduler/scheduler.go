// Package scheduler runs named recurring jobs whose registrations survive restarts.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/kvstore"
	"github.com/Adda-Baaj/khobor-alert/internal/logger"
)

const keyPrefix = "trigger:"

const defaultResolution = time.Second

// ErrUnknownTrigger is returned by Load for a name that was never registered.
var ErrUnknownTrigger = errors.New("trigger not registered")

// Handler is invoked when a trigger fires.
type Handler func(ctx context.Context) error

// Trigger is a persisted recurring registration.
type Trigger struct {
	Name    string        `json:"name"`
	Every   time.Duration `json:"every"`
	Created time.Time     `json:"created"`
}

// Config configures a Scheduler.
type Config struct {
	// Resolution is how often due triggers are checked. Default: 1 second.
	Resolution time.Duration
	// Now overrides the wall clock.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.Resolution <= 0 {
		c.Resolution = defaultResolution
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type entry struct {
	trigger Trigger
	next    time.Time
}

// Scheduler fires handlers for registered triggers. Handlers run one at a
// time on the goroutine calling Run, so invocations never overlap.
type Scheduler struct {
	kv     kvstore.Store
	config Config
	log    logger.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	active   map[string]*entry
}

// New creates a Scheduler that persists triggers in kv.
func New(kv kvstore.Store, cfg Config, log logger.Logger) *Scheduler {
	cfg.defaults()
	return &Scheduler{
		kv:       kv,
		config:   cfg,
		log:      logger.Ensure(log),
		handlers: make(map[string]Handler),
		active:   make(map[string]*entry),
	}
}

// Handle binds fn to the trigger name. Binding replaces any previous handler.
func (s *Scheduler) Handle(name string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[normalize(name)] = fn
}

// Ensure registers a recurring trigger unless one with the same name is
// already persisted. created reports whether a new registration was written.
func (s *Scheduler) Ensure(ctx context.Context, name string, every time.Duration) (bool, error) {
	name = normalize(name)
	if name == "" {
		return false, fmt.Errorf("trigger name is required")
	}
	if every <= 0 {
		return false, fmt.Errorf("trigger %s: interval must be positive", name)
	}

	existing, err := s.Load(ctx, name)
	switch {
	case err == nil:
		s.log.InfoObj("trigger already registered", "scheduler_trigger_exists", map[string]any{
			"name":  existing.Name,
			"every": existing.Every.String(),
		})
		s.activate(existing)
		return false, nil
	case !errors.Is(err, ErrUnknownTrigger):
		return false, err
	}

	t := Trigger{Name: name, Every: every, Created: s.config.Now()}
	raw, err := json.Marshal(t)
	if err != nil {
		return false, fmt.Errorf("marshal trigger %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, keyPrefix+name, string(raw)); err != nil {
		return false, fmt.Errorf("persist trigger %s: %w", name, err)
	}

	s.activate(t)
	s.log.InfoObj("trigger registered", "scheduler_trigger_created", map[string]any{
		"name":  name,
		"every": every.String(),
	})
	return true, nil
}

// Load reads a persisted trigger.
func (s *Scheduler) Load(ctx context.Context, name string) (Trigger, error) {
	name = normalize(name)
	raw, ok, err := s.kv.Get(ctx, keyPrefix+name)
	if err != nil {
		return Trigger{}, fmt.Errorf("read trigger %s: %w", name, err)
	}
	if !ok {
		return Trigger{}, fmt.Errorf("%s: %w", name, ErrUnknownTrigger)
	}

	var t Trigger
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Trigger{}, fmt.Errorf("decode trigger %s: %w", name, err)
	}
	if t.Every <= 0 {
		return Trigger{}, fmt.Errorf("trigger %s: stored interval %s is not positive", name, t.Every)
	}
	return t, nil
}

// Run checks due triggers every Resolution and blocks until ctx is cancelled.
// Persisted triggers with a bound handler are picked up on start.
func (s *Scheduler) Run(ctx context.Context) {
	s.restore(ctx)

	ticker := time.NewTicker(s.config.Resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick fires every trigger that is due and returns how many fired.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.config.Now()
	fired := 0

	for _, e := range s.due(now) {
		fn := s.handler(e.trigger.Name)
		if fn == nil {
			continue
		}

		start := s.config.Now()
		err := fn(ctx)
		fields := map[string]any{
			"name":     e.trigger.Name,
			"duration": s.config.Now().Sub(start).String(),
		}
		if err != nil {
			fields["error"] = err.Error()
			s.log.ErrorObj("scheduled run failed", "scheduler_run_failed", fields)
		} else {
			s.log.DebugObj("scheduled run finished", "scheduler_run_done", fields)
		}
		fired++

		s.mu.Lock()
		e.next = now.Add(e.trigger.Every)
		for !e.next.After(s.config.Now()) {
			e.next = e.next.Add(e.trigger.Every)
		}
		s.mu.Unlock()
	}
	return fired
}

func (s *Scheduler) restore(ctx context.Context) {
	s.mu.Lock()
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		if _, ok := s.active[name]; !ok {
			names = append(names, name)
		}
	}
	s.mu.Unlock()

	for _, name := range names {
		t, err := s.Load(ctx, name)
		if err != nil {
			s.log.WarnObj("handler has no usable trigger", "scheduler_restore_skipped", map[string]any{
				"name":  name,
				"error": err.Error(),
			})
			continue
		}
		s.activate(t)
	}
}

func (s *Scheduler) activate(t Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[t.Name]; ok {
		return
	}
	s.active[t.Name] = &entry{trigger: t, next: s.config.Now().Add(t.Every)}
}

func (s *Scheduler) due(now time.Time) []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*entry
	for _, e := range s.active {
		if !now.Before(e.next) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].trigger.Name < out[j].trigger.Name })
	return out
}

func (s *Scheduler) handler(name string) Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[name]
}

func normalize(name string) string {
	return strings.TrimSpace(name)
}
