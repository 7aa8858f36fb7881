// Package ingest runs one poll of the news feed: fetch, dedupe, notify, persist.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/dedup"
	"github.com/Adda-Baaj/khobor-alert/internal/domain"
	"github.com/Adda-Baaj/khobor-alert/internal/logger"
	"github.com/Adda-Baaj/khobor-alert/pkg/providers"
	"github.com/Adda-Baaj/khobor-alert/pkg/publishers"
)

// Feed searches the upstream news provider.
type Feed interface {
	ID() string
	Search(ctx context.Context, req providers.Request) (providers.Page, error)
}

// Deduper selects new items and computes the next watermark.
type Deduper interface {
	Apply(items []domain.NewsItem, state domain.WatermarkState, keyword string) ([]domain.NotificationPayload, domain.WatermarkState)
	Payload(item domain.NewsItem) domain.NotificationPayload
}

// StateStore persists the watermark between cycles.
type StateStore interface {
	Load(ctx context.Context) (domain.WatermarkState, bool, error)
	Save(ctx context.Context, st domain.WatermarkState) error
}

// Notifier delivers one event.
type Notifier interface {
	Publish(ctx context.Context, evt publishers.Event) error
}

// Scheduler registers the recurring trigger on first run.
type Scheduler interface {
	Ensure(ctx context.Context, name string, every time.Duration) (bool, error)
}

// Enricher decorates outgoing events. It must keep their order.
type Enricher interface {
	Enrich(ctx context.Context, events []publishers.Event) []publishers.Event
}

// Config holds the per-cycle settings.
type Config struct {
	Keyword string
	Display int
	Start   int
	Sort    string

	ScheduleName  string
	ScheduleEvery time.Duration

	// DryRun logs payloads instead of delivering them. State is still saved.
	DryRun bool
	// CheckpointEach saves the SeenSet after every delivery.
	CheckpointEach bool
	// BootstrapAnnounce delivers the baseline item fetched on first run.
	BootstrapAnnounce bool

	Location *time.Location
}

// Deps are the collaborators of a Cycle. Scheduler and Enricher are optional.
type Deps struct {
	Feed      Feed
	Engine    Deduper
	Store     StateStore
	Notifier  Notifier
	Scheduler Scheduler
	Enricher  Enricher
	Logger    logger.Logger
	Now       func() time.Time
}

// Report summarises one finished cycle.
type Report struct {
	Bootstrap bool
	Fetched   int
	Skipped   int
	Total     int
	Notified  int
	Watermark time.Time
}

// Cycle is one invocation of the poller. It is not safe to run concurrently
// with itself against the same store.
type Cycle struct {
	cfg Config
	Deps
}

// New validates the wiring and returns a Cycle.
func New(cfg Config, deps Deps) (*Cycle, error) {
	var missing []string
	if strings.TrimSpace(cfg.Keyword) == "" {
		missing = append(missing, "keyword")
	}
	if deps.Feed == nil {
		missing = append(missing, "feed")
	}
	if deps.Engine == nil {
		missing = append(missing, "engine")
	}
	if deps.Store == nil {
		missing = append(missing, "store")
	}
	if deps.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("ingest cycle: missing %s", strings.Join(missing, ", "))
	}

	if cfg.Location == nil {
		cfg.Location = dedup.DefaultLocation
	}
	if cfg.ScheduleEvery <= 0 {
		cfg.ScheduleEvery = 5 * time.Minute
	}
	deps.Logger = logger.Ensure(deps.Logger)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Cycle{cfg: cfg, Deps: deps}, nil
}

// Run executes one cycle. On any error the persisted watermark is left as it
// was before the cycle, apart from checkpoints already written.
func (c *Cycle) Run(ctx context.Context) (Report, error) {
	st, found, err := c.Store.Load(ctx)
	if err != nil {
		c.Logger.ErrorObj("failed to load watermark", "state_load_error", map[string]any{
			"error": err.Error(),
		})
		return Report{}, err
	}
	if !found {
		return c.bootstrap(ctx)
	}
	return c.steady(ctx, st)
}

func (c *Cycle) bootstrap(ctx context.Context) (Report, error) {
	c.Logger.InfoObj("no stored watermark, starting bootstrap", "bootstrap_start", map[string]any{
		"keyword": c.cfg.Keyword,
	})

	if c.Scheduler != nil && c.cfg.ScheduleName != "" {
		if _, err := c.Scheduler.Ensure(ctx, c.cfg.ScheduleName, c.cfg.ScheduleEvery); err != nil {
			return Report{}, fmt.Errorf("register schedule: %w", err)
		}
	}

	page, err := c.Feed.Search(ctx, providers.Request{
		Keyword: c.cfg.Keyword,
		Display: 1,
		Start:   1,
		Sort:    c.cfg.Sort,
	})
	if err != nil {
		c.logFetchError(err)
		return Report{Bootstrap: true}, err
	}

	now := time.UnixMilli(c.Now().UnixMilli())
	st := baseline(now, page.Items)
	if err := c.Store.Save(ctx, st); err != nil {
		return Report{Bootstrap: true}, fmt.Errorf("save bootstrap watermark: %w", err)
	}

	rep := Report{
		Bootstrap: true,
		Fetched:   len(page.Items),
		Skipped:   page.Skipped,
		Total:     page.Total,
		Watermark: st.LastUpdateTime,
	}

	if c.cfg.BootstrapAnnounce && len(page.Items) > 0 {
		evt := publishers.EventFromPayload(c.cfg.Keyword, c.Engine.Payload(page.Items[0]))
		if err := c.deliver(ctx, 0, evt); err != nil {
			return rep, err
		}
		rep.Notified = 1
	}

	c.Logger.InfoObj("bootstrap complete", "bootstrap_done", map[string]any{
		"watermark": c.format(st.LastUpdateTime),
		"feed":      c.Feed.ID(),
		"baseline":  len(page.Items),
	})
	return rep, nil
}

func (c *Cycle) steady(ctx context.Context, st domain.WatermarkState) (Report, error) {
	page, err := c.Feed.Search(ctx, providers.Request{
		Keyword: c.cfg.Keyword,
		Display: c.cfg.Display,
		Start:   c.cfg.Start,
		Sort:    c.cfg.Sort,
	})
	if err != nil {
		c.logFetchError(err)
		return Report{}, err
	}

	items := chronological(page.Items)
	c.Logger.DebugObj("feed page received", "feed_page", map[string]any{
		"feed":            c.Feed.ID(),
		"items":           len(items),
		"skipped":         page.Skipped,
		"total":           page.Total,
		"start":           page.Start,
		"display":         page.Display,
		"last_build_date": c.format(page.LastBuildDate),
	})

	payloads, next := c.Engine.Apply(items, st, c.cfg.Keyword)

	events := make([]publishers.Event, len(payloads))
	for i, p := range payloads {
		events[i] = publishers.EventFromPayload(c.cfg.Keyword, p)
	}
	if c.Enricher != nil && !c.cfg.DryRun && len(events) > 0 {
		events = c.Enricher.Enrich(ctx, events)
	}

	checkpoint := domain.WatermarkState{LastUpdateTime: st.LastUpdateTime, SeenLinks: st.SeenLinks.Clone()}
	for i, evt := range events {
		if err := c.deliver(ctx, i, evt); err != nil {
			return Report{Fetched: len(items), Notified: i}, err
		}
		if c.cfg.CheckpointEach && !c.cfg.DryRun {
			checkpoint.SeenLinks[evt.OriginalLink] = evt.PubDate
			if err := c.Store.Save(ctx, checkpoint); err != nil {
				return Report{Fetched: len(items), Notified: i + 1}, fmt.Errorf("checkpoint watermark: %w", err)
			}
		}
	}

	if err := c.Store.Save(ctx, next); err != nil {
		return Report{Fetched: len(items), Notified: len(events)}, fmt.Errorf("save watermark: %w", err)
	}

	if len(events) == 0 {
		c.Logger.InfoObj(fmt.Sprintf("no new articles since %s", c.format(st.LastUpdateTime)), "no_new_articles", map[string]any{
			"keyword": c.cfg.Keyword,
			"fetched": len(items),
		})
	} else {
		c.Logger.InfoObj(fmt.Sprintf("%d articles delivered", len(events)), "cycle_done", map[string]any{
			"keyword":   c.cfg.Keyword,
			"fetched":   len(items),
			"watermark": c.format(next.LastUpdateTime),
			"seen":      len(next.SeenLinks),
		})
	}

	return Report{
		Fetched:   len(items),
		Skipped:   page.Skipped,
		Total:     page.Total,
		Notified:  len(events),
		Watermark: next.LastUpdateTime,
	}, nil
}

func (c *Cycle) deliver(ctx context.Context, idx int, evt publishers.Event) error {
	if c.cfg.DryRun {
		c.Logger.InfoObj("dry run, not delivering", "dry_run_payload", map[string]any{
			"index":         idx,
			"title":         evt.Title,
			"source":        evt.Source,
			"pub_date_text": evt.PubDateText,
			"link":          evt.Link,
			"original_link": evt.OriginalLink,
			"message":       publishers.FormatMessage(evt),
		})
		return nil
	}

	if err := c.Notifier.Publish(ctx, evt); err != nil {
		var ne *publishers.NotifyError
		if !errors.As(err, &ne) {
			err = &publishers.NotifyError{PublisherID: "notifier", Err: err}
		}
		c.Logger.ErrorObj("notification failed, watermark not advanced", "notify_error", map[string]any{
			"index": idx,
			"link":  evt.Link,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (c *Cycle) logFetchError(err error) {
	var fe *providers.FetchError
	if errors.As(err, &fe) {
		headers := make(map[string]string, len(fe.Header))
		for k := range fe.Header {
			headers[k] = fe.Header.Get(k)
		}
		c.Logger.ErrorObj("feed returned an error response", "fetch_error", map[string]any{
			"provider": fe.Provider,
			"status":   fe.StatusCode,
			"headers":  headers,
			"body":     fe.Body,
		})
		return
	}
	c.Logger.ErrorObj("feed request failed", "fetch_error", map[string]any{
		"error": err.Error(),
	})
}

func (c *Cycle) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(c.cfg.Location).Format(dedup.PubDateLayout)
}

// baseline is the state persisted at bootstrap. The newest fetched item is
// marked seen and caps the watermark, so the first steady cycle resumes at it
// instead of rescanning the backlog behind it. With no item the clock is used.
func baseline(now time.Time, items []domain.NewsItem) domain.WatermarkState {
	st := domain.WatermarkState{LastUpdateTime: now, SeenLinks: domain.SeenSet{}}
	if len(items) == 0 {
		return st
	}
	newest := items[0]
	for _, it := range items[1:] {
		if it.PubDate.After(newest.PubDate) {
			newest = it
		}
	}
	pub := time.UnixMilli(newest.PubDate.UnixMilli())
	st.SeenLinks[newest.OriginalLink] = pub
	if pub.Before(now) {
		st.LastUpdateTime = pub
	}
	return st
}

// chronological returns items oldest first. Providers return newest first,
// but the result is also sorted by PubDate so the oldest-first order holds
// even when a page arrives slightly out of order. Ties keep the reversed order.
func chronological(items []domain.NewsItem) []domain.NewsItem {
	out := make([]domain.NewsItem, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PubDate.Before(out[j].PubDate) })
	return out
}
