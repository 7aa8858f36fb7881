package dedup

import (
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/domain"
	"github.com/Adda-Baaj/khobor-alert/internal/logger"
)

const (
	// DefaultSafetyMargin is how far the next watermark is rewound behind the
	// newest publish time seen in a batch.
	DefaultSafetyMargin = 5 * time.Minute

	// PubDateLayout formats NotificationPayload.PubDateText.
	PubDateLayout = "2006-01-02 15:04:05"
)

// DefaultLocation is used for PubDateText when none is configured.
var DefaultLocation = time.FixedZone("KST", 9*60*60)

// SourceResolver maps an article link to a publisher label.
type SourceResolver interface {
	Resolve(link string) string
}

// Engine decides which items of a batch are new and computes the next watermark.
// It holds no state between calls.
type Engine struct {
	resolver SourceResolver
	margin   time.Duration
	loc      *time.Location
	log      logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSafetyMargin overrides DefaultSafetyMargin.
func WithSafetyMargin(d time.Duration) Option {
	return func(e *Engine) { e.margin = d }
}

// WithLocation sets the time zone used to render publish dates.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLogger sets the logger for per-item dispositions.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) { e.log = logger.Ensure(log) }
}

// NewEngine builds an Engine.
func NewEngine(resolver SourceResolver, opts ...Option) *Engine {
	e := &Engine{
		resolver: resolver,
		margin:   DefaultSafetyMargin,
		loc:      DefaultLocation,
		log:      logger.NopLogger{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SafetyMargin reports the configured margin.
func (e *Engine) SafetyMargin() time.Duration { return e.margin }

// Apply processes items, which must be ordered oldest to newest, against
// state. It returns the payloads to deliver, in item order, and the state to
// persist. state is not modified.
func (e *Engine) Apply(items []domain.NewsItem, state domain.WatermarkState, keyword string) ([]domain.NotificationPayload, domain.WatermarkState) {
	if len(items) == 0 {
		return nil, state
	}

	seen := state.SeenLinks.Clone()
	start, resumed := resumePoint(items, state.LastUpdateTime)

	var (
		notify []domain.NotificationPayload
		latest time.Time
	)

	for i := start; i < len(items); i++ {
		item := items[i]

		if _, dup := seen[item.OriginalLink]; dup {
			if item.PubDate.After(latest) {
				latest = item.PubDate
			}
			e.log.DebugObj("item already processed", "dedup_duplicate", map[string]any{
				"index":        i,
				"originallink": item.OriginalLink,
			})
			continue
		}

		payload := e.Payload(item)
		if strings.Contains(payload.Title, keyword) {
			notify = append(notify, payload)
			e.log.DebugObj("item selected for notification", "dedup_match", map[string]any{
				"index":  i,
				"title":  payload.Title,
				"source": payload.Source,
			})
		} else {
			e.log.DebugObj("item does not mention keyword", "dedup_unmatched", map[string]any{
				"index":   i,
				"title":   payload.Title,
				"keyword": keyword,
			})
		}

		seen[item.OriginalLink] = item.PubDate
		if item.PubDate.After(latest) {
			latest = item.PubDate
		}
	}

	// The watermark never moves back while the batch reaches it. A batch
	// entirely behind it lets it follow the feed instead.
	next := latest.Add(-e.margin)
	if resumed && next.Before(state.LastUpdateTime) {
		next = state.LastUpdateTime
	}
	for link, t := range seen {
		if t.Before(next) {
			delete(seen, link)
		}
	}

	return notify, domain.WatermarkState{LastUpdateTime: next, SeenLinks: seen}
}

// resumePoint returns the index of the first item published at or after the
// watermark. When there is none it returns 0 and false so that a gap is
// re-checked rather than skipped.
func resumePoint(items []domain.NewsItem, watermark time.Time) (int, bool) {
	for i, item := range items {
		if !item.PubDate.Before(watermark) {
			return i, true
		}
	}
	return 0, false
}

// Payload normalizes item for delivery: bleached text, resolved source and
// the publish date rendered in the engine's location.
func (e *Engine) Payload(item domain.NewsItem) domain.NotificationPayload {
	sourceLink := item.SourceURL
	if sourceLink == "" {
		sourceLink = item.OriginalLink
	}

	return domain.NotificationPayload{
		PubDateText:  item.PubDate.In(e.loc).Format(PubDateLayout),
		Title:        Bleach(item.Title),
		Source:       e.resolver.Resolve(sourceLink),
		Link:         item.Link,
		OriginalLink: item.OriginalLink,
		Description:  Bleach(item.Description),
		PubDate:      item.PubDate,
	}
}
