package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/domain"
)

// Event is the payload delivered to every publisher for one matched article.
type Event struct {
	Keyword      string    `json:"keyword"`
	Title        string    `json:"title"`
	Source       string    `json:"source"`
	Link         string    `json:"link"`
	OriginalLink string    `json:"original_link"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	PubDate      time.Time `json:"published_at"`
	PubDateText  string    `json:"pub_date_text"`
}

// EventFromPayload builds the Event for a notification payload.
func EventFromPayload(keyword string, p domain.NotificationPayload) Event {
	return Event{
		Keyword:      keyword,
		Title:        p.Title,
		Source:       p.Source,
		Link:         p.Link,
		OriginalLink: p.OriginalLink,
		Description:  p.Description,
		PubDate:      p.PubDate,
		PubDateText:  p.PubDateText,
	}
}

// Publisher delivers events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Logger is the logging surface publishers need.
type Logger interface {
	DebugObj(msg, event string, fields map[string]any)
	InfoObj(msg, event string, fields map[string]any)
	WarnObj(msg, event string, fields map[string]any)
	ErrorObj(msg, event string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) DebugObj(string, string, map[string]any) {}
func (nopLogger) InfoObj(string, string, map[string]any)  {}
func (nopLogger) WarnObj(string, string, map[string]any)  {}
func (nopLogger) ErrorObj(string, string, map[string]any) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}

// NotifyError reports a delivery failure by one publisher.
type NotifyError struct {
	PublisherID string
	Err         error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("publisher %s: %v", e.PublisherID, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

// Fanout delivers each event to its publishers in order and stops at the first failure.
type Fanout struct {
	pubs []Publisher
	log  Logger
}

// NewFanout builds a Fanout over pubs, skipping nil entries.
func NewFanout(log Logger, pubs ...Publisher) *Fanout {
	f := &Fanout{log: ensureLogger(log)}
	for _, p := range pubs {
		if p != nil {
			f.pubs = append(f.pubs, p)
		}
	}
	return f
}

// Len reports how many publishers the fan-out delivers to.
func (f *Fanout) Len() int { return len(f.pubs) }

// Publish delivers evt to every publisher. A failure is returned as *NotifyError.
func (f *Fanout) Publish(ctx context.Context, evt Event) error {
	for _, p := range f.pubs {
		if err := p.Publish(ctx, evt); err != nil {
			f.log.ErrorObj("publisher delivery failed", "publisher_error", map[string]any{
				"publisher_id": p.ID(),
				"type":         p.Type(),
				"link":         evt.Link,
				"error":        err.Error(),
			})
			return &NotifyError{PublisherID: p.ID(), Err: err}
		}
		f.log.DebugObj("publisher delivered event", "publisher_delivery", map[string]any{
			"publisher_id": p.ID(),
			"type":         p.Type(),
			"link":         evt.Link,
		})
	}
	return nil
}

// eventAttributes are the message attributes queue sinks attach for routing.
func eventAttributes(evt Event) map[string]string {
	attrs := map[string]string{"keyword": evt.Keyword}
	if evt.Source != "" {
		attrs["source"] = evt.Source
	}
	return attrs
}
