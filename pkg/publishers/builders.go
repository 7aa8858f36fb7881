package publishers

import (
	"context"
	"fmt"
)

// Builder creates a sink publisher from its config entry.
type Builder func(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error)

// Builders maps sink types to their constructors.
type Builders map[string]Builder

// DefaultBuilders knows every sink type this package implements.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:     newHTTPPublisher,
		TypeQueue:    newQueuePublisher,
		TypeTelegram: newTelegramPublisher,
	}
}

// BuildSinks constructs a publisher per config, in order. Sinks with a
// route only see the events it accepts.
func BuildSinks(ctx context.Context, builders Builders, cfgs []SinkConfig, log Logger) ([]Publisher, error) {
	log = ensureLogger(log)

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		build, ok := builders[cfg.Type]
		if !ok {
			return nil, fmt.Errorf("sink %q: no builder for type %q", cfg.ID, cfg.Type)
		}
		pub, err := build(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("sink %q: %w", cfg.ID, err)
		}
		if !cfg.Route.empty() {
			pub = &routedPublisher{Publisher: pub, route: cfg.Route, log: log}
		}
		log.InfoObj("sink ready", "sink_built", map[string]any{
			"id":       cfg.ID,
			"type":     cfg.Type,
			"keywords": cfg.Route.Keywords,
			"sources":  cfg.Route.Sources,
		})
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// routedPublisher drops events its route does not accept.
type routedPublisher struct {
	Publisher
	route Route
	log   Logger
}

func (p *routedPublisher) Publish(ctx context.Context, evt Event) error {
	if !p.route.Accepts(evt) {
		p.log.DebugObj("event not routed to sink", "sink_skipped", map[string]any{
			"id":      p.ID(),
			"keyword": evt.Keyword,
			"source":  evt.Source,
		})
		return nil
	}
	return p.Publisher.Publish(ctx, evt)
}
