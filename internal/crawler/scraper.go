package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/khobor-alert/internal/logger"
	"github.com/Adda-Baaj/khobor-alert/pkg/httpclient"
	"github.com/Adda-Baaj/khobor-alert/pkg/publishers"
)

const (
	maxHTMLBodyBytes  = 1 << 20 // 1 MiB
	maxArticleWorkers = 10
	defaultWorkers    = 4
	defaultTimeout    = 10 * time.Second
)

// Options tunes the scraper worker pool.
type Options struct {
	Workers int
	// Delay spaces out page fetches across all workers.
	Delay time.Duration
}

// Scraper adds link preview metadata to outgoing events by scraping article pages.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
	opts   Options
}

// NewScraper creates a new Scraper with the given HTTP client and logger.
func NewScraper(client httpclient.Client, log logger.Logger, opts Options) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	opts.Workers = min(opts.Workers, maxArticleWorkers)
	return &Scraper{client: client, log: logger.Ensure(log), opts: opts}
}

// Enrich fills ImageURL and a missing Description on each event. Output
// order matches the input, and an event whose page cannot be scraped is
// returned unchanged.
func (s *Scraper) Enrich(ctx context.Context, events []publishers.Event) []publishers.Event {
	delay := s.opts.Delay
	out := make([]publishers.Event, len(events))
	copy(out, events) // default to originals so partial results are returned on cancel

	if len(events) == 0 {
		return out
	}

	workerCount := min(len(events), s.opts.Workers)

	var limiter <-chan time.Time
	var ticker *time.Ticker
	if delay > 0 {
		ticker = time.NewTicker(delay)
		limiter = ticker.C
		defer ticker.Stop()
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := 0; workerID < workerCount; workerID++ {
		wg.Add(1)
		go s.articleWorker(ctx, events, limiter, jobCh, out, &wg, workerID)
	}

feed:
	for idx := range events {
		select {
		case <-ctx.Done():
			break feed
		case jobCh <- idx:
		}
	}
	close(jobCh)

	wg.Wait()

	return out
}

// articleWorker scrapes the pages of queued events, respecting the rate limiter.
func (s *Scraper) articleWorker(
	ctx context.Context,
	events []publishers.Event,
	limiter <-chan time.Time,
	jobCh <-chan int,
	out []publishers.Event,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			return
		}

		if limiter != nil {
			select {
			case <-ctx.Done():
				return
			case <-limiter:
			}
		}

		evt := events[idx]
		if enriched, err := s.fetchAndParse(ctx, evt, workerID); err != nil {
			s.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
				"worker_id": workerID,
				"url":       pageURL(evt),
				"error":     err.Error(),
			})
			out[idx] = evt
		} else {
			out[idx] = enriched
		}
	}
}

// fetchAndParse fetches the article HTML and copies its preview metadata onto evt.
// The title is left alone since it is what the keyword matched.
func (s *Scraper) fetchAndParse(ctx context.Context, evt publishers.Event, workerID int) (publishers.Event, error) {
	target := pageURL(evt)
	if target == "" {
		return evt, fmt.Errorf("event has no link")
	}

	s.log.DebugObj("scraping article metadata", "scrape_start", map[string]any{
		"worker_id": workerID,
		"url":       target,
	})

	resp, err := s.client.Get(ctx, target, nil)
	if err != nil {
		return evt, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return evt, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		s.log.InfoObj("html body truncated", "truncation", map[string]any{
			"worker_id": workerID,
			"url":       target,
			"original":  len(body),
			"kept":      maxHTMLBodyBytes,
		})
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return evt, err
	}
	updated := evt
	if updated.Description == "" && meta.Description != "" {
		updated.Description = meta.Description
	}
	if meta.ImageURL != "" {
		updated.ImageURL = resolveURL(meta.ImageURL, target)
	}

	return updated, nil
}

// pageURL prefers the publisher's own page over the aggregator link.
func pageURL(evt publishers.Event) string {
	if evt.OriginalLink != "" {
		return evt.OriginalLink
	}
	return evt.Link
}

// parseMeta extracts page metadata from the HTML body.
func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	pm := pageMeta{}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm.Description = firstNonEmpty(
		extract(`meta[property="og:description"]`),
		extract(`meta[name="description"]`),
	)
	pm.ImageURL = extract(`meta[property="og:image"]`)

	return pm, nil
}

// pageMeta holds metadata extracted from an HTML page.
type pageMeta struct {
	Description string
	ImageURL    string
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}
