package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/khobor-alert/pkg/httpclient"
)

const defaultTimeout = 15 * time.Second

type fetcherRegistry struct {
	fetchers map[string]Fetcher
	mu       sync.RWMutex
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{
		fetchers: make(map[string]Fetcher, len(fetchers)),
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		reg.fetchers[strings.ToLower(strings.TrimSpace(f.ID()))] = f
	}

	return reg
}

// FetcherFor selects the fetcher for the given provider based on its type,
// falling back to its id.
func (r *fetcherRegistry) FetcherFor(cfg Provider) (Fetcher, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(cfg.ID))
	}
	if key == "" {
		return nil, fmt.Errorf("provider id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.fetchers[key]; ok {
		return f, nil
	}

	return nil, fmt.Errorf("no fetcher registered for provider %q", key)
}

// DefaultHTTPClient returns a tuned client for provider fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(defaultTimeout) }

// DefaultFetcherRegistry wires up the known provider fetchers.
func DefaultFetcherRegistry(client HTTPClient) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewFetcherRegistry(
		NewNaverFetcher(client),
		NewGoogleNewsFetcher(client),
	)
}

// Feed binds a provider to its fetcher so callers only supply the request.
type Feed struct {
	cfg     Provider
	fetcher Fetcher
}

// NewFeed resolves the fetcher for cfg from reg.
func NewFeed(reg FetcherRegistry, cfg Provider) (*Feed, error) {
	if reg == nil {
		reg = DefaultFetcherRegistry(nil)
	}
	f, err := reg.FetcherFor(cfg)
	if err != nil {
		return nil, err
	}
	return &Feed{cfg: cfg, fetcher: f}, nil
}

// ID returns the configured provider id.
func (f *Feed) ID() string {
	if f.cfg.ID != "" {
		return f.cfg.ID
	}
	return f.fetcher.ID()
}

// Search fetches one page of results for req.
func (f *Feed) Search(ctx context.Context, req Request) (Page, error) {
	return f.fetcher.Fetch(ctx, f.cfg, req)
}
