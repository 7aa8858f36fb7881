package providers

import (
	"context"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/domain"
	"github.com/Adda-Baaj/khobor-alert/pkg/httpclient"
)

// Provider types understood by the default registry.
const (
	ProviderTypeNaver      = "naver"
	ProviderTypeGoogleNews = "google_news"
)

// Sort orders accepted by search providers.
const (
	SortDate = "date"
	SortSim  = "sim"
)

// HTTPClient is the outbound client a fetcher uses.
type HTTPClient = httpclient.Client

// Provider describes a configured search feed.
type Provider struct {
	ID        string            `yaml:"id" json:"id"`
	Type      string            `yaml:"type" json:"type"`
	SourceURL string            `yaml:"source_url" json:"source_url"`
	UserAgent string            `yaml:"user_agent" json:"user_agent"`
	Headers   map[string]string `yaml:"headers" json:"headers"`

	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`

	Language string `yaml:"language" json:"language"`
	Region   string `yaml:"region" json:"region"`
}

// Request is one keyword search.
type Request struct {
	Keyword string
	Display int
	Start   int
	Sort    string
}

// Page is one page of search results, newest first as the provider returns it.
type Page struct {
	Items         []domain.NewsItem
	Total         int
	Start         int
	Display       int
	LastBuildDate time.Time
	// Skipped counts entries dropped for lacking a usable link or publish date.
	Skipped int
}

// Fetcher retrieves a page of search results for a provider.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, cfg Provider, req Request) (Page, error)
}

// FetcherRegistry resolves the fetcher for a provider.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (Fetcher, error)
}

// Headers returns the request headers configured for a provider.
func Headers(cfg Provider) map[string]string {
	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		headers[k] = v
	}
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		headers["User-Agent"] = ua
	}
	return headers
}
