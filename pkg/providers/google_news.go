package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed/rss"

	"github.com/Adda-Baaj/khobor-alert/internal/domain"
)

const googleNewsDefaultEndpoint = "https://news.google.com/rss/search"

// googleNewsFetcher implements Fetcher for the Google News RSS search feed.
type googleNewsFetcher struct {
	client HTTPClient
}

// NewGoogleNewsFetcher builds a Fetcher for Google News keyword search.
func NewGoogleNewsFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &googleNewsFetcher{client: client}
}

// ID returns the provider type for the Google News fetcher.
func (f *googleNewsFetcher) ID() string {
	return ProviderTypeGoogleNews
}

// Fetch retrieves the search feed. Google News has no paging, so Start is
// ignored and Display truncates the newest-first result list.
func (f *googleNewsFetcher) Fetch(ctx context.Context, cfg Provider, req Request) (Page, error) {
	if strings.TrimSpace(req.Keyword) == "" {
		return Page{}, fmt.Errorf("google news search keyword is empty")
	}

	endpoint, err := googleNewsSearchURL(cfg, req.Keyword)
	if err != nil {
		return Page{}, err
	}

	raw, err := fetchFeed(ctx, f.client, endpoint, providerName(cfg, ProviderTypeGoogleNews), Headers(cfg))
	if err != nil {
		return Page{}, err
	}

	page, err := parseGoogleNewsFeed(raw)
	if err != nil {
		return Page{}, fmt.Errorf("decode google news feed: %w", err)
	}

	if req.Display > 0 && len(page.Items) > req.Display {
		page.Items = page.Items[:req.Display]
	}
	page.Start = 1
	page.Display = len(page.Items)
	return page, nil
}

func googleNewsSearchURL(cfg Provider, keyword string) (string, error) {
	base := strings.TrimSpace(cfg.SourceURL)
	if base == "" {
		base = googleNewsDefaultEndpoint
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse google news endpoint: %w", err)
	}

	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = "ko"
	}
	region := strings.ToUpper(strings.TrimSpace(cfg.Region))
	if region == "" {
		region = "KR"
	}

	q := u.Query()
	q.Set("q", keyword)
	q.Set("hl", lang)
	q.Set("gl", region)
	q.Set("ceid", region+":"+lang)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func parseGoogleNewsFeed(data []byte) (Page, error) {
	fp := &rss.Parser{}
	feed, err := fp.Parse(bytes.NewReader(data))
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: make([]domain.NewsItem, 0, len(feed.Items))}
	if feed.LastBuildDateParsed != nil {
		page.LastBuildDate = *feed.LastBuildDateParsed
	}

	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		link := strings.TrimSpace(it.Link)
		if link == "" || it.PubDateParsed == nil {
			page.Skipped++
			continue
		}

		item := domain.NewsItem{
			Title:        strings.TrimSpace(it.Title),
			OriginalLink: link,
			Link:         link,
			Description:  strings.TrimSpace(it.Description),
			PubDate:      *it.PubDateParsed,
		}
		if it.Source != nil {
			item.SourceURL = strings.TrimSpace(it.Source.URL)
			item.Title = trimSourceSuffix(item.Title, it.Source.Title)
		}
		page.Items = append(page.Items, item)
	}

	sort.SliceStable(page.Items, func(i, j int) bool {
		return page.Items[i].PubDate.After(page.Items[j].PubDate)
	})
	page.Total = len(page.Items)
	return page, nil
}

// trimSourceSuffix drops the " - Publisher" tail Google appends to titles.
func trimSourceSuffix(title, source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return title
	}
	return strings.TrimSpace(strings.TrimSuffix(title, " - "+source))
}
