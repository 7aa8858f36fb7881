package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/domain"
)

const (
	naverDefaultEndpoint = "https://openapi.naver.com/v1/search/news.xml"

	naverHeaderClientID     = "X-Naver-Client-Id"
	naverHeaderClientSecret = "X-Naver-Client-Secret"

	naverMaxDisplay = 100
	naverMaxStart   = 1000
)

// naverFetcher queries the Naver news search API in its XML form.
type naverFetcher struct {
	client HTTPClient
}

// NewNaverFetcher builds a Fetcher for the Naver news search API.
func NewNaverFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &naverFetcher{client: client}
}

func (f *naverFetcher) ID() string {
	return ProviderTypeNaver
}

func (f *naverFetcher) Fetch(ctx context.Context, cfg Provider, req Request) (Page, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return Page{}, fmt.Errorf("naver provider credentials are empty")
	}
	if strings.TrimSpace(req.Keyword) == "" {
		return Page{}, fmt.Errorf("naver search keyword is empty")
	}

	endpoint, err := naverSearchURL(cfg.SourceURL, req)
	if err != nil {
		return Page{}, err
	}

	headers := Headers(cfg)
	headers[naverHeaderClientID] = cfg.ClientID
	headers[naverHeaderClientSecret] = cfg.ClientSecret

	raw, err := fetchFeed(ctx, f.client, endpoint, providerName(cfg, ProviderTypeNaver), headers)
	if err != nil {
		return Page{}, err
	}

	page, err := parseNaverSearch(raw)
	if err != nil {
		return Page{}, fmt.Errorf("decode naver search: %w", err)
	}
	return page, nil
}

func naverSearchURL(base string, req Request) (string, error) {
	if strings.TrimSpace(base) == "" {
		base = naverDefaultEndpoint
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse naver endpoint: %w", err)
	}

	sort := req.Sort
	if sort != SortSim {
		sort = SortDate
	}

	q := u.Query()
	q.Set("query", req.Keyword)
	q.Set("display", strconv.Itoa(clampInt(req.Display, 1, naverMaxDisplay, 50)))
	q.Set("start", strconv.Itoa(clampInt(req.Start, 1, naverMaxStart, 1)))
	q.Set("sort", sort)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type naverRSS struct {
	Channel naverChannel `xml:"channel"`
}

type naverChannel struct {
	LastBuildDate string      `xml:"lastBuildDate"`
	Total         int         `xml:"total"`
	Start         int         `xml:"start"`
	Display       int         `xml:"display"`
	Items         []naverItem `xml:"item"`
}

type naverItem struct {
	Title        string `xml:"title"`
	OriginalLink string `xml:"originallink"`
	Link         string `xml:"link"`
	Description  string `xml:"description"`
	PubDate      string `xml:"pubDate"`
}

func parseNaverSearch(data []byte) (Page, error) {
	var doc naverRSS
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Page{}, err
	}

	ch := doc.Channel
	page := Page{
		Items:         make([]domain.NewsItem, 0, len(ch.Items)),
		Total:         ch.Total,
		Start:         ch.Start,
		Display:       ch.Display,
		LastBuildDate: parseRFC1123(ch.LastBuildDate),
	}

	for _, it := range ch.Items {
		link := strings.TrimSpace(it.Link)
		original := strings.TrimSpace(it.OriginalLink)
		if original == "" {
			original = link
		}
		pub := parseRFC1123(it.PubDate)
		if original == "" || pub.IsZero() {
			page.Skipped++
			continue
		}

		page.Items = append(page.Items, domain.NewsItem{
			Title:        strings.TrimSpace(it.Title),
			OriginalLink: original,
			Link:         link,
			Description:  strings.TrimSpace(it.Description),
			PubDate:      pub,
		})
	}
	return page, nil
}

func parseRFC1123(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func providerName(cfg Provider, fallback string) string {
	if id := strings.TrimSpace(cfg.ID); id != "" {
		return id
	}
	return fallback
}
