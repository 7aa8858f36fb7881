package domain

import "time"

// Domain contains core models shared by the feed, dedup and notification layers.

// NewsItem is a single search result as returned by a feed provider.
type NewsItem struct {
	Title        string
	OriginalLink string
	Link         string
	Description  string
	PubDate      time.Time
	// SourceURL optionally names the publisher's home page when the provider
	// exposes it separately from the article link.
	SourceURL string
}

// ProcessedLink records an article whose disposition has been decided.
type ProcessedLink struct {
	OriginalLink string    `json:"originallink"`
	PubTime      time.Time `json:"pubTime"`
}

// SeenSet maps an article's original link to its publish time.
type SeenSet map[string]time.Time

// Clone returns an independent copy of the set. A nil set clones to an empty one.
func (s SeenSet) Clone() SeenSet {
	out := make(SeenSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Links returns the set as a slice of ProcessedLink in no particular order.
func (s SeenSet) Links() []ProcessedLink {
	out := make([]ProcessedLink, 0, len(s))
	for link, t := range s {
		out = append(out, ProcessedLink{OriginalLink: link, PubTime: t})
	}
	return out
}

// WatermarkState is the only state carried between polling cycles.
type WatermarkState struct {
	LastUpdateTime time.Time
	SeenLinks      SeenSet
}

// NotificationPayload is what the notifier needs to announce one article.
type NotificationPayload struct {
	PubDateText  string
	Title        string
	Source       string
	Link         string
	OriginalLink string
	Description  string
	PubDate      time.Time
}
