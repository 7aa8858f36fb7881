package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// FetchError reports a non-success response from a feed provider.
type FetchError struct {
	Provider   string
	StatusCode int
	Header     http.Header
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s returned status %d body: %s", e.Provider, e.StatusCode, e.Body)
}

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

func fetchFeed(ctx context.Context, client HTTPClient, url, providerID string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", providerID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{
			Provider:   providerID,
			StatusCode: resp.StatusCode(),
			Header:     resp.Header().Clone(),
			Body:       responseSnippet(body),
		}
	}

	return body, nil
}

func clampInt(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	return max(lo, min(v, hi))
}
