package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/domain"
	"github.com/Adda-Baaj/khobor-alert/internal/kvstore"
)

// Property names in the key/value store.
const (
	KeySeenLinks      = "seenLinks"
	KeyLastUpdateTime = "lastUpdateTime"
)

// StateError reports persisted state that cannot be used without operator intervention.
type StateError struct {
	Key    string
	Reason string
	Err    error
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("state %s: %s", e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StateError) Unwrap() error { return e.Err }

// seenRecord is the persisted form of a domain.ProcessedLink. Times are
// epoch milliseconds so they round-trip without precision loss.
type seenRecord struct {
	OriginalLink string `json:"originallink"`
	PubTime      int64  `json:"pubTime"`
}

// Store loads and saves the WatermarkState through an opaque key/value store.
type Store struct {
	kv kvstore.Store
}

// NewStore wraps kv.
func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Load reads the persisted WatermarkState. found is false when no SeenSet has
// ever been persisted, which callers treat as a first run.
func (s *Store) Load(ctx context.Context) (st domain.WatermarkState, found bool, err error) {
	rawSeen, ok, err := s.kv.Get(ctx, KeySeenLinks)
	if err != nil {
		return domain.WatermarkState{}, false, fmt.Errorf("read %s: %w", KeySeenLinks, err)
	}
	if !ok {
		return domain.WatermarkState{}, false, nil
	}

	rawTime, ok, err := s.kv.Get(ctx, KeyLastUpdateTime)
	if err != nil {
		return domain.WatermarkState{}, false, fmt.Errorf("read %s: %w", KeyLastUpdateTime, err)
	}
	if !ok || strings.TrimSpace(rawTime) == "" {
		return domain.WatermarkState{}, false, &StateError{Key: KeyLastUpdateTime, Reason: "missing while seen links exist"}
	}

	last, err := parseMillis(rawTime)
	if err != nil {
		return domain.WatermarkState{}, false, &StateError{Key: KeyLastUpdateTime, Reason: "not an epoch millisecond value", Err: err}
	}

	seen, err := decodeSeen(rawSeen, last)
	if err != nil {
		return domain.WatermarkState{}, false, &StateError{Key: KeySeenLinks, Reason: "undecodable", Err: err}
	}

	return domain.WatermarkState{LastUpdateTime: last, SeenLinks: seen}, true, nil
}

// Save writes both properties in one store write.
func (s *Store) Save(ctx context.Context, st domain.WatermarkState) error {
	records := make([]seenRecord, 0, len(st.SeenLinks))
	for link, t := range st.SeenLinks {
		records = append(records, seenRecord{OriginalLink: link, PubTime: t.UnixMilli()})
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", KeySeenLinks, err)
	}

	if err := kvstore.SetAll(ctx, s.kv, map[string]string{
		KeySeenLinks:      string(raw),
		KeyLastUpdateTime: strconv.FormatInt(st.LastUpdateTime.UnixMilli(), 10),
	}); err != nil {
		return fmt.Errorf("save watermark: %w", err)
	}
	return nil
}

// decodeSeen accepts both the object list and the legacy list of link
// strings. Legacy links take the watermark as their publish time.
func decodeSeen(raw string, watermark time.Time) (domain.SeenSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return domain.SeenSet{}, nil
	}

	var records []seenRecord
	if err := json.Unmarshal([]byte(raw), &records); err == nil {
		seen := make(domain.SeenSet, len(records))
		for _, r := range records {
			if r.OriginalLink == "" {
				continue
			}
			seen[r.OriginalLink] = time.UnixMilli(r.PubTime)
		}
		return seen, nil
	}

	var links []string
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, err
	}
	seen := make(domain.SeenSet, len(links))
	for _, l := range links {
		if l != "" {
			seen[l] = watermark
		}
	}
	return seen, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
