package dedup

import (
	"slices"
	"testing"
	"time"

	"github.com/Adda-Baaj/khobor-alert/internal/domain"
	"github.com/Adda-Baaj/khobor-alert/pkg/sources"
)

func ms(v int64) time.Time { return time.UnixMilli(v) }

func item(title, link string, pub int64) domain.NewsItem {
	return domain.NewsItem{
		Title:        title,
		OriginalLink: link,
		Link:         link + "?naver",
		PubDate:      ms(pub),
	}
}

func newTestEngine(margin time.Duration) *Engine {
	return NewEngine(sources.Default(), WithSafetyMargin(margin))
}

func TestEngine_ApplyScenario(t *testing.T) {
	e := newTestEngine(50 * time.Millisecond)
	items := []domain.NewsItem{
		item("A문가영", "https://www.chosun.com/a", 100),
		item("B문가영", "https://www.chosun.com/b", 200),
	}

	notify, next := e.Apply(items, domain.WatermarkState{LastUpdateTime: ms(0), SeenLinks: domain.SeenSet{}}, "문가영")

	if len(notify) != 2 || notify[0].Title != "A문가영" || notify[1].Title != "B문가영" {
		t.Fatalf("notify = %#v, want both items in order", notify)
	}
	if got := next.LastUpdateTime.UnixMilli(); got != 150 {
		t.Errorf("next watermark = %d, want 150", got)
	}
	if _, ok := next.SeenLinks["https://www.chosun.com/a"]; ok {
		t.Error("link@100 retained, want pruned")
	}
	if _, ok := next.SeenLinks["https://www.chosun.com/b"]; !ok {
		t.Error("link@200 pruned, want retained")
	}

	again, after := e.Apply(items, next, "문가영")
	if len(again) != 0 {
		t.Errorf("second run notify = %#v, want none", again)
	}
	if got := after.LastUpdateTime.UnixMilli(); got != 150 {
		t.Errorf("second run watermark = %d, want 150", got)
	}
	if len(after.SeenLinks) != 1 {
		t.Errorf("second run seen = %v, want only link@200", after.SeenLinks.Links())
	}
}

func TestEngine_ApplyEdgeCases(t *testing.T) {
	margin := 50 * time.Millisecond

	tests := []struct {
		name          string
		items         []domain.NewsItem
		state         domain.WatermarkState
		keyword       string
		wantTitles    []string
		wantWatermark int64
		wantSeen      []string
	}{
		{
			name:          "empty batch leaves state untouched",
			state:         domain.WatermarkState{LastUpdateTime: ms(500), SeenLinks: domain.SeenSet{"x": ms(600)}},
			keyword:       "k",
			wantWatermark: 500,
			wantSeen:      []string{"x"},
		},
		{
			name: "all duplicates still advance the watermark",
			items: []domain.NewsItem{
				item("k1", "l1", 300),
				item("k2", "l2", 400),
			},
			state:         domain.WatermarkState{LastUpdateTime: ms(300), SeenLinks: domain.SeenSet{"l1": ms(300), "l2": ms(400)}},
			keyword:       "k",
			wantWatermark: 350,
			wantSeen:      []string{"l2"},
		},
		{
			name: "non matching titles are marked seen",
			items: []domain.NewsItem{
				item("other", "l1", 100),
				item("k here", "l2", 110),
			},
			state:         domain.WatermarkState{SeenLinks: domain.SeenSet{}},
			keyword:       "k",
			wantTitles:    []string{"k here"},
			wantWatermark: 60,
			wantSeen:      []string{"l1", "l2"},
		},
		{
			name: "items older than the watermark are skipped",
			items: []domain.NewsItem{
				item("k old", "old", 100),
				item("k new", "new", 1000),
			},
			state:         domain.WatermarkState{LastUpdateTime: ms(900), SeenLinks: domain.SeenSet{}},
			keyword:       "k",
			wantTitles:    []string{"k new"},
			wantWatermark: 950,
			wantSeen:      []string{"new"},
		},
		{
			name: "watermark does not move back while the batch reaches it",
			items: []domain.NewsItem{
				item("k older", "older", 400),
				item("k at", "at", 500),
				item("k after", "after", 520),
			},
			state:         domain.WatermarkState{LastUpdateTime: ms(500), SeenLinks: domain.SeenSet{}},
			keyword:       "k",
			wantTitles:    []string{"k at", "k after"},
			wantWatermark: 500,
			wantSeen:      []string{"at", "after"},
		},
		{
			name: "no item at or after the watermark rechecks the whole batch",
			items: []domain.NewsItem{
				item("k a", "a", 100),
				item("k b", "b", 200),
			},
			state:         domain.WatermarkState{LastUpdateTime: ms(5000), SeenLinks: domain.SeenSet{}},
			keyword:       "k",
			wantTitles:    []string{"k a", "k b"},
			wantWatermark: 150,
			wantSeen:      []string{"b"},
		},
		{
			name: "keyword match is case sensitive",
			items: []domain.NewsItem{
				item("Go news", "a", 100),
			},
			state:         domain.WatermarkState{SeenLinks: domain.SeenSet{}},
			keyword:       "go",
			wantWatermark: 50,
			wantSeen:      []string{"a"},
		},
		{
			name: "keyword inside markup does not match",
			items: []domain.NewsItem{
				item("<b>title</b>", "a", 100),
			},
			state:         domain.WatermarkState{SeenLinks: domain.SeenSet{}},
			keyword:       "b",
			wantWatermark: 50,
			wantSeen:      []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(margin)
			notify, next := e.Apply(tt.items, tt.state, tt.keyword)

			if len(notify) != len(tt.wantTitles) {
				t.Fatalf("notify len = %d, want %d (%#v)", len(notify), len(tt.wantTitles), notify)
			}
			for i, title := range tt.wantTitles {
				if notify[i].Title != title {
					t.Errorf("notify[%d].Title = %q, want %q", i, notify[i].Title, title)
				}
			}
			if got := next.LastUpdateTime.UnixMilli(); got != tt.wantWatermark {
				t.Errorf("watermark = %d, want %d", got, tt.wantWatermark)
			}
			if len(next.SeenLinks) != len(tt.wantSeen) {
				t.Fatalf("seen = %v, want %v", next.SeenLinks.Links(), tt.wantSeen)
			}
			for _, link := range tt.wantSeen {
				if _, ok := next.SeenLinks[link]; !ok {
					t.Errorf("seen missing %q", link)
				}
			}
			for link, pub := range next.SeenLinks {
				if pub.Before(next.LastUpdateTime) {
					t.Errorf("retained %q at %d below watermark %d", link, pub.UnixMilli(), next.LastUpdateTime.UnixMilli())
				}
			}
		})
	}
}

func TestEngine_LateArrivalDeliveredOnce(t *testing.T) {
	e := newTestEngine(50 * time.Millisecond)
	link := func(s string) string { return "https://www.chosun.com/" + s }
	a := item("문가영 a", link("a"), 100)
	b := item("문가영 b", link("b"), 180)
	c := item("문가영 c", link("c"), 200)
	d := item("문가영 d", link("d"), 210)
	f := item("문가영 f", link("f"), 260)

	polls := []struct {
		window        []domain.NewsItem
		wantTitles    []string
		wantWatermark int64
	}{
		{[]domain.NewsItem{a, c}, []string{"문가영 a", "문가영 c"}, 150},
		// b was published before c but only shows up now, inside the margin.
		{[]domain.NewsItem{a, b, c, d}, []string{"문가영 b", "문가영 d"}, 160},
		{[]domain.NewsItem{b, c, d, f}, []string{"문가영 f"}, 210},
		{[]domain.NewsItem{b, c, d, f}, nil, 210},
	}

	delivered := map[string]int{}
	st := domain.WatermarkState{LastUpdateTime: ms(0), SeenLinks: domain.SeenSet{}}
	for i, p := range polls {
		var notify []domain.NotificationPayload
		notify, st = e.Apply(p.window, st, "문가영")

		var titles []string
		for _, n := range notify {
			titles = append(titles, n.Title)
			delivered[n.Link]++
		}
		if !slices.Equal(titles, p.wantTitles) {
			t.Errorf("poll %d notify = %v, want %v", i, titles, p.wantTitles)
		}
		if got := st.LastUpdateTime.UnixMilli(); got != p.wantWatermark {
			t.Errorf("poll %d watermark = %d, want %d", i, got, p.wantWatermark)
		}
	}

	for _, it := range []domain.NewsItem{a, b, c, d, f} {
		if n := delivered[it.Link]; n != 1 {
			t.Errorf("%s delivered %d times, want 1", it.OriginalLink, n)
		}
	}
}

func TestEngine_ApplyDoesNotMutateInput(t *testing.T) {
	e := newTestEngine(time.Minute)
	in := domain.WatermarkState{LastUpdateTime: ms(0), SeenLinks: domain.SeenSet{"keep": ms(1)}}

	_, _ = e.Apply([]domain.NewsItem{item("k", "new", 10_000_000)}, in, "k")

	if len(in.SeenLinks) != 1 {
		t.Errorf("input seen set mutated: %v", in.SeenLinks.Links())
	}
}

func TestEngine_ApplyIsIdempotent(t *testing.T) {
	e := newTestEngine(5 * time.Minute)
	base := time.Date(2024, 10, 14, 12, 0, 0, 0, time.UTC)
	items := []domain.NewsItem{
		{Title: "문가영 1", OriginalLink: "a", PubDate: base},
		{Title: "문가영 2", OriginalLink: "b", PubDate: base.Add(time.Minute)},
		{Title: "문가영 3", OriginalLink: "c", PubDate: base.Add(2 * time.Minute)},
	}

	first, st := e.Apply(items, domain.WatermarkState{SeenLinks: domain.SeenSet{}}, "문가영")
	if len(first) != 3 {
		t.Fatalf("first run notify = %d, want 3", len(first))
	}
	second, st2 := e.Apply(items, st, "문가영")
	if len(second) != 0 {
		t.Errorf("second run notify = %d, want 0", len(second))
	}
	if !st2.LastUpdateTime.Equal(st.LastUpdateTime) || len(st2.SeenLinks) != len(st.SeenLinks) {
		t.Errorf("state changed on replay: %v -> %v", st, st2)
	}
}

func TestEngine_Normalize(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	e := NewEngine(sources.Default(), WithLocation(loc))

	pub := time.Date(2024, 10, 14, 3, 4, 5, 0, time.UTC)
	notify, _ := e.Apply([]domain.NewsItem{
		{
			Title:        "<b>문가영</b> &quot;첫&quot; 주연 `화제`",
			OriginalLink: "https://www.mk.co.kr/star/123",
			Link:         "https://n.news.naver.com/123",
			Description:  "a &amp; b &lt;c&gt;",
			PubDate:      pub,
		},
		{
			Title:        "문가영 feed",
			OriginalLink: "https://news.google.com/articles/x",
			SourceURL:    "https://www.hani.co.kr",
			PubDate:      pub.Add(time.Second),
		},
	}, domain.WatermarkState{SeenLinks: domain.SeenSet{}}, "문가영")

	if len(notify) != 2 {
		t.Fatalf("notify = %#v", notify)
	}
	got := notify[0]
	if got.Title != `문가영 "첫" 주연 '화제'` {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Description != "a &amp; b &lt;c&gt;" {
		t.Errorf("Description = %q", got.Description)
	}
	if got.Source != "매경 스타투데이" {
		t.Errorf("Source = %q", got.Source)
	}
	if got.PubDateText != "2024-10-14 12:04:05" {
		t.Errorf("PubDateText = %q", got.PubDateText)
	}
	if got.Link != "https://n.news.naver.com/123" || got.OriginalLink != "https://www.mk.co.kr/star/123" {
		t.Errorf("links = %q, %q", got.Link, got.OriginalLink)
	}
	if notify[1].Source != "한겨레" {
		t.Errorf("SourceURL attribution = %q, want 한겨레", notify[1].Source)
	}
}

func TestBleach(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: "<b>bold</b> text", want: "bold text"},
		{in: "&QUOT;q&quot;", want: `"q"`},
		{in: "it&#039;s &apos;x&APOS;", want: "it's 'x'"},
		{in: "`tick`", want: "'tick'"},
		{in: "&lt;kept&gt; &amp;", want: "&lt;kept&gt; &amp;"},
		{in: "a < b", want: "a < b"},
	}

	for _, tt := range tests {
		if got := Bleach(tt.in); got != tt.want {
			t.Errorf("Bleach(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
