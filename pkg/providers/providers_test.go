package providers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/Adda-Baaj/khobor-alert/pkg/httpclient"
)

type fakeResponse struct {
	status int
	body   []byte
	header http.Header
}

func (r fakeResponse) StatusCode() int     { return r.status }
func (r fakeResponse) Body() []byte        { return r.body }
func (r fakeResponse) Header() http.Header { return r.header }

type fakeClient struct {
	getFn func(ctx context.Context, url string, headers map[string]string) (httpclient.Response, error)
}

func (c *fakeClient) Get(ctx context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	return c.getFn(ctx, url, headers)
}

func (c *fakeClient) PostForm(context.Context, string, map[string]string, map[string]string) (httpclient.Response, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeClient) Do(context.Context, string, string, map[string]string, []byte) (httpclient.Response, error) {
	return nil, errors.New("not implemented")
}

const naverFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Naver Open API - news ::'문가영'</title>
<lastBuildDate>Mon, 14 Oct 2024 12:10:00 +0900</lastBuildDate>
<total>3204</total>
<start>1</start>
<display>3</display>
<item>
<title>&lt;b&gt;문가영&lt;/b&gt;, 새 드라마 &quot;확정&quot;</title>
<originallink>https://www.chosun.com/entertainments/2024/10/14/A</originallink>
<link>https://n.news.naver.com/mnews/article/023/0003860001</link>
<description>배우 &lt;b&gt;문가영&lt;/b&gt;이...</description>
<pubDate>Mon, 14 Oct 2024 12:04:05 +0900</pubDate>
</item>
<item>
<title>no original link</title>
<originallink></originallink>
<link>https://n.news.naver.com/mnews/article/001/1</link>
<description></description>
<pubDate>Mon, 14 Oct 2024 12:00:00 +0900</pubDate>
</item>
<item>
<title>bad date</title>
<originallink>https://example.com/x</originallink>
<link>https://n.news.naver.com/x</link>
<pubDate>yesterday</pubDate>
</item>
</channel>
</rss>`

func TestNaverFetcher_Fetch(t *testing.T) {
	var gotURL string
	var gotHeaders map[string]string
	client := &fakeClient{getFn: func(_ context.Context, u string, h map[string]string) (httpclient.Response, error) {
		gotURL, gotHeaders = u, h
		return fakeResponse{status: http.StatusOK, body: []byte(naverFixture)}, nil
	}}

	cfg := Provider{ID: "naver", Type: ProviderTypeNaver, ClientID: "id", ClientSecret: "secret"}
	page, err := NewNaverFetcher(client).Fetch(context.Background(), cfg, Request{Keyword: "문가영", Display: 50})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	u, err := url.Parse(gotURL)
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "openapi.naver.com" || u.Path != "/v1/search/news.xml" {
		t.Errorf("endpoint = %s", gotURL)
	}
	q := u.Query()
	if q.Get("query") != "문가영" || q.Get("display") != "50" || q.Get("start") != "1" || q.Get("sort") != "date" {
		t.Errorf("query = %v", q)
	}
	if gotHeaders[naverHeaderClientID] != "id" || gotHeaders[naverHeaderClientSecret] != "secret" {
		t.Errorf("headers = %v", gotHeaders)
	}

	if page.Total != 3204 || page.Start != 1 || page.Display != 3 {
		t.Errorf("page meta = %d/%d/%d", page.Total, page.Start, page.Display)
	}
	if page.Skipped != 1 || len(page.Items) != 2 {
		t.Fatalf("items = %d skipped = %d", len(page.Items), page.Skipped)
	}

	first := page.Items[0]
	if first.Title != `<b>문가영</b>, 새 드라마 "확정"` {
		t.Errorf("Title = %q", first.Title)
	}
	want := time.Date(2024, 10, 14, 3, 4, 5, 0, time.UTC)
	if !first.PubDate.Equal(want) {
		t.Errorf("PubDate = %v, want %v", first.PubDate, want)
	}
	if page.Items[1].OriginalLink != "https://n.news.naver.com/mnews/article/001/1" {
		t.Errorf("fallback OriginalLink = %q", page.Items[1].OriginalLink)
	}
	if page.LastBuildDate.IsZero() {
		t.Error("LastBuildDate not parsed")
	}
}

func TestNaverFetcher_Errors(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Provider
		req       Request
		resp      fakeResponse
		clientErr error
		wantFetch bool
	}{
		{
			name: "missing credentials",
			cfg:  Provider{ClientID: "id"},
			req:  Request{Keyword: "k"},
		},
		{
			name: "missing keyword",
			cfg:  Provider{ClientID: "id", ClientSecret: "s"},
		},
		{
			name:      "non success status",
			cfg:       Provider{ID: "naver", ClientID: "id", ClientSecret: "s"},
			req:       Request{Keyword: "k"},
			resp:      fakeResponse{status: 401, body: []byte(`<result><errorCode>024</errorCode></result>`), header: http.Header{"X-Trace": {"t1"}}},
			wantFetch: true,
		},
		{
			name:      "transport failure",
			cfg:       Provider{ClientID: "id", ClientSecret: "s"},
			req:       Request{Keyword: "k"},
			clientErr: errors.New("dial tcp: refused"),
		},
		{
			name: "malformed xml",
			cfg:  Provider{ClientID: "id", ClientSecret: "s"},
			req:  Request{Keyword: "k"},
			resp: fakeResponse{status: 200, body: []byte("<rss><channel>")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{getFn: func(context.Context, string, map[string]string) (httpclient.Response, error) {
				if tt.clientErr != nil {
					return nil, tt.clientErr
				}
				return tt.resp, nil
			}}

			_, err := NewNaverFetcher(client).Fetch(context.Background(), tt.cfg, tt.req)
			if err == nil {
				t.Fatal("Fetch() error = nil")
			}
			var fe *FetchError
			if errors.As(err, &fe) != tt.wantFetch {
				t.Fatalf("FetchError = %v, want %v (%v)", fe != nil, tt.wantFetch, err)
			}
			if tt.wantFetch {
				if fe.StatusCode != 401 || fe.Header.Get("X-Trace") != "t1" || fe.Provider != "naver" {
					t.Errorf("FetchError = %+v", fe)
				}
			}
		})
	}
}

func TestNaverSearchURL(t *testing.T) {
	tests := []struct {
		req         Request
		wantDisplay string
		wantStart   string
		wantSort    string
	}{
		{req: Request{Keyword: "k"}, wantDisplay: "50", wantStart: "1", wantSort: "date"},
		{req: Request{Keyword: "k", Display: 1, Start: 3, Sort: "sim"}, wantDisplay: "1", wantStart: "3", wantSort: "sim"},
		{req: Request{Keyword: "k", Display: 500, Start: 5000, Sort: "bogus"}, wantDisplay: "100", wantStart: "1000", wantSort: "date"},
	}

	for _, tt := range tests {
		raw, err := naverSearchURL("", tt.req)
		if err != nil {
			t.Fatal(err)
		}
		u, _ := url.Parse(raw)
		q := u.Query()
		if q.Get("display") != tt.wantDisplay || q.Get("start") != tt.wantStart || q.Get("sort") != tt.wantSort {
			t.Errorf("naverSearchURL(%+v) = %s", tt.req, raw)
		}
	}
}

const googleFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>"문가영" - Google News</title>
<lastBuildDate>Mon, 14 Oct 2024 03:10:00 GMT</lastBuildDate>
<item>
<title>older story - 한겨레</title>
<link>https://news.google.com/rss/articles/older</link>
<pubDate>Mon, 14 Oct 2024 01:00:00 GMT</pubDate>
<description>older</description>
<source url="https://www.hani.co.kr">한겨레</source>
</item>
<item>
<title>newer story - 조선일보</title>
<link>https://news.google.com/rss/articles/newer</link>
<pubDate>Mon, 14 Oct 2024 03:00:00 GMT</pubDate>
<description>newer</description>
<source url="https://www.chosun.com">조선일보</source>
</item>
<item>
<title>undated</title>
<link>https://news.google.com/rss/articles/undated</link>
</item>
</channel>
</rss>`

func TestGoogleNewsFetcher_Fetch(t *testing.T) {
	var gotURL string
	client := &fakeClient{getFn: func(_ context.Context, u string, _ map[string]string) (httpclient.Response, error) {
		gotURL = u
		return fakeResponse{status: http.StatusOK, body: []byte(googleFixture)}, nil
	}}

	page, err := NewGoogleNewsFetcher(client).Fetch(context.Background(), Provider{Type: ProviderTypeGoogleNews}, Request{Keyword: "문가영", Display: 10})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	u, _ := url.Parse(gotURL)
	if q := u.Query(); q.Get("q") != "문가영" || q.Get("hl") != "ko" || q.Get("gl") != "KR" || q.Get("ceid") != "KR:ko" {
		t.Errorf("query = %v", q)
	}

	if len(page.Items) != 2 || page.Skipped != 1 {
		t.Fatalf("items = %d skipped = %d", len(page.Items), page.Skipped)
	}
	if page.Items[0].Title != "newer story" || page.Items[1].Title != "older story" {
		t.Errorf("order/titles = %q, %q", page.Items[0].Title, page.Items[1].Title)
	}
	if page.Items[0].SourceURL != "https://www.chosun.com" {
		t.Errorf("SourceURL = %q", page.Items[0].SourceURL)
	}
}

func TestGoogleNewsFetcher_DisplayTruncates(t *testing.T) {
	client := &fakeClient{getFn: func(context.Context, string, map[string]string) (httpclient.Response, error) {
		return fakeResponse{status: http.StatusOK, body: []byte(googleFixture)}, nil
	}}

	page, err := NewGoogleNewsFetcher(client).Fetch(context.Background(), Provider{}, Request{Keyword: "k", Display: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].OriginalLink != "https://news.google.com/rss/articles/newer" {
		t.Errorf("items = %+v", page.Items)
	}
}

func TestFetcherRegistry(t *testing.T) {
	reg := DefaultFetcherRegistry(&fakeClient{})

	tests := []struct {
		cfg     Provider
		wantID  string
		wantErr bool
	}{
		{cfg: Provider{Type: "NAVER"}, wantID: ProviderTypeNaver},
		{cfg: Provider{ID: "google_news"}, wantID: ProviderTypeGoogleNews},
		{cfg: Provider{ID: "custom", Type: "google_news"}, wantID: ProviderTypeGoogleNews},
		{cfg: Provider{}, wantErr: true},
		{cfg: Provider{Type: "bing"}, wantErr: true},
	}

	for _, tt := range tests {
		f, err := reg.FetcherFor(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Fatalf("FetcherFor(%+v) error = %v", tt.cfg, err)
		}
		if err == nil && f.ID() != tt.wantID {
			t.Errorf("FetcherFor(%+v) = %s, want %s", tt.cfg, f.ID(), tt.wantID)
		}
	}
}

func TestFeed_Search(t *testing.T) {
	client := &fakeClient{getFn: func(context.Context, string, map[string]string) (httpclient.Response, error) {
		return fakeResponse{status: http.StatusOK, body: []byte(naverFixture)}, nil
	}}
	feed, err := NewFeed(DefaultFetcherRegistry(client), Provider{ID: "naver-main", Type: ProviderTypeNaver, ClientID: "a", ClientSecret: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if feed.ID() != "naver-main" {
		t.Errorf("ID() = %q", feed.ID())
	}
	page, err := feed.Search(context.Background(), Request{Keyword: "k", Display: 1})
	if err != nil || len(page.Items) != 2 {
		t.Fatalf("Search() = %d items, %v", len(page.Items), err)
	}
}
