package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"CoinSentinel/internal/cache"

	"github.com/rs/zerolog"
)

func newCoinGeckoServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/bitcoin/market_chart", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if got := r.URL.Query().Get("vs_currency"); got != "usd" {
			t.Errorf("vs_currency = %q", got)
		}
		if got := r.URL.Query().Get("days"); got != "30" {
			t.Errorf("days = %q", got)
		}
		if got := r.Header.Get("x-cg-demo-api-key"); got != "demo-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Write([]byte(`{"prices":[[1717200000000,67000.5],[1717203600000,null],[1717207200000,67100.25]],"market_caps":[],"total_volumes":[]}`))
	})
	mux.HandleFunc("/coins/unknown/market_chart", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"coin not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/simple/price", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if got := r.URL.Query().Get("include_24hr_change"); got != "true" {
			t.Errorf("include_24hr_change = %q", got)
		}
		w.Write([]byte(`{"bitcoin":{"usd":67000.5,"usd_24h_change":-1.25},"ethereum":{"usd":3500,"usd_24h_change":2.5}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCoinGecko_FetchHistory(t *testing.T) {
	var hits int32
	srv := newCoinGeckoServer(t, &hits)
	f := NewCoinGeckoFetcher(srv.URL, "demo-key", "usd", "", 5*time.Second)

	samples, err := f.FetchHistory(context.Background(), "bitcoin", 30)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if !samples[0].Timestamp.Equal(time.UnixMilli(1717200000000)) || samples[0].Price != 67000.5 {
		t.Errorf("unexpected first sample %+v", samples[0])
	}
	if samples[1].Valid() {
		t.Errorf("null price must yield an invalid sample, got %+v", samples[1])
	}
	if samples[2].Price != 67100.25 {
		t.Errorf("unexpected last sample %+v", samples[2])
	}
}

func TestCoinGecko_FetchHistoryError(t *testing.T) {
	var hits int32
	srv := newCoinGeckoServer(t, &hits)
	f := NewCoinGeckoFetcher(srv.URL, "demo-key", "usd", "", 5*time.Second)

	_, err := f.FetchHistory(context.Background(), "unknown", 30)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}
}

func TestCoinGecko_FetchQuotes(t *testing.T) {
	var hits int32
	srv := newCoinGeckoServer(t, &hits)
	f := NewCoinGeckoFetcher(srv.URL, "demo-key", "usd", "", 5*time.Second)

	quotes, err := f.FetchQuotes(context.Background(), []string{"bitcoin", "ethereum"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	btc := quotes["bitcoin"]
	if btc.Price != 67000.5 || btc.Change24h != -1.25 {
		t.Errorf("unexpected bitcoin quote %+v", btc)
	}
	if quotes["ethereum"].Price != 3500 {
		t.Errorf("unexpected ethereum quote %+v", quotes["ethereum"])
	}
}

func TestCoinGecko_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewCoinGeckoFetcher(url, "", "usd", "", time.Second)
	if _, err := f.FetchQuotes(context.Background(), []string{"bitcoin"}); !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}
}

func TestCollector_HistoryIsCached(t *testing.T) {
	var hits int32
	srv := newCoinGeckoServer(t, &hits)
	f := NewCoinGeckoFetcher(srv.URL, "demo-key", "usd", "", 5*time.Second)
	c := NewCollector(f, cache.NewMemory(), Options{HistoryDays: 30, HistoryMaxAge: 5 * time.Minute}, zerolog.Nop())

	ctx := context.Background()
	first, err := c.History(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	second, err := c.History(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("cached history: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected one provider request, got %d", hits)
	}
	if len(second) != len(first) {
		t.Fatalf("cached history has %d samples, want %d", len(second), len(first))
	}
	for i := range first {
		if !first[i].Timestamp.Equal(second[i].Timestamp) || first[i].Price != second[i].Price {
			t.Errorf("sample %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestCollector_StaleEntryRefetched(t *testing.T) {
	mock := &MockFetcher{Price: 100}
	c := NewCollector(mock, cache.NewMemory(), Options{HistoryDays: 1, HistoryMaxAge: time.Minute}, zerolog.Nop())

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	c.History(ctx, "bitcoin")
	now = now.Add(30 * time.Second)
	c.History(ctx, "bitcoin")
	if h, _ := mock.Calls(); h != 1 {
		t.Errorf("expected fresh entry reuse, got %d fetches", h)
	}

	now = now.Add(time.Minute)
	c.History(ctx, "bitcoin")
	if h, _ := mock.Calls(); h != 2 {
		t.Errorf("expected refetch of a stale entry, got %d fetches", h)
	}

	c.Invalidate(ctx, "bitcoin")
	c.History(ctx, "bitcoin")
	if h, _ := mock.Calls(); h != 3 {
		t.Errorf("expected refetch after invalidate, got %d fetches", h)
	}
}

func TestCollector_QuotesFetchOnlyMissing(t *testing.T) {
	mock := &MockFetcher{Price: 42}
	c := NewCollector(mock, cache.NewMemory(), Options{QuoteMaxAge: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	quotes, err := c.Quotes(ctx, []string{"bitcoin", "ethereum"})
	if err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if len(quotes) != 2 || quotes[0].Asset != "bitcoin" || quotes[1].Asset != "ethereum" {
		t.Fatalf("unexpected quotes %+v", quotes)
	}

	if _, err := c.Quotes(ctx, []string{"bitcoin", "ethereum"}); err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if _, q := mock.Calls(); q != 1 {
		t.Errorf("expected cached quotes to be reused, got %d fetches", q)
	}

	c.Quotes(ctx, []string{"bitcoin", "solana"})
	if _, q := mock.Calls(); q != 2 {
		t.Errorf("expected a fetch for the uncached asset, got %d fetches", q)
	}
}

func TestCollector_FailurePropagates(t *testing.T) {
	mock := &MockFetcher{Price: 1, Fail: map[string]bool{"bitcoin": true}}
	c := NewCollector(mock, nil, Options{}, zerolog.Nop())

	if _, err := c.History(context.Background(), "bitcoin"); !errors.Is(err, ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}
	samples, err := c.History(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(samples) != 30*24 {
		t.Errorf("expected 720 mock samples, got %d", len(samples))
	}
	for _, s := range samples {
		if !s.Valid() {
			t.Fatalf("mock produced an invalid sample %+v", s)
		}
	}
}

var _ Fetcher = (*CoinGeckoFetcher)(nil)
var _ Fetcher = (*MockFetcher)(nil)
