package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CoinSentinel/internal/model"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoFetcher implements Fetcher using the CoinGecko public API.
type CoinGeckoFetcher struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	Client     *http.Client
}

// NewCoinGeckoFetcher creates a fetcher with optional proxy support.
func NewCoinGeckoFetcher(baseURL, apiKey, vsCurrency, proxyURL string, timeout time.Duration) *CoinGeckoFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CoinGeckoFetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		VsCurrency: vsCurrency,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *CoinGeckoFetcher) Name() string { return "coingecko" }

// marketChart is the response of /coins/{id}/market_chart. Each entry is a
// [ms, price] pair; a null price decodes to nil.
type marketChart struct {
	Prices [][2]*float64 `json:"prices"`
}

func (f *CoinGeckoFetcher) get(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: coingecko: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: coingecko read body: %w", ErrFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: coingecko status %d, body: %s", ErrFetch, resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: coingecko decode: %w", ErrFetch, err)
	}
	return nil
}

func (f *CoinGeckoFetcher) FetchHistory(ctx context.Context, asset string, days int) ([]model.Sample, error) {
	q := url.Values{}
	q.Set("vs_currency", f.VsCurrency)
	q.Set("days", fmt.Sprint(days))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", f.BaseURL, url.PathEscape(asset), q.Encode())

	var chart marketChart
	if err := f.get(ctx, endpoint, &chart); err != nil {
		return nil, err
	}

	samples := make([]model.Sample, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		if pair[0] == nil {
			continue // no timestamp, nothing to key the entry on
		}
		s := model.Sample{Timestamp: time.UnixMilli(int64(*pair[0])).UTC()}
		if pair[1] != nil {
			s.Price = *pair[1]
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (f *CoinGeckoFetcher) FetchQuotes(ctx context.Context, assets []string) (map[string]model.Quote, error) {
	if len(assets) == 0 {
		return map[string]model.Quote{}, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(assets, ","))
	q.Set("vs_currencies", f.VsCurrency)
	q.Set("include_24hr_change", "true")
	endpoint := fmt.Sprintf("%s/simple/price?%s", f.BaseURL, q.Encode())

	// {"bitcoin": {"usd": 67000.1, "usd_24h_change": -1.2}}
	var raw map[string]map[string]*float64
	if err := f.get(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	quotes := make(map[string]model.Quote, len(raw))
	for id, fields := range raw {
		price := fields[f.VsCurrency]
		if price == nil {
			continue
		}
		quote := model.Quote{Asset: id, Price: *price, FetchedAt: now}
		if ch := fields[f.VsCurrency+"_24h_change"]; ch != nil {
			quote.Change24h = *ch
		}
		quotes[id] = quote
	}
	return quotes, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
