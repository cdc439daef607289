// Package collector retrieves price history and quotes from the market-data
// provider, reusing recent responses held in the cache.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"CoinSentinel/internal/cache"
	"CoinSentinel/internal/model"

	"github.com/rs/zerolog"
)

// Options controls history depth and cache reuse.
type Options struct {
	HistoryDays   int
	HistoryMaxAge time.Duration
	QuoteMaxAge   time.Duration
}

// Collector fronts a Fetcher with the cache.
type Collector struct {
	fetcher Fetcher
	cache   cache.Cache
	opts    Options
	log     zerolog.Logger
	now     func() time.Time
}

// NewCollector creates a new Collector. A nil cache disables reuse.
func NewCollector(fetcher Fetcher, c cache.Cache, opts Options, log zerolog.Logger) *Collector {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 30
	}
	return &Collector{
		fetcher: fetcher,
		cache:   c,
		opts:    opts,
		log:     log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
		now:     time.Now,
	}
}

// cachedSample is the cache encoding of a history sample.
type cachedSample struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

// History returns the samples of the configured history window for asset.
func (c *Collector) History(ctx context.Context, asset string) ([]model.Sample, error) {
	key := cache.Key{Asset: asset, Kind: cache.KindHistory}
	if payload, ok := c.lookup(ctx, key, c.opts.HistoryMaxAge); ok {
		var cached []cachedSample
		if err := json.Unmarshal(payload, &cached); err == nil {
			samples := make([]model.Sample, len(cached))
			for i, s := range cached {
				samples[i] = model.Sample{Timestamp: time.UnixMilli(s.T).UTC(), Price: s.P}
			}
			c.log.Debug().Str("asset", asset).Int("samples", len(samples)).Msg("history served from cache")
			return samples, nil
		}
	}

	samples, err := c.fetcher.FetchHistory(ctx, asset, c.opts.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", asset, err)
	}

	cached := make([]cachedSample, len(samples))
	for i, s := range samples {
		cached[i] = cachedSample{T: s.Timestamp.UnixMilli(), P: s.Price}
	}
	c.store(ctx, key, cached)
	return samples, nil
}

// Quotes returns the current quote of each asset, fetching only those not
// fresh in the cache. Assets the provider does not return are omitted. The
// result follows the order of assets.
func (c *Collector) Quotes(ctx context.Context, assets []string) ([]model.Quote, error) {
	byAsset := make(map[string]model.Quote, len(assets))
	var missing []string
	for _, a := range assets {
		payload, ok := c.lookup(ctx, cache.Key{Asset: a, Kind: cache.KindQuote}, c.opts.QuoteMaxAge)
		if ok {
			var q model.Quote
			if err := json.Unmarshal(payload, &q); err == nil {
				byAsset[a] = q
				continue
			}
		}
		missing = append(missing, a)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		fetched, err := c.fetcher.FetchQuotes(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("quotes: %w", err)
		}
		for a, q := range fetched {
			byAsset[a] = q
			c.store(ctx, cache.Key{Asset: a, Kind: cache.KindQuote}, q)
		}
	}

	quotes := make([]model.Quote, 0, len(byAsset))
	for _, a := range assets {
		if q, ok := byAsset[a]; ok {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

// Invalidate drops the cached history and quote of every given asset, so the
// next call goes to the provider.
func (c *Collector) Invalidate(ctx context.Context, assets ...string) {
	if c.cache == nil {
		return
	}
	for _, a := range assets {
		for _, kind := range []cache.QueryKind{cache.KindHistory, cache.KindQuote} {
			if err := c.cache.Invalidate(ctx, cache.Key{Asset: a, Kind: kind}); err != nil {
				c.log.Warn().Err(err).Str("asset", a).Msg("cache invalidate failed")
			}
		}
	}
}

// lookup returns the cached payload when present and fresh. Cache failures
// are logged and treated as a miss.
func (c *Collector) lookup(ctx context.Context, key cache.Key, maxAge time.Duration) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	entry, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("cache read failed")
		return nil, false
	}
	if !ok || !entry.Fresh(c.now(), maxAge) {
		return nil, false
	}
	return entry.Payload, true
}

func (c *Collector) store(ctx context.Context, key cache.Key, v any) {
	if c.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("cache encode failed")
		return
	}
	if err := c.cache.Put(ctx, key, cache.Entry{Payload: payload, FetchedAt: c.now()}); err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("cache write failed")
	}
}
