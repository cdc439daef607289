package collector

import (
	"context"
	"errors"

	"CoinSentinel/internal/model"
)

// ErrFetch marks every failure to obtain data from the provider.
var ErrFetch = errors.New("fetch failed")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchHistory returns the raw (timestamp, price) samples of the last
	// days days. Entries the provider delivers without a usable price are
	// kept with a zero price so that ingestion can count them as rejected.
	FetchHistory(ctx context.Context, asset string, days int) ([]model.Sample, error)
	// FetchQuotes returns the current quote of every requested asset the
	// provider knows about.
	FetchQuotes(ctx context.Context, assets []string) (map[string]model.Quote, error)
	Name() string
}
