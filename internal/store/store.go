// Package store persists price observations. A store is append-only and
// deduplicated on (asset, timestamp); reads return a consistent snapshot
// ordered by timestamp.
package store

import (
	"context"
	"sort"

	"CoinSentinel/internal/model"
)

// Store is the series store contract.
type Store interface {
	// Append inserts the samples whose (asset, timestamp) is not yet stored
	// and returns how many were inserted. Duplicates and malformed samples
	// are skipped without failing the batch.
	Append(ctx context.Context, asset string, samples []model.Sample) (int, error)
	// Read returns every stored point of asset in ascending timestamp order.
	// An asset without data yields an empty series.
	Read(ctx context.Context, asset string) (model.PriceSeries, error)
	// Assets lists the assets having at least one stored point.
	Assets(ctx context.Context) ([]string, error)
	// Count returns the number of stored points of asset.
	Count(ctx context.Context, asset string) (int, error)
	Close() error
}

// prepare drops malformed samples, normalizes timestamps and removes
// duplicates inside the batch, keeping the first occurrence.
func prepare(samples []model.Sample) []model.Sample {
	seen := make(map[int64]struct{}, len(samples))
	out := make([]model.Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Valid() {
			continue
		}
		s.Timestamp = model.NormalizeTime(s.Timestamp)
		key := s.Timestamp.UnixMilli()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
