package store

import (
	"context"
	"sort"
	"sync"

	"CoinSentinel/internal/model"
)

// MemoryStore keeps series in process memory. Writes are serialized and
// reads return copies, so a reader never observes a partial append.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string][]model.PricePoint
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string][]model.PricePoint)}
}

func (m *MemoryStore) Append(ctx context.Context, asset string, samples []model.Sample) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	batch := prepare(samples)

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.series[asset]
	present := make(map[int64]struct{}, len(existing))
	for _, p := range existing {
		present[p.Timestamp.UnixMilli()] = struct{}{}
	}

	merged := make([]model.PricePoint, len(existing), len(existing)+len(batch))
	copy(merged, existing)
	inserted := 0
	for _, s := range batch {
		if _, dup := present[s.Timestamp.UnixMilli()]; dup {
			continue
		}
		merged = append(merged, model.PricePoint{Asset: asset, Timestamp: s.Timestamp, Price: s.Price})
		inserted++
	}
	if inserted == 0 {
		return 0, nil
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
	m.series[asset] = merged
	return inserted, nil
}

func (m *MemoryStore) Read(ctx context.Context, asset string) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	points := make([]model.PricePoint, len(m.series[asset]))
	copy(points, m.series[asset])
	return model.PriceSeries{Asset: asset, Points: points}, nil
}

func (m *MemoryStore) Assets(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assets := make([]string, 0, len(m.series))
	for a, pts := range m.series {
		if len(pts) > 0 {
			assets = append(assets, a)
		}
	}
	sort.Strings(assets)
	return assets, nil
}

func (m *MemoryStore) Count(_ context.Context, asset string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.series[asset]), nil
}

func (m *MemoryStore) Close() error { return nil }
