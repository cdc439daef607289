package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Samples map[string][]model.Sample
	// Fail lists assets whose fetches return ErrFetch.
	Fail map[string]bool

	mu           sync.Mutex
	historyCalls int
	quoteCalls   int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(_ context.Context, asset string, days int) ([]model.Sample, error) {
	m.mu.Lock()
	m.historyCalls++
	m.mu.Unlock()

	if m.Fail[asset] {
		return nil, fmt.Errorf("%w: mock failure for %s", ErrFetch, asset)
	}
	if s, ok := m.Samples[asset]; ok {
		return s, nil
	}
	return generateMockSamples(m.Price, days*24), nil
}

func (m *MockFetcher) FetchQuotes(_ context.Context, assets []string) (map[string]model.Quote, error) {
	m.mu.Lock()
	m.quoteCalls++
	m.mu.Unlock()

	quotes := make(map[string]model.Quote, len(assets))
	for _, a := range assets {
		if m.Fail[a] {
			continue
		}
		price := m.Price
		if s := m.Samples[a]; len(s) > 0 {
			price = s[len(s)-1].Price
		}
		quotes[a] = model.Quote{Asset: a, Price: price, FetchedAt: time.Now().UTC()}
	}
	return quotes, nil
}

// Calls returns how many history and quote requests reached the mock.
func (m *MockFetcher) Calls() (history, quotes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls, m.quoteCalls
}

// generateMockSamples produces count hourly samples ending now, drifting
// slowly around basePrice.
func generateMockSamples(basePrice float64, count int) []model.Sample {
	end := time.Now().UTC().Truncate(time.Hour)
	samples := make([]model.Sample, count)
	for i := 0; i < count; i++ {
		samples[i] = model.Sample{
			Timestamp: end.Add(-time.Duration(count-1-i) * time.Hour),
			Price:     basePrice * (1 + float64(i-count/2)*0.001),
		}
	}
	return samples
}
