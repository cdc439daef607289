package calculator

import "CoinSentinel/internal/model"

// MACDResult holds the three index-aligned MACD series.
type MACDResult struct {
	MACD      []model.Value
	Signal    []model.Value
	Histogram []model.Value
}

// MACD computes macd = EMA(fast) - EMA(slow), signal = EMA(macd, signal) and
// histogram = macd - signal. With the cumulative EMA seeding every position
// of a non-empty series is defined.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	line := make([]model.Value, len(prices))
	for i := range prices {
		if fastEMA[i].Defined && slowEMA[i].Defined {
			line[i] = model.DefinedValue(fastEMA[i].V - slowEMA[i].V)
		}
	}

	sig := emaValues(line, signal)

	hist := make([]model.Value, len(prices))
	for i := range prices {
		if line[i].Defined && sig[i].Defined {
			hist[i] = model.DefinedValue(line[i].V - sig[i].V)
		}
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}
