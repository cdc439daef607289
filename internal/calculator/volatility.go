package calculator

import "CoinSentinel/internal/model"

// Volatility is the sample standard deviation of the trailing period
// percentage changes, expressed as a percentage. It stands in for volume,
// which the provider does not supply, and measures dispersion only.
// The first period positions are undefined.
func Volatility(prices []float64, period int) []model.Value {
	return rolling(pctChanges(prices), period, func(w []float64) (float64, bool) {
		std, ok := sampleStdDev(w)
		return std * 100, ok
	})
}

// pctChanges returns p[i]/p[i-1]-1 aligned with prices. Index 0 and changes
// from a zero price are undefined.
func pctChanges(prices []float64) []model.Value {
	out := make([]model.Value, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out[i] = model.DefinedValue(prices[i]/prices[i-1] - 1)
	}
	return out
}
