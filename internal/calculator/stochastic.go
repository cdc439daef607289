package calculator

import "CoinSentinel/internal/model"

// StochasticResult holds %K and %D.
type StochasticResult struct {
	K []model.Value
	D []model.Value
}

// Stochastic computes %K = 100·(p - min)/(max - min) over the trailing
// kPeriod prices and %D = SMA(%K, dPeriod). %K is undefined for a flat
// window; %D is undefined whenever its window holds an undefined %K.
func Stochastic(prices []float64, kPeriod, dPeriod int) StochasticResult {
	k := rolling(values(prices), kPeriod, percentK)
	return StochasticResult{K: k, D: smaValues(k, dPeriod)}
}

func percentK(w []float64) (float64, bool) {
	lo, hi := w[0], w[0]
	for _, x := range w[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi == lo {
		return 0, false
	}
	// ratio first: p <= hi keeps it <= 1, so %K never rounds past 100
	r := (w[len(w)-1] - lo) / (hi - lo)
	return 100 * r, true
}
