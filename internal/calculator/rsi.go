package calculator

import "CoinSentinel/internal/model"

// RSI computes the relative strength index over trailing windows of period
// price changes. Index i uses the changes p[i-period+1]-p[i-period] ...
// p[i]-p[i-1], so the first period positions are undefined.
//
// gain and loss are the arithmetic means of the positive parts and of the
// negative-part magnitudes. A zero loss average with a positive gain average
// yields 100; a window without any movement yields the neutral 50.
func RSI(prices []float64, period int) []model.Value {
	return rolling(deltas(prices), period, rsiWindow)
}

func rsiWindow(changes []float64) (float64, bool) {
	var gain, loss float64
	for _, c := range changes {
		if c > 0 {
			gain += c
		} else {
			loss -= c // make positive
		}
	}
	n := float64(len(changes))
	gain /= n
	loss /= n

	if loss == 0 {
		if gain == 0 {
			return 50.0, true
		}
		return 100.0, true
	}
	rs := gain / loss
	return 100.0 - 100.0/(1.0+rs), true
}

// deltas returns the first differences aligned with prices; index 0 is undefined.
func deltas(prices []float64) []model.Value {
	out := make([]model.Value, len(prices))
	for i := 1; i < len(prices); i++ {
		out[i] = model.DefinedValue(prices[i] - prices[i-1])
	}
	return out
}
