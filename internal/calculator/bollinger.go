package calculator

import "CoinSentinel/internal/model"

// BandsResult holds the Bollinger envelope.
type BandsResult struct {
	Upper  []model.Value
	Middle []model.Value
	Lower  []model.Value
}

// Bollinger computes middle = SMA(period) and upper/lower = middle ± k·σ,
// where σ is the sample standard deviation (ddof=1) of the same window.
func Bollinger(prices []float64, period int, k float64) BandsResult {
	middle := SMA(prices, period)
	std := rolling(values(prices), period, sampleStdDev)

	res := BandsResult{
		Upper:  make([]model.Value, len(prices)),
		Middle: middle,
		Lower:  make([]model.Value, len(prices)),
	}
	for i := range prices {
		if !middle[i].Defined || !std[i].Defined {
			res.Middle[i] = model.Undefined
			continue
		}
		res.Upper[i] = model.DefinedValue(middle[i].V + k*std[i].V)
		res.Lower[i] = model.DefinedValue(middle[i].V - k*std[i].V)
	}
	return res
}
