package calculator

import (
	"errors"
	"math"
)

// Range scans the most recent window prices and returns the high and low.
// A window of 0 or larger than the series covers the whole series.
func Range(prices []float64, window int) (high, low float64, err error) {
	if len(prices) == 0 {
		return 0, 0, errors.New("no prices provided")
	}
	n := len(prices)
	start := 0
	if window > 0 && window < n {
		start = n - window
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if prices[i] > high {
			high = prices[i]
		}
		if prices[i] < low {
			low = prices[i]
		}
	}
	return high, low, nil
}

// PercentChange returns the change from first to last in percent.
func PercentChange(first, last float64) (float64, error) {
	if first == 0 {
		return 0, errors.New("first price must be non-zero")
	}
	return (last - first) / first * 100, nil
}
