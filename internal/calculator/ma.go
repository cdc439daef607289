package calculator

import (
	"math"

	"CoinSentinel/internal/model"
)

// SMA computes the simple moving average of the trailing period prices ending
// at each index. The first period-1 positions are undefined.
func SMA(prices []float64, period int) []model.Value {
	return rolling(values(prices), period, mean)
}

// smaValues is SMA over a derived series; a window containing an undefined
// value yields an undefined output.
func smaValues(vals []model.Value, period int) []model.Value {
	return rolling(vals, period, mean)
}

// EMA computes the exponential moving average with α = 2/(span+1).
//
// The series is seeded with adjusted cumulative smoothing from the first
// point: num_t = x_t + (1-α)·num_{t-1}, den_t = 1 + (1-α)·den_{t-1},
// ema_t = num_t/den_t. It is therefore defined from index 0.
func EMA(prices []float64, span int) []model.Value {
	return emaValues(values(prices), span)
}

// emaValues applies EMA to a derived series. Undefined inputs produce
// undefined outputs and do not advance the recursion.
func emaValues(vals []model.Value, span int) []model.Value {
	out := make([]model.Value, len(vals))
	if span <= 0 {
		return out
	}
	decay := 1 - 2/float64(span+1)
	var num, den float64
	started := false
	for i, v := range vals {
		if !v.Defined {
			continue
		}
		if !started {
			num, den = v.V, 1
			started = true
		} else {
			num = v.V + decay*num
			den = 1 + decay*den
		}
		out[i] = model.DefinedValue(num / den)
	}
	return out
}

// rolling applies fn to every full trailing window of period values. Windows
// that are not yet filled, or that contain an undefined value, produce an
// undefined output. fn reports false when its result is undefined.
// A non-positive period yields an all-undefined series.
func rolling(vals []model.Value, period int, fn func(window []float64) (float64, bool)) []model.Value {
	out := make([]model.Value, len(vals))
	if period <= 0 {
		return out
	}
	window := make([]float64, period)
	for i := period - 1; i < len(vals); i++ {
		ok := true
		for j := 0; j < period; j++ {
			v := vals[i-period+1+j]
			if !v.Defined {
				ok = false
				break
			}
			window[j] = v.V
		}
		if !ok {
			continue
		}
		if r, ok := fn(window); ok {
			out[i] = model.DefinedValue(r)
		}
	}
	return out
}

func values(prices []float64) []model.Value {
	out := make([]model.Value, len(prices))
	for i, p := range prices {
		out[i] = model.DefinedValue(p)
	}
	return out
}

// mean is computed relative to the first element so that a constant window
// returns that constant exactly.
func mean(w []float64) (float64, bool) {
	if len(w) == 0 {
		return 0, false
	}
	var sum float64
	for _, x := range w {
		sum += x - w[0]
	}
	return w[0] + sum/float64(len(w)), true
}

// sampleStdDev is the standard deviation with ddof=1.
func sampleStdDev(w []float64) (float64, bool) {
	if len(w) < 2 {
		return 0, false
	}
	m, _ := mean(w)
	var ss float64
	for _, x := range w {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(w)-1)), true
}
