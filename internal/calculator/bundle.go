package calculator

import (
	"fmt"

	"CoinSentinel/internal/model"
)

// Params holds the lookback parameters of every indicator.
type Params struct {
	RSIPeriod  int     `yaml:"rsi_period" default:"14" validate:"min=1"`
	MACDFast   int     `yaml:"macd_fast" default:"12" validate:"min=1"`
	MACDSlow   int     `yaml:"macd_slow" default:"26" validate:"min=1"`
	MACDSignal int     `yaml:"macd_signal" default:"9" validate:"min=1"`
	MA20       int     `yaml:"ma20" default:"20" validate:"min=1"`
	MA50       int     `yaml:"ma50" default:"50" validate:"min=1"`
	MA200      int     `yaml:"ma200" default:"200" validate:"min=1"`
	BBPeriod   int     `yaml:"bb_period" default:"20" validate:"min=2"`
	BBK        float64 `yaml:"bb_k" default:"2" validate:"gt=0"`
	StochK     int     `yaml:"stoch_k" default:"14" validate:"min=1"`
	StochD     int     `yaml:"stoch_d" default:"3" validate:"min=1"`
	VolPeriod  int     `yaml:"volatility_period" default:"20" validate:"min=2"`
}

// DefaultParams returns the conventional parameter set.
func DefaultParams() Params {
	return Params{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		MA20:       20,
		MA50:       50,
		MA200:      200,
		BBPeriod:   20,
		BBK:        2,
		StochK:     14,
		StochD:     3,
		VolPeriod:  20,
	}
}

// family is a group of indicator kinds produced by one computation, with the
// number of points required before its first defined output.
type family struct {
	kinds   []model.IndicatorKind
	window  func(p Params) int
	compute func(prices []float64, p Params) [][]model.Value
}

var families = []family{
	{
		kinds:  []model.IndicatorKind{model.KindRSI},
		window: func(p Params) int { return p.RSIPeriod + 1 },
		compute: func(prices []float64, p Params) [][]model.Value {
			return [][]model.Value{RSI(prices, p.RSIPeriod)}
		},
	},
	{
		kinds:  []model.IndicatorKind{model.KindMACD, model.KindMACDSignal, model.KindMACDHistogram},
		window: func(Params) int { return 1 },
		compute: func(prices []float64, p Params) [][]model.Value {
			m := MACD(prices, p.MACDFast, p.MACDSlow, p.MACDSignal)
			return [][]model.Value{m.MACD, m.Signal, m.Histogram}
		},
	},
	{
		kinds:  []model.IndicatorKind{model.KindMA20},
		window: func(p Params) int { return p.MA20 },
		compute: func(prices []float64, p Params) [][]model.Value {
			return [][]model.Value{SMA(prices, p.MA20)}
		},
	},
	{
		kinds:  []model.IndicatorKind{model.KindMA50},
		window: func(p Params) int { return p.MA50 },
		compute: func(prices []float64, p Params) [][]model.Value {
			return [][]model.Value{SMA(prices, p.MA50)}
		},
	},
	{
		kinds:  []model.IndicatorKind{model.KindMA200},
		window: func(p Params) int { return p.MA200 },
		compute: func(prices []float64, p Params) [][]model.Value {
			return [][]model.Value{SMA(prices, p.MA200)}
		},
	},
	{
		kinds:  []model.IndicatorKind{model.KindBBUpper, model.KindBBMiddle, model.KindBBLower},
		window: func(p Params) int { return p.BBPeriod },
		compute: func(prices []float64, p Params) [][]model.Value {
			b := Bollinger(prices, p.BBPeriod, p.BBK)
			return [][]model.Value{b.Upper, b.Middle, b.Lower}
		},
	},
	{
		kinds:  []model.IndicatorKind{model.KindStochK, model.KindStochD},
		window: func(p Params) int { return p.StochK },
		compute: func(prices []float64, p Params) [][]model.Value {
			s := Stochastic(prices, p.StochK, p.StochD)
			return [][]model.Value{s.K, s.D}
		},
	},
	{
		kinds:  []model.IndicatorKind{model.KindVolatility},
		window: func(p Params) int { return p.VolPeriod + 1 },
		compute: func(prices []float64, p Params) [][]model.Value {
			return [][]model.Value{Volatility(prices, p.VolPeriod)}
		},
	},
}

var familyOf = func() map[model.IndicatorKind]*family {
	m := make(map[model.IndicatorKind]*family)
	for i := range families {
		for _, k := range families[i].kinds {
			m[k] = &families[i]
		}
	}
	return m
}()

// Lookback returns the number of points needed before kind produces its
// first defined value (ignoring flat-window singularities). %D needs
// dPeriod-1 further points on top of its %K window.
func Lookback(kind model.IndicatorKind, p Params) (int, error) {
	f, ok := familyOf[kind]
	if !ok {
		return 0, fmt.Errorf("unknown indicator kind %q", kind)
	}
	n := f.window(p)
	if kind == model.KindStochD {
		n += p.StochD - 1
	}
	return n, nil
}

// Compute evaluates every indicator kind over the series. All series of the
// returned bundle have the same length as the input.
func Compute(series model.PriceSeries, p Params) model.IndicatorBundle {
	prices := series.Prices()
	bundle := make(model.IndicatorBundle, len(familyOf))
	for _, f := range families {
		out := f.compute(prices, p)
		for i, k := range f.kinds {
			bundle[k] = model.IndicatorSeries{Kind: k, Values: out[i]}
		}
	}
	return bundle
}

// ComputeKind evaluates a single indicator kind.
func ComputeKind(kind model.IndicatorKind, series model.PriceSeries, p Params) (model.IndicatorSeries, error) {
	f, ok := familyOf[kind]
	if !ok {
		return model.IndicatorSeries{}, fmt.Errorf("unknown indicator kind %q", kind)
	}
	out := f.compute(series.Prices(), p)
	for i, k := range f.kinds {
		if k == kind {
			return model.IndicatorSeries{Kind: k, Values: out[i]}, nil
		}
	}
	return model.IndicatorSeries{}, fmt.Errorf("unknown indicator kind %q", kind)
}
