package model

import (
	"encoding/json"
	"strconv"
)

// Value is one position of a derived series. Positions where a lookback
// window has not accumulated enough history are undefined.
type Value struct {
	V       float64
	Defined bool
}

// Undefined is the explicit "not enough history" value.
var Undefined = Value{}

// DefinedValue wraps v as a defined value.
func DefinedValue(v float64) Value { return Value{V: v, Defined: true} }

// MarshalJSON encodes an undefined value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'g', -1, 64), nil
}

// UnmarshalJSON decodes null as undefined.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = DefinedValue(f)
	return nil
}

// IndicatorKind is the closed set of indicators produced per evaluation.
type IndicatorKind string

const (
	KindRSI           IndicatorKind = "rsi"
	KindMACD          IndicatorKind = "macd"
	KindMACDSignal    IndicatorKind = "macd_signal"
	KindMACDHistogram IndicatorKind = "macd_histogram"
	KindMA20          IndicatorKind = "ma20"
	KindMA50          IndicatorKind = "ma50"
	KindMA200         IndicatorKind = "ma200"
	KindBBUpper       IndicatorKind = "bb_upper"
	KindBBMiddle      IndicatorKind = "bb_middle"
	KindBBLower       IndicatorKind = "bb_lower"
	KindStochK        IndicatorKind = "stoch_k"
	KindStochD        IndicatorKind = "stoch_d"
	KindVolatility    IndicatorKind = "volatility"
)

// AllKinds lists every indicator kind in presentation order.
var AllKinds = []IndicatorKind{
	KindRSI,
	KindMACD, KindMACDSignal, KindMACDHistogram,
	KindMA20, KindMA50, KindMA200,
	KindBBUpper, KindBBMiddle, KindBBLower,
	KindStochK, KindStochD,
	KindVolatility,
}

// IndicatorSeries is a derived series aligned index-for-index with its source.
type IndicatorSeries struct {
	Kind   IndicatorKind `json:"kind"`
	Values []Value       `json:"values"`
}

// Last returns the value at offset back from the end (0 = latest).
// Out-of-range offsets are undefined.
func (s IndicatorSeries) Last(back int) Value {
	i := len(s.Values) - 1 - back
	if i < 0 || i >= len(s.Values) {
		return Undefined
	}
	return s.Values[i]
}

// IndicatorBundle maps each kind to its series, all of equal length.
type IndicatorBundle map[IndicatorKind]IndicatorSeries

// Series returns the series of kind k; missing kinds yield an empty series,
// whose values are all undefined.
func (b IndicatorBundle) Series(k IndicatorKind) IndicatorSeries {
	if s, ok := b[k]; ok {
		return s
	}
	return IndicatorSeries{Kind: k}
}

// Tail restricts every series to its last n values. n <= 0 returns b.
func (b IndicatorBundle) Tail(n int) IndicatorBundle {
	if n <= 0 {
		return b
	}
	out := make(IndicatorBundle, len(b))
	for k, s := range b {
		if n < len(s.Values) {
			s = IndicatorSeries{Kind: k, Values: s.Values[len(s.Values)-n:]}
		}
		out[k] = s
	}
	return out
}
