package strategy

import (
	"fmt"

	"CoinSentinel/internal/model"
)

// Thresholds are the RSI levels of the overbought/oversold rules.
type Thresholds struct {
	Overbought float64 `yaml:"overbought" default:"70" validate:"gtfield=Oversold,lte=100"`
	Oversold   float64 `yaml:"oversold" default:"30" validate:"gte=0"`
}

// DefaultThresholds is the conventional 70/30 split.
var DefaultThresholds = Thresholds{Overbought: 70, Oversold: 30}

// Evaluate applies every rule with the default thresholds.
func Evaluate(series model.PriceSeries, bundle model.IndicatorBundle) []model.Signal {
	return EvaluateWith(DefaultThresholds, series, bundle)
}

// EvaluateWith runs all rules against the latest values of the bundle and
// the latest price. Rules are independent; a rule whose inputs are undefined
// does not fire.
func EvaluateWith(th Thresholds, series model.PriceSeries, bundle model.IndicatorBundle) []model.Signal {
	var signals []model.Signal

	if s, ok := rsiSignal(th, bundle.Series(model.KindRSI).Last(0)); ok {
		signals = append(signals, s)
	}
	if s, ok := macdSignal(bundle.Series(model.KindMACD), bundle.Series(model.KindMACDSignal)); ok {
		signals = append(signals, s)
	}
	if last, ok := series.Last(); ok {
		signals = append(signals, bandSignals(last.Price,
			bundle.Series(model.KindBBUpper).Last(0),
			bundle.Series(model.KindBBLower).Last(0))...)
	}
	return signals
}

func rsiSignal(th Thresholds, rsi model.Value) (model.Signal, bool) {
	if !rsi.Defined {
		return model.Signal{}, false
	}
	switch {
	case rsi.V > th.Overbought:
		return model.Signal{
			Severity:        model.SeverityCaution,
			Rule:            model.RuleOverbought,
			Title:           "Overbought",
			Message:         fmt.Sprintf("RSI at %.1f (>%.0f), a correction may follow", rsi.V, th.Overbought),
			TriggeringValue: rsi.V,
		}, true
	case rsi.V < th.Oversold:
		return model.Signal{
			Severity:        model.SeverityOpportunity,
			Rule:            model.RuleOversold,
			Title:           "Oversold",
			Message:         fmt.Sprintf("RSI at %.1f (<%.0f), potential buying opportunity", rsi.V, th.Oversold),
			TriggeringValue: rsi.V,
		}, true
	}
	return model.Signal{}, false
}

// macdSignal detects a crossover between the prior and the current index.
func macdSignal(macd, signal model.IndicatorSeries) (model.Signal, bool) {
	m0, m1 := macd.Last(1), macd.Last(0)
	s0, s1 := signal.Last(1), signal.Last(0)
	if !m0.Defined || !m1.Defined || !s0.Defined || !s1.Defined {
		return model.Signal{}, false
	}
	switch {
	case m0.V <= s0.V && m1.V > s1.V:
		return model.Signal{
			Severity:        model.SeverityOpportunity,
			Rule:            model.RuleBullishCross,
			Title:           "Bullish MACD crossover",
			Message:         "MACD crossed above its signal line",
			TriggeringValue: m1.V,
		}, true
	case m0.V >= s0.V && m1.V < s1.V:
		return model.Signal{
			Severity:        model.SeverityCaution,
			Rule:            model.RuleBearishCross,
			Title:           "Bearish MACD crossover",
			Message:         "MACD crossed below its signal line",
			TriggeringValue: m1.V,
		}, true
	}
	return model.Signal{}, false
}

func bandSignals(price float64, upper, lower model.Value) []model.Signal {
	var out []model.Signal
	if upper.Defined && price >= upper.V {
		out = append(out, model.Signal{
			Severity:        model.SeverityCaution,
			Rule:            model.RuleUpperBand,
			Title:           "Near upper band",
			Message:         fmt.Sprintf("Price %.2f is at or above the upper Bollinger band (%.2f)", price, upper.V),
			TriggeringValue: price,
		})
	}
	if lower.Defined && price <= lower.V {
		out = append(out, model.Signal{
			Severity:        model.SeverityOpportunity,
			Rule:            model.RuleLowerBand,
			Title:           "Near lower band",
			Message:         fmt.Sprintf("Price %.2f is at or below the lower Bollinger band (%.2f)", price, lower.V),
			TriggeringValue: price,
		})
	}
	return out
}
