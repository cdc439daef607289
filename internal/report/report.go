// Package report assembles the per-asset view consumed by the dashboard and
// the chat commands: stored series, indicator bundle, signals and a summary.
package report

import (
	"context"
	"fmt"
	"time"

	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/store"
	"CoinSentinel/internal/strategy"
)

// SummaryWindow is the trailing period of the high/low/change summary.
const SummaryWindow = 30 * 24 * time.Hour

// Summary condenses the recent history of an asset.
type Summary struct {
	Points        int       `json:"points"`
	LastPrice     float64   `json:"last_price"`
	LastTimestamp time.Time `json:"last_timestamp"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	// ChangePct is the change over the window in percent, undefined when the
	// window holds fewer than two points.
	ChangePct model.Value `json:"change_pct"`
}

// Report is the evaluation of one asset at one point in time.
type Report struct {
	Asset      model.Asset                         `json:"asset"`
	Summary    Summary                             `json:"summary"`
	Latest     map[model.IndicatorKind]model.Value `json:"latest"`
	Signals    []model.Signal                      `json:"signals"`
	Series     model.PriceSeries                   `json:"series"`
	Indicators model.IndicatorBundle               `json:"indicators"`
}

// Evaluator reads a series and runs the indicator engine and the signal
// generator over it.
type Evaluator struct {
	store      store.Store
	params     calculator.Params
	thresholds strategy.Thresholds
}

func NewEvaluator(s store.Store, params calculator.Params, thresholds strategy.Thresholds) *Evaluator {
	return &Evaluator{store: s, params: params, thresholds: thresholds}
}

// Evaluate builds the report of asset over its full stored history. An asset
// without data yields an empty report with no signals.
func (e *Evaluator) Evaluate(ctx context.Context, asset model.Asset) (*Report, error) {
	series, err := e.store.Read(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", asset.ID, err)
	}
	return Build(asset, series, e.params, e.thresholds), nil
}

// Build evaluates an already loaded series.
func Build(asset model.Asset, series model.PriceSeries, params calculator.Params, th strategy.Thresholds) *Report {
	bundle := calculator.Compute(series, params)
	signals := strategy.EvaluateWith(th, series, bundle)
	if signals == nil {
		signals = []model.Signal{}
	}

	latest := make(map[model.IndicatorKind]model.Value, len(model.AllKinds))
	for _, k := range model.AllKinds {
		latest[k] = bundle.Series(k).Last(0)
	}

	return &Report{
		Asset:      asset,
		Summary:    Summarize(series, SummaryWindow),
		Latest:     latest,
		Signals:    signals,
		Series:     series,
		Indicators: bundle,
	}
}

// Summarize computes the summary over the points within window of the most
// recent one.
func Summarize(series model.PriceSeries, window time.Duration) Summary {
	last, ok := series.Last()
	if !ok {
		return Summary{}
	}
	n := 0
	cutoff := last.Timestamp.Add(-window)
	for i := len(series.Points) - 1; i >= 0 && !series.Points[i].Timestamp.Before(cutoff); i-- {
		n++
	}

	prices := series.Prices()
	s := Summary{
		Points:        len(prices),
		LastPrice:     last.Price,
		LastTimestamp: last.Timestamp,
	}
	s.High, s.Low, _ = calculator.Range(prices, n)
	if n >= 2 {
		if pct, err := calculator.PercentChange(prices[len(prices)-n], last.Price); err == nil {
			s.ChangePct = model.DefinedValue(pct)
		}
	}
	return s
}

// Trim returns a copy of r whose series and indicators keep only the last n
// points. n <= 0 keeps everything.
func (r *Report) Trim(n int) *Report {
	out := *r
	out.Series = r.Series.Tail(n)
	out.Indicators = r.Indicators.Tail(n)
	return &out
}
