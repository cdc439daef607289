package report

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/store"
	"CoinSentinel/internal/strategy"
)

var start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func series(step time.Duration, prices ...float64) model.PriceSeries {
	s := model.PriceSeries{Asset: "bitcoin"}
	for i, p := range prices {
		s.Points = append(s.Points, model.PricePoint{Asset: "bitcoin", Timestamp: start.Add(time.Duration(i) * step), Price: p})
	}
	return s
}

func TestSummarize(t *testing.T) {
	s := series(24*time.Hour, 50, 10, 20, 40, 30)
	sum := Summarize(s, 2*24*time.Hour)
	if sum.Points != 5 || sum.LastPrice != 30 {
		t.Errorf("unexpected summary %+v", sum)
	}
	// window covers the last three days: 20, 40, 30
	if sum.High != 40 || sum.Low != 20 {
		t.Errorf("high/low = %v/%v, want 40/20", sum.High, sum.Low)
	}
	if !sum.ChangePct.Defined || math.Abs(sum.ChangePct.V-50) > 1e-9 {
		t.Errorf("change = %+v, want 50%%", sum.ChangePct)
	}
	if !sum.LastTimestamp.Equal(start.Add(4 * 24 * time.Hour)) {
		t.Errorf("last timestamp %v", sum.LastTimestamp)
	}
}

func TestSummarize_Sparse(t *testing.T) {
	if sum := Summarize(model.PriceSeries{}, SummaryWindow); sum.Points != 0 || sum.ChangePct.Defined {
		t.Errorf("expected an empty summary, got %+v", sum)
	}
	sum := Summarize(series(time.Hour, 42), SummaryWindow)
	if sum.High != 42 || sum.Low != 42 || sum.ChangePct.Defined {
		t.Errorf("single point summary %+v", sum)
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	var samples []model.Sample
	for i := 0; i < 60; i++ {
		samples = append(samples, model.Sample{Timestamp: start.Add(time.Duration(i) * time.Hour), Price: 100 + float64(i%7)})
	}
	if _, err := st.Append(ctx, "bitcoin", samples); err != nil {
		t.Fatalf("append: %v", err)
	}

	ev := NewEvaluator(st, calculator.DefaultParams(), strategy.DefaultThresholds)
	r, err := ev.Evaluate(ctx, model.Asset{ID: "bitcoin", Name: "Bitcoin"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if r.Series.Len() != 60 {
		t.Fatalf("expected 60 points, got %d", r.Series.Len())
	}
	for _, k := range model.AllKinds {
		if got := len(r.Indicators.Series(k).Values); got != 60 {
			t.Errorf("%s: %d values, want 60", k, got)
		}
		if _, ok := r.Latest[k]; !ok {
			t.Errorf("%s missing from latest values", k)
		}
	}
	if r.Latest[model.KindMA200].Defined {
		t.Error("ma200 cannot be defined over 60 points")
	}
	if !r.Latest[model.KindRSI].Defined {
		t.Error("rsi must be defined over 60 points")
	}

	trimmed := r.Trim(10)
	if trimmed.Series.Len() != 10 || len(trimmed.Indicators.Series(model.KindRSI).Values) != 10 {
		t.Errorf("trim kept %d points", trimmed.Series.Len())
	}
	if r.Series.Len() != 60 {
		t.Error("trim must not modify the original report")
	}
}

func TestEvaluator_EmptyAsset(t *testing.T) {
	ev := NewEvaluator(store.NewMemoryStore(), calculator.DefaultParams(), strategy.DefaultThresholds)
	r, err := ev.Evaluate(context.Background(), model.Asset{ID: "cardano"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if r.Series.Len() != 0 || len(r.Signals) != 0 {
		t.Errorf("expected an empty report, got %+v", r)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)
	latest := decoded["latest"].(map[string]any)
	if latest["rsi"] != nil {
		t.Errorf("undefined rsi must encode as null, got %v", latest["rsi"])
	}
}
