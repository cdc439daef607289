package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CoinSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveCycle("ok", 2*time.Second)
	m.ObserveIngest("bitcoin", 5, 1)
	m.ObserveIngest("bitcoin", 2, 0)
	m.ObserveSignals("bitcoin", []model.Signal{
		{Severity: model.SeverityCaution},
		{Severity: model.SeverityOpportunity},
		{Severity: model.SeverityCaution},
	})
	m.FetchFailures.WithLabelValues("solana").Inc()

	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("cycles ok = %v", got)
	}
	if got := testutil.ToFloat64(m.PointsInserted.WithLabelValues("bitcoin")); got != 7 {
		t.Errorf("inserted = %v", got)
	}
	if got := testutil.ToFloat64(m.SamplesRejected.WithLabelValues("bitcoin")); got != 1 {
		t.Errorf("rejected = %v", got)
	}
	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("bitcoin", "caution")); got != 2 {
		t.Errorf("caution signals = %v", got)
	}
	if got := testutil.ToFloat64(m.FetchFailures.WithLabelValues("solana")); got != 1 {
		t.Errorf("fetch failures = %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.LastPrice.WithLabelValues("ethereum").Set(3500)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `coinsentinel_last_price{asset="ethereum"} 3500`) {
		t.Errorf("gauge missing from exposition:\n%s", body)
	}
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/assets/:asset/report", "GET", 200, 30*time.Millisecond)
	m.ObserveRequest("/api/assets/:asset/report", "GET", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/assets/:asset/report", "GET", "200")); got != 1 {
		t.Errorf("200 requests = %v", got)
	}
	if got := testutil.CollectAndCount(m.HTTPDuration); got != 1 {
		t.Errorf("expected one duration series, got %d", got)
	}
}
