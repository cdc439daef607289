// Package metrics exposes evaluation-cycle metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"CoinSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the sentinel.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal     *prometheus.CounterVec // labels: status=ok|partial|failed|cancelled|skipped
	CycleDuration   prometheus.Histogram
	FetchFailures   *prometheus.CounterVec // labels: asset
	PointsInserted  *prometheus.CounterVec // labels: asset
	SamplesRejected *prometheus.CounterVec // labels: asset
	SignalsTotal    *prometheus.CounterVec // labels: asset, severity
	LastPrice       *prometheus.GaugeVec   // labels: asset
	NotifyFailures  *prometheus.CounterVec // labels: channel
	HTTPRequests    *prometheus.CounterVec // labels: route, method, status
	HTTPDuration    *prometheus.HistogramVec
}

// New creates the metrics on a dedicated registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinsentinel_cycles_total",
			Help: "Evaluation cycles by outcome",
		}, []string{"status"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coinsentinel_cycle_duration_seconds",
			Help:    "Duration of a full evaluation cycle",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinsentinel_fetch_failures_total",
			Help: "Failed provider fetches per asset",
		}, []string{"asset"}),
		PointsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinsentinel_points_inserted_total",
			Help: "Price points newly stored per asset",
		}, []string{"asset"}),
		SamplesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinsentinel_samples_rejected_total",
			Help: "Malformed samples dropped at ingestion per asset",
		}, []string{"asset"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinsentinel_signals_total",
			Help: "Signals emitted per asset and severity",
		}, []string{"asset", "severity"}),
		LastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coinsentinel_last_price",
			Help: "Most recent stored price per asset",
		}, []string{"asset"}),
		NotifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinsentinel_notify_failures_total",
			Help: "Alert deliveries that failed per channel",
		}, []string{"channel"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coinsentinel_http_requests_total",
			Help: "API requests by route template",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coinsentinel_http_request_duration_seconds",
			Help:    "API request latency by route template",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CyclesTotal,
		m.CycleDuration,
		m.FetchFailures,
		m.PointsInserted,
		m.SamplesRejected,
		m.SignalsTotal,
		m.LastPrice,
		m.NotifyFailures,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(status string, d time.Duration) {
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// ObserveIngest records the outcome of one asset's ingestion.
func (m *Metrics) ObserveIngest(asset string, inserted, rejected int) {
	m.PointsInserted.WithLabelValues(asset).Add(float64(inserted))
	m.SamplesRejected.WithLabelValues(asset).Add(float64(rejected))
}

// ObserveSignals counts signals by severity.
func (m *Metrics) ObserveSignals(asset string, signals []model.Signal) {
	for _, s := range signals {
		m.SignalsTotal.WithLabelValues(asset, string(s.Severity)).Inc()
	}
}

// ObserveRequest records one API request. route is the route template, not
// the raw path, to keep label cardinality low.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
