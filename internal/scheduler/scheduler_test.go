package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"CoinSentinel/internal/cache"
	"CoinSentinel/internal/calculator"
	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/notifier"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/report"
	"CoinSentinel/internal/store"
	"CoinSentinel/internal/strategy"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

var assets = []model.Asset{
	{ID: "bitcoin", Name: "Bitcoin"},
	{ID: "ethereum", Name: "Ethereum"},
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []notifier.Message
}

func (c *captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) Send(_ context.Context, msg notifier.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

// declining yields n hourly samples falling by one per hour, which drives
// RSI to zero.
func declining(n int) []model.Sample {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Sample, n)
	for i := range out {
		out[i] = model.Sample{Timestamp: start.Add(time.Duration(i) * time.Hour), Price: float64(1000 - i)}
	}
	return out
}

// memRecorder keeps audit events in memory.
type memRecorder struct {
	mu      sync.Mutex
	cycles  []recorder.CycleEvent
	ingests []recorder.IngestEvent
}

func (r *memRecorder) RecordCycle(_ context.Context, evt *recorder.CycleEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, *evt)
	return int64(len(r.cycles)), nil
}

func (r *memRecorder) RecordIngest(ctx context.Context, evt *recorder.IngestEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingests = append(r.ingests, *evt)
	return nil
}

func (r *memRecorder) RecentIngests(_ context.Context, limit int) ([]recorder.IngestEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorder.IngestEvent(nil), r.ingests...), nil
}

func (r *memRecorder) Close() error { return nil }

type fixture struct {
	sched   *Scheduler
	store   *store.MemoryStore
	fetcher collector.Fetcher
	notify  *captureNotifier
	metrics *metrics.Metrics
	rec     *memRecorder
}

func newFixture(t *testing.T, f collector.Fetcher) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	n := &captureNotifier{}
	m := metrics.New()
	rec := &memRecorder{}
	col := collector.NewCollector(f, cache.NewMemory(), collector.Options{
		HistoryDays:   2,
		HistoryMaxAge: time.Minute,
		QuoteMaxAge:   time.Minute,
	}, zerolog.Nop())
	s := NewScheduler(context.Background(), Deps{
		Assets:    assets,
		Collector: col,
		Store:     st,
		Evaluator: report.NewEvaluator(st, calculator.DefaultParams(), strategy.DefaultThresholds),
		Notifier:  n,
		Recorder:  rec,
		Metrics:   m,
		Log:       zerolog.Nop(),
	})
	return &fixture{sched: s, store: st, fetcher: f, notify: n, metrics: m, rec: rec}
}

func TestRunCycle_IngestsAndIsIdempotent(t *testing.T) {
	fx := newFixture(t, &collector.MockFetcher{Price: 100})
	ctx := context.Background()

	res, err := fx.sched.RunCycle(ctx, TriggerCron)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(res.Assets) != 2 || res.Failed() != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, a := range res.Assets {
		if a.Inserted != 48 || a.Fetched != 48 {
			t.Errorf("%s: fetched %d inserted %d, want 48/48", a.Asset.ID, a.Fetched, a.Inserted)
		}
	}

	res, err = fx.sched.Refresh(ctx, TriggerAPI)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	for _, a := range res.Assets {
		if a.Inserted > 1 {
			t.Errorf("%s: re-ingestion inserted %d points", a.Asset.ID, a.Inserted)
		}
	}
	if got := testutil.ToFloat64(fx.metrics.CyclesTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("expected 2 ok cycles, got %v", got)
	}
}

// slowFetcher delays every history request.
type slowFetcher struct {
	collector.MockFetcher
	delay time.Duration
}

func (f *slowFetcher) FetchHistory(ctx context.Context, asset string, days int) ([]model.Sample, error) {
	time.Sleep(f.delay)
	return f.MockFetcher.FetchHistory(ctx, asset, days)
}

func TestRunCycle_RecordsIngestDuration(t *testing.T) {
	fx := newFixture(t, &slowFetcher{MockFetcher: collector.MockFetcher{Price: 100}, delay: 5 * time.Millisecond})

	res, err := fx.sched.RunCycle(context.Background(), TriggerCron)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	for _, a := range res.Assets {
		if a.Duration < 5*time.Millisecond {
			t.Errorf("%s: duration %v shorter than the fetch", a.Asset.ID, a.Duration)
		}
	}
	if len(fx.rec.ingests) != 2 {
		t.Fatalf("expected 2 ingestion rows, got %d", len(fx.rec.ingests))
	}
	for _, evt := range fx.rec.ingests {
		if evt.Duration < 5*time.Millisecond {
			t.Errorf("%s: recorded duration %v", evt.Asset, evt.Duration)
		}
		if evt.CycleID != 1 || evt.Status != recorder.StatusOK {
			t.Errorf("%s: unexpected event %+v", evt.Asset, evt)
		}
	}
}

// cancellingFetcher cancels the cycle's context during the first fetch.
type cancellingFetcher struct {
	collector.MockFetcher
	cancel context.CancelFunc
}

func (f *cancellingFetcher) FetchHistory(ctx context.Context, asset string, days int) ([]model.Sample, error) {
	f.cancel()
	return f.MockFetcher.FetchHistory(ctx, asset, days)
}

func TestRunCycle_CancelledCycleIsRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx := newFixture(t, &cancellingFetcher{MockFetcher: collector.MockFetcher{Price: 100}, cancel: cancel})

	res, err := fx.sched.RunCycle(ctx, TriggerCron)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || len(res.Assets) != 1 {
		t.Fatalf("expected the partial result of one asset, got %+v", res)
	}
	if len(fx.rec.cycles) != 1 || fx.rec.cycles[0].Assets != 1 {
		t.Errorf("expected one recorded cycle covering one asset, got %+v", fx.rec.cycles)
	}
	if len(fx.rec.ingests) != 1 || fx.rec.ingests[0].Asset != "bitcoin" {
		t.Errorf("expected the bitcoin ingestion row, got %+v", fx.rec.ingests)
	}
	if got := testutil.ToFloat64(fx.metrics.CyclesTotal.WithLabelValues("cancelled")); got != 1 {
		t.Errorf("cancelled cycles = %v", got)
	}
}

func TestRunCycle_FailureIsPerAsset(t *testing.T) {
	fx := newFixture(t, &collector.MockFetcher{Price: 100, Fail: map[string]bool{"bitcoin": true}})

	res, err := fx.sched.RunCycle(context.Background(), TriggerCron)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.Failed() != 1 {
		t.Fatalf("expected one failed asset, got %d", res.Failed())
	}
	if !errors.Is(res.Assets[0].Err, collector.ErrFetch) {
		t.Errorf("expected ErrFetch for bitcoin, got %v", res.Assets[0].Err)
	}
	if n, _ := fx.store.Count(context.Background(), "ethereum"); n == 0 {
		t.Error("ethereum must still be ingested")
	}
	if got := testutil.ToFloat64(fx.metrics.FetchFailures.WithLabelValues("bitcoin")); got != 1 {
		t.Errorf("fetch failures = %v", got)
	}
	if got := testutil.ToFloat64(fx.metrics.CyclesTotal.WithLabelValues("partial")); got != 1 {
		t.Errorf("partial cycles = %v", got)
	}
}

func TestRunCycle_SendsSignals(t *testing.T) {
	fx := newFixture(t, &collector.MockFetcher{Samples: map[string][]model.Sample{
		"bitcoin":  declining(40),
		"ethereum": declining(40),
	}})

	res, err := fx.sched.RunCycle(context.Background(), TriggerCron)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	var oversold bool
	for _, s := range res.Assets[0].Signals {
		if s.Rule == model.RuleOversold {
			oversold = true
		}
	}
	if !oversold {
		t.Errorf("expected an oversold signal, got %+v", res.Assets[0].Signals)
	}
	if len(fx.notify.msgs) != 2 {
		t.Fatalf("expected one alert per asset, got %d", len(fx.notify.msgs))
	}
	if !strings.Contains(fx.notify.msgs[0].Subject, "Bitcoin") {
		t.Errorf("unexpected subject %q", fx.notify.msgs[0].Subject)
	}
	if got := testutil.ToFloat64(fx.metrics.LastPrice.WithLabelValues("bitcoin")); got != 961 {
		t.Errorf("last price gauge = %v", got)
	}
}

// blockingFetcher holds history requests until release is closed.
type blockingFetcher struct {
	collector.MockFetcher
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingFetcher) FetchHistory(ctx context.Context, asset string, days int) ([]model.Sample, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.MockFetcher.FetchHistory(ctx, asset, days)
}

func TestRunCycle_DoesNotOverlap(t *testing.T) {
	bf := &blockingFetcher{MockFetcher: collector.MockFetcher{Price: 10}, entered: make(chan struct{}), release: make(chan struct{})}
	fx := newFixture(t, bf)

	done := make(chan error, 1)
	go func() {
		_, err := fx.sched.RunCycle(context.Background(), TriggerCron)
		done <- err
	}()
	<-bf.entered

	if _, err := fx.sched.RunCycle(context.Background(), TriggerAPI); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("expected ErrCycleRunning, got %v", err)
	}
	if reply := fx.sched.HandleCommand(context.Background(), "/refresh"); !strings.Contains(reply, "already running") {
		t.Errorf("unexpected reply %q", reply)
	}

	close(bf.release)
	if err := <-done; err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if _, err := fx.sched.RunCycle(context.Background(), TriggerAPI); err != nil {
		t.Errorf("cycle after completion: %v", err)
	}
}

func TestHandleCommand(t *testing.T) {
	fx := newFixture(t, &collector.MockFetcher{Price: 100})
	ctx := context.Background()
	fx.sched.RunCycle(ctx, TriggerStartup)

	tests := []struct {
		command string
		want    string
	}{
		{"/signals bitcoin", "<b>Bitcoin</b>"},
		{"/signals Ethereum", "<b>Ethereum</b>"},
		{"/signals@SentinelBot bitcoin", "<b>Bitcoin</b>"},
		{"/signals dogecoin", "Unknown asset"},
		{"/signals", "Usage"},
		{"/price", "Current prices"},
		{"/refresh", "Refresh done"},
		{"hello", "Available commands"},
		{"", "Available commands"},
	}
	for _, tt := range tests {
		if got := fx.sched.HandleCommand(ctx, tt.command); !strings.Contains(got, tt.want) {
			t.Errorf("%q: reply lacks %q:\n%s", tt.command, tt.want, got)
		}
	}
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	fx := newFixture(t, &collector.MockFetcher{Price: 1})
	if err := fx.sched.Register("not a cron spec"); err == nil {
		t.Error("expected an error")
	}
	if err := fx.sched.Register("0 */15 * * * *"); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
}
