package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/model"
	"CoinSentinel/internal/notifier"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/report"
	"CoinSentinel/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrCycleRunning is returned when a cycle is requested while one runs.
var ErrCycleRunning = errors.New("evaluation cycle already running")

// Cycle triggers.
const (
	TriggerCron    = "cron"
	TriggerStartup = "startup"
	TriggerCommand = "command"
	TriggerAPI     = "api"
)

// Deps are the collaborators of the scheduler.
type Deps struct {
	Assets    []model.Asset
	Collector *collector.Collector
	Store     store.Store
	Evaluator *report.Evaluator
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Log       zerolog.Logger
}

// AssetResult is the outcome of one asset within a cycle.
type AssetResult struct {
	Asset    model.Asset
	Fetched  int
	Inserted int
	Rejected int
	Price    float64
	Signals  []model.Signal
	Err      error
	Duration time.Duration
}

// CycleResult is the outcome of one cycle.
type CycleResult struct {
	Trigger  string
	Started  time.Time
	Duration time.Duration
	Assets   []AssetResult
}

// Failed counts the assets whose ingestion failed.
func (r *CycleResult) Failed() int {
	n := 0
	for _, a := range r.Assets {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// Scheduler runs evaluation cycles on a cron schedule and on demand. Cycles
// never overlap.
type Scheduler struct {
	Cron *cron.Cron
	deps Deps
	log  zerolog.Logger
	ctx  context.Context

	cycleMu sync.Mutex
}

// NewScheduler creates a new Scheduler. ctx bounds cron-triggered cycles.
func NewScheduler(ctx context.Context, deps Deps) *Scheduler {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds()),
		deps: deps,
		log:  deps.Log.With().Str("component", "scheduler").Logger(),
		ctx:  ctx,
	}
}

// Register schedules the refresh cycle.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.cronTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) cronTask() {
	if _, err := s.RunCycle(s.ctx, TriggerCron); err != nil {
		s.log.Warn().Err(err).Msg("scheduled cycle not run")
	}
}

// RunCycle fetches, stores and evaluates every configured asset, then sends
// the signals that fired. A failing asset is logged and skipped. When a cycle
// is already running the call returns ErrCycleRunning immediately. If ctx is
// cancelled the assets done so far are still recorded and the partial result
// is returned with ctx's error.
func (s *Scheduler) RunCycle(ctx context.Context, trigger string) (*CycleResult, error) {
	if !s.cycleMu.TryLock() {
		s.deps.Metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		return nil, ErrCycleRunning
	}
	defer s.cycleMu.Unlock()

	res := &CycleResult{Trigger: trigger, Started: time.Now()}
	s.log.Info().Str("trigger", trigger).Int("assets", len(s.deps.Assets)).Msg("cycle started")

	var cancelErr error
	for _, asset := range s.deps.Assets {
		if cancelErr = ctx.Err(); cancelErr != nil {
			break
		}
		res.Assets = append(res.Assets, s.runAsset(ctx, asset))
	}
	res.Duration = time.Since(res.Started)

	status := "ok"
	switch failed := res.Failed(); {
	case cancelErr != nil:
		status = "cancelled"
	case failed == len(res.Assets) && failed > 0:
		status = "failed"
	case failed > 0:
		status = "partial"
	}
	s.deps.Metrics.ObserveCycle(status, res.Duration)

	// the audit outlives a cancelled cycle
	auditCtx := context.WithoutCancel(ctx)
	cycleID, err := s.deps.Recorder.RecordCycle(auditCtx, &recorder.CycleEvent{
		Trigger:  trigger,
		Started:  res.Started,
		Duration: res.Duration,
		Assets:   len(res.Assets),
		Failed:   res.Failed(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("record cycle")
	}
	for _, a := range res.Assets {
		evt := &recorder.IngestEvent{
			CycleID:  cycleID,
			Asset:    a.Asset.ID,
			Fetched:  a.Fetched,
			Inserted: a.Inserted,
			Rejected: a.Rejected,
			Status:   recorder.StatusOK,
			Duration: a.Duration,
			At:       res.Started,
		}
		if a.Err != nil {
			evt.Status = recorder.StatusFailed
			evt.Error = a.Err.Error()
		}
		if err := s.deps.Recorder.RecordIngest(auditCtx, evt); err != nil {
			s.log.Error().Err(err).Str("asset", a.Asset.ID).Msg("record ingestion")
		}
	}

	s.log.Info().
		Str("trigger", trigger).
		Str("status", status).
		Dur("duration", res.Duration).
		Int("failed", res.Failed()).
		Msg("cycle finished")
	return res, cancelErr
}

func (s *Scheduler) runAsset(ctx context.Context, asset model.Asset) (res AssetResult) {
	res.Asset = asset
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()
	log := s.log.With().Str("asset", asset.ID).Logger()

	samples, err := s.deps.Collector.History(ctx, asset.ID)
	if err != nil {
		s.deps.Metrics.FetchFailures.WithLabelValues(asset.ID).Inc()
		log.Error().Err(err).Msg("fetch failed, skipping asset")
		res.Err = err
		return res
	}
	res.Fetched = len(samples)
	for _, smp := range samples {
		if !smp.Valid() {
			res.Rejected++
		}
	}
	if res.Rejected > 0 {
		log.Warn().Int("rejected", res.Rejected).Msg("malformed samples dropped")
	}

	res.Inserted, err = s.deps.Store.Append(ctx, asset.ID, samples)
	if err != nil {
		log.Error().Err(err).Msg("store append failed")
		res.Err = fmt.Errorf("append %s: %w", asset.ID, err)
		return res
	}
	s.deps.Metrics.ObserveIngest(asset.ID, res.Inserted, res.Rejected)

	r, err := s.deps.Evaluator.Evaluate(ctx, asset)
	if err != nil {
		log.Error().Err(err).Msg("evaluation failed")
		res.Err = err
		return res
	}
	res.Price = r.Summary.LastPrice
	res.Signals = r.Signals
	if r.Summary.Points > 0 {
		s.deps.Metrics.LastPrice.WithLabelValues(asset.ID).Set(r.Summary.LastPrice)
	}
	s.deps.Metrics.ObserveSignals(asset.ID, r.Signals)

	log.Info().
		Int("fetched", res.Fetched).
		Int("inserted", res.Inserted).
		Int("points", r.Summary.Points).
		Int("signals", len(r.Signals)).
		Msg("asset evaluated")

	if len(r.Signals) > 0 && s.deps.Notifier != nil {
		msg := notifier.FormatSignals(asset, r.Summary.LastPrice, r.Signals)
		if err := s.deps.Notifier.Send(ctx, msg); err != nil {
			log.Error().Err(err).Msg("send signals")
		}
	}
	return res
}

// Refresh drops cached provider data and runs a cycle, so the cycle sees the
// provider's latest history.
func (s *Scheduler) Refresh(ctx context.Context, trigger string) (*CycleResult, error) {
	ids := make([]string, len(s.deps.Assets))
	for i, a := range s.deps.Assets {
		ids[i] = a.ID
	}
	s.deps.Collector.Invalidate(ctx, ids...)
	return s.RunCycle(ctx, trigger)
}

func (s *Scheduler) findAsset(id string) (model.Asset, bool) {
	for _, a := range s.deps.Assets {
		if strings.EqualFold(a.ID, id) || strings.EqualFold(a.Name, id) {
			return a, true
		}
	}
	return model.Asset{}, false
}

// HandleCommand processes a chat command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText()
	}
	// "/signals@MyBot bitcoin" in group chats
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch name {
	case "/signals", "/report":
		if len(fields) < 2 {
			return "Usage: /signals &lt;asset&gt;\nAssets: " + s.assetList()
		}
		asset, ok := s.findAsset(fields[1])
		if !ok {
			return fmt.Sprintf("Unknown asset %q. Assets: %s", fields[1], s.assetList())
		}
		r, err := s.deps.Evaluator.Evaluate(ctx, asset)
		if err != nil {
			s.log.Error().Err(err).Str("asset", asset.ID).Msg("command evaluation")
			return "❌ Evaluation failed, see logs."
		}
		return notifier.FormatReport(r)

	case "/price", "/prices":
		ids := make([]string, len(s.deps.Assets))
		names := make(map[string]string, len(s.deps.Assets))
		for i, a := range s.deps.Assets {
			ids[i] = a.ID
			names[a.ID] = a.Name
		}
		quotes, err := s.deps.Collector.Quotes(ctx, ids)
		if err != nil {
			s.log.Error().Err(err).Msg("command quotes")
			return "❌ Could not fetch prices, try again later."
		}
		return notifier.FormatQuotes(quotes, names)

	case "/refresh":
		res, err := s.Refresh(ctx, TriggerCommand)
		if errors.Is(err, ErrCycleRunning) {
			return "⏳ A refresh is already running."
		}
		if err != nil {
			return "❌ Refresh interrupted."
		}
		return formatCycle(res)

	default:
		return helpText()
	}
}

func (s *Scheduler) assetList() string {
	ids := make([]string, len(s.deps.Assets))
	for i, a := range s.deps.Assets {
		ids[i] = a.ID
	}
	return strings.Join(ids, ", ")
}

func formatCycle(res *CycleResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔄 <b>Refresh done</b> in %s\n\n", res.Duration.Round(time.Millisecond)))
	for _, a := range res.Assets {
		if a.Err != nil {
			b.WriteString(fmt.Sprintf("%s: ❌ failed\n", a.Asset.Name))
			continue
		}
		b.WriteString(fmt.Sprintf("%s: +%d points, %d signals\n", a.Asset.Name, a.Inserted, len(a.Signals)))
	}
	return b.String()
}

func helpText() string {
	return "Available commands:\n" +
		"• /signals &lt;asset&gt;: indicators and signals\n" +
		"• /price: current prices\n" +
		"• /refresh: fetch and evaluate now"
}
