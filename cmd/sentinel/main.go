package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CoinSentinel/internal/api"
	"CoinSentinel/internal/cache"
	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/config"
	"CoinSentinel/internal/logger"
	"CoinSentinel/internal/metrics"
	"CoinSentinel/internal/notifier"
	"CoinSentinel/internal/recorder"
	"CoinSentinel/internal/report"
	"CoinSentinel/internal/scheduler"
	"CoinSentinel/internal/store"

	"github.com/rs/zerolog"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot.Fatal().Err(err).Str("path", cfgPath).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("config validation")
	}

	log, err := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		boot.Fatal().Err(err).Msg("init logger")
	}
	log.Info().Str("config", cfgPath).Int("assets", len(cfg.Assets)).Msg("CoinSentinel starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	// Init cache
	var c cache.Cache = cache.NewMemory()
	if cfg.Cache.Backend == "redis" {
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("init redis cache failed, using memory")
		} else {
			c = rc
		}
	}
	defer c.Close()

	// Init series store
	var st store.Store
	switch cfg.Database.Backend {
	case "sqlite":
		ss, err := store.NewSQLiteStore(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("init sqlite store")
		}
		st = ss
	default:
		st = store.NewMemoryStore()
	}
	defer st.Close()

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.Backend == "sqlite" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewCoinGeckoFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey,
			cfg.DataSource.VsCurrency, cfg.Proxy, cfg.DataSource.Timeout)
	}
	log.Info().Str("source", fetcher.Name()).Str("cache", cfg.Cache.Backend).Msg("data source ready")

	col := collector.NewCollector(fetcher, c, collector.Options{
		HistoryDays:   cfg.DataSource.HistoryDays,
		HistoryMaxAge: cfg.Cache.HistoryMaxAge,
		QuoteMaxAge:   cfg.Cache.QuoteMaxAge,
	}, log)
	ev := report.NewEvaluator(st, cfg.Indicators, cfg.Thresholds)

	// Init notifiers
	var tn *notifier.TelegramNotifier
	multi := &notifier.Multi{
		OnError: func(channel string, err error) {
			m.NotifyFailures.WithLabelValues(channel).Inc()
		},
	}
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		multi.Notifiers = append(multi.Notifiers, tn)
	}
	if cfg.EmailEnabled() {
		multi.Notifiers = append(multi.Notifiers, notifier.NewEmailNotifier(cfg.Email.Host, cfg.Email.Port,
			cfg.Email.Username, cfg.Email.Password, cfg.Email.From, cfg.Email.To))
	}
	if len(multi.Notifiers) == 0 {
		log.Warn().Msg("no alert channel configured, signals go to the log")
		multi.Notifiers = append(multi.Notifiers, &notifier.LogNotifier{Log: log})
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, scheduler.Deps{
		Assets:    cfg.Assets,
		Collector: col,
		Store:     st,
		Evaluator: ev,
		Notifier:  multi,
		Recorder:  rec,
		Metrics:   m,
		Log:       log,
	})
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, running a cycle now")
		go func() {
			if _, err := sched.RunCycle(ctx, scheduler.TriggerStartup); err != nil {
				log.Warn().Err(err).Msg("startup cycle not run")
			}
		}()
	}

	srv := api.NewServer(cfg.API.Addr, api.NewHandler(cfg, ev, col, sched, rec, log), m, log)
	srv.Start()

	log.Info().Str("cron", cfg.Schedule.RefreshCron).Msg("CoinSentinel is running, press Ctrl+C to stop")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	sched.Stop()
	log.Info().Msg("CoinSentinel stopped")
}
