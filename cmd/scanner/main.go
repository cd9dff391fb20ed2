package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TrendSentinel/internal/collector"
	"TrendSentinel/internal/config"
	"TrendSentinel/internal/history"
	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/recorder"
	"TrendSentinel/internal/scanner"
	"TrendSentinel/internal/scheduler"
	"TrendSentinel/internal/strategy"
	"TrendSentinel/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	lg := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(lg)
	lg.Info().Str("config", cfgPath).Msg("TrendSentinel starting")

	if err := cfg.Validate(); err != nil {
		lg.Fatal().Err(err).Msg("config validation")
	}
	profile, err := cfg.Profile()
	if err != nil {
		lg.Fatal().Err(err).Msg("resolve profile")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Data provider
	provider, closeCache := buildProvider(ctx, cfg, lg)
	defer closeCache()
	lg.Info().Str("provider", provider.Name()).Msg("data source ready")

	// Scoring
	tracker := history.NewTracker(nil)
	engine, err := strategy.NewEngine(profile,
		strategy.WithNovelty(tracker),
		strategy.WithPatternConfig(cfg.Scan.Pattern),
		strategy.WithExtensionConfig(cfg.Scan.Extension),
		strategy.WithLogger(lg.With().Str("component", "engine").Logger()),
	)
	if err != nil {
		lg.Fatal().Err(err).Msg("build engine")
	}

	// Results and history
	var (
		rec   recorder.Recorder
		store scanner.HistoryStore
	)
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, lg.With().Str("component", "recorder").Logger())
		if err != nil {
			lg.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec, store = sr, sr
		}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
		store = history.NewFileStore(cfg.Database.HistoryFile)
		lg.Info().Str("path", cfg.Database.HistoryFile).Msg("history kept in file")
	}
	sinks := []scanner.ResultSink{rec}

	// Telegram
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy,
			lg.With().Str("component", "telegram").Logger())
		sinks = append(sinks, notifier.NewReporter(tn, cfg.Scan.ReportTop, lg))
	} else {
		lg.Warn().Msg("telegram not configured, summaries are not sent")
	}

	sc := scanner.New(provider, engine, tracker, store,
		scanner.WithSinks(sinks...),
		scanner.WithBatchSize(cfg.Scan.BatchSize),
		scanner.WithDailyBars(cfg.Scan.DailyBars),
		scanner.WithETFs(cfg.Scan.ETFs...),
		scanner.WithLogger(lg.With().Str("component", "scanner").Logger()),
	)
	defer func() {
		if err := sc.Close(); err != nil {
			lg.Error().Err(err).Msg("close sinks")
		}
	}()

	// Scheduler
	var alert notifier.Sender
	if tn != nil {
		alert = tn
	}
	sched := scheduler.NewScheduler(ctx, sc, cfg.Universe, alert, lg.With().Str("component", "scheduler").Logger())
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		lg.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		lg.Info().Msg("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		lg.Info().Msg("run_on_start enabled, scanning now")
		sched.Background()
	}

	lg.Info().Str("profile", profile.Name).Str("cron", cfg.Schedule.ScanCron).Msg("TrendSentinel is running, press Ctrl+C to stop")
	<-ctx.Done()

	lg.Info().Msg("shutdown signal received, finishing current symbol")
	sched.Stop()
	lg.Info().Msg("TrendSentinel stopped")
}

// buildProvider assembles source, retry and the optional Redis cache. The
// returned func releases the cache connection.
func buildProvider(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (collector.Provider, func()) {
	plog := lg.With().Str("component", "collector").Logger()
	opts := []collector.Option{collector.WithProxy(cfg.Proxy), collector.WithLogger(plog)}
	if cfg.DataSource.RateLimit > 0 {
		opts = append(opts, collector.WithRateLimit(cfg.DataSource.RateLimit))
	}

	var p collector.Provider
	switch cfg.DataSource.Provider {
	case "rest":
		p = collector.NewRESTProvider(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, opts...)
	case "mock":
		p = &collector.MockProvider{}
	default:
		p = collector.NewYahooProvider(opts...)
	}
	p = collector.NewRetryProvider(p, cfg.DataSource.Retries, cfg.DataSource.RetryBackoff, plog)

	if cfg.Cache.RedisAddr == "" {
		return p, func() {}
	}
	kv := collector.NewRedisKV(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := kv.Ping(pingCtx); err != nil {
		lg.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, running without bar cache")
		kv.Close()
		return p, func() {}
	}
	lg.Info().Str("addr", cfg.Cache.RedisAddr).Dur("ttl", cfg.Cache.TTL).Msg("redis bar cache enabled")
	return collector.NewCachedProvider(p, kv, "ts", cfg.Cache.TTL, plog), func() { kv.Close() }
}
