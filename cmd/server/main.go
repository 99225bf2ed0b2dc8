package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockSentinel/internal/api"
	"StockSentinel/internal/cache"
	"StockSentinel/internal/calculator"
	"StockSentinel/internal/config"
	"StockSentinel/internal/logger"
	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/provider"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/retry"
	"StockSentinel/internal/scheduler"
	"StockSentinel/internal/service"
	"StockSentinel/internal/strategy"

	"github.com/gin-gonic/gin"
)

const version = "0.0.1"

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := logger.Init("stock-sentinel", cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		log.Error("config validation", "error", err)
		os.Exit(1)
	}
	log.Info("StockSentinel starting", "version", version)

	// Data source
	var upstream provider.Provider
	switch cfg.DataSource.Kind {
	case "http":
		upstream = provider.NewHTTPProvider(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.DataSource.Proxy)
	case "yahoo":
		upstream = provider.NewYahooProvider(cfg.DataSource.Proxy)
	default:
		log.Warn("no data source configured, serving synthetic bars")
		upstream = provider.NewMockProvider()
	}
	log.Info("data source ready", "provider", upstream.Name())

	m := metrics.New()
	exec := retry.New(
		retry.WithTimeout(cfg.Retry.Timeout),
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithLogger(log),
		retry.WithObserver(m),
	)

	// Cache
	var c cache.Cache = cache.Noop{}
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Warn("init redis cache failed, caching disabled", "error", err)
		} else {
			c = rc
			defer rc.Close()
		}
	}

	// Recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", "error", err)
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	svc := service.New(provider.Serialize(upstream), exec,
		service.WithCache(c, cfg.Cache.TTL),
		service.WithRecorder(rec),
		service.WithLogger(log),
		service.WithKDJParams(calculator.KDJParams{N: cfg.KDJ.N, M1: cfg.KDJ.M1, M2: cfg.KDJ.M2}),
		service.WithLookbackDays(cfg.KDJ.LookbackDays),
		service.WithKDJAdjust(model.AdjustMode(cfg.KDJ.Adjust)),
		service.WithMetrics(m),
		service.WithVersion(version),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Alerts and chat commands
	var n notifier.Notifier = notifier.Noop{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy)
		n = tn
	}

	th := strategy.Thresholds{BuyJ: *cfg.Alerts.BuyJ, SellJ: *cfg.Alerts.SellJ}
	sched := scheduler.NewScheduler(ctx, svc, n, th, cfg.Schedule.Watchlist)
	if len(cfg.Schedule.Watchlist) > 0 {
		if err := sched.RegisterWatchlist(cfg.Schedule.Cron); err != nil {
			log.Error("register watchlist task", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("RUN_ON_START") == "true" {
			log.Info("RUN_ON_START enabled, evaluating watchlist now")
			go sched.RunNow()
		}
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	gin.SetMode(cfg.Server.Mode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(svc, m, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received, stopping")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	log.Info("StockSentinel stopped")
}
