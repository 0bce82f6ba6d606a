package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/linkmark-service/internal/adapter/chromedp_browser"
	"github.com/user/linkmark-service/internal/adapter/postgres"
	redis_adapter "github.com/user/linkmark-service/internal/adapter/redis"
	"github.com/user/linkmark-service/internal/delivery/http/handler"
	"github.com/user/linkmark-service/internal/delivery/http/router"
	"github.com/user/linkmark-service/internal/delivery/message"
	"github.com/user/linkmark-service/internal/session"
	"github.com/user/linkmark-service/internal/usecase"
	"github.com/user/linkmark-service/pkg/config"
	"github.com/user/linkmark-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("could not load config", zap.Error(err))
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("could not build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Synced store (PostgreSQL) ---
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("unable to create postgres pool", zap.Error(err))
	}
	defer dbpool.Close()
	if err := dbpool.Ping(ctx); err != nil {
		log.Fatal("unable to connect to postgres", zap.Error(err))
	}
	settingsRepo := postgres.NewSettingsRepo(dbpool)
	if err := settingsRepo.EnsureSchema(ctx); err != nil {
		log.Fatal("unable to prepare settings schema", zap.Error(err))
	}
	log.Info("postgres connection pool established")

	// --- Local store (Redis) ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("unable to connect to redis", zap.Error(err))
	}
	log.Info("redis connection established")

	// --- Use cases ---
	ledger := usecase.NewLedger(redis_adapter.NewLedgerRepo(rdb), nil, log.Named("ledger"))
	overrides := usecase.NewPageOverrides(redis_adapter.NewOverrideRepo(rdb), nil)
	settings := usecase.NewSettingsService(settingsRepo, log.Named("settings"))
	if err := settings.EnsureAutoEnable(ctx); err != nil {
		log.Warn("auto-enable check failed", zap.Error(err))
	}
	cleaner := usecase.NewCleaner(ledger, settings, cfg.CleanupInterval, log.Named("cleaner"))

	// --- Pages ---
	pageSource := chromedp_browser.NewPageSource(cfg.ChromeHeadless, cfg.RenderConcurrency, cfg.PageLoadTimeout, log.Named("browser"))
	defer pageSource.Close()
	pages := session.NewManager(session.Deps{
		Ledger:    ledger,
		Overrides: overrides,
		Settings:  settings,
		Source:    pageSource,
		Router:    message.NewRouter(log.Named("messages")),
		Logger:    log.Named("pages"),
	}, cfg.SessionIdleTimeout)
	defer pages.CloseAll()

	// --- HTTP server ---
	apiHandler := handler.NewHandler(pages, ledger, settings, map[string]handler.HealthCheck{
		"postgres": dbpool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log.Named("http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.PageLoadTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cleaner.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := pages.WatchSettings(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		pages.RunReaper(gctx, time.Minute)
		return nil
	})
	if cfg.HistoryWatchURL != "" {
		watcher := chromedp_browser.NewHistoryWatcher(cfg.ChromeHeadless, func(ctx context.Context, url string, at time.Time) error {
			_, err := ledger.RecordVisitAt(ctx, url, at, usecase.SourceHistory)
			return err
		}, log.Named("history"))
		g.Go(func() error {
			if err := watcher.Run(gctx, cfg.HistoryWatchURL); err != nil {
				log.Error("history watcher stopped", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		log.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server exiting")
}
