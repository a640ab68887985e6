package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"moneymanager/internal/amqp"
	"moneymanager/internal/backend"
	"moneymanager/internal/cache"
	"moneymanager/internal/config"
	apphttp "moneymanager/internal/http"
	"moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
	"moneymanager/internal/page"
	"moneymanager/internal/refresh"
	"moneymanager/internal/session"
	"moneymanager/internal/storage"
)

func main() {
	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		JSON:      cfg.LogJSON,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger backend
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}
	}()

	// Sessions
	if err := storage.RunMigrations(cfg.SessionDBPath); err != nil {
		logger.Error("Failed to run session migrations", log.FieldError, err, "path", cfg.SessionDBPath)
		os.Exit(1)
	}
	repo, err := storage.NewSQLiteRepository(cfg.SessionDBPath)
	if err != nil {
		logger.Error("Failed to open session store", log.FieldError, err, "path", cfg.SessionDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sessions := session.NewManager(repo, cfg.SessionTTL, logger, session.WithSecureCookies(cfg.CookieSecure))
	go sessions.RunSweeper(ctx, 10*time.Minute)

	// Pages
	pages := page.NewRegistry(result.Backend, cfg.PageCacheSize, cfg.PageIdleTTL, page.Options{
		Location: loc,
		Logger:   logger,
	})
	caches := cache.NewManager(logger)
	caches.Register(pages.Cache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	// Cross-instance refresh, optional
	if cfg.AMQPURL != "" {
		instance := uuid.NewString()
		queue := cfg.AMQPQueue
		if queue == "" {
			queue = cfg.AMQPExchange + "." + instance
		}
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		relay := refresh.NewRelay(client, instance, pages, logger)
		pages.UseRelay(relay)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Refresh relay stopped", log.FieldError, err)
			}
		}()
		logger.Info("Refresh relay enabled", log.FieldInstance, instance, "queue", queue)
	} else {
		logger.Info("Refresh relay disabled - no AMQP_URL provided")
	}

	limiter, err := ratelimit.NewLimiter(cfg.RateLimit, logger)
	if err != nil {
		logger.Error("Invalid rate limit", log.FieldError, err, "rate", cfg.RateLimit)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:     result.Backend,
		Sessions: sessions,
		Pages:    pages,
		Limiter:  limiter,
		Location: loc,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting moneymanager server",
		"port", cfg.Port, "backend", cfg.DataBackend, log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-stopped
	logger.Info("Server stopped gracefully")
}
