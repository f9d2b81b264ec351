package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nadmax/habivance/internal/api"
	"github.com/nadmax/habivance/internal/config"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/middleware"
	"github.com/nadmax/habivance/internal/queue"
	"github.com/nadmax/habivance/internal/repository"
	"github.com/nadmax/habivance/internal/service"
)

func main() {
	cfg, err := config.Load(os.Getenv("HABIVANCE_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, File: cfg.Log.File, Prefix: "server"}); err != nil {
		logger.Fatal("failed to init logger", "err", err)
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "err", err)
	}

	location, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid timezone", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to open repository", "err", err)
	}

	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "err", err)
		}
	}()

	if err := repo.Migrate(ctx); err != nil {
		logger.Fatal("failed to migrate schema", "err", err)
	}

	q, err := queue.NewQueue(cfg.Redis.Addr)
	if err != nil {
		logger.Fatal("failed to connect to queue", "err", err)
	}

	defer func() {
		if err := q.Close(); err != nil {
			logger.Error("failed to close server queue", "err", err)
		}
	}()

	habits := service.NewHabitService(repo, service.SystemClock{Location: location}, q)
	apiHandler := api.NewAPI(habits, q)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", middleware.LoggingMiddleware(middleware.MetricsMiddleware(apiHandler)))

	go startMetricsCollector(ctx, repo, q)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down server", "err", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port, "driver", cfg.Database.Driver, "redis", cfg.Redis.Addr, "timezone", location.String())

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", "err", err)
	}

	logger.Info("server stopped")
}
