package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadmax/habivance/internal/config"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/metrics"
	"github.com/nadmax/habivance/internal/notification"
	"github.com/nadmax/habivance/internal/queue"
	"github.com/nadmax/habivance/internal/repository"
	"github.com/nadmax/habivance/internal/service"
	"github.com/nadmax/habivance/internal/worker"
	"github.com/nadmax/habivance/internal/worker/handlers"
)

func main() {
	cfg, err := config.Load(os.Getenv("HABIVANCE_CONFIG"))
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, File: cfg.Log.File, Prefix: "worker"}); err != nil {
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

	q, err := queue.NewQueue(cfg.Redis.Addr)
	if err != nil {
		logger.Fatal("failed to connect to queue", "err", err)
	}

	defer func() {
		if err := q.Close(); err != nil {
			logger.Error("failed to close worker queue", "err", err)
		}
	}()

	workerID := cfg.Worker.ID
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%d", time.Now().Unix())
	}

	mailer := handlers.NewSendGridSender(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromAddress)
	digests := handlers.NewDigestGenerator(repo, mailer, location)

	w := worker.NewWorker(workerID, q)
	w.SetPollInterval(cfg.Worker.PollInterval.Duration)
	w.RegisterHandler(notification.TypeReminder, mailer.Reminder)
	w.RegisterHandler(notification.TypeHabitMilestone, mailer.Streak)
	w.RegisterHandler(notification.TypeHabitRecord, mailer.Streak)
	w.RegisterHandler(notification.TypeWeeklyDigest, digests.Handle)
	w.RegisterDefault(handlers.InApp,
		notification.TypeHabitCreated,
		notification.TypeHabitCompleted,
		notification.TypeHabitDeleted,
		notification.TypeTimerStarted,
		notification.TypeTimerStopped,
	)

	habits := service.NewHabitService(repo, service.SystemClock{Location: location}, q)
	go runRollover(ctx, habits, cfg.Worker.RolloverInterval.Duration)

	metrics.UpdateActiveWorkers(1)
	defer metrics.UpdateActiveWorkers(0)

	logger.Info("worker starting", "worker", workerID, "redis", cfg.Redis.Addr, "timezone", location.String())
	w.Start(ctx)
	logger.Info("shutting down worker", "worker", workerID)
}

// runRollover closes past days once at startup and then on every tick.
func runRollover(ctx context.Context, habits *service.HabitService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := habits.Rollover(ctx); err != nil {
			logger.Error("rollover failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
