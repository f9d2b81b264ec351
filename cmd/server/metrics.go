package main

import (
	"context"
	"time"

	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/metrics"
	"github.com/nadmax/habivance/internal/queue"
	"github.com/nadmax/habivance/internal/repository"
	"github.com/nadmax/habivance/internal/timer"
)

const collectInterval = 10 * time.Second

func startMetricsCollector(ctx context.Context, repo repository.HabitRepository, q *queue.Queue) {
	ticker := time.NewTicker(collectInterval)
	defer ticker.Stop()

	for {
		updateGauges(ctx, repo, q)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func updateGauges(ctx context.Context, repo repository.HabitRepository, q *queue.Queue) {
	habits, err := repo.ListAllHabits(ctx)
	if err != nil {
		logger.Warn("failed to list habits for metrics", "err", err)
	} else {
		timersByMode := map[string]int{
			string(timer.ModeIdle):    0,
			string(timer.ModeRunning): 0,
			string(timer.ModePaused):  0,
		}
		for _, h := range habits {
			mode := h.Timer.Mode
			if mode == "" {
				mode = timer.ModeIdle
			}
			timersByMode[string(mode)]++
		}

		metrics.UpdateHabitsTracked(len(habits))
		metrics.UpdateTimerGauges(timersByMode)
	}

	depth, err := q.Pending(ctx)
	if err != nil {
		logger.Warn("failed to read queue depth", "err", err)
		return
	}
	metrics.UpdateQueueDepth(int(depth))
}
