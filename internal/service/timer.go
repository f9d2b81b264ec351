package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/metrics"
	"github.com/nadmax/habivance/internal/notification"
	"github.com/nadmax/habivance/internal/timer"
)

type TimerStatus struct {
	HabitID        string     `json:"habit_id"`
	Mode           timer.Mode `json:"mode"`
	Running        bool       `json:"running"`
	Paused         bool       `json:"paused"`
	ElapsedMinutes float64    `json:"elapsed_minutes"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

type StopResult struct {
	Habit          *habit.Habit `json:"habit"`
	SessionMinutes float64      `json:"session_minutes"`
}

// StartTimer starts or resumes the habit's timer. An illegal transition is
// returned as is and nothing is written.
func (s *HabitService) StartTimer(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	h, err := s.update(ctx, userID, habitID, func(h *habit.Habit, now time.Time) error {
		return timer.Start(&h.Timer, now)
	})
	metrics.RecordTimerTransition("start", err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.event(h, notification.TypeTimerStarted, "Timer started",
		fmt.Sprintf("Session for %q is running.", h.Name), h.UpdatedAt))

	return h, nil
}

func (s *HabitService) PauseTimer(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	h, err := s.update(ctx, userID, habitID, func(h *habit.Habit, now time.Time) error {
		return timer.Pause(&h.Timer, now)
	})
	metrics.RecordTimerTransition("pause", err)
	if err != nil {
		return nil, err
	}

	return h, nil
}

// StopTimer ends the session and folds its minutes into today's entry, which
// becomes completed. Streaks are recomputed and everything lands in one write.
func (s *HabitService) StopTimer(ctx context.Context, userID, habitID, email string) (*StopResult, error) {
	var (
		sessionMinutes  float64
		previousLongest int
		newlyCompleted  bool
	)

	h, err := s.update(ctx, userID, habitID, func(h *habit.Habit, now time.Time) error {
		minutes, err := timer.Stop(&h.Timer, now)
		if err != nil {
			return err
		}

		sessionMinutes = minutes
		previousLongest = h.LongestStreak
		today := habit.Normalize(now)

		if i := h.EntryFor(today); i >= 0 {
			newlyCompleted = h.History[i].Status != habit.StatusCompleted
			h.History[i].Status = habit.StatusCompleted
			h.History[i].DurationMinutes += minutes
		} else {
			newlyCompleted = true
			h.History = append(h.History, habit.HistoryEntry{
				Date:            today,
				Status:          habit.StatusCompleted,
				DurationMinutes: minutes,
			})
		}

		refreshSnapshot(h, today)
		return nil
	})
	metrics.RecordTimerTransition("stop", err)
	if err != nil {
		return nil, err
	}

	metrics.RecordTimerSession(sessionMinutes)
	logger.Info("timer stopped", "user", userID, "habit", habitID, "minutes", timer.Round(sessionMinutes))

	events := []*notification.Notification{
		s.event(h, notification.TypeTimerStopped, "Timer stopped",
			fmt.Sprintf("You spent %.2f minutes on %q.", timer.Round(sessionMinutes), h.Name), h.UpdatedAt),
	}
	if newlyCompleted {
		metrics.RecordCompletion("timer")
		events = append(events, s.completionEvents(h, previousLongest, email, h.UpdatedAt)...)
	}
	s.notify(ctx, events...)

	return &StopResult{Habit: h, SessionMinutes: sessionMinutes}, nil
}

// TimerStatus reports the live timer without changing it.
func (s *HabitService) TimerStatus(ctx context.Context, userID, habitID string) (*TimerStatus, error) {
	h, err := s.repo.GetHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	mode := h.Timer.Mode
	if mode == "" {
		mode = timer.ModeIdle
	}

	return &TimerStatus{
		HabitID:        h.ID,
		Mode:           mode,
		Running:        mode == timer.ModeRunning,
		Paused:         mode == timer.ModePaused,
		ElapsedMinutes: timer.Round(timer.CurrentElapsed(h.Timer, s.clock.Now())),
		StartedAt:      h.Timer.StartedAt,
	}, nil
}
