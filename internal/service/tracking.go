package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/metrics"
	"github.com/nadmax/habivance/internal/notification"
	"github.com/nadmax/habivance/internal/streak"
)

const reminderLead = 15 * time.Minute

type StreakView struct {
	HabitID  string      `json:"habit_id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Current  int         `json:"current"`
	Longest  int         `json:"longest"`
	Tier     streak.Tier `json:"tier"`
}

// CompleteHabit marks today as completed. email, when set, receives the
// milestone and record notifications. A missed or skipped entry for today
// is upgraded; an existing completion yields ErrAlreadyCompletedToday and
// nothing is written.
func (s *HabitService) CompleteHabit(ctx context.Context, userID, habitID, email string) (*habit.Habit, error) {
	var previousLongest int

	h, err := s.update(ctx, userID, habitID, func(h *habit.Habit, now time.Time) error {
		previousLongest = h.LongestStreak
		today := habit.Normalize(now)

		if i := h.EntryFor(today); i >= 0 {
			if h.History[i].Status == habit.StatusCompleted {
				return ErrAlreadyCompletedToday
			}
			h.History[i].Status = habit.StatusCompleted
		} else {
			h.History = append(h.History, habit.HistoryEntry{
				Date:   today,
				Status: habit.StatusCompleted,
			})
		}

		refreshSnapshot(h, today)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCompletion("manual")
	logger.Info("habit completed", "user", userID, "habit", habitID, "streak", h.Streak)
	s.notify(ctx, s.completionEvents(h, previousLongest, email, h.UpdatedAt)...)

	return h, nil
}

// SkipHabit marks today as skipped, which ends the current streak. A completed
// day cannot be skipped.
func (s *HabitService) SkipHabit(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	h, err := s.update(ctx, userID, habitID, func(h *habit.Habit, now time.Time) error {
		today := habit.Normalize(now)

		if i := h.EntryFor(today); i >= 0 {
			if h.History[i].Status == habit.StatusCompleted {
				return ErrAlreadyCompletedToday
			}
			h.History[i].Status = habit.StatusSkipped
		} else {
			h.History = append(h.History, habit.HistoryEntry{
				Date:   today,
				Status: habit.StatusSkipped,
			})
		}

		refreshSnapshot(h, today)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSkip()
	return h, nil
}

// Streaks computes every habit's streaks as of today, longest current streak
// first. Nothing is written.
func (s *HabitService) Streaks(ctx context.Context, userID string) ([]StreakView, error) {
	habits, err := s.repo.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := habit.Normalize(s.clock.Now())
	views := make([]StreakView, 0, len(habits))
	for _, h := range habits {
		snap := streak.Compute(h.History, today)
		views = append(views, StreakView{
			HabitID:  h.ID,
			Name:     h.Name,
			Category: h.Category,
			Current:  snap.Current,
			Longest:  snap.Longest,
			Tier:     streak.TierFor(snap.Current),
		})
	}

	slices.SortStableFunc(views, func(a, b StreakView) int {
		if c := cmp.Compare(b.Current, a.Current); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	return views, nil
}

// Rollover closes past days: every habit gets a missed entry for each day
// since it was created that has none, and its cached streaks are refreshed.
// It returns how many habits were written.
func (s *HabitService) Rollover(ctx context.Context) (int, error) {
	habits, err := s.repo.ListAllHabits(ctx)
	if err != nil {
		return 0, err
	}

	today := habit.Normalize(s.clock.Now())
	updated := 0
	for _, h := range habits {
		if !needsRollover(h, today) {
			continue
		}

		_, err := s.update(ctx, h.UserID, h.ID, func(h *habit.Habit, now time.Time) error {
			today := habit.Normalize(now)
			h.History = streak.Backfill(h.History, h.CreatedAt, today)
			refreshSnapshot(h, today)
			return nil
		})
		if err != nil {
			logger.Error("rollover failed", "habit", h.ID, "err", err)
			continue
		}
		updated++
	}

	metrics.RecordRolloverBackfill(updated)
	logger.Info("rollover complete", "habits", len(habits), "updated", updated)

	return updated, nil
}

func needsRollover(h *habit.Habit, today time.Time) bool {
	backfilled := streak.Backfill(h.History, h.CreatedAt, today)
	if len(backfilled) != len(h.History) {
		return true
	}
	snap := streak.Compute(h.History, today)
	return snap.Current != h.Streak || snap.Longest != h.LongestStreak
}

// ScheduleReminder queues a reminder 15 minutes before the habit's scheduled
// time on day. It returns nil without error when that moment has passed.
func (s *HabitService) ScheduleReminder(ctx context.Context, userID, habitID string, day time.Time, email string) (*notification.Notification, error) {
	h, err := s.repo.GetHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if h.ScheduledTime == "" {
		return nil, ErrNoSchedule
	}

	hours, minutes, err := parseClock(h.ScheduledTime)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	midnight := habit.Normalize(day.In(now.Location()))
	alertAt := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), hours, minutes, 0, 0, midnight.Location()).
		Add(-reminderLead)
	if !alertAt.After(now) {
		return nil, nil
	}

	n := s.event(h, notification.TypeReminder, "Habit reminder",
		fmt.Sprintf("Time to %s! Scheduled at %s", h.Name, h.ScheduledTime), now)
	n.AlertTime = alertAt
	n.Email = email
	n.Priority = notification.PriorityHigh

	if s.notifier == nil {
		return n, nil
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder: %w", err)
	}
	metrics.RecordNotificationEnqueued(string(n.Type))

	return n, nil
}

func parseClock(value string) (int, int, error) {
	hh, mm, ok := strings.Cut(value, ":")
	if !ok {
		return 0, 0, habit.ErrInvalidSchedule
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, 0, habit.ErrInvalidSchedule
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, 0, habit.ErrInvalidSchedule
	}
	return hours, minutes, nil
}

func refreshSnapshot(h *habit.Habit, today time.Time) {
	snap := streak.Compute(h.History, today)
	h.Streak = snap.Current
	h.LongestStreak = snap.Longest
}

// completionEvents builds the notifications for a habit that was just
// completed for today. Streak notifications are addressed to email.
func (s *HabitService) completionEvents(h *habit.Habit, previousLongest int, email string, now time.Time) []*notification.Notification {
	events := []*notification.Notification{
		s.event(h, notification.TypeHabitCompleted, "Habit completed",
			fmt.Sprintf("You completed %q. %s", h.Name, streak.TierFor(h.Streak).Message), now),
	}

	if streak.IsMilestone(h.Streak) {
		label := streak.MilestoneLabel(h.Streak)
		metrics.RecordMilestone(label)

		n := s.event(h, notification.TypeHabitMilestone, label+" streak!",
			fmt.Sprintf("%d days in a row of %q. Keep going!", h.Streak, h.Name), now)
		n.Priority = notification.PriorityHigh
		n.Email = email
		events = append(events, n)
	}

	if h.Streak > 3 && h.Streak == h.LongestStreak && h.Streak > previousLongest {
		n := s.event(h, notification.TypeHabitRecord, "New personal record",
			fmt.Sprintf("%d days is your longest streak yet for %q.", h.Streak, h.Name), now)
		n.Email = email
		events = append(events, n)
	}

	return events
}
