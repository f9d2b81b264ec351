// Package service implements the habit use cases: it loads a habit, runs the
// timer and streak rules against it, writes the result back in one conditional
// update and publishes the resulting notifications.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/metrics"
	"github.com/nadmax/habivance/internal/notification"
	"github.com/nadmax/habivance/internal/repository"
)

const maxUpdateAttempts = 3

var (
	ErrAlreadyCompletedToday = errors.New("habit already completed today")
	ErrDuplicateHabit        = errors.New("a habit with this name already exists")
	ErrNoSchedule            = errors.New("habit has no scheduled time")
	ErrNotFound              = repository.ErrNotFound
)

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location, which decides where a day
// starts and ends.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

type Notifier interface {
	Notify(ctx context.Context, n *notification.Notification) error
}

type HabitService struct {
	repo     repository.HabitRepository
	clock    Clock
	notifier Notifier
	locks    *keyedMutex
}

// NewHabitService wires the service. notifier may be nil, in which case no
// notifications are produced.
func NewHabitService(repo repository.HabitRepository, clock Clock, notifier Notifier) *HabitService {
	if clock == nil {
		clock = SystemClock{}
	}

	return &HabitService{
		repo:     repo,
		clock:    clock,
		notifier: notifier,
		locks:    newKeyedMutex(),
	}
}

// Today is the current calendar day in the service's clock location.
func (s *HabitService) Today() time.Time {
	return habit.Normalize(s.clock.Now())
}

type CreateHabitInput struct {
	Name            string         `json:"name"`
	Category        string         `json:"category"`
	Description     string         `json:"description"`
	DurationMinutes int            `json:"duration_minutes"`
	Priority        habit.Priority `json:"priority"`
	ScheduledTime   string         `json:"scheduled_time"`
}

// UpdateHabitInput changes only the fields that are set.
type UpdateHabitInput struct {
	Name            *string         `json:"name"`
	Category        *string         `json:"category"`
	Description     *string         `json:"description"`
	DurationMinutes *int            `json:"duration_minutes"`
	Priority        *habit.Priority `json:"priority"`
	ScheduledTime   *string         `json:"scheduled_time"`
}

func (s *HabitService) CreateHabit(ctx context.Context, userID string, input CreateHabitInput) (*habit.Habit, error) {
	now := s.clock.Now()

	h := habit.NewHabit(userID, input.Name, input.DurationMinutes, now)
	if input.Category != "" {
		h.Category = input.Category
	}
	if input.Priority != "" {
		h.Priority = input.Priority
	}
	h.Description = input.Description
	h.ScheduledTime = input.ScheduledTime

	if err := h.Validate(); err != nil {
		return nil, err
	}

	_, err := s.repo.FindHabitByName(ctx, userID, h.Name)
	if err == nil {
		return nil, ErrDuplicateHabit
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if err := s.repo.CreateHabit(ctx, h); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateHabit
		}
		return nil, err
	}

	logger.Info("habit created", "user", userID, "habit", h.ID, "name", h.Name)
	s.notify(ctx, s.event(h, notification.TypeHabitCreated, "Habit created",
		fmt.Sprintf("You started tracking %q. Good luck!", h.Name), now))

	return h, nil
}

// ListHabits returns the user's habits, optionally limited to one category.
func (s *HabitService) ListHabits(ctx context.Context, userID, category string) ([]*habit.Habit, error) {
	habits, err := s.repo.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return habits, nil
	}

	filtered := []*habit.Habit{}
	for _, h := range habits {
		if h.Category == category {
			filtered = append(filtered, h)
		}
	}
	return filtered, nil
}

func (s *HabitService) GetHabit(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	return s.repo.GetHabit(ctx, userID, habitID)
}

func (s *HabitService) UpdateHabit(ctx context.Context, userID, habitID string, input UpdateHabitInput) (*habit.Habit, error) {
	if input.Name != nil {
		existing, err := s.repo.FindHabitByName(ctx, userID, *input.Name)
		if err == nil && existing.ID != habitID {
			return nil, ErrDuplicateHabit
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	h, err := s.update(ctx, userID, habitID, func(h *habit.Habit, _ time.Time) error {
		if input.Name != nil {
			h.Name = strings.TrimSpace(*input.Name)
		}
		if input.Category != nil {
			h.Category = *input.Category
		}
		if input.Description != nil {
			h.Description = *input.Description
		}
		if input.DurationMinutes != nil {
			h.DurationMinutes = *input.DurationMinutes
		}
		if input.Priority != nil {
			h.Priority = *input.Priority
		}
		if input.ScheduledTime != nil {
			h.ScheduledTime = *input.ScheduledTime
		}
		return h.Validate()
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrDuplicateHabit
	}
	return h, err
}

func (s *HabitService) DeleteHabit(ctx context.Context, userID, habitID string) error {
	unlock := s.locks.Lock(habitID)
	defer unlock()

	h, err := s.repo.GetHabit(ctx, userID, habitID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteHabit(ctx, userID, habitID); err != nil {
		return err
	}

	logger.Info("habit deleted", "user", userID, "habit", habitID)
	s.notify(ctx, s.event(h, notification.TypeHabitDeleted, "Habit deleted",
		fmt.Sprintf("%q was deleted. Final streak: %d days, best: %d.", h.Name, h.Streak, h.LongestStreak),
		s.clock.Now()))

	return nil
}

// update serializes writers on habitID, applies mutate to a freshly loaded
// habit and writes it back conditioned on the version it was read at. A
// version conflict reloads and reapplies mutate. An error from mutate aborts
// without writing.
func (s *HabitService) update(ctx context.Context, userID, habitID string, mutate func(h *habit.Habit, now time.Time) error) (*habit.Habit, error) {
	unlock := s.locks.Lock(habitID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		h, err := s.repo.GetHabit(ctx, userID, habitID)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		if err := mutate(h, now); err != nil {
			return nil, err
		}
		h.UpdatedAt = now

		err = s.repo.UpdateHabit(ctx, h)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) || attempt >= maxUpdateAttempts {
			return nil, err
		}

		metrics.RecordVersionConflict()
		logger.Debug("version conflict, retrying", "habit", habitID, "attempt", attempt)
	}
}

func (s *HabitService) event(h *habit.Habit, typ notification.Type, title, message string, now time.Time) *notification.Notification {
	n := notification.New(h.UserID, typ, title, message, now)
	n.HabitID = h.ID
	n.Data = map[string]any{
		"habit_name": h.Name,
		"streak":     h.Streak,
	}
	return n
}

// notify publishes best effort: a failed notification never fails the
// operation that produced it.
func (s *HabitService) notify(ctx context.Context, notifications ...*notification.Notification) {
	if s.notifier == nil {
		return
	}

	for _, n := range notifications {
		if err := s.notifier.Notify(ctx, n); err != nil {
			logger.Warn("failed to publish notification", "type", n.Type, "user", n.UserID, "err", err)
			continue
		}
		metrics.RecordNotificationEnqueued(string(n.Type))
	}
}
