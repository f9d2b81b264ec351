// Package repository persists habits, with their timer state and history log,
// behind a driver-agnostic interface.
package repository

import (
	"context"
	"errors"

	"github.com/nadmax/habivance/internal/habit"
)

var (
	ErrNotFound = errors.New("habit not found")
	// ErrVersionConflict means the habit changed since it was read; the caller
	// should reload and reapply its change.
	ErrVersionConflict = errors.New("habit was modified concurrently")
)

type HabitRepository interface {
	CreateHabit(ctx context.Context, h *habit.Habit) error
	GetHabit(ctx context.Context, userID, habitID string) (*habit.Habit, error)
	FindHabitByName(ctx context.Context, userID, name string) (*habit.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]*habit.Habit, error)
	ListAllHabits(ctx context.Context) ([]*habit.Habit, error)
	// UpdateHabit writes h only if the stored version still equals h.Version,
	// then bumps h.Version.
	UpdateHabit(ctx context.Context, h *habit.Habit) error
	DeleteHabit(ctx context.Context, userID, habitID string) error
	Close() error
}
