package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/nadmax/habivance/internal/habit"
)

// MockHabitRepository is an in-memory HabitRepository that records calls and
// enforces the same version check as the SQL implementation.
type MockHabitRepository struct {
	mu               sync.Mutex
	Habits           map[string]*habit.Habit
	GetHabitCalls    []string
	CreateHabitCalls []*habit.Habit
	UpdateHabitCalls []UpdateHabitCall
	DeleteHabitCalls []string
	CreateHabitError error
	GetHabitError    error
	ListHabitsError  error
	UpdateHabitError error
	DeleteHabitError error
	// BeforeUpdate runs inside UpdateHabit before the version check, with the
	// lock released, so tests can simulate a concurrent writer.
	BeforeUpdate func(h *habit.Habit)
}

type UpdateHabitCall struct {
	HabitID string
	Version int
}

func NewMockHabitRepository() *MockHabitRepository {
	return &MockHabitRepository{
		Habits: make(map[string]*habit.Habit),
	}
}

func (m *MockHabitRepository) CreateHabit(ctx context.Context, h *habit.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateHabitCalls = append(m.CreateHabitCalls, h.Clone())

	if m.CreateHabitError != nil {
		return m.CreateHabitError
	}

	for _, existing := range m.Habits {
		if existing.UserID == h.UserID && strings.EqualFold(existing.Name, h.Name) {
			return ErrDuplicate
		}
	}

	m.Habits[h.ID] = h.Clone()
	return nil
}

func (m *MockHabitRepository) GetHabit(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetHabitCalls = append(m.GetHabitCalls, habitID)

	if m.GetHabitError != nil {
		return nil, m.GetHabitError
	}

	h, exists := m.Habits[habitID]
	if !exists || h.UserID != userID {
		return nil, ErrNotFound
	}

	return h.Clone(), nil
}

func (m *MockHabitRepository) FindHabitByName(ctx context.Context, userID, name string) (*habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = strings.TrimSpace(name)
	for _, h := range m.Habits {
		if h.UserID == userID && strings.EqualFold(h.Name, name) {
			return h.Clone(), nil
		}
	}

	return nil, ErrNotFound
}

func (m *MockHabitRepository) ListHabits(ctx context.Context, userID string) ([]*habit.Habit, error) {
	return m.list(func(h *habit.Habit) bool { return h.UserID == userID })
}

func (m *MockHabitRepository) ListAllHabits(ctx context.Context) ([]*habit.Habit, error) {
	return m.list(func(*habit.Habit) bool { return true })
}

func (m *MockHabitRepository) list(keep func(*habit.Habit) bool) ([]*habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListHabitsError != nil {
		return nil, m.ListHabitsError
	}

	habits := []*habit.Habit{}
	for _, h := range m.Habits {
		if keep(h) {
			habits = append(habits, h.Clone())
		}
	}

	// stable order, like ORDER BY created_at
	for i := 1; i < len(habits); i++ {
		for j := i; j > 0 && lessCreated(habits[j], habits[j-1]); j-- {
			habits[j], habits[j-1] = habits[j-1], habits[j]
		}
	}

	return habits, nil
}

func lessCreated(a, b *habit.Habit) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (m *MockHabitRepository) UpdateHabit(ctx context.Context, h *habit.Habit) error {
	if hook := m.beforeUpdate(); hook != nil {
		hook(h)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateHabitCalls = append(m.UpdateHabitCalls, UpdateHabitCall{HabitID: h.ID, Version: h.Version})

	if m.UpdateHabitError != nil {
		return m.UpdateHabitError
	}

	stored, exists := m.Habits[h.ID]
	if !exists || stored.UserID != h.UserID {
		return ErrNotFound
	}
	if stored.Version != h.Version {
		return ErrVersionConflict
	}

	h.Version++
	m.Habits[h.ID] = h.Clone()
	return nil
}

func (m *MockHabitRepository) beforeUpdate() func(*habit.Habit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BeforeUpdate
}

func (m *MockHabitRepository) DeleteHabit(ctx context.Context, userID, habitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteHabitCalls = append(m.DeleteHabitCalls, habitID)

	if m.DeleteHabitError != nil {
		return m.DeleteHabitError
	}

	h, exists := m.Habits[habitID]
	if !exists || h.UserID != userID {
		return ErrNotFound
	}

	delete(m.Habits, habitID)
	return nil
}

func (m *MockHabitRepository) Close() error {
	return nil
}

// Put stores h directly, bypassing the version check.
func (m *MockHabitRepository) Put(h *habit.Habit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Habits[h.ID] = h.Clone()
}

// Stored returns a copy of the habit as currently persisted.
func (m *MockHabitRepository) Stored(habitID string) (*habit.Habit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, exists := m.Habits[habitID]
	if !exists {
		return nil, false
	}
	return h.Clone(), true
}

func (m *MockHabitRepository) GetUpdateHabitCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.UpdateHabitCalls)
}

func (m *MockHabitRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Habits = make(map[string]*habit.Habit)
	m.GetHabitCalls = nil
	m.CreateHabitCalls = nil
	m.UpdateHabitCalls = nil
	m.DeleteHabitCalls = nil
}
