// Package habit defines the habit domain model shared by the service, persistence
// and analytics layers: the habit record itself, its dated history log and the
// cached streak values.
package habit

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nadmax/habivance/internal/timer"
)

type (
	Status       string
	Priority     string
	HistoryEntry struct {
		Date            time.Time `json:"date"`
		Status          Status    `json:"status"`
		DurationMinutes float64   `json:"duration_minutes"`
	}
	Habit struct {
		ID              string         `json:"id"`
		UserID          string         `json:"user_id"`
		Name            string         `json:"name"`
		Category        string         `json:"category"`
		Description     string         `json:"description"`
		DurationMinutes int            `json:"duration_minutes"`
		Priority        Priority       `json:"priority"`
		ScheduledTime   string         `json:"scheduled_time,omitempty"`
		Timer           timer.State    `json:"timer"`
		History         []HistoryEntry `json:"history"`
		Streak          int            `json:"streak"`
		LongestStreak   int            `json:"longest_streak"`
		Version         int            `json:"version"`
		CreatedAt       time.Time      `json:"created_at"`
		UpdatedAt       time.Time      `json:"updated_at"`
	}
)

const (
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
	StatusSkipped   Status = "skipped"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const DefaultCategory = "General"

var (
	ErrNameRequired     = errors.New("habit name is required")
	ErrInvalidDuration  = errors.New("duration must be a positive number of minutes")
	ErrInvalidPriority  = errors.New("priority must be one of low, medium, high")
	ErrInvalidSchedule  = errors.New("scheduled time must be HH:MM")
	scheduledTimeLayout = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusMissed, StatusSkipped:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func NewHabit(userID, name string, durationMinutes int, now time.Time) *Habit {
	return &Habit{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            strings.TrimSpace(name),
		Category:        DefaultCategory,
		DurationMinutes: durationMinutes,
		Priority:        PriorityMedium,
		Timer:           timer.NewState(),
		History:         []HistoryEntry{},
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (h *Habit) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrNameRequired
	}
	if h.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if !h.Priority.Valid() {
		return ErrInvalidPriority
	}
	if h.ScheduledTime != "" && !scheduledTimeLayout.MatchString(h.ScheduledTime) {
		return ErrInvalidSchedule
	}
	return nil
}

// Normalize strips the time of day, keeping t's location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay compares calendar dates, ignoring time of day and UTC offsets.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// EntryFor returns the index of the history entry for day, or -1.
func (h *Habit) EntryFor(day time.Time) int {
	for i, e := range h.History {
		if SameDay(e.Date, day) {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate a habit without touching the
// original's history slice.
func (h *Habit) Clone() *Habit {
	c := *h
	c.History = append([]HistoryEntry(nil), h.History...)
	if h.Timer.StartedAt != nil {
		startedAt := *h.Timer.StartedAt
		c.Timer.StartedAt = &startedAt
	}
	return &c
}

func (h *Habit) ToJSON() (string, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func HabitFromJSON(data string) (*Habit, error) {
	var h Habit
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return nil, err
	}

	return &h, nil
}
