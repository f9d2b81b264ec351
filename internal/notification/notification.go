// Package notification defines the in-app and email notifications produced by
// habit events, and their JSON form on the queue.
package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type (
	Type         string
	Status       string
	Priority     int
	Notification struct {
		ID         string         `json:"id"`
		UserID     string         `json:"user_id"`
		HabitID    string         `json:"habit_id,omitempty"`
		Type       Type           `json:"type"`
		Title      string         `json:"title"`
		Message    string         `json:"message"`
		Email      string         `json:"email,omitempty"`
		Data       map[string]any `json:"data,omitempty"`
		Priority   Priority       `json:"priority"`
		Status     Status         `json:"status"`
		IsRead     bool           `json:"is_read"`
		Retries    int            `json:"retries"`
		MaxRetries int            `json:"max_retries"`
		AlertTime  time.Time      `json:"alert_time"`
		CreatedAt  time.Time      `json:"created_at"`
		SentAt     *time.Time     `json:"sent_at,omitempty"`
		Error      string         `json:"error,omitempty"`
	}
)

const (
	TypeHabitCreated   Type = "HABIT_CREATED"
	TypeHabitCompleted Type = "HABIT_COMPLETED"
	TypeHabitMilestone Type = "HABIT_MILESTONE"
	TypeHabitRecord    Type = "HABIT_RECORD"
	TypeHabitDeleted   Type = "HABIT_DELETED"
	TypeTimerStarted   Type = "TIMER_STARTED"
	TypeTimerStopped   Type = "TIMER_STOPPED"
	TypeReminder       Type = "REMINDER"
	TypeWeeklyDigest   Type = "WEEKLY_DIGEST"
)

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 5
	PriorityHigh   Priority = 10
)

const DefaultMaxRetries = 3

// New builds a pending notification due at now.
func New(userID string, typ Type, title, message string, now time.Time) *Notification {
	return &Notification{
		ID:         uuid.New().String(),
		UserID:     userID,
		Type:       typ,
		Title:      title,
		Message:    message,
		Priority:   PriorityNormal,
		Status:     StatusPending,
		MaxRetries: DefaultMaxRetries,
		AlertTime:  now,
		CreatedAt:  now,
	}
}

func (n *Notification) ShouldRetry() bool {
	return n.Retries < n.MaxRetries
}

func (n *Notification) ToJSON() (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func FromJSON(data string) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		return nil, err
	}

	return &n, nil
}
