// Package dashboard computes habit analytics and serves them over HTTP.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/httputil"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/notification"
	"github.com/nadmax/habivance/internal/service"
)

const (
	defaultRateDays = 30
	maxRateDays     = 365
	dateLayout      = "2006-01-02"
)

type HabitSource interface {
	ListHabits(ctx context.Context, userID, category string) ([]*habit.Habit, error)
	Streaks(ctx context.Context, userID string) ([]service.StreakView, error)
	Today() time.Time
}

type Dashboard struct {
	habits   HabitSource
	notifier service.Notifier
}

func NewDashboard(habits HabitSource, notifier service.Notifier) *Dashboard {
	return &Dashboard{habits: habits, notifier: notifier}
}

func (d *Dashboard) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/analytics/daily", d.GetDaily)
	mux.HandleFunc("/api/analytics/weekly", d.GetWeekly)
	mux.HandleFunc("/api/analytics/monthly", d.GetMonthly)
	mux.HandleFunc("/api/analytics/streaks", d.GetStreaks)
	mux.HandleFunc("/api/analytics/completion-rate", d.GetCompletionRate)
	mux.HandleFunc("/api/analytics/digest", d.RequestDigest)
}

func (d *Dashboard) load(w http.ResponseWriter, r *http.Request) (string, []*habit.Habit, bool) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", nil, false
	}

	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.WriteJSONError(w, "Missing user identity", http.StatusUnauthorized)
		return "", nil, false
	}

	habits, err := d.habits.ListHabits(r.Context(), userID, "")
	if err != nil {
		logger.Error("failed to load habits for analytics", "user", userID, "err", err)
		httputil.WriteJSONError(w, "Failed to retrieve statistics", http.StatusInternalServerError)
		return "", nil, false
	}

	return userID, habits, true
}

// GetDaily accepts an optional ?date=YYYY-MM-DD, defaulting to today.
func (d *Dashboard) GetDaily(w http.ResponseWriter, r *http.Request) {
	day := d.habits.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, day.Location())
		if err != nil {
			httputil.WriteJSONError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	_, habits, ok := d.load(w, r)
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Daily statistics retrieved successfully", Daily(habits, day))
}

func (d *Dashboard) GetWeekly(w http.ResponseWriter, r *http.Request) {
	_, habits, ok := d.load(w, r)
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Weekly statistics retrieved successfully", Weekly(habits, d.habits.Today()))
}

func (d *Dashboard) GetMonthly(w http.ResponseWriter, r *http.Request) {
	_, habits, ok := d.load(w, r)
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Monthly statistics retrieved successfully", Monthly(habits, d.habits.Today()))
}

func (d *Dashboard) GetCompletionRate(w http.ResponseWriter, r *http.Request) {
	days := defaultRateDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRateDays {
			httputil.WriteJSONError(w, "days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		days = n
	}

	_, habits, ok := d.load(w, r)
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Completion rate calculated successfully", CompletionRate(habits, d.habits.Today(), days))
}

func (d *Dashboard) GetStreaks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.WriteJSONError(w, "Missing user identity", http.StatusUnauthorized)
		return
	}

	streaks, err := d.habits.Streaks(r.Context(), userID)
	if err != nil {
		logger.Error("failed to compute streaks", "user", userID, "err", err)
		httputil.WriteJSONError(w, "Failed to retrieve streak data", http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Streak data retrieved successfully", streaks)
}

type digestRequest struct {
	Email string `json:"email"`
}

// RequestDigest queues a weekly digest email; the worker builds and sends it.
func (d *Dashboard) RequestDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.WriteJSONError(w, "Missing user identity", http.StatusUnauthorized)
		return
	}

	var req digestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		httputil.WriteJSONError(w, "email is required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	n := notification.New(userID, notification.TypeWeeklyDigest, "Your weekly habit digest",
		"Here is how your habits went over the last 7 days.", now)
	n.Email = req.Email
	n.Priority = notification.PriorityLow

	if err := d.notifier.Notify(r.Context(), n); err != nil {
		logger.Error("failed to enqueue digest", "user", userID, "err", err)
		httputil.WriteJSONError(w, "Failed to schedule digest", http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, "Weekly digest scheduled", map[string]string{"notification_id": n.ID})
}
