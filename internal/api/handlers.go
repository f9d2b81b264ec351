// Package api exposes the habit service over a JSON REST interface.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nadmax/habivance/internal/dashboard"
	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/httputil"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/queue"
	"github.com/nadmax/habivance/internal/recommend"
	"github.com/nadmax/habivance/internal/repository"
	"github.com/nadmax/habivance/internal/service"
	"github.com/nadmax/habivance/internal/timer"
)

const dateLayout = "2006-01-02"

type API struct {
	habits *service.HabitService
	queue  *queue.Queue
	mux    *http.ServeMux
}

type TimerRequest struct {
	HabitID string `json:"habitId"`
	Email   string `json:"email"`
}

// CompleteRequest is the optional body of POST /api/habits/{id}/complete.
type CompleteRequest struct {
	Email string `json:"email"`
}

type ReminderRequest struct {
	Date  string `json:"date"`
	Email string `json:"email"`
}

func NewAPI(habits *service.HabitService, q *queue.Queue) *API {
	api := &API{
		habits: habits,
		queue:  q,
		mux:    http.NewServeMux(),
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.mux.HandleFunc("/api/habits", a.handleHabits)
	a.mux.HandleFunc("/api/habits/", a.handleHabitByID)

	a.mux.HandleFunc("/api/timer/start", a.handleTimerAction)
	a.mux.HandleFunc("/api/timer/pause", a.handleTimerAction)
	a.mux.HandleFunc("/api/timer/stop", a.handleTimerAction)
	a.mux.HandleFunc("/api/timer/status/", a.handleTimerStatus)

	a.mux.HandleFunc("/api/notifications", a.handleNotifications)
	a.mux.HandleFunc("/api/notifications/read-all", a.handleMarkAllRead)
	a.mux.HandleFunc("/api/notifications/", a.handleNotificationByID)

	dashboard.NewDashboard(a.habits, a.queue).RegisterRoutes(a.mux)
	recommend.NewHandler(nil).RegisterRoutes(a.mux)
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	defer func() {
		if err := r.Body.Close(); err != nil {
			logger.Warn("failed to close request body", "err", err)
		}
	}()

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.WriteJSONError(w, "Missing user identity", http.StatusUnauthorized)
	}
	return userID, ok
}

// writeError maps service and domain errors onto HTTP statuses. Anything it
// does not recognize is logged and answered with a 500 carrying fallback.
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrAlreadyCompletedToday):
		httputil.WriteJSONFailure(w, http.StatusOK, "Habit already completed today", nil)
	case errors.Is(err, timer.ErrInvalidTransition),
		errors.Is(err, habit.ErrNameRequired),
		errors.Is(err, habit.ErrInvalidDuration),
		errors.Is(err, habit.ErrInvalidPriority),
		errors.Is(err, habit.ErrInvalidSchedule),
		errors.Is(err, service.ErrNoSchedule):
		httputil.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrNotFound):
		httputil.WriteJSONError(w, "Habit not found", http.StatusNotFound)
	case errors.Is(err, queue.ErrNotFound):
		httputil.WriteJSONError(w, "Notification not found", http.StatusNotFound)
	case errors.Is(err, service.ErrDuplicateHabit):
		httputil.WriteJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrVersionConflict):
		httputil.WriteJSONError(w, "Habit is being modified, please retry", http.StatusConflict)
	default:
		logger.Error(fallback, "err", err)
		httputil.WriteJSONError(w, fallback, http.StatusInternalServerError)
	}
}

func (a *API) handleHabits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createHabit(w, r)
	case http.MethodGet:
		a.listHabits(w, r)
	default:
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) createHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var input service.CreateHabitInput
	if err := decodeBody(r, &input); err != nil {
		httputil.WriteJSONError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	h, err := a.habits.CreateHabit(r.Context(), userID, input)
	if err != nil {
		writeError(w, err, "Failed to create habit")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, "Habit created successfully", h)
}

func (a *API) listHabits(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	habits, err := a.habits.ListHabits(r.Context(), userID, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err, "Failed to retrieve habits")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Habits retrieved successfully", habits)
}

// handleHabitByID serves /api/habits/{id} and /api/habits/{id}/{action}.
func (a *API) handleHabitByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/habits/"), "/")
	habitID, action, _ := strings.Cut(rest, "/")
	if habitID == "" {
		httputil.WriteJSONError(w, "Habit ID is required", http.StatusBadRequest)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getHabit(w, r, userID, habitID)
		case http.MethodPut:
			a.updateHabit(w, r, userID, habitID)
		case http.MethodDelete:
			a.deleteHabit(w, r, userID, habitID)
		default:
			httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "complete", "skip", "reminder":
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch action {
		case "complete":
			a.completeHabit(w, r, userID, habitID)
		case "skip":
			a.skipHabit(w, r, userID, habitID)
		default:
			a.scheduleReminder(w, r, userID, habitID)
		}
	default:
		httputil.WriteJSONError(w, "Invalid endpoint", http.StatusNotFound)
	}
}

func (a *API) getHabit(w http.ResponseWriter, r *http.Request, userID, habitID string) {
	h, err := a.habits.GetHabit(r.Context(), userID, habitID)
	if err != nil {
		writeError(w, err, "Failed to retrieve habit")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Habit retrieved successfully", h)
}

func (a *API) updateHabit(w http.ResponseWriter, r *http.Request, userID, habitID string) {
	var input service.UpdateHabitInput
	if err := decodeBody(r, &input); err != nil {
		httputil.WriteJSONError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	h, err := a.habits.UpdateHabit(r.Context(), userID, habitID, input)
	if err != nil {
		writeError(w, err, "Failed to update habit")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Habit updated successfully", h)
}

func (a *API) deleteHabit(w http.ResponseWriter, r *http.Request, userID, habitID string) {
	if err := a.habits.DeleteHabit(r.Context(), userID, habitID); err != nil {
		writeError(w, err, "Failed to delete habit")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Habit deleted successfully", map[string]string{"habit_id": habitID})
}

func (a *API) completeHabit(w http.ResponseWriter, r *http.Request, userID, habitID string) {
	var req CompleteRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteJSONError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	h, err := a.habits.CompleteHabit(r.Context(), userID, habitID, strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, err, "Failed to complete habit")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Habit marked as completed", h)
}

func (a *API) skipHabit(w http.ResponseWriter, r *http.Request, userID, habitID string) {
	h, err := a.habits.SkipHabit(r.Context(), userID, habitID)
	if err != nil {
		writeError(w, err, "Failed to skip habit")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Habit skipped for today", h)
}

func (a *API) scheduleReminder(w http.ResponseWriter, r *http.Request, userID, habitID string) {
	var req ReminderRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteJSONError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	day := a.habits.Today()
	if req.Date != "" {
		parsed, err := time.ParseInLocation(dateLayout, req.Date, day.Location())
		if err != nil {
			httputil.WriteJSONError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	n, err := a.habits.ScheduleReminder(r.Context(), userID, habitID, day, req.Email)
	if err != nil {
		writeError(w, err, "Failed to schedule reminder")
		return
	}
	if n == nil {
		httputil.WriteJSONFailure(w, http.StatusOK, "Reminder time has already passed", nil)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, "Reminder scheduled", n)
}

// handleTimerAction serves POST /api/timer/{start,pause,stop}.
func (a *API) handleTimerAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req TimerRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteJSONError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.HabitID == "" {
		httputil.WriteJSONError(w, "habitId is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	switch strings.TrimPrefix(r.URL.Path, "/api/timer/") {
	case "start":
		h, err := a.habits.StartTimer(ctx, userID, req.HabitID)
		if err != nil {
			writeError(w, err, "Failed to start timer")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, "Timer started", h)
	case "pause":
		h, err := a.habits.PauseTimer(ctx, userID, req.HabitID)
		if err != nil {
			writeError(w, err, "Failed to pause timer")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, "Timer paused", h)
	case "stop":
		res, err := a.habits.StopTimer(ctx, userID, req.HabitID, strings.TrimSpace(req.Email))
		if err != nil {
			writeError(w, err, "Failed to stop timer")
			return
		}
		res.SessionMinutes = timer.Round(res.SessionMinutes)
		httputil.WriteJSON(w, http.StatusOK, "Timer stopped and habit completed", res)
	default:
		httputil.WriteJSONError(w, "Invalid endpoint", http.StatusNotFound)
	}
}

func (a *API) handleTimerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	habitID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/timer/status/"), "/")
	if habitID == "" {
		httputil.WriteJSONError(w, "Habit ID is required", http.StatusBadRequest)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	status, err := a.habits.TimerStatus(r.Context(), userID, habitID)
	if err != nil {
		writeError(w, err, "Failed to retrieve timer status")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Timer status retrieved successfully", status)
}
