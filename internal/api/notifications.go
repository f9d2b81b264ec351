package api

import (
	"net/http"
	"strings"

	"github.com/nadmax/habivance/internal/httputil"
)

func (a *API) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := a.queue.GetUserNotifications(r.Context(), userID, unreadOnly)
	if err != nil {
		writeError(w, err, "Failed to retrieve notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "Notifications retrieved successfully", notifications)
}

func (a *API) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := a.queue.MarkAllRead(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to mark notifications as read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, "All notifications marked as read", map[string]int{"updated": count})
}

// handleNotificationByID serves DELETE /api/notifications/{id} and
// POST /api/notifications/{id}/read.
func (a *API) handleNotificationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/notifications/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		httputil.WriteJSONError(w, "Notification ID is required", http.StatusBadRequest)
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	switch {
	case action == "" && r.Method == http.MethodDelete:
		if err := a.queue.Delete(r.Context(), userID, id); err != nil {
			writeError(w, err, "Failed to delete notification")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, "Notification deleted", map[string]string{"notification_id": id})
	case action == "read" && r.Method == http.MethodPost:
		if err := a.queue.MarkRead(r.Context(), userID, id); err != nil {
			writeError(w, err, "Failed to mark notification as read")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, "Notification marked as read", map[string]string{"notification_id": id})
	case action == "" || action == "read":
		httputil.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		httputil.WriteJSONError(w, "Invalid endpoint", http.StatusNotFound)
	}
}
