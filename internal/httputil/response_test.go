package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSON(rec, http.StatusCreated, "Habit created", map[string]string{"id": "h1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Habit created", body["message"])
	assert.Equal(t, map[string]any{"id": "h1"}, body["data"])
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSONError(rec, "Habit not found", http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Habit not found", body["message"])
	assert.NotContains(t, body, "data")
}

func TestWriteJSONFailure(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSONFailure(rec, http.StatusOK, "Habit already completed today", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/habits", nil)

	_, ok := UserID(req)
	assert.False(t, ok)

	req.Header.Set(UserIDHeader, "  user-1 ")
	id, ok := UserID(req)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}
