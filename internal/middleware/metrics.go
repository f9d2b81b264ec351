// Package middleware provides HTTP middleware for metrics collection and
// request logging.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/metrics"
)

var recordHTTPRequest = metrics.RecordHTTPRequest

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := normalizeEndpoint(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		recordHTTPRequest(r.Method, endpoint, status, duration)
	})
}

// LoggingMiddleware logs one line per request at debug level, or warn for
// server errors.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		keyvals := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		}
		if wrapped.statusCode >= http.StatusInternalServerError {
			logger.Warn("request failed", keyvals...)
			return
		}
		logger.Debug("request", keyvals...)
	})
}

func normalizeEndpoint(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/habits/"):
		parts := strings.Split(strings.TrimPrefix(path, "/api/habits/"), "/")
		if len(parts) == 1 {
			return "/api/habits/:id"
		}
		if len(parts) == 2 {
			return "/api/habits/:id/" + parts[1]
		}

		return path
	case strings.HasPrefix(path, "/api/timer/status/"):
		return "/api/timer/status/:habitId"
	case strings.HasPrefix(path, "/api/notifications/") && path != "/api/notifications/read-all":
		parts := strings.Split(strings.TrimPrefix(path, "/api/notifications/"), "/")
		if len(parts) >= 2 && parts[1] == "read" {
			return "/api/notifications/:id/read"
		}

		return "/api/notifications/:id"
	default:
		return path
	}
}
