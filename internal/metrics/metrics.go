// Package metrics provides Prometheus metrics for habit tracking, timers and
// notification delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HabitCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habivance_habit_completions_total",
			Help: "Total number of habit completions",
		},
		[]string{"source"},
	)
	HabitSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habivance_habit_skips_total",
			Help: "Total number of habits skipped for the day",
		},
	)
	StreakMilestones = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habivance_streak_milestones_total",
			Help: "Total number of streak milestones reached",
		},
		[]string{"milestone"},
	)
	TimerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habivance_timer_transitions_total",
			Help: "Timer transitions by action and outcome",
		},
		[]string{"action", "outcome"},
	)
	TimerSessionMinutes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "habivance_timer_session_minutes",
			Help:    "Minutes recorded by a stopped timer session",
			Buckets: []float64{1, 5, 10, 15, 30, 45, 60, 90, 120, 240},
		},
	)
	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habivance_version_conflicts_total",
			Help: "Concurrent habit updates that had to be retried",
		},
	)
	RolloverBackfilled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "habivance_rollover_backfilled_habits_total",
			Help: "Habits that received missed-day placeholders during rollover",
		},
	)
	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habivance_notifications_enqueued_total",
			Help: "Total number of notifications enqueued",
		},
		[]string{"type"},
	)
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habivance_notifications_sent_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"type"},
	)
	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habivance_notifications_failed_total",
			Help: "Total number of notifications that exhausted their retries",
		},
		[]string{"type"},
	)
	NotificationsRetried = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habivance_notifications_retried_total",
			Help: "Total number of notification delivery retries",
		},
		[]string{"type"},
	)
	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habivance_notification_duration_seconds",
			Help:    "Notification handler duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type", "status"},
	)
	NotificationWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habivance_notification_wait_time_seconds",
			Help:    "Time between a notification's alert time and its delivery",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
		[]string{"type"},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habivance_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habivance_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "habivance_notification_queue_depth",
			Help: "Notifications waiting for delivery",
		},
	)
	HabitsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "habivance_habits_tracked",
			Help: "Number of habits across all users",
		},
	)
	TimersByMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "habivance_timers",
			Help: "Current number of habit timers by mode",
		},
		[]string{"mode"},
	)
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "habivance_workers_active",
			Help: "Number of currently active workers",
		},
	)
)

func RecordCompletion(source string) {
	HabitCompletions.WithLabelValues(source).Inc()
}

func RecordSkip() {
	HabitSkips.Inc()
}

func RecordMilestone(label string) {
	StreakMilestones.WithLabelValues(label).Inc()
}

func RecordTimerTransition(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	TimerTransitions.WithLabelValues(action, outcome).Inc()
}

func RecordTimerSession(minutes float64) {
	TimerSessionMinutes.Observe(minutes)
}

func RecordVersionConflict() {
	VersionConflicts.Inc()
}

func RecordRolloverBackfill(habits int) {
	RolloverBackfilled.Add(float64(habits))
}

func RecordNotificationEnqueued(notificationType string) {
	NotificationsEnqueued.WithLabelValues(notificationType).Inc()
}

func RecordNotificationSent(notificationType string, duration time.Duration) {
	NotificationsSent.WithLabelValues(notificationType).Inc()
	NotificationDuration.WithLabelValues(notificationType, "sent").Observe(duration.Seconds())
}

func RecordNotificationFailed(notificationType string, duration time.Duration) {
	NotificationsFailed.WithLabelValues(notificationType).Inc()
	NotificationDuration.WithLabelValues(notificationType, "failed").Observe(duration.Seconds())
}

func RecordNotificationRetried(notificationType string) {
	NotificationsRetried.WithLabelValues(notificationType).Inc()
}

func RecordNotificationWaitTime(notificationType string, wait time.Duration) {
	if wait < 0 {
		wait = 0
	}
	NotificationWaitTime.WithLabelValues(notificationType).Observe(wait.Seconds())
}

func UpdateQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

func UpdateHabitsTracked(count int) {
	HabitsTracked.Set(float64(count))
}

func UpdateTimerGauges(timersByMode map[string]int) {
	TimersByMode.Reset()
	for mode, count := range timersByMode {
		TimersByMode.WithLabelValues(mode).Set(float64(count))
	}
}

func UpdateActiveWorkers(count int) {
	WorkersActive.Set(float64(count))
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
