// Package worker provides the background processor that delivers due
// notifications from the queue.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/metrics"
	"github.com/nadmax/habivance/internal/notification"
	"github.com/nadmax/habivance/internal/queue"
)

const retryBackoff = 10 * time.Second

type Handler func(ctx context.Context, n *notification.Notification) error

type Worker struct {
	id           string
	queue        *queue.Queue
	handlers     map[notification.Type]Handler
	stop         chan struct{}
	stopOnce     sync.Once
	pollInterval time.Duration
	now          func() time.Time
}

func NewWorker(id string, q *queue.Queue) *Worker {
	return &Worker{
		id:           id,
		queue:        q,
		handlers:     make(map[notification.Type]Handler),
		stop:         make(chan struct{}),
		pollInterval: time.Second,
		now:          time.Now,
	}
}

func (w *Worker) RegisterHandler(typ notification.Type, handler Handler) {
	w.handlers[typ] = handler
}

// RegisterDefault installs handler for every type in types that has none yet.
func (w *Worker) RegisterDefault(handler Handler, types ...notification.Type) {
	for _, typ := range types {
		if _, exists := w.handlers[typ]; !exists {
			w.handlers[typ] = handler
		}
	}
}

func (w *Worker) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// Start polls the queue until Stop is called or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	logger.Info("worker started", "worker", w.id)

	for {
		select {
		case <-w.stop:
			logger.Info("worker stopped", "worker", w.id)
			return
		case <-ctx.Done():
			logger.Info("worker stopped", "worker", w.id, "reason", ctx.Err())
			return
		default:
			n, err := w.queue.Dequeue(ctx)
			if err != nil {
				logger.Warn("failed to dequeue notification", "worker", w.id, "err", err)
			}
			if err != nil || n == nil {
				select {
				case <-time.After(w.pollInterval):
				case <-w.stop:
				case <-ctx.Done():
				}
				continue
			}

			w.processNotification(ctx, n)
		}
	}
}

func (w *Worker) processNotification(ctx context.Context, n *notification.Notification) {
	typ := string(n.Type)
	started := w.now()
	metrics.RecordNotificationWaitTime(typ, started.Sub(n.AlertTime))

	logger.Debug("processing notification", "worker", w.id, "id", n.ID, "type", n.Type)

	handler, exists := w.handlers[n.Type]
	if !exists {
		n.Status = notification.StatusFailed
		n.Error = fmt.Sprintf("no handler for notification type: %s", n.Type)
		if err := w.queue.UpdateNotification(ctx, n); err != nil {
			logger.Error("failed to update notification", "id", n.ID, "err", err)
		}
		metrics.RecordNotificationFailed(typ, 0)
		return
	}

	err := handler(ctx, n)
	finished := w.now()
	elapsed := finished.Sub(started)

	if err != nil {
		n.Retries++
		if n.ShouldRetry() {
			n.Status = notification.StatusPending
			n.AlertTime = finished.Add(time.Duration(n.Retries) * retryBackoff)
			if err := w.queue.Reschedule(ctx, n); err != nil {
				logger.Error("failed to reschedule notification", "id", n.ID, "err", err)
			}
			metrics.RecordNotificationRetried(typ)
			logger.Warn("notification failed, will retry", "id", n.ID, "retries", n.Retries, "max", n.MaxRetries, "err", err)
			return
		}

		n.Status = notification.StatusFailed
		n.Error = err.Error()
		if err := w.queue.UpdateNotification(ctx, n); err != nil {
			logger.Error("failed to update failed notification", "id", n.ID, "err", err)
		}
		metrics.RecordNotificationFailed(typ, elapsed)
		logger.Error("notification failed permanently", "id", n.ID, "type", n.Type, "err", err)
		return
	}

	n.Status = notification.StatusSent
	n.SentAt = &finished
	n.Error = ""
	if err := w.queue.UpdateNotification(ctx, n); err != nil {
		logger.Error("failed to update sent notification", "id", n.ID, "err", err)
	}
	metrics.RecordNotificationSent(typ, elapsed)
	logger.Debug("notification delivered", "worker", w.id, "id", n.ID)
}

// Stop ends Start. It never blocks and may be called more than once, before
// or after Start returns.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}
