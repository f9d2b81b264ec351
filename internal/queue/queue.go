// Package queue keeps notifications in Redis: a hash holds every notification
// document, a sorted set orders pending deliveries by due time and priority,
// and a per-user sorted set backs the in-app inbox.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/notification"
)

const (
	notificationsKey = "notifications"
	pendingKey       = "notification_queue"
	userKeyPrefix    = "user_notifications:"
)

var ErrNotFound = errors.New("notification not found")

type Queue struct {
	client *redis.Client
	now    func() time.Time
}

func NewQueue(redisAddr string) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Queue{
		client: client,
		now:    time.Now,
	}, nil
}

func userKey(userID string) string {
	return userKeyPrefix + userID
}

func score(n *notification.Notification) float64 {
	inverted := float64(notification.PriorityHigh - n.Priority)
	return float64(n.AlertTime.Unix())*1000 + inverted
}

// Enqueue stores n and schedules it for delivery at n.AlertTime.
func (q *Queue) Enqueue(ctx context.Context, n *notification.Notification) error {
	data, err := n.ToJSON()
	if err != nil {
		return err
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, notificationsKey, n.ID, data)
	pipe.ZAdd(ctx, pendingKey, redis.Z{Score: score(n), Member: n.ID})
	pipe.ZAdd(ctx, userKey(n.UserID), redis.Z{Score: float64(n.CreatedAt.UnixMilli()), Member: n.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return nil
}

// Notify lets the queue stand in wherever habit events are published.
func (q *Queue) Notify(ctx context.Context, n *notification.Notification) error {
	return q.Enqueue(ctx, n)
}

// Dequeue claims the earliest due notification, or returns nil when nothing is
// due. Removal from the pending set is the claim, so two workers never get the
// same notification.
func (q *Queue) Dequeue(ctx context.Context) (*notification.Notification, error) {
	maxScore := float64(q.now().Unix())*1000 + float64(notification.PriorityHigh-notification.PriorityLow)

	results, err := q.client.ZRangeByScore(ctx, pendingKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", maxScore),
		Count: 1,
	}).Result()
	if err != nil || len(results) == 0 {
		return nil, err
	}

	id := results[0]

	removed, err := q.client.ZRem(ctx, pendingKey, id).Result()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		// another worker won
		return nil, nil
	}

	return q.GetNotification(ctx, id)
}

// Reschedule puts n back on the pending set at its AlertTime.
func (q *Queue) Reschedule(ctx context.Context, n *notification.Notification) error {
	if err := q.UpdateNotification(ctx, n); err != nil {
		return err
	}
	return q.client.ZAdd(ctx, pendingKey, redis.Z{Score: score(n), Member: n.ID}).Err()
}

func (q *Queue) UpdateNotification(ctx context.Context, n *notification.Notification) error {
	data, err := n.ToJSON()
	if err != nil {
		return err
	}
	return q.client.HSet(ctx, notificationsKey, n.ID, data).Err()
}

func (q *Queue) GetNotification(ctx context.Context, id string) (*notification.Notification, error) {
	data, err := q.client.HGet(ctx, notificationsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notification.FromJSON(data)
}

// GetUserNotifications returns a user's notifications, newest first.
func (q *Queue) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*notification.Notification, error) {
	ids, err := q.client.ZRevRange(ctx, userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]*notification.Notification, 0, len(ids))
	if len(ids) == 0 {
		return notifications, nil
	}

	values, err := q.client.HMGet(ctx, notificationsKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			continue
		}
		n, err := notification.FromJSON(data)
		if err != nil {
			logger.Warn("skipping unreadable notification", "id", ids[i], "err", err)
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		notifications = append(notifications, n)
	}

	return notifications, nil
}

func (q *Queue) MarkRead(ctx context.Context, userID, id string) error {
	n, err := q.userNotification(ctx, userID, id)
	if err != nil {
		return err
	}

	n.IsRead = true
	return q.UpdateNotification(ctx, n)
}

// MarkAllRead returns how many notifications changed.
func (q *Queue) MarkAllRead(ctx context.Context, userID string) (int, error) {
	unread, err := q.GetUserNotifications(ctx, userID, true)
	if err != nil {
		return 0, err
	}

	for _, n := range unread {
		n.IsRead = true
		if err := q.UpdateNotification(ctx, n); err != nil {
			return 0, err
		}
	}

	return len(unread), nil
}

func (q *Queue) Delete(ctx context.Context, userID, id string) error {
	if _, err := q.userNotification(ctx, userID, id); err != nil {
		return err
	}

	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, notificationsKey, id)
	pipe.ZRem(ctx, pendingKey, id)
	pipe.ZRem(ctx, userKey(userID), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *Queue) userNotification(ctx context.Context, userID, id string) (*notification.Notification, error) {
	n, err := q.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrNotFound
	}
	return n, nil
}

func (q *Queue) GetAllNotifications(ctx context.Context) ([]*notification.Notification, error) {
	all, err := q.client.HGetAll(ctx, notificationsKey).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]*notification.Notification, 0, len(all))
	for _, data := range all {
		n, err := notification.FromJSON(data)
		if err != nil {
			continue
		}
		notifications = append(notifications, n)
	}

	return notifications, nil
}

// Pending reports how many notifications wait for delivery.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, pendingKey).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
