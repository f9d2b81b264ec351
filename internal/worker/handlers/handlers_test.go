package handlers

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/notification"
)

type fakeMailClient struct {
	mu     sync.Mutex
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeMailClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, email)

	status := f.status
	if status == 0 {
		status = 202
	}
	return &rest.Response{StatusCode: status}, nil
}

func html(email *mail.SGMailV3) string {
	for _, c := range email.Content {
		if c.Type == "text/html" {
			return c.Value
		}
	}
	return ""
}

func recipient(email *mail.SGMailV3) string {
	return email.Personalizations[0].To[0].Address
}

func newNotification(typ notification.Type, email string, data map[string]any) *notification.Notification {
	n := notification.New("user-1", typ, "title", "Time to Walk! Scheduled at 09:00", time.Now())
	n.Email = email
	n.Data = data
	return n
}

func TestReminder(t *testing.T) {
	client := &fakeMailClient{}
	sender := NewEmailSender(client, "Habivance", "noreply@habivance.test")

	n := newNotification(notification.TypeReminder, "me@example.com", map[string]any{"habit_name": "Walk", "streak": 3})
	require.NoError(t, sender.Reminder(context.Background(), n))

	require.Len(t, client.sent, 1)
	email := client.sent[0]
	assert.Equal(t, "Reminder: Walk", email.Subject)
	assert.Equal(t, "noreply@habivance.test", email.From.Address)
	assert.Equal(t, "me@example.com", recipient(email))
	assert.Contains(t, html(email), "<strong>Walk</strong>")
	assert.Contains(t, html(email), "Scheduled at 09:00")
}

func TestReminder_InAppOnly(t *testing.T) {
	client := &fakeMailClient{}
	sender := NewEmailSender(client, "Habivance", "noreply@habivance.test")

	n := newNotification(notification.TypeReminder, "", map[string]any{"habit_name": "Walk"})
	require.NoError(t, sender.Reminder(context.Background(), n))
	assert.Empty(t, client.sent)
}

func TestStreak(t *testing.T) {
	client := &fakeMailClient{}
	sender := NewEmailSender(client, "Habivance", "noreply@habivance.test")

	// numbers come back from the queue as float64
	n := newNotification(notification.TypeHabitMilestone, "me@example.com", map[string]any{"habit_name": "Walk", "streak": float64(7)})
	require.NoError(t, sender.Streak(context.Background(), n))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "7 Day Streak on Walk!", client.sent[0].Subject)
	assert.Contains(t, html(client.sent[0]), "7-day streak")
}

func TestEmail_EscapesHabitName(t *testing.T) {
	client := &fakeMailClient{}
	sender := NewEmailSender(client, "Habivance", "noreply@habivance.test")

	n := newNotification(notification.TypeReminder, "me@example.com", map[string]any{"habit_name": "<script>x</script>"})
	require.NoError(t, sender.Reminder(context.Background(), n))

	require.Len(t, client.sent, 1)
	assert.NotContains(t, html(client.sent[0]), "<script>")
	assert.Contains(t, html(client.sent[0]), "&lt;script&gt;")
}

func TestSend_Errors(t *testing.T) {
	n := newNotification(notification.TypeReminder, "me@example.com", map[string]any{"habit_name": "Walk"})

	failing := NewEmailSender(&fakeMailClient{err: assert.AnError}, "Habivance", "noreply@habivance.test")
	err := failing.Reminder(context.Background(), n)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to send email")

	rejected := NewEmailSender(&fakeMailClient{status: 500}, "Habivance", "noreply@habivance.test")
	err = rejected.Reminder(context.Background(), n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestDataInt(t *testing.T) {
	n := newNotification(notification.TypeHabitMilestone, "", map[string]any{"a": 3, "b": float64(4), "c": "5"})

	assert.Equal(t, 3, dataInt(n, "a"))
	assert.Equal(t, 4, dataInt(n, "b"))
	assert.Equal(t, 0, dataInt(n, "c"))
	assert.Equal(t, 0, dataInt(n, "missing"))
}

type fakeLister struct {
	habits []*habit.Habit
	err    error
	userID string
}

func (f *fakeLister) ListHabits(_ context.Context, userID string) ([]*habit.Habit, error) {
	f.userID = userID
	return f.habits, f.err
}

var digestToday = time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)

func completedDaysAgo(days ...int) []habit.HistoryEntry {
	entries := make([]habit.HistoryEntry, 0, len(days))
	for _, d := range days {
		entries = append(entries, habit.HistoryEntry{
			Date:            digestToday.AddDate(0, 0, -d),
			Status:          habit.StatusCompleted,
			DurationMinutes: 10,
		})
	}
	return entries
}

func digestHabits() []*habit.Habit {
	walk := habit.NewHabit("user-1", "Walk", 30, digestToday.AddDate(0, 0, -30))
	walk.History = completedDaysAgo(0, 1, 2)

	read := habit.NewHabit("user-1", "Read", 20, digestToday.AddDate(0, 0, -30))
	read.History = completedDaysAgo(3)

	return []*habit.Habit{read, walk}
}

func TestDigest(t *testing.T) {
	client := &fakeMailClient{}
	lister := &fakeLister{habits: digestHabits()}
	gen := NewDigestGenerator(lister, NewEmailSender(client, "Habivance", "noreply@habivance.test"), time.UTC)
	gen.now = func() time.Time { return digestToday.Add(10 * time.Hour) }

	n := newNotification(notification.TypeWeeklyDigest, "me@example.com", nil)
	require.NoError(t, gen.Handle(context.Background(), n))

	assert.Equal(t, "user-1", lister.userID)
	require.Len(t, client.sent, 1)
	email := client.sent[0]
	assert.Equal(t, "Your weekly habit digest", email.Subject)
	assert.Equal(t, "text/plain", email.Content[0].Type)
	assert.Equal(t, "4 of 4 check-ins completed this week (100.00%).", email.Content[0].Value)

	body := html(email)
	assert.Contains(t, body, "Jun 14 to Jun 20")
	assert.Less(t, strings.Index(body, "Walk"), strings.Index(body, "Read"), "longer current streak is listed first")

	require.Len(t, email.Attachments, 1)
	att := email.Attachments[0]
	assert.Equal(t, "weekly-digest.csv", att.Filename)
	assert.Equal(t, "text/csv", att.Type)

	raw, err := base64.StdEncoding.DecodeString(att.Content)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 8)
	assert.Equal(t, []string{"Date", "Total", "Completed", "Minutes"}, records[0])
	assert.Equal(t, []string{"2026-06-20", "1", "1", "10.00"}, records[7])
	assert.Equal(t, []string{"2026-06-14", "0", "0", "0.00"}, records[1])
}

func TestDigest_Errors(t *testing.T) {
	client := &fakeMailClient{}
	sender := NewEmailSender(client, "Habivance", "noreply@habivance.test")

	gen := NewDigestGenerator(&fakeLister{}, sender, nil)
	err := gen.Handle(context.Background(), newNotification(notification.TypeWeeklyDigest, "", nil))
	assert.ErrorIs(t, err, ErrNoRecipient)

	gen = NewDigestGenerator(&fakeLister{err: assert.AnError}, sender, nil)
	err = gen.Handle(context.Background(), newNotification(notification.TypeWeeklyDigest, "me@example.com", nil))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to load habits")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen = NewDigestGenerator(&fakeLister{habits: digestHabits()}, sender, nil)
	err = gen.Handle(ctx, newNotification(notification.TypeWeeklyDigest, "me@example.com", nil))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, client.sent)
}

func TestStreakRows(t *testing.T) {
	rows := streakRows(digestHabits(), digestToday)

	require.Len(t, rows, 2)
	assert.Equal(t, StreakRow{Habit: "Walk", Current: 3, Longest: 3, Tier: "Building"}, rows[0])
	assert.Equal(t, StreakRow{Habit: "Read", Current: 0, Longest: 1, Tier: "Start"}, rows[1])
}
