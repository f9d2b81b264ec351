package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/notification"
	"github.com/nadmax/habivance/internal/repository"
	"github.com/nadmax/habivance/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 20, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []*notification.Notification
	err           error
}

func (f *fakeNotifier) Notify(ctx context.Context, n *notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeNotifier) types() []notification.Type {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]notification.Type, 0, len(f.notifications))
	for _, n := range f.notifications {
		types = append(types, n.Type)
	}
	return types
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = nil
}

func setupService(t *testing.T) (*HabitService, *repository.MockHabitRepository, *fakeClock, *fakeNotifier) {
	t.Helper()

	repo := repository.NewMockHabitRepository()
	clock := &fakeClock{now: t0}
	notifier := &fakeNotifier{}

	return NewHabitService(repo, clock, notifier), repo, clock, notifier
}

func seedHabit(t *testing.T, repo *repository.MockHabitRepository, name string, created time.Time, history ...habit.HistoryEntry) *habit.Habit {
	t.Helper()

	h := habit.NewHabit("user-1", name, 30, created)
	h.History = append(h.History, history...)
	repo.Put(h)
	return h
}

func daysAgo(n int) time.Time {
	return habit.Normalize(t0).AddDate(0, 0, -n)
}

func completedOn(n int) habit.HistoryEntry {
	return habit.HistoryEntry{Date: daysAgo(n), Status: habit.StatusCompleted}
}

func TestCreateHabit(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	ctx := context.Background()

	h, err := svc.CreateHabit(ctx, "user-1", CreateHabitInput{
		Name:            "  Morning walk ",
		DurationMinutes: 30,
		ScheduledTime:   "07:30",
	})
	require.NoError(t, err)

	assert.Equal(t, "Morning walk", h.Name)
	assert.Equal(t, habit.DefaultCategory, h.Category)
	assert.Equal(t, habit.PriorityMedium, h.Priority)
	assert.Equal(t, t0, h.CreatedAt)

	stored, ok := repo.Stored(h.ID)
	require.True(t, ok)
	assert.Equal(t, "07:30", stored.ScheduledTime)

	assert.Equal(t, []notification.Type{notification.TypeHabitCreated}, notifier.types())
}

func TestCreateHabit_Duplicate(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateHabit(ctx, "user-1", CreateHabitInput{Name: "Read", DurationMinutes: 20})
	require.NoError(t, err)

	_, err = svc.CreateHabit(ctx, "user-1", CreateHabitInput{Name: "READ", DurationMinutes: 20})
	assert.ErrorIs(t, err, ErrDuplicateHabit)

	_, err = svc.CreateHabit(ctx, "user-2", CreateHabitInput{Name: "Read", DurationMinutes: 20})
	assert.NoError(t, err, "names are unique per user")
}

func TestCreateHabit_Invalid(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateHabitInput
		want  error
	}{
		{name: "missing name", input: CreateHabitInput{DurationMinutes: 10}, want: habit.ErrNameRequired},
		{name: "zero duration", input: CreateHabitInput{Name: "Walk"}, want: habit.ErrInvalidDuration},
		{name: "bad priority", input: CreateHabitInput{Name: "Walk", DurationMinutes: 5, Priority: "urgent"}, want: habit.ErrInvalidPriority},
		{name: "bad schedule", input: CreateHabitInput{Name: "Walk", DurationMinutes: 5, ScheduledTime: "25:00"}, want: habit.ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateHabit(ctx, "user-1", tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, repo.CreateHabitCalls)
}

func TestListHabits_Category(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateHabit(ctx, "user-1", CreateHabitInput{Name: "Run", Category: "Fitness", DurationMinutes: 30})
	require.NoError(t, err)
	_, err = svc.CreateHabit(ctx, "user-1", CreateHabitInput{Name: "Read", Category: "Learning", DurationMinutes: 20})
	require.NoError(t, err)

	all, err := svc.ListHabits(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fitness, err := svc.ListHabits(ctx, "user-1", "Fitness")
	require.NoError(t, err)
	require.Len(t, fitness, 1)
	assert.Equal(t, "Run", fitness[0].Name)
}

func TestUpdateHabit(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	walk := seedHabit(t, repo, "Walk", t0)
	seedHabit(t, repo, "Read", t0)

	name := "Evening walk"
	duration := 45
	h, err := svc.UpdateHabit(ctx, "user-1", walk.ID, UpdateHabitInput{Name: &name, DurationMinutes: &duration})
	require.NoError(t, err)
	assert.Equal(t, "Evening walk", h.Name)
	assert.Equal(t, 45, h.DurationMinutes)
	assert.Equal(t, 2, h.Version)

	taken := "read"
	_, err = svc.UpdateHabit(ctx, "user-1", walk.ID, UpdateHabitInput{Name: &taken})
	assert.ErrorIs(t, err, ErrDuplicateHabit)

	bad := habit.Priority("urgent")
	_, err = svc.UpdateHabit(ctx, "user-1", walk.ID, UpdateHabitInput{Priority: &bad})
	assert.ErrorIs(t, err, habit.ErrInvalidPriority)

	stored, _ := repo.Stored(walk.ID)
	assert.Equal(t, habit.PriorityMedium, stored.Priority, "rejected update leaves the habit untouched")
}

func TestUpdateHabit_TrimsName(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	walk := seedHabit(t, repo, "Walk", t0)
	seedHabit(t, repo, "Read", t0)

	padded := "  Stretch  "
	h, err := svc.UpdateHabit(ctx, "user-1", walk.ID, UpdateHabitInput{Name: &padded})
	require.NoError(t, err)
	assert.Equal(t, "Stretch", h.Name)

	stored, _ := repo.Stored(walk.ID)
	assert.Equal(t, "Stretch", stored.Name)

	taken := " read "
	_, err = svc.UpdateHabit(ctx, "user-1", walk.ID, UpdateHabitInput{Name: &taken})
	assert.ErrorIs(t, err, ErrDuplicateHabit)

	blank := "   "
	_, err = svc.UpdateHabit(ctx, "user-1", walk.ID, UpdateHabitInput{Name: &blank})
	assert.ErrorIs(t, err, habit.ErrNameRequired)
}

func TestDeleteHabit(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Walk", t0)

	require.NoError(t, svc.DeleteHabit(ctx, "user-1", h.ID))
	_, ok := repo.Stored(h.ID)
	assert.False(t, ok)
	assert.Equal(t, []notification.Type{notification.TypeHabitDeleted}, notifier.types())

	assert.ErrorIs(t, svc.DeleteHabit(ctx, "user-1", h.ID), ErrNotFound)
}

func TestGetHabit_OtherUser(t *testing.T) {
	svc, repo, _, _ := setupService(t)

	h := seedHabit(t, repo, "Walk", t0)

	_, err := svc.GetHabit(context.Background(), "user-2", h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteHabit(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Walk", daysAgo(5), completedOn(2), completedOn(1))

	completed, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
	require.NoError(t, err)

	assert.Len(t, completed.History, 3)
	assert.Equal(t, 3, completed.Streak)
	assert.Equal(t, 3, completed.LongestStreak)
	assert.Equal(t, []notification.Type{notification.TypeHabitCompleted}, notifier.types())

	stored, _ := repo.Stored(h.ID)
	assert.Equal(t, 3, stored.Streak)
}

func TestCompleteHabit_AlreadyCompletedToday(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Walk", daysAgo(1), completedOn(0))

	_, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyCompletedToday)
	assert.Equal(t, 0, repo.GetUpdateHabitCallCount(), "no write for a repeated completion")
}

func TestCompleteHabit_UpgradesMissedEntry(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Walk", daysAgo(1),
		completedOn(1),
		habit.HistoryEntry{Date: daysAgo(0), Status: habit.StatusMissed},
	)

	completed, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
	require.NoError(t, err)

	require.Len(t, completed.History, 2, "today keeps a single entry")
	assert.Equal(t, habit.StatusCompleted, completed.History[1].Status)
	assert.Equal(t, 2, completed.Streak)
}

func TestCompleteHabit_MilestoneAndRecord(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	ctx := context.Background()

	var history []habit.HistoryEntry
	for i := 6; i >= 1; i-- {
		history = append(history, completedOn(i))
	}
	h := seedHabit(t, repo, "Meditate", daysAgo(10), history...)
	h.LongestStreak = 6
	repo.Put(h)

	completed, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 7, completed.Streak)

	assert.Equal(t, []notification.Type{
		notification.TypeHabitCompleted,
		notification.TypeHabitMilestone,
		notification.TypeHabitRecord,
	}, notifier.types())
}

func TestCompleteHabit_NoRecordBelowPreviousBest(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	ctx := context.Background()

	// an older 10-day run stays the record
	var history []habit.HistoryEntry
	for i := 20; i >= 11; i-- {
		history = append(history, completedOn(i))
	}
	history = append(history, habit.HistoryEntry{Date: daysAgo(10), Status: habit.StatusMissed})
	for i := 4; i >= 1; i-- {
		history = append(history, completedOn(i))
	}
	h := seedHabit(t, repo, "Stretch", daysAgo(30), history...)

	completed, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 5, completed.Streak)
	assert.Equal(t, 10, completed.LongestStreak)
	assert.Equal(t, []notification.Type{notification.TypeHabitCompleted}, notifier.types())
}

func sixDayRun() []habit.HistoryEntry {
	var history []habit.HistoryEntry
	for i := 6; i >= 1; i-- {
		history = append(history, completedOn(i))
	}
	return history
}

func TestCompleteHabit_StreakNotificationsCarryEmail(t *testing.T) {
	svc, repo, _, notifier := setupService(t)

	h := seedHabit(t, repo, "Meditate", daysAgo(10), sixDayRun()...)

	_, err := svc.CompleteHabit(context.Background(), "user-1", h.ID, "me@example.com")
	require.NoError(t, err)

	emails := map[notification.Type]string{}
	for _, n := range notifier.notifications {
		emails[n.Type] = n.Email
	}
	assert.Equal(t, map[notification.Type]string{
		notification.TypeHabitCompleted: "",
		notification.TypeHabitMilestone: "me@example.com",
		notification.TypeHabitRecord:    "me@example.com",
	}, emails)
}

func TestStopTimer_StreakNotificationsCarryEmail(t *testing.T) {
	svc, repo, clock, notifier := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Meditate", daysAgo(10), sixDayRun()...)

	_, err := svc.StartTimer(ctx, "user-1", h.ID)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	notifier.reset()

	result, err := svc.StopTimer(ctx, "user-1", h.ID, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, 7, result.Habit.Streak)

	var milestone *notification.Notification
	for _, n := range notifier.notifications {
		if n.Type == notification.TypeHabitMilestone {
			milestone = n
		}
	}
	require.NotNil(t, milestone)
	assert.Equal(t, "me@example.com", milestone.Email)
}

func TestCompleteHabit_NotifierFailureIsNotFatal(t *testing.T) {
	svc, repo, _, notifier := setupService(t)
	notifier.err = errors.New("redis down")

	h := seedHabit(t, repo, "Walk", t0)

	completed, err := svc.CompleteHabit(context.Background(), "user-1", h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, completed.Streak)
}

func TestCompleteHabit_NotFound(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.CompleteHabit(context.Background(), "user-1", "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteHabit_ConcurrentRequests(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Walk", t0)

	const requests = 10
	var wg sync.WaitGroup
	errs := make(chan error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyCompletedToday)
	}
	assert.Equal(t, 1, succeeded)

	stored, _ := repo.Stored(h.ID)
	assert.Len(t, stored.History, 1)
	assert.Equal(t, 0, svc.locks.size())
}

func TestUpdate_RetriesVersionConflict(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Walk", t0)

	var once sync.Once
	repo.BeforeUpdate = func(*habit.Habit) {
		once.Do(func() {
			// another process writes first
			stored, _ := repo.Stored(h.ID)
			stored.Description = "edited elsewhere"
			stored.Version++
			repo.Put(stored)
		})
	}

	completed, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.GetUpdateHabitCallCount())
	assert.Equal(t, "edited elsewhere", completed.Description, "the retry reapplies on the fresh copy")
	assert.Equal(t, 3, completed.Version)
}

func TestUpdate_GivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Walk", t0)

	repo.BeforeUpdate = func(*habit.Habit) {
		stored, _ := repo.Stored(h.ID)
		stored.Version++
		repo.Put(stored)
	}

	_, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.Equal(t, maxUpdateAttempts, repo.GetUpdateHabitCallCount())
}

func TestSkipHabit(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Walk", daysAgo(3), completedOn(2), completedOn(1))

	skipped, err := svc.SkipHabit(ctx, "user-1", h.ID)
	require.NoError(t, err)

	require.Len(t, skipped.History, 3)
	assert.Equal(t, habit.StatusSkipped, skipped.History[2].Status)
	assert.Equal(t, 0, skipped.Streak)
	assert.Equal(t, 2, skipped.LongestStreak)

	// skipping twice is harmless, completing afterwards upgrades the entry
	_, err = svc.SkipHabit(ctx, "user-1", h.ID)
	require.NoError(t, err)

	completed, err := svc.CompleteHabit(ctx, "user-1", h.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 3, completed.Streak)

	_, err = svc.SkipHabit(ctx, "user-1", h.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompletedToday)
}

func TestTimerRoundTrip(t *testing.T) {
	svc, repo, clock, notifier := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Read", t0)

	_, err := svc.StartTimer(ctx, "user-1", h.ID)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	paused, err := svc.PauseTimer(ctx, "user-1", h.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.ModePaused, paused.Timer.Mode)
	assert.Equal(t, 5.0, paused.Timer.AccumulatedMinutes)

	_, err = svc.StartTimer(ctx, "user-1", h.ID)
	require.NoError(t, err)

	clock.Advance(7 * time.Minute)
	result, err := svc.StopTimer(ctx, "user-1", h.ID, "")
	require.NoError(t, err)

	assert.Equal(t, 12.0, result.SessionMinutes)
	assert.Equal(t, timer.ModeIdle, result.Habit.Timer.Mode)
	assert.Nil(t, result.Habit.Timer.StartedAt)
	require.Len(t, result.Habit.History, 1)
	assert.Equal(t, 12.0, result.Habit.History[0].DurationMinutes)
	assert.Equal(t, habit.StatusCompleted, result.Habit.History[0].Status)
	assert.Equal(t, 1, result.Habit.Streak)

	assert.Equal(t, []notification.Type{
		notification.TypeTimerStarted,
		notification.TypeTimerStarted,
		notification.TypeTimerStopped,
		notification.TypeHabitCompleted,
	}, notifier.types())
}

func TestStartTimer_AlreadyRunning(t *testing.T) {
	svc, repo, clock, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Read", t0)

	_, err := svc.StartTimer(ctx, "user-1", h.ID)
	require.NoError(t, err)
	before, _ := repo.Stored(h.ID)

	clock.Advance(time.Minute)
	_, err = svc.StartTimer(ctx, "user-1", h.ID)
	assert.ErrorIs(t, err, timer.ErrInvalidTransition)

	after, _ := repo.Stored(h.ID)
	assert.Equal(t, before.Version, after.Version, "illegal transition writes nothing")
	assert.Equal(t, *before.Timer.StartedAt, *after.Timer.StartedAt)
}

func TestPauseAndStopTimer_WhenIdle(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Read", t0)

	_, err := svc.PauseTimer(ctx, "user-1", h.ID)
	assert.ErrorIs(t, err, timer.ErrInvalidTransition)

	_, err = svc.StopTimer(ctx, "user-1", h.ID, "")
	assert.ErrorIs(t, err, timer.ErrInvalidTransition)

	assert.Equal(t, 0, repo.GetUpdateHabitCallCount())
}

func TestStopTimer_AddsToCompletedDay(t *testing.T) {
	svc, repo, clock, notifier := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Read", t0, habit.HistoryEntry{
		Date:            daysAgo(0),
		Status:          habit.StatusCompleted,
		DurationMinutes: 10,
	})

	_, err := svc.StartTimer(ctx, "user-1", h.ID)
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)
	notifier.reset()

	result, err := svc.StopTimer(ctx, "user-1", h.ID, "")
	require.NoError(t, err)

	require.Len(t, result.Habit.History, 1)
	assert.Equal(t, 25.0, result.Habit.History[0].DurationMinutes)
	assert.Equal(t, []notification.Type{notification.TypeTimerStopped}, notifier.types(),
		"no second completion for the same day")
}

func TestTimerStatus(t *testing.T) {
	svc, repo, clock, _ := setupService(t)
	ctx := context.Background()

	h := seedHabit(t, repo, "Read", t0)

	status, err := svc.TimerStatus(ctx, "user-1", h.ID)
	require.NoError(t, err)
	assert.Equal(t, timer.ModeIdle, status.Mode)
	assert.False(t, status.Running)
	assert.Zero(t, status.ElapsedMinutes)

	_, err = svc.StartTimer(ctx, "user-1", h.ID)
	require.NoError(t, err)
	clock.Advance(90 * time.Second)

	status, err = svc.TimerStatus(ctx, "user-1", h.ID)
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, 1.5, status.ElapsedMinutes)
	require.NotNil(t, status.StartedAt)

	stored, _ := repo.Stored(h.ID)
	assert.Equal(t, 2, stored.Version, "status is read-only")
}

func TestStreaks(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	seedHabit(t, repo, "Walk", daysAgo(5), completedOn(1), completedOn(0))
	seedHabit(t, repo, "Read", daysAgo(5), completedOn(2), completedOn(1))
	seedHabit(t, repo, "Run", daysAgo(5), completedOn(0))

	views, err := svc.Streaks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "Walk", views[0].Name)
	assert.Equal(t, 2, views[0].Current)
	assert.Equal(t, "Building", views[0].Tier.Name)
	assert.Equal(t, "Run", views[1].Name)
	assert.Equal(t, "Read", views[2].Name)
	assert.Equal(t, 0, views[2].Current, "no entry today means no current streak")
	assert.Equal(t, 2, views[2].Longest)
}

func TestRollover(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	ctx := context.Background()

	old := seedHabit(t, repo, "Walk", daysAgo(3).Add(8*time.Hour), completedOn(2))
	old.Streak = 1
	old.LongestStreak = 1
	repo.Put(old)
	seedHabit(t, repo, "Fresh", t0)

	updated, err := svc.Rollover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	stored, _ := repo.Stored(old.ID)
	require.Len(t, stored.History, 3)
	assert.Equal(t, habit.StatusMissed, stored.History[0].Status)
	assert.True(t, habit.SameDay(daysAgo(3), stored.History[0].Date))
	assert.Equal(t, habit.StatusCompleted, stored.History[1].Status)
	assert.Equal(t, habit.StatusMissed, stored.History[2].Status)
	assert.True(t, habit.SameDay(daysAgo(1), stored.History[2].Date))
	assert.Equal(t, 0, stored.Streak)
	assert.Equal(t, 1, stored.LongestStreak)

	again, err := svc.Rollover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again, "rollover is idempotent")
}

func TestRollover_ListError(t *testing.T) {
	svc, repo, _, _ := setupService(t)
	repo.ListHabitsError = errors.New("db down")

	_, err := svc.Rollover(context.Background())
	assert.Error(t, err)
}

func TestScheduleReminder(t *testing.T) {
	svc, repo, clock, notifier := setupService(t)
	ctx := context.Background()

	h := habit.NewHabit("user-1", "Yoga", 20, t0)
	h.ScheduledTime = "09:00"
	repo.Put(h)

	n, err := svc.ScheduleReminder(ctx, "user-1", h.ID, t0, "me@example.com")
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, time.Date(2026, 6, 20, 8, 45, 0, 0, time.UTC), n.AlertTime)
	assert.Equal(t, notification.TypeReminder, n.Type)
	assert.Equal(t, "me@example.com", n.Email)
	assert.Equal(t, "Time to Yoga! Scheduled at 09:00", n.Message)
	assert.Len(t, notifier.types(), 1)

	clock.Advance(50 * time.Minute)
	late, err := svc.ScheduleReminder(ctx, "user-1", h.ID, t0, "me@example.com")
	require.NoError(t, err)
	assert.Nil(t, late, "no reminder once the alert time has passed")

	tomorrow, err := svc.ScheduleReminder(ctx, "user-1", h.ID, t0.AddDate(0, 0, 1), "")
	require.NoError(t, err)
	require.NotNil(t, tomorrow)
	assert.Equal(t, time.Date(2026, 6, 21, 8, 45, 0, 0, time.UTC), tomorrow.AlertTime)
}

func TestScheduleReminder_NoSchedule(t *testing.T) {
	svc, repo, _, _ := setupService(t)

	h := seedHabit(t, repo, "Yoga", t0)

	_, err := svc.ScheduleReminder(context.Background(), "user-1", h.ID, t0, "")
	assert.ErrorIs(t, err, ErrNoSchedule)
}

func TestSystemClock(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)

	now := SystemClock{Location: loc}.Now()
	assert.Equal(t, loc, now.Location())
}

func TestKeyedMutex(t *testing.T) {
	locks := newKeyedMutex()

	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	assert.Equal(t, 2, locks.size())

	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-acquired
	unlockB()

	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, time.Millisecond)
}
