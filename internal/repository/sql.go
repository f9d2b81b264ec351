package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/logger"
)

var ErrDuplicate = errors.New("a habit with this name already exists")

// SQLHabitRepository stores habits in PostgreSQL or SQLite. Timer state and
// history are kept as JSON documents on the habit row, so a habit is always
// read and written as one unit.
type SQLHabitRepository struct {
	db     *sql.DB
	driver string
}

const habitColumns = `
	id, user_id, name, category, description, duration_minutes,
	priority, scheduled_time, timer, history, streak, longest_streak,
	version, created_at, updated_at`

func Open(driver, dsn string) (*SQLHabitRepository, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return &SQLHabitRepository{db: db, driver: driver}, nil
}

func NewSQLHabitRepository(db *sql.DB, driver string) *SQLHabitRepository {
	return &SQLHabitRepository{db: db, driver: driver}
}

func (r *SQLHabitRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema[r.driver] {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func (r *SQLHabitRepository) CreateHabit(ctx context.Context, h *habit.Habit) error {
	timerDoc, historyDoc, err := encodeDocuments(h)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO habits (` + habitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		h.ID,
		h.UserID,
		h.Name,
		h.Category,
		h.Description,
		h.DurationMinutes,
		string(h.Priority),
		h.ScheduledTime,
		timerDoc,
		historyDoc,
		h.Streak,
		h.LongestStreak,
		h.Version,
		h.CreatedAt,
		h.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	return nil
}

func (r *SQLHabitRepository) GetHabit(ctx context.Context, userID, habitID string) (*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND user_id = $2`

	h, err := scanHabit(r.db.QueryRowContext(ctx, query, habitID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return h, nil
}

func (r *SQLHabitRepository) FindHabitByName(ctx context.Context, userID, name string) (*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1 AND LOWER(name) = LOWER($2)`

	h, err := scanHabit(r.db.QueryRowContext(ctx, query, userID, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return h, nil
}

func (r *SQLHabitRepository) ListHabits(ctx context.Context, userID string) ([]*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1 ORDER BY created_at ASC`
	return r.queryHabits(ctx, query, userID)
}

func (r *SQLHabitRepository) ListAllHabits(ctx context.Context) ([]*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits ORDER BY created_at ASC`
	return r.queryHabits(ctx, query)
}

func (r *SQLHabitRepository) queryHabits(ctx context.Context, query string, args ...any) ([]*habit.Habit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warn("failed to close rows", "err", err)
		}
	}()

	habits := []*habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}

	return habits, rows.Err()
}

func (r *SQLHabitRepository) UpdateHabit(ctx context.Context, h *habit.Habit) error {
	timerDoc, historyDoc, err := encodeDocuments(h)
	if err != nil {
		return err
	}

	query := `
		UPDATE habits
		SET name = $1,
		    category = $2,
		    description = $3,
		    duration_minutes = $4,
		    priority = $5,
		    scheduled_time = $6,
		    timer = $7,
		    history = $8,
		    streak = $9,
		    longest_streak = $10,
		    updated_at = $11,
		    version = version + 1
		WHERE id = $12 AND user_id = $13 AND version = $14
	`

	res, err := r.db.ExecContext(
		ctx,
		query,
		h.Name,
		h.Category,
		h.Description,
		h.DurationMinutes,
		string(h.Priority),
		h.ScheduledTime,
		timerDoc,
		historyDoc,
		h.Streak,
		h.LongestStreak,
		h.UpdatedAt,
		h.ID,
		h.UserID,
		h.Version,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return r.missingOrConflict(ctx, h)
	}

	h.Version++
	return nil
}

func (r *SQLHabitRepository) missingOrConflict(ctx context.Context, h *habit.Habit) error {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM habits WHERE id = $1 AND user_id = $2`, h.ID, h.UserID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrVersionConflict
}

func (r *SQLHabitRepository) DeleteHabit(ctx context.Context, userID, habitID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, habitID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *SQLHabitRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLHabitRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (*habit.Habit, error) {
	var h habit.Habit
	var priority string
	var timerDoc, historyDoc []byte

	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.Category,
		&h.Description,
		&h.DurationMinutes,
		&priority,
		&h.ScheduledTime,
		&timerDoc,
		&historyDoc,
		&h.Streak,
		&h.LongestStreak,
		&h.Version,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	h.Priority = habit.Priority(priority)

	if err := json.Unmarshal(timerDoc, &h.Timer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timer: %w", err)
	}
	if err := json.Unmarshal(historyDoc, &h.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if h.History == nil {
		h.History = []habit.HistoryEntry{}
	}

	return &h, nil
}

// encodeDocuments returns the JSON columns as strings; lib/pq would send a
// []byte as bytea, which JSONB rejects.
func encodeDocuments(h *habit.Habit) (string, string, error) {
	timerDoc, err := json.Marshal(h.Timer)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal timer: %w", err)
	}

	history := h.History
	if history == nil {
		history = []habit.HistoryEntry{}
	}
	historyDoc, err := json.Marshal(history)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal history: %w", err)
	}

	return string(timerDoc), string(historyDoc), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
