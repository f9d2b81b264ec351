// Package streak derives consistency metrics from a habit's dated history log.
//
// All functions are pure: "today" is always passed in, inputs are never
// mutated, and days are compared by calendar date so daylight-saving shifts
// neither create nor hide gaps.
package streak

import (
	"cmp"
	"slices"
	"time"

	"github.com/nadmax/habivance/internal/habit"
)

type Snapshot struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// dayNumber maps a calendar date to a monotonically increasing day index.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

type day struct {
	n      int64
	status habit.Status
}

func days(history []habit.HistoryEntry) []day {
	out := make([]day, len(history))
	for i, e := range history {
		out[i] = day{n: dayNumber(e.Date), status: e.Status}
	}
	return out
}

// Current counts consecutive completed days ending at today. Position i of the
// history, newest first, must be exactly today-i; the walk stops at the first
// entry that is not completed or not on its expected day. A history without an
// entry for today therefore has no current streak.
func Current(history []habit.HistoryEntry, today time.Time) int {
	sorted := days(history)
	slices.SortStableFunc(sorted, func(a, b day) int {
		return cmp.Compare(b.n, a.n)
	})

	todayN := dayNumber(today)
	streak := 0
	for i, d := range sorted {
		if d.status != habit.StatusCompleted || d.n != todayN-int64(i) {
			break
		}
		streak++
	}

	return streak
}

// Longest returns the longest run of consecutive completed days anywhere in the
// history. A missed or skipped entry ends the run.
func Longest(history []habit.HistoryEntry) int {
	sorted := days(history)
	slices.SortStableFunc(sorted, func(a, b day) int {
		return cmp.Compare(a.n, b.n)
	})

	best, run := 0, 0
	var prev int64
	anchored := false

	for _, d := range sorted {
		if d.status != habit.StatusCompleted {
			run = 0
			anchored = false
			continue
		}

		if anchored && d.n == prev+1 {
			run++
		} else {
			run = 1
		}
		prev = d.n
		anchored = true
		best = max(best, run)
	}

	return best
}

func Compute(history []habit.HistoryEntry, today time.Time) Snapshot {
	return Snapshot{
		Current: Current(history, today),
		Longest: Longest(history),
	}
}

// Backfill returns a copy of history with a missed placeholder for every day in
// [since, today) that has no entry. Today is left alone: it is still open.
// The result is sorted ascending by date.
func Backfill(history []habit.HistoryEntry, since, today time.Time) []habit.HistoryEntry {
	out := append([]habit.HistoryEntry(nil), history...)

	seen := make(map[int64]struct{}, len(history))
	for _, e := range history {
		seen[dayNumber(e.Date)] = struct{}{}
	}

	loc := today.Location()
	todayN := dayNumber(today)
	for cursor := habit.Normalize(since.In(loc)); dayNumber(cursor) < todayN; cursor = cursor.AddDate(0, 0, 1) {
		if _, ok := seen[dayNumber(cursor)]; ok {
			continue
		}
		out = append(out, habit.HistoryEntry{
			Date:   cursor,
			Status: habit.StatusMissed,
		})
	}

	slices.SortStableFunc(out, func(a, b habit.HistoryEntry) int {
		return cmp.Compare(dayNumber(a.Date), dayNumber(b.Date))
	})
	return out
}
