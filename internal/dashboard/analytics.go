package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/timer"
)

type (
	HabitDay struct {
		HabitID  string       `json:"habit_id"`
		Name     string       `json:"name"`
		Category string       `json:"category"`
		Status   habit.Status `json:"status"`
		Minutes  float64      `json:"minutes"`
	}
	DayStats struct {
		Date           time.Time  `json:"date"`
		Total          int        `json:"total"`
		Completed      int        `json:"completed"`
		Pending        int        `json:"pending"`
		CompletionRate float64    `json:"completion_rate"`
		TotalMinutes   float64    `json:"total_minutes"`
		Habits         []HabitDay `json:"habits"`
	}
	DayBreakdown struct {
		Date      time.Time `json:"date"`
		Total     int       `json:"total"`
		Completed int       `json:"completed"`
		Minutes   float64   `json:"minutes"`
	}
	HabitBreakdown struct {
		HabitID   string  `json:"habit_id"`
		Name      string  `json:"name"`
		Category  string  `json:"category"`
		Total     int     `json:"total"`
		Completed int     `json:"completed"`
		Minutes   float64 `json:"minutes"`
	}
	PeriodStats struct {
		Period               string           `json:"period"`
		StartDate            time.Time        `json:"start_date"`
		EndDate              time.Time        `json:"end_date"`
		Total                int              `json:"total"`
		Completed            int              `json:"completed"`
		CompletionRate       float64          `json:"completion_rate"`
		TotalMinutes         float64          `json:"total_minutes"`
		AverageMinutesPerDay float64          `json:"average_minutes_per_day"`
		Daily                []DayBreakdown   `json:"daily,omitempty"`
		Habits               []HabitBreakdown `json:"habits,omitempty"`
	}
	Rate struct {
		Period         string    `json:"period"`
		StartDate      time.Time `json:"start_date"`
		EndDate        time.Time `json:"end_date"`
		Total          int       `json:"total"`
		Completed      int       `json:"completed"`
		CompletionRate float64   `json:"completion_rate"`
	}
)

// dateKey orders calendar dates regardless of the location they were stored in.
func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// percent returns completed/total as a percentage with two decimals.
func percent(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}

func entryOn(h *habit.Habit, day time.Time) (habit.HistoryEntry, bool) {
	key := dateKey(day)
	for _, e := range h.History {
		if dateKey(e.Date) == key {
			return e, true
		}
	}
	return habit.HistoryEntry{}, false
}

// Daily summarizes the habits that have an entry on day.
func Daily(habits []*habit.Habit, day time.Time) DayStats {
	stats := DayStats{
		Date:   habit.Normalize(day),
		Habits: []HabitDay{},
	}

	for _, h := range habits {
		e, ok := entryOn(h, day)
		if !ok {
			continue
		}

		stats.Total++
		if e.Status == habit.StatusCompleted {
			stats.Completed++
		}
		stats.TotalMinutes += e.DurationMinutes
		stats.Habits = append(stats.Habits, HabitDay{
			HabitID:  h.ID,
			Name:     h.Name,
			Category: h.Category,
			Status:   e.Status,
			Minutes:  timer.Round(e.DurationMinutes),
		})
	}

	stats.Pending = stats.Total - stats.Completed
	stats.CompletionRate = percent(stats.Completed, stats.Total)
	stats.TotalMinutes = timer.Round(stats.TotalMinutes)

	return stats
}

// Weekly covers the seven days ending today, one breakdown row per day.
func Weekly(habits []*habit.Habit, today time.Time) PeriodStats {
	today = habit.Normalize(today)
	start := today.AddDate(0, 0, -6)

	stats := PeriodStats{
		Period:    "Last 7 days",
		StartDate: start,
		EndDate:   today,
		Daily:     make([]DayBreakdown, 0, 7),
	}

	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		row := DayBreakdown{Date: day}

		for _, h := range habits {
			e, ok := entryOn(h, day)
			if !ok {
				continue
			}
			row.Total++
			if e.Status == habit.StatusCompleted {
				row.Completed++
			}
			row.Minutes += e.DurationMinutes
		}

		stats.Total += row.Total
		stats.Completed += row.Completed
		stats.TotalMinutes += row.Minutes
		row.Minutes = timer.Round(row.Minutes)
		stats.Daily = append(stats.Daily, row)
	}

	finish(&stats, 7)
	return stats
}

// Monthly covers the thirty days ending today, broken down per habit. Habits
// without entries in the window are left out.
func Monthly(habits []*habit.Habit, today time.Time) PeriodStats {
	today = habit.Normalize(today)
	start := today.AddDate(0, 0, -29)

	stats := PeriodStats{
		Period:    "Last 30 days",
		StartDate: start,
		EndDate:   today,
		Habits:    []HabitBreakdown{},
	}

	from, to := dateKey(start), dateKey(today)
	for _, h := range habits {
		row := HabitBreakdown{HabitID: h.ID, Name: h.Name, Category: h.Category}
		for _, e := range h.History {
			key := dateKey(e.Date)
			if key < from || key > to {
				continue
			}
			row.Total++
			if e.Status == habit.StatusCompleted {
				row.Completed++
			}
			row.Minutes += e.DurationMinutes
		}
		if row.Total == 0 {
			continue
		}

		stats.Total += row.Total
		stats.Completed += row.Completed
		stats.TotalMinutes += row.Minutes
		row.Minutes = timer.Round(row.Minutes)
		stats.Habits = append(stats.Habits, row)
	}

	finish(&stats, 30)
	return stats
}

func finish(stats *PeriodStats, days int) {
	stats.CompletionRate = percent(stats.Completed, stats.Total)
	stats.AverageMinutesPerDay = timer.Round(stats.TotalMinutes / float64(days))
	stats.TotalMinutes = timer.Round(stats.TotalMinutes)
}

// CompletionRate is the share of completed entries over the last days days,
// today included.
func CompletionRate(habits []*habit.Habit, today time.Time, days int) Rate {
	if days < 1 {
		days = 1
	}
	today = habit.Normalize(today)
	start := today.AddDate(0, 0, -(days - 1))

	rate := Rate{
		Period:    fmt.Sprintf("Last %d days", days),
		StartDate: start,
		EndDate:   today,
	}

	from, to := dateKey(start), dateKey(today)
	for _, h := range habits {
		for _, e := range h.History {
			key := dateKey(e.Date)
			if key < from || key > to {
				continue
			}
			rate.Total++
			if e.Status == habit.StatusCompleted {
				rate.Completed++
			}
		}
	}

	rate.CompletionRate = percent(rate.Completed, rate.Total)
	return rate
}
