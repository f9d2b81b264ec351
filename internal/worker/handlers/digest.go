package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"time"

	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nadmax/habivance/internal/dashboard"
	"github.com/nadmax/habivance/internal/habit"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/notification"
	"github.com/nadmax/habivance/internal/streak"
)

const digestDateLayout = "2006-01-02"

type HabitLister interface {
	ListHabits(ctx context.Context, userID string) ([]*habit.Habit, error)
}

// DigestGenerator builds the weekly digest for a WEEKLY_DIGEST notification
// and emails it with the daily breakdown attached as CSV.
type DigestGenerator struct {
	habits   HabitLister
	mailer   *EmailSender
	location *time.Location
	now      func() time.Time
}

func NewDigestGenerator(habits HabitLister, mailer *EmailSender, location *time.Location) *DigestGenerator {
	if location == nil {
		location = time.UTC
	}
	return &DigestGenerator{
		habits:   habits,
		mailer:   mailer,
		location: location,
		now:      time.Now,
	}
}

type StreakRow struct {
	Habit   string
	Current int
	Longest int
	Tier    string
}

type digestView struct {
	Week    dashboard.PeriodStats
	Streaks []StreakRow
}

var digestTemplate = template.Must(template.New("digest").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Your week in habits</h2>
  <p>{{.Week.StartDate.Format "Jan 2"}} to {{.Week.EndDate.Format "Jan 2"}}:
     <strong>{{.Week.Completed}}</strong> of {{.Week.Total}} check-ins completed ({{.Week.CompletionRate}}%),
     {{.Week.TotalMinutes}} minutes tracked.</p>
  {{if .Streaks}}<table>
    <tr><th>Habit</th><th>Current</th><th>Longest</th><th></th></tr>
    {{range .Streaks}}<tr><td>{{.Habit}}</td><td>{{.Current}}</td><td>{{.Longest}}</td><td>{{.Tier}}</td></tr>
    {{end}}
  </table>{{end}}
  <hr>
  <p style="font-size: 12px; color: #666;">Habivance - Smart Habit Tracker</p>
</div>`))

func (g *DigestGenerator) Handle(ctx context.Context, n *notification.Notification) error {
	if n.Email == "" {
		return ErrNoRecipient
	}

	habits, err := g.habits.ListHabits(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	today := habit.Normalize(g.now().In(g.location))
	view := digestView{
		Week:    dashboard.Weekly(habits, today),
		Streaks: streakRows(habits, today),
	}

	var body bytes.Buffer
	if err := digestTemplate.Execute(&body, view); err != nil {
		return fmt.Errorf("failed to render digest: %w", err)
	}

	attachment, err := csvAttachment("weekly-digest.csv", dailyRows(view.Week))
	if err != nil {
		return fmt.Errorf("failed to build digest attachment: %w", err)
	}

	plain := fmt.Sprintf("%d of %d check-ins completed this week (%.2f%%).",
		view.Week.Completed, view.Week.Total, view.Week.CompletionRate)
	email := mail.NewSingleEmail(g.mailer.from, "Your weekly habit digest", mail.NewEmail("", n.Email), plain, body.String())
	email.AddAttachment(attachment)

	if err := g.mailer.Send(ctx, email); err != nil {
		return err
	}

	logger.Info("weekly digest sent", "user", n.UserID, "habits", len(habits))
	return nil
}

// streakRows lists habits by current streak, highest first.
func streakRows(habits []*habit.Habit, today time.Time) []StreakRow {
	rows := make([]StreakRow, 0, len(habits))
	for _, h := range habits {
		snap := streak.Compute(h.History, today)
		rows = append(rows, StreakRow{
			Habit:   h.Name,
			Current: snap.Current,
			Longest: snap.Longest,
			Tier:    streak.TierFor(snap.Current).Name,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Current != rows[j].Current {
			return rows[i].Current > rows[j].Current
		}
		return rows[i].Habit < rows[j].Habit
	})
	return rows
}

func dailyRows(week dashboard.PeriodStats) [][]string {
	data := [][]string{
		{"Date", "Total", "Completed", "Minutes"},
	}

	for _, day := range week.Daily {
		data = append(data, []string{
			day.Date.Format(digestDateLayout),
			strconv.Itoa(day.Total),
			strconv.Itoa(day.Completed),
			strconv.FormatFloat(day.Minutes, 'f', 2, 64),
		})
	}

	return data
}

func csvAttachment(filename string, data [][]string) (*mail.Attachment, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(data); err != nil {
		return nil, err
	}

	a := mail.NewAttachment()
	a.SetContent(base64.StdEncoding.EncodeToString(buf.Bytes()))
	a.SetType("text/csv")
	a.SetFilename(filename)
	a.SetDisposition("attachment")
	return a, nil
}
