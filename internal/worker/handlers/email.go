// Package handlers provides notification handlers for the worker.
// Each handler delivers one kind of notification and can be registered with
// the worker for the notification types it understands.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/notification"
)

var ErrNoRecipient = errors.New("notification has no email address")

// MailClient is the part of the SendGrid client the handlers use.
type MailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type EmailSender struct {
	client MailClient
	from   *mail.Email
}

func NewEmailSender(client MailClient, fromName, fromAddress string) *EmailSender {
	return &EmailSender{
		client: client,
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func NewSendGridSender(apiKey, fromName, fromAddress string) *EmailSender {
	return NewEmailSender(sendgrid.NewSendClient(apiKey), fromName, fromAddress)
}

var (
	reminderTemplate = template.Must(template.New("reminder").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Habit Reminder</h2>
  <p>Hi there!</p>
  <p>This is a friendly reminder about your habit: <strong>{{.Habit}}</strong></p>
  <p>{{.Message}}</p>
  <p>Keep up the great work!</p>
  <hr>
  <p style="font-size: 12px; color: #666;">Habivance - Smart Habit Tracker</p>
</div>`))

	streakTemplate = template.Must(template.New("streak").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Congratulations!</h2>
  <p>You've maintained a <strong>{{.Streak}}-day streak</strong> on:</p>
  <h3>{{.Habit}}</h3>
  <p>{{.Message}}</p>
  <hr>
  <p style="font-size: 12px;">Habivance - Smart Habit Tracker</p>
</div>`))
)

type emailView struct {
	Habit   string
	Message string
	Streak  int
}

func viewOf(n *notification.Notification) emailView {
	return emailView{
		Habit:   dataString(n, "habit_name"),
		Message: n.Message,
		Streak:  dataInt(n, "streak"),
	}
}

// Reminder emails a scheduled habit reminder. Reminders without an address
// stay in-app only.
func (s *EmailSender) Reminder(ctx context.Context, n *notification.Notification) error {
	if n.Email == "" {
		return InApp(ctx, n)
	}

	v := viewOf(n)
	return s.sendTemplate(ctx, n.Email, "Reminder: "+v.Habit, n.Message, reminderTemplate, v)
}

// Streak emails milestone and personal-record notifications.
func (s *EmailSender) Streak(ctx context.Context, n *notification.Notification) error {
	if n.Email == "" {
		return InApp(ctx, n)
	}

	v := viewOf(n)
	subject := fmt.Sprintf("%d Day Streak on %s!", v.Streak, v.Habit)
	return s.sendTemplate(ctx, n.Email, subject, n.Message, streakTemplate, v)
}

func (s *EmailSender) sendTemplate(ctx context.Context, to, subject, plain string, tmpl *template.Template, view any) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, view); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	return s.Send(ctx, mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), plain, body.String()))
}

func (s *EmailSender) Send(ctx context.Context, email *mail.SGMailV3) error {
	response, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}

	logger.Info("email sent", "subject", email.Subject, "status", response.StatusCode)
	return nil
}

// InApp delivers nothing beyond the inbox entry the queue already holds.
func InApp(_ context.Context, n *notification.Notification) error {
	logger.Debug("in-app notification delivered", "id", n.ID, "type", n.Type, "user", n.UserID)
	return nil
}

func dataString(n *notification.Notification, key string) string {
	s, _ := n.Data[key].(string)
	return s
}

// dataInt reads a number from Data, which holds float64 once it has been
// through JSON.
func dataInt(n *notification.Notification, key string) int {
	switch v := n.Data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
