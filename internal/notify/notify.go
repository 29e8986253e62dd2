// Package notify renders and sends the lifecycle emails: intake with a
// confirmation link, booking confirmation, and cancellation.
package notify

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"reservo/backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const timeslotFormat = "02.01.2006., 15:04"

// Sender delivers a rendered message. Implementations decide the transport.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Notifier is the notification gateway of the reservation lifecycle.
type Notifier struct {
	sender Sender
	appURL string
	log    *slog.Logger

	tplIntake       string
	tplConfirmation string
	tplCancellation string
}

func NewNotifier(sender Sender, appURL string, log *slog.Logger) (*Notifier, error) {
	if log == nil {
		log = slog.Default()
	}

	n := &Notifier{
		sender: sender,
		appURL: strings.TrimRight(appURL, "/"),
		log:    log.With(slog.String("component", "notify")),
	}

	var err error
	if n.tplIntake, err = loadTemplate("templates/intake.html"); err != nil {
		return nil, err
	}
	if n.tplConfirmation, err = loadTemplate("templates/confirmation.html"); err != nil {
		return nil, err
	}
	if n.tplCancellation, err = loadTemplate("templates/cancellation.html"); err != nil {
		return nil, err
	}
	return n, nil
}

func loadTemplate(path string) (string, error) {
	data, err := templateFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load template %s: %w", path, err)
	}
	return string(data), nil
}

// SendIntake mails the confirmation link keyed by the reservation id.
func (n *Notifier) SendIntake(ctx context.Context, r domain.Reservation) error {
	values := map[string]string{
		"name":            r.Name,
		"registration":    r.Registration,
		"timeslot":        r.StartTime.Format(timeslotFormat),
		"confirmationUrl": n.appURL + "/v1/confirmation?uuid=" + r.ID.String(),
	}
	return n.send(ctx, r, "Confirm your reservation", renderTemplate(n.tplIntake, values))
}

// SendConfirmation mails the final booking confirmation.
func (n *Notifier) SendConfirmation(ctx context.Context, r domain.Reservation) error {
	values := map[string]string{
		"name":         r.Name,
		"registration": r.Registration,
		"timeslot":     r.StartTime.Format(timeslotFormat),
	}
	return n.send(ctx, r, "Appointment confirmed", renderTemplate(n.tplConfirmation, values))
}

// SendCancellation mails the cancellation notice.
func (n *Notifier) SendCancellation(ctx context.Context, r domain.Reservation) error {
	values := map[string]string{
		"name":         r.Name,
		"registration": r.Registration,
		"timeslot":     r.StartTime.Format(timeslotFormat),
	}
	return n.send(ctx, r, "Appointment cancelled", renderTemplate(n.tplCancellation, values))
}

func (n *Notifier) send(ctx context.Context, r domain.Reservation, subject, html string) error {
	if err := n.sender.Send(ctx, r.Email, subject, html); err != nil {
		n.log.Error("email send failed",
			slog.Any("err", err),
			slog.String("reservation_id", r.ID.String()),
			slog.String("subject", subject),
		)
		return fmt.Errorf("send email: %w", err)
	}
	n.log.Info("email sent",
		slog.String("reservation_id", r.ID.String()),
		slog.String("subject", subject),
	)
	return nil
}

func renderTemplate(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}
