// Package reservations orchestrates the reservation lifecycle across the
// store, the calendar gateway, and the notification gateway.
package reservations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"reservo/backend/internal/domain"
	"reservo/backend/internal/slotting"
	"reservo/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Calendar is the remote calendar surface the lifecycle depends on.
type Calendar interface {
	ListBusyIntervals(ctx context.Context, day time.Time) ([]slotting.Interval, error)
	BookEvent(ctx context.Context, r domain.Reservation) (string, error)
	ConfirmEvent(ctx context.Context, eventID string) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Notifier sends the lifecycle emails.
type Notifier interface {
	SendIntake(ctx context.Context, r domain.Reservation) error
	SendConfirmation(ctx context.Context, r domain.Reservation) error
	SendCancellation(ctx context.Context, r domain.Reservation) error
}

// Metrics counts lifecycle transitions.
type Metrics interface {
	ReservationCreated()
	EmailConfirmed()
	ReservationConfirmed()
	ReservationDeleted()
}

type nopMetrics struct{}

func (nopMetrics) ReservationCreated()   {}
func (nopMetrics) EmailConfirmed()       {}
func (nopMetrics) ReservationConfirmed() {}
func (nopMetrics) ReservationDeleted()   {}

type Deps struct {
	Repo     store.ReservationRepository
	Calendar Calendar
	Notifier Notifier
	Metrics  Metrics
	TimeZone *time.Location
	Logger   *slog.Logger
}

type Service struct {
	repo     store.ReservationRepository
	calendar Calendar
	notifier Notifier
	metrics  Metrics
	loc      *time.Location
	log      *slog.Logger
}

func NewService(deps Deps) *Service {
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.TimeZone == nil {
		deps.TimeZone = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		repo:     deps.Repo,
		calendar: deps.Calendar,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		loc:      deps.TimeZone,
		log:      deps.Logger.With(slog.String("component", "service.reservations")),
	}
}

// FreeSlots computes the bookable slots for a single business day.
func (s *Service) FreeSlots(ctx context.Context, day time.Time, longService bool) ([]slotting.Slot, error) {
	if day.IsZero() {
		return nil, validationError("day is required")
	}

	busy, err := s.calendar.ListBusyIntervals(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list busy intervals: %w", err)
	}
	return slotting.FreeSlots(day, busy, slotting.ServiceSlotLength(longService), s.loc)
}

type CreateInput struct {
	Name         string
	Phone        string
	Email        string
	Registration string
	StartTime    time.Time
	LongService  bool
}

// Create records a new reservation on a currently free slot and mails the
// customer the confirmation link. No calendar event exists yet; the slot is
// held only once the email is confirmed.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Reservation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Reservation{}, validationError("name is required")
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return domain.Reservation{}, validationError("phone is required")
	}
	email := strings.TrimSpace(in.Email)
	if !validEmail(email) {
		return domain.Reservation{}, validationError("invalid email")
	}
	registration := strings.TrimSpace(in.Registration)
	if registration == "" {
		return domain.Reservation{}, validationError("registration is required")
	}
	if in.StartTime.IsZero() {
		return domain.Reservation{}, validationError("start_time is required")
	}

	start := in.StartTime.In(s.loc)
	slots, err := s.FreeSlots(ctx, start, in.LongService)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !slotting.Covers(slots, start, slotting.ServiceSlotLength(in.LongService)) {
		return domain.Reservation{}, validationError("slot is not available")
	}

	created, err := s.repo.Create(ctx, domain.Reservation{
		Name:         name,
		Phone:        phone,
		Email:        email,
		Registration: registration,
		StartTime:    start.UTC(),
		LongService:  in.LongService,
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}

	s.metrics.ReservationCreated()
	s.log.Info("reservation created",
		slog.String("reservation_id", created.ID.String()),
		slog.Time("start_time", created.StartTime),
		slog.Bool("long_service", created.LongService),
	)

	if err := s.notifier.SendIntake(ctx, created); err != nil {
		// The row is kept: the link can be re-sent through UpdateEmail.
		return created, fmt.Errorf("send intake email: %w", err)
	}
	return created, nil
}

// ConfirmEmail applies the customer's confirmation: it claims the
// email-confirmed flag and books the tentative calendar event. Repeated calls
// for the same reservation are no-ops after the first one wins, so a re-opened
// confirmation link never books a second event.
func (s *Service) ConfirmEmail(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if id == uuid.Nil {
		return domain.Reservation{}, validationError("reservation id is required")
	}

	row, claimed, err := s.repo.ClaimEmailConfirmation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !claimed {
		s.log.Info("email already confirmed", slog.String("reservation_id", id.String()))
		return row, nil
	}

	eventID, err := s.calendar.BookEvent(ctx, row)
	if err != nil {
		if rerr := s.repo.ReleaseEmailConfirmation(ctx, id); rerr != nil {
			s.log.Error("release after failed booking",
				slog.Any("err", rerr),
				slog.String("reservation_id", id.String()),
			)
		}
		return domain.Reservation{}, fmt.Errorf("book calendar event: %w", err)
	}

	if err := s.repo.SetEventID(ctx, id, eventID); err != nil {
		if derr := s.calendar.DeleteEvent(ctx, eventID); derr != nil {
			s.log.Error("orphaned calendar event",
				slog.Any("err", derr),
				slog.String("event_id", eventID),
				slog.String("reservation_id", id.String()),
			)
		}
		if rerr := s.repo.ReleaseEmailConfirmation(ctx, id); rerr != nil {
			s.log.Error("release after failed event id write",
				slog.Any("err", rerr),
				slog.String("reservation_id", id.String()),
			)
		}
		return domain.Reservation{}, fmt.Errorf("persist event id: %w", err)
	}

	row.EventID = eventID
	s.metrics.EmailConfirmed()
	s.log.Info("email confirmed",
		slog.String("reservation_id", id.String()),
		slog.String("event_id", eventID),
	)
	return row, nil
}

// AdminConfirm finalizes an email-confirmed reservation: the calendar event
// is recolored, the customer is notified, and the confirmed flag is set.
func (s *Service) AdminConfirm(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if id == uuid.Nil {
		return domain.Reservation{}, validationError("reservation id is required")
	}

	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if _, err := domain.Next(row.State(), domain.EventAdminConfirm); err != nil {
		return domain.Reservation{}, err
	}
	if row.EventID == "" {
		return domain.Reservation{}, fmt.Errorf("reservation %s has no calendar event: %w", id, domain.ErrInvalidTransition)
	}

	if err := s.calendar.ConfirmEvent(ctx, row.EventID); err != nil {
		return domain.Reservation{}, fmt.Errorf("confirm calendar event: %w", err)
	}
	if err := s.notifier.SendConfirmation(ctx, row); err != nil {
		return domain.Reservation{}, fmt.Errorf("send confirmation email: %w", err)
	}

	confirmed, err := s.repo.SetAdminConfirmed(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.metrics.ReservationConfirmed()
	s.log.Info("reservation confirmed",
		slog.String("reservation_id", id.String()),
		slog.String("event_id", confirmed.EventID),
	)
	return confirmed, nil
}

// Delete removes the reservation, its calendar event if one was booked, and
// notifies the customer. A calendar event that cannot be removed does not
// block the deletion; it is logged and left for manual cleanup.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("reservation id is required")
	}

	row, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if row.EventID != "" {
		if err := s.calendar.DeleteEvent(ctx, row.EventID); err != nil {
			s.log.Warn("calendar event not removed",
				slog.Any("err", err),
				slog.String("event_id", row.EventID),
				slog.String("reservation_id", id.String()),
			)
		}
	}

	s.metrics.ReservationDeleted()
	s.log.Info("reservation deleted",
		slog.String("reservation_id", id.String()),
		slog.String("state", string(row.State())),
	)

	if err := s.notifier.SendCancellation(ctx, row); err != nil {
		return fmt.Errorf("send cancellation email: %w", err)
	}
	return nil
}

// UpdateEmail changes the contact address of a reservation. With resend set
// the intake email is sent again to the new address; otherwise the
// reservation is confirmed directly, covering the operator taking a
// confirmation over the phone.
func (s *Service) UpdateEmail(ctx context.Context, id uuid.UUID, email string, resend bool) (domain.Reservation, error) {
	if id == uuid.Nil {
		return domain.Reservation{}, validationError("reservation id is required")
	}
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return domain.Reservation{}, validationError("invalid email")
	}

	row, err := s.repo.SetEmail(ctx, id, email)
	if err != nil {
		return domain.Reservation{}, err
	}
	s.log.Info("email updated", slog.String("reservation_id", id.String()))

	if resend {
		if err := s.notifier.SendIntake(ctx, row); err != nil {
			return row, fmt.Errorf("send intake email: %w", err)
		}
		return row, nil
	}
	return s.ConfirmEmail(ctx, id)
}

// List returns the reservations starting inside the window, optionally
// narrowed by confirmation progress.
func (s *Service) List(ctx context.Context, windowStart, windowEnd time.Time, filter store.ListFilter) ([]domain.Reservation, error) {
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if end.Equal(start) || end.Before(start) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.List(ctx, start, end, filter)
}

// Get returns a single reservation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if id == uuid.Nil {
		return domain.Reservation{}, validationError("reservation id is required")
	}
	return s.repo.Get(ctx, id)
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
