package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reservo/backend/internal/domain"
)

// ListFilter selects reservations by confirmation progress. The zero value
// lists everything.
type ListFilter struct {
	AwaitingEmail bool
	Unconfirmed   bool
	Confirmed     bool
}

func (f ListFilter) IsZero() bool {
	return !f.AwaitingEmail && !f.Unconfirmed && !f.Confirmed
}

// ReservationRepository is the durable record of reservation state. State
// guards (ClaimEmailConfirmation, SetAdminConfirmed) are compare-and-set
// writes so concurrent transitions on one id cannot both succeed.
type ReservationRepository interface {
	Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	List(ctx context.Context, windowStart, windowEnd time.Time, filter ListFilter) ([]domain.Reservation, error)

	// ClaimEmailConfirmation atomically flips email_confirmed false->true.
	// The bool reports whether this call won the claim; false with a nil
	// error means the reservation was already confirmed.
	ClaimEmailConfirmation(ctx context.Context, id uuid.UUID) (domain.Reservation, bool, error)
	// ReleaseEmailConfirmation undoes a claim after a failed booking so the
	// transition can be retried.
	ReleaseEmailConfirmation(ctx context.Context, id uuid.UUID) error

	SetEventID(ctx context.Context, id uuid.UUID, eventID string) error
	// SetAdminConfirmed marks the reservation confirmed; it fails with
	// domain.ErrInvalidTransition unless the email was confirmed first.
	SetAdminConfirmed(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	SetEmail(ctx context.Context, id uuid.UUID, email string) (domain.Reservation, error)

	// Delete removes the row and returns its last state.
	Delete(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
}
