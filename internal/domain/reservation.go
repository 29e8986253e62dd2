package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	ShortServiceLength = 15 * time.Minute
	LongServiceLength  = 30 * time.Minute
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	Name           string    `bun:"name,notnull"`
	Phone          string    `bun:"phone,notnull"`
	Email          string    `bun:"email,notnull"`
	Registration   string    `bun:"registration,notnull"`
	StartTime      time.Time `bun:"start_time,notnull"`
	LongService    bool      `bun:"long_service,notnull"`
	EventID        string    `bun:"event_id,nullzero"`
	EmailConfirmed bool      `bun:"email_confirmed,notnull"`
	AdminConfirmed bool      `bun:"admin_confirmed,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func (r *Reservation) ServiceLength() time.Duration {
	if r.LongService {
		return LongServiceLength
	}
	return ShortServiceLength
}

func (r *Reservation) EndTime() time.Time {
	return r.StartTime.Add(r.ServiceLength())
}

// State derives the lifecycle state from the persisted confirmation flags.
// A deleted reservation has no row, so StateDeleted never appears here.
func (r *Reservation) State() State {
	switch {
	case r.AdminConfirmed:
		return StateConfirmed
	case r.EmailConfirmed:
		return StateEmailConfirmed
	default:
		return StateAwaitingEmail
	}
}

func (r *Reservation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}
