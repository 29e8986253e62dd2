package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"reservo/backend/internal/domain"
	"reservo/backend/internal/store"
)

type ReservationRepo struct {
	db *bun.DB
}

func NewReservationRepo(db *bun.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

func (r *ReservationRepo) Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	m := res
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Reservation{}, err
	}
	return m, nil
}

func (r *ReservationRepo) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var row domain.Reservation
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, store.ErrNotFound
		}
		return domain.Reservation{}, err
	}
	return row, nil
}

func (r *ReservationRepo) List(ctx context.Context, windowStart, windowEnd time.Time, filter store.ListFilter) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	q := r.db.NewSelect().
		Model(&rows).
		Where("start_time >= ?", windowStart).
		Where("start_time < ?", windowEnd).
		OrderExpr("start_time ASC")

	// Selected states combine with OR; the zero filter lists everything.
	if !filter.IsZero() {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			if filter.AwaitingEmail {
				q = q.WhereOr("email_confirmed = FALSE")
			}
			if filter.Unconfirmed {
				q = q.WhereOr("(email_confirmed = TRUE AND admin_confirmed = FALSE)")
			}
			if filter.Confirmed {
				q = q.WhereOr("admin_confirmed = TRUE")
			}
			return q
		})
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

// ClaimEmailConfirmation performs the false->true flip as a single guarded
// UPDATE so two concurrent confirmations cannot both win the claim.
func (r *ReservationRepo) ClaimEmailConfirmation(ctx context.Context, id uuid.UUID) (domain.Reservation, bool, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Reservation)(nil)).
		Set("email_confirmed = TRUE").
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("email_confirmed = FALSE").
		Exec(ctx)
	if err != nil {
		return domain.Reservation{}, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Reservation{}, false, err
	}

	row, err := r.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, false, err
	}
	return row, affected == 1, nil
}

func (r *ReservationRepo) ReleaseEmailConfirmation(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Reservation)(nil)).
		Set("email_confirmed = FALSE").
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *ReservationRepo) SetEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Reservation)(nil)).
		Set("event_id = ?", eventID).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetAdminConfirmed requires the email-confirmed flag in the same UPDATE, so
// the ordering guard holds even under concurrent writers.
func (r *ReservationRepo) SetAdminConfirmed(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var row domain.Reservation
	_, err := r.db.NewUpdate().
		Model((*domain.Reservation)(nil)).
		Set("admin_confirmed = TRUE").
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("email_confirmed = TRUE").
		Returning("*").
		Exec(ctx, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, gerr := r.Get(ctx, id); gerr != nil {
				return domain.Reservation{}, gerr
			}
			return domain.Reservation{}, domain.ErrInvalidTransition
		}
		return domain.Reservation{}, err
	}
	return row, nil
}

func (r *ReservationRepo) SetEmail(ctx context.Context, id uuid.UUID, email string) (domain.Reservation, error) {
	var row domain.Reservation
	_, err := r.db.NewUpdate().
		Model((*domain.Reservation)(nil)).
		Set("email = ?", email).
		Set("updated_at = now()").
		Where("id = ?", id).
		Returning("*").
		Exec(ctx, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, store.ErrNotFound
		}
		return domain.Reservation{}, err
	}
	return row, nil
}

func (r *ReservationRepo) Delete(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var row domain.Reservation
	_, err := r.db.NewDelete().
		Model((*domain.Reservation)(nil)).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, store.ErrNotFound
		}
		return domain.Reservation{}, err
	}
	return row, nil
}
