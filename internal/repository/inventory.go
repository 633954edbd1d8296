package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pvoronin/busbooking/internal/domain"
)

// executor is satisfied by both *pgxpool.Pool and pgx.Tx, so the inventory
// statements below run standalone or inside a transaction.
type executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// reserveSeats and releaseSeats are the only two statements that ever touch
// available_seats. Booking creation, cancellation and expiry reclamation all
// funnel through them, so there is a single atomic primitive per trip and no
// second write path to race against. The conditional WHERE serializes
// concurrent reservations at the row: of two that together exceed
// availability, only one can match.
func reserveSeats(ctx context.Context, db executor, tripID int64, seats int) error {
	res, err := db.Exec(ctx, `UPDATE trips SET available_seats = available_seats - $2, updated_at = now() WHERE id=$1 AND available_seats >= $2`, tripID, seats)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrSoldOut
	}
	return nil
}

// releaseSeats clamps at capacity so a double release can never over-count
// inventory. Calling it at most once per booking is the caller's job.
func releaseSeats(ctx context.Context, db executor, tripID int64, seats int) error {
	res, err := db.Exec(ctx, `UPDATE trips SET available_seats = LEAST(capacity, available_seats + $2), updated_at = now() WHERE id=$1`, tripID, seats)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
