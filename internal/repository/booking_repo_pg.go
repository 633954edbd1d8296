package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pvoronin/busbooking/internal/domain"
)

const bookingColumns = `id, token, trip_id, seat_count, total_cents, status, passenger_name, passenger_email, created_at, updated_at`

type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByToken(ctx context.Context, token string) (*domain.Booking, error)
	Confirm(ctx context.Context, token string) (*domain.Booking, error)
	Cancel(ctx context.Context, token string) (*domain.Booking, error)
	FindExpiredPending(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
	ReclaimExpired(ctx context.Context, tripID int64, bookingIDs []int64, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

// CreatePending reserves seats and inserts the pending booking in one
// transaction, so a failed insert rolls the seat hold back with it.
func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := reserveSeats(ctx, tx, booking.TripID, booking.SeatCount); err != nil {
		return err
	}

	booking.Status = domain.BookingStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (token, trip_id, seat_count, total_cents, status, passenger_name, passenger_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`, booking.Token, booking.TripID, booking.SeatCount, booking.TotalCents, booking.Status, booking.PassengerName, booking.PassengerEmail).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByToken(ctx context.Context, token string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE token=$1`, token)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// Confirm transitions PENDING -> CONFIRMED. The status guard in the UPDATE is
// what makes the transition atomic against a concurrent cancel or expiry.
func (r *PGBookingRepository) Confirm(ctx context.Context, token string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE token=$2 AND status=$3 RETURNING `+bookingColumns,
		domain.BookingStatusConfirmed, token, domain.BookingStatusPending)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.transitionFailure(ctx, token)
		}
		return nil, err
	}
	return b, nil
}

// Cancel transitions PENDING|CONFIRMED -> CANCELLED and credits the seats
// back, both in one transaction. The status guard means the release happens
// at most once for a booking no matter how often Cancel is called.
func (r *PGBookingRepository) Cancel(ctx context.Context, token string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE token=$2 AND status = ANY($3) RETURNING `+bookingColumns,
		domain.BookingStatusCancelled, token, []string{string(domain.BookingStatusPending), string(domain.BookingStatusConfirmed)})
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.transitionFailure(ctx, token)
		}
		return nil, err
	}

	if err := releaseSeats(ctx, tx, b.TripID, b.SeatCount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// FindExpiredPending is a read-only scan for reclamation candidates. The
// authoritative state check happens again inside ReclaimExpired.
func (r *PGBookingRepository) FindExpiredPending(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status=$1 AND created_at < $2`, domain.BookingStatusPending, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *b)
	}
	return pending, rows.Err()
}

// ReclaimExpired deletes the given bookings and credits their seats back to
// the trip in one transaction. The status and deadline guards on the DELETE
// skip any booking confirmed or cancelled since the scan, and because the
// delete only commits together with the release, seats can never be lost to
// a half-applied reclamation.
func (r *PGBookingRepository) ReclaimExpired(ctx context.Context, tripID int64, bookingIDs []int64, deadline time.Time) ([]domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `DELETE FROM bookings WHERE trip_id=$1 AND id = ANY($2) AND status=$3 AND created_at < $4 RETURNING `+bookingColumns,
		tripID, bookingIDs, domain.BookingStatusPending, deadline)
	if err != nil {
		return nil, err
	}

	var reclaimed []domain.Booking
	seats := 0
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		b.Status = domain.BookingStatusExpired
		reclaimed = append(reclaimed, *b)
		seats += b.SeatCount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if seats > 0 {
		if err := releaseSeats(ctx, tx, tripID, seats); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return reclaimed, nil
}

// transitionFailure tells a missing booking apart from one in the wrong state
// after a guarded update matched no rows.
func (r *PGBookingRepository) transitionFailure(ctx context.Context, token string) error {
	if _, err := r.GetByToken(ctx, token); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Token, &b.TripID, &b.SeatCount, &b.TotalCents, &b.Status, &b.PassengerName, &b.PassengerEmail, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
