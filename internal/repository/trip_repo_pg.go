package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pvoronin/busbooking/internal/domain"
)

type TripRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
}

type PGTripRepository struct {
	db *pgxpool.Pool
}

func NewTripRepository(db *pgxpool.Pool) TripRepository {
	return &PGTripRepository{db: db}
}

// GetByID is a point-in-time snapshot; the seat count may be stale by the
// time the caller acts on it, which is why reservations re-check availability.
func (r *PGTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `SELECT id, route_id, bus_id, departure_time, arrival_time, price_cents, capacity, available_seats, status, created_at, updated_at FROM trips WHERE id=$1`, id)
	var t domain.Trip
	if err := row.Scan(&t.ID, &t.RouteID, &t.BusID, &t.DepartureTime, &t.ArrivalTime, &t.PriceCents, &t.Capacity, &t.AvailableSeats, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

var _ TripRepository = (*PGTripRepository)(nil)
