package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pvoronin/busbooking/internal/domain"
)

// CatalogRepository reads the route/destination/bus reference data owned by
// schedule-management tooling. It never writes anything.
type CatalogRepository interface {
	SearchTrips(ctx context.Context, origin, destination string, departAfter time.Time, minSeats int) ([]domain.TripView, error)
}

type PGCatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) CatalogRepository {
	return &PGCatalogRepository{db: db}
}

// SearchTrips returns bookable trips joined with their reference data,
// ordered by departure time. The inner joins deliberately drop trips whose
// route, destination or bus row has gone missing; a broken trip should
// disappear from search, not break it.
func (r *PGCatalogRepository) SearchTrips(ctx context.Context, origin, destination string, departAfter time.Time, minSeats int) ([]domain.TripView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, r.name, o.name, d.name, b.name, b.amenities,
		       t.departure_time, t.arrival_time, t.price_cents, t.available_seats
		FROM trips t
		JOIN routes r ON r.id = t.route_id
		JOIN destinations o ON o.id = r.origin_id
		JOIN destinations d ON d.id = r.destination_id
		JOIN buses b ON b.id = t.bus_id
		WHERE t.status = $1
		  AND t.available_seats >= $2
		  AND t.departure_time >= $3
		  AND ($4 = '' OR o.name ILIKE $4)
		  AND ($5 = '' OR d.name ILIKE $5)
		ORDER BY t.departure_time`,
		domain.TripStatusScheduled, minSeats, departAfter, origin, destination)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.TripView, 0)
	for rows.Next() {
		var v domain.TripView
		if err := rows.Scan(&v.TripID, &v.RouteName, &v.Origin, &v.Destination, &v.BusName, &v.Amenities,
			&v.DepartureTime, &v.ArrivalTime, &v.PriceCents, &v.AvailableSeats); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
