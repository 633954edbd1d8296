package domain

import "time"

type TripStatus string

const (
	TripStatusScheduled TripStatus = "SCHEDULED"
	TripStatusCancelled TripStatus = "CANCELLED"
	TripStatusCompleted TripStatus = "COMPLETED"
)

type Trip struct {
	ID             int64
	RouteID        int64
	BusID          int64
	DepartureTime  time.Time
	ArrivalTime    time.Time
	PriceCents     int64
	Capacity       int
	AvailableSeats int
	Status         TripStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TripView is the denormalized projection of a trip joined with its route,
// origin/destination and bus reference data, used for search display.
type TripView struct {
	TripID         int64     `json:"trip_id"`
	RouteName      string    `json:"route_name"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	BusName        string    `json:"bus_name"`
	Amenities      string    `json:"amenities"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	PriceCents     int64     `json:"price_cents"`
	AvailableSeats int       `json:"available_seats"`
}
