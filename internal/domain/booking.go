package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// HoldsSeats reports whether a booking in this status counts against the
// trip's available seats.
func (s BookingStatus) HoldsSeats() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

type Booking struct {
	ID             int64
	Token          string
	TripID         int64
	SeatCount      int
	TotalCents     int64
	Status         BookingStatus
	PassengerName  string
	PassengerEmail string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
