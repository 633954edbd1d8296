package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pvoronin/busbooking/internal/domain"
	"github.com/pvoronin/busbooking/internal/kafka"
	"github.com/pvoronin/busbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, token string) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, token string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, token string) (*domain.Booking, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateBookingInput struct {
	TripID         int64  `json:"trip_id"`
	SeatCount      int    `json:"seat_count"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
}

// BookingService orchestrates the booking lifecycle. Every seat hold it
// creates is released exactly once, by cancellation or by the expiry
// reconciler; the pairing is enforced by the repository's guarded updates.
type BookingService struct {
	bookings     repository.BookingRepository
	trips        repository.TripRepository
	producer     Producer
	bookingTopic string
	logger       *logrus.Logger
	now          func() time.Time
}

func NewBookingService(
	bookings repository.BookingRepository,
	trips repository.TripRepository,
	producer Producer,
	bookingTopic string,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		trips:        trips,
		producer:     producer,
		bookingTopic: bookingTopic,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.SeatCount < 1 {
		return nil, fmt.Errorf("%w: seat count must be at least 1", domain.ErrInvalidRequest)
	}
	if input.PassengerEmail == "" {
		return nil, fmt.Errorf("%w: passenger email is required", domain.ErrInvalidRequest)
	}

	trip, err := s.trips.GetByID(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusScheduled {
		return nil, fmt.Errorf("%w: trip is not open for booking", domain.ErrInvalidRequest)
	}
	if !trip.DepartureTime.After(s.now()) {
		return nil, fmt.Errorf("%w: trip has already departed", domain.ErrInvalidRequest)
	}

	booking := &domain.Booking{
		Token:          uuid.NewString(),
		TripID:         trip.ID,
		SeatCount:      input.SeatCount,
		TotalCents:     trip.PriceCents * int64(input.SeatCount),
		PassengerName:  input.PassengerName,
		PassengerEmail: input.PassengerEmail,
	}

	// Seat reservation and booking insert commit together inside
	// CreatePending, so there is no window where seats are held without a
	// booking row to account for them.
	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_created", booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, token string) (*domain.Booking, error) {
	return s.bookings.GetByToken(ctx, token)
}

// ConfirmBooking is the hook the payment-success callback invokes. The hold
// becomes permanent; no seat counts change.
func (s *BookingService) ConfirmBooking(ctx context.Context, token string) (*domain.Booking, error) {
	confirmed, err := s.bookings.Confirm(ctx, token)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_confirmed", confirmed)
	return confirmed, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, token string) (*domain.Booking, error) {
	cancelled, err := s.bookings.Cancel(ctx, token)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_cancelled", cancelled)
	return cancelled, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:           eventType,
		Token:          booking.Token,
		TripID:         booking.TripID,
		SeatCount:      booking.SeatCount,
		PassengerEmail: booking.PassengerEmail,
		Status:         string(booking.Status),
		OccurredAt:     s.now(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.Token, event); err != nil {
		s.logger.WithError(err).WithField("token", booking.Token).Warnf("failed to publish %s event", eventType)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
