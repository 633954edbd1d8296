package reconciler

import (
	"context"
	"time"

	"github.com/pvoronin/busbooking/internal/domain"
	"github.com/pvoronin/busbooking/internal/kafka"
	"github.com/pvoronin/busbooking/internal/repository"
	"github.com/sirupsen/logrus"
)

// runLockTTL bounds how long a crashed sweep keeps other processes out.
const runLockTTL = 5 * time.Minute

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// RunLocker serializes sweeps across processes. Implemented by the redis
// cache; nil disables the guard.
type RunLocker interface {
	AcquireRunLock(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context) error
}

// TripError records a trip whose reclamation failed this run. The bookings
// involved stay PENDING, so the next sweep picks them up again.
type TripError struct {
	TripID int64  `json:"trip_id"`
	Seats  int    `json:"seats"`
	Error  string `json:"error"`
}

type Summary struct {
	ReclaimedCount int         `json:"reclaimed_count"`
	TripsUpdated   int         `json:"trips_updated"`
	Errors         []TripError `json:"errors"`
	Skipped        bool        `json:"skipped,omitempty"`
}

// Reconciler reclaims seats held by bookings abandoned before payment.
type Reconciler struct {
	bookings     repository.BookingRepository
	locker       RunLocker
	producer     Producer
	bookingTopic string
	expiryWindow time.Duration
	logger       *logrus.Logger
	now          func() time.Time
}

func New(
	bookings repository.BookingRepository,
	locker RunLocker,
	producer Producer,
	bookingTopic string,
	expiryWindow time.Duration,
	logger *logrus.Logger,
) *Reconciler {
	return &Reconciler{
		bookings:     bookings,
		locker:       locker,
		producer:     producer,
		bookingTopic: bookingTopic,
		expiryWindow: expiryWindow,
		logger:       logger,
		now:          time.Now,
	}
}

// Run performs one reconciliation sweep: find pending bookings past the
// expiry window, group them by trip, and reclaim each trip's holds in a
// single transaction. A failure on one trip never blocks the others.
func (r *Reconciler) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{Errors: []TripError{}}

	if r.locker != nil {
		ok, err := r.locker.AcquireRunLock(ctx, runLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Info("expiry sweep already running elsewhere, skipping")
			summary.Skipped = true
			return summary, nil
		}
		defer func() {
			if err := r.locker.ReleaseRunLock(ctx); err != nil {
				r.logger.WithError(err).Warn("failed to release reconciler run lock")
			}
		}()
	}

	deadline := r.now().Add(-r.expiryWindow)
	candidates, err := r.bookings.FindExpiredPending(ctx, deadline)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return summary, nil
	}

	// One release per trip, not one per booking, to keep contention on the
	// seat counter low.
	byTrip := make(map[int64][]int64)
	seatsByTrip := make(map[int64]int)
	for _, b := range candidates {
		byTrip[b.TripID] = append(byTrip[b.TripID], b.ID)
		seatsByTrip[b.TripID] += b.SeatCount
	}

	for tripID, bookingIDs := range byTrip {
		reclaimed, err := r.bookings.ReclaimExpired(ctx, tripID, bookingIDs, deadline)
		if err != nil {
			// Logged with enough context to replay by hand; not retried
			// this run.
			r.logger.WithError(err).WithFields(logrus.Fields{
				"trip_id": tripID,
				"seats":   seatsByTrip[tripID],
			}).Error("failed to reclaim expired bookings for trip")
			summary.Errors = append(summary.Errors, TripError{TripID: tripID, Seats: seatsByTrip[tripID], Error: err.Error()})
			continue
		}
		if len(reclaimed) == 0 {
			// Every candidate was confirmed or cancelled since the scan.
			continue
		}

		summary.ReclaimedCount += len(reclaimed)
		summary.TripsUpdated++
		for _, b := range reclaimed {
			r.publish(ctx, b)
		}
	}

	r.logger.WithFields(logrus.Fields{
		"reclaimed": summary.ReclaimedCount,
		"trips":     summary.TripsUpdated,
		"errors":    len(summary.Errors),
	}).Info("expiry sweep finished")

	return summary, nil
}

func (r *Reconciler) publish(ctx context.Context, b domain.Booking) {
	if r.producer == nil || r.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:           "booking_expired",
		Token:          b.Token,
		TripID:         b.TripID,
		SeatCount:      b.SeatCount,
		PassengerEmail: b.PassengerEmail,
		Status:         string(domain.BookingStatusExpired),
		OccurredAt:     r.now(),
	}
	if err := r.producer.Publish(ctx, r.bookingTopic, b.Token, event); err != nil {
		r.logger.WithError(err).WithField("token", b.Token).Warn("failed to publish booking_expired event")
	}
}
