package reconciler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/pvoronin/busbooking/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByToken(ctx context.Context, token string) (*domain.Booking, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Confirm(ctx context.Context, token string) (*domain.Booking, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, token string) (*domain.Booking, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindExpiredPending(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ReclaimExpired(ctx context.Context, tripID int64, bookingIDs []int64, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, tripID, bookingIDs, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockRunLocker struct {
	mock.Mock
}

func (m *MockRunLocker) AcquireRunLock(ctx context.Context, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockRunLocker) ReleaseRunLock(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestReconciler(bookings *MockBookingRepository, locker *MockRunLocker, producer *MockProducer, now time.Time) *Reconciler {
	r := &Reconciler{
		bookings:     bookings,
		bookingTopic: "booking-events",
		expiryWindow: 24 * time.Hour,
		logger:       testLogger(),
		now:          func() time.Time { return now },
	}
	if locker != nil {
		r.locker = locker
	}
	if producer != nil {
		r.producer = producer
	}
	return r
}

func TestReconciler_Run_NothingToReclaim(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mockBookings := &MockBookingRepository{}
	r := newTestReconciler(mockBookings, nil, nil, now)

	deadline := now.Add(-24 * time.Hour)
	mockBookings.On("FindExpiredPending", mock.Anything, deadline).Return([]domain.Booking{}, nil)

	summary, err := r.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.ReclaimedCount)
	assert.Equal(t, 0, summary.TripsUpdated)
	assert.Empty(t, summary.Errors)
}

func TestReconciler_Run_BatchesReleasesPerTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-24 * time.Hour)

	mockBookings := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	r := newTestReconciler(mockBookings, nil, mockProducer, now)

	stale := []domain.Booking{
		{ID: 1, Token: "tok-1", TripID: 5, SeatCount: 2, Status: domain.BookingStatusPending},
		{ID: 2, Token: "tok-2", TripID: 5, SeatCount: 3, Status: domain.BookingStatusPending},
	}
	mockBookings.On("FindExpiredPending", mock.Anything, deadline).Return(stale, nil)
	// Both bookings on the same trip are reclaimed in one call.
	mockBookings.On("ReclaimExpired", mock.Anything, int64(5), []int64{1, 2}, deadline).Return(stale, nil)
	mockProducer.On("Publish", mock.Anything, "booking-events", "tok-1", mock.Anything).Return(nil)
	mockProducer.On("Publish", mock.Anything, "booking-events", "tok-2", mock.Anything).Return(nil)

	summary, err := r.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.ReclaimedCount)
	assert.Equal(t, 1, summary.TripsUpdated)
	assert.Empty(t, summary.Errors)
	mockBookings.AssertNumberOfCalls(t, "ReclaimExpired", 1)
	mockProducer.AssertExpectations(t)
}

func TestReconciler_Run_PartialFailureDoesNotBlockOtherTrips(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-24 * time.Hour)

	mockBookings := &MockBookingRepository{}
	r := newTestReconciler(mockBookings, nil, nil, now)

	stale := []domain.Booking{
		{ID: 1, TripID: 5, SeatCount: 2, Status: domain.BookingStatusPending},
		{ID: 2, TripID: 8, SeatCount: 1, Status: domain.BookingStatusPending},
	}
	mockBookings.On("FindExpiredPending", mock.Anything, deadline).Return(stale, nil)
	mockBookings.On("ReclaimExpired", mock.Anything, int64(5), []int64{1}, deadline).
		Return(nil, errors.New("connection reset"))
	mockBookings.On("ReclaimExpired", mock.Anything, int64(8), []int64{2}, deadline).
		Return([]domain.Booking{stale[1]}, nil)

	summary, err := r.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.ReclaimedCount)
	assert.Equal(t, 1, summary.TripsUpdated)
	assert.Len(t, summary.Errors, 1)
	assert.Equal(t, int64(5), summary.Errors[0].TripID)
	assert.Equal(t, 2, summary.Errors[0].Seats)
}

func TestReconciler_Run_ConfirmedBookingsAreImmune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-24 * time.Hour)

	mockBookings := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	r := newTestReconciler(mockBookings, nil, mockProducer, now)

	// Candidate was confirmed between the scan and the guarded delete, so
	// the repository reclaims nothing.
	stale := []domain.Booking{{ID: 1, TripID: 5, SeatCount: 2, Status: domain.BookingStatusPending}}
	mockBookings.On("FindExpiredPending", mock.Anything, deadline).Return(stale, nil)
	mockBookings.On("ReclaimExpired", mock.Anything, int64(5), []int64{1}, deadline).Return([]domain.Booking{}, nil)

	summary, err := r.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.ReclaimedCount)
	assert.Equal(t, 0, summary.TripsUpdated)
	mockProducer.AssertNotCalled(t, "Publish")
}

func TestReconciler_Run_SkipsWhenLockHeld(t *testing.T) {
	now := time.Now()
	mockBookings := &MockBookingRepository{}
	mockLocker := &MockRunLocker{}
	r := newTestReconciler(mockBookings, mockLocker, nil, now)

	mockLocker.On("AcquireRunLock", mock.Anything, runLockTTL).Return(false, nil)

	summary, err := r.Run(context.Background())

	assert.NoError(t, err)
	assert.True(t, summary.Skipped)
	mockBookings.AssertNotCalled(t, "FindExpiredPending")
	mockLocker.AssertNotCalled(t, "ReleaseRunLock")
}

func TestReconciler_Run_ReleasesLockAfterSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(-24 * time.Hour)

	mockBookings := &MockBookingRepository{}
	mockLocker := &MockRunLocker{}
	r := newTestReconciler(mockBookings, mockLocker, nil, now)

	mockLocker.On("AcquireRunLock", mock.Anything, runLockTTL).Return(true, nil)
	mockLocker.On("ReleaseRunLock", mock.Anything).Return(nil)
	mockBookings.On("FindExpiredPending", mock.Anything, deadline).Return([]domain.Booking{}, nil)

	_, err := r.Run(context.Background())

	assert.NoError(t, err)
	mockLocker.AssertExpectations(t)
}
