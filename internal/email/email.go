package email

import (
	"context"

	"github.com/pvoronin/busbooking/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender is a stand-in for the real mail gateway; it records what would be
// sent so the notification path stays exercised end to end.
type Sender struct {
	logger *logrus.Logger
}

func NewSender(logger *logrus.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.logger.WithFields(logrus.Fields{
		"to":      event.PassengerEmail,
		"type":    event.Type,
		"trip_id": event.TripID,
		"seats":   event.SeatCount,
	}).Info("sending booking notification email")
	return nil
}
