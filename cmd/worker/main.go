package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pvoronin/busbooking/config"
	"github.com/pvoronin/busbooking/internal/cache"
	"github.com/pvoronin/busbooking/internal/email"
	"github.com/pvoronin/busbooking/internal/kafka"
	"github.com/pvoronin/busbooking/internal/repository"
	"github.com/pvoronin/busbooking/internal/service/reconciler"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SearchCacheSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	sweeper := reconciler.New(bookingRepo, redisCache, producer, cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.ExpiryWindowHours)*time.Hour, logger)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingTopic)
	defer consumer.Close()

	emailSender := email.NewSender(logger)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				logger.WithError(err).Warn("decode booking event")
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			logger.WithError(err).Info("consumer stopped")
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.SweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	logger.WithField("interval_minutes", cfg.Worker.SweepMinutes).Info("expiry worker started")

	for {
		select {
		case <-sweepTicker.C:
			summary, err := sweeper.Run(ctx)
			if err != nil {
				logger.WithError(err).Error("expiry sweep failed")
				continue
			}
			if summary.ReclaimedCount > 0 {
				logger.WithFields(logrus.Fields{
					"reclaimed": summary.ReclaimedCount,
					"trips":     summary.TripsUpdated,
				}).Info("reclaimed expired bookings")
			}
		case <-ctx.Done():
			logger.Info("shutting down expiry worker")
			return
		}
	}
}
