package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pvoronin/busbooking/config"
	"github.com/pvoronin/busbooking/internal/bootstrap"
	"github.com/pvoronin/busbooking/internal/cache"
	"github.com/pvoronin/busbooking/internal/kafka"
	"github.com/pvoronin/busbooking/internal/repository"
	"github.com/pvoronin/busbooking/internal/service/booking"
	"github.com/pvoronin/busbooking/internal/service/reconciler"
	"github.com/pvoronin/busbooking/internal/service/trips"
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

	tripRepo := repository.NewTripRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)

	tripService := trips.NewTripService(catalogRepo, tripRepo, redisCache)
	bookingService := booking.NewBookingService(bookingRepo, tripRepo, producer, cfg.Kafka.BookingTopic, logger)
	sweeper := reconciler.New(bookingRepo, redisCache, producer, cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.ExpiryWindowHours)*time.Hour, logger)

	if err := bootstrap.Run(ctx, cfg, tripService, bookingService, sweeper, logger); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
