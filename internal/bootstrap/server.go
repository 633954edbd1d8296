package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pvoronin/busbooking/api"
	"github.com/pvoronin/busbooking/config"
	"github.com/pvoronin/busbooking/internal/service/booking"
	"github.com/pvoronin/busbooking/internal/service/trips"
	"github.com/sirupsen/logrus"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, tripSvc trips.TripUseCase, bookingSvc booking.BookingUseCase, runner api.ReconcileRunner, logger *logrus.Logger) error {
	router := NewRouter(tripSvc, bookingSvc, runner)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("address", cfg.HTTP.Address).Info("http server starting")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

// NewRouter wires the gin engine. CORS runs first so the scheduler's OPTIONS
// preflight to the reconcile endpoint gets its empty success response without
// touching any handler.
func NewRouter(tripSvc trips.TripUseCase, bookingSvc booking.BookingUseCase, runner api.ReconcileRunner) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.NewTripHandler(tripSvc).Register(router.Group("/trips"))
	api.NewBookingHandler(bookingSvc).Register(router.Group("/bookings"))
	api.NewReconcileHandler(runner).Register(router.Group("/internal"))

	return router
}
