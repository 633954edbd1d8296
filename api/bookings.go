package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pvoronin/busbooking/internal/domain"
	"github.com/pvoronin/busbooking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	TripID         int64  `json:"trip_id"`
	SeatCount      int    `json:"seat_count"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
}

type bookingResponse struct {
	Token          string `json:"token"`
	TripID         int64  `json:"trip_id"`
	SeatCount      int    `json:"seat_count"`
	TotalCents     int64  `json:"total_cents"`
	Status         string `json:"status"`
	PassengerName  string `json:"passenger_name"`
	PassengerEmail string `json:"passenger_email"`
	CreatedAt      string `json:"created_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:token", h.get)
	router.PUT("/:token/confirm", h.confirm)
	router.DELETE("/:token", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		TripID:         req.TripID,
		SeatCount:      req.SeatCount,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetBooking(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	confirmed, err := h.service.ConfirmBooking(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(confirmed))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.CancelBooking(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		Token:          b.Token,
		TripID:         b.TripID,
		SeatCount:      b.SeatCount,
		TotalCents:     b.TotalCents,
		Status:         string(b.Status),
		PassengerName:  b.PassengerName,
		PassengerEmail: b.PassengerEmail,
		CreatedAt:      b.CreatedAt.Format(time.RFC3339),
	}
}
