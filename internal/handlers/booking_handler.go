package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/middleware"
	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/internal/services"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// BookingOperations is implemented by services.BookingLifecycleService
type BookingOperations interface {
	CreateBooking(ctx context.Context, actor services.Actor, req models.CreateBookingRequest) (*models.Booking, error)
	RequestTicketing(ctx context.Context, actor services.Actor, orderNum string, req models.TicketingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, actor services.Actor, orderNum string, req models.CancelBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, actor services.Actor, orderNum string) (*models.Booking, error)
	ListBookings(ctx context.Context, actor services.Actor, limit, offset int) ([]models.Booking, error)
	GetOrderDetail(ctx context.Context, actor services.Actor, orderNum string) (*pkfare.OrderDetailData, error)
}

// BookingHandler handles the booking lifecycle endpoints
type BookingHandler struct {
	bookings BookingOperations
	audit    AuditLog
	logger   *logrus.Logger
}

// NewBookingHandler creates a new booking handler. audit may be nil.
func NewBookingHandler(bookings BookingOperations, audit AuditLog, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		audit:    audit,
		logger:   logger,
	}
}

// actorFrom builds the service actor from the authenticated user
func actorFrom(c *gin.Context) (services.Actor, bool) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{UserID: userCtx.UserID, Admin: userCtx.IsAdmin()}, true
}

func (h *BookingHandler) requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
	}
	return actor, ok
}

// bindOptionalJSON binds the body when one was sent
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking handles POST /api/v1/flights/bookings
// @Summary Create a flight booking
// @Description Place the order with the provider and persist the booking graph
// @Tags Bookings
// @Accept json
// @Produce json
// @Param booking body models.CreateBookingRequest true "Priced offer and passengers"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid request or provider rejection"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 422 {object} map[string]interface{} "Validation failed"
// @Failure 504 {object} map[string]interface{} "Provider outcome unknown"
// @Security BearerAuth
// @Router /api/v1/flights/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), actor, req)
	if err != nil {
		safeLogProviderError(c, h.audit, h.logger, "", err)
		respondError(c, h.logger, err)
		return
	}

	safeLogBookingEvent(c, h.audit, h.logger, services.AuditBookingCreated, booking.OrderNum, map[string]interface{}{
		"solution_id":  req.SolutionID,
		"total_amount": booking.TotalAmount,
		"passengers":   len(req.Passengers),
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Booking created",
		"data":    booking,
	})
}

// ============================================================================
// READS
// ============================================================================

// ListBookings handles GET /api/v1/bookings
// @Summary List bookings
// @Description Admins see every booking, other users see their own
// @Tags Bookings
// @Produce json
// @Param limit query int false "Page size (1-100)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} models.BookingListResponse
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, offset = services.NormalizePage(limit, offset)

	bookings, err := h.bookings.ListBookings(c.Request.Context(), actor, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.BookingListResponse{
			Bookings: bookings,
			Limit:    limit,
			Offset:   offset,
		},
	})
}

// GetBooking handles GET /api/v1/bookings/:orderNum
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param orderNum path string true "Provider order number"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{} "Not your booking"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Security BearerAuth
// @Router /api/v1/bookings/{orderNum} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(c.Request.Context(), actor, c.Param("orderNum"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    booking,
	})
}

// GetOrderDetail handles GET /api/v1/bookings/:orderNum/details
// @Summary Get the provider's order detail
// @Description Fetches the live order from the provider and folds its status into the booking
// @Tags Bookings
// @Produce json
// @Param orderNum path string true "Provider order number"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/bookings/{orderNum}/details [get]
func (h *BookingHandler) GetOrderDetail(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	orderNum := c.Param("orderNum")
	detail, err := h.bookings.GetOrderDetail(c.Request.Context(), actor, orderNum)
	if err != nil {
		safeLogProviderError(c, h.audit, h.logger, orderNum, err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    detail,
	})
}

// ============================================================================
// TICKETING & CANCELLATION
// ============================================================================

// RequestTicketing handles POST /api/v1/bookings/:orderNum/ticketing
// @Summary Request ticket issuance
// @Description Confirms the order price and asks the provider to issue tickets
// @Tags Bookings
// @Accept json
// @Produce json
// @Param orderNum path string true "Provider order number"
// @Param ticketing body models.TicketingRequest false "Contact overrides"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Booking cannot be ticketed"
// @Security BearerAuth
// @Router /api/v1/bookings/{orderNum}/ticketing [post]
func (h *BookingHandler) RequestTicketing(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req models.TicketingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	orderNum := c.Param("orderNum")
	booking, err := h.bookings.RequestTicketing(c.Request.Context(), actor, orderNum, req)
	if err != nil {
		safeLogProviderError(c, h.audit, h.logger, orderNum, err)
		respondError(c, h.logger, err)
		return
	}

	safeLogBookingEvent(c, h.audit, h.logger, services.AuditTicketingRequested, orderNum, map[string]interface{}{
		"issue_status": booking.IssueStatusValue(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Ticketing requested",
		"data":    booking,
	})
}

// CancelBooking handles POST /api/v1/bookings/:orderNum/cancel
// @Summary Cancel a booking
// @Description Cancels an unticketed order with the provider
// @Tags Bookings
// @Accept json
// @Produce json
// @Param orderNum path string true "Provider order number"
// @Param cancel body models.CancelBookingRequest false "PNR override"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Booking cannot be cancelled"
// @Security BearerAuth
// @Router /api/v1/bookings/{orderNum}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req models.CancelBookingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	orderNum := c.Param("orderNum")
	booking, err := h.bookings.CancelBooking(c.Request.Context(), actor, orderNum, req)
	if err != nil {
		safeLogProviderError(c, h.audit, h.logger, orderNum, err)
		respondError(c, h.logger, err)
		return
	}

	details := map[string]interface{}{}
	if booking.PNR != nil {
		details["pnr"] = *booking.PNR
	}
	safeLogBookingEvent(c, h.audit, h.logger, services.AuditBookingCancelled, orderNum, details)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking cancelled",
		"data":    booking,
	})
}
