package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/models"
)

// OrderEventReader is implemented by services.AuditService
type OrderEventReader interface {
	GetOrderEvents(ctx context.Context, orderNum string, limit int) ([]models.BookingAuditLog, error)
}

// AuditHandler exposes the booking audit trail to admins
type AuditHandler struct {
	events OrderEventReader
	logger *logrus.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(events OrderEventReader, logger *logrus.Logger) *AuditHandler {
	return &AuditHandler{events: events, logger: logger}
}

// GetOrderEvents handles GET /api/v1/bookings/:orderNum/events
// @Summary List audit events for an order
// @Tags Admin
// @Produce json
// @Param orderNum path string true "Provider order number"
// @Param limit query int false "Max events (1-500)" default(100)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/bookings/{orderNum}/events [get]
func (h *AuditHandler) GetOrderEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}

	orderNum := c.Param("orderNum")
	events, err := h.events.GetOrderEvents(c.Request.Context(), orderNum, limit)
	if err != nil {
		h.logger.WithError(err).WithField("order_num", orderNum).Error("Failed to load audit events")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal_error",
			"message": "Failed to load audit events",
		})
		return
	}
	if events == nil {
		events = []models.BookingAuditLog{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    events,
		"count":   len(events),
	})
}
