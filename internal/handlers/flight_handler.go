package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/models"
)

// FlightOperations is implemented by services.FlightService
type FlightOperations interface {
	Search(ctx context.Context, req models.FlightSearchRequest) ([]models.Offer, error)
	PrecisePricing(ctx context.Context, req models.PrecisePricingRequest) (*models.Offer, error)
}

// FlightHandler handles flight search and pricing requests
type FlightHandler struct {
	flights FlightOperations
	audit   AuditLog
	logger  *logrus.Logger
}

// NewFlightHandler creates a new flight handler. audit may be nil.
func NewFlightHandler(flights FlightOperations, audit AuditLog, logger *logrus.Logger) *FlightHandler {
	return &FlightHandler{
		flights: flights,
		audit:   audit,
		logger:  logger,
	}
}

// Search handles POST /api/v1/flights/search
// @Summary Search flights
// @Description Query the provider and return normalized offers
// @Tags Flights
// @Accept json
// @Produce json
// @Param search body models.FlightSearchRequest true "Search criteria"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid request or provider error"
// @Failure 422 {object} map[string]interface{} "Validation failed"
// @Failure 504 {object} map[string]interface{} "Provider did not answer"
// @Router /api/v1/flights/search [post]
func (h *FlightHandler) Search(c *gin.Context) {
	var req models.FlightSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	offers, err := h.flights.Search(c.Request.Context(), req)
	if err != nil {
		safeLogProviderError(c, h.audit, h.logger, "", err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    offers,
		"count":   len(offers),
	})
}

// PrecisePricing handles POST /api/v1/flights/precise-pricing
// @Summary Reprice an offer
// @Description Confirm the bookable price of one offer from search results
// @Tags Flights
// @Accept json
// @Produce json
// @Param pricing body models.PrecisePricingRequest true "Selected offer"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid request or provider error"
// @Failure 422 {object} map[string]interface{} "Validation failed"
// @Router /api/v1/flights/precise-pricing [post]
func (h *FlightHandler) PrecisePricing(c *gin.Context) {
	var req models.PrecisePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	offer, err := h.flights.PrecisePricing(c.Request.Context(), req)
	if err != nil {
		safeLogProviderError(c, h.audit, h.logger, "", err)
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    offer,
	})
}
