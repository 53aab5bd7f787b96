package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/database"
	"github.com/Arden28/flygasal-api/internal/services"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// respondError maps service and provider errors onto HTTP responses
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   "validation_failed",
			"message": "Request validation failed",
			"fields":  verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "not_found",
			"message": "Booking not found",
		})
		return
	case errors.Is(err, services.ErrBookingForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "forbidden",
			"message": "You don't have permission to access this booking",
		})
		return
	case errors.Is(err, services.ErrBookingNotCancellable),
		errors.Is(err, services.ErrBookingNotTicketable),
		errors.Is(err, services.ErrTicketingInProgress):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   "invalid_state",
			"message": err.Error(),
		})
		return
	}

	if pe, ok := pkfare.AsProviderError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"code":    pe.Code,
			"message": pe.Message,
		})
		return
	}

	switch {
	case errors.Is(err, pkfare.ErrProviderUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"code":    "PROVIDER_UNAVAILABLE",
			"message": "Flight provider is temporarily unavailable. Please try again shortly.",
		})
	case errors.Is(err, pkfare.ErrUnknownOutcome):
		logger.WithError(err).Warn("Provider call outcome unknown")
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"success": false,
			"code":    "UNKNOWN_OUTCOME",
			"message": "The provider did not answer in time. Check the booking status before retrying.",
		})
	case errors.Is(err, services.ErrNoPricedSegments):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"code":    "NO_PRICED_SEGMENTS",
			"message": "The provider returned no flights for this offer. Please search again.",
		})
	default:
		logger.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal_error",
			"message": "Something went wrong. Please try again later.",
		})
	}
}

// respondBindError answers a request body that could not be decoded
func respondBindError(c *gin.Context, logger *logrus.Logger, err error) {
	logger.WithError(err).WithField("path", c.FullPath()).Warn("Invalid request body")
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "invalid_request",
		"message": "Invalid request format",
	})
}
