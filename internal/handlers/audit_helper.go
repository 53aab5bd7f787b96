package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/middleware"
	"github.com/Arden28/flygasal-api/internal/services"
	"github.com/Arden28/flygasal-api/internal/utils"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// AuditLog is the part of services.AuditService the handlers use
type AuditLog interface {
	LogBookingEvent(ctx context.Context, event services.AuditEvent) error
}

// logAuditError logs audit service errors without failing the request
func logAuditError(logger *logrus.Logger, action string, err error) {
	if err != nil {
		logger.WithError(err).WithField("action", action).Error("Failed to write audit event")
	}
}

// safeLogBookingEvent records an event for the current request. A nil audit
// log disables auditing.
func safeLogBookingEvent(c *gin.Context, audit AuditLog, logger *logrus.Logger, action, orderNum string, details map[string]interface{}) {
	if audit == nil {
		return
	}

	var userID *uuid.UUID
	if userCtx, ok := middleware.GetUserContext(c); ok {
		id := userCtx.UserID
		userID = &id
	}

	err := audit.LogBookingEvent(c.Request.Context(), services.AuditEvent{
		UserID:    userID,
		OrderNum:  orderNum,
		Action:    action,
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
		Details:   details,
	})
	logAuditError(logger, action, err)
}

// safeLogProviderError records a failed provider call. Other errors are not audited.
func safeLogProviderError(c *gin.Context, audit AuditLog, logger *logrus.Logger, orderNum string, err error) {
	pe, ok := pkfare.AsProviderError(err)
	if !ok {
		return
	}
	safeLogBookingEvent(c, audit, logger, services.AuditProviderError, orderNum, map[string]interface{}{
		"endpoint": string(pe.Endpoint),
		"code":     pe.Code,
		"message":  pe.Message,
	})
}
