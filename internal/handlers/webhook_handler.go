package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/services"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// TicketIssuer is implemented by services.TicketIssuanceService
type TicketIssuer interface {
	HandleTicketIssuance(ctx context.Context, notice *pkfare.TicketIssuanceNotice) (*services.IssuanceResult, error)
}

// WebhookHandler receives provider notifications. Token checks happen in
// middleware.WebhookToken.
type WebhookHandler struct {
	issuer TicketIssuer
	audit  AuditLog
	logger *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler. audit may be nil.
func NewWebhookHandler(issuer TicketIssuer, audit AuditLog, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		issuer: issuer,
		audit:  audit,
		logger: logger,
	}
}

func webhookReply(c *gin.Context, status int, msg string) {
	code := 0
	if status != http.StatusOK {
		code = status
	}
	c.JSON(status, gin.H{"errorCode": code, "errorMsg": msg})
}

// TicketIssuanceNotify handles POST /pkfare/ticket-issuance-notify-v2
// @Summary Ticket issuance notification
// @Description Applies issued tickets to the booking graph. Replays are idempotent.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Pkfare-Token header string true "Shared webhook token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid payload or missing orderNum"
// @Failure 403 {object} map[string]interface{} "Bad token"
// @Router /pkfare/ticket-issuance-notify-v2 [post]
func (h *WebhookHandler) TicketIssuanceNotify(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		webhookReply(c, http.StatusBadRequest, "invalid payload")
		return
	}

	notice, err := pkfare.ParseTicketIssuanceNotice(body)
	if err != nil {
		h.logger.WithError(err).Warn("Undecodable ticket issuance notice")
		webhookReply(c, http.StatusBadRequest, "invalid payload")
		return
	}

	result, err := h.issuer.HandleTicketIssuance(c.Request.Context(), notice)
	if errors.Is(err, services.ErrMissingOrderNum) {
		webhookReply(c, http.StatusBadRequest, "orderNum missing")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("order_num", notice.OrderNum).Error("Failed to apply ticket issuance notice")
		webhookReply(c, http.StatusInternalServerError, "processing failed")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"order_num":       notice.OrderNum,
		"issue_status":    result.IssueStatus,
		"passengers":      result.Passengers,
		"segments":        result.Segments,
		"tickets":         result.Tickets,
		"skipped_tickets": result.SkippedTickets,
	}).Info("Ticket issuance notice applied")

	safeLogBookingEvent(c, h.audit, h.logger, services.AuditWebhookReceived, notice.OrderNum, map[string]interface{}{
		"type":         "ticket_issuance",
		"issue_status": result.IssueStatus,
		"tickets":      result.Tickets,
	})

	webhookReply(c, http.StatusOK, "ok")
}

// Acknowledge returns a handler for notifications that are recorded but not
// yet acted on (refund-result, reimbursed-result, schedule-change)
func (h *WebhookHandler) Acknowledge(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var peek struct {
			OrderNum string `json:"orderNum"`
		}
		body, err := c.GetRawData()
		if err != nil {
			h.logger.WithError(err).WithField("type", kind).Debug("Failed to read provider notification body")
		} else if err := json.Unmarshal(body, &peek); err != nil {
			h.logger.WithError(err).WithField("type", kind).Debug("Provider notification is not JSON, order number unknown")
		}

		h.logger.WithFields(logrus.Fields{
			"type":      kind,
			"order_num": peek.OrderNum,
			"bytes":     len(body),
		}).Info("Provider notification acknowledged")

		safeLogBookingEvent(c, h.audit, h.logger, services.AuditWebhookReceived, peek.OrderNum, map[string]interface{}{
			"type": kind,
		})

		webhookReply(c, http.StatusOK, "ok")
	}
}
