package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/internal/utils"
)

// Booking audit actions
const (
	AuditBookingCreated     = "booking_created"
	AuditTicketingRequested = "ticketing_requested"
	AuditBookingCancelled   = "booking_cancelled"
	AuditProviderError      = "provider_error"
	AuditWebhookReceived    = "webhook_received"
)

// AuditService writes booking events to booking_audit_logs
type AuditService struct {
	db *sqlx.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *sqlx.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// AuditEvent represents a booking event to be logged
type AuditEvent struct {
	UserID    *uuid.UUID             // nil for provider webhooks
	OrderNum  string                 // provider order number, empty before an order exists
	Action    string                 // one of the Audit* actions
	IPAddress string                 // Client IP address
	UserAgent string                 // Client user agent
	Details   map[string]interface{} // Additional details as JSONB
}

// LogBookingEvent records an event with the caller's parsed device info
func (s *AuditService) LogBookingEvent(ctx context.Context, event AuditEvent) error {
	details := models.JSONB{}
	for k, v := range event.Details {
		details[k] = v
	}
	details["device_info"] = utils.ParseUserAgent(event.UserAgent)

	var userID uuid.NullUUID
	if event.UserID != nil {
		userID = uuid.NullUUID{UUID: *event.UserID, Valid: true}
	}

	query := `
		INSERT INTO booking_audit_logs (id, user_id, order_num, action, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		userID,
		models.StringPtr(event.OrderNum),
		event.Action,
		models.StringPtr(event.IPAddress),
		models.StringPtr(event.UserAgent),
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetOrderEvents returns the newest events recorded for an order
func (s *AuditService) GetOrderEvents(ctx context.Context, orderNum string, limit int) ([]models.BookingAuditLog, error) {
	query := `
		SELECT id, user_id, order_num, action, ip_address, user_agent, details, created_at
		FROM booking_audit_logs
		WHERE order_num = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	events := []models.BookingAuditLog{}
	if err := s.db.SelectContext(ctx, &events, query, orderNum, limit); err != nil {
		return nil, fmt.Errorf("failed to get order events: %w", err)
	}
	return events, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM booking_audit_logs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
