package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuditTest(t *testing.T) (*AuditService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	service := NewAuditService(sqlx.NewDb(db, "sqlmock"))

	cleanup := func() {
		db.Close()
	}

	return service, mock, cleanup
}

func TestLogBookingEvent(t *testing.T) {
	service, mock, cleanup := setupAuditTest(t)
	defer cleanup()

	userID := uuid.New()
	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148"

	mock.ExpectExec("INSERT INTO booking_audit_logs").
		WithArgs(sqlmock.AnyArg(), userID.String(), "ORD-1", AuditBookingCancelled, "203.0.113.7", ua, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.LogBookingEvent(context.Background(), AuditEvent{
		UserID:    &userID,
		OrderNum:  "ORD-1",
		Action:    AuditBookingCancelled,
		IPAddress: "203.0.113.7",
		UserAgent: ua,
		Details:   map[string]interface{}{"pnr": "VPNR1"},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogBookingEvent_WebhookHasNoUser(t *testing.T) {
	service, mock, cleanup := setupAuditTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO booking_audit_logs").
		WithArgs(sqlmock.AnyArg(), nil, "ORD-2", AuditWebhookReceived, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.LogBookingEvent(context.Background(), AuditEvent{
		OrderNum: "ORD-2",
		Action:   AuditWebhookReceived,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogBookingEvent_DatabaseError(t *testing.T) {
	service, mock, cleanup := setupAuditTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO booking_audit_logs").
		WillReturnError(errors.New("connection reset"))

	err := service.LogBookingEvent(context.Background(), AuditEvent{Action: AuditProviderError})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to log audit event")
}

func TestGetOrderEvents(t *testing.T) {
	service, mock, cleanup := setupAuditTest(t)
	defer cleanup()

	created := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "order_num", "action", "ip_address", "user_agent", "details", "created_at"}).
		AddRow(uuid.New().String(), nil, "ORD-1", AuditTicketingRequested, "203.0.113.7", "curl/8.0", []byte(`{"pnr":"VPNR1"}`), created)

	mock.ExpectQuery("SELECT (.+) FROM booking_audit_logs WHERE order_num = \\$1").
		WithArgs("ORD-1", 50).
		WillReturnRows(rows)

	events, err := service.GetOrderEvents(context.Background(), "ORD-1", 50)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, AuditTicketingRequested, events[0].Action)
	assert.False(t, events[0].UserID.Valid)
	assert.Equal(t, "VPNR1", events[0].Details["pnr"])
	assert.Equal(t, created, events[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupOldAuditLogs(t *testing.T) {
	service, mock, cleanup := setupAuditTest(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM booking_audit_logs WHERE created_at < \\$1").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 42))

	deleted, err := service.CleanupOldAuditLogs(context.Background(), 90*24*time.Hour)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
