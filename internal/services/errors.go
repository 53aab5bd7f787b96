package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Arden28/flygasal-api/internal/models"
	bookingvalidator "github.com/Arden28/flygasal-api/pkg/validator"
)

var (
	// ErrBookingNotCancellable is returned when the local status forbids cancellation
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled in its current status")

	// ErrBookingNotTicketable is returned when the booking is cancelled or already ticketed
	ErrBookingNotTicketable = errors.New("booking cannot be ticketed in its current status")

	// ErrTicketingInProgress is returned when ticketing was already requested
	// and the issuance result is still pending
	ErrTicketingInProgress = errors.New("ticket issuance already in progress")

	// ErrBookingForbidden is returned when the caller does not own the booking
	ErrBookingForbidden = errors.New("booking belongs to another user")
)

// ValidationError carries field -> rule pairs for a rejected request
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// newValidationError converts validator output into a *ValidationError
func newValidationError(err error) error {
	fields := bookingvalidator.FieldErrors(err)
	if len(fields) == 0 {
		fields = map[string]string{"request": err.Error()}
	}
	return &ValidationError{Fields: fields}
}

// Actor is the authenticated caller of a booking operation
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// CanAccess reports whether the actor may read or act on b
func (a Actor) CanAccess(b *models.Booking) bool {
	return a.Admin || b.OwnedBy(a.UserID)
}

// userRef returns the actor's id for ownership columns
func (a Actor) userRef() uuid.NullUUID {
	if a.UserID == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: a.UserID, Valid: true}
}
