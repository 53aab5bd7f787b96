package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING STATUSES
// ============================================================================

// BookingStatus is the local lifecycle status of a flight booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusToBePaid  BookingStatus = "to_be_paid"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusTicketed  BookingStatus = "ticketed"
	BookingStatusCompleted BookingStatus = "completed"
)

// Cancellable reports whether a booking in this status may still be cancelled
func (s BookingStatus) Cancellable() bool {
	switch s {
	case BookingStatusCancelled, BookingStatusTicketed, BookingStatusCompleted:
		return false
	}
	return true
}

// Issue statuses written locally. Anything else is mirrored from the provider.
const (
	IssueStatusInProgress = "ISS_PRC"
	IssueStatusIssued     = "ISSUED"
)

// PaymentStatusUnpaid is the payment status of a freshly created booking
const PaymentStatusUnpaid = "unpaid"

// ============================================================================
// JSON COLUMNS
// ============================================================================

// RawJSON stores an arbitrary JSON document (object or array) in a jsonb column
type RawJSON json.RawMessage

// Value implements the driver.Valuer interface.
// Returns JSON as string for compatibility with pgx simple protocol mode
func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

// Scan implements the sql.Scanner interface
func (r *RawJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append((*r)[:0], v...)
	case string:
		*r = RawJSON(v)
	default:
		return errors.New("RawJSON: unsupported scan type")
	}
	return nil
}

// MarshalJSON emits the stored document verbatim
func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON keeps a copy of the document
func (r *RawJSON) UnmarshalJSON(b []byte) error {
	*r = append((*r)[:0], b...)
	return nil
}

// ============================================================================
// BOOKING GRAPH
// ============================================================================

// Booking is a provider order held locally. OrderNum is the natural key.
// Webhook-owned fields may be written before the synchronous flow has
// created the row.
type Booking struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	UserID              uuid.NullUUID `json:"user_id" db:"user_id"`
	OrderNum            string        `json:"order_num" db:"order_num"`
	PNR                 *string       `json:"pnr,omitempty" db:"pnr"`
	AirPNR              *string       `json:"air_pnr,omitempty" db:"air_pnr"`
	SolutionID          *string       `json:"solution_id,omitempty" db:"solution_id"`
	FareType            *string       `json:"fare_type,omitempty" db:"fare_type"`
	PlatingCarrier      *string       `json:"plating_carrier,omitempty" db:"plating_carrier"`
	MarketingCarriers   StringArray   `json:"marketing_carriers,omitempty" db:"marketing_carriers"`
	Currency            *string       `json:"currency,omitempty" db:"currency"`
	AdtFare             float64       `json:"adt_fare" db:"adt_fare"`
	AdtTax              float64       `json:"adt_tax" db:"adt_tax"`
	ChdFare             float64       `json:"chd_fare" db:"chd_fare"`
	ChdTax              float64       `json:"chd_tax" db:"chd_tax"`
	InfFare             float64       `json:"inf_fare" db:"inf_fare"`
	InfTax              float64       `json:"inf_tax" db:"inf_tax"`
	Adults              int           `json:"adults" db:"adults"`
	Children            int           `json:"children" db:"children"`
	Infants             int           `json:"infants" db:"infants"`
	AgentFee            float64       `json:"agent_fee" db:"agent_fee"`
	TotalAmount         float64       `json:"total_amount" db:"total_amount"`
	ContactName         *string       `json:"contact_name,omitempty" db:"contact_name"`
	ContactEmail        *string       `json:"contact_email,omitempty" db:"contact_email"`
	ContactPhone        *string       `json:"contact_phone,omitempty" db:"contact_phone"`
	BaggageInfo         RawJSON       `json:"baggage_info,omitempty" db:"baggage_info"`
	Flights             RawJSON       `json:"flights,omitempty" db:"flights"`
	SegmentsSnapshot    RawJSON       `json:"segments_snapshot,omitempty" db:"segments_snapshot"`
	Status              BookingStatus `json:"status" db:"status"`
	PaymentStatus       string        `json:"payment_status" db:"payment_status"`
	IssueStatus         *string       `json:"issue_status,omitempty" db:"issue_status"`
	MerchantOrder       *string       `json:"merchant_order,omitempty" db:"merchant_order"`
	BuyerOrder          *string       `json:"buyer_order,omitempty" db:"buyer_order"`
	SerialNum           *string       `json:"serial_num,omitempty" db:"serial_num"`
	PaymentGate         *string       `json:"payment_gate,omitempty" db:"payment_gate"`
	PermitVoid          int           `json:"permit_void" db:"permit_void"`
	LastVoidTime        *string       `json:"last_void_time,omitempty" db:"last_void_time"`
	VoidServiceFee      *float64      `json:"void_service_fee,omitempty" db:"void_service_fee"`
	VoidCurrency        *string       `json:"void_currency,omitempty" db:"void_currency"`
	InformType          *string       `json:"inform_type,omitempty" db:"inform_type"`
	RejectReason        *string       `json:"reject_reason,omitempty" db:"reject_reason"`
	IssueRemark         *string       `json:"issue_remark,omitempty" db:"issue_remark"`
	TicketIssuedPayload RawJSON       `json:"ticket_issued_payload,omitempty" db:"ticket_issued_payload"`
	LastTicketingTime   *time.Time    `json:"last_ticketing_time,omitempty" db:"last_ticketing_time"`
	BookingDate         *time.Time    `json:"booking_date,omitempty" db:"booking_date"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" db:"updated_at"`

	Passengers []BookingPassenger `json:"passengers,omitempty" db:"-"`
	Segments   []BookingSegment   `json:"segments,omitempty" db:"-"`
}

// IssueStatusValue returns the issue status or "" when unset
func (b *Booking) IssueStatusValue() string {
	if b.IssueStatus == nil {
		return ""
	}
	return *b.IssueStatus
}

// OwnedBy reports whether userID created the booking
func (b *Booking) OwnedBy(userID uuid.UUID) bool {
	return b.UserID.Valid && b.UserID.UUID == userID
}

// BookingPassenger is unique per (booking_id, passenger_index).
// PassengerIndex is 1-based in booking request order.
type BookingPassenger struct {
	ID                       uuid.UUID `json:"id" db:"id"`
	BookingID                uuid.UUID `json:"booking_id" db:"booking_id"`
	PassengerIndex           int       `json:"passenger_index" db:"passenger_index"`
	PsgType                  *string   `json:"psg_type,omitempty" db:"psg_type"`
	Sex                      *string   `json:"sex,omitempty" db:"sex"`
	Birthday                 *string   `json:"birthday,omitempty" db:"birthday"`
	FirstName                *string   `json:"first_name,omitempty" db:"first_name"`
	LastName                 *string   `json:"last_name,omitempty" db:"last_name"`
	Nationality              *string   `json:"nationality,omitempty" db:"nationality"`
	CardType                 *string   `json:"card_type,omitempty" db:"card_type"`
	CardNum                  *string   `json:"card_num,omitempty" db:"card_num"`
	CardExpiredDate          *string   `json:"card_expired_date,omitempty" db:"card_expired_date"`
	AssociatedPassengerIndex *int      `json:"associated_passenger_index,omitempty" db:"associated_passenger_index"`
	TicketNum                *string   `json:"ticket_num,omitempty" db:"ticket_num"`
	CreatedAt                time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time `json:"updated_at" db:"updated_at"`
}

// BookingSegment is unique per (booking_id, segment_no)
type BookingSegment struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	BookingID         uuid.UUID  `json:"booking_id" db:"booking_id"`
	SegmentNo         int        `json:"segment_no" db:"segment_no"`
	Airline           *string    `json:"airline,omitempty" db:"airline"`
	FlightNum         *string    `json:"flight_num,omitempty" db:"flight_num"`
	Departure         *string    `json:"departure,omitempty" db:"departure"`
	Arrival           *string    `json:"arrival,omitempty" db:"arrival"`
	DepartureDate     *time.Time `json:"departure_date,omitempty" db:"departure_date"`
	ArrivalDate       *time.Time `json:"arrival_date,omitempty" db:"arrival_date"`
	DepartureTerminal *string    `json:"departure_terminal,omitempty" db:"departure_terminal"`
	ArrivalTerminal   *string    `json:"arrival_terminal,omitempty" db:"arrival_terminal"`
	Equipment         *string    `json:"equipment,omitempty" db:"equipment"`
	CabinClass        *string    `json:"cabin_class,omitempty" db:"cabin_class"`
	BookingCode       *string    `json:"booking_code,omitempty" db:"booking_code"`
	AirPNR            *string    `json:"air_pnr,omitempty" db:"air_pnr"`
	PNR               *string    `json:"pnr,omitempty" db:"pnr"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`

	Tickets []BookingSegmentTicket `json:"tickets,omitempty" db:"-"`
}

// BookingSegmentTicket maps one issued ticket number to a (segment, passenger)
// pair. Only the ticket issuance webhook writes these rows.
type BookingSegmentTicket struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	BookingSegmentID   uuid.UUID `json:"booking_segment_id" db:"booking_segment_id"`
	BookingPassengerID uuid.UUID `json:"booking_passenger_id" db:"booking_passenger_id"`
	TicketNum          *string   `json:"ticket_num,omitempty" db:"ticket_num"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// BookingAuditLog records one booking event
type BookingAuditLog struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	UserID    uuid.NullUUID `json:"user_id,omitempty" db:"user_id"`
	OrderNum  *string       `json:"order_num,omitempty" db:"order_num"`
	Action    string        `json:"action" db:"action"`
	IPAddress *string       `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string       `json:"user_agent,omitempty" db:"user_agent"`
	Details   JSONB         `json:"details,omitempty" db:"details"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// StringPtr returns nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
