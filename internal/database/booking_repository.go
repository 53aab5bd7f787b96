package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Arden28/flygasal-api/internal/models"
)

// ErrBookingNotFound is returned when no booking matches the order number
var ErrBookingNotFound = errors.New("booking not found")

// BookingStore is the persistence boundary of the booking lifecycle and the
// ticket issuance webhook
type BookingStore interface {
	GetByOrderNum(ctx context.Context, orderNum string) (*models.Booking, error)
	List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]models.Booking, error)
	ListStaleIssuing(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Booking, error)
	MarkPolled(ctx context.Context, bookingID uuid.UUID) error
	WithTx(ctx context.Context, fn func(tx BookingTx) error) error
}

// BookingTx is the set of writes available inside one transaction.
// Every write is keyed by a natural key so replays converge.
type BookingTx interface {
	// LockByOrderNum reads the booking row with SELECT ... FOR UPDATE
	LockByOrderNum(ctx context.Context, orderNum string) (*models.Booking, error)

	// UpsertBooking writes the fields owned by the synchronous booking flow
	UpsertBooking(ctx context.Context, b *models.Booking) error

	// UpsertIssuedBooking writes the fields owned by the ticket issuance webhook
	UpsertIssuedBooking(ctx context.Context, b *models.Booking) error

	UpsertPassenger(ctx context.Context, p *models.BookingPassenger) error
	UpsertSegment(ctx context.Context, s *models.BookingSegment) error
	UpsertTicket(ctx context.Context, t *models.BookingSegmentTicket) error
	PassengerIDsByIndex(ctx context.Context, bookingID uuid.UUID) (map[int]uuid.UUID, error)

	UpdateStatus(ctx context.Context, bookingID uuid.UUID, status models.BookingStatus) error
	UpdateIssueStatus(ctx context.Context, bookingID uuid.UUID, issueStatus string) error
}

// BookingRepository implements BookingStore on Postgres
type BookingRepository struct {
	db *sqlx.DB
}

var _ BookingStore = (*BookingRepository)(nil)

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, order_num, pnr, air_pnr, solution_id, fare_type, plating_carrier,
	marketing_carriers, currency, adt_fare, adt_tax, chd_fare, chd_tax, inf_fare, inf_tax,
	adults, children, infants, agent_fee, total_amount,
	contact_name, contact_email, contact_phone,
	baggage_info, flights, segments_snapshot,
	status, payment_status, issue_status,
	merchant_order, buyer_order, serial_num, payment_gate, permit_void, last_void_time,
	void_service_fee, void_currency, inform_type, reject_reason, issue_remark,
	ticket_issued_payload, last_ticketing_time, booking_date, created_at, updated_at`

// GetByOrderNum loads a booking with its passengers, segments and tickets
func (r *BookingRepository) GetByOrderNum(ctx context.Context, orderNum string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE order_num = $1`

	if err := r.db.GetContext(ctx, booking, query, orderNum); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.db.SelectContext(ctx, &booking.Passengers, `
		SELECT id, booking_id, passenger_index, psg_type, sex, birthday, first_name, last_name,
		       nationality, card_type, card_num, card_expired_date, associated_passenger_index,
		       ticket_num, created_at, updated_at
		FROM booking_passengers
		WHERE booking_id = $1
		ORDER BY passenger_index`, booking.ID); err != nil {
		return nil, fmt.Errorf("failed to get booking passengers: %w", err)
	}

	if err := r.db.SelectContext(ctx, &booking.Segments, `
		SELECT id, booking_id, segment_no, airline, flight_num, departure, arrival,
		       departure_date, arrival_date, departure_terminal, arrival_terminal, equipment,
		       cabin_class, booking_code, air_pnr, pnr, created_at, updated_at
		FROM booking_segments
		WHERE booking_id = $1
		ORDER BY segment_no`, booking.ID); err != nil {
		return nil, fmt.Errorf("failed to get booking segments: %w", err)
	}

	if len(booking.Segments) > 0 {
		var tickets []models.BookingSegmentTicket
		if err := r.db.SelectContext(ctx, &tickets, `
			SELECT t.id, t.booking_segment_id, t.booking_passenger_id, t.ticket_num, t.created_at, t.updated_at
			FROM booking_segment_tickets t
			JOIN booking_segments s ON s.id = t.booking_segment_id
			WHERE s.booking_id = $1`, booking.ID); err != nil {
			return nil, fmt.Errorf("failed to get segment tickets: %w", err)
		}

		bySegment := make(map[uuid.UUID][]models.BookingSegmentTicket, len(booking.Segments))
		for _, t := range tickets {
			bySegment[t.BookingSegmentID] = append(bySegment[t.BookingSegmentID], t)
		}
		for i := range booking.Segments {
			booking.Segments[i].Tickets = bySegment[booking.Segments[i].ID]
		}
	}

	return booking, nil
}

// List returns bookings newest first. A nil userID lists every booking.
func (r *BookingRepository) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]models.Booking, error) {
	bookings := []models.Booking{}

	var err error
	if userID == nil {
		err = r.db.SelectContext(ctx, &bookings, `
			SELECT `+bookingColumns+` FROM bookings
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		err = r.db.SelectContext(ctx, &bookings, `
			SELECT `+bookingColumns+` FROM bookings
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, *userID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ListStaleIssuing returns bookings still marked ISS_PRC that have not been
// touched since updatedBefore
func (r *BookingRepository) ListStaleIssuing(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE issue_status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`, models.IssueStatusInProgress, updatedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale bookings: %w", err)
	}
	return bookings, nil
}

// MarkPolled bumps updated_at so the next stale scan moves on to other rows
func (r *BookingRepository) MarkPolled(ctx context.Context, bookingID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE bookings SET updated_at = NOW() WHERE id = $1`, bookingID)
	if err != nil {
		return fmt.Errorf("failed to mark booking polled: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction. fn's error rolls everything back.
func (r *BookingRepository) WithTx(ctx context.Context, fn func(tx BookingTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&bookingTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ============================================================================
// TRANSACTIONAL WRITES
// ============================================================================

type bookingTx struct {
	tx *sqlx.Tx
}

func (t *bookingTx) LockByOrderNum(ctx context.Context, orderNum string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE order_num = $1 FOR UPDATE`

	if err := t.tx.GetContext(ctx, booking, query, orderNum); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return booking, nil
}

func (t *bookingTx) UpsertBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	query := `
		INSERT INTO bookings (
			id, user_id, order_num, pnr, solution_id, fare_type, plating_carrier,
			marketing_carriers, currency, adt_fare, adt_tax, chd_fare, chd_tax, inf_fare, inf_tax,
			adults, children, infants, agent_fee, total_amount,
			contact_name, contact_email, contact_phone,
			baggage_info, flights, segments_snapshot,
			status, payment_status, last_ticketing_time, booking_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30
		)
		ON CONFLICT (order_num) DO UPDATE SET
			user_id = COALESCE(EXCLUDED.user_id, bookings.user_id),
			pnr = COALESCE(EXCLUDED.pnr, bookings.pnr),
			solution_id = EXCLUDED.solution_id,
			fare_type = EXCLUDED.fare_type,
			plating_carrier = EXCLUDED.plating_carrier,
			marketing_carriers = EXCLUDED.marketing_carriers,
			currency = COALESCE(EXCLUDED.currency, bookings.currency),
			adt_fare = EXCLUDED.adt_fare,
			adt_tax = EXCLUDED.adt_tax,
			chd_fare = EXCLUDED.chd_fare,
			chd_tax = EXCLUDED.chd_tax,
			inf_fare = EXCLUDED.inf_fare,
			inf_tax = EXCLUDED.inf_tax,
			adults = EXCLUDED.adults,
			children = EXCLUDED.children,
			infants = EXCLUDED.infants,
			agent_fee = EXCLUDED.agent_fee,
			total_amount = EXCLUDED.total_amount,
			contact_name = EXCLUDED.contact_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			baggage_info = EXCLUDED.baggage_info,
			flights = EXCLUDED.flights,
			segments_snapshot = EXCLUDED.segments_snapshot,
			last_ticketing_time = EXCLUDED.last_ticketing_time,
			booking_date = COALESCE(bookings.booking_date, EXCLUDED.booking_date),
			updated_at = NOW()
		RETURNING id, status, created_at, updated_at`

	err := t.tx.QueryRowxContext(ctx, query,
		b.ID, b.UserID, b.OrderNum, b.PNR, b.SolutionID, b.FareType, b.PlatingCarrier,
		b.MarketingCarriers, b.Currency, b.AdtFare, b.AdtTax, b.ChdFare, b.ChdTax, b.InfFare, b.InfTax,
		b.Adults, b.Children, b.Infants, b.AgentFee, b.TotalAmount,
		b.ContactName, b.ContactEmail, b.ContactPhone,
		b.BaggageInfo, b.Flights, b.SegmentsSnapshot,
		b.Status, b.PaymentStatus, b.LastTicketingTime, b.BookingDate,
	).Scan(&b.ID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert booking: %w", err)
	}
	return nil
}

func (t *bookingTx) UpsertIssuedBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	query := `
		INSERT INTO bookings (
			id, order_num, currency, air_pnr, pnr, merchant_order, buyer_order, serial_num,
			payment_gate, permit_void, last_void_time, void_service_fee, void_currency,
			issue_status, inform_type, reject_reason, issue_remark, ticket_issued_payload
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		ON CONFLICT (order_num) DO UPDATE SET
			currency = COALESCE(EXCLUDED.currency, bookings.currency),
			air_pnr = COALESCE(EXCLUDED.air_pnr, bookings.air_pnr),
			pnr = COALESCE(EXCLUDED.pnr, bookings.pnr),
			merchant_order = EXCLUDED.merchant_order,
			buyer_order = EXCLUDED.buyer_order,
			serial_num = EXCLUDED.serial_num,
			payment_gate = EXCLUDED.payment_gate,
			permit_void = EXCLUDED.permit_void,
			last_void_time = EXCLUDED.last_void_time,
			void_service_fee = EXCLUDED.void_service_fee,
			void_currency = EXCLUDED.void_currency,
			issue_status = EXCLUDED.issue_status,
			inform_type = EXCLUDED.inform_type,
			reject_reason = EXCLUDED.reject_reason,
			issue_remark = EXCLUDED.issue_remark,
			ticket_issued_payload = EXCLUDED.ticket_issued_payload,
			updated_at = NOW()
		RETURNING id, status, created_at, updated_at`

	err := t.tx.QueryRowxContext(ctx, query,
		b.ID, b.OrderNum, b.Currency, b.AirPNR, b.PNR, b.MerchantOrder, b.BuyerOrder, b.SerialNum,
		b.PaymentGate, b.PermitVoid, b.LastVoidTime, b.VoidServiceFee, b.VoidCurrency,
		b.IssueStatus, b.InformType, b.RejectReason, b.IssueRemark, b.TicketIssuedPayload,
	).Scan(&b.ID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert issued booking: %w", err)
	}
	return nil
}

// UpsertPassenger keeps stored values for fields p leaves nil
func (t *bookingTx) UpsertPassenger(ctx context.Context, p *models.BookingPassenger) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO booking_passengers (
			id, booking_id, passenger_index, psg_type, sex, birthday, first_name, last_name,
			nationality, card_type, card_num, card_expired_date, associated_passenger_index, ticket_num
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (booking_id, passenger_index) DO UPDATE SET
			psg_type = COALESCE(EXCLUDED.psg_type, booking_passengers.psg_type),
			sex = COALESCE(EXCLUDED.sex, booking_passengers.sex),
			birthday = COALESCE(EXCLUDED.birthday, booking_passengers.birthday),
			first_name = COALESCE(EXCLUDED.first_name, booking_passengers.first_name),
			last_name = COALESCE(EXCLUDED.last_name, booking_passengers.last_name),
			nationality = COALESCE(EXCLUDED.nationality, booking_passengers.nationality),
			card_type = COALESCE(EXCLUDED.card_type, booking_passengers.card_type),
			card_num = COALESCE(EXCLUDED.card_num, booking_passengers.card_num),
			card_expired_date = COALESCE(EXCLUDED.card_expired_date, booking_passengers.card_expired_date),
			associated_passenger_index = COALESCE(EXCLUDED.associated_passenger_index, booking_passengers.associated_passenger_index),
			ticket_num = COALESCE(EXCLUDED.ticket_num, booking_passengers.ticket_num),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := t.tx.QueryRowxContext(ctx, query,
		p.ID, p.BookingID, p.PassengerIndex, p.PsgType, p.Sex, p.Birthday, p.FirstName, p.LastName,
		p.Nationality, p.CardType, p.CardNum, p.CardExpiredDate, p.AssociatedPassengerIndex, p.TicketNum,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert passenger %d: %w", p.PassengerIndex, err)
	}
	return nil
}

// UpsertSegment keeps stored values for fields s leaves nil
func (t *bookingTx) UpsertSegment(ctx context.Context, s *models.BookingSegment) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	query := `
		INSERT INTO booking_segments (
			id, booking_id, segment_no, airline, flight_num, departure, arrival,
			departure_date, arrival_date, departure_terminal, arrival_terminal, equipment,
			cabin_class, booking_code, air_pnr, pnr
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (booking_id, segment_no) DO UPDATE SET
			airline = COALESCE(EXCLUDED.airline, booking_segments.airline),
			flight_num = COALESCE(EXCLUDED.flight_num, booking_segments.flight_num),
			departure = COALESCE(EXCLUDED.departure, booking_segments.departure),
			arrival = COALESCE(EXCLUDED.arrival, booking_segments.arrival),
			departure_date = COALESCE(EXCLUDED.departure_date, booking_segments.departure_date),
			arrival_date = COALESCE(EXCLUDED.arrival_date, booking_segments.arrival_date),
			departure_terminal = COALESCE(EXCLUDED.departure_terminal, booking_segments.departure_terminal),
			arrival_terminal = COALESCE(EXCLUDED.arrival_terminal, booking_segments.arrival_terminal),
			equipment = COALESCE(EXCLUDED.equipment, booking_segments.equipment),
			cabin_class = COALESCE(EXCLUDED.cabin_class, booking_segments.cabin_class),
			booking_code = COALESCE(EXCLUDED.booking_code, booking_segments.booking_code),
			air_pnr = COALESCE(EXCLUDED.air_pnr, booking_segments.air_pnr),
			pnr = COALESCE(EXCLUDED.pnr, booking_segments.pnr),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := t.tx.QueryRowxContext(ctx, query,
		s.ID, s.BookingID, s.SegmentNo, s.Airline, s.FlightNum, s.Departure, s.Arrival,
		s.DepartureDate, s.ArrivalDate, s.DepartureTerminal, s.ArrivalTerminal, s.Equipment,
		s.CabinClass, s.BookingCode, s.AirPNR, s.PNR,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert segment %d: %w", s.SegmentNo, err)
	}
	return nil
}

func (t *bookingTx) UpsertTicket(ctx context.Context, tk *models.BookingSegmentTicket) error {
	if tk.ID == uuid.Nil {
		tk.ID = uuid.New()
	}

	query := `
		INSERT INTO booking_segment_tickets (id, booking_segment_id, booking_passenger_id, ticket_num)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (booking_segment_id, booking_passenger_id) DO UPDATE SET
			ticket_num = EXCLUDED.ticket_num,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := t.tx.QueryRowxContext(ctx, query,
		tk.ID, tk.BookingSegmentID, tk.BookingPassengerID, tk.TicketNum,
	).Scan(&tk.ID, &tk.CreatedAt, &tk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert segment ticket: %w", err)
	}
	return nil
}

func (t *bookingTx) PassengerIDsByIndex(ctx context.Context, bookingID uuid.UUID) (map[int]uuid.UUID, error) {
	var rows []struct {
		ID             uuid.UUID `db:"id"`
		PassengerIndex int       `db:"passenger_index"`
	}
	err := t.tx.SelectContext(ctx, &rows,
		`SELECT id, passenger_index FROM booking_passengers WHERE booking_id = $1`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load passenger index: %w", err)
	}

	out := make(map[int]uuid.UUID, len(rows))
	for _, row := range rows {
		out[row.PassengerIndex] = row.ID
	}
	return out, nil
}

func (t *bookingTx) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status models.BookingStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`, status, bookingID)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

func (t *bookingTx) UpdateIssueStatus(ctx context.Context, bookingID uuid.UUID, issueStatus string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE bookings SET issue_status = $1, updated_at = NOW() WHERE id = $2`, issueStatus, bookingID)
	if err != nil {
		return fmt.Errorf("failed to update issue status: %w", err)
	}
	return nil
}
