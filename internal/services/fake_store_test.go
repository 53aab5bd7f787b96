package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Arden28/flygasal-api/internal/database"
	"github.com/Arden28/flygasal-api/internal/models"
)

type passengerKey struct {
	bookingID uuid.UUID
	index     int
}

type segmentKey struct {
	bookingID uuid.UUID
	no        int
}

type ticketKey struct {
	segmentID   uuid.UUID
	passengerID uuid.UUID
}

// memState mirrors the four booking tables with their natural keys
type memState struct {
	bookings   map[string]models.Booking
	passengers map[passengerKey]models.BookingPassenger
	segments   map[segmentKey]models.BookingSegment
	tickets    map[ticketKey]models.BookingSegmentTicket
}

func (s memState) clone() memState {
	c := memState{
		bookings:   make(map[string]models.Booking, len(s.bookings)),
		passengers: make(map[passengerKey]models.BookingPassenger, len(s.passengers)),
		segments:   make(map[segmentKey]models.BookingSegment, len(s.segments)),
		tickets:    make(map[ticketKey]models.BookingSegmentTicket, len(s.tickets)),
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.passengers {
		c.passengers[k] = v
	}
	for k, v := range s.segments {
		c.segments[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	return c
}

// memStore is an in-memory database.BookingStore. Transactions are
// serialized and roll back by restoring a snapshot.
type memStore struct {
	mu    sync.Mutex
	state memState
	now   time.Time

	failOn string // tx method name that returns errInjected
	txs    int
}

var errInjected = errors.New("injected store failure")

var _ database.BookingStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		state: memState{}.clone(),
		now:   testNow,
	}
}

func (m *memStore) seed(b models.Booking) models.Booking {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = models.BookingStatusPending
	}
	m.state.bookings[b.OrderNum] = b
	return b
}

func (m *memStore) booking(orderNum string) (models.Booking, bool) {
	b, ok := m.state.bookings[orderNum]
	return b, ok
}

func (m *memStore) GetByOrderNum(ctx context.Context, orderNum string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.state.bookings[orderNum]
	if !ok {
		return nil, database.ErrBookingNotFound
	}
	for k, p := range m.state.passengers {
		if k.bookingID == b.ID {
			b.Passengers = append(b.Passengers, p)
		}
	}
	sort.Slice(b.Passengers, func(i, j int) bool { return b.Passengers[i].PassengerIndex < b.Passengers[j].PassengerIndex })
	for k, s := range m.state.segments {
		if k.bookingID == b.ID {
			for tk, t := range m.state.tickets {
				if tk.segmentID == s.ID {
					s.Tickets = append(s.Tickets, t)
				}
			}
			b.Segments = append(b.Segments, s)
		}
	}
	sort.Slice(b.Segments, func(i, j int) bool { return b.Segments[i].SegmentNo < b.Segments[j].SegmentNo })
	return &b, nil
}

func (m *memStore) List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Booking{}
	for _, b := range m.state.bookings {
		if userID == nil || b.OwnedBy(*userID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	if offset >= len(out) {
		return []models.Booking{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListStaleIssuing(ctx context.Context, updatedBefore time.Time, limit int) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Booking{}
	for _, b := range m.state.bookings {
		if b.IssueStatusValue() == models.IssueStatusInProgress && b.UpdatedAt.Before(updatedBefore) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkPolled(ctx context.Context, bookingID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, b := range m.state.bookings {
		if b.ID == bookingID {
			b.UpdatedAt = m.now
			m.state.bookings[k] = b
		}
	}
	return nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx database.BookingTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txs++
	snapshot := m.state.clone()
	if err := fn(&memTx{m: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

type memTx struct {
	m *memStore
}

func (t *memTx) fail(method string) error {
	if t.m.failOn == method {
		return errInjected
	}
	return nil
}

func (t *memTx) LockByOrderNum(ctx context.Context, orderNum string) (*models.Booking, error) {
	if err := t.fail("LockByOrderNum"); err != nil {
		return nil, err
	}
	b, ok := t.m.state.bookings[orderNum]
	if !ok {
		return nil, database.ErrBookingNotFound
	}
	return &b, nil
}

func (t *memTx) UpsertBooking(ctx context.Context, b *models.Booking) error {
	if err := t.fail("UpsertBooking"); err != nil {
		return err
	}
	existing, ok := t.m.state.bookings[b.OrderNum]
	if !ok {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.CreatedAt = t.m.now
		b.UpdatedAt = t.m.now
		stored := *b
		stored.Passengers, stored.Segments = nil, nil
		t.m.state.bookings[b.OrderNum] = stored
		return nil
	}

	// webhook-owned fields survive
	merged := *b
	merged.Passengers, merged.Segments = nil, nil
	merged.ID = existing.ID
	merged.Status = existing.Status
	merged.AirPNR = existing.AirPNR
	merged.IssueStatus = existing.IssueStatus
	merged.TicketIssuedPayload = existing.TicketIssuedPayload
	merged.MerchantOrder = existing.MerchantOrder
	merged.SerialNum = existing.SerialNum
	merged.PermitVoid = existing.PermitVoid
	if merged.PNR == nil {
		merged.PNR = existing.PNR
	}
	if merged.UserID.Valid == false {
		merged.UserID = existing.UserID
	}
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = t.m.now
	t.m.state.bookings[b.OrderNum] = merged

	b.ID, b.Status = merged.ID, merged.Status
	return nil
}

func (t *memTx) UpsertIssuedBooking(ctx context.Context, b *models.Booking) error {
	if err := t.fail("UpsertIssuedBooking"); err != nil {
		return err
	}
	row, ok := t.m.state.bookings[b.OrderNum]
	if !ok {
		row = models.Booking{
			ID:            uuid.New(),
			OrderNum:      b.OrderNum,
			Status:        models.BookingStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
			CreatedAt:     t.m.now,
		}
	}
	row.Currency = coalesce(b.Currency, row.Currency)
	row.AirPNR = coalesce(b.AirPNR, row.AirPNR)
	row.PNR = coalesce(b.PNR, row.PNR)
	row.MerchantOrder = b.MerchantOrder
	row.BuyerOrder = b.BuyerOrder
	row.SerialNum = b.SerialNum
	row.PaymentGate = b.PaymentGate
	row.PermitVoid = b.PermitVoid
	row.LastVoidTime = b.LastVoidTime
	row.VoidServiceFee = b.VoidServiceFee
	row.VoidCurrency = b.VoidCurrency
	row.IssueStatus = b.IssueStatus
	row.InformType = b.InformType
	row.RejectReason = b.RejectReason
	row.IssueRemark = b.IssueRemark
	row.TicketIssuedPayload = b.TicketIssuedPayload
	row.UpdatedAt = t.m.now
	t.m.state.bookings[b.OrderNum] = row

	b.ID, b.Status = row.ID, row.Status
	return nil
}

func (t *memTx) UpsertPassenger(ctx context.Context, p *models.BookingPassenger) error {
	if err := t.fail("UpsertPassenger"); err != nil {
		return err
	}
	key := passengerKey{p.BookingID, p.PassengerIndex}
	row, ok := t.m.state.passengers[key]
	if !ok {
		row = models.BookingPassenger{ID: uuid.New(), BookingID: p.BookingID, PassengerIndex: p.PassengerIndex, CreatedAt: t.m.now}
	}
	row.PsgType = coalesce(p.PsgType, row.PsgType)
	row.Sex = coalesce(p.Sex, row.Sex)
	row.Birthday = coalesce(p.Birthday, row.Birthday)
	row.FirstName = coalesce(p.FirstName, row.FirstName)
	row.LastName = coalesce(p.LastName, row.LastName)
	row.Nationality = coalesce(p.Nationality, row.Nationality)
	row.CardType = coalesce(p.CardType, row.CardType)
	row.CardNum = coalesce(p.CardNum, row.CardNum)
	row.CardExpiredDate = coalesce(p.CardExpiredDate, row.CardExpiredDate)
	if p.AssociatedPassengerIndex != nil {
		row.AssociatedPassengerIndex = p.AssociatedPassengerIndex
	}
	row.TicketNum = coalesce(p.TicketNum, row.TicketNum)
	row.UpdatedAt = t.m.now
	t.m.state.passengers[key] = row

	p.ID = row.ID
	return nil
}

func (t *memTx) UpsertSegment(ctx context.Context, s *models.BookingSegment) error {
	if err := t.fail("UpsertSegment"); err != nil {
		return err
	}
	key := segmentKey{s.BookingID, s.SegmentNo}
	row, ok := t.m.state.segments[key]
	if !ok {
		row = models.BookingSegment{ID: uuid.New(), BookingID: s.BookingID, SegmentNo: s.SegmentNo, CreatedAt: t.m.now}
	}
	row.Airline = coalesce(s.Airline, row.Airline)
	row.FlightNum = coalesce(s.FlightNum, row.FlightNum)
	row.Departure = coalesce(s.Departure, row.Departure)
	row.Arrival = coalesce(s.Arrival, row.Arrival)
	if s.DepartureDate != nil {
		row.DepartureDate = s.DepartureDate
	}
	if s.ArrivalDate != nil {
		row.ArrivalDate = s.ArrivalDate
	}
	row.CabinClass = coalesce(s.CabinClass, row.CabinClass)
	row.BookingCode = coalesce(s.BookingCode, row.BookingCode)
	row.AirPNR = coalesce(s.AirPNR, row.AirPNR)
	row.PNR = coalesce(s.PNR, row.PNR)
	row.UpdatedAt = t.m.now
	t.m.state.segments[key] = row

	s.ID = row.ID
	return nil
}

func (t *memTx) UpsertTicket(ctx context.Context, tk *models.BookingSegmentTicket) error {
	if err := t.fail("UpsertTicket"); err != nil {
		return err
	}
	key := ticketKey{tk.BookingSegmentID, tk.BookingPassengerID}
	row, ok := t.m.state.tickets[key]
	if !ok {
		row = models.BookingSegmentTicket{
			ID:                 uuid.New(),
			BookingSegmentID:   tk.BookingSegmentID,
			BookingPassengerID: tk.BookingPassengerID,
			CreatedAt:          t.m.now,
		}
	}
	row.TicketNum = tk.TicketNum
	row.UpdatedAt = t.m.now
	t.m.state.tickets[key] = row

	tk.ID = row.ID
	return nil
}

func (t *memTx) PassengerIDsByIndex(ctx context.Context, bookingID uuid.UUID) (map[int]uuid.UUID, error) {
	out := map[int]uuid.UUID{}
	for k, p := range t.m.state.passengers {
		if k.bookingID == bookingID {
			out[k.index] = p.ID
		}
	}
	return out, nil
}

func (t *memTx) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status models.BookingStatus) error {
	if err := t.fail("UpdateStatus"); err != nil {
		return err
	}
	for k, b := range t.m.state.bookings {
		if b.ID == bookingID {
			b.Status = status
			b.UpdatedAt = t.m.now
			t.m.state.bookings[k] = b
		}
	}
	return nil
}

func (t *memTx) UpdateIssueStatus(ctx context.Context, bookingID uuid.UUID, issueStatus string) error {
	if err := t.fail("UpdateIssueStatus"); err != nil {
		return err
	}
	for k, b := range t.m.state.bookings {
		if b.ID == bookingID {
			s := issueStatus
			b.IssueStatus = &s
			b.UpdatedAt = t.m.now
			t.m.state.bookings[k] = b
		}
	}
	return nil
}

func coalesce(v, fallback *string) *string {
	if v != nil {
		return v
	}
	return fallback
}
