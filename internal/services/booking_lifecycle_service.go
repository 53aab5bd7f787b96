package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/database"
	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
	bookingvalidator "github.com/Arden28/flygasal-api/pkg/validator"
)

// providerLocalLayout is the layout of the provider's str* date and time pair
const providerLocalLayout = "2006-01-02 15:04"

var errAlreadyCancelled = &pkfare.ProviderError{
	Endpoint: pkfare.EndpointCancel,
	Kind:     pkfare.KindOrderAlreadyCancelled,
}

// BookingLifecycleService drives a booking through the provider order flow:
// create, order pricing plus ticketing, and cancellation
type BookingLifecycleService struct {
	store    database.BookingStore
	gateway  pkfare.Gateway
	validate *validator.Validate
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBookingLifecycleService creates a new booking lifecycle service
func NewBookingLifecycleService(store database.BookingStore, gateway pkfare.Gateway, logger *logrus.Logger) *BookingLifecycleService {
	return &BookingLifecycleService{
		store:    store,
		gateway:  gateway,
		validate: bookingvalidator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking places the provider order and persists the booking with its
// passengers and segments. Nothing is written when the provider rejects the order.
func (s *BookingLifecycleService) CreateBooking(ctx context.Context, actor Actor, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}
	if len(req.SelectedFlight.Legs) == 0 {
		return nil, &ValidationError{Fields: map[string]string{
			"CreateBookingRequest.SelectedFlight.Legs": "required",
		}}
	}

	counts := countPassengerTypes(req.Passengers)
	if counts[models.PassengerTypeAdult] == 0 {
		return nil, &ValidationError{Fields: map[string]string{
			"CreateBookingRequest.Passengers": "adult_required",
		}}
	}

	fares := req.SelectedFlight.PriceBreakdown.PassengerTypes
	for i, p := range req.Passengers {
		if _, ok := fares[p.Type]; !ok {
			return nil, &ValidationError{Fields: map[string]string{
				fmt.Sprintf("passengers[%d].type", i): "unpriced",
			}}
		}
	}

	provReq := pkfare.BookingRequest{
		Passengers: buildProviderPassengers(req.Passengers),
		Solution: pkfare.BookingSolution{
			SolutionID: req.SolutionID,
			AdtFare:    fares[models.PassengerTypeAdult].Fare,
			AdtTax:     fares[models.PassengerTypeAdult].Taxes,
			ChdFare:    fares[models.PassengerTypeChild].Fare,
			ChdTax:     fares[models.PassengerTypeChild].Taxes,
			InfFare:    fares[models.PassengerTypeInfant].Fare,
			InfTax:     fares[models.PassengerTypeInfant].Taxes,
			Journeys:   journeysFromOffer(req.SelectedFlight),
		},
		Contact: pkfare.Contact{
			Name:  req.ContactName,
			Email: req.ContactEmail,
			Phone: req.ContactPhone,
		},
	}

	data, err := s.gateway.CreateBooking(ctx, provReq)
	if err != nil {
		s.logProviderFailure(err, "", pkfare.EndpointBooking)
		return nil, err
	}

	booking := s.bookingFromResponse(actor, req, data, counts)
	err = s.store.WithTx(ctx, func(tx database.BookingTx) error {
		if err := tx.UpsertBooking(ctx, booking); err != nil {
			return err
		}
		for i := range booking.Passengers {
			booking.Passengers[i].BookingID = booking.ID
			if err := tx.UpsertPassenger(ctx, &booking.Passengers[i]); err != nil {
				return err
			}
		}
		for i := range booking.Segments {
			booking.Segments[i].BookingID = booking.ID
			if err := tx.UpsertSegment(ctx, &booking.Segments[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The provider order exists; a ticket issuance notice recreates the
		// row by order number.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_num": data.OrderNum,
		}).Error("Failed to persist booking after provider accepted it")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_num":  booking.OrderNum,
		"passengers": len(booking.Passengers),
		"segments":   len(booking.Segments),
		"total":      booking.TotalAmount,
	}).Info("Booking created")

	return booking, nil
}

func countPassengerTypes(passengers []models.PassengerInput) map[string]int {
	counts := map[string]int{}
	for _, p := range passengers {
		counts[p.Type]++
	}
	return counts
}

func sexCode(gender string) string {
	if strings.EqualFold(gender, "Female") {
		return "F"
	}
	return "M"
}

func buildProviderPassengers(in []models.PassengerInput) []pkfare.BookingPassenger {
	out := make([]pkfare.BookingPassenger, 0, len(in))
	for i, p := range in {
		bp := pkfare.BookingPassenger{
			PassengerIndex: i + 1,
			PsgType:        p.Type,
			Sex:            sexCode(p.Gender),
			Birthday:       p.DOB,
			FirstName:      strings.ToUpper(strings.TrimSpace(p.FirstName)),
			LastName:       strings.ToUpper(strings.TrimSpace(p.LastName)),
			Nationality:    strings.ToUpper(p.Nationality),
		}
		if p.PassportNumber != "" {
			bp.CardType = "P"
			bp.CardNum = p.PassportNumber
			bp.CardExpiredDate = p.PassportExpiry
		}
		out = append(out, bp)
	}
	return out
}

// bookingFromResponse builds the local booking graph. Fares and currency come
// from the solution the provider booked; the client's offer is only used
// when the provider omits it. Segments come from the provider's answer.
func (s *BookingLifecycleService) bookingFromResponse(actor Actor, req models.CreateBookingRequest, data *pkfare.BookingData, counts map[string]int) *models.Booking {
	offer := req.SelectedFlight
	price := bookedPrice(req, data.Solution)

	total := 0.0
	for ptc, n := range counts {
		line := price.fares[ptc]
		total += (line.Fare + line.Taxes) * float64(n)
	}

	now := s.now()
	booking := &models.Booking{
		UserID:            actor.userRef(),
		OrderNum:          data.OrderNum,
		PNR:               models.StringPtr(data.Pnr),
		SolutionID:        models.StringPtr(firstNonEmpty(data.Solution.SolutionID, req.SolutionID)),
		FareType:          models.StringPtr(firstNonEmpty(data.Solution.FareType, offer.FareType)),
		PlatingCarrier:    models.StringPtr(firstNonEmpty(data.Solution.PlatingCarrier, offer.PlatingCarrier)),
		MarketingCarriers: models.StringArray(offer.MarketingCarriers),
		Currency:          models.StringPtr(price.currency),
		AdtFare:           price.fares[models.PassengerTypeAdult].Fare,
		AdtTax:            price.fares[models.PassengerTypeAdult].Taxes,
		ChdFare:           price.fares[models.PassengerTypeChild].Fare,
		ChdTax:            price.fares[models.PassengerTypeChild].Taxes,
		InfFare:           price.fares[models.PassengerTypeInfant].Fare,
		InfTax:            price.fares[models.PassengerTypeInfant].Taxes,
		Adults:            counts[models.PassengerTypeAdult],
		Children:          counts[models.PassengerTypeChild],
		Infants:           counts[models.PassengerTypeInfant],
		AgentFee:          roundMoney(req.AgentFee),
		TotalAmount:       roundMoney(total),
		ContactName:       models.StringPtr(req.ContactName),
		ContactEmail:      models.StringPtr(req.ContactEmail),
		ContactPhone:      models.StringPtr(req.ContactPhone),
		BaggageInfo:       marshalSnapshot(offer.Baggage),
		Flights:           marshalSnapshot(data.Flights),
		SegmentsSnapshot:  marshalSnapshot(data.Segments),
		Status:            models.BookingStatusPending,
		PaymentStatus:     models.PaymentStatusUnpaid,
		LastTicketingTime: msTime(derefInt64(data.LastTktTime)),
		BookingDate:       &now,
	}
	if booking.LastTicketingTime == nil {
		booking.LastTicketingTime = offer.LastTicketingTime
	}

	for i, p := range buildProviderPassengers(req.Passengers) {
		booking.Passengers = append(booking.Passengers, models.BookingPassenger{
			PassengerIndex:  i + 1,
			PsgType:         models.StringPtr(p.PsgType),
			Sex:             models.StringPtr(p.Sex),
			Birthday:        models.StringPtr(p.Birthday),
			FirstName:       models.StringPtr(p.FirstName),
			LastName:        models.StringPtr(p.LastName),
			Nationality:     models.StringPtr(p.Nationality),
			CardType:        models.StringPtr(p.CardType),
			CardNum:         models.StringPtr(p.CardNum),
			CardExpiredDate: models.StringPtr(p.CardExpiredDate),
		})
	}

	for i, seg := range data.Segments {
		booking.Segments = append(booking.Segments, models.BookingSegment{
			SegmentNo:         i + 1,
			Airline:           models.StringPtr(seg.Airline),
			FlightNum:         models.StringPtr(seg.FlightNum),
			Departure:         models.StringPtr(seg.Departure),
			Arrival:           models.StringPtr(seg.Arrival),
			DepartureDate:     segmentTime(seg.StrDepartureDate, seg.StrDepartureTime, seg.DepartureDate),
			ArrivalDate:       segmentTime(seg.StrArrivalDate, seg.StrArrivalTime, seg.ArrivalDate),
			DepartureTerminal: models.StringPtr(seg.DepartureTerminal),
			ArrivalTerminal:   models.StringPtr(seg.ArrivalTerminal),
			Equipment:         models.StringPtr(seg.Equipment),
			CabinClass:        models.StringPtr(seg.CabinClass),
			BookingCode:       models.StringPtr(seg.BookingCode),
			PNR:               models.StringPtr(data.Pnr),
		})
	}

	return booking
}

type fareLine struct {
	Fare  float64
	Taxes float64
}

type bookingPrice struct {
	currency string
	fares    map[string]fareLine
}

// bookedPrice reads the per-type fares from the provider's booked solution,
// falling back to the client's offer when the solution carries no price
func bookedPrice(req models.CreateBookingRequest, sol pkfare.Solution) bookingPrice {
	if sol.Currency != "" || sol.AdtFare > 0 || sol.AdtTax > 0 {
		return bookingPrice{
			currency: strings.ToUpper(firstNonEmpty(sol.Currency, req.Currency)),
			fares: map[string]fareLine{
				models.PassengerTypeAdult:  {Fare: sol.AdtFare, Taxes: sol.AdtTax},
				models.PassengerTypeChild:  {Fare: sol.ChdFare, Taxes: sol.ChdTax},
				models.PassengerTypeInfant: {Fare: sol.InfFare, Taxes: sol.InfTax},
			},
		}
	}

	fares := map[string]fareLine{}
	for ptc, line := range req.SelectedFlight.PriceBreakdown.PassengerTypes {
		fares[ptc] = fareLine{Fare: line.Fare, Taxes: line.Taxes}
	}
	return bookingPrice{currency: strings.ToUpper(req.Currency), fares: fares}
}

// segmentTime joins the provider's local date and time, falling back to the
// epoch milliseconds
func segmentTime(date, clock string, ms int64) *time.Time {
	if local := joinLocal(date, clock); local != "" {
		if t, err := time.Parse(providerLocalLayout, local); err == nil {
			return &t
		}
	}
	return msTime(ms)
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func marshalSnapshot(v any) models.RawJSON {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return models.RawJSON(b)
}

// ============================================================================
// TICKETING
// ============================================================================

// RequestTicketing revalidates the order with order pricing and then asks
// the provider to issue tickets. The provider's order status is checked first
// so a retry after an unknown ticketing outcome never issues twice. The issue
// status moves to ISS_PRC only after the ticketing call succeeds; any failure
// leaves the row untouched.
func (s *BookingLifecycleService) RequestTicketing(ctx context.Context, actor Actor, orderNum string, req models.TicketingRequest) (*models.Booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	var booking *models.Booking
	cancelled := false
	err := s.store.WithTx(ctx, func(tx database.BookingTx) error {
		b, err := tx.LockByOrderNum(ctx, orderNum)
		if err != nil {
			return err
		}
		if !actor.CanAccess(b) {
			return ErrBookingForbidden
		}

		switch {
		case b.Status == models.BookingStatusCancelled,
			b.Status == models.BookingStatusTicketed,
			b.Status == models.BookingStatusCompleted,
			b.IssueStatusValue() == models.IssueStatusIssued:
			return ErrBookingNotTicketable
		case b.IssueStatusValue() == models.IssueStatusInProgress:
			return ErrTicketingInProgress
		}

		detail, err := s.gateway.OrderDetail(ctx, orderNum)
		if err != nil {
			s.logProviderFailure(err, orderNum, pkfare.EndpointOrderDetail)
			return err
		}
		switch providerStatus := normalizeOrderStatus(detail.OrderStatus); providerStatus {
		case models.IssueStatusInProgress:
			s.logger.WithField("order_num", orderNum).Info("Provider already ticketing the order, skipping ticketing call")
			if err := tx.UpdateIssueStatus(ctx, b.ID, models.IssueStatusInProgress); err != nil {
				return err
			}
			b.IssueStatus = models.StringPtr(models.IssueStatusInProgress)
			booking = b
			return nil
		case "ISSUED", "TICKETED", "CANCELLED", "CANCELED":
			s.logger.WithFields(logrus.Fields{
				"order_num":       orderNum,
				"provider_status": providerStatus,
			}).Info("Provider order already settled, skipping ticketing call")
			if _, err := applyOrderStatus(ctx, tx, b, providerStatus); err != nil {
				return err
			}
			cancelled = b.Status == models.BookingStatusCancelled
			booking = b
			return nil
		}

		if _, err := s.gateway.OrderPricing(ctx, orderNum); err != nil {
			s.logProviderFailure(err, orderNum, pkfare.EndpointOrderPricing)
			return err
		}

		ticketing := pkfare.TicketingRequest{
			OrderNum: orderNum,
			PNR:      firstNonEmpty(req.PNR, deref(b.PNR)),
			Contact: pkfare.Contact{
				Name:  firstNonEmpty(req.ContactName, deref(b.ContactName)),
				Email: firstNonEmpty(req.ContactEmail, deref(b.ContactEmail)),
				Phone: firstNonEmpty(req.ContactPhone, deref(b.ContactPhone)),
			},
		}
		if _, err := s.gateway.Ticketing(ctx, ticketing); err != nil {
			s.logProviderFailure(err, orderNum, pkfare.EndpointTicketing)
			return err
		}

		if err := tx.UpdateIssueStatus(ctx, b.ID, models.IssueStatusInProgress); err != nil {
			return err
		}
		b.IssueStatus = models.StringPtr(models.IssueStatusInProgress)
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, ErrBookingNotTicketable
	}

	s.logger.WithFields(logrus.Fields{
		"order_num":    orderNum,
		"issue_status": booking.IssueStatusValue(),
	}).Info("Ticketing requested")
	return booking, nil
}

// ============================================================================
// CANCEL
// ============================================================================

// CancelBooking cancels an unticketed order. The status guard runs under a
// row lock before any provider call; an "already cancelled" answer from the
// provider counts as success.
func (s *BookingLifecycleService) CancelBooking(ctx context.Context, actor Actor, orderNum string, req models.CancelBookingRequest) (*models.Booking, error) {
	var booking *models.Booking
	err := s.store.WithTx(ctx, func(tx database.BookingTx) error {
		b, err := tx.LockByOrderNum(ctx, orderNum)
		if err != nil {
			return err
		}
		if !actor.CanAccess(b) {
			return ErrBookingForbidden
		}
		if !b.Status.Cancellable() || b.IssueStatusValue() == models.IssueStatusIssued {
			return ErrBookingNotCancellable
		}

		pnr := firstNonEmpty(req.PNR, deref(b.PNR))
		if err := s.gateway.Cancel(ctx, orderNum, pnr); err != nil {
			if !errors.Is(err, errAlreadyCancelled) {
				s.logProviderFailure(err, orderNum, pkfare.EndpointCancel)
				return err
			}
			s.logger.WithFields(logrus.Fields{
				"order_num": orderNum,
			}).Info("Provider reports order already cancelled")
		}

		if err := tx.UpdateStatus(ctx, b.ID, models.BookingStatusCancelled); err != nil {
			return err
		}
		b.Status = models.BookingStatusCancelled
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_num": orderNum,
	}).Info("Booking cancelled")
	return booking, nil
}

// ============================================================================
// READS & RECONCILIATION
// ============================================================================

// NormalizePage clamps a listing window: limit outside 1..100 becomes 20 and a
// negative offset becomes 0
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetBooking loads a booking the actor may see
func (s *BookingLifecycleService) GetBooking(ctx context.Context, actor Actor, orderNum string) (*models.Booking, error) {
	b, err := s.store.GetByOrderNum(ctx, orderNum)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b) {
		return nil, ErrBookingForbidden
	}
	return b, nil
}

// ListBookings returns the actor's bookings, or every booking for admins
func (s *BookingLifecycleService) ListBookings(ctx context.Context, actor Actor, limit, offset int) ([]models.Booking, error) {
	limit, offset = NormalizePage(limit, offset)
	if actor.Admin {
		return s.store.List(ctx, nil, limit, offset)
	}
	return s.store.List(ctx, &actor.UserID, limit, offset)
}

// GetOrderDetail fetches the provider's view of the order and folds its
// status into the local booking
func (s *BookingLifecycleService) GetOrderDetail(ctx context.Context, actor Actor, orderNum string) (*pkfare.OrderDetailData, error) {
	if _, err := s.GetBooking(ctx, actor, orderNum); err != nil {
		return nil, err
	}

	detail, err := s.gateway.OrderDetail(ctx, orderNum)
	if err != nil {
		s.logProviderFailure(err, orderNum, pkfare.EndpointOrderDetail)
		return nil, err
	}

	if _, err := s.ReconcileOrderStatus(ctx, orderNum, detail.OrderStatus); err != nil {
		s.logger.WithError(err).WithField("order_num", orderNum).Warn("Failed to reconcile order status")
	}
	return detail, nil
}

// ReconcileOrderStatus applies a provider order status to the local row
// under a lock. It reports whether anything changed.
func (s *BookingLifecycleService) ReconcileOrderStatus(ctx context.Context, orderNum, providerStatus string) (bool, error) {
	providerStatus = normalizeOrderStatus(providerStatus)
	if providerStatus == "" {
		return false, nil
	}

	changed := false
	err := s.store.WithTx(ctx, func(tx database.BookingTx) error {
		b, err := tx.LockByOrderNum(ctx, orderNum)
		if err != nil {
			return err
		}
		changed, err = applyOrderStatus(ctx, tx, b, providerStatus)
		return err
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.logger.WithFields(logrus.Fields{
			"order_num":       orderNum,
			"provider_status": providerStatus,
		}).Info("Booking reconciled with provider order status")
	}
	return changed, nil
}

func normalizeOrderStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// applyOrderStatus writes a normalized provider order status onto a locked
// booking and mirrors the change on b
func applyOrderStatus(ctx context.Context, tx database.BookingTx, b *models.Booking, providerStatus string) (bool, error) {
	changed := false
	switch providerStatus {
	case "ISSUED", "TICKETED":
		if b.IssueStatusValue() != models.IssueStatusIssued {
			if err := tx.UpdateIssueStatus(ctx, b.ID, models.IssueStatusIssued); err != nil {
				return false, err
			}
			b.IssueStatus = models.StringPtr(models.IssueStatusIssued)
			changed = true
		}
		if b.Status != models.BookingStatusTicketed && b.Status != models.BookingStatusCompleted {
			if err := tx.UpdateStatus(ctx, b.ID, models.BookingStatusTicketed); err != nil {
				return false, err
			}
			b.Status = models.BookingStatusTicketed
			changed = true
		}
	case "CANCELLED", "CANCELED":
		if b.Status != models.BookingStatusCancelled {
			if err := tx.UpdateStatus(ctx, b.ID, models.BookingStatusCancelled); err != nil {
				return false, err
			}
			b.Status = models.BookingStatusCancelled
			changed = true
		}
	case "TO_BE_PAID":
		if b.Status == models.BookingStatusPending {
			if err := tx.UpdateStatus(ctx, b.ID, models.BookingStatusToBePaid); err != nil {
				return false, err
			}
			b.Status = models.BookingStatusToBePaid
			changed = true
		}
	}
	return changed, nil
}

func (s *BookingLifecycleService) logProviderFailure(err error, orderNum string, endpoint pkfare.Endpoint) {
	fields := logrus.Fields{
		"order_num": orderNum,
		"endpoint":  endpoint,
	}
	if pe, ok := pkfare.AsProviderError(err); ok {
		fields["provider_code"] = pe.Code
		s.logger.WithFields(fields).Warn(pe.Message)
		return
	}
	s.logger.WithError(err).WithFields(fields).Error("Provider call failed")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
