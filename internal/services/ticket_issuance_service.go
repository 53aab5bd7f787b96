package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/database"
	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// ErrMissingOrderNum is returned for a notice without an order number
var ErrMissingOrderNum = errors.New("orderNum missing")

// TicketIssuanceService applies ticket issuance notices to the booking graph.
// It can create the booking when the notice arrives before the synchronous
// flow stored it.
type TicketIssuanceService struct {
	store  database.BookingStore
	logger *logrus.Logger
}

// NewTicketIssuanceService creates a new ticket issuance service
func NewTicketIssuanceService(store database.BookingStore, logger *logrus.Logger) *TicketIssuanceService {
	return &TicketIssuanceService{store: store, logger: logger}
}

// IssuanceResult summarizes one applied notice
type IssuanceResult struct {
	BookingID      string
	IssueStatus    string
	Passengers     int
	Segments       int
	Tickets        int
	SkippedTickets int
}

// HandleTicketIssuance upserts the booking, its passengers, segments and
// per-segment tickets in one transaction. Every write is keyed, so a replayed
// notice converges on the same rows.
func (s *TicketIssuanceService) HandleTicketIssuance(ctx context.Context, notice *pkfare.TicketIssuanceNotice) (*IssuanceResult, error) {
	orderNum := strings.TrimSpace(notice.OrderNum)
	if orderNum == "" {
		return nil, ErrMissingOrderNum
	}

	result := &IssuanceResult{IssueStatus: notice.IssueStatus()}

	err := s.store.WithTx(ctx, func(tx database.BookingTx) error {
		booking := issuedBookingFromNotice(orderNum, notice)
		if err := tx.UpsertIssuedBooking(ctx, booking); err != nil {
			return err
		}
		result.BookingID = booking.ID.String()

		for _, p := range notice.Passengers {
			if p.PassengerIndex <= 0 {
				continue
			}
			row := passengerFromNotice(p)
			row.BookingID = booking.ID
			if err := tx.UpsertPassenger(ctx, &row); err != nil {
				return err
			}
			result.Passengers++
		}

		passengerIDs, err := tx.PassengerIDsByIndex(ctx, booking.ID)
		if err != nil {
			return err
		}

		for i, seg := range notice.PnrList {
			segmentNo := int(seg.SegmentNo)
			if segmentNo <= 0 {
				segmentNo = i + 1
			}
			row := models.BookingSegment{
				BookingID:   booking.ID,
				SegmentNo:   segmentNo,
				FlightNum:   models.StringPtr(seg.FlightNum),
				Departure:   models.StringPtr(seg.Departure),
				Arrival:     models.StringPtr(seg.Arrival),
				CabinClass:  models.StringPtr(seg.CabinClass),
				BookingCode: models.StringPtr(seg.BookingCode),
				AirPNR:      models.StringPtr(seg.AirPnr),
				PNR:         models.StringPtr(seg.Pnr),
			}
			if err := tx.UpsertSegment(ctx, &row); err != nil {
				return err
			}
			result.Segments++

			for _, t := range seg.TicketNums {
				passengerID, ok := passengerIDs[int(t.PassengerIndex)]
				if t.PassengerIndex <= 0 || !ok {
					result.SkippedTickets++
					continue
				}
				ticket := models.BookingSegmentTicket{
					BookingSegmentID:   row.ID,
					BookingPassengerID: passengerID,
					TicketNum:          models.StringPtr(t.TicketNum),
				}
				if err := tx.UpsertTicket(ctx, &ticket); err != nil {
					return err
				}
				result.Tickets++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_num": orderNum,
		}).Error("Failed to apply ticket issuance notice")
		return nil, err
	}

	entry := s.logger.WithFields(logrus.Fields{
		"order_num":    orderNum,
		"issue_status": result.IssueStatus,
		"passengers":   result.Passengers,
		"segments":     result.Segments,
		"tickets":      result.Tickets,
	})
	if result.SkippedTickets > 0 {
		entry.WithField("skipped_tickets", result.SkippedTickets).Warn("Ticket issuance applied with unknown passenger indexes")
	} else {
		entry.Info("Ticket issuance applied")
	}
	return result, nil
}

func issuedBookingFromNotice(orderNum string, n *pkfare.TicketIssuanceNotice) *models.Booking {
	issueStatus := n.IssueStatus()
	b := &models.Booking{
		OrderNum:            orderNum,
		Currency:            models.StringPtr(n.Currency),
		AirPNR:              models.StringPtr(n.AirPnr),
		PNR:                 models.StringPtr(n.Pnr),
		MerchantOrder:       models.StringPtr(n.MerchantOrder),
		BuyerOrder:          models.StringPtr(n.BuyerOrder),
		SerialNum:           models.StringPtr(n.Serial()),
		PaymentGate:         models.StringPtr(n.PaymentGate),
		PermitVoid:          int(n.PermitVoid),
		LastVoidTime:        models.StringPtr(n.LastVoidTime.String()),
		IssueStatus:         &issueStatus,
		InformType:          models.StringPtr(n.InformType),
		RejectReason:        models.StringPtr(n.RejectReason),
		IssueRemark:         models.StringPtr(n.Remark),
		TicketIssuedPayload: models.RawJSON(n.Raw),
	}
	if fee := n.VoidServiceFee; fee != nil {
		b.VoidServiceFee = fee.Amount
		b.VoidCurrency = models.StringPtr(fee.Currency)
	}
	return b
}

func passengerFromNotice(p pkfare.NoticePassenger) models.BookingPassenger {
	row := models.BookingPassenger{
		PassengerIndex:  int(p.PassengerIndex),
		PsgType:         models.StringPtr(p.PsgType),
		Sex:             models.StringPtr(p.Sex),
		Birthday:        models.StringPtr(p.Birthday),
		FirstName:       models.StringPtr(p.FirstName),
		LastName:        models.StringPtr(p.LastName),
		Nationality:     models.StringPtr(p.Nationality),
		CardType:        models.StringPtr(p.CardType),
		CardNum:         models.StringPtr(p.CardNum),
		CardExpiredDate: models.StringPtr(p.CardExpiredDate),
		TicketNum:       models.StringPtr(p.TicketNum),
	}
	if p.AssociatedPassengerIndex != nil {
		idx := int(*p.AssociatedPassengerIndex)
		row.AssociatedPassengerIndex = &idx
	}
	return row
}
