package pkfare

import (
	"strings"

	"github.com/goccy/go-json"
)

// TicketIssuanceNotice is the body of a TicketIssuanceNotify_V2 callback.
// Raw keeps the verbatim body for the booking snapshot.
type TicketIssuanceNotice struct {
	OrderNum       string            `json:"orderNum"`
	Status         string            `json:"status"`
	InformType     string            `json:"informType"`
	Currency       string            `json:"currency"`
	AirPnr         string            `json:"airPnr"`
	Pnr            string            `json:"pnr"`
	MerchantOrder  string            `json:"merchantOrder"`
	BuyerOrder     string            `json:"buyerOrder"`
	SerialNum      string            `json:"serialNum"`
	SerialNumber   string            `json:"serialNumber"`
	PaymentGate    string            `json:"paymentGate"`
	PermitVoid     FlexInt           `json:"permitVoid"`
	LastVoidTime   FlexString        `json:"lastVoidTime"`
	VoidServiceFee *VoidServiceFee   `json:"voidServiceFee"`
	RejectReason   string            `json:"rejectReason"`
	Remark         string            `json:"remark"`
	Passengers     []NoticePassenger `json:"passengers"`
	PnrList        []NoticeSegment   `json:"pnrList"`

	Raw json.RawMessage `json:"-"`
}

// VoidServiceFee is the fee charged if the tickets are voided
type VoidServiceFee struct {
	Amount   *float64 `json:"amount"`
	Currency string   `json:"currency"`
}

// NoticePassenger is one ticketed traveller
type NoticePassenger struct {
	PassengerIndex           FlexInt  `json:"passengerIndex"`
	PsgType                  string   `json:"psgType"`
	Sex                      string   `json:"sex"`
	Birthday                 string   `json:"birthday"`
	FirstName                string   `json:"firstName"`
	LastName                 string   `json:"lastName"`
	Nationality              string   `json:"nationality"`
	CardType                 string   `json:"cardType"`
	CardNum                  string   `json:"cardNum"`
	CardExpiredDate          string   `json:"cardExpiredDate"`
	AssociatedPassengerIndex *FlexInt `json:"associatedPassengerIndex"`
	TicketNum                string   `json:"ticketNum"`
}

// NoticeSegment is one flight segment with its per-passenger tickets
type NoticeSegment struct {
	SegmentNo   FlexInt        `json:"segmentNo"`
	Departure   string         `json:"departure"`
	Arrival     string         `json:"arrival"`
	FlightNum   string         `json:"flightNum"`
	AirPnr      string         `json:"airPnr"`
	Pnr         string         `json:"pnr"`
	CabinClass  string         `json:"cabinClass"`
	BookingCode string         `json:"bookingCode"`
	TicketNums  []NoticeTicket `json:"ticketNums"`
}

// NoticeTicket links a ticket number to a 1-based passenger index
type NoticeTicket struct {
	PassengerIndex FlexInt `json:"passengerIndex"`
	TicketNum      string  `json:"ticketNum"`
}

// ParseTicketIssuanceNotice decodes a callback body and keeps a copy of it
func ParseTicketIssuanceNotice(body []byte) (*TicketIssuanceNotice, error) {
	var n TicketIssuanceNotice
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, err
	}
	n.Raw = append(json.RawMessage(nil), body...)
	return &n, nil
}

// IssueStatus is the upper-cased status, ISSUED when absent
func (n *TicketIssuanceNotice) IssueStatus() string {
	if s := strings.TrimSpace(n.Status); s != "" {
		return strings.ToUpper(s)
	}
	return "ISSUED"
}

// Serial returns serialNum, falling back to serialNumber
func (n *TicketIssuanceNotice) Serial() string {
	if n.SerialNum != "" {
		return n.SerialNum
	}
	return n.SerialNumber
}
