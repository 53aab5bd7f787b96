package pkfare

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// FlexString accepts a JSON string or number and keeps its textual form.
// PKFare is not consistent about quoting codes and allowance values.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(string(b))
	return nil
}

// String returns the raw text
func (f FlexString) String() string {
	return string(f)
}

// FlexInt accepts a JSON number, numeric string, or boolean.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		*f = 0
		return nil
	case bytes.Equal(b, []byte("true")):
		*f = 1
		return nil
	case bytes.Equal(b, []byte("false")):
		*f = 0
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexInt(int(v))
	return nil
}

// ============================================================================
// SEARCH / PRICING PAYLOADS
// ============================================================================

// Segment is one physical flight (single takeoff and landing).
// DepartureDate and ArrivalDate are epoch milliseconds.
type Segment struct {
	SegmentID         string  `json:"segmentId"`
	Airline           string  `json:"airline"`
	FlightNum         string  `json:"flightNum"`
	OpFltAirline      string  `json:"opFltAirline"`
	OpFltNo           string  `json:"opFltNo"`
	BookingCode       string  `json:"bookingCode"`
	CabinClass        string  `json:"cabinClass"`
	AvailabilityCount FlexInt `json:"availabilityCount"`
	Departure         string  `json:"departure"`
	Arrival           string  `json:"arrival"`
	DepartureDate     int64   `json:"departureDate"`
	ArrivalDate       int64   `json:"arrivalDate"`
	DepartureTerminal string  `json:"departureTerminal"`
	ArrivalTerminal   string  `json:"arrivalTerminal"`
	Equipment         string  `json:"equipment"`
	StrDepartureDate  string  `json:"strDepartureDate"`
	StrDepartureTime  string  `json:"strDepartureTime"`
	StrArrivalDate    string  `json:"strArrivalDate"`
	StrArrivalTime    string  `json:"strArrivalTime"`
}

// Flight groups segments flown under one flight id.
type Flight struct {
	FlightID      string   `json:"flightId"`
	SegmentIDs    []string `json:"segmentIds"`
	JourneyTime   FlexInt  `json:"journeyTime"`
	TransferCount FlexInt  `json:"transferCount"`
	LastTktTime   *int64   `json:"lastTktTime"`
}

// UnmarshalJSON reads the segment list from either "segmentIds" or the
// misspelled "segmengtIds" that shopping responses carry.
func (f *Flight) UnmarshalJSON(b []byte) error {
	type plain Flight
	var raw struct {
		plain
		Misspelled []string `json:"segmengtIds"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*f = Flight(raw.plain)
	if len(f.SegmentIDs) == 0 {
		f.SegmentIDs = raw.Misspelled
	}
	return nil
}

// BaggageAllowance is one entry of a solution's baggageMap.
// SegmentIndexList holds 1-based positions into the solution's segment list.
type BaggageAllowance struct {
	SegmentIndexList []int      `json:"segmentIndexList"`
	BaggageAmount    FlexString `json:"baggageAmount"`
	BaggageWeight    FlexString `json:"baggageWeight"`
	CarryOnAmount    FlexString `json:"carryOnAmount"`
	CarryOnWeight    FlexString `json:"carryOnWeight"`
	CarryOnSize      FlexString `json:"carryOnSize"`
}

// MiniRule is kept as a loose map; only penaltyType is interpreted.
type MiniRule map[string]any

// PenaltyType returns the numeric penalty type, or false when absent.
func (r MiniRule) PenaltyType() (int, bool) {
	switch v := r["penaltyType"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// MiniRuleBlock applies a set of penalties to 1-based segment positions.
type MiniRuleBlock struct {
	SegmentIndex []int      `json:"segmentIndex"`
	MiniRules    []MiniRule `json:"miniRules"`
}

// Solution is one priced itinerary option.
type Solution struct {
	SolutionID         string                        `json:"solutionId"`
	SolutionKey        string                        `json:"solutionKey"`
	PlatingCarrier     string                        `json:"platingCarrier"`
	FareType           string                        `json:"fareType"`
	Category           []string                      `json:"category"`
	BookingWithoutCard FlexInt                       `json:"bookingWithoutCard"`
	Adults             *int                          `json:"adults"`
	Children           int                           `json:"children"`
	Infants            int                           `json:"infants"`
	Currency           string                        `json:"currency"`
	AdtFare            float64                       `json:"adtFare"`
	AdtTax             float64                       `json:"adtTax"`
	ChdFare            float64                       `json:"chdFare"`
	ChdTax             float64                       `json:"chdTax"`
	InfFare            float64                       `json:"infFare"`
	InfTax             float64                       `json:"infTax"`
	QCharge            float64                       `json:"qCharge"`
	TktFee             float64                       `json:"tktFee"`
	PlatformServiceFee float64                       `json:"platformServiceFee"`
	MerchantFee        float64                       `json:"merchantFee"`
	Journeys           map[string][]string           `json:"journeys"`
	BaggageMap         map[string][]BaggageAllowance `json:"baggageMap"`
	MiniRuleMap        map[string][]MiniRuleBlock    `json:"miniRuleMap"`
	Baggages           json.RawMessage               `json:"baggages,omitempty"`
}

// AdultCount defaults to one adult when the provider omits the field.
func (s Solution) AdultCount() int {
	if s.Adults == nil {
		return 1
	}
	return *s.Adults
}

// SearchData is the "data" member of a shopping response.
type SearchData struct {
	Solutions   []Solution `json:"solutions"`
	Flights     []Flight   `json:"flights"`
	Segments    []Segment  `json:"segments"`
	ShoppingKey string     `json:"shoppingKey"`
}

// AncillaryAvailability reports which paid ancillaries can be added.
type AncillaryAvailability struct {
	PaidBag  bool `json:"paidBag"`
	PaidSeat bool `json:"paidSeat"`
}

// PricingData is the "data" member of a precise pricing response.
type PricingData struct {
	Solution              *Solution             `json:"solution"`
	Flights               []Flight              `json:"flights"`
	Segments              []Segment             `json:"segments"`
	AncillaryAvailability AncillaryAvailability `json:"ancillaryAvailability"`
}

// ============================================================================
// ORDER PAYLOADS
// ============================================================================

// BookingData is the "data" member of a booking response.
type BookingData struct {
	OrderNum    string    `json:"orderNum"`
	Pnr         string    `json:"pnr"`
	Solution    Solution  `json:"solution"`
	Flights     []Flight  `json:"flights"`
	Segments    []Segment `json:"segments"`
	LastTktTime *int64    `json:"lastTktTime"`
}

// OrderPricingData is the "data" member of an order pricing response.
type OrderPricingData struct {
	OrderNum    string   `json:"orderNum"`
	Pnr         string   `json:"pnr"`
	Solution    Solution `json:"solution"`
	LastTktTime *int64   `json:"lastTktTime"`
}

// TicketingData is the "data" member of a ticketing response.
type TicketingData struct {
	OrderNum string `json:"orderNum"`
	Status   string `json:"status"`
}

// OrderDetailData is the "data" member of an order detail response.
type OrderDetailData struct {
	OrderNum    string          `json:"orderNum"`
	OrderStatus string          `json:"orderStatus"`
	Pnr         string          `json:"pnr"`
	AirPnr      string          `json:"airPnr"`
	Raw         json.RawMessage `json:"-"`
}
