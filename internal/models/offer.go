package models

import (
	"encoding/json"
	"time"
)

// ============================================================================
// NORMALIZED OFFERS
// ============================================================================

// PassengerCounts is the party size an offer was priced for
type PassengerCounts struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Total    int `json:"total"`
}

// Segment is one physical flight (single takeoff and landing) within a leg.
// LocalDeparture and LocalArrival carry the airport-local "2006-01-02 15:04"
// wall clock reported by the provider.
type Segment struct {
	SegmentID             string     `json:"segmentId"`
	FlightID              string     `json:"flightId"`
	Airline               string     `json:"airline"`
	FlightNumber          string     `json:"flightNumber"`
	OperatingAirline      string     `json:"operatingAirline,omitempty"`
	OperatingFlightNumber string     `json:"operatingFlightNumber,omitempty"`
	Departure             string     `json:"departure"`
	Arrival               string     `json:"arrival"`
	DepartureTime         *time.Time `json:"departureTime"`
	ArrivalTime           *time.Time `json:"arrivalTime"`
	LocalDeparture        string     `json:"localDeparture,omitempty"`
	LocalArrival          string     `json:"localArrival,omitempty"`
	DepartureTerminal     string     `json:"departureTerminal,omitempty"`
	ArrivalTerminal       string     `json:"arrivalTerminal,omitempty"`
	Equipment             string     `json:"equipment,omitempty"`
	BookingCode           string     `json:"bookingCode"`
	CabinClass            string     `json:"cabinClass"`
	AvailabilityCount     int        `json:"availabilityCount"`
}

// Terminals holds the representative departure and arrival terminals of a leg
type Terminals struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Leg is one directional journey (outbound or return) of an offer
type Leg struct {
	FlightIDs         []string   `json:"flightIds"`
	Segments          []Segment  `json:"segments"`
	FlightNumber      string     `json:"flightNumber"`
	Origin            string     `json:"origin"`
	Destination       string     `json:"destination"`
	DepartureTime     *time.Time `json:"departureTime"`
	ArrivalTime       *time.Time `json:"arrivalTime"`
	JourneyTime       int        `json:"journeyTime"`
	TransferCount     int        `json:"transferCount"`
	Stops             int        `json:"stops"`
	Terminals         Terminals  `json:"terminals"`
	Equipment         string     `json:"equipment,omitempty"`
	Cabin             string     `json:"cabin"`
	BookingCode       string     `json:"bookingCode"`
	AvailabilityCount int        `json:"availabilityCount"`
}

// Passenger type codes used by the provider
const (
	PassengerTypeAdult  = "ADT"
	PassengerTypeChild  = "CHD"
	PassengerTypeInfant = "INF"
)

// PassengerTypePrice is the fare line for one passenger type.
// PerPax is fare plus taxes for one traveller, Total is PerPax times Count.
type PassengerTypePrice struct {
	Count  int     `json:"count"`
	Fare   float64 `json:"fare"`
	Taxes  float64 `json:"taxes"`
	PerPax float64 `json:"perPax"`
	Total  float64 `json:"total"`
}

// Fees are flat, solution-level charges added once per booking
type Fees struct {
	TktFee             float64 `json:"tktFee"`
	PlatformServiceFee float64 `json:"platformServiceFee"`
	MerchantFee        float64 `json:"merchantFee"`
	QCharge            float64 `json:"qCharge"`
}

// Sum returns the total of all flat fees
func (f Fees) Sum() float64 {
	return f.TktFee + f.PlatformServiceFee + f.MerchantFee + f.QCharge
}

// PriceBreakdown aggregates an offer's price for the whole party.
// Total always equals the sum of PassengerTypes[*].Total plus FeesTotal.
type PriceBreakdown struct {
	Currency       string                        `json:"currency"`
	Base           float64                       `json:"base"`
	Taxes          float64                       `json:"taxes"`
	PassengerTypes map[string]PassengerTypePrice `json:"passengerTypes"`
	Fees           Fees                          `json:"fees"`
	FeesTotal      float64                       `json:"feesTotal"`
	Total          float64                       `json:"total"`
	GrandTotal     float64                       `json:"grandTotal,omitempty"`
}

// CheckedBaggage is the checked allowance on one segment
type CheckedBaggage struct {
	Amount string `json:"amount,omitempty"`
	Weight string `json:"weight,omitempty"`
}

// CarryOnBaggage is the cabin allowance on one segment
type CarryOnBaggage struct {
	Amount string `json:"amount,omitempty"`
	Weight string `json:"weight,omitempty"`
	Size   string `json:"size,omitempty"`
}

// BaggageAllowance maps segment IDs to allowances for one passenger type
type BaggageAllowance struct {
	CheckedBySegment map[string]CheckedBaggage `json:"checkedBySegment"`
	CarryOnBySegment map[string]CarryOnBaggage `json:"carryOnBySegment"`
}

// Baggage holds allowances keyed by lower-case passenger type ("adt", "chd")
type Baggage struct {
	Allowances map[string]BaggageAllowance `json:"allowances"`
	RawByIndex json.RawMessage             `json:"rawByIndex,omitempty"`
}

// FareRule is one provider penalty entry with a display label attached
type FareRule struct {
	Label       string         `json:"label"`
	PenaltyType *int           `json:"penaltyType"`
	Rule        map[string]any `json:"rule"`
}

// FareRuleBlock applies a list of penalties to a set of segments
type FareRuleBlock struct {
	SegmentIDs []string   `json:"segmentIds"`
	MiniRules  []FareRule `json:"miniRules"`
}

// AncillaryAvailability reports which paid extras can be added to an offer
type AncillaryAvailability struct {
	PaidBag  bool `json:"paidBag"`
	PaidSeat bool `json:"paidSeat"`
}

// Offer is a UI-ready itinerary built from one provider solution.
// Legs are ordered by journey index, outbound first.
type Offer struct {
	ID                    string                     `json:"id"`
	SolutionID            string                     `json:"solutionId"`
	SolutionKey           string                     `json:"solutionKey,omitempty"`
	ShoppingKey           string                     `json:"shoppingKey,omitempty"`
	FareType              string                     `json:"fareType,omitempty"`
	PlatingCarrier        string                     `json:"platingCarrier"`
	BookingWithoutCard    bool                       `json:"bookingWithoutCard"`
	MarketingCarriers     []string                   `json:"marketingCarriers"`
	OperatingCarriers     []string                   `json:"operatingCarriers"`
	FlightIDs             []string                   `json:"flightIds"`
	Origin                string                     `json:"origin"`
	Destination           string                     `json:"destination"`
	DepartureTime         *time.Time                 `json:"departureTime"`
	ArrivalTime           *time.Time                 `json:"arrivalTime"`
	Stops                 int                        `json:"stops"`
	IsRoundTrip           bool                       `json:"isRoundTrip"`
	IsVI                  bool                       `json:"isVI"`
	Passengers            PassengerCounts            `json:"passengers"`
	Legs                  []Leg                      `json:"legs"`
	Segments              []Segment                  `json:"segments"`
	PriceBreakdown        PriceBreakdown             `json:"priceBreakdown"`
	Baggage               Baggage                    `json:"baggage"`
	FareRules             map[string][]FareRuleBlock `json:"rules"`
	LastTicketingTime     *time.Time                 `json:"lastTktTime"`
	Expired               bool                       `json:"expired"`
	AncillaryAvailability *AncillaryAvailability     `json:"ancillaryAvailability,omitempty"`
}
