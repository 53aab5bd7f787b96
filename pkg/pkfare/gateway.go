package pkfare

import "context"

// Gateway is the set of PKFare calls the booking flow depends on.
// Implementations return *ProviderError for non-zero error codes and an
// error wrapping ErrUnknownOutcome when no answer was received.
type Gateway interface {
	Search(ctx context.Context, req SearchRequest) (*SearchData, error)
	PrecisePricing(ctx context.Context, req PricingRequest) (*PricingData, error)
	CreateBooking(ctx context.Context, req BookingRequest) (*BookingData, error)
	OrderPricing(ctx context.Context, orderNum string) (*OrderPricingData, error)
	Ticketing(ctx context.Context, req TicketingRequest) (*TicketingData, error)
	Cancel(ctx context.Context, orderNum, virtualPnr string) error
	OrderDetail(ctx context.Context, orderNum string) (*OrderDetailData, error)
}

// Authentication is attached to every request.
type Authentication struct {
	PartnerID string `json:"partnerId"`
	Sign      string `json:"sign"`
}

// ============================================================================
// SEARCH
// ============================================================================

// SearchAirLeg is one directional leg of a search.
type SearchAirLeg struct {
	CabinClass    string `json:"cabinClass"`
	DepartureDate string `json:"departureDate"`
	Destination   string `json:"destination"`
	Origin        string `json:"origin"`
	Airline       string `json:"airline"`
}

// SearchRequest mirrors the shopping "search" block.
type SearchRequest struct {
	Adults         int            `json:"adults"`
	Children       int            `json:"children"`
	Infants        int            `json:"infants"`
	Nonstop        int            `json:"nonstop"`
	Airline        string         `json:"airline"`
	Solutions      int            `json:"solutions"`
	Tag            string         `json:"tag"`
	ReturnTagPrice string         `json:"returnTagPrice"`
	SearchAirLegs  []SearchAirLeg `json:"searchAirLegs"`
}

// ============================================================================
// PRICING
// ============================================================================

// PricingSegment identifies one segment inside a priced journey.
type PricingSegment struct {
	Airline       string `json:"airline"`
	Arrival       string `json:"arrival"`
	ArrivalDate   string `json:"arrivalDate,omitempty"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
	BookingCode   string `json:"bookingCode"`
	Departure     string `json:"departure"`
	DepartureDate string `json:"departureDate"`
	DepartureTime string `json:"departureTime,omitempty"`
	FlightNum     string `json:"flightNum"`
}

// PricingRequest asks the provider to reprice one solution.
type PricingRequest struct {
	SolutionID  string                      `json:"solutionId"`
	SolutionKey string                      `json:"solutionKey,omitempty"`
	ShoppingKey string                      `json:"shoppingKey,omitempty"`
	Adults      int                         `json:"adults"`
	Children    int                         `json:"children"`
	Infants     int                         `json:"infants"`
	Journeys    map[string][]PricingSegment `json:"journeys"`
}

// ============================================================================
// ORDERS
// ============================================================================

// BookingPassenger is a passenger as the provider expects it.
type BookingPassenger struct {
	PassengerIndex  int    `json:"passengerIndex"`
	PsgType         string `json:"psgType"`
	Sex             string `json:"sex"`
	Birthday        string `json:"birthday"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Nationality     string `json:"nationality,omitempty"`
	CardType        string `json:"cardType,omitempty"`
	CardNum         string `json:"cardNum,omitempty"`
	CardExpiredDate string `json:"cardExpiredDate,omitempty"`
}

// BookingSolution is the fare breakdown the order is placed against.
type BookingSolution struct {
	SolutionID string                      `json:"solutionId"`
	AdtFare    float64                     `json:"adtFare"`
	AdtTax     float64                     `json:"adtTax"`
	ChdFare    float64                     `json:"chdFare"`
	ChdTax     float64                     `json:"chdTax"`
	InfFare    float64                     `json:"infFare"`
	InfTax     float64                     `json:"infTax"`
	Journeys   map[string][]PricingSegment `json:"journeys"`
}

// Contact is the booker's contact block.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"telNum"`
}

// BookingRequest places an order.
type BookingRequest struct {
	Passengers []BookingPassenger `json:"passengers"`
	Solution   BookingSolution    `json:"solution"`
	Contact    Contact            `json:"contact"`
}

// TicketingRequest asks the provider to issue tickets for an order.
type TicketingRequest struct {
	OrderNum string  `json:"orderNum"`
	PNR      string  `json:"PNR"`
	Contact  Contact `json:"contact"`
}
