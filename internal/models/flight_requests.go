package models

// ============================================================================
// FLIGHT SEARCH & PRICING REQUESTS
// ============================================================================

// Trip types accepted by search
const (
	TripTypeOneWay    = "Oneway"
	TripTypeRoundTrip = "RoundTrip"
)

// FlightSearchRequest is the client's search criteria.
// A non-empty ReturnDate adds a reversed return leg.
type FlightSearchRequest struct {
	TripType      string `json:"tripType" validate:"omitempty,oneof=Oneway RoundTrip MultiCity"`
	Origin        string `json:"origin" validate:"required,iata"`
	Destination   string `json:"destination" validate:"required,iata,nefield=Origin"`
	DepartureDate string `json:"departureDate" validate:"required,ymd,notpast"`
	ReturnDate    string `json:"returnDate,omitempty" validate:"omitempty,ymd"`
	Adults        int    `json:"adults" validate:"gte=0,lte=9"`
	Children      int    `json:"children" validate:"gte=0,lte=9"`
	Infants       int    `json:"infants" validate:"gte=0,ltefield=Adults"`
	CabinClass    string `json:"cabinClass,omitempty"`
	Nonstop       int    `json:"nonstop" validate:"oneof=0 1"`
	Airline       string `json:"airline,omitempty" validate:"omitempty,len=2"`
	Solutions     int    `json:"solutions" validate:"gte=0"`
}

// JourneySegment identifies one segment of a priced journey
type JourneySegment struct {
	Airline       string `json:"airline" validate:"required"`
	FlightNum     string `json:"flightNum" validate:"required"`
	Departure     string `json:"departure" validate:"required,iata"`
	Arrival       string `json:"arrival" validate:"required,iata"`
	DepartureDate string `json:"departureDate" validate:"required"`
	DepartureTime string `json:"departureTime,omitempty"`
	ArrivalDate   string `json:"arrivalDate,omitempty"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
	BookingCode   string `json:"bookingCode" validate:"required"`
}

// PrecisePricingRequest reprices one offer picked from search results.
// Journeys may be omitted when SelectedFlight is supplied.
type PrecisePricingRequest struct {
	SolutionID     string                      `json:"solutionId" validate:"required"`
	SolutionKey    string                      `json:"solutionKey,omitempty"`
	ShoppingKey    string                      `json:"shoppingKey,omitempty"`
	Journeys       map[string][]JourneySegment `json:"journeys,omitempty" validate:"omitempty,dive,dive"`
	SelectedFlight *Offer                      `json:"selectedFlight,omitempty"`
	Adults         int                         `json:"adults" validate:"gte=1,lte=9"`
	Children       int                         `json:"children" validate:"gte=0,lte=9"`
	Infants        int                         `json:"infants" validate:"gte=0,ltefield=Adults"`
}

// ============================================================================
// BOOKING REQUESTS
// ============================================================================

// PassengerInput is one traveller on a booking request
type PassengerInput struct {
	FirstName      string `json:"firstName" validate:"required,max=255"`
	LastName       string `json:"lastName" validate:"required,max=255"`
	Type           string `json:"type" validate:"required,oneof=ADT CHD INF"`
	DOB            string `json:"dob" validate:"required,ymd"`
	Gender         string `json:"gender" validate:"required,oneof=Male Female"`
	PassportNumber string `json:"passportNumber,omitempty" validate:"omitempty,max=255"`
	PassportExpiry string `json:"passportExpiry,omitempty" validate:"omitempty,ymd,notpast"`
	Nationality    string `json:"nationality,omitempty" validate:"omitempty,len=2,alpha"`
}

// CreateBookingRequest places an order for a priced offer
type CreateBookingRequest struct {
	SelectedFlight *Offer           `json:"selectedFlight" validate:"required"`
	SolutionID     string           `json:"solutionId" validate:"required"`
	Passengers     []PassengerInput `json:"passengers" validate:"required,min=1,max=9,dive"`
	ContactName    string           `json:"contactName" validate:"required,max=155"`
	ContactEmail   string           `json:"contactEmail" validate:"required,email,max=255"`
	ContactPhone   string           `json:"contactPhone" validate:"required,max=20,phone"`
	TotalPrice     float64          `json:"totalPrice" validate:"gte=0"`
	Currency       string           `json:"currency" validate:"required,len=3"`
	AgentFee       float64          `json:"agentFee" validate:"gte=0"`
}

// TicketingRequest asks for ticket issuance on an existing order.
// Contact fields default to the booking's stored contact.
type TicketingRequest struct {
	PNR          string `json:"pnr,omitempty"`
	ContactName  string `json:"contactName,omitempty" validate:"omitempty,max=155"`
	ContactEmail string `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactPhone string `json:"contactPhone,omitempty" validate:"omitempty,max=20,phone"`
}

// CancelBookingRequest cancels an unticketed order. PNR defaults to the
// booking's stored PNR.
type CancelBookingRequest struct {
	PNR string `json:"pnr,omitempty"`
}

// BookingListResponse is a page of the caller's bookings
type BookingListResponse struct {
	Bookings []Booking `json:"bookings"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
