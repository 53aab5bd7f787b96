package services

import (
	"errors"
	"time"

	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// ErrNoPricedSegments is returned when a pricing payload has no usable segments
var ErrNoPricedSegments = errors.New("no segments found in precise pricing payload")

// NormalizePricing turns a precise pricing payload into the authoritative
// offer for booking. Flights shared between journeys contribute their
// segments to the index once. PriceBreakdown.GrandTotal carries the
// bookable total.
func NormalizePricing(data *pkfare.PricingData, now time.Time) (*models.Offer, error) {
	if data == nil || data.Solution == nil {
		return nil, ErrNoPricedSegments
	}
	sol := data.Solution

	flights, segments := indexPayload(data.Flights, data.Segments)

	it, ok := buildItinerary(sol, flights, segments, false)
	if !ok {
		return nil, ErrNoPricedSegments
	}

	offer := assembleOffer(sol, it, flights, now)
	offer.PriceBreakdown.GrandTotal = offer.PriceBreakdown.Total
	if len(sol.Baggages) > 0 && string(sol.Baggages) != "null" {
		offer.Baggage.RawByIndex = []byte(sol.Baggages)
	}
	offer.AncillaryAvailability = &models.AncillaryAvailability{
		PaidBag:  data.AncillaryAvailability.PaidBag,
		PaidSeat: data.AncillaryAvailability.PaidSeat,
	}

	return &offer, nil
}
