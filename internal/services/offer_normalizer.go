package services

import (
	"time"

	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// NormalizeOffers flattens a shopping payload into UI-ready offers.
//
// Solutions are emitted in provider order. A solution with any journey that
// resolves to no known segments is skipped; baggage and rule entries whose
// positions fall outside the solution are dropped. A nil payload yields an
// empty list.
func NormalizeOffers(data *pkfare.SearchData, now time.Time) []models.Offer {
	offers := []models.Offer{}
	if data == nil || len(data.Solutions) == 0 {
		return offers
	}

	flights, segments := indexPayload(data.Flights, data.Segments)

	for i := range data.Solutions {
		sol := &data.Solutions[i]

		it, ok := buildItinerary(sol, flights, segments, true)
		if !ok {
			continue
		}

		offer := assembleOffer(sol, it, flights, now)
		offer.ShoppingKey = data.ShoppingKey
		offers = append(offers, offer)
	}

	return offers
}
