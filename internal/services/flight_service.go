package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
	bookingvalidator "github.com/Arden28/flygasal-api/pkg/validator"
)

const defaultCabinClass = "Economy"

// FlightService runs provider searches and precise pricing
type FlightService struct {
	gateway  pkfare.Gateway
	cache    SearchCache
	validate *validator.Validate
	logger   *logrus.Logger
	now      func() time.Time
}

// NewFlightService creates a flight service. cache may be nil.
func NewFlightService(gateway pkfare.Gateway, cache SearchCache, logger *logrus.Logger) *FlightService {
	return &FlightService{
		gateway:  gateway,
		cache:    cache,
		validate: bookingvalidator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Search validates the criteria, queries the provider and normalizes the
// answer. Results are served from the cache when present.
func (s *FlightService) Search(ctx context.Context, req models.FlightSearchRequest) ([]models.Offer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}
	if req.ReturnDate != "" && req.ReturnDate <= req.DepartureDate {
		return nil, &ValidationError{Fields: map[string]string{
			"FlightSearchRequest.ReturnDate": "gtfield=DepartureDate",
		}}
	}

	search := buildSearchRequest(req)

	var cacheKey string
	if s.cache != nil {
		key, err := SearchCacheKey(search)
		if err == nil {
			cacheKey = key
			if offers, ok := s.cache.Get(ctx, key); ok {
				s.logger.WithFields(logrus.Fields{
					"origin":      search.SearchAirLegs[0].Origin,
					"destination": search.SearchAirLegs[0].Destination,
					"offers":      len(offers),
				}).Debug("Search served from cache")
				return offers, nil
			}
		}
	}

	data, err := s.gateway.Search(ctx, search)
	if err != nil {
		return nil, err
	}

	offers := NormalizeOffers(data, s.now())
	s.logger.WithFields(logrus.Fields{
		"origin":      req.Origin,
		"destination": req.Destination,
		"solutions":   len(data.Solutions),
		"offers":      len(offers),
	}).Info("Flight search completed")

	if cacheKey != "" && len(offers) > 0 {
		s.cache.Set(ctx, cacheKey, offers)
	}
	return offers, nil
}

// PrecisePricing reprices the selected offer. The result is the
// authoritative price for booking and is never cached.
func (s *FlightService) PrecisePricing(ctx context.Context, req models.PrecisePricingRequest) (*models.Offer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, newValidationError(err)
	}

	journeys := journeysFromRequest(req.Journeys)
	if len(journeys) == 0 && req.SelectedFlight != nil {
		journeys = journeysFromOffer(req.SelectedFlight)
	}
	if len(journeys) == 0 {
		return nil, &ValidationError{Fields: map[string]string{
			"PrecisePricingRequest.Journeys": "required",
		}}
	}

	solutionKey, shoppingKey := req.SolutionKey, req.ShoppingKey
	if req.SelectedFlight != nil {
		if solutionKey == "" {
			solutionKey = req.SelectedFlight.SolutionKey
		}
		if shoppingKey == "" {
			shoppingKey = req.SelectedFlight.ShoppingKey
		}
	}

	data, err := s.gateway.PrecisePricing(ctx, pkfare.PricingRequest{
		SolutionID:  req.SolutionID,
		SolutionKey: solutionKey,
		ShoppingKey: shoppingKey,
		Adults:      req.Adults,
		Children:    req.Children,
		Infants:     req.Infants,
		Journeys:    journeys,
	})
	if err != nil {
		return nil, err
	}

	offer, err := NormalizePricing(data, s.now())
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"solution_id": req.SolutionID,
		}).Warn("Precise pricing returned no usable segments")
		return nil, err
	}
	return offer, nil
}

// buildSearchRequest maps client criteria onto the provider search block.
// A return date adds a second leg with origin and destination reversed.
func buildSearchRequest(req models.FlightSearchRequest) pkfare.SearchRequest {
	adults := req.Adults
	if adults <= 0 {
		adults = 1
	}
	cabin := req.CabinClass
	if cabin == "" {
		cabin = defaultCabinClass
	}
	origin := strings.ToUpper(req.Origin)
	destination := strings.ToUpper(req.Destination)
	airline := strings.ToUpper(req.Airline)

	legs := []pkfare.SearchAirLeg{{
		CabinClass:    cabin,
		DepartureDate: req.DepartureDate,
		Destination:   destination,
		Origin:        origin,
		Airline:       airline,
	}}
	if req.ReturnDate != "" {
		legs = append(legs, pkfare.SearchAirLeg{
			CabinClass:    cabin,
			DepartureDate: req.ReturnDate,
			Destination:   origin,
			Origin:        destination,
			Airline:       airline,
		})
	}

	return pkfare.SearchRequest{
		Adults:         adults,
		Children:       req.Children,
		Infants:        req.Infants,
		Nonstop:        req.Nonstop,
		Airline:        airline,
		Solutions:      req.Solutions,
		ReturnTagPrice: "Y",
		SearchAirLegs:  legs,
	}
}

func journeysFromRequest(in map[string][]models.JourneySegment) map[string][]pkfare.PricingSegment {
	out := make(map[string][]pkfare.PricingSegment, len(in))
	for key, segs := range in {
		if len(segs) == 0 {
			continue
		}
		list := make([]pkfare.PricingSegment, 0, len(segs))
		for _, s := range segs {
			list = append(list, pkfare.PricingSegment{
				Airline:       s.Airline,
				Arrival:       s.Arrival,
				ArrivalDate:   s.ArrivalDate,
				ArrivalTime:   s.ArrivalTime,
				BookingCode:   s.BookingCode,
				Departure:     s.Departure,
				DepartureDate: s.DepartureDate,
				DepartureTime: s.DepartureTime,
				FlightNum:     s.FlightNum,
			})
		}
		out[key] = list
	}
	return out
}

// journeysFromOffer rebuilds journey_N segment lists from a normalized offer's legs
func journeysFromOffer(offer *models.Offer) map[string][]pkfare.PricingSegment {
	out := make(map[string][]pkfare.PricingSegment, len(offer.Legs))
	for i, leg := range offer.Legs {
		if len(leg.Segments) == 0 {
			continue
		}
		list := make([]pkfare.PricingSegment, 0, len(leg.Segments))
		for _, s := range leg.Segments {
			depDate, depTime := splitLocal(s.LocalDeparture, s.DepartureTime)
			arrDate, arrTime := splitLocal(s.LocalArrival, s.ArrivalTime)
			list = append(list, pkfare.PricingSegment{
				Airline:       s.Airline,
				Arrival:       s.Arrival,
				ArrivalDate:   arrDate,
				ArrivalTime:   arrTime,
				BookingCode:   s.BookingCode,
				Departure:     s.Departure,
				DepartureDate: depDate,
				DepartureTime: depTime,
				FlightNum:     s.FlightNumber,
			})
		}
		out[fmt.Sprintf("journey_%d", i)] = list
	}
	return out
}

// splitLocal prefers the provider's local wall clock and falls back to UTC
func splitLocal(local string, t *time.Time) (string, string) {
	if date, clock, ok := strings.Cut(local, " "); ok {
		return date, clock
	}
	if t == nil {
		return "", ""
	}
	return t.Format("2006-01-02"), t.Format("15:04")
}
