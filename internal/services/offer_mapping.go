package services

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

// ============================================================================
// SEGMENT INDEX
// ============================================================================

// SegmentIndex is the solution-wide ordered segment list. Baggage and fare
// rule entries point into it by 1-based position.
type SegmentIndex []string

// Resolve maps a 1-based position to a segment ID
func (idx SegmentIndex) Resolve(pos int) (string, bool) {
	if pos < 1 || pos > len(idx) {
		return "", false
	}
	return idx[pos-1], true
}

// Contains reports whether segmentID belongs to the solution
func (idx SegmentIndex) Contains(segmentID string) bool {
	for _, id := range idx {
		if id == segmentID {
			return true
		}
	}
	return false
}

// itinerary is the leg and segment structure of one solution
type itinerary struct {
	legs      []models.Leg
	segments  []models.Segment
	flightIDs []string
	index     SegmentIndex
}

// sortedJourneyKeys orders journey_N keys by N. Keys without a numeric
// suffix are ignored.
func sortedJourneyKeys(journeys map[string][]string) []string {
	type key struct {
		name string
		n    int
	}
	keys := make([]key, 0, len(journeys))
	for name := range journeys {
		suffix, ok := strings.CutPrefix(name, "journey_")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		keys = append(keys, key{name: name, n: n})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].n < keys[j].n })

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.name
	}
	return out
}

// buildItinerary expands the solution's journeys into legs. With strict set,
// any journey resolving to no segments rejects the whole solution. Otherwise
// empty journeys are skipped and segments already seen in an earlier journey
// are not indexed twice.
func buildItinerary(sol *pkfare.Solution, flights map[string]*pkfare.Flight, segments map[string]*pkfare.Segment, strict bool) (itinerary, bool) {
	var it itinerary
	seen := map[string]bool{}
	seenFlights := map[string]bool{}

	for _, key := range sortedJourneyKeys(sol.Journeys) {
		flightIDs := sol.Journeys[key]
		var legSegs []models.Segment

		for _, fid := range flightIDs {
			if !seenFlights[fid] {
				seenFlights[fid] = true
				it.flightIDs = append(it.flightIDs, fid)
			}
			flight, ok := flights[fid]
			if !ok {
				continue
			}
			for _, sid := range flight.SegmentIDs {
				seg, ok := segments[sid]
				if !ok {
					continue
				}
				if !strict && seen[sid] {
					continue
				}
				seen[sid] = true
				legSegs = append(legSegs, toSegment(seg, fid))
			}
		}

		if len(legSegs) == 0 {
			if strict {
				return itinerary{}, false
			}
			continue
		}

		var first *pkfare.Flight
		if len(flightIDs) > 0 {
			first = flights[flightIDs[0]]
		}
		it.legs = append(it.legs, buildLeg(flightIDs, legSegs, first))
		it.segments = append(it.segments, legSegs...)
	}

	if len(it.segments) == 0 {
		return itinerary{}, false
	}

	it.index = make(SegmentIndex, len(it.segments))
	for i, s := range it.segments {
		it.index[i] = s.SegmentID
	}
	return it, true
}

func toSegment(s *pkfare.Segment, flightID string) models.Segment {
	return models.Segment{
		SegmentID:             s.SegmentID,
		FlightID:              flightID,
		Airline:               s.Airline,
		FlightNumber:          s.FlightNum,
		OperatingAirline:      s.OpFltAirline,
		OperatingFlightNumber: s.OpFltNo,
		Departure:             s.Departure,
		Arrival:               s.Arrival,
		DepartureTime:         msTime(s.DepartureDate),
		ArrivalTime:           msTime(s.ArrivalDate),
		LocalDeparture:        joinLocal(s.StrDepartureDate, s.StrDepartureTime),
		LocalArrival:          joinLocal(s.StrArrivalDate, s.StrArrivalTime),
		DepartureTerminal:     s.DepartureTerminal,
		ArrivalTerminal:       s.ArrivalTerminal,
		Equipment:             s.Equipment,
		BookingCode:           s.BookingCode,
		CabinClass:            s.CabinClass,
		AvailabilityCount:     int(s.AvailabilityCount),
	}
}

func buildLeg(flightIDs []string, segs []models.Segment, firstFlight *pkfare.Flight) models.Leg {
	first := segs[0]
	last := segs[len(segs)-1]

	leg := models.Leg{
		FlightIDs:         flightIDs,
		Segments:          segs,
		FlightNumber:      first.Airline + first.FlightNumber,
		Origin:            first.Departure,
		Destination:       last.Arrival,
		DepartureTime:     first.DepartureTime,
		ArrivalTime:       last.ArrivalTime,
		Stops:             len(segs) - 1,
		Terminals:         models.Terminals{From: first.DepartureTerminal, To: last.ArrivalTerminal},
		Equipment:         first.Equipment,
		Cabin:             first.CabinClass,
		BookingCode:       first.BookingCode,
		AvailabilityCount: first.AvailabilityCount,
	}
	if firstFlight != nil {
		leg.JourneyTime = int(firstFlight.JourneyTime)
		leg.TransferCount = int(firstFlight.TransferCount)
	}
	return leg
}

func msTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func joinLocal(date, clock string) string {
	if date == "" || clock == "" {
		return ""
	}
	return date + " " + clock
}

// ============================================================================
// BAGGAGE & FARE RULES
// ============================================================================

// mapBaggage resolves each allowance's segment positions through idx.
// Positions outside the index are dropped.
func mapBaggage(baggageMap map[string][]pkfare.BaggageAllowance, idx SegmentIndex) map[string]models.BaggageAllowance {
	out := make(map[string]models.BaggageAllowance, len(baggageMap))
	for ptc, entries := range baggageMap {
		allowance := models.BaggageAllowance{
			CheckedBySegment: map[string]models.CheckedBaggage{},
			CarryOnBySegment: map[string]models.CarryOnBaggage{},
		}
		for _, b := range entries {
			for _, pos := range b.SegmentIndexList {
				sid, ok := idx.Resolve(pos)
				if !ok {
					continue
				}
				allowance.CheckedBySegment[sid] = models.CheckedBaggage{
					Amount: b.BaggageAmount.String(),
					Weight: b.BaggageWeight.String(),
				}
				allowance.CarryOnBySegment[sid] = models.CarryOnBaggage{
					Amount: b.CarryOnAmount.String(),
					Weight: b.CarryOnWeight.String(),
					Size:   b.CarryOnSize.String(),
				}
			}
		}
		out[strings.ToLower(ptc)] = allowance
	}
	return out
}

// penaltyLabel names a mini-rule penalty type
func penaltyLabel(penaltyType int, ok bool) string {
	if !ok {
		return "Penalty"
	}
	switch penaltyType {
	case 0:
		return "Refund"
	case 1:
		return "Change"
	case 2:
		return "No-show"
	case 3:
		return "Reissue / Reroute"
	default:
		return "Penalty"
	}
}

// mapFareRules resolves rule blocks through idx and labels each penalty
func mapFareRules(miniRuleMap map[string][]pkfare.MiniRuleBlock, idx SegmentIndex) map[string][]models.FareRuleBlock {
	out := make(map[string][]models.FareRuleBlock, len(miniRuleMap))
	for ptc, blocks := range miniRuleMap {
		mapped := make([]models.FareRuleBlock, 0, len(blocks))
		for _, block := range blocks {
			ids := make([]string, 0, len(block.SegmentIndex))
			for _, pos := range block.SegmentIndex {
				if sid, ok := idx.Resolve(pos); ok {
					ids = append(ids, sid)
				}
			}

			rules := make([]models.FareRule, 0, len(block.MiniRules))
			for _, r := range block.MiniRules {
				pt, ok := r.PenaltyType()
				rule := models.FareRule{Label: penaltyLabel(pt, ok), Rule: r}
				if ok {
					rule.PenaltyType = &pt
				}
				rules = append(rules, rule)
			}

			mapped = append(mapped, models.FareRuleBlock{SegmentIDs: ids, MiniRules: rules})
		}
		out[strings.ToLower(ptc)] = mapped
	}
	return out
}

// ============================================================================
// PRICE & CARRIERS
// ============================================================================

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// passengerCounts reads the party size from a solution, one adult by default
func passengerCounts(sol *pkfare.Solution) models.PassengerCounts {
	c := models.PassengerCounts{
		Adults:   sol.AdultCount(),
		Children: sol.Children,
		Infants:  sol.Infants,
	}
	c.Total = c.Adults + c.Children + c.Infants
	return c
}

// buildPriceBreakdown aggregates fares for every passenger type present plus
// the flat solution fees. Subtotals are rounded to minor units before
// summing so Total is exactly their sum.
func buildPriceBreakdown(sol *pkfare.Solution, counts models.PassengerCounts) models.PriceBreakdown {
	currency := sol.Currency
	if currency == "" {
		currency = "USD"
	}

	lines := []struct {
		code      string
		count     int
		fare, tax float64
	}{
		{models.PassengerTypeAdult, counts.Adults, sol.AdtFare, sol.AdtTax},
		{models.PassengerTypeChild, counts.Children, sol.ChdFare, sol.ChdTax},
		{models.PassengerTypeInfant, counts.Infants, sol.InfFare, sol.InfTax},
	}

	pb := models.PriceBreakdown{
		Currency:       currency,
		PassengerTypes: map[string]models.PassengerTypePrice{},
		Fees: models.Fees{
			TktFee:             sol.TktFee,
			PlatformServiceFee: sol.PlatformServiceFee,
			MerchantFee:        sol.MerchantFee,
			QCharge:            sol.QCharge,
		},
	}

	var subtotal float64
	for _, l := range lines {
		if l.count <= 0 {
			continue
		}
		fare, tax := l.fare, l.tax
		// A negative per-passenger price zeroes the whole line so Base and
		// Taxes keep summing to the subtotal
		if fare+tax < 0 {
			fare, tax = 0, 0
		}
		perPax := fare + tax
		line := models.PassengerTypePrice{
			Count:  l.count,
			Fare:   fare,
			Taxes:  tax,
			PerPax: roundMoney(perPax),
			Total:  roundMoney(perPax * float64(l.count)),
		}
		pb.PassengerTypes[l.code] = line
		pb.Base += fare * float64(l.count)
		pb.Taxes += tax * float64(l.count)
		subtotal += line.Total
	}

	pb.Base = roundMoney(pb.Base)
	pb.Taxes = roundMoney(pb.Taxes)
	pb.FeesTotal = roundMoney(pb.Fees.Sum())
	pb.Total = roundMoney(subtotal + pb.FeesTotal)
	return pb
}

// carriers returns the distinct marketing airlines and the per-segment
// operating airlines
func carriers(segs []models.Segment) (marketing, operating []string) {
	seen := map[string]bool{}
	marketing = []string{}
	operating = make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Airline != "" && !seen[s.Airline] {
			seen[s.Airline] = true
			marketing = append(marketing, s.Airline)
		}
		operating = append(operating, s.OperatingAirline)
	}
	return marketing, operating
}

// earliestTicketingTime is the minimum lastTktTime over the given flights
func earliestTicketingTime(flightIDs []string, flights map[string]*pkfare.Flight) *time.Time {
	var earliest *time.Time
	for _, fid := range flightIDs {
		f, ok := flights[fid]
		if !ok || f.LastTktTime == nil {
			continue
		}
		t := msTime(*f.LastTktTime)
		if t == nil {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = t
		}
	}
	return earliest
}

// isRoundTrip reports two legs whose endpoints mirror each other
func isRoundTrip(legs []models.Leg) bool {
	return len(legs) == 2 &&
		legs[0].Origin != "" && legs[1].Origin != "" &&
		legs[0].Destination == legs[1].Origin &&
		legs[0].Origin == legs[1].Destination
}

func indexPayload(flightList []pkfare.Flight, segmentList []pkfare.Segment) (map[string]*pkfare.Flight, map[string]*pkfare.Segment) {
	flights := make(map[string]*pkfare.Flight, len(flightList))
	for i := range flightList {
		if id := flightList[i].FlightID; id != "" {
			flights[id] = &flightList[i]
		}
	}
	segments := make(map[string]*pkfare.Segment, len(segmentList))
	for i := range segmentList {
		if id := segmentList[i].SegmentID; id != "" {
			segments[id] = &segmentList[i]
		}
	}
	return flights, segments
}

// assembleOffer fills the fields shared by search and pricing offers
func assembleOffer(sol *pkfare.Solution, it itinerary, flights map[string]*pkfare.Flight, now time.Time) models.Offer {
	marketing, operating := carriers(it.segments)
	counts := passengerCounts(sol)
	legs := it.legs
	roundTrip := isRoundTrip(legs)

	offer := models.Offer{
		ID:                 legs[0].Segments[0].SegmentID,
		SolutionID:         sol.SolutionID,
		SolutionKey:        sol.SolutionKey,
		FareType:           sol.FareType,
		PlatingCarrier:     sol.PlatingCarrier,
		BookingWithoutCard: sol.BookingWithoutCard != 0,
		MarketingCarriers:  marketing,
		OperatingCarriers:  operating,
		FlightIDs:          it.flightIDs,
		Origin:             legs[0].Origin,
		Destination:        legs[len(legs)-1].Destination,
		DepartureTime:      legs[0].DepartureTime,
		ArrivalTime:        legs[len(legs)-1].ArrivalTime,
		Stops:              legs[0].Stops,
		IsRoundTrip:        roundTrip,
		Passengers:         counts,
		Legs:               legs,
		Segments:           it.segments,
		PriceBreakdown:     buildPriceBreakdown(sol, counts),
		Baggage:            models.Baggage{Allowances: mapBaggage(sol.BaggageMap, it.index)},
		FareRules:          mapFareRules(sol.MiniRuleMap, it.index),
		LastTicketingTime:  earliestTicketingTime(it.flightIDs, flights),
	}
	if roundTrip {
		offer.Destination = legs[0].Destination
	}
	for _, c := range sol.Category {
		if c == "VI" {
			offer.IsVI = true
		}
	}
	if offer.LastTicketingTime != nil {
		offer.Expired = offer.LastTicketingTime.Before(now)
	}
	return offer
}
