package services

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func ms(t time.Time) int64 { return t.UnixMilli() }

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

// roundTripPayload is NBO -> DXB via one flight and DXB -> NBO via a
// two-segment connection through ADD.
func roundTripPayload() *pkfare.SearchData {
	out := testNow.Add(72 * time.Hour)
	back := testNow.Add(240 * time.Hour)

	return &pkfare.SearchData{
		ShoppingKey: "SK-1",
		Segments: []pkfare.Segment{
			{SegmentID: "S1", Airline: "KQ", FlightNum: "310", OpFltAirline: "KQ", Departure: "NBO", Arrival: "DXB",
				DepartureDate: ms(out), ArrivalDate: ms(out.Add(5 * time.Hour)), BookingCode: "Y", CabinClass: "ECONOMY", AvailabilityCount: 9},
			{SegmentID: "S2", Airline: "ET", FlightNum: "601", OpFltAirline: "ET", Departure: "DXB", Arrival: "ADD",
				DepartureDate: ms(back), ArrivalDate: ms(back.Add(3 * time.Hour)), BookingCode: "M"},
			{SegmentID: "S3", Airline: "ET", FlightNum: "308", OpFltAirline: "KQ", Departure: "ADD", Arrival: "NBO",
				DepartureDate: ms(back.Add(5 * time.Hour)), ArrivalDate: ms(back.Add(7 * time.Hour)), BookingCode: "M"},
		},
		Flights: []pkfare.Flight{
			{FlightID: "F1", SegmentIDs: []string{"S1"}, JourneyTime: 300, LastTktTime: int64Ptr(ms(testNow.Add(48 * time.Hour)))},
			{FlightID: "F2", SegmentIDs: []string{"S2", "S3"}, JourneyTime: 420, TransferCount: 1, LastTktTime: int64Ptr(ms(testNow.Add(24 * time.Hour)))},
		},
		Solutions: []pkfare.Solution{
			{
				SolutionID:     "SOL-1",
				SolutionKey:    "KEY-1",
				PlatingCarrier: "KQ",
				Adults:         intPtr(2),
				Children:       1,
				Infants:        1,
				Currency:       "USD",
				AdtFare:        300.10, AdtTax: 50.05,
				ChdFare: 225, ChdTax: 40,
				InfFare: 30, InfTax: 5.5,
				TktFee: 2, PlatformServiceFee: 1.25, MerchantFee: 0.75, QCharge: 10,
				Journeys: map[string][]string{
					"journey_1": {"F2"},
					"journey_0": {"F1"},
				},
				BaggageMap: map[string][]pkfare.BaggageAllowance{
					"ADT": {
						{SegmentIndexList: []int{1}, BaggageAmount: "2PC", BaggageWeight: "23KG", CarryOnAmount: "1PC", CarryOnWeight: "7KG"},
						{SegmentIndexList: []int{2, 3, 4}, BaggageAmount: "1PC", BaggageWeight: "20KG"},
					},
				},
				MiniRuleMap: map[string][]pkfare.MiniRuleBlock{
					"ADT": {
						{SegmentIndex: []int{1, 9}, MiniRules: []pkfare.MiniRule{
							{"penaltyType": float64(0), "amount": float64(100)},
							{"penaltyType": float64(3)},
							{"amount": float64(5)},
						}},
					},
				},
			},
		},
	}
}

func TestNormalizeOffers_RoundTrip(t *testing.T) {
	offers := NormalizeOffers(roundTripPayload(), testNow)
	require.Len(t, offers, 1)
	o := offers[0]

	assert.Equal(t, "SOL-1", o.SolutionID)
	assert.Equal(t, "SK-1", o.ShoppingKey)
	assert.Equal(t, "S1", o.ID)
	assert.Equal(t, "NBO", o.Origin)
	assert.Equal(t, "DXB", o.Destination)
	assert.True(t, o.IsRoundTrip)

	require.Len(t, o.Legs, 2)
	assert.Equal(t, "NBO", o.Legs[0].Origin)
	assert.Equal(t, "DXB", o.Legs[0].Destination)
	assert.Equal(t, 0, o.Legs[0].Stops)
	assert.Equal(t, "KQ310", o.Legs[0].FlightNumber)
	assert.Equal(t, "DXB", o.Legs[1].Origin)
	assert.Equal(t, "NBO", o.Legs[1].Destination)
	assert.Equal(t, 1, o.Legs[1].Stops)
	assert.Equal(t, 1, o.Legs[1].TransferCount)
	assert.Equal(t, o.Legs[1].ArrivalTime, o.ArrivalTime)

	for _, s := range o.Legs[1].Segments {
		assert.Equal(t, "F2", s.FlightID)
	}

	assert.Equal(t, []string{"KQ", "ET"}, o.MarketingCarriers)
	assert.Equal(t, []string{"KQ", "ET", "KQ"}, o.OperatingCarriers)
	assert.Equal(t, 4, o.Passengers.Total)

	require.NotNil(t, o.LastTicketingTime)
	assert.True(t, o.LastTicketingTime.Equal(testNow.Add(24*time.Hour)))
	assert.False(t, o.Expired)
}

func TestNormalizeOffers_PriceSumInvariant(t *testing.T) {
	o := NormalizeOffers(roundTripPayload(), testNow)[0]
	pb := o.PriceBreakdown

	require.Len(t, pb.PassengerTypes, 3)
	assert.Equal(t, 2, pb.PassengerTypes["ADT"].Count)
	assert.InDelta(t, 700.30, pb.PassengerTypes["ADT"].Total, 0.001)
	assert.InDelta(t, 265.0, pb.PassengerTypes["CHD"].Total, 0.001)
	assert.InDelta(t, 35.5, pb.PassengerTypes["INF"].Total, 0.001)
	assert.InDelta(t, 14.0, pb.FeesTotal, 0.001)

	var sum float64
	for _, line := range pb.PassengerTypes {
		sum += line.Total
	}
	sum += pb.Fees.TktFee + pb.Fees.PlatformServiceFee + pb.Fees.MerchantFee + pb.Fees.QCharge
	assert.InDelta(t, sum, pb.Total, 0.005)
	assert.InDelta(t, 1014.80, pb.Total, 0.001)
	assert.Equal(t, "USD", pb.Currency)
	assert.Zero(t, pb.GrandTotal)
}

func TestNormalizeOffers_IndexCorrelation(t *testing.T) {
	o := NormalizeOffers(roundTripPayload(), testNow)[0]

	trip := map[string]bool{}
	for _, s := range o.Segments {
		trip[s.SegmentID] = true
	}

	adt := o.Baggage.Allowances["adt"]
	assert.Equal(t, "2PC", adt.CheckedBySegment["S1"].Amount)
	assert.Equal(t, "7KG", adt.CarryOnBySegment["S1"].Weight)
	assert.Equal(t, "20KG", adt.CheckedBySegment["S3"].Weight)
	assert.Len(t, adt.CheckedBySegment, 3)
	for sid := range adt.CheckedBySegment {
		assert.True(t, trip[sid], "baggage for foreign segment %s", sid)
	}

	rules := o.FareRules["adt"]
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"S1"}, rules[0].SegmentIDs)
	require.Len(t, rules[0].MiniRules, 3)
	assert.Equal(t, "Refund", rules[0].MiniRules[0].Label)
	assert.Equal(t, "Reissue / Reroute", rules[0].MiniRules[1].Label)
	assert.Equal(t, "Penalty", rules[0].MiniRules[2].Label)
	assert.Nil(t, rules[0].MiniRules[2].PenaltyType)
}

func TestNormalizeOffers_JourneyKeysSortNumerically(t *testing.T) {
	data := &pkfare.SearchData{}
	journeys := map[string][]string{}
	for i := 0; i <= 10; i++ {
		sid := fmt.Sprintf("S%d", i)
		fid := fmt.Sprintf("F%d", i)
		data.Segments = append(data.Segments, pkfare.Segment{
			SegmentID: sid, Departure: fmt.Sprintf("A%02d", i), Arrival: fmt.Sprintf("A%02d", i+1),
		})
		data.Flights = append(data.Flights, pkfare.Flight{FlightID: fid, SegmentIDs: []string{sid}})
		journeys[fmt.Sprintf("journey_%d", i)] = []string{fid}
	}
	data.Solutions = []pkfare.Solution{{SolutionID: "MULTI", Journeys: journeys}}

	offers := NormalizeOffers(data, testNow)
	require.Len(t, offers, 1)
	require.Len(t, offers[0].Legs, 11)
	for i, leg := range offers[0].Legs {
		assert.Equal(t, fmt.Sprintf("A%02d", i), leg.Origin)
	}
	assert.Equal(t, "A11", offers[0].Destination)
	assert.False(t, offers[0].IsRoundTrip)
}

func TestNormalizeOffers_SkipsSolutionsWithEmptyJourney(t *testing.T) {
	data := roundTripPayload()
	broken := data.Solutions[0]
	broken.SolutionID = "BROKEN"
	broken.Journeys = map[string][]string{"journey_0": {"F1"}, "journey_1": {"MISSING"}}
	data.Solutions = append(data.Solutions, broken)

	offers := NormalizeOffers(data, testNow)
	require.Len(t, offers, 1)
	assert.Equal(t, "SOL-1", offers[0].SolutionID)
}

func TestNormalizeOffers_Defaults(t *testing.T) {
	assert.Empty(t, NormalizeOffers(nil, testNow))
	assert.Empty(t, NormalizeOffers(&pkfare.SearchData{}, testNow))

	data := roundTripPayload()
	sol := &data.Solutions[0]
	sol.Adults = nil
	sol.Children = 0
	sol.Infants = 0
	sol.Currency = ""
	data.Flights[0].LastTktTime = int64Ptr(ms(testNow.Add(-time.Hour)))

	o := NormalizeOffers(data, testNow)[0]
	assert.Equal(t, 1, o.Passengers.Adults)
	assert.Len(t, o.PriceBreakdown.PassengerTypes, 1)
	assert.Equal(t, "USD", o.PriceBreakdown.Currency)
	assert.True(t, o.Expired)
}

func TestNormalizeOffers_DecodesMisspelledSegmentIDs(t *testing.T) {
	raw := `{
		"shoppingKey": "K",
		"solutions": [{"solutionId": "S", "adults": 1, "adtFare": 100, "adtTax": 10, "journeys": {"journey_0": ["F"]}}],
		"flights": [{"flightId": "F", "segmengtIds": ["A", "B"]}],
		"segments": [
			{"segmentId": "A", "departure": "NBO", "arrival": "ADD", "airline": "ET"},
			{"segmentId": "B", "departure": "ADD", "arrival": "LHR", "airline": "ET"}
		]
	}`
	var data pkfare.SearchData
	require.NoError(t, json.Unmarshal([]byte(raw), &data))

	offers := NormalizeOffers(&data, testNow)
	require.Len(t, offers, 1)
	assert.Equal(t, "LHR", offers[0].Destination)
	assert.Equal(t, 1, offers[0].Stops)
	assert.Equal(t, 110.0, offers[0].PriceBreakdown.Total)
}

func TestBuildPriceBreakdown_NegativePerPaxClampsToZero(t *testing.T) {
	sol := &pkfare.Solution{Adults: intPtr(1), AdtFare: -20, AdtTax: 5}
	pb := buildPriceBreakdown(sol, passengerCounts(sol))
	assert.Equal(t, 0.0, pb.PassengerTypes["ADT"].PerPax)
	assert.Equal(t, 0.0, pb.Total)
	assert.False(t, math.IsNaN(pb.Total))
	assert.Equal(t, 0.0, pb.Base)
	assert.Equal(t, 0.0, pb.Taxes)
}

func TestBuildPriceBreakdown_BaseAndTaxesMatchSubtotal(t *testing.T) {
	sol := &pkfare.Solution{Adults: intPtr(2), Children: 1, AdtFare: -30, AdtTax: 10, ChdFare: -5, ChdTax: 25}
	pb := buildPriceBreakdown(sol, passengerCounts(sol))

	subtotal := 0.0
	for _, line := range pb.PassengerTypes {
		subtotal += line.Total
	}
	assert.InDelta(t, subtotal, pb.Base+pb.Taxes, 0.001)
	assert.Equal(t, 20.0, pb.PassengerTypes["CHD"].PerPax)
	assert.Equal(t, -5.0, pb.PassengerTypes["CHD"].Fare)
	assert.Equal(t, 0.0, pb.PassengerTypes["ADT"].Total)
}
