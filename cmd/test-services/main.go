package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/config"
	"github.com/Arden28/flygasal-api/internal/models"
	"github.com/Arden28/flygasal-api/internal/services"
	"github.com/Arden28/flygasal-api/pkg/jwt"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
	"github.com/Arden28/flygasal-api/pkg/validator"
)

func main() {
	origin := flag.String("from", "NBO", "origin airport")
	destination := flag.String("to", "DXB", "destination airport")
	departure := flag.String("date", time.Now().AddDate(0, 0, 30).Format("2006-01-02"), "departure date (YYYY-MM-DD)")
	returnDate := flag.String("return", "", "optional return date (YYYY-MM-DD)")
	adults := flag.Int("adults", 1, "number of adults")
	price := flag.Bool("price", false, "reprice the cheapest offer")
	flag.Parse()

	fmt.Println("🧪 Flygasal Services Smoke Test")
	fmt.Println("==================================================")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	fmt.Println("✅ Configuration loaded")
	fmt.Println()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	testPhoneValidator()
	testJWTService(cfg)

	gateway := pkfare.NewClient(pkfare.Config{
		BaseURL:          cfg.PKFare.BaseURL,
		PartnerID:        cfg.PKFare.PartnerID,
		PartnerKey:       cfg.PKFare.PartnerKey,
		Timeout:          cfg.PKFare.Timeout,
		BreakerThreshold: cfg.PKFare.BreakerThreshold,
	}, logger)
	flights := services.NewFlightService(gateway, nil, logger)

	offer := testSearch(flights, models.FlightSearchRequest{
		Origin:        *origin,
		Destination:   *destination,
		DepartureDate: *departure,
		ReturnDate:    *returnDate,
		Adults:        *adults,
	})

	if *price && offer != nil {
		testPrecisePricing(flights, offer, *adults)
	}

	fmt.Println("==================================================")
	fmt.Println("✅ Smoke test finished")
}

func testPhoneValidator() {
	fmt.Println("📱 Testing Phone Validator")
	fmt.Println("----------------------------")

	phones := validator.NewPhoneValidator()
	for _, input := range []string{"+254 712 345 678", "0712345678", "not-a-phone"} {
		if normalized, err := phones.Validate(input); err != nil {
			fmt.Printf("  ➖ %s → %v\n", input, err)
		} else {
			fmt.Printf("  ✅ %s → %s\n", input, normalized)
		}
	}
	fmt.Println()
}

func testJWTService(cfg *config.Config) {
	fmt.Println("🔐 Testing JWT Service")
	fmt.Println("----------------------")

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	userID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID, "smoke@flygasal.local", []string{"user"})
	if err != nil {
		fmt.Printf("  ❌ Failed to generate access token: %v\n\n", err)
		return
	}

	claims, err := jwtService.ValidateAccessToken(token)
	if err != nil {
		fmt.Printf("  ❌ Failed to validate access token: %v\n\n", err)
		return
	}
	fmt.Printf("  ✅ Access token round trip for %s\n", claims.UserID)
	fmt.Printf("     - Expires: %s\n\n", claims.ExpiresAt.Time.Format("2006-01-02 15:04:05"))
}

func testSearch(flights *services.FlightService, req models.FlightSearchRequest) *models.Offer {
	fmt.Printf("✈️  Searching %s → %s on %s\n", req.Origin, req.Destination, req.DepartureDate)
	fmt.Println("----------------------------")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	offers, err := flights.Search(ctx, req)
	if err != nil {
		fmt.Printf("  ❌ Search failed after %s: %v\n\n", time.Since(start).Round(time.Millisecond), err)
		return nil
	}
	fmt.Printf("  ✅ %d offers in %s\n", len(offers), time.Since(start).Round(time.Millisecond))

	var cheapest *models.Offer
	for i := range offers {
		if cheapest == nil || offers[i].PriceBreakdown.Total < cheapest.PriceBreakdown.Total {
			cheapest = &offers[i]
		}
	}
	if cheapest != nil {
		fmt.Printf("     - Cheapest: %s %s, %d stops, %.2f %s\n",
			cheapest.SolutionID, cheapest.PlatingCarrier, cheapest.Stops,
			cheapest.PriceBreakdown.Total, cheapest.PriceBreakdown.Currency)
	}
	fmt.Println()
	return cheapest
}

func testPrecisePricing(flights *services.FlightService, offer *models.Offer, adults int) {
	fmt.Println("💲 Repricing cheapest offer")
	fmt.Println("----------------------------")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	priced, err := flights.PrecisePricing(ctx, models.PrecisePricingRequest{
		SolutionID:     offer.SolutionID,
		SelectedFlight: offer,
		Adults:         adults,
	})
	if err != nil {
		fmt.Printf("  ❌ Pricing failed: %v\n\n", err)
		return
	}
	fmt.Printf("  ✅ Priced %s at %.2f %s (search said %.2f)\n\n",
		priced.SolutionID, priced.PriceBreakdown.Total, priced.PriceBreakdown.Currency, offer.PriceBreakdown.Total)
}
