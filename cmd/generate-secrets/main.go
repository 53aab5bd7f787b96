package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Arden28/flygasal-api/internal/middleware"
	"github.com/Arden28/flygasal-api/internal/utils"
	"github.com/Arden28/flygasal-api/pkg/jwt"
)

func main() {
	devToken := flag.Bool("dev-token", false, "also mint an access token signed with the new JWT secret")
	email := flag.String("email", "dev@flygasal.local", "email claim for the development token")
	admin := flag.Bool("admin", false, "grant the admin role to the development token")
	expiry := flag.Duration("expiry", 24*time.Hour, "lifetime of the development token")
	flag.Parse()

	fmt.Println("===========================================")
	fmt.Println("Secret Generator for Flygasal API")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, webhookToken, err := utils.GenerateServiceSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("✅ Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("PKFARE_WEBHOOK_TOKEN=%s\n", webhookToken)

	if *devToken {
		roles := []string{"user"}
		if *admin {
			roles = append(roles, middleware.RoleAdmin)
		}

		userID := uuid.New()
		token, err := jwt.NewService(jwtSecret, *expiry).GenerateAccessToken(userID, *email, roles)
		if err != nil {
			log.Fatalf("Failed to mint development token: %v", err)
		}

		fmt.Println()
		fmt.Printf("Development token for %s (user %s, roles %v, expires in %s):\n", *email, userID, roles, *expiry)
		fmt.Println(token)
	}

	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
