package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/config"
	"github.com/Arden28/flygasal-api/internal/database"
	"github.com/Arden28/flygasal-api/internal/services"
)

func main() {
	var dbURLFlag string
	var days int
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&days, "older-than-days", 90, "delete audit events older than this many days")
	flag.Parse()

	if days <= 0 {
		log.Fatal("-older-than-days must be positive")
	}

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Build minimal database config without loading full app config
	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	}, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := services.NewAuditService(db.DB).CleanupOldAuditLogs(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		log.Fatalf("failed to prune audit events: %v", err)
	}

	fmt.Printf("Deleted %d booking audit events older than %d days.\n", deleted, days)
}
