package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Arden28/flygasal-api/internal/config"
	"github.com/Arden28/flygasal-api/internal/database"
	"github.com/Arden28/flygasal-api/internal/handlers"
	"github.com/Arden28/flygasal-api/internal/middleware"
	"github.com/Arden28/flygasal-api/internal/services"
	"github.com/Arden28/flygasal-api/pkg/jwt"
	"github.com/Arden28/flygasal-api/pkg/pkfare"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Flygasal flight booking API")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Search cache is optional
	var searchCache services.SearchCache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, searches will skip the cache until it recovers")
		}
		cancel()

		searchCache = services.NewRedisSearchCache(redisClient, cfg.Redis.SearchCacheTTL, logger)
		logger.Info("✓ Search cache enabled")
	}

	// Initialize services
	logger.Info("Initializing services...")
	gateway := pkfare.NewClient(pkfare.Config{
		BaseURL:          cfg.PKFare.BaseURL,
		PartnerID:        cfg.PKFare.PartnerID,
		PartnerKey:       cfg.PKFare.PartnerKey,
		Timeout:          cfg.PKFare.Timeout,
		BreakerThreshold: cfg.PKFare.BreakerThreshold,
	}, logger)

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	bookingRepository := database.NewBookingRepository(db.DB)
	auditService := services.NewAuditService(db.DB)

	flightService := services.NewFlightService(gateway, searchCache, logger)
	lifecycleService := services.NewBookingLifecycleService(bookingRepository, gateway, logger)
	issuanceService := services.NewTicketIssuanceService(bookingRepository, logger)

	// A nil interface disables audit writes
	var auditLog handlers.AuditLog
	if cfg.Security.EnableAuditLog {
		auditLog = auditService
	}

	var poller *services.OrderStatusPoller
	if cfg.Poller.Enabled {
		poller = services.NewOrderStatusPoller(cfg.Poller, bookingRepository, gateway, lifecycleService, logger)
		if err := poller.Start(); err != nil {
			logger.Fatalf("Failed to start order status poller: %v", err)
		}
		logger.Info("✓ Order status poller started")
	}

	// Initialize handlers
	flightHandler := handlers.NewFlightHandler(flightService, auditLog, logger)
	bookingHandler := handlers.NewBookingHandler(lifecycleService, auditLog, logger)
	webhookHandler := handlers.NewWebhookHandler(issuanceService, auditLog, logger)
	auditHandler := handlers.NewAuditHandler(auditService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Provider webhooks
	webhooks := router.Group("/pkfare", middleware.WebhookToken(cfg.PKFare.WebhookToken, logger))
	{
		webhooks.POST("/ticket-issuance-notify-v2", webhookHandler.TicketIssuanceNotify)
		webhooks.POST("/refund-result", webhookHandler.Acknowledge("refund_result"))
		webhooks.POST("/reimbursed-result", webhookHandler.Acknowledge("reimbursed_result"))
		webhooks.POST("/schedule-change", webhookHandler.Acknowledge("schedule_change"))
	}

	// API v1 routes
	v1 := router.Group("/api/v1", middleware.AuthMiddleware(jwtService, logger))
	{
		flights := v1.Group("/flights")
		{
			flights.POST("/search", flightHandler.Search)
			flights.POST("/precise-pricing", flightHandler.PrecisePricing)
			flights.POST("/bookings", bookingHandler.CreateBooking)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/:orderNum", bookingHandler.GetBooking)
			bookings.GET("/:orderNum/details", bookingHandler.GetOrderDetail)
			bookings.POST("/:orderNum/ticketing", bookingHandler.RequestTicketing)
			bookings.POST("/:orderNum/cancel", bookingHandler.CancelBooking)
			bookings.GET("/:orderNum/events", middleware.RequireRole(middleware.RoleAdmin), auditHandler.GetOrderEvents)
		}
	}

	// Create HTTP server. Provider calls may take up to the provider timeout.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.PKFare.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if poller != nil {
		logger.Info("Stopping order status poller...")
		poller.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *database.PostgresDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// Check database connection
		dbStatus := "healthy"
		if err := db.Health(ctx); err != nil {
			dbStatus = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbStatus,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  dbStatus,
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
