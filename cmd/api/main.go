package main

import (
	"fmt"
	"net/http"
	"os"

	"chatlink/internal/analytics"
	"chatlink/internal/config"
	"chatlink/internal/database"
	"chatlink/internal/handlers"
	"chatlink/internal/logger"
	"chatlink/internal/middleware"
	"chatlink/internal/services"
	"chatlink/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "chatlink/internal/docs" // Import swagger docs
)

// @title           Chatlink API
// @version         1.0
// @description     Chatlink links user accounts to external chat channels through a nonce verification protocol, stores the resulting message activity, and serves product analytics over it.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	verificationService := services.NewVerificationService(db, appConfig)
	messageService := services.NewMessageService(db, verificationService)
	billingService := services.NewBillingService(db)

	// Analytics engine and dashboard composer
	engine := analytics.NewEngine(analytics.NewGormSource(db), appConfig.Analytics, log)
	composer := analytics.NewComposer(engine)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	linkHandler := handlers.NewLinkHandler(verificationService, auditService)
	messageHandler := handlers.NewMessageHandler(messageService)
	billingHandler := handlers.NewBillingHandler(billingService, auditService)
	dashboardHandler := handlers.NewDashboardHandler(composer)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// The status poll and registration-time nonce are public: the poller may
	// not have an account yet.
	v1.POST("/link/register", linkHandler.GenerateForRegistration)
	v1.GET("/link/status/:nonce", linkHandler.Status)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Channel link routes
	link := protected.Group("/link")
	link.POST("/generate", linkHandler.Generate)
	link.GET("", linkHandler.GetLinks)
	link.DELETE("/:channel_id", linkHandler.Unlink)

	// Message routes
	protected.GET("/messages", messageHandler.List)

	// Billing routes
	billing := protected.Group("/billing")
	billing.GET("/subscription", billingHandler.GetSubscription)
	billing.PUT("/plan", billingHandler.ChangePlan)
	billing.DELETE("/subscription", billingHandler.Cancel)

	// Internal routes for the bot backend and payment processor callbacks
	internal := v1.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware(appConfig.InternalAPIKey))
	internal.POST("/link/finalize", linkHandler.Finalize)
	internal.POST("/messages", messageHandler.Ingest)
	internal.POST("/billing/events", billingHandler.ProcessorEvent)

	// Admin routes
	admin := protected.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/dashboard", dashboardHandler.Get)

	log.Infof("Starting Chatlink backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
