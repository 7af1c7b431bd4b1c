package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chatlink/internal/analytics"
	"chatlink/internal/config"
	"chatlink/internal/handlers"
	"chatlink/internal/logger"
	"chatlink/internal/middleware"
	"chatlink/internal/models"
	"chatlink/internal/services"
	"chatlink/internal/validator"
)

const testInternalKey = "test-internal-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.VerificationRecord{},
		&models.ChannelLink{},
		&models.Message{},
		&models.Subscription{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		InternalAPIKey:      testInternalKey,
		TelegramBotUsername: "chatlink_test_bot",
		Verification: config.VerificationConfig{
			NonceTTL:     5 * time.Minute,
			PollInterval: 3 * time.Second,
			ResumeBuffer: 10 * time.Minute,
		},
		Analytics: config.AnalyticsConfig{
			PageSize:         100,
			IdleGap:          30 * time.Minute,
			ReactivationDays: 14,
		},
	}
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	cfg := testConfig()

	// Services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	verificationService := services.NewVerificationService(db, cfg)
	messageService := services.NewMessageService(db, verificationService)
	billingService := services.NewBillingService(db)

	engine := analytics.NewEngine(analytics.NewGormSource(db), cfg.Analytics, logger.Get())
	composer := analytics.NewComposer(engine)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	linkHandler := handlers.NewLinkHandler(verificationService, auditService)
	messageHandler := handlers.NewMessageHandler(messageService)
	billingHandler := handlers.NewBillingHandler(billingService, auditService)
	dashboardHandler := handlers.NewDashboardHandler(composer)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Public verification routes
	v1.POST("/link/register", linkHandler.GenerateForRegistration)
	v1.GET("/link/status/:nonce", linkHandler.Status)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	link := protected.Group("/link")
	link.POST("/generate", linkHandler.Generate)
	link.GET("", linkHandler.GetLinks)
	link.DELETE("/:channel_id", linkHandler.Unlink)

	protected.GET("/messages", messageHandler.List)

	billing := protected.Group("/billing")
	billing.GET("/subscription", billingHandler.GetSubscription)
	billing.PUT("/plan", billingHandler.ChangePlan)
	billing.DELETE("/subscription", billingHandler.Cancel)

	internal := v1.Group("/internal")
	internal.Use(middleware.InternalAuthMiddleware(cfg.InternalAPIKey))
	internal.POST("/link/finalize", linkHandler.Finalize)
	internal.POST("/messages", messageHandler.Ingest)
	internal.POST("/billing/events", billingHandler.ProcessorEvent)

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/dashboard", dashboardHandler.Get)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// internalRequest makes a request carrying the internal API key.
func (app *testApp) internalRequest(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testInternalKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// generateNonce starts a verification attempt and returns the issued nonce.
func (app *testApp) generateNonce(t *testing.T, token, channel string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/link/generate",
		fmt.Sprintf(`{"channel_id":%q}`, channel), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["nonce"].(string)
}

// finalizeNonce resolves a nonce through the internal endpoint.
func (app *testApp) finalizeNonce(t *testing.T, nonce, handle string) map[string]interface{} {
	t.Helper()
	rec := app.internalRequest("POST", "/api/v1/internal/link/finalize",
		fmt.Sprintf(`{"nonce":%q,"external_handle":%q,"display_name":"Test User"}`, nonce, handle))
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}

// makeAdmin flips the user's admin flag directly in the database.
func (app *testApp) makeAdmin(t *testing.T, userID string) {
	t.Helper()
	if err := app.DB.Model(&models.User{}).Where("id = ?", userID).Update("is_admin", true).Error; err != nil {
		t.Fatalf("failed to promote user: %v", err)
	}
}
