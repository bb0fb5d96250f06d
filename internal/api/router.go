package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Health timestamp, CORS max age

	"roundup/internal/config"     // Application configuration
	"roundup/internal/events"     // Domain events
	"roundup/internal/metrics"    // Prometheus collectors
	"roundup/internal/middleware" // Custom middleware
	"roundup/internal/ratelimit"  // Rate limiters

	"github.com/getsentry/sentry-go/gin" // Sentry panic reporting
	"github.com/gin-contrib/cors"        // CORS middleware
	"github.com/gin-gonic/gin"           // Gin web framework
	"github.com/redis/go-redis/v9"       // Redis client
	"github.com/sirupsen/logrus"         // Logrus for structured logging
	"gorm.io/gorm"                       // GORM ORM library
)

// Rate limit scopes
const (
	ScopeGlobal = "global"
	ScopeAuth   = "auth"
)

// Deps are the collaborators the HTTP layer is built from
type Deps struct {
	DB        *gorm.DB          // Primary store
	Redis     *redis.Client     // Optional cache, nil disables caching
	Config    *config.Config    // Application configuration
	Publisher events.Publisher  // Domain event sink
	Limiter   ratelimit.Limiter // Global and auth request budgets
	Sentry    bool              // Report panics to Sentry
}

// LimiterRules builds the per-scope budgets from configuration
func LimiterRules(cfg *config.Config) map[string]ratelimit.Rule {
	return map[string]ratelimit.Rule{
		ScopeGlobal: {Limit: cfg.RateLimitMax, Window: cfg.RateLimitWindow},
		ScopeAuth:   {Limit: cfg.AuthRateLimitMax, Window: cfg.RateLimitWindow},
	}
}

// corsConfig allows the configured frontend origin, or any origin for "*"
func corsConfig(frontendURL string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if strings.TrimSpace(frontendURL) == "*" {
		cc.AllowOriginFunc = func(string) bool { return true }
	} else {
		cc.AllowOrigins = []string{strings.TrimRight(frontendURL, "/")}
	}
	return cc
}

// NewRouter wires middleware and every route
func NewRouter(d Deps) *gin.Engine {
	registerValidators()
	cfg := d.Config
	db, rdb, pub := d.DB, d.Redis, d.Publisher
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewMemory(LimiterRules(cfg))
	}

	r := gin.New()
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	r.Use(gin.Recovery())
	if d.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(
		middleware.RequestLogger(),
		metrics.Middleware(),
		middleware.SecurityHeaders(),
		cors.New(corsConfig(cfg.FrontendURL)),
		middleware.BodyLimit(middleware.MaxBodyBytes),
	)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(d.Limiter, ScopeGlobal, "Too many requests, try again later"))
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	authed := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	authLimit := middleware.RateLimitMiddleware(d.Limiter, ScopeAuth, "Too many attempts, try again later")

	// Auth routes
	auth := api.Group("/auth")
	auth.POST("/register", authLimit, RegisterHandler(db, rdb, cfg, pub))
	auth.POST("/verify-otp", authLimit, VerifyOTPHandler(db, cfg))
	auth.POST("/login", authLimit, LoginHandler(db, cfg))
	auth.POST("/forgot-password", authLimit, ForgotPasswordHandler(db, cfg, pub))
	auth.POST("/reset-password", authLimit, ResetPasswordHandler(db))
	auth.POST("/refresh", RefreshHandler(db, cfg))
	auth.POST("/logout", authed, LogoutHandler(db))
	auth.GET("/me", authed, MeHandler(db))

	// Card routes
	cards := api.Group("/cards", authed)
	cards.GET("", ListCardsHandler(db))
	cards.POST("", AddCardHandler(db, rdb))
	cards.DELETE("/:id", DeleteCardHandler(db, rdb))
	cards.PATCH("/:id/toggle", ToggleCardHandler(db))
	cards.POST("/:id/simulate", SimulateTransactionHandler(db, rdb, pub))

	// Wallet routes
	wallet := api.Group("/wallet", authed)
	wallet.GET("", GetWalletHandler(db, rdb))
	wallet.GET("/history", GetWalletHistoryHandler(db))
	wallet.GET("/stats", GetWalletStatsHandler(db, rdb))

	api.GET("/transactions", authed, ListTransactionsHandler(db))

	// Transfer routes
	transfers := api.Group("/transfers", authed)
	transfers.GET("", ListTransfersHandler(db))
	transfers.POST("", CreateTransferHandler(db, rdb, pub))
	transfers.GET("/virtual-card", GetVirtualCardHandler(db))
	transfers.GET("/investment", GetInvestmentHandler(db))
	transfers.PUT("/investment/risk", UpdateRiskLevelHandler(db))

	// Goal routes
	goals := api.Group("/goals", authed)
	goals.GET("", ListGoalsHandler(db))
	goals.POST("", CreateGoalHandler(db))
	goals.PATCH("/:id", UpdateGoalHandler(db))
	goals.DELETE("/:id", DeleteGoalHandler(db))
	goals.POST("/:id/contribute", ContributeGoalHandler(db, rdb, pub))

	// Recurring deposit routes
	recurring := api.Group("/recurring", authed)
	recurring.GET("", ListRecurringHandler(db))
	recurring.POST("", CreateRecurringHandler(db))
	recurring.PATCH("/:id/toggle", ToggleRecurringHandler(db))
	recurring.DELETE("/:id", DeleteRecurringHandler(db))

	// Settings routes
	settings := api.Group("/settings", authed)
	settings.GET("/rounding", GetRoundingHandler(db))
	settings.PUT("/rounding", UpdateRoundingHandler(db))
	settings.PUT("/profile", UpdateProfileHandler(db, rdb))

	// Admin routes (protected, admin only)
	admin := api.Group("/admin", authed, middleware.AdminOnlyMiddleware(db))
	admin.GET("/users", ListUsersHandler(db, rdb))
	admin.GET("/transactions", ListAllTransactionsHandler(db, rdb))

	return r
}
