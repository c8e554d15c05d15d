package handler

import (
	"shiplabel-gateway/internal/adapter/http/middleware"
	redisStore "shiplabel-gateway/internal/adapter/storage/redis"
	"shiplabel-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	SubSvc         ports.SubscriptionService
	CheckoutSvc    ports.CheckoutService
	Pipeline       ports.WebhookPipeline
	Adapters       []ports.ProviderAdapter
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// --- Provider webhooks (signature-authenticated, no JWT) ---
	webhookHandler := NewWebhookHandler(deps.Pipeline, deps.Logger, deps.Adapters...)
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/stripe", rl("webhooks"), webhookHandler.HandleStripe)
		webhooks.POST("/coinbase", rl("webhooks"), webhookHandler.HandleCoinbase)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	pricingHandler := NewPricingHandler()
	pricing := v1.Group("/pricing")
	{
		pricing.GET("/quote", rl("pricing"), pricingHandler.Quote)
		pricing.GET("/bulk", rl("pricing"), pricingHandler.BulkQuote)
		pricing.GET("/compare", rl("pricing"), pricingHandler.Compare)
	}

	// --- JWT-authenticated routes (dashboard) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc)
	subscriptionHandler := NewSubscriptionHandler(deps.SubSvc)
	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl("dashboard"), walletHandler.GetBalance)
		wallet.GET("/stats", rl("dashboard"), walletHandler.GetSavings)
		wallet.GET("/transactions", rl("dashboard"), walletHandler.ListTransactions)
		wallet.POST("/labels", rl("labels"), walletHandler.PurchaseLabel)
	}

	subscription := v1.Group("/subscription", jwtAuth)
	{
		subscription.GET("", rl("dashboard"), subscriptionHandler.Get)
		subscription.DELETE("", rl("dashboard"), subscriptionHandler.Downgrade)
	}

	deposits := v1.Group("/deposits", jwtAuth)
	{
		deposits.POST("", rl("checkout"), checkoutHandler.CreateDeposit)
		deposits.POST("/crypto", rl("checkout"), checkoutHandler.CreateCryptoDeposit)
	}

	subscriptions := v1.Group("/subscriptions", jwtAuth)
	{
		subscriptions.POST("/checkout", rl("checkout"), checkoutHandler.CreateSubscription)
		subscriptions.POST("/checkout/crypto", rl("checkout"), checkoutHandler.CreateCryptoSubscription)
	}

	return r
}
