package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiplabel-gateway/config"
	httpHandler "shiplabel-gateway/internal/adapter/http/handler"
	"shiplabel-gateway/internal/adapter/payment"
	"shiplabel-gateway/internal/core/domain"
	pgStorage "shiplabel-gateway/internal/adapter/storage/postgres"
	redisStorage "shiplabel-gateway/internal/adapter/storage/redis"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/internal/service"
	"shiplabel-gateway/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Shipping Label Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	subRepo := pgStorage.NewSubscriptionRepo(pool)
	claimRepo := pgStorage.NewEventClaimRepo(pool)
	analyticsRepo := pgStorage.NewAnalyticsRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	claimCache := redisStorage.NewClaimCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize provider gateways
	httpClient := &http.Client{Timeout: 10 * time.Second}
	stripeGw := payment.NewStripeGateway(cfg.Stripe, cfg.Server.BaseURL)
	coinbaseGw := payment.NewCoinbaseGateway(httpClient, cfg.Coinbase, cfg.Server.BaseURL)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, walletRepo, subRepo, hashSvc, tokenSvc, log)
	walletSvc := service.NewWalletService(walletRepo, txRepo, subRepo, transactor, log)
	subSvc := service.NewSubscriptionService(subRepo, transactor, log)
	checkoutSvc := service.NewCheckoutService(stripeGw, coinbaseGw, accountRepo, log)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, log)

	emailClient := &http.Client{Timeout: cfg.Email.Timeout}
	notifier := service.NewEmailNotifier(emailClient, cfg.Email, log)

	pipeline := service.NewWebhookPipeline(
		walletSvc,
		subSvc,
		claimRepo,
		claimCache,
		transactor,
		notifier,
		analyticsSvc,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		SubSvc:         subSvc,
		CheckoutSvc:    checkoutSvc,
		Pipeline:       pipeline,
		Adapters:       []ports.ProviderAdapter{stripeGw, coinbaseGw},
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// Background purge of old event claim markers
	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeClaims(purgeCtx, claimRepo, log)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// purgeClaims drops event claim markers past the retention horizon, once a
// day. Failures are logged and retried on the next tick.
func purgeClaims(ctx context.Context, claimRepo ports.EventClaimRepository, log zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-domain.ClaimRetention)
			purged, err := claimRepo.PurgeOlderThan(ctx, cutoff)
			if err != nil {
				log.Error().Err(err).Msg("event claim purge failed")
				continue
			}
			if purged > 0 {
				log.Info().Int64("purged", purged).Msg("event claim markers purged")
			}
		}
	}
}
