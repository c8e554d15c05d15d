package ports

import (
	"context"
	"time"

	"shiplabel-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(accountID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
	Email     string
}

// ClaimCache is the fast-path idempotency marker (Redis layer). The durable
// claim lives in the EventClaimRepository; this one only short-circuits
// retry storms before they reach the database.
type ClaimCache interface {
	// Seen reports whether the event marker exists.
	Seen(ctx context.Context, eventID string) (bool, error)
	// Mark records the marker with a TTL. Best effort, written after commit.
	Mark(ctx context.Context, eventID string, ttl time.Duration) error
}

// ProviderAdapter verifies and normalizes one provider's webhook deliveries.
// Verify runs against the raw body before any structured parsing.
type ProviderAdapter interface {
	Provider() domain.Provider
	VerifyAndNormalize(rawBody []byte, signatureHeader string) (*domain.NormalizedEvent, error)
}

// --- Service Ports (Business Logic) ---

// WalletService defines the ledger business logic.
type WalletService interface {
	// AddFunds appends a deposit in its own database transaction.
	AddFunds(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error)
	// Credit appends a deposit inside the caller's transaction; the
	// webhook pipeline uses it so the claim and the ledger entry commit
	// together.
	Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal, referenceID, description string) (*domain.Transaction, error)
	ChargeForLabel(ctx context.Context, req ChargeRequest) (*domain.Transaction, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	GetSavingsStats(ctx context.Context, accountID uuid.UUID) (*domain.SavingsStats, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, params ListParams) ([]domain.Transaction, int64, error)
}

// ChargeRequest holds validated input for a label purchase.
type ChargeRequest struct {
	AccountID      uuid.UUID
	BaseRate       decimal.Decimal
	TrackingNumber string
	Description    string
}

// SubscriptionService defines the plan state machine. Apply is the single
// transition entry point; webhook events and the manual downgrade both go
// through it.
type SubscriptionService interface {
	Get(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error)
	// Apply performs a transition inside the caller's transaction.
	Apply(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, tr domain.Transition) (*domain.Subscription, error)
	// Downgrade is the user-initiated cancellation; it opens its own
	// transaction and routes through Apply.
	Downgrade(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error)
}

// WebhookPipeline applies a normalized event exactly once and dispatches
// side effects.
type WebhookPipeline interface {
	Process(ctx context.Context, event *domain.NormalizedEvent) error
}

// Notification is a confirmation message for the account's email address.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers confirmation emails. Implementations retry internally;
// exhausting the budget returns an error that callers log and swallow.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// AnalyticsService records business events, fire-and-forget.
type AnalyticsService interface {
	Track(ctx context.Context, event *domain.AnalyticsEvent)
}

// CardCheckoutGateway creates hosted card checkout sessions at the
// provider. The session's metadata round-trips the account identity so the
// completion webhook can be applied without extra lookups.
type CardCheckoutGateway interface {
	CreateDepositSession(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (string, error)
	CreateSubscriptionSession(ctx context.Context, accountID uuid.UUID, cycle domain.BillingCycle) (string, error)
}

// CryptoChargeRequest describes a hosted crypto charge.
type CryptoChargeRequest struct {
	AccountID uuid.UUID
	Email     string
	Amount    decimal.Decimal
	// Deposit charges credit the wallet on confirmation; otherwise the
	// charge activates PREMIUM on the given cycle.
	Deposit bool
	Cycle   domain.BillingCycle
}

// CryptoCheckoutGateway creates hosted crypto charges.
type CryptoCheckoutGateway interface {
	CreateCharge(ctx context.Context, req CryptoChargeRequest) (string, error)
}

// CheckoutService starts hosted checkout flows. The returned URL is where
// the dashboard redirects the user; the loop closes when the provider's
// webhook arrives.
type CheckoutService interface {
	CreateDepositCheckout(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (string, error)
	CreateSubscriptionCheckout(ctx context.Context, accountID uuid.UUID, plan domain.Plan, cycle domain.BillingCycle) (string, error)
	CreateCryptoDepositCheckout(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (string, error)
	CreateCryptoSubscriptionCheckout(ctx context.Context, accountID uuid.UUID, plan domain.Plan, cycle domain.BillingCycle) (string, error)
}

// AuthService defines account registration and login.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error) // token, expiry, error
}
