package ports

import (
	"context"
	"time"

	"shiplabel-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error)
	GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
}

// TransactionRepository defines persistence for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	List(ctx context.Context, walletID uuid.UUID, params ListParams) ([]domain.Transaction, int64, error)
	// SavingsStats folds shipping transactions into the derived aggregates.
	SavingsStats(ctx context.Context, walletID uuid.UUID) (*domain.SavingsStats, error)
	// CountShippingInMonth counts shipping entries inside the calendar
	// month containing at. Used for STANDARD quota enforcement; runs on
	// the locking transaction so the count is stable under concurrency.
	CountShippingInMonth(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) (int64, error)
}

// ListParams holds pagination for transaction listings.
type ListParams struct {
	Kind     *domain.TransactionKind
	Page     int
	PageSize int
}

// SubscriptionRepository defines persistence for plan state.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error)
	// Upsert writes the post-transition state within the caller's
	// transaction so it commits atomically with the event claim.
	Upsert(ctx context.Context, tx pgx.Tx, sub *domain.Subscription) error
}

// EventClaimRepository is the durable idempotency set.
type EventClaimRepository interface {
	// Claim records the event marker inside the caller's transaction.
	// Returns true when this call was the first to claim the event;
	// false means a previous delivery already applied it. Implementations
	// must rely on a unique constraint, never a read-then-write pair.
	Claim(ctx context.Context, tx pgx.Tx, claim *domain.EventClaim) (bool, error)
	// PurgeOlderThan drops markers past the retention horizon.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AnalyticsRepository persists tracked business events.
type AnalyticsRepository interface {
	Create(ctx context.Context, event *domain.AnalyticsEvent) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
