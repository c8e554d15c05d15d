package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return fmt.Errorf("email already exists")
		}
	}
	r.accounts[a.ID] = a
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (r *inMemoryAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.AccountID == accountID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByAccountID(ctx, accountID)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transactions = append(r.transactions, &cp)
	return nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, walletID uuid.UUID, params ports.ListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	// Newest first, like the SQL repo's ORDER BY created_at DESC.
	for i := len(r.transactions) - 1; i >= 0; i-- {
		t := r.transactions[i]
		if t.WalletID != walletID {
			continue
		}
		if params.Kind != nil && t.Kind != *params.Kind {
			continue
		}
		result = append(result, *t)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryTransactionRepo) SavingsStats(ctx context.Context, walletID uuid.UUID) (*domain.SavingsStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &domain.SavingsStats{}
	for _, t := range r.transactions {
		if t.WalletID != walletID || t.Kind != domain.TransactionKindShipping {
			continue
		}
		stats.LabelCount++
		if t.Savings != nil {
			stats.SavingsTotal = stats.SavingsTotal.Add(*t.Savings)
		}
	}
	return stats, nil
}

func (r *inMemoryTransactionRepo) CountShippingInMonth(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	y, m, _ := at.UTC().Date()
	for _, t := range r.transactions {
		if t.WalletID != walletID || t.Kind != domain.TransactionKindShipping {
			continue
		}
		ty, tm, _ := t.CreatedAt.UTC().Date()
		if ty == y && tm == m {
			count++
		}
	}
	return count, nil
}

// --- In-Memory Subscription Repo ---

type inMemorySubscriptionRepo struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*domain.Subscription
}

func newInMemorySubscriptionRepo() *inMemorySubscriptionRepo {
	return &inMemorySubscriptionRepo{subs: make(map[uuid.UUID]*domain.Subscription)}
}

func (r *inMemorySubscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.AccountID] = &cp
	return nil
}

func (r *inMemorySubscriptionRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[accountID]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (r *inMemorySubscriptionRepo) Upsert(ctx context.Context, tx pgx.Tx, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.AccountID] = &cp
	return nil
}

// --- In-Memory Event Claim Repo ---

type inMemoryEventClaimRepo struct {
	mu     sync.Mutex
	claims map[string]*domain.EventClaim
}

func newInMemoryEventClaimRepo() *inMemoryEventClaimRepo {
	return &inMemoryEventClaimRepo{claims: make(map[string]*domain.EventClaim)}
}

func (r *inMemoryEventClaimRepo) Claim(ctx context.Context, tx pgx.Tx, claim *domain.EventClaim) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := string(claim.Provider) + ":" + claim.EventID
	if _, exists := r.claims[key]; exists {
		return false, nil
	}
	cp := *claim
	r.claims[key] = &cp
	return true, nil
}

func (r *inMemoryEventClaimRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for key, claim := range r.claims {
		if claim.ClaimedAt.Before(cutoff) {
			delete(r.claims, key)
			purged++
		}
	}
	return purged, nil
}

// --- In-Memory Analytics Repo ---

type inMemoryAnalyticsRepo struct {
	mu     sync.Mutex
	events []*domain.AnalyticsEvent
}

func newInMemoryAnalyticsRepo() *inMemoryAnalyticsRepo {
	return &inMemoryAnalyticsRepo{}
}

func (r *inMemoryAnalyticsRepo) Create(ctx context.Context, event *domain.AnalyticsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

// --- Serializing Transactor ---

// serializingTransactor runs one in-memory transaction at a time: Begin takes
// a global lock that Commit or first Rollback releases. This stands in for
// the row-level lock the SQL wallet repo takes with SELECT FOR UPDATE, so the
// concurrency tests see the same serialized ordering production does.
type serializingTransactor struct {
	mu sync.Mutex
}

func newSerializingTransactor() *serializingTransactor {
	return &serializingTransactor{}
}

func (t *serializingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	tx := &serialTx{}
	tx.release = func() { t.mu.Unlock() }
	return tx, nil
}

// serialTx is a no-op pgx.Tx that releases the transactor lock exactly once,
// on Commit or Rollback, whichever runs first.
type serialTx struct {
	once    sync.Once
	release func()
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) Commit(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}
func (t *serialTx) Rollback(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
