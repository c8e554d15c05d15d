package postgres

import (
	"context"
	"errors"
	"fmt"

	"shiplabel-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository. Balances travel as text so
// the decimal arithmetic never touches binary floating point.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, account_id, balance, initial_grant, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.AccountID, w.Balance.StringFixed(2), w.InitialGrant.StringFixed(2),
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByAccountID fetches a wallet by account ID (non-locking read).
func (r *WalletRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, account_id, balance::text, initial_grant::text, created_at, updated_at
		FROM wallets WHERE account_id = $1`

	return scanWallet(r.pool.QueryRow(ctx, query, accountID))
}

// GetByAccountIDForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, account_id, balance::text, initial_grant::text, created_at, updated_at
		FROM wallets WHERE account_id = $1 FOR UPDATE`

	return scanWallet(tx.QueryRow(ctx, query, accountID))
}

// UpdateBalance writes the derived balance within a transaction. Callers
// append the matching ledger entry in the same transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance.StringFixed(2), walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	var balance, grant string
	err := row.Scan(&w.ID, &w.AccountID, &balance, &grant, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}

	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	if w.InitialGrant, err = decimal.NewFromString(grant); err != nil {
		return nil, fmt.Errorf("parse initial grant: %w", err)
	}
	return w, nil
}
