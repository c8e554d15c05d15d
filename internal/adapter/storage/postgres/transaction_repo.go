package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository over the
// append-only ledger table.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger entry within the caller's transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions
		(id, wallet_id, kind, amount, base_rate, retail_rate, savings, reference_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, string(t.Kind), t.Amount.StringFixed(2),
		decimalPtr(t.BaseRate), decimalPtr(t.RetailRate), decimalPtr(t.Savings),
		t.ReferenceID, t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// List returns ledger entries for a wallet, newest first, with optional
// kind filtering and pagination, plus the total row count for the filter.
func (r *TransactionRepo) List(ctx context.Context, walletID uuid.UUID, params ports.ListParams) ([]domain.Transaction, int64, error) {
	where := "WHERE wallet_id = $1"
	args := []any{walletID}
	if params.Kind != nil {
		args = append(args, string(*params.Kind))
		where += fmt.Sprintf(" AND kind = $%d", len(args))
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM transactions " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `SELECT id, wallet_id, kind, amount::text,
			base_rate::text, retail_rate::text, savings::text,
			reference_id, description, created_at
		FROM transactions ` + where + " ORDER BY created_at DESC"

	args = append(args, params.PageSize)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, (params.Page-1)*params.PageSize)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, total, nil
}

// SavingsStats aggregates retail-vs-paid savings over shipping entries.
func (r *TransactionRepo) SavingsStats(ctx context.Context, walletID uuid.UUID) (*domain.SavingsStats, error) {
	query := `SELECT COALESCE(SUM(savings), 0)::text, COUNT(*)
		FROM transactions WHERE wallet_id = $1 AND kind = 'shipping'`

	var total string
	stats := &domain.SavingsStats{}
	err := r.pool.QueryRow(ctx, query, walletID).Scan(&total, &stats.LabelCount)
	if err != nil {
		return nil, fmt.Errorf("savings stats: %w", err)
	}
	if stats.SavingsTotal, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse savings total: %w", err)
	}
	return stats, nil
}

// CountShippingInMonth counts shipping entries in the calendar month that
// contains at. Runs on the locking transaction so the count is stable
// while the wallet row is held.
func (r *TransactionRepo) CountShippingInMonth(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, at time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions
		WHERE wallet_id = $1 AND kind = 'shipping'
		AND created_at >= date_trunc('month', $2::timestamptz)
		AND created_at < date_trunc('month', $2::timestamptz) + interval '1 month'`

	var count int64
	if err := tx.QueryRow(ctx, query, walletID, at).Scan(&count); err != nil {
		return 0, fmt.Errorf("count shipping in month: %w", err)
	}
	return count, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var kind, amount string
	var baseRate, retailRate, savings *string
	err := row.Scan(&t.ID, &t.WalletID, &kind, &amount,
		&baseRate, &retailRate, &savings,
		&t.ReferenceID, &t.Description, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Kind = domain.TransactionKind(kind)
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if t.BaseRate, err = parseDecimalPtr(baseRate); err != nil {
		return nil, fmt.Errorf("parse base rate: %w", err)
	}
	if t.RetailRate, err = parseDecimalPtr(retailRate); err != nil {
		return nil, fmt.Errorf("parse retail rate: %w", err)
	}
	if t.Savings, err = parseDecimalPtr(savings); err != nil {
		return nil, fmt.Errorf("parse savings: %w", err)
	}
	return t, nil
}

func decimalPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
