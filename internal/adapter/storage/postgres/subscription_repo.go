package postgres

import (
	"context"
	"errors"
	"fmt"

	"shiplabel-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SubscriptionRepo implements ports.SubscriptionRepository.
type SubscriptionRepo struct {
	pool Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepo.
func NewSubscriptionRepo(pool Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

// Create inserts the initial plan state for a new account.
func (r *SubscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `INSERT INTO subscriptions (account_id, plan, billing_cycle, updated_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query,
		sub.AccountID, string(sub.Plan), string(sub.BillingCycle), sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// GetByAccountID fetches the plan state for an account.
func (r *SubscriptionRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT account_id, plan, billing_cycle, updated_at
		FROM subscriptions WHERE account_id = $1`

	sub := &domain.Subscription{}
	var plan, cycle string
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&sub.AccountID, &plan, &cycle, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	sub.Plan = domain.Plan(plan)
	sub.BillingCycle = domain.BillingCycle(cycle)
	return sub, nil
}

// Upsert writes the post-transition state within the caller's transaction
// so it commits atomically with the event claim.
func (r *SubscriptionRepo) Upsert(ctx context.Context, tx pgx.Tx, sub *domain.Subscription) error {
	query := `INSERT INTO subscriptions (account_id, plan, billing_cycle, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET plan = EXCLUDED.plan,
			billing_cycle = EXCLUDED.billing_cycle,
			updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query,
		sub.AccountID, string(sub.Plan), string(sub.BillingCycle), sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}
