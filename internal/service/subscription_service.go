package service

import (
	"context"
	"fmt"
	"time"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// SubscriptionServiceImpl implements ports.SubscriptionService. Apply is
// the only place plan state changes; the webhook pipeline calls it inside
// its own transaction, the manual downgrade opens one here.
type SubscriptionServiceImpl struct {
	subRepo    ports.SubscriptionRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionServiceImpl.
func NewSubscriptionService(
	subRepo ports.SubscriptionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *SubscriptionServiceImpl {
	return &SubscriptionServiceImpl{
		subRepo:    subRepo,
		transactor: transactor,
		log:        log,
	}
}

// Get returns the account's plan state. Accounts without a row are on the
// initial STANDARD/monthly state.
func (s *SubscriptionServiceImpl) Get(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get subscription: %w", err))
	}
	if sub == nil {
		return domain.NewSubscription(accountID, time.Now().UTC()), nil
	}
	return sub, nil
}

// Apply performs a transition inside the caller's transaction and returns
// the post-transition state.
func (s *SubscriptionServiceImpl) Apply(ctx context.Context, dbTx pgx.Tx, accountID uuid.UUID, tr domain.Transition) (*domain.Subscription, error) {
	if _, ok := domain.ParsePlan(string(tr.Plan)); !ok {
		return nil, apperror.ErrInvalidPlan(string(tr.Plan))
	}
	if _, ok := domain.ParseBillingCycle(string(tr.Cycle)); !ok {
		return nil, apperror.ErrInvalidBillingCycle(string(tr.Cycle))
	}

	now := time.Now().UTC()
	sub, err := s.subRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get subscription: %w", err))
	}
	if sub == nil {
		sub = domain.NewSubscription(accountID, now)
	}

	previous := sub.Plan
	sub.Apply(tr, now)

	if err := s.subRepo.Upsert(ctx, dbTx, sub); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert subscription: %w", err))
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("from", string(previous)).
		Str("to", string(sub.Plan)).
		Str("cycle", string(sub.BillingCycle)).
		Msg("subscription transition applied")

	return sub, nil
}

// Downgrade is the user-initiated cancellation. It routes through the same
// transition mapping as the provider's cancellation webhook.
func (s *SubscriptionServiceImpl) Downgrade(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sub, err := s.Apply(ctx, dbTx, accountID, domain.DowngradeTransition())
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return sub, nil
}
