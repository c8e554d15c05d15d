package service

import (
	"context"
	"fmt"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CheckoutServiceImpl implements ports.CheckoutService. It only opens
// hosted provider sessions; wallet and plan state change when the matching
// webhook arrives.
type CheckoutServiceImpl struct {
	card        ports.CardCheckoutGateway
	crypto      ports.CryptoCheckoutGateway
	accountRepo ports.AccountRepository
	log         zerolog.Logger
}

// NewCheckoutService creates a new CheckoutServiceImpl.
func NewCheckoutService(
	card ports.CardCheckoutGateway,
	crypto ports.CryptoCheckoutGateway,
	accountRepo ports.AccountRepository,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		card:        card,
		crypto:      crypto,
		accountRepo: accountRepo,
		log:         log,
	}
}

// CreateDepositCheckout opens a hosted card session for a wallet top-up.
func (s *CheckoutServiceImpl) CreateDepositCheckout(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", apperror.ErrInvalidAmount()
	}
	url, err := s.card.CreateDepositSession(ctx, accountID, amount)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("account_id", accountID.String()).Str("amount", amount.StringFixed(2)).Msg("card deposit checkout created")
	return url, nil
}

// CreateSubscriptionCheckout opens a hosted recurring card session for
// PREMIUM. STANDARD has no fee, so there is nothing to check out.
func (s *CheckoutServiceImpl) CreateSubscriptionCheckout(ctx context.Context, accountID uuid.UUID, plan domain.Plan, cycle domain.BillingCycle) (string, error) {
	cycle, err := s.validateUpgrade(plan, cycle)
	if err != nil {
		return "", err
	}
	url, err := s.card.CreateSubscriptionSession(ctx, accountID, cycle)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("account_id", accountID.String()).Str("cycle", string(cycle)).Msg("card subscription checkout created")
	return url, nil
}

// CreateCryptoDepositCheckout opens a hosted crypto charge for a wallet
// top-up.
func (s *CheckoutServiceImpl) CreateCryptoDepositCheckout(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", apperror.ErrInvalidAmount()
	}
	email, err := s.accountEmail(ctx, accountID)
	if err != nil {
		return "", err
	}
	return s.crypto.CreateCharge(ctx, ports.CryptoChargeRequest{
		AccountID: accountID,
		Email:     email,
		Amount:    amount,
		Deposit:   true,
	})
}

// CreateCryptoSubscriptionCheckout opens a hosted crypto charge for the
// PREMIUM fee on the given cycle.
func (s *CheckoutServiceImpl) CreateCryptoSubscriptionCheckout(ctx context.Context, accountID uuid.UUID, plan domain.Plan, cycle domain.BillingCycle) (string, error) {
	cycle, err := s.validateUpgrade(plan, cycle)
	if err != nil {
		return "", err
	}
	email, err := s.accountEmail(ctx, accountID)
	if err != nil {
		return "", err
	}

	pricing, _ := domain.PlanPricing(domain.PlanPremium)
	return s.crypto.CreateCharge(ctx, ports.CryptoChargeRequest{
		AccountID: accountID,
		Email:     email,
		Amount:    pricing.Fee(cycle),
		Cycle:     cycle,
	})
}

func (s *CheckoutServiceImpl) validateUpgrade(plan domain.Plan, cycle domain.BillingCycle) (domain.BillingCycle, error) {
	if plan != domain.PlanPremium {
		return "", apperror.ErrInvalidPlan(string(plan))
	}
	parsed, ok := domain.ParseBillingCycle(string(cycle))
	if !ok {
		return "", apperror.ErrInvalidBillingCycle(string(cycle))
	}
	return parsed, nil
}

func (s *CheckoutServiceImpl) accountEmail(ctx context.Context, accountID uuid.UUID) (string, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return "", apperror.ErrNotFound("account")
	}
	return account.Email, nil
}
