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
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService. Every balance change
// appends a ledger entry and rewrites the stored balance in one database
// transaction, with the wallet row locked for the duration.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	subRepo    ports.SubscriptionRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	subRepo ports.SubscriptionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		subRepo:    subRepo,
		transactor: transactor,
		log:        log,
	}
}

// AddFunds appends a deposit in its own database transaction.
func (s *WalletServiceImpl) AddFunds(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.Credit(ctx, dbTx, accountID, amount, "", "Manual wallet deposit")
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return txn, nil
}

// Credit appends a deposit inside the caller's transaction. The webhook
// pipeline uses it so the event claim and the ledger entry commit together.
func (s *WalletServiceImpl) Credit(ctx context.Context, dbTx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal, referenceID, description string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByAccountIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Kind:        domain.TransactionKindDeposit,
		Amount:      amount.Round(2),
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if referenceID != "" {
		txn.ReferenceID = &referenceID
	}

	newBalance := wallet.Balance.Add(txn.Amount)
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("balance", newBalance.StringFixed(2)).
		Msg("wallet credited")

	return txn, nil
}

// ChargeForLabel debits one label purchase: check-and-charge is atomic per
// account via the row lock, and the STANDARD monthly quota is counted on
// the same transaction.
func (s *WalletServiceImpl) ChargeForLabel(ctx context.Context, req ports.ChargeRequest) (*domain.Transaction, error) {
	if !req.BaseRate.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByAccountIDForUpdate(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	plan := domain.PlanStandard
	sub, err := s.subRepo.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get subscription: %w", err))
	}
	if sub != nil {
		plan = sub.Plan
	}

	quote, ok := domain.QuoteLabel(req.BaseRate, plan)
	if !ok {
		return nil, apperror.ErrInvalidPlan(string(plan))
	}

	pricing, _ := domain.PlanPricing(plan)
	now := time.Now().UTC()
	if !pricing.Unlimited() {
		used, err := s.txRepo.CountShippingInMonth(ctx, dbTx, wallet.ID, now)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("count monthly labels: %w", err))
		}
		if used >= int64(pricing.LabelQuota) {
			return nil, apperror.ErrQuotaExceeded(pricing.LabelQuota)
		}
	}

	// The wallet only carries the per-label service fee; the carrier's base
	// rate is settled outside the ledger and recorded as metadata.
	if !wallet.CanAfford(quote.Markup) {
		return nil, apperror.ErrInsufficientBalance()
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Kind:        domain.TransactionKindShipping,
		Amount:      quote.Markup.Neg(),
		BaseRate:    &quote.BaseRate,
		RetailRate:  &quote.RetailRate,
		Savings:     &quote.Savings,
		Description: req.Description,
		CreatedAt:   now,
	}
	if req.TrackingNumber != "" {
		txn.ReferenceID = &req.TrackingNumber
	}

	newBalance := wallet.Balance.Sub(quote.Markup)
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", req.AccountID.String()).
		Str("plan", string(plan)).
		Str("fee", quote.Markup.StringFixed(2)).
		Str("savings", quote.Savings.StringFixed(2)).
		Msg("label charged")

	return txn, nil
}

// GetBalance returns the wallet's current balance.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	wallet, err := s.walletRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return decimal.Zero, apperror.ErrNotFound("wallet")
	}
	return wallet.Balance, nil
}

// GetSavingsStats folds the shipping history into the savings aggregates.
func (s *WalletServiceImpl) GetSavingsStats(ctx context.Context, accountID uuid.UUID) (*domain.SavingsStats, error) {
	wallet, err := s.walletRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	stats, err := s.txRepo.SavingsStats(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("savings stats: %w", err))
	}
	return stats, nil
}

// ListTransactions returns the wallet's ledger history, newest first.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, accountID uuid.UUID, params ports.ListParams) ([]domain.Transaction, int64, error) {
	wallet, err := s.walletRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, 0, apperror.ErrNotFound("wallet")
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	transactions, total, err := s.txRepo.List(ctx, wallet.ID, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return transactions, total, nil
}
