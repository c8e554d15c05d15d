package service

import (
	"context"
	"errors"
	"testing"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/internal/core/ports/mocks"
	"shiplabel-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	subRepo    *mocks.MockSubscriptionRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		subRepo:    mocks.NewMockSubscriptionRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(d.walletRepo, d.txRepo, d.subRepo, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

// ==================== ChargeForLabel Tests ====================

func TestWalletService_ChargeForLabel_StandardPlan(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
		Balance:   money("50.00"),
	}, nil)
	// No subscription row: account defaults to STANDARD.
	d.subRepo.EXPECT().GetByAccountID(ctx, accountID).Return(nil, nil)
	d.txRepo.EXPECT().CountShippingInMonth(ctx, tx, walletID, gomock.Any()).Return(int64(3), nil)
	// Only the 4.00 STANDARD service fee leaves the wallet; the 8.50
	// carrier rate is metadata on the ledger entry.
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, money("46.00")).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) error {
			assert.Equal(t, domain.TransactionKindShipping, txn.Kind)
			assert.True(t, txn.Amount.Equal(money("-4.00")))
			require.NotNil(t, txn.BaseRate)
			assert.True(t, txn.BaseRate.Equal(money("8.50")))
			require.NotNil(t, txn.Savings)
			// Retail 8.50 * 1.3 = 11.05, savings 11.05 - 8.50 = 2.55
			assert.True(t, txn.Savings.Equal(money("2.55")))
			require.NotNil(t, txn.ReferenceID)
			assert.Equal(t, "TRK-001", *txn.ReferenceID)
			return nil
		})

	txn, err := d.svc.ChargeForLabel(ctx, ports.ChargeRequest{
		AccountID:      accountID,
		BaseRate:       money("8.50"),
		TrackingNumber: "TRK-001",
		Description:    "USPS Priority",
	})
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.True(t, txn.Amount.Equal(money("-4.00")))
}

func TestWalletService_ChargeForLabel_DebitsFeeNotBaseRate(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
		Balance:   money("100.00"),
	}, nil)
	d.subRepo.EXPECT().GetByAccountID(ctx, accountID).Return(nil, nil)
	d.txRepo.EXPECT().CountShippingInMonth(ctx, tx, walletID, gomock.Any()).Return(int64(0), nil)
	// 100.00 minus the 4.00 fee, never minus base+fee.
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, money("96.00")).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.ChargeForLabel(ctx, ports.ChargeRequest{
		AccountID: accountID,
		BaseRate:  money("8.50"),
	})
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(money("-4.00")))
}

func TestWalletService_ChargeForLabel_PremiumSkipsQuota(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
		Balance:   money("100.00"),
	}, nil)
	d.subRepo.EXPECT().GetByAccountID(ctx, accountID).Return(&domain.Subscription{
		AccountID:    accountID,
		Plan:         domain.PlanPremium,
		BillingCycle: domain.BillingCycleMonthly,
	}, nil)
	// PREMIUM is unlimited: CountShippingInMonth must not be called.
	// PREMIUM pays the 3.00 fee per label.
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, money("97.00")).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.ChargeForLabel(ctx, ports.ChargeRequest{
		AccountID: accountID,
		BaseRate:  money("8.50"),
	})
	require.NoError(t, err)
	assert.True(t, txn.Amount.Equal(money("-3.00")))
}

func TestWalletService_ChargeForLabel_InsufficientBalance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
		Balance:   money("3.50"),
	}, nil)
	d.subRepo.EXPECT().GetByAccountID(ctx, accountID).Return(nil, nil)
	d.txRepo.EXPECT().CountShippingInMonth(ctx, tx, walletID, gomock.Any()).Return(int64(0), nil)

	// The 4.00 fee exceeds the 3.50 balance; no write happens.
	txn, err := d.svc.ChargeForLabel(ctx, ports.ChargeRequest{
		AccountID: accountID,
		BaseRate:  money("8.50"),
	})
	assert.Nil(t, txn)
	assertAppError(t, err, "LEDGER_001")
}

func TestWalletService_ChargeForLabel_QuotaExceeded(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
		Balance:   money("500.00"),
	}, nil)
	d.subRepo.EXPECT().GetByAccountID(ctx, accountID).Return(nil, nil)
	d.txRepo.EXPECT().CountShippingInMonth(ctx, tx, walletID, gomock.Any()).
		Return(int64(domain.StandardMonthlyQuota), nil)

	txn, err := d.svc.ChargeForLabel(ctx, ports.ChargeRequest{
		AccountID: accountID,
		BaseRate:  money("8.50"),
	})
	assert.Nil(t, txn)
	assertAppError(t, err, "LEDGER_003")
}

func TestWalletService_ChargeForLabel_InvalidBaseRate(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	txn, err := d.svc.ChargeForLabel(context.Background(), ports.ChargeRequest{
		AccountID: uuid.New(),
		BaseRate:  decimal.Zero,
	})
	assert.Nil(t, txn)
	assertAppError(t, err, "LEDGER_002")
}

func TestWalletService_ChargeForLabel_WalletNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(nil, nil)

	txn, err := d.svc.ChargeForLabel(ctx, ports.ChargeRequest{
		AccountID: accountID,
		BaseRate:  money("8.50"),
	})
	assert.Nil(t, txn)
	assertAppError(t, err, "LEDGER_004")
}

// ==================== AddFunds / Credit Tests ====================

func TestWalletService_AddFunds_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
		Balance:   money("50.00"),
	}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, money("150.00")).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) error {
			assert.Equal(t, domain.TransactionKindDeposit, txn.Kind)
			assert.True(t, txn.Amount.Equal(money("100.00")))
			assert.Nil(t, txn.ReferenceID)
			return nil
		})

	txn, err := d.svc.AddFunds(ctx, accountID, money("100.00"))
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.True(t, txn.Amount.Equal(money("100.00")))
}

func TestWalletService_AddFunds_NegativeAmount(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)

	txn, err := d.svc.AddFunds(context.Background(), uuid.New(), money("-5.00"))
	assert.Nil(t, txn)
	assertAppError(t, err, "LEDGER_002")
}

func TestWalletService_Credit_CarriesReferenceID(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
		Balance:   money("0.00"),
	}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, money("25.00")).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.Transaction) error {
			require.NotNil(t, txn.ReferenceID)
			assert.Equal(t, "evt_123", *txn.ReferenceID)
			return nil
		})

	txn, err := d.svc.Credit(ctx, tx, accountID, money("25.00"), "evt_123", "Wallet deposit via stripe")
	require.NoError(t, err)
	require.NotNil(t, txn)
}

// ==================== Read Path Tests ====================

func TestWalletService_GetBalance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.walletRepo.EXPECT().GetByAccountID(ctx, accountID).Return(&domain.Wallet{
		ID:        uuid.New(),
		AccountID: accountID,
		Balance:   money("42.75"),
	}, nil)

	balance, err := d.svc.GetBalance(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(money("42.75")))
}

func TestWalletService_GetBalance_WalletNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	d.walletRepo.EXPECT().GetByAccountID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := d.svc.GetBalance(context.Background(), uuid.New())
	assertAppError(t, err, "LEDGER_004")
}

func TestWalletService_GetSavingsStats(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByAccountID(ctx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
	}, nil)
	d.txRepo.EXPECT().SavingsStats(ctx, walletID).Return(&domain.SavingsStats{
		SavingsTotal: money("127.50"),
		LabelCount:   50,
	}, nil)

	stats, err := d.svc.GetSavingsStats(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), stats.LabelCount)
	assert.True(t, stats.SavingsTotal.Equal(money("127.50")))
}

func TestWalletService_ListTransactions_NormalizesPagination(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByAccountID(ctx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
	}, nil)
	d.txRepo.EXPECT().List(ctx, walletID, ports.ListParams{Page: 1, PageSize: 20}).
		Return([]domain.Transaction{}, int64(0), nil)

	_, total, err := d.svc.ListTransactions(ctx, accountID, ports.ListParams{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestWalletService_ListTransactions_RepoError(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	walletID := uuid.New()

	d.walletRepo.EXPECT().GetByAccountID(ctx, accountID).Return(&domain.Wallet{
		ID:        walletID,
		AccountID: accountID,
	}, nil)
	d.txRepo.EXPECT().List(ctx, walletID, gomock.Any()).
		Return(nil, int64(0), errors.New("connection reset"))

	_, _, err := d.svc.ListTransactions(ctx, accountID, ports.ListParams{Page: 1, PageSize: 20})
	assertAppError(t, err, "SYS_003")
}
