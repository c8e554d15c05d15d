package service

import (
	"context"
	"testing"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/internal/core/ports/mocks"
	"shiplabel-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type checkoutTestDeps struct {
	svc         *CheckoutServiceImpl
	card        *mocks.MockCardCheckoutGateway
	crypto      *mocks.MockCryptoCheckoutGateway
	accountRepo *mocks.MockAccountRepository
	ctrl        *gomock.Controller
}

func setupCheckoutService(t *testing.T) *checkoutTestDeps {
	ctrl := gomock.NewController(t)
	d := &checkoutTestDeps{
		card:        mocks.NewMockCardCheckoutGateway(ctrl),
		crypto:      mocks.NewMockCryptoCheckoutGateway(ctrl),
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewCheckoutService(d.card, d.crypto, d.accountRepo, zerolog.Nop())
	return d
}

func TestCheckoutService_CreateDepositCheckout(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.card.EXPECT().CreateDepositSession(ctx, accountID, money("50.00")).
		Return("https://checkout.stripe.com/c/pay/cs_test_123", nil)

	url, err := d.svc.CreateDepositCheckout(ctx, accountID, money("50.00"))
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_123", url)
}

func TestCheckoutService_CreateDepositCheckout_InvalidAmount(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.CreateDepositCheckout(context.Background(), uuid.New(), decimal.Zero)
	assertAppError(t, err, "LEDGER_002")
}

func TestCheckoutService_CreateSubscriptionCheckout_DefaultsCycleToMonthly(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.card.EXPECT().CreateSubscriptionSession(ctx, accountID, domain.BillingCycleMonthly).
		Return("https://checkout.stripe.com/c/pay/cs_test_456", nil)

	url, err := d.svc.CreateSubscriptionCheckout(ctx, accountID, domain.PlanPremium, "")
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestCheckoutService_CreateSubscriptionCheckout_StandardHasNoFee(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.CreateSubscriptionCheckout(context.Background(), uuid.New(),
		domain.PlanStandard, domain.BillingCycleMonthly)
	assertAppError(t, err, "PLAN_001")
}

func TestCheckoutService_CreateSubscriptionCheckout_BadCycle(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.CreateSubscriptionCheckout(context.Background(), uuid.New(),
		domain.PlanPremium, domain.BillingCycle("weekly"))
	assertAppError(t, err, "PLAN_002")
}

func TestCheckoutService_CreateCryptoDepositCheckout(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{
		ID:    accountID,
		Email: "user@example.com",
	}, nil)
	d.crypto.EXPECT().CreateCharge(ctx, ports.CryptoChargeRequest{
		AccountID: accountID,
		Email:     "user@example.com",
		Amount:    money("25.00"),
		Deposit:   true,
	}).Return("https://commerce.coinbase.com/charges/ABCD1234", nil)

	url, err := d.svc.CreateCryptoDepositCheckout(ctx, accountID, money("25.00"))
	require.NoError(t, err)
	assert.Equal(t, "https://commerce.coinbase.com/charges/ABCD1234", url)
}

func TestCheckoutService_CreateCryptoDepositCheckout_AccountGone(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	d.accountRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := d.svc.CreateCryptoDepositCheckout(context.Background(), uuid.New(), money("25.00"))
	assertAppError(t, err, "LEDGER_004")
}

func TestCheckoutService_CreateCryptoSubscriptionCheckout_YearlyFee(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{
		ID:    accountID,
		Email: "user@example.com",
	}, nil)
	d.crypto.EXPECT().CreateCharge(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.CryptoChargeRequest) (string, error) {
			// The charge carries the plan fee, not a user-chosen amount.
			assert.True(t, req.Amount.Equal(money("999.00")))
			assert.Equal(t, domain.BillingCycleYearly, req.Cycle)
			assert.False(t, req.Deposit)
			return "https://commerce.coinbase.com/charges/EFGH5678", nil
		})

	url, err := d.svc.CreateCryptoSubscriptionCheckout(ctx, accountID, domain.PlanPremium, domain.BillingCycleYearly)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestCheckoutService_CreateCryptoSubscriptionCheckout_GatewayDown(t *testing.T) {
	d := setupCheckoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, accountID).Return(&domain.Account{
		ID:    accountID,
		Email: "user@example.com",
	}, nil)
	d.crypto.EXPECT().CreateCharge(ctx, gomock.Any()).
		Return("", apperror.ErrCheckoutFailure(assert.AnError))

	_, err := d.svc.CreateCryptoSubscriptionCheckout(ctx, accountID, domain.PlanPremium, domain.BillingCycleMonthly)
	assertAppError(t, err, "SYS_002")
}
