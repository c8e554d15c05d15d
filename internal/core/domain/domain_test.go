package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestTransaction_IsCredit(t *testing.T) {
	tests := []struct {
		name string
		kind TransactionKind
		want bool
	}{
		{"deposit", TransactionKindDeposit, true},
		{"refund", TransactionKindRefund, true},
		{"shipping", TransactionKindShipping, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Kind: tt.kind}
			assert.Equal(t, tt.want, tx.IsCredit())
		})
	}
}

func TestTransaction_Valid(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{"positive deposit", Transaction{Kind: TransactionKindDeposit, Amount: dec("100.00")}, true},
		{"negative deposit", Transaction{Kind: TransactionKindDeposit, Amount: dec("-1.00")}, false},
		{"zero deposit", Transaction{Kind: TransactionKindDeposit, Amount: decimal.Zero}, false},
		{"shipping with savings", Transaction{Kind: TransactionKindShipping, Amount: dec("-4.00"), Savings: decPtr("2.25")}, true},
		{"shipping without savings", Transaction{Kind: TransactionKindShipping, Amount: dec("-4.00")}, false},
		{"positive shipping", Transaction{Kind: TransactionKindShipping, Amount: dec("4.00"), Savings: decPtr("2.25")}, false},
		{"unknown kind", Transaction{Kind: "bogus", Amount: dec("1.00")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tx.Valid())
		})
	}
}

func TestWallet_CanAfford(t *testing.T) {
	w := &Wallet{Balance: dec("4.00")}

	assert.True(t, w.CanAfford(dec("4.00")))
	assert.True(t, w.CanAfford(dec("3.99")))
	assert.False(t, w.CanAfford(dec("4.01")))
}

func TestNewSubscription_InitialState(t *testing.T) {
	now := time.Now().UTC()
	sub := NewSubscription(uuid.New(), now)

	assert.Equal(t, PlanStandard, sub.Plan)
	assert.Equal(t, BillingCycleMonthly, sub.BillingCycle)
	assert.False(t, sub.IsPremium())
}

func TestTransitionForEvent(t *testing.T) {
	tests := []struct {
		name      string
		kind      EventKind
		cycle     BillingCycle
		wantPlan  Plan
		wantCycle BillingCycle
		wantOK    bool
	}{
		{"activated yearly", EventKindSubscriptionActivated, BillingCycleYearly, PlanPremium, BillingCycleYearly, true},
		{"checkout completed monthly", EventKindCheckoutCompleted, BillingCycleMonthly, PlanPremium, BillingCycleMonthly, true},
		{"checkout completed no cycle defaults monthly", EventKindCheckoutCompleted, "", PlanPremium, BillingCycleMonthly, true},
		{"cancelled", EventKindSubscriptionCancelled, BillingCycleYearly, PlanStandard, BillingCycleMonthly, true},
		{"deposit does not transition", EventKindDepositConfirmed, "", "", "", false},
		{"payment failure does not transition", EventKindPaymentFailed, "", "", "", false},
		{"unknown does not transition", EventKindUnknown, "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, ok := TransitionForEvent(tt.kind, tt.cycle)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantPlan, tr.Plan)
				assert.Equal(t, tt.wantCycle, tr.Cycle)
			}
		})
	}
}

func TestSubscription_ActivateThenCancel(t *testing.T) {
	// Premium/yearly followed by cancellation ends on STANDARD regardless
	// of the intermediate cycle.
	now := time.Now().UTC()
	sub := NewSubscription(uuid.New(), now)

	up, ok := TransitionForEvent(EventKindSubscriptionActivated, BillingCycleYearly)
	require.True(t, ok)
	sub.Apply(up, now.Add(time.Minute))
	assert.Equal(t, PlanPremium, sub.Plan)
	assert.Equal(t, BillingCycleYearly, sub.BillingCycle)

	down, ok := TransitionForEvent(EventKindSubscriptionCancelled, "")
	require.True(t, ok)
	sub.Apply(down, now.Add(2*time.Minute))
	assert.Equal(t, PlanStandard, sub.Plan)
}

func TestDowngradeTransition_MatchesCancellation(t *testing.T) {
	cancelled, _ := TransitionForEvent(EventKindSubscriptionCancelled, "")
	assert.Equal(t, cancelled, DowngradeTransition())
}

func TestParsePlan(t *testing.T) {
	p, ok := ParsePlan("PREMIUM")
	require.True(t, ok)
	assert.Equal(t, PlanPremium, p)

	_, ok = ParsePlan("GOLD")
	assert.False(t, ok)
}

func TestParseBillingCycle(t *testing.T) {
	c, ok := ParseBillingCycle("")
	require.True(t, ok)
	assert.Equal(t, BillingCycleMonthly, c, "empty cycle defaults to monthly")

	c, ok = ParseBillingCycle("yearly")
	require.True(t, ok)
	assert.Equal(t, BillingCycleYearly, c)

	_, ok = ParseBillingCycle("weekly")
	assert.False(t, ok)
}

func TestNormalizedEvent_PayloadAccessors(t *testing.T) {
	accountID := uuid.New()

	ev := &NormalizedEvent{
		EventID: "evt_1",
		Kind:    EventKindDepositConfirmed,
		Payload: DepositPayload{AccountID: accountID, Amount: dec("25.00")},
	}

	dep, ok := ev.Deposit()
	require.True(t, ok)
	assert.Equal(t, accountID, dep.AccountID)
	assert.True(t, dep.Amount.Equal(dec("25.00")))

	_, ok = ev.PlanChange()
	assert.False(t, ok)
	_, ok = ev.Failure()
	assert.False(t, ok)
}

func TestNormalizedEvent_RequiresMutation(t *testing.T) {
	tests := []struct {
		kind EventKind
		want bool
	}{
		{EventKindDepositConfirmed, true},
		{EventKindPaymentSucceeded, true},
		{EventKindCheckoutCompleted, true},
		{EventKindSubscriptionActivated, true},
		{EventKindSubscriptionCancelled, true},
		{EventKindPaymentFailed, false},
		{EventKindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			ev := &NormalizedEvent{Kind: tt.kind}
			assert.Equal(t, tt.want, ev.RequiresMutation())
		})
	}
}
