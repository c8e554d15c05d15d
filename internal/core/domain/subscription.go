package domain

import (
	"time"

	"github.com/google/uuid"
)

// Plan represents the billing plan an account is on.
type Plan string

const (
	PlanStandard Plan = "STANDARD"
	PlanPremium  Plan = "PREMIUM"
)

// BillingCycle represents how a premium subscription is billed.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// ParsePlan validates a plan string.
func ParsePlan(s string) (Plan, bool) {
	switch Plan(s) {
	case PlanStandard, PlanPremium:
		return Plan(s), true
	}
	return "", false
}

// ParseBillingCycle validates a cycle string, defaulting empty to monthly.
func ParseBillingCycle(s string) (BillingCycle, bool) {
	switch BillingCycle(s) {
	case BillingCycleMonthly, BillingCycleYearly:
		return BillingCycle(s), true
	case "":
		return BillingCycleMonthly, true
	}
	return "", false
}

// Subscription tracks the account's plan state. New accounts start on
// STANDARD/monthly; no state is terminal.
type Subscription struct {
	AccountID    uuid.UUID    `json:"account_id"`
	Plan         Plan         `json:"plan"`
	BillingCycle BillingCycle `json:"billing_cycle"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewSubscription returns the initial state for a new account.
func NewSubscription(accountID uuid.UUID, now time.Time) *Subscription {
	return &Subscription{
		AccountID:    accountID,
		Plan:         PlanStandard,
		BillingCycle: BillingCycleMonthly,
		UpdatedAt:    now,
	}
}

// Transition is a requested plan change. All plan mutations - webhook-driven
// and manual - are expressed as one of these and flow through the same
// state-machine entry point.
type Transition struct {
	Plan  Plan
	Cycle BillingCycle
}

// TransitionForEvent maps a normalized event kind onto a plan transition.
// The second return is false for kinds that do not move the state machine.
func TransitionForEvent(kind EventKind, cycle BillingCycle) (Transition, bool) {
	switch kind {
	case EventKindSubscriptionActivated, EventKindCheckoutCompleted:
		if cycle == "" {
			cycle = BillingCycleMonthly
		}
		return Transition{Plan: PlanPremium, Cycle: cycle}, true
	case EventKindSubscriptionCancelled:
		// Cycle is irrelevant on STANDARD; reset to the default.
		return Transition{Plan: PlanStandard, Cycle: BillingCycleMonthly}, true
	}
	return Transition{}, false
}

// DowngradeTransition is the user-initiated cancellation. It is identical to
// the webhook-driven one so the two paths cannot diverge.
func DowngradeTransition() Transition {
	tr, _ := TransitionForEvent(EventKindSubscriptionCancelled, "")
	return tr
}

// Apply moves the subscription to the transition's target state.
func (s *Subscription) Apply(tr Transition, now time.Time) {
	s.Plan = tr.Plan
	s.BillingCycle = tr.Cycle
	s.UpdatedAt = now
}

// IsPremium returns true when the account pays the recurring fee and has
// unlimited labels.
func (s *Subscription) IsPremium() bool {
	return s.Plan == PlanPremium
}
