package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider identifies the payment provider that sent a webhook.
type Provider string

const (
	ProviderStripe   Provider = "stripe"
	ProviderCoinbase Provider = "coinbase"
)

// EventKind is the provider-agnostic classification of a webhook event.
type EventKind string

const (
	EventKindSubscriptionActivated EventKind = "subscription-activated"
	EventKindSubscriptionCancelled EventKind = "subscription-cancelled"
	EventKindCheckoutCompleted     EventKind = "checkout-completed"
	EventKindPaymentSucceeded      EventKind = "payment-succeeded"
	EventKindPaymentFailed         EventKind = "payment-failed"
	EventKindDepositConfirmed      EventKind = "deposit-confirmed"
	EventKindUnknown               EventKind = "unknown"
)

// EventPayload is the tagged-union payload of a normalized event. Concrete
// types are validated at the normalization boundary so downstream code never
// inspects untyped maps.
type EventPayload interface {
	isEventPayload()
}

// DepositPayload accompanies deposit-confirmed and payment-succeeded events.
type DepositPayload struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// PlanPayload accompanies checkout-completed and subscription lifecycle
// events. Email, when present, receives the confirmation message.
type PlanPayload struct {
	AccountID uuid.UUID
	Plan      Plan
	Cycle     BillingCycle
	Email     string
}

// FailurePayload accompanies payment-failed events. No mutation follows;
// the failure is recorded for analytics only.
type FailurePayload struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Reason    string
}

func (DepositPayload) isEventPayload() {}
func (PlanPayload) isEventPayload()    {}
func (FailurePayload) isEventPayload() {}

// NormalizedEvent is the internal representation of a verified webhook
// delivery. EventID is the provider-assigned identifier used for
// deduplication.
type NormalizedEvent struct {
	EventID    string
	Provider   Provider
	Kind       EventKind
	OccurredAt time.Time
	Payload    EventPayload
}

// Deposit returns the deposit payload when present.
func (e *NormalizedEvent) Deposit() (DepositPayload, bool) {
	p, ok := e.Payload.(DepositPayload)
	return p, ok
}

// PlanChange returns the plan payload when present.
func (e *NormalizedEvent) PlanChange() (PlanPayload, bool) {
	p, ok := e.Payload.(PlanPayload)
	return p, ok
}

// Failure returns the failure payload when present.
func (e *NormalizedEvent) Failure() (FailurePayload, bool) {
	p, ok := e.Payload.(FailurePayload)
	return p, ok
}

// RequiresMutation reports whether applying the event touches the ledger or
// the subscription state machine. Everything else is acknowledged as a
// no-op.
func (e *NormalizedEvent) RequiresMutation() bool {
	switch e.Kind {
	case EventKindDepositConfirmed, EventKindPaymentSucceeded,
		EventKindCheckoutCompleted, EventKindSubscriptionActivated,
		EventKindSubscriptionCancelled:
		return true
	}
	return false
}

// EventClaim is the durable idempotency marker for one applied event. Only
// the identifier survives; the payload is discarded after application.
type EventClaim struct {
	EventID   string    `json:"event_id"`
	Provider  Provider  `json:"provider"`
	Kind      EventKind `json:"kind"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// ClaimRetention is how long applied-event markers are kept. Stripe and
// Coinbase retry failed deliveries for up to ~72h.
const ClaimRetention = 72 * time.Hour
