package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shiplabel-gateway/config"
	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// metadata keys round-tripped through the provider so webhook deliveries
// identify the account without extra lookups.
const (
	metaAccountID     = "account_id"
	metaBillingCycle  = "billing_cycle"
	metaType          = "type"
	typeWalletDeposit = "wallet_deposit"
)

// StripeGateway verifies and normalizes card-provider webhooks and creates
// hosted checkout sessions.
type StripeGateway struct {
	client        *client.API
	webhookSecret string
	baseURL       string
}

// NewStripeGateway creates a gateway from the card-provider credentials.
func NewStripeGateway(cfg config.StripeConfig, baseURL string) *StripeGateway {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &StripeGateway{
		client:        sc,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
	}
}

// Provider identifies this adapter's webhook source.
func (g *StripeGateway) Provider() domain.Provider {
	return domain.ProviderStripe
}

// VerifyAndNormalize checks the delivery signature against the raw body,
// then maps the provider event onto the internal representation. Event
// types outside the handled set normalize to an unknown-kind event that the
// pipeline acknowledges as a no-op.
func (g *StripeGateway) VerifyAndNormalize(rawBody []byte, signatureHeader string) (*domain.NormalizedEvent, error) {
	event, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperror.ErrInvalidSignature()
	}

	normalized := &domain.NormalizedEvent{
		EventID:    event.ID,
		Provider:   domain.ProviderStripe,
		Kind:       domain.EventKindUnknown,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, apperror.ErrMalformedEvent(err)
		}
		return g.normalizeCheckoutSession(normalized, &session)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, apperror.ErrMalformedEvent(err)
		}
		switch sub.Status {
		case stripe.SubscriptionStatusActive:
			normalized.Kind = domain.EventKindSubscriptionActivated
		case stripe.SubscriptionStatusCanceled:
			normalized.Kind = domain.EventKindSubscriptionCancelled
		default:
			// Intermediate statuses (past_due, trialing, ...) do not move
			// the plan state machine.
			return normalized, nil
		}
		return g.normalizeSubscription(normalized, &sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, apperror.ErrMalformedEvent(err)
		}
		normalized.Kind = domain.EventKindSubscriptionCancelled
		return g.normalizeSubscription(normalized, &sub)

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, apperror.ErrMalformedEvent(err)
		}
		accountID, err := accountIDFromMetadata(pi.Metadata)
		if err != nil {
			return nil, err
		}
		normalized.Kind = domain.EventKindPaymentSucceeded
		normalized.Payload = domain.DepositPayload{
			AccountID: accountID,
			Amount:    decimal.New(pi.Amount, -2),
		}
		return normalized, nil

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, apperror.ErrMalformedEvent(err)
		}
		accountID, err := accountIDFromMetadata(pi.Metadata)
		if err != nil {
			return nil, err
		}
		reason := "payment failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		normalized.Kind = domain.EventKindPaymentFailed
		normalized.Payload = domain.FailurePayload{
			AccountID: accountID,
			Amount:    decimal.New(pi.Amount, -2),
			Reason:    reason,
		}
		return normalized, nil
	}

	return normalized, nil
}

func (g *StripeGateway) normalizeCheckoutSession(normalized *domain.NormalizedEvent, session *stripe.CheckoutSession) (*domain.NormalizedEvent, error) {
	accountID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return nil, apperror.ErrMalformedEvent(fmt.Errorf("client reference id: %w", err))
	}

	// Deposit sessions credit the wallet; everything else activates PREMIUM.
	if session.Metadata[metaType] == typeWalletDeposit {
		normalized.Kind = domain.EventKindDepositConfirmed
		normalized.Payload = domain.DepositPayload{
			AccountID: accountID,
			Amount:    decimal.New(session.AmountTotal, -2),
		}
		return normalized, nil
	}

	cycle, ok := domain.ParseBillingCycle(session.Metadata[metaBillingCycle])
	if !ok {
		cycle = domain.BillingCycleMonthly
	}
	email := ""
	if session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}
	normalized.Kind = domain.EventKindCheckoutCompleted
	normalized.Payload = domain.PlanPayload{
		AccountID: accountID,
		Plan:      domain.PlanPremium,
		Cycle:     cycle,
		Email:     email,
	}
	return normalized, nil
}

func (g *StripeGateway) normalizeSubscription(normalized *domain.NormalizedEvent, sub *stripe.Subscription) (*domain.NormalizedEvent, error) {
	accountID, err := accountIDFromMetadata(sub.Metadata)
	if err != nil {
		return nil, err
	}
	cycle, ok := domain.ParseBillingCycle(sub.Metadata[metaBillingCycle])
	if !ok {
		cycle = domain.BillingCycleMonthly
	}

	plan := domain.PlanPremium
	if normalized.Kind == domain.EventKindSubscriptionCancelled {
		plan = domain.PlanStandard
	}
	normalized.Payload = domain.PlanPayload{
		AccountID: accountID,
		Plan:      plan,
		Cycle:     cycle,
	}
	return normalized, nil
}

func accountIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	accountID, err := uuid.Parse(metadata[metaAccountID])
	if err != nil {
		return uuid.Nil, apperror.ErrMalformedEvent(fmt.Errorf("account id metadata: %w", err))
	}
	return accountID, nil
}

// CreateDepositSession opens a hosted one-time payment session that tops up
// the wallet on completion.
func (g *StripeGateway) CreateDepositSession(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(accountID.String()),
		SuccessURL:        stripe.String(g.baseURL + "/wallet?checkout=success"),
		CancelURL:         stripe.String(g.baseURL + "/wallet?checkout=cancelled"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("usd"),
				UnitAmount: stripe.Int64(toCents(amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Wallet deposit"),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata(metaType, typeWalletDeposit)
	params.AddMetadata(metaAccountID, accountID.String())

	session, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return "", apperror.ErrCheckoutFailure(err)
	}
	return session.URL, nil
}

// CreateSubscriptionSession opens a hosted recurring checkout for PREMIUM on
// the given billing cycle.
func (g *StripeGateway) CreateSubscriptionSession(ctx context.Context, accountID uuid.UUID, cycle domain.BillingCycle) (string, error) {
	pricing, _ := domain.PlanPricing(domain.PlanPremium)
	interval := "month"
	if cycle == domain.BillingCycleYearly {
		interval = "year"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(accountID.String()),
		SuccessURL:        stripe.String(g.baseURL + "/subscription?checkout=success"),
		CancelURL:         stripe.String(g.baseURL + "/subscription?checkout=cancelled"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("usd"),
				UnitAmount: stripe.Int64(toCents(pricing.Fee(cycle))),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(interval),
				},
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Premium plan"),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		// Lifecycle events (customer.subscription.*) carry only the
		// subscription's own metadata, so the identity goes there too.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metaAccountID:    accountID.String(),
				metaBillingCycle: string(cycle),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(metaAccountID, accountID.String())
	params.AddMetadata(metaBillingCycle, string(cycle))

	session, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return "", apperror.ErrCheckoutFailure(err)
	}
	return session.URL, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
