package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shiplabel-gateway/config"
	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"

	"github.com/shopspring/decimal"
)

// HTTPClient abstracts the outbound HTTP client so tests can stub provider
// responses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CoinbaseGateway verifies and normalizes crypto-provider webhooks and
// creates hosted charges. The provider has no Go SDK; the wire format is a
// raw hex HMAC-SHA256 over the body and a small JSON charge API.
type CoinbaseGateway struct {
	client        HTTPClient
	apiKey        string
	webhookSecret string
	chargeURL     string
	baseURL       string
}

// NewCoinbaseGateway creates a gateway from the crypto-provider credentials.
func NewCoinbaseGateway(client HTTPClient, cfg config.CoinbaseConfig, baseURL string) *CoinbaseGateway {
	return &CoinbaseGateway{
		client:        client,
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		chargeURL:     cfg.ChargeURL,
		baseURL:       baseURL,
	}
}

// Provider identifies this adapter's webhook source.
func (g *CoinbaseGateway) Provider() domain.Provider {
	return domain.ProviderCoinbase
}

type coinbaseEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	Data      coinbaseCharge `json:"data"`
}

type coinbaseCharge struct {
	ID       string            `json:"id"`
	Code     string            `json:"code"`
	Metadata map[string]string `json:"metadata"`
	Pricing  struct {
		Local struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"local"`
	} `json:"pricing"`
}

// VerifyAndNormalize checks the hex HMAC-SHA256 signature against the raw
// body with a constant-time compare, then maps the charge event onto the
// internal representation.
func (g *CoinbaseGateway) VerifyAndNormalize(rawBody []byte, signatureHeader string) (*domain.NormalizedEvent, error) {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return nil, apperror.ErrInvalidSignature()
	}

	var event coinbaseEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, apperror.ErrMalformedEvent(err)
	}

	normalized := &domain.NormalizedEvent{
		EventID:    event.ID,
		Provider:   domain.ProviderCoinbase,
		Kind:       domain.EventKindUnknown,
		OccurredAt: event.CreatedAt,
	}
	if normalized.EventID == "" {
		normalized.EventID = event.Data.ID
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now().UTC()
	}

	switch event.Type {
	case "charge:confirmed":
		accountID, err := accountIDFromMetadata(event.Data.Metadata)
		if err != nil {
			return nil, err
		}
		if event.Data.Metadata[metaType] == typeWalletDeposit {
			amount, err := decimal.NewFromString(event.Data.Pricing.Local.Amount)
			if err != nil {
				return nil, apperror.ErrMalformedEvent(fmt.Errorf("charge amount: %w", err))
			}
			normalized.Kind = domain.EventKindDepositConfirmed
			normalized.Payload = domain.DepositPayload{AccountID: accountID, Amount: amount}
			return normalized, nil
		}

		cycle, ok := domain.ParseBillingCycle(event.Data.Metadata[metaBillingCycle])
		if !ok {
			cycle = domain.BillingCycleMonthly
		}
		normalized.Kind = domain.EventKindCheckoutCompleted
		normalized.Payload = domain.PlanPayload{
			AccountID: accountID,
			Plan:      domain.PlanPremium,
			Cycle:     cycle,
			Email:     event.Data.Metadata["email"],
		}
		return normalized, nil

	case "charge:failed":
		accountID, err := accountIDFromMetadata(event.Data.Metadata)
		if err != nil {
			return nil, err
		}
		amount, _ := decimal.NewFromString(event.Data.Pricing.Local.Amount)
		normalized.Kind = domain.EventKindPaymentFailed
		normalized.Payload = domain.FailurePayload{
			AccountID: accountID,
			Amount:    amount,
			Reason:    "crypto charge failed",
		}
		return normalized, nil
	}

	return normalized, nil
}

type chargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  localPrice        `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL string            `json:"redirect_url"`
	CancelURL   string            `json:"cancel_url"`
}

type localPrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type chargeResponse struct {
	Data struct {
		ID        string `json:"id"`
		Code      string `json:"code"`
		HostedURL string `json:"hosted_url"`
	} `json:"data"`
}

// CreateCharge opens a hosted fixed-price crypto charge and returns its URL.
func (g *CoinbaseGateway) CreateCharge(ctx context.Context, req ports.CryptoChargeRequest) (string, error) {
	name := "Premium plan"
	description := "Premium subscription with $3.00 per label pricing"
	redirect := g.baseURL + "/subscription?checkout=success&method=crypto"
	metadata := map[string]string{
		metaAccountID:    req.AccountID.String(),
		metaBillingCycle: string(req.Cycle),
		"email":          req.Email,
	}
	if req.Deposit {
		name = "Wallet deposit"
		description = "Prepaid shipping-label balance top-up"
		redirect = g.baseURL + "/wallet?checkout=success&method=crypto"
		metadata[metaType] = typeWalletDeposit
	}

	body, err := json.Marshal(chargeRequest{
		Name:        name,
		Description: description,
		PricingType: "fixed_price",
		LocalPrice:  localPrice{Amount: req.Amount.StringFixed(2), Currency: "USD"},
		Metadata:    metadata,
		RedirectURL: redirect,
		CancelURL:   g.baseURL + "/pricing?checkout=cancelled&method=crypto",
	})
	if err != nil {
		return "", fmt.Errorf("marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.chargeURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-CC-Api-Key", g.apiKey)
	httpReq.Header.Set("X-CC-Version", "2018-03-22")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", apperror.ErrCheckoutFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperror.ErrCheckoutFailure(fmt.Errorf("charge API status %d", resp.StatusCode))
	}

	var charge chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return "", apperror.ErrCheckoutFailure(fmt.Errorf("decode charge response: %w", err))
	}
	if charge.Data.HostedURL == "" {
		return "", apperror.ErrCheckoutFailure(fmt.Errorf("charge %s has no hosted URL", charge.Data.ID))
	}
	return charge.Data.HostedURL, nil
}

// Sign computes the webhook signature for a payload. Exported for tests and
// local webhook replay tooling.
func (g *CoinbaseGateway) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
