package dto

import (
	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for account login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Balance   string `json:"balance"` // seeded with the initial grant
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// LabelPurchaseRequest is the request body for charging one shipping label.
type LabelPurchaseRequest struct {
	BaseRate       decimal.Decimal `json:"base_rate" binding:"required"`
	TrackingNumber string          `json:"tracking_number" binding:"required,safe_id,max=100"`
	Description    string          `json:"description" binding:"max=200"`
}

// DepositCheckoutRequest is the request body for starting a wallet top-up
// checkout at a provider.
type DepositCheckoutRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// SubscriptionCheckoutRequest is the request body for starting a plan
// upgrade checkout.
type SubscriptionCheckoutRequest struct {
	Plan         string `json:"plan" binding:"required"`
	BillingCycle string `json:"billing_cycle" binding:"omitempty,oneof=monthly yearly"`
}

// CheckoutResponse carries the hosted checkout URL the dashboard redirects
// to.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// TransactionListQuery holds the query parameters for the ledger history.
type TransactionListQuery struct {
	Kind     string `form:"kind" binding:"omitempty,oneof=deposit shipping refund"`
	Page     int    `form:"page" binding:"omitempty,gte=1"`
	PageSize int    `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}

// QuoteQuery holds the query parameters for a single-label quote.
type QuoteQuery struct {
	BaseRate string `form:"base_rate" binding:"required"`
	Plan     string `form:"plan" binding:"omitempty,oneof=STANDARD PREMIUM"`
}

// BulkQuoteQuery holds the query parameters for a batch quote.
type BulkQuoteQuery struct {
	BaseRate string `form:"base_rate" binding:"required"`
	Quantity int    `form:"quantity" binding:"required,gte=1,lte=10000"`
	Plan     string `form:"plan" binding:"omitempty,oneof=STANDARD PREMIUM"`
}

// CompareQuery holds the query parameters for the plan cost comparison.
type CompareQuery struct {
	MonthlyLabels int    `form:"monthly_labels" binding:"required,gte=1,lte=100000"`
	AvgBaseRate   string `form:"avg_base_rate" binding:"required"`
	BillingCycle  string `form:"billing_cycle" binding:"omitempty,oneof=monthly yearly"`
}

// BalanceResponse is the response for the balance query.
type BalanceResponse struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// SavingsResponse is the response for the savings aggregates.
type SavingsResponse struct {
	SavingsTotal string `json:"savings_total"`
	LabelCount   int64  `json:"label_count"`
}

// TransactionResponse is one ledger entry in API form. Money fields are
// fixed two-digit strings.
type TransactionResponse struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Amount      string  `json:"amount"`
	BaseRate    *string `json:"base_rate,omitempty"`
	RetailRate  *string `json:"retail_rate,omitempty"`
	Savings     *string `json:"savings,omitempty"`
	ReferenceID *string `json:"reference_id,omitempty"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

// TransactionListResponse wraps the paginated ledger history.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// SubscriptionResponse is the account's plan state.
type SubscriptionResponse struct {
	Plan         string `json:"plan"`
	BillingCycle string `json:"billing_cycle"`
	UpdatedAt    string `json:"updated_at"`
}
