package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Webhook Ingestion (HOOK) ----

func ErrInvalidSignature() *AppError {
	return New("HOOK_001", "Webhook signature verification failed", http.StatusBadRequest)
}

// ErrDuplicateEvent marks an already-applied event. Webhook handlers
// acknowledge it with 200 so the provider stops retrying.
func ErrDuplicateEvent(eventID string) *AppError {
	return New("HOOK_002", fmt.Sprintf("Event %s already processed", eventID), http.StatusOK)
}

func ErrMalformedEvent(err error) *AppError {
	return Wrap("HOOK_003", "Malformed event payload", http.StatusBadRequest, err)
}

// ---- Wallet Ledger (LEDGER) ----

func ErrInsufficientBalance() *AppError {
	return New("LEDGER_001", "Insufficient balance - add funds to continue", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LEDGER_002", "Invalid amount", http.StatusBadRequest)
}

func ErrQuotaExceeded(quota int) *AppError {
	return New("LEDGER_003", fmt.Sprintf("Monthly label quota of %d reached - upgrade to Premium for unlimited labels", quota), http.StatusUnprocessableEntity)
}

func ErrNotFound(entity string) *AppError {
	return New("LEDGER_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Subscription Plan (PLAN) ----

func ErrInvalidPlan(plan string) *AppError {
	return New("PLAN_001", fmt.Sprintf("Invalid pricing plan %q", plan), http.StatusBadRequest)
}

func ErrInvalidBillingCycle(cycle string) *AppError {
	return New("PLAN_002", fmt.Sprintf("Invalid billing cycle %q", cycle), http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New("AUTH_002", "Email already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Too many requests", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrTransientStore marks a store failure that exhausted its retry budget.
// Webhook handlers surface it as 500 so the provider retries the delivery.
func ErrTransientStore(err error) *AppError {
	return Wrap("SYS_001", "Storage temporarily unavailable", http.StatusInternalServerError, err)
}

func ErrCheckoutFailure(err error) *AppError {
	return Wrap("SYS_002", "Could not create checkout session", http.StatusBadGateway, err)
}

// InternalError wraps an internal error as a SYS_003 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_003", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LEDGER_002-style validation error.
func Validation(message string) *AppError {
	return New("LEDGER_002", message, http.StatusBadRequest)
}
