package handler

import (
	"context"

	"shiplabel-gateway/internal/adapter/http/dto"
	"shiplabel-gateway/internal/adapter/http/middleware"
	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"
	"shiplabel-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutHandler starts hosted checkout flows. Money only moves when the
// provider's webhook lands; these endpoints just hand out redirect URLs.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// CreateDeposit handles POST /api/v1/deposits — card top-up checkout.
func (h *CheckoutHandler) CreateDeposit(c *gin.Context) {
	h.deposit(c, h.checkoutSvc.CreateDepositCheckout)
}

// CreateCryptoDeposit handles POST /api/v1/deposits/crypto.
func (h *CheckoutHandler) CreateCryptoDeposit(c *gin.Context) {
	h.deposit(c, h.checkoutSvc.CreateCryptoDepositCheckout)
}

// CreateSubscription handles POST /api/v1/subscriptions/checkout — card
// upgrade checkout.
func (h *CheckoutHandler) CreateSubscription(c *gin.Context) {
	h.subscription(c, h.checkoutSvc.CreateSubscriptionCheckout)
}

// CreateCryptoSubscription handles POST /api/v1/subscriptions/checkout/crypto.
func (h *CheckoutHandler) CreateCryptoSubscription(c *gin.Context) {
	h.subscription(c, h.checkoutSvc.CreateCryptoSubscriptionCheckout)
}

func (h *CheckoutHandler) deposit(c *gin.Context, create func(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (string, error)) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	url, err := create(c.Request.Context(), accountID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CheckoutResponse{CheckoutURL: url})
}

func (h *CheckoutHandler) subscription(c *gin.Context, create func(ctx context.Context, accountID uuid.UUID, plan domain.Plan, cycle domain.BillingCycle) (string, error)) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SubscriptionCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	url, err := create(c.Request.Context(), accountID,
		domain.Plan(req.Plan), domain.BillingCycle(req.BillingCycle))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CheckoutResponse{CheckoutURL: url})
}
