package handler

import (
	"time"

	"shiplabel-gateway/internal/adapter/http/dto"
	"shiplabel-gateway/internal/adapter/http/middleware"
	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"
	"shiplabel-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// SubscriptionHandler handles the plan dashboard endpoints.
type SubscriptionHandler struct {
	subSvc ports.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subSvc ports.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subSvc: subSvc}
}

// Get handles GET /api/v1/subscription.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	sub, err := h.subSvc.Get(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toSubscriptionResponse(sub))
}

// Downgrade handles DELETE /api/v1/subscription — the manual cancellation.
// The provider-side subscription is cancelled from the dashboard; this
// endpoint moves the local plan state the same way the webhook would.
func (h *SubscriptionHandler) Downgrade(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	sub, err := h.subSvc.Downgrade(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toSubscriptionResponse(sub))
}

func toSubscriptionResponse(sub *domain.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		Plan:         string(sub.Plan),
		BillingCycle: string(sub.BillingCycle),
		UpdatedAt:    sub.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
