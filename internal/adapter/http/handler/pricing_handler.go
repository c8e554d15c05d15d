package handler

import (
	"shiplabel-gateway/internal/adapter/http/dto"
	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/pkg/apperror"
	"shiplabel-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PricingHandler exposes the label pricing calculators. All endpoints are
// pure functions over the pricing constants; no auth required.
type PricingHandler struct{}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler() *PricingHandler {
	return &PricingHandler{}
}

// Quote handles GET /api/v1/pricing/quote.
func (h *PricingHandler) Quote(c *gin.Context) {
	var q dto.QuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	baseRate, plan, err := parsePricingInput(q.BaseRate, q.Plan)
	if err != nil {
		response.Error(c, err)
		return
	}

	quote, ok := domain.QuoteLabel(baseRate, plan)
	if !ok {
		response.Error(c, apperror.ErrInvalidPlan(string(plan)))
		return
	}
	response.OK(c, quote)
}

// BulkQuote handles GET /api/v1/pricing/bulk.
func (h *PricingHandler) BulkQuote(c *gin.Context) {
	var q dto.BulkQuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	baseRate, plan, err := parsePricingInput(q.BaseRate, q.Plan)
	if err != nil {
		response.Error(c, err)
		return
	}

	quote, ok := domain.QuoteBulk(baseRate, q.Quantity, plan)
	if !ok {
		response.Error(c, apperror.ErrInvalidPlan(string(plan)))
		return
	}
	response.OK(c, quote)
}

// Compare handles GET /api/v1/pricing/compare.
func (h *PricingHandler) Compare(c *gin.Context) {
	var q dto.CompareQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	avgRate, err := decimal.NewFromString(q.AvgBaseRate)
	if err != nil || !avgRate.IsPositive() {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	cycle, ok := domain.ParseBillingCycle(q.BillingCycle)
	if !ok {
		response.Error(c, apperror.ErrInvalidBillingCycle(q.BillingCycle))
		return
	}

	response.OK(c, domain.ComparePlans(q.MonthlyLabels, avgRate, cycle))
}

func parsePricingInput(rawRate, rawPlan string) (decimal.Decimal, domain.Plan, error) {
	baseRate, err := decimal.NewFromString(rawRate)
	if err != nil || !baseRate.IsPositive() {
		return decimal.Decimal{}, "", apperror.ErrInvalidAmount()
	}

	plan := domain.PlanStandard
	if rawPlan != "" {
		parsed, ok := domain.ParsePlan(rawPlan)
		if !ok {
			return decimal.Decimal{}, "", apperror.ErrInvalidPlan(rawPlan)
		}
		plan = parsed
	}
	return baseRate, plan, nil
}
