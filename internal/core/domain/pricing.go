package domain

import (
	"github.com/shopspring/decimal"
)

// Pricing constants. All figures are USD with two fractional digits.
var (
	standardMarkup = decimal.RequireFromString("4.00")
	premiumMarkup  = decimal.RequireFromString("3.00")
	premiumMonthly = decimal.RequireFromString("99.00")
	// Yearly is ten months' worth - two months free.
	premiumYearly = decimal.RequireFromString("999.00")

	// RetailMultiplier estimates what the label would cost at retail
	// counter rates. Savings shown to the user are retail minus base.
	RetailMultiplier = decimal.RequireFromString("1.3")
)

// StandardMonthlyQuota is the label allowance per calendar month on the
// STANDARD plan. PREMIUM is unlimited.
const StandardMonthlyQuota = 100

// PricingPlan is the constant fee configuration for one plan.
type PricingPlan struct {
	Name           Plan
	MarkupPerLabel decimal.Decimal
	MonthlyFee     decimal.Decimal
	YearlyFee      decimal.Decimal
	// LabelQuota is per calendar month; 0 means unlimited.
	LabelQuota int
}

// Unlimited reports whether the plan has no label quota.
func (p PricingPlan) Unlimited() bool {
	return p.LabelQuota == 0
}

// Fee returns the recurring fee for the given billing cycle.
func (p PricingPlan) Fee(cycle BillingCycle) decimal.Decimal {
	if cycle == BillingCycleYearly {
		return p.YearlyFee
	}
	return p.MonthlyFee
}

// PlanPricing returns the fee configuration for a plan.
func PlanPricing(plan Plan) (PricingPlan, bool) {
	switch plan {
	case PlanStandard:
		return PricingPlan{
			Name:           PlanStandard,
			MarkupPerLabel: standardMarkup,
			MonthlyFee:     decimal.Zero,
			YearlyFee:      decimal.Zero,
			LabelQuota:     StandardMonthlyQuota,
		}, true
	case PlanPremium:
		return PricingPlan{
			Name:           PlanPremium,
			MarkupPerLabel: premiumMarkup,
			MonthlyFee:     premiumMonthly,
			YearlyFee:      premiumYearly,
			LabelQuota:     0,
		}, true
	}
	return PricingPlan{}, false
}

// LabelQuote is the price breakdown for a single label.
type LabelQuote struct {
	BaseRate   decimal.Decimal `json:"base_rate"`
	Markup     decimal.Decimal `json:"markup"`
	Total      decimal.Decimal `json:"total"`
	RetailRate decimal.Decimal `json:"retail_rate"`
	Savings    decimal.Decimal `json:"savings"`
	Plan       Plan            `json:"plan"`
}

// QuoteLabel prices one label on the given plan: total is base plus markup,
// retail is the 30%-higher counter estimate, savings is retail minus base.
func QuoteLabel(baseRate decimal.Decimal, plan Plan) (LabelQuote, bool) {
	pricing, ok := PlanPricing(plan)
	if !ok {
		return LabelQuote{}, false
	}
	retail := baseRate.Mul(RetailMultiplier).Round(2)
	return LabelQuote{
		BaseRate:   baseRate.Round(2),
		Markup:     pricing.MarkupPerLabel,
		Total:      baseRate.Add(pricing.MarkupPerLabel).Round(2),
		RetailRate: retail,
		Savings:    retail.Sub(baseRate.Round(2)),
		Plan:       plan,
	}, true
}

// Bulk volume discount tiers, STANDARD plan only.
var bulkTiers = []struct {
	minQty   int
	discount decimal.Decimal
}{
	{50, decimal.RequireFromString("0.15")},
	{25, decimal.RequireFromString("0.10")},
	{10, decimal.RequireFromString("0.05")},
}

// BulkQuote is the price breakdown for a batch of labels.
type BulkQuote struct {
	BaseRate       decimal.Decimal `json:"base_rate"`
	Quantity       int             `json:"quantity"`
	MarkupTotal    decimal.Decimal `json:"markup_total"`
	DiscountRate   decimal.Decimal `json:"discount_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	PricePerLabel  decimal.Decimal `json:"price_per_label"`
	Plan           Plan            `json:"plan"`
}

// QuoteBulk prices a batch with volume discounts (5% at 10+, 10% at 25+,
// 15% at 50+, STANDARD only).
func QuoteBulk(baseRate decimal.Decimal, quantity int, plan Plan) (BulkQuote, bool) {
	pricing, ok := PlanPricing(plan)
	if !ok || quantity <= 0 {
		return BulkQuote{}, false
	}

	qty := decimal.NewFromInt(int64(quantity))
	baseTotal := baseRate.Mul(qty)
	markupTotal := pricing.MarkupPerLabel.Mul(qty)

	discountRate := decimal.Zero
	if plan == PlanStandard {
		for _, tier := range bulkTiers {
			if quantity >= tier.minQty {
				discountRate = tier.discount
				break
			}
		}
	}

	gross := baseTotal.Add(markupTotal)
	discountAmount := gross.Mul(discountRate).Round(2)
	total := gross.Sub(discountAmount).Round(2)

	return BulkQuote{
		BaseRate:       baseRate.Round(2),
		Quantity:       quantity,
		MarkupTotal:    markupTotal.Round(2),
		DiscountRate:   discountRate,
		DiscountAmount: discountAmount,
		Total:          total,
		PricePerLabel:  total.Div(qty).Round(2),
		Plan:           plan,
	}, true
}

// BreakEvenLabels returns the monthly label volume at which PREMIUM's fee is
// offset by its lower per-label markup.
func BreakEvenLabels(cycle BillingCycle) int {
	premium, _ := PlanPricing(PlanPremium)
	standard, _ := PlanPricing(PlanStandard)

	fee := premium.MonthlyFee
	if cycle == BillingCycleYearly {
		fee = premium.YearlyFee.Div(decimal.NewFromInt(12))
	}

	perLabelSaving := standard.MarkupPerLabel.Sub(premium.MarkupPerLabel)
	return int(fee.Div(perLabelSaving).Ceil().IntPart())
}

// PlanComparison estimates monthly spend on each plan for a projected label
// volume.
type PlanComparison struct {
	StandardCost   decimal.Decimal `json:"standard_cost"`
	PremiumCost    decimal.Decimal `json:"premium_cost"`
	Savings        decimal.Decimal `json:"savings"`
	PremiumCheaper bool            `json:"premium_cheaper"`
	BreakEven      int             `json:"break_even_labels"`
	BillingCycle   BillingCycle    `json:"billing_cycle"`
}

// ComparePlans projects the monthly cost of both plans at the given volume
// and average base rate. Yearly premium fees are prorated to a month.
func ComparePlans(monthlyLabels int, avgBaseRate decimal.Decimal, cycle BillingCycle) PlanComparison {
	standard, _ := PlanPricing(PlanStandard)
	premium, _ := PlanPricing(PlanPremium)

	labels := decimal.NewFromInt(int64(monthlyLabels))
	standardCost := avgBaseRate.Add(standard.MarkupPerLabel).Mul(labels).Round(2)

	fee := premium.MonthlyFee
	if cycle == BillingCycleYearly {
		fee = premium.YearlyFee.Div(decimal.NewFromInt(12)).Round(2)
	}
	premiumCost := avgBaseRate.Add(premium.MarkupPerLabel).Mul(labels).Add(fee).Round(2)

	savings := standardCost.Sub(premiumCost)
	return PlanComparison{
		StandardCost:   standardCost,
		PremiumCost:    premiumCost,
		Savings:        savings,
		PremiumCheaper: savings.IsPositive(),
		BreakEven:      BreakEvenLabels(cycle),
		BillingCycle:   cycle,
	}
}
