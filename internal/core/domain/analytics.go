package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnalyticsCategory groups tracked events.
type AnalyticsCategory string

const (
	AnalyticsCategoryPayment      AnalyticsCategory = "payment"
	AnalyticsCategorySubscription AnalyticsCategory = "subscription"
	AnalyticsCategoryWebhook      AnalyticsCategory = "webhook"
	AnalyticsCategoryError        AnalyticsCategory = "error"
)

// AnalyticsEvent records a business event for reporting. Delivery is
// fire-and-forget; losing one must never affect the ledger.
type AnalyticsEvent struct {
	ID        uuid.UUID         `json:"id"`
	Category  AnalyticsCategory `json:"category"`
	Action    string            `json:"action"`
	AccountID *uuid.UUID        `json:"account_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
