package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitialGrant is the starting credit for new accounts.
var InitialGrant = decimal.RequireFromString("50.00")

// Wallet holds an account's prepaid funds. Balance always equals
// InitialGrant plus the sum of all transaction amounts; the stored value is
// a derived convenience kept in sync inside the same database transaction
// that appends the ledger entry.
type Wallet struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Balance      decimal.Decimal `json:"balance"`
	InitialGrant decimal.Decimal `json:"initial_grant"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SavingsStats are the aggregates derived from shipping transactions.
type SavingsStats struct {
	SavingsTotal decimal.Decimal `json:"savings_total"`
	LabelCount   int64           `json:"label_count"`
}

// CanAfford reports whether the wallet covers the given fee.
func (w *Wallet) CanAfford(fee decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(fee)
}
