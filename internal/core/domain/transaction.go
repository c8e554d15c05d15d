package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the kind of ledger entry.
type TransactionKind string

const (
	TransactionKindDeposit  TransactionKind = "deposit"
	TransactionKindShipping TransactionKind = "shipping"
	TransactionKindRefund   TransactionKind = "refund"
)

// Transaction is an immutable ledger entry. Deposits and refunds carry a
// positive amount, shipping charges a negative one. The wallet balance is
// never touched except by appending one of these.
type Transaction struct {
	ID          uuid.UUID        `json:"id"`
	WalletID    uuid.UUID        `json:"wallet_id"`
	Kind        TransactionKind  `json:"kind"`
	Amount      decimal.Decimal  `json:"amount"`
	BaseRate    *decimal.Decimal `json:"base_rate,omitempty"`
	RetailRate  *decimal.Decimal `json:"retail_rate,omitempty"`
	Savings     *decimal.Decimal `json:"savings,omitempty"`
	ReferenceID *string          `json:"reference_id,omitempty"` // tracking number or provider event ID
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
}

// IsCredit returns true when the entry increases the balance.
func (t *Transaction) IsCredit() bool {
	return t.Kind == TransactionKindDeposit || t.Kind == TransactionKindRefund
}

// Valid checks the per-kind invariants: credits positive, charges negative,
// shipping entries always priced with a savings figure.
func (t *Transaction) Valid() bool {
	switch t.Kind {
	case TransactionKindDeposit, TransactionKindRefund:
		return t.Amount.IsPositive()
	case TransactionKindShipping:
		return t.Amount.IsNegative() && t.Savings != nil
	default:
		return false
	}
}
