package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a dashboard user owning one wallet and one subscription.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
