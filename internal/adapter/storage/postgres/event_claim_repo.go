package postgres

import (
	"context"
	"fmt"
	"time"

	"shiplabel-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EventClaimRepo implements ports.EventClaimRepository. The event_claims
// table carries a primary key on event_id; claiming is a single insert so
// two concurrent deliveries can never both win.
type EventClaimRepo struct {
	pool Pool
}

// NewEventClaimRepo creates a new EventClaimRepo.
func NewEventClaimRepo(pool Pool) *EventClaimRepo {
	return &EventClaimRepo{pool: pool}
}

// Claim records the marker inside the caller's transaction. ON CONFLICT DO
// NOTHING leaves RowsAffected at zero for the losing delivery, so the
// boolean is exact even when both deliveries race on the same event.
func (r *EventClaimRepo) Claim(ctx context.Context, tx pgx.Tx, claim *domain.EventClaim) (bool, error) {
	query := `INSERT INTO event_claims (event_id, provider, kind, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING`

	tag, err := tx.Exec(ctx, query,
		claim.EventID, string(claim.Provider), string(claim.Kind), claim.ClaimedAt)
	if err != nil {
		return false, fmt.Errorf("claim event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// PurgeOlderThan drops markers past the retention horizon.
func (r *EventClaimRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_claims WHERE claimed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge event claims: %w", err)
	}
	return tag.RowsAffected(), nil
}
