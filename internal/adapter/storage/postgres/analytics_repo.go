package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"shiplabel-gateway/internal/core/domain"
)

// AnalyticsRepo implements ports.AnalyticsRepository. Metadata is stored
// as jsonb so new dimensions never need a migration.
type AnalyticsRepo struct {
	pool Pool
}

// NewAnalyticsRepo creates a new AnalyticsRepo.
func NewAnalyticsRepo(pool Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

// Create appends one tracked event.
func (r *AnalyticsRepo) Create(ctx context.Context, event *domain.AnalyticsEvent) error {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(event.Metadata); err != nil {
			return fmt.Errorf("marshal analytics metadata: %w", err)
		}
	}

	query := `INSERT INTO analytics_events (id, category, action, account_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		event.ID, string(event.Category), event.Action, event.AccountID, metadata, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}
