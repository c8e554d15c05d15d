package service

import (
	"context"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

type analyticsService struct {
	repo ports.AnalyticsRepository
	log  zerolog.Logger
}

// NewAnalyticsService creates a new analytics service.
// If repo is nil, events are only written to the logger.
func NewAnalyticsService(repo ports.AnalyticsRepository, log zerolog.Logger) ports.AnalyticsService {
	return &analyticsService{repo: repo, log: log}
}

// Track records a business event asynchronously (fire-and-forget). A lost
// event never affects the ledger or the ack.
func (s *analyticsService) Track(ctx context.Context, event *domain.AnalyticsEvent) {
	go func() {
		logEvent := s.log.Info().
			Str("category", string(event.Category)).
			Str("action", event.Action)
		if event.AccountID != nil {
			logEvent = logEvent.Str("account_id", event.AccountID.String())
		}
		logEvent.Msg("analytics")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), event); err != nil {
				s.log.Warn().Err(err).Str("action", event.Action).Msg("failed to persist analytics event")
			}
		}
	}()
}
