package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shiplabel-gateway/internal/core/domain"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"
	"shiplabel-gateway/pkg/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// claimCacheTTL bounds the Redis fast-path marker. The durable claim in
// Postgres outlives it, so an expired marker only costs one extra DB round
// trip on a late replay.
const claimCacheTTL = 24 * time.Hour

// WebhookPipelineImpl implements ports.WebhookPipeline: it applies one
// verified, normalized event exactly once and dispatches side effects.
type WebhookPipelineImpl struct {
	walletSvc  ports.WalletService
	subSvc     ports.SubscriptionService
	claimRepo  ports.EventClaimRepository
	claimCache ports.ClaimCache
	transactor ports.DBTransactor
	notifier   ports.Notifier
	analytics  ports.AnalyticsService
	policy     retry.Policy
	log        zerolog.Logger

	// dispatch runs side effects after the ack. Swapped in tests to run
	// synchronously.
	dispatch func(fn func())
}

// NewWebhookPipeline creates a new WebhookPipelineImpl with the default
// retry policy and asynchronous side-effect dispatch.
func NewWebhookPipeline(
	walletSvc ports.WalletService,
	subSvc ports.SubscriptionService,
	claimRepo ports.EventClaimRepository,
	claimCache ports.ClaimCache,
	transactor ports.DBTransactor,
	notifier ports.Notifier,
	analytics ports.AnalyticsService,
	log zerolog.Logger,
) *WebhookPipelineImpl {
	return &WebhookPipelineImpl{
		walletSvc:  walletSvc,
		subSvc:     subSvc,
		claimRepo:  claimRepo,
		claimCache: claimCache,
		transactor: transactor,
		notifier:   notifier,
		analytics:  analytics,
		policy:     retry.Default(),
		log:        log,
		dispatch:   func(fn func()) { go fn() },
	}
}

// WithRetryPolicy returns the pipeline with a replacement retry policy.
func (s *WebhookPipelineImpl) WithRetryPolicy(p retry.Policy) *WebhookPipelineImpl {
	s.policy = p
	return s
}

// WithDispatcher replaces the side-effect dispatcher. Tests pass a
// synchronous one.
func (s *WebhookPipelineImpl) WithDispatcher(dispatch func(fn func())) *WebhookPipelineImpl {
	s.dispatch = dispatch
	return s
}

// Process applies a normalized event. Duplicates and non-mutating kinds
// return nil so the handler acknowledges them; a mutation that exhausts its
// retry budget returns SYS_001 so the provider redelivers. Deterministic
// rejections skip the retry budget and surface as-is.
func (s *WebhookPipelineImpl) Process(ctx context.Context, event *domain.NormalizedEvent) error {
	log := s.log.With().
		Str("event_id", event.EventID).
		Str("provider", string(event.Provider)).
		Str("kind", string(event.Kind)).
		Logger()

	if !event.RequiresMutation() {
		s.trackNonMutating(ctx, event)
		log.Info().Msg("event acknowledged without mutation")
		return nil
	}

	// Fast path: the Redis marker short-circuits retry storms before they
	// reach the database. Failure here only means we fall through.
	seen, err := s.claimCache.Seen(ctx, event.EventID)
	if err != nil {
		log.Warn().Err(err).Msg("claim cache check failed, falling through to DB")
	}
	if seen {
		log.Info().Msg("duplicate event short-circuited by cache")
		return nil
	}

	duplicate := false
	err = s.policy.Do(ctx, func() error {
		applied, err := s.applyOnce(ctx, event)
		if err != nil {
			log.Warn().Err(err).Msg("event application attempt failed")
			// A rejection (malformed payload, impossible transition)
			// stays a rejection on every attempt; only transient store
			// failures earn the backoff.
			if isPermanent(err) {
				return retry.Permanent(err)
			}
			return err
		}
		duplicate = !applied
		return nil
	})
	if err != nil {
		if isPermanent(err) {
			log.Error().Err(err).Msg("event rejected, not retryable")
			return err
		}
		log.Error().Err(err).Msg("event application retries exhausted")
		return apperror.ErrTransientStore(err)
	}

	if duplicate {
		log.Info().Msg("duplicate event, already applied")
		return nil
	}

	// Post-commit marker is best effort: the durable claim already
	// guarantees exactly-once.
	if err := s.claimCache.Mark(ctx, event.EventID, claimCacheTTL); err != nil {
		log.Warn().Err(err).Msg("failed to mark event in claim cache")
	}

	s.trackApplied(ctx, event)
	s.dispatchNotification(event)

	log.Info().Msg("event applied")
	return nil
}

// isPermanent reports whether the failure is a deterministic rejection
// rather than a transient store fault.
func isPermanent(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError
}

// applyOnce runs the claim and the mutation in one database transaction.
// The false return means another delivery already holds the claim.
func (s *WebhookPipelineImpl) applyOnce(ctx context.Context, event *domain.NormalizedEvent) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	claimed, err := s.claimRepo.Claim(ctx, dbTx, &domain.EventClaim{
		EventID:   event.EventID,
		Provider:  event.Provider,
		Kind:      event.Kind,
		ClaimedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("claim event: %w", err)
	}
	if !claimed {
		return false, nil
	}

	switch event.Kind {
	case domain.EventKindDepositConfirmed, domain.EventKindPaymentSucceeded:
		deposit, ok := event.Deposit()
		if !ok {
			return false, apperror.ErrMalformedEvent(fmt.Errorf("event %s lacks deposit payload", event.EventID))
		}
		description := fmt.Sprintf("Wallet deposit via %s", event.Provider)
		if _, err := s.walletSvc.Credit(ctx, dbTx, deposit.AccountID, deposit.Amount, event.EventID, description); err != nil {
			return false, fmt.Errorf("credit wallet: %w", err)
		}

	case domain.EventKindCheckoutCompleted, domain.EventKindSubscriptionActivated,
		domain.EventKindSubscriptionCancelled:
		plan, ok := event.PlanChange()
		if !ok {
			return false, apperror.ErrMalformedEvent(fmt.Errorf("event %s lacks plan payload", event.EventID))
		}
		tr, ok := domain.TransitionForEvent(event.Kind, plan.Cycle)
		if !ok {
			return false, apperror.ErrMalformedEvent(fmt.Errorf("event kind %s has no transition", event.Kind))
		}
		if _, err := s.subSvc.Apply(ctx, dbTx, plan.AccountID, tr); err != nil {
			return false, fmt.Errorf("apply transition: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

// dispatchNotification sends the confirmation email off the request path.
// Delivery failures are logged and swallowed; they never fail the ack.
func (s *WebhookPipelineImpl) dispatchNotification(event *domain.NormalizedEvent) {
	plan, ok := event.PlanChange()
	if !ok || plan.Email == "" {
		return
	}

	notification := ports.Notification{
		To:      plan.Email,
		Subject: fmt.Sprintf("Your %s plan is confirmed", plan.Plan),
		Body: fmt.Sprintf(
			"Your subscription is now %s (%s billing). Label pricing updates immediately.",
			plan.Plan, plan.Cycle),
	}
	if plan.Plan == domain.PlanStandard {
		notification.Subject = "Your subscription has been cancelled"
		notification.Body = "Your plan is back on STANDARD. Labels are billed at the pay-as-you-go rate."
	}

	eventID := event.EventID
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, notification); err != nil {
			s.log.Error().Err(err).
				Str("event_id", eventID).
				Str("to", notification.To).
				Msg("confirmation email failed after retries")
		}
	})
}

func (s *WebhookPipelineImpl) trackApplied(ctx context.Context, event *domain.NormalizedEvent) {
	switch event.Kind {
	case domain.EventKindDepositConfirmed, domain.EventKindPaymentSucceeded:
		deposit, _ := event.Deposit()
		s.analytics.Track(ctx, &domain.AnalyticsEvent{
			ID:        uuid.New(),
			Category:  domain.AnalyticsCategoryPayment,
			Action:    "success",
			AccountID: &deposit.AccountID,
			Metadata: map[string]string{
				"provider": string(event.Provider),
				"event_id": event.EventID,
				"amount":   deposit.Amount.StringFixed(2),
			},
			CreatedAt: time.Now().UTC(),
		})
	case domain.EventKindCheckoutCompleted, domain.EventKindSubscriptionActivated,
		domain.EventKindSubscriptionCancelled:
		plan, _ := event.PlanChange()
		action := "activated"
		if plan.Plan == domain.PlanStandard {
			action = "cancelled"
		}
		s.analytics.Track(ctx, &domain.AnalyticsEvent{
			ID:        uuid.New(),
			Category:  domain.AnalyticsCategorySubscription,
			Action:    action,
			AccountID: &plan.AccountID,
			Metadata: map[string]string{
				"provider": string(event.Provider),
				"event_id": event.EventID,
				"plan":     string(plan.Plan),
				"cycle":    string(plan.Cycle),
			},
			CreatedAt: time.Now().UTC(),
		})
	}
}

func (s *WebhookPipelineImpl) trackNonMutating(ctx context.Context, event *domain.NormalizedEvent) {
	if failure, ok := event.Failure(); ok {
		s.analytics.Track(ctx, &domain.AnalyticsEvent{
			ID:        uuid.New(),
			Category:  domain.AnalyticsCategoryPayment,
			Action:    "failed",
			AccountID: &failure.AccountID,
			Metadata: map[string]string{
				"provider": string(event.Provider),
				"event_id": event.EventID,
				"amount":   failure.Amount.StringFixed(2),
				"reason":   failure.Reason,
			},
			CreatedAt: time.Now().UTC(),
		})
		return
	}

	s.analytics.Track(ctx, &domain.AnalyticsEvent{
		ID:       uuid.New(),
		Category: domain.AnalyticsCategoryWebhook,
		Action:   "ignored",
		Metadata: map[string]string{
			"provider": string(event.Provider),
			"event_id": event.EventID,
			"kind":     string(event.Kind),
		},
		CreatedAt: time.Now().UTC(),
	})
}
