package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shiplabel-gateway/config"
	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/retry"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// emailMessage is the JSON body posted to the delivery endpoint.
type emailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

// EmailNotifier implements ports.Notifier over an HTTP email delivery
// endpoint. Each send retries on its own budget; exhausting it returns an
// error that callers log and swallow, never failing the webhook ack.
type EmailNotifier struct {
	client HTTPClient
	cfg    config.EmailConfig
	policy retry.Policy
	log    zerolog.Logger
}

// NewEmailNotifier creates a new EmailNotifier with the default retry
// policy.
func NewEmailNotifier(client HTTPClient, cfg config.EmailConfig, log zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		client: client,
		cfg:    cfg,
		policy: retry.Default(),
		log:    log,
	}
}

// WithRetryPolicy returns the notifier with a replacement retry policy.
func (n *EmailNotifier) WithRetryPolicy(p retry.Policy) *EmailNotifier {
	n.policy = p
	return n
}

// Send delivers one confirmation email, retrying transport failures.
func (n *EmailNotifier) Send(ctx context.Context, notification ports.Notification) error {
	if n.cfg.Endpoint == "" {
		n.log.Debug().Str("to", notification.To).Msg("email endpoint not configured, skipping")
		return nil
	}

	body, err := json.Marshal(emailMessage{
		From:    n.cfg.From,
		To:      notification.To,
		Subject: notification.Subject,
		Body:    notification.Body,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	return n.policy.Do(ctx, func() error {
		sendCtx := ctx
		if n.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, n.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build email request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if n.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("email API responded with status %d", resp.StatusCode)
		}
		return nil
	})
}
