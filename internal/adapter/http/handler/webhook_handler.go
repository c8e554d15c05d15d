package handler

import (
	"io"

	"shiplabel-gateway/internal/core/ports"
	"shiplabel-gateway/pkg/apperror"
	"shiplabel-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Signature header names, fixed by the providers.
	HeaderStripeSignature   = "stripe-signature"
	HeaderCoinbaseSignature = "x-cc-webhook-signature"
)

// WebhookHandler receives provider deliveries. Verification runs against
// the raw body before any parsing; the pipeline owns everything after.
type WebhookHandler struct {
	pipeline ports.WebhookPipeline
	adapters map[string]ports.ProviderAdapter
	log      zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler over the given provider
// adapters.
func NewWebhookHandler(pipeline ports.WebhookPipeline, log zerolog.Logger, adapters ...ports.ProviderAdapter) *WebhookHandler {
	byName := make(map[string]ports.ProviderAdapter, len(adapters))
	for _, a := range adapters {
		byName[string(a.Provider())] = a
	}
	return &WebhookHandler{
		pipeline: pipeline,
		adapters: byName,
		log:      log,
	}
}

// HandleStripe handles POST /webhooks/stripe.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	h.handle(c, "stripe", c.GetHeader(HeaderStripeSignature))
}

// HandleCoinbase handles POST /webhooks/coinbase.
func (h *WebhookHandler) HandleCoinbase(c *gin.Context) {
	h.handle(c, "coinbase", c.GetHeader(HeaderCoinbaseSignature))
}

func (h *WebhookHandler) handle(c *gin.Context, provider, signature string) {
	adapter, ok := h.adapters[provider]
	if !ok {
		response.Error(c, apperror.ErrNotFound("webhook provider"))
		return
	}

	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	event, err := adapter.VerifyAndNormalize(rawBody, signature)
	if err != nil {
		h.log.Warn().Err(err).Str("provider", provider).Msg("webhook verification failed")
		response.Error(c, err)
		return
	}

	if err := h.pipeline.Process(c.Request.Context(), event); err != nil {
		// SYS_001 after retry exhaustion: 500 makes the provider redeliver.
		response.Error(c, err)
		return
	}

	response.Received(c)
}
