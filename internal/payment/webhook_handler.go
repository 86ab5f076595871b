package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zennest/payment-service/internal/gateway"
	"github.com/zennest/payment-service/internal/transport"
)

// ReconcilerAPI applies an authenticated provider event to local state.
type ReconcilerAPI interface {
	Apply(ctx context.Context, data *gateway.TransactionData) error
}

// WebhookHandler authenticates and applies provider-pushed status updates.
// Acknowledgement semantics matter here: every authenticated, well-formed
// delivery is acked 200 whether or not a record matched, so the provider
// does not retry events that will never resolve by retrying.
type WebhookHandler struct {
	*transport.BaseHandler
	reconciler    ReconcilerAPI
	webhookSecret string
	metrics       MetricsRecorder
	logger        *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, reconciler ReconcilerAPI, webhookSecret string, metrics MetricsRecorder, logger *slog.Logger) *WebhookHandler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &WebhookHandler{
		BaseHandler:   baseHandler,
		reconciler:    reconciler,
		webhookSecret: webhookSecret,
		metrics:       metrics,
		logger:        logger,
	}
}

const webhookAckBody = "Webhook processed"

// HandleGatewayWebhook handles POST /webhook.
//
// The signature is computed over the raw body bytes exactly as received;
// the body must not be decoded before verification.
func (h *WebhookHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.metrics.WebhookReceived()

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.metrics.WebhookError()
		h.WriteError(w, http.StatusInternalServerError, "Error processing webhook payload")
		return
	}

	signature := r.Header.Get(gateway.SignatureHeader)
	if !gateway.VerifySignature(rawBody, signature, h.webhookSecret) {
		h.logger.Error("invalid webhook signature")
		h.metrics.WebhookError()
		h.WriteError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var envelope WebhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		h.logger.Error("failed to decode webhook envelope", "error", err)
		h.metrics.WebhookError()
		h.WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if envelope.Data == nil {
		h.logger.Warn("webhook payload missing data field", "event", envelope.Event)
		h.metrics.WebhookError()
		h.WriteError(w, http.StatusBadRequest, "Invalid payload: no data field")
		return
	}

	h.logger.Info("received webhook",
		"event", envelope.Event,
		"reference", envelope.Data.Reference,
		"provider_status", envelope.Data.Status)

	if err := h.reconciler.Apply(r.Context(), envelope.Data); err != nil {
		// Persistence failures are retryable; let the provider redeliver.
		h.logger.Error("failed to process webhook",
			"error", err,
			"reference", envelope.Data.Reference)
		h.metrics.WebhookError()
		h.WriteError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	h.metrics.WebhookProcessed(time.Since(start))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(webhookAckBody)); err != nil {
		h.logger.Error("failed to write webhook ack", "error", err)
	}
}
