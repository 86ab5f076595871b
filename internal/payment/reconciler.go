package payment

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	errors "github.com/zennest/payment-service/internal"
	"github.com/zennest/payment-service/internal/core/events"
	paymentmodel "github.com/zennest/payment-service/internal/core/datamodel/payment"
	"github.com/zennest/payment-service/internal/gateway"
)

// Reconciler applies an authenticated provider event to the local record for
// its reference. Updates for the same reference are serialized behind a keyed
// mutex so concurrent deliveries cannot interleave their read-modify-write,
// and terminal statuses never regress.
type Reconciler struct {
	repo     RepositoryAPI
	eventBus *events.EventBus
	metrics  MetricsRecorder
	logger   *slog.Logger

	refLocks sync.Map // reference -> *sync.Mutex
}

func NewReconciler(repo RepositoryAPI, eventBus *events.EventBus, metrics MetricsRecorder, logger *slog.Logger) *Reconciler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Reconciler{
		repo:     repo,
		eventBus: eventBus,
		metrics:  metrics,
		logger:   logger,
	}
}

func (r *Reconciler) lockFor(reference string) *sync.Mutex {
	mu, _ := r.refLocks.LoadOrStore(reference, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Apply maps the provider status onto the record, overwrites correlation
// metadata with the delivery's values, and persists. An unmatched reference
// is logged and swallowed: the provider must not keep retrying an event we
// will never recognize.
func (r *Reconciler) Apply(ctx context.Context, data *gateway.TransactionData) error {
	if data == nil {
		return errors.ErrInvalidEnvelope
	}

	reference := data.Reference

	mu := r.lockFor(reference)
	mu.Lock()
	defer mu.Unlock()

	p, err := r.repo.GetByReference(reference)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodePaymentNotFound {
			r.logger.Warn("no payment found for webhook reference", "reference", reference)
			return nil
		}
		return err
	}

	previousStatus := p.PaymentStatus
	providerStatus := strings.ToLower(data.Status)

	switch providerStatus {
	case "success":
		if !p.PaymentStatus.Terminal() || p.PaymentStatus == paymentmodel.StatusSuccess {
			p.PaymentStatus = paymentmodel.StatusSuccess
			p.Confirmation = paymentmodel.ConfirmationConfirmed
		} else {
			r.logger.Warn("ignoring status regression for terminal payment",
				"reference", reference,
				"current_status", p.PaymentStatus,
				"provider_status", providerStatus)
		}
	case "failed", "abandoned":
		if !p.PaymentStatus.Terminal() || p.PaymentStatus == paymentmodel.StatusFailed {
			p.PaymentStatus = paymentmodel.StatusFailed
			p.Confirmation = paymentmodel.ConfirmationFailed
		} else {
			r.logger.Warn("ignoring status regression for terminal payment",
				"reference", reference,
				"current_status", p.PaymentStatus,
				"provider_status", providerStatus)
		}
	default:
		r.logger.Info("provider status does not map to a transition, updating metadata only",
			"reference", reference,
			"provider_status", providerStatus)
	}

	// Correlation metadata always reflects the latest delivery.
	if data.ID.String() != "" {
		p.GatewayTransactionID = data.ID.String()
	}
	p.GatewayResponse = data.GatewayResponse
	p.Channel = data.Channel
	p.Currency = data.Currency
	p.Fees = data.Fees

	if data.PaidAt != "" {
		paidAt, parseErr := time.Parse(time.RFC3339, data.PaidAt)
		if parseErr != nil {
			r.logger.Error("failed to parse paid_at, continuing without it",
				"reference", reference,
				"paid_at", data.PaidAt,
				"error", parseErr)
		} else {
			p.PaidAt = &paidAt
		}
	}

	p.UpdatedAt = time.Now().UTC()

	if err := r.repo.Update(p); err != nil {
		r.logger.Error("failed to persist reconciled payment",
			"reference", reference,
			"error", err)
		return err
	}

	r.logger.Info("payment reconciled",
		"reference", reference,
		"payment_status", p.PaymentStatus,
		"confirmation_status", p.Confirmation)

	if previousStatus != p.PaymentStatus {
		r.emitOutcome(ctx, p)
	}

	return nil
}

func (r *Reconciler) emitOutcome(ctx context.Context, p *paymentmodel.Payment) {
	switch p.PaymentStatus {
	case paymentmodel.StatusSuccess:
		r.metrics.PaymentSucceeded()
		if r.eventBus != nil {
			event := events.NewPaymentConfirmedEvent(
				p.ID.String(),
				p.Reference,
				p.Amount,
				p.GatewayTransactionID,
				p.Channel,
				p.Currency,
			)
			r.eventBus.Publish(ctx, event)
		}
	case paymentmodel.StatusFailed:
		r.metrics.PaymentFailed()
		if r.eventBus != nil {
			event := events.NewPaymentFailedEvent(
				p.ID.String(),
				p.Reference,
				p.Amount,
				p.GatewayResponse,
			)
			r.eventBus.Publish(ctx, event)
		}
	}
}
