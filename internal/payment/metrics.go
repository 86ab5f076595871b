package payment

import "time"

// MetricsRecorder receives lifecycle signals from the payment core. The
// implementation (and its backend registration) belongs to the host
// application; the core only calls it at well-defined points.
type MetricsRecorder interface {
	PaymentInitiated(duration time.Duration)
	PaymentVerified(duration time.Duration)
	PaymentSucceeded()
	PaymentFailed()
	WebhookReceived()
	WebhookError()
	WebhookProcessed(duration time.Duration)
}

// NoopMetrics discards every signal.
type NoopMetrics struct{}

func (NoopMetrics) PaymentInitiated(time.Duration) {}
func (NoopMetrics) PaymentVerified(time.Duration)  {}
func (NoopMetrics) PaymentSucceeded()              {}
func (NoopMetrics) PaymentFailed()                 {}
func (NoopMetrics) WebhookReceived()               {}
func (NoopMetrics) WebhookError()                  {}
func (NoopMetrics) WebhookProcessed(time.Duration) {}
