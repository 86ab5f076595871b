package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypePaymentFailed    = "payment.failed"
)

// PaymentConfirmedEvent is published after a webhook or verify call moves a
// payment into SUCCESS/CONFIRMED.
type PaymentConfirmedEvent struct {
	BaseEvent
	PaymentID            string `json:"payment_id"`
	Reference            string `json:"reference"`
	Amount               int64  `json:"amount"`
	GatewayTransactionID string `json:"gateway_transaction_id"`
	Channel              string `json:"channel"`
	Currency             string `json:"currency"`
}

func NewPaymentConfirmedEvent(paymentID, reference string, amount int64, gatewayTransactionID, channel, currency string) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":             paymentID,
				"reference":              reference,
				"amount":                 amount,
				"gateway_transaction_id": gatewayTransactionID,
				"channel":                channel,
				"currency":               currency,
			},
		},
		PaymentID:            paymentID,
		Reference:            reference,
		Amount:               amount,
		GatewayTransactionID: gatewayTransactionID,
		Channel:              channel,
		Currency:             currency,
	}
}

// PaymentFailedEvent is published after a failed or abandoned outcome.
type PaymentFailedEvent struct {
	BaseEvent
	PaymentID       string `json:"payment_id"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	GatewayResponse string `json:"gateway_response"`
}

func NewPaymentFailedEvent(paymentID, reference string, amount int64, gatewayResponse string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":       paymentID,
				"reference":        reference,
				"amount":           amount,
				"gateway_response": gatewayResponse,
			},
		},
		PaymentID:       paymentID,
		Reference:       reference,
		Amount:          amount,
		GatewayResponse: gatewayResponse,
	}
}
