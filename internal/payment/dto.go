package payment

import (
	"github.com/google/uuid"

	errors "github.com/zennest/payment-service/internal"
	"github.com/zennest/payment-service/internal/core/common/validation"
	paymentmodel "github.com/zennest/payment-service/internal/core/datamodel/payment"
	"github.com/zennest/payment-service/internal/gateway"
)

// InitializePaymentRequest is the body of POST /payment/initialize. Amount is
// in the currency's minor unit (kobo for NGN).
type InitializePaymentRequest struct {
	Email       string     `json:"email"`
	Amount      int64      `json:"amount"`
	PaymentType string     `json:"payment_type,omitempty"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	PropertyID  *uuid.UUID `json:"property_id,omitempty"`
}

func (r *InitializePaymentRequest) Validate() error {
	if appErr := validation.ValidatePaymentAmount(r.Amount); appErr != nil {
		return appErr
	}

	validator := validation.NewValidator()
	validator.Field("email", r.Email).Required().Email()
	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}

	if r.PaymentType != "" && !paymentmodel.PaymentType(r.PaymentType).Valid() {
		return errors.NewValidationError("unknown payment type", errors.ErrCodeInvalidType)
	}
	return nil
}

// ResolvedPaymentType defaults untagged payments to bookings.
func (r *InitializePaymentRequest) ResolvedPaymentType() paymentmodel.PaymentType {
	if r.PaymentType == "" {
		return paymentmodel.TypeBooking
	}
	return paymentmodel.PaymentType(r.PaymentType)
}

// ResolveAccountRequest is the body of POST /payout-profile/resolve.
type ResolveAccountRequest struct {
	UserID        string `json:"userId"`
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
}

func (r *ResolveAccountRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("accountNumber", r.AccountNumber).Required()
	validator.Field("bankCode", r.BankCode).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// WebhookEnvelope is the provider's event envelope. Data is nil when the
// delivery lacks a data object, which is a hard reject.
type WebhookEnvelope struct {
	Event string                   `json:"event"`
	Data  *gateway.TransactionData `json:"data"`
}
