package payment

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks the locally recorded lifecycle of a payment attempt.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusSuccess PaymentStatus = "SUCCESS"
	StatusFailed  PaymentStatus = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s PaymentStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// ConfirmationStatus tracks whether the gateway has definitively confirmed the
// outcome. It is independent of PaymentStatus: the two can disagree until a
// webhook arrives.
type ConfirmationStatus string

const (
	ConfirmationUnconfirmed ConfirmationStatus = "UNCONFIRMED"
	ConfirmationConfirmed   ConfirmationStatus = "CONFIRMED"
	ConfirmationFailed      ConfirmationStatus = "FAILED"
)

func (s ConfirmationStatus) Terminal() bool {
	return s == ConfirmationConfirmed || s == ConfirmationFailed
}

// PaymentType is the closed set of transaction purposes.
type PaymentType string

const (
	TypeBooking    PaymentType = "BOOKING"
	TypeRent       PaymentType = "RENT"
	TypeSale       PaymentType = "SALE"
	TypeMembership PaymentType = "MEMBERSHIP"
)

func (t PaymentType) Valid() bool {
	switch t {
	case TypeBooking, TypeRent, TypeSale, TypeMembership:
		return true
	}
	return false
}

type Payment struct {
	ID          uuid.UUID   `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	Email       string      `json:"email" gorm:"column:email;not null"`
	Amount      int64       `json:"amount" gorm:"column:amount;not null"`
	PaymentType PaymentType `json:"payment_type" gorm:"column:payment_type;not null"`

	// Set when the payer is a registered member / the payment targets a property.
	UserID     *uuid.UUID `json:"user_id,omitempty" gorm:"column:user_id"`
	PropertyID *uuid.UUID `json:"property_id,omitempty" gorm:"column:property_id"`

	// Gateway correlation. Reference is assigned at initiation and is the sole
	// key used to match webhook deliveries; the transaction ID arrives later.
	Reference            string     `json:"reference" gorm:"column:reference;uniqueIndex"`
	GatewayTransactionID string     `json:"gateway_transaction_id,omitempty" gorm:"column:gateway_transaction_id"`
	GatewayResponse      string     `json:"gateway_response,omitempty" gorm:"column:gateway_response"`
	Channel              string     `json:"channel,omitempty" gorm:"column:channel"`
	Currency             string     `json:"currency,omitempty" gorm:"column:currency"`
	Fees                 *int64     `json:"fees,omitempty" gorm:"column:fees"`
	PaidAt               *time.Time `json:"paid_at,omitempty" gorm:"column:paid_at"`

	PaymentStatus PaymentStatus      `json:"payment_status" gorm:"column:payment_status;not null"`
	Confirmation  ConfirmationStatus `json:"confirmation_status" gorm:"column:confirmation_status;not null;default:UNCONFIRMED"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
