package postgres

import (
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	errors "github.com/zennest/payment-service/internal"
	paymentmodel "github.com/zennest/payment-service/internal/core/datamodel/payment"
	paymentpkg "github.com/zennest/payment-service/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *paymentmodel.Payment) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uuid.UUID) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, r.translate(err)
	}
	return &p, nil
}

func (r *PaymentRepository) GetByReference(reference string) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.Where("reference = ?", reference).First(&p).Error
	if err != nil {
		return nil, r.translate(err)
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *paymentmodel.Payment) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	return r.db.Save(p).Error
}

func (r *PaymentRepository) CountByStatus(status paymentmodel.PaymentStatus) (int64, error) {
	var count int64
	err := r.db.Model(&paymentmodel.Payment{}).Where("payment_status = ?", status).Count(&count).Error
	return count, err
}

func (r *PaymentRepository) GetByStatus(status paymentmodel.PaymentStatus) ([]*paymentmodel.Payment, error) {
	var payments []*paymentmodel.Payment
	err := r.db.Where("payment_status = ?", status).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) translate(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrPaymentNotFound
	}
	return err
}
