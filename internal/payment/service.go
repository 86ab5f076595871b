package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	errors "github.com/zennest/payment-service/internal"
	paymentmodel "github.com/zennest/payment-service/internal/core/datamodel/payment"
	"github.com/zennest/payment-service/internal/gateway"
)

// RepositoryAPI is the persistence contract for payment records.
type RepositoryAPI interface {
	Create(p *paymentmodel.Payment) error
	GetByID(id uuid.UUID) (*paymentmodel.Payment, error)
	GetByReference(reference string) (*paymentmodel.Payment, error)
	Update(p *paymentmodel.Payment) error
	CountByStatus(status paymentmodel.PaymentStatus) (int64, error)
	GetByStatus(status paymentmodel.PaymentStatus) ([]*paymentmodel.Payment, error)
}

// GatewayAPI is the outbound provider contract.
type GatewayAPI interface {
	Initialize(ctx context.Context, email string, amount int64) (*gateway.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*gateway.VerificationOutcome, error)
	ListBanks(ctx context.Context) json.RawMessage
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*gateway.ResolvedAccount, error)
}

// ServiceAPI is what the HTTP handlers depend on.
type ServiceAPI interface {
	InitializePayment(ctx context.Context, req *InitializePaymentRequest) (*gateway.InitializeResult, error)
	VerifyPayment(ctx context.Context, reference string) (*gateway.VerificationOutcome, error)
	GetBanks(ctx context.Context) json.RawMessage
	ResolveAccount(ctx context.Context, req *ResolveAccountRequest) (*gateway.ResolvedAccount, error)
}

type PaymentService struct {
	gateway    GatewayAPI
	repository RepositoryAPI
	reconciler *Reconciler
	metrics    MetricsRecorder
	logger     *slog.Logger
}

func NewPaymentService(gw GatewayAPI, repository RepositoryAPI, reconciler *Reconciler, metrics MetricsRecorder, logger *slog.Logger) *PaymentService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &PaymentService{
		gateway:    gw,
		repository: repository,
		reconciler: reconciler,
		metrics:    metrics,
		logger:     logger,
	}
}

// InitializePayment starts a transaction at the provider and persists a
// PENDING/UNCONFIRMED record under the provider-assigned reference. The raw
// provider response is returned so the caller can redirect the payer.
func (s *PaymentService) InitializePayment(ctx context.Context, req *InitializePaymentRequest) (*gateway.InitializeResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		s.logger.Error("initialize request validation failed", "error", err)
		return nil, err
	}

	result, err := s.gateway.Initialize(ctx, req.Email, req.Amount)
	if err != nil {
		s.logger.Error("gateway initialize failed", "error", err, "email", req.Email)
		return nil, err
	}

	if result.Data.Reference == "" {
		s.logger.Error("initialize response missing reference", "email", req.Email)
		return nil, errors.NewGatewayError("initialize response missing reference", nil)
	}

	now := time.Now().UTC()
	record := &paymentmodel.Payment{
		ID:            uuid.New(),
		Email:         req.Email,
		Amount:        req.Amount,
		PaymentType:   req.ResolvedPaymentType(),
		UserID:        req.UserID,
		PropertyID:    req.PropertyID,
		Reference:     result.Data.Reference,
		PaymentStatus: paymentmodel.StatusPending,
		Confirmation:  paymentmodel.ConfirmationUnconfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repository.Create(record); err != nil {
		s.logger.Error("failed to create payment record",
			"error", err,
			"reference", record.Reference)
		return nil, errors.NewInternalError("failed to create payment record", err)
	}

	s.metrics.PaymentInitiated(time.Since(start))
	s.logger.Info("payment initialized",
		"payment_id", record.ID,
		"reference", record.Reference,
		"amount", record.Amount,
		"payment_type", record.PaymentType)

	return result, nil
}

// VerifyPayment asks the provider for a transaction's current state and, when
// the provider returned transaction data, applies the same transition the
// webhook path would. A negative provider outcome is a result, not an error.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (*gateway.VerificationOutcome, error) {
	start := time.Now()

	outcome, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.logger.Error("gateway verify failed", "error", err, "reference", reference)
		return nil, err
	}

	if outcome.Transaction != nil {
		if applyErr := s.reconciler.Apply(ctx, outcome.Transaction); applyErr != nil {
			s.logger.Error("failed to apply verification result",
				"error", applyErr,
				"reference", reference)
			return nil, applyErr
		}
	}

	s.metrics.PaymentVerified(time.Since(start))
	return outcome, nil
}

// GetBanks proxies the provider's bank list; failures arrive pre-converted to
// a negative body by the gateway client.
func (s *PaymentService) GetBanks(ctx context.Context) json.RawMessage {
	return s.gateway.ListBanks(ctx)
}

// ResolveAccount resolves the account holder and creates a payout recipient
// at the provider.
func (s *PaymentService) ResolveAccount(ctx context.Context, req *ResolveAccountRequest) (*gateway.ResolvedAccount, error) {
	if err := req.Validate(); err != nil {
		s.logger.Error("resolve account validation failed", "error", err)
		return nil, err
	}

	resolved, err := s.gateway.ResolveAccount(ctx, req.AccountNumber, req.BankCode)
	if err != nil {
		s.logger.Error("resolve account failed",
			"error", err,
			"user_id", req.UserID,
			"bank_code", req.BankCode)
		return nil, err
	}

	return resolved, nil
}

// GetPaymentByReference looks up a record by its gateway reference.
func (s *PaymentService) GetPaymentByReference(reference string) (*paymentmodel.Payment, error) {
	return s.repository.GetByReference(reference)
}

// PendingPayments backs the pending-payments gauge exposed to the metrics
// observer's host.
func (s *PaymentService) PendingPayments() (int64, error) {
	return s.repository.CountByStatus(paymentmodel.StatusPending)
}
