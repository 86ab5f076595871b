package payment_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/zennest/payment-service/internal"
	paymentmodel "github.com/zennest/payment-service/internal/core/datamodel/payment"
	"github.com/zennest/payment-service/internal/core/events"
	"github.com/zennest/payment-service/internal/gateway"
	"github.com/zennest/payment-service/internal/payment"
)

var _ = Describe("Reconciler", func() {
	var (
		reconciler *payment.Reconciler
		mockRepo   *mockRepository
		metrics    *mockMetrics
		eventBus   *events.EventBus
		ctx        context.Context

		confirmedEvents chan events.Event
		failedEvents    chan events.Event
	)

	fees := func(v int64) *int64 { return &v }

	seedPending := func(reference string) *paymentmodel.Payment {
		p := &paymentmodel.Payment{
			ID:            uuid.New(),
			Email:         "payer@example.com",
			Amount:        500000,
			PaymentType:   paymentmodel.TypeBooking,
			Reference:     reference,
			PaymentStatus: paymentmodel.StatusPending,
			Confirmation:  paymentmodel.ConfirmationUnconfirmed,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		}
		mockRepo.seed(p)
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockRepository()
		metrics = newMockMetrics()
		logger := newTestLogger()
		eventBus = events.NewEventBus(logger)

		confirmedEvents = make(chan events.Event, 10)
		failedEvents = make(chan events.Event, 10)
		eventBus.Subscribe(events.EventTypePaymentConfirmed, func(ctx context.Context, event events.Event) error {
			confirmedEvents <- event
			return nil
		})
		eventBus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, event events.Event) error {
			failedEvents <- event
			return nil
		})

		reconciler = payment.NewReconciler(mockRepo, eventBus, metrics, logger)
	})

	Describe("Apply", func() {
		Context("when the provider reports success", func() {
			It("should confirm the payment and record its metadata", func() {
				seedPending("ref_123")

				err := reconciler.Apply(ctx, &gateway.TransactionData{
					ID:              json.Number("4099260516"),
					Status:          "success",
					Reference:       "ref_123",
					GatewayResponse: "Successful",
					Channel:         "card",
					Currency:        "NGN",
					Fees:            fees(100),
					PaidAt:          "2024-01-01T10:00:00+00:00",
				})

				Expect(err).ToNot(HaveOccurred())

				updated := mockRepo.byReference("ref_123")
				Expect(updated.PaymentStatus).To(Equal(paymentmodel.StatusSuccess))
				Expect(updated.Confirmation).To(Equal(paymentmodel.ConfirmationConfirmed))
				Expect(updated.GatewayTransactionID).To(Equal("4099260516"))
				Expect(updated.GatewayResponse).To(Equal("Successful"))
				Expect(updated.Channel).To(Equal("card"))
				Expect(updated.Currency).To(Equal("NGN"))
				Expect(*updated.Fees).To(Equal(int64(100)))
				Expect(updated.PaidAt).ToNot(BeNil())
				Expect(updated.PaidAt.UTC()).To(Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))

				_, _, succeeded, failed := metrics.counts()
				Expect(succeeded).To(Equal(1))
				Expect(failed).To(Equal(0))
				Eventually(confirmedEvents).Should(Receive())
			})

			It("should treat provider status case-insensitively", func() {
				seedPending("ref_123")

				err := reconciler.Apply(ctx, &gateway.TransactionData{
					Status:    "SUCCESS",
					Reference: "ref_123",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(mockRepo.byReference("ref_123").PaymentStatus).To(Equal(paymentmodel.StatusSuccess))
			})
		})

		Context("when the provider reports failure", func() {
			It("should fail the payment on a failed status", func() {
				p := seedPending("ref_123")

				err := reconciler.Apply(ctx, &gateway.TransactionData{
					Status:          "failed",
					Reference:       "ref_123",
					GatewayResponse: "Declined",
				})

				Expect(err).ToNot(HaveOccurred())

				updated := mockRepo.byReference("ref_123")
				Expect(updated.ID).To(Equal(p.ID))
				Expect(updated.PaymentStatus).To(Equal(paymentmodel.StatusFailed))
				Expect(updated.Confirmation).To(Equal(paymentmodel.ConfirmationFailed))
				Expect(updated.GatewayResponse).To(Equal("Declined"))

				_, _, succeeded, failed := metrics.counts()
				Expect(succeeded).To(Equal(0))
				Expect(failed).To(Equal(1))
				Eventually(failedEvents).Should(Receive())
			})

			It("should fail the payment on an abandoned status", func() {
				seedPending("ref_123")

				err := reconciler.Apply(ctx, &gateway.TransactionData{
					Status:    "abandoned",
					Reference: "ref_123",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(mockRepo.byReference("ref_123").PaymentStatus).To(Equal(paymentmodel.StatusFailed))
			})
		})

		Context("when the provider status is unrecognized", func() {
			It("should update metadata without a status transition", func() {
				seedPending("ref_123")

				err := reconciler.Apply(ctx, &gateway.TransactionData{
					ID:              json.Number("77"),
					Status:          "reversed",
					Reference:       "ref_123",
					GatewayResponse: "Reversal initiated",
				})

				Expect(err).ToNot(HaveOccurred())

				updated := mockRepo.byReference("ref_123")
				Expect(updated.PaymentStatus).To(Equal(paymentmodel.StatusPending))
				Expect(updated.Confirmation).To(Equal(paymentmodel.ConfirmationUnconfirmed))
				Expect(updated.GatewayTransactionID).To(Equal("77"))
				Expect(updated.GatewayResponse).To(Equal("Reversal initiated"))

				_, _, succeeded, failed := metrics.counts()
				Expect(succeeded).To(Equal(0))
				Expect(failed).To(Equal(0))
				Consistently(confirmedEvents).ShouldNot(Receive())
			})
		})

		Context("when no record matches the reference", func() {
			It("should swallow the delivery without error", func() {
				err := reconciler.Apply(ctx, &gateway.TransactionData{
					Status:    "success",
					Reference: "ref_unknown",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(mockRepo.updateCalls).To(Equal(0))
			})
		})

		Context("when the data object is missing", func() {
			It("should return an invalid payload error", func() {
				err := reconciler.Apply(ctx, nil)

				Expect(err).To(Equal(errors.ErrInvalidEnvelope))
			})
		})

		Context("when the same outcome is delivered twice", func() {
			It("should apply idempotently and emit the outcome once", func() {
				seedPending("ref_123")
				data := &gateway.TransactionData{
					Status:    "success",
					Reference: "ref_123",
				}

				Expect(reconciler.Apply(ctx, data)).To(Succeed())
				Expect(reconciler.Apply(ctx, data)).To(Succeed())

				Expect(mockRepo.byReference("ref_123").PaymentStatus).To(Equal(paymentmodel.StatusSuccess))
				Expect(mockRepo.updateCalls).To(Equal(2))

				_, _, succeeded, _ := metrics.counts()
				Expect(succeeded).To(Equal(1))
				Eventually(confirmedEvents).Should(Receive())
				Consistently(confirmedEvents).ShouldNot(Receive())
			})
		})

		Context("when a terminal payment receives a contradicting status", func() {
			It("should keep the terminal status but refresh metadata", func() {
				seedPending("ref_123")
				Expect(reconciler.Apply(ctx, &gateway.TransactionData{
					Status:    "success",
					Reference: "ref_123",
				})).To(Succeed())

				err := reconciler.Apply(ctx, &gateway.TransactionData{
					Status:          "failed",
					Reference:       "ref_123",
					GatewayResponse: "Late decline",
				})

				Expect(err).ToNot(HaveOccurred())

				updated := mockRepo.byReference("ref_123")
				Expect(updated.PaymentStatus).To(Equal(paymentmodel.StatusSuccess))
				Expect(updated.Confirmation).To(Equal(paymentmodel.ConfirmationConfirmed))
				Expect(updated.GatewayResponse).To(Equal("Late decline"))

				_, _, _, failed := metrics.counts()
				Expect(failed).To(Equal(0))
				Consistently(failedEvents).ShouldNot(Receive())
			})
		})

		Context("when paid_at is not a valid timestamp", func() {
			It("should apply the update without a paid_at", func() {
				seedPending("ref_123")

				err := reconciler.Apply(ctx, &gateway.TransactionData{
					Status:    "success",
					Reference: "ref_123",
					Fees:      fees(100),
					PaidAt:    "01/01/2024 10:00",
				})

				Expect(err).ToNot(HaveOccurred())

				updated := mockRepo.byReference("ref_123")
				Expect(updated.PaymentStatus).To(Equal(paymentmodel.StatusSuccess))
				Expect(updated.PaidAt).To(BeNil())
				Expect(*updated.Fees).To(Equal(int64(100)))
			})
		})

		Context("when persisting the update fails", func() {
			It("should return the error so the delivery can be retried", func() {
				seedPending("ref_123")
				mockRepo.updateError = errors.NewInternalError("db down", nil)

				err := reconciler.Apply(ctx, &gateway.TransactionData{
					Status:    "success",
					Reference: "ref_123",
				})

				Expect(err).To(HaveOccurred())

				_, _, succeeded, _ := metrics.counts()
				Expect(succeeded).To(Equal(0))
			})
		})

		Context("when deliveries for one reference race", func() {
			It("should serialize them and emit a single outcome", func() {
				seedPending("ref_123")
				data := &gateway.TransactionData{
					Status:    "success",
					Reference: "ref_123",
				}

				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						defer GinkgoRecover()
						Expect(reconciler.Apply(ctx, data)).To(Succeed())
					}()
				}
				wg.Wait()

				Expect(mockRepo.byReference("ref_123").PaymentStatus).To(Equal(paymentmodel.StatusSuccess))

				_, _, succeeded, _ := metrics.counts()
				Expect(succeeded).To(Equal(1))
			})
		})
	})
})
