package payment_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/zennest/payment-service/internal"
	"github.com/zennest/payment-service/internal/gateway"
	"github.com/zennest/payment-service/internal/payment"
	"github.com/zennest/payment-service/internal/transport"
)

// Mock reconciler capturing applied deliveries
type mockReconciler struct {
	mu         sync.Mutex
	applyError error
	applied    []*gateway.TransactionData
}

func (m *mockReconciler) Apply(ctx context.Context, data *gateway.TransactionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyError != nil {
		return m.applyError
	}
	m.applied = append(m.applied, data)
	return nil
}

func (m *mockReconciler) appliedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

var _ = Describe("WebhookHandler", func() {
	const secret = "sk_test_webhook_secret"

	var (
		handler    *payment.WebhookHandler
		reconciler *mockReconciler
		metrics    *mockMetrics
	)

	BeforeEach(func() {
		reconciler = &mockReconciler{}
		metrics = newMockMetrics()
		logger := newTestLogger()
		handler = payment.NewWebhookHandler(transport.NewBaseHandler(logger), reconciler, secret, metrics, logger)
	})

	deliver := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set(gateway.SignatureHeader, signature)
		}
		recorder := httptest.NewRecorder()
		handler.HandleGatewayWebhook(recorder, req)
		return recorder
	}

	Context("when the delivery is authentic and well-formed", func() {
		It("should ack with 200 and apply the event", func() {
			body := []byte(`{"event":"charge.success","data":{"id":4099260516,"status":"success","reference":"ref_123","gateway_response":"Successful","channel":"card","currency":"NGN","fees":100,"paid_at":"2024-01-01T10:00:00+00:00"}}`)

			recorder := deliver(body, gateway.ComputeSignature(body, secret))

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).To(Equal("Webhook processed"))
			Expect(recorder.Header().Get("Content-Type")).To(HavePrefix("text/plain"))

			Expect(reconciler.appliedCount()).To(Equal(1))
			Expect(reconciler.applied[0].Reference).To(Equal("ref_123"))
			Expect(reconciler.applied[0].Status).To(Equal("success"))

			received, errorCount, processed := metrics.webhookCounts()
			Expect(received).To(Equal(1))
			Expect(errorCount).To(Equal(0))
			Expect(processed).To(Equal(1))
		})

		It("should accept an uppercase hex signature", func() {
			body := []byte(`{"event":"charge.success","data":{"status":"success","reference":"ref_123"}}`)
			signature := strings.ToUpper(gateway.ComputeSignature(body, secret))

			recorder := deliver(body, signature)
			Expect(recorder.Code).To(Equal(http.StatusOK))
		})
	})

	Context("when the signature is invalid", func() {
		It("should reject with 401 before touching any state", func() {
			body := []byte(`{"event":"charge.success","data":{"status":"success","reference":"ref_123"}}`)

			recorder := deliver(body, gateway.ComputeSignature(body, "sk_test_wrong_secret"))

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(recorder.Body.String()).To(ContainSubstring("Invalid signature"))
			Expect(reconciler.appliedCount()).To(Equal(0))

			_, errorCount, _ := metrics.webhookCounts()
			Expect(errorCount).To(Equal(1))
		})

		It("should reject a signature computed over different bytes", func() {
			body := []byte(`{"event":"charge.success","data":{"status":"success","reference":"ref_123"}}`)
			tampered := []byte(`{"event":"charge.success","data":{"status":"success","reference":"ref_999"}}`)

			recorder := deliver(tampered, gateway.ComputeSignature(body, secret))

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(reconciler.appliedCount()).To(Equal(0))
		})

		It("should reject a missing signature header", func() {
			body := []byte(`{"event":"charge.success","data":{"status":"success","reference":"ref_123"}}`)

			recorder := deliver(body, "")

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(reconciler.appliedCount()).To(Equal(0))
		})
	})

	Context("when the payload is malformed", func() {
		It("should reject undecodable JSON with 400", func() {
			body := []byte(`{"event":"charge.success",`)

			recorder := deliver(body, gateway.ComputeSignature(body, secret))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(recorder.Body.String()).To(ContainSubstring("Invalid payload"))
			Expect(reconciler.appliedCount()).To(Equal(0))
		})

		It("should reject an envelope without a data object", func() {
			body := []byte(`{"event":"charge.success"}`)

			recorder := deliver(body, gateway.ComputeSignature(body, secret))

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(recorder.Body.String()).To(ContainSubstring("no data field"))
			Expect(reconciler.appliedCount()).To(Equal(0))
		})
	})

	Context("when reconciliation fails", func() {
		It("should answer 500 so the provider redelivers", func() {
			reconciler.applyError = errors.NewInternalError("db down", nil)
			body := []byte(`{"event":"charge.success","data":{"status":"success","reference":"ref_123"}}`)

			recorder := deliver(body, gateway.ComputeSignature(body, secret))

			Expect(recorder.Code).To(Equal(http.StatusInternalServerError))

			_, errorCount, processed := metrics.webhookCounts()
			Expect(errorCount).To(Equal(1))
			Expect(processed).To(Equal(0))
		})
	})
})
