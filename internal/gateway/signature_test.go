package gateway_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zennest/payment-service/internal/gateway"
)

var _ = Describe("WebhookSignature", func() {
	const secret = "sk_test_webhook_secret"

	// HMAC-SHA512 of the payload below keyed by secret, independently computed.
	const knownPayload = `{"event":"charge.success","data":{"reference":"ref_123","status":"success"}}`
	const knownSignature = "6de161d887fe17c7ef07f525be2122d0e880112e56f29c591470d353a58d66c81cf44244d93931857f92f5f4ccb57ca26e6311ab7ff98e8e6a806b0af42a3d5e"

	Describe("ComputeSignature", func() {
		It("should produce the expected lowercase hex digest", func() {
			sig := gateway.ComputeSignature([]byte(knownPayload), secret)

			Expect(sig).To(Equal(knownSignature))
			Expect(sig).To(HaveLen(128))
			Expect(sig).To(Equal(strings.ToLower(sig)))
		})

		It("should change when a single payload byte changes", func() {
			tampered := strings.Replace(knownPayload, "ref_123", "ref_124", 1)

			Expect(gateway.ComputeSignature([]byte(tampered), secret)).ToNot(Equal(knownSignature))
		})

		It("should change when the secret changes", func() {
			Expect(gateway.ComputeSignature([]byte(knownPayload), "sk_test_other_secret")).ToNot(Equal(knownSignature))
		})
	})

	Describe("VerifySignature", func() {
		Context("when the signature matches", func() {
			It("should accept a lowercase signature", func() {
				Expect(gateway.VerifySignature([]byte(knownPayload), knownSignature, secret)).To(BeTrue())
			})

			It("should accept an uppercase signature", func() {
				Expect(gateway.VerifySignature([]byte(knownPayload), strings.ToUpper(knownSignature), secret)).To(BeTrue())
			})
		})

		Context("when the signature does not match", func() {
			It("should reject a signature for a different payload", func() {
				Expect(gateway.VerifySignature([]byte(`{"event":"charge.success"}`), knownSignature, secret)).To(BeFalse())
			})

			It("should reject a truncated signature", func() {
				Expect(gateway.VerifySignature([]byte(knownPayload), knownSignature[:64], secret)).To(BeFalse())
			})

			It("should reject an empty signature", func() {
				Expect(gateway.VerifySignature([]byte(knownPayload), "", secret)).To(BeFalse())
			})

			It("should reject when verified against a different secret", func() {
				Expect(gateway.VerifySignature([]byte(knownPayload), knownSignature, "sk_test_other_secret")).To(BeFalse())
			})
		})
	})
})
