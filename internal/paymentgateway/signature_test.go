package paymentgateway_test

import (
	"log/slog"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/freelance-payments/internal/paymentgateway"
)

var _ = Describe("Signatures", func() {
	var client *paymentgateway.Client

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client = paymentgateway.NewClient(paymentgateway.Config{
			BaseURL:       "http://gateway.invalid",
			KeyID:         "rzp_test_key",
			KeySecret:     "key-secret",
			WebhookSecret: "webhook-secret",
		}, logger)
	})

	It("produces standard HMAC-SHA256 hex digests", func() {
		Expect(paymentgateway.Sign("key", []byte("The quick brown fox jumps over the lazy dog"))).
			To(Equal("f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"))
	})

	Describe("VerifyPaymentSignature", func() {
		It("accepts the signature over order_id|payment_id", func() {
			sig := paymentgateway.Sign("key-secret", []byte("order_1|pay_1"))
			Expect(client.VerifyPaymentSignature("order_1", "pay_1", sig)).To(Succeed())
		})

		It("accepts upper-case hex", func() {
			sig := strings.ToUpper(paymentgateway.Sign("key-secret", []byte("order_1|pay_1")))
			Expect(client.VerifyPaymentSignature("order_1", "pay_1", sig)).To(Succeed())
		})

		It("rejects a signature for another payment", func() {
			sig := paymentgateway.Sign("key-secret", []byte("order_1|pay_2"))
			Expect(client.VerifyPaymentSignature("order_1", "pay_1", sig)).To(MatchError(paymentgateway.ErrSignatureMismatch))
		})

		It("rejects a signature made with the webhook secret", func() {
			sig := paymentgateway.Sign("webhook-secret", []byte("order_1|pay_1"))
			Expect(client.VerifyPaymentSignature("order_1", "pay_1", sig)).To(MatchError(paymentgateway.ErrSignatureMismatch))
		})

		It("rejects empty and non-hex signatures", func() {
			Expect(client.VerifyPaymentSignature("order_1", "pay_1", "")).To(MatchError(paymentgateway.ErrSignatureMismatch))
			Expect(client.VerifyPaymentSignature("order_1", "pay_1", "not-hex")).To(MatchError(paymentgateway.ErrSignatureMismatch))
		})
	})

	Describe("VerifyWebhookSignature", func() {
		body := []byte(`{"event":"payment.captured"}`)

		It("accepts the digest of the raw body", func() {
			Expect(client.VerifyWebhookSignature(body, paymentgateway.Sign("webhook-secret", body))).To(Succeed())
		})

		It("rejects a digest of a modified body", func() {
			sig := paymentgateway.Sign("webhook-secret", body)
			Expect(client.VerifyWebhookSignature([]byte(`{"event":"payment.captured" }`), sig)).
				To(MatchError(paymentgateway.ErrSignatureMismatch))
		})

		It("rejects a missing header", func() {
			Expect(client.VerifyWebhookSignature(body, "")).To(MatchError(paymentgateway.ErrSignatureMismatch))
		})
	})
})
