package internal_test

import (
	"encoding/json"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/freelance-payments/internal"
)

var _ = Describe("AppError", func() {
	It("is found through wrapping", func() {
		err := fmt.Errorf("lookup: %w", internal.ErrPaymentNotFound)

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("keeps gateway causes out of the response body", func() {
		appErr := internal.NewGatewayError(http.StatusBadGateway, internal.ErrCodeGatewayUnavailable, fmt.Errorf("dial tcp: key rzp_live_secret"))

		status, body := appErr.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusBadGateway))

		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"code":"GATEWAY_UNAVAILABLE"`))
		Expect(string(raw)).NotTo(ContainSubstring("rzp_live_secret"))
		Expect(appErr.Error()).To(ContainSubstring("dial tcp"))
	})

	It("reports every verification failure the same way", func() {
		Expect(internal.ErrPaymentVerification.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(internal.ErrPaymentVerification.Cause).To(BeNil())
		Expect(internal.ErrPaymentVerification.Error()).To(Equal("Payment verification failed"))
	})

	It("surfaces the first field error as its message", func() {
		appErr := internal.NewValidationFieldError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)

		Expect(appErr.Error()).To(Equal("amount must be positive"))
		Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
	})
})
