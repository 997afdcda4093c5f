package payment_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/freelance-payments/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/freelance-payments/internal/payment"
	"github.com/frahmantamala/freelance-payments/internal/payment/postgres"
	"github.com/frahmantamala/freelance-payments/internal/paymentgateway"
	"github.com/frahmantamala/freelance-payments/internal/transport"
)

var _ = ginkgo.Describe("WebhookHandler", func() {
	var (
		gateway   *fakeRazorpay
		repo      paymentpkg.RepositoryAPI
		publisher *recordingPublisher
		service   *paymentpkg.Service
		handler   *paymentpkg.WebhookHandler
		recorder  *httptest.ResponseRecorder
		orderID   string
	)

	deliver := func(body []byte, signature string) {
		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set(paymentpkg.SignatureHeader, signature)
		}
		handler.HandleRazorpayWebhook(recorder, req)
	}

	build := func(r paymentpkg.RepositoryAPI) {
		logger := quietLogger()
		service = paymentpkg.NewService(r, gateway.client(), publisher, &recordingReporter{}, nil, "INR", logger)
		handler = paymentpkg.NewWebhookHandler(transport.NewBaseHandler(logger), service)
	}

	ginkgo.BeforeEach(func() {
		gateway = newFakeRazorpay()
		repo = postgres.NewPaymentRepository(openTestDB())
		publisher = &recordingPublisher{}
		recorder = httptest.NewRecorder()
		build(repo)

		resp, err := service.CreateOrder(testContext(), &paymentpkg.CreateOrderRequest{
			JobID:         int64Ptr(1),
			ApplicationID: int64Ptr(2),
			ClientID:      int64Ptr(3),
			FreelancerID:  int64Ptr(4),
			Amount:        decimalPtr("499.00"),
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		orderID = resp.OrderID
	})

	ginkgo.AfterEach(func() {
		gateway.server.Close()
	})

	ginkgo.It("should acknowledge a verified captured event with an empty body", func() {
		body, sig := capturedWebhook(orderID, "pay_1", 49900)

		deliver(body, sig)

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(recorder.Body.Len()).To(gomega.BeZero())

		p, err := repo.GetByOrderID(testContext(), orderID)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(p.Status).To(gomega.Equal(payment.StatusPaid))
		gomega.Expect(publisher.Events()).To(gomega.HaveLen(1))
	})

	ginkgo.It("should return 400 with an empty body for a bad signature", func() {
		body, _ := capturedWebhook(orderID, "pay_1", 49900)

		deliver(body, paymentgateway.Sign("wrong-secret", body))

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(recorder.Body.Len()).To(gomega.BeZero())

		p, err := repo.GetByOrderID(testContext(), orderID)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(p.Status).To(gomega.Equal(payment.StatusCreated))
	})

	ginkgo.It("should return 400 when the signature header is missing", func() {
		body, _ := capturedWebhook(orderID, "pay_1", 49900)

		deliver(body, "")

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("should acknowledge events it does not handle", func() {
		body, sig := signedWebhook(`{"entity":"event","event":"order.paid","payload":{}}`)

		deliver(body, sig)

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(publisher.Events()).To(gomega.BeEmpty())
	})

	ginkgo.It("should acknowledge an unknown order so the gateway stops retrying", func() {
		body, sig := capturedWebhook("order_unknown", "pay_1", 49900)

		deliver(body, sig)

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("should return 500 when the store fails", func() {
		build(failingRepo{RepositoryAPI: repo, err: errors.New("connection refused")})
		body, sig := capturedWebhook(orderID, "pay_1", 49900)

		deliver(body, sig)

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(recorder.Body.Len()).To(gomega.BeZero())
	})
})
