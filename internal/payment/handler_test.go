package payment_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/freelance-payments/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/freelance-payments/internal/payment"
	"github.com/frahmantamala/freelance-payments/internal/payment/postgres"
	"github.com/frahmantamala/freelance-payments/internal/transport"
)

var _ = ginkgo.Describe("PaymentHandler", func() {
	var (
		gateway  *fakeRazorpay
		repo     paymentpkg.RepositoryAPI
		handler  *paymentpkg.Handler
		router   *chi.Mux
		recorder *httptest.ResponseRecorder
	)

	post := func(path, body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	decode := func(v interface{}) {
		gomega.Expect(json.NewDecoder(recorder.Body).Decode(v)).To(gomega.Succeed())
	}

	createOrder := func() paymentpkg.CreateOrderResponse {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, post("/payments/create-order",
			`{"job_id":1,"application_id":2,"client_id":3,"freelancer_id":4,"amount":"499.00"}`))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))

		var resp paymentpkg.CreateOrderResponse
		gomega.Expect(json.NewDecoder(rec.Body).Decode(&resp)).To(gomega.Succeed())
		return resp
	}

	ginkgo.BeforeEach(func() {
		gateway = newFakeRazorpay()
		repo = postgres.NewPaymentRepository(openTestDB())
		logger := quietLogger()
		service := paymentpkg.NewService(repo, gateway.client(), &recordingPublisher{}, &recordingReporter{}, nil, "INR", logger)
		handler = paymentpkg.NewHandler(transport.NewBaseHandler(logger), service)

		router = chi.NewRouter()
		router.Post("/payments/create-order", handler.CreateOrder)
		router.Post("/payments/verify", handler.VerifyPayment)
		router.Get("/payments/{id}", handler.GetPayment)

		recorder = httptest.NewRecorder()
	})

	ginkgo.AfterEach(func() {
		gateway.server.Close()
	})

	ginkgo.Describe("POST /payments/create-order", func() {
		ginkgo.It("should accept a string amount and return the order", func() {
			router.ServeHTTP(recorder, post("/payments/create-order",
				`{"job_id":1,"application_id":2,"client_id":3,"freelancer_id":4,"amount":"499.00"}`))

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusCreated))
			gomega.Expect(recorder.Header().Get("Content-Type")).To(gomega.ContainSubstring("application/json"))

			var resp paymentpkg.CreateOrderResponse
			decode(&resp)
			gomega.Expect(resp.OrderID).To(gomega.Equal("order_test1"))
			gomega.Expect(resp.Amount).To(gomega.Equal(int64(49900)))
			gomega.Expect(resp.Currency).To(gomega.Equal("INR"))
			gomega.Expect(resp.PaymentID).To(gomega.BeNumerically(">", 0))
		})

		ginkgo.It("should accept a numeric amount", func() {
			router.ServeHTTP(recorder, post("/payments/create-order",
				`{"job_id":1,"application_id":2,"client_id":3,"freelancer_id":4,"amount":12.5}`))

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusCreated))
			var resp paymentpkg.CreateOrderResponse
			decode(&resp)
			gomega.Expect(resp.Amount).To(gomega.Equal(int64(1250)))
		})

		ginkgo.It("should return validation details for bad input", func() {
			router.ServeHTTP(recorder, post("/payments/create-order",
				`{"job_id":1,"application_id":2,"client_id":3,"amount":"10.005"}`))

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Details struct {
						Errors []struct {
							Field string `json:"field"`
						} `json:"errors"`
					} `json:"details"`
				} `json:"error"`
			}
			decode(&body)
			gomega.Expect(body.Error.Code).To(gomega.Equal("VALIDATION_FAILED"))

			fields := []string{}
			for _, e := range body.Error.Details.Errors {
				fields = append(fields, e.Field)
			}
			gomega.Expect(fields).To(gomega.ConsistOf("freelancer_id", "amount"))
		})

		ginkgo.It("should reject a malformed body", func() {
			router.ServeHTTP(recorder, post("/payments/create-order", `{"job_id":`))
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should return 502 when the gateway fails", func() {
			gateway.setStatus(http.StatusInternalServerError)

			router.ServeHTTP(recorder, post("/payments/create-order",
				`{"job_id":1,"application_id":2,"client_id":3,"freelancer_id":4,"amount":"499.00"}`))

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadGateway))
			gomega.Expect(recorder.Body.String()).NotTo(gomega.ContainSubstring("BAD_REQUEST_ERROR"))
		})
	})

	ginkgo.Describe("POST /payments/verify", func() {
		var orderID string

		ginkgo.BeforeEach(func() {
			orderID = createOrder().OrderID
		})

		verifyBody := func(paymentID, signature string) string {
			return fmt.Sprintf(`{"razorpay_order_id":%q,"razorpay_payment_id":%q,"razorpay_signature":%q}`, orderID, paymentID, signature)
		}

		ginkgo.It("should confirm a valid payment", func() {
			router.ServeHTTP(recorder, post("/payments/verify", verifyBody("pay_1", checkoutSignature(orderID, "pay_1"))))

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			var resp map[string]string
			decode(&resp)
			gomega.Expect(resp).To(gomega.Equal(map[string]string{"message": "Payment verified"}))
		})

		ginkgo.It("should answer a bad signature with the generic failure", func() {
			router.ServeHTTP(recorder, post("/payments/verify", verifyBody("pay_1", checkoutSignature(orderID, "pay_2"))))

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
			var resp map[string]string
			decode(&resp)
			gomega.Expect(resp).To(gomega.Equal(map[string]string{"error": "Payment verification failed"}))

			p, err := repo.GetByOrderID(testContext(), orderID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(p.Status).To(gomega.Equal(payment.StatusCreated))
		})

		ginkgo.It("should answer a malformed body with the same failure", func() {
			router.ServeHTTP(recorder, post("/payments/verify", `[]`))

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
			var resp map[string]string
			decode(&resp)
			gomega.Expect(resp["error"]).To(gomega.Equal("Payment verification failed"))
		})
	})

	ginkgo.Describe("GET /payments/{id}", func() {
		ginkgo.It("should return the payment without its signature", func() {
			created := createOrder()

			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/payments/%d", created.PaymentID), nil))

			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(recorder.Body.String()).NotTo(gomega.ContainSubstring("signature"))
			var view map[string]interface{}
			decode(&view)
			gomega.Expect(view["gateway_order_id"]).To(gomega.Equal(created.OrderID))
			gomega.Expect(view["status"]).To(gomega.Equal("created"))
			gomega.Expect(view["amount"]).To(gomega.Equal("499.00"))
		})

		ginkgo.It("should return 404 for an unknown payment", func() {
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/payments/404", nil))
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusNotFound))
		})

		ginkgo.It("should return 400 for a non-numeric id", func() {
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/payments/abc", nil))
			gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})
})
