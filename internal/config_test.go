package internal_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/freelance-payments/internal"
)

func setenv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func validConfig() *internal.Config {
	return &internal.Config{
		Server: internal.ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
		},
		Database: internal.DatabaseConfig{
			Source:          "postgres://localhost/payments",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Payment: internal.PaymentConfig{
			BaseURL:       "https://api.razorpay.com",
			KeyID:         "rzp_test_key",
			KeySecret:     "key-secret",
			WebhookSecret: "webhook-secret",
			Currency:      "INR",
			Timeout:       10 * time.Second,
		},
		Messaging: internal.MessagingConfig{Exchange: "payments"},
		Observability: internal.ObservabilityConfig{
			Metrics: internal.MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: internal.LoggingConfig{Level: "info", Format: "json"},
		},
	}
}

var _ = Describe("Config", func() {
	Describe("LoadConfigFromEnv", func() {
		It("reads credentials and applies defaults", func() {
			setenv("DB_SOURCE", "postgres://db/payments")
			setenv("RAZORPAY_KEY_ID", "rzp_test_key")
			setenv("RAZORPAY_KEY_SECRET", "key-secret")
			setenv("RAZORPAY_WEBHOOK_SECRET", "webhook-secret")
			setenv("HTTP_PORT", "9090")
			setenv("PATH", "/usr/local/sbin:/usr/local/bin:/usr/bin")

			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Server.Port).To(Equal(9090))
			Expect(cfg.Database.GetDSN()).To(Equal("postgres://db/payments"))
			Expect(cfg.Payment.KeyID).To(Equal("rzp_test_key"))
			Expect(cfg.Payment.WebhookSecret).To(Equal("webhook-secret"))
			Expect(cfg.Payment.Currency).To(Equal("INR"))
			Expect(cfg.Payment.Timeout).To(Equal(10 * time.Second))
			Expect(cfg.Messaging.Exchange).To(Equal("payments"))
			Expect(cfg.Messaging.PublishTimeout).To(Equal(5 * time.Second))
			Expect(cfg.Observability.Metrics.Path).To(Equal("/metrics"))
			Expect(cfg.Validate()).To(Succeed())
		})

		It("ignores unrelated process variables", func() {
			setenv("RAZORPAY_KEY_ID", "rzp_test_key")
			setenv("PATH", "/usr/local/sbin:/usr/local/bin:/usr/bin")
			setenv("PORT", "1")
			setenv("SOURCE", "not-a-dsn")
			setenv("TIMEOUT", "1h")
			setenv("LEVEL", "trace")
			setenv("FORMAT", "xml")
			setenv("DSN", "https://leaked@sentry.example/1")

			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Observability.Metrics.Path).To(Equal("/metrics"))
			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Database.Source).To(BeEmpty())
			Expect(cfg.Payment.Timeout).To(Equal(10 * time.Second))
			Expect(cfg.Observability.Logging.Level).To(Equal("info"))
			Expect(cfg.Observability.Logging.Format).To(Equal("json"))
			Expect(cfg.Observability.Sentry.DSN).To(BeEmpty())
		})

		It("reads observability settings by their full names", func() {
			setenv("METRICS_PATH", "/internal/metrics")
			setenv("LOG_LEVEL", "debug")
			setenv("SENTRY_DSN", "https://key@sentry.example/2")
			setenv("EVENT_PUBLISH_TIMEOUT", "2s")

			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Observability.Metrics.Path).To(Equal("/internal/metrics"))
			Expect(cfg.Observability.Logging.Level).To(Equal("debug"))
			Expect(cfg.Observability.Sentry.DSN).To(Equal("https://key@sentry.example/2"))
			Expect(cfg.Messaging.PublishTimeout).To(Equal(2 * time.Second))
		})

		It("rejects a malformed duration", func() {
			setenv("RAZORPAY_TIMEOUT", "soon")

			_, err := internal.LoadConfigFromEnv()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Validate", func() {
		It("accepts a complete config", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		DescribeTable("rejects",
			func(mutate func(*internal.Config), fragment string) {
				cfg := validConfig()
				mutate(cfg)
				err := cfg.Validate()
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring(fragment))
			},
			Entry("a missing key secret", func(c *internal.Config) { c.Payment.KeySecret = "" }, "KeySecret"),
			Entry("a missing webhook secret", func(c *internal.Config) { c.Payment.WebhookSecret = "" }, "WebhookSecret"),
			Entry("a key secret equal to the key id", func(c *internal.Config) { c.Payment.KeySecret = c.Payment.KeyID }, "key_secret must differ"),
			Entry("a non ISO currency", func(c *internal.Config) { c.Payment.Currency = "RUPEE" }, "Currency"),
			Entry("more idle than open connections", func(c *internal.Config) { c.Database.MaxIdleConns = 50 }, "max_idle_conns"),
			Entry("an unknown log level", func(c *internal.Config) { c.Observability.Logging.Level = "verbose" }, "Level"),
			Entry("a read timeout shorter than the header timeout", func(c *internal.Config) { c.Server.ReadTimeout = time.Second }, "read_timeout"),
		)
	})
})
