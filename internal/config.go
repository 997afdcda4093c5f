package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server" envconfig:"HTTP"`
	Database      DatabaseConfig      `mapstructure:"database" envconfig:"DB"`
	Payment       PaymentConfig       `mapstructure:"payment" envconfig:"RAZORPAY" validate:"required"`
	Messaging     MessagingConfig     `mapstructure:"messaging" envconfig:"MESSAGING"`
	Observability ObservabilityConfig `mapstructure:"observability" envconfig:"OBSERVABILITY"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" envconfig:"HTTP_PORT" default:"8080" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" envconfig:"HTTP_BASE_URL"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" envconfig:"HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS" default:"20" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS" default:"5" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"DB_CONN_MAX_LIFETIME" default:"30m" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m" validate:"required,min=1m"`
	Source          string        `mapstructure:"source" envconfig:"DB_SOURCE" validate:"required"`
}

// PaymentConfig carries the Razorpay credentials. KeySecret signs checkout
// confirmations, WebhookSecret signs webhook deliveries; Razorpay lets both be
// configured independently.
type PaymentConfig struct {
	BaseURL       string        `mapstructure:"base_url" envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com" validate:"required,url"`
	KeyID         string        `mapstructure:"key_id" envconfig:"RAZORPAY_KEY_ID" validate:"required"`
	KeySecret     string        `mapstructure:"key_secret" envconfig:"RAZORPAY_KEY_SECRET" validate:"required"`
	WebhookSecret string        `mapstructure:"webhook_secret" envconfig:"RAZORPAY_WEBHOOK_SECRET" validate:"required"`
	Currency      string        `mapstructure:"currency" envconfig:"RAZORPAY_CURRENCY" default:"INR" validate:"required,len=3"`
	Timeout       time.Duration `mapstructure:"timeout" envconfig:"RAZORPAY_TIMEOUT" default:"10s" validate:"required,min=1s,max=1m"`
}

// MessagingConfig enables forwarding of domain events to RabbitMQ when
// AMQPURL is set. PublishTimeout bounds each event handler.
type MessagingConfig struct {
	AMQPURL        string        `mapstructure:"amqp_url" envconfig:"AMQP_URL"`
	Exchange       string        `mapstructure:"exchange" envconfig:"AMQP_EXCHANGE" default:"payments" validate:"required_with=AMQPURL"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout" envconfig:"EVENT_PUBLISH_TIMEOUT" default:"5s"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envconfig:"METRICS"`
	Logging LoggingConfig `mapstructure:"logging" envconfig:"LOGGING"`
	Sentry  SentryConfig  `mapstructure:"sentry" envconfig:"SENTRY"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"METRICS_ENABLED" default:"true"`
	Path    string `mapstructure:"path" envconfig:"METRICS_PATH" default:"/metrics" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" envconfig:"LOG_LEVEL" default:"info" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" envconfig:"LOG_FORMAT" default:"json" validate:"required,oneof=json text"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn" envconfig:"SENTRY_DSN"`
	Environment string `mapstructure:"environment" envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// LoadConfigFromEnv builds the config from plain environment variables
// (RAZORPAY_KEY_ID, DB_SOURCE, HTTP_PORT, ...) for container deployments.
// envconfig falls back to a field's bare tag, so leaf tags carry the full
// variable name.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return &cfg, nil
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url %s: %w", c.BaseURL, err)
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *PaymentConfig) Validate() error {
	if c.KeySecret != "" && c.KeySecret == c.KeyID {
		return errors.New("key_secret must differ from key_id")
	}
	return nil
}
