package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/freelance-payments/internal"
	paymentgatewaytypes "github.com/frahmantamala/freelance-payments/internal/core/datamodel/paymentgateway"
)

const maxResponseBytes = 1 << 20

var (
	ErrTimeout      = errors.New("payment gateway timeout")
	ErrInvalidOrder = errors.New("invalid order request")
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("payment gateway returned status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// Rejected is true when the gateway refused the order itself (4xx) rather
// than failing to serve it. 401 and 403 mean our own credentials are wrong,
// which is not the caller's fault.
func (e *APIError) Rejected() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	timeout       time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		keyID:         config.KeyID,
		keySecret:     config.KeySecret,
		webhookSecret: config.WebhookSecret,
		timeout:       config.Timeout,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// CreateOrder registers an order with the gateway. The round trip is bounded
// by the configured timeout; exceeding it yields an error wrapping ErrTimeout.
func (c *Client) CreateOrder(ctx context.Context, req *paymentgatewaytypes.OrderRequest) (*paymentgatewaytypes.Order, error) {
	if err := req.Validate(); err != nil {
		c.logger.Error("order request validation failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	c.logger.Info("creating gateway order",
		"amount", req.Amount,
		"currency", req.Currency,
		"receipt", req.Receipt)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			c.logger.Error("gateway order request timed out", "timeout", c.timeout, "receipt", req.Receipt)
			return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, time.Since(start).Round(time.Millisecond), err)
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp paymentgatewaytypes.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			apiErr.Code = errResp.Error.Code
			apiErr.Description = errResp.Error.Description
		}
		c.logger.Error("gateway rejected order",
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"description", apiErr.Description,
			"receipt", req.Receipt)
		return nil, apiErr
	}

	var order paymentgatewaytypes.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("gateway returned an order without id")
	}

	c.logger.Info("gateway order created",
		"order_id", order.ID,
		"amount", order.Amount,
		"status", order.Status,
		"duration_ms", time.Since(start).Milliseconds())

	return &order, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
