// Package erp is the HTTP client for the 1C/ERP system: stock snapshots
// are pulled per warehouse and payment triggers are pushed per order.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/inventory"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	stockPath    = "/warehouses/%s/stock"
	paymentsPath = "/payments/triggers"

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 16 << 20
)

// Step names reported on integration errors.
const (
	StepPullStock      = "pull_stock"
	StepPaymentTrigger = "payment_trigger"
)

// Client implements integration.ERPGateway over HTTP
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an ERP client from configuration
func NewClient(cfg config.ERPConfig, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("erp: base_url is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("erp: invalid base_url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("erp"),
	}, nil
}

// stockResponse accepts both {"items":[...]} and a bare array.
type stockResponse struct {
	Items []inventory.StockLine `json:"items"`
}

// PullStockSnapshot fetches the current stock lines of one warehouse
func (c *Client) PullStockSnapshot(ctx context.Context, warehouseExternalID string) ([]inventory.StockLine, error) {
	path := fmt.Sprintf(stockPath, url.PathEscape(warehouseExternalID))
	data, err := c.do(ctx, StepPullStock, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var lines []inventory.StockLine
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return nil, integration.Rejected(integration.SystemERP, StepPullStock, "malformed stock payload")
		}
		return lines, nil
	}
	var out stockResponse
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, integration.Rejected(integration.SystemERP, StepPullStock, "malformed stock payload")
	}
	return out.Items, nil
}

// PushPaymentTrigger asks the ERP to start verifying an order payment
func (c *Client) PushPaymentTrigger(ctx context.Context, trigger integration.PaymentTrigger) error {
	payload, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("erp: failed to marshal payment trigger: %w", err)
	}
	_, err = c.do(ctx, StepPaymentTrigger, http.MethodPost, paymentsPath, payload)
	return err
}

func (c *Client) do(ctx context.Context, step, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("erp: failed to build %s request: %w", step, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("ERP unreachable", zap.String("step", step), zap.Error(err))
		return nil, integration.FromTransport(integration.SystemERP, step, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, integration.FromTransport(integration.SystemERP, step, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ierr := integration.FromStatus(integration.SystemERP, step, resp.StatusCode, data)
		c.logger.Warn("ERP returned an error",
			zap.String("step", step),
			zap.Int("status", resp.StatusCode),
			zap.String("upstream_body", ierr.Body),
		)
		return nil, ierr
	}
	return data, nil
}

var _ integration.ERPGateway = (*Client)(nil)
