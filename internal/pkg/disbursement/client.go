// Package disbursement hands released payroll batches to the payment collaborator.
package disbursement

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderSignature      = "X-Payroll-Signature"

	defaultTimeout = 10 * time.Second
)

// APIError is a non-2xx answer from the disbursement endpoint
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("disbursement API error [%d]: %s", e.StatusCode, e.Body)
}

// Client posts release orders to a webhook. Each order carries the batch id as
// its idempotency key, so a retried release is recognised by the receiver.
type Client struct {
	url        string
	secret     string
	httpClient *http.Client
}

func NewClient(url, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DispatchRelease implements payroll.ReleaseDispatcher.
func (c *Client) DispatchRelease(ctx context.Context, order payroll.ReleaseOrder) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode release order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build disbursement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderIdempotencyKey, order.BatchID)
	if c.secret != "" {
		req.Header.Set(HeaderSignature, Sign(c.secret, body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("disbursement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	slog.Info("Release order dispatched", "batch_id", order.BatchID, "payslips", len(order.PayslipIDs))
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// LogDispatcher only logs release orders. Used when no endpoint is configured.
type LogDispatcher struct{}

func (LogDispatcher) DispatchRelease(_ context.Context, order payroll.ReleaseOrder) error {
	slog.Info("Release order (no disbursement endpoint configured)",
		"batch_id", order.BatchID,
		"payroll_type", order.PayrollType,
		"release_at", order.ReleaseAt,
		"payslips", len(order.PayslipIDs),
	)
	return nil
}

var (
	_ payroll.ReleaseDispatcher = (*Client)(nil)
	_ payroll.ReleaseDispatcher = LogDispatcher{}
)
