// Package bridge provides the HTTP client for the chat backend. The backend
// exposes two calls: chain_start, which takes a user message and returns a
// tagged reply, and get_notifications, which returns the notification feed.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shawkym/chatpane/pkg/log"
)

// Call names, used in logs and metrics.
const (
	CallChainStart       = "chain_start"
	CallGetNotifications = "get_notifications"
)

// ErrStatus is matched by every non-2xx response error.
var ErrStatus = errors.New("unexpected backend status")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Options configures an HTTPClient.
type Options struct {
	// BaseURL is the backend root, e.g. http://localhost:8000.
	BaseURL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// Timeout bounds a single attempt. Zero means no timeout.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Backoff is the delay before the first retry; it doubles each retry.
	Backoff time.Duration
	// RateLimit paces outgoing requests per second. Zero disables pacing.
	RateLimit float64
	// RateBurst is the limiter burst size.
	RateBurst int
	// HTTPClient overrides the underlying client.
	HTTPClient *http.Client
}

// HTTPClient calls the backend over HTTP JSON.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
}

// NewHTTPClient creates a backend client.
func NewHTTPClient(opts Options) *HTTPClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		maxRetries: opts.MaxRetries,
		backoff:    backoff,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

type chainStartRequest struct {
	Message string `json:"message"`
}

// ChainStart submits message and returns the raw reply.
func (c *HTTPClient) ChainStart(ctx context.Context, message string) (json.RawMessage, error) {
	body, err := json.Marshal(chainStartRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.call(ctx, CallChainStart, http.MethodPost, body)
}

// GetNotifications returns the raw notifications payload.
func (c *HTTPClient) GetNotifications(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, CallGetNotifications, http.MethodGet, nil)
}

// Ping checks that the backend answers at all. Any HTTP response, including
// an error status, counts as reachable.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *HTTPClient) call(ctx context.Context, name, method string, body []byte) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			shift := min(attempt-1, 30)
			//nolint:gosec // G115: shift is bounded above
			backoff := c.backoff * time.Duration(1<<uint(shift))
			log.WithFields(map[string]interface{}{
				"call":    name,
				"attempt": attempt,
				"backoff": backoff.String(),
			}).Debug("retrying backend request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		raw, err := c.doRequest(ctx, name, method, body)
		if err != nil {
			lastErr = err
			if shouldRetry(err) {
				continue
			}
			return nil, err
		}
		return raw, nil
	}

	return nil, fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *HTTPClient) doRequest(ctx context.Context, name, method string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+name, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, body != nil)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"call":        name,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("backend request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && !json.Valid(data) {
		return nil, fmt.Errorf("failed to decode response: invalid JSON from %s", name)
	}
	return json.RawMessage(data), nil
}

func (c *HTTPClient) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// shouldRetry retries server errors and transport failures, never 4xx.
func shouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "EOF")
}

// StatusLabel reduces a call result to a metrics label: "ok", the HTTP
// status code, or "error" for transport failures.
func StatusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return strconv.Itoa(statusErr.Code)
	}
	return "error"
}
