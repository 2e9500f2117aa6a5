// Package client is the Go SDK for the PharmaCliff Intelligence API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

const Version = "0.1.0"

// Logger is the logging interface the SDK writes to.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// TokenSource supplies the bearer token for each request. Firebase ID tokens
// expire hourly, so interactive callers should plug in a refreshing source
// rather than a static token.
type TokenSource func(ctx context.Context) (string, error)

// Client talks to the PharmaCliff Intelligence HTTP API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       TokenSource
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	search     *SearchClient
	searchOnce sync.Once
	admin      *AdminClient
	adminOnce  sync.Once
	drroot     *AssistantClient
	drrootOnce sync.Once
}

// APIError is an error response from the API.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pharmacliff: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsNotFound() bool      { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsUnauthorized() bool  { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsForbidden() bool     { return e.StatusCode == http.StatusForbidden }
func (e *APIError) IsRateLimited() bool   { return e.StatusCode == http.StatusTooManyRequests }
func (e *APIError) IsQuotaExceeded() bool { return e.Code == string(apperrors.ErrCodeQuotaExceeded) }
func (e *APIError) IsPartialFailure() bool {
	return e.StatusCode == http.StatusMultiStatus
}
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewClient creates an SDK client against baseURL authenticating with token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, apperrors.NewValidation("baseURL required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, apperrors.NewValidation("invalid baseURL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, apperrors.NewValidation("baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 20 * time.Minute},
		tokens:       func(context.Context) (string, error) { return token, nil },
		userAgent:    fmt.Sprintf("pharmacliff-go-sdk/%s", Version),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search returns the search sub-client.
func (c *Client) Search() *SearchClient {
	c.searchOnce.Do(func() { c.search = &SearchClient{client: c} })
	return c.search
}

// Admin returns the administrative billing sub-client.
func (c *Client) Admin() *AdminClient {
	c.adminOnce.Do(func() { c.admin = &AdminClient{client: c} })
	return c.admin
}

// Assistant returns the Dr. Root assistant sub-client.
func (c *Client) Assistant() *AssistantClient {
	c.drrootOnce.Do(func() { c.drroot = &AssistantClient{client: c} })
	return c.drroot
}

// QuotaUsage is the caller's current quota position.
type QuotaUsage struct {
	Ledger    *QuotaLedger `json:"ledger"`
	CanSearch bool         `json:"can_search"`
	Unlimited bool         `json:"unlimited"`
	Remaining int          `json:"remaining"`
}

// Quota returns the authenticated user's quota usage.
func (c *Client) Quota(ctx context.Context) (*QuotaUsage, error) {
	var usage QuotaUsage
	if err := c.get(ctx, "/api/v1/quota/usage", &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/api/v1/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// do performs one API call with retry on network and 5xx failures.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debugf("retry %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		token, err := c.tokens(ctx)
		if err != nil {
			return fmt.Errorf("obtain token: %w", err)
		}

		requestID := uuid.New().String()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("request failed: %v", err)
			lastErr = err
			continue
		}
		c.logger.Debugf("%s %s %d (%v)", method, path, resp.StatusCode, time.Since(start))

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if wait := retryAfter(resp); wait > 0 && attempt < c.retryMax {
				c.logger.Infof("rate limited, retrying after %v", wait)
				select {
				case <-time.After(wait):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
			if len(respBody) > 0 {
				var errResp struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				}
				if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Code != "" {
					apiErr.Code = errResp.Code
					apiErr.Message = errResp.Message
				} else {
					apiErr.Message = string(respBody)
				}
			}
			lastErr = apiErr
			if apiErr.IsServerError() {
				continue
			}
			return apiErr
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string, body interface{}) error {
	return c.do(ctx, http.MethodDelete, path, body, nil)
}

func (c *Client) backoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	jitter := time.Duration(rand.Int63n(int64(backoff/4) + 1))
	return backoff + jitter
}

func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
