// Package patentapi implements the client for the external patent search job
// API: job submission, status polling, and result retrieval.
package patentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/config"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// APIError is a non-2xx response from the search provider.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("patent search api: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsServerError reports whether the failure was on the provider's side.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Client talks to the external job API.  Submission retries transient
// provider errors with jittered backoff; polling never retries a failed job,
// the user re-submits manually.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	log          logging.Logger
}

// NewClient builds the search API client from config.
func NewClient(cfg config.SearchAPIConfig, log logging.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.NewValidation("search api base_url required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		retryMax:     cfg.RetryMax,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
		log:          log.Named("patentapi"),
	}, nil
}

type submitResponse struct {
	JobID string `json:"jobId"`
	// Some provider deployments use snake_case.
	JobIDAlt string `json:"job_id"`
}

func (r submitResponse) id() string {
	if r.JobID != "" {
		return r.JobID
	}
	return r.JobIDAlt
}

// Submit starts a search job.  Provider 5xx responses are retried with
// jittered backoff up to the configured maximum.
func (c *Client) Submit(ctx context.Context, req search.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(map[string]interface{}{
		"molecule":  req.Molecule,
		"brand":     req.Brand,
		"countries": req.Countries,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to encode search request")
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return "", apperrors.Wrap(ctx.Err(), apperrors.ErrCodeSearchAPIUnavailable,
					"search submission cancelled")
			}
		}

		body, apiErr, err := c.do(ctx, http.MethodPost, "/search", bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			continue
		}
		if apiErr != nil {
			lastErr = apiErr
			if apiErr.IsServerError() {
				c.log.Warn("search submission failed, retrying",
					logging.Int("attempt", attempt),
					logging.Int("status", apiErr.StatusCode),
				)
				continue
			}
			return "", apperrors.Wrap(apiErr, apperrors.ErrCodeSearchAPIUnavailable,
				"search provider rejected the submission")
		}

		var resp submitResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization,
				"failed to decode submission response")
		}
		if resp.id() == "" {
			return "", apperrors.New(apperrors.ErrCodeSearchAPIUnavailable,
				"search provider returned no job id")
		}
		return resp.id(), nil
	}
	return "", apperrors.Wrap(lastErr, apperrors.ErrCodeSearchAPIUnavailable,
		"search submission failed after retries")
}

// pollResponse is the wire shape of a result poll.  While the job runs only
// the status fields are present; on completion the same document carries the
// result payload.
type pollResponse struct {
	Status        string               `json:"status"`
	Progress      int                  `json:"progress"`
	Step          string               `json:"step"`
	QueuePosition int                  `json:"queue_position"`
	Error         string               `json:"error"`
	Molecule      string               `json:"molecule"`
	Patents       []search.PatentEntry `json:"patents"`
}

// Poll fetches the job's current state, and the result once completed.  A
// missing job maps to the job-not-found code.
func (c *Client) Poll(ctx context.Context, jobID string) (*search.JobUpdate, *search.Result, error) {
	if jobID == "" {
		return nil, nil, apperrors.NewValidation("jobID required")
	}

	body, apiErr, err := c.do(ctx, http.MethodGet, "/search/result/"+jobID, nil)
	if err != nil {
		return nil, nil, err
	}
	if apiErr != nil {
		if apiErr.StatusCode == http.StatusNotFound {
			return nil, nil, apperrors.New(apperrors.ErrCodeSearchJobNotFound,
				"search job not found").WithDetail("job=" + jobID)
		}
		return nil, nil, apperrors.Wrap(apiErr, apperrors.ErrCodeSearchAPIUnavailable,
			"failed to poll search job "+jobID)
	}

	var resp pollResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization,
			"failed to decode poll response for job "+jobID)
	}

	update := &search.JobUpdate{
		JobID:         jobID,
		Status:        normalizeStatus(resp.Status),
		Progress:      resp.Progress,
		Step:          resp.Step,
		QueuePosition: resp.QueuePosition,
		Error:         resp.Error,
	}
	if update.Status != search.JobCompleted {
		return update, nil, nil
	}

	result := &search.Result{
		JobID:       jobID,
		Molecule:    resp.Molecule,
		Patents:     resp.Patents,
		Payload:     json.RawMessage(body),
		CompletedAt: time.Now().UTC(),
	}
	return update, result, nil
}

// do performs one request and splits the outcome into transport errors, API
// errors, and the response body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, *APIError, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeSearchAPIUnavailable,
			"search provider unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeSearchAPIUnavailable,
			"failed to read provider response")
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			if errResp.Message != "" {
				apiErr.Message = errResp.Message
			} else if errResp.Error != "" {
				apiErr.Message = errResp.Error
			}
		}
		return nil, apiErr, nil
	}
	return respBody, nil, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if d > c.retryWaitMax {
		d = c.retryWaitMax
	}
	// full jitter
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func normalizeStatus(s string) search.JobStatus {
	switch strings.ToLower(s) {
	case "completed", "complete", "done", "finished":
		return search.JobCompleted
	case "failed", "error":
		return search.JobFailed
	case "processing", "running", "in_progress":
		return search.JobProcessing
	default:
		return search.JobPending
	}
}
