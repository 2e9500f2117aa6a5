package patentapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/config"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

func newTestClient(t *testing.T, baseURL string, retryMax int) *Client {
	t.Helper()
	c, err := NewClient(config.SearchAPIConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		RequestTimeout: 2 * time.Second,
		RetryMax:       retryMax,
	}, nil)
	require.NoError(t, err)
	c.retryWaitMin = time.Millisecond
	c.retryWaitMax = 2 * time.Millisecond
	return c
}

func testRequest() search.Request {
	return search.Request{Molecule: "atorvastatin", Countries: []string{"US"}}
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "atorvastatin", body["molecule"])

		json.NewEncoder(w).Encode(map[string]string{"jobId": "job-42"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	jobID, err := c.Submit(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "job-42", jobID)
}

func TestSubmit_SnakeCaseJobID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"job_id": "job-7"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	jobID, err := c.Submit(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "job-7", jobID)
}

func TestSubmit_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"jobId": "job-1"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	jobID, err := c.Submit(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSubmit_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "unknown molecule"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Submit(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSearchAPIUnavailable))
	assert.Equal(t, int32(1), calls.Load(), "4xx is permanent")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unknown molecule", apiErr.Message)
}

func TestSubmit_ValidatesRequest(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://localhost:0", 0)
	_, err := c.Submit(context.Background(), search.Request{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSearchInvalidRequest))
}

func TestPoll_Pending(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/result/job-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":         "processing",
			"progress":       55,
			"step":           "examining filings",
			"queue_position": 0,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	update, result, err := c.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, search.JobProcessing, update.Status)
	assert.Equal(t, 55, update.Progress)
	assert.Equal(t, "examining filings", update.Step)
}

func TestPoll_Completed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "completed",
			"progress": 100,
			"molecule": "atorvastatin",
			"patents": []map[string]interface{}{
				{
					"patent_number":   "US1234567",
					"country":         "US",
					"expiration_date": "2028-06-01T00:00:00Z",
				},
			},
			"extra_provider_field": "kept in payload",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	update, result, err := c.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, search.JobCompleted, update.Status)
	require.NotNil(t, result)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, "atorvastatin", result.Molecule)
	require.Len(t, result.Patents, 1)
	assert.Equal(t, "US1234567", result.Patents[0].PatentNumber)
	assert.Contains(t, string(result.Payload), "extra_provider_field")
}

func TestPoll_Failed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "failed",
			"error":  "provider quota exhausted",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	update, result, err := c.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, search.JobFailed, update.Status)
	assert.Equal(t, "provider quota exhausted", update.Error)
}

func TestPoll_JobNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, _, err := c.Poll(context.Background(), "job-missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSearchJobNotFound))
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.SearchAPIConfig{}, nil)
	assert.Error(t, err)
}
