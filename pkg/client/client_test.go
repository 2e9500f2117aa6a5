package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := []Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}
	c, err := NewClient(server.URL, "test-token", append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient("", "token")
	require.Error(t, err)

	_, err = NewClient("ftp://example.com", "token")
	require.Error(t, err)

	c, err := NewClient("https://api.example.com/", "token")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", c.baseURL)
}

func TestClient_SendsAuthAndRequestHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))

	require.NoError(t, c.get(context.Background(), "/api/v1/users/me", nil))
	assert.Equal(t, "Bearer test-token", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))
	assert.Contains(t, got.Get("User-Agent"), "pharmacliff-go-sdk/")
}

func TestClient_TokenSourceCalledPerRequest(t *testing.T) {
	t.Parallel()

	var calls int32
	source := func(context.Context) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "first", nil
		}
		return "second", nil
	}

	var tokens []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}), WithTokenSource(source))

	require.NoError(t, c.get(context.Background(), "/a", nil))
	require.NoError(t, c.get(context.Background(), "/b", nil))
	assert.Equal(t, []string{"Bearer first", "Bearer second"}, tokens)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var attempts int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))

	var out map[string]bool
	require.NoError(t, c.get(context.Background(), "/flaky", &out))
	assert.True(t, out["ok"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var attempts int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "PLN_001",
			"message": "plan not found",
		})
	}))

	err := c.get(context.Background(), "/missing", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "PLN_001", apiErr.Code)
	assert.Equal(t, "plan not found", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClient_HonorsRetryAfterOn429(t *testing.T) {
	t.Parallel()

	var attempts int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"code": "COMMON_007", "message": "slow down"})
			return
		}
		w.Write([]byte(`{}`))
	}))

	err := c.get(context.Background(), "/limited", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestClient_RateLimitedWithoutRetryAfterFailsFast(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"code": "COMMON_007", "message": "slow down"})
	}), WithRetryMax(1))

	err := c.get(context.Background(), "/limited", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimited())
}

func TestClient_ContextCancellationStopsRetries(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), WithRetryWait(50*time.Millisecond, 100*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.get(ctx, "/slow", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_QuotaAndMe(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/quota/usage", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(QuotaUsage{
			Ledger:    &QuotaLedger{UserID: "u1", SearchesUsed: 3, SearchesLimit: 10},
			CanSearch: true,
			Remaining: 7,
		})
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(User{UID: "u1", Email: "ana@example.com"})
	})
	c := newTestClient(t, mux)

	usage, err := c.Quota(context.Background())
	require.NoError(t, err)
	assert.True(t, usage.CanSearch)
	assert.Equal(t, 7, usage.Remaining)
	assert.Equal(t, 3, usage.Ledger.SearchesUsed)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", me.UID)
}

func TestAPIError_Predicates(t *testing.T) {
	t.Parallel()

	quota := &APIError{StatusCode: http.StatusTooManyRequests, Code: "QUO_002"}
	assert.True(t, quota.IsRateLimited())
	assert.True(t, quota.IsQuotaExceeded())

	partial := &APIError{StatusCode: http.StatusMultiStatus}
	assert.True(t, partial.IsPartialFailure())
	assert.False(t, partial.IsServerError())

	forbidden := &APIError{StatusCode: http.StatusForbidden}
	assert.True(t, forbidden.IsForbidden())
	assert.Contains(t, forbidden.Error(), "HTTP 403")
}
