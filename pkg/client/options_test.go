package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Apply(t *testing.T) {
	t.Parallel()

	custom := &http.Client{Timeout: time.Minute}
	source := func(context.Context) (string, error) { return "fresh", nil }

	c, err := NewClient("https://api.example.com", "static",
		WithHTTPClient(custom),
		WithTokenSource(source),
		WithRetryMax(7),
		WithRetryWait(time.Second, 10*time.Second),
		WithUserAgent("cliffctl/1.0"),
	)
	require.NoError(t, err)

	assert.Same(t, custom, c.httpClient)
	assert.Equal(t, 7, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 10*time.Second, c.retryWaitMax)
	assert.Equal(t, "cliffctl/1.0", c.userAgent)

	token, err := c.tokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestOptions_InvalidValuesIgnored(t *testing.T) {
	t.Parallel()

	c, err := NewClient("https://api.example.com", "token",
		WithHTTPClient(nil),
		WithTokenSource(nil),
		WithRetryMax(-1),
		WithRetryWait(-time.Second, time.Second),
		WithUserAgent(""),
	)
	require.NoError(t, err)

	assert.NotNil(t, c.httpClient)
	assert.Equal(t, 3, c.retryMax)
	assert.Equal(t, 500*time.Millisecond, c.retryWaitMin)
	assert.Contains(t, c.userAgent, "pharmacliff-go-sdk/")

	token, err := c.tokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token", token)
}

func TestSubClients_AreSingletons(t *testing.T) {
	t.Parallel()

	c, err := NewClient("https://api.example.com", "token")
	require.NoError(t, err)

	assert.Same(t, c.Search(), c.Search())
	assert.Same(t, c.Admin(), c.Admin())
	assert.Same(t, c.Assistant(), c.Assistant())
}
