package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http/middleware"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

type fakeVerifier struct {
	identities map[string]*middleware.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, idToken string) (*middleware.Identity, error) {
	identity, ok := f.identities[idToken]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "invalid or expired token")
	}
	return identity, nil
}

func newAuthMiddleware() *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(&fakeVerifier{identities: map[string]*middleware.Identity{
		"user-token":  {UserID: "u1", Email: "u1@example.com"},
		"admin-token": {UserID: "a1", Admin: true},
	}}, logging.NewNopLogger())
}

func echoIdentity(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := middleware.ContextIdentity(r.Context())
		require.NotNil(t, identity)
		_, _ = w.Write([]byte(identity.UserID))
	})
}

func TestAuth_ValidToken(t *testing.T) {
	t.Parallel()

	m := newAuthMiddleware()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/history", nil)
	req.Header.Set("Authorization", "Bearer user-token")

	m.Handler(echoIdentity(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestAuth_MissingAndMalformedTokens(t *testing.T) {
	t.Parallel()

	m := newAuthMiddleware()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})

	headers := []string{"", "Basic dXNlcjpwdw==", "Bearer", "Bearer bogus"}
	for _, header := range headers {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		m.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Contains(t, rec.Body.String(), apperrors.ErrCodeUnauthorized.String())
	}
}

func TestAuth_RequireAdmin(t *testing.T) {
	t.Parallel()

	m := newAuthMiddleware()
	chain := m.Handler(m.RequireAdmin(echoIdentity(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/plans/p1", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/plans/p1", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.ErrCodeForbidden.String())
}

func TestContextIdentity_RoundTrip(t *testing.T) {
	t.Parallel()

	identity := &middleware.Identity{UserID: "u1", Admin: true}
	ctx := middleware.ContextWithIdentity(context.Background(), identity)

	assert.Equal(t, identity, middleware.ContextIdentity(ctx))
	assert.Equal(t, "u1", middleware.ContextUserID(ctx))
	assert.Empty(t, middleware.ContextUserID(context.Background()))
}
