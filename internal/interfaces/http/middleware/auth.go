package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const identityContextKey contextKey = iota

// Identity is the authenticated caller extracted from a verified Firebase ID
// token.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Admin  bool   `json:"admin"`
}

// TokenVerifier verifies a Firebase ID token and resolves the caller
// identity.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier wraps the Firebase Auth client as a TokenVerifier.
// Admin status comes from the "admin" custom claim, with a "role" claim
// fallback for accounts provisioned before custom claims were introduced.
func NewFirebaseVerifier(client *auth.Client) TokenVerifier {
	return &firebaseVerifier{client: client}
}

func (v *firebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid or expired token")
	}
	identity := &Identity{UserID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if admin, ok := token.Claims["admin"].(bool); ok && admin {
		identity.Admin = true
	} else if role, ok := token.Claims["role"].(string); ok && role == "admin" {
		identity.Admin = true
	}
	return identity, nil
}

// AuthMiddleware authenticates requests with Firebase ID tokens.
type AuthMiddleware struct {
	verifier TokenVerifier
	log      logging.Logger
}

// NewAuthMiddleware creates the auth middleware.
func NewAuthMiddleware(verifier TokenVerifier, log logging.Logger) *AuthMiddleware {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AuthMiddleware{verifier: verifier, log: log.Named("auth")}
}

// Handler enforces authentication.  Requests without a valid bearer token
// receive 401 Unauthorized.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, apperrors.ErrCodeUnauthorized, "authentication required")
			return
		}
		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.log.Debug("token verification failed",
				logging.String("path", r.URL.Path), logging.Err(err))
			writeAuthError(w, http.StatusUnauthorized, apperrors.ErrCodeUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated callers without the admin claim.  Mount
// after Handler.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := ContextIdentity(r.Context())
		if identity == nil {
			writeAuthError(w, http.StatusUnauthorized, apperrors.ErrCodeUnauthorized, "authentication required")
			return
		}
		if !identity.Admin {
			m.log.Warn("admin route denied",
				logging.String("user_id", identity.UserID), logging.String("path", r.URL.Path))
			writeAuthError(w, http.StatusForbidden, apperrors.ErrCodeForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ContextIdentity retrieves the authenticated identity from the request
// context, or nil when the request is unauthenticated.
func ContextIdentity(ctx context.Context) *Identity {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// ContextUserID returns the authenticated user id, or "".
func ContextUserID(ctx context.Context) string {
	if identity := ContextIdentity(ctx); identity != nil {
		return identity.UserID
	}
	return ""
}

// ContextWithIdentity injects an identity, for handler tests.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func writeAuthError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="pharmacliff"`)
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"code":"` + code.String() + `","message":"` + message + `"}`))
}
