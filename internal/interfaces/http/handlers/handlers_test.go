package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http/middleware"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// stubReconciler overrides the methods a test exercises; calling anything
// else is a test bug and panics.
type stubReconciler struct {
	billing.Reconciler
	assign func(ctx context.Context, userID, subID string, opts billing.AssignOptions) (*billing.Subscription, error)
	delete func(ctx context.Context, planID, targetPlanID string) (*billing.MigrationReport, error)
	update func(ctx context.Context, subID string, fields billing.SubscriptionUpdate) (*billing.SyncReport, error)
}

func (s *stubReconciler) AssignUserToSubscription(ctx context.Context, userID, subID string, opts billing.AssignOptions) (*billing.Subscription, error) {
	return s.assign(ctx, userID, subID, opts)
}

func (s *stubReconciler) DeletePlanAndMigrateUsers(ctx context.Context, planID, targetPlanID string) (*billing.MigrationReport, error) {
	return s.delete(ctx, planID, targetPlanID)
}

func (s *stubReconciler) UpdateSubscriptionPlanFields(ctx context.Context, subID string, fields billing.SubscriptionUpdate) (*billing.SyncReport, error) {
	return s.update(ctx, subID, fields)
}

type stubOrchestrator struct {
	search.Orchestrator
	execute func(ctx context.Context, userID string, req search.Request) (*search.Outcome, error)
}

func (s *stubOrchestrator) Execute(ctx context.Context, userID string, req search.Request) (*search.Outcome, error) {
	return s.execute(ctx, userID, req)
}

type stubGate struct {
	billing.QuotaGate
	snapshot func(ctx context.Context, userID string) (*billing.QuotaLedger, error)
}

func (s *stubGate) UsageSnapshot(ctx context.Context, userID string) (*billing.QuotaLedger, error) {
	return s.snapshot(ctx, userID)
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.ContextWithIdentity(req.Context(), &middleware.Identity{UserID: userID}))
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestSubscriptionHandler_AssignUser(t *testing.T) {
	t.Parallel()

	rec := &stubReconciler{assign: func(_ context.Context, userID, subID string, opts billing.AssignOptions) (*billing.Subscription, error) {
		assert.Equal(t, "u1", userID)
		assert.Equal(t, "s1", subID)
		assert.False(t, opts.ConfirmMigration)
		return &billing.Subscription{ID: subID, UserIDs: []string{userID}, CurrentUsers: 1}, nil
	}}
	h := handlers.NewSubscriptionHandler(nil, rec, logging.NewNopLogger())

	r := chi.NewRouter()
	r.Post("/subscriptions/{subID}/users", h.AssignUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/s1/users",
		jsonBody(t, map[string]interface{}{"user_id": "u1"}))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var sub billing.Subscription
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, []string{"u1"}, sub.UserIDs)
}

func TestSubscriptionHandler_AssignUser_MigrationConflict(t *testing.T) {
	t.Parallel()

	rec := &stubReconciler{assign: func(_ context.Context, _, _ string, _ billing.AssignOptions) (*billing.Subscription, error) {
		return nil, apperrors.New(apperrors.ErrCodeMigrationRequired, "user already belongs to another subscription")
	}}
	h := handlers.NewSubscriptionHandler(nil, rec, logging.NewNopLogger())

	r := chi.NewRouter()
	r.Post("/subscriptions/{subID}/users", h.AssignUser)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/subscriptions/s1/users",
		jsonBody(t, map[string]interface{}{"user_id": "u1"}))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ErrCodeMigrationRequired.String(), body.Code)
}

func TestSubscriptionHandler_Update_PartialFailureIs207(t *testing.T) {
	t.Parallel()

	rec := &stubReconciler{update: func(_ context.Context, subID string, _ billing.SubscriptionUpdate) (*billing.SyncReport, error) {
		assert.Equal(t, "s1", subID)
		return &billing.SyncReport{Synced: 2, Failures: []billing.SyncFailure{{UserID: "u3", Reason: "ledger write failed"}}}, nil
	}}
	h := handlers.NewSubscriptionHandler(nil, rec, logging.NewNopLogger())

	r := chi.NewRouter()
	r.Put("/subscriptions/{subID}", h.Update)

	w := httptest.NewRecorder()
	price := 99.0
	req := httptest.NewRequest(http.MethodPut, "/subscriptions/s1",
		jsonBody(t, map[string]interface{}{"monthly_price": price}))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMultiStatus, w.Code)
	var report billing.SyncReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Synced)
	require.Len(t, report.Failures, 1)
}

func TestPlanHandler_Delete_ReportsMigration(t *testing.T) {
	t.Parallel()

	rec := &stubReconciler{delete: func(_ context.Context, planID, targetPlanID string) (*billing.MigrationReport, error) {
		assert.Equal(t, "p1", planID)
		assert.Equal(t, "p2", targetPlanID)
		return &billing.MigrationReport{Migrated: 3, PlanDeleted: true}, nil
	}}
	h := handlers.NewPlanHandler(nil, rec, logging.NewNopLogger())

	r := chi.NewRouter()
	r.Delete("/plans/{planID}", h.Delete)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/plans/p1",
		jsonBody(t, map[string]string{"target_plan_id": "p2"}))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var report billing.MigrationReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.PlanDeleted)
	assert.Equal(t, 3, report.Migrated)
}

func TestSearchHandler_Submit(t *testing.T) {
	t.Parallel()

	orch := &stubOrchestrator{execute: func(_ context.Context, userID string, req search.Request) (*search.Outcome, error) {
		assert.Equal(t, "u1", userID)
		assert.Equal(t, "semaglutide", req.Molecule)
		return &search.Outcome{Result: &search.Result{JobID: "job-1", Molecule: req.Molecule}}, nil
	}}
	h := handlers.NewSearchHandler(orch, logging.NewNopLogger())

	w := httptest.NewRecorder()
	req := asUser(httptest.NewRequest(http.MethodPost, "/search",
		jsonBody(t, map[string]interface{}{"molecule": "semaglutide", "countries": []string{"US"}})), "u1")
	h.Submit(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var outcome search.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, "job-1", outcome.Result.JobID)
	assert.False(t, outcome.FromCache)
}

func TestSearchHandler_Submit_Unauthenticated(t *testing.T) {
	t.Parallel()

	h := handlers.NewSearchHandler(&stubOrchestrator{}, logging.NewNopLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/search",
		jsonBody(t, map[string]interface{}{"molecule": "semaglutide"}))
	h.Submit(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchHandler_Submit_QuotaExceeded(t *testing.T) {
	t.Parallel()

	orch := &stubOrchestrator{execute: func(_ context.Context, _ string, _ search.Request) (*search.Outcome, error) {
		return nil, apperrors.New(apperrors.ErrCodeQuotaExceeded, "search quota exhausted")
	}}
	h := handlers.NewSearchHandler(orch, logging.NewNopLogger())

	w := httptest.NewRecorder()
	req := asUser(httptest.NewRequest(http.MethodPost, "/search",
		jsonBody(t, map[string]interface{}{"molecule": "semaglutide", "countries": []string{"US"}})), "u1")
	h.Submit(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ErrCodeQuotaExceeded.String(), body.Code)
}

func TestQuotaHandler_Usage(t *testing.T) {
	t.Parallel()

	gate := &stubGate{snapshot: func(_ context.Context, userID string) (*billing.QuotaLedger, error) {
		assert.Equal(t, "u1", userID)
		return &billing.QuotaLedger{UserID: userID, SearchesUsed: 3, SearchesLimit: 5}, nil
	}}
	h := handlers.NewQuotaHandler(gate, logging.NewNopLogger())

	w := httptest.NewRecorder()
	h.Usage(w, asUser(httptest.NewRequest(http.MethodGet, "/quota/usage", nil), "u1"))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["can_search"])
	assert.Equal(t, float64(2), body["remaining"])
}

func TestQuotaHandler_Usage_NoLedgerIsDenialNotError(t *testing.T) {
	t.Parallel()

	gate := &stubGate{snapshot: func(_ context.Context, _ string) (*billing.QuotaLedger, error) {
		return nil, apperrors.New(apperrors.ErrCodeLedgerNotFound, "no ledger")
	}}
	h := handlers.NewQuotaHandler(gate, logging.NewNopLogger())

	w := httptest.NewRecorder()
	h.Usage(w, asUser(httptest.NewRequest(http.MethodGet, "/quota/usage", nil), "u1"))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["can_search"])
}

func TestWriteError_MasksInternalDetails(t *testing.T) {
	t.Parallel()

	orch := &stubOrchestrator{execute: func(_ context.Context, _ string, _ search.Request) (*search.Outcome, error) {
		return nil, apperrors.New(apperrors.ErrCodeDocumentStore, "firestore write failed").
			WithDetail("collection=patent_cache_data doc=job-1")
	}}
	h := handlers.NewSearchHandler(orch, logging.NewNopLogger())

	w := httptest.NewRecorder()
	req := asUser(httptest.NewRequest(http.MethodPost, "/search",
		jsonBody(t, map[string]interface{}{"molecule": "m", "countries": []string{"US"}})), "u1")
	h.Submit(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "patent_cache_data")
	assert.Contains(t, w.Body.String(), "internal server error")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return apperrors.New(apperrors.ErrCodeCacheError, "connection refused")
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func TestHealthHandler_Probes(t *testing.T) {
	t.Parallel()

	h := handlers.NewHealthHandler(map[string]handlers.Pinger{"redis": okPinger{}}, "0.1.0", logging.NewNopLogger())
	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	degraded := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"redis": failingPinger{},
		"api":   okPinger{},
	}, "0.1.0", logging.NewNopLogger())
	w = httptest.NewRecorder()
	degraded.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
