package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
)

// SubscriptionHandler serves subscription CRUD and the membership
// operations that keep quota ledgers in step.
type SubscriptionHandler struct {
	admin      billing.AdminService
	reconciler billing.Reconciler
	log        logging.Logger
}

// NewSubscriptionHandler creates the handler.
func NewSubscriptionHandler(admin billing.AdminService, reconciler billing.Reconciler, log logging.Logger) *SubscriptionHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SubscriptionHandler{admin: admin, reconciler: reconciler, log: log.Named("subscription_handler")}
}

type createSubscriptionRequest struct {
	OrganizationID string    `json:"organization_id"`
	PlanID         string    `json:"plan_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	UserIDs        []string  `json:"user_ids,omitempty"`
}

type createSubscriptionResponse struct {
	Subscription *billing.Subscription `json:"subscription"`
	MemberSync   *billing.SyncReport   `json:"member_sync,omitempty"`
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, report, err := h.admin.CreateSubscription(r.Context(), billing.CreateSubscriptionCommand{
		OrganizationID: req.OrganizationID,
		PlanID:         req.PlanID,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		InitialUserIDs: req.UserIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if report != nil && len(report.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, createSubscriptionResponse{Subscription: sub, MemberSync: report})
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.admin.ListSubscriptions(r.Context(), r.URL.Query().Get("organization_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.admin.GetSubscription(r.Context(), chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type updateSubscriptionRequest struct {
	MonthlyPrice *float64   `json:"monthly_price,omitempty"`
	MaxUsers     *int       `json:"max_users,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	UserIDs      *[]string  `json:"user_ids,omitempty"`
}

// Update edits subscription fields and fans the change out to every
// member's ledger.  Partial fan-out failures come back as 207 with the sync
// report; the subscription write itself stands.
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSubscriptionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	report, err := h.reconciler.UpdateSubscriptionPlanFields(r.Context(), chi.URLParam(r, "subID"), billing.SubscriptionUpdate{
		MonthlyPrice: req.MonthlyPrice,
		MaxUsers:     req.MaxUsers,
		EndDate:      req.EndDate,
		UserIDs:      req.UserIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if len(report.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, report)
}

func (h *SubscriptionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, billing.SubscriptionPaused)
}

func (h *SubscriptionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, billing.SubscriptionActive)
}

func (h *SubscriptionHandler) setStatus(w http.ResponseWriter, r *http.Request, status billing.SubscriptionStatus) {
	sub, err := h.admin.SetSubscriptionStatus(r.Context(), chi.URLParam(r, "subID"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteSubscription(r.Context(), chi.URLParam(r, "subID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignUserRequest struct {
	UserID           string `json:"user_id"`
	ConfirmMigration bool   `json:"confirm_migration,omitempty"`
}

// AssignUser adds a user to the subscription.  When the user already belongs
// to another active subscription the call fails with a migration-required
// conflict unless confirm_migration is set.
func (h *SubscriptionHandler) AssignUser(w http.ResponseWriter, r *http.Request) {
	var req assignUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.reconciler.AssignUserToSubscription(r.Context(), req.UserID, chi.URLParam(r, "subID"),
		billing.AssignOptions{ConfirmMigration: req.ConfirmMigration})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	sub, err := h.reconciler.RemoveUserFromSubscription(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type migrateUserRequest struct {
	UserID             string `json:"user_id"`
	FromSubscriptionID string `json:"from_subscription_id"`
}

func (h *SubscriptionHandler) MigrateUser(w http.ResponseWriter, r *http.Request) {
	var req migrateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.reconciler.MigrateUser(r.Context(), req.UserID, req.FromSubscriptionID, chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Recount recomputes currentUsers and totalSearchesUsed from the membership
// list and ledgers, repairing drift left by older clients.
func (h *SubscriptionHandler) Recount(w http.ResponseWriter, r *http.Request) {
	sub, err := h.reconciler.RecomputeAggregates(r.Context(), chi.URLParam(r, "subID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
