package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
)

// PlanHandler serves the plan admin endpoints.  Deleting a plan is a
// migration: every member moves to the target plan before the document goes
// away.
type PlanHandler struct {
	admin      billing.AdminService
	reconciler billing.Reconciler
	log        logging.Logger
}

// NewPlanHandler creates the handler.
func NewPlanHandler(admin billing.AdminService, reconciler billing.Reconciler, log logging.Logger) *PlanHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PlanHandler{admin: admin, reconciler: reconciler, log: log.Named("plan_handler")}
}

type createPlanRequest struct {
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	SearchesPerUser int      `json:"searches_per_user"`
	MaxUsers        int      `json:"max_users"`
	Features        []string `json:"features,omitempty"`
}

func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	plan, err := h.admin.CreatePlan(r.Context(), req.Name, req.Price, req.SearchesPerUser, req.MaxUsers, req.Features)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	plans, err := h.admin.ListPlans(r.Context(), onlyActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.admin.GetPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type updatePlanRequest struct {
	Name            *string   `json:"name,omitempty"`
	Price           *float64  `json:"price,omitempty"`
	SearchesPerUser *int      `json:"searches_per_user,omitempty"`
	MaxUsers        *int      `json:"max_users,omitempty"`
	Features        *[]string `json:"features,omitempty"`
	IsActive        *bool     `json:"is_active,omitempty"`
}

func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updatePlanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	plan, err := h.admin.GetPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.SearchesPerUser != nil {
		plan.SearchesPerUser = *req.SearchesPerUser
	}
	if req.MaxUsers != nil {
		plan.MaxUsers = *req.MaxUsers
	}
	if req.Features != nil {
		plan.Features = *req.Features
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	if err := h.admin.UpdatePlan(r.Context(), plan); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type deletePlanRequest struct {
	TargetPlanID string `json:"target_plan_id"`
}

// Delete migrates every user of the plan to target_plan_id and then removes
// the plan document.  Partial migration failures are reported in the body.
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deletePlanRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	report, err := h.reconciler.DeletePlanAndMigrateUsers(r.Context(), chi.URLParam(r, "planID"), req.TargetPlanID)
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
