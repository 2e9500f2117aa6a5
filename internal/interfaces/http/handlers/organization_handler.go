package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
)

// OrganizationHandler serves the organization admin endpoints.
type OrganizationHandler struct {
	admin billing.AdminService
	log   logging.Logger
}

// NewOrganizationHandler creates the handler.
func NewOrganizationHandler(admin billing.AdminService, log logging.Logger) *OrganizationHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &OrganizationHandler{admin: admin, log: log.Named("org_handler")}
}

type createOrganizationRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Email string `json:"email"`
	CNPJ  string `json:"cnpj,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	org, err := h.admin.CreateOrganization(r.Context(), req.Name,
		billing.OrganizationType(req.Type), req.Email, req.CNPJ, req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.admin.ListOrganizations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.admin.GetOrganization(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

type updateOrganizationRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	CNPJ  string `json:"cnpj,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateOrganizationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	org, err := h.admin.GetOrganization(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Name != "" {
		org.Name = req.Name
	}
	if req.Email != "" {
		org.Email = req.Email
	}
	if req.CNPJ != "" {
		org.CNPJ = req.CNPJ
	}
	if req.Phone != "" {
		org.Phone = req.Phone
	}
	if err := h.admin.UpdateOrganization(r.Context(), org); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrganizationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "orgID")
	if err := h.admin.SetOrganizationStatus(r.Context(), id, billing.OrganizationStatus(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}
