package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// SearchHandler serves the patent search endpoints.  Submit blocks until the
// job reaches a terminal state or the request context is cancelled; progress
// UIs poll Status with the returned job id instead.
type SearchHandler struct {
	orchestrator search.Orchestrator
	log          logging.Logger
}

// NewSearchHandler creates the handler.
func NewSearchHandler(orchestrator search.Orchestrator, log logging.Logger) *SearchHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SearchHandler{orchestrator: orchestrator, log: log.Named("search_handler")}
}

type submitSearchRequest struct {
	Molecule  string   `json:"molecule"`
	Brand     string   `json:"brand,omitempty"`
	Countries []string `json:"countries"`
}

func (h *SearchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeUnauthorized, "authentication required"))
		return
	}
	var req submitSearchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := h.orchestrator.Execute(r.Context(), userID, search.Request{
		Molecule:  req.Molecule,
		Brand:     req.Brand,
		Countries: req.Countries,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *SearchHandler) Status(w http.ResponseWriter, r *http.Request) {
	update, err := h.orchestrator.JobStatus(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *SearchHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeUnauthorized, "authentication required"))
		return
	}
	records, err := h.orchestrator.History(r.Context(), userID, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
