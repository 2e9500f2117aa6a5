package handlers

import (
	"net/http"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// QuotaHandler serves the caller's quota dashboard endpoints.
type QuotaHandler struct {
	gate billing.QuotaGate
	log  logging.Logger
}

// NewQuotaHandler creates the handler.
func NewQuotaHandler(gate billing.QuotaGate, log logging.Logger) *QuotaHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &QuotaHandler{gate: gate, log: log.Named("quota_handler")}
}

type quotaUsageResponse struct {
	Ledger    *billing.QuotaLedger `json:"ledger"`
	CanSearch bool                 `json:"can_search"`
	Unlimited bool                 `json:"unlimited"`
	Remaining int                  `json:"remaining"`
}

// Usage returns the caller's merged ledger with the gate's verdict.  A user
// without a ledger gets can_search=false rather than an error, so the
// upgrade prompt can render.
func (h *QuotaHandler) Usage(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeUnauthorized, "authentication required"))
		return
	}

	ledger, err := h.gate.UsageSnapshot(r.Context(), userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			writeJSON(w, http.StatusOK, quotaUsageResponse{CanSearch: false})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotaUsageResponse{
		Ledger:    ledger,
		CanSearch: ledger.Unlimited() || ledger.Remaining() > 0,
		Unlimited: ledger.Unlimited(),
		Remaining: ledger.Remaining(),
	})
}
