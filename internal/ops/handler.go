package ops

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/payments"
)

const reconciliationPageSize = 50

// Handler serves the operator reconciliation view: payments the gateway
// captured whose subscription activation write failed.
type Handler struct {
	paymentRepo payments.Repository
}

func NewHandler(paymentRepo payments.Repository) *Handler {
	return &Handler{paymentRepo: paymentRepo}
}

// ListReconciliation handles GET /ops/reconciliation.
func (h *Handler) ListReconciliation(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}

	records, total, err := h.paymentRepo.ListActivationFailures(r.Context(), reconciliationPageSize, (page-1)*reconciliationPageSize)
	if err != nil {
		slog.Error("listing activation failures", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if records == nil {
		records = []*payments.ReferenceRecord{}
	}

	api.JSONPaginated(w, http.StatusOK, records, int64(total), page, reconciliationPageSize)
}
