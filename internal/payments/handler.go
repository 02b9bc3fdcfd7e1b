package payments

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/identity"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// Confirm handles POST /api/v1/payments/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	if ident == nil {
		api.HandleError(w, api.ErrUnauthenticated)
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	// A request missing its references never reaches the confirmation
	// protocol. This is a malformed body, not a failed validation step,
	// so it reports which fields are wrong instead of the protocol error.
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	resp, err := h.svc.Confirm(r.Context(), ident.UID, &req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, resp)
}
