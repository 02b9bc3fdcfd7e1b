package account

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/audit"
	"github.com/restyle-platform/restyle/internal/entitlement"
	"github.com/restyle-platform/restyle/internal/identity"
	"github.com/restyle-platform/restyle/internal/profiles"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler serves the caller's own profile, usage and plan. A first-seen
// uid gets a profile row created on the fly.
type Handler struct {
	profileRepo profiles.Repository
	meter       *entitlement.Service
	auditRepo   audit.Repository
}

func NewHandler(profileRepo profiles.Repository, meter *entitlement.Service, auditRepo audit.Repository) *Handler {
	return &Handler{profileRepo: profileRepo, meter: meter, auditRepo: auditRepo}
}

// GetProfile handles GET /api/v1/account/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}
	api.JSON(w, http.StatusOK, profile)
}

// GetUsage handles GET /api/v1/account/usage.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	now := time.Now()
	api.JSON(w, http.StatusOK, map[string]any{
		"aiGenerationCount": profile.Usage.AIGenerationCount,
		"lastResetDate":     profile.Usage.LastResetDate,
		"remaining":         h.meter.Remaining(profile, now),
	})
}

// GetPlan handles GET /api/v1/account/plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r)
	if !ok {
		return
	}

	now := time.Now()
	resp := map[string]any{"plan": profile.EffectivePlan(now)}
	if profile.Subscription.Active(now) {
		resp["endDate"] = profile.Subscription.EndDate
	}
	api.JSON(w, http.StatusOK, resp)
}

// ListAudit handles GET /api/v1/account/audit. Results are scoped to
// the caller's uid.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	if ident == nil {
		api.HandleError(w, api.ErrUnauthenticated)
		return
	}

	page, pageSize := pagination(r)
	logs, total, err := h.auditRepo.ListByOwner(r.Context(), ident.UID, pageSize, (page-1)*pageSize)
	if err != nil {
		slog.Error("listing audit logs", "uid", ident.UID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if logs == nil {
		logs = []*audit.Log{}
	}

	api.JSONPaginated(w, http.StatusOK, logs, int64(total), page, pageSize)
}

func (h *Handler) loadProfile(w http.ResponseWriter, r *http.Request) (*profiles.UserProfile, bool) {
	ident := identity.FromContext(r.Context())
	if ident == nil {
		api.HandleError(w, api.ErrUnauthenticated)
		return nil, false
	}

	profile, err := h.profileRepo.GetOrCreate(r.Context(), ident.UID)
	if err != nil {
		slog.Error("loading profile", "uid", ident.UID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return nil, false
	}
	return profile, true
}

func pagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 {
		pageSize = min(v, maxPageSize)
	}
	return page, pageSize
}
