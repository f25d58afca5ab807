package companies

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitewise-erp/sitewise-erp/internal/auth"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Handler exposes the company profile endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleGet)
	r.With(auth.RequireRole(shared.RoleOwner, shared.RoleAdmin)).Patch("/", h.handleUpdate)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())
	company, err := h.service.Get(r.Context(), id.CompanyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, company)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := shared.IdentityFromContext(r.Context())

	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	company, err := h.service.Update(r.Context(), id.CompanyID, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, company)
}
