package safety

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sitewise-erp/sitewise-erp/internal/auth"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Handler exposes the incident endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers incident routes. Any member may report; lifecycle
// changes stay with managers and above.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/", h.handleReport)

	manage := r.With(auth.RequireRole(shared.RoleOwner, shared.RoleAdmin, shared.RoleManager))
	manage.Patch("/{id}", h.handleUpdate)
	manage.Post("/{id}/resolve", h.handleResolve)
	manage.Delete("/{id}", h.handleDelete)
	manage.Post("/{id}/restore", h.handleRestore)
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

type reportRequest struct {
	SiteID      int64     `json:"site_id" validate:"required,gt=0"`
	Title       string    `json:"title" validate:"required,min=2"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())

	var req reportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	incident, err := h.service.Report(r.Context(), identity, CreateInput{
		SiteID:      req.SiteID,
		Title:       req.Title,
		Description: req.Description,
		Severity:    Severity(req.Severity),
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, incident)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()

	filters := ListFilters{
		Search:   q.Get("search"),
		Severity: Severity(q.Get("severity")),
		Status:   IncidentStatus(q.Get("status")),
	}
	if raw := q.Get("siteId"); raw != "" {
		filters.SiteID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if from, err := time.Parse(time.DateOnly, q.Get("from")); err == nil {
		filters.From = &from
	}
	if until, err := time.Parse(time.DateOnly, q.Get("until")); err == nil {
		filters.Until = &until
	}
	page := shared.PageFromQuery(q)

	items, total, err := h.service.List(r.Context(), identity.CompanyID, filters, page)
	if err != nil {
		h.logger.Error("list incidents", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.ListData{Items: items, Total: total, Page: page.Page, Limit: page.Limit})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	incident, err := h.service.Get(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, incident)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	incident, err := h.service.Update(r.Context(), identity.CompanyID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, incident)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	incident, err := h.service.Resolve(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, incident)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Delete(r.Context(), identity.CompanyID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, "incident removed")
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	incident, err := h.service.Restore(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, incident)
}
