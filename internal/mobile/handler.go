package mobile

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/safety"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
	"github.com/sitewise-erp/sitewise-erp/internal/tasks"
)

// Handler exposes the mobile endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers mobile routes. Every route is reachable by any
// authenticated member, workers included.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/my-tasks", h.handleMyTasks)
	r.Patch("/tasks/{id}/status", h.handleMoveTask)
	r.Post("/incidents", h.handleReportIncident)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())

	dashboard, err := h.service.Dashboard(r.Context(), identity)
	if err != nil {
		h.logger.Error("mobile dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, dashboard)
}

func (h *Handler) handleMyTasks(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()

	filters := tasks.ListFilters{Status: tasks.TaskStatus(q.Get("status"))}
	page := shared.PageFromQuery(q)

	items, total, err := h.service.MyTasks(r.Context(), identity, filters, page)
	if err != nil {
		h.logger.Error("mobile my-tasks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.ListData{Items: items, Total: total, Page: page.Page, Limit: page.Limit})
}

type moveTaskRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req moveTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.service.MoveTask(r.Context(), identity, id, tasks.TaskStatus(req.Status))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, task)
}

type reportIncidentRequest struct {
	SiteID      int64     `json:"site_id" validate:"required,gt=0"`
	Title       string    `json:"title" validate:"required,min=2"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (h *Handler) handleReportIncident(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())

	var req reportIncidentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	incident, err := h.service.ReportIncident(r.Context(), identity, safety.CreateInput{
		SiteID:      req.SiteID,
		Title:       req.Title,
		Description: req.Description,
		Severity:    safety.Severity(req.Severity),
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, incident)
}
