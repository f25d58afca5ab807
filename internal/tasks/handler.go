package tasks

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

// Handler exposes the task endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers task routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)

	manage := r.With(auth.RequireRole(shared.RoleOwner, shared.RoleAdmin, shared.RoleManager))
	manage.Post("/", h.handleCreate)
	manage.Patch("/{id}", h.handleUpdate)
	manage.Delete("/{id}", h.handleDelete)
	manage.Post("/{id}/restore", h.handleRestore)
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

type createRequest struct {
	JobID       int64      `json:"job_id" validate:"required,gt=0"`
	Title       string     `json:"title" validate:"required,min=2"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AssigneeID  *int64     `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.service.Create(r.Context(), identity.CompanyID, CreateInput{
		JobID:       req.JobID,
		Title:       req.Title,
		Description: req.Description,
		Status:      TaskStatus(req.Status),
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, task)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()

	filters := ListFilters{
		Search: q.Get("search"),
		Status: TaskStatus(q.Get("status")),
	}
	if raw := q.Get("jobId"); raw != "" {
		filters.JobID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := q.Get("assigneeId"); raw != "" {
		filters.AssigneeID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if from, err := time.Parse(time.DateOnly, q.Get("dueFrom")); err == nil {
		filters.DueFrom = &from
	}
	if until, err := time.Parse(time.DateOnly, q.Get("dueUntil")); err == nil {
		filters.DueUntil = &until
	}
	page := shared.PageFromQuery(q)

	items, total, err := h.service.List(r.Context(), identity.CompanyID, filters, page)
	if err != nil {
		h.logger.Error("list tasks", slog.Any("error", err))
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

	task, err := h.service.Get(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, task)
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

	task, err := h.service.Update(r.Context(), identity.CompanyID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, task)
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
	httpx.Message(w, "task removed")
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.service.Restore(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, task)
}
