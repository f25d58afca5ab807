package budgets

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sitewise-erp/sitewise-erp/internal/auth"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Handler exposes the budget endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers budget, category, and expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Get("/categories/{id}/expenses", h.handleListExpenses)

	manage := r.With(auth.RequireRole(shared.RoleOwner, shared.RoleAdmin, shared.RoleManager))
	manage.Post("/", h.handleCreate)
	manage.Patch("/{id}", h.handleUpdate)
	manage.Delete("/{id}", h.handleDelete)
	manage.Post("/{id}/restore", h.handleRestore)

	manage.Post("/{id}/categories", h.handleAddCategory)
	manage.Patch("/categories/{id}", h.handleUpdateCategory)
	manage.Delete("/categories/{id}", h.handleDeleteCategory)
	manage.Post("/categories/{id}/restore", h.handleRestoreCategory)

	manage.Post("/categories/{id}/expenses", h.handleAddExpense)
	manage.Patch("/expenses/{id}", h.handleUpdateExpense)
	manage.Delete("/expenses/{id}", h.handleDeleteExpense)
	manage.Post("/expenses/{id}/restore", h.handleRestoreExpense)
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

type createRequest struct {
	SiteID      int64           `json:"site_id" validate:"required,gt=0"`
	TotalBudget decimal.Decimal `json:"total_budget"`
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

	budget, err := h.service.Create(r.Context(), identity.CompanyID, CreateInput{
		SiteID:      req.SiteID,
		TotalBudget: req.TotalBudget,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, budget)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()

	var filters ListFilters
	if raw := q.Get("siteId"); raw != "" {
		filters.SiteID, _ = strconv.ParseInt(raw, 10, 64)
	}
	page := shared.PageFromQuery(q)

	items, total, err := h.service.List(r.Context(), identity.CompanyID, filters, page)
	if err != nil {
		h.logger.Error("list budgets", slog.Any("error", err))
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

	detail, err := h.service.Get(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, detail)
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

	budget, err := h.service.Update(r.Context(), identity.CompanyID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, budget)
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
	httpx.Message(w, "budget removed")
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	detail, err := h.service.Restore(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, detail)
}

type categoryRequest struct {
	Name            string          `json:"name" validate:"required,min=2"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
}

func (h *Handler) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.service.AddCategory(r.Context(), identity.CompanyID, id, CategoryInput{
		Name:            req.Name,
		AllocatedAmount: req.AllocatedAmount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, category)
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	var in CategoryPatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), identity.CompanyID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, category)
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.DeleteCategory(r.Context(), identity.CompanyID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, "category removed")
}

func (h *Handler) handleRestoreCategory(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	category, err := h.service.RestoreCategory(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, category)
}

type expenseRequest struct {
	Description string          `json:"description" validate:"required,min=2"`
	Amount      decimal.Decimal `json:"amount"`
	IncurredAt  time.Time       `json:"incurred_at"`
}

func (h *Handler) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := h.service.AddExpense(r.Context(), identity.CompanyID, id, ExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		IncurredAt:  req.IncurredAt,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, expense)
}

func (h *Handler) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}
	page := shared.PageFromQuery(r.URL.Query())

	items, total, err := h.service.ListExpenses(r.Context(), identity.CompanyID, id, page)
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.ListData{Items: items, Total: total, Page: page.Page, Limit: page.Limit})
}

func (h *Handler) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	var in ExpensePatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := h.service.UpdateExpense(r.Context(), identity.CompanyID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, expense)
}

func (h *Handler) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.DeleteExpense(r.Context(), identity.CompanyID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, "expense removed")
}

func (h *Handler) handleRestoreExpense(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return
	}

	expense, err := h.service.RestoreExpense(r.Context(), identity.CompanyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, expense)
}
