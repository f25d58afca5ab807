package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sitewise-erp/sitewise-erp/internal/auth"
	"github.com/sitewise-erp/sitewise-erp/internal/budgets"
	"github.com/sitewise-erp/sitewise-erp/internal/companies"
	"github.com/sitewise-erp/sitewise-erp/internal/jobs"
	"github.com/sitewise-erp/sitewise-erp/internal/mobile"
	"github.com/sitewise-erp/sitewise-erp/internal/safety"
	"github.com/sitewise-erp/sitewise-erp/internal/sites"
	"github.com/sitewise-erp/sitewise-erp/internal/tasks"
	"github.com/sitewise-erp/sitewise-erp/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthHandler    *auth.Handler
	CompanyHandler *companies.Handler
	UserHandler    *users.Handler
	SiteHandler    *sites.Handler
	JobHandler     *jobs.Handler
	TaskHandler    *tasks.Handler
	BudgetHandler  *budgets.Handler
	SafetyHandler  *safety.Handler
	MobileHandler  *mobile.Handler
}

// NewRouter constructs the chi.Router with SiteWise defaults. Everything
// under /api requires a bearer token except the auth endpoints.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	authenticated := auth.Middleware([]byte(params.Config.JWTSecret))

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			pub.Use(LoginRateLimit())
			pub.Route("/auth", params.AuthHandler.MountRoutes)
		})

		api.Group(func(priv chi.Router) {
			priv.Use(authenticated)
			priv.Route("/company", params.CompanyHandler.MountRoutes)
			priv.Route("/users", params.UserHandler.MountRoutes)
			priv.Route("/sites", params.SiteHandler.MountRoutes)
			priv.Route("/jobs", params.JobHandler.MountRoutes)
			priv.Route("/tasks", params.TaskHandler.MountRoutes)
			priv.Route("/budgets", params.BudgetHandler.MountRoutes)
			priv.Route("/incidents", params.SafetyHandler.MountRoutes)
		})
	})

	r.Route("/api/mobile", func(m chi.Router) {
		m.Use(authenticated)
		params.MobileHandler.MountRoutes(m)
	})

	return r
}
