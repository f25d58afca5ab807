package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sitewise-erp/sitewise-erp/internal/app"
	"github.com/sitewise-erp/sitewise-erp/internal/auth"
	"github.com/sitewise-erp/sitewise-erp/internal/budgets"
	"github.com/sitewise-erp/sitewise-erp/internal/companies"
	"github.com/sitewise-erp/sitewise-erp/internal/jobs"
	"github.com/sitewise-erp/sitewise-erp/internal/mobile"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/cache"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/db"
	"github.com/sitewise-erp/sitewise-erp/internal/safety"
	"github.com/sitewise-erp/sitewise-erp/internal/sites"
	"github.com/sitewise-erp/sitewise-erp/internal/tasks"
	"github.com/sitewise-erp/sitewise-erp/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Refresh tokens live in Redis; without it nobody can hold a session.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	secret := []byte(cfg.JWTSecret)

	tokenStore := auth.NewTokenStore(redisClient, cfg.RefreshTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokenStore, secret, cfg.AccessTTL)
	authHandler := auth.NewHandler(logger, authService)

	companyRepo := companies.NewRepository(pool)
	companyService := companies.NewService(companyRepo)
	companyHandler := companies.NewHandler(logger, companyService)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(logger, userService)

	siteRepo := sites.NewRepository(pool)
	siteService := sites.NewService(siteRepo, userRepo)
	siteHandler := sites.NewHandler(logger, siteService)

	jobRepo := jobs.NewRepository(pool)
	jobService := jobs.NewService(jobRepo, siteRepo)
	jobHandler := jobs.NewHandler(logger, jobService)

	taskRepo := tasks.NewRepository(pool)
	taskService := tasks.NewService(taskRepo, jobRepo, userRepo)
	taskHandler := tasks.NewHandler(logger, taskService)

	budgetRepo := budgets.NewRepository(pool)
	budgetService := budgets.NewService(budgetRepo, siteRepo)
	budgetHandler := budgets.NewHandler(logger, budgetService)

	safetyRepo := safety.NewRepository(pool)
	safetyService := safety.NewService(safetyRepo, siteRepo)
	safetyHandler := safety.NewHandler(logger, safetyService)

	mobileService := mobile.NewService(taskService, safetyService, siteService, budgetService, cfg.CurrencyCode)
	mobileHandler := mobile.NewHandler(logger, mobileService)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    authHandler,
		CompanyHandler: companyHandler,
		UserHandler:    userHandler,
		SiteHandler:    siteHandler,
		JobHandler:     jobHandler,
		TaskHandler:    taskHandler,
		BudgetHandler:  budgetHandler,
		SafetyHandler:  safetyHandler,
		MobileHandler:  mobileHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
