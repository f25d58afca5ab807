// Package mobile exposes the condensed API surface used by the field app:
// the caller's task list, quick incident reporting, and a dashboard that
// aggregates counts across the other modules in one round trip.
package mobile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sitewise-erp/sitewise-erp/internal/budgets"
	"github.com/sitewise-erp/sitewise-erp/internal/safety"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
	"github.com/sitewise-erp/sitewise-erp/internal/tasks"
)

// TaskBoard is the slice of the task service the app needs.
type TaskBoard interface {
	MyTasks(ctx context.Context, caller shared.Identity, f tasks.ListFilters, page shared.PageRequest) ([]tasks.Task, int, error)
	CountOpen(ctx context.Context, caller shared.Identity) (int, error)
	UpdateStatus(ctx context.Context, caller shared.Identity, id int64, status tasks.TaskStatus) (*tasks.Task, error)
}

// IncidentDesk is the slice of the safety service the app needs.
type IncidentDesk interface {
	Report(ctx context.Context, identity shared.Identity, in safety.CreateInput) (*safety.Incident, error)
	CountOpen(ctx context.Context, companyID, siteID int64) (int, error)
}

// SiteBoard counts the tenant's active sites.
type SiteBoard interface {
	CountActive(ctx context.Context, companyID int64) (int, error)
}

// BudgetBoard sums the tenant's budgets.
type BudgetBoard interface {
	CompanyTotals(ctx context.Context, companyID int64) (*budgets.Totals, error)
}

// Service aggregates the per-module services behind the mobile surface.
type Service struct {
	tasks     TaskBoard
	incidents IncidentDesk
	sites     SiteBoard
	budgets   BudgetBoard
	unit      currency.Unit
	printer   *message.Printer
}

// NewService constructs a Service. currencyCode is the ISO 4217 code used for
// display amounts; unknown codes fall back to USD.
func NewService(taskBoard TaskBoard, incidents IncidentDesk, sites SiteBoard, budgetBoard BudgetBoard, currencyCode string) *Service {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.USD
	}
	return &Service{
		tasks:     taskBoard,
		incidents: incidents,
		sites:     sites,
		budgets:   budgetBoard,
		unit:      unit,
		printer:   message.NewPrinter(language.English),
	}
}

// Dashboard is the one-screen summary for the field app.
type Dashboard struct {
	OpenTasks     int             `json:"open_tasks"`
	OpenIncidents int             `json:"open_incidents"`
	ActiveSites   int             `json:"active_sites"`
	Budget        *budgets.Totals `json:"budget"`
	SpentDisplay  string          `json:"spent_display"`
}

// Dashboard gathers the counters concurrently; one slow module must not
// serialize the rest on a phone connection.
func (s *Service) Dashboard(ctx context.Context, caller shared.Identity) (*Dashboard, error) {
	var d Dashboard

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.tasks.CountOpen(ctx, caller)
		if err != nil {
			return fmt.Errorf("mobile: count tasks: %w", err)
		}
		d.OpenTasks = n
		return nil
	})
	g.Go(func() error {
		n, err := s.incidents.CountOpen(ctx, caller.CompanyID, 0)
		if err != nil {
			return fmt.Errorf("mobile: count incidents: %w", err)
		}
		d.OpenIncidents = n
		return nil
	})
	g.Go(func() error {
		n, err := s.sites.CountActive(ctx, caller.CompanyID)
		if err != nil {
			return fmt.Errorf("mobile: count sites: %w", err)
		}
		d.ActiveSites = n
		return nil
	})
	g.Go(func() error {
		totals, err := s.budgets.CompanyTotals(ctx, caller.CompanyID)
		if err != nil {
			return fmt.Errorf("mobile: budget totals: %w", err)
		}
		d.Budget = totals
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.SpentDisplay = s.printer.Sprint(currency.Symbol(s.unit.Amount(d.Budget.Spent.InexactFloat64())))
	return &d, nil
}

// MyTasks lists the caller's tasks.
func (s *Service) MyTasks(ctx context.Context, caller shared.Identity, f tasks.ListFilters, page shared.PageRequest) ([]tasks.Task, int, error) {
	return s.tasks.MyTasks(ctx, caller, f, page)
}

// MoveTask updates the status of one of the caller's tasks.
func (s *Service) MoveTask(ctx context.Context, caller shared.Identity, id int64, status tasks.TaskStatus) (*tasks.Task, error) {
	return s.tasks.UpdateStatus(ctx, caller, id, status)
}

// ReportIncident files a quick incident report from the field.
func (s *Service) ReportIncident(ctx context.Context, caller shared.Identity, in safety.CreateInput) (*safety.Incident, error) {
	return s.incidents.Report(ctx, caller, in)
}
