package mobile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sitewise-erp/sitewise-erp/internal/budgets"
	"github.com/sitewise-erp/sitewise-erp/internal/safety"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
	"github.com/sitewise-erp/sitewise-erp/internal/tasks"
)

type stubTasks struct {
	open int
	err  error
}

func (s stubTasks) MyTasks(ctx context.Context, caller shared.Identity, f tasks.ListFilters, page shared.PageRequest) ([]tasks.Task, int, error) {
	return nil, 0, s.err
}

func (s stubTasks) CountOpen(ctx context.Context, caller shared.Identity) (int, error) {
	return s.open, s.err
}

func (s stubTasks) UpdateStatus(ctx context.Context, caller shared.Identity, id int64, status tasks.TaskStatus) (*tasks.Task, error) {
	return nil, s.err
}

type stubIncidents struct{ open int }

func (s stubIncidents) Report(ctx context.Context, identity shared.Identity, in safety.CreateInput) (*safety.Incident, error) {
	return &safety.Incident{SiteID: in.SiteID, ReportedBy: identity.UserID, Title: in.Title}, nil
}

func (s stubIncidents) CountOpen(ctx context.Context, companyID, siteID int64) (int, error) {
	return s.open, nil
}

type stubSites struct{ active int }

func (s stubSites) CountActive(ctx context.Context, companyID int64) (int, error) {
	return s.active, nil
}

type stubBudgets struct{ totals budgets.Totals }

func (s stubBudgets) CompanyTotals(ctx context.Context, companyID int64) (*budgets.Totals, error) {
	t := s.totals
	return &t, nil
}

func caller() shared.Identity {
	return shared.Identity{UserID: 7, CompanyID: 1, Role: shared.RoleWorker}
}

func TestDashboardAggregates(t *testing.T) {
	svc := NewService(
		stubTasks{open: 4},
		stubIncidents{open: 2},
		stubSites{active: 3},
		stubBudgets{totals: budgets.Totals{
			Budgets:   3,
			Total:     decimal.NewFromInt(500000),
			Allocated: decimal.NewFromInt(350000),
			Spent:     decimal.NewFromInt(5000),
		}},
		"USD",
	)

	d, err := svc.Dashboard(context.Background(), caller())
	require.NoError(t, err)
	require.Equal(t, 4, d.OpenTasks)
	require.Equal(t, 2, d.OpenIncidents)
	require.Equal(t, 3, d.ActiveSites)
	require.True(t, d.Budget.Spent.Equal(decimal.NewFromInt(5000)))
	require.Contains(t, d.SpentDisplay, "$")
	require.Contains(t, d.SpentDisplay, "5,000.00")
}

func TestDashboardPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(stubTasks{err: boom}, stubIncidents{}, stubSites{}, stubBudgets{}, "USD")

	_, err := svc.Dashboard(context.Background(), caller())
	require.ErrorIs(t, err, boom)
}

func TestUnknownCurrencyFallsBack(t *testing.T) {
	svc := NewService(stubTasks{}, stubIncidents{}, stubSites{}, stubBudgets{}, "nope")

	d, err := svc.Dashboard(context.Background(), caller())
	require.NoError(t, err)
	require.Contains(t, d.SpentDisplay, "$")
}
