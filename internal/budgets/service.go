package budgets

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/db"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Store abstracts persistence for tests. Mutations that touch derived state
// are only reachable through WithTx.
type Store interface {
	CreateBudget(ctx context.Context, companyID, siteID int64, total decimal.Decimal) (*Budget, error)
	FindBudget(ctx context.Context, companyID, id int64) (*Budget, error)
	ListBudgets(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Budget, int, error)
	SoftDeleteBudget(ctx context.Context, companyID, id int64) (bool, error)
	RestoreBudget(ctx context.Context, companyID, id int64) (bool, error)
	Categories(ctx context.Context, companyID, budgetID int64) ([]Category, error)
	Expenses(ctx context.Context, companyID, categoryID int64, page shared.PageRequest) ([]Expense, int, error)
	Totals(ctx context.Context, companyID int64) (*Totals, error)
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// SiteDirectory answers whether a site belongs to the tenant.
type SiteDirectory interface {
	Exists(ctx context.Context, companyID, siteID int64) (bool, error)
}

// Service wraps budget business rules. Every child mutation recomputes the
// affected rollups in the same transaction, so readers never observe a budget
// whose allocated_budget or spent_budget disagrees with its live children.
type Service struct {
	store Store
	sites SiteDirectory
}

// NewService constructs a Service.
func NewService(store Store, sites SiteDirectory) *Service {
	return &Service{store: store, sites: sites}
}

// CreateInput collects the fields for a new budget.
type CreateInput struct {
	SiteID      int64
	TotalBudget decimal.Decimal
}

// Create validates and inserts a budget for a site. A site carries at most
// one budget.
func (s *Service) Create(ctx context.Context, companyID int64, in CreateInput) (*Budget, error) {
	if in.TotalBudget.IsNegative() {
		return nil, fmt.Errorf("total budget must not be negative: %w", httpx.ErrValidation)
	}
	ok, err := s.sites.Exists(ctx, companyID, in.SiteID)
	if err != nil {
		return nil, fmt.Errorf("budgets: check site: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("site does not belong to company: %w", httpx.ErrValidation)
	}

	budget, err := s.store.CreateBudget(ctx, companyID, in.SiteID, in.TotalBudget)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("site already has a budget: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("budgets: create: %w", err)
	}
	return budget, nil
}

// Get returns one budget with its live categories.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*BudgetDetail, error) {
	budget, err := s.store.FindBudget(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("budgets: find: %w", err)
	}
	if budget == nil {
		return nil, httpx.ErrNotFound
	}
	categories, err := s.store.Categories(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("budgets: categories: %w", err)
	}
	return &BudgetDetail{Budget: *budget, Categories: categories}, nil
}

// List returns one page of budgets.
func (s *Service) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Budget, int, error) {
	return s.store.ListBudgets(ctx, companyID, f, page)
}

// UpdateInput is the partial budget patch. Rollup columns are derived and
// cannot be patched.
type UpdateInput struct {
	TotalBudget query.Optional[decimal.Decimal] `json:"total_budget"`
}

// Update changes the budget envelope. Shrinking it below the current
// allocation is rejected and rolled back.
func (s *Service) Update(ctx context.Context, companyID, id int64, in UpdateInput) (*Budget, error) {
	if in.TotalBudget.Present {
		if in.TotalBudget.Null || in.TotalBudget.Value.IsNegative() {
			return nil, fmt.Errorf("total budget must not be negative: %w", httpx.ErrValidation)
		}
	}

	var set query.SetBuilder
	query.Apply(&set, "total_budget", in.TotalBudget)

	var out *Budget
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		budget, err := tx.UpdateBudget(ctx, companyID, id, &set)
		if err != nil {
			return fmt.Errorf("budgets: update: %w", err)
		}
		if budget == nil {
			return httpx.ErrNotFound
		}
		if budget.AllocatedBudget.GreaterThan(budget.TotalBudget) {
			return fmt.Errorf("total budget below current allocation: %w", httpx.ErrValidation)
		}
		out = budget
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete soft-deletes a budget.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	ok, err := s.store.SoftDeleteBudget(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("budgets: delete: %w", err)
	}
	if !ok {
		return httpx.ErrNotFound
	}
	return nil
}

// Restore revives a soft-deleted budget.
func (s *Service) Restore(ctx context.Context, companyID, id int64) (*BudgetDetail, error) {
	ok, err := s.store.RestoreBudget(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("budgets: restore: %w", err)
	}
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return s.Get(ctx, companyID, id)
}

// CategoryInput collects the fields for a new category.
type CategoryInput struct {
	Name            string
	AllocatedAmount decimal.Decimal
}

// AddCategory inserts a category and rebuilds the budget rollups. The insert
// rolls back when it would push the allocation past the budget envelope.
func (s *Service) AddCategory(ctx context.Context, companyID, budgetID int64, in CategoryInput) (*Category, error) {
	if in.AllocatedAmount.IsNegative() {
		return nil, fmt.Errorf("allocated amount must not be negative: %w", httpx.ErrValidation)
	}

	var out *Category
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		budget, err := tx.FindBudget(ctx, companyID, budgetID)
		if err != nil {
			return fmt.Errorf("budgets: find: %w", err)
		}
		if budget == nil {
			return httpx.ErrNotFound
		}

		category, err := tx.InsertCategory(ctx, budgetID, in.Name, in.AllocatedAmount)
		if err != nil {
			return fmt.Errorf("budgets: insert category: %w", err)
		}
		if err := s.rebuildAndCheck(ctx, tx, companyID, budgetID); err != nil {
			return err
		}
		out = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryPatch is the partial category patch. SpentAmount is derived.
type CategoryPatch struct {
	Name            query.Optional[string]          `json:"name"`
	AllocatedAmount query.Optional[decimal.Decimal] `json:"allocated_amount"`
}

// UpdateCategory applies the present fields and rebuilds the budget rollups.
func (s *Service) UpdateCategory(ctx context.Context, companyID, categoryID int64, in CategoryPatch) (*Category, error) {
	if in.Name.Present && (in.Name.Null || in.Name.Value == "") {
		return nil, fmt.Errorf("name must not be empty: %w", httpx.ErrValidation)
	}
	if in.AllocatedAmount.Present {
		if in.AllocatedAmount.Null || in.AllocatedAmount.Value.IsNegative() {
			return nil, fmt.Errorf("allocated amount must not be negative: %w", httpx.ErrValidation)
		}
	}

	var set query.SetBuilder
	query.Apply(&set, "name", in.Name)
	query.Apply(&set, "allocated_amount", in.AllocatedAmount)

	var out *Category
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		budgetID, live, err := tx.ResolveCategory(ctx, companyID, categoryID)
		if err != nil {
			return fmt.Errorf("budgets: resolve category: %w", err)
		}
		if budgetID == 0 || !live {
			return httpx.ErrNotFound
		}

		category, err := tx.UpdateCategory(ctx, categoryID, &set)
		if err != nil {
			return fmt.Errorf("budgets: update category: %w", err)
		}
		if category == nil {
			return httpx.ErrNotFound
		}
		if err := s.rebuildAndCheck(ctx, tx, companyID, budgetID); err != nil {
			return err
		}
		out = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCategory soft-deletes a category and rebuilds the budget rollups. Its
// expenses stop counting immediately.
func (s *Service) DeleteCategory(ctx context.Context, companyID, categoryID int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		budgetID, live, err := tx.ResolveCategory(ctx, companyID, categoryID)
		if err != nil {
			return fmt.Errorf("budgets: resolve category: %w", err)
		}
		if budgetID == 0 || !live {
			return httpx.ErrNotFound
		}
		if _, err := tx.SoftDeleteCategory(ctx, categoryID); err != nil {
			return fmt.Errorf("budgets: delete category: %w", err)
		}
		return tx.RecomputeBudget(ctx, budgetID)
	})
}

// RestoreCategory revives a soft-deleted category. The restore rolls back
// when the returning allocation no longer fits the envelope.
func (s *Service) RestoreCategory(ctx context.Context, companyID, categoryID int64) (*Category, error) {
	var out *Category
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		budgetID, live, err := tx.ResolveCategory(ctx, companyID, categoryID)
		if err != nil {
			return fmt.Errorf("budgets: resolve category: %w", err)
		}
		if budgetID == 0 || live {
			return httpx.ErrNotFound
		}
		if _, err := tx.RestoreCategory(ctx, categoryID); err != nil {
			return fmt.Errorf("budgets: restore category: %w", err)
		}
		if err := s.rebuildAndCheck(ctx, tx, companyID, budgetID); err != nil {
			return err
		}
		category, err := tx.FindCategory(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("budgets: find category: %w", err)
		}
		out = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExpenseInput collects the fields for a new expense.
type ExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	IncurredAt  time.Time
}

// AddExpense books an expense against a category and rebuilds both rollups.
// Spending past the allocation is allowed; only allocation is capped.
func (s *Service) AddExpense(ctx context.Context, companyID, categoryID int64, in ExpenseInput) (*Expense, error) {
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %w", httpx.ErrValidation)
	}
	if in.IncurredAt.IsZero() {
		in.IncurredAt = time.Now().UTC()
	}

	var out *Expense
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		budgetID, live, err := tx.ResolveCategory(ctx, companyID, categoryID)
		if err != nil {
			return fmt.Errorf("budgets: resolve category: %w", err)
		}
		if budgetID == 0 || !live {
			return httpx.ErrNotFound
		}

		expense, err := tx.InsertExpense(ctx, categoryID, ExpenseFields(in))
		if err != nil {
			return fmt.Errorf("budgets: insert expense: %w", err)
		}
		if err := tx.RecomputeCategory(ctx, categoryID); err != nil {
			return fmt.Errorf("budgets: recompute category: %w", err)
		}
		if err := tx.RecomputeBudget(ctx, budgetID); err != nil {
			return fmt.Errorf("budgets: recompute budget: %w", err)
		}
		out = expense
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExpensePatch is the partial expense patch.
type ExpensePatch struct {
	Description query.Optional[string]          `json:"description"`
	Amount      query.Optional[decimal.Decimal] `json:"amount"`
	IncurredAt  query.Optional[time.Time]       `json:"incurred_at"`
}

// UpdateExpense applies the present fields and rebuilds both rollups.
func (s *Service) UpdateExpense(ctx context.Context, companyID, expenseID int64, in ExpensePatch) (*Expense, error) {
	if in.Amount.Present {
		if in.Amount.Null || in.Amount.Value.IsNegative() {
			return nil, fmt.Errorf("amount must not be negative: %w", httpx.ErrValidation)
		}
	}

	var set query.SetBuilder
	query.Apply(&set, "description", in.Description)
	query.Apply(&set, "amount", in.Amount)
	query.Apply(&set, "incurred_at", in.IncurredAt)

	var out *Expense
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		categoryID, budgetID, live, err := tx.ResolveExpense(ctx, companyID, expenseID)
		if err != nil {
			return fmt.Errorf("budgets: resolve expense: %w", err)
		}
		if categoryID == 0 || !live {
			return httpx.ErrNotFound
		}

		expense, err := tx.UpdateExpense(ctx, expenseID, &set)
		if err != nil {
			return fmt.Errorf("budgets: update expense: %w", err)
		}
		if expense == nil {
			return httpx.ErrNotFound
		}
		if err := tx.RecomputeCategory(ctx, categoryID); err != nil {
			return fmt.Errorf("budgets: recompute category: %w", err)
		}
		if err := tx.RecomputeBudget(ctx, budgetID); err != nil {
			return fmt.Errorf("budgets: recompute budget: %w", err)
		}
		out = expense
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteExpense soft-deletes an expense. The spent rollups drop by its amount
// in the same transaction.
func (s *Service) DeleteExpense(ctx context.Context, companyID, expenseID int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		categoryID, budgetID, live, err := tx.ResolveExpense(ctx, companyID, expenseID)
		if err != nil {
			return fmt.Errorf("budgets: resolve expense: %w", err)
		}
		if categoryID == 0 || !live {
			return httpx.ErrNotFound
		}
		if _, err := tx.SoftDeleteExpense(ctx, expenseID); err != nil {
			return fmt.Errorf("budgets: delete expense: %w", err)
		}
		if err := tx.RecomputeCategory(ctx, categoryID); err != nil {
			return fmt.Errorf("budgets: recompute category: %w", err)
		}
		return tx.RecomputeBudget(ctx, budgetID)
	})
}

// RestoreExpense revives a soft-deleted expense and rebuilds both rollups.
func (s *Service) RestoreExpense(ctx context.Context, companyID, expenseID int64) (*Expense, error) {
	var out *Expense
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		categoryID, budgetID, live, err := tx.ResolveExpense(ctx, companyID, expenseID)
		if err != nil {
			return fmt.Errorf("budgets: resolve expense: %w", err)
		}
		if categoryID == 0 || live {
			return httpx.ErrNotFound
		}
		if _, err := tx.RestoreExpense(ctx, expenseID); err != nil {
			return fmt.Errorf("budgets: restore expense: %w", err)
		}
		if err := tx.RecomputeCategory(ctx, categoryID); err != nil {
			return fmt.Errorf("budgets: recompute category: %w", err)
		}
		if err := tx.RecomputeBudget(ctx, budgetID); err != nil {
			return fmt.Errorf("budgets: recompute budget: %w", err)
		}
		expense, err := tx.FindExpense(ctx, expenseID)
		if err != nil {
			return fmt.Errorf("budgets: find expense: %w", err)
		}
		out = expense
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpenses returns one page of a category's expenses.
func (s *Service) ListExpenses(ctx context.Context, companyID, categoryID int64, page shared.PageRequest) ([]Expense, int, error) {
	return s.store.Expenses(ctx, companyID, categoryID, page)
}

// CompanyTotals sums the tenant's live budgets.
func (s *Service) CompanyTotals(ctx context.Context, companyID int64) (*Totals, error) {
	return s.store.Totals(ctx, companyID)
}

// rebuildAndCheck recomputes the budget rollups and enforces the allocation
// cap against the fresh numbers.
func (s *Service) rebuildAndCheck(ctx context.Context, tx TxStore, companyID, budgetID int64) error {
	if err := tx.RecomputeBudget(ctx, budgetID); err != nil {
		return fmt.Errorf("budgets: recompute budget: %w", err)
	}
	budget, err := tx.FindBudget(ctx, companyID, budgetID)
	if err != nil {
		return fmt.Errorf("budgets: find: %w", err)
	}
	if budget == nil {
		return httpx.ErrNotFound
	}
	if budget.AllocatedBudget.GreaterThan(budget.TotalBudget) {
		return fmt.Errorf("allocation exceeds total budget: %w", httpx.ErrValidation)
	}
	return nil
}
