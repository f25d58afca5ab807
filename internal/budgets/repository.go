package budgets

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/crud"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/db"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

var table = crud.Table[Budget]{
	Name: "site_budgets",
	Columns: []string{
		"id", "company_id", "site_id", "total_budget", "allocated_budget",
		"spent_budget", "created_at", "updated_at",
	},
	TenantColumn: "company_id",
	Scan: func(rows pgx.Rows) (Budget, error) {
		var b Budget
		err := rows.Scan(&b.ID, &b.CompanyID, &b.SiteID, &b.TotalBudget, &b.AllocatedBudget,
			&b.SpentBudget, &b.CreatedAt, &b.UpdatedAt)
		return b, err
	},
}

const categoryColumns = `id, budget_id, name, allocated_amount, spent_amount, created_at, updated_at`

const expenseColumns = `id, category_id, description, amount, incurred_at, created_at, updated_at`

// Rollups are recomputed from scratch rather than adjusted incrementally, so
// a replayed recompute is idempotent and drift cannot accumulate. The
// deleted_at filters keep soft-deleted children out of every sum.
const recomputeCategorySQL = `UPDATE budget_categories SET
spent_amount = COALESCE((SELECT SUM(amount) FROM budget_expenses WHERE category_id = $1 AND deleted_at IS NULL), 0),
updated_at = now()
WHERE id = $1`

const recomputeBudgetSQL = `UPDATE site_budgets SET
allocated_budget = COALESCE((SELECT SUM(allocated_amount) FROM budget_categories WHERE budget_id = $1 AND deleted_at IS NULL), 0),
spent_budget = COALESCE((SELECT SUM(spent_amount) FROM budget_categories WHERE budget_id = $1 AND deleted_at IS NULL), 0),
updated_at = now()
WHERE id = $1`

// Repository provides PostgreSQL backed persistence. Mutations that touch
// derived state run through WithTx so a mutation and its recompute commit or
// roll back together.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateBudget inserts a budget for a site with zeroed rollups.
func (r *Repository) CreateBudget(ctx context.Context, companyID, siteID int64, total decimal.Decimal) (*Budget, error) {
	now := time.Now().UTC()
	rows, err := r.pool.Query(ctx, `INSERT INTO site_budgets (company_id, site_id, total_budget, allocated_budget, spent_budget, created_at, updated_at)
VALUES ($1, $2, $3, 0, 0, $4, $4)
RETURNING id, company_id, site_id, total_budget, allocated_budget, spent_budget, created_at, updated_at`,
		companyID, siteID, total, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	b, err := table.Scan(rows)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindBudget returns the budget or nil.
func (r *Repository) FindBudget(ctx context.Context, companyID, id int64) (*Budget, error) {
	return table.FindByID(ctx, r.pool, companyID, id)
}

// ListBudgets returns one page of budgets plus the unpaginated total.
func (r *Repository) ListBudgets(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Budget, int, error) {
	b := table.BaseFilter(companyID)
	if f.SiteID > 0 {
		b.Equal("site_id", f.SiteID)
	}
	return table.List(ctx, r.pool, b, page, "created_at DESC, id DESC")
}

// SoftDeleteBudget marks the budget deleted.
func (r *Repository) SoftDeleteBudget(ctx context.Context, companyID, id int64) (bool, error) {
	return table.SoftDelete(ctx, r.pool, companyID, id)
}

// RestoreBudget revives a soft-deleted budget.
func (r *Repository) RestoreBudget(ctx context.Context, companyID, id int64) (bool, error) {
	return table.Restore(ctx, r.pool, companyID, id)
}

// Categories returns the live categories of a tenant's budget.
func (r *Repository) Categories(ctx context.Context, companyID, budgetID int64) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.budget_id, c.name, c.allocated_amount, c.spent_amount, c.created_at, c.updated_at
FROM budget_categories c
JOIN site_budgets b ON b.id = c.budget_id
WHERE b.company_id = $1 AND c.budget_id = $2 AND c.deleted_at IS NULL AND b.deleted_at IS NULL
ORDER BY c.id`, companyID, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.BudgetID, &c.Name, &c.AllocatedAmount, &c.SpentAmount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Expenses returns one page of a category's live expenses plus the total.
func (r *Repository) Expenses(ctx context.Context, companyID, categoryID int64, page shared.PageRequest) ([]Expense, int, error) {
	b := query.NewBuilder("b.company_id = $1", companyID)
	b.Equal("e.category_id", categoryID)
	b.IsNull("e.deleted_at")
	b.IsNull("c.deleted_at")
	b.IsNull("b.deleted_at")
	where, args := b.Where()

	const from = ` FROM budget_expenses e
JOIN budget_categories c ON c.id = e.category_id
JOIN site_budgets b ON b.id = c.budget_id
WHERE `

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := b.Next()
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.category_id, e.description, e.amount, e.incurred_at, e.created_at, e.updated_at`+
		from+where+` ORDER BY e.incurred_at DESC, e.id DESC LIMIT $`+strconv.Itoa(n)+` OFFSET $`+strconv.Itoa(n+1),
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Description, &e.Amount, &e.IncurredAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Totals sums the tenant's live budgets.
func (r *Repository) Totals(ctx context.Context, companyID int64) (*Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*),
COALESCE(SUM(total_budget), 0), COALESCE(SUM(allocated_budget), 0), COALESCE(SUM(spent_budget), 0)
FROM site_budgets WHERE company_id = $1 AND deleted_at IS NULL`,
		companyID).Scan(&t.Budgets, &t.Total, &t.Allocated, &t.Spent)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// WithTx runs fn inside a repeatable-read transaction against a TxStore bound
// to that transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

// TxStore is the slice of the repository that mutates budget children and
// their rollups. It only ever exists inside WithTx.
type TxStore interface {
	FindBudget(ctx context.Context, companyID, id int64) (*Budget, error)
	UpdateBudget(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Budget, error)

	// ResolveCategory maps a category to its budget within the tenant.
	// budgetID is zero when no such row exists; live reports whether the
	// category itself is not soft deleted.
	ResolveCategory(ctx context.Context, companyID, categoryID int64) (budgetID int64, live bool, err error)
	FindCategory(ctx context.Context, categoryID int64) (*Category, error)
	InsertCategory(ctx context.Context, budgetID int64, name string, allocated decimal.Decimal) (*Category, error)
	UpdateCategory(ctx context.Context, categoryID int64, set *query.SetBuilder) (*Category, error)
	SoftDeleteCategory(ctx context.Context, categoryID int64) (bool, error)
	RestoreCategory(ctx context.Context, categoryID int64) (bool, error)

	// ResolveExpense maps an expense to its category and budget within the
	// tenant, with the same zero/live convention as ResolveCategory.
	ResolveExpense(ctx context.Context, companyID, expenseID int64) (categoryID, budgetID int64, live bool, err error)
	FindExpense(ctx context.Context, expenseID int64) (*Expense, error)
	InsertExpense(ctx context.Context, categoryID int64, in ExpenseFields) (*Expense, error)
	UpdateExpense(ctx context.Context, expenseID int64, set *query.SetBuilder) (*Expense, error)
	SoftDeleteExpense(ctx context.Context, expenseID int64) (bool, error)
	RestoreExpense(ctx context.Context, expenseID int64) (bool, error)

	RecomputeCategory(ctx context.Context, categoryID int64) error
	RecomputeBudget(ctx context.Context, budgetID int64) error
}

// ExpenseFields is what the repository persists for a new expense.
type ExpenseFields struct {
	Description string
	Amount      decimal.Decimal
	IncurredAt  time.Time
}

type txRepo struct {
	q db.Querier
}

func (t *txRepo) FindBudget(ctx context.Context, companyID, id int64) (*Budget, error) {
	return table.FindByID(ctx, t.q, companyID, id)
}

func (t *txRepo) UpdateBudget(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Budget, error) {
	return table.Update(ctx, t.q, companyID, id, set)
}

func (t *txRepo) ResolveCategory(ctx context.Context, companyID, categoryID int64) (int64, bool, error) {
	var budgetID int64
	var live bool
	err := t.q.QueryRow(ctx, `SELECT c.budget_id, c.deleted_at IS NULL
FROM budget_categories c
JOIN site_budgets b ON b.id = c.budget_id
WHERE b.company_id = $1 AND c.id = $2 AND b.deleted_at IS NULL`,
		companyID, categoryID).Scan(&budgetID, &live)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return budgetID, live, nil
}

func (t *txRepo) FindCategory(ctx context.Context, categoryID int64) (*Category, error) {
	rows, err := t.q.Query(ctx, `SELECT `+categoryColumns+` FROM budget_categories WHERE id = $1 AND deleted_at IS NULL`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOneCategory(rows)
}

func (t *txRepo) InsertCategory(ctx context.Context, budgetID int64, name string, allocated decimal.Decimal) (*Category, error) {
	now := time.Now().UTC()
	rows, err := t.q.Query(ctx, `INSERT INTO budget_categories (budget_id, name, allocated_amount, spent_amount, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $4)
RETURNING `+categoryColumns, budgetID, name, allocated, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOneCategory(rows)
}

func (t *txRepo) UpdateCategory(ctx context.Context, categoryID int64, set *query.SetBuilder) (*Category, error) {
	if set.Empty() {
		return t.FindCategory(ctx, categoryID)
	}
	assign, args, n := set.Clause(1)
	rows, err := t.q.Query(ctx, `UPDATE budget_categories SET `+assign+
		` WHERE id = $`+strconv.Itoa(n)+` AND deleted_at IS NULL RETURNING `+categoryColumns,
		append(args, categoryID)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOneCategory(rows)
}

func (t *txRepo) SoftDeleteCategory(ctx context.Context, categoryID int64) (bool, error) {
	tag, err := t.q.Exec(ctx, `UPDATE budget_categories SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, categoryID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) RestoreCategory(ctx context.Context, categoryID int64) (bool, error) {
	tag, err := t.q.Exec(ctx, `UPDATE budget_categories SET deleted_at = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NOT NULL`, categoryID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) ResolveExpense(ctx context.Context, companyID, expenseID int64) (int64, int64, bool, error) {
	var categoryID, budgetID int64
	var live bool
	err := t.q.QueryRow(ctx, `SELECT e.category_id, c.budget_id, e.deleted_at IS NULL
FROM budget_expenses e
JOIN budget_categories c ON c.id = e.category_id
JOIN site_budgets b ON b.id = c.budget_id
WHERE b.company_id = $1 AND e.id = $2 AND c.deleted_at IS NULL AND b.deleted_at IS NULL`,
		companyID, expenseID).Scan(&categoryID, &budgetID, &live)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}
	return categoryID, budgetID, live, nil
}

func (t *txRepo) FindExpense(ctx context.Context, expenseID int64) (*Expense, error) {
	rows, err := t.q.Query(ctx, `SELECT `+expenseColumns+` FROM budget_expenses WHERE id = $1 AND deleted_at IS NULL`, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOneExpense(rows)
}

func (t *txRepo) InsertExpense(ctx context.Context, categoryID int64, in ExpenseFields) (*Expense, error) {
	now := time.Now().UTC()
	rows, err := t.q.Query(ctx, `INSERT INTO budget_expenses (category_id, description, amount, incurred_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING `+expenseColumns, categoryID, in.Description, in.Amount, in.IncurredAt, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOneExpense(rows)
}

func (t *txRepo) UpdateExpense(ctx context.Context, expenseID int64, set *query.SetBuilder) (*Expense, error) {
	if set.Empty() {
		return t.FindExpense(ctx, expenseID)
	}
	assign, args, n := set.Clause(1)
	rows, err := t.q.Query(ctx, `UPDATE budget_expenses SET `+assign+
		` WHERE id = $`+strconv.Itoa(n)+` AND deleted_at IS NULL RETURNING `+expenseColumns,
		append(args, expenseID)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOneExpense(rows)
}

func (t *txRepo) SoftDeleteExpense(ctx context.Context, expenseID int64) (bool, error) {
	tag, err := t.q.Exec(ctx, `UPDATE budget_expenses SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, expenseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) RestoreExpense(ctx context.Context, expenseID int64) (bool, error) {
	tag, err := t.q.Exec(ctx, `UPDATE budget_expenses SET deleted_at = NULL, updated_at = now() WHERE id = $1 AND deleted_at IS NOT NULL`, expenseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) RecomputeCategory(ctx context.Context, categoryID int64) error {
	_, err := t.q.Exec(ctx, recomputeCategorySQL, categoryID)
	return err
}

func (t *txRepo) RecomputeBudget(ctx context.Context, budgetID int64) error {
	_, err := t.q.Exec(ctx, recomputeBudgetSQL, budgetID)
	return err
}

func scanOneCategory(rows pgx.Rows) (*Category, error) {
	if !rows.Next() {
		return nil, rows.Err()
	}
	var c Category
	if err := rows.Scan(&c.ID, &c.BudgetID, &c.Name, &c.AllocatedAmount, &c.SpentAmount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, rows.Err()
}

func scanOneExpense(rows pgx.Rows) (*Expense, error) {
	if !rows.Next() {
		return nil, rows.Err()
	}
	var e Expense
	if err := rows.Scan(&e.ID, &e.CategoryID, &e.Description, &e.Amount, &e.IncurredAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, rows.Err()
}
