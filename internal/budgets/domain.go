package budgets

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a site's money envelope. AllocatedBudget and SpentBudget are
// derived state: they are recomputed from live categories after every child
// mutation, never patched incrementally.
type Budget struct {
	ID              int64           `json:"id"`
	CompanyID       int64           `json:"company_id"`
	SiteID          int64           `json:"site_id"`
	TotalBudget     decimal.Decimal `json:"total_budget"`
	AllocatedBudget decimal.Decimal `json:"allocated_budget"`
	SpentBudget     decimal.Decimal `json:"spent_budget"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Category partitions a budget. SpentAmount is the sum of its live expenses.
type Category struct {
	ID              int64           `json:"id"`
	BudgetID        int64           `json:"budget_id"`
	Name            string          `json:"name"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	SpentAmount     decimal.Decimal `json:"spent_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Expense is a single cost booked against a category.
type Expense struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	IncurredAt  time.Time       `json:"incurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BudgetDetail is the get response: the budget with its live categories.
type BudgetDetail struct {
	Budget
	Categories []Category `json:"categories"`
}

// ListFilters narrows budget listings.
type ListFilters struct {
	SiteID int64
}

// Totals sums the tenant's live budgets.
type Totals struct {
	Budgets   int             `json:"budgets"`
	Total     decimal.Decimal `json:"total"`
	Allocated decimal.Decimal `json:"allocated"`
	Spent     decimal.Decimal `json:"spent"`
}
