package users

import "time"

// User is a team member account within a company.
type User struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PasswordHash never serializes.
	PasswordHash string `json:"-"`
}

// ListFilters are the optional predicates accepted by List.
type ListFilters struct {
	Search   string
	Role     string
	IsActive *bool
}
