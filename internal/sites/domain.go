package sites

import "time"

// SiteStatus enumerates site lifecycle states.
type SiteStatus string

const (
	StatusActive    SiteStatus = "active"
	StatusOnHold    SiteStatus = "on_hold"
	StatusCompleted SiteStatus = "completed"
)

// ValidStatus reports whether s is a known site status.
func ValidStatus(s SiteStatus) bool {
	switch s {
	case StatusActive, StatusOnHold, StatusCompleted:
		return true
	}
	return false
}

// Site is a construction site owned by a company.
type Site struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"company_id"`
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	Status    SiteStatus `json:"status"`
	ManagerID *int64     `json:"manager_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ListFilters are the optional predicates accepted by List.
type ListFilters struct {
	Search    string
	Status    SiteStatus
	ManagerID int64
	From      *time.Time
	Until     *time.Time
}
