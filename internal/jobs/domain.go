package jobs

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	StatusPlanned    JobStatus = "planned"
	StatusInProgress JobStatus = "in_progress"
	StatusDone       JobStatus = "done"
	StatusCancelled  JobStatus = "cancelled"
)

// ValidStatus reports whether s is a known job status.
func ValidStatus(s JobStatus) bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Job is a unit of site work carrying the tenant id directly.
type Job struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	SiteID      int64      `json:"site_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      JobStatus  `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListFilters are the optional predicates accepted by List.
type ListFilters struct {
	Search string
	Status JobStatus
	SiteID int64
	From   *time.Time
	Until  *time.Time
}
