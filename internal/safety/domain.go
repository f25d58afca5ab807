package safety

import "time"

// Severity grades an incident.
type Severity string

// Severity values, lowest to highest.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IncidentStatus tracks the investigation lifecycle.
type IncidentStatus string

// Incident statuses.
const (
	StatusOpen          IncidentStatus = "open"
	StatusInvestigating IncidentStatus = "investigating"
	StatusResolved      IncidentStatus = "resolved"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s IncidentStatus) bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved:
		return true
	}
	return false
}

// Incident is a safety event reported on a site. ResolvedAt is set exactly
// when the incident moves to resolved.
type Incident struct {
	ID          int64          `json:"id"`
	CompanyID   int64          `json:"company_id"`
	SiteID      int64          `json:"site_id"`
	ReportedBy  int64          `json:"reported_by"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Status      IncidentStatus `json:"status"`
	OccurredAt  time.Time      `json:"occurred_at"`
	ResolvedAt  *time.Time     `json:"resolved_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ListFilters narrows incident listings.
type ListFilters struct {
	Search   string
	SiteID   int64
	Severity Severity
	Status   IncidentStatus
	From     *time.Time
	Until    *time.Time
}
