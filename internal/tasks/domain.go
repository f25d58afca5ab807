package tasks

import "time"

// TaskStatus enumerates task states.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusDone       TaskStatus = "done"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// Task belongs to a job. It carries no company_id of its own; tenancy is
// enforced through the join to jobs.
type Task struct {
	ID          int64      `json:"id"`
	JobID       int64      `json:"job_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	AssigneeID  *int64     `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListFilters are the optional predicates accepted by List.
type ListFilters struct {
	Search     string
	Status     TaskStatus
	JobID      int64
	AssigneeID int64
	DueFrom    *time.Time
	DueUntil   *time.Time
}
