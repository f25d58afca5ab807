package shared

// Company roles, most to least privileged.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleWorker  = "worker"
)

// ValidRole reports whether s is a known role.
func ValidRole(s string) bool {
	switch s {
	case RoleOwner, RoleAdmin, RoleManager, RoleWorker:
		return true
	}
	return false
}
