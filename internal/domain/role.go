package domain

// User roles.
const (
	RoleRequester = "requester"
	RoleAgent     = "agent"
	RoleAdmin     = "admin"
)

// Account statuses. A user starts as pending and is promoted to active once
// their email is verified and their profile is complete.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// ValidRole returns true if the given role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleRequester, RoleAgent, RoleAdmin:
		return true
	}
	return false
}
