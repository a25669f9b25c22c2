package rbac

// Role is the category of principal performing an action.
// Keep these stable; they are stored on timeline entries and carried in tokens.
type Role string

const (
	RoleSystem    Role = "system"
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleCandidate, RoleRecruiter, RoleAdmin:
		return true
	default:
		return false
	}
}

func IsAdmin(role Role) bool { return role == RoleAdmin }

// ParseRole maps a raw claim value to a Role. Unknown values return ("", false).
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if !r.Valid() {
		return "", false
	}
	return r, true
}
