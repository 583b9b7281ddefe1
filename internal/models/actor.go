package models

// Actor is the authenticated identity performing an operation. It arrives
// from the upstream identity provider on every request and is never kept
// as ambient state.
type Actor struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the actor carries an administrative role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// IsValidRole reports whether r is a known role.
func IsValidRole(r string) bool {
	switch r {
	case RoleCustomer, RoleDriver, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
