// Package rbac maps caller roles to the permissions they hold.
package rbac

const (
	PermissionSearch    = "missing:search"
	PermissionReport    = "missing:report"
	PermissionDonate    = "donation:create"
	PermissionVolunteer = "volunteer:create"
	PermissionAdmin     = "admin:manage"
)

const (
	RoleGuest  = "guest"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

var rolePermissions = map[string][]string{
	RoleGuest: {
		PermissionSearch,
	},
	RoleMember: {
		PermissionSearch,
		PermissionReport,
		PermissionDonate,
		PermissionVolunteer,
	},
	RoleAdmin: {
		PermissionSearch,
		PermissionReport,
		PermissionDonate,
		PermissionVolunteer,
		PermissionAdmin,
	},
}

// RoleOf derives the role of a caller. A guest is never an admin.
func RoleOf(guest, isAdmin bool) string {
	switch {
	case guest:
		return RoleGuest
	case isAdmin:
		return RoleAdmin
	}
	return RoleMember
}

func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning a *PermissionDeniedError.
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{Role: role, Permission: permission}
	}
	return nil
}

type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions: " + e.Role + " cannot " + e.Permission
}
