package user

type Role string

const (
	RoleOwner          Role = "owner"           // Company owner - full access
	RoleApprover       Role = "approver"        // Can approve, reject and release payroll
	RolePayrollOfficer Role = "payroll_officer" // Prepares attendance and payroll batches
	RoleEmployee       Role = "employee"        // Regular employee
)

// Actor is the authenticated caller of a payroll operation.
type Actor struct {
	UserID string
	Role   Role
}

// Can reports whether the actor's role grants the permission.
func (a Actor) Can(permission Permission) bool {
	return HasPermission(a.Role, permission)
}

// IsApprover checks if actor may approve payroll
func (a Actor) IsApprover() bool {
	return a.Can(PermissionPayrollApprove)
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleApprover, RolePayrollOfficer, RoleEmployee:
		return Role(s), true
	}
	return "", false
}
