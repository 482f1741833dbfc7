package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Final timesheet approval, zone administration
	RoleChecker  Role = "checker"  // Quantity/cost checking stage
	RoleIncharge Role = "incharge" // Site in-charge stage
	RoleForeman  Role = "foreman"  // First review stage
	RoleEmployee Role = "employee" // Worker filing timesheets
)

var validRoles = map[Role]bool{
	RoleOwner:    true,
	RoleManager:  true,
	RoleChecker:  true,
	RoleIncharge: true,
	RoleForeman:  true,
	RoleEmployee: true,
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

// Actor is the authenticated caller, taken from access token claims.
type Actor struct {
	UserID     string
	CompanyID  string
	EmployeeID *string
	Role       Role
}

// Can reports whether the actor's role grants permission.
func (a Actor) Can(permission Permission) bool {
	return HasPermission(a.Role, permission)
}
