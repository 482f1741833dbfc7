package user

type Permission string

const (
	// Timesheets
	PermissionTimesheetViewOwn Permission = "timesheet.view_own"
	PermissionTimesheetCreate  Permission = "timesheet.create"
	PermissionTimesheetViewAll Permission = "timesheet.view_all"
	PermissionTimesheetManage  Permission = "timesheet.manage"

	// Approval stages
	PermissionApproveForeman  Permission = "timesheet.approve_foreman"
	PermissionApproveIncharge Permission = "timesheet.approve_incharge"
	PermissionApproveChecking Permission = "timesheet.approve_checking"
	PermissionApproveManager  Permission = "timesheet.approve_manager"

	// Geofence zones
	PermissionGeofenceView   Permission = "geofence.view"
	PermissionGeofenceManage Permission = "geofence.manage"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionTimesheetViewOwn,
		PermissionTimesheetCreate,
		PermissionTimesheetViewAll,
		PermissionTimesheetManage,
		PermissionApproveForeman,
		PermissionApproveIncharge,
		PermissionApproveChecking,
		PermissionApproveManager,
		PermissionGeofenceView,
		PermissionGeofenceManage,
	},
	RoleManager: {
		PermissionTimesheetViewOwn,
		PermissionTimesheetCreate,
		PermissionTimesheetViewAll,
		PermissionTimesheetManage,
		PermissionApproveManager,
		PermissionGeofenceView,
		PermissionGeofenceManage,
	},
	RoleChecker: {
		PermissionTimesheetViewOwn,
		PermissionTimesheetViewAll,
		PermissionApproveChecking,
		PermissionGeofenceView,
	},
	RoleIncharge: {
		PermissionTimesheetViewOwn,
		PermissionTimesheetCreate,
		PermissionTimesheetViewAll,
		PermissionApproveIncharge,
		PermissionGeofenceView,
	},
	RoleForeman: {
		PermissionTimesheetViewOwn,
		PermissionTimesheetCreate,
		PermissionTimesheetViewAll,
		PermissionApproveForeman,
		PermissionGeofenceView,
	},
	RoleEmployee: {
		PermissionTimesheetViewOwn,
		PermissionTimesheetCreate,
		PermissionGeofenceView,
	},
}

var stagePermissions = map[string]Permission{
	"foreman":  PermissionApproveForeman,
	"incharge": PermissionApproveIncharge,
	"checking": PermissionApproveChecking,
	"manager":  PermissionApproveManager,
}

// StagePermission returns the permission needed to approve or reject at a review stage.
func StagePermission(stage string) (Permission, bool) {
	p, ok := stagePermissions[stage]
	return p, ok
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
