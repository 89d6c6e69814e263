package user

type Permission string

const (
	// Attendance
	PermissionAttendanceUpload  Permission = "attendance.upload"
	PermissionAttendanceViewAll Permission = "attendance.view_all"

	// Holiday calendar
	PermissionHolidayView   Permission = "holiday.view"
	PermissionHolidayManage Permission = "holiday.manage"

	// Payroll
	PermissionPayrollView     Permission = "payroll.view"
	PermissionPayrollGenerate Permission = "payroll.generate"
	PermissionPayrollApprove  Permission = "payroll.approve"
	PermissionPayrollRelease  Permission = "payroll.release"
	PermissionRatesManage     Permission = "payroll.rates_manage"

	// Change requests
	PermissionChangeRequestCreate Permission = "change_request.create"

	// Reports
	PermissionReportsView Permission = "reports.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		// Owner has all permissions
		PermissionAttendanceUpload,
		PermissionAttendanceViewAll,
		PermissionHolidayView,
		PermissionHolidayManage,
		PermissionPayrollView,
		PermissionPayrollGenerate,
		PermissionPayrollApprove,
		PermissionPayrollRelease,
		PermissionRatesManage,
		PermissionChangeRequestCreate,
		PermissionReportsView,
	},
	RoleApprover: {
		PermissionAttendanceViewAll,
		PermissionHolidayView,
		PermissionPayrollView,
		PermissionPayrollApprove,
		PermissionPayrollRelease,
		PermissionReportsView,
	},
	RolePayrollOfficer: {
		PermissionAttendanceUpload,
		PermissionAttendanceViewAll,
		PermissionHolidayView,
		PermissionHolidayManage,
		PermissionPayrollView,
		PermissionPayrollGenerate,
		PermissionRatesManage,
		PermissionChangeRequestCreate,
		PermissionReportsView,
	},
	RoleEmployee: {
		PermissionHolidayView,
	},
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
