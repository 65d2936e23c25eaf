package auth

import "strings"

const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
	RoleViewer   = "VIEWER"
)

var Roles = []string{RoleAdmin, RoleManager, RoleEmployee, RoleViewer}

const (
	PermDashboardView   = "dashboard.view"
	PermReportsView     = "reports.view"
	PermEmployeesView   = "employees.view"
	PermEmployeesEdit   = "employees.edit"
	PermTasksView       = "tasks.view"
	PermTasksEdit       = "tasks.edit"
	PermDepartmentsView = "departments.view"
	PermDepartmentsAll  = "departments.all"
	PermDepartmentTasks = "departments.tasks"
	PermSettings        = "settings"
)

var DefaultPermissions = []string{
	PermDashboardView,
	PermReportsView,
	PermEmployeesView,
	PermEmployeesEdit,
	PermTasksView,
	PermTasksEdit,
	PermDepartmentsView,
	PermDepartmentsAll,
	PermDepartmentTasks,
	PermSettings,
}

var restrictedPermissions = []string{
	PermDashboardView,
	PermReportsView,
	PermDepartmentsView,
}

var RolePermissions = map[string][]string{
	RoleAdmin: DefaultPermissions,
	RoleManager: {
		PermDashboardView,
		PermReportsView,
		PermEmployeesView,
		PermEmployeesEdit,
		PermTasksView,
		PermTasksEdit,
		PermDepartmentsView,
		PermDepartmentsAll,
		PermDepartmentTasks,
	},
	RoleEmployee: append(append([]string{}, restrictedPermissions...), PermDepartmentTasks),
	RoleViewer:   restrictedPermissions,
}

// NormalizeRole upper-cases a role name and maps unknown or empty roles to
// VIEWER.
func NormalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if _, ok := RolePermissions[role]; ok {
		return role
	}
	return RoleViewer
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
