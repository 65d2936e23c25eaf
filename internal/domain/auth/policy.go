package auth

const (
	SectionDashboard   = "dashboard"
	SectionReports     = "reports"
	SectionEmployees   = "employees"
	SectionTasks       = "tasks"
	SectionDepartments = "departments"
	SectionSettings    = "settings"
)

// Policy is the resolved view of what one role may see and do.
type Policy struct {
	Role        string          `json:"role"`
	Sections    []string        `json:"sections"`
	Permissions []string        `json:"permissions"`
	granted     map[string]bool
}

var sectionPermission = []struct {
	section string
	perm    string
}{
	{SectionDashboard, PermDashboardView},
	{SectionReports, PermReportsView},
	{SectionEmployees, PermEmployeesView},
	{SectionTasks, PermTasksView},
	{SectionDepartments, PermDepartmentsView},
	{SectionSettings, PermSettings},
}

func PolicyFor(role string) Policy {
	role = NormalizeRole(role)
	perms := RolePermissions[role]
	p := Policy{
		Role:        role,
		Permissions: append([]string(nil), perms...),
		granted:     make(map[string]bool, len(perms)),
	}
	for _, perm := range perms {
		p.granted[perm] = true
	}
	for _, sp := range sectionPermission {
		if p.granted[sp.perm] {
			p.Sections = append(p.Sections, sp.section)
		}
	}
	return p
}

func (p Policy) Can(perm string) bool {
	return p.granted[perm]
}

// CanSeeDepartment reports whether a department is visible to a user whose
// own department is userDeptID.
func (p Policy) CanSeeDepartment(userDeptID, deptID string) bool {
	if !p.Can(PermDepartmentsView) {
		return false
	}
	if p.Can(PermDepartmentsAll) {
		return true
	}
	return userDeptID != "" && userDeptID == deptID
}

// VisibleDepartments keeps the items of list whose id passes CanSeeDepartment,
// preserving input order.
func VisibleDepartments[T any](p Policy, userDeptID string, list []T, idOf func(T) string) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if p.CanSeeDepartment(userDeptID, idOf(item)) {
			out = append(out, item)
		}
	}
	return out
}
