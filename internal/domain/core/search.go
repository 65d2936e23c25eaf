package core

import (
	"sort"
	"strings"
)

// AllFilter is the sentinel meaning "no constraint" in list filters.
const AllFilter = "ALL"

type EmployeeFilter struct {
	Search       string
	DepartmentID string
}

// FilterEmployees matches Search case-insensitively against full name or code
// and DepartmentID exactly. Empty or ALL disables a predicate.
func FilterEmployees(emps []Employee, f EmployeeFilter) []Employee {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	dept := strings.TrimSpace(f.DepartmentID)
	out := make([]Employee, 0, len(emps))
	for _, emp := range emps {
		if needle != "" &&
			!strings.Contains(strings.ToLower(emp.FullName), needle) &&
			!strings.Contains(strings.ToLower(emp.Code), needle) {
			continue
		}
		if dept != "" && dept != AllFilter && emp.DepartmentID != dept {
			continue
		}
		out = append(out, emp)
	}
	return out
}

// CanDeleteDepartment is false while any employee references the department.
func CanDeleteDepartment(emps []Employee, departmentID string) bool {
	for _, emp := range emps {
		if emp.DepartmentID == departmentID {
			return false
		}
	}
	return true
}

// Positions lists the distinct non-empty positions in sorted order.
func Positions(emps []Employee) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, emp := range emps {
		p := strings.TrimSpace(emp.Position)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func EmployeeIndex(emps []Employee) map[string]Employee {
	out := make(map[string]Employee, len(emps))
	for _, emp := range emps {
		out[emp.ID] = emp
	}
	return out
}

func InDepartment(emps []Employee, departmentID string) []Employee {
	return FilterEmployees(emps, EmployeeFilter{DepartmentID: departmentID})
}
