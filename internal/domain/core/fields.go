package core

import "tbscrm/internal/domain/auth"

// RedactEmployee strips personal and salary fields for roles that cannot open
// the employee directory. They still see identity and placement.
func RedactEmployee(emp *Employee, policy auth.Policy) {
	if policy.Can(auth.PermEmployeesView) {
		return
	}
	emp.Phone = ""
	emp.DOB = ""
	emp.Notes = ""
	emp.Username = ""
	emp.Salary = SalaryConfig{}
	emp.WorkDays = 0
}

func RedactEmployees(emps []Employee, policy auth.Policy) []Employee {
	if policy.Can(auth.PermEmployeesView) {
		return emps
	}
	out := make([]Employee, len(emps))
	for i := range emps {
		out[i] = emps[i]
		RedactEmployee(&out[i], policy)
	}
	return out
}
