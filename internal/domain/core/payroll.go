package core

func (a Allowances) Total() float64 {
	return a.Phone + a.Housing + a.Social + a.Dependents + a.Travel + a.Bonus
}

func (s SalaryConfig) TotalAllowances() float64 {
	return s.Allowances.Total()
}

func (s SalaryConfig) TotalIncome() float64 {
	return s.BaseSalary + s.TotalAllowances()
}

type PayrollRow struct {
	EmployeeID      string     `json:"employeeId"`
	Code            string     `json:"code"`
	FullName        string     `json:"fullName"`
	DepartmentID    string     `json:"departmentId"`
	Position        string     `json:"position"`
	BaseSalary      float64    `json:"baseSalary"`
	Allowances      Allowances `json:"allowances"`
	TotalAllowances float64    `json:"totalAllowances"`
	TotalIncome     float64    `json:"totalIncome"`
	WorkDays        int        `json:"workDays"`
	DependentCount  int        `json:"dependentCount"`
}

func PayrollFor(emp Employee) PayrollRow {
	return PayrollRow{
		EmployeeID:      emp.ID,
		Code:            emp.Code,
		FullName:        emp.FullName,
		DepartmentID:    emp.DepartmentID,
		Position:        emp.Position,
		BaseSalary:      emp.Salary.BaseSalary,
		Allowances:      emp.Salary.Allowances,
		TotalAllowances: emp.Salary.TotalAllowances(),
		TotalIncome:     emp.Salary.TotalIncome(),
		WorkDays:        emp.WorkDays,
		DependentCount:  emp.Salary.DependentCount,
	}
}

type PayrollSheet struct {
	Rows            []PayrollRow `json:"rows"`
	TotalBase       float64      `json:"totalBase"`
	TotalAllowances float64      `json:"totalAllowances"`
	TotalIncome     float64      `json:"totalIncome"`
	EmployeeCount   int          `json:"employeeCount"`
}

func BuildPayrollSheet(emps []Employee) PayrollSheet {
	sheet := PayrollSheet{Rows: make([]PayrollRow, 0, len(emps))}
	for _, emp := range emps {
		row := PayrollFor(emp)
		sheet.Rows = append(sheet.Rows, row)
		sheet.TotalBase += row.BaseSalary
		sheet.TotalAllowances += row.TotalAllowances
		sheet.TotalIncome += row.TotalIncome
	}
	sheet.EmployeeCount = len(sheet.Rows)
	return sheet
}
