package core

import "testing"

func TestSalaryTotals(t *testing.T) {
	s := SalaryConfig{
		BaseSalary: 15000000,
		Allowances: Allowances{Phone: 200000, Housing: 1000000, Social: 300000, Dependents: 400000, Travel: 500000, Bonus: 600000},
	}
	if got := s.TotalAllowances(); got != 3000000 {
		t.Fatalf("expected allowances 3000000, got %v", got)
	}
	if got := s.TotalIncome(); got != 18000000 {
		t.Fatalf("expected income 18000000, got %v", got)
	}
	if got := (SalaryConfig{}).TotalIncome(); got != 0 {
		t.Fatalf("expected zero income, got %v", got)
	}
}

func TestBuildPayrollSheet(t *testing.T) {
	emps := []Employee{
		{ID: "1", FullName: "A", WorkDays: 22, Salary: SalaryConfig{BaseSalary: 10, Allowances: Allowances{Bonus: 5}, DependentCount: 2}},
		{ID: "2", FullName: "B", Salary: SalaryConfig{BaseSalary: 20}},
	}
	sheet := BuildPayrollSheet(emps)
	if sheet.EmployeeCount != 2 || sheet.TotalBase != 30 || sheet.TotalAllowances != 5 || sheet.TotalIncome != 35 {
		t.Fatalf("unexpected sheet totals %+v", sheet)
	}
	if sheet.Rows[0].TotalIncome != 15 || sheet.Rows[0].DependentCount != 2 || sheet.Rows[0].WorkDays != 22 {
		t.Fatalf("unexpected first row %+v", sheet.Rows[0])
	}
}
