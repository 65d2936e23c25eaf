package core

import "time"

type Allowances struct {
	Phone      float64 `json:"phone"`
	Housing    float64 `json:"housing"`
	Social     float64 `json:"social"`
	Dependents float64 `json:"dependents"`
	Travel     float64 `json:"travel"`
	Bonus      float64 `json:"bonus"`
}

type SalaryConfig struct {
	BaseSalary     float64    `json:"baseSalary"`
	Allowances     Allowances `json:"allowances"`
	DependentCount int        `json:"dependentCount"`
}

// Employee dates are calendar days in YYYY-MM-DD form; empty means unknown.
type Employee struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	FullName     string       `json:"fullName"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email"`
	Username     string       `json:"username"`
	DOB          string       `json:"dob"`
	Gender       string       `json:"gender"`
	DepartmentID string       `json:"departmentId"`
	Position     string       `json:"position"`
	Status       string       `json:"status"`
	AvatarURL    string       `json:"avatarUrl"`
	StartDate    string       `json:"startDate"`
	ContractType string       `json:"contractType"`
	Notes        string       `json:"notes"`
	Salary       SalaryConfig `json:"salary"`
	WorkDays     int          `json:"workDays"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ManagerID   string    `json:"managerId,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func EmployeeID(e Employee) string     { return e.ID }
func DepartmentID(d Department) string { return d.ID }
