package reports

import (
	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/tasks"
)

const recentTaskLimit = 20

type DepartmentCount struct {
	DepartmentID string `json:"departmentId"`
	Name         string `json:"name"`
	Count        int    `json:"count"`
}

// Distribution returns one employee count per department, in department order.
// Employees without a known department are not counted anywhere.
func Distribution(deps []core.Department, emps []core.Employee) []DepartmentCount {
	counts := make(map[string]int, len(deps))
	for _, e := range emps {
		counts[e.DepartmentID]++
	}
	out := make([]DepartmentCount, len(deps))
	for i, d := range deps {
		out[i] = DepartmentCount{DepartmentID: d.ID, Name: d.Name, Count: counts[d.ID]}
	}
	return out
}

type Board struct {
	Todo       []tasks.Task `json:"todo"`
	InProgress []tasks.Task `json:"inProgress"`
	Done       []tasks.Task `json:"done"`
}

type DepartmentDetail struct {
	Department     core.Department `json:"department"`
	EmployeeCount  int             `json:"employeeCount"`
	Employees      []core.Employee `json:"employees"`
	Tasks          []tasks.Task    `json:"tasks"`
	RecentTasks    []tasks.Task    `json:"recentTasks"`
	Board          Board           `json:"board"`
	DoneCount      int             `json:"doneCount"`
	OpenCount      int             `json:"openCount"`
	CompletionRate int             `json:"completionRate"`
}

// BuildDepartmentDetail gathers one department's staff and tasks. RecentTasks
// holds at most 20 tasks in reverse list order.
func BuildDepartmentDetail(dep core.Department, emps []core.Employee, list []tasks.Task) DepartmentDetail {
	detail := DepartmentDetail{
		Department: dep,
		Employees:  core.InDepartment(emps, dep.ID),
		Tasks:      []tasks.Task{},
		Board:      Board{Todo: []tasks.Task{}, InProgress: []tasks.Task{}, Done: []tasks.Task{}},
	}
	detail.EmployeeCount = len(detail.Employees)
	for _, t := range list {
		if t.DepartmentID != dep.ID {
			continue
		}
		detail.Tasks = append(detail.Tasks, t)
		switch t.Status {
		case tasks.StatusDone:
			detail.DoneCount++
			detail.Board.Done = append(detail.Board.Done, t)
		case tasks.StatusInProgress, tasks.StatusReview:
			detail.OpenCount++
			detail.Board.InProgress = append(detail.Board.InProgress, t)
		default:
			detail.OpenCount++
			detail.Board.Todo = append(detail.Board.Todo, t)
		}
	}
	n := min(len(detail.Tasks), recentTaskLimit)
	detail.RecentTasks = make([]tasks.Task, 0, n)
	for i := len(detail.Tasks) - 1; i >= 0 && len(detail.RecentTasks) < n; i-- {
		detail.RecentTasks = append(detail.RecentTasks, detail.Tasks[i])
	}
	detail.CompletionRate = CompletionRate(detail.DoneCount, len(detail.Tasks))
	return detail
}
