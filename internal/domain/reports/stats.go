package reports

import (
	"math"

	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/tasks"
)

type Stats struct {
	Total          int `json:"total"`
	Done           int `json:"done"`
	InProgress     int `json:"inProgress"`
	Todo           int `json:"todo"`
	CompletionRate int `json:"completionRate"`
}

// Summarize counts REVIEW as in progress.
func Summarize(list []tasks.Task) Stats {
	s := Stats{Total: len(list)}
	for _, t := range list {
		switch t.Status {
		case tasks.StatusDone:
			s.Done++
		case tasks.StatusInProgress, tasks.StatusReview:
			s.InProgress++
		case tasks.StatusTodo:
			s.Todo++
		}
	}
	s.CompletionRate = CompletionRate(s.Done, s.Total)
	return s
}

func CompletionRate(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

type StatusCount struct {
	Status tasks.Status `json:"status"`
	Count  int          `json:"count"`
}

// StatusBreakdown returns one entry per status in board order.
func StatusBreakdown(list []tasks.Task) []StatusCount {
	counts := make(map[tasks.Status]int, len(tasks.Statuses))
	for _, t := range list {
		counts[t.Status]++
	}
	out := make([]StatusCount, len(tasks.Statuses))
	for i, st := range tasks.Statuses {
		out[i] = StatusCount{Status: st, Count: counts[st]}
	}
	return out
}

type Dashboard struct {
	TotalEmployees   int               `json:"totalEmployees"`
	TotalDepartments int               `json:"totalDepartments"`
	ActiveTasks      int               `json:"activeTasks"`
	CompletedTasks   int               `json:"completedTasks"`
	StatusBreakdown  []StatusCount     `json:"statusBreakdown"`
	Distribution     []DepartmentCount `json:"distribution"`
	ActiveTaskList   []tasks.Task      `json:"activeTaskList"`
}

func BuildDashboard(emps []core.Employee, deps []core.Department, list []tasks.Task) Dashboard {
	d := Dashboard{
		TotalEmployees:   len(emps),
		TotalDepartments: len(deps),
		StatusBreakdown:  StatusBreakdown(list),
		Distribution:     Distribution(deps, emps),
		ActiveTaskList:   []tasks.Task{},
	}
	for _, t := range list {
		if t.Status == tasks.StatusDone {
			d.CompletedTasks++
			continue
		}
		d.ActiveTasks++
		d.ActiveTaskList = append(d.ActiveTaskList, t)
	}
	return d
}
