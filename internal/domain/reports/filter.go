package reports

import (
	"strings"
	"time"

	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/tasks"
)

const dayLayout = "2006-01-02"

type Period string

const (
	PeriodNone  Period = ""
	PeriodDay   Period = "DAY"
	PeriodWeek  Period = "WEEK"
	PeriodMonth Period = "MONTH"
)

// ParsePeriod accepts DAY, WEEK, MONTH, ALL or empty, in any case.
func ParsePeriod(raw string) (Period, bool) {
	switch p := Period(strings.ToUpper(strings.TrimSpace(raw))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, true
	case PeriodNone, Period(core.AllFilter):
		return PeriodNone, true
	}
	return PeriodNone, false
}

// TaskFilter fields left empty or set to ALL do not constrain the result.
type TaskFilter struct {
	DepartmentID string
	AssigneeID   string
	Position     string
	Period       Period
	Reference    time.Time
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != core.AllFilter
}

// FilterTasks applies all predicates of f with AND semantics. Position is read
// from the assignee's employee record; tasks with unknown assignees never
// match a position constraint.
func FilterTasks(list []tasks.Task, employees []core.Employee, f TaskFilter) []tasks.Task {
	var byID map[string]core.Employee
	if active(f.Position) {
		byID = core.EmployeeIndex(employees)
	}
	out := make([]tasks.Task, 0, len(list))
	for _, t := range list {
		if active(f.DepartmentID) && t.DepartmentID != f.DepartmentID {
			continue
		}
		if active(f.AssigneeID) && t.AssigneeID != f.AssigneeID {
			continue
		}
		if active(f.Position) {
			emp, ok := byID[t.AssigneeID]
			if !ok || emp.Position != f.Position {
				continue
			}
		}
		if !InPeriod(t.DueDate, f.Period, f.Reference) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// InPeriod tests a YYYY-MM-DD due date against a window around ref.
// DAY is the same calendar date, WEEK runs from seven days before ref through
// ref inclusive (eight calendar dates), MONTH is the same month and year. Missing or malformed dates never match a
// period.
func InPeriod(due string, p Period, ref time.Time) bool {
	if p == PeriodNone {
		return true
	}
	d, err := time.Parse(dayLayout, strings.TrimSpace(due))
	if err != nil {
		return false
	}
	r := calendarDay(ref)
	switch p {
	case PeriodDay:
		return d.Equal(r)
	case PeriodWeek:
		return !d.After(r) && !d.Before(r.AddDate(0, 0, -7))
	case PeriodMonth:
		return d.Year() == r.Year() && d.Month() == r.Month()
	}
	return false
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
