package reports

import (
	"time"

	"tbscrm/internal/domain/attachments"
	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/tasks"
)

type Row struct {
	Index       int                `json:"index"`
	TaskID      string             `json:"taskId"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      tasks.Status       `json:"status"`
	DueDate     string             `json:"dueDate"`
	AssigneeID  string             `json:"assigneeId"`
	Assignee    string             `json:"assignee"`
	Attachments []attachments.Kind `json:"attachments"`
}

// TaskReport is the printable work report. Employee is set when the filter
// names a single assignee.
type TaskReport struct {
	Period    Period         `json:"period"`
	Reference string         `json:"referenceDate"`
	Employee  *core.Employee `json:"employee,omitempty"`
	Stats     Stats          `json:"stats"`
	Rows      []Row          `json:"rows"`
}

func BuildTaskReport(list []tasks.Task, emps []core.Employee, f TaskFilter) TaskReport {
	if f.Reference.IsZero() {
		f.Reference = time.Now()
	}
	byID := core.EmployeeIndex(emps)
	filtered := FilterTasks(list, emps, f)

	report := TaskReport{
		Period:    f.Period,
		Reference: f.Reference.Format(dayLayout),
		Stats:     Summarize(filtered),
		Rows:      make([]Row, 0, len(filtered)),
	}
	if active(f.AssigneeID) {
		if emp, ok := byID[f.AssigneeID]; ok {
			report.Employee = &emp
		}
	}
	for i, t := range filtered {
		row := Row{
			Index:       i + 1,
			TaskID:      t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			DueDate:     t.DueDate,
			AssigneeID:  t.AssigneeID,
			Attachments: attachments.Kinds(t.Attachments),
		}
		if emp, ok := byID[t.AssigneeID]; ok {
			row.Assignee = emp.FullName
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}
