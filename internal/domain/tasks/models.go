package tasks

import "time"

type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	AssigneeID   string    `json:"assigneeId"`
	DepartmentID string    `json:"departmentId"`
	Status       Status    `json:"status"`
	DueDate      string    `json:"dueDate"`
	Description  string    `json:"description"`
	Attachments  []string  `json:"attachments"`
	Feedback     string    `json:"feedback,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func TaskID(t Task) string { return t.ID }
