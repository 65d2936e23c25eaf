package tasks

import "errors"

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTitleRequired     = errors.New("title is required")
	ErrAssigneeRequired  = errors.New("assignee is required")
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrTransitionBlocked = errors.New("status transition not allowed")
	ErrInvalidDueDate    = errors.New("dueDate must be YYYY-MM-DD")
)
