package tasks

import "context"

type StoreAPI interface {
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	Upsert(ctx context.Context, task Task) (Task, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Task, error)
	AppendAttachment(ctx context.Context, id, url string) (Task, error)
	Delete(ctx context.Context, id string) error
}

// AssigneeDirectory resolves an assignee's department.
type AssigneeDirectory interface {
	EmployeeDepartment(ctx context.Context, employeeID string) (string, error)
}

// ObjectRemover deletes an uploaded object by its public URL when it was
// stored for the given record. It reports false for external links and for
// objects of other records.
type ObjectRemover interface {
	DeleteOwned(ctx context.Context, publicURL, entityType, entityID string) (bool, error)
}
