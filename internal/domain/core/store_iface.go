package core

import "context"

type StoreAPI interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	UpsertEmployee(ctx context.Context, emp Employee) (Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartment(ctx context.Context, id string) (*Department, error)
	UpsertDepartment(ctx context.Context, dep Department) (Department, error)
	DeleteDepartment(ctx context.Context, id string) error
}

// ObjectRemover deletes a stored object addressed by its public URL, but only
// when it was uploaded for the given record.
type ObjectRemover interface {
	DeleteOwned(ctx context.Context, publicURL, entityType, entityID string) (bool, error)
}
