package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tbscrm/internal/platform/snapshot"
)

type Service struct {
	store       StoreAPI
	objects     ObjectRemover
	employees   *snapshot.List[Employee]
	departments *snapshot.List[Department]
	now         func() time.Time
}

func NewService(store StoreAPI, objects ObjectRemover, cacheTTL time.Duration) *Service {
	return &Service{
		store:       store,
		objects:     objects,
		employees:   snapshot.New(cacheTTL, EmployeeID),
		departments: snapshot.New(cacheTTL, DepartmentID),
		now:         time.Now,
	}
}

func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	if cached, ok := s.employees.Get(); ok {
		return cached, nil
	}
	list, err := s.store.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	s.employees.Replace(list)
	return list, nil
}

func (s *Service) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

// EmployeeDepartment returns the department of an employee, used to default
// a task's department from its assignee.
func (s *Service) EmployeeDepartment(ctx context.Context, id string) (string, error) {
	emp, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return "", err
	}
	return emp.DepartmentID, nil
}

// SaveEmployee creates or fully replaces an employee. New records get a
// generated id, a generated avatar and zero salary. A replaced avatar that
// lives in this service's storage is removed after the write succeeds.
func (s *Service) SaveEmployee(ctx context.Context, emp Employee) (Employee, error) {
	emp.FullName = strings.TrimSpace(emp.FullName)
	emp.Code = strings.TrimSpace(emp.Code)
	if emp.FullName == "" || emp.Code == "" {
		return Employee{}, fmt.Errorf("%w: code and fullName are required", ErrInvalidEmployee)
	}

	var previous *Employee
	if emp.ID == "" {
		emp.ID = uuid.NewString()
		emp.WorkDays = 0
	} else {
		prev, err := s.store.GetEmployee(ctx, emp.ID)
		if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
			return Employee{}, fmt.Errorf("load employee: %w", err)
		}
		previous = prev
	}
	if emp.Status == "" {
		emp.Status = StatusWorking
	}
	if emp.ContractType == "" {
		emp.ContractType = DefaultContractType
	}
	if emp.AvatarURL == "" {
		emp.AvatarURL = GeneratedAvatarURL(emp.FullName)
	}

	saved, err := s.store.UpsertEmployee(ctx, emp)
	if err != nil {
		return Employee{}, fmt.Errorf("save employee: %w", err)
	}
	s.employees.Upsert(saved)

	if previous != nil && previous.AvatarURL != saved.AvatarURL {
		s.removeObject(ctx, saved.ID, previous.AvatarURL)
	}
	return saved, nil
}

// ReplaceAvatar points an employee at a newly uploaded avatar and drops the
// old object when it belongs to this service.
func (s *Service) ReplaceAvatar(ctx context.Context, id, avatarURL string) (Employee, error) {
	prev, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	if err := s.store.UpdateAvatar(ctx, id, avatarURL); err != nil {
		return Employee{}, fmt.Errorf("update avatar: %w", err)
	}
	updated := *prev
	updated.AvatarURL = avatarURL
	updated.UpdatedAt = s.now()
	s.employees.Upsert(updated)
	if prev.AvatarURL != avatarURL {
		s.removeObject(ctx, id, prev.AvatarURL)
	}
	return updated, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	prev, err := s.store.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	s.employees.Remove(id)
	s.removeObject(ctx, id, prev.AvatarURL)
	return nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	if cached, ok := s.departments.Get(); ok {
		return cached, nil
	}
	list, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	s.departments.Replace(list)
	return list, nil
}

func (s *Service) GetDepartment(ctx context.Context, id string) (*Department, error) {
	return s.store.GetDepartment(ctx, id)
}

// SaveDepartment creates or replaces a department keyed by its short code.
func (s *Service) SaveDepartment(ctx context.Context, dep Department) (Department, error) {
	dep.ID = strings.ToUpper(strings.TrimSpace(dep.ID))
	dep.Name = strings.TrimSpace(dep.Name)
	if dep.ID == "" || dep.Name == "" {
		return Department{}, fmt.Errorf("%w: id and name are required", ErrInvalidDepartment)
	}
	saved, err := s.store.UpsertDepartment(ctx, dep)
	if err != nil {
		return Department{}, fmt.Errorf("save department: %w", err)
	}
	s.departments.Upsert(saved)
	return saved, nil
}

// DeleteDepartment refuses while any employee still belongs to the department.
func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if err := s.store.DeleteDepartment(ctx, id); err != nil {
		return err
	}
	s.departments.Remove(id)
	return nil
}

// ObjectEntity is the storage path segment employee avatars are uploaded under.
const ObjectEntity = "employees"

func (s *Service) removeObject(ctx context.Context, employeeID, publicURL string) {
	if s.objects == nil || publicURL == "" {
		return
	}
	removed, err := s.objects.DeleteOwned(ctx, publicURL, ObjectEntity, employeeID)
	if err != nil {
		slog.Warn("orphan object cleanup failed", "url", publicURL, "err", err)
		return
	}
	if removed {
		slog.Info("orphan object removed", "url", publicURL)
	}
}

// GeneratedAvatarURL builds an initials avatar for employees without a photo.
func GeneratedAvatarURL(fullName string) string {
	q := url.Values{}
	q.Set("name", fullName)
	q.Set("background", "random")
	return avatarServiceURL + "?" + q.Encode()
}
