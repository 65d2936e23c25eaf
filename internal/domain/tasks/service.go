package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tbscrm/internal/platform/snapshot"
)

type Service struct {
	// Objects, when set, removes stored attachments a task no longer references.
	Objects ObjectRemover

	store     StoreAPI
	assignees AssigneeDirectory
	cache     *snapshot.List[Task]
	strict    bool
}

func NewService(store StoreAPI, assignees AssigneeDirectory, cacheTTL time.Duration, strict bool) *Service {
	return &Service{
		store:     store,
		assignees: assignees,
		cache:     snapshot.New(cacheTTL, TaskID),
		strict:    strict,
	}
}

func (s *Service) StrictWorkflow() bool {
	return s.strict
}

func (s *Service) List(ctx context.Context) ([]Task, error) {
	if cached, ok := s.cache.Get(); ok {
		return cached, nil
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	s.cache.Replace(list)
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	return s.store.Get(ctx, id)
}

// Save creates or fully replaces a task. Missing status defaults to TODO and
// a missing department is taken from the assignee.
func (s *Service) Save(ctx context.Context, task Task) (Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	task.AssigneeID = strings.TrimSpace(task.AssigneeID)
	if task.Title == "" {
		return Task{}, ErrTitleRequired
	}
	if task.AssigneeID == "" {
		return Task{}, ErrAssigneeRequired
	}
	if task.Status == "" {
		task.Status = StatusTodo
	}
	if !task.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}
	if task.DueDate != "" {
		if _, err := time.Parse(dayLayout, task.DueDate); err != nil {
			return Task{}, ErrInvalidDueDate
		}
	}
	if task.Attachments == nil {
		task.Attachments = []string{}
	}

	var prev *Task
	if task.ID == "" {
		task.ID = uuid.NewString()
	} else {
		found, err := s.store.Get(ctx, task.ID)
		switch {
		case errors.Is(err, ErrTaskNotFound):
		case err != nil:
			return Task{}, fmt.Errorf("load task: %w", err)
		case s.strict && !CanTransition(found.Status, task.Status, true):
			return Task{}, ErrTransitionBlocked
		default:
			prev = found
		}
	}

	if task.DepartmentID == "" && s.assignees != nil {
		dept, err := s.assignees.EmployeeDepartment(ctx, task.AssigneeID)
		if err != nil {
			slog.Warn("assignee department lookup failed", "assigneeId", task.AssigneeID, "err", err)
		} else {
			task.DepartmentID = dept
		}
	}

	saved, err := s.store.Upsert(ctx, task)
	if err != nil {
		return Task{}, fmt.Errorf("save task: %w", err)
	}
	s.cache.Upsert(saved)
	if prev != nil {
		s.removeObjects(ctx, saved.ID, dropped(prev.Attachments, saved.Attachments))
	}
	return saved, nil
}

// QuickAdd creates a TODO task pinned to a department.
func (s *Service) QuickAdd(ctx context.Context, departmentID string, task Task) (Task, error) {
	task.ID = ""
	task.DepartmentID = departmentID
	task.Status = StatusTodo
	task.Attachments = []string{}
	return s.Save(ctx, task)
}

func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Task, error) {
	if !status.Valid() {
		return Task{}, ErrInvalidStatus
	}
	if s.strict {
		prev, err := s.store.Get(ctx, id)
		if err != nil {
			return Task{}, err
		}
		if !CanTransition(prev.Status, status, true) {
			return Task{}, ErrTransitionBlocked
		}
	}
	saved, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return Task{}, err
	}
	s.cache.Upsert(saved)
	return saved, nil
}

func (s *Service) AddAttachment(ctx context.Context, id, url string) (Task, error) {
	saved, err := s.store.AppendAttachment(ctx, id, url)
	if err != nil {
		return Task{}, err
	}
	s.cache.Upsert(saved)
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	prev, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	s.removeObjects(ctx, id, prev.Attachments)
	return nil
}

// ObjectEntity is the storage path segment task attachments are uploaded under.
const ObjectEntity = "tasks"

func (s *Service) removeObjects(ctx context.Context, taskID string, urls []string) {
	if s.Objects == nil {
		return
	}
	for _, url := range urls {
		removed, err := s.Objects.DeleteOwned(ctx, url, ObjectEntity, taskID)
		if err != nil {
			slog.Warn("attachment cleanup failed", "url", url, "err", err)
			continue
		}
		if removed {
			slog.Info("attachment object removed", "url", url)
		}
	}
}

// dropped returns the entries of before that are missing from after.
func dropped(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	var out []string
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}
