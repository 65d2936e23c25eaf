package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	tasks map[string]Task
	fail  bool
}

func (f *fakeStore) List(context.Context) ([]Task, error) {
	out := []Task{}
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &t, nil
}

func (f *fakeStore) Upsert(_ context.Context, task Task) (Task, error) {
	if f.fail {
		return Task{}, errors.New("write failed")
	}
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status Status) (Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	t.Status = status
	f.tasks[id] = t
	return t, nil
}

func (f *fakeStore) AppendAttachment(_ context.Context, id, url string) (Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	t.Attachments = append(t.Attachments, url)
	f.tasks[id] = t
	return t, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

type fakeDirectory map[string]string

func (d fakeDirectory) EmployeeDepartment(_ context.Context, id string) (string, error) {
	dept, ok := d[id]
	if !ok {
		return "", errors.New("unknown employee")
	}
	return dept, nil
}

func newService(strict bool) (*Service, *fakeStore) {
	store := &fakeStore{tasks: map[string]Task{
		"T1": {ID: "T1", Title: "Thiết kế mẫu", AssigneeID: "E1", DepartmentID: "RD", Status: StatusTodo, Attachments: []string{}},
	}}
	svc := NewService(store, fakeDirectory{"E1": "RD", "E2": "TMH"}, time.Minute, strict)
	return svc, store
}

func TestSaveDefaults(t *testing.T) {
	svc, _ := newService(false)

	saved, err := svc.Save(context.Background(), Task{Title: " Báo giá ", AssigneeID: "E2"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := uuid.Parse(saved.ID); err != nil {
		t.Fatalf("expected generated uuid id, got %q", saved.ID)
	}
	if saved.Status != StatusTodo || saved.DepartmentID != "TMH" {
		t.Fatalf("unexpected defaults %+v", saved)
	}
	if saved.Attachments == nil || saved.Title != "Báo giá" {
		t.Fatalf("unexpected normalization %+v", saved)
	}
}

func TestBackToBackCreatesKeepBothTasks(t *testing.T) {
	svc, store := newService(false)
	ctx := context.Background()

	first, err := svc.Save(ctx, Task{Title: "first", AssigneeID: "E1"})
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := svc.Save(ctx, Task{Title: "second", AssigneeID: "E1"})
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("creates must not share an id: %s", first.ID)
	}
	if got := store.tasks[first.ID].Title; got != "first" {
		t.Fatalf("first task overwritten, title now %q", got)
	}
	if len(store.tasks) != 3 {
		t.Fatalf("expected 3 stored tasks, got %d", len(store.tasks))
	}
}

func TestSaveValidation(t *testing.T) {
	svc, _ := newService(false)
	cases := []struct {
		task Task
		want error
	}{
		{Task{AssigneeID: "E1"}, ErrTitleRequired},
		{Task{Title: "x"}, ErrAssigneeRequired},
		{Task{Title: "x", AssigneeID: "E1", Status: "BLOCKED"}, ErrInvalidStatus},
		{Task{Title: "x", AssigneeID: "E1", DueDate: "15/06/2024"}, ErrInvalidDueDate},
	}
	for _, tc := range cases {
		if _, err := svc.Save(context.Background(), tc.task); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: expected %v, got %v", tc.task, tc.want, err)
		}
	}
}

func TestFreeStatusChoice(t *testing.T) {
	svc, _ := newService(false)
	saved, err := svc.SetStatus(context.Background(), "T1", StatusDone)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if saved.Status != StatusDone {
		t.Fatalf("expected DONE, got %s", saved.Status)
	}
	if _, err := svc.SetStatus(context.Background(), "T1", StatusTodo); err != nil {
		t.Fatalf("back to TODO must be allowed: %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), "T1", "LATER"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestStrictWorkflow(t *testing.T) {
	svc, _ := newService(true)
	ctx := context.Background()
	if _, err := svc.SetStatus(ctx, "T1", StatusDone); !errors.Is(err, ErrTransitionBlocked) {
		t.Fatalf("expected blocked transition, got %v", err)
	}
	for _, next := range []Status{StatusInProgress, StatusReview, StatusInProgress, StatusReview, StatusDone} {
		if _, err := svc.SetStatus(ctx, "T1", next); err != nil {
			t.Fatalf("move to %s: %v", next, err)
		}
	}
	if _, err := svc.Save(ctx, Task{ID: "T1", Title: "x", AssigneeID: "E1", Status: StatusTodo}); !errors.Is(err, ErrTransitionBlocked) {
		t.Fatalf("expected blocked save, got %v", err)
	}
}

func TestQuickAddAndAttachments(t *testing.T) {
	svc, store := newService(false)
	ctx := context.Background()

	task, err := svc.QuickAdd(ctx, "QLCL", Task{ID: "ignored", Title: "Kiểm tra lô hàng", AssigneeID: "E1", Status: StatusDone})
	if err != nil {
		t.Fatalf("quick add: %v", err)
	}
	if task.DepartmentID != "QLCL" || task.Status != StatusTodo || task.ID == "ignored" {
		t.Fatalf("unexpected quick-add task %+v", task)
	}

	if _, err := svc.AddAttachment(ctx, "T1", "https://cdn/a.png"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := svc.AddAttachment(ctx, "T1", "https://cdn/b.pdf"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	got := store.tasks["T1"].Attachments
	if len(got) != 2 || got[1] != "https://cdn/b.pdf" {
		t.Fatalf("attachments must keep order, got %v", got)
	}
}

func TestCacheFollowsWrites(t *testing.T) {
	svc, store := newService(false)
	ctx := context.Background()

	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	store.fail = true
	if _, err := svc.Save(ctx, Task{ID: "T1", Title: "Đổi", AssigneeID: "E1"}); err == nil {
		t.Fatal("expected write failure")
	}
	list, _ := svc.List(ctx)
	if len(list) != 1 || list[0].Title != "Thiết kế mẫu" {
		t.Fatalf("cache changed after failed write: %+v", list)
	}

	store.fail = false
	if err := svc.Delete(ctx, "T1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = svc.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusDone, StatusTodo, false) {
		t.Fatal("free mode allows any valid status")
	}
	if CanTransition(StatusTodo, "NOPE", false) {
		t.Fatal("invalid target must be rejected")
	}
	if CanTransition(StatusTodo, StatusReview, true) {
		t.Fatal("strict mode must block skipping")
	}
	if !CanTransition(StatusReview, StatusInProgress, true) {
		t.Fatal("review can go back to in progress")
	}
}

type recordingRemover struct {
	removed []string
	owners  []string
}

func (r *recordingRemover) DeleteOwned(_ context.Context, url, entityType, entityID string) (bool, error) {
	r.removed = append(r.removed, url)
	r.owners = append(r.owners, entityType+"/"+entityID)
	return true, nil
}

func TestReplacedAndDeletedAttachmentsAreRemoved(t *testing.T) {
	svc, store := newService(false)
	remover := &recordingRemover{}
	svc.Objects = remover
	ctx := context.Background()

	t1 := store.tasks["T1"]
	t1.Attachments = []string{"http://localhost:8080/files/tbs-crm/tasks/T1/1_a.png", "https://example.com/doc"}
	store.tasks["T1"] = t1

	if _, err := svc.Save(ctx, Task{ID: "T1", Title: "Thiết kế mẫu", AssigneeID: "E1", Attachments: []string{"https://example.com/doc"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(remover.removed) != 1 || remover.removed[0] != "http://localhost:8080/files/tbs-crm/tasks/T1/1_a.png" {
		t.Fatalf("expected dropped attachment removed, got %v", remover.removed)
	}

	if err := svc.Delete(ctx, "T1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(remover.removed) != 2 || remover.removed[1] != "https://example.com/doc" {
		t.Fatalf("expected remaining attachments offered for removal, got %v", remover.removed)
	}
	for _, owner := range remover.owners {
		if owner != "tasks/T1" {
			t.Fatalf("cleanup must be scoped to the edited task, got %s", owner)
		}
	}
	if err := svc.Delete(ctx, "T1"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
