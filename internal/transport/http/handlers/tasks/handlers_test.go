package taskhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/attachments"
	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/tasks"
	"tbscrm/internal/platform/storage"
	"tbscrm/internal/transport/http/middleware"
)

type memoryTasks struct {
	tasks map[string]tasks.Task
}

func (m *memoryTasks) List(context.Context) ([]tasks.Task, error) {
	out := []tasks.Task{}
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryTasks) Get(_ context.Context, id string) (*tasks.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, tasks.ErrTaskNotFound
	}
	return &t, nil
}

func (m *memoryTasks) Upsert(_ context.Context, task tasks.Task) (tasks.Task, error) {
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memoryTasks) UpdateStatus(_ context.Context, id string, status tasks.Status) (tasks.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return tasks.Task{}, tasks.ErrTaskNotFound
	}
	t.Status = status
	m.tasks[id] = t
	return t, nil
}

func (m *memoryTasks) AppendAttachment(_ context.Context, id, url string) (tasks.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return tasks.Task{}, tasks.ErrTaskNotFound
	}
	t.Attachments = append(t.Attachments, url)
	m.tasks[id] = t
	return t, nil
}

func (m *memoryTasks) Delete(_ context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return tasks.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

type staffList []core.Employee

func (s staffList) ListEmployees(context.Context) ([]core.Employee, error) {
	return s, nil
}

func (s staffList) EmployeeDepartment(_ context.Context, id string) (string, error) {
	for _, e := range s {
		if e.ID == id {
			return e.DepartmentID, nil
		}
	}
	return "", core.ErrEmployeeNotFound
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Trace(_ context.Context, e audit.Entry) {
	a.entries = append(a.entries, e)
}

var staff = staffList{
	{ID: "E1", Code: "NV001", FullName: "Nguyễn Văn An", DepartmentID: "RD", Position: "Designer"},
	{ID: "E2", Code: "NV002", FullName: "Trần Thị Bình", DepartmentID: "TMH", Position: "Sales"},
}

type fixture struct {
	router  http.Handler
	store   *memoryTasks
	auditor *recordingAuditor
}

func newFixture(t *testing.T, user auth.UserContext, strict bool) *fixture {
	t.Helper()
	store := &memoryTasks{tasks: map[string]tasks.Task{
		"T1": {ID: "T1", Title: "Thiết kế mẫu áo", AssigneeID: "E1", DepartmentID: "RD", Status: tasks.StatusTodo, DueDate: "2024-06-15",
			Attachments: []string{"https://cdn.example.com/a.PNG?x=1", "https://example.com/brief"}},
		"T2": {ID: "T2", Title: "Báo giá khách hàng", AssigneeID: "E2", DepartmentID: "TMH", Status: tasks.StatusDone, DueDate: "2024-05-02",
			Attachments: []string{}},
		"T3": {ID: "T3", Title: "Chưa có hạn", AssigneeID: "E1", DepartmentID: "RD", Status: tasks.StatusReview, Attachments: []string{}},
	}}
	svc := tasks.NewService(store, staff, 0, strict)
	auditor := &recordingAuditor{}
	h := NewHandler(svc, staff, storage.New(t.TempDir(), "http://localhost:8080", 1<<20), "tbs-crm", 1<<20, auditor, nil)
	h.now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	h.RegisterRoutes(r)
	return &fixture{router: r, store: store, auditor: auditor}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(body.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

var (
	manager  = auth.UserContext{UserID: "m1", Email: "manager@tbs.vn", RoleName: auth.RoleManager}
	employee = auth.UserContext{UserID: "u1", Email: "an@tbs.vn", RoleName: auth.RoleEmployee, DepartmentID: "RD"}
	viewer   = auth.UserContext{UserID: "v1", Email: "viewer@tbs.vn", RoleName: auth.RoleViewer, DepartmentID: "RD"}
)

func ids(list []TaskView) string {
	out := []string{}
	for _, t := range list {
		out = append(out, t.ID)
	}
	return strings.Join(out, ",")
}

func TestListFilters(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"all", "", "T1,T2,T3"},
		{"department", "?departmentId=RD", "T1,T3"},
		{"all sentinel", "?departmentId=ALL&assigneeId=ALL&position=ALL&period=ALL", "T1,T2,T3"},
		{"position from assignee", "?position=Sales", "T2"},
		{"day", "?period=DAY&date=2024-06-15", "T1"},
		{"month excludes missing due", "?period=MONTH&date=2024-06-01", "T1"},
		{"week window", "?period=WEEK&date=2024-06-20", "T1"},
		{"status", "?status=done", "T2"},
		{"search", "?search=b%C3%A1o", "T2"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, manager, false)
			rec := f.do(http.MethodGet, "/tasks"+tc.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var list []TaskView
			decodeData(t, rec, &list)
			if got := ids(list); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestListRejectsBadFilters(t *testing.T) {
	f := newFixture(t, manager, false)
	if rec := f.do(http.MethodGet, "/tasks?period=YEAR", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for period, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/tasks?period=DAY&date=15-06-2024", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for date, got %d", rec.Code)
	}
}

func TestAttachmentKindsInResponse(t *testing.T) {
	f := newFixture(t, manager, false)
	rec := f.do(http.MethodGet, "/tasks/T1", "")
	var view TaskView
	decodeData(t, rec, &view)
	if len(view.AttachmentKinds) != 2 || view.AttachmentKinds[0] != attachments.KindImage || view.AttachmentKinds[1] != attachments.KindLink {
		t.Fatalf("unexpected kinds %v", view.AttachmentKinds)
	}
}

func TestTaskAccess(t *testing.T) {
	cases := []struct {
		name   string
		user   auth.UserContext
		method string
		path   string
		body   string
		want   int
	}{
		{"employee cannot list", employee, http.MethodGet, "/tasks", "", http.StatusForbidden},
		{"employee moves own department task", employee, http.MethodPut, "/tasks/T1/status", `{"status":"IN_PROGRESS"}`, http.StatusOK},
		{"employee cannot move other department", employee, http.MethodPut, "/tasks/T2/status", `{"status":"TODO"}`, http.StatusForbidden},
		{"viewer cannot move", viewer, http.MethodPut, "/tasks/T1/status", `{"status":"DONE"}`, http.StatusForbidden},
		{"employee cannot create", employee, http.MethodPost, "/tasks", `{"title":"x","assigneeId":"E1"}`, http.StatusForbidden},
		{"statuses for signed in users", viewer, http.MethodGet, "/tasks/statuses", "", http.StatusOK},
		{"missing task", manager, http.MethodGet, "/tasks/T9", "", http.StatusNotFound},
		{"invalid status", manager, http.MethodPut, "/tasks/T1/status", `{"status":"LATER"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.user, false)
			rec := f.do(tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestFreeAndStrictStatusChanges(t *testing.T) {
	free := newFixture(t, manager, false)
	if rec := free.do(http.MethodPut, "/tasks/T2/status", `{"status":"todo"}`); rec.Code != http.StatusOK {
		t.Fatalf("free mode allows DONE -> TODO, got %d", rec.Code)
	}
	if free.store.tasks["T2"].Status != tasks.StatusTodo {
		t.Fatalf("status not stored: %+v", free.store.tasks["T2"])
	}
	if e := free.auditor.entries[0]; e.Details != "DONE -> TODO" || e.EntityID != "T2" {
		t.Fatalf("unexpected audit entry %+v", e)
	}

	strict := newFixture(t, manager, true)
	rec := strict.do(http.MethodPut, "/tasks/T1/status", `{"status":"DONE"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("strict mode blocks TODO -> DONE, got %d", rec.Code)
	}
	if strict.store.tasks["T1"].Status != tasks.StatusTodo {
		t.Fatal("blocked transition must not change the task")
	}
	rec = strict.do(http.MethodGet, "/tasks/statuses", "")
	var resp statusesResponse
	decodeData(t, rec, &resp)
	if !resp.Strict || len(resp.Workflow[tasks.StatusReview]) != 2 {
		t.Fatalf("unexpected statuses response %+v", resp)
	}
}

func TestCreateUpdateDelete(t *testing.T) {
	f := newFixture(t, manager, false)

	rec := f.do(http.MethodPost, "/tasks", `{"title":"Đặt vải","assigneeId":"E2","dueDate":"2024-07-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created TaskView
	decodeData(t, rec, &created)
	if created.Status != tasks.StatusTodo || created.DepartmentID != "TMH" {
		t.Fatalf("unexpected defaults %+v", created.Task)
	}

	rec = f.do(http.MethodPost, "/tasks", `{"title":"x","assigneeId":"E9","status":"BLOCKED","dueDate":"1/7/2024"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	for _, field := range []string{"assigneeId", "status", "dueDate"} {
		if !strings.Contains(rec.Body.String(), `"field":"`+field+`"`) {
			t.Fatalf("missing issue for %s: %s", field, rec.Body.String())
		}
	}

	rec = f.do(http.MethodPut, "/tasks/"+created.ID, `{"title":"Đặt vải lụa","assigneeId":"E2","status":"REVIEW","feedback":"Thiếu màu"}`)
	if rec.Code != http.StatusOK || f.store.tasks[created.ID].Feedback != "Thiếu màu" {
		t.Fatalf("update failed %d %+v", rec.Code, f.store.tasks[created.ID])
	}
	if rec := f.do(http.MethodPut, "/tasks/T9", `{"title":"x","assigneeId":"E1"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	if rec := f.do(http.MethodDelete, "/tasks/"+created.ID, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(f.auditor.entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(f.auditor.entries))
	}
}

func TestAttachLinkAndUpload(t *testing.T) {
	f := newFixture(t, employee, false)

	rec := f.do(http.MethodPost, "/tasks/T3/attachments", `{"url":"https://videos-bucket.example.com/clip"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(http.MethodPost, "/tasks/T3/attachments", `{"url":"javascript:alert(1)"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "báo cáo.pdf")
	_, _ = part.Write([]byte("%PDF-1.4\n"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/tasks/T3/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var view TaskView
	decodeData(t, rec, &view)
	if len(view.Attachments) != 2 {
		t.Fatalf("expected two attachments, got %v", view.Attachments)
	}
	if view.AttachmentKinds[0] != attachments.KindVideo || view.AttachmentKinds[1] != attachments.KindPDF {
		t.Fatalf("unexpected kinds %v", view.AttachmentKinds)
	}
	if !strings.HasPrefix(view.Attachments[1], "http://localhost:8080/files/tbs-crm/tasks/T3/") {
		t.Fatalf("unexpected upload url %q", view.Attachments[1])
	}
}
