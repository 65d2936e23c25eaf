package taskhandler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/attachments"
	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/reports"
	"tbscrm/internal/domain/tasks"
	"tbscrm/internal/platform/metrics"
	"tbscrm/internal/platform/storage"
	"tbscrm/internal/transport/http/api"
	"tbscrm/internal/transport/http/middleware"
	"tbscrm/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context) ([]tasks.Task, error)
	Get(ctx context.Context, id string) (*tasks.Task, error)
	Save(ctx context.Context, task tasks.Task) (tasks.Task, error)
	SetStatus(ctx context.Context, id string, status tasks.Status) (tasks.Task, error)
	AddAttachment(ctx context.Context, id, url string) (tasks.Task, error)
	Delete(ctx context.Context, id string) error
	StrictWorkflow() bool
}

type EmployeeLister interface {
	ListEmployees(ctx context.Context) ([]core.Employee, error)
}

type Handler struct {
	Tasks     Service
	Employees EmployeeLister
	Objects   shared.ObjectStore
	Bucket    string
	MaxUpload int64
	Audit     shared.Auditor
	Metrics   *metrics.Collector
	now       func() time.Time
}

func NewHandler(svc Service, employees EmployeeLister, objects shared.ObjectStore, bucket string, maxUpload int64, auditor shared.Auditor, collector *metrics.Collector) *Handler {
	return &Handler{
		Tasks:     svc,
		Employees: employees,
		Objects:   objects,
		Bucket:    bucket,
		MaxUpload: maxUpload,
		Audit:     auditor,
		Metrics:   collector,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	view := middleware.RequireCapability(auth.PermTasksView)
	edit := middleware.RequireCapability(auth.PermTasksEdit)
	board := middleware.RequireCapability(auth.PermTasksEdit, auth.PermDepartmentTasks)
	r.Route("/tasks", func(r chi.Router) {
		r.With(view).Get("/", h.handleList)
		r.With(middleware.RequireUser).Get("/statuses", h.handleStatuses)
		r.With(edit).Post("/", h.handleCreate)
		r.Route("/{taskID}", func(r chi.Router) {
			r.With(view).Get("/", h.handleGet)
			r.With(edit).Put("/", h.handleUpdate)
			r.With(edit).Delete("/", h.handleDelete)
			r.With(board).Put("/status", h.handleStatus)
			r.With(board).Post("/attachments", h.handleAttach)
		})
	})
}

// TaskView is a task with the render kind of each attachment.
type TaskView struct {
	tasks.Task
	AttachmentKinds []attachments.Kind `json:"attachmentKinds"`
}

func viewOf(t tasks.Task) TaskView {
	return TaskView{Task: t, AttachmentKinds: attachments.Kinds(t.Attachments)}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	reqID := shared.RequestID(r)
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound):
		api.Fail(w, http.StatusNotFound, "task_not_found", "task not found", reqID)
	case errors.Is(err, tasks.ErrTransitionBlocked):
		api.Fail(w, http.StatusConflict, "transition_blocked", err.Error(), reqID)
	case errors.Is(err, tasks.ErrTitleRequired):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "title", Reason: err.Error()}})
	case errors.Is(err, tasks.ErrAssigneeRequired):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "assigneeId", Reason: err.Error()}})
	case errors.Is(err, tasks.ErrInvalidStatus):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "status", Reason: "status must be one of " + strings.Join(tasks.StatusStrings(), ", ")}})
	case errors.Is(err, tasks.ErrInvalidDueDate):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "dueDate", Reason: err.Error()}})
	default:
		shared.StoreUnavailable(w, r, op, err)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, ok := reports.ParsePeriod(q.Get("period"))
	if !ok {
		shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: "period", Reason: "period must be DAY, WEEK, MONTH or ALL"}})
		return
	}
	ref, err := shared.ReferenceDate(q.Get("date"), h.now())
	if err != nil {
		shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: "date", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	}
	list, err := h.Tasks.List(r.Context())
	if err != nil {
		h.writeError(w, r, "task list", err)
		return
	}
	emps, err := h.Employees.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, r, "employee list", err)
		return
	}
	list = reports.FilterTasks(list, emps, reports.TaskFilter{
		DepartmentID: q.Get("departmentId"),
		AssigneeID:   q.Get("assigneeId"),
		Position:     q.Get("position"),
		Period:       period,
		Reference:    ref,
	})

	status := strings.ToUpper(strings.TrimSpace(q.Get("status")))
	search := strings.ToLower(strings.TrimSpace(q.Get("search")))
	out := make([]TaskView, 0, len(list))
	for _, t := range list {
		if status != "" && status != core.AllFilter && string(t.Status) != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) {
			continue
		}
		out = append(out, viewOf(t))
	}
	api.Success(w, out, shared.RequestID(r))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.writeError(w, r, "task lookup", err)
		return
	}
	api.Success(w, viewOf(*task), shared.RequestID(r))
}

type statusesResponse struct {
	Statuses []string                        `json:"statuses"`
	Strict   bool                            `json:"strictWorkflow"`
	Workflow map[tasks.Status][]tasks.Status `json:"workflow,omitempty"`
}

func (h *Handler) handleStatuses(w http.ResponseWriter, r *http.Request) {
	resp := statusesResponse{Statuses: tasks.StatusStrings(), Strict: h.Tasks.StrictWorkflow()}
	if resp.Strict {
		resp.Workflow = tasks.Workflow
	}
	api.Success(w, resp, shared.RequestID(r))
}

type taskRequest struct {
	Title        string   `json:"title"`
	AssigneeID   string   `json:"assigneeId"`
	DepartmentID string   `json:"departmentId"`
	Status       string   `json:"status"`
	DueDate      string   `json:"dueDate"`
	Description  string   `json:"description"`
	Attachments  []string `json:"attachments"`
	Feedback     string   `json:"feedback"`
}

func (h *Handler) validateTask(w http.ResponseWriter, r *http.Request, payload taskRequest) bool {
	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	v.Required("assigneeId", payload.AssigneeID, "assigneeId is required")
	v.Enum("status", payload.Status, tasks.StatusStrings(), "status must be one of "+strings.Join(tasks.StatusStrings(), ", "))
	v.Day("dueDate", payload.DueDate)
	for _, link := range payload.Attachments {
		if !validLink(link) {
			v.Add("attachments", "attachments must be http(s) URLs")
			break
		}
	}
	if assignee := strings.TrimSpace(payload.AssigneeID); assignee != "" {
		emps, err := h.Employees.ListEmployees(r.Context())
		if err != nil {
			h.writeError(w, r, "employee list", err)
			return false
		}
		if _, ok := core.EmployeeIndex(emps)[assignee]; !ok {
			v.Add("assigneeId", "assignee does not exist")
		}
	}
	return !v.Reject(w, shared.RequestID(r))
}

func (p taskRequest) task(id string) tasks.Task {
	return tasks.Task{
		ID:           id,
		Title:        p.Title,
		AssigneeID:   p.AssigneeID,
		DepartmentID: strings.TrimSpace(p.DepartmentID),
		Status:       tasks.Status(strings.ToUpper(strings.TrimSpace(p.Status))),
		DueDate:      strings.TrimSpace(p.DueDate),
		Description:  p.Description,
		Attachments:  p.Attachments,
		Feedback:     p.Feedback,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload taskRequest
	if !shared.DecodeJSON(w, r, &payload) || !h.validateTask(w, r, payload) {
		return
	}
	saved, err := h.Tasks.Save(r.Context(), payload.task(""))
	if err != nil {
		h.writeError(w, r, "task save", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionCreate, audit.EntityTask, saved.ID, saved.Title)
	api.Created(w, viewOf(saved), shared.RequestID(r))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if _, err := h.Tasks.Get(r.Context(), id); err != nil {
		h.writeError(w, r, "task lookup", err)
		return
	}
	var payload taskRequest
	if !shared.DecodeJSON(w, r, &payload) || !h.validateTask(w, r, payload) {
		return
	}
	saved, err := h.Tasks.Save(r.Context(), payload.task(id))
	if err != nil {
		h.writeError(w, r, "task save", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionUpdate, audit.EntityTask, saved.ID, saved.Title)
	api.Success(w, viewOf(saved), shared.RequestID(r))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if err := h.Tasks.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, "task delete", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionDelete, audit.EntityTask, id, "")
	api.Success(w, map[string]string{"id": id}, shared.RequestID(r))
}

// boardTask loads a task the caller may move on a department board. Holders
// of tasks.edit reach every task; departments.tasks is limited to the
// caller's own department.
func (h *Handler) boardTask(w http.ResponseWriter, r *http.Request) (*tasks.Task, bool) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return nil, false
	}
	task, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.writeError(w, r, "task lookup", err)
		return nil, false
	}
	policy := shared.PolicyOf(user)
	if !policy.Can(auth.PermTasksEdit) &&
		(user.DepartmentID == "" || task.DepartmentID != user.DepartmentID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "task belongs to another department", shared.RequestID(r))
		return nil, false
	}
	return task, true
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.boardTask(w, r)
	if !ok {
		return
	}
	var payload statusRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	next := tasks.Status(strings.ToUpper(strings.TrimSpace(payload.Status)))
	saved, err := h.Tasks.SetStatus(r.Context(), task.ID, next)
	if err != nil {
		h.writeError(w, r, "task status", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionUpdate, audit.EntityTask, saved.ID, string(task.Status)+" -> "+string(saved.Status))
	api.Success(w, viewOf(saved), shared.RequestID(r))
}

type attachmentRequest struct {
	URL string `json:"url"`
}

// handleAttach appends either an uploaded file or an external link to the
// task's attachment list.
func (h *Handler) handleAttach(w http.ResponseWriter, r *http.Request) {
	task, ok := h.boardTask(w, r)
	if !ok {
		return
	}

	var link string
	var uploaded *storage.Object
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, header, ok := shared.FormFile(w, r, h.MaxUpload)
		if !ok {
			return
		}
		defer file.Close()
		objectPath := storage.ObjectPath(tasks.ObjectEntity, task.ID, header.Filename, h.now())
		obj, ok := shared.StoreUpload(w, r, h.Objects, h.Metrics, h.Bucket, objectPath, file)
		if !ok {
			return
		}
		link, uploaded = obj.URL, &obj
	} else {
		var payload attachmentRequest
		if !shared.DecodeJSON(w, r, &payload) {
			return
		}
		link = strings.TrimSpace(payload.URL)
		if !validLink(link) {
			shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: "url", Reason: "url must be an http(s) URL"}})
			return
		}
	}

	saved, err := h.Tasks.AddAttachment(r.Context(), task.ID, link)
	if err != nil {
		if uploaded != nil {
			_ = h.Objects.Delete(r.Context(), uploaded.Bucket, uploaded.Path)
		}
		h.writeError(w, r, "task attachment", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionUpdate, audit.EntityTask, saved.ID, "attachment "+string(attachments.Classify(link)))
	api.Created(w, viewOf(saved), shared.RequestID(r))
}

func validLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
