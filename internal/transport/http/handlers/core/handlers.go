package corehandler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/reports"
	"tbscrm/internal/domain/tasks"
	"tbscrm/internal/platform/i18n"
	"tbscrm/internal/platform/metrics"
	"tbscrm/internal/platform/storage"
	"tbscrm/internal/transport/http/api"
	"tbscrm/internal/transport/http/middleware"
	"tbscrm/internal/transport/http/shared"
)

type Service interface {
	ListEmployees(ctx context.Context) ([]core.Employee, error)
	GetEmployee(ctx context.Context, id string) (*core.Employee, error)
	SaveEmployee(ctx context.Context, emp core.Employee) (core.Employee, error)
	ReplaceAvatar(ctx context.Context, id, avatarURL string) (core.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
	ListDepartments(ctx context.Context) ([]core.Department, error)
	GetDepartment(ctx context.Context, id string) (*core.Department, error)
	SaveDepartment(ctx context.Context, dep core.Department) (core.Department, error)
	DeleteDepartment(ctx context.Context, id string) error
}

type TaskService interface {
	List(ctx context.Context) ([]tasks.Task, error)
	QuickAdd(ctx context.Context, departmentID string, task tasks.Task) (tasks.Task, error)
}

type PayslipRenderer interface {
	Payslip(w io.Writer, lang i18n.Lang, emp core.Employee, departmentName string) error
}

type Handler struct {
	Core      Service
	Tasks     TaskService
	Objects   shared.ObjectStore
	Bucket    string
	MaxUpload int64
	Renderer  PayslipRenderer
	Audit     shared.Auditor
	Metrics   *metrics.Collector
	now       func() time.Time
}

func NewHandler(svc Service, taskSvc TaskService, objects shared.ObjectStore, bucket string, maxUpload int64, renderer PayslipRenderer, auditor shared.Auditor, collector *metrics.Collector) *Handler {
	return &Handler{
		Core:      svc,
		Tasks:     taskSvc,
		Objects:   objects,
		Bucket:    bucket,
		MaxUpload: maxUpload,
		Renderer:  renderer,
		Audit:     auditor,
		Metrics:   collector,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	view := middleware.RequireCapability(auth.PermEmployeesView)
	edit := middleware.RequireCapability(auth.PermEmployeesEdit)
	r.Route("/employees", func(r chi.Router) {
		r.With(view).Get("/", h.handleListEmployees)
		r.With(view).Get("/payroll", h.handlePayroll)
		r.With(edit).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(view).Get("/", h.handleGetEmployee)
			r.With(view).Get("/payslip.pdf", h.handlePayslip)
			r.With(edit).Put("/", h.handleUpdateEmployee)
			r.With(edit).Delete("/", h.handleDeleteEmployee)
			r.With(edit).Post("/avatar", h.handleAvatar)
		})
	})

	settings := middleware.RequireCapability(auth.PermSettings)
	r.Route("/departments", func(r chi.Router) {
		r.Use(middleware.RequireCapability(auth.PermDepartmentsView))
		r.Get("/", h.handleListDepartments)
		r.With(settings).Post("/", h.handleCreateDepartment)
		r.Route("/{departmentID}", func(r chi.Router) {
			r.Get("/", h.handleGetDepartment)
			r.Get("/detail", h.handleDepartmentDetail)
			r.With(middleware.RequireCapability(auth.PermTasksEdit, auth.PermDepartmentTasks)).Post("/tasks", h.handleQuickAdd)
			r.With(settings).Put("/", h.handleUpdateDepartment)
			r.With(settings).Delete("/", h.handleDeleteDepartment)
		})
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	reqID := shared.RequestID(r)
	switch {
	case errors.Is(err, core.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	case errors.Is(err, core.ErrDepartmentNotFound):
		api.Fail(w, http.StatusNotFound, "department_not_found", "department not found", reqID)
	case errors.Is(err, core.ErrDepartmentInUse):
		api.Fail(w, http.StatusConflict, "department_in_use", "department still has employees", reqID)
	case errors.Is(err, core.ErrDuplicateCode):
		api.Fail(w, http.StatusConflict, "duplicate_code", "employee code already in use", reqID)
	case errors.Is(err, core.ErrInvalidEmployee), errors.Is(err, core.ErrInvalidDepartment):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, tasks.ErrTitleRequired):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "title", Reason: err.Error()}})
	case errors.Is(err, tasks.ErrAssigneeRequired):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "assigneeId", Reason: err.Error()}})
	case errors.Is(err, tasks.ErrInvalidDueDate):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "dueDate", Reason: err.Error()}})
	default:
		shared.StoreUnavailable(w, r, op, err)
	}
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := h.Core.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, r, "employee list", err)
		return
	}
	q := r.URL.Query()
	filtered := core.FilterEmployees(list, core.EmployeeFilter{
		Search:       q.Get("search"),
		DepartmentID: q.Get("departmentId"),
	})
	api.Success(w, filtered, shared.RequestID(r))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Core.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.writeError(w, r, "employee lookup", err)
		return
	}
	api.Success(w, emp, shared.RequestID(r))
}

func (h *Handler) validateEmployee(ctx context.Context, emp core.Employee) ([]shared.ValidationIssue, error) {
	v := shared.NewValidator()
	v.Required("code", emp.Code, "code is required")
	v.Required("fullName", emp.FullName, "fullName is required")
	v.Enum("gender", emp.Gender, core.Genders, "gender must be one of "+strings.Join(core.Genders, ", "))
	v.Enum("status", emp.Status, core.EmployeeStatuses, "status must be one of "+strings.Join(core.EmployeeStatuses, ", "))
	v.Day("dob", emp.DOB)
	v.Day("startDate", emp.StartDate)
	if emp.WorkDays < 0 {
		v.Add("workDays", "workDays must not be negative")
	}
	if emp.Salary.BaseSalary < 0 || emp.Salary.TotalAllowances() < 0 || emp.Salary.DependentCount < 0 {
		v.Add("salary", "salary amounts must not be negative")
	}
	if dept := strings.TrimSpace(emp.DepartmentID); dept != "" {
		_, err := h.Core.GetDepartment(ctx, dept)
		if errors.Is(err, core.ErrDepartmentNotFound) {
			v.Add("departmentId", "department does not exist")
		} else if err != nil {
			return nil, err
		}
	}
	return v.Issues(), nil
}

func (h *Handler) saveEmployee(w http.ResponseWriter, r *http.Request, emp core.Employee, action string, status int) {
	issues, err := h.validateEmployee(r.Context(), emp)
	if err != nil {
		h.writeError(w, r, "department lookup", err)
		return
	}
	if len(issues) > 0 {
		shared.FailValidation(w, shared.RequestID(r), issues)
		return
	}
	saved, err := h.Core.SaveEmployee(r.Context(), emp)
	if err != nil {
		h.writeError(w, r, "employee save", err)
		return
	}
	shared.Trace(h.Audit, r, action, audit.EntityEmployee, saved.ID, saved.Code+" "+saved.FullName)
	if status == http.StatusCreated {
		api.Created(w, saved, shared.RequestID(r))
		return
	}
	api.Success(w, saved, shared.RequestID(r))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var emp core.Employee
	if !shared.DecodeJSON(w, r, &emp) {
		return
	}
	emp.ID = ""
	h.saveEmployee(w, r, emp, audit.ActionCreate, http.StatusCreated)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	if _, err := h.Core.GetEmployee(r.Context(), id); err != nil {
		h.writeError(w, r, "employee lookup", err)
		return
	}
	var emp core.Employee
	if !shared.DecodeJSON(w, r, &emp) {
		return
	}
	emp.ID = id
	h.saveEmployee(w, r, emp, audit.ActionUpdate, http.StatusOK)
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	if err := h.Core.DeleteEmployee(r.Context(), id); err != nil {
		h.writeError(w, r, "employee delete", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionDelete, audit.EntityEmployee, id, "")
	api.Success(w, map[string]string{"id": id}, shared.RequestID(r))
}

// handleAvatar stores an uploaded image and points the employee at it. The
// new object is dropped again when the record cannot be updated.
func (h *Handler) handleAvatar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "employeeID")
	if _, err := h.Core.GetEmployee(r.Context(), id); err != nil {
		h.writeError(w, r, "employee lookup", err)
		return
	}
	file, header, ok := shared.FormFile(w, r, h.MaxUpload)
	if !ok {
		return
	}
	defer file.Close()

	objectPath := storage.ObjectPath(core.ObjectEntity, id, header.Filename, h.now())
	obj, ok := shared.StoreUpload(w, r, h.Objects, h.Metrics, h.Bucket, objectPath, file)
	if !ok {
		return
	}
	if !strings.HasPrefix(obj.ContentType, "image/") {
		h.discard(r.Context(), obj)
		api.Fail(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "avatar must be an image", shared.RequestID(r))
		return
	}
	emp, err := h.Core.ReplaceAvatar(r.Context(), id, obj.URL)
	if err != nil {
		h.discard(r.Context(), obj)
		h.writeError(w, r, "avatar update", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionUpdate, audit.EntityEmployee, id, "avatar "+obj.Path)
	api.Success(w, emp, shared.RequestID(r))
}

func (h *Handler) discard(ctx context.Context, obj storage.Object) {
	if err := h.Objects.Delete(ctx, obj.Bucket, obj.Path); err != nil {
		slog.Warn("uploaded object cleanup failed", "bucket", obj.Bucket, "path", obj.Path, "err", err)
	}
}

type payrollResponse struct {
	core.PayrollSheet
	TotalIncomeLabel string `json:"totalIncomeLabel"`
}

func (h *Handler) handlePayroll(w http.ResponseWriter, r *http.Request) {
	list, err := h.Core.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, r, "employee list", err)
		return
	}
	list = core.FilterEmployees(list, core.EmployeeFilter{DepartmentID: r.URL.Query().Get("departmentId")})
	sheet := core.BuildPayrollSheet(list)
	api.Success(w, payrollResponse{
		PayrollSheet:     sheet,
		TotalIncomeLabel: i18n.FormatMoney(shared.Language(r), sheet.TotalIncome),
	}, shared.RequestID(r))
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Core.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.writeError(w, r, "employee lookup", err)
		return
	}
	deptName := emp.DepartmentID
	if dep, err := h.Core.GetDepartment(r.Context(), emp.DepartmentID); err == nil {
		deptName = dep.Name
	}
	var buf bytes.Buffer
	if err := h.Renderer.Payslip(&buf, shared.Language(r), *emp, deptName); err != nil {
		api.Fail(w, http.StatusInternalServerError, "render_failed", "payslip could not be rendered", shared.RequestID(r))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "payslip-"+emp.Code+".pdf"))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return
	}
	list, err := h.Core.ListDepartments(r.Context())
	if err != nil {
		h.writeError(w, r, "department list", err)
		return
	}
	visible := auth.VisibleDepartments(shared.PolicyOf(user), user.DepartmentID, list, core.DepartmentID)
	api.Success(w, visible, shared.RequestID(r))
}

// visibleDepartment loads a department the caller may see. Hidden departments
// answer 404 like missing ones.
func (h *Handler) visibleDepartment(w http.ResponseWriter, r *http.Request) (*core.Department, auth.UserContext, bool) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return nil, user, false
	}
	id := chi.URLParam(r, "departmentID")
	if !shared.PolicyOf(user).CanSeeDepartment(user.DepartmentID, id) {
		h.writeError(w, r, "department lookup", core.ErrDepartmentNotFound)
		return nil, user, false
	}
	dep, err := h.Core.GetDepartment(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "department lookup", err)
		return nil, user, false
	}
	return dep, user, true
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	dep, _, ok := h.visibleDepartment(w, r)
	if !ok {
		return
	}
	api.Success(w, dep, shared.RequestID(r))
}

func (h *Handler) handleDepartmentDetail(w http.ResponseWriter, r *http.Request) {
	dep, user, ok := h.visibleDepartment(w, r)
	if !ok {
		return
	}
	emps, err := h.Core.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, r, "employee list", err)
		return
	}
	list, err := h.Tasks.List(r.Context())
	if err != nil {
		h.writeError(w, r, "task list", err)
		return
	}
	emps = core.RedactEmployees(emps, shared.PolicyOf(user))
	api.Success(w, reports.BuildDepartmentDetail(*dep, emps, list), shared.RequestID(r))
}

type quickAddRequest struct {
	Title       string `json:"title"`
	AssigneeID  string `json:"assigneeId"`
	DueDate     string `json:"dueDate"`
	Description string `json:"description"`
}

// handleQuickAdd creates a TODO task from the department board. The assignee
// must belong to that department.
func (h *Handler) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	dep, _, ok := h.visibleDepartment(w, r)
	if !ok {
		return
	}
	var payload quickAddRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	v.Required("assigneeId", payload.AssigneeID, "assigneeId is required")
	v.Day("dueDate", payload.DueDate)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	emps, err := h.Core.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, r, "employee list", err)
		return
	}
	assignee, found := core.EmployeeIndex(emps)[strings.TrimSpace(payload.AssigneeID)]
	if !found || assignee.DepartmentID != dep.ID {
		shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: "assigneeId", Reason: "assignee must belong to the department"}})
		return
	}
	task, err := h.Tasks.QuickAdd(r.Context(), dep.ID, tasks.Task{
		Title:       payload.Title,
		AssigneeID:  assignee.ID,
		DueDate:     strings.TrimSpace(payload.DueDate),
		Description: payload.Description,
	})
	if err != nil {
		h.writeError(w, r, "task save", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionCreate, audit.EntityTask, task.ID, task.Title)
	api.Created(w, task, shared.RequestID(r))
}

type departmentRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ManagerID   string `json:"managerId"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var payload departmentRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("id", payload.ID, "id is required")
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	id := strings.ToUpper(strings.TrimSpace(payload.ID))
	_, err := h.Core.GetDepartment(r.Context(), id)
	if err == nil {
		api.Fail(w, http.StatusConflict, "department_exists", "department id already in use", shared.RequestID(r))
		return
	}
	if !errors.Is(err, core.ErrDepartmentNotFound) {
		h.writeError(w, r, "department lookup", err)
		return
	}
	saved, err := h.Core.SaveDepartment(r.Context(), core.Department{
		ID:          id,
		Name:        payload.Name,
		ManagerID:   strings.TrimSpace(payload.ManagerID),
		Description: strings.TrimSpace(payload.Description),
	})
	if err != nil {
		h.writeError(w, r, "department save", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionCreate, audit.EntityDepartment, saved.ID, saved.Name)
	api.Created(w, saved, shared.RequestID(r))
}

// handleUpdateDepartment keeps the id from the path; department ids never
// change once created.
func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "departmentID")
	if _, err := h.Core.GetDepartment(r.Context(), id); err != nil {
		h.writeError(w, r, "department lookup", err)
		return
	}
	var payload departmentRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if payload.ID != "" && !strings.EqualFold(strings.TrimSpace(payload.ID), id) {
		v.Add("id", "department id cannot be changed")
	}
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	saved, err := h.Core.SaveDepartment(r.Context(), core.Department{
		ID:          id,
		Name:        payload.Name,
		ManagerID:   strings.TrimSpace(payload.ManagerID),
		Description: strings.TrimSpace(payload.Description),
	})
	if err != nil {
		h.writeError(w, r, "department save", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionUpdate, audit.EntityDepartment, saved.ID, saved.Name)
	api.Success(w, saved, shared.RequestID(r))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "departmentID")
	if err := h.Core.DeleteDepartment(r.Context(), id); err != nil {
		h.writeError(w, r, "department delete", err)
		return
	}
	shared.Trace(h.Audit, r, audit.ActionDelete, audit.EntityDepartment, id, "")
	api.Success(w, map[string]string{"id": id}, shared.RequestID(r))
}
