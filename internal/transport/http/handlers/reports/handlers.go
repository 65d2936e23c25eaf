package reportshandler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/reports"
	"tbscrm/internal/domain/tasks"
	"tbscrm/internal/transport/http/api"
	"tbscrm/internal/transport/http/middleware"
	"tbscrm/internal/transport/http/shared"
)

type Directory interface {
	ListEmployees(ctx context.Context) ([]core.Employee, error)
	ListDepartments(ctx context.Context) ([]core.Department, error)
}

type TaskLister interface {
	List(ctx context.Context) ([]tasks.Task, error)
}

type AppNamer interface {
	AppName(ctx context.Context) (string, error)
}

type Handler struct {
	Directory Directory
	Tasks     TaskLister
	AppNames  AppNamer
	Renderer  reports.Renderer
	now       func() time.Time
}

func NewHandler(directory Directory, taskList TaskLister, appNames AppNamer, renderer reports.Renderer) *Handler {
	return &Handler{Directory: directory, Tasks: taskList, AppNames: appNames, Renderer: renderer, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireCapability(auth.PermReportsView))
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/distribution", h.handleDistribution)
		r.Get("/options", h.handleOptions)
		r.Get("/tasks", h.handleTaskReport)
		r.Get("/tasks.pdf", h.handleTaskReportPDF)
		r.Get("/tasks.csv", h.handleTaskReportCSV)
	})
}

type dataset struct {
	user        auth.UserContext
	policy      auth.Policy
	employees   []core.Employee
	departments []core.Department
	tasks       []tasks.Task
}

// load reads the three collections every report is computed from. Employee
// records are redacted for roles without directory access.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, withTasks bool) (dataset, bool) {
	user, ok := shared.CurrentUser(w, r)
	if !ok {
		return dataset{}, false
	}
	s := dataset{user: user, policy: shared.PolicyOf(user)}
	emps, err := h.Directory.ListEmployees(r.Context())
	if err != nil {
		shared.StoreUnavailable(w, r, "employee list", err)
		return dataset{}, false
	}
	s.employees = core.RedactEmployees(emps, s.policy)
	if s.departments, err = h.Directory.ListDepartments(r.Context()); err != nil {
		shared.StoreUnavailable(w, r, "department list", err)
		return dataset{}, false
	}
	if withTasks {
		if s.tasks, err = h.Tasks.List(r.Context()); err != nil {
			shared.StoreUnavailable(w, r, "task list", err)
			return dataset{}, false
		}
	}
	return s, true
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r, true)
	if !ok {
		return
	}
	api.Success(w, reports.BuildDashboard(s.employees, s.departments, s.tasks), shared.RequestID(r))
}

func (h *Handler) handleDistribution(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r, false)
	if !ok {
		return
	}
	api.Success(w, reports.Distribution(s.departments, s.employees), shared.RequestID(r))
}

type employeeOption struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	FullName     string `json:"fullName"`
	DepartmentID string `json:"departmentId"`
	Position     string `json:"position"`
	AvatarURL    string `json:"avatarUrl"`
}

type optionsResponse struct {
	Employees   []employeeOption  `json:"employees"`
	Departments []core.Department `json:"departments"`
	Positions   []string          `json:"positions"`
	Statuses    []string          `json:"statuses"`
	Periods     []string          `json:"periods"`
}

// handleOptions lists the choices of the report filter bar. It is readable by
// every role with report access, including those without the employee
// directory.
func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r, false)
	if !ok {
		return
	}
	resp := optionsResponse{
		Employees:   make([]employeeOption, 0, len(s.employees)),
		Departments: s.departments,
		Positions:   core.Positions(s.employees),
		Statuses:    tasks.StatusStrings(),
		Periods:     []string{core.AllFilter, string(reports.PeriodDay), string(reports.PeriodWeek), string(reports.PeriodMonth)},
	}
	for _, e := range s.employees {
		resp.Employees = append(resp.Employees, employeeOption{
			ID:           e.ID,
			Code:         e.Code,
			FullName:     e.FullName,
			DepartmentID: e.DepartmentID,
			Position:     e.Position,
			AvatarURL:    e.AvatarURL,
		})
	}
	api.Success(w, resp, shared.RequestID(r))
}

// taskReport parses the filter query and builds the report.
func (h *Handler) taskReport(w http.ResponseWriter, r *http.Request) (reports.TaskReport, dataset, bool) {
	q := r.URL.Query()
	v := shared.NewValidator()
	period, ok := reports.ParsePeriod(q.Get("period"))
	if !ok {
		v.Add("period", "period must be DAY, WEEK, MONTH or ALL")
	}
	ref, err := shared.ReferenceDate(q.Get("date"), h.now())
	if err != nil {
		v.Add("date", "must be a valid date in YYYY-MM-DD format")
	}
	if v.Reject(w, shared.RequestID(r)) {
		return reports.TaskReport{}, dataset{}, false
	}
	s, ok := h.load(w, r, true)
	if !ok {
		return reports.TaskReport{}, dataset{}, false
	}
	report := reports.BuildTaskReport(s.tasks, s.employees, reports.TaskFilter{
		DepartmentID: q.Get("departmentId"),
		AssigneeID:   q.Get("assigneeId"),
		Position:     q.Get("position"),
		Period:       period,
		Reference:    ref,
	})
	return report, s, true
}

func (h *Handler) handleTaskReport(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.taskReport(w, r)
	if !ok {
		return
	}
	api.Success(w, report, shared.RequestID(r))
}

func (h *Handler) handleTaskReportPDF(w http.ResponseWriter, r *http.Request) {
	report, s, ok := h.taskReport(w, r)
	if !ok {
		return
	}
	renderer := h.Renderer
	if h.AppNames != nil {
		if name, err := h.AppNames.AppName(r.Context()); err == nil {
			renderer.AppName = name
		}
	}
	preparedBy := s.user.Email
	if preparedBy == "" {
		preparedBy = s.user.UserID
	}
	h.attachment(w, r, "application/pdf", reportName(report, "pdf"), func(out io.Writer) error {
		return renderer.WorkReport(out, shared.Language(r), report, preparedBy)
	})
}

func (h *Handler) handleTaskReportCSV(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.taskReport(w, r)
	if !ok {
		return
	}
	lang := shared.Language(r)
	h.attachment(w, r, "text/csv; charset=utf-8", reportName(report, "csv"), func(out io.Writer) error {
		return reports.WriteCSV(out, lang, report)
	})
}

// attachment renders into memory before any header is written.
func (h *Handler) attachment(w http.ResponseWriter, r *http.Request, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		api.Fail(w, http.StatusInternalServerError, "render_failed", "report could not be rendered", shared.RequestID(r))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(buf.Bytes())
}

func reportName(report reports.TaskReport, ext string) string {
	period := string(report.Period)
	if period == "" {
		period = core.AllFilter
	}
	return fmt.Sprintf("work-report-%s-%s.%s", period, report.Reference, ext)
}
