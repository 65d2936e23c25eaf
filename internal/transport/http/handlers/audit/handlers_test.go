package audithandler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/transport/http/middleware"
)

type fakeService struct {
	logs       []audit.Log
	lastFilter audit.Filter
	lastLimit  int
	lastOffset int
	fail       bool
}

func (f *fakeService) Count(_ context.Context, filter audit.Filter) (int, error) {
	return len(f.logs), nil
}

func (f *fakeService) List(_ context.Context, filter audit.Filter, limit, offset int) ([]audit.Log, error) {
	if f.fail {
		return nil, errors.New("connection reset")
	}
	f.lastFilter, f.lastLimit, f.lastOffset = filter, limit, offset
	return f.logs, nil
}

func newRouter(svc *fakeService, role string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := auth.UserContext{UserID: "u1", Email: "u@tbs.vn", RoleName: role}
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	NewHandler(svc).RegisterRoutes(r)
	return r
}

var sample = []audit.Log{
	{ID: "l2", Action: audit.ActionDelete, User: "admin@tbs.vn", EntityType: audit.EntityTask, EntityID: "T1", Timestamp: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
	{ID: "l1", Action: audit.ActionCreate, User: "admin@tbs.vn", EntityType: audit.EntityTask, EntityID: "T1", Details: "Mẫu, áo", Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
}

func TestListLogs(t *testing.T) {
	svc := &fakeService{logs: sample}
	rec := httptest.NewRecorder()
	newRouter(svc, auth.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/logs?action=delete&entityType=task&limit=900&offset=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastFilter.Action != audit.ActionDelete || svc.lastFilter.EntityType != "task" || svc.lastLimit != 500 || svc.lastOffset != 5 {
		t.Fatalf("unexpected query %+v %d %d", svc.lastFilter, svc.lastLimit, svc.lastOffset)
	}
	var body struct {
		Data logPage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Total != 2 || body.Data.Items[0].ID != "l2" || rec.Header().Get("X-Total-Count") != "2" {
		t.Fatalf("unexpected page %+v", body.Data)
	}
}

func TestListLogsRejectsMalformedPage(t *testing.T) {
	svc := &fakeService{logs: sample}
	rec := httptest.NewRecorder()
	newRouter(svc, auth.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/logs?limit=ten", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.lastLimit != 0 {
		t.Fatal("store must not be queried for a malformed page")
	}
}

func TestLogsRequireSettings(t *testing.T) {
	for _, role := range []string{auth.RoleManager, auth.RoleEmployee, auth.RoleViewer} {
		rec := httptest.NewRecorder()
		newRouter(&fakeService{}, role).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/logs", nil))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", role, rec.Code)
		}
	}
}

func TestListLogsStoreFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeService{fail: true}, auth.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/logs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestExportLogs(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeService{logs: sample}, auth.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/logs/export", nil))
	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 || records[2][6] != "Mẫu, áo" || records[1][1] != "2024-06-02T00:00:00Z" {
		t.Fatalf("unexpected export %v", records)
	}
}
