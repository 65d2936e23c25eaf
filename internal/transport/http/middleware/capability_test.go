package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tbscrm/internal/domain/auth"
)

func TestRequireCapability(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	cases := []struct {
		name   string
		role   string
		anon   bool
		perms  []string
		status int
	}{
		{"anonymous", "", true, []string{auth.PermDashboardView}, http.StatusUnauthorized},
		{"admin settings", auth.RoleAdmin, false, []string{auth.PermSettings}, http.StatusNoContent},
		{"manager settings", auth.RoleManager, false, []string{auth.PermSettings}, http.StatusForbidden},
		{"manager edits employees", auth.RoleManager, false, []string{auth.PermEmployeesEdit}, http.StatusNoContent},
		{"viewer edits tasks", auth.RoleViewer, false, []string{auth.PermTasksEdit}, http.StatusForbidden},
		{"employee department tasks", auth.RoleEmployee, false, []string{auth.PermTasksEdit, auth.PermDepartmentTasks}, http.StatusNoContent},
		{"unknown role is viewer", "INTERN", false, []string{auth.PermEmployeesView}, http.StatusForbidden},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if !tc.anon {
				req = req.WithContext(WithUser(context.Background(), auth.UserContext{UserID: "u1", RoleName: tc.role}))
			}
			rec := httptest.NewRecorder()
			RequireCapability(tc.perms...)(ok).ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}
