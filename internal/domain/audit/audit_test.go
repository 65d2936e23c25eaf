package audit

import (
	"context"
	"strings"
	"testing"
)

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{})
	if len(args) != 0 || strings.Contains(query, "$1") {
		t.Fatalf("unfiltered query must have no args: %s %v", query, args)
	}

	query, args = buildBaseQuery("SELECT COUNT(1)", Filter{Action: ActionDelete, User: "admin@tbs.vn"})
	if len(args) != 2 || args[0] != ActionDelete || args[1] != "admin@tbs.vn" {
		t.Fatalf("unexpected args %v", args)
	}
	if !strings.Contains(query, "action = $1") || !strings.Contains(query, "user_email = $2") {
		t.Fatalf("unexpected query %s", query)
	}
}

func TestTraceOnNilService(t *testing.T) {
	var s *Service
	s.Trace(context.Background(), Entry{Action: ActionCreate})
}
