package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tbscrm/internal/platform/db"
)

const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"
)

const (
	EntityEmployee   = "employee"
	EntityTask       = "task"
	EntityDepartment = "department"
	EntitySession    = "session"
	EntitySettings   = "settings"
	EntityAccount    = "account"
)

type Log struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	User       string    `json:"user"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Details    string    `json:"details"`
	RequestID  string    `json:"requestId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Entry struct {
	Action     string
	User       string
	EntityType string
	EntityID   string
	Details    string
	RequestID  string
}

type Filter struct {
	Action     string
	EntityType string
	User       string
}

type Service struct {
	DB db.Querier
}

func New(q db.Querier) *Service {
	return &Service{DB: q}
}

func (s *Service) Record(ctx context.Context, e Entry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_logs (id, action, user_email, entity_type, entity_id, details, request_id)
    VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''))
  `, uuid.NewString(), e.Action, e.User, e.EntityType, e.EntityID, e.Details, e.RequestID)
	return err
}

// Trace records an entry and only logs a failure. Audit writes never fail the
// operation being audited.
func (s *Service) Trace(ctx context.Context, e Entry) {
	if s == nil {
		return
	}
	if err := s.Record(ctx, e); err != nil {
		slog.Warn("audit write failed", "action", e.Action, "entityType", e.EntityType, "entityId", e.EntityID, "err", err)
	}
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Log, error) {
	query, args := buildBaseQuery(`SELECT id, action, user_email, COALESCE(entity_type, ''), COALESCE(entity_id, ''),
    details, COALESCE(request_id, ''), created_at`, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Log{}
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.Action, &l.User, &l.EntityType, &l.EntityID, &l.Details, &l.RequestID, &l.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_logs WHERE 1=1"
	args := []any{}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", len(args)+1)
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", len(args)+1)
		args = append(args, filter.EntityType)
	}
	if filter.User != "" {
		query += fmt.Sprintf(" AND user_email = $%d", len(args)+1)
		args = append(args, filter.User)
	}
	return query, args
}
