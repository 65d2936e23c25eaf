package tasks

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"tbscrm/internal/platform/db"
)

const dayLayout = "2006-01-02"

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

const taskColumns = `
    id, title, assignee_id, COALESCE(department_id, ''), status, due_date,
    COALESCE(description, ''), attachments, COALESCE(feedback, ''), created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	var status string
	var due *time.Time
	err := row.Scan(&t.ID, &t.Title, &t.AssigneeID, &t.DepartmentID, &status, &due,
		&t.Description, &t.Attachments, &t.Feedback, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	if due != nil {
		t.DueDate = due.Format(dayLayout)
	}
	if t.Attachments == nil {
		t.Attachments = []string{}
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]Task, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY due_date ASC NULLS LAST, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.DB.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert writes the full record, replacing any row with the same id.
func (s *Store) Upsert(ctx context.Context, task Task) (Task, error) {
	attachments := task.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return scanTask(s.DB.QueryRow(ctx, `
    INSERT INTO tasks (id, title, assignee_id, department_id, status, due_date, description, attachments, feedback)
    VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''))
    ON CONFLICT (id) DO UPDATE SET
      title = EXCLUDED.title,
      assignee_id = EXCLUDED.assignee_id,
      department_id = EXCLUDED.department_id,
      status = EXCLUDED.status,
      due_date = EXCLUDED.due_date,
      description = EXCLUDED.description,
      attachments = EXCLUDED.attachments,
      feedback = EXCLUDED.feedback,
      updated_at = now()
    RETURNING `+taskColumns,
		task.ID, task.Title, task.AssigneeID, task.DepartmentID, string(task.Status), dueArg(task.DueDate),
		task.Description, attachments, task.Feedback,
	))
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) (Task, error) {
	t, err := scanTask(s.DB.QueryRow(ctx, `
    UPDATE tasks SET status = $1, updated_at = now()
    WHERE id = $2
    RETURNING `+taskColumns, string(status), id))
	if db.IsNoRows(err) {
		return Task{}, ErrTaskNotFound
	}
	return t, err
}

// AppendAttachment adds url to the end of the attachment list in one statement
// so concurrent uploads do not overwrite each other.
func (s *Store) AppendAttachment(ctx context.Context, id, url string) (Task, error) {
	t, err := scanTask(s.DB.QueryRow(ctx, `
    UPDATE tasks SET attachments = array_append(attachments, $1), updated_at = now()
    WHERE id = $2
    RETURNING `+taskColumns, url, id))
	if db.IsNoRows(err) {
		return Task{}, ErrTaskNotFound
	}
	return t, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func dueArg(value string) any {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(dayLayout, value)
	if err != nil {
		return nil
	}
	return parsed
}
