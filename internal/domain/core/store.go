package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	cryptoutil "tbscrm/internal/platform/crypto"
	"tbscrm/internal/platform/db"
)

const dayLayout = "2006-01-02"

type Store struct {
	DB     db.Querier
	Crypto *cryptoutil.Service
}

func NewStore(q db.Querier, crypto *cryptoutil.Service) *Store {
	return &Store{DB: q, Crypto: crypto}
}

const employeeColumns = `
    id, code, full_name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(username, ''),
    dob, COALESCE(gender, ''), COALESCE(department_id, ''), COALESCE(position, ''),
    status, COALESCE(avatar_url, ''), start_date, COALESCE(contract_type, ''),
    COALESCE(notes, ''), salary, salary_enc, work_days, created_at, updated_at`

func (s *Store) scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	var dob, start *time.Time
	var salaryPlain, salaryEnc []byte
	err := row.Scan(
		&emp.ID, &emp.Code, &emp.FullName, &emp.Phone, &emp.Email, &emp.Username,
		&dob, &emp.Gender, &emp.DepartmentID, &emp.Position,
		&emp.Status, &emp.AvatarURL, &start, &emp.ContractType,
		&emp.Notes, &salaryPlain, &salaryEnc, &emp.WorkDays, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return Employee{}, err
	}
	emp.DOB = formatDay(dob)
	emp.StartDate = formatDay(start)
	emp.Salary = s.readSalary(emp.ID, salaryEnc, salaryPlain)
	return emp, nil
}

func (s *Store) readSalary(employeeID string, sealed, plain []byte) SalaryConfig {
	var out SalaryConfig
	if len(sealed) > 0 && s.Crypto.Configured() {
		err := s.Crypto.DecryptJSON(sealed, &out)
		if err == nil {
			return out
		}
		slog.Warn("salary decrypt failed", "employeeId", employeeID, "err", err)
	}
	if len(plain) > 0 {
		if err := json.Unmarshal(plain, &out); err != nil {
			slog.Warn("salary decode failed", "employeeId", employeeID, "err", err)
		}
	}
	return out
}

// salaryArgs returns the plain and sealed column values for a salary config.
// Only one of them is set.
func (s *Store) salaryArgs(cfg SalaryConfig) (any, any, error) {
	if s.Crypto.Configured() {
		sealed, err := s.Crypto.EncryptJSON(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("encrypt salary: %w", err)
		}
		return nil, sealed, nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, nil, err
	}
	return string(raw), nil, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY full_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	emp, err := s.scanEmployee(s.DB.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// UpsertEmployee writes the full record, replacing any row with the same id.
func (s *Store) UpsertEmployee(ctx context.Context, emp Employee) (Employee, error) {
	plain, sealed, err := s.salaryArgs(emp.Salary)
	if err != nil {
		return Employee{}, err
	}
	row := s.DB.QueryRow(ctx, `
    INSERT INTO employees (
      id, code, full_name, phone, email, username, dob, gender, department_id, position,
      status, avatar_url, start_date, contract_type, notes, salary, salary_enc, work_days
    ) VALUES (
      $1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''),
      $11, NULLIF($12, ''), $13, NULLIF($14, ''), NULLIF($15, ''), $16::jsonb, $17, $18
    )
    ON CONFLICT (id) DO UPDATE SET
      code = EXCLUDED.code,
      full_name = EXCLUDED.full_name,
      phone = EXCLUDED.phone,
      email = EXCLUDED.email,
      username = EXCLUDED.username,
      dob = EXCLUDED.dob,
      gender = EXCLUDED.gender,
      department_id = EXCLUDED.department_id,
      position = EXCLUDED.position,
      status = EXCLUDED.status,
      avatar_url = EXCLUDED.avatar_url,
      start_date = EXCLUDED.start_date,
      contract_type = EXCLUDED.contract_type,
      notes = EXCLUDED.notes,
      salary = EXCLUDED.salary,
      salary_enc = EXCLUDED.salary_enc,
      work_days = EXCLUDED.work_days,
      updated_at = now()
    RETURNING `+employeeColumns,
		emp.ID, emp.Code, emp.FullName, emp.Phone, emp.Email, emp.Username, dayArg(emp.DOB), emp.Gender, emp.DepartmentID, emp.Position,
		emp.Status, emp.AvatarURL, dayArg(emp.StartDate), emp.ContractType, emp.Notes, plain, sealed, emp.WorkDays,
	)
	saved, err := s.scanEmployee(row)
	if db.IsUniqueViolation(err) {
		return Employee{}, ErrDuplicateCode
	}
	return saved, err
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE employees SET avatar_url = $1, updated_at = now() WHERE id = $2", avatarURL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(manager_id, ''), COALESCE(description, ''), created_at
    FROM departments
    ORDER BY created_at, id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		var dep Department
		if err := rows.Scan(&dep.ID, &dep.Name, &dep.ManagerID, &dep.Description, &dep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, id string) (*Department, error) {
	var dep Department
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(manager_id, ''), COALESCE(description, ''), created_at
    FROM departments WHERE id = $1
  `, id).Scan(&dep.ID, &dep.Name, &dep.ManagerID, &dep.Description, &dep.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dep, nil
}

func (s *Store) UpsertDepartment(ctx context.Context, dep Department) (Department, error) {
	var out Department
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (id, name, manager_id, description)
    VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
    ON CONFLICT (id) DO UPDATE SET
      name = EXCLUDED.name,
      manager_id = EXCLUDED.manager_id,
      description = EXCLUDED.description
    RETURNING id, name, COALESCE(manager_id, ''), COALESCE(description, ''), created_at
  `, dep.ID, dep.Name, dep.ManagerID, dep.Description).Scan(&out.ID, &out.Name, &out.ManagerID, &out.Description, &out.CreatedAt)
	return out, err
}

// DeleteDepartment removes a department only while no employee references it.
// The check and the delete run as one statement.
func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM departments d
    WHERE d.id = $1
      AND NOT EXISTS (SELECT 1 FROM employees e WHERE e.department_id = d.id)
  `, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	inUse, err := s.DepartmentHasEmployees(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrDepartmentInUse
	}
	return ErrDepartmentNotFound
}

func (s *Store) DepartmentHasEmployees(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM employees WHERE department_id = $1)", id).Scan(&exists)
	return exists, err
}

func dayArg(value string) any {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(dayLayout, value)
	if err != nil {
		return nil
	}
	return parsed
}

func formatDay(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dayLayout)
}
