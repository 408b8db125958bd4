package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/facegate/facegate/internal/storage"
	"github.com/lib/pq"
)

// EmployeeRepository provides PostgreSQL-backed employee storage.
type EmployeeRepository struct {
	pool *Pool
}

func NewEmployeeRepository(pool *Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

const employeeColumns = "id, code, name, active, enrolled, created_at"

func (r *EmployeeRepository) Create(ctx context.Context, emp *storage.Employee) error {
	query := `
		INSERT INTO employees (id, code, name, active, enrolled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, emp.ID, emp.Code, emp.Name, emp.Active, emp.Enrolled).
		Scan(&emp.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("employee %s: %w", emp.Code, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

func (r *EmployeeRepository) Get(ctx context.Context, id string) (*storage.Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE id = $1"
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *EmployeeRepository) GetByCode(ctx context.Context, code string) (*storage.Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE code = $1"
	return r.scanOne(r.pool.QueryRow(ctx, query, code))
}

func (r *EmployeeRepository) List(ctx context.Context, activeOnly bool) ([]storage.Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees"
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY code"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []storage.Employee
	for rows.Next() {
		var emp storage.Employee
		if err := rows.Scan(&emp.ID, &emp.Code, &emp.Name, &emp.Active, &emp.Enrolled, &emp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

func (r *EmployeeRepository) SetEnrolled(ctx context.Context, id string, enrolled bool) error {
	result, err := r.pool.Exec(ctx, "UPDATE employees SET enrolled = $2 WHERE id = $1", id, enrolled)
	if err != nil {
		return fmt.Errorf("update employee enrolled flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("employee %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (r *EmployeeRepository) scanOne(row *sql.Row) (*storage.Employee, error) {
	var emp storage.Employee
	err := row.Scan(&emp.ID, &emp.Code, &emp.Name, &emp.Active, &emp.Enrolled, &emp.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return &emp, nil
}

// Verify interface compliance
var _ storage.EmployeeStore = (*EmployeeRepository)(nil)
