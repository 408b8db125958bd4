package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/facegate/facegate/internal/storage"
	"github.com/lib/pq"
)

// AttendanceRepository provides PostgreSQL-backed punch storage. The
// (employee_id, date_key) unique constraint and the conditional punch-out
// update are what make concurrent punches safe across processes.
type AttendanceRepository struct {
	pool *Pool
}

func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `id, employee_id, date_key, punch_in_time, punch_in_method,
	punch_out_time, punch_out_method, total_hours, status, created_at, updated_at`

func (r *AttendanceRepository) Get(ctx context.Context, employeeID, dateKey string) (*storage.AttendanceRecord, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance_records WHERE employee_id = $1 AND date_key = $2"

	rec, err := scanAttendance(r.pool.QueryRow(ctx, query, employeeID, dateKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance record: %w", err)
	}
	return rec, nil
}

func (r *AttendanceRepository) Create(ctx context.Context, rec *storage.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (employee_id, date_key, punch_in_time, punch_in_method, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		rec.EmployeeID, rec.DateKey, rec.PunchInTime, rec.PunchInMethod, rec.Status).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return storage.ErrDuplicateAttendance
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// CompletePunchOut transitions the day's record to complete. The
// punch_out_time IS NULL guard makes it a no-op when another writer got
// there first; the caller sees updated == false.
func (r *AttendanceRepository) CompletePunchOut(ctx context.Context, employeeID, dateKey string, out storage.PunchOut) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE attendance_records
		SET punch_out_time = $3,
		    punch_out_method = $4,
		    total_hours = $5,
		    status = $6,
		    updated_at = NOW()
		WHERE employee_id = $1 AND date_key = $2 AND punch_out_time IS NULL
	`, employeeID, dateKey, out.Time, out.Method, out.TotalHours, storage.StatusComplete)
	if err != nil {
		return false, fmt.Errorf("update attendance record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *AttendanceRepository) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]storage.AttendanceRecord, error) {
	query := "SELECT " + attendanceColumns + ` FROM attendance_records
		WHERE employee_id = $1
		ORDER BY date_key DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, employeeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []storage.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row rowScanner) (*storage.AttendanceRecord, error) {
	var rec storage.AttendanceRecord
	var punchOut sql.NullTime

	err := row.Scan(
		&rec.ID,
		&rec.EmployeeID,
		&rec.DateKey,
		&rec.PunchInTime,
		&rec.PunchInMethod,
		&punchOut,
		&rec.PunchOutMethod,
		&rec.TotalHours,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if punchOut.Valid {
		t := punchOut.Time
		rec.PunchOutTime = &t
	}
	return &rec, nil
}

// Verify interface compliance
var _ storage.AttendanceStore = (*AttendanceRepository)(nil)
