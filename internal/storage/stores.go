package storage

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateAttendance is returned by AttendanceStore.Create when a record
// for the same (employee, dateKey) already exists. Backed by the unique
// constraint in PostgreSQL so two concurrent first punches cannot both insert.
var ErrDuplicateAttendance = errors.New("attendance record already exists for this date")

// ErrNotFound is returned by lookups for missing rows.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a unique column collides, e.g. creating
// an employee with a taken code.
var ErrAlreadyExists = errors.New("already exists")

// EmployeeStore manages identity records. Get and GetByCode return
// ErrNotFound for missing employees.
type EmployeeStore interface {
	// Create returns ErrAlreadyExists when the id or code is taken.
	Create(ctx context.Context, emp *Employee) error
	Get(ctx context.Context, id string) (*Employee, error)
	GetByCode(ctx context.Context, code string) (*Employee, error)
	List(ctx context.Context, activeOnly bool) ([]Employee, error)
	SetEnrolled(ctx context.Context, id string, enrolled bool) error
}

// DescriptorStore manages the enrolled descriptor gallery.
type DescriptorStore interface {
	// Append inserts a descriptor and evicts the employee's oldest rows
	// beyond maxPerEmployee, atomically.
	Append(ctx context.Context, d *Descriptor, maxPerEmployee int) error

	// ListActive returns the gallery snapshot: every descriptor belonging
	// to an active employee, ordered by enrollment time ascending so the
	// matcher's earliest-enrolled tie-break is deterministic.
	ListActive(ctx context.Context) ([]Descriptor, error)

	ListByEmployee(ctx context.Context, employeeID string) ([]Descriptor, error)
	CountByEmployee(ctx context.Context, employeeID string) (int, error)
}

// AttendanceStore persists punch state. The check-then-write race is closed
// by Create's unique-violation mapping and CompletePunchOut's conditional
// update; callers additionally serialize per key in-process.
type AttendanceStore interface {
	// Get returns (nil, nil) when no record exists for the key.
	Get(ctx context.Context, employeeID, dateKey string) (*AttendanceRecord, error)

	// Create inserts a fresh IN_PROGRESS record. Returns
	// ErrDuplicateAttendance when the key is already taken.
	Create(ctx context.Context, rec *AttendanceRecord) error

	// CompletePunchOut sets the punch-out fields only if the record exists
	// and has no punch-out yet. Returns false when no row matched.
	CompletePunchOut(ctx context.Context, employeeID, dateKey string, rec PunchOut) (bool, error)

	ListByEmployee(ctx context.Context, employeeID string, limit int) ([]AttendanceRecord, error)
}

// PunchOut carries the fields written on the IN_PROGRESS -> COMPLETE transition.
type PunchOut struct {
	Time       time.Time
	Method     string
	TotalHours float64
}

// FeedbackStore is append-only.
type FeedbackStore interface {
	Append(ctx context.Context, rec *FeedbackRecord) error
}
