// Package attendance drives the per-employee-per-day punch state machine:
// NONE -> IN_PROGRESS -> COMPLETE. The check-then-write on one record is
// the engine's only critical section; it is serialized with a per-key
// mutex in-process and backed by the store's unique constraint and
// conditional update so concurrent duplicate camera triggers can never
// corrupt a record.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facegate/facegate/internal/storage"
)

var (
	// ErrEmployeeNotFound means the punch referenced an unknown employee.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrAlreadyCompleted means the day's record already has both punches.
	// No mutation happens on this path.
	ErrAlreadyCompleted = errors.New("attendance already completed for today")

	// ErrClockSkew means the client-reported timestamp is too far from the
	// server clock to be trusted.
	ErrClockSkew = errors.New("client timestamp deviates too far from server time")
)

// maxClientSkew bounds how far a client-supplied timestamp may drift from
// the server clock before the punch is rejected outright. Small skew is
// tolerated; the punch instant itself is always server-observed.
const maxClientSkew = 24 * time.Hour

// Punch types reported to callers.
const (
	PunchIn  = "in"
	PunchOut = "out"
)

// Service owns punch processing for all employees.
type Service struct {
	records   storage.AttendanceStore
	employees storage.EmployeeStore
	locks     *keyedMutex
	debounce  time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

func NewService(records storage.AttendanceStore, employees storage.EmployeeStore, debounce time.Duration) *Service {
	return &Service{
		records:   records,
		employees: employees,
		locks:     newKeyedMutex(),
		debounce:  debounce,
		now:       time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// PunchRequest is one attendance trigger, normally produced by an accepted
// face match.
type PunchRequest struct {
	EmployeeID      string
	ClientTimestamp time.Time // optional; zero means "not reported"
	TzOffsetMinutes int
	Method          string // storage.MethodFace or storage.MethodManual
}

// PunchResult describes the transition that happened.
type PunchResult struct {
	Type       string  // "in" or "out"
	Time       string  // local wall-clock HH:MM:SS
	DateKey    string  // local calendar date YYYY-MM-DD
	TotalHours float64 // set on punch-out
}

// Punch applies one attendance trigger. The first accepted punch of the
// local day opens the record, the second closes it and computes the
// elapsed hours, any further punch fails with ErrAlreadyCompleted.
//
// Replayed punch-ins inside the debounce window (network retries,
// duplicate camera triggers) echo the recorded punch instead of
// accidentally punching the employee out.
func (s *Service) Punch(ctx context.Context, req PunchRequest) (*PunchResult, error) {
	emp, err := s.employees.Get(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("looking up employee: %w", err)
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}

	instant := s.now().UTC()
	if !req.ClientTimestamp.IsZero() {
		drift := instant.Sub(req.ClientTimestamp.UTC())
		if drift < 0 {
			drift = -drift
		}
		if drift > maxClientSkew {
			return nil, ErrClockSkew
		}
	}

	// One derivation per request, reused for lookup and write.
	dateKey := DateKey(instant, req.TzOffsetMinutes)

	key := req.EmployeeID + "|" + dateKey
	s.locks.lock(key)
	defer s.locks.unlock(key)

	rec, err := s.records.Get(ctx, req.EmployeeID, dateKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("reading attendance record: %w", err)
	}

	if rec == nil {
		return s.punchIn(ctx, req, instant, dateKey)
	}
	if rec.PunchOutTime == nil {
		return s.punchOut(ctx, req, rec, instant, dateKey)
	}
	return nil, ErrAlreadyCompleted
}

func (s *Service) punchIn(ctx context.Context, req PunchRequest, instant time.Time, dateKey string) (*PunchResult, error) {
	rec := &storage.AttendanceRecord{
		EmployeeID:    req.EmployeeID,
		DateKey:       dateKey,
		PunchInTime:   instant,
		PunchInMethod: req.Method,
		Status:        storage.StatusInProgress,
	}

	err := s.records.Create(ctx, rec)
	if errors.Is(err, storage.ErrDuplicateAttendance) {
		// Lost a cross-process race: someone else opened the record
		// between our read and write. Re-read and continue from the
		// state they left behind.
		existing, getErr := s.records.Get(ctx, req.EmployeeID, dateKey)
		if getErr != nil || existing == nil {
			return nil, fmt.Errorf("re-reading record after duplicate insert: %w", getErr)
		}
		if existing.PunchOutTime != nil {
			return nil, ErrAlreadyCompleted
		}
		return s.punchOut(ctx, req, existing, instant, dateKey)
	}
	if err != nil {
		return nil, fmt.Errorf("creating attendance record: %w", err)
	}

	return &PunchResult{
		Type:    PunchIn,
		Time:    LocalClock(instant, req.TzOffsetMinutes),
		DateKey: dateKey,
	}, nil
}

func (s *Service) punchOut(ctx context.Context, req PunchRequest, rec *storage.AttendanceRecord, instant time.Time, dateKey string) (*PunchResult, error) {
	// A replay of the punch-in inside the debounce window is a retry,
	// not an intent to leave.
	if instant.Sub(rec.PunchInTime) < s.debounce {
		return &PunchResult{
			Type:    PunchIn,
			Time:    LocalClock(rec.PunchInTime, req.TzOffsetMinutes),
			DateKey: dateKey,
		}, nil
	}

	// Recomputed from the two instants, never accumulated. Clamped at
	// zero to guard against clock adjustments between punches.
	totalHours := instant.Sub(rec.PunchInTime).Hours()
	if totalHours < 0 {
		totalHours = 0
	}

	updated, err := s.records.CompletePunchOut(ctx, req.EmployeeID, dateKey, storage.PunchOut{
		Time:       instant,
		Method:     req.Method,
		TotalHours: totalHours,
	})
	if err != nil {
		return nil, fmt.Errorf("completing punch-out: %w", err)
	}
	if !updated {
		// Another process closed the record after our read.
		return nil, ErrAlreadyCompleted
	}

	return &PunchResult{
		Type:       PunchOut,
		Time:       LocalClock(instant, req.TzOffsetMinutes),
		DateKey:    dateKey,
		TotalHours: totalHours,
	}, nil
}

// Record returns the attendance record for one employee and local date.
func (s *Service) Record(ctx context.Context, employeeID, dateKey string) (*storage.AttendanceRecord, error) {
	rec, err := s.records.Get(ctx, employeeID, dateKey)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, storage.ErrNotFound
	}
	return rec, nil
}

// History lists an employee's most recent attendance records.
func (s *Service) History(ctx context.Context, employeeID string, limit int) ([]storage.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	return s.records.ListByEmployee(ctx, employeeID, limit)
}
