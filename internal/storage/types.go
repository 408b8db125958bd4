// Package storage defines the persisted domain types and the store
// interfaces the engine runs against. PostgreSQL implementations live in
// the postgres subpackage, in-memory ones in mock.
package storage

import "time"

// Punch methods recorded on attendance transitions.
const (
	MethodFace   = "face"
	MethodManual = "manual"
)

// Attendance record status values.
const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
)

// Feedback action tags describing the context of a match decision.
const (
	ActionEnrollment         = "enrollment"
	ActionRecognition        = "recognition"
	ActionConfirmRecognition = "confirm-recognition"
	ActionFeedback           = "feedback"
)

// Employee is the identity record the gallery is scoped to.
type Employee struct {
	ID        string
	Code      string // human-facing employee code, unique
	Name      string
	Active    bool
	Enrolled  bool // derived: has at least one descriptor
	CreatedAt time.Time
}

// Descriptor is one enrolled face view of an employee. Vectors are
// immutable once written; re-enrollment appends a new row.
type Descriptor struct {
	ID         int64
	EmployeeID string
	Vector     []float32
	Version    string // extractor version tag; vectors across versions are not comparable
	SourceHash string // SHA-256 of the source image, for provenance and retry dedup
	CreatedAt  time.Time
}

// AttendanceRecord tracks one employee's punch lifecycle for one dateKey.
// At most one record exists per (EmployeeID, DateKey).
type AttendanceRecord struct {
	ID             int64
	EmployeeID     string
	DateKey        string // local calendar date, YYYY-MM-DD
	PunchInTime    time.Time
	PunchInMethod  string
	PunchOutTime   *time.Time
	PunchOutMethod string
	TotalHours     float64
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FeedbackRecord is an append-only log entry for one match decision.
type FeedbackRecord struct {
	ID          string
	EmployeeID  string  // the actual employee
	PredictedID string  // the predicted employee, may differ or be empty
	Confidence  float64 // 0 when not applicable
	Correct     *bool   // nil means unknown
	Action      string
	UserAgent   string
	Metadata    map[string]any
	CreatedAt   time.Time
}
