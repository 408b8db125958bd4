// Package mock provides in-memory implementations of the storage
// interfaces for testing. The attendance mock honors the same atomicity
// semantics as the PostgreSQL implementation: unique (employee, dateKey)
// inserts and conditional punch-out updates.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/facegate/facegate/internal/storage"
)

// EmployeeStore is an in-memory storage.EmployeeStore.
type EmployeeStore struct {
	mu        sync.RWMutex
	employees map[string]storage.Employee

	// Error injection
	CreateError error
	GetError    error
	ListError   error
}

func NewEmployeeStore() *EmployeeStore {
	return &EmployeeStore{employees: make(map[string]storage.Employee)}
}

func (m *EmployeeStore) Create(ctx context.Context, emp *storage.Employee) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.employees[emp.ID]; exists {
		return storage.ErrAlreadyExists
	}
	for _, existing := range m.employees {
		if existing.Code == emp.Code {
			return storage.ErrAlreadyExists
		}
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now()
	}
	m.employees[emp.ID] = *emp
	return nil
}

func (m *EmployeeStore) Get(ctx context.Context, id string) (*storage.Employee, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &emp, nil
}

func (m *EmployeeStore) GetByCode(ctx context.Context, code string) (*storage.Employee, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, emp := range m.employees {
		if emp.Code == code {
			return &emp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *EmployeeStore) List(ctx context.Context, activeOnly bool) ([]storage.Employee, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]storage.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		if activeOnly && !emp.Active {
			continue
		}
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *EmployeeStore) SetEnrolled(ctx context.Context, id string, enrolled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return storage.ErrNotFound
	}
	emp.Enrolled = enrolled
	m.employees[id] = emp
	return nil
}

// DescriptorStore is an in-memory storage.DescriptorStore.
type DescriptorStore struct {
	mu          sync.RWMutex
	nextID      int64
	descriptors []storage.Descriptor
	employees   *EmployeeStore // for active scoping in ListActive, optional

	AppendError error
	ListError   error
}

func NewDescriptorStore(employees *EmployeeStore) *DescriptorStore {
	return &DescriptorStore{employees: employees}
}

func (m *DescriptorStore) Append(ctx context.Context, d *storage.Descriptor, maxPerEmployee int) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	d.ID = m.nextID
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	m.descriptors = append(m.descriptors, *d)

	if maxPerEmployee <= 0 {
		return nil
	}

	// Evict the employee's oldest rows beyond the cap.
	var owned []int
	for i, existing := range m.descriptors {
		if existing.EmployeeID == d.EmployeeID {
			owned = append(owned, i)
		}
	}
	if len(owned) <= maxPerEmployee {
		return nil
	}
	sort.Slice(owned, func(i, j int) bool {
		return m.descriptors[owned[i]].CreatedAt.Before(m.descriptors[owned[j]].CreatedAt)
	})
	evict := make(map[int]bool, len(owned)-maxPerEmployee)
	for _, idx := range owned[:len(owned)-maxPerEmployee] {
		evict[idx] = true
	}
	kept := m.descriptors[:0]
	for i, existing := range m.descriptors {
		if !evict[i] {
			kept = append(kept, existing)
		}
	}
	m.descriptors = kept
	return nil
}

func (m *DescriptorStore) ListActive(ctx context.Context) ([]storage.Descriptor, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.Descriptor, 0, len(m.descriptors))
	for _, d := range m.descriptors {
		if m.employees != nil {
			emp, err := m.employees.Get(ctx, d.EmployeeID)
			if err != nil || !emp.Active {
				continue
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *DescriptorStore) ListByEmployee(ctx context.Context, employeeID string) ([]storage.Descriptor, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []storage.Descriptor
	for _, d := range m.descriptors {
		if d.EmployeeID == employeeID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *DescriptorStore) CountByEmployee(ctx context.Context, employeeID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, d := range m.descriptors {
		if d.EmployeeID == employeeID {
			count++
		}
	}
	return count, nil
}

// AttendanceStore is an in-memory storage.AttendanceStore.
type AttendanceStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*storage.AttendanceRecord // key: employeeID|dateKey

	GetError    error
	CreateError error
	UpdateError error
}

func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{records: make(map[string]*storage.AttendanceRecord)}
}

func recordKey(employeeID, dateKey string) string {
	return employeeID + "|" + dateKey
}

func (m *AttendanceStore) Get(ctx context.Context, employeeID, dateKey string) (*storage.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordKey(employeeID, dateKey)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *AttendanceStore) Create(ctx context.Context, rec *storage.AttendanceRecord) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey(rec.EmployeeID, rec.DateKey)
	if _, exists := m.records[key]; exists {
		return storage.ErrDuplicateAttendance
	}

	m.nextID++
	rec.ID = m.nextID
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	m.records[key] = &cp
	return nil
}

func (m *AttendanceStore) CompletePunchOut(ctx context.Context, employeeID, dateKey string, out storage.PunchOut) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[recordKey(employeeID, dateKey)]
	if !ok || rec.PunchOutTime != nil {
		return false, nil
	}

	t := out.Time
	rec.PunchOutTime = &t
	rec.PunchOutMethod = out.Method
	rec.TotalHours = out.TotalHours
	rec.Status = storage.StatusComplete
	rec.UpdatedAt = time.Now()
	return true, nil
}

func (m *AttendanceStore) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]storage.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []storage.AttendanceRecord
	for _, rec := range m.records {
		if rec.EmployeeID == employeeID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey > out[j].DateKey })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports the number of stored records, for race assertions in tests.
func (m *AttendanceStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// FeedbackStore is an in-memory storage.FeedbackStore.
type FeedbackStore struct {
	mu      sync.Mutex
	entries []storage.FeedbackRecord

	AppendError error
}

func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{}
}

func (m *FeedbackStore) Append(ctx context.Context, rec *storage.FeedbackRecord) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, *rec)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *FeedbackStore) Entries() []storage.FeedbackRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.FeedbackRecord, len(m.entries))
	copy(out, m.entries)
	return out
}
