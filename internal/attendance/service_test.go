package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facegate/facegate/internal/storage"
	"github.com/facegate/facegate/internal/storage/mock"
)

const testEmployee = "emp-1"

func newTestService(t *testing.T) (*Service, *mock.AttendanceStore, *mock.EmployeeStore) {
	t.Helper()

	employees := mock.NewEmployeeStore()
	if err := employees.Create(context.Background(), &storage.Employee{
		ID:     testEmployee,
		Code:   "E001",
		Name:   "Asha Rao",
		Active: true,
	}); err != nil {
		t.Fatalf("seeding employee: %v", err)
	}

	records := mock.NewAttendanceStore()
	return NewService(records, employees, 10*time.Second), records, employees
}

// fixedClock lets tests walk the service clock forward deterministically.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPunchLifecycle(t *testing.T) {
	svc, records, _ := newTestService(t)
	clock := &fixedClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.Now

	req := PunchRequest{EmployeeID: testEmployee, TzOffsetMinutes: 0, Method: storage.MethodFace}

	// First punch opens the day.
	res, err := svc.Punch(context.Background(), req)
	if err != nil {
		t.Fatalf("first punch failed: %v", err)
	}
	if res.Type != PunchIn {
		t.Fatalf("expected punch-in, got %q", res.Type)
	}
	if res.DateKey != "2024-03-10" {
		t.Errorf("expected dateKey 2024-03-10, got %q", res.DateKey)
	}

	// Second punch, 8h30m later, closes it.
	clock.Advance(8*time.Hour + 30*time.Minute)
	res, err = svc.Punch(context.Background(), req)
	if err != nil {
		t.Fatalf("second punch failed: %v", err)
	}
	if res.Type != PunchOut {
		t.Fatalf("expected punch-out, got %q", res.Type)
	}
	if res.TotalHours != 8.5 {
		t.Errorf("expected 8.5 total hours, got %v", res.TotalHours)
	}

	rec, err := records.Get(context.Background(), testEmployee, "2024-03-10")
	if err != nil || rec == nil {
		t.Fatalf("record should exist: %v", err)
	}
	if rec.Status != storage.StatusComplete {
		t.Errorf("expected COMPLETE status, got %q", rec.Status)
	}

	// Third punch must be rejected without mutation.
	clock.Advance(time.Hour)
	_, err = svc.Punch(context.Background(), req)
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	after, _ := records.Get(context.Background(), testEmployee, "2024-03-10")
	if after.TotalHours != rec.TotalHours || !after.PunchOutTime.Equal(*rec.PunchOutTime) {
		t.Error("rejected third punch must not mutate the record")
	}
}

func TestPunchUnknownEmployee(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Punch(context.Background(), PunchRequest{EmployeeID: "nobody", Method: storage.MethodFace})
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Errorf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestPunchDebounceEchoesPunchIn(t *testing.T) {
	svc, records, _ := newTestService(t)
	clock := &fixedClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.Now

	req := PunchRequest{EmployeeID: testEmployee, Method: storage.MethodFace}

	first, err := svc.Punch(context.Background(), req)
	if err != nil {
		t.Fatalf("first punch failed: %v", err)
	}

	// A retry 3 seconds later is the same punch, not a punch-out.
	clock.Advance(3 * time.Second)
	replay, err := svc.Punch(context.Background(), req)
	if err != nil {
		t.Fatalf("replayed punch failed: %v", err)
	}
	if replay.Type != PunchIn {
		t.Errorf("replay inside debounce window must echo punch-in, got %q", replay.Type)
	}
	if replay.Time != first.Time {
		t.Errorf("replay must echo the original punch time, got %q want %q", replay.Time, first.Time)
	}

	rec, _ := records.Get(context.Background(), testEmployee, "2024-03-10")
	if rec.PunchOutTime != nil {
		t.Error("debounced replay must not close the record")
	}
}

func TestPunchClockSkewRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	clock := &fixedClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.Now

	_, err := svc.Punch(context.Background(), PunchRequest{
		EmployeeID:      testEmployee,
		ClientTimestamp: clock.Now().Add(-48 * time.Hour),
		Method:          storage.MethodFace,
	})
	if !errors.Is(err, ErrClockSkew) {
		t.Errorf("expected ErrClockSkew for a 48h-stale client timestamp, got %v", err)
	}
}

func TestPunchMidnightStraddleUsesOneKey(t *testing.T) {
	svc, records, _ := newTestService(t)
	// 20:30 UTC at UTC+5:30 is 02:00 the next local day.
	clock := &fixedClock{now: time.Date(2024, 3, 10, 20, 30, 0, 0, time.UTC)}
	svc.now = clock.Now

	res, err := svc.Punch(context.Background(), PunchRequest{
		EmployeeID:      testEmployee,
		TzOffsetMinutes: 330,
		Method:          storage.MethodFace,
	})
	if err != nil {
		t.Fatalf("punch failed: %v", err)
	}
	if res.DateKey != "2024-03-11" {
		t.Fatalf("expected local date 2024-03-11, got %q", res.DateKey)
	}

	rec, err := records.Get(context.Background(), testEmployee, "2024-03-11")
	if err != nil || rec == nil {
		t.Fatal("record must be written under the same key that was read")
	}
}

func TestConcurrentFirstPunches(t *testing.T) {
	svc, records, _ := newTestService(t)
	clock := &fixedClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.Now

	const n = 20
	var wg sync.WaitGroup
	results := make([]*PunchResult, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Punch(context.Background(), PunchRequest{
				EmployeeID: testEmployee,
				Method:     storage.MethodFace,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("punch %d failed: %v", i, errs[i])
		}
		if results[i].Type != PunchIn {
			t.Errorf("punch %d: simultaneous first punches must all report the single punch-in, got %q", i, results[i].Type)
		}
	}

	if records.Len() != 1 {
		t.Fatalf("expected exactly one attendance record, got %d", records.Len())
	}
	rec, _ := records.Get(context.Background(), testEmployee, "2024-03-10")
	if rec.Status != storage.StatusInProgress {
		t.Errorf("expected a single IN_PROGRESS record, got status %q", rec.Status)
	}
	if rec.PunchOutTime != nil {
		t.Error("no concurrent first punch may have closed the record")
	}
}

func TestConcurrentMixedPunchesCompleteOnce(t *testing.T) {
	svc, records, _ := newTestService(t)
	clock := &fixedClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.Now

	req := PunchRequest{EmployeeID: testEmployee, Method: storage.MethodFace}
	if _, err := svc.Punch(context.Background(), req); err != nil {
		t.Fatalf("seed punch-in failed: %v", err)
	}
	clock.Advance(9 * time.Hour)

	const n = 10
	var wg sync.WaitGroup
	outs := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Punch(context.Background(), req)
			if res != nil {
				outs[i] = res.Type
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	completed := 0
	rejected := 0
	for i := 0; i < n; i++ {
		switch {
		case errs[i] == nil && outs[i] == PunchOut:
			completed++
		case errors.Is(errs[i], ErrAlreadyCompleted):
			rejected++
		default:
			t.Errorf("punch %d: unexpected outcome type=%q err=%v", i, outs[i], errs[i])
		}
	}

	if completed != 1 {
		t.Errorf("exactly one concurrent punch may complete the day, got %d", completed)
	}
	if rejected != n-1 {
		t.Errorf("expected %d rejections, got %d", n-1, rejected)
	}

	rec, _ := records.Get(context.Background(), testEmployee, "2024-03-10")
	if rec.TotalHours != 9 {
		t.Errorf("expected 9 total hours, got %v", rec.TotalHours)
	}
}

func TestPunchWithBackwardsClockNeverGoesNegative(t *testing.T) {
	svc, records, _ := newTestService(t)
	clock := &fixedClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc.now = clock.Now

	req := PunchRequest{EmployeeID: testEmployee, Method: storage.MethodFace}
	if _, err := svc.Punch(context.Background(), req); err != nil {
		t.Fatalf("punch-in failed: %v", err)
	}

	// Clock adjusted backwards: the punch instant now precedes the
	// recorded punch-in. Negative elapsed falls inside the debounce
	// window, so the service echoes the punch-in instead of writing a
	// negative-duration punch-out.
	clock.Advance(-time.Minute)

	res, err := svc.Punch(context.Background(), req)
	if err != nil {
		t.Fatalf("punch failed: %v", err)
	}
	if res.Type != PunchIn {
		t.Errorf("backwards-clock replay must echo punch-in, got %q", res.Type)
	}

	rec, _ := records.Get(context.Background(), testEmployee, "2024-03-10")
	if rec.TotalHours < 0 {
		t.Errorf("total hours must never be negative, got %v", rec.TotalHours)
	}
}
