package matcher

import (
	"errors"
	"testing"
	"time"
)

const testVersion = "insight-v1"

func entry(employeeID string, vec []float32, enrolled time.Time) Entry {
	return Entry{EmployeeID: employeeID, Vector: vec, Version: testVersion, EnrolledAt: enrolled}
}

func TestMatchEmptyGallery(t *testing.T) {
	_, err := Match([]float32{1, 0}, testVersion, nil, 0.85)
	if !errors.Is(err, ErrGalleryEmpty) {
		t.Errorf("expected ErrGalleryEmpty, got %v", err)
	}
}

func TestMatchAccept(t *testing.T) {
	now := time.Now()
	gallery := []Entry{
		entry("alice", []float32{1, 0, 0}, now),
		entry("bob", []float32{0, 1, 0}, now),
	}

	res, err := Match([]float32{0.99, 0.05, 0}, testVersion, gallery, 0.85)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if !res.Recognized {
		t.Fatal("expected probe to be recognized")
	}
	if res.EmployeeID != "alice" {
		t.Errorf("expected alice, got %q", res.EmployeeID)
	}
	if res.Confidence <= 0.85 || res.Confidence > 1 {
		t.Errorf("confidence %v outside expected range", res.Confidence)
	}
}

func TestMatchBelowThresholdIsNormalMiss(t *testing.T) {
	gallery := []Entry{
		entry("alice", []float32{1, 0, 0}, time.Now()),
	}

	res, err := Match([]float32{0, 0, 1}, testVersion, gallery, 0.85)
	if err != nil {
		t.Fatalf("a miss must not be an error, got %v", err)
	}

	if res.Recognized {
		t.Error("orthogonal probe should not be recognized")
	}
	if res.EmployeeID != "" {
		t.Errorf("rejected result must not name an employee, got %q", res.EmployeeID)
	}
}

func TestMatchBestOfN(t *testing.T) {
	// Bob has one strong view and one weak view; the strong one must carry.
	now := time.Now()
	gallery := []Entry{
		entry("alice", []float32{0.7, 0.7, 0}, now),
		entry("bob", []float32{0, 1, 0}, now),
		entry("bob", []float32{1, 0, 0}, now),
	}

	res, err := Match([]float32{1, 0, 0}, testVersion, gallery, 0.85)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if res.EmployeeID != "bob" {
		t.Errorf("expected bob via his best descriptor, got %q", res.EmployeeID)
	}
	if res.Similarity < 0.999 {
		t.Errorf("expected near-perfect best score, got %v", res.Similarity)
	}
}

func TestMatchTieBreakEarliestEnrolled(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Identical vectors, identical scores; order in the slice must not matter.
	gallery := []Entry{
		entry("late", []float32{1, 0}, later),
		entry("early", []float32{1, 0}, earlier),
	}

	res, err := Match([]float32{1, 0}, testVersion, gallery, 0.85)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.EmployeeID != "early" {
		t.Errorf("tie must go to the earliest-enrolled descriptor, got %q", res.EmployeeID)
	}

	// Reversed order, same outcome.
	res, err = Match([]float32{1, 0}, testVersion, []Entry{gallery[1], gallery[0]}, 0.85)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.EmployeeID != "early" {
		t.Errorf("tie-break must be order-independent, got %q", res.EmployeeID)
	}
}

func TestMatchSkipsMismatchedLengths(t *testing.T) {
	now := time.Now()
	gallery := []Entry{
		entry("short", []float32{1, 0}, now),        // wrong length, must be skipped
		entry("alice", []float32{1, 0, 0}, now),     // comparable
		entry("long", []float32{1, 0, 0, 0}, now),   // wrong length, must be skipped
	}

	res, err := Match([]float32{1, 0, 0}, testVersion, gallery, 0.85)
	if err != nil {
		t.Fatalf("mismatched lengths must never abort the scan: %v", err)
	}
	if res.EmployeeID != "alice" {
		t.Errorf("expected alice, got %q", res.EmployeeID)
	}
}

func TestMatchSkipsMismatchedVersions(t *testing.T) {
	now := time.Now()
	gallery := []Entry{
		{EmployeeID: "old", Vector: []float32{1, 0, 0}, Version: "legacy-v0", EnrolledAt: now},
	}

	res, err := Match([]float32{1, 0, 0}, testVersion, gallery, 0.85)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.Recognized {
		t.Error("descriptors from another extractor version must not match")
	}
}

func TestMatchNeverComparableGallery(t *testing.T) {
	gallery := []Entry{
		entry("wrong-dim", []float32{1}, time.Now()),
	}

	res, err := Match([]float32{1, 0, 0}, testVersion, gallery, 0.85)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.Recognized {
		t.Error("gallery with no comparable entries must be a miss, not a crash")
	}
}

func TestMatchScenario128Dim(t *testing.T) {
	// L=128, cosine threshold 0.85, enrolled descriptor similar enough to
	// score 0.92 must be accepted with confidence 0.92.
	probe := make([]float32, 128)
	enrolled := make([]float32, 128)
	for i := range probe {
		probe[i] = 1
		enrolled[i] = 1
	}
	// Perturb the enrolled vector until similarity lands near 0.92.
	for i := 0; i < 50; i++ {
		enrolled[i] = -0.02 * float32(i)
	}

	sim := CosineSimilarity(probe, enrolled)
	if sim < 0.85 {
		t.Fatalf("test vector construction broke: similarity %v below threshold", sim)
	}

	res, err := Match(probe, testVersion, []Entry{entry("emp-1", enrolled, time.Now())}, 0.85)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !res.Recognized {
		t.Fatal("expected recognition")
	}
	if res.Confidence != Confidence(sim) {
		t.Errorf("confidence %v should equal scaled similarity %v", res.Confidence, Confidence(sim))
	}
}
