// Package recognition wires the descriptor extractor, the gallery and the
// matcher into the two operations the outside world cares about:
// enrolling a face and recognizing one. Every decision is reported to the
// feedback recorder asynchronously; feedback can never fail a request.
package recognition

import (
	"context"
	"fmt"
	"log"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/descriptor"
	"github.com/facegate/facegate/internal/feedback"
	"github.com/facegate/facegate/internal/matcher"
	"github.com/facegate/facegate/internal/storage"
)

// Service performs enrollment and recognition against the gallery.
type Service struct {
	cfg         *config.Config
	extractor   descriptor.Extractor
	employees   storage.EmployeeStore
	descriptors storage.DescriptorStore
	feedback    *feedback.Recorder
	index       *matcher.Index
}

func NewService(
	cfg *config.Config,
	extractor descriptor.Extractor,
	employees storage.EmployeeStore,
	descriptors storage.DescriptorStore,
	recorder *feedback.Recorder,
) *Service {
	return &Service{
		cfg:         cfg,
		extractor:   extractor,
		employees:   employees,
		descriptors: descriptors,
		feedback:    recorder,
		index:       matcher.NewIndex(),
	}
}

// Enroll extracts a descriptor from the image and appends it to the
// employee's gallery, evicting the oldest view beyond the configured cap.
// Enrolling the same image twice is safe: it appends an identical vector,
// which self-matches at maximum score.
func (s *Service) Enroll(ctx context.Context, employeeID string, imageData []byte) (*storage.Descriptor, error) {
	if _, err := s.employees.Get(ctx, employeeID); err != nil {
		return nil, fmt.Errorf("looking up employee %s: %w", employeeID, err)
	}

	res, err := s.extractor.Extract(ctx, imageData)
	if err != nil {
		return nil, err
	}

	d := &storage.Descriptor{
		EmployeeID: employeeID,
		Vector:     res.Vector,
		Version:    res.Version,
		SourceHash: descriptor.SourceHash(imageData),
	}
	if err := s.descriptors.Append(ctx, d, s.cfg.Gallery.MaxDescriptors); err != nil {
		return nil, fmt.Errorf("storing descriptor: %w", err)
	}

	if err := s.employees.SetEnrolled(ctx, employeeID, true); err != nil {
		return nil, fmt.Errorf("marking employee enrolled: %w", err)
	}

	if err := s.RefreshIndex(ctx); err != nil {
		// The index is only an accelerator; matching still works through
		// the full scan.
		log.Printf("could not rebuild gallery index after enrollment: %v", err)
	}

	s.feedback.Record(storage.FeedbackRecord{
		EmployeeID: employeeID,
		Action:     storage.ActionEnrollment,
		Metadata:   map[string]any{"version": res.Version, "source": d.SourceHash},
	})

	return d, nil
}

// Recognize extracts a probe from the image and matches it against the
// gallery. A probe below the threshold is a normal unrecognized result,
// not an error. threshold <= 0 selects the calibrated threshold for the
// active extractor version.
func (s *Service) Recognize(ctx context.Context, imageData []byte, threshold float64) (*matcher.Result, error) {
	if threshold <= 0 {
		threshold = s.cfg.ThresholdFor(s.extractor.Version())
	}

	probe, err := s.extractor.Extract(ctx, imageData)
	if err != nil {
		return nil, err
	}

	gallery, err := s.galleryCandidates(ctx, probe.Vector)
	if err != nil {
		return nil, err
	}

	result, err := matcher.Match(probe.Vector, probe.Version, gallery, threshold)
	if err != nil {
		return nil, err
	}

	if result.Recognized {
		s.feedback.Record(storage.FeedbackRecord{
			EmployeeID:  result.EmployeeID,
			PredictedID: result.EmployeeID,
			Confidence:  result.Confidence,
			Action:      storage.ActionRecognition,
		})
	}

	return result, nil
}

// galleryCandidates returns the entries to rescore: the HNSW neighborhood
// when the index is warm, otherwise the full gallery snapshot.
func (s *Service) galleryCandidates(ctx context.Context, probe []float32) ([]matcher.Entry, error) {
	if s.index.Len() > 0 {
		if candidates := s.index.Candidates(probe, s.cfg.Gallery.MaxDescriptors); len(candidates) > 0 {
			return candidates, nil
		}
	}

	descriptors, err := s.descriptors.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading gallery: %w", err)
	}
	return toEntries(descriptors), nil
}

// RefreshIndex rebuilds the HNSW accelerator from the current gallery.
func (s *Service) RefreshIndex(ctx context.Context) error {
	descriptors, err := s.descriptors.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("loading gallery for index: %w", err)
	}

	entries := make(map[int64]matcher.Entry, len(descriptors))
	for _, d := range descriptors {
		entries[d.ID] = matcher.Entry{
			EmployeeID: d.EmployeeID,
			Vector:     d.Vector,
			Version:    d.Version,
			EnrolledAt: d.CreatedAt,
		}
	}
	s.index.Build(s.extractor.Version(), s.extractor.Dim(), entries)
	return nil
}

// ExtractorVersion reports the active extractor's version tag.
func (s *Service) ExtractorVersion() string {
	return s.extractor.Version()
}

// IndexSize reports how many descriptors the accelerator currently holds.
func (s *Service) IndexSize() int {
	return s.index.Len()
}

// EnrollmentStatus summarizes one employee's gallery for the management UI.
type EnrollmentStatus struct {
	Employee        storage.Employee
	DescriptorCount int
}

// ListEnrollment returns enrollment status for all active employees.
func (s *Service) ListEnrollment(ctx context.Context) ([]EnrollmentStatus, error) {
	employees, err := s.employees.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}

	out := make([]EnrollmentStatus, 0, len(employees))
	for _, emp := range employees {
		count, err := s.descriptors.CountByEmployee(ctx, emp.ID)
		if err != nil {
			return nil, fmt.Errorf("counting descriptors for %s: %w", emp.ID, err)
		}
		out = append(out, EnrollmentStatus{Employee: emp, DescriptorCount: count})
	}
	return out, nil
}

func toEntries(descriptors []storage.Descriptor) []matcher.Entry {
	entries := make([]matcher.Entry, 0, len(descriptors))
	for _, d := range descriptors {
		entries = append(entries, matcher.Entry{
			EmployeeID: d.EmployeeID,
			Vector:     d.Vector,
			Version:    d.Version,
			EnrolledAt: d.CreatedAt,
		})
	}
	return entries
}
