// Package matcher decides which enrolled employee, if any, a probe
// descriptor belongs to. Matching is purely computational: a linear scan
// (optionally narrowed by the HNSW index) over a gallery snapshot, keeping
// each employee's single best descriptor score. Safe for concurrent use.
package matcher

import (
	"errors"
	"time"
)

// ErrGalleryEmpty is returned when there are no enrolled descriptors to
// match against. A probe that simply misses the threshold is NOT an error.
var ErrGalleryEmpty = errors.New("gallery has no enrolled descriptors")

// Entry is one gallery descriptor offered to the matcher.
type Entry struct {
	EmployeeID string
	Vector     []float32
	Version    string
	EnrolledAt time.Time
}

// Result is the outcome of matching one probe against the gallery.
type Result struct {
	// EmployeeID of the best candidate; empty when not recognized.
	EmployeeID string
	// Similarity is the raw best cosine score, kept for diagnostics.
	Similarity float64
	// Confidence is the similarity scaled into [0, 1].
	Confidence float64
	// Recognized is true when the best score met the threshold.
	Recognized bool
}

// Match scans the gallery for the employee whose best descriptor is most
// similar to the probe. Acceptance requires similarity >= threshold.
//
// Entries whose vector length differs from the probe, or whose extractor
// version differs, are skipped silently: they are not comparable and must
// never abort the scan. When several entries achieve the same best score,
// the earliest-enrolled one wins so results are reproducible.
func Match(probe []float32, version string, gallery []Entry, threshold float64) (*Result, error) {
	if len(gallery) == 0 {
		return nil, ErrGalleryEmpty
	}

	// Below the cosine range, so any real score beats it.
	const worstScore = -2.0

	var (
		bestID       string
		bestScore    = worstScore
		bestEnrolled time.Time
	)

	for _, entry := range gallery {
		if len(entry.Vector) != len(probe) {
			continue
		}
		if entry.Version != version {
			continue
		}

		score := CosineSimilarity(probe, entry.Vector)
		switch {
		case score > bestScore:
			bestID = entry.EmployeeID
			bestScore = score
			bestEnrolled = entry.EnrolledAt
		case score == bestScore && bestID != "" && entry.EnrolledAt.Before(bestEnrolled):
			bestID = entry.EmployeeID
			bestEnrolled = entry.EnrolledAt
		}
	}

	if bestID == "" {
		// Nothing was comparable; treat as a normal miss.
		return &Result{Recognized: false}, nil
	}

	res := &Result{
		Similarity: bestScore,
		Confidence: Confidence(bestScore),
		Recognized: bestScore >= threshold,
	}
	if res.Recognized {
		res.EmployeeID = bestID
	}
	return res, nil
}
