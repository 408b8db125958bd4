// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum accepted request body for image uploads (10 MB)
	MaxUploadSize = 10 << 20
)

// Attendance constants
const (
	// DefaultHistoryLimit is the default number of attendance records returned
	// by the history endpoint
	DefaultHistoryLimit = 31

	// MaxHistoryLimit caps the history page size regardless of the query parameter
	MaxHistoryLimit = 366
)

// Matching constants
const (
	// MinThreshold and MaxThreshold bound the client-supplied similarity
	// threshold on recognition requests
	MinThreshold = 0.5
	MaxThreshold = 1.0
)
