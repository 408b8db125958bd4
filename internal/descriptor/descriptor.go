// Package descriptor turns raw image bytes into fixed-length face
// descriptors. Extraction is a pluggable capability: the remote backend
// calls an inference service, the local backend computes a deterministic
// image-statistics vector for development and tests. Every descriptor
// carries the version tag of the extractor that produced it; vectors from
// different versions are never comparable.
package descriptor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrNoFaceDetected means the image decoded fine but contained no
	// usable face region.
	ErrNoFaceDetected = errors.New("no face detected in image")

	// ErrInvalidImage means the bytes could not be decoded as an image.
	ErrInvalidImage = errors.New("invalid image data")

	// ErrServiceUnavailable means the extraction backend timed out or was
	// unreachable. Callers must not interpret this as "no face".
	ErrServiceUnavailable = errors.New("descriptor service unavailable")
)

// Result is one extracted descriptor.
type Result struct {
	Vector  []float32
	Version string
}

// Extractor converts image bytes into a descriptor. Implementations are
// pure: no side effects beyond the backend call itself.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) (*Result, error)
	Version() string
	Dim() int
}

// SourceHash returns the hex SHA-256 of the source image, stored with each
// descriptor for provenance and to make enrollment retries recognizable.
func SourceHash(imageData []byte) string {
	sum := sha256.Sum256(imageData)
	return hex.EncodeToString(sum[:])
}
