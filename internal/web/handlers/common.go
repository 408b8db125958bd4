package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/facegate/facegate/internal/attendance"
	"github.com/facegate/facegate/internal/constants"
	"github.com/facegate/facegate/internal/descriptor"
	"github.com/facegate/facegate/internal/matcher"
	"github.com/facegate/facegate/internal/storage"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps domain errors onto HTTP statuses. Unmapped errors
// become a generic 500 so internals never leak to the kiosk.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, descriptor.ErrNoFaceDetected):
		respondError(w, http.StatusUnprocessableEntity, "no face detected in image")
	case errors.Is(err, descriptor.ErrInvalidImage):
		respondError(w, http.StatusBadRequest, "invalid or unsupported image")
	case errors.Is(err, descriptor.ErrServiceUnavailable):
		respondError(w, http.StatusServiceUnavailable, "face extraction service unavailable")
	case errors.Is(err, matcher.ErrGalleryEmpty):
		respondError(w, http.StatusConflict, "no faces enrolled yet")
	case errors.Is(err, attendance.ErrEmployeeNotFound):
		respondError(w, http.StatusNotFound, "employee not found")
	case errors.Is(err, attendance.ErrAlreadyCompleted):
		respondError(w, http.StatusConflict, "attendance already completed for today")
	case errors.Is(err, attendance.ErrClockSkew):
		respondError(w, http.StatusBadRequest, "client clock too far from server time")
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// readImageUpload pulls the uploaded image out of a multipart form. The file
// part must be named "image".
func readImageUpload(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return nil, err
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty image upload")
	}
	return data, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
