package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/facegate/facegate/internal/constants"
)

// RecognizeResponse is the match decision returned to the kiosk.
type RecognizeResponse struct {
	Recognized bool    `json:"recognized"`
	EmployeeID string  `json:"employee_id,omitempty"`
	Similarity float64 `json:"similarity"`
	Confidence float64 `json:"confidence"`
	Threshold  float64 `json:"threshold"`
}

// Recognize handles POST /api/v1/recognize. Multipart form with the probe
// image under "image" and an optional "threshold" override.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	imageData, err := readImageUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid image upload")
		return
	}

	threshold := 0.0
	if raw := r.FormValue("threshold"); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil || threshold < constants.MinThreshold || threshold > constants.MaxThreshold {
			respondError(w, http.StatusBadRequest, "threshold must be a number between 0.5 and 1.0")
			return
		}
	}
	if threshold == 0 {
		threshold = h.config.ThresholdFor(h.recognizer.ExtractorVersion())
	}

	result, err := h.recognizer.Recognize(r.Context(), imageData, threshold)
	if err != nil {
		log.Printf("recognition failed: %v", err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RecognizeResponse{
		Recognized: result.Recognized,
		EmployeeID: result.EmployeeID,
		Similarity: result.Similarity,
		Confidence: result.Confidence,
		Threshold:  threshold,
	})
}
