package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/recognition"
)

// FacesHandler serves enrollment and recognition endpoints.
type FacesHandler struct {
	config     *config.Config
	recognizer *recognition.Service
}

func NewFacesHandler(cfg *config.Config, recognizer *recognition.Service) *FacesHandler {
	return &FacesHandler{config: cfg, recognizer: recognizer}
}

// EnrollResponse describes one stored descriptor.
type EnrollResponse struct {
	EmployeeID string    `json:"employee_id"`
	Descriptor int64     `json:"descriptor_id"`
	Version    string    `json:"version"`
	SourceHash string    `json:"source_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// EnrollmentStatusResponse summarizes one employee's gallery.
type EnrollmentStatusResponse struct {
	EmployeeID  string `json:"employee_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Enrolled    bool   `json:"enrolled"`
	Descriptors int    `json:"descriptors"`
}

// Enroll handles POST /api/v1/faces/enroll. Multipart form with the image
// file under "image" and the target employee under "employee_id".
func (h *FacesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	imageData, err := readImageUpload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing or invalid image upload")
		return
	}

	employeeID := r.FormValue("employee_id")
	if employeeID == "" {
		respondError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	d, err := h.recognizer.Enroll(r.Context(), employeeID, imageData)
	if err != nil {
		log.Printf("enroll failed for employee %s: %v", sanitizeForLog(employeeID), err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, EnrollResponse{
		EmployeeID: d.EmployeeID,
		Descriptor: d.ID,
		Version:    d.Version,
		SourceHash: d.SourceHash,
		CreatedAt:  d.CreatedAt,
	})
}

// List handles GET /api/v1/faces and reports enrollment status for all
// active employees.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.recognizer.ListEnrollment(r.Context())
	if err != nil {
		log.Printf("listing enrollment failed: %v", err)
		respondDomainError(w, err)
		return
	}

	out := make([]EnrollmentStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, EnrollmentStatusResponse{
			EmployeeID:  s.Employee.ID,
			Code:        s.Employee.Code,
			Name:        s.Employee.Name,
			Enrolled:    s.Employee.Enrolled,
			Descriptors: s.DescriptorCount,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": out})
}
