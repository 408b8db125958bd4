package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/facegate/facegate/internal/storage"
)

// EmployeesHandler manages the identity records the gallery is scoped to.
type EmployeesHandler struct {
	employees storage.EmployeeStore
}

func NewEmployeesHandler(employees storage.EmployeeStore) *EmployeesHandler {
	return &EmployeesHandler{employees: employees}
}

// CreateEmployeeRequest is the body of POST /api/v1/employees.
type CreateEmployeeRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// EmployeeResponse is the wire shape of one employee.
type EmployeeResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Enrolled  bool      `json:"enrolled"`
	CreatedAt time.Time `json:"created_at"`
}

// Create handles POST /api/v1/employees.
func (h *EmployeesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	emp := &storage.Employee{
		ID:     uuid.NewString(),
		Code:   req.Code,
		Name:   req.Name,
		Active: true,
	}
	if err := h.employees.Create(r.Context(), emp); err != nil {
		log.Printf("creating employee %s failed: %v", sanitizeForLog(req.Code), err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toEmployeeResponse(emp))
}

// List handles GET /api/v1/employees. ?active=true narrows to active ones.
func (h *EmployeesHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	employees, err := h.employees.List(r.Context(), activeOnly)
	if err != nil {
		log.Printf("listing employees failed: %v", err)
		respondDomainError(w, err)
		return
	}

	out := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		out = append(out, toEmployeeResponse(&employees[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"employees": out})
}

func toEmployeeResponse(emp *storage.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:        emp.ID,
		Code:      emp.Code,
		Name:      emp.Name,
		Active:    emp.Active,
		Enrolled:  emp.Enrolled,
		CreatedAt: emp.CreatedAt,
	}
}
