package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/attendance"
	"github.com/facegate/facegate/internal/constants"
	"github.com/facegate/facegate/internal/storage"
)

// AttendanceHandler serves the punch state machine.
type AttendanceHandler struct {
	service *attendance.Service
}

func NewAttendanceHandler(service *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// PunchRequest is the body of POST /api/v1/attendance/punch.
type PunchRequest struct {
	EmployeeID      string    `json:"employee_id"`
	ClientTimestamp time.Time `json:"client_timestamp,omitzero"`
	TzOffsetMinutes int       `json:"tz_offset_minutes"`
	Method          string    `json:"method,omitempty"`
}

// PunchResponse reports which transition happened.
type PunchResponse struct {
	Type       string  `json:"type"` // "in" or "out"
	Time       string  `json:"time"` // local wall clock, HH:MM:SS
	DateKey    string  `json:"date_key"`
	TotalHours float64 `json:"total_hours,omitempty"`
}

// AttendanceRecordResponse is the wire shape of one day's record.
type AttendanceRecordResponse struct {
	EmployeeID     string     `json:"employee_id"`
	DateKey        string     `json:"date_key"`
	PunchInTime    time.Time  `json:"punch_in_time"`
	PunchInMethod  string     `json:"punch_in_method"`
	PunchOutTime   *time.Time `json:"punch_out_time,omitempty"`
	PunchOutMethod string     `json:"punch_out_method,omitempty"`
	TotalHours     float64    `json:"total_hours"`
	Status         string     `json:"status"`
}

// Punch handles POST /api/v1/attendance/punch.
func (h *AttendanceHandler) Punch(w http.ResponseWriter, r *http.Request) {
	var req PunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.EmployeeID == "" {
		respondError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	method := req.Method
	if method == "" {
		method = storage.MethodFace
	}
	if method != storage.MethodFace && method != storage.MethodManual {
		respondError(w, http.StatusBadRequest, "method must be face or manual")
		return
	}

	result, err := h.service.Punch(r.Context(), attendance.PunchRequest{
		EmployeeID:      req.EmployeeID,
		ClientTimestamp: req.ClientTimestamp,
		TzOffsetMinutes: req.TzOffsetMinutes,
		Method:          method,
	})
	if err != nil {
		log.Printf("punch failed for employee %s: %v", sanitizeForLog(req.EmployeeID), err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PunchResponse{
		Type:       result.Type,
		Time:       result.Time,
		DateKey:    result.DateKey,
		TotalHours: result.TotalHours,
	})
}

// Get handles GET /api/v1/attendance/{employeeId}/{dateKey}.
func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeId")
	dateKey := chi.URLParam(r, "dateKey")

	if _, err := time.Parse("2006-01-02", dateKey); err != nil {
		respondError(w, http.StatusBadRequest, "dateKey must be YYYY-MM-DD")
		return
	}

	rec, err := h.service.Record(r.Context(), employeeID, dateKey)
	if err != nil {
		log.Printf("attendance lookup failed for %s/%s: %v", sanitizeForLog(employeeID), dateKey, err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toRecordResponse(rec))
}

// History handles GET /api/v1/attendance/{employeeId} with an optional
// limit query parameter.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeId")

	limit := constants.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, constants.MaxHistoryLimit)
	}

	records, err := h.service.History(r.Context(), employeeID, limit)
	if err != nil {
		log.Printf("attendance history failed for %s: %v", sanitizeForLog(employeeID), err)
		respondDomainError(w, err)
		return
	}

	out := make([]AttendanceRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, toRecordResponse(&records[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": out})
}

func toRecordResponse(rec *storage.AttendanceRecord) AttendanceRecordResponse {
	return AttendanceRecordResponse{
		EmployeeID:     rec.EmployeeID,
		DateKey:        rec.DateKey,
		PunchInTime:    rec.PunchInTime,
		PunchInMethod:  rec.PunchInMethod,
		PunchOutTime:   rec.PunchOutTime,
		PunchOutMethod: rec.PunchOutMethod,
		TotalHours:     rec.TotalHours,
		Status:         rec.Status,
	}
}
