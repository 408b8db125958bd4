package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/facegate/facegate/internal/feedback"
	"github.com/facegate/facegate/internal/storage"
)

// FeedbackHandler accepts match-quality reports from the kiosk UI.
type FeedbackHandler struct {
	recorder *feedback.Recorder
}

func NewFeedbackHandler(recorder *feedback.Recorder) *FeedbackHandler {
	return &FeedbackHandler{recorder: recorder}
}

// FeedbackRequest is the body of POST /api/v1/feedback.
type FeedbackRequest struct {
	EmployeeID  string         `json:"employee_id"`
	PredictedID string         `json:"predicted_id,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Correct     *bool          `json:"correct,omitempty"`
	Action      string         `json:"action,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

var validActions = map[string]bool{
	storage.ActionEnrollment:         true,
	storage.ActionRecognition:        true,
	storage.ActionConfirmRecognition: true,
	storage.ActionFeedback:           true,
}

// Submit handles POST /api/v1/feedback. The write happens in the
// background; the kiosk gets 202 as soon as the entry is queued.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.EmployeeID == "" {
		respondError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	action := req.Action
	if action == "" {
		action = storage.ActionFeedback
	}
	if !validActions[action] {
		respondError(w, http.StatusBadRequest, "unknown feedback action")
		return
	}

	h.recorder.Record(storage.FeedbackRecord{
		EmployeeID:  req.EmployeeID,
		PredictedID: req.PredictedID,
		Confidence:  req.Confidence,
		Correct:     req.Correct,
		Action:      action,
		UserAgent:   r.UserAgent(),
		Metadata:    req.Metadata,
	})

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
