package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/attendance"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/descriptor"
	"github.com/facegate/facegate/internal/feedback"
	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/storage"
	"github.com/facegate/facegate/internal/storage/mock"
)

// stubExtractor returns canned vectors keyed by the raw image bytes.
type stubExtractor struct {
	vectors map[string][]float32
	err     error
}

func (s *stubExtractor) Extract(_ context.Context, imageData []byte) (*descriptor.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.vectors[string(imageData)]
	if !ok {
		return nil, descriptor.ErrNoFaceDetected
	}
	return &descriptor.Result{Vector: v, Version: s.Version()}, nil
}

func (s *stubExtractor) Version() string { return "test-v1" }
func (s *stubExtractor) Dim() int        { return 4 }

// env bundles the handlers with their backing mocks for one test.
type env struct {
	router      *chi.Mux
	employees   *mock.EmployeeStore
	descriptors *mock.DescriptorStore
	attendance  *mock.AttendanceStore
	feedback    *mock.FeedbackStore
	recorder    *feedback.Recorder
	clock       *testClock
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newEnv(t *testing.T, extractor descriptor.Extractor) *env {
	t.Helper()

	cfg := &config.Config{
		Matching: config.MatchingConfig{
			DefaultThreshold: 0.85,
			Thresholds: config.ThresholdsConfig{
				Versions: map[string]config.VersionThreshold{
					"test-v1": {Metric: "cosine", Threshold: 0.85},
				},
			},
		},
		Gallery:    config.GalleryConfig{MaxDescriptors: 5},
		Attendance: config.AttendanceConfig{PunchDebounce: 10 * time.Second},
	}

	employees := mock.NewEmployeeStore()
	descriptors := mock.NewDescriptorStore(employees)
	attendanceStore := mock.NewAttendanceStore()
	feedbackStore := mock.NewFeedbackStore()

	recorder := feedback.NewRecorder(feedbackStore)
	t.Cleanup(recorder.Close)

	recognizer := recognition.NewService(cfg, extractor, employees, descriptors, recorder)

	clock := &testClock{now: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)}
	attendanceSvc := attendance.NewService(attendanceStore, employees, cfg.Attendance.PunchDebounce)
	attendanceSvc.SetClock(clock.Now)

	facesHandler := NewFacesHandler(cfg, recognizer)
	attendanceHandler := NewAttendanceHandler(attendanceSvc)
	feedbackHandler := NewFeedbackHandler(recorder)
	employeesHandler := NewEmployeesHandler(employees)

	r := chi.NewRouter()
	r.Post("/api/v1/employees", employeesHandler.Create)
	r.Get("/api/v1/employees", employeesHandler.List)
	r.Post("/api/v1/faces/enroll", facesHandler.Enroll)
	r.Get("/api/v1/faces", facesHandler.List)
	r.Post("/api/v1/recognize", facesHandler.Recognize)
	r.Post("/api/v1/attendance/punch", attendanceHandler.Punch)
	r.Get("/api/v1/attendance/{employeeId}", attendanceHandler.History)
	r.Get("/api/v1/attendance/{employeeId}/{dateKey}", attendanceHandler.Get)
	r.Post("/api/v1/feedback", feedbackHandler.Submit)

	return &env{
		router:      r,
		employees:   employees,
		descriptors: descriptors,
		attendance:  attendanceStore,
		feedback:    feedbackStore,
		recorder:    recorder,
		clock:       clock,
	}
}

func (e *env) addEmployee(t *testing.T, id, code, name string) {
	t.Helper()
	err := e.employees.Create(context.Background(), &storage.Employee{
		ID: id, Code: code, Name: name, Active: true,
	})
	if err != nil {
		t.Fatalf("creating employee %s: %v", id, err)
	}
}

// do runs a JSON request through the router.
func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// upload runs a multipart image request through the router.
func (e *env) upload(t *testing.T, path string, image []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if image != nil {
		part, err := writer.CreateFormFile("image", "probe.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(image)
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}
