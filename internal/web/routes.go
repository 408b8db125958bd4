package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/internal/web/handlers"
	"github.com/facegate/facegate/internal/web/middleware"
)

func (s *Server) setupRoutes(deps Deps) {
	facesHandler := handlers.NewFacesHandler(s.config, deps.Recognizer)
	attendanceHandler := handlers.NewAttendanceHandler(deps.Attendance)
	feedbackHandler := handlers.NewFeedbackHandler(deps.Feedback)
	employeesHandler := handlers.NewEmployeesHandler(deps.Employees)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(s.config.Web.APIKey))

		// Employees
		r.Post("/employees", employeesHandler.Create)
		r.Get("/employees", employeesHandler.List)

		// Faces
		r.Post("/faces/enroll", facesHandler.Enroll)
		r.Get("/faces", facesHandler.List)
		r.Post("/recognize", facesHandler.Recognize)

		// Attendance
		r.Post("/attendance/punch", attendanceHandler.Punch)
		r.Get("/attendance/{employeeId}", attendanceHandler.History)
		r.Get("/attendance/{employeeId}/{dateKey}", attendanceHandler.Get)

		// Feedback
		r.Post("/feedback", feedbackHandler.Submit)
	})
}
