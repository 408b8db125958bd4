package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/attendance"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/feedback"
	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/storage/postgres"
	"github.com/facegate/facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the Facegate HTTP server.
The server exposes enrollment, recognition, attendance punch and feedback
endpoints for the kiosk UI and the employee-management app.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	employeeRepo := postgres.NewEmployeeRepository(pool)
	descriptorRepo := postgres.NewDescriptorRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	feedbackRepo := postgres.NewFeedbackRepository(pool)

	extractor, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Using %s descriptor extractor (%d dimensions)\n", extractor.Version(), extractor.Dim())

	recorder := feedback.NewRecorder(feedbackRepo)
	defer recorder.Close()

	recognizer := recognition.NewService(cfg, extractor, employeeRepo, descriptorRepo, recorder)

	fmt.Printf("Building in-memory gallery index...\n")
	if err := recognizer.RefreshIndex(context.Background()); err != nil {
		fmt.Printf("Warning: failed to build gallery index: %v\n", err)
		fmt.Printf("Recognition will scan the full gallery (slower)\n")
	} else {
		fmt.Printf("Gallery index ready with %d descriptors\n", recognizer.IndexSize())
	}

	attendanceSvc := attendance.NewService(attendanceRepo, employeeRepo, cfg.Attendance.PunchDebounce)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, web.Deps{
		Recognizer: recognizer,
		Attendance: attendanceSvc,
		Feedback:   recorder,
		Employees:  employeeRepo,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Facegate API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
