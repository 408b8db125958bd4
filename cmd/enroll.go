package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/descriptor"
	"github.com/facegate/facegate/internal/feedback"
	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/storage/postgres"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [images or directories...]",
	Short: "Enroll face images for an employee",
	Long: `Enroll one or more face images into an employee's gallery.
Arguments may be image files or directories; directories are scanned for
jpg, png, webp, bmp and gif files. Beyond the per-employee cap the oldest
descriptors are evicted, so enrolling fresh images refreshes the gallery.

Examples:
  # Enroll a single image
  facegate enroll --employee emp-42 face.jpg

  # Enroll every frame captured during onboarding
  facegate enroll --employee emp-42 ./captures/emp-42/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("employee", "", "Employee ID to enroll (required)")
	enrollCmd.MarkFlagRequired("employee")
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".webp": true, ".bmp": true, ".gif": true,
}

// collectImagePaths expands files and directories into a flat image list.
func collectImagePaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("no image files found")
	}
	return paths, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	employeeID := mustGetString(cmd, "employee")

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	paths, err := collectImagePaths(args)
	if err != nil {
		return err
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	extractor, err := newExtractor(cfg)
	if err != nil {
		return err
	}

	employeeRepo := postgres.NewEmployeeRepository(pool)
	descriptorRepo := postgres.NewDescriptorRepository(pool)
	recorder := feedback.NewRecorder(postgres.NewFeedbackRepository(pool))
	defer recorder.Close()

	recognizer := recognition.NewService(cfg, extractor, employeeRepo, descriptorRepo, recorder)

	emp, err := employeeRepo.Get(context.Background(), employeeID)
	if err != nil {
		return fmt.Errorf("employee %s: %w", employeeID, err)
	}
	fmt.Printf("Enrolling %d image(s) for %s (%s)\n", len(paths), emp.Name, emp.Code)

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Enrolling faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var enrolled, failed int
	for _, path := range paths {
		imageData, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("\nSkipping %s: %v\n", path, err)
			failed++
			bar.Add(1)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Extractor.EnrollTimeout)
		_, err = recognizer.Enroll(ctx, employeeID, imageData)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, descriptor.ErrNoFaceDetected):
				fmt.Printf("\nSkipping %s: no face detected\n", path)
			case errors.Is(err, descriptor.ErrInvalidImage):
				fmt.Printf("\nSkipping %s: not a supported image\n", path)
			default:
				fmt.Printf("\nSkipping %s: %v\n", path, err)
			}
			failed++
			bar.Add(1)
			continue
		}

		enrolled++
		bar.Add(1)
	}

	fmt.Printf("\nEnrolled %d image(s), skipped %d\n", enrolled, failed)
	if enrolled == 0 {
		return errors.New("no images were enrolled")
	}
	return nil
}
