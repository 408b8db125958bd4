package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/feedback"
	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/storage/postgres"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Match a face image against the enrolled gallery",
	Long: `Extract a descriptor from the given image and match it against all
enrolled employees. Prints the best match and its similarity, or reports
that nobody cleared the threshold.

Examples:
  # Match with the calibrated threshold
  facegate recognize probe.jpg

  # Relax the threshold for debugging
  facegate recognize probe.jpg --threshold 0.7`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("threshold", 0, "Similarity threshold override (0 = calibrated default)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	threshold := mustGetFloat64(cmd, "threshold")

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
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
	recorder := feedback.NewRecorder(postgres.NewFeedbackRepository(pool))
	defer recorder.Close()

	recognizer := recognition.NewService(cfg, extractor, employeeRepo,
		postgres.NewDescriptorRepository(pool), recorder)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Extractor.RecognizeTimeout)
	defer cancel()

	result, err := recognizer.Recognize(ctx, imageData, threshold)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	if !result.Recognized {
		fmt.Printf("No match (best similarity %.4f)\n", result.Similarity)
		return nil
	}

	emp, err := employeeRepo.Get(ctx, result.EmployeeID)
	if err != nil {
		return fmt.Errorf("looking up matched employee: %w", err)
	}

	fmt.Printf("Matched %s (%s)\n", emp.Name, emp.Code)
	fmt.Printf("  Similarity: %.4f\n", result.Similarity)
	fmt.Printf("  Confidence: %.4f\n", result.Confidence)
	return nil
}
