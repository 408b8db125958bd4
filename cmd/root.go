// Package cmd wires the CLI commands: the HTTP server, bulk enrollment and
// one-shot recognition from the terminal.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/descriptor"
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face recognition attendance engine",
	Long: `Facegate matches employee faces against an enrolled descriptor gallery
and drives the daily punch-in/punch-out attendance ledger. It serves the
HTTP API consumed by the kiosk UI and the employee-management app, and
offers CLI commands for enrollment and ad-hoc recognition.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newExtractor builds the configured descriptor extractor.
func newExtractor(cfg *config.Config) (descriptor.Extractor, error) {
	switch cfg.Extractor.Backend {
	case "remote":
		if cfg.Extractor.URL == "" {
			return nil, errors.New("EXTRACTOR_URL is required for the remote backend")
		}
		return descriptor.NewRemoteExtractor(cfg.Extractor.URL, cfg.Extractor.Dim, cfg.Extractor.RecognizeTimeout), nil
	case "local", "":
		return descriptor.NewLocalExtractor(cfg.Extractor.Dim), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Extractor.Backend)
	}
}
