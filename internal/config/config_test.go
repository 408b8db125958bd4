package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Extractor.Dim != 128 {
		t.Errorf("expected default descriptor dim 128, got %d", cfg.Extractor.Dim)
	}
	if cfg.Extractor.Backend != "local" {
		t.Errorf("expected local backend without EXTRACTOR_URL, got %q", cfg.Extractor.Backend)
	}
	if cfg.Matching.DefaultThreshold != 0.85 {
		t.Errorf("expected default threshold 0.85, got %v", cfg.Matching.DefaultThreshold)
	}
	if cfg.Gallery.MaxDescriptors != 5 {
		t.Errorf("expected default gallery cap 5, got %d", cfg.Gallery.MaxDescriptors)
	}
	if cfg.Attendance.PunchDebounce != 10*time.Second {
		t.Errorf("expected 10s punch debounce, got %v", cfg.Attendance.PunchDebounce)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DESCRIPTOR_DIM", "512")
	t.Setenv("EXTRACTOR_URL", "http://faces:8000")
	t.Setenv("MATCH_THRESHOLD", "0.9")
	t.Setenv("EXTRACTOR_RECOGNIZE_TIMEOUT", "30")

	cfg := Load()

	if cfg.Extractor.Dim != 512 {
		t.Errorf("expected dim 512, got %d", cfg.Extractor.Dim)
	}
	if cfg.Extractor.Backend != "remote" {
		t.Errorf("expected remote backend when EXTRACTOR_URL is set, got %q", cfg.Extractor.Backend)
	}
	if cfg.Matching.DefaultThreshold != 0.9 {
		t.Errorf("expected threshold 0.9, got %v", cfg.Matching.DefaultThreshold)
	}
	if cfg.Extractor.RecognizeTimeout != 30*time.Second {
		t.Errorf("expected 30s recognize timeout, got %v", cfg.Extractor.RecognizeTimeout)
	}
}

func TestLoadIgnoresInvalidEnv(t *testing.T) {
	t.Setenv("DESCRIPTOR_DIM", "not-a-number")
	t.Setenv("MATCH_THRESHOLD", "1.5")

	cfg := Load()

	if cfg.Extractor.Dim != 128 {
		t.Errorf("invalid DESCRIPTOR_DIM should fall back to 128, got %d", cfg.Extractor.Dim)
	}
	if cfg.Matching.DefaultThreshold != 0.85 {
		t.Errorf("out-of-range MATCH_THRESHOLD should fall back to 0.85, got %v", cfg.Matching.DefaultThreshold)
	}
}

func TestThresholdFor(t *testing.T) {
	cfg := Load()

	if got := cfg.ThresholdFor("insight-v1"); got != 0.85 {
		t.Errorf("expected calibrated threshold 0.85 for insight-v1, got %v", got)
	}
	if got := cfg.ThresholdFor("local-v1"); got != 0.92 {
		t.Errorf("expected calibrated threshold 0.92 for local-v1, got %v", got)
	}
	if got := cfg.ThresholdFor("unknown-version"); got != cfg.Matching.DefaultThreshold {
		t.Errorf("unknown version should use default threshold, got %v", got)
	}
}
