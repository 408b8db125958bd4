package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Extractor  ExtractorConfig
	Matching   MatchingConfig
	Gallery    GalleryConfig
	Attendance AttendanceConfig
	Database   DatabaseConfig
	Web        WebConfig
}

type ExtractorConfig struct {
	Backend          string        // "remote" or "local" (defaults to local when no URL is set)
	URL              string        // base URL of the remote inference service
	Dim              int           // descriptor length, defaults to 128
	RecognizeTimeout time.Duration // per-call budget for recognition extraction
	EnrollTimeout    time.Duration // longer budget for bulk enrollment
}

type MatchingConfig struct {
	DefaultThreshold float64 // used when the request does not carry a threshold
	Thresholds       ThresholdsConfig
}

type GalleryConfig struct {
	MaxDescriptors int // per-employee cap; re-enrollment evicts the oldest
}

type AttendanceConfig struct {
	PunchDebounce time.Duration // replayed punch within this window is echoed, not transitioned
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	APIKey string // optional shared key for the employee-management app
}

// ThresholdsConfig maps extractor versions to their calibrated acceptance rule.
type ThresholdsConfig struct {
	Versions map[string]VersionThreshold `yaml:"versions"`
}

type VersionThreshold struct {
	Metric    string  `yaml:"metric"`
	Threshold float64 `yaml:"threshold"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envSeconds reads an environment variable holding a number of seconds.
func envSeconds(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	backend := os.Getenv("EXTRACTOR_BACKEND")
	if backend == "" {
		if os.Getenv("EXTRACTOR_URL") != "" {
			backend = "remote"
		} else {
			backend = "local"
		}
	}

	return &Config{
		Extractor: ExtractorConfig{
			Backend:          backend,
			URL:              os.Getenv("EXTRACTOR_URL"),
			Dim:              envInt("DESCRIPTOR_DIM", 128),
			RecognizeTimeout: envSeconds("EXTRACTOR_RECOGNIZE_TIMEOUT", 20*time.Second),
			EnrollTimeout:    envSeconds("EXTRACTOR_ENROLL_TIMEOUT", 120*time.Second),
		},
		Matching: MatchingConfig{
			DefaultThreshold: envFloat("MATCH_THRESHOLD", 0.85),
			Thresholds:       thresholds,
		},
		Gallery: GalleryConfig{
			MaxDescriptors: envInt("GALLERY_MAX_DESCRIPTORS", 5),
		},
		Attendance: AttendanceConfig{
			PunchDebounce: envSeconds("PUNCH_DEBOUNCE_SECONDS", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			APIKey: os.Getenv("WEB_API_KEY"),
		},
	}
}

// ThresholdFor returns the calibrated acceptance threshold for an extractor
// version, falling back to the configured default for unknown versions.
func (c *Config) ThresholdFor(version string) float64 {
	if vt, ok := c.Matching.Thresholds.Versions[version]; ok && vt.Threshold > 0 {
		return vt.Threshold
	}
	return c.Matching.DefaultThreshold
}
