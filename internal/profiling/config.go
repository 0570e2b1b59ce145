package profiling

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tracelens-io/tracelens/internal/config"
)

// Default tuning values, matching the thresholds the recommendations were
// calibrated against.
const (
	defaultNPlusOneThreshold  = 5
	defaultTopQueries         = 5
	defaultQueryPreviewLength = 200
	defaultSlowPermissionMs   = 100.0
	defaultSlowQuerysetMs     = 200.0
	defaultSlowSerializerMs   = 100.0
	defaultReportTTL          = time.Hour
)

// DefaultConfigPath is the default location for the tracelens configuration
// file. Uses hidden file format following common tool conventions.
const DefaultConfigPath = ".tracelens.yaml"

// ConfigPathEnvVar is the environment variable name for a custom config path.
const ConfigPathEnvVar = "TRACELENS_CONFIG_PATH"

// Tuning holds analyzer and recommendation thresholds, optionally overridden
// from .tracelens.yaml.
type Tuning struct {
	// NPlusOneThreshold is the repeat count above which a normalized query
	// shape is flagged as an N+1 signal.
	NPlusOneThreshold int `yaml:"n_plus_one_threshold"`
	// TopQueries bounds the ranked offender list in reports.
	TopQueries int `yaml:"top_queries"`
	// QueryPreviewLength bounds the raw-query preview in reports.
	QueryPreviewLength int `yaml:"query_preview_length"`

	// Per-layer slowness thresholds (milliseconds) for recommendations.
	SlowPermissionMs float64 `yaml:"slow_permission_ms"`
	SlowQuerysetMs   float64 `yaml:"slow_queryset_ms"`
	SlowSerializerMs float64 `yaml:"slow_serializer_ms"`

	// ReportTTL is how long a saved report stays retrievable by request ID.
	// Configured via TRACELENS_PROFILE_REPORT_TTL, not the YAML file.
	ReportTTL time.Duration `yaml:"-"`
}

// DefaultTuning returns the built-in thresholds.
func DefaultTuning() *Tuning {
	return &Tuning{
		NPlusOneThreshold:  defaultNPlusOneThreshold,
		TopQueries:         defaultTopQueries,
		QueryPreviewLength: defaultQueryPreviewLength,
		SlowPermissionMs:   defaultSlowPermissionMs,
		SlowQuerysetMs:     defaultSlowQuerysetMs,
		SlowSerializerMs:   defaultSlowSerializerMs,
		ReportTTL:          config.GetEnvDuration("TRACELENS_PROFILE_REPORT_TTL", defaultReportTTL),
	}
}

// LoadTuning loads tuning overrides from a YAML file at the given path.
//
// Behavior:
//   - Returns defaults (not error) if the file doesn't exist - tuning is optional
//   - Returns defaults + logs warning if the YAML is invalid (graceful degradation)
//   - Returns defaults with overrides applied on success; zero-valued fields
//     keep their defaults
//
// This graceful degradation ensures the server can start without a tuning
// file, since profiling thresholds are an optional refinement.
func LoadTuning(path string) *Tuning {
	tuning := DefaultTuning()

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Tuning file not found, using default thresholds",
				slog.String("path", path))

			return tuning
		}

		slog.Warn("Failed to read tuning file, using default thresholds",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return tuning
	}

	if len(data) == 0 {
		return tuning
	}

	var overrides Tuning
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		slog.Warn("Failed to parse tuning file, using default thresholds",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return DefaultTuning()
	}

	applyOverrides(tuning, &overrides)

	return tuning
}

// ResolveTuningPath returns the tuning file path from TRACELENS_CONFIG_PATH,
// falling back to .tracelens.yaml in the current directory.
func ResolveTuningPath() string {
	return config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)
}

func applyOverrides(tuning, overrides *Tuning) {
	if overrides.NPlusOneThreshold > 0 {
		tuning.NPlusOneThreshold = overrides.NPlusOneThreshold
	}

	if overrides.TopQueries > 0 {
		tuning.TopQueries = overrides.TopQueries
	}

	if overrides.QueryPreviewLength > 0 {
		tuning.QueryPreviewLength = overrides.QueryPreviewLength
	}

	if overrides.SlowPermissionMs > 0 {
		tuning.SlowPermissionMs = overrides.SlowPermissionMs
	}

	if overrides.SlowQuerysetMs > 0 {
		tuning.SlowQuerysetMs = overrides.SlowQuerysetMs
	}

	if overrides.SlowSerializerMs > 0 {
		tuning.SlowSerializerMs = overrides.SlowSerializerMs
	}
}
