package profiling

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTuningMissingFileUsesDefaults(t *testing.T) {
	tuning := LoadTuning(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Equal(t, DefaultTuning(), tuning)
}

func TestLoadTuningInvalidYAMLUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tracelens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n_plus_one_threshold: [not, an, int"), 0o600))

	tuning := LoadTuning(path)

	assert.Equal(t, DefaultTuning(), tuning)
}

func TestLoadTuningEmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tracelens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	tuning := LoadTuning(path)

	assert.Equal(t, DefaultTuning(), tuning)
}

func TestLoadTuningAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tracelens.yaml")
	content := `
n_plus_one_threshold: 10
slow_queryset_ms: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	tuning := LoadTuning(path)

	assert.Equal(t, 10, tuning.NPlusOneThreshold)
	assert.InDelta(t, 500.0, tuning.SlowQuerysetMs, 0.001)

	// Unset fields keep defaults
	assert.Equal(t, DefaultTuning().TopQueries, tuning.TopQueries)
	assert.InDelta(t, DefaultTuning().SlowPermissionMs, tuning.SlowPermissionMs, 0.001)
}

func TestReportTTLFromEnv(t *testing.T) {
	t.Setenv("TRACELENS_PROFILE_REPORT_TTL", "30m")

	assert.Equal(t, 30*time.Minute, DefaultTuning().ReportTTL)
}

func TestResolveTuningPath(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "/etc/tracelens/tuning.yaml")
	assert.Equal(t, "/etc/tracelens/tuning.yaml", ResolveTuningPath())

	t.Setenv(ConfigPathEnvVar, "")
	assert.Equal(t, DefaultConfigPath, ResolveTuningPath())
}
