package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-soundio/internal/errors"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	s := Default()
	assert.Equal(t, DefaultAppName, s.AppName)
	assert.Equal(t, DefaultScanInterval, s.Backends.ScanInterval)
	assert.Equal(t, DefaultProbeCacheTTL, s.Backends.ProbeCacheTTL)
	assert.Equal(t, DefaultAlsaDeviceDir, s.Backends.AlsaDeviceDir)
	assert.Empty(t, s.Backends.Priority)
	assert.Equal(t, "Dummy Output Device", s.Dummy.OutputName)
	assert.Equal(t, "Dummy Input Device", s.Dummy.InputName)
	assert.InDelta(t, 0.01, s.Dummy.SoftwareLatencyMin, 1e-9)
	assert.InDelta(t, 0.1, s.Dummy.SoftwareLatencyCurrent, 1e-9)
	assert.InDelta(t, 4.0, s.Dummy.SoftwareLatencyMax, 1e-9)
	require.NotNil(t, s.Logging.Console)
	assert.True(t, s.Logging.Console.Enabled)
	require.NotNil(t, s.Logging.FileOutput)
	assert.False(t, s.Logging.FileOutput.Enabled)
	assert.False(t, s.Metrics.Enabled)
	assert.False(t, s.Telemetry.Enabled)

	require.NoError(t, s.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "soundio.yaml")
	content := `
app_name: recorder
backends:
  priority: [alsa, pulseaudio]
  scan_interval: 500ms
  period_frames: 256
dummy:
  output_name: Speakers
logging:
  default_level: debug
  module_levels:
    soundio.alsa: trace
metrics:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "recorder", s.AppName)
	assert.Equal(t, []string{"alsa", "pulseaudio"}, s.Backends.Priority)
	assert.Equal(t, 500*time.Millisecond, s.Backends.ScanInterval)
	assert.Equal(t, 256, s.Backends.PeriodFrames)
	assert.Equal(t, "Speakers", s.Dummy.OutputName)
	assert.Equal(t, DefaultDummyInput, s.Dummy.InputName, "unset keys keep defaults")
	assert.Equal(t, "debug", s.Logging.DefaultLevel)
	assert.Equal(t, "trace", s.Logging.ModuleLevels["soundio.alsa"])
	assert.True(t, s.Metrics.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SOUNDIO_APP_NAME", "from-env")
	t.Setenv("SOUNDIO_BACKENDS_SCAN_INTERVAL", "5s")
	t.Setenv("SOUNDIO_DUMMY_SOFTWARE_LATENCY_MAX", "8")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.AppName)
	assert.Equal(t, 5*time.Second, s.Backends.ScanInterval)
	assert.InDelta(t, 8.0, s.Dummy.SoftwareLatencyMax, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.KindInvalid)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid defaults", func(*Settings) {}, ""},
		{"priority case insensitive", func(s *Settings) { s.Backends.Priority = []string{"ALSA", "Dummy"} }, ""},
		{"unknown backend", func(s *Settings) { s.Backends.Priority = []string{"oss"} }, "unknown backend"},
		{"duplicate backend", func(s *Settings) { s.Backends.Priority = []string{"jack", "JACK"} }, "listed twice"},
		{"zero scan interval", func(s *Settings) { s.Backends.ScanInterval = 0 }, "scan_interval"},
		{"negative cache ttl", func(s *Settings) { s.Backends.ProbeCacheTTL = -time.Second }, "probe_cache_ttl"},
		{"negative period", func(s *Settings) { s.Backends.PeriodFrames = -1 }, "period_frames"},
		{"empty app name", func(s *Settings) { s.AppName = " " }, "app_name"},
		{"inverted latency", func(s *Settings) { s.Dummy.SoftwareLatencyCurrent = 10 }, "min <= current <= max"},
		{"zero min latency", func(s *Settings) { s.Dummy.SoftwareLatencyMin = 0 }, "software_latency_min"},
		{"empty device name", func(s *Settings) { s.Dummy.InputName = "" }, "names must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Default()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, errors.KindInvalid)

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.NotEmpty(t, ve.Errors)
		})
	}
}
