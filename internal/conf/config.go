// Package conf loads go-soundio settings from defaults, an optional config
// file and SOUNDIO_* environment variables.
package conf

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tphakala/go-soundio/internal/errors"
	"github.com/tphakala/go-soundio/internal/logger"
)

// EnvPrefix is prepended to every environment override, e.g.
// SOUNDIO_BACKENDS_SCAN_INTERVAL=5s.
const EnvPrefix = "SOUNDIO"

// Settings is the complete runtime configuration.
type Settings struct {
	// AppName is the client name shown by sound servers (PulseAudio, JACK).
	AppName string `mapstructure:"app_name" yaml:"app_name" json:"app_name"`

	Backends  BackendSettings      `mapstructure:"backends" yaml:"backends" json:"backends"`
	Dummy     DummySettings        `mapstructure:"dummy" yaml:"dummy" json:"dummy"`
	Logging   logger.LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
	Metrics   MetricsSettings      `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Telemetry TelemetrySettings    `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`
}

// BackendSettings tunes backend selection and device discovery.
type BackendSettings struct {
	Priority      []string      `mapstructure:"priority" yaml:"priority" json:"priority"`                      // auto-connect order, empty for built-in order
	ScanInterval  time.Duration `mapstructure:"scan_interval" yaml:"scan_interval" json:"scan_interval"`       // device poll interval
	ProbeCacheTTL time.Duration `mapstructure:"probe_cache_ttl" yaml:"probe_cache_ttl" json:"probe_cache_ttl"` // 0 disables caching
	PeriodFrames  int           `mapstructure:"period_frames" yaml:"period_frames" json:"period_frames"`       // 0 lets the backend choose
	AlsaDeviceDir string        `mapstructure:"alsa_device_dir" yaml:"alsa_device_dir" json:"alsa_device_dir"` // watched for hot-plug
}

// DummySettings describes the devices the dummy backend exposes.
type DummySettings struct {
	OutputName             string  `mapstructure:"output_name" yaml:"output_name" json:"output_name"`
	InputName              string  `mapstructure:"input_name" yaml:"input_name" json:"input_name"`
	SoftwareLatencyMin     float64 `mapstructure:"software_latency_min" yaml:"software_latency_min" json:"software_latency_min"`
	SoftwareLatencyCurrent float64 `mapstructure:"software_latency_current" yaml:"software_latency_current" json:"software_latency_current"`
	SoftwareLatencyMax     float64 `mapstructure:"software_latency_max" yaml:"software_latency_max" json:"software_latency_max"`
}

// MetricsSettings toggles Prometheus collectors.
type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// TelemetrySettings toggles error reporting to Sentry.
type TelemetrySettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
}

// Default returns the built-in settings without consulting the environment.
func Default() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		// Defaults are static; failing to decode them is a programming error.
		panic(err)
	}
	return settings
}

// Load reads settings. An empty path skips the config file; environment
// overrides apply in both cases. The result is validated.
func Load(path string) (*Settings, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Kind(errors.KindInvalid).
			Context("operation", "unmarshal").
			Build()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaultConfig(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Kind(errors.KindInvalid).
			Context("operation", "read_config").
			Context("path", path).
			Build()
	}
	return v, nil
}
