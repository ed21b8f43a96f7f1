package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Built-in defaults.
const (
	DefaultAppName        = "SoundIo"
	DefaultScanInterval   = 2 * time.Second
	DefaultProbeCacheTTL  = 30 * time.Second
	DefaultAlsaDeviceDir  = "/dev/snd"
	DefaultDummyOutput    = "Dummy Output Device"
	DefaultDummyInput     = "Dummy Input Device"
	DefaultDummyLatencyLo = 0.01
	DefaultDummyLatency   = 0.1
	DefaultDummyLatencyHi = 4.0
)

func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("app_name", DefaultAppName)

	v.SetDefault("backends.priority", []string{})
	v.SetDefault("backends.scan_interval", DefaultScanInterval)
	v.SetDefault("backends.probe_cache_ttl", DefaultProbeCacheTTL)
	v.SetDefault("backends.period_frames", 0)
	v.SetDefault("backends.alsa_device_dir", DefaultAlsaDeviceDir)

	v.SetDefault("dummy.output_name", DefaultDummyOutput)
	v.SetDefault("dummy.input_name", DefaultDummyInput)
	v.SetDefault("dummy.software_latency_min", DefaultDummyLatencyLo)
	v.SetDefault("dummy.software_latency_current", DefaultDummyLatency)
	v.SetDefault("dummy.software_latency_max", DefaultDummyLatencyHi)

	v.SetDefault("logging.default_level", "warn")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "warn")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/soundio.log")
	v.SetDefault("logging.file_output.level", "info")
	v.SetDefault("logging.module_levels", map[string]string{})

	v.SetDefault("metrics.enabled", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
}
