package conf

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tphakala/go-soundio/internal/errors"
)

// backendNames lists the names accepted in Backends.Priority.
var backendNames = []string{"jack", "pulseaudio", "alsa", "coreaudio", "wasapi", "dummy"}

// ValidationError collects every problem found in one pass.
type ValidationError struct {
	Errors []string
}

// Error implements the error interface for ValidationError
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// Is lets callers match configuration problems as invalid arguments.
func (ve ValidationError) Is(target error) bool {
	return target == errors.KindInvalid
}

// Validate checks the settings and returns a ValidationError listing every
// problem, or nil.
func (s *Settings) Validate() error {
	ve := ValidationError{}

	validateBackends(&s.Backends, &ve)
	validateDummy(&s.Dummy, &ve)

	if strings.TrimSpace(s.AppName) == "" {
		ve.Errors = append(ve.Errors, "app_name must not be empty")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateBackends(b *BackendSettings, ve *ValidationError) {
	seen := make(map[string]bool, len(b.Priority))
	for _, name := range b.Priority {
		key := strings.ToLower(strings.TrimSpace(name))
		if !isBackendName(key) {
			ve.Errors = append(ve.Errors, fmt.Sprintf("backends.priority: unknown backend %q", name))
			continue
		}
		if seen[key] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("backends.priority: %q listed twice", name))
		}
		seen[key] = true
	}

	if b.ScanInterval <= 0 {
		ve.Errors = append(ve.Errors, "backends.scan_interval must be positive")
	}
	if b.ProbeCacheTTL < 0 {
		ve.Errors = append(ve.Errors, "backends.probe_cache_ttl must not be negative")
	}
	if b.PeriodFrames < 0 {
		ve.Errors = append(ve.Errors, "backends.period_frames must not be negative")
	}
}

func validateDummy(d *DummySettings, ve *ValidationError) {
	if d.OutputName == "" || d.InputName == "" {
		ve.Errors = append(ve.Errors, "dummy device names must not be empty")
	}
	if d.SoftwareLatencyMin <= 0 {
		ve.Errors = append(ve.Errors, "dummy.software_latency_min must be positive")
	}
	if d.SoftwareLatencyMin > d.SoftwareLatencyCurrent || d.SoftwareLatencyCurrent > d.SoftwareLatencyMax {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"dummy software latency must satisfy min <= current <= max, got %g/%g/%g",
			d.SoftwareLatencyMin, d.SoftwareLatencyCurrent, d.SoftwareLatencyMax))
	}
}

func isBackendName(name string) bool {
	return slices.Contains(backendNames, name)
}
