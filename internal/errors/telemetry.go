// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry. Device names and ids are
// left out of the event; only the taxonomy and component travel.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	title := generateErrorTitle(ee)
	message := fmt.Sprintf("[%s] %s", ee.Category, ee.Kind)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_title", title)
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("kind", ee.Kind.String())
		if backend, ok := ee.Context["backend"].(string); ok {
			scope.SetTag("backend", backend)
		}

		level := getErrorLevel(ee.Kind)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.Component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle builds "<Component> <Kind> <Operation>" for Sentry grouping.
func generateErrorTitle(ee *EnhancedError) string {
	var parts []string
	if ee.Component != "" && ee.Component != ComponentUnknown {
		parts = append(parts, ee.Component)
	}
	if ee.Kind != KindNone {
		parts = append(parts, ee.Kind.String())
	} else {
		parts = append(parts, string(ee.Category))
	}
	if op, ok := ee.Context["operation"].(string); ok && op != "" {
		parts = append(parts, strings.ReplaceAll(op, "_", " "))
	}
	return strings.Join(parts, " ")
}

// getErrorLevel returns appropriate Sentry level based on the taxonomy
func getErrorLevel(kind Kind) sentry.Level {
	switch kind {
	case KindUnderflow, KindInterrupted:
		return sentry.LevelWarning // transient, the stream keeps running
	case KindInvalid:
		return sentry.LevelInfo // caller misuse
	default:
		return sentry.LevelError
	}
}

type reporterHolder struct {
	reporter TelemetryReporter
}

var globalTelemetryReporter atomic.Pointer[reporterHolder]

// SetTelemetryReporter sets the global telemetry reporter. Passing nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		globalTelemetryReporter.Store(nil)
		hasActiveReporting.Store(false)
		return
	}
	globalTelemetryReporter.Store(&reporterHolder{reporter: reporter})
	hasActiveReporting.Store(reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	if h := globalTelemetryReporter.Load(); h != nil {
		return h.reporter
	}
	return nil
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

var sentryInitOnce sync.Once

// EnableSentry installs a SentryReporter. A non-empty dsn initializes the
// Sentry client first; the client is set up at most once per process, later
// calls only swap the reporter.
func EnableSentry(dsn string) error {
	var initErr error
	if dsn != "" {
		sentryInitOnce.Do(func() {
			initErr = sentry.Init(sentry.ClientOptions{
				Dsn:              dsn,
				AttachStacktrace: true,
			})
		})
	}
	if initErr != nil {
		return fmt.Errorf("sentry init: %w", initErr)
	}
	SetTelemetryReporter(NewSentryReporter(true))
	return nil
}
