// Package metrics provides Prometheus metrics for device discovery and streams
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan results used as the "result" label.
const (
	ResultSuccess     = "success"
	ResultError       = "error"
	ResultInterrupted = "interrupted"
)

// Xrun kinds used as the "kind" label.
const (
	XrunUnderflow = "underflow"
	XrunOverflow  = "overflow"
)

// SoundioMetrics contains Prometheus metrics for backends and streams
type SoundioMetrics struct {
	deviceScans      *prometheus.CounterVec
	scanDuration     *prometheus.HistogramVec
	devicesPublished *prometheus.CounterVec
	devicesVisible   *prometheus.GaugeVec
	disconnects      *prometheus.CounterVec
	streamXruns      *prometheus.CounterVec
	streamErrors     *prometheus.CounterVec
	activeStreams    *prometheus.GaugeVec

	collectors []prometheus.Collector
}

// NewSoundioMetrics creates and registers the collectors
func NewSoundioMetrics(registerer prometheus.Registerer) (*SoundioMetrics, error) {
	m := &SoundioMetrics{}
	m.initMetrics()
	if err := registerer.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SoundioMetrics) initMetrics() {
	m.deviceScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundio_device_scans_total",
			Help: "Total number of device enumeration passes",
		},
		[]string{"backend", "result"},
	)

	m.scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soundio_device_scan_duration_seconds",
			Help:    "Time taken by one device enumeration pass",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"backend"},
	)

	m.devicesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundio_devices_published_total",
			Help: "Total number of device snapshots delivered to the application",
		},
		[]string{"backend"},
	)

	m.devicesVisible = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soundio_devices",
			Help: "Number of devices in the published snapshot",
		},
		[]string{"backend", "aim"},
	)

	m.disconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundio_backend_disconnects_total",
			Help: "Total number of backend disconnections",
		},
		[]string{"backend"},
	)

	m.streamXruns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundio_stream_xruns_total",
			Help: "Total number of buffer underflows and overflows",
		},
		[]string{"backend", "aim", "kind"},
	)

	m.streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundio_stream_errors_total",
			Help: "Total number of unrecoverable stream errors",
		},
		[]string{"backend", "aim"},
	)

	m.activeStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "soundio_active_streams",
			Help: "Number of open streams",
		},
		[]string{"backend", "aim"},
	)

	m.collectors = []prometheus.Collector{
		m.deviceScans,
		m.scanDuration,
		m.devicesPublished,
		m.devicesVisible,
		m.disconnects,
		m.streamXruns,
		m.streamErrors,
		m.activeStreams,
	}
}

// Describe implements prometheus.Collector
func (m *SoundioMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (m *SoundioMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordScan records one enumeration pass. A nil receiver is a no-op.
func (m *SoundioMetrics) RecordScan(backend, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.deviceScans.WithLabelValues(backend, result).Inc()
	m.scanDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordPublished records a snapshot reaching the application.
func (m *SoundioMetrics) RecordPublished(backend string, inputs, outputs int) {
	if m == nil {
		return
	}
	m.devicesPublished.WithLabelValues(backend).Inc()
	m.devicesVisible.WithLabelValues(backend, "input").Set(float64(inputs))
	m.devicesVisible.WithLabelValues(backend, "output").Set(float64(outputs))
}

// RecordDisconnect records a backend disconnection.
func (m *SoundioMetrics) RecordDisconnect(backend string) {
	if m == nil {
		return
	}
	m.disconnects.WithLabelValues(backend).Inc()
}

// Stream resolves the per-stream series once so the real-time path only
// touches atomics. A nil receiver returns nil, which is also a no-op.
func (m *SoundioMetrics) Stream(backend, aim string) *StreamMetrics {
	if m == nil {
		return nil
	}
	xrunKind := XrunUnderflow
	if aim == "input" {
		xrunKind = XrunOverflow
	}
	return &StreamMetrics{
		xruns:  m.streamXruns.WithLabelValues(backend, aim, xrunKind),
		errors: m.streamErrors.WithLabelValues(backend, aim),
		active: m.activeStreams.WithLabelValues(backend, aim),
	}
}

// StreamMetrics holds pre-resolved series for one stream.
type StreamMetrics struct {
	xruns  prometheus.Counter
	errors prometheus.Counter
	active prometheus.Gauge
}

// Xrun counts an underflow (output) or overflow (input). Real-time safe.
func (s *StreamMetrics) Xrun() {
	if s != nil {
		s.xruns.Inc()
	}
}

// Error counts a fatal stream error.
func (s *StreamMetrics) Error() {
	if s != nil {
		s.errors.Inc()
	}
}

// Opened marks the stream as active.
func (s *StreamMetrics) Opened() {
	if s != nil {
		s.active.Inc()
	}
}

// Closed marks the stream as gone.
func (s *StreamMetrics) Closed() {
	if s != nil {
		s.active.Dec()
	}
}
