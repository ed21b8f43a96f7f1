package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordScan(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewSoundioMetrics(registry)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		backend string
		result  string
	}{
		{"alsa success", "ALSA", ResultSuccess},
		{"alsa interrupted", "ALSA", ResultInterrupted},
		{"pulse error", "PulseAudio", ResultError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m.RecordScan(tc.backend, tc.result, 3*time.Millisecond)
			count := testutil.ToFloat64(m.deviceScans.WithLabelValues(tc.backend, tc.result))
			assert.Equal(t, float64(1), count)
		})
	}
}

func TestRecordPublished(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewSoundioMetrics(registry)
	require.NoError(t, err)

	m.RecordPublished("Dummy", 1, 2)
	m.RecordPublished("Dummy", 3, 4)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.devicesPublished.WithLabelValues("Dummy")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.devicesVisible.WithLabelValues("Dummy", "input")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.devicesVisible.WithLabelValues("Dummy", "output")))
}

func TestStreamMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewSoundioMetrics(registry)
	require.NoError(t, err)

	out := m.Stream("Dummy", "output")
	out.Opened()
	out.Xrun()
	out.Xrun()
	out.Error()

	in := m.Stream("Dummy", "input")
	in.Opened()
	in.Xrun()
	in.Closed()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.streamXruns.WithLabelValues("Dummy", "output", XrunUnderflow)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.streamXruns.WithLabelValues("Dummy", "input", XrunOverflow)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.streamErrors.WithLabelValues("Dummy", "output")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.activeStreams.WithLabelValues("Dummy", "output")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.activeStreams.WithLabelValues("Dummy", "input")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *SoundioMetrics
	assert.NotPanics(t, func() {
		m.RecordScan("ALSA", ResultSuccess, time.Second)
		m.RecordPublished("ALSA", 1, 1)
		m.RecordDisconnect("ALSA")
		s := m.Stream("ALSA", "output")
		s.Opened()
		s.Xrun()
		s.Error()
		s.Closed()
	})
}

func TestDoubleRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewSoundioMetrics(registry)
	require.NoError(t, err)
	_, err = NewSoundioMetrics(registry)
	assert.Error(t, err)
}
