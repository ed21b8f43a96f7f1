package soundio_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	soundio "github.com/tphakala/go-soundio"
	_ "github.com/tphakala/go-soundio/backend/dummy"
)

func TestPlaybackThroughDummy(t *testing.T) {
	settings := soundio.DefaultSettings()
	settings.Logging.Console.Enabled = false
	settings.Backends.Priority = []string{"dummy"}

	c, err := soundio.CreateWithSettings(settings)
	require.NoError(t, err)
	defer c.Destroy()

	require.True(t, soundio.HaveBackend(soundio.BackendDummy))
	require.NoError(t, c.Connect())
	assert.Equal(t, soundio.BackendDummy, c.CurrentBackend())
	c.FlushEvents()

	idx := c.DefaultOutputDeviceIndex()
	require.GreaterOrEqual(t, idx, 0)
	d, err := c.GetOutputDevice(idx)
	require.NoError(t, err)
	defer d.Unref()
	assert.Equal(t, "Dummy Output Device", d.Name)

	var calls, maxSeen atomic.Int64
	s := soundio.NewOutStream(d)
	defer s.Destroy()
	s.WriteCallback = func(s *soundio.OutStream, _, frameCountMax int) {
		calls.Add(1)
		if int64(frameCountMax) > maxSeen.Load() {
			maxSeen.Store(int64(frameCountMax))
		}
		left := frameCountMax
		for left > 0 {
			areas, n, err := s.BeginWrite(left)
			if err != nil || n == 0 {
				return
			}
			for f := range n {
				for _, a := range areas {
					a.SetFloat32(f, 0)
				}
			}
			if s.EndWrite() != nil {
				return
			}
			left -= n
		}
	}
	require.NoError(t, s.Open())
	assert.Equal(t, soundio.FormatFloat32NE, s.Format)
	assert.Positive(t, s.SoftwareLatency)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	assert.Positive(t, maxSeen.Load())
}
