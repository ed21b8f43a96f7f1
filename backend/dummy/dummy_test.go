package dummy_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	soundio "github.com/tphakala/go-soundio"
	"github.com/tphakala/go-soundio/backend/dummy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newContext(t *testing.T, mutate func(*soundio.Settings)) *soundio.Context {
	t.Helper()
	settings := soundio.DefaultSettings()
	settings.Logging.Console.Enabled = false
	if mutate != nil {
		mutate(settings)
	}
	c, err := soundio.CreateWithSettings(settings)
	require.NoError(t, err)
	t.Cleanup(c.Destroy)

	require.NoError(t, c.ConnectBackend(soundio.BackendDummy))
	c.FlushEvents()
	return c
}

func outputDevice(t *testing.T, c *soundio.Context) *soundio.Device {
	t.Helper()
	d, err := c.GetOutputDevice(c.DefaultOutputDeviceIndex())
	require.NoError(t, err)
	t.Cleanup(d.Unref)
	return d
}

func inputDevice(t *testing.T, c *soundio.Context) *soundio.Device {
	t.Helper()
	d, err := c.GetInputDevice(c.DefaultInputDeviceIndex())
	require.NoError(t, err)
	t.Cleanup(d.Unref)
	return d
}

// writeAll fills every granted frame with value.
func writeAll(s *soundio.OutStream, frames int, value float32) {
	for frames > 0 {
		areas, n, err := s.BeginWrite(frames)
		if err != nil || n == 0 {
			return
		}
		for f := range n {
			for _, a := range areas {
				a.SetFloat32(f, value)
			}
		}
		if err := s.EndWrite(); err != nil {
			return
		}
		frames -= n
	}
}

func TestDeviceTable(t *testing.T) {
	c := newContext(t, nil)

	require.Equal(t, 1, c.OutputDeviceCount())
	require.Equal(t, 1, c.InputDeviceCount())
	assert.Equal(t, 0, c.DefaultOutputDeviceIndex())
	assert.Equal(t, 0, c.DefaultInputDeviceIndex())

	out := outputDevice(t, c)
	assert.Equal(t, dummy.OutputDeviceID, out.ID)
	assert.Equal(t, "Dummy Output Device", out.Name)
	assert.Equal(t, soundio.DeviceAimOutput, out.Aim)
	assert.False(t, out.IsRaw)
	assert.NoError(t, out.ProbeError)
	assert.Same(t, c, out.Context())

	in := inputDevice(t, c)
	assert.Equal(t, dummy.InputDeviceID, in.ID)
	assert.Equal(t, "Dummy Input Device", in.Name)

	for _, d := range []*soundio.Device{out, in} {
		assert.Len(t, d.Layouts, soundio.BuiltinLayoutCount())
		for i := 1; i < len(d.Layouts); i++ {
			assert.GreaterOrEqual(t, d.Layouts[i-1].ChannelCount(), d.Layouts[i].ChannelCount())
		}
		assert.ElementsMatch(t, soundio.AllFormats(), d.Formats)
		assert.Equal(t, soundio.FormatFloat32NE, d.CurrentFormat)
		assert.True(t, soundio.LayoutEqual(soundio.BuiltinLayout(soundio.LayoutStereo), d.CurrentLayout))
		assert.Equal(t, []soundio.SampleRateRange{{Min: dummy.MinSampleRate, Max: dummy.MaxSampleRate}}, d.SampleRates)
		assert.Equal(t, 48000, d.SampleRateCurrent)
		assert.InDelta(t, 0.01, d.SoftwareLatencyMin, 1e-9)
		assert.InDelta(t, 0.1, d.SoftwareLatencyCurrent, 1e-9)
		assert.InDelta(t, 4.0, d.SoftwareLatencyMax, 1e-9)
		assert.NoError(t, d.Validate())
	}
}

func TestDeviceNamesFromSettings(t *testing.T) {
	c := newContext(t, func(s *soundio.Settings) {
		s.Dummy.OutputName = "Speakers"
		s.Dummy.InputName = "Mic"
	})

	assert.Equal(t, "Speakers", outputDevice(t, c).Name)
	assert.Equal(t, "Mic", inputDevice(t, c).Name)
}

func TestForceDeviceScanRepublishes(t *testing.T) {
	c := newContext(t, nil)

	var changes atomic.Int32
	c.OnDevicesChange = func(*soundio.Context) { changes.Add(1) }

	c.ForceDeviceScan()
	c.FlushEvents()
	assert.Equal(t, int32(1), changes.Load())
	assert.Equal(t, 1, c.OutputDeviceCount())

	// nothing new to deliver
	c.FlushEvents()
	assert.Equal(t, int32(1), changes.Load())
}

func TestOutStreamWriteCallback(t *testing.T) {
	c := newContext(t, nil)

	var calls, maxSeen atomic.Int64
	var latencyOK atomic.Bool
	s := soundio.NewOutStream(outputDevice(t, c))
	s.WriteCallback = func(s *soundio.OutStream, frameCountMin, frameCountMax int) {
		calls.Add(1)
		if int64(frameCountMax) > maxSeen.Load() {
			maxSeen.Store(int64(frameCountMax))
		}
		writeAll(s, frameCountMax, 0.25)
		if l, err := s.Latency(); err == nil && l >= 0 {
			latencyOK.Store(true)
		}
	}
	require.NoError(t, s.Open())
	defer s.Destroy()

	assert.Equal(t, soundio.FormatFloat32NE, s.Format)
	assert.Equal(t, 48000, s.SampleRate)
	assert.Equal(t, 8, s.BytesPerFrame)
	assert.Equal(t, 4, s.BytesPerSample)
	assert.GreaterOrEqual(t, s.SoftwareLatency, 0.1)
	assert.Equal(t, soundio.StateOpened, s.State())

	require.NoError(t, s.Start())
	assert.Equal(t, soundio.StateStarted, s.State())

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)
	assert.Positive(t, maxSeen.Load())
	assert.True(t, latencyOK.Load())
}

func TestOutStreamUnderflow(t *testing.T) {
	c := newContext(t, nil)

	var underflows atomic.Int32
	s := soundio.NewOutStream(outputDevice(t, c))
	s.SoftwareLatency = 0.01
	// write nothing so the simulated device runs dry
	s.WriteCallback = func(*soundio.OutStream, int, int) {}
	s.UnderflowCallback = func(*soundio.OutStream) { underflows.Add(1) }
	require.NoError(t, s.Open())
	defer s.Destroy()
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return underflows.Load() > 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestOutStreamPauseFromCallback(t *testing.T) {
	c := newContext(t, nil)

	var calls atomic.Int32
	s := soundio.NewOutStream(outputDevice(t, c))
	s.WriteCallback = func(s *soundio.OutStream, _, frameCountMax int) {
		writeAll(s, frameCountMax, 0)
		if calls.Add(1) == 1 {
			_ = s.Pause(true)
		}
	}
	require.NoError(t, s.Open())
	defer s.Destroy()
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return s.State() == soundio.StatePaused }, 5*time.Second, time.Millisecond)
	require.NoError(t, s.Pause(true), "pausing twice is a no-op")
	require.NoError(t, s.Pause(false))
	assert.Equal(t, soundio.StateStarted, s.State())
}

func TestOutStreamClearBuffer(t *testing.T) {
	c := newContext(t, nil)

	var calls atomic.Int32
	s := soundio.NewOutStream(outputDevice(t, c))
	s.WriteCallback = func(s *soundio.OutStream, _, frameCountMax int) {
		calls.Add(1)
		writeAll(s, frameCountMax, 0)
	}
	require.NoError(t, s.Open())
	defer s.Destroy()
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, time.Millisecond)

	before := calls.Load()
	require.NoError(t, s.ClearBuffer())
	require.Eventually(t, func() bool { return calls.Load() > before }, 5*time.Second, time.Millisecond)
}

func TestOutStreamRejectsUnsupportedRate(t *testing.T) {
	c := newContext(t, nil)

	s := soundio.NewOutStream(outputDevice(t, c))
	defer s.Destroy()
	s.SampleRate = 4000
	s.WriteCallback = func(*soundio.OutStream, int, int) {}

	err := s.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, soundio.ErrIncompatibleDevice)
	assert.Equal(t, soundio.StateCreated, s.State())
}

func TestInStreamReadsSilence(t *testing.T) {
	c := newContext(t, nil)

	var frames atomic.Int64
	var nonZero atomic.Bool
	s := soundio.NewInStream(inputDevice(t, c))
	s.Format = soundio.FormatS16NE
	s.Layout = soundio.BuiltinLayout(soundio.LayoutMono)
	s.ReadCallback = func(s *soundio.InStream, _, frameCountMax int) {
		left := frameCountMax
		for left > 0 {
			areas, n, err := s.BeginRead(left)
			if err != nil || n == 0 {
				return
			}
			if areas != nil {
				for f := range n {
					if areas[0].Int16(f) != 0 {
						nonZero.Store(true)
					}
				}
			}
			_ = s.EndRead()
			frames.Add(int64(n))
			left -= n
		}
	}
	require.NoError(t, s.Open())
	defer s.Destroy()
	assert.Equal(t, 2, s.BytesPerFrame)

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return frames.Load() > 0 }, 5*time.Second, 5*time.Millisecond)
	assert.False(t, nonZero.Load())
}

func TestInStreamOverflow(t *testing.T) {
	c := newContext(t, nil)

	var overflows atomic.Int32
	s := soundio.NewInStream(inputDevice(t, c))
	s.SoftwareLatency = 0.01
	// never read so the ring fills up
	s.ReadCallback = func(*soundio.InStream, int, int) {}
	s.OverflowCallback = func(*soundio.InStream) { overflows.Add(1) }
	require.NoError(t, s.Open())
	defer s.Destroy()
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return overflows.Load() > 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestDestroyWithoutStart(t *testing.T) {
	c := newContext(t, nil)

	d := outputDevice(t, c)
	before := d.RefCount()

	s := soundio.NewOutStream(d)
	s.WriteCallback = func(*soundio.OutStream, int, int) {}
	require.NoError(t, s.Open())
	assert.Equal(t, before+1, d.RefCount())

	s.Destroy()
	s.Destroy()
	assert.Equal(t, soundio.StateDestroyed, s.State())
	assert.Equal(t, before, d.RefCount())
}
