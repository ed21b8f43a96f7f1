package soundio

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generationSnapshot builds a snapshot whose device ids all share the prefix
// g<gen>-, so a flush that mixes two snapshots is detectable.
func generationSnapshot(gen int, live *atomic.Int32) *DevicesInfo {
	info := NewDevicesInfo()
	for j := range 3 {
		d := NewDevice(fmt.Sprintf("g%d-%d", gen, j), "gen", DeviceAimOutput, false)
		d.SetRelease(func(*Device) { live.Add(-1) })
		live.Add(1)
		info.Add(d, j == 0)
	}
	return info
}

func assertConsistent(t *testing.T, c *Context) {
	t.Helper()
	if c.devices == nil {
		return
	}
	require.Len(t, c.devices.OutputDevices, 3)
	prefix, _, _ := strings.Cut(c.devices.OutputDevices[0].ID, "-")
	for _, d := range c.devices.OutputDevices {
		assert.True(t, strings.HasPrefix(d.ID, prefix+"-"), "mixed snapshot: %s in %s", d.ID, prefix)
	}
	assert.Equal(t, 0, c.devices.DefaultOutputIndex)
}

func TestPublishUnderConcurrentFlush(t *testing.T) {
	c := newTestContext(t, nil)
	var w DeviceWatch
	w.Attach(c)

	var live atomic.Int32
	var wg sync.WaitGroup
	for g := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Publish(generationSnapshot(g, &live))
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

loop:
	for {
		w.FlushEvents()
		assertConsistent(t, c)
		select {
		case <-done:
			break loop
		default:
		}
	}
	w.FlushEvents()
	assertConsistent(t, c)

	// Only the installed snapshot survives.
	assert.Equal(t, int32(3), live.Load())
	c.devices.Release()
	c.devices = nil
	w.Close()
	assert.Equal(t, int32(0), live.Load())
}

func TestPublishReplacesUnclaimedSnapshot(t *testing.T) {
	c := newTestContext(t, nil)
	var w DeviceWatch
	w.Attach(c)

	var live atomic.Int32
	w.Publish(generationSnapshot(1, &live))
	w.Publish(generationSnapshot(2, &live))
	assert.Equal(t, int32(3), live.Load(), "first snapshot must be released on replace")

	w.FlushEvents()
	require.NotNil(t, c.devices)
	assert.Equal(t, "g2-0", c.devices.OutputDevices[0].ID)
	assert.Same(t, c, c.devices.OutputDevices[0].Context())

	c.devices.Release()
	c.devices = nil
	assert.Equal(t, int32(0), live.Load())
}

func TestCloseReleasesUnclaimedSnapshot(t *testing.T) {
	var w DeviceWatch
	w.Attach(nil)

	var live atomic.Int32
	w.Publish(generationSnapshot(1, &live))
	w.Close()
	assert.Equal(t, int32(0), live.Load())
}

func TestDisconnectFirstWins(t *testing.T) {
	c := newTestContext(t, nil)
	var got []error
	c.OnBackendDisconnect = func(_ *Context, err error) {
		got = append(got, err)
	}

	var w DeviceWatch
	w.Attach(c)
	first := newError(ErrBackendDisconnected, nil, "test")
	w.Disconnect(first)
	w.Disconnect(ErrStreaming)
	assert.True(t, w.IsDisconnected())

	w.FlushEvents()
	w.FlushEvents()
	require.Len(t, got, 1)
	assert.Same(t, first, got[0])
}

func TestDisconnectDefaultsToBackendDisconnected(t *testing.T) {
	c := newTestContext(t, nil)
	var got error
	c.OnBackendDisconnect = func(_ *Context, err error) { got = err }

	var w DeviceWatch
	w.Attach(c)
	w.Disconnect(nil)
	w.FlushEvents()
	assert.ErrorIs(t, got, ErrBackendDisconnected)
}

func TestWakeupUnblocksWaitEvents(t *testing.T) {
	var w DeviceWatch
	w.Attach(nil)
	w.Wakeup()
	w.WaitEvents() // consumes the pending wakeup

	done := make(chan struct{})
	go func() {
		w.WaitEvents()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitEvents returned without an event")
	case <-time.After(20 * time.Millisecond):
	}

	w.Wakeup()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wakeup did not unblock WaitEvents")
	}
}

func TestPublishSignalsEvents(t *testing.T) {
	c := newTestContext(t, nil)
	var signals atomic.Int32
	c.OnEventsSignal = func(*Context) { signals.Add(1) }

	var w DeviceWatch
	w.Attach(c)
	var live atomic.Int32
	w.Publish(generationSnapshot(1, &live))
	w.Disconnect(nil)
	w.Disconnect(nil)
	assert.Equal(t, int32(2), signals.Load())

	c.OnBackendDisconnect = func(*Context, error) {}
	w.FlushEvents()
	c.devices.Release()
	c.devices = nil
}
