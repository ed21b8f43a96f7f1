package dummy

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	soundio "github.com/tphakala/go-soundio"
	"github.com/tphakala/go-soundio/internal/errors"
	"github.com/tphakala/go-soundio/internal/logger"
)

// clock is the goroutine that stands in for the sound card. It wakes every
// period, or earlier when signalled, and runs tick.
type clock struct {
	period time.Duration
	paused atomic.Bool
	wake   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	stopOnce sync.Once
}

func (c *clock) setup(period time.Duration) {
	c.period = max(period, time.Millisecond)
	c.wake = make(chan struct{}, 1)
	c.done = make(chan struct{})
}

// signal wakes the clock without blocking. Safe from the real-time goroutine.
func (c *clock) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// start runs first once, then tick on every wakeup until stop.
func (c *clock) start(first func(), tick func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		first()

		timer := time.NewTimer(c.period)
		defer timer.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-c.wake:
			case <-timer.C:
			}
			tick()
			timer.Reset(c.period)
		}
	}()
}

// stop ends the goroutine and waits for it. Idempotent.
func (c *clock) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

// allocRing sizes a ring for the requested latency and reports the buffer
// length in frames and the latency it actually provides.
func allocRing(requested float64, d *soundio.Device, rate, bytesPerFrame int) (*soundio.RingBuffer, int, float64, error) {
	latency := requested
	if latency == 0 {
		latency = d.SoftwareLatencyCurrent
	}
	latency = min(max(latency, d.SoftwareLatencyMin), d.SoftwareLatencyMax)

	frames := int(math.Ceil(latency * float64(rate)))
	rb, err := soundio.NewRingBuffer(frames * bytesPerFrame)
	if err != nil {
		return nil, 0, 0, err
	}
	bufferFrames := rb.Capacity() / bytesPerFrame
	return rb, bufferFrames, float64(bufferFrames) / float64(rate), nil
}

func checkDevice(d *soundio.Device, wantID string, rate int) error {
	if d.ID != wantID {
		return errors.Newf("unknown device %q", d.ID).
			Component("dummy").
			Category(errors.CategoryDevice).
			Kind(soundio.ErrNoSuchDevice).
			Build()
	}
	if rate < MinSampleRate || rate > MaxSampleRate {
		return errors.Newf("sample rate %d outside [%d, %d]", rate, MinSampleRate, MaxSampleRate).
			Component("dummy").
			Category(errors.CategoryDevice).
			Kind(soundio.ErrIncompatibleDevice).
			Context("device_id", d.ID).
			Build()
	}
	return nil
}

// framesDue converts the time since start into a frame count.
func framesDue(start time.Time, rate int) int {
	return int(time.Since(start).Seconds() * float64(rate))
}

type outStream struct {
	clock

	s              *soundio.OutStream
	ring           *soundio.RingBuffer
	bytesPerFrame  int
	bytesPerSample int
	rate           int
	areas          []soundio.ChannelArea

	clearRequested atomic.Bool

	// clock goroutine only
	start       time.Time
	consumed    int
	framesLeft  int
	writeFrames int

	destroyOnce sync.Once
}

func newOutStream(s *soundio.OutStream, log logger.Logger) (*outStream, error) {
	rb, bufferFrames, latency, err := allocRing(s.SoftwareLatency, s.Device, s.SampleRate, s.BytesPerFrame)
	if err != nil {
		return nil, err
	}
	s.SoftwareLatency = latency

	o := &outStream{
		s:              s,
		ring:           rb,
		bytesPerFrame:  s.BytesPerFrame,
		bytesPerSample: s.BytesPerSample,
		rate:           s.SampleRate,
		areas:          make([]soundio.ChannelArea, s.Layout.ChannelCount()),
	}
	o.setup(time.Duration(latency / 2 * float64(time.Second)))
	log.Debug("output stream opened",
		logger.Int("buffer_frames", bufferFrames),
		logger.Float64("software_latency", latency),
		logger.Duration("period", o.period))
	return o, nil
}

func (o *outStream) Start() error {
	o.clock.start(o.restart, o.tick)
	return nil
}

// restart empties the ring, asks for a full buffer and resets the clock.
func (o *outStream) restart() {
	o.ring.Clear()
	o.requestFrames()
	o.consumed = 0
	o.start = time.Now()
}

func (o *outStream) requestFrames() {
	free := o.ring.FreeCount() / o.bytesPerFrame
	if free <= 0 {
		return
	}
	o.framesLeft = free
	o.s.WriteCallback(o.s, 0, free)
}

func (o *outStream) tick() {
	if o.clearRequested.Swap(false) {
		o.restart()
		return
	}
	if o.paused.Load() {
		o.start = time.Now()
		o.consumed = 0
		return
	}

	fillFrames := o.ring.FillCount() / o.bytesPerFrame
	due := framesDue(o.start, o.rate) - o.consumed
	played := min(due, fillFrames)
	o.ring.AdvanceRead(played * o.bytesPerFrame)
	o.consumed += played

	if due > fillFrames {
		o.s.NotifyUnderflow()
		o.requestFrames()
		o.consumed = 0
		o.start = time.Now()
		return
	}
	o.requestFrames()
}

func (o *outStream) Pause(pause bool) error {
	o.paused.Store(pause)
	o.signal()
	return nil
}

func (o *outStream) BeginWrite(frameCount int) ([]soundio.ChannelArea, int, error) {
	frames := min(frameCount, o.framesLeft)
	o.writeFrames = frames
	if frames <= 0 {
		return nil, 0, nil
	}
	areas := soundio.InterleavedAreas(o.areas, o.ring.WritePtr(), o.bytesPerSample, o.bytesPerFrame, nil)
	return areas, frames, nil
}

func (o *outStream) EndWrite() error {
	o.ring.AdvanceWrite(o.writeFrames * o.bytesPerFrame)
	o.framesLeft -= o.writeFrames
	o.writeFrames = 0
	return nil
}

// ClearBuffer is serviced on the next clock tick.
func (o *outStream) ClearBuffer() error {
	o.clearRequested.Store(true)
	o.signal()
	return nil
}

func (o *outStream) Latency() (float64, error) {
	return float64(o.ring.FillCount()/o.bytesPerFrame) / float64(o.rate), nil
}

func (o *outStream) Destroy() {
	o.destroyOnce.Do(func() {
		o.stop()
		_ = o.ring.Close()
	})
}

type inStream struct {
	clock

	s              *soundio.InStream
	ring           *soundio.RingBuffer
	bytesPerFrame  int
	bytesPerSample int
	rate           int
	areas          []soundio.ChannelArea

	// clock goroutine only
	start      time.Time
	consumed   int
	framesLeft int
	readFrames int

	destroyOnce sync.Once
}

func newInStream(s *soundio.InStream, log logger.Logger) (*inStream, error) {
	rb, bufferFrames, latency, err := allocRing(s.SoftwareLatency, s.Device, s.SampleRate, s.BytesPerFrame)
	if err != nil {
		return nil, err
	}
	s.SoftwareLatency = latency

	i := &inStream{
		s:              s,
		ring:           rb,
		bytesPerFrame:  s.BytesPerFrame,
		bytesPerSample: s.BytesPerSample,
		rate:           s.SampleRate,
		areas:          make([]soundio.ChannelArea, s.Layout.ChannelCount()),
	}
	i.setup(time.Duration(latency / 2 * float64(time.Second)))
	log.Debug("input stream opened",
		logger.Int("buffer_frames", bufferFrames),
		logger.Float64("software_latency", latency),
		logger.Duration("period", i.period))
	return i, nil
}

func (i *inStream) Start() error {
	i.clock.start(i.reset, i.tick)
	return nil
}

func (i *inStream) reset() {
	i.consumed = 0
	i.start = time.Now()
}

// tick records silence for the elapsed time and offers it to ReadCallback.
func (i *inStream) tick() {
	if i.paused.Load() {
		i.reset()
		return
	}

	freeFrames := i.ring.FreeCount() / i.bytesPerFrame
	due := framesDue(i.start, i.rate) - i.consumed
	captured := min(due, freeFrames)
	if captured > 0 {
		n := captured * i.bytesPerFrame
		clear(i.ring.WritePtr()[:n])
		i.ring.AdvanceWrite(n)
	}
	i.consumed += captured

	if due > freeFrames {
		i.s.NotifyOverflow()
		i.reset()
	}

	fillFrames := i.ring.FillCount() / i.bytesPerFrame
	if fillFrames > 0 {
		i.framesLeft = fillFrames
		i.s.ReadCallback(i.s, 0, fillFrames)
	}
}

// Pause must not be called from ReadCallback.
func (i *inStream) Pause(pause bool) error {
	i.paused.Store(pause)
	i.signal()
	return nil
}

func (i *inStream) BeginRead(frameCount int) ([]soundio.ChannelArea, int, error) {
	frames := min(frameCount, i.framesLeft)
	i.readFrames = frames
	if frames <= 0 {
		return nil, 0, nil
	}
	areas := soundio.InterleavedAreas(i.areas, i.ring.ReadPtr(), i.bytesPerSample, i.bytesPerFrame, nil)
	return areas, frames, nil
}

func (i *inStream) EndRead() error {
	i.ring.AdvanceRead(i.readFrames * i.bytesPerFrame)
	i.framesLeft -= i.readFrames
	i.readFrames = 0
	return nil
}

func (i *inStream) Latency() (float64, error) {
	return float64(i.ring.FillCount()/i.bytesPerFrame) / float64(i.rate), nil
}

func (i *inStream) Destroy() {
	i.destroyOnce.Do(func() {
		i.stop()
		_ = i.ring.Close()
	})
}
