//go:build cgo

package native

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"

	soundio "github.com/tphakala/go-soundio"
	"github.com/tphakala/go-soundio/internal/errors"
	"github.com/tphakala/go-soundio/internal/logger"
)

// OpenOutStream opens a playback device. The data callback drives
// WriteCallback directly on miniaudio's audio thread.
func (b *Backend) OpenOutStream(s *soundio.OutStream) (soundio.OutStreamDriver, error) {
	o := &outStream{s: s, set: &b.streams}
	cfg, err := b.streamConfig(&o.conn, malgo.Playback, streamRequest{
		name:    s.Name,
		device:  s.Device,
		format:  s.Format,
		layout:  s.Layout,
		rate:    s.SampleRate,
		latency: s.SoftwareLatency,
	})
	if err != nil {
		return nil, err
	}
	s.LayoutError = o.conn.layoutErr
	s.SoftwareLatency = o.conn.latency()

	dev, err := b.initDevice(cfg, &o.conn, malgo.DeviceCallbacks{
		Data: o.onData,
		Stop: o.onStop,
	})
	if err != nil {
		return nil, openError(err, s.Device)
	}
	o.dev = dev
	o.fixed = b.profile.fixedPeriod
	if !b.streams.add(o) {
		o.Destroy()
		return nil, soundio.ErrBackendDisconnected
	}
	b.logOpened(s.Name, s.Device, &o.conn)
	return o, nil
}

// OpenInStream opens a capture device.
func (b *Backend) OpenInStream(s *soundio.InStream) (soundio.InStreamDriver, error) {
	in := &inStream{s: s, set: &b.streams}
	cfg, err := b.streamConfig(&in.conn, malgo.Capture, streamRequest{
		name:    s.Name,
		device:  s.Device,
		format:  s.Format,
		layout:  s.Layout,
		rate:    s.SampleRate,
		latency: s.SoftwareLatency,
	})
	if err != nil {
		return nil, err
	}
	s.LayoutError = in.conn.layoutErr
	s.SoftwareLatency = in.conn.latency()

	dev, err := b.initDevice(cfg, &in.conn, malgo.DeviceCallbacks{
		Data: in.onData,
		Stop: in.onStop,
	})
	if err != nil {
		return nil, openError(err, s.Device)
	}
	in.dev = dev
	in.fixed = b.profile.fixedPeriod
	if !b.streams.add(in) {
		in.Destroy()
		return nil, soundio.ErrBackendDisconnected
	}
	b.logOpened(s.Name, s.Device, &in.conn)
	return in, nil
}

type streamRequest struct {
	name    string
	device  *soundio.Device
	format  soundio.Format
	layout  soundio.ChannelLayout
	rate    int
	latency float64
}

// connection is the negotiated shape of an open device shared by both
// directions.
type connection struct {
	id             malgo.DeviceID
	channelMap     []uint8 // nil for the device's default order
	areas          []soundio.ChannelArea
	bytesPerSample int
	bytesPerFrame  int
	rate           int
	period         int
	layoutErr      error
}

func (c *connection) latency() float64 {
	return float64(c.period*defaultPeriods) / float64(c.rate)
}

// streamConfig validates the request against the device and fills conn.
func (b *Backend) streamConfig(conn *connection, kind malgo.DeviceType, req streamRequest) (malgo.DeviceConfig, error) {
	d := req.device
	cfg := malgo.DefaultDeviceConfig(kind)

	ft, ok := toMalgoFormat(req.format)
	if !ok || !d.SupportsFormat(req.format) {
		return cfg, incompatible(d, fmt.Errorf("format %s not supported", req.format))
	}
	if !d.SupportsSampleRate(req.rate) {
		return cfg, incompatible(d, fmt.Errorf("sample rate %d not supported", req.rate))
	}
	id, err := parseDeviceID(d.ID)
	if err != nil {
		return cfg, errors.New(err).
			Component("native").
			Category(errors.CategoryDevice).
			Kind(soundio.ErrNoSuchDevice).
			Context("device_id", d.ID).
			Build()
	}

	count := req.layout.ChannelCount()
	chmap, mapErr := channelMap(req.layout.Channels)

	conn.id = id
	conn.channelMap = chmap
	conn.layoutErr = mapErr
	conn.areas = make([]soundio.ChannelArea, count)
	conn.bytesPerSample = req.format.BytesPerSample()
	conn.bytesPerFrame = req.format.BytesPerFrame(count)
	conn.rate = req.rate
	conn.period = periodFrames(req.latency, req.rate, b.settings.PeriodFrames)

	sub := malgo.SubConfig{
		Format:    ft,
		Channels:  uint32(count),
		DeviceID:  conn.id.Pointer(),
		ShareMode: malgo.Shared,
	}
	if d.IsRaw {
		sub.ShareMode = malgo.Exclusive
	}
	if len(chmap) > 0 {
		sub.ChannelMap = unsafe.Pointer(&chmap[0])
	}
	if kind == malgo.Playback {
		cfg.Playback = sub
		cfg.Pulse.StreamNamePlayback = req.name
	} else {
		cfg.Capture = sub
		cfg.Pulse.StreamNameCapture = req.name
	}
	cfg.SampleRate = uint32(req.rate)
	cfg.PeriodSizeInFrames = uint32(conn.period)
	cfg.Periods = defaultPeriods
	cfg.Alsa.NoMMap = 1
	return cfg, nil
}

// logOpened records the stream name; miniaudio has no per-stream client
// name to hand it to.
// initDevice opens the miniaudio device. The channel map lives in Go memory
// and stays pinned while miniaudio copies it.
func (b *Backend) initDevice(cfg malgo.DeviceConfig, conn *connection, callbacks malgo.DeviceCallbacks) (*malgo.Device, error) {
	var pinner runtime.Pinner
	defer pinner.Unpin()
	if len(conn.channelMap) > 0 {
		pinner.Pin(&conn.channelMap[0])
	}
	return malgo.InitDevice(b.mctx.Context, cfg, callbacks)
}

func (b *Backend) logOpened(name string, d *soundio.Device, conn *connection) {
	b.log.Debug("device opened",
		logger.String("stream", name),
		logger.String("device", d.Name),
		logger.Bool("raw", d.IsRaw),
		logger.Int("period_frames", conn.period),
		logger.Bool("default_channel_order", conn.layoutErr != nil))
}

func incompatible(d *soundio.Device, err error) error {
	return errors.New(err).
		Component("native").
		Category(errors.CategoryDevice).
		Kind(soundio.ErrIncompatibleDevice).
		Context("device_id", d.ID).
		Build()
}

func openError(err error, d *soundio.Device) error {
	return errors.New(err).
		Component("native").
		Category(errors.CategoryDevice).
		Kind(soundio.ErrOpeningDevice).
		Context("device_id", d.ID).
		Context("device", d.Name).
		Build()
}

func startError(err error) error {
	return errors.New(err).
		Component("native").
		Category(errors.CategoryStream).
		Kind(soundio.ErrStreaming).
		Context("operation", "start").
		Build()
}

// device is the part of *malgo.Device a stream drives.
type device interface {
	Start() error
	Uninit()
}

// streamSet tracks the open streams of a backend. Destroy uninitializes
// them before the miniaudio context is freed; a stream destroyed later finds
// its device already gone.
type streamSet struct {
	mu     sync.Mutex
	live   map[destroyer]struct{}
	closed bool
}

type destroyer interface {
	Destroy()
}

// add reports false once the set has been closed.
func (ss *streamSet) add(d destroyer) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return false
	}
	if ss.live == nil {
		ss.live = make(map[destroyer]struct{})
	}
	ss.live[d] = struct{}{}
	return true
}

func (ss *streamSet) remove(d destroyer) {
	ss.mu.Lock()
	delete(ss.live, d)
	ss.mu.Unlock()
}

func (ss *streamSet) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.live)
}

// closeAll destroys every tracked stream and refuses new ones.
func (ss *streamSet) closeAll() {
	ss.mu.Lock()
	live := ss.live
	ss.live = nil
	ss.closed = true
	ss.mu.Unlock()

	for d := range live {
		d.Destroy()
	}
}

// callbackState is the per-callback bookkeeping both directions share.
// Only the audio thread touches it.
type callbackState struct {
	buf     []byte
	frames  int
	done    int
	granted int
}

func (cb *callbackState) begin(conn *connection, frameCount int) ([]soundio.ChannelArea, int, error) {
	if cb.buf == nil {
		return nil, 0, soundio.ErrInvalid
	}
	n := min(frameCount, cb.frames-cb.done)
	if n <= 0 {
		return nil, 0, nil
	}
	cb.granted = n
	areas := soundio.InterleavedAreas(conn.areas, cb.buf[cb.done*conn.bytesPerFrame:], conn.bytesPerSample, conn.bytesPerFrame, nil)
	return areas, n, nil
}

func (cb *callbackState) end() error {
	if cb.buf == nil {
		return soundio.ErrInvalid
	}
	cb.done += cb.granted
	cb.granted = 0
	return nil
}

type outStream struct {
	s     *soundio.OutStream
	dev   device
	set   *streamSet
	conn  connection
	fixed bool

	paused   atomic.Bool
	started  atomic.Bool
	stopping atomic.Bool

	cb          callbackState
	destroyOnce sync.Once
}

func (o *outStream) onData(out, _ []byte, frameCount uint32) {
	n := int(frameCount)
	if o.paused.Load() {
		clear(out)
		return
	}
	o.cb = callbackState{buf: out, frames: n}
	minFrames := 0
	if o.fixed {
		minFrames = n
	}
	o.s.WriteCallback(o.s, minFrames, n)
	if o.cb.done < n {
		clear(out[o.cb.done*o.conn.bytesPerFrame:])
		o.s.NotifyUnderflow()
	}
	o.cb.buf = nil
}

func (o *outStream) onStop() {
	if o.started.Load() && !o.stopping.Load() {
		go o.s.NotifyError(soundio.ErrStreaming)
	}
}

func (o *outStream) Start() error {
	if o.stopping.Load() {
		return soundio.ErrBackendDisconnected
	}
	o.started.Store(true)
	if err := o.dev.Start(); err != nil {
		o.started.Store(false)
		return startError(err)
	}
	return nil
}

// Pause keeps the device running and plays silence, so it is safe from
// inside WriteCallback.
func (o *outStream) Pause(pause bool) error {
	o.paused.Store(pause)
	return nil
}

func (o *outStream) BeginWrite(frameCount int) ([]soundio.ChannelArea, int, error) {
	return o.cb.begin(&o.conn, frameCount)
}

func (o *outStream) EndWrite() error {
	return o.cb.end()
}

func (o *outStream) ClearBuffer() error {
	return soundio.ErrIncompatibleBackend
}

// Latency estimates the queued audio as the full device buffer.
func (o *outStream) Latency() (float64, error) {
	return o.conn.latency(), nil
}

func (o *outStream) Destroy() {
	o.destroyOnce.Do(func() {
		o.stopping.Store(true)
		o.dev.Uninit()
		if o.set != nil {
			o.set.remove(o)
		}
	})
}

type inStream struct {
	s     *soundio.InStream
	dev   device
	set   *streamSet
	conn  connection
	fixed bool

	paused   atomic.Bool
	started  atomic.Bool
	stopping atomic.Bool

	cb          callbackState
	destroyOnce sync.Once
}

func (in *inStream) onData(_, input []byte, frameCount uint32) {
	if in.paused.Load() {
		return
	}
	n := int(frameCount)
	in.cb = callbackState{buf: input, frames: n}
	minFrames := 0
	if in.fixed {
		minFrames = n
	}
	in.s.ReadCallback(in.s, minFrames, n)
	if in.cb.done < n {
		in.s.NotifyOverflow()
	}
	in.cb.buf = nil
}

func (in *inStream) onStop() {
	if in.started.Load() && !in.stopping.Load() {
		go in.s.NotifyError(soundio.ErrStreaming)
	}
}

func (in *inStream) Start() error {
	if in.stopping.Load() {
		return soundio.ErrBackendDisconnected
	}
	in.started.Store(true)
	if err := in.dev.Start(); err != nil {
		in.started.Store(false)
		return startError(err)
	}
	return nil
}

// Pause drops captured frames until resumed.
func (in *inStream) Pause(pause bool) error {
	in.paused.Store(pause)
	return nil
}

func (in *inStream) BeginRead(frameCount int) ([]soundio.ChannelArea, int, error) {
	return in.cb.begin(&in.conn, frameCount)
}

func (in *inStream) EndRead() error {
	return in.cb.end()
}

func (in *inStream) Latency() (float64, error) {
	return in.conn.latency(), nil
}

func (in *inStream) Destroy() {
	in.destroyOnce.Do(func() {
		in.stopping.Store(true)
		in.dev.Uninit()
		if in.set != nil {
			in.set.remove(in)
		}
	})
}
