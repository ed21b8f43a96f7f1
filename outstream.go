package soundio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tphakala/go-soundio/internal/errors"
	"github.com/tphakala/go-soundio/internal/logger"
	"github.com/tphakala/go-soundio/internal/observability/metrics"
)

// OutStream plays audio to an output device.
//
// Configure the exported fields after NewOutStream and before Open. After
// Open they are read-only; BytesPerFrame, BytesPerSample, LayoutError and
// SoftwareLatency then hold the negotiated values.
type OutStream struct {
	Device     *Device
	Format     Format
	SampleRate int
	Layout     ChannelLayout

	// SoftwareLatency is the requested latency in seconds, 0 for the
	// backend default. Open replaces it with the actual value.
	SoftwareLatency float64

	// Name identifies the stream to sound servers that show per-stream names.
	Name string
	// NonTerminalHint tells JACK the stream is not a final destination.
	NonTerminalHint bool

	UserData any

	// WriteCallback runs on the real-time goroutine whenever the backend
	// needs frames. It must call BeginWrite/EndWrite until at least
	// frameCountMin frames are written and may write up to frameCountMax.
	// It must not block, allocate or log.
	WriteCallback func(s *OutStream, frameCountMin, frameCountMax int)
	// UnderflowCallback is optional and runs on the real-time goroutine.
	UnderflowCallback func(s *OutStream)
	// ErrorCallback receives unrecoverable errors. Without it a stream
	// error panics.
	ErrorCallback func(s *OutStream, err error)

	BytesPerFrame  int
	BytesPerSample int
	// LayoutError is set when the device could not honor Layout channel by
	// channel and channels were connected in declared order instead.
	LayoutError error

	id      string
	state   atomic.Int32
	ctx     *Context
	driver  OutStreamDriver
	metrics *metrics.StreamMetrics
	log     logger.Logger

	destroyOnce sync.Once
}

// NewOutStream creates a stream on d with the device's preferred defaults.
// The stream holds its own reference to d until Destroy.
func NewOutStream(d *Device) *OutStream {
	if d != nil {
		d.Ref()
	}
	return &OutStream{
		Device:     d,
		Format:     defaultStreamFormat(d),
		SampleRate: defaultStreamRate(d),
		Layout:     defaultStreamLayout(d),
		id:         uuid.NewString(),
	}
}

// ID returns a unique identifier for log correlation.
func (s *OutStream) ID() string { return s.id }

// State returns the current lifecycle state. Safe from any goroutine.
func (s *OutStream) State() StreamState { return StreamState(s.state.Load()) }

// Context returns the context the stream was opened on, nil before Open.
func (s *OutStream) Context() *Context { return s.ctx }

// Open validates the configuration and opens the stream on the backend.
// On failure the stream stays in StateCreated and may be reconfigured.
func (s *OutStream) Open() error {
	if s.State() != StateCreated {
		return newError(ErrInvalid, errors.NewStd("stream already opened"), "outstream")
	}
	c, b, err := validateStream(streamParams{
		device:          s.Device,
		aim:             DeviceAimOutput,
		format:          s.Format,
		layout:          s.Layout,
		sampleRate:      s.SampleRate,
		softwareLatency: s.SoftwareLatency,
		hasCallback:     s.WriteCallback != nil,
	}, "outstream")
	if err != nil {
		return err
	}

	if s.Name == "" {
		s.Name = "SoundIoOutStream"
	}
	s.BytesPerSample = s.Format.BytesPerSample()
	s.BytesPerFrame = s.Format.BytesPerFrame(s.Layout.ChannelCount())
	s.ctx = c
	s.log = c.Logger().Module("outstream").With(logger.String("stream_id", s.id))

	driver, err := b.OpenOutStream(s)
	if err != nil {
		s.log.Warn("open failed",
			logger.String("device", s.Device.Name),
			logger.Error(err))
		return err
	}
	s.driver = driver
	s.metrics = c.Metrics().Stream(c.CurrentBackend().String(), DeviceAimOutput.String())
	s.metrics.Opened()
	s.state.Store(int32(StateOpened))

	s.log.Debug("opened",
		logger.String("device", s.Device.Name),
		logger.String("format", s.Format.String()),
		logger.Int("sample_rate", s.SampleRate),
		logger.String("layout", s.Layout.String()),
		logger.Float64("software_latency", s.SoftwareLatency))
	return nil
}

// Start begins invoking WriteCallback. Some backends call it once before
// Start returns to prime their buffer.
func (s *OutStream) Start() error {
	if !s.state.CompareAndSwap(int32(StateOpened), int32(StateStarted)) {
		return s.stateError()
	}
	if err := s.driver.Start(); err != nil {
		s.state.CompareAndSwap(int32(StateStarted), int32(StateOpened))
		return err
	}
	return nil
}

// Pause pauses or resumes the stream. Pausing a paused stream is a no-op.
// Unlike InStream.Pause it may be called from WriteCallback.
func (s *OutStream) Pause(pause bool) error {
	cur := s.State()
	switch cur {
	case StateStarted:
		if !pause {
			return nil
		}
	case StatePaused:
		if pause {
			return nil
		}
	default:
		return s.stateError()
	}
	if err := s.driver.Pause(pause); err != nil {
		return err
	}
	next := StateStarted
	if pause {
		next = StatePaused
	}
	s.state.CompareAndSwap(int32(cur), int32(next))
	return nil
}

// BeginWrite asks for frameCount frames of buffer. The grant may be
// smaller, never larger. Call only from WriteCallback; on error do not call
// EndWrite.
func (s *OutStream) BeginWrite(frameCount int) ([]ChannelArea, int, error) {
	if frameCount <= 0 || s.driver == nil {
		return nil, 0, ErrInvalid
	}
	return s.driver.BeginWrite(frameCount)
}

// EndWrite commits the frames granted by the last BeginWrite.
func (s *OutStream) EndWrite() error {
	if s.driver == nil {
		return ErrInvalid
	}
	return s.driver.EndWrite()
}

// ClearBuffer discards queued frames where the backend supports it and
// returns ErrIncompatibleBackend otherwise.
func (s *OutStream) ClearBuffer() error {
	if s.driver == nil {
		return s.stateError()
	}
	return s.driver.ClearBuffer()
}

// Latency returns seconds until the next written frame is audible. Call
// only from WriteCallback.
func (s *OutStream) Latency() (float64, error) {
	if s.driver == nil {
		return 0, ErrInvalid
	}
	return s.driver.Latency()
}

// Destroy stops the stream, releases backend resources and the device
// reference. Safe to call more than once and after an error.
func (s *OutStream) Destroy() {
	s.destroyOnce.Do(func() {
		s.state.Store(int32(StateDestroyed))
		if s.driver != nil {
			s.driver.Destroy()
			s.metrics.Closed()
			s.log.Debug("destroyed")
		}
		if s.Device != nil {
			s.Device.Unref()
		}
	})
}

// NotifyUnderflow is called by drivers when the device ran out of frames.
func (s *OutStream) NotifyUnderflow() {
	s.metrics.Xrun()
	if cb := s.UnderflowCallback; cb != nil {
		cb(s)
	}
}

// NotifyError is called by drivers on an unrecoverable failure. The stream
// moves to StateError and ErrorCallback runs once.
func (s *OutStream) NotifyError(err error) {
	if !enterErrorState(&s.state) {
		return
	}
	s.metrics.Error()
	if s.log != nil {
		s.log.Error("stream failed", logger.Error(err))
	}
	if cb := s.ErrorCallback; cb != nil {
		cb(s, err)
		return
	}
	panic(fmt.Sprintf("soundio: unhandled output stream error: %v", err))
}

func (s *OutStream) stateError() error {
	return streamStateError(s.State(), "outstream")
}

// enterErrorState moves a live stream to StateError. It reports false when
// the stream is already failed or destroyed.
func enterErrorState(state *atomic.Int32) bool {
	for {
		cur := state.Load()
		if cur == int32(StateError) || cur == int32(StateDestroyed) {
			return false
		}
		if state.CompareAndSwap(cur, int32(StateError)) {
			return true
		}
	}
}

func streamStateError(state StreamState, component string) error {
	if state == StateError {
		return ErrStreaming
	}
	return errors.Newf("operation not allowed in state %s", state).
		Component(component).
		Category(errors.CategoryState).
		Kind(ErrInvalid).
		Build()
}
