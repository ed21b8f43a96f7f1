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

// InStream records audio from an input device. Field rules match OutStream.
type InStream struct {
	Device          *Device
	Format          Format
	SampleRate      int
	Layout          ChannelLayout
	SoftwareLatency float64

	Name            string
	NonTerminalHint bool

	UserData any

	// ReadCallback runs on the real-time goroutine when frames are
	// available. It must consume at least frameCountMin frames through
	// BeginRead/EndRead and may consume up to frameCountMax.
	ReadCallback func(s *InStream, frameCountMin, frameCountMax int)
	// OverflowCallback is optional and runs on the real-time goroutine.
	OverflowCallback func(s *InStream)
	// ErrorCallback receives unrecoverable errors. Without it a stream
	// error panics.
	ErrorCallback func(s *InStream, err error)

	BytesPerFrame  int
	BytesPerSample int
	LayoutError    error

	id      string
	state   atomic.Int32
	ctx     *Context
	driver  InStreamDriver
	metrics *metrics.StreamMetrics
	log     logger.Logger

	destroyOnce sync.Once
}

// NewInStream creates a stream on d with the device's preferred defaults.
func NewInStream(d *Device) *InStream {
	if d != nil {
		d.Ref()
	}
	return &InStream{
		Device:     d,
		Format:     defaultStreamFormat(d),
		SampleRate: defaultStreamRate(d),
		Layout:     defaultStreamLayout(d),
		id:         uuid.NewString(),
	}
}

// ID returns a unique identifier for log correlation.
func (s *InStream) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *InStream) State() StreamState { return StreamState(s.state.Load()) }

// Context returns the context the stream was opened on, nil before Open.
func (s *InStream) Context() *Context { return s.ctx }

// Open validates the configuration and opens the stream on the backend.
func (s *InStream) Open() error {
	if s.State() != StateCreated {
		return newError(ErrInvalid, errors.NewStd("stream already opened"), "instream")
	}
	c, b, err := validateStream(streamParams{
		device:          s.Device,
		aim:             DeviceAimInput,
		format:          s.Format,
		layout:          s.Layout,
		sampleRate:      s.SampleRate,
		softwareLatency: s.SoftwareLatency,
		hasCallback:     s.ReadCallback != nil,
	}, "instream")
	if err != nil {
		return err
	}

	if s.Name == "" {
		s.Name = "SoundIoInStream"
	}
	s.BytesPerSample = s.Format.BytesPerSample()
	s.BytesPerFrame = s.Format.BytesPerFrame(s.Layout.ChannelCount())
	s.ctx = c
	s.log = c.Logger().Module("instream").With(logger.String("stream_id", s.id))

	driver, err := b.OpenInStream(s)
	if err != nil {
		s.log.Warn("open failed",
			logger.String("device", s.Device.Name),
			logger.Error(err))
		return err
	}
	s.driver = driver
	s.metrics = c.Metrics().Stream(c.CurrentBackend().String(), DeviceAimInput.String())
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

// Start begins invoking ReadCallback.
func (s *InStream) Start() error {
	if !s.state.CompareAndSwap(int32(StateOpened), int32(StateStarted)) {
		return s.stateError()
	}
	if err := s.driver.Start(); err != nil {
		s.state.CompareAndSwap(int32(StateStarted), int32(StateOpened))
		return err
	}
	return nil
}

// Pause pauses or resumes capture. It must not be called from ReadCallback.
func (s *InStream) Pause(pause bool) error {
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

// BeginRead returns up to frameCount captured frames. A nil areas result
// with frames > 0 is a hole where data was lost; it must still be
// acknowledged with EndRead. When frames is 0, skip EndRead.
func (s *InStream) BeginRead(frameCount int) ([]ChannelArea, int, error) {
	if frameCount <= 0 || s.driver == nil {
		return nil, 0, ErrInvalid
	}
	return s.driver.BeginRead(frameCount)
}

// EndRead releases the frames returned by the last BeginRead.
func (s *InStream) EndRead() error {
	if s.driver == nil {
		return ErrInvalid
	}
	return s.driver.EndRead()
}

// Latency returns seconds between capture and delivery of the next frame.
// Call only from ReadCallback.
func (s *InStream) Latency() (float64, error) {
	if s.driver == nil {
		return 0, ErrInvalid
	}
	return s.driver.Latency()
}

// Destroy stops the stream and releases the device reference. Idempotent.
func (s *InStream) Destroy() {
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

// NotifyOverflow is called by drivers when captured frames were dropped
// because the application did not keep up.
func (s *InStream) NotifyOverflow() {
	s.metrics.Xrun()
	if cb := s.OverflowCallback; cb != nil {
		cb(s)
	}
}

// NotifyError is called by drivers on an unrecoverable failure.
func (s *InStream) NotifyError(err error) {
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
	panic(fmt.Sprintf("soundio: unhandled input stream error: %v", err))
}

func (s *InStream) stateError() error {
	return streamStateError(s.State(), "instream")
}
