package soundio

import (
	"encoding/binary"
	"math"

	"github.com/tphakala/go-soundio/internal/errors"
)

// StreamState is the lifecycle position of a stream.
type StreamState int32

const (
	StateCreated StreamState = iota
	StateOpened
	StateStarted
	StatePaused
	StateDestroyed
	// StateError is entered on an unrecoverable streaming failure. The only
	// way out is Destroy.
	StateError
)

var streamStateNames = [...]string{
	StateCreated:   "created",
	StateOpened:    "opened",
	StateStarted:   "started",
	StatePaused:    "paused",
	StateDestroyed: "destroyed",
	StateError:     "error",
}

// String implements fmt.Stringer.
func (s StreamState) String() string {
	if s < 0 || int(s) >= len(streamStateNames) {
		return "unknown"
	}
	return streamStateNames[s]
}

// ChannelArea locates one channel's samples inside a buffer granted by
// BeginWrite or BeginRead. Sample i of the channel starts at Ptr[i*Step].
type ChannelArea struct {
	Ptr  []byte
	Step int
}

// Frame returns the channel's bytes from frame onwards.
func (a ChannelArea) Frame(frame int) []byte {
	return a.Ptr[frame*a.Step:]
}

// Sample returns the bytes of the sample at frame.
func (a ChannelArea) Sample(frame, bytesPerSample int) []byte {
	off := frame * a.Step
	return a.Ptr[off : off+bytesPerSample]
}

// SetFloat32 stores v at frame in native byte order.
func (a ChannelArea) SetFloat32(frame int, v float32) {
	binary.NativeEndian.PutUint32(a.Ptr[frame*a.Step:], math.Float32bits(v))
}

// Float32 loads the native-endian float at frame.
func (a ChannelArea) Float32(frame int) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(a.Ptr[frame*a.Step:]))
}

// SetFloat64 stores v at frame in native byte order.
func (a ChannelArea) SetFloat64(frame int, v float64) {
	binary.NativeEndian.PutUint64(a.Ptr[frame*a.Step:], math.Float64bits(v))
}

// Float64 loads the native-endian double at frame.
func (a ChannelArea) Float64(frame int) float64 {
	return math.Float64frombits(binary.NativeEndian.Uint64(a.Ptr[frame*a.Step:]))
}

// SetInt16 stores v at frame in native byte order.
func (a ChannelArea) SetInt16(frame int, v int16) {
	binary.NativeEndian.PutUint16(a.Ptr[frame*a.Step:], uint16(v))
}

// Int16 loads the native-endian 16-bit sample at frame.
func (a ChannelArea) Int16(frame int) int16 {
	return int16(binary.NativeEndian.Uint16(a.Ptr[frame*a.Step:]))
}

// SetInt32 stores v at frame in native byte order.
func (a ChannelArea) SetInt32(frame int, v int32) {
	binary.NativeEndian.PutUint32(a.Ptr[frame*a.Step:], uint32(v))
}

// Int32 loads the native-endian 32-bit sample at frame.
func (a ChannelArea) Int32(frame int) int32 {
	return int32(binary.NativeEndian.Uint32(a.Ptr[frame*a.Step:]))
}

// InterleavedAreas fills dst with areas describing an interleaved buffer.
// Stream channel i is read from device channel mapping[i]; a nil mapping is
// the identity. dst must have room for every channel, so the call does not
// allocate and is safe on the real-time path.
func InterleavedAreas(dst []ChannelArea, buf []byte, bytesPerSample, bytesPerFrame int, mapping []int) []ChannelArea {
	for i := range dst {
		ch := i
		if mapping != nil {
			ch = mapping[i]
		}
		dst[i] = ChannelArea{Ptr: buf[ch*bytesPerSample:], Step: bytesPerFrame}
	}
	return dst
}

// defaultStreamFormat picks native-endian float when the device has it,
// otherwise its first format.
func defaultStreamFormat(d *Device) Format {
	if d == nil || len(d.Formats) == 0 || d.SupportsFormat(FormatFloat32NE) {
		return FormatFloat32NE
	}
	return d.Formats[0]
}

// defaultStreamLayout picks stereo when the device has it, otherwise its
// first layout.
func defaultStreamLayout(d *Device) ChannelLayout {
	stereo := BuiltinLayout(LayoutStereo)
	if d == nil || len(d.Layouts) == 0 || d.SupportsLayout(stereo) {
		return stereo
	}
	return d.Layouts[0].Clone()
}

const defaultSampleRate = 48000

func defaultStreamRate(d *Device) int {
	if d == nil {
		return defaultSampleRate
	}
	return d.NearestSampleRate(defaultSampleRate)
}

// streamParams holds what Open validates for both directions.
type streamParams struct {
	device          *Device
	aim             DeviceAim
	format          Format
	layout          ChannelLayout
	sampleRate      int
	softwareLatency float64
	hasCallback     bool
}

// validateStream checks the request and returns the backend to open it on.
func validateStream(p streamParams, component string) (*Context, Backend, error) {
	if p.device == nil {
		return nil, nil, newError(ErrInvalid, nil, component)
	}
	c := p.device.Context()
	if c == nil {
		return nil, nil, newError(ErrInvalid, errors.NewStd("device was not published by a context"), component)
	}
	b, err := c.activeBackend()
	if err != nil {
		return nil, nil, err
	}
	if p.device.connection != c.connectionID() {
		return nil, nil, errors.New(errors.NewStd("device was scanned by an earlier connection")).
			Component(component).
			Category(errors.CategoryDevice).
			Kind(ErrNoSuchDevice).
			Context("device_id", p.device.ID).
			Build()
	}

	var reason string
	switch {
	case p.device.Aim != p.aim:
		reason = "device aim does not match stream direction"
	case !p.format.Valid():
		reason = "invalid sample format"
	case p.layout.ChannelCount() == 0 || p.layout.ChannelCount() > MaxChannels:
		reason = "channel count out of range"
	case p.sampleRate <= 0:
		reason = "sample rate must be positive"
	case p.softwareLatency < 0:
		reason = "software latency must not be negative"
	case !p.hasCallback:
		reason = "stream callback is required"
	}
	if reason != "" {
		return nil, nil, errors.New(errors.NewStd(reason)).
			Component(component).
			Category(errors.CategoryValidation).
			Kind(ErrInvalid).
			Context("device_id", p.device.ID).
			Build()
	}

	if p.device.ProbeError != nil {
		kind := errors.KindOf(p.device.ProbeError)
		if kind == errors.KindNone {
			kind = ErrOpeningDevice
		}
		return nil, nil, newError(kind, p.device.ProbeError, component)
	}
	return c, b, nil
}
