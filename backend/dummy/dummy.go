// Package dummy provides a backend with one fake output and one fake input
// device. Streams are driven by a goroutine clock and move audio through an
// in-memory ring buffer, so it works anywhere, including CI.
//
// Import it for its side effect:
//
//	import _ "github.com/tphakala/go-soundio/backend/dummy"
package dummy

import (
	"sync"
	"time"

	soundio "github.com/tphakala/go-soundio"
	"github.com/tphakala/go-soundio/internal/conf"
	"github.com/tphakala/go-soundio/internal/logger"
	"github.com/tphakala/go-soundio/internal/observability/metrics"
)

// Device ids of the fixed device table.
const (
	OutputDeviceID = "dummy-out"
	InputDeviceID  = "dummy-in"
)

// Rate bounds advertised by both devices.
const (
	MinSampleRate = 8000
	MaxSampleRate = 5644800
)

func init() {
	soundio.RegisterBackend(soundio.BackendDummy, func() soundio.Backend {
		return &Backend{}
	})
}

// Backend is the dummy driver. The zero value is ready for Init.
type Backend struct {
	soundio.DeviceWatch

	ctx      *soundio.Context
	log      logger.Logger
	settings conf.DummySettings

	destroyOnce sync.Once
}

// Init publishes the device table before returning, so the first
// FlushEvents already sees both devices.
func (b *Backend) Init(c *soundio.Context) error {
	b.Attach(c)
	b.ctx = c
	b.log = c.Logger().Module("dummy")
	b.settings = c.Settings().Dummy

	b.publish()
	b.log.Debug("initialized",
		logger.String("output", b.settings.OutputName),
		logger.String("input", b.settings.InputName))
	return nil
}

// Destroy releases any snapshot the application never flushed.
func (b *Backend) Destroy() {
	b.destroyOnce.Do(func() {
		b.Close()
	})
}

// ForceDeviceScan republishes the device table.
func (b *Backend) ForceDeviceScan() {
	b.publish()
}

func (b *Backend) publish() {
	start := time.Now()
	info := soundio.NewDevicesInfo()
	info.Add(b.newDevice(OutputDeviceID, b.settings.OutputName, soundio.DeviceAimOutput), true)
	info.Add(b.newDevice(InputDeviceID, b.settings.InputName, soundio.DeviceAimInput), true)
	b.Publish(info)
	b.ctx.Metrics().RecordScan(soundio.BackendDummy.String(), metrics.ResultSuccess, time.Since(start))
}

func (b *Backend) newDevice(id, name string, aim soundio.DeviceAim) *soundio.Device {
	d := soundio.NewDevice(id, name, aim, false)
	d.Layouts = soundio.BuiltinLayouts()
	d.SortChannelLayouts()
	d.CurrentLayout = soundio.BuiltinLayout(soundio.LayoutStereo)
	d.Formats = soundio.AllFormats()
	d.CurrentFormat = soundio.FormatFloat32NE
	d.SampleRates = []soundio.SampleRateRange{{Min: MinSampleRate, Max: MaxSampleRate}}
	d.SampleRateCurrent = 48000
	d.SoftwareLatencyMin = b.settings.SoftwareLatencyMin
	d.SoftwareLatencyMax = b.settings.SoftwareLatencyMax
	d.SoftwareLatencyCurrent = b.settings.SoftwareLatencyCurrent
	return d
}

// OpenOutStream opens a playback stream. Any valid format, layout and rate
// within the advertised range is accepted.
func (b *Backend) OpenOutStream(s *soundio.OutStream) (soundio.OutStreamDriver, error) {
	if err := checkDevice(s.Device, OutputDeviceID, s.SampleRate); err != nil {
		return nil, err
	}
	return newOutStream(s, b.log)
}

// OpenInStream opens a capture stream that records silence.
func (b *Backend) OpenInStream(s *soundio.InStream) (soundio.InStreamDriver, error) {
	if err := checkDevice(s.Device, InputDeviceID, s.SampleRate); err != nil {
		return nil, err
	}
	return newInStream(s, b.log)
}
