package soundio

import (
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/tphakala/go-soundio/internal/errors"
)

// fakeBackend publishes a fixed device table and opens streams that do
// nothing until the test drives them.
type fakeBackend struct {
	DeviceWatch

	initErr  error
	outputs  int
	inputs   int
	scans    atomic.Int32
	destroys atomic.Int32
	released atomic.Int32

	lastOut *fakeOutDriver
	lastIn  *fakeInDriver
}

func (f *fakeBackend) Init(c *Context) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.Attach(c)
	f.publish()
	return nil
}

func (f *fakeBackend) Destroy() {
	f.destroys.Add(1)
	f.Close()
}

func (f *fakeBackend) ForceDeviceScan() { f.publish() }

func (f *fakeBackend) publish() {
	f.scans.Add(1)
	info := NewDevicesInfo()
	release := func(*Device) { f.released.Add(1) }
	for i := range f.outputs {
		d := fakeDevice("out"+strconv.Itoa(i), DeviceAimOutput)
		d.SetRelease(release)
		info.Add(d, i == 0)
	}
	for i := range f.inputs {
		d := fakeDevice("in"+strconv.Itoa(i), DeviceAimInput)
		d.SetRelease(release)
		info.Add(d, i == 0)
	}
	f.Publish(info)
}

func fakeDevice(id string, aim DeviceAim) *Device {
	d := NewDevice(id, "Fake "+id, aim, false)
	d.Formats = []Format{FormatS16NE, FormatFloat32NE}
	d.CurrentFormat = FormatFloat32NE
	d.Layouts = []ChannelLayout{BuiltinLayout(LayoutStereo), BuiltinLayout(LayoutMono)}
	d.CurrentLayout = BuiltinLayout(LayoutStereo)
	d.SampleRates = []SampleRateRange{{Min: 44100, Max: 96000}}
	d.SampleRateCurrent = 48000
	return d
}

func (f *fakeBackend) OpenOutStream(s *OutStream) (OutStreamDriver, error) {
	f.lastOut = &fakeOutDriver{}
	return f.lastOut, nil
}

func (f *fakeBackend) OpenInStream(s *InStream) (InStreamDriver, error) {
	f.lastIn = &fakeInDriver{}
	return f.lastIn, nil
}

type fakeOutDriver struct {
	started, paused, destroyed atomic.Int32
	startErr                   error
}

func (d *fakeOutDriver) Start() error {
	if d.startErr != nil {
		return d.startErr
	}
	d.started.Add(1)
	return nil
}

func (d *fakeOutDriver) Pause(bool) error {
	d.paused.Add(1)
	return nil
}

func (d *fakeOutDriver) BeginWrite(n int) ([]ChannelArea, int, error) {
	return nil, n, nil
}

func (d *fakeOutDriver) EndWrite() error {
	return nil
}

func (d *fakeOutDriver) ClearBuffer() error {
	return ErrIncompatibleBackend
}

func (d *fakeOutDriver) Latency() (float64, error) {
	return 0.02, nil
}

func (d *fakeOutDriver) Destroy() {
	d.destroyed.Add(1)
}

type fakeInDriver struct {
	destroyed atomic.Int32
}

func (d *fakeInDriver) Start() error {
	return nil
}

func (d *fakeInDriver) Pause(bool) error {
	return nil
}

func (d *fakeInDriver) BeginRead(n int) ([]ChannelArea, int, error) {
	return nil, n, nil
}

func (d *fakeInDriver) EndRead() error {
	return nil
}

func (d *fakeInDriver) Latency() (float64, error) {
	return 0, nil
}

func (d *fakeInDriver) Destroy() {
	d.destroyed.Add(1)
}

// useBackend registers factory under id for the duration of the test.
func useBackend(t *testing.T, id BackendID, factory BackendFactory) {
	t.Helper()
	registryMu.Lock()
	prev, had := registry[id]
	registry[id] = factory
	registryMu.Unlock()

	t.Cleanup(func() {
		registryMu.Lock()
		defer registryMu.Unlock()
		if had {
			registry[id] = prev
		} else {
			delete(registry, id)
		}
	})
}

// newTestContext returns a context with console logging off.
func newTestContext(t *testing.T, mutate func(*Settings)) *Context {
	t.Helper()
	s := DefaultSettings()
	s.Logging.Console.Enabled = false
	if mutate != nil {
		mutate(s)
	}
	c, err := CreateWithSettings(s)
	if err != nil {
		t.Fatalf("create context: %v", err)
	}
	t.Cleanup(c.Destroy)
	return c
}

var errFakeInit = errors.New(errors.NewStd("fake init failed")).
	Component("fake").
	Kind(ErrInitAudioBackend).
	Build()
