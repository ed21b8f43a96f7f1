package soundio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tphakala/go-soundio/internal/conf"
	"github.com/tphakala/go-soundio/internal/errors"
	"github.com/tphakala/go-soundio/internal/logger"
	"github.com/tphakala/go-soundio/internal/observability/metrics"
)

// Context is the entry point: it owns one backend connection and the
// device list published by it.
//
// Device enumeration, FlushEvents and WaitEvents must all be called from one
// goroutine, the application goroutine. Wakeup may be called from anywhere.
type Context struct {
	// AppName is the client name sound servers display. It defaults to
	// Settings.AppName and must be set before Connect.
	AppName string

	// OnDevicesChange runs on the application goroutine during FlushEvents
	// whenever a new device list was installed.
	OnDevicesChange func(c *Context)
	// OnBackendDisconnect runs on the application goroutine when the backend
	// connection is lost. Without it the disconnect panics.
	OnBackendDisconnect func(c *Context, err error)
	// OnEventsSignal runs on an unspecified goroutine when events are
	// waiting. It must not call into the Context.
	OnEventsSignal func(c *Context)

	UserData any

	id       string
	settings *conf.Settings
	central  *logger.CentralLogger
	log      logger.Logger
	metrics  atomic.Pointer[metrics.SoundioMetrics]

	mu      sync.Mutex // guards backend, current and connection
	backend Backend
	current BackendID
	// connection counts backend connections; published devices carry the
	// value current when they were scanned.
	connection uint64

	// application goroutine only
	devices       *DevicesInfo
	disconnectErr error

	destroyOnce sync.Once
}

// Create returns a Context using DefaultSettings.
func Create() (*Context, error) {
	return CreateWithSettings(conf.Default())
}

// CreateWithSettings returns a Context configured by s.
func CreateWithSettings(s *Settings) (*Context, error) {
	if s == nil {
		return nil, newError(ErrInvalid, errors.NewStd("settings cannot be nil"), "context")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	central, err := logger.NewCentralLogger(&s.Logging)
	if err != nil {
		return nil, err
	}

	c := &Context{
		AppName:  s.AppName,
		id:       uuid.NewString(),
		settings: s,
		central:  central,
		current:  BackendNone,
	}
	c.log = central.Module("soundio").With(logger.String("context_id", c.id))

	if s.Telemetry.Enabled {
		if err := errors.EnableSentry(s.Telemetry.DSN); err != nil {
			c.log.Warn("telemetry disabled", logger.Error(err))
		}
	}
	if s.Metrics.Enabled {
		if err := c.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			_ = central.Close()
			return nil, err
		}
	}
	return c, nil
}

// ID returns a unique identifier for log correlation.
func (c *Context) ID() string { return c.id }

// Settings returns the configuration the context was created with.
func (c *Context) Settings() *Settings { return c.settings }

// Logger returns the context's logger. Backends derive their module
// loggers from it.
func (c *Context) Logger() logger.Logger { return c.log }

// Metrics returns the registered collectors or nil. A nil value is safe to
// record on.
func (c *Context) Metrics() *metrics.SoundioMetrics { return c.metrics.Load() }

// RegisterMetrics registers the Prometheus collectors with reg. Registering
// on a registry that already holds them reuses the existing collectors, so
// several contexts can share one registry. Call before Connect.
func (c *Context) RegisterMetrics(reg prometheus.Registerer) error {
	m, err := metrics.NewSoundioMetrics(reg)
	if err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return errors.New(err).
				Component("context").
				Category(errors.CategoryConfiguration).
				Kind(ErrInvalid).
				Build()
		}
		existing, ok := are.ExistingCollector.(*metrics.SoundioMetrics)
		if !ok {
			return errors.New(err).
				Component("context").
				Category(errors.CategoryConfiguration).
				Kind(ErrInvalid).
				Build()
		}
		m = existing
	}
	c.metrics.Store(m)
	return nil
}

// Destroy disconnects and releases everything. Idempotent.
func (c *Context) Destroy() {
	c.destroyOnce.Do(func() {
		c.Disconnect()
		if err := c.central.Close(); err != nil {
			c.log.Warn("closing logger", logger.Error(err))
		}
	})
}

// Connect tries every compiled-in backend in priority order and keeps the
// first that initializes. Dummy is only tried when Settings lists it.
func (c *Context) Connect() error {
	if c.activeBackendOrNil() != nil {
		return newError(ErrInvalid, errors.NewStd("already connected"), "context")
	}

	var lastErr error
	for _, id := range c.connectOrder() {
		if _, ok := lookupBackend(id); !ok {
			continue
		}
		err := c.ConnectBackend(id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrInitAudioBackend) {
			return err
		}
		lastErr = err
	}
	if lastErr != nil {
		return lastErr
	}
	return newError(ErrBackendUnavailable, errors.NewStd("no backend available"), "context")
}

func (c *Context) connectOrder() []BackendID {
	if len(c.settings.Backends.Priority) == 0 {
		return autoConnectOrder
	}
	order := make([]BackendID, 0, len(c.settings.Backends.Priority))
	for _, name := range c.settings.Backends.Priority {
		if id, ok := ParseBackendID(name); ok {
			order = append(order, id)
		}
	}
	return order
}

// ConnectBackend connects to one specific backend. The first device list
// is available after the next FlushEvents.
func (c *Context) ConnectBackend(id BackendID) error {
	if c.activeBackendOrNil() != nil {
		return newError(ErrInvalid, errors.NewStd("already connected"), "context")
	}
	factory, ok := lookupBackend(id)
	if !ok {
		return errors.Newf("backend %s is not compiled in", id).
			Component("context").
			Category(errors.CategoryBackend).
			Kind(ErrBackendUnavailable).
			Context("backend", id.String()).
			Build()
	}

	b := factory()
	c.devices = nil
	c.disconnectErr = nil
	c.setBackend(b, id)

	if err := b.Init(c); err != nil {
		b.Destroy()
		c.setBackend(nil, BackendNone)
		c.log.Debug("backend init failed",
			logger.String("backend", id.String()),
			logger.Error(err))
		if errors.KindOf(err) != errors.KindNone {
			return err
		}
		return errors.New(err).
			Component("context").
			Category(errors.CategoryBackend).
			Kind(ErrInitAudioBackend).
			Context("backend", id.String()).
			Build()
	}

	c.log.Info("connected", logger.String("backend", id.String()))
	return nil
}

// Disconnect tears down the backend and forgets the device list. Safe after
// a backend disconnect and when not connected.
func (c *Context) Disconnect() {
	b := c.activeBackendOrNil()
	if b == nil {
		return
	}
	id := c.CurrentBackend()
	b.Destroy()
	c.setBackend(nil, BackendNone)

	c.devices.Release()
	c.devices = nil
	c.disconnectErr = nil
	c.log.Info("disconnected", logger.String("backend", id.String()))
}

// CurrentBackend returns the connected backend or BackendNone.
func (c *Context) CurrentBackend() BackendID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// FlushEvents installs the newest device list and runs pending callbacks.
// It never blocks.
func (c *Context) FlushEvents() {
	if b := c.activeBackendOrNil(); b != nil {
		b.FlushEvents()
	}
}

// WaitEvents flushes, then blocks until something changes or Wakeup is
// called. It may return without any new event.
func (c *Context) WaitEvents() {
	if b := c.activeBackendOrNil(); b != nil {
		b.WaitEvents()
	}
}

// Wakeup makes a blocked WaitEvents return. Safe from any goroutine.
func (c *Context) Wakeup() {
	if b := c.activeBackendOrNil(); b != nil {
		b.Wakeup()
	}
}

// ForceDeviceScan asks the backend to enumerate devices again even without
// a change notification. The result arrives through FlushEvents.
func (c *Context) ForceDeviceScan() {
	if b := c.activeBackendOrNil(); b != nil {
		b.ForceDeviceScan()
	}
}

// InputDeviceCount returns the number of input devices, or -1 before the
// first FlushEvents.
func (c *Context) InputDeviceCount() int {
	if c.devices == nil {
		return -1
	}
	return len(c.devices.InputDevices)
}

// OutputDeviceCount returns the number of output devices, or -1 before the
// first FlushEvents.
func (c *Context) OutputDeviceCount() int {
	if c.devices == nil {
		return -1
	}
	return len(c.devices.OutputDevices)
}

// DefaultInputDeviceIndex returns the default input index or -1.
func (c *Context) DefaultInputDeviceIndex() int {
	if c.devices == nil {
		return -1
	}
	return c.devices.DefaultInputIndex
}

// DefaultOutputDeviceIndex returns the default output index or -1.
func (c *Context) DefaultOutputDeviceIndex() int {
	if c.devices == nil {
		return -1
	}
	return c.devices.DefaultOutputIndex
}

// GetInputDevice returns input device i with a new reference the caller
// releases with Unref.
func (c *Context) GetInputDevice(i int) (*Device, error) {
	if err := c.enumerationError(); err != nil {
		return nil, err
	}
	return pickDevice(c.devices.InputDevices, i)
}

// GetOutputDevice returns output device i with a new reference.
func (c *Context) GetOutputDevice(i int) (*Device, error) {
	if err := c.enumerationError(); err != nil {
		return nil, err
	}
	return pickDevice(c.devices.OutputDevices, i)
}

func pickDevice(list []*Device, i int) (*Device, error) {
	if i < 0 || i >= len(list) {
		return nil, errors.Newf("device index %d out of range [0,%d)", i, len(list)).
			Component("context").
			Category(errors.CategoryDevice).
			Kind(ErrNoSuchDevice).
			Build()
	}
	d := list[i]
	d.Ref()
	return d, nil
}

func (c *Context) enumerationError() error {
	if c.disconnectErr != nil {
		return ErrBackendDisconnected
	}
	if c.devices == nil {
		return newError(ErrInvalid, errors.NewStd("no device list yet, call FlushEvents"), "context")
	}
	return nil
}

// activeBackend returns the backend for opening streams.
func (c *Context) activeBackend() (Backend, error) {
	b := c.activeBackendOrNil()
	switch {
	case b == nil:
		return nil, newError(ErrInvalid, errors.NewStd("not connected"), "context")
	case c.disconnectErr != nil:
		return nil, ErrBackendDisconnected
	}
	return b, nil
}

func (c *Context) activeBackendOrNil() Backend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend
}

func (c *Context) setBackend(b Backend, id BackendID) {
	c.mu.Lock()
	c.backend = b
	c.current = id
	if b != nil {
		c.connection++
	}
	c.mu.Unlock()
}

func (c *Context) connectionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection
}

// installDevices swaps in a new device list. Called by DeviceWatch on the
// application goroutine.
func (c *Context) installDevices(info *DevicesInfo) {
	old := c.devices
	c.devices = info
	old.Release()

	c.Metrics().RecordPublished(c.CurrentBackend().String(), len(info.InputDevices), len(info.OutputDevices))
	c.log.Debug("device list updated",
		logger.Int("inputs", len(info.InputDevices)),
		logger.Int("outputs", len(info.OutputDevices)))

	if cb := c.OnDevicesChange; cb != nil {
		cb(c)
	}
}

// backendDisconnected makes the disconnect sticky and tells the application.
func (c *Context) backendDisconnected(err error) {
	c.disconnectErr = err
	backend := c.CurrentBackend().String()
	c.Metrics().RecordDisconnect(backend)
	c.log.Error("backend disconnected",
		logger.String("backend", backend),
		logger.Error(err))

	if cb := c.OnBackendDisconnect; cb != nil {
		cb(c, err)
		return
	}
	panic(fmt.Sprintf("soundio: backend %s disconnected: %v", backend, err))
}

// signalEvents runs OnEventsSignal. Safe on a nil Context and from any
// goroutine.
func (c *Context) signalEvents() {
	if c == nil {
		return
	}
	if cb := c.OnEventsSignal; cb != nil {
		cb(c)
	}
}

// BackendCount returns how many backends are compiled in.
func BackendCount() int {
	return len(availableBackends())
}

// GetBackend returns the i-th compiled-in backend, or BackendNone when i is
// out of range.
func GetBackend(i int) BackendID {
	list := availableBackends()
	if i < 0 || i >= len(list) {
		return BackendNone
	}
	return list[i]
}

// HaveBackend reports whether id is compiled in.
func HaveBackend(id BackendID) bool {
	_, ok := lookupBackend(id)
	return ok
}
