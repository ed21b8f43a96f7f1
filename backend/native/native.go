//go:build cgo

// Package native drives the operating system's sound servers through
// miniaudio. One driver serves every platform backend; a profile captures
// what differs between them.
//
// Import it for its side effect:
//
//	import _ "github.com/tphakala/go-soundio/backend/native"
//
// On Linux this registers JACK, PulseAudio and ALSA, on macOS CoreAudio and
// on Windows WASAPI.
package native

import (
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/patrickmn/go-cache"

	soundio "github.com/tphakala/go-soundio"
	"github.com/tphakala/go-soundio/internal/conf"
	"github.com/tphakala/go-soundio/internal/errors"
	"github.com/tphakala/go-soundio/internal/logger"
)

// profile is what one backend id needs from the shared driver.
type profile struct {
	id      soundio.BackendID
	backend malgo.Backend
	// fixedPeriod backends hand the callback a period it must fill
	// completely, so frameCountMin equals frameCountMax.
	fixedPeriod bool
	// rawDevices publishes every device a second time for exclusive access.
	rawDevices bool
	// watchNodes enables the device node watcher on top of polling.
	watchNodes bool
	// namedClient servers show the application name for the connection.
	namedClient bool
}

var profiles = map[soundio.BackendID]profile{
	soundio.BackendAlsa:       {id: soundio.BackendAlsa, backend: malgo.BackendAlsa, rawDevices: true, watchNodes: true},
	soundio.BackendPulseAudio: {id: soundio.BackendPulseAudio, backend: malgo.BackendPulseaudio, namedClient: true},
	soundio.BackendJack:       {id: soundio.BackendJack, backend: malgo.BackendJack, fixedPeriod: true, namedClient: true},
	soundio.BackendCoreAudio:  {id: soundio.BackendCoreAudio, backend: malgo.BackendCoreaudio, fixedPeriod: true},
	soundio.BackendWasapi:     {id: soundio.BackendWasapi, backend: malgo.BackendWasapi, rawDevices: true},
}

func register(ids ...soundio.BackendID) {
	for _, id := range ids {
		p := profiles[id]
		soundio.RegisterBackend(id, func() soundio.Backend {
			return newBackend(p)
		})
	}
}

// Backend is one connection to a sound system.
type Backend struct {
	soundio.DeviceWatch

	profile  profile
	ctx      *soundio.Context
	log      logger.Logger
	settings conf.BackendSettings
	sink     *logSink

	mctx    *malgo.AllocatedContext
	probes  *cache.Cache
	watcher *nodeWatcher
	streams streamSet

	// appName is the NUL-terminated client name handed to miniaudio, pinned
	// until Destroy.
	appName []byte
	pinner  runtime.Pinner

	// generation is bumped on every topology event; a scan that sees it
	// change restarts.
	generation  atomic.Uint64
	fingerprint string // scan goroutine only

	rescan chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	destroyOnce sync.Once
}

func newBackend(p profile) *Backend {
	return &Backend{
		profile: p,
		rescan:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Init connects to the sound system and publishes the first device list
// before returning.
func (b *Backend) Init(c *soundio.Context) error {
	b.Attach(c)
	b.ctx = c
	b.settings = c.Settings().Backends
	b.log = c.Logger().Module(strings.ToLower(b.profile.id.String()))
	b.sink = &logSink{log: b.log}
	malgoLog.Store(b.sink)

	mctx, err := malgo.InitContext([]malgo.Backend{b.profile.backend}, b.contextConfig(c.AppName), routeMalgoLog)
	if err != nil {
		return errors.New(err).
			Component("native").
			Category(errors.CategoryBackend).
			Kind(soundio.ErrInitAudioBackend).
			Context("backend", b.profile.id.String()).
			Build()
	}
	b.mctx = mctx

	if ttl := b.settings.ProbeCacheTTL; ttl > 0 {
		b.probes = cache.New(ttl, 2*ttl)
	}

	if err := b.scanWithRetry(true); err != nil {
		return errors.New(err).
			Component("native").
			Category(errors.CategoryBackend).
			Kind(soundio.ErrInitAudioBackend).
			Context("backend", b.profile.id.String()).
			Context("operation", "initial_scan").
			Build()
	}

	if b.profile.watchNodes && b.settings.AlsaDeviceDir != "" {
		w, err := newNodeWatcher(b.settings.AlsaDeviceDir, nodeDebounce, b.topologyChanged, b.log)
		if err != nil {
			// Polling still catches changes.
			b.log.Warn("device node watch unavailable",
				logger.String("path", b.settings.AlsaDeviceDir),
				logger.Error(err))
		} else {
			b.watcher = w
		}
	}

	b.wg.Add(1)
	go b.run()

	b.log.Info("initialized",
		logger.Duration("scan_interval", b.settings.ScanInterval),
		logger.Bool("node_watch", b.watcher != nil))
	return nil
}

// contextConfig carries the application name to the servers that display
// one. Names are cut at the first NUL.
func (b *Backend) contextConfig(appName string) malgo.ContextConfig {
	var cfg malgo.ContextConfig
	appName, _, _ = strings.Cut(appName, "\x00")
	if !b.profile.namedClient || appName == "" {
		return cfg
	}
	b.appName = append([]byte(appName), 0)
	b.pinner.Pin(&b.appName[0])
	switch b.profile.backend {
	case malgo.BackendPulseaudio:
		cfg.Pulse.PApplicationName = &b.appName[0]
	case malgo.BackendJack:
		cfg.Jack.PClientName = &b.appName[0]
	}
	return cfg
}

// Destroy stops the scan goroutine and the node watcher, uninitializes any
// stream still open, then releases the miniaudio context. Safe after a failed
// Init.
func (b *Backend) Destroy() {
	b.destroyOnce.Do(func() {
		close(b.done)
		if b.watcher != nil {
			b.watcher.Close()
		}
		b.wg.Wait()

		if n := b.streams.len(); n > 0 && b.log != nil {
			b.log.Debug("closing open streams", logger.Int("streams", n))
		}
		b.streams.closeAll()

		if b.mctx != nil {
			if err := b.mctx.Uninit(); err != nil {
				b.log.Warn("uninit context", logger.Error(err))
			}
			b.mctx.Free()
			b.mctx = nil
		}
		b.pinner.Unpin()
		if b.probes != nil {
			b.probes.Flush()
		}
		malgoLog.CompareAndSwap(b.sink, nil)
		b.Close()
	})
}

// ForceDeviceScan queues a rescan that publishes even when nothing changed.
func (b *Backend) ForceDeviceScan() {
	select {
	case b.rescan <- struct{}{}:
	default:
	}
}

// topologyChanged runs on the watcher goroutine after device nodes
// appeared or disappeared.
func (b *Backend) topologyChanged() {
	gen := b.generation.Add(1)
	b.log.Debug("device nodes changed", logger.Uint64("generation", gen))
	if b.probes != nil {
		b.probes.Flush()
	}
	b.ForceDeviceScan()
}

func (b *Backend) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.settings.ScanInterval)
	defer ticker.Stop()

	for {
		force := false
		select {
		case <-b.done:
			return
		case <-ticker.C:
		case <-b.rescan:
			force = true
		}

		err := b.scanWithRetry(force)
		switch {
		case err == nil:
		case errors.Is(err, soundio.ErrInterrupted):
			b.log.Debug("device scan kept being interrupted, retrying next tick")
		default:
			b.Disconnect(errors.New(err).
				Component("native").
				Category(errors.CategoryBackend).
				Kind(soundio.ErrBackendDisconnected).
				Context("backend", b.profile.id.String()).
				Build())
			return
		}
	}
}

// logSink carries the logger miniaudio messages are routed to.
type logSink struct {
	log logger.Logger
}

// miniaudio keeps a single process-wide log callback, so messages go to the
// most recently connected backend.
var malgoLog atomic.Pointer[logSink]

func routeMalgoLog(message string) {
	if sink := malgoLog.Load(); sink != nil {
		sink.log.Debug("miniaudio", logger.String("message", strings.TrimSpace(message)))
	}
}
