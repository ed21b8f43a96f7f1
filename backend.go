package soundio

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// BackendID names an audio backend.
type BackendID int

const (
	BackendNone BackendID = iota
	BackendJack
	BackendPulseAudio
	BackendAlsa
	BackendCoreAudio
	BackendWasapi
	BackendDummy
)

var backendNames = map[BackendID]string{
	BackendNone:       "(none)",
	BackendJack:       "JACK",
	BackendPulseAudio: "PulseAudio",
	BackendAlsa:       "ALSA",
	BackendCoreAudio:  "CoreAudio",
	BackendWasapi:     "WASAPI",
	BackendDummy:      "Dummy",
}

// String returns the display name.
func (id BackendID) String() string {
	if name, ok := backendNames[id]; ok {
		return name
	}
	return "(invalid backend)"
}

// ParseBackendID matches a display name, ignoring case.
func ParseBackendID(name string) (BackendID, bool) {
	for id, n := range backendNames {
		if id != BackendNone && strings.EqualFold(n, strings.TrimSpace(name)) {
			return id, true
		}
	}
	return BackendNone, false
}

// autoConnectOrder is the order Connect tries backends in. Dummy is never
// tried automatically.
var autoConnectOrder = []BackendID{
	BackendJack,
	BackendPulseAudio,
	BackendAlsa,
	BackendCoreAudio,
	BackendWasapi,
}

// Backend is the driver interface. A Context holds exactly one connected
// Backend and calls it only from the application goroutine, except Wakeup.
//
// Drivers report failures with errors from the taxonomy in errors.go and
// document on each method which kinds are reachable.
type Backend interface {
	// Init connects to the sound system and starts device discovery. On
	// return a flush must eventually deliver a device list. On failure every
	// partial resource is released.
	Init(c *Context) error
	// Destroy stops background work and releases everything. Idempotent.
	Destroy()

	FlushEvents()
	WaitEvents()
	Wakeup()
	ForceDeviceScan()

	OpenOutStream(s *OutStream) (OutStreamDriver, error)
	OpenInStream(s *InStream) (InStreamDriver, error)
}

// OutStreamDriver is the backend half of an open output stream.
//
// BeginWrite, EndWrite and Latency run on the real-time goroutine inside the
// write callback. They must not block, allocate or log.
type OutStreamDriver interface {
	Start() error
	Pause(pause bool) error
	// BeginWrite grants up to frameCount frames, never more.
	BeginWrite(frameCount int) (areas []ChannelArea, frames int, err error)
	EndWrite() error
	ClearBuffer() error
	Latency() (float64, error)
	Destroy()
}

// InStreamDriver is the backend half of an open input stream. A nil areas
// result with frames > 0 from BeginRead is a hole: data was lost.
type InStreamDriver interface {
	Start() error
	Pause(pause bool) error
	BeginRead(frameCount int) (areas []ChannelArea, frames int, err error)
	EndRead() error
	Latency() (float64, error)
	Destroy()
}

// BackendFactory creates an unconnected backend.
type BackendFactory func() Backend

var (
	registryMu sync.RWMutex
	registry   = make(map[BackendID]BackendFactory)
)

// RegisterBackend makes a backend available. Backend packages call it from
// init. Registering the same id twice or a nil factory panics.
func RegisterBackend(id BackendID, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("soundio: RegisterBackend factory is nil")
	}
	if _, dup := registry[id]; dup {
		panic(fmt.Sprintf("soundio: RegisterBackend called twice for %s", id))
	}
	registry[id] = factory
}

func lookupBackend(id BackendID) (BackendFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[id]
	return f, ok
}

// availableBackends lists registered backends in auto-connect order with
// Dummy last.
func availableBackends() []BackendID {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]BackendID, 0, len(registry))
	for _, id := range append(slices.Clone(autoConnectOrder), BackendDummy) {
		if _, ok := registry[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
