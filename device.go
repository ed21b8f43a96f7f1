package soundio

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/tphakala/go-soundio/internal/errors"
)

// DeviceAim is the direction of a device.
type DeviceAim int

const (
	DeviceAimInput  DeviceAim = iota // capture / recording
	DeviceAimOutput                  // playback
)

// String implements fmt.Stringer.
func (a DeviceAim) String() string {
	if a == DeviceAimInput {
		return "input"
	}
	return "output"
}

// SampleRateRange is an inclusive range of supported rates.
type SampleRateRange struct {
	Min int
	Max int
}

// Device describes one endpoint as reported by a backend scan. Fields are
// set by the backend before the device is published and are read-only
// afterwards, except for layout re-sorting via SortChannelLayouts.
//
// Devices are reference counted. Handles returned by Context accessors carry
// a reference that the caller releases with Unref.
type Device struct {
	// ID is opaque and stable per physical endpoint, aim and raw flag.
	ID   string
	Name string
	Aim  DeviceAim

	// IsRaw devices bypass the sound server (exclusive mode). Their Current*
	// fields are not meaningful.
	IsRaw bool

	Layouts       []ChannelLayout
	CurrentLayout ChannelLayout

	Formats       []Format
	CurrentFormat Format

	SampleRates       []SampleRateRange
	SampleRateCurrent int

	// Software latency bounds in seconds; 0 means unknown.
	SoftwareLatencyMin     float64
	SoftwareLatencyMax     float64
	SoftwareLatencyCurrent float64

	// ProbeError is non-nil when the backend could not query the device.
	// Layouts, Formats and SampleRates may then be empty.
	ProbeError error

	refCount   atomic.Int32
	release    func(*Device)
	ctx        *Context
	connection uint64
}

// NewDevice creates a device holding one reference. Backends call this while
// building a DevicesInfo.
func NewDevice(id, name string, aim DeviceAim, raw bool) *Device {
	d := &Device{
		ID:            id,
		Name:          name,
		Aim:           aim,
		IsRaw:         raw,
		CurrentFormat: FormatInvalid,
	}
	d.refCount.Store(1)
	return d
}

// SetRelease registers the backend teardown run when the last reference is
// dropped. It must be called before the device is published.
func (d *Device) SetRelease(fn func(*Device)) {
	d.release = fn
}

// Ref takes an additional reference.
func (d *Device) Ref() {
	if d.refCount.Add(1) <= 1 {
		panic(fmt.Sprintf("soundio: Ref on released device %q", d.ID))
	}
}

// Unref drops a reference. The last Unref runs the backend teardown exactly
// once. Dropping more references than were taken panics.
func (d *Device) Unref() {
	n := d.refCount.Add(-1)
	switch {
	case n > 0:
		return
	case n < 0:
		panic(fmt.Sprintf("soundio: Unref past zero on device %q", d.ID))
	}
	if d.release != nil {
		d.release(d)
	}
}

// RefCount reports the current reference count. Diagnostic only.
func (d *Device) RefCount() int {
	return int(d.refCount.Load())
}

// Context returns the context that published the device, or nil.
func (d *Device) Context() *Context {
	return d.ctx
}

// DeviceEqual reports whether a and b name the same endpoint.
func DeviceEqual(a, b *Device) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.IsRaw == b.IsRaw && a.Aim == b.Aim
}

// SupportsFormat reports whether format is in Formats.
func (d *Device) SupportsFormat(format Format) bool {
	return slices.Contains(d.Formats, format)
}

// SupportsLayout reports whether an equal layout is in Layouts.
func (d *Device) SupportsLayout(layout ChannelLayout) bool {
	return slices.ContainsFunc(d.Layouts, func(l ChannelLayout) bool {
		return LayoutEqual(l, layout)
	})
}

// SupportsSampleRate reports whether any range contains rate.
func (d *Device) SupportsSampleRate(rate int) bool {
	return slices.ContainsFunc(d.SampleRates, func(r SampleRateRange) bool {
		return rate >= r.Min && rate <= r.Max
	})
}

// NearestSampleRate returns the smallest supported rate not below requested,
// or the highest supported rate when requested exceeds every range. A device
// without ranges returns requested unchanged.
func (d *Device) NearestSampleRate(requested int) int {
	best := 0
	found := false
	highest := 0
	for _, r := range d.SampleRates {
		highest = max(highest, r.Max)
		var candidate int
		switch {
		case requested <= r.Min:
			candidate = r.Min
		case requested <= r.Max:
			candidate = requested
		default:
			continue
		}
		if !found || candidate < best {
			best, found = candidate, true
		}
	}
	switch {
	case found:
		return best
	case len(d.SampleRates) > 0:
		return highest
	default:
		return requested
	}
}

// SortChannelLayouts sorts Layouts in place, most channels first.
func (d *Device) SortChannelLayouts() {
	SortLayouts(d.Layouts)
}

// Validate checks that a successfully probed device carries at least one
// format, layout and sample rate range. Backends call it before publishing.
func (d *Device) Validate() error {
	if d.ProbeError != nil {
		return nil
	}
	var missing string
	switch {
	case len(d.Formats) == 0:
		missing = "formats"
	case len(d.Layouts) == 0:
		missing = "layouts"
	case len(d.SampleRates) == 0:
		missing = "sample rates"
	default:
		return nil
	}
	return errors.Newf("device %q probed without %s", d.ID, missing).
		Component("soundio").
		Kind(errors.KindIncompatibleDevice).
		Context("device_name", d.Name).
		Build()
}

// String implements fmt.Stringer.
func (d *Device) String() string {
	raw := ""
	if d.IsRaw {
		raw = " (raw)"
	}
	return fmt.Sprintf("%s %s%s [%s]", d.Aim, d.Name, raw, d.ID)
}
