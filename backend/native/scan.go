//go:build cgo

package native

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	soundio "github.com/tphakala/go-soundio"
	"github.com/tphakala/go-soundio/internal/errors"
	"github.com/tphakala/go-soundio/internal/logger"
	"github.com/tphakala/go-soundio/internal/observability/metrics"
)

const (
	maxScanAttempts  = 3
	probeConcurrency = 4

	// Rate bounds advertised when a device accepts any rate.
	minSampleRate = 8000
	maxSampleRate = 384000

	defaultPeriods   = 2
	minPeriodFrames  = 32
	maxSoftwareDelay = 2.0
)

// endpoint is one entry of a miniaudio device listing.
type endpoint struct {
	kind      malgo.DeviceType
	aim       soundio.DeviceAim
	id        malgo.DeviceID
	hexID     string
	name      string
	isDefault bool
}

// capabilities is what a probe learned about one endpoint in one share
// mode. Cached entries are shared between scans and never mutated.
type capabilities struct {
	formats  []soundio.Format
	counts   []int
	rates    []int
	anyCount bool
	anyRate  bool
	err      error
}

// scanWithRetry rescans until a pass completes without a topology event
// racing it.
func (b *Backend) scanWithRetry(force bool) error {
	var err error
	for range maxScanAttempts {
		start := time.Now()
		var published bool
		published, err = b.scan(force)
		result := metrics.ResultSuccess
		switch {
		case errors.Is(err, soundio.ErrInterrupted):
			result = metrics.ResultInterrupted
		case err != nil:
			result = metrics.ResultError
		}
		b.ctx.Metrics().RecordScan(b.profile.id.String(), result, time.Since(start))

		if !errors.Is(err, soundio.ErrInterrupted) {
			if published {
				b.log.Debug("device list published", logger.Duration("elapsed", time.Since(start)))
			}
			return err
		}
		force = true
	}
	return err
}

// scan enumerates both directions and publishes a snapshot when the
// listing differs from the last published one or force is set.
func (b *Backend) scan(force bool) (bool, error) {
	gen := b.generation.Load()

	var outputs, inputs []endpoint
	var g errgroup.Group
	g.Go(func() error {
		var err error
		outputs, err = b.listEndpoints(malgo.Playback, soundio.DeviceAimOutput)
		return err
	})
	g.Go(func() error {
		var err error
		inputs, err = b.listEndpoints(malgo.Capture, soundio.DeviceAimInput)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	all := append(outputs, inputs...)
	fp := fingerprint(all)
	if !force && fp == b.fingerprint {
		return false, nil
	}

	devices := b.probeAll(all)
	if b.generation.Load() != gen {
		for _, d := range devices {
			d.Unref()
		}
		return false, soundio.ErrInterrupted
	}

	info := soundio.NewDevicesInfo()
	i := 0
	for _, ep := range all {
		info.Add(devices[i], ep.isDefault)
		i++
		if b.profile.rawDevices {
			info.Add(devices[i], false)
			i++
		}
	}
	b.fingerprint = fp
	b.Publish(info)
	return true, nil
}

func (b *Backend) listEndpoints(kind malgo.DeviceType, aim soundio.DeviceAim) ([]endpoint, error) {
	start := time.Now()
	infos, err := b.mctx.Devices(kind)
	if err != nil {
		return nil, errors.New(err).
			Component("native").
			Category(errors.CategoryBackend).
			Timing("enumerate_devices", time.Since(start)).
			Context("aim", aim.String()).
			Build()
	}

	eps := make([]endpoint, 0, len(infos))
	for i := range infos {
		eps = append(eps, endpoint{
			kind:      kind,
			aim:       aim,
			id:        infos[i].ID,
			hexID:     infos[i].ID.String(),
			name:      infos[i].Name(),
			isDefault: infos[i].IsDefault != 0,
		})
	}
	return eps, nil
}

// fingerprint identifies a listing so unchanged polls publish nothing.
func fingerprint(eps []endpoint) string {
	var sb strings.Builder
	for _, ep := range eps {
		fmt.Fprintf(&sb, "%s|%s|%s|%t\n", ep.aim, ep.hexID, ep.name, ep.isDefault)
	}
	return sb.String()
}

// probeAll builds one device per endpoint, followed by its raw twin when
// the profile publishes raw devices.
func (b *Backend) probeAll(eps []endpoint) []*soundio.Device {
	variants := 1
	if b.profile.rawDevices {
		variants = 2
	}
	devices := make([]*soundio.Device, len(eps)*variants)

	var g errgroup.Group
	g.SetLimit(probeConcurrency)
	for i, ep := range eps {
		for v := range variants {
			raw := v == 1
			slot := i*variants + v
			g.Go(func() error {
				devices[slot] = b.buildDevice(ep, raw, b.probe(ep, raw))
				return nil
			})
		}
	}
	_ = g.Wait()
	return devices
}

func probeKey(aim soundio.DeviceAim, raw bool, hexID string) string {
	return fmt.Sprintf("%s/%t/%s", aim, raw, hexID)
}

// probe queries an endpoint's native formats, going through the probe
// cache when one is configured.
func (b *Backend) probe(ep endpoint, raw bool) *capabilities {
	key := probeKey(ep.aim, raw, ep.hexID)
	if b.probes != nil {
		if v, ok := b.probes.Get(key); ok {
			return v.(*capabilities)
		}
	}

	mode := malgo.Shared
	if raw {
		mode = malgo.Exclusive
	}
	info, err := b.mctx.DeviceInfo(ep.kind, ep.id, mode)
	var caps *capabilities
	if err != nil {
		caps = &capabilities{err: errors.New(err).
			Component("native").
			Category(errors.CategoryDevice).
			Kind(soundio.ErrOpeningDevice).
			Context("device_id", ep.hexID).
			Context("raw", raw).
			Build()}
	} else {
		caps = capabilitiesOf(info.Formats[:min(int(info.FormatCount), len(info.Formats))])
	}

	if b.probes != nil {
		b.probes.Set(key, caps, cache.DefaultExpiration)
	}
	return caps
}

// capabilitiesOf collects the distinct formats, channel counts and rates a
// device reports. A zero count or rate means the device accepts any.
func capabilitiesOf(formats []malgo.DataFormat) *capabilities {
	c := &capabilities{}
	for _, df := range formats {
		if f, ok := fromMalgoFormat(df.Format); ok && !slices.Contains(c.formats, f) {
			c.formats = append(c.formats, f)
		}
		switch n := int(df.Channels); {
		case n == 0:
			c.anyCount = true
		case n <= soundio.MaxChannels && !slices.Contains(c.counts, n):
			c.counts = append(c.counts, n)
		}
		switch r := int(df.SampleRate); {
		case r == 0:
			c.anyRate = true
		case !slices.Contains(c.rates, r):
			c.rates = append(c.rates, r)
		}
	}
	slices.Sort(c.counts)
	slices.Sort(c.rates)
	if len(c.counts) == 0 {
		c.anyCount = true
	}
	if len(c.rates) == 0 {
		c.anyRate = true
	}
	return c
}

// buildDevice turns probe results into a fresh device. Devices are never
// shared between snapshots; only capabilities are.
func (b *Backend) buildDevice(ep endpoint, raw bool, caps *capabilities) *soundio.Device {
	d := soundio.NewDevice(ep.hexID, ep.name, ep.aim, raw)
	if caps.err != nil {
		d.ProbeError = caps.err
		return d
	}

	d.Formats = slices.Clone(caps.formats)
	for _, f := range convertibleFormats() {
		if !slices.Contains(d.Formats, f) {
			d.Formats = append(d.Formats, f)
		}
	}
	d.CurrentFormat = d.Formats[0]

	d.Layouts = layoutsFor(caps)
	d.SortChannelLayouts()
	stereo := soundio.BuiltinLayout(soundio.LayoutStereo)
	if d.SupportsLayout(stereo) {
		d.CurrentLayout = stereo
	} else {
		d.CurrentLayout = d.Layouts[0].Clone()
	}

	if caps.anyRate {
		d.SampleRates = []soundio.SampleRateRange{{Min: minSampleRate, Max: maxSampleRate}}
	} else {
		for _, r := range caps.rates {
			d.SampleRates = append(d.SampleRates, soundio.SampleRateRange{Min: r, Max: r})
		}
	}
	d.SampleRateCurrent = d.NearestSampleRate(48000)

	rate := float64(d.SampleRateCurrent)
	d.SoftwareLatencyMin = float64(minPeriodFrames*defaultPeriods) / rate
	d.SoftwareLatencyCurrent = float64(periodFrames(0, d.SampleRateCurrent, b.settings.PeriodFrames)*defaultPeriods) / rate
	d.SoftwareLatencyMax = maxSoftwareDelay
	if err := d.Validate(); err != nil {
		d.ProbeError = err
	}
	return d
}

func layoutsFor(caps *capabilities) []soundio.ChannelLayout {
	if caps.anyCount {
		return soundio.BuiltinLayouts()
	}
	var layouts []soundio.ChannelLayout
	for _, n := range caps.counts {
		if l, ok := soundio.DefaultLayout(n); ok {
			layouts = append(layouts, l)
		}
	}
	if len(layouts) == 0 {
		layouts = []soundio.ChannelLayout{
			soundio.BuiltinLayout(soundio.LayoutStereo),
			soundio.BuiltinLayout(soundio.LayoutMono),
		}
	}
	return layouts
}

// periodFrames picks the miniaudio period for a requested latency. With no
// request the configured period applies, else 10ms.
func periodFrames(latency float64, rate, configured int) int {
	switch {
	case latency > 0:
		return max(minPeriodFrames, int(latency*float64(rate)/defaultPeriods+0.5))
	case configured > 0:
		return configured
	default:
		return max(minPeriodFrames, rate/100)
	}
}

// parseDeviceID reverses DeviceID.String.
func parseDeviceID(s string) (malgo.DeviceID, error) {
	var id malgo.DeviceID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) > len(id) {
		return id, fmt.Errorf("device id is %d bytes, limit %d", len(raw), len(id))
	}
	copy(id[:], raw)
	return id, nil
}
