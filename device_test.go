package soundio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRefCounting(t *testing.T) {
	t.Parallel()

	released := 0
	d := NewDevice("hw:0", "Card", DeviceAimOutput, false)
	d.SetRelease(func(got *Device) {
		assert.Same(t, d, got)
		released++
	})
	require.Equal(t, 1, d.RefCount())

	for range 5 {
		d.Ref()
	}
	for range 5 {
		d.Unref()
	}
	assert.Equal(t, 1, d.RefCount())
	assert.Zero(t, released, "balanced ref/unref keeps the device alive")

	d.Unref()
	assert.Equal(t, 1, released)
	assert.Panics(t, func() { d.Unref() }, "unref past zero")
	assert.Equal(t, 1, released, "teardown runs exactly once")
}

func TestDeviceRefAfterReleasePanics(t *testing.T) {
	t.Parallel()

	d := NewDevice("x", "x", DeviceAimInput, false)
	d.Unref()
	assert.Panics(t, func() { d.Ref() })
}

func TestNearestSampleRate(t *testing.T) {
	t.Parallel()

	d := NewDevice("x", "x", DeviceAimOutput, false)
	d.SampleRates = []SampleRateRange{{Min: 44100, Max: 44100}, {Min: 48000, Max: 96000}}

	tests := []struct {
		requested int
		want      int
	}{
		{45000, 48000},
		{100000, 96000},
		{44100, 44100},
		{8000, 44100},
		{50000, 50000},
		{96000, 96000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.NearestSampleRate(tt.requested), "requested=%d", tt.requested)
	}

	empty := NewDevice("y", "y", DeviceAimOutput, false)
	assert.Equal(t, 22050, empty.NearestSampleRate(22050))
}

func TestDeviceSupports(t *testing.T) {
	t.Parallel()

	d := NewDevice("x", "x", DeviceAimOutput, false)
	d.Formats = []Format{FormatS16LE, FormatFloat32LE}
	d.Layouts = []ChannelLayout{BuiltinLayout(LayoutMono), BuiltinLayout(Layout5Point1)}
	d.SampleRates = []SampleRateRange{{Min: 8000, Max: 48000}}

	assert.True(t, d.SupportsFormat(FormatS16LE))
	assert.False(t, d.SupportsFormat(FormatU8))
	assert.True(t, d.SupportsLayout(BuiltinLayout(Layout5Point1)))
	assert.False(t, d.SupportsLayout(BuiltinLayout(LayoutStereo)))
	assert.True(t, d.SupportsSampleRate(44100))
	assert.False(t, d.SupportsSampleRate(96000))

	d.SortChannelLayouts()
	assert.Equal(t, "5.1", d.Layouts[0].Name)
}

func TestDeviceValidate(t *testing.T) {
	t.Parallel()

	d := NewDevice("x", "x", DeviceAimOutput, false)
	err := d.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompatibleDevice)

	d.Formats = []Format{FormatFloat32NE}
	d.Layouts = []ChannelLayout{BuiltinLayout(LayoutStereo)}
	d.SampleRates = []SampleRateRange{{Min: 48000, Max: 48000}}
	assert.NoError(t, d.Validate())

	failed := NewDevice("y", "y", DeviceAimOutput, false)
	failed.ProbeError = ErrOpeningDevice
	assert.NoError(t, failed.Validate(), "unprobed devices may be empty")
}

func TestDeviceEqual(t *testing.T) {
	t.Parallel()

	a := NewDevice("hw:0", "A", DeviceAimOutput, false)
	b := NewDevice("hw:0", "renamed", DeviceAimOutput, false)
	raw := NewDevice("hw:0", "A", DeviceAimOutput, true)

	assert.True(t, DeviceEqual(a, b))
	assert.False(t, DeviceEqual(a, raw))
	assert.False(t, DeviceEqual(a, nil))
	assert.True(t, DeviceEqual(nil, nil))
}

func TestDevicesInfoAddAndRelease(t *testing.T) {
	t.Parallel()

	info := NewDevicesInfo()
	assert.Equal(t, -1, info.DefaultInputIndex)
	assert.Equal(t, -1, info.DefaultOutputIndex)

	var released []string
	mk := func(id string, aim DeviceAim) *Device {
		d := NewDevice(id, id, aim, false)
		d.SetRelease(func(d *Device) { released = append(released, d.ID) })
		return d
	}
	info.Add(mk("out0", DeviceAimOutput), false)
	info.Add(mk("out1", DeviceAimOutput), true)
	info.Add(mk("in0", DeviceAimInput), true)

	assert.Equal(t, 1, info.DefaultOutputIndex)
	assert.Equal(t, 0, info.DefaultInputIndex)
	assert.Equal(t, "out1", info.Find(DeviceAimOutput, "out1", false).ID)
	assert.Nil(t, info.Find(DeviceAimOutput, "out1", true))
	assert.Nil(t, info.Find(DeviceAimInput, "out1", false))

	info.Release()
	assert.ElementsMatch(t, []string{"in0", "out0", "out1"}, released)

	var nilInfo *DevicesInfo
	assert.NotPanics(t, nilInfo.Release)
}

func TestFormatSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		bytes  int
	}{
		{FormatS8, 1},
		{FormatU8, 1},
		{FormatS16LE, 2},
		{FormatU16BE, 2},
		{FormatS24LE, 4},
		{FormatS32BE, 4},
		{FormatFloat32LE, 4},
		{FormatFloat64BE, 8},
		{FormatInvalid, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.bytes, tt.format.BytesPerSample(), tt.format.String())
	}

	assert.Equal(t, 8, FormatFloat32LE.BytesPerFrame(2))
	assert.Equal(t, 384000, FormatFloat32LE.BytesPerSecond(2, 48000))
	assert.NotEqual(t, FormatFloat32NE, FormatFloat32FE)
	assert.Len(t, AllFormats(), 18)
	assert.False(t, FormatInvalid.Valid())
	assert.True(t, FormatS16NE.Valid())
}
