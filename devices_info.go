package soundio

// DevicesInfo is one complete device enumeration. Once handed to
// DeviceWatch.Publish it is never mutated again.
type DevicesInfo struct {
	InputDevices       []*Device
	OutputDevices      []*Device
	DefaultInputIndex  int // -1 when there is no default input
	DefaultOutputIndex int // -1 when there is no default output
}

// NewDevicesInfo returns an empty snapshot with no defaults.
func NewDevicesInfo() *DevicesInfo {
	return &DevicesInfo{
		DefaultInputIndex:  -1,
		DefaultOutputIndex: -1,
	}
}

// Add appends d to the list matching its aim and marks it default when
// requested. The snapshot takes over the reference d was created with.
func (di *DevicesInfo) Add(d *Device, isDefault bool) {
	if d.Aim == DeviceAimInput {
		if isDefault {
			di.DefaultInputIndex = len(di.InputDevices)
		}
		di.InputDevices = append(di.InputDevices, d)
		return
	}
	if isDefault {
		di.DefaultOutputIndex = len(di.OutputDevices)
	}
	di.OutputDevices = append(di.OutputDevices, d)
}

// Find returns the device with the given id, aim and raw flag, or nil.
func (di *DevicesInfo) Find(aim DeviceAim, id string, raw bool) *Device {
	list := di.OutputDevices
	if aim == DeviceAimInput {
		list = di.InputDevices
	}
	for _, d := range list {
		if d.ID == id && d.IsRaw == raw {
			return d
		}
	}
	return nil
}

// Release drops the snapshot's reference on every device. The snapshot must
// not be used afterwards.
func (di *DevicesInfo) Release() {
	if di == nil {
		return
	}
	for _, d := range di.InputDevices {
		d.Unref()
	}
	for _, d := range di.OutputDevices {
		d.Unref()
	}
	di.InputDevices = nil
	di.OutputDevices = nil
}
