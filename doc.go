// Package soundio is a cross-platform audio input and output library.
//
// A Context connects to one sound backend (JACK, PulseAudio, ALSA,
// CoreAudio, WASAPI or the Dummy backend), publishes the devices it finds
// and opens playback (OutStream) and capture (InStream) streams on them.
// Audio moves through real-time callbacks that write into or read from
// ChannelArea slices granted by the backend.
//
// Backends register themselves when imported:
//
//	import (
//		soundio "github.com/tphakala/go-soundio"
//		_ "github.com/tphakala/go-soundio/backend/dummy"
//		_ "github.com/tphakala/go-soundio/backend/native"
//	)
//
// A minimal player:
//
//	c, _ := soundio.Create()
//	defer c.Destroy()
//	_ = c.Connect()
//	c.FlushEvents()
//	d, _ := c.GetOutputDevice(c.DefaultOutputDeviceIndex())
//	s := soundio.NewOutStream(d)
//	d.Unref()
//	s.WriteCallback = func(s *soundio.OutStream, minFrames, maxFrames int) { ... }
//	_ = s.Open()
//	_ = s.Start()
//	for {
//		c.WaitEvents()
//	}
//
// Device lists change only inside FlushEvents and WaitEvents, on the
// goroutine that calls them, so the application never sees a list that is
// half updated.
package soundio
