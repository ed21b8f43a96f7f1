package soundio

import "sync"

// DeviceWatch implements the two-stage device list handoff every backend
// shares. Background goroutines call Publish with a freshly built snapshot;
// the application goroutine calls FlushEvents, which moves the newest ready
// snapshot into the Context and runs callbacks there.
//
// Backends embed a DeviceWatch and call Attach from Init. Its FlushEvents,
// WaitEvents and Wakeup methods satisfy the matching Backend methods.
type DeviceWatch struct {
	mu         sync.Mutex
	cond       *sync.Cond
	ctx        *Context
	connection uint64

	ready   *DevicesInfo
	pending bool // an event or wakeup arrived since the last wait

	disconnected      bool
	disconnectPending bool
	disconnectErr     error
}

// Attach binds the watch to the context it publishes into.
func (w *DeviceWatch) Attach(c *Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctx = c
	if c != nil {
		w.connection = c.connectionID()
	}
	if w.cond == nil {
		w.cond = sync.NewCond(&w.mu)
	}
}

// Publish replaces the ready snapshot with info, releasing any snapshot the
// application never picked up. Safe from any goroutine.
func (w *DeviceWatch) Publish(info *DevicesInfo) {
	w.mu.Lock()
	for _, d := range info.InputDevices {
		d.ctx, d.connection = w.ctx, w.connection
	}
	for _, d := range info.OutputDevices {
		d.ctx, d.connection = w.ctx, w.connection
	}
	old := w.ready
	w.ready = info
	w.pending = true
	w.broadcastLocked()
	ctx := w.ctx
	w.mu.Unlock()

	old.Release()
	ctx.signalEvents()
}

// Disconnect records that the backend connection is gone. Only the first
// call has an effect; the Context learns about it on the next flush.
func (w *DeviceWatch) Disconnect(err error) {
	if err == nil {
		err = ErrBackendDisconnected
	}

	w.mu.Lock()
	if w.disconnected {
		w.mu.Unlock()
		return
	}
	w.disconnected = true
	w.disconnectPending = true
	w.disconnectErr = err
	w.pending = true
	w.broadcastLocked()
	ctx := w.ctx
	w.mu.Unlock()

	ctx.signalEvents()
}

// IsDisconnected reports whether Disconnect has been called.
func (w *DeviceWatch) IsDisconnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disconnected
}

// FlushEvents delivers pending events to the Context. Application goroutine only.
func (w *DeviceWatch) FlushEvents() {
	w.mu.Lock()
	ready := w.ready
	w.ready = nil
	disconnect := w.disconnectPending
	w.disconnectPending = false
	err := w.disconnectErr
	ctx := w.ctx
	w.mu.Unlock()

	if ctx == nil {
		ready.Release()
		return
	}
	if ready != nil {
		ctx.installDevices(ready)
	}
	if disconnect {
		ctx.backendDisconnected(err)
	}
}

// WaitEvents flushes, then blocks until a new event or a Wakeup. Callers
// must tolerate returning without any new event.
func (w *DeviceWatch) WaitEvents() {
	w.FlushEvents()

	w.mu.Lock()
	for !w.pending {
		w.cond.Wait()
	}
	w.pending = false
	w.mu.Unlock()
}

// Wakeup makes a blocked WaitEvents return. Safe from any goroutine.
func (w *DeviceWatch) Wakeup() {
	w.mu.Lock()
	w.pending = true
	w.broadcastLocked()
	w.mu.Unlock()
}

// Close releases an unclaimed snapshot and wakes any waiter. Backends call
// it from Destroy after their goroutines have stopped.
func (w *DeviceWatch) Close() {
	w.mu.Lock()
	ready := w.ready
	w.ready = nil
	w.pending = true
	w.broadcastLocked()
	w.mu.Unlock()

	ready.Release()
}

func (w *DeviceWatch) broadcastLocked() {
	if w.cond != nil {
		w.cond.Broadcast()
	}
}
