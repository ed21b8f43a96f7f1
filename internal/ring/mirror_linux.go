//go:build linux

package ring

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapMirror maps one memfd region twice at adjacent addresses, so the
// hardware does the mirroring.
type mmapMirror struct {
	base     unsafe.Pointer
	buf      []byte
	capacity int
	fd       int
}

func newMirror(capacity int) (mirror, error) {
	m, err := newMmapMirror(capacity)
	if err != nil {
		// memfd can be blocked by seccomp policies; the heap path always works.
		return newHeapMirror(capacity), nil //nolint:nilerr // fallback is the documented behavior
	}
	return m, nil
}

func newMmapMirror(capacity int) (*mmapMirror, error) {
	fd, err := unix.MemfdCreate("soundio-ring", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(capacity)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("ftruncate: %w", err)
	}

	// Reserve 2*capacity of address space, then map the file over both halves.
	total := uintptr(2 * capacity)
	base, err := unix.MmapPtr(-1, 0, nil, total, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("reserve address space: %w", err)
	}

	for _, off := range []uintptr{0, uintptr(capacity)} {
		want := unsafe.Add(base, off)
		got, err := unix.MmapPtr(fd, 0, want, uintptr(capacity),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED)
		if err != nil || got != want {
			_ = unix.MunmapPtr(base, total)
			_ = unix.Close(fd)
			if err == nil {
				err = fmt.Errorf("mapping landed at %p, wanted %p", got, want)
			}
			return nil, fmt.Errorf("mirror mapping: %w", err)
		}
	}

	return &mmapMirror{
		base:     base,
		buf:      unsafe.Slice((*byte)(base), 2*capacity),
		capacity: capacity,
		fd:       fd,
	}, nil
}

func (m *mmapMirror) bytes() []byte { return m.buf }

func (m *mmapMirror) afterWrite(int, int) {}

func (m *mmapMirror) close() error {
	m.buf = nil
	err := unix.MunmapPtr(m.base, uintptr(2*m.capacity))
	if cerr := unix.Close(m.fd); err == nil {
		err = cerr
	}
	return err
}
