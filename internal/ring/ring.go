// Package ring implements a lock-free single-producer single-consumer byte ring
// whose storage is mirrored: the byte at offset i is also visible at offset
// i+Capacity. Any region of up to Capacity bytes starting anywhere inside the
// first half is therefore contiguous, so readers and writers get plain slices
// without splitting at the wrap point.
//
// Thread assignment:
//   - WritePtr, AdvanceWrite, FreeCount, Clear: producer only
//   - ReadPtr, AdvanceRead, FillCount: consumer only
//
// No method takes a lock or allocates after New.
package ring

import (
	"fmt"
	"math/bits"
	"os"
	"sync/atomic"

	"github.com/tphakala/go-soundio/internal/errors"
)

// mirror is the backing storage. bytes() has length 2*capacity.
type mirror interface {
	bytes() []byte
	// afterWrite makes [off, off+n) of the first half visible in the second
	// half (and the wrapped tail visible at the start). No-op for true
	// double mappings.
	afterWrite(off, n int)
	close() error
}

// Buffer is a mirrored SPSC ring buffer.
type Buffer struct {
	// Separate cache lines to prevent false sharing between producer and consumer.
	writeOffset atomic.Uint64
	_pad1       [56]byte
	readOffset  atomic.Uint64
	_pad2       [56]byte

	mem      mirror
	buf      []byte
	capacity int
	mask     uint64
}

// CapacityFor returns the capacity New will pick for a requested size: the
// allocation granularity times the next power of two that covers the request.
func CapacityFor(requested int) int {
	page := os.Getpagesize()
	if requested <= 0 {
		return page
	}
	pages := (requested + page - 1) / page
	if pages&(pages-1) != 0 {
		pages = 1 << bits.Len(uint(pages))
	}
	return pages * page
}

// New allocates a ring of at least requested bytes. The only failure is being
// unable to obtain memory, reported as KindNoMem.
func New(requested int) (*Buffer, error) {
	if requested < 0 {
		return nil, errors.Newf("ring: negative capacity %d", requested).
			Component("ring").
			Kind(errors.KindInvalid).
			Build()
	}
	capacity := CapacityFor(requested)

	mem, err := newMirror(capacity)
	if err != nil {
		return nil, errors.New(err).
			Component("ring").
			Kind(errors.KindNoMem).
			Context("capacity", capacity).
			Build()
	}

	return newBuffer(capacity, mem), nil
}

func newBuffer(capacity int, mem mirror) *Buffer {
	return &Buffer{
		mem:      mem,
		buf:      mem.bytes(),
		capacity: capacity,
		mask:     uint64(capacity - 1),
	}
}

// Capacity returns the usable size in bytes.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// FillCount returns the number of bytes readable.
func (b *Buffer) FillCount() int {
	// Load write first: the consumer may be advancing read concurrently,
	// which can only shrink the result.
	w := b.writeOffset.Load()
	r := b.readOffset.Load()
	return int(w - r)
}

// FreeCount returns the number of bytes writable.
func (b *Buffer) FreeCount() int {
	return b.capacity - b.FillCount()
}

// WritePtr returns the contiguous writable region. Its length is FreeCount().
func (b *Buffer) WritePtr() []byte {
	w := b.writeOffset.Load()
	off := int(w & b.mask)
	free := b.capacity - int(w-b.readOffset.Load())
	return b.buf[off : off+free : off+free]
}

// AdvanceWrite publishes n bytes previously written through WritePtr.
func (b *Buffer) AdvanceWrite(n int) {
	if n < 0 || n > b.FreeCount() {
		panic(fmt.Sprintf("ring: AdvanceWrite(%d) exceeds free count %d", n, b.FreeCount()))
	}
	w := b.writeOffset.Load()
	b.mem.afterWrite(int(w&b.mask), n)
	b.writeOffset.Store(w + uint64(n))
}

// ReadPtr returns the contiguous readable region. Its length is FillCount().
func (b *Buffer) ReadPtr() []byte {
	r := b.readOffset.Load()
	off := int(r & b.mask)
	fill := int(b.writeOffset.Load() - r)
	return b.buf[off : off+fill : off+fill]
}

// AdvanceRead releases n bytes previously read through ReadPtr.
func (b *Buffer) AdvanceRead(n int) {
	if n < 0 || n > b.FillCount() {
		panic(fmt.Sprintf("ring: AdvanceRead(%d) exceeds fill count %d", n, b.FillCount()))
	}
	b.readOffset.Add(uint64(n))
}

// Clear empties the buffer. The caller guarantees no concurrent reader.
func (b *Buffer) Clear() {
	b.readOffset.Store(b.writeOffset.Load())
}

// Close releases the backing memory. The buffer must not be used afterwards.
func (b *Buffer) Close() error {
	if b.mem == nil {
		return nil
	}
	err := b.mem.close()
	b.mem = nil
	b.buf = nil
	return err
}

// heapMirror is the portable fallback: 2x capacity on the heap, with the
// writer copying each published region into its alias.
type heapMirror struct {
	buf      []byte
	capacity int
}

func newHeapMirror(capacity int) *heapMirror {
	return &heapMirror{buf: make([]byte, 2*capacity), capacity: capacity}
}

func (h *heapMirror) bytes() []byte { return h.buf }

func (h *heapMirror) afterWrite(off, n int) {
	c := h.capacity
	end := off + n
	if end <= c {
		copy(h.buf[off+c:end+c], h.buf[off:end])
		return
	}
	// The write ran past the first half; mirror the head part forward and
	// the spilled part back to the start.
	copy(h.buf[off+c:], h.buf[off:c])
	copy(h.buf[:end-c], h.buf[c:end])
}

func (h *heapMirror) close() error {
	h.buf = nil
	return nil
}
