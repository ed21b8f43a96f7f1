package soundio

import "github.com/tphakala/go-soundio/internal/ring"

// RingBuffer is a lock-free single-producer single-consumer byte queue with
// contiguous read and write windows. One goroutine writes, one reads.
type RingBuffer = ring.Buffer

// NewRingBuffer allocates a ring holding at least capacity bytes. The
// actual capacity is rounded up to a power-of-two number of pages.
func NewRingBuffer(capacity int) (*RingBuffer, error) {
	return ring.New(capacity)
}
