//go:build !linux

package ring

func newMirror(capacity int) (mirror, error) {
	return newHeapMirror(capacity), nil
}
