//go:build cgo

package native

import soundio "github.com/tphakala/go-soundio"

func init() {
	register(soundio.BackendCoreAudio)
}
