//go:build cgo

package native

import (
	"slices"

	"github.com/gen2brain/malgo"

	soundio "github.com/tphakala/go-soundio"
)

// convertibleFormats are accepted on every device: miniaudio converts them
// to whatever the hardware runs at.
func convertibleFormats() []soundio.Format {
	return []soundio.Format{
		soundio.FormatFloat32NE,
		soundio.FormatS32NE,
		soundio.FormatS16NE,
		soundio.FormatU8,
	}
}

// toMalgoFormat maps a stream format onto a miniaudio sample format. Packed
// 24-bit, foreign-endian and 64-bit formats have no counterpart.
func toMalgoFormat(f soundio.Format) (malgo.FormatType, bool) {
	switch f {
	case soundio.FormatU8:
		return malgo.FormatU8, true
	case soundio.FormatS16NE:
		return malgo.FormatS16, true
	case soundio.FormatS32NE:
		return malgo.FormatS32, true
	case soundio.FormatFloat32NE:
		return malgo.FormatF32, true
	}
	return malgo.FormatUnknown, false
}

func fromMalgoFormat(ft malgo.FormatType) (soundio.Format, bool) {
	switch ft {
	case malgo.FormatU8:
		return soundio.FormatU8, true
	case malgo.FormatS16:
		return soundio.FormatS16NE, true
	case malgo.FormatS32:
		return soundio.FormatS32NE, true
	case malgo.FormatF32:
		return soundio.FormatFloat32NE, true
	}
	return soundio.FormatInvalid, false
}

// miniaudio channel positions (ma_channel). FrontLeft through TopBackRight
// are contiguous and in the same order as the soundio ids.
const (
	maChannelFrontLeft uint8 = 2
	maChannelAux0      uint8 = 20
)

// maPosition returns the miniaudio position of a channel id.
func maPosition(id soundio.ChannelID) (uint8, bool) {
	switch {
	case id >= soundio.ChannelFrontLeft && id <= soundio.ChannelTopBackRight:
		return maChannelFrontLeft + uint8(id-soundio.ChannelFrontLeft), true
	case id >= soundio.ChannelAux0 && id <= soundio.ChannelAux15:
		return maChannelAux0 + uint8(id-soundio.ChannelAux0), true
	}
	return 0, false
}

// channelMap builds the channel map handed to miniaudio so every stream
// channel lands on the speaker it names. miniaudio converts between this map
// and the device's own order.
//
// A channel miniaudio has no position for, or one requested twice, makes the
// whole layout fall back to the device's default order: the map is nil, the
// channels are connected in declared order and the error is
// ErrIncompatibleDevice.
func channelMap(requested []soundio.ChannelID) ([]uint8, error) {
	m := make([]uint8, len(requested))
	for i, id := range requested {
		pos, ok := maPosition(id)
		if !ok || slices.Contains(m[:i], pos) {
			return nil, soundio.ErrIncompatibleDevice
		}
		m[i] = pos
	}
	return m, nil
}
