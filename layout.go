package soundio

import (
	"slices"
	"strings"
)

// ChannelLayout is an ordered list of channel positions with an optional name.
type ChannelLayout struct {
	Name     string
	Channels []ChannelID
}

// ChannelCount returns the number of channels.
func (l ChannelLayout) ChannelCount() int {
	return len(l.Channels)
}

// String renders the name, or the channel list for unnamed layouts.
func (l ChannelLayout) String() string {
	if l.Name != "" {
		return l.Name
	}
	names := make([]string, len(l.Channels))
	for i, ch := range l.Channels {
		names[i] = ch.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Clone returns a deep copy.
func (l ChannelLayout) Clone() ChannelLayout {
	return ChannelLayout{Name: l.Name, Channels: slices.Clone(l.Channels)}
}

// FindChannel returns the index of the first channel equal to id, or -1.
func (l ChannelLayout) FindChannel(id ChannelID) int {
	return slices.Index(l.Channels, id)
}

// LayoutEqual compares channel order; names are ignored.
func LayoutEqual(a, b ChannelLayout) bool {
	return slices.Equal(a.Channels, b.Channels)
}

// BuiltinLayoutID indexes the builtin layout table.
type BuiltinLayoutID int

const (
	LayoutMono BuiltinLayoutID = iota
	LayoutStereo
	Layout2Point1
	Layout3Point0
	Layout3Point0Back
	Layout3Point1
	Layout4Point0
	LayoutQuad
	LayoutQuadSide
	Layout4Point1
	Layout5Point0Back
	Layout5Point0Side
	Layout5Point1
	Layout5Point1Back
	Layout6Point0Side
	Layout6Point0Front
	LayoutHexagonal
	Layout6Point1
	Layout6Point1Back
	Layout6Point1Front
	Layout7Point0
	Layout7Point0Front
	Layout7Point1
	Layout7Point1Wide
	Layout7Point1WideBack
	LayoutOctagonal

	builtinLayoutCount
)

const (
	fl  = ChannelFrontLeft
	fr  = ChannelFrontRight
	fc  = ChannelFrontCenter
	lfe = ChannelLfe
	bl  = ChannelBackLeft
	br  = ChannelBackRight
	flc = ChannelFrontLeftCenter
	frc = ChannelFrontRightCenter
	bc  = ChannelBackCenter
	sl  = ChannelSideLeft
	sr  = ChannelSideRight
)

// builtinLayouts is reference data. Positional order matters: port matching
// in the native drivers compares layouts index by index.
var builtinLayouts = [builtinLayoutCount]ChannelLayout{
	LayoutMono:            {"Mono", []ChannelID{fc}},
	LayoutStereo:          {"Stereo", []ChannelID{fl, fr}},
	Layout2Point1:         {"2.1", []ChannelID{fl, fr, lfe}},
	Layout3Point0:         {"3.0", []ChannelID{fl, fr, fc}},
	Layout3Point0Back:     {"3.0 (back)", []ChannelID{fl, fr, bc}},
	Layout3Point1:         {"3.1", []ChannelID{fl, fr, fc, lfe}},
	Layout4Point0:         {"4.0", []ChannelID{fl, fr, fc, bc}},
	LayoutQuad:            {"Quad", []ChannelID{fl, fr, bl, br}},
	LayoutQuadSide:        {"Quad (side)", []ChannelID{fl, fr, sl, sr}},
	Layout4Point1:         {"4.1", []ChannelID{fl, fr, fc, bc, lfe}},
	Layout5Point0Back:     {"5.0 (back)", []ChannelID{fl, fr, fc, bl, br}},
	Layout5Point0Side:     {"5.0 (side)", []ChannelID{fl, fr, fc, sl, sr}},
	Layout5Point1:         {"5.1", []ChannelID{fl, fr, fc, sl, sr, lfe}},
	Layout5Point1Back:     {"5.1 (back)", []ChannelID{fl, fr, fc, bl, br, lfe}},
	Layout6Point0Side:     {"6.0 (side)", []ChannelID{fl, fr, fc, sl, sr, bc}},
	Layout6Point0Front:    {"6.0 (front)", []ChannelID{fl, fr, sl, sr, flc, frc}},
	LayoutHexagonal:       {"Hexagonal", []ChannelID{fl, fr, fc, bl, br, bc}},
	Layout6Point1:         {"6.1", []ChannelID{fl, fr, fc, sl, sr, bc, lfe}},
	Layout6Point1Back:     {"6.1 (back)", []ChannelID{fl, fr, fc, bl, br, bc, lfe}},
	Layout6Point1Front:    {"6.1 (front)", []ChannelID{fl, fr, sl, sr, flc, frc, lfe}},
	Layout7Point0:         {"7.0", []ChannelID{fl, fr, fc, sl, sr, bl, br}},
	Layout7Point0Front:    {"7.0 (front)", []ChannelID{fl, fr, fc, sl, sr, flc, frc}},
	Layout7Point1:         {"7.1", []ChannelID{fl, fr, fc, sl, sr, bl, br, lfe}},
	Layout7Point1Wide:     {"7.1 (wide)", []ChannelID{fl, fr, fc, sl, sr, flc, frc, lfe}},
	Layout7Point1WideBack: {"7.1 (wide) (back)", []ChannelID{fl, fr, fc, bl, br, flc, frc, lfe}},
	LayoutOctagonal:       {"Octagonal", []ChannelID{fl, fr, fc, sl, sr, bl, br, bc}},
}

// BuiltinLayoutCount returns the size of the builtin table.
func BuiltinLayoutCount() int {
	return int(builtinLayoutCount)
}

// BuiltinLayout returns a copy of one builtin layout.
func BuiltinLayout(id BuiltinLayoutID) ChannelLayout {
	if id < 0 || id >= builtinLayoutCount {
		return ChannelLayout{}
	}
	return builtinLayouts[id].Clone()
}

// BuiltinLayouts returns copies of every builtin layout in table order.
func BuiltinLayouts() []ChannelLayout {
	out := make([]ChannelLayout, builtinLayoutCount)
	for i := range builtinLayouts {
		out[i] = builtinLayouts[i].Clone()
	}
	return out
}

// DetectBuiltin fills in the name when the channel order exactly matches a
// builtin layout. Otherwise the name is cleared and false is returned.
func (l *ChannelLayout) DetectBuiltin() bool {
	for i := range builtinLayouts {
		if LayoutEqual(*l, builtinLayouts[i]) {
			l.Name = builtinLayouts[i].Name
			return true
		}
	}
	l.Name = ""
	return false
}

// DefaultLayout returns the first builtin layout with channelCount channels.
func DefaultLayout(channelCount int) (ChannelLayout, bool) {
	for i := range builtinLayouts {
		if builtinLayouts[i].ChannelCount() == channelCount {
			return builtinLayouts[i].Clone(), true
		}
	}
	return ChannelLayout{}, false
}

// BestMatchingLayout walks preferred in order and returns the first entry
// that has an equal layout in available. Earlier preferences win even when a
// later one carries more channels.
func BestMatchingLayout(preferred, available []ChannelLayout) (ChannelLayout, bool) {
	for _, p := range preferred {
		for _, a := range available {
			if LayoutEqual(p, a) {
				return p, true
			}
		}
	}
	return ChannelLayout{}, false
}

// SortLayouts orders layouts by channel count, most channels first. The sort
// is stable.
func SortLayouts(layouts []ChannelLayout) {
	slices.SortStableFunc(layouts, func(a, b ChannelLayout) int {
		return b.ChannelCount() - a.ChannelCount()
	})
}
