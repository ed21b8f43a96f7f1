package soundio

import "encoding/binary"

// Format is a sample encoding.
type Format int

const (
	FormatInvalid Format = iota
	FormatS8             // Signed 8 bit
	FormatU8             // Unsigned 8 bit
	FormatS16LE          // Signed 16 bit Little Endian
	FormatS16BE          // Signed 16 bit Big Endian
	FormatU16LE          // Unsigned 16 bit Little Endian
	FormatU16BE          // Unsigned 16 bit Big Endian
	FormatS24LE          // Signed 24 bit Little Endian using low three bytes in 32-bit word
	FormatS24BE          // Signed 24 bit Big Endian using low three bytes in 32-bit word
	FormatU24LE          // Unsigned 24 bit Little Endian using low three bytes in 32-bit word
	FormatU24BE          // Unsigned 24 bit Big Endian using low three bytes in 32-bit word
	FormatS32LE          // Signed 32 bit Little Endian
	FormatS32BE          // Signed 32 bit Big Endian
	FormatU32LE          // Unsigned 32 bit Little Endian
	FormatU32BE          // Unsigned 32 bit Big Endian
	FormatFloat32LE      // Float 32 bit Little Endian, Range -1.0 to 1.0
	FormatFloat32BE      // Float 32 bit Big Endian, Range -1.0 to 1.0
	FormatFloat64LE      // Float 64 bit Little Endian, Range -1.0 to 1.0
	FormatFloat64BE      // Float 64 bit Big Endian, Range -1.0 to 1.0

	formatCount
)

var nativeLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// Native-endian and foreign-endian aliases, resolved for the running CPU.
var (
	FormatS16NE     = pickEndian(FormatS16LE, FormatS16BE)
	FormatU16NE     = pickEndian(FormatU16LE, FormatU16BE)
	FormatS24NE     = pickEndian(FormatS24LE, FormatS24BE)
	FormatU24NE     = pickEndian(FormatU24LE, FormatU24BE)
	FormatS32NE     = pickEndian(FormatS32LE, FormatS32BE)
	FormatU32NE     = pickEndian(FormatU32LE, FormatU32BE)
	FormatFloat32NE = pickEndian(FormatFloat32LE, FormatFloat32BE)
	FormatFloat64NE = pickEndian(FormatFloat64LE, FormatFloat64BE)

	FormatS16FE     = pickEndian(FormatS16BE, FormatS16LE)
	FormatU16FE     = pickEndian(FormatU16BE, FormatU16LE)
	FormatS24FE     = pickEndian(FormatS24BE, FormatS24LE)
	FormatU24FE     = pickEndian(FormatU24BE, FormatU24LE)
	FormatS32FE     = pickEndian(FormatS32BE, FormatS32LE)
	FormatU32FE     = pickEndian(FormatU32BE, FormatU32LE)
	FormatFloat32FE = pickEndian(FormatFloat32BE, FormatFloat32LE)
	FormatFloat64FE = pickEndian(FormatFloat64BE, FormatFloat64LE)
)

func pickEndian(le, be Format) Format {
	if nativeLittleEndian {
		return le
	}
	return be
}

var formatNames = [formatCount]string{
	FormatInvalid:   "(invalid sample format)",
	FormatS8:        "signed 8-bit",
	FormatU8:        "unsigned 8-bit",
	FormatS16LE:     "signed 16-bit LE",
	FormatS16BE:     "signed 16-bit BE",
	FormatU16LE:     "unsigned 16-bit LE",
	FormatU16BE:     "unsigned 16-bit BE",
	FormatS24LE:     "signed 24-bit LE",
	FormatS24BE:     "signed 24-bit BE",
	FormatU24LE:     "unsigned 24-bit LE",
	FormatU24BE:     "unsigned 24-bit BE",
	FormatS32LE:     "signed 32-bit LE",
	FormatS32BE:     "signed 32-bit BE",
	FormatU32LE:     "unsigned 32-bit LE",
	FormatU32BE:     "unsigned 32-bit BE",
	FormatFloat32LE: "float 32-bit LE",
	FormatFloat32BE: "float 32-bit BE",
	FormatFloat64LE: "float 64-bit LE",
	FormatFloat64BE: "float 64-bit BE",
}

// String returns the human-readable format name.
func (f Format) String() string {
	if !f.Valid() {
		return formatNames[FormatInvalid]
	}
	return formatNames[f]
}

// Valid reports whether f names a real sample encoding.
func (f Format) Valid() bool {
	return f > FormatInvalid && f < formatCount
}

// BytesPerSample returns the storage size of one sample, or -1 for an
// invalid format. 24-bit formats occupy a 32-bit word.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatS8, FormatU8:
		return 1
	case FormatS16LE, FormatS16BE, FormatU16LE, FormatU16BE:
		return 2
	case FormatS24LE, FormatS24BE, FormatU24LE, FormatU24BE,
		FormatS32LE, FormatS32BE, FormatU32LE, FormatU32BE,
		FormatFloat32LE, FormatFloat32BE:
		return 4
	case FormatFloat64LE, FormatFloat64BE:
		return 8
	default:
		return -1
	}
}

// BytesPerFrame is BytesPerSample times the channel count.
func (f Format) BytesPerFrame(channelCount int) int {
	return f.BytesPerSample() * channelCount
}

// BytesPerSecond is BytesPerFrame times the sample rate.
func (f Format) BytesPerSecond(channelCount, sampleRate int) int {
	return f.BytesPerFrame(channelCount) * sampleRate
}

// IsLittleEndian reports the byte order of multi-byte formats. Single-byte
// formats report the native order.
func (f Format) IsLittleEndian() bool {
	switch f {
	case FormatS16LE, FormatU16LE, FormatS24LE, FormatU24LE, FormatS32LE,
		FormatU32LE, FormatFloat32LE, FormatFloat64LE:
		return true
	case FormatS16BE, FormatU16BE, FormatS24BE, FormatU24BE, FormatS32BE,
		FormatU32BE, FormatFloat32BE, FormatFloat64BE:
		return false
	default:
		return nativeLittleEndian
	}
}

// AllFormats returns every valid format in declaration order.
func AllFormats() []Format {
	formats := make([]Format, 0, formatCount-1)
	for f := FormatS8; f < formatCount; f++ {
		formats = append(formats, f)
	}
	return formats
}
