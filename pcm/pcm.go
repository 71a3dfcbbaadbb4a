// package pcm converts float samples into the integer and float formats audio
// devices want. All conversions saturate rather than wrap.
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Format is a sample encoding.
type Format byte

const (
	// U8 is unsigned 8 bit, silence at 0x80.
	U8 Format = iota + 1
	// S16 is signed 16 bit little endian.
	S16
	// F32 is 32 bit IEEE float little endian.
	F32
)

func (f Format) String() string {
	switch f {
	case U8:
		return "u8"
	case S16:
		return "s16le"
	case F32:
		return "f32le"
	}
	return fmt.Sprintf("Format(%d)", byte(f))
}

// Bytes is the size of one sample.
func (f Format) Bytes() int {
	switch f {
	case U8:
		return 1
	case S16:
		return 2
	case F32:
		return 4
	}
	return 0
}

// ForBitDepth picks the format for a bit depth.
func ForBitDepth(bits int) (Format, error) {
	switch bits {
	case 8:
		return U8, nil
	case 16:
		return S16, nil
	case 32:
		return F32, nil
	}
	return 0, fmt.Errorf("unsupported bit depth %d: want 8, 16 or 32", bits)
}

const (
	maxS16 = math.MaxInt16
	minS16 = math.MinInt16
)

// S16FromFloat converts a float in [-1, 1] to an int16, clamping to the
// maximum or minimum values. NaN becomes silence.
func S16FromFloat[T constraints.Float](f T) int16 {
	switch {
	case f != f:
		return 0
	case f >= 1:
		return maxS16
	case f <= -1:
		return minS16
	}
	return int16(f * maxS16)
}

// S16ToFloat is the inverse of S16FromFloat, up to precision.
func S16ToFloat[T constraints.Float](s int16) T {
	return T(s) / maxS16
}

// U8FromFloat converts a float in [-1, 1] to an offset unsigned byte,
// clamping.
func U8FromFloat[T constraints.Float](f T) uint8 {
	switch {
	case f != f:
		return 0x80
	case f >= 1:
		return 0xFF
	case f <= -1:
		return 0
	}
	return uint8(int16(f*127) + 0x80)
}

// Clamp limits f to [-1, 1]. NaN becomes 0.
func Clamp[T constraints.Float](f T) T {
	switch {
	case f != f:
		return 0
	case f > 1:
		return 1
	case f < -1:
		return -1
	}
	return f
}

// Append encodes the mono samples in src in format f, duplicating each one
// across the given number of interleaved channels, and appends them to dst.
// It doesn't allocate if dst has enough capacity.
func Append(dst []byte, src []float32, f Format, channels int) []byte {
	for _, s := range src {
		for c := 0; c < channels; c++ {
			switch f {
			case U8:
				dst = append(dst, U8FromFloat(s))
			case S16:
				dst = binary.LittleEndian.AppendUint16(dst, uint16(S16FromFloat(s)))
			case F32:
				dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(Clamp(s)))
			}
		}
	}
	return dst
}

// Silence fills dst with silence in format f.
func Silence(dst []byte, f Format) {
	var v byte
	if f == U8 {
		v = 0x80
	}
	for i := range dst {
		dst[i] = v
	}
}
