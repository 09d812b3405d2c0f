// Package half converts between float32 and IEEE 754-2008 binary16 values,
// the storage format of every intermediate ocean field.
package half

import (
	"encoding/binary"
	"math"
)

// Size is the encoded size of one binary16 value in bytes.
const Size = 2

// Max is the largest finite binary16 value.
const Max = 65504

// MaxExactInt is the largest integer n such that every integer in [0, n]
// is representable exactly in binary16.
const MaxExactInt = 2048

// Encode converts src into binary16 bits stored in dst. dst must be at
// least len(src).
func Encode(dst []uint16, src []float32) {
	for i, v := range src {
		dst[i] = FromFloat32(v)
	}
}

// Decode expands binary16 data into float32 values. dst must be at least
// len(src).
func Decode(dst []float32, src []uint16) {
	for i, v := range src {
		dst[i] = ToFloat32(v)
	}
}

// PutBytes writes src as little-endian binary16 values into b, which must
// hold at least len(src)*Size bytes.
func PutBytes(b []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint16(b[i*Size:], FromFloat32(v))
	}
}

// FromBytes decodes little-endian binary16 values from b into dst.
func FromBytes(dst []float32, b []byte) {
	for i := range dst {
		dst[i] = ToFloat32(binary.LittleEndian.Uint16(b[i*Size:]))
	}
}

// Round returns f rounded through binary16 precision.
func Round(f float32) float32 {
	return ToFloat32(FromFloat32(f))
}

// FromFloat32 returns the binary16 bits nearest to f, ties to even, the
// rounding vstore_half applies by default. Values beyond the binary16
// range become infinities.
func FromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int((bits >> 23) & 0xff)
	mant := bits & 0x7fffff

	switch exp {
	case 0xff:
		// Keep NaN a NaN after truncating the payload.
		if mant == 0 {
			return sign | 0x7c00
		}
		mant >>= 13
		if mant == 0 {
			mant = 1
		}
		return sign | 0x7c00 | uint16(mant)
	case 0:
		// float32 subnormals are far below the smallest binary16 subnormal.
		return sign
	}

	e := exp - 127 + 15
	if e <= 0 {
		// Subnormal result: shift the full significand down to units of
		// 2^-24 in one step so no discarded bit is lost before rounding.
		shift := uint(14 - e)
		if shift > 24 {
			return sign
		}
		m := mant | 0x800000
		m += (uint32(1)<<(shift-1) - 1) + ((m >> shift) & 1)
		return sign | uint16(m>>shift)
	}

	m := mant + 0xfff + ((mant >> 13) & 1)
	if m&0x800000 != 0 {
		m = 0
		e++
	}
	if e >= 0x1f {
		return sign | 0x7c00
	}
	return sign | uint16(e<<10) | uint16(m>>13)
}

// ToFloat32 expands binary16 bits to float32. The conversion is exact.
func ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int((h >> 10) & 0x1f)
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		exp = -14
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		mant &= 0x3ff
		return math.Float32frombits(sign | uint32((exp+127)<<23) | (mant << 13))
	case 0x1f:
		bits := sign | 0x7f800000 | (mant << 13)
		if mant != 0 {
			bits |= 1
		}
		return math.Float32frombits(bits)
	default:
		exp = exp - 15 + 127
		return math.Float32frombits(sign | uint32(exp<<23) | (mant << 13))
	}
}
