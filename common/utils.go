package common

import (
	"math"

	"github.com/chewxy/math32"
)

// AlignTo rounds value up to the next multiple of alignment. An alignment of 0 returns value unchanged.
//
// Parameters:
//   - value: the offset or size to align
//   - alignment: the required alignment in bytes
//
// Returns:
//   - uint64: the aligned value
func AlignTo(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return ((value + alignment - 1) / alignment) * alignment
}

// PackUnorm4x8 packs a [0,1] RGBA color into a uint32 with red in the lowest byte.
func PackUnorm4x8(c Vec4) uint32 {
	var out uint32
	for i := 0; i < 4; i++ {
		out |= uint32(math32.Round(Saturate(c[i])*255)) << (8 * i)
	}
	return out
}

// Float32ToHalf converts f to an IEEE 754 binary16 bit pattern, flushing denormals to zero.
func Float32ToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff
	switch {
	case (bits>>23)&0xff == 0xff:
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		return sign
	}
	return sign | uint16(exp)<<10 | uint16(mant>>13)
}

// PackHalf2 packs two floats as binary16 values, x in the low half.
func PackHalf2(x, y float32) uint32 {
	return uint32(Float32ToHalf(x)) | uint32(Float32ToHalf(y))<<16
}

// PackR11G11B10Float packs a non-negative RGB color into the 11/11/10-bit float format.
// Negative components are clamped to zero.
func PackR11G11B10Float(c Vec3) uint32 {
	r := uint32(Float32ToHalf(math32.Max(c[0], 0))) >> 4 & 0x7ff
	g := uint32(Float32ToHalf(math32.Max(c[1], 0))) >> 4 & 0x7ff
	b := uint32(Float32ToHalf(math32.Max(c[2], 0))) >> 5 & 0x3ff
	return r | g<<11 | b<<22
}

// NextPowerOfTwo returns the smallest power of two that is >= v, 1 for 0.
func NextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	return v + 1
}
