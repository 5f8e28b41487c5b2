package gopcm

// Per-sample PCM conversion kernels. Each (input, output) format pair
// is a pure function over one sample; the functions below apply it
// across a block of interleaved samples. Dither, where it applies, is
// added in the source domain with saturating arithmetic before the
// narrowing shift.

import (
	"encoding/binary"
	"math"
)

// clip32 saturates x to [-1, 1]. Float input is always clipped before
// quantization to an integer format.
func clip32(x float32) float32 {
	if x < -1 {
		return -1
	}
	if x > 1 {
		return 1
	}
	return x
}

// satAddS32 adds b to a, saturating at the int32 bounds.
func satAddS32(a, b int32) int32 {
	s := int64(a) + int64(b)
	if s > math.MaxInt32 {
		return math.MaxInt32
	}
	if s < math.MinInt32 {
		return math.MinInt32
	}
	return int32(s)
}

// satAddS16 adds b to a, saturating at the int16 bounds.
func satAddS16(a int32, b int32) int32 {
	s := a + b
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return s
}

// s24 samples are three tightly packed bytes, least significant
// first. Reads expand to an MSB-aligned 32-bit value so that sign
// and dither arithmetic behave exactly like the s32 path.

func sampleS24(b []byte) int32 {
	return int32(uint32(b[0])<<8 | uint32(b[1])<<16 | uint32(b[2])<<24)
}

func putSampleS24(b []byte, v int32) {
	b[0] = byte(v >> 8)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 24)
}

func sampleS16(b []byte) int16 {
	return int16(binary.NativeEndian.Uint16(b))
}

func putSampleS16(b []byte, v int16) {
	binary.NativeEndian.PutUint16(b, uint16(v))
}

func sampleS32(b []byte) int32 {
	return int32(binary.NativeEndian.Uint32(b))
}

func putSampleS32(b []byte, v int32) {
	binary.NativeEndian.PutUint32(b, uint32(v))
}

func sampleF32(b []byte) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(b))
}

func putSampleF32(b []byte, v float32) {
	binary.NativeEndian.PutUint32(b, math.Float32bits(v))
}

// Scalar sample mappings. u8ToF32 uses the affine form x*(2/255) - 1,
// which maps 0 to -1 and 255 to +1 exactly.

func u8ToF32(x byte) float32 {
	return float32(x)*(2.0/255.0) - 1
}

func s16ToF32(x int16) float32 {
	return float32(x) * (1.0 / 32768.0)
}

func s24ToF32(msb int32) float32 {
	return float32(msb>>8) * (1.0 / 8388608.0)
}

func s32ToF32(x int32) float32 {
	return float32(float64(x) * (1.0 / 2147483648.0))
}

func f32ToU8(x float32) byte {
	v := (float64(clip32(x)) + 1) * 127.5
	u := int32(v + 0.5)
	if u > 255 {
		u = 255
	}
	if u < 0 {
		u = 0
	}
	return byte(u)
}

func f32ToS16(x float32) int16 {
	return int16(math.Round(float64(clip32(x)) * 32767))
}

// f32ToS24 returns the 24-bit value LSB-aligned in an int32.
func f32ToS24(x float32) int32 {
	return int32(math.Round(float64(clip32(x)) * 8388607))
}

func f32ToS32(x float32) int32 {
	return int32(math.Round(float64(clip32(x)) * 2147483647))
}

// Block converters. dst and src are interleaved sample blocks; count
// is the total number of samples (frames times channels). The rng is
// consulted only by pairs that dither.

func convertU8ToS16(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleS16(dst[i*2:], int16(int(src[i])-128)<<8)
	}
}

func convertU8ToS24(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		dst[i*3+0] = 0
		dst[i*3+1] = 0
		dst[i*3+2] = byte(int(src[i]) - 128)
	}
}

func convertU8ToS32(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleS32(dst[i*4:], int32(int(src[i])-128)<<24)
	}
}

func convertU8ToF32(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleF32(dst[i*4:], u8ToF32(src[i]))
	}
}

func convertS16ToU8(dst, src []byte, count int, mode DitherMode, rng *lcg) {
	for i := 0; i < count; i++ {
		v := int32(sampleS16(src[i*2:]))
		v = satAddS16(v, rng.ditherS32(mode, -128, 127))
		dst[i] = byte((v >> 8) + 128)
	}
}

func convertS16ToS24(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		dst[i*3+0] = 0
		dst[i*3+1] = src[i*2+0]
		dst[i*3+2] = src[i*2+1]
	}
}

func convertS16ToS32(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleS32(dst[i*4:], int32(sampleS16(src[i*2:]))<<16)
	}
}

func convertS16ToF32(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleF32(dst[i*4:], s16ToF32(sampleS16(src[i*2:])))
	}
}

func convertS24ToU8(dst, src []byte, count int, mode DitherMode, rng *lcg) {
	for i := 0; i < count; i++ {
		v := sampleS24(src[i*3:])
		v = satAddS32(v, rng.ditherS32(mode, -8388608, 8388607))
		dst[i] = byte((v >> 24) + 128)
	}
}

func convertS24ToS16(dst, src []byte, count int, mode DitherMode, rng *lcg) {
	for i := 0; i < count; i++ {
		v := sampleS24(src[i*3:])
		v = satAddS32(v, rng.ditherS32(mode, -32768, 32767))
		putSampleS16(dst[i*2:], int16(v>>16))
	}
}

func convertS24ToS32(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleS32(dst[i*4:], sampleS24(src[i*3:]))
	}
}

func convertS24ToF32(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleF32(dst[i*4:], s24ToF32(sampleS24(src[i*3:])))
	}
}

func convertS32ToU8(dst, src []byte, count int, mode DitherMode, rng *lcg) {
	for i := 0; i < count; i++ {
		v := sampleS32(src[i*4:])
		v = satAddS32(v, rng.ditherS32(mode, -8388608, 8388607))
		dst[i] = byte((v >> 24) + 128)
	}
}

func convertS32ToS16(dst, src []byte, count int, mode DitherMode, rng *lcg) {
	for i := 0; i < count; i++ {
		v := sampleS32(src[i*4:])
		v = satAddS32(v, rng.ditherS32(mode, -32768, 32767))
		putSampleS16(dst[i*2:], int16(v>>16))
	}
}

func convertS32ToS24(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleS24(dst[i*3:], sampleS32(src[i*4:]))
	}
}

func convertS32ToF32(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleF32(dst[i*4:], s32ToF32(sampleS32(src[i*4:])))
	}
}

func convertF32ToU8(dst, src []byte, count int, mode DitherMode, rng *lcg) {
	for i := 0; i < count; i++ {
		x := sampleF32(src[i*4:])
		x += float32(rng.ditherF64(mode, -1.0/128.0, 1.0/127.0))
		dst[i] = f32ToU8(x)
	}
}

func convertF32ToS16(dst, src []byte, count int, mode DitherMode, rng *lcg) {
	for i := 0; i < count; i++ {
		x := sampleF32(src[i*4:])
		x += float32(rng.ditherF64(mode, -1.0/32768.0, 1.0/32767.0))
		putSampleS16(dst[i*2:], f32ToS16(x))
	}
}

func convertF32ToS24(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		v := f32ToS24(sampleF32(src[i*4:]))
		dst[i*3+0] = byte(v)
		dst[i*3+1] = byte(v >> 8)
		dst[i*3+2] = byte(v >> 16)
	}
}

func convertF32ToS32(dst, src []byte, count int) {
	for i := 0; i < count; i++ {
		putSampleS32(dst[i*4:], f32ToS32(sampleF32(src[i*4:])))
	}
}

// convertPCM converts count interleaved samples from srcFmt to
// dstFmt. Dither is honored only for reductions into u8 or s16 and
// ignored everywhere else.
func convertPCM(dst []byte, dstFmt Format, src []byte, srcFmt Format, count int, mode DitherMode, rng *lcg) {
	if dstFmt == srcFmt {
		copy(dst[:count*dstFmt.SampleSize()], src)
		return
	}
	switch srcFmt {
	case FormatU8:
		switch dstFmt {
		case FormatS16:
			convertU8ToS16(dst, src, count)
		case FormatS24:
			convertU8ToS24(dst, src, count)
		case FormatS32:
			convertU8ToS32(dst, src, count)
		case FormatF32:
			convertU8ToF32(dst, src, count)
		}
	case FormatS16:
		switch dstFmt {
		case FormatU8:
			convertS16ToU8(dst, src, count, mode, rng)
		case FormatS24:
			convertS16ToS24(dst, src, count)
		case FormatS32:
			convertS16ToS32(dst, src, count)
		case FormatF32:
			convertS16ToF32(dst, src, count)
		}
	case FormatS24:
		switch dstFmt {
		case FormatU8:
			convertS24ToU8(dst, src, count, mode, rng)
		case FormatS16:
			convertS24ToS16(dst, src, count, mode, rng)
		case FormatS32:
			convertS24ToS32(dst, src, count)
		case FormatF32:
			convertS24ToF32(dst, src, count)
		}
	case FormatS32:
		switch dstFmt {
		case FormatU8:
			convertS32ToU8(dst, src, count, mode, rng)
		case FormatS16:
			convertS32ToS16(dst, src, count, mode, rng)
		case FormatS24:
			convertS32ToS24(dst, src, count)
		case FormatF32:
			convertS32ToF32(dst, src, count)
		}
	case FormatF32:
		switch dstFmt {
		case FormatU8:
			convertF32ToU8(dst, src, count, mode, rng)
		case FormatS16:
			convertF32ToS16(dst, src, count, mode, rng)
		case FormatS24:
			convertF32ToS24(dst, src, count)
		case FormatS32:
			convertF32ToS32(dst, src, count)
		}
	}
}

// deinterleaveToF32 splits frames interleaved samples of format f
// into per-channel f32 planes, writing at dstOff.
func deinterleaveToF32(dst [][]float32, dstOff int, src []byte, f Format, channels, frames int) {
	switch f {
	case FormatU8:
		for n := 0; n < frames; n++ {
			base := n * channels
			for c := 0; c < channels; c++ {
				dst[c][dstOff+n] = u8ToF32(src[base+c])
			}
		}
	case FormatS16:
		for n := 0; n < frames; n++ {
			base := n * channels * 2
			for c := 0; c < channels; c++ {
				dst[c][dstOff+n] = s16ToF32(sampleS16(src[base+c*2:]))
			}
		}
	case FormatS24:
		for n := 0; n < frames; n++ {
			base := n * channels * 3
			for c := 0; c < channels; c++ {
				dst[c][dstOff+n] = s24ToF32(sampleS24(src[base+c*3:]))
			}
		}
	case FormatS32:
		for n := 0; n < frames; n++ {
			base := n * channels * 4
			for c := 0; c < channels; c++ {
				dst[c][dstOff+n] = s32ToF32(sampleS32(src[base+c*4:]))
			}
		}
	case FormatF32:
		for n := 0; n < frames; n++ {
			base := n * channels * 4
			for c := 0; c < channels; c++ {
				dst[c][dstOff+n] = sampleF32(src[base+c*4:])
			}
		}
	}
}

// interleaveFromF32 merges per-channel f32 planes (read at srcOff)
// into frames interleaved samples of format f.
func interleaveFromF32(dst []byte, f Format, channels, frames int, src [][]float32, srcOff int, mode DitherMode, rng *lcg) {
	switch f {
	case FormatU8:
		for n := 0; n < frames; n++ {
			base := n * channels
			for c := 0; c < channels; c++ {
				x := src[c][srcOff+n]
				x += float32(rng.ditherF64(mode, -1.0/128.0, 1.0/127.0))
				dst[base+c] = f32ToU8(x)
			}
		}
	case FormatS16:
		for n := 0; n < frames; n++ {
			base := n * channels * 2
			for c := 0; c < channels; c++ {
				x := src[c][srcOff+n]
				x += float32(rng.ditherF64(mode, -1.0/32768.0, 1.0/32767.0))
				putSampleS16(dst[base+c*2:], f32ToS16(x))
			}
		}
	case FormatS24:
		for n := 0; n < frames; n++ {
			base := n * channels * 3
			for c := 0; c < channels; c++ {
				v := f32ToS24(src[c][srcOff+n])
				dst[base+c*3+0] = byte(v)
				dst[base+c*3+1] = byte(v >> 8)
				dst[base+c*3+2] = byte(v >> 16)
			}
		}
	case FormatS32:
		for n := 0; n < frames; n++ {
			base := n * channels * 4
			for c := 0; c < channels; c++ {
				putSampleS32(dst[base+c*4:], f32ToS32(src[c][srcOff+n]))
			}
		}
	case FormatF32:
		for n := 0; n < frames; n++ {
			base := n * channels * 4
			for c := 0; c < channels; c++ {
				putSampleF32(dst[base+c*4:], src[c][srcOff+n])
			}
		}
	}
}
