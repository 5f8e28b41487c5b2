package gopcm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func f32Bytes(samples ...float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		putSampleF32(out[i*4:], s)
	}
	return out
}

func TestConvertU8ToF32(t *testing.T) {
	src := []byte{0, 64, 128, 192, 255}
	dst := make([]byte, len(src)*4)
	convertPCM(dst, FormatF32, src, FormatU8, len(src), DitherNone, nil)

	want := []float32{-1.0, -0.49803922, 0.003921569, 0.50588235, 1.0}
	for i, w := range want {
		assert.InDelta(t, w, sampleF32(dst[i*4:]), 1e-6, "sample %d", i)
	}
}

func TestConvertF32ToU8Boundaries(t *testing.T) {
	src := f32Bytes(1.0, -1.0, 0.0, 2.0, -2.0)
	dst := make([]byte, 5)
	convertPCM(dst, FormatU8, src, FormatF32, 5, DitherNone, &lcg{})

	assert.Equal(t, byte(255), dst[0])
	assert.Equal(t, byte(0), dst[1])
	assert.Equal(t, byte(128), dst[2])
	// Out-of-range input saturates.
	assert.Equal(t, byte(255), dst[3])
	assert.Equal(t, byte(0), dst[4])
}

func TestSampleS24PackUnpack(t *testing.T) {
	b := make([]byte, 3)

	putSampleS24(b, int32(-1)<<8) // 24-bit value -1, MSB-aligned
	assert.Equal(t, []byte{0xff, 0xff, 0xff}, b)
	assert.Equal(t, int32(-1)<<8, sampleS24(b))

	putSampleS24(b, int32(0x123456)<<8)
	assert.Equal(t, []byte{0x56, 0x34, 0x12}, b)
	assert.Equal(t, int32(0x123456)<<8, sampleS24(b))
}

func TestConvertU8S16RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Byte().Draw(t, "x")

		s16 := make([]byte, 2)
		convertPCM(s16, FormatS16, []byte{x}, FormatU8, 1, DitherNone, nil)
		back := make([]byte, 1)
		convertPCM(back, FormatU8, s16, FormatS16, 1, DitherNone, &lcg{})

		assert.Equal(t, x, back[0])
	})
}

func TestConvertS16S32RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Int16().Draw(t, "x")

		s16 := make([]byte, 2)
		putSampleS16(s16, x)
		s32 := make([]byte, 4)
		convertPCM(s32, FormatS32, s16, FormatS16, 1, DitherNone, nil)
		assert.Equal(t, int32(x)<<16, sampleS32(s32))

		back := make([]byte, 2)
		convertPCM(back, FormatS16, s32, FormatS32, 1, DitherNone, &lcg{})
		assert.Equal(t, x, sampleS16(back))
	})
}

func TestConvertS32ToS24KeepsHighBytes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Int32().Draw(t, "x")

		s32 := make([]byte, 4)
		putSampleS32(s32, x)
		s24 := make([]byte, 3)
		convertPCM(s24, FormatS24, s32, FormatS32, 1, DitherNone, nil)
		back := make([]byte, 4)
		convertPCM(back, FormatS32, s24, FormatS24, 1, DitherNone, nil)

		// The low byte is truncated, everything else survives.
		assert.Equal(t, x&^0xff, sampleS32(back))
	})
}

func TestRoundTripF32S16Bound(t *testing.T) {
	// Half a step of quantization plus the gain difference between
	// the 32767 multiplier and the 32768 divisor.
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Float32Range(-1, 1).Draw(t, "x")

		s := f32ToS16(x)
		back := s16ToF32(s)
		require.LessOrEqual(t, math.Abs(float64(back-x)), 1.5/32768)
	})
}

func TestRoundTripF32S24Bound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Float32Range(-1, 1).Draw(t, "x")

		v := f32ToS24(x)
		back := float32(v) / 8388608.0
		require.LessOrEqual(t, math.Abs(float64(back-x)), 1.5/8388608+1e-9)
	})
}

func TestRoundTripF32U8Bound(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Float32Range(-1, 1).Draw(t, "x")

		u := f32ToU8(x)
		back := u8ToF32(u)
		require.LessOrEqual(t, math.Abs(float64(back-x)), 1.0/127)
	})
}

func TestIntToF32ToIntQuantizationBound(t *testing.T) {
	// int -> f32 -> int lands within one quantization step: the
	// forward path divides by the power-of-two range, the narrowing
	// path multiplies by the (2^n - 1) full-scale value.
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Int16().Draw(t, "x")
		back := f32ToS16(s16ToF32(x))
		assert.LessOrEqual(t, absInt(int(back)-int(x)), 1)

		v24 := int32(rapid.IntRange(-1<<23, 1<<23-1).Draw(t, "v24"))
		back24 := f32ToS24(float32(v24) / 8388608.0)
		assert.LessOrEqual(t, absInt(int(back24)-int(v24)), 1)
	})
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestDitherApplies(t *testing.T) {
	assert.True(t, ditherApplies(FormatS16, FormatU8))
	assert.True(t, ditherApplies(FormatF32, FormatU8))
	assert.True(t, ditherApplies(FormatS32, FormatS16))
	assert.True(t, ditherApplies(FormatF32, FormatS16))

	// Widening and same-width conversions never dither.
	assert.False(t, ditherApplies(FormatU8, FormatU8))
	assert.False(t, ditherApplies(FormatU8, FormatS16))
	assert.False(t, ditherApplies(FormatS16, FormatS32))
	assert.False(t, ditherApplies(FormatF32, FormatS24))
	assert.False(t, ditherApplies(FormatF32, FormatS32))
	assert.False(t, ditherApplies(FormatF32, FormatF32))
}

func TestDitheredConversionIsDeterministic(t *testing.T) {
	src := f32Bytes(0.25, -0.5, 0.125, 0.9)

	run := func() []byte {
		rng := newLCG(0)
		dst := make([]byte, 4*2)
		convertPCM(dst, FormatS16, src, FormatF32, 4, DitherTriangle, &rng)
		return dst
	}
	first := run()
	second := run()
	assert.Equal(t, first, second)

	// The dither amplitude is under one LSB; with rounding the result
	// stays within two LSB of the clean value.
	clean := make([]byte, 4*2)
	convertPCM(clean, FormatS16, src, FormatF32, 4, DitherNone, nil)
	for i := 0; i < 4; i++ {
		d := int(sampleS16(first[i*2:])) - int(sampleS16(clean[i*2:]))
		assert.LessOrEqual(t, d, 2)
		assert.GreaterOrEqual(t, d, -2)
	}
}

func TestDitherRangesTriangleVsRectangle(t *testing.T) {
	rng := newLCG(7)
	for i := 0; i < 1000; i++ {
		d := rng.ditherF64(DitherRectangle, -1.0/128, 1.0/127)
		assert.GreaterOrEqual(t, d, -1.0/128)
		assert.Less(t, d, 1.0/127)

		d = rng.ditherF64(DitherTriangle, -1.0/128, 1.0/127)
		assert.GreaterOrEqual(t, d, -1.0/128)
		assert.Less(t, d, 1.0/127)
	}
}
