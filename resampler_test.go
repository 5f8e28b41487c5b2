package gopcm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/gopcm/internal/testsignal"
)

func TestResamplerConfigValidation(t *testing.T) {
	src := func(int, [][]float32) int { return 0 }

	_, err := NewResampler(ResamplerConfig{SampleRateIn: 0, SampleRateOut: 48000, Channels: 1, OnReadDeinterleaved: src})
	assert.ErrorIs(t, err, ErrInvalidSampleRate)

	_, err = NewResampler(ResamplerConfig{SampleRateIn: 48000, SampleRateOut: 0, Channels: 1, OnReadDeinterleaved: src})
	assert.ErrorIs(t, err, ErrInvalidSampleRate)

	_, err = NewResampler(ResamplerConfig{SampleRateIn: 48000, SampleRateOut: 48000, Channels: 0, OnReadDeinterleaved: src})
	assert.ErrorIs(t, err, ErrInvalidChannels)

	_, err = NewResampler(ResamplerConfig{SampleRateIn: 48000, SampleRateOut: 48000, Channels: 1})
	assert.ErrorIs(t, err, ErrNoReadCallback)

	_, err = NewResampler(ResamplerConfig{
		SampleRateIn: 48000, SampleRateOut: 44100, Channels: 1,
		Algorithm: ResampleSinc, Sinc: SincConfig{WindowWidth: 1},
		OnReadDeinterleaved: src,
	})
	assert.ErrorIs(t, err, ErrInvalidWindowWidth)

	_, err = NewResampler(ResamplerConfig{
		SampleRateIn: 48000, SampleRateOut: 44100, Channels: 1,
		Algorithm: ResampleSinc, Sinc: SincConfig{WindowWidth: 33},
		OnReadDeinterleaved: src,
	})
	assert.ErrorIs(t, err, ErrInvalidWindowWidth)
}

func TestResamplerSetSampleRateValidation(t *testing.T) {
	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 48000, SampleRateOut: 48000, Channels: 1,
		OnReadDeinterleaved: func(int, [][]float32) int { return 0 },
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.SetSampleRate(0, 48000), ErrInvalidSampleRate)
	assert.ErrorIs(t, r.SetInputSampleRate(0), ErrInvalidSampleRate)
	assert.ErrorIs(t, r.SetOutputSampleRate(0), ErrInvalidSampleRate)

	require.NoError(t, r.SetSampleRate(44100, 96000))
	in, out := r.SampleRates()
	assert.Equal(t, 44100, in)
	assert.Equal(t, 96000, out)
}

func TestLinearDownsampleByTwo(t *testing.T) {
	in := testsignal.Ramp(8)
	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 48000, SampleRateOut: 24000, Channels: 1,
		Algorithm:           ResampleLinear,
		OnReadDeinterleaved: planeSource([][]float32{in}),
	})
	require.NoError(t, err)

	out := [][]float32{make([]float32, 8)}
	got := r.Read(4, out)
	require.Equal(t, 4, got)
	for i, want := range []float32{0, 2, 4, 6} {
		assert.InDelta(t, want, out[0][i], 1e-6, "frame %d", i)
	}
}

func TestLinearSplitReadsMatchSingleRead(t *testing.T) {
	const frames = 500
	signal := testsignal.Sine(440, 48000, frames, 0.9)

	run := func(reads []int) []float32 {
		r, err := NewResampler(ResamplerConfig{
			SampleRateIn: 48000, SampleRateOut: 31000, Channels: 1,
			Algorithm:           ResampleLinear,
			OnReadDeinterleaved: planeSource([][]float32{signal}),
		})
		require.NoError(t, err)
		out := make([]float32, 0, frames)
		buf := [][]float32{make([]float32, frames)}
		for _, n := range reads {
			got := r.Read(n, buf)
			out = append(out, buf[0][:got]...)
			if got < n {
				break
			}
		}
		return out
	}

	single := run([]int{400})
	split := run([]int{100, 150, 150})
	require.Equal(t, len(single), len(split))
	assert.Equal(t, single, split)
}

func TestLinearZeroSourceReturnsZero(t *testing.T) {
	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 48000, SampleRateOut: 44100, Channels: 1,
		Algorithm:           ResampleLinear,
		OnReadDeinterleaved: func(int, [][]float32) int { return 0 },
	})
	require.NoError(t, err)

	out := [][]float32{make([]float32, 16)}
	assert.Equal(t, 0, r.Read(16, out))
	assert.Equal(t, 0, r.Read(16, out))
}

func TestResamplerPassthroughAlgorithm(t *testing.T) {
	in := testsignal.Ramp(32)
	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 48000, SampleRateOut: 48000, Channels: 1,
		Algorithm:           ResampleNone,
		OnReadDeinterleaved: planeSource([][]float32{in}),
	})
	require.NoError(t, err)

	out := [][]float32{make([]float32, 32)}
	require.Equal(t, 32, r.Read(32, out))
	assert.Equal(t, in, out[0])
}

func TestResamplerDynamicRateChange(t *testing.T) {
	in := testsignal.Ramp(200)
	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 48000, SampleRateOut: 48000, Channels: 1,
		Algorithm:           ResampleLinear,
		OnReadDeinterleaved: planeSource([][]float32{in}),
	})
	require.NoError(t, err)

	out := [][]float32{make([]float32, 64)}
	require.Equal(t, 8, r.Read(8, out))
	// Unity ratio reproduces the ramp.
	for i := 0; i < 8; i++ {
		assert.InDelta(t, float64(i), out[0][i], 1e-6)
	}

	// Halve the output rate: subsequent reads advance the input
	// phase twice as fast without dropping or repeating cached
	// input. The next output continues at ramp value 8 and then
	// steps by 2.
	require.NoError(t, r.SetOutputSampleRate(24000))
	require.Equal(t, 8, r.Read(8, out))
	assert.InDelta(t, 8.0, out[0][0], 1e-6)
	for i := 1; i < 8; i++ {
		step := float64(out[0][i]) - float64(out[0][i-1])
		assert.InDelta(t, 2.0, step, 1e-5, "frame %d", i)
	}
}

func TestLinearExpectedOutputFrameCount(t *testing.T) {
	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 44100, SampleRateOut: 48000, Channels: 1,
		OnReadDeinterleaved: func(int, [][]float32) int { return 0 },
	})
	require.NoError(t, err)
	assert.Equal(t, 48000, r.ExpectedOutputFrameCount(44100))
	assert.Equal(t, 3, r.ExpectedOutputFrameCount(2)) // 2 * 48000/44100, rounded up
}

func TestLinearOutputCountBound(t *testing.T) {
	// The linear algorithm withholds the final input sample as the
	// interpolant, so the deficit is bounded by one output step:
	// |framesOut - L*rateOut/rateIn| <= rateOut/rateIn + 1. The
	// assertion allows one extra frame of slack on top of that bound.
	cases := []struct{ rateIn, rateOut, frames int }{
		{48000, 24000, 1000},
		{44100, 48000, 1000},
		{96000, 44100, 4096},
		{8000, 192000, 64},
	}
	for _, tc := range cases {
		signal := testsignal.Sine(100, tc.rateIn, tc.frames, 0.5)
		r, err := NewResampler(ResamplerConfig{
			SampleRateIn: tc.rateIn, SampleRateOut: tc.rateOut, Channels: 1,
			Algorithm:           ResampleLinear,
			OnReadDeinterleaved: planeSource([][]float32{signal}),
		})
		require.NoError(t, err)

		want := float64(tc.frames) * float64(tc.rateOut) / float64(tc.rateIn)
		limit := int(want) + 64
		out := [][]float32{make([]float32, limit)}
		total := 0
		for total < limit {
			got := r.Read(limit-total, [][]float32{out[0][total:]})
			total += got
			if got == 0 {
				break
			}
		}
		bound := float64(tc.rateOut)/float64(tc.rateIn) + 1
		assert.LessOrEqual(t, math.Abs(float64(total)-want), bound+1,
			"%d -> %d", tc.rateIn, tc.rateOut)
	}
}

func TestSincOutputCountBound(t *testing.T) {
	const width = 17
	const frames = 44100
	signal := testsignal.Sine(1000, 44100, frames, 0.5)

	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 44100, SampleRateOut: 48000, Channels: 1,
		Algorithm:           ResampleSinc,
		Sinc:                SincConfig{WindowFunction: SincWindowHann, WindowWidth: width},
		OnReadDeinterleaved: planeSource([][]float32{signal}),
	})
	require.NoError(t, err)

	out := make([]float32, 49000)
	total := 0
	for total < len(out) {
		got := r.Read(len(out)-total, [][]float32{out[total:]})
		total += got
		if got == 0 {
			break
		}
	}
	assert.LessOrEqual(t, math.Abs(float64(total)-48000), float64(1+2*width))
}

func TestSincSpectralQuality(t *testing.T) {
	// Resample a 1 kHz sine from 44.1 kHz to 48 kHz and verify the
	// tone stays put and harmonic distortion stays low.
	const width = 17
	const inFrames = 44100
	signal := testsignal.Sine(1000, 44100, inFrames, 0.5)

	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 44100, SampleRateOut: 48000, Channels: 1,
		Algorithm:           ResampleSinc,
		Sinc:                SincConfig{WindowFunction: SincWindowHann, WindowWidth: width},
		OnReadDeinterleaved: planeSource([][]float32{signal}),
	})
	require.NoError(t, err)

	out := make([]float32, 49000)
	total := 0
	for total < len(out) {
		got := r.Read(len(out)-total, [][]float32{out[total:]})
		total += got
		if got == 0 {
			break
		}
	}
	require.Greater(t, total, 46000)

	// Analyze a window from the middle, sized so 1 kHz lands on an
	// exact Goertzel bin at the output rate.
	mid := out[8000 : 8000+24000]
	fundamental := testsignal.GoertzelPower(mid, 48000, 1000)
	assert.Greater(t, fundamental, 0.01, "fundamental should dominate")

	peak := testsignal.PeakBin(mid, 48000, 4000, 100)
	assert.InDelta(t, 1000, peak, 100)

	thd := testsignal.THD(mid, 48000, 1000, 10)
	assert.Less(t, thd, -60.0)
}

func TestSincNeverConsumeEndOfInputLeavesTail(t *testing.T) {
	const width = 8
	const frames = 1000
	signal := testsignal.Sine(440, 48000, frames, 0.5)

	consumed := 0
	source := func(want int, dst [][]float32) int {
		n := frames - consumed
		if n > want {
			n = want
		}
		copy(dst[0][:n], signal[consumed:consumed+n])
		consumed += n
		return n
	}

	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 48000, SampleRateOut: 44100, Channels: 1,
		Algorithm:              ResampleSinc,
		Sinc:                   SincConfig{WindowWidth: width},
		NeverConsumeEndOfInput: true,
		OnReadDeinterleaved:    source,
	})
	require.NoError(t, err)

	out := make([]float32, 2000)
	total := 0
	for total < len(out) {
		got := r.Read(len(out)-total, [][]float32{out[total:]})
		total += got
		if got == 0 {
			break
		}
	}

	// The converter must hold back roughly one window width of
	// output it cannot interpolate without consuming the tail.
	expected := float64(frames) * 44100 / 48000
	assert.Less(t, float64(total), expected)
	assert.GreaterOrEqual(t, float64(total), expected-float64(2*width+1))
}

func TestSincZeroSourceReturnsZero(t *testing.T) {
	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 44100, SampleRateOut: 48000, Channels: 1,
		Algorithm:           ResampleSinc,
		Sinc:                SincConfig{WindowWidth: 4},
		OnReadDeinterleaved: func(int, [][]float32) int { return 0 },
	})
	require.NoError(t, err)

	out := [][]float32{make([]float32, 16)}
	assert.Equal(t, 0, r.Read(16, out))
	assert.Equal(t, 0, r.Read(16, out))
}

func TestSincSplitReadsMatchSingleRead(t *testing.T) {
	const frames = 2000
	signal := testsignal.Sine(440, 44100, frames, 0.8)

	run := func(reads []int) []float32 {
		r, err := NewResampler(ResamplerConfig{
			SampleRateIn: 44100, SampleRateOut: 48000, Channels: 1,
			Algorithm:           ResampleSinc,
			Sinc:                SincConfig{WindowWidth: 8},
			OnReadDeinterleaved: planeSource([][]float32{signal}),
		})
		require.NoError(t, err)
		out := make([]float32, 0, 3000)
		buf := [][]float32{make([]float32, 3000)}
		for _, n := range reads {
			got := r.Read(n, buf)
			out = append(out, buf[0][:got]...)
			if got < n {
				break
			}
		}
		return out
	}

	single := run([]int{1500})
	split := run([]int{500, 400, 600})
	require.Equal(t, len(single), len(split))
	assert.Equal(t, single, split)
}

func TestSincStereoChannelsIndependent(t *testing.T) {
	const frames = 4000
	left := testsignal.Sine(500, 44100, frames, 0.5)
	right := make([]float32, frames) // silence

	r, err := NewResampler(ResamplerConfig{
		SampleRateIn: 44100, SampleRateOut: 22050, Channels: 2,
		Algorithm:           ResampleSinc,
		Sinc:                SincConfig{WindowWidth: 8},
		OnReadDeinterleaved: planeSource([][]float32{left, right}),
	})
	require.NoError(t, err)

	out := [][]float32{make([]float32, 2500), make([]float32, 2500)}
	total := 0
	for total < 2500 {
		got := r.Read(2500-total, [][]float32{out[0][total:], out[1][total:]})
		total += got
		if got == 0 {
			break
		}
	}
	require.Greater(t, total, 1900)

	// The silent channel stays silent; the tone channel does not.
	var leftEnergy, rightEnergy float64
	for i := 0; i < total; i++ {
		leftEnergy += float64(out[0][i]) * float64(out[0][i])
		rightEnergy += float64(out[1][i]) * float64(out[1][i])
	}
	assert.Greater(t, leftEnergy, 100.0)
	assert.Equal(t, 0.0, rightEnergy)
}
