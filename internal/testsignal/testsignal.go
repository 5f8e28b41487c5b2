// Package testsignal generates deterministic audio test signals and
// provides the spectral measurements the conversion tests assert
// against. It is test-only support code; nothing here is safe for
// real-time use.
package testsignal

import "math"

// Sine generates frames samples of a sine wave at freq Hz, sampled at
// rate Hz with the given peak amplitude.
func Sine(freq float64, rate, frames int, amplitude float64) []float32 {
	out := make([]float32, frames)
	w := 2 * math.Pi * freq / float64(rate)
	for n := range out {
		out[n] = float32(amplitude * math.Sin(w*float64(n)))
	}
	return out
}

// Ramp generates frames samples counting 0, 1, 2, ... as floats.
// Linear-resampler tests use it because linear interpolation is exact
// on it.
func Ramp(frames int) []float32 {
	out := make([]float32, frames)
	for n := range out {
		out[n] = float32(n)
	}
	return out
}

// Interleave merges per-channel planes into one interleaved buffer.
func Interleave(planes [][]float32) []float32 {
	if len(planes) == 0 {
		return nil
	}
	channels := len(planes)
	frames := len(planes[0])
	out := make([]float32, frames*channels)
	for n := 0; n < frames; n++ {
		for c := 0; c < channels; c++ {
			out[n*channels+c] = planes[c][n]
		}
	}
	return out
}

// GoertzelPower measures the normalized power of the signal at freq
// Hz: the squared magnitude of the Goertzel filter output divided by
// the squared signal length, so a full-scale sine at freq yields
// about 0.25.
func GoertzelPower(signal []float32, rate int, freq float64) float64 {
	n := len(signal)
	if n == 0 {
		return 0
	}
	k := math.Round(float64(n) * freq / float64(rate))
	w := 2 * math.Pi * k / float64(n)
	coeff := 2 * math.Cos(w)

	var s0, s1, s2 float64
	for _, x := range signal {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	return power / (float64(n) * float64(n))
}

// PeakBin scans candidate frequencies on a uniform grid and returns
// the one with the most power. binHz sets the scan granularity.
func PeakBin(signal []float32, rate int, maxFreq, binHz float64) float64 {
	best := 0.0
	bestPower := -1.0
	for f := binHz; f <= maxFreq; f += binHz {
		p := GoertzelPower(signal, rate, f)
		if p > bestPower {
			bestPower = p
			best = f
		}
	}
	return best
}

// THD returns the total harmonic distortion of the signal in dB:
// the power sum of harmonics 2..maxHarmonic of fundamental relative
// to the fundamental's power. More negative is cleaner.
func THD(signal []float32, rate int, fundamental float64, maxHarmonic int) float64 {
	base := GoertzelPower(signal, rate, fundamental)
	if base <= 0 {
		return 0
	}
	var harm float64
	nyquist := float64(rate) / 2
	for h := 2; h <= maxHarmonic; h++ {
		f := fundamental * float64(h)
		if f >= nyquist {
			break
		}
		harm += GoertzelPower(signal, rate, f)
	}
	if harm == 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(harm/base)
}
