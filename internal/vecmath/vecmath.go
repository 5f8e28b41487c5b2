// Package vecmath provides the vectorized float kernels shared by the
// channel router and the resamplers. A kernel variant is chosen once
// at converter init from the host's CPU capabilities and the config's
// opt-out flags; read paths dispatch on the chosen variant with a
// single switch and never consult the CPU again.
package vecmath

import "golang.org/x/sys/cpu"

// Kernel identifies one of the sealed loop variants.
type Kernel int

const (
	// KernelScalar processes one lane per iteration.
	KernelScalar Kernel = iota
	// KernelUnroll4 processes four lanes per iteration (SSE2/NEON
	// register width for f32).
	KernelUnroll4
	// KernelUnroll8 processes eight lanes per iteration (AVX2
	// register width for f32).
	KernelUnroll8
)

// Select picks the widest kernel the host supports, honoring the
// caller's opt-outs.
func Select(noSSE2, noAVX2, noNEON bool) Kernel {
	if cpu.X86.HasAVX2 && !noAVX2 {
		return KernelUnroll8
	}
	if cpu.X86.HasSSE2 && !noSSE2 {
		return KernelUnroll4
	}
	if cpu.ARM64.HasASIMD && !noNEON {
		return KernelUnroll4
	}
	return KernelScalar
}

// AccumulateWeighted computes dst[n] += src[n] * w over
// min(len(dst), len(src)) lanes.
func AccumulateWeighted(dst, src []float32, w float32, k Kernel) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	i := 0
	switch k {
	case KernelUnroll8:
		for ; i+8 <= n; i += 8 {
			dst[i+0] += src[i+0] * w
			dst[i+1] += src[i+1] * w
			dst[i+2] += src[i+2] * w
			dst[i+3] += src[i+3] * w
			dst[i+4] += src[i+4] * w
			dst[i+5] += src[i+5] * w
			dst[i+6] += src[i+6] * w
			dst[i+7] += src[i+7] * w
		}
	case KernelUnroll4:
		for ; i+4 <= n; i += 4 {
			dst[i+0] += src[i+0] * w
			dst[i+1] += src[i+1] * w
			dst[i+2] += src[i+2] * w
			dst[i+3] += src[i+3] * w
		}
	}
	for ; i < n; i++ {
		dst[i] += src[i] * w
	}
}

// DotStrided computes the dot product of samples against every
// stride-th entry of table starting at tableOff:
//
//	sum over n of samples[n] * table[tableOff + n*stride]
//
// It is the inner product of a sinc interpolation window against the
// lookup table for one fractional phase.
func DotStrided(samples, table []float32, tableOff, stride int, k Kernel) float32 {
	n := len(samples)
	var s0, s1, s2, s3 float32
	i := 0
	if k != KernelScalar {
		for ; i+4 <= n; i += 4 {
			t := tableOff + i*stride
			s0 += samples[i+0] * table[t]
			s1 += samples[i+1] * table[t+stride]
			s2 += samples[i+2] * table[t+2*stride]
			s3 += samples[i+3] * table[t+3*stride]
		}
	}
	sum := s0 + s1 + s2 + s3
	for ; i < n; i++ {
		sum += samples[i] * table[tableOff+i*stride]
	}
	return sum
}

// Zero clears dst.
func Zero(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
}
