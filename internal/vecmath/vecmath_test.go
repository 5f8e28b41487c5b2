package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAccumulateWeightedMatchesScalar(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 100).Draw(t, "n")
		w := rapid.Float32Range(-2, 2).Draw(t, "w")

		src := make([]float32, n)
		base := make([]float32, n)
		for i := range src {
			src[i] = rapid.Float32Range(-1, 1).Draw(t, "src")
			base[i] = rapid.Float32Range(-1, 1).Draw(t, "base")
		}

		want := make([]float32, n)
		copy(want, base)
		AccumulateWeighted(want, src, w, KernelScalar)

		for _, k := range []Kernel{KernelUnroll4, KernelUnroll8} {
			got := make([]float32, n)
			copy(got, base)
			AccumulateWeighted(got, src, w, k)
			assert.Equal(t, want, got)
		}
	})
}

func TestDotStridedForwardAndBackward(t *testing.T) {
	table := make([]float32, 64)
	for i := range table {
		table[i] = float32(i)
	}
	samples := []float32{1, 2, 3, 4, 5}

	// Forward stride 4 from offset 2: 2, 6, 10, 14, 18.
	want := float64(1*2 + 2*6 + 3*10 + 4*14 + 5*18)
	for _, k := range []Kernel{KernelScalar, KernelUnroll4, KernelUnroll8} {
		got := DotStrided(samples, table, 2, 4, k)
		assert.InDelta(t, want, float64(got), 1e-5)
	}

	// Backward stride -4 from offset 20: 20, 16, 12, 8, 4.
	want = float64(1*20 + 2*16 + 3*12 + 4*8 + 5*4)
	for _, k := range []Kernel{KernelScalar, KernelUnroll4, KernelUnroll8} {
		got := DotStrided(samples, table, 20, -4, k)
		assert.InDelta(t, want, float64(got), 1e-5)
	}
}

func TestZero(t *testing.T) {
	buf := []float32{1, float32(math.Inf(1)), -3}
	Zero(buf)
	assert.Equal(t, []float32{0, 0, 0}, buf)
}

func TestSelectHonorsOptOuts(t *testing.T) {
	// With every capability opted out the scalar kernel is the only
	// possible answer; with none opted out the choice depends on the
	// host but must be a declared variant.
	assert.Equal(t, KernelScalar, Select(true, true, true))
	k := Select(false, false, false)
	assert.Contains(t, []Kernel{KernelScalar, KernelUnroll4, KernelUnroll8}, k)
}
