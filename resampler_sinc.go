package gopcm

import (
	"math"

	"github.com/thesyncim/gopcm/internal/vecmath"
)

// Windowed-sinc resampler. Interpolation coefficients are read from a
// lookup table computed once at init: windowWidth*sincTableResolution+1
// entries sampling sinc(x) = sin(pi x)/(pi x), shaped by the window
// function, on a uniform grid. At read time each output frame sums
// 2*windowWidth taps around the fractional read position; the tap
// offsets quantize onto the table grid by rounding.

const (
	sincTableResolution = 8
	// sincCacheExtraFrames is the input chunk appended to the
	// two-window span the cache must always hold.
	sincCacheExtraFrames = 256
	sincCacheFrames      = 2*maxSincWindowWidth + sincCacheExtraFrames
)

type sincResampler struct {
	width int
	table [maxSincWindowWidth*sincTableResolution + 1]float32

	// timeIn is the fractional read position relative to windowPos.
	timeIn float64
	// windowPos is the start of the sliding window within the cache.
	windowPos int
	// inputCount is the number of valid input frames from windowPos.
	inputCount int
	atEnd      bool

	cache  [MaxChannels][sincCacheFrames]float32
	planes [MaxChannels][]float32
}

func newSincResampler(width int, window SincWindowFunction) *sincResampler {
	s := &sincResampler{
		width:     width,
		windowPos: width,
	}
	for i := 0; i <= width*sincTableResolution; i++ {
		x := float64(i) / sincTableResolution
		s.table[i] = float32(sincf(x) * sincWindow(window, x, width))
	}
	return s
}

func sincf(x float64) float64 {
	if x > -1e-9 && x < 1e-9 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// sincWindow evaluates the shaping window at offset x from the
// kernel center, for a support of [-width, width].
func sincWindow(window SincWindowFunction, x float64, width int) float64 {
	switch window {
	case SincWindowHann:
		return 0.5 * (1 + math.Cos(math.Pi*x/float64(width)))
	default:
		return 1
	}
}

func (s *sincResampler) read(r *Resampler, frameCount int, dst [][]float32) int {
	w := s.width
	channels := r.channels

	total := 0
	for total < frameCount {
		rateIn, rateOut := r.SampleRates()
		factor := float64(rateIn) / float64(rateOut)

		// Slide the window back to the cache start when it nears the
		// end, keeping one window width of history.
		if s.windowPos >= sincCacheFrames-2*w {
			keepFrom := s.windowPos - w
			keepTo := s.windowPos + s.inputCount
			n := keepTo - keepFrom
			for ch := 0; ch < channels; ch++ {
				copy(s.cache[ch][:n], s.cache[ch][keepFrom:keepTo])
				if s.atEnd {
					tail := s.cache[ch][n:]
					for i := range tail {
						tail[i] = 0
					}
				}
			}
			s.windowPos = w
		}

		// Pull fresh input into the free area behind the cached
		// frames. A short read marks end of input; the unfilled
		// region is zeroed so trailing taps read silence.
		cacheFull := false
		if !s.atEnd {
			start := s.windowPos + s.inputCount
			free := sincCacheFrames - start
			if free > 0 {
				for ch := 0; ch < channels; ch++ {
					s.planes[ch] = s.cache[ch][start : start+free]
				}
				read := r.cfg.OnReadDeinterleaved(free, s.planes[:channels])
				s.inputCount += read
				if read < free {
					s.atEnd = true
					for ch := 0; ch < channels; ch++ {
						tail := s.cache[ch][start+read:]
						for i := range tail {
							tail[i] = 0
						}
					}
				}
			} else {
				cacheFull = true
			}
		}

		// Usable span of the read position. Normally one window width
		// of lookahead is reserved; once the source is exhausted the
		// zero fill stands in for it, unless the caller asked for the
		// tail to stay untouched.
		usable := s.inputCount
		if !s.atEnd || r.cfg.NeverConsumeEndOfInput {
			usable -= w
		}
		if lim := sincCacheFrames - s.windowPos - w; usable > lim {
			usable = lim
		}

		count := int((float64(usable) - s.timeIn) / factor)
		if count > frameCount-total {
			count = frameCount - total
		}
		if count <= 0 {
			if s.atEnd || cacheFull {
				break
			}
			continue
		}

		// The phase is renormalized after every output frame so its
		// float evolution does not depend on how the caller chunks
		// its reads.
		phase := s.timeIn
		rel := int(phase)
		phase -= float64(rel)
		produced := 0
		for k := 0; k < count && rel < usable; k++ {
			i0 := s.windowPos + rel
			r0 := int(phase*sincTableResolution + 0.5)

			// Tap offsets share the fractional phase, so the table
			// indices advance by the resolution per tap: descending
			// from r0 + res*(w-1) over the left half, ascending from
			// res - r0 over the right half.
			leftOff := r0 + sincTableResolution*(w-1)
			rightOff := sincTableResolution - r0
			for ch := 0; ch < channels; ch++ {
				cache := s.cache[ch][:]
				sum := vecmath.DotStrided(cache[i0-w+1:i0+1], s.table[:], leftOff, -sincTableResolution, r.kernel) +
					vecmath.DotStrided(cache[i0+1:i0+w+1], s.table[:], rightOff, sincTableResolution, r.kernel)
				dst[ch][total+k] = sum
			}
			produced++
			phase += factor
			adv := int(phase)
			phase -= float64(adv)
			rel += adv
		}
		if produced == 0 {
			if s.atEnd || cacheFull {
				break
			}
			continue
		}

		adv := rel
		if adv > s.inputCount {
			// Push the overshoot back into the phase (exact: a small
			// integer added to a fraction).
			phase += float64(adv - s.inputCount)
			adv = s.inputCount
		}
		s.timeIn = phase
		s.windowPos += adv
		s.inputCount -= adv
		total += produced
	}
	return total
}
