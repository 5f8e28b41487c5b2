package gopcm

import "math"

// Linear interpolation resampler. Each output frame at input time t
// is lerp(cache[floor(t)], cache[floor(t)+1], frac(t)); the
// fractional phase carries over across reads so back-to-back reads of
// n and m frames match a single read of n+m frames exactly.

const (
	// linearCacheFrames is the per-channel input cache size.
	linearCacheFrames = 256
	// linearMaxFramesPerPass caps how many output frames one loop
	// iteration may produce, bounding the magnitude the phase
	// accumulator can reach before it is re-normalized.
	linearMaxFramesPerPass = 16384
)

type linearResampler struct {
	// timeIn is the fractional read position within the cache.
	timeIn float64
	// leftover counts input frames retained at the cache start from
	// the previous read (the interpolant tail).
	leftover int

	cache  [MaxChannels][linearCacheFrames]float32
	planes [MaxChannels][]float32
}

func (l *linearResampler) read(r *Resampler, frameCount int, dst [][]float32) int {
	channels := r.channels

	total := 0
	for total < frameCount {
		rateIn, rateOut := r.SampleRates()
		factor := float64(rateIn) / float64(rateOut)

		remaining := frameCount - total
		if remaining > linearMaxFramesPerPass {
			remaining = linearMaxFramesPerPass
		}

		// Input frames this pass could need: the span covered by the
		// requested outputs, plus one for rounding and one for the
		// next-sample interpolant.
		needed := int(math.Ceil(l.timeIn+float64(remaining)*factor)) + 2
		if needed > linearCacheFrames {
			needed = linearCacheFrames
		}

		avail := l.leftover
		short := false
		if needed > avail {
			toRead := needed - avail
			for ch := 0; ch < channels; ch++ {
				l.planes[ch] = l.cache[ch][avail : avail+toRead]
			}
			read := r.cfg.OnReadDeinterleaved(toRead, l.planes[:channels])
			avail += read
			short = read < toRead
		}
		if avail < 2 {
			l.leftover = avail
			break
		}

		// Output frames producible from the cached span. The read
		// position must stay below avail-1 so cache[floor(t)+1] is
		// valid.
		span := float64(avail-1) - l.timeIn
		count := int(math.Ceil(span / factor))
		if count > remaining {
			count = remaining
		}
		if count <= 0 {
			if short || avail == linearCacheFrames {
				break
			}
			continue
		}

		// The phase is renormalized after every output frame so its
		// float evolution does not depend on how the caller chunks
		// its reads: n+m frames in two calls match n+m in one call
		// bit for bit.
		phase := l.timeIn
		idx := int(phase)
		phase -= float64(idx)
		produced := 0
		for k := 0; k < count && idx < avail-1; k++ {
			f := float32(phase)
			for ch := 0; ch < channels; ch++ {
				cache := &l.cache[ch]
				a := cache[idx]
				dst[ch][total+k] = a + (cache[idx+1]-a)*f
			}
			produced++
			phase += factor
			adv := int(phase)
			phase -= float64(adv)
			idx += adv
		}
		if produced == 0 {
			if short || avail == linearCacheFrames {
				break
			}
			continue
		}

		consumed := idx
		if consumed > avail-1 {
			// Keep the interpolant; push the overshoot back into the
			// phase (exact: a small integer added to a fraction).
			phase += float64(consumed - (avail - 1))
			consumed = avail - 1
		}
		if consumed > 0 {
			for ch := 0; ch < channels; ch++ {
				copy(l.cache[ch][:avail-consumed], l.cache[ch][consumed:avail])
			}
		}
		l.timeIn = phase
		l.leftover = avail - consumed
		total += produced
	}
	return total
}
