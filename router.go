package gopcm

import "github.com/thesyncim/gopcm/internal/vecmath"

// ChannelRouter mixes N input channels into M output channels on
// deinterleaved f32 planes. The mixing weights are derived once at
// init from the two channel maps and are never mutated afterwards, so
// a router may be shared read-only across threads (reads themselves
// must not be re-entrant).

// MixingMode selects the channel mixing policy.
type MixingMode int

const (
	// MixingModePlanarBlend distributes unmatched spatial channels
	// across the output according to shared plane weights.
	MixingModePlanarBlend MixingMode = iota
	// MixingModeSimple drops unmatched channels to silence.
	MixingModeSimple
)

// routerChunkFrames sizes the scratch planes the router pulls source
// frames into for the shuffle and mixing paths.
const routerChunkFrames = 256

// ChannelRouterConfig configures a ChannelRouter.
type ChannelRouterConfig struct {
	ChannelsIn    int
	ChannelMapIn  ChannelMap
	ChannelsOut   int
	ChannelMapOut ChannelMap
	MixingMode    MixingMode

	NoSSE2 bool
	NoAVX2 bool
	NoNEON bool

	OnReadDeinterleaved ReadDeinterleavedProc
}

// ChannelRouter applies an NxM weight matrix to deinterleaved f32
// audio. Create one with NewChannelRouter.
type ChannelRouter struct {
	cfg    ChannelRouterConfig
	kernel vecmath.Kernel

	isPassthrough   bool
	isSimpleShuffle bool
	shuffle         [MaxChannels]uint8
	weights         [MaxChannels][MaxChannels]float32

	scratch [MaxChannels][routerChunkFrames]float32
	planes  [MaxChannels][]float32
}

// NewChannelRouter validates the config and computes the routing
// weights.
func NewChannelRouter(cfg ChannelRouterConfig) (*ChannelRouter, error) {
	if err := cfg.ChannelMapIn.Validate(cfg.ChannelsIn); err != nil {
		return nil, err
	}
	if err := cfg.ChannelMapOut.Validate(cfg.ChannelsOut); err != nil {
		return nil, err
	}
	if cfg.OnReadDeinterleaved == nil {
		return nil, ErrNoReadCallback
	}

	r := &ChannelRouter{
		cfg:    cfg,
		kernel: vecmath.Select(cfg.NoSSE2, cfg.NoAVX2, cfg.NoNEON),
	}
	r.plan()
	return r, nil
}

// plan decides between the passthrough, shuffle and general mixing
// paths and, for the general path, fills the weight matrix.
func (r *ChannelRouter) plan() {
	in, out := r.cfg.ChannelsIn, r.cfg.ChannelsOut
	mapIn, mapOut := r.cfg.ChannelMapIn, r.cfg.ChannelMapOut

	if in == out {
		// A blank map stands for physical channel order, so a blank
		// side matches anything with the same count.
		if mapIn.equal(mapOut, in) || mapIn.IsBlank(in) || mapOut.IsBlank(out) {
			r.isPassthrough = true
			return
		}

		// Same positions, different order: a permutation is enough.
		shuffled := true
		for i := 0; i < in; i++ {
			found := false
			for j := 0; j < out; j++ {
				if mapIn[i] == mapOut[j] {
					r.shuffle[i] = uint8(j)
					found = true
					break
				}
			}
			if !found {
				shuffled = false
				break
			}
		}
		if shuffled {
			r.isSimpleShuffle = true
			return
		}
	}

	// General case: layered weight rules.

	// (i) Identity pairs.
	for i := 0; i < in; i++ {
		if mapIn[i] == ChannelNone {
			continue
		}
		for j := 0; j < out; j++ {
			if mapIn[i] == mapOut[j] {
				r.weights[i][j] = 1
			}
		}
	}

	// (ii) Mono fan-out: a mono input feeds every concrete output
	// except LFE.
	for i := 0; i < in; i++ {
		if mapIn[i] != ChannelMono {
			continue
		}
		for j := 0; j < out; j++ {
			switch mapOut[j] {
			case ChannelNone, ChannelMono, ChannelLFE:
			default:
				r.weights[i][j] = 1
			}
		}
	}

	// (iii) Mono fan-in: concrete inputs average into a mono output.
	concrete := 0
	for i := 0; i < in; i++ {
		switch mapIn[i] {
		case ChannelNone, ChannelMono, ChannelLFE:
		default:
			concrete++
		}
	}
	if concrete > 0 {
		for j := 0; j < out; j++ {
			if mapOut[j] != ChannelMono {
				continue
			}
			for i := 0; i < in; i++ {
				switch mapIn[i] {
				case ChannelNone, ChannelMono, ChannelLFE:
				default:
					r.weights[i][j] += 1 / float32(concrete)
				}
			}
		}
	}

	// (iv) Spatial blend. Simple mode stops at the rules above, so
	// unmatched channels stay silent.
	if r.cfg.MixingMode != MixingModePlanarBlend {
		return
	}
	for i := 0; i < in; i++ {
		if !mapIn[i].isSpatial() || mapOut.Contains(mapIn[i], out) {
			continue
		}
		for j := 0; j < out; j++ {
			if !mapOut[j].isSpatial() {
				continue
			}
			if r.weights[i][j] == 0 {
				r.weights[i][j] = planeContribution(mapIn[i], mapOut[j])
			}
		}
	}
	for j := 0; j < out; j++ {
		if !mapOut[j].isSpatial() || mapIn.Contains(mapOut[j], in) {
			continue
		}
		for i := 0; i < in; i++ {
			if !mapIn[i].isSpatial() {
				continue
			}
			if r.weights[i][j] == 0 {
				r.weights[i][j] = planeContribution(mapIn[i], mapOut[j])
			}
		}
	}
}

// Read fills the per-channel planes in dst with up to frameCount
// routed frames and returns the number written.
func (r *ChannelRouter) Read(frameCount int, dst [][]float32) int {
	if r.isPassthrough {
		return r.cfg.OnReadDeinterleaved(frameCount, dst)
	}

	in, out := r.cfg.ChannelsIn, r.cfg.ChannelsOut
	total := 0
	for total < frameCount {
		chunk := frameCount - total
		if chunk > routerChunkFrames {
			chunk = routerChunkFrames
		}
		for ch := 0; ch < in; ch++ {
			r.planes[ch] = r.scratch[ch][:chunk]
		}
		read := r.cfg.OnReadDeinterleaved(chunk, r.planes[:in])
		if read > 0 {
			if r.isSimpleShuffle {
				for i := 0; i < in; i++ {
					copy(dst[r.shuffle[i]][total:total+read], r.scratch[i][:read])
				}
			} else {
				for j := 0; j < out; j++ {
					block := dst[j][total : total+read]
					vecmath.Zero(block)
					for i := 0; i < in; i++ {
						if w := r.weights[i][j]; w != 0 {
							vecmath.AccumulateWeighted(block, r.scratch[i][:read], w, r.kernel)
						}
					}
				}
			}
			total += read
		}
		if read < chunk {
			break
		}
	}
	return total
}

// Weight returns the mixing weight for the input/output channel
// pair. Passthrough and shuffle configurations report their implied
// identity weights.
func (r *ChannelRouter) Weight(in, out int) float32 {
	if in < 0 || in >= r.cfg.ChannelsIn || out < 0 || out >= r.cfg.ChannelsOut {
		return 0
	}
	if r.isPassthrough {
		if in == out {
			return 1
		}
		return 0
	}
	if r.isSimpleShuffle {
		if int(r.shuffle[in]) == out {
			return 1
		}
		return 0
	}
	return r.weights[in][out]
}
