package gopcm

// Pipeline is the DSP supervisor. It composes the format converters,
// the channel router and the resampler into a single pull graph:
// Read on the pipeline pulls from the post-format converter, which
// pulls from the router or resampler, down to the pre-format
// converter, which pulls raw frames from the client callback.
//
// The supervisor applies three optimizations at init:
//
//  1. Passthrough: when formats, channel counts, channel maps and
//     sample rates all match and dynamic sample rate is off, every
//     stage is skipped and Read calls the client directly.
//  2. Stage elimination: stages whose input and output descriptors
//     match are never built. When only the sample format differs, a
//     single interleaved format conversion serves the whole pipeline.
//  3. Reordering: when the channel count shrinks, the router runs
//     before the resampler so resampling touches fewer channels;
//     otherwise the resampler runs first.

// PipelineConfig describes both ends of a Pipeline.
type PipelineConfig struct {
	FormatIn     Format
	ChannelsIn   int
	SampleRateIn int
	ChannelMapIn ChannelMap

	FormatOut     Format
	ChannelsOut   int
	SampleRateOut int
	ChannelMapOut ChannelMap

	MixingMode MixingMode
	DitherMode DitherMode
	DitherSeed uint32

	Algorithm ResampleAlgorithm
	Sinc      SincConfig

	// AllowDynamicSampleRate keeps the resampler in the graph even
	// when the rates currently match, so they may change later.
	AllowDynamicSampleRate bool

	// NeverConsumeEndOfInput is forwarded to the resampler.
	NeverConsumeEndOfInput bool

	NoSSE2 bool
	NoAVX2 bool
	NoNEON bool

	// OnRead supplies raw interleaved frames in the input format.
	OnRead ReadProc
}

// Pipeline converts a client-supplied stream to the consumer's
// format, channel layout and sample rate. Create one with
// NewPipeline.
type Pipeline struct {
	cfg PipelineConfig

	isPassthrough bool

	// fmtOnly serves configurations where only the sample format
	// differs: one interleaved conversion, no float stages.
	fmtOnly *FormatConverter

	pre             *FormatConverter
	router          *ChannelRouter
	src             *Resampler
	post            *FormatConverter
	routerBeforeSRC bool
}

// NewPipeline validates the config and wires the stages.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if !cfg.FormatIn.valid() || !cfg.FormatOut.valid() {
		return nil, ErrInvalidFormat
	}
	if cfg.SampleRateIn <= 0 || cfg.SampleRateOut <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if err := cfg.ChannelMapIn.Validate(cfg.ChannelsIn); err != nil {
		return nil, err
	}
	if err := cfg.ChannelMapOut.Validate(cfg.ChannelsOut); err != nil {
		return nil, err
	}
	if cfg.OnRead == nil {
		return nil, ErrNoReadCallback
	}

	p := &Pipeline{cfg: cfg}

	needSRC := cfg.SampleRateIn != cfg.SampleRateOut || cfg.AllowDynamicSampleRate
	if needSRC && cfg.Algorithm == ResampleNone {
		return nil, ErrRateMismatch
	}

	mapsMatch := cfg.ChannelMapIn.equal(cfg.ChannelMapOut, cfg.ChannelsIn) ||
		cfg.ChannelMapIn.IsBlank(cfg.ChannelsIn) ||
		cfg.ChannelMapOut.IsBlank(cfg.ChannelsOut)
	needRouter := cfg.ChannelsIn != cfg.ChannelsOut || !mapsMatch
	needFormat := cfg.FormatIn != cfg.FormatOut

	if !needSRC && !needRouter {
		if !needFormat {
			p.isPassthrough = true
			return p, nil
		}
		fmtOnly, err := NewFormatConverter(FormatConverterConfig{
			FormatIn:   cfg.FormatIn,
			FormatOut:  cfg.FormatOut,
			Channels:   cfg.ChannelsIn,
			DitherMode: cfg.DitherMode,
			DitherSeed: cfg.DitherSeed,
			NoSSE2:     cfg.NoSSE2,
			NoAVX2:     cfg.NoAVX2,
			NoNEON:     cfg.NoNEON,
			OnRead:     cfg.OnRead,
		})
		if err != nil {
			return nil, err
		}
		p.fmtOnly = fmtOnly
		return p, nil
	}

	// Full graph. The pre-converter adapts the raw client stream to
	// deinterleaved f32; the float stages chain behind it; the
	// post-converter re-interleaves into the output format.
	pre, err := NewFormatConverter(FormatConverterConfig{
		FormatIn:  cfg.FormatIn,
		FormatOut: FormatF32,
		Channels:  cfg.ChannelsIn,
		NoSSE2:    cfg.NoSSE2,
		NoAVX2:    cfg.NoAVX2,
		NoNEON:    cfg.NoNEON,
		OnRead:    cfg.OnRead,
	})
	if err != nil {
		return nil, err
	}
	p.pre = pre

	chain := pre.ReadDeinterleaved
	srcChannels := cfg.ChannelsIn
	p.routerBeforeSRC = cfg.ChannelsOut < cfg.ChannelsIn

	buildRouter := func(source ReadDeinterleavedProc) error {
		if !needRouter {
			return nil
		}
		router, err := NewChannelRouter(ChannelRouterConfig{
			ChannelsIn:          cfg.ChannelsIn,
			ChannelMapIn:        p.routerMapIn(),
			ChannelsOut:         cfg.ChannelsOut,
			ChannelMapOut:       p.routerMapOut(),
			MixingMode:          cfg.MixingMode,
			NoSSE2:              cfg.NoSSE2,
			NoAVX2:              cfg.NoAVX2,
			NoNEON:              cfg.NoNEON,
			OnReadDeinterleaved: source,
		})
		if err != nil {
			return err
		}
		p.router = router
		return nil
	}
	buildSRC := func(source ReadDeinterleavedProc) error {
		if !needSRC {
			return nil
		}
		src, err := NewResampler(ResamplerConfig{
			SampleRateIn:           cfg.SampleRateIn,
			SampleRateOut:          cfg.SampleRateOut,
			Channels:               srcChannels,
			Algorithm:              cfg.Algorithm,
			Sinc:                   cfg.Sinc,
			NeverConsumeEndOfInput: cfg.NeverConsumeEndOfInput,
			NoSSE2:                 cfg.NoSSE2,
			NoAVX2:                 cfg.NoAVX2,
			NoNEON:                 cfg.NoNEON,
			OnReadDeinterleaved:    source,
		})
		if err != nil {
			return err
		}
		p.src = src
		return nil
	}

	if p.routerBeforeSRC {
		if err := buildRouter(chain); err != nil {
			return nil, err
		}
		if p.router != nil {
			chain = p.router.Read
			srcChannels = cfg.ChannelsOut
		}
		if err := buildSRC(chain); err != nil {
			return nil, err
		}
		if p.src != nil {
			chain = p.src.Read
		}
	} else {
		if err := buildSRC(chain); err != nil {
			return nil, err
		}
		if p.src != nil {
			chain = p.src.Read
		}
		if err := buildRouter(chain); err != nil {
			return nil, err
		}
		if p.router != nil {
			chain = p.router.Read
		}
	}

	post, err := NewFormatConverter(FormatConverterConfig{
		FormatIn:            FormatF32,
		FormatOut:           cfg.FormatOut,
		Channels:            cfg.ChannelsOut,
		DitherMode:          cfg.DitherMode,
		DitherSeed:          cfg.DitherSeed,
		NoSSE2:              cfg.NoSSE2,
		NoAVX2:              cfg.NoAVX2,
		NoNEON:              cfg.NoNEON,
		OnReadDeinterleaved: chain,
	})
	if err != nil {
		return nil, err
	}
	p.post = post
	return p, nil
}

// routerMapIn returns the input map the router should mix from. A
// blank map against a differing channel count is given the standard
// ordering so spatial blending has positions to work with; matching
// counts keep the blank map's physical-order semantics.
func (p *Pipeline) routerMapIn() ChannelMap {
	m := p.cfg.ChannelMapIn
	if m.IsBlank(p.cfg.ChannelsIn) && p.cfg.ChannelsIn != p.cfg.ChannelsOut {
		return DefaultChannelMap(StandardMapMicrosoft, p.cfg.ChannelsIn)
	}
	return m
}

func (p *Pipeline) routerMapOut() ChannelMap {
	m := p.cfg.ChannelMapOut
	if m.IsBlank(p.cfg.ChannelsOut) && p.cfg.ChannelsIn != p.cfg.ChannelsOut {
		return DefaultChannelMap(StandardMapMicrosoft, p.cfg.ChannelsOut)
	}
	return m
}

// IsPassthrough reports whether Read bypasses every stage and calls
// the client callback directly.
func (p *Pipeline) IsPassthrough() bool {
	return p.isPassthrough
}

// Read fills dst with up to frameCount interleaved frames in the
// output format and returns the number of frames written. A short
// return means the client ran out of input.
func (p *Pipeline) Read(frameCount int, dst []byte) int {
	if p.isPassthrough {
		return p.cfg.OnRead(frameCount, dst)
	}
	if p.fmtOnly != nil {
		return p.fmtOnly.Read(frameCount, dst)
	}
	return p.post.Read(frameCount, dst)
}

// Pump drives the pipeline from the consumer side: it repeatedly
// fills buf with as many whole frames as buf can hold and hands each
// chunk to deliver, until the input runs out or deliver returns
// false. It returns the total number of frames delivered.
//
// Capture backends use this shape to push device data through the
// pipeline to the application in chunks; deliver must not retain buf.
func (p *Pipeline) Pump(buf []byte, deliver func(frames int, data []byte) bool) int {
	bpf := p.cfg.FormatOut.FrameSize(p.cfg.ChannelsOut)
	chunk := len(buf) / bpf
	if chunk == 0 {
		return 0
	}
	total := 0
	for {
		got := p.Read(chunk, buf)
		if got > 0 {
			if !deliver(got, buf[:got*bpf]) {
				return total + got
			}
			total += got
		}
		if got < chunk {
			return total
		}
	}
}

// SetSampleRate atomically replaces both sample rates. It requires
// AllowDynamicSampleRate.
func (p *Pipeline) SetSampleRate(in, out int) error {
	if !p.cfg.AllowDynamicSampleRate || p.src == nil {
		return ErrDynamicRateDisabled
	}
	return p.src.SetSampleRate(in, out)
}

// SetInputSampleRate replaces the input sample rate. It requires
// AllowDynamicSampleRate.
func (p *Pipeline) SetInputSampleRate(rate int) error {
	if !p.cfg.AllowDynamicSampleRate || p.src == nil {
		return ErrDynamicRateDisabled
	}
	return p.src.SetInputSampleRate(rate)
}

// SetOutputSampleRate replaces the output sample rate. It requires
// AllowDynamicSampleRate.
func (p *Pipeline) SetOutputSampleRate(rate int) error {
	if !p.cfg.AllowDynamicSampleRate || p.src == nil {
		return ErrDynamicRateDisabled
	}
	return p.src.SetOutputSampleRate(rate)
}
