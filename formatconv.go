package gopcm

// FormatConverter is the streaming PCM format converter. It converts
// between any pair of supported sample formats and, at the same time,
// between interleaved and deinterleaved stream layouts, pulling its
// input from a callback.
//
// Inside a Pipeline two instances bracket the float stages: the
// pre-converter turns client-format interleaved input into
// deinterleaved f32 planes, and the post-converter turns deinterleaved
// f32 back into the consumer's interleaved format, with optional
// dither on the narrowing conversions.

// ReadProc supplies interleaved frames in the input format. It must
// write up to frameCount frames into dst and return the number of
// frames written. Returning fewer than frameCount signals end of
// input.
type ReadProc func(frameCount int, dst []byte) int

// ReadDeinterleavedProc supplies deinterleaved f32 frames, one plane
// per channel. Deinterleaved buffers only exist between pipeline
// stages, where the working format is always f32.
type ReadDeinterleavedProc func(frameCount int, dst [][]float32) int

// formatConverterChunkFrames is the scratch block size. Requests
// larger than the scratch are served by looping; the scratch itself
// lives inside the converter so read paths never allocate.
const formatConverterChunkFrames = 256

// FormatConverterConfig configures a FormatConverter. Exactly one of
// OnRead and OnReadDeinterleaved must be set.
type FormatConverterConfig struct {
	FormatIn  Format
	FormatOut Format
	Channels  int

	// DitherMode applies to reductions into u8 or s16 only.
	DitherMode DitherMode
	// DitherSeed overrides the deterministic default seed when
	// non-zero.
	DitherSeed uint32

	// Kernel opt-outs. The format kernels are scalar; the flags are
	// accepted for config symmetry with the router and resampler.
	NoSSE2 bool
	NoAVX2 bool
	NoNEON bool

	// OnRead pulls interleaved frames in FormatIn.
	OnRead ReadProc
	// OnReadDeinterleaved pulls deinterleaved f32 frames.
	OnReadDeinterleaved ReadDeinterleavedProc
}

// FormatConverter converts sample formats and stream layouts while
// streaming. Create one with NewFormatConverter; the zero value is
// not usable.
type FormatConverter struct {
	cfg FormatConverterConfig
	rng lcg

	// ditherActive is fixed at init: dither only applies when
	// narrowing into u8 or s16.
	ditherActive bool

	scratchBytes [formatConverterChunkFrames * MaxChannels * 4]byte
	scratchF32   [MaxChannels][formatConverterChunkFrames]float32
	planes       [MaxChannels][]float32
}

// NewFormatConverter validates the config and builds a converter.
func NewFormatConverter(cfg FormatConverterConfig) (*FormatConverter, error) {
	if !cfg.FormatIn.valid() || !cfg.FormatOut.valid() {
		return nil, ErrInvalidFormat
	}
	if cfg.Channels < 1 || cfg.Channels > MaxChannels {
		return nil, ErrInvalidChannels
	}
	if (cfg.OnRead == nil) == (cfg.OnReadDeinterleaved == nil) {
		return nil, ErrNoReadCallback
	}
	c := &FormatConverter{
		cfg: cfg,
		rng: newLCG(cfg.DitherSeed),
	}
	c.ditherActive = cfg.DitherMode != DitherNone && ditherApplies(cfg.FormatIn, cfg.FormatOut)
	return c, nil
}

// ditherApplies reports whether the conversion is a reduction into u8
// or s16. Dither is never applied when the source is as narrow as or
// narrower than the destination.
func ditherApplies(in, out Format) bool {
	switch out {
	case FormatU8:
		return in != FormatU8
	case FormatS16:
		switch in {
		case FormatS24, FormatS32, FormatF32:
			return true
		}
	}
	return false
}

func (c *FormatConverter) ditherMode() DitherMode {
	if !c.ditherActive {
		return DitherNone
	}
	return c.cfg.DitherMode
}

// Read fills dst with up to frameCount interleaved frames in
// FormatOut and returns the number of frames written. A short return
// means the source ran out of input.
func (c *FormatConverter) Read(frameCount int, dst []byte) int {
	if c.cfg.OnRead != nil {
		return c.readInterleavedSource(frameCount, dst)
	}
	return c.readDeinterleavedSource(frameCount, dst)
}

// readInterleavedSource converts interleaved FormatIn to interleaved
// FormatOut through the scratch block.
func (c *FormatConverter) readInterleavedSource(frameCount int, dst []byte) int {
	bpfIn := c.cfg.FormatIn.FrameSize(c.cfg.Channels)
	bpfOut := c.cfg.FormatOut.FrameSize(c.cfg.Channels)
	mode := c.ditherMode()

	total := 0
	for total < frameCount {
		chunk := frameCount - total
		if chunk > formatConverterChunkFrames {
			chunk = formatConverterChunkFrames
		}
		src := c.scratchBytes[:chunk*bpfIn]
		read := c.cfg.OnRead(chunk, src)
		if read > 0 {
			convertPCM(dst[total*bpfOut:], c.cfg.FormatOut, src, c.cfg.FormatIn, read*c.cfg.Channels, mode, &c.rng)
			total += read
		}
		if read < chunk {
			break
		}
	}
	return total
}

// readDeinterleavedSource interleaves f32 planes pulled from the
// source into FormatOut frames.
func (c *FormatConverter) readDeinterleavedSource(frameCount int, dst []byte) int {
	bpfOut := c.cfg.FormatOut.FrameSize(c.cfg.Channels)
	mode := c.ditherMode()

	total := 0
	for total < frameCount {
		chunk := frameCount - total
		if chunk > formatConverterChunkFrames {
			chunk = formatConverterChunkFrames
		}
		for ch := 0; ch < c.cfg.Channels; ch++ {
			c.planes[ch] = c.scratchF32[ch][:chunk]
		}
		read := c.cfg.OnReadDeinterleaved(chunk, c.planes[:c.cfg.Channels])
		if read > 0 {
			interleaveFromF32(dst[total*bpfOut:], c.cfg.FormatOut, c.cfg.Channels, read, c.planes[:c.cfg.Channels], 0, mode, &c.rng)
			total += read
		}
		if read < chunk {
			break
		}
	}
	return total
}

// ReadDeinterleaved fills the per-channel f32 planes in dst with up
// to frameCount frames and returns the number written. Each plane
// must hold at least frameCount samples.
func (c *FormatConverter) ReadDeinterleaved(frameCount int, dst [][]float32) int {
	if c.cfg.OnReadDeinterleaved != nil {
		// f32 planes in, f32 planes out: hand the caller's buffers
		// straight to the source.
		return c.cfg.OnReadDeinterleaved(frameCount, dst)
	}

	bpfIn := c.cfg.FormatIn.FrameSize(c.cfg.Channels)
	total := 0
	for total < frameCount {
		chunk := frameCount - total
		if chunk > formatConverterChunkFrames {
			chunk = formatConverterChunkFrames
		}
		src := c.scratchBytes[:chunk*bpfIn]
		read := c.cfg.OnRead(chunk, src)
		if read > 0 {
			deinterleaveToF32(dst, total, src, c.cfg.FormatIn, c.cfg.Channels, read)
			total += read
		}
		if read < chunk {
			break
		}
	}
	return total
}
