package gopcm

import (
	"sync/atomic"

	"github.com/thesyncim/gopcm/internal/vecmath"
)

// Resampler converts deinterleaved f32 audio from one sample rate to
// another. Three algorithms are available: linear interpolation,
// windowed-sinc interpolation, and a passthrough that bypasses
// resampling entirely.
//
// Sample rates may be changed while the resampler is in use (see
// SetSampleRate); every other configuration field is fixed at init.

// ResampleAlgorithm selects the interpolation strategy. The zero
// value is linear, the pipeline default.
type ResampleAlgorithm int

const (
	ResampleLinear ResampleAlgorithm = iota
	ResampleSinc
	ResampleNone
)

func (a ResampleAlgorithm) String() string {
	switch a {
	case ResampleLinear:
		return "linear"
	case ResampleSinc:
		return "sinc"
	case ResampleNone:
		return "none"
	default:
		return "unknown"
	}
}

// SincWindowFunction shapes the sinc interpolation kernel.
type SincWindowFunction int

const (
	SincWindowHann SincWindowFunction = iota
	SincWindowRectangular
)

// SincConfig tunes the windowed-sinc algorithm.
type SincConfig struct {
	WindowFunction SincWindowFunction
	// WindowWidth is the number of taps on each side of the
	// interpolation point, in [2, 32]. Zero selects the default.
	WindowWidth int
}

const (
	minSincWindowWidth     = 2
	maxSincWindowWidth     = 32
	defaultSincWindowWidth = 16
)

// ResamplerConfig configures a Resampler.
type ResamplerConfig struct {
	SampleRateIn  int
	SampleRateOut int
	Channels      int
	Algorithm     ResampleAlgorithm

	// NeverConsumeEndOfInput keeps one window width of input
	// unconsumed so a future read can continue from cached state
	// instead of flushing with silence.
	NeverConsumeEndOfInput bool

	NoSSE2 bool
	NoAVX2 bool
	NoNEON bool

	OnReadDeinterleaved ReadDeinterleavedProc

	Sinc SincConfig
}

// Resampler is the streaming sample-rate converter. Create one with
// NewResampler.
type Resampler struct {
	cfg      ResamplerConfig
	channels int
	kernel   vecmath.Kernel

	// The rates are single-word atomics so SetInputSampleRate and
	// SetOutputSampleRate may be issued from outside the audio
	// thread. rateSeq is a seqlock version counter: SetSampleRate
	// bumps it to odd, stores both rates, and bumps it to even, so
	// read iterations never observe a torn (in, out) pair.
	rateIn  atomic.Uint32
	rateOut atomic.Uint32
	rateSeq atomic.Uint32

	linear *linearResampler
	sinc   *sincResampler
}

// NewResampler validates the config and builds a resampler.
func NewResampler(cfg ResamplerConfig) (*Resampler, error) {
	if cfg.SampleRateIn <= 0 || cfg.SampleRateOut <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.Channels < 1 || cfg.Channels > MaxChannels {
		return nil, ErrInvalidChannels
	}
	if cfg.Algorithm < ResampleLinear || cfg.Algorithm > ResampleNone {
		return nil, ErrInvalidAlgorithm
	}
	if cfg.OnReadDeinterleaved == nil {
		return nil, ErrNoReadCallback
	}

	r := &Resampler{
		cfg:      cfg,
		channels: cfg.Channels,
		kernel:   vecmath.Select(cfg.NoSSE2, cfg.NoAVX2, cfg.NoNEON),
	}
	r.rateIn.Store(uint32(cfg.SampleRateIn))
	r.rateOut.Store(uint32(cfg.SampleRateOut))

	switch cfg.Algorithm {
	case ResampleLinear:
		r.linear = &linearResampler{}
	case ResampleSinc:
		width := cfg.Sinc.WindowWidth
		if width == 0 {
			width = defaultSincWindowWidth
		}
		if width < minSincWindowWidth || width > maxSincWindowWidth {
			return nil, ErrInvalidWindowWidth
		}
		if cfg.Sinc.WindowFunction != SincWindowHann && cfg.Sinc.WindowFunction != SincWindowRectangular {
			return nil, ErrInvalidAlgorithm
		}
		r.sinc = newSincResampler(width, cfg.Sinc.WindowFunction)
	}
	return r, nil
}

// SampleRates returns a consistent snapshot of the current input and
// output rates.
func (r *Resampler) SampleRates() (in, out int) {
	for {
		seq := r.rateSeq.Load()
		if seq&1 != 0 {
			continue
		}
		in = int(r.rateIn.Load())
		out = int(r.rateOut.Load())
		if r.rateSeq.Load() == seq {
			return in, out
		}
	}
}

// SetSampleRate atomically replaces both rates. Reads load the rates
// once at the start of each internal loop pass, so a read in progress
// uses the new ratio from its next pass on; frames of the current pass
// keep the old ratio.
func (r *Resampler) SetSampleRate(in, out int) error {
	if in <= 0 || out <= 0 {
		return ErrInvalidSampleRate
	}
	r.rateSeq.Add(1)
	r.rateIn.Store(uint32(in))
	r.rateOut.Store(uint32(out))
	r.rateSeq.Add(1)
	return nil
}

// SetInputSampleRate replaces the input rate only.
func (r *Resampler) SetInputSampleRate(rate int) error {
	if rate <= 0 {
		return ErrInvalidSampleRate
	}
	r.rateSeq.Add(1)
	r.rateIn.Store(uint32(rate))
	r.rateSeq.Add(1)
	return nil
}

// SetOutputSampleRate replaces the output rate only.
func (r *Resampler) SetOutputSampleRate(rate int) error {
	if rate <= 0 {
		return ErrInvalidSampleRate
	}
	r.rateSeq.Add(1)
	r.rateOut.Store(uint32(rate))
	r.rateSeq.Add(1)
	return nil
}

// ExpectedOutputFrameCount returns the number of output frames
// produced per inputFrames input frames at the current ratio, rounded
// up.
func (r *Resampler) ExpectedOutputFrameCount(inputFrames int) int {
	in, out := r.SampleRates()
	return (inputFrames*out + in - 1) / in
}

// Read fills the per-channel planes in dst with up to frameCount
// resampled frames and returns the number written. A short return
// means the source ran out of input; the sinc algorithm may withhold
// up to one window width of trailing frames it cannot interpolate.
func (r *Resampler) Read(frameCount int, dst [][]float32) int {
	switch r.cfg.Algorithm {
	case ResampleNone:
		return r.cfg.OnReadDeinterleaved(frameCount, dst)
	case ResampleSinc:
		return r.sinc.read(r, frameCount, dst)
	default:
		return r.linear.read(r, frameCount, dst)
	}
}
