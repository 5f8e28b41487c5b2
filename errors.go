// errors.go defines public error types for the gopcm package.

package gopcm

import "errors"

// Public error types for converter and pipeline initialization.
// Read paths never return errors: end of input and upstream
// exhaustion surface as short frame counts (see Pipeline.Read).
var (
	// ErrInvalidFormat indicates an unknown sample format.
	// Valid formats are: u8, s16, s24, s32, f32.
	ErrInvalidFormat = errors.New("gopcm: invalid sample format (must be u8, s16, s24, s32, or f32)")

	// ErrInvalidChannels indicates an unsupported channel count.
	// Valid channel counts are 1 through MaxChannels (32).
	ErrInvalidChannels = errors.New("gopcm: invalid channel count (must be 1-32)")

	// ErrInvalidChannelMap indicates a malformed channel map: Mono
	// combined with other channels, or a non-None position that
	// appears more than once.
	ErrInvalidChannelMap = errors.New("gopcm: invalid channel map")

	// ErrInvalidSampleRate indicates a sample rate of zero.
	ErrInvalidSampleRate = errors.New("gopcm: invalid sample rate (must be greater than 0)")

	// ErrInvalidAlgorithm indicates an unknown resample algorithm.
	ErrInvalidAlgorithm = errors.New("gopcm: invalid resample algorithm")

	// ErrInvalidWindowWidth indicates a sinc window width outside
	// the supported range.
	ErrInvalidWindowWidth = errors.New("gopcm: invalid sinc window width (must be 2-32)")

	// ErrNoReadCallback indicates a converter config without an
	// input callback. Exactly one of the interleaved and
	// deinterleaved callbacks must be set.
	ErrNoReadCallback = errors.New("gopcm: config must set exactly one read callback")

	// ErrDynamicRateDisabled indicates a sample-rate change on a
	// pipeline that was initialized without AllowDynamicSampleRate.
	ErrDynamicRateDisabled = errors.New("gopcm: dynamic sample rate changes are not enabled for this pipeline")

	// ErrRateMismatch indicates differing input and output sample
	// rates combined with the ResampleNone algorithm.
	ErrRateMismatch = errors.New("gopcm: sample rates differ but resampling is disabled")
)
