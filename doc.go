// Package gopcm implements a streaming PCM conversion pipeline in
// pure Go.
//
// The package converts an application-supplied audio stream into the
// exact sample format, channel layout and sample rate a playback or
// capture device demands. It is the data-plane core of an audio I/O
// stack: device backends and codec front-ends sit on either side and
// talk to it through pull callbacks.
//
// # Pipeline
//
// A Pipeline composes up to four stages, each a streaming converter
// that pulls from the stage before it:
//
//   - pre-format conversion: client-format interleaved input to
//     deinterleaved 32-bit float
//   - channel routing: an NxM weight matrix derived from the spatial
//     channel maps
//   - sample-rate conversion: linear or windowed-sinc interpolation
//   - post-format conversion: deinterleaved float back to the
//     consumer's interleaved PCM format, with optional dither
//
// Stages whose input and output descriptors match are skipped; when
// nothing differs at all the pipeline is a passthrough and Read calls
// the client callback directly. When the channel count shrinks, the
// router runs before the resampler so resampling touches fewer
// channels.
//
// # Formats
//
// Supported sample formats are u8, s16, s24, s32 and f32, all
// native-endian and interleaved on the package boundary. s24 is
// tightly packed, three bytes per sample. Reductions into u8 or s16
// may apply rectangular or triangular dither.
//
// # Real-time behavior
//
// Read paths allocate no memory, hold no locks and spawn no threads;
// converter working buffers are fixed arrays inside each instance.
// Read must not be called re-entrantly on one instance, but distinct
// instances are independent. Only the sample rates may change after
// init, and only when the pipeline was built with
// AllowDynamicSampleRate.
package gopcm
