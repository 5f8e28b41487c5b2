// pcmpipe converts WAV files offline through the gopcm pipeline:
// sample format, channel count and sample rate in one pass.
//
// Usage:
//
//	pcmpipe --in song.wav --out song48k.wav --rate 48000
//	pcmpipe --in surround.wav --out stereo.wav --channels 2 --format s16 --dither triangle
//	pcmpipe --in song.wav --out out.wav --profile studio.yaml
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/thesyncim/gopcm"
)

// profile mirrors the command line flags so repeated conversions can
// be captured in a YAML file. Flag values, when set explicitly,
// override the profile.
type profile struct {
	Format    string `yaml:"format"`
	Channels  int    `yaml:"channels"`
	Rate      int    `yaml:"rate"`
	Dither    string `yaml:"dither"`
	Resampler string `yaml:"resampler"`
	SincWidth int    `yaml:"sinc_width"`
}

func main() {
	var (
		inPath      = pflag.String("in", "", "input WAV file")
		outPath     = pflag.String("out", "", "output WAV file")
		formatName  = pflag.String("format", "", "output sample format (u8, s16, s24, s32); default keeps the input format")
		channels    = pflag.Int("channels", 0, "output channel count; default keeps the input count")
		rate        = pflag.Int("rate", 0, "output sample rate; default keeps the input rate")
		ditherName  = pflag.String("dither", "none", "dither mode for reductions into u8/s16 (none, rectangle, triangle)")
		resampler   = pflag.String("resampler", "linear", "resample algorithm (linear, sinc)")
		sincWidth   = pflag.Int("sinc-width", 0, "sinc window width (2-32); 0 selects the default")
		profilePath = pflag.String("profile", "", "YAML conversion profile; explicit flags override it")
		verbose     = pflag.BoolP("verbose", "v", false, "debug logging")
	)
	pflag.Parse()

	logger := log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if *inPath == "" || *outPath == "" {
		pflag.Usage()
		os.Exit(2)
	}

	if *profilePath != "" {
		p, err := loadProfile(*profilePath)
		if err != nil {
			logger.Fatal("cannot load profile", "path", *profilePath, "err", err)
		}
		if !pflag.CommandLine.Changed("format") && p.Format != "" {
			*formatName = p.Format
		}
		if !pflag.CommandLine.Changed("channels") && p.Channels != 0 {
			*channels = p.Channels
		}
		if !pflag.CommandLine.Changed("rate") && p.Rate != 0 {
			*rate = p.Rate
		}
		if !pflag.CommandLine.Changed("dither") && p.Dither != "" {
			*ditherName = p.Dither
		}
		if !pflag.CommandLine.Changed("resampler") && p.Resampler != "" {
			*resampler = p.Resampler
		}
		if !pflag.CommandLine.Changed("sinc-width") && p.SincWidth != 0 {
			*sincWidth = p.SincWidth
		}
	}

	if err := run(logger, *inPath, *outPath, *formatName, *channels, *rate, *ditherName, *resampler, *sincWidth); err != nil {
		logger.Fatal("conversion failed", "err", err)
	}
}

func loadProfile(path string) (profile, error) {
	var p profile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

func run(logger *log.Logger, inPath, outPath, formatName string, channels, rate int, ditherName, resampler string, sincWidth int) error {
	f, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("%s: not a valid WAV file", inPath)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}

	srcRate := int(dec.SampleRate)
	srcChannels := int(dec.NumChans)
	srcFormat, err := formatForBitDepth(int(dec.BitDepth))
	if err != nil {
		return err
	}
	frames := len(buf.Data) / srcChannels
	logger.Info("decoded input",
		"file", inPath, "format", srcFormat, "channels", srcChannels,
		"rate", srcRate, "frames", frames)

	dstFormat := srcFormat
	if formatName != "" {
		dstFormat, err = gopcm.ParseFormat(formatName)
		if err != nil {
			return err
		}
		if dstFormat == gopcm.FormatF32 {
			return fmt.Errorf("f32 WAV output is not supported; pick an integer format")
		}
	}
	dstChannels := srcChannels
	if channels != 0 {
		dstChannels = channels
	}
	dstRate := srcRate
	if rate != 0 {
		dstRate = rate
	}

	dither, err := parseDither(ditherName)
	if err != nil {
		return err
	}
	algorithm, err := parseResampler(resampler)
	if err != nil {
		return err
	}

	in := intBufferToBytes(buf, srcFormat, srcChannels)

	pos := 0
	pipe, err := gopcm.NewPipeline(gopcm.PipelineConfig{
		FormatIn:      srcFormat,
		ChannelsIn:    srcChannels,
		SampleRateIn:  srcRate,
		FormatOut:     dstFormat,
		ChannelsOut:   dstChannels,
		SampleRateOut: dstRate,
		DitherMode:    dither,
		Algorithm:     algorithm,
		Sinc:          gopcm.SincConfig{WindowWidth: sincWidth},
		OnRead: func(want int, dst []byte) int {
			bpf := srcFormat.FrameSize(srcChannels)
			n := frames - pos
			if n > want {
				n = want
			}
			copy(dst[:n*bpf], in[pos*bpf:])
			pos += n
			return n
		},
	})
	if err != nil {
		return err
	}
	logger.Debug("pipeline built",
		"passthrough", pipe.IsPassthrough(), "resampler", algorithm, "dither", dither)

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := wav.NewEncoder(out, dstRate, dstFormat.SampleSize()*8, dstChannels, 1)

	const chunkFrames = 4096
	bpfOut := dstFormat.FrameSize(dstChannels)
	chunk := make([]byte, chunkFrames*bpfOut)
	outBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: dstChannels, SampleRate: dstRate},
		SourceBitDepth: dstFormat.SampleSize() * 8,
	}
	written := 0
	for {
		got := pipe.Read(chunkFrames, chunk)
		if got == 0 {
			break
		}
		outBuf.Data = bytesToInts(chunk[:got*bpfOut], dstFormat)
		if err := enc.Write(outBuf); err != nil {
			return err
		}
		written += got
		if got < chunkFrames {
			break
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	logger.Info("wrote output",
		"file", outPath, "format", dstFormat, "channels", dstChannels,
		"rate", dstRate, "frames", written)
	return nil
}

func formatForBitDepth(bits int) (gopcm.Format, error) {
	switch bits {
	case 8:
		return gopcm.FormatU8, nil
	case 16:
		return gopcm.FormatS16, nil
	case 24:
		return gopcm.FormatS24, nil
	case 32:
		return gopcm.FormatS32, nil
	default:
		return gopcm.FormatUnknown, fmt.Errorf("unsupported WAV bit depth %d", bits)
	}
}

func parseDither(name string) (gopcm.DitherMode, error) {
	switch name {
	case "", "none":
		return gopcm.DitherNone, nil
	case "rectangle":
		return gopcm.DitherRectangle, nil
	case "triangle":
		return gopcm.DitherTriangle, nil
	default:
		return gopcm.DitherNone, fmt.Errorf("unknown dither mode %q", name)
	}
}

func parseResampler(name string) (gopcm.ResampleAlgorithm, error) {
	switch name {
	case "", "linear":
		return gopcm.ResampleLinear, nil
	case "sinc":
		return gopcm.ResampleSinc, nil
	case "none":
		return gopcm.ResampleNone, nil
	default:
		return gopcm.ResampleLinear, fmt.Errorf("unknown resampler %q", name)
	}
}

// intBufferToBytes packs go-audio's per-sample ints into interleaved
// native-endian PCM bytes of the given format.
func intBufferToBytes(buf *audio.IntBuffer, f gopcm.Format, channels int) []byte {
	frames := len(buf.Data) / channels
	out := make([]byte, frames*f.FrameSize(channels))
	for i, v := range buf.Data[:frames*channels] {
		switch f {
		case gopcm.FormatU8:
			out[i] = byte(v)
		case gopcm.FormatS16:
			binary.NativeEndian.PutUint16(out[i*2:], uint16(int16(v)))
		case gopcm.FormatS24:
			out[i*3] = byte(v)
			out[i*3+1] = byte(v >> 8)
			out[i*3+2] = byte(v >> 16)
		case gopcm.FormatS32:
			binary.NativeEndian.PutUint32(out[i*4:], uint32(int32(v)))
		}
	}
	return out
}

// bytesToInts unpacks interleaved PCM bytes into go-audio's
// per-sample int representation.
func bytesToInts(b []byte, f gopcm.Format) []int {
	ss := f.SampleSize()
	count := len(b) / ss
	out := make([]int, count)
	for i := 0; i < count; i++ {
		s := b[i*ss:]
		switch f {
		case gopcm.FormatU8:
			out[i] = int(s[0])
		case gopcm.FormatS16:
			out[i] = int(int16(binary.NativeEndian.Uint16(s)))
		case gopcm.FormatS24:
			v := int32(uint32(s[0])<<8|uint32(s[1])<<16|uint32(s[2])<<24) >> 8
			out[i] = int(v)
		case gopcm.FormatS32:
			out[i] = int(int32(binary.NativeEndian.Uint32(s)))
		}
	}
	return out
}
