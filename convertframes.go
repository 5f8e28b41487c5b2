package gopcm

// ConvertFrames converts a whole interleaved buffer between formats,
// channel counts and sample rates in one shot. It is a thin wrapper
// that runs a Pipeline over an in-memory reader; the streaming API is
// the real interface and should be preferred for anything long-lived.
func ConvertFrames(in []byte, formatIn Format, channelsIn, rateIn int, formatOut Format, channelsOut, rateOut int) ([]byte, error) {
	if !formatIn.valid() || !formatOut.valid() {
		return nil, ErrInvalidFormat
	}
	if channelsIn < 1 || channelsIn > MaxChannels || channelsOut < 1 || channelsOut > MaxChannels {
		return nil, ErrInvalidChannels
	}
	if rateIn <= 0 || rateOut <= 0 {
		return nil, ErrInvalidSampleRate
	}

	bpfIn := formatIn.FrameSize(channelsIn)
	bpfOut := formatOut.FrameSize(channelsOut)
	frameCount := len(in) / bpfIn

	pos := 0
	p, err := NewPipeline(PipelineConfig{
		FormatIn:      formatIn,
		ChannelsIn:    channelsIn,
		SampleRateIn:  rateIn,
		FormatOut:     formatOut,
		ChannelsOut:   channelsOut,
		SampleRateOut: rateOut,
		OnRead: func(want int, dst []byte) int {
			n := frameCount - pos
			if n > want {
				n = want
			}
			copy(dst[:n*bpfIn], in[pos*bpfIn:])
			pos += n
			return n
		},
	})
	if err != nil {
		return nil, err
	}

	// Upper bound on the output length: the rate ratio rounded up,
	// plus slack for the resampler's fractional phase.
	expected := (frameCount*rateOut+rateIn-1)/rateIn + 1
	out := make([]byte, expected*bpfOut)

	total := 0
	for total < expected {
		read := p.Read(expected-total, out[total*bpfOut:])
		total += read
		if read == 0 {
			break
		}
	}
	return out[:total*bpfOut], nil
}
