package gopcm

// MaxChannels is the maximum number of channels per stream. Working
// buffers throughout the package are fixed-size arrays bounded by
// this limit so that read paths never allocate.
const MaxChannels = 32

// Channel identifies the spatial meaning of one slot in a channel
// map.
type Channel uint8

const (
	ChannelNone Channel = iota
	ChannelMono
	ChannelFrontLeft
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLFE
	ChannelBackLeft
	ChannelBackRight
	ChannelFrontLeftCenter
	ChannelFrontRightCenter
	ChannelBackCenter
	ChannelSideLeft
	ChannelSideRight
	ChannelTopCenter
	ChannelTopFrontLeft
	ChannelTopFrontCenter
	ChannelTopFrontRight
	ChannelTopBackLeft
	ChannelTopBackCenter
	ChannelTopBackRight

	// ChannelAux0 through ChannelAux31 carry no spatial meaning.
	// They mix only onto themselves (and to/from Mono).
	ChannelAux0
	ChannelAux31 = ChannelAux0 + 31

	channelCount = int(ChannelAux31) + 1
)

// Aux returns the numbered auxiliary position AUX_k for k in [0, 31].
func Aux(k int) Channel {
	return ChannelAux0 + Channel(k)
}

var channelNames = map[Channel]string{
	ChannelNone:             "NONE",
	ChannelMono:             "MONO",
	ChannelFrontLeft:        "FL",
	ChannelFrontRight:       "FR",
	ChannelFrontCenter:      "FC",
	ChannelLFE:              "LFE",
	ChannelBackLeft:         "BL",
	ChannelBackRight:        "BR",
	ChannelFrontLeftCenter:  "FLC",
	ChannelFrontRightCenter: "FRC",
	ChannelBackCenter:       "BC",
	ChannelSideLeft:         "SL",
	ChannelSideRight:        "SR",
	ChannelTopCenter:        "TC",
	ChannelTopFrontLeft:     "TFL",
	ChannelTopFrontCenter:   "TFC",
	ChannelTopFrontRight:    "TFR",
	ChannelTopBackLeft:      "TBL",
	ChannelTopBackCenter:    "TBC",
	ChannelTopBackRight:     "TBR",
}

func (c Channel) String() string {
	if s, ok := channelNames[c]; ok {
		return s
	}
	if c >= ChannelAux0 && c <= ChannelAux31 {
		return "AUX" + itoa(int(c-ChannelAux0))
	}
	return "INVALID"
}

// itoa avoids pulling strconv into the core for two-digit aux names.
func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

// ChannelMap assigns a spatial position to each physical channel
// slot. Slots at or beyond the stream's channel count must be
// ChannelNone.
type ChannelMap [MaxChannels]Channel

// IsBlank reports whether every position within the first channels
// slots is ChannelNone. A blank map stands for physical channel
// order: slot N maps to slot N.
func (m ChannelMap) IsBlank(channels int) bool {
	for i := 0; i < channels && i < MaxChannels; i++ {
		if m[i] != ChannelNone {
			return false
		}
	}
	return true
}

// Validate checks the map for use with the given channel count.
// A map is valid when the count is in [1, MaxChannels], Mono does not
// appear alongside other channels, and no position other than
// ChannelNone appears twice.
func (m ChannelMap) Validate(channels int) error {
	if channels < 1 || channels > MaxChannels {
		return ErrInvalidChannels
	}
	if m.IsBlank(channels) {
		return nil
	}
	var seen [channelCount]bool
	for i := 0; i < channels; i++ {
		c := m[i]
		if int(c) >= channelCount {
			return ErrInvalidChannelMap
		}
		if c == ChannelMono && channels > 1 {
			return ErrInvalidChannelMap
		}
		if c != ChannelNone {
			if seen[c] {
				return ErrInvalidChannelMap
			}
			seen[c] = true
		}
	}
	return nil
}

// Contains reports whether position c appears in the first channels
// slots of the map.
func (m ChannelMap) Contains(c Channel, channels int) bool {
	for i := 0; i < channels && i < MaxChannels; i++ {
		if m[i] == c {
			return true
		}
	}
	return false
}

func (m ChannelMap) equal(other ChannelMap, channels int) bool {
	for i := 0; i < channels && i < MaxChannels; i++ {
		if m[i] != other[i] {
			return false
		}
	}
	return true
}

// StandardMap selects one of the well-known channel orderings.
type StandardMap int

const (
	StandardMapMicrosoft StandardMap = iota // default
	StandardMapALSA
	StandardMapRFC3551
	StandardMapFLAC
	StandardMapVorbis
	StandardMapSound4
	StandardMapSndio
)

// Channel orderings for 1..8 channels. Slots beyond each table row
// are filled with numbered aux positions.
var standardMaps = map[StandardMap][8][]Channel{
	StandardMapMicrosoft: {
		{ChannelMono},
		{ChannelFrontLeft, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelBackCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelSideLeft, ChannelSideRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelBackCenter, ChannelSideLeft, ChannelSideRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelBackLeft, ChannelBackRight, ChannelSideLeft, ChannelSideRight},
	},
	StandardMapALSA: {
		{ChannelMono},
		{ChannelFrontLeft, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE, ChannelBackCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE, ChannelSideLeft, ChannelSideRight},
	},
	StandardMapRFC3551: {
		{ChannelMono},
		{ChannelFrontLeft, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontCenter, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontCenter, ChannelFrontRight, ChannelBackCenter},
		{ChannelFrontLeft, ChannelFrontCenter, ChannelFrontRight, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelSideLeft, ChannelFrontCenter, ChannelFrontRight, ChannelSideRight, ChannelBackCenter},
		{ChannelFrontLeft, ChannelSideLeft, ChannelFrontCenter, ChannelFrontRight, ChannelSideRight, ChannelBackCenter, ChannelLFE},
		{ChannelFrontLeft, ChannelSideLeft, ChannelFrontCenter, ChannelFrontRight, ChannelSideRight, ChannelBackLeft, ChannelBackRight, ChannelBackCenter},
	},
	StandardMapFLAC: {
		{ChannelMono},
		{ChannelFrontLeft, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelBackCenter, ChannelSideLeft, ChannelSideRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter, ChannelLFE, ChannelBackLeft, ChannelBackRight, ChannelSideLeft, ChannelSideRight},
	},
	StandardMapVorbis: {
		{ChannelMono},
		{ChannelFrontLeft, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontCenter, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontCenter, ChannelFrontRight, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontCenter, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelLFE},
		{ChannelFrontLeft, ChannelFrontCenter, ChannelFrontRight, ChannelSideLeft, ChannelSideRight, ChannelBackCenter, ChannelLFE},
		{ChannelFrontLeft, ChannelFrontCenter, ChannelFrontRight, ChannelSideLeft, ChannelSideRight, ChannelBackLeft, ChannelBackRight, ChannelLFE},
	},
	StandardMapSound4: {
		{ChannelMono},
		{ChannelFrontLeft, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE, ChannelBackCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE, ChannelSideLeft, ChannelSideRight},
	},
	StandardMapSndio: {
		{ChannelMono},
		{ChannelFrontLeft, ChannelFrontRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE, ChannelBackCenter},
		{ChannelFrontLeft, ChannelFrontRight, ChannelBackLeft, ChannelBackRight, ChannelFrontCenter, ChannelLFE, ChannelSideLeft, ChannelSideRight},
	},
}

// DefaultChannelMap returns the standard channel ordering for the
// given channel count. Counts above 8 fill the remaining slots with
// ChannelAux0, ChannelAux1, and so on. A channel count outside
// [1, MaxChannels] yields a blank map.
func DefaultChannelMap(std StandardMap, channels int) ChannelMap {
	var m ChannelMap
	if channels < 1 || channels > MaxChannels {
		return m
	}
	table, ok := standardMaps[std]
	if !ok {
		table = standardMaps[StandardMapMicrosoft]
	}
	n := channels
	if n > 8 {
		n = 8
	}
	copy(m[:], table[n-1])
	for i := 8; i < channels; i++ {
		m[i] = Aux(i - 8)
	}
	return m
}

// The six spatial planes used by the planar blend mixing mode.
const (
	planeLeft = iota
	planeRight
	planeFront
	planeBack
	planeBottom
	planeTop
	planeCount
)

// channelPlaneWeights gives each position's fractional emission over
// the six planes. Rows sum to at most 1. Positions missing from the
// table (None, Mono, LFE, aux) have no spatial presence.
var channelPlaneWeights = map[Channel][planeCount]float32{
	ChannelFrontLeft:        {0.5, 0, 0.5, 0, 0, 0},
	ChannelFrontRight:       {0, 0.5, 0.5, 0, 0, 0},
	ChannelFrontCenter:      {0, 0, 1.0, 0, 0, 0},
	ChannelBackLeft:         {0.5, 0, 0, 0.5, 0, 0},
	ChannelBackRight:        {0, 0.5, 0, 0.5, 0, 0},
	ChannelFrontLeftCenter:  {0.25, 0, 0.75, 0, 0, 0},
	ChannelFrontRightCenter: {0, 0.25, 0.75, 0, 0, 0},
	ChannelBackCenter:       {0, 0, 0, 1.0, 0, 0},
	ChannelSideLeft:         {1.0, 0, 0, 0, 0, 0},
	ChannelSideRight:        {0, 1.0, 0, 0, 0, 0},
	ChannelTopCenter:        {0, 0, 0, 0, 0, 1.0},
	ChannelTopFrontLeft:     {0.33, 0, 0.33, 0, 0, 0.34},
	ChannelTopFrontCenter:   {0, 0, 0.5, 0, 0, 0.5},
	ChannelTopFrontRight:    {0, 0.33, 0.33, 0, 0, 0.34},
	ChannelTopBackLeft:      {0.33, 0, 0, 0.33, 0, 0.34},
	ChannelTopBackCenter:    {0, 0, 0, 0.5, 0, 0.5},
	ChannelTopBackRight:     {0, 0.33, 0, 0.33, 0, 0.34},
}

// isSpatial reports whether the position participates in planar
// blending: any non-zero plane weight, excluding None, Mono and LFE.
func (c Channel) isSpatial() bool {
	w, ok := channelPlaneWeights[c]
	if !ok {
		return false
	}
	for _, p := range w {
		if p != 0 {
			return true
		}
	}
	return false
}

// planeContribution is the planar dot product between two positions.
func planeContribution(a, b Channel) float32 {
	wa, oka := channelPlaneWeights[a]
	wb, okb := channelPlaneWeights[b]
	if !oka || !okb {
		return 0
	}
	var sum float32
	for p := 0; p < planeCount; p++ {
		sum += wa[p] * wb[p]
	}
	return sum
}
