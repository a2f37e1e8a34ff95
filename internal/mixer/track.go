/*------------------------------------------------------------------
 *
 * Purpose:	A single decoder bound into the mixer with gain and pan.
 *		Equal-power panning law per spec §3: centered pan gives
 *		each channel a gain of about 0.707, so the summed power
 *		of the two channels stays at unity.
 *
 *------------------------------------------------------------------*/
package mixer

import (
	"math"

	"github.com/zim-audio/zim/internal/decoder"
)

const (
	MinGain = 0.0
	MaxGain = 2.0
	MinPan  = -1.0
	MaxPan  = 1.0
)

// Track pairs a Decoder with its gain and pan, both clamped to their
// documented ranges at construction (spec §3, §8 invariant 7).
type Track struct {
	Decoder decoder.Decoder
	Gain    float64
	Pan     float64

	atEOS bool
}

// NewTrack constructs a Track with gain/pan clamped into range. Default
// gain is 1.0 and pan 0.0 when callers pass those as the neutral value.
func NewTrack(d decoder.Decoder, gain, pan float64) *Track {
	return &Track{
		Decoder: d,
		Gain:    clampF(gain, MinGain, MaxGain),
		Pan:     clampF(pan, MinPan, MaxPan),
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PanGains returns the equal-power left/right gain coefficients for the
// track's pan value: left = cos((pan+1)*pi/4), right = sin((pan+1)*pi/4).
func (t *Track) PanGains() (left, right float64) {
	theta := (t.Pan + 1) * math.Pi / 4
	return math.Cos(theta), math.Sin(theta)
}

// AtEOS reports whether this track has reached end-of-stream. A track
// at EOS contributes silence to the mix without erroring (spec §4.2).
func (t *Track) AtEOS() bool { return t.atEOS }

func (t *Track) markEOS() { t.atEOS = true }
