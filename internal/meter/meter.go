/*------------------------------------------------------------------
 *
 * Purpose:	Level engine: per-channel RMS with slew-limited decay,
 *		producing LED values in [0,1] for the renderer (spec §3,
 *		§4.5).
 *
 * Description:	Fed the frames drained from the sample tap once per UI
 *		tick (~30 Hz). input_level is the instantaneous RMS of that
 *		window, scaled by 2 so nominal program material visibly
 *		lights the meter. output_level follows input_level upward
 *		immediately and decays at 0.99 per tick otherwise, matching
 *		a classic peak-hold VU ballistic.
 *
 *------------------------------------------------------------------*/
package meter

import "math"

// decayFactor is the per-tick multiplicative decay applied to
// output_level when it exceeds the new input_level (spec §3).
const decayFactor = 0.99

// limitingThreshold flags a channel as momentarily limiting when its
// level changed by more than this much in one tick (spec §3).
const limitingThreshold = 0.01

// Channel holds one channel's level state.
type Channel struct {
	InputLevel  float64
	OutputLevel float64
	Decay       float64
	IsLimiting  bool
}

// Engine tracks left/right Channel state across ticks.
type Engine struct {
	Left, Right Channel
}

// New returns an Engine with both channels at rest.
func New() *Engine {
	return &Engine{}
}

// Update consumes one tick's worth of interleaved stereo frames (as
// drained from the sample tap) and advances both channels' level
// state. When playing is false, both channels are forced to silence
// regardless of the frames passed in (spec §4.5).
func (e *Engine) Update(frames []float32, playing bool) {
	if !playing {
		e.Left = Channel{}
		e.Right = Channel{}
		return
	}

	n := len(frames) / 2
	var sumL, sumR float64
	for i := 0; i < n; i++ {
		l := float64(frames[i*2])
		r := float64(frames[i*2+1])
		sumL += l * l
		sumR += r * r
	}

	updateChannel(&e.Left, rmsLevel(sumL, n))
	updateChannel(&e.Right, rmsLevel(sumR, n))
}

func rmsLevel(sumSquares float64, n int) float64 {
	if n == 0 {
		return 0
	}
	rms := math.Sqrt(sumSquares / float64(n))
	return clamp01(2 * rms)
}

func updateChannel(c *Channel, input float64) {
	prevOutput := c.OutputLevel
	c.InputLevel = input

	c.OutputLevel = math.Max(input, prevOutput*decayFactor)

	c.Decay = prevOutput - c.OutputLevel
	c.IsLimiting = math.Abs(c.OutputLevel-prevOutput) > limitingThreshold
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
