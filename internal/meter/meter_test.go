package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestUpdateStoppedForcesSilence(t *testing.T) {
	e := New()
	e.Left.OutputLevel = 0.8
	e.Update([]float32{1, 1, 1, 1}, false)
	assert.Equal(t, Channel{}, e.Left)
	assert.Equal(t, Channel{}, e.Right)
}

func TestUpdateFullScaleRaisesOutputImmediately(t *testing.T) {
	e := New()
	frames := make([]float32, 64)
	for i := range frames {
		frames[i] = 1
	}
	e.Update(frames, true)
	assert.Equal(t, 1.0, e.Left.OutputLevel)
	assert.Equal(t, 1.0, e.Right.OutputLevel)
}

func TestUpdateSilenceDecaysOutputByFactor(t *testing.T) {
	e := New()
	e.Left.OutputLevel = 0.5
	e.Right.OutputLevel = 0.5
	e.Update(make([]float32, 64), true)
	assert.InDelta(t, 0.5*decayFactor, e.Left.OutputLevel, 1e-9)
	assert.InDelta(t, 0.5*decayFactor, e.Right.OutputLevel, 1e-9)
}

// TestUpdateChannelTakesInputWhenAboveDecayedFloor covers the band
// between the decayed target and the previous output (spec §3:
// `output_level ← max(input_level, output_level·0.99)`). An input that
// falls strictly between `prevOutput*0.99` and `prevOutput` must still
// raise output_level to input, not fall through to the decay branch.
func TestUpdateChannelTakesInputWhenAboveDecayedFloor(t *testing.T) {
	c := &Channel{OutputLevel: 0.5}
	updateChannel(c, 0.497) // 0.5*0.99 = 0.495 < 0.497 < 0.5
	assert.Equal(t, 0.497, c.OutputLevel)
}

func TestOutputLevelNeverExceedsOne(t *testing.T) {
	e := New()
	frames := make([]float32, 64)
	for i := range frames {
		frames[i] = 10 // way over full scale; input_level clamps to 1
	}
	e.Update(frames, true)
	assert.LessOrEqual(t, e.Left.OutputLevel, 1.0)
}

// TestOutputLevelMonotonicallyDecaysOnSilence is the property-based
// check for spec §8 invariant 6: output_level is monotonically
// non-increasing across ticks of zero input_level while playing
// (modulo the 0.99 step itself, which is exactly what's being
// measured here).
func TestOutputLevelMonotonicallyDecaysOnSilence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := New()
		e.Left.OutputLevel = rapid.Float64Range(0, 1).Draw(rt, "start")
		e.Right.OutputLevel = e.Left.OutputLevel

		ticks := rapid.IntRange(1, 50).Draw(rt, "ticks")
		silence := make([]float32, 64)
		prev := e.Left.OutputLevel
		for i := 0; i < ticks; i++ {
			e.Update(silence, true)
			if e.Left.OutputLevel > prev+1e-12 {
				rt.Fatalf("output_level increased during silence: %v -> %v", prev, e.Left.OutputLevel)
			}
			prev = e.Left.OutputLevel
		}
	})
}
