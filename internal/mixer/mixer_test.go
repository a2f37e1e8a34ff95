package mixer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zim-audio/zim/internal/decoder"
	"github.com/zim-audio/zim/internal/zimerr"
)

// fakeDecoder is a test double implementing decoder.Decoder over an
// in-memory interleaved sample slice, the same shape every real
// decoder produces.
type fakeDecoder struct {
	info    decoder.Info
	samples []float32 // interleaved
	pos     uint64
	failAt  int // if >=0, PullFrames errors (not EOS) once cursor reaches this frame
}

func (f *fakeDecoder) Info() decoder.Info { return f.info }
func (f *fakeDecoder) Position() uint64   { return f.pos }

func (f *fakeDecoder) Seek(frameIndex uint64) error {
	total := uint64(len(f.samples) / f.info.Channels)
	if frameIndex > total {
		return zimerr.ErrSeekOutOfRange
	}
	f.pos = frameIndex
	return nil
}

func (f *fakeDecoder) PullFrames(n int) ([]float32, error) {
	if f.failAt >= 0 && int(f.pos) >= f.failAt {
		return nil, assertErr
	}
	total := uint64(len(f.samples) / f.info.Channels)
	if f.pos >= total {
		return nil, zimerr.ErrEndOfStream
	}
	avail := total - f.pos
	take := uint64(n)
	if take > avail {
		take = avail
	}
	start := f.pos * uint64(f.info.Channels)
	end := start + take*uint64(f.info.Channels)
	out := f.samples[start:end]
	f.pos += take
	return out, nil
}

func (f *fakeDecoder) Close() error { return nil }

var assertErr = &zimerr.IOError{Path: "fake", Cause: nil}

func newFakeDecoder(channels, rate int, frames int, fill float32) *fakeDecoder {
	samples := make([]float32, frames*channels)
	for i := range samples {
		samples[i] = fill
	}
	return &fakeDecoder{
		info:   decoder.Info{SampleRate: rate, Channels: channels, TotalFrames: uint64(frames)},
		samples: samples,
		failAt:  -1,
	}
}

func TestNewTrackClampsGainAndPan(t *testing.T) {
	tr := NewTrack(newFakeDecoder(2, 44100, 10, 0), 5.0, -3.0)
	assert.Equal(t, MaxGain, tr.Gain)
	assert.Equal(t, MinPan, tr.Pan)
}

func TestPanGainsCenteredPreservesUnity(t *testing.T) {
	tr := NewTrack(newFakeDecoder(2, 44100, 10, 0), 1.0, 0.0)
	left, right := tr.PanGains()
	assert.InDelta(t, left, right, 1e-9)
	assert.InDelta(t, 1.0, left*left+right*right, 1e-9)
}

func TestMixerRejectsSampleRateMismatch(t *testing.T) {
	a := NewTrack(newFakeDecoder(2, 44100, 10, 0), 1, 0)
	b := NewTrack(newFakeDecoder(2, 48000, 10, 0), 1, 0)
	_, err := New([]*Track{a, b})
	require.Error(t, err)
}

func TestMixerRejectsTooManyTracks(t *testing.T) {
	var tracks []*Track
	for i := 0; i < MaxTracks+1; i++ {
		tracks = append(tracks, NewTrack(newFakeDecoder(2, 44100, 10, 0), 1, 0))
	}
	_, err := New(tracks)
	require.Error(t, err)
}

func TestMixerHardPanIsolatesChannels(t *testing.T) {
	a := NewTrack(newFakeDecoder(1, 44100, 4, 1.0), 0.5, -1.0)
	b := NewTrack(newFakeDecoder(1, 44100, 4, 1.0), 0.5, 1.0)
	m, err := New([]*Track{a, b})
	require.NoError(t, err)

	out := m.PullFrames(4)
	for i := 0; i < 4; i++ {
		l := out[2*i]
		r := out[2*i+1]
		assert.InDelta(t, 0.5, l, 0.01, "left should carry only track a")
		assert.InDelta(t, 0.5, r, 0.01, "right should carry only track b")
	}
}

func TestMixerSilentTrackContributesZeroAtEOS(t *testing.T) {
	a := newFakeDecoder(2, 44100, 1, 1.0)
	trackA := NewTrack(a, 1, 0)
	m, err := New([]*Track{trackA})
	require.NoError(t, err)

	m.PullFrames(1) // consumes the only frame
	assert.False(t, m.Done())
	out := m.PullFrames(1) // now EOS
	assert.True(t, m.Done())
	for _, s := range out {
		assert.Equal(t, float32(0), s)
	}
}

func TestMixerDowngradesDecodeErrorToSilence(t *testing.T) {
	fd := newFakeDecoder(2, 44100, 10, 1.0)
	fd.failAt = 0
	tr := NewTrack(fd, 1, 0)
	m, err := New([]*Track{tr})
	require.NoError(t, err)

	out := m.PullFrames(2)
	for _, s := range out {
		assert.Equal(t, float32(0), s)
	}
	assert.True(t, m.Done())
	errs := m.DrainErrors()
	require.Len(t, errs, 1)
}

// TestMixerOutputAlwaysClamped is the property-based check for spec §8
// invariant 3: mixer output samples are always in [-1, 1], even when
// gains/pans are chosen adversarially within their valid ranges and
// multiple full-scale tracks are summed.
func TestMixerOutputAlwaysClamped(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numTracks := rapid.IntRange(1, MaxTracks).Draw(rt, "numTracks")
		var tracks []*Track
		for i := 0; i < numTracks; i++ {
			gain := rapid.Float64Range(MinGain, MaxGain).Draw(rt, "gain")
			pan := rapid.Float64Range(MinPan, MaxPan).Draw(rt, "pan")
			channels := rapid.IntRange(1, 2).Draw(rt, "channels")
			fill := float32(rapid.Float64Range(-1, 1).Draw(rt, "fill"))
			tracks = append(tracks, NewTrack(newFakeDecoder(channels, 44100, 16, fill), gain, pan))
		}
		m, err := New(tracks)
		require.NoError(rt, err)

		out := m.PullFrames(16)
		for _, s := range out {
			if s < -1 || s > 1 || math.IsNaN(float64(s)) {
				rt.Fatalf("sample out of range: %v", s)
			}
		}
	})
}
