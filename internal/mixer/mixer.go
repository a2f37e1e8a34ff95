/*------------------------------------------------------------------
 *
 * Purpose:	Mixer source: up to 3 Tracks summed to a single stereo
 *		output, handed to the audio device as the thing it pulls.
 *		Per spec §4.2:
 *
 *		out_L = clamp(sum(gain_i * pan_L(pan_i) * sample_L(i)), -1, 1)
 *		out_R = clamp(sum(gain_i * pan_R(pan_i) * sample_R(i)), -1, 1)
 *
 *		A mono track feeding the stereo mix has its sample
 *		replicated before panning. A track at end-of-stream
 *		contributes silence; when all tracks are at EOS the mixer
 *		reports Done() and the player transitions to paused.
 *
 * Description:	PullFrames runs on the audio thread. Per spec §9 the
 *		audio thread must never panic: a decode error downgrades
 *		the offending track to silence and sets its EOS flag
 *		rather than propagating. The error is still surfaced —
 *		pushed onto a small non-blocking channel the UI thread
 *		drains once per tick and logs, matching the sample tap's
 *		"audio never blocks" discipline (internal/tap).
 *
 *------------------------------------------------------------------*/
package mixer

import (
	"fmt"
	"sync"

	"github.com/zim-audio/zim/internal/zimerr"
)

const MaxTracks = 3
const errQueueCapacity = 8

// Mixer sums 1..3 Tracks into a stereo interleaved output stream.
//
// mu guards every Track's Decoder against concurrent access: PullFrames
// runs on the audio callback thread, while SeekTrack/TrackPosition are
// called from the UI thread's tick (spec §4.10 step 4's "may command
// Decoder (seek)"). Decoders are not safe for concurrent use (spec §3's
// "exclusively owned by whoever pulls them"), so both sides must take
// this lock before touching a Track's Decoder.
type Mixer struct {
	Tracks     []*Track
	sampleRate int

	mu   sync.Mutex
	errs chan error
}

// New validates and constructs a Mixer. All tracks must share the first
// track's decoder sample rate (spec §3); a mismatch is rejected before
// construction completes.
func New(tracks []*Track) (*Mixer, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("mixer: at least one track required")
	}
	if len(tracks) > MaxTracks {
		return nil, fmt.Errorf("mixer: at most %d tracks supported, got %d", MaxTracks, len(tracks))
	}

	rate := tracks[0].Decoder.Info().SampleRate
	for i, t := range tracks {
		if t.Decoder.Info().SampleRate != rate {
			return nil, fmt.Errorf("mixer: track %d sample rate %d does not match track 0's %d",
				i, t.Decoder.Info().SampleRate, rate)
		}
	}

	return &Mixer{
		Tracks:     tracks,
		sampleRate: rate,
		errs:       make(chan error, errQueueCapacity),
	}, nil
}

// SampleRate is the mixer's shared output sample rate, taken from the
// first track.
func (m *Mixer) SampleRate() int { return m.sampleRate }

// Done reports whether every track has reached end-of-stream.
func (m *Mixer) Done() bool {
	for _, t := range m.Tracks {
		if !t.atEOS {
			return false
		}
	}
	return true
}

// DrainErrors returns and clears any track decode errors queued since
// the last call. Intended to be polled once per UI tick — never call
// this from the audio thread.
func (m *Mixer) DrainErrors() []error {
	var out []error
	for {
		select {
		case err := <-m.errs:
			out = append(out, err)
		default:
			return out
		}
	}
}

func (m *Mixer) reportError(err error) {
	select {
	case m.errs <- err:
	default:
		// Queue full: drop. The audio thread never blocks (spec §4.3's
		// discipline applies here too).
	}
}

// SeekTrack repositions the decoder of track index to frame, holding
// the lock shared with PullFrames so the seek cannot interleave with an
// in-flight audio callback. Called from the UI thread's tick (spec
// §4.10 step 4); never called from the audio callback itself.
func (m *Mixer) SeekTrack(index int, frame uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.Tracks) {
		return fmt.Errorf("mixer: track index %d out of range", index)
	}
	return m.Tracks[index].Decoder.Seek(frame)
}

// TrackPosition returns the decode cursor of track index, holding the
// same lock as SeekTrack/PullFrames so the read cannot race the audio
// callback's concurrent PullFrames.
func (m *Mixer) TrackPosition(index int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.Tracks) {
		return 0, fmt.Errorf("mixer: track index %d out of range", index)
	}
	return m.Tracks[index].Decoder.Position(), nil
}

// PullFrames produces n stereo frames (len(out) == n*2), summing every
// track's contribution per-sample and clamping to [-1, 1]. Runs on the
// audio thread; never panics.
func (m *Mixer) PullFrames(n int) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]float32, n*2)

	for _, t := range m.Tracks {
		if t.atEOS {
			continue
		}

		channels := t.Decoder.Info().Channels
		raw, err := t.Decoder.PullFrames(n)
		if err != nil {
			if err == zimerr.ErrEndOfStream {
				t.markEOS()
				continue
			}
			// Any other decode error downgrades this track to silence
			// for the rest of playback; the error is reported, not
			// thrown, from the audio thread.
			m.reportError(err)
			t.markEOS()
			continue
		}

		framesRead := len(raw) / maxInt(channels, 1)
		if framesRead < n {
			// Short read this tick; the track will report EOS on its
			// next pull. Treat the remainder of this tick as silence
			// for this track rather than under-running the whole mix.
		}

		left, right := t.PanGains()

		for i := 0; i < framesRead; i++ {
			var sL, sR float32
			if channels == 1 {
				sL = raw[i]
				sR = raw[i]
			} else {
				sL = raw[2*i]
				sR = raw[2*i+1]
			}
			out[2*i] += float32(t.Gain*left) * sL
			out[2*i+1] += float32(t.Gain*right) * sR
		}
	}

	for i := range out {
		out[i] = clampF32(out[i], -1, 1)
	}
	return out
}

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
