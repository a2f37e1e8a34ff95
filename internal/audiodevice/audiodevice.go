/*------------------------------------------------------------------
 *
 * Purpose:	Binds a Mixer to the default output device via portaudio,
 *		pushing the same pre-volume mixed signal into the Sample
 *		tap that the device plays (spec §4.14 / §3's "Sample tap
 *		...receives the pre-device-volume mixed signal").
 *
 * Description:	The callback itself must never panic or block (spec
 *		§5's "audio thread is wait-free with respect to the UI");
 *		volume is applied here, after the tap copy is taken, so
 *		meters reflect program level independent of the device
 *		volume control.
 *
 *------------------------------------------------------------------*/
package audiodevice

import (
	"github.com/gordonklaus/portaudio"

	"github.com/zim-audio/zim/internal/mixer"
	"github.com/zim-audio/zim/internal/tap"
)

// Stream owns the open portaudio stream bound to a Mixer.
type Stream struct {
	stream *portaudio.Stream
	mixer  *mixer.Mixer
	tap    *tap.Tap

	volume func() float64
}

// Open initializes portaudio and opens the default output stream at
// the mixer's sample rate, stereo, with framesPerBuffer frames per
// callback. volumeFn is polled once per callback to read the current
// device-side volume (player.State.Volume); it must not block.
func Open(m *mixer.Mixer, t *tap.Tap, framesPerBuffer int, volumeFn func() float64) (*Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	s := &Stream{mixer: m, tap: t, volume: volumeFn}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(m.SampleRate()), framesPerBuffer, s.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	s.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	return s, nil
}

// callback is invoked on the audio thread. It must never panic: the
// mixer itself downgrades decode errors to silence internally, so
// there is nothing left for this callback to fail on beyond writing
// into out, which portaudio guarantees is correctly sized.
func (s *Stream) callback(out []float32) {
	n := len(out) / 2
	mixed := s.mixer.PullFrames(n)

	s.tap.Push(mixed)

	vol := float32(1.0)
	if s.volume != nil {
		vol = float32(s.volume())
	}
	for i, v := range mixed {
		out[i] = clamp(v*vol, -1, 1)
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Close stops and closes the stream and terminates portaudio.
func (s *Stream) Close() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		portaudio.Terminate()
		return err
	}
	if err := s.stream.Close(); err != nil {
		portaudio.Terminate()
		return err
	}
	return portaudio.Terminate()
}
