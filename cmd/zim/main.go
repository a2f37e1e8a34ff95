/*------------------------------------------------------------------
 *
 * Purpose:	Entry point: `zim player [file]` and
 *		`zim play FILE1 [FILE2 [FILE3]] [--gains] [--pans] [--telemetry]`
 *		(spec §6). Exit codes: 0 clean quit, 2 bad arguments, 1
 *		fatal load error.
 *
 *------------------------------------------------------------------*/
package main

import (
	"fmt"
	"os"

	"github.com/zim-audio/zim/internal/audiodevice"
	"github.com/zim-audio/zim/internal/cliargs"
	"github.com/zim-audio/zim/internal/decoder"
	"github.com/zim-audio/zim/internal/logging"
	"github.com/zim-audio/zim/internal/mixer"
	"github.com/zim-audio/zim/internal/tui"
	"github.com/zim-audio/zim/internal/zimerr"
)

const (
	exitOK        = 0
	exitFatal     = 1
	exitBadArgs   = 2
	framesPerCall = 1024
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: zim player [file] | zim play FILE1 [FILE2 [FILE3]] [--gains g1,g2,g3] [--pans p1,p2,p3]")
		os.Exit(exitBadArgs)
	}

	sub := os.Args[1]
	rest := os.Args[2:]

	switch sub {
	case "player":
		os.Exit(runPlayer(rest))
	case "play":
		os.Exit(runPlay(rest))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", sub)
		os.Exit(exitBadArgs)
	}
}

func runPlayer(args []string) int {
	pa, err := cliargs.ParsePlayer(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArgs
	}

	var tracks []*mixer.Track
	var filename string
	var duration float32

	if pa.File != "" {
		d, err := decoder.Open(pa.File)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFatal
		}
		tracks = append(tracks, mixer.NewTrack(d, 1.0, 0.0))
		filename = pa.File
		duration = float32(d.Info().TotalFrames) / float32(maxInt(d.Info().SampleRate, 1))
	}

	return runSession(tracks, filename, duration, pa.Telemetry)
}

func runPlay(args []string) int {
	pa, err := cliargs.ParsePlay(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitBadArgs
	}

	var tracks []*mixer.Track
	for i, path := range pa.Files {
		d, err := decoder.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFatal
		}
		tracks = append(tracks, mixer.NewTrack(d, pa.Gains[i], pa.Pans[i]))
	}

	duration := float32(0)
	if len(tracks) > 0 {
		info := tracks[0].Decoder.Info()
		duration = float32(info.TotalFrames) / float32(maxInt(info.SampleRate, 1))
	}

	return runSession(tracks, pa.Files[0], duration, pa.Telemetry)
}

func runSession(tracks []*mixer.Track, filename string, duration float32, telemetry bool) int {
	logging.Init(telemetry, false)
	defer logging.Close()

	if len(tracks) == 0 {
		fmt.Fprintln(os.Stderr, "no track loaded; use the browser (/) to pick one")
	}

	var m *mixer.Mixer
	if len(tracks) > 0 {
		var err error
		m, err = mixer.New(tracks)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFatal
		}
	} else {
		silent := mixer.NewTrack(&silentDecoder{}, 1.0, 0.0)
		var err error
		m, err = mixer.New([]*mixer.Track{silent})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFatal
		}
	}

	loop := tui.NewLoop(m, filename, duration)

	reader, err := tui.OpenReader()
	if err != nil {
		fmt.Fprintln(os.Stderr, zimerr.ErrDeviceUnavailable)
		return exitFatal
	}
	defer reader.Close()
	loop.SetReader(reader)

	stream, err := audiodevice.Open(m, loop.Tap, framesPerCall, func() float64 { return loop.State.Volume })
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", zimerr.ErrDeviceUnavailable, err)
		return exitFatal
	}
	defer stream.Close()

	events := make(chan tui.KeyEvent)
	go tui.RunReader(reader, events)

	loop.Run(events)
	return exitOK
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// silentDecoder is a zero-track placeholder so `zim player` with no
// file argument still has a valid (silent, zero-duration) Mixer to
// hand the audio device until a track is loaded from the browser.
type silentDecoder struct{ pos uint64 }

func (s *silentDecoder) Info() decoder.Info {
	return decoder.Info{SampleRate: 44100, Channels: 2, TotalFrames: 0}
}
func (s *silentDecoder) Position() uint64 { return s.pos }
func (s *silentDecoder) Seek(uint64) error { return nil }
func (s *silentDecoder) PullFrames(n int) ([]float32, error) {
	return make([]float32, n*2), nil
}
func (s *silentDecoder) Close() error { return nil }
