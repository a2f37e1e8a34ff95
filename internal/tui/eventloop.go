/*------------------------------------------------------------------
 *
 * Purpose:	Event loop (spec §4.10): poll input with a ~33ms timeout,
 *		dispatch to the active modal, drain the sample tap into the
 *		waveform buffer and level engine, update player state
 *		(loop boundary, position from decoder cursor), render.
 *
 * Description:	Keystrokes are read on their own goroutine (raw reads
 *		block) and delivered over a channel so the tick's ~33ms
 *		poll timeout can select between "key arrived" and "time to
 *		tick anyway", matching spec §5's "UI thread may suspend on
 *		input poll with a bounded timeout".
 *
 *------------------------------------------------------------------*/
package tui

import (
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zim-audio/zim/internal/browser"
	"github.com/zim-audio/zim/internal/decoder"
	"github.com/zim-audio/zim/internal/export"
	"github.com/zim-audio/zim/internal/logging"
	"github.com/zim-audio/zim/internal/meter"
	"github.com/zim-audio/zim/internal/mixer"
	"github.com/zim-audio/zim/internal/player"
	"github.com/zim-audio/zim/internal/tap"
	"github.com/zim-audio/zim/internal/waveform"
)

// TickInterval is the event loop's poll timeout and nominal render
// rate (spec §4.10: "~33ms", spec §4.5: "≈30 Hz").
const TickInterval = 33 * time.Millisecond

// ScopeWidth is the width requested from the waveform buffer's
// read_downsampled each tick, matched to the renderer's canvas.
const ScopeWidth = 120

// Loop owns everything the event loop touches across ticks: player
// state, the sample tap/waveform/meter chain, and the currently
// loaded mixer/decoder pair. Field names mirror spec §3's data model.
type Loop struct {
	State *player.State
	Mixer *mixer.Mixer
	Tap   *tap.Tap
	Wave  *waveform.Buffer
	Level *meter.Engine

	Browser  *browser.Browser
	Save     *SaveDialog
	filename string
	queryBuf string

	reader *Reader

	out    *os.File
	width  int
	height int

	quit bool
}

// NewLoop constructs a Loop bound to an already-built Mixer and the
// file name used for display. No Reader is attached; SetReader attaches
// one, and tests that never dispatch the `e` editor shortcut leave it
// nil.
func NewLoop(m *mixer.Mixer, filename string, durationSeconds float32) *Loop {
	return &Loop{
		State:    player.New(durationSeconds),
		Mixer:    m,
		Tap:      tap.New(tap.DefaultCapacityFrames),
		Wave:     waveform.New(waveform.MinCapacity),
		Level:    meter.New(),
		filename: filename,
		out:      os.Stdout,
		width:    80,
		height:   24,
	}
}

// SetReader attaches the raw-terminal Reader the `e` shortcut suspends
// around a spawned $EDITOR (spec §4.10, §6).
func (l *Loop) SetReader(r *Reader) {
	l.reader = r
}

// KeyEvent is one decoded keystroke: a symbolic Key, plus the actual
// rune when Key == KeyRune.
type KeyEvent struct {
	Key  Key
	Rune rune
}

// Run drives the loop until Quit is dispatched or events is closed.
// events delivers decoded keystrokes from a Reader running on its own
// goroutine; the loop never calls ReadKey directly so its own timeout
// stays in control of each iteration's pacing.
func (l *Loop) Run(events <-chan KeyEvent) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for !l.quit {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			l.dispatch(e)
		case <-ticker.C:
		}

		l.tick()
		l.render()
	}
}

// dispatch routes one keystroke to the active modal (spec §4.10 step
// 2). Modals consume keys exclusively.
func (l *Loop) dispatch(e KeyEvent) {
	switch l.State.Modal {
	case player.ModalBrowser:
		l.dispatchBrowser(e)
	case player.ModalSaveDialog:
		l.dispatchSaveDialog(e)
	default:
		l.dispatchPlayer(e)
	}
}

// multiTrack reports whether the mixer currently holds more than one
// track. Per the design decision resolving spec §9's Open Question,
// seek/mark/loop are disabled whenever more than one track is mixing
// at once — those controls only make sense against a single timeline.
func (l *Loop) multiTrack() bool {
	return l.Mixer != nil && len(l.Mixer.Tracks) > 1
}

func (l *Loop) dispatchPlayer(e KeyEvent) {
	switch e.Key {
	case KeySpace:
		l.State.TogglePlay()
	case KeyLeft:
		if !l.multiTrack() {
			l.State.SeekRelative(-player.SeekRelativeStep)
		}
	case KeyRight:
		if !l.multiTrack() {
			l.State.SeekRelative(player.SeekRelativeStep)
		}
	case KeyShiftLeft:
		if !l.multiTrack() {
			l.State.SeekJump(-1)
		}
	case KeyShiftRight:
		if !l.multiTrack() {
			l.State.SeekJump(1)
		}
	case KeyRune:
		l.runePlayerCommand(e.Rune)
	}
}

// runePlayerCommand maps a decoded rune to its player-modal command
// (spec §4.10's shortcut table).
func (l *Loop) runePlayerCommand(r rune) {
	switch r {
	case 'i':
		if !l.multiTrack() {
			l.State.SetMarkIn()
		}
	case 'o':
		if !l.multiTrack() {
			if err := l.State.SetMarkOut(); err != nil {
				logging.Get().Warn("set mark out rejected", "err", err)
			}
		}
	case 'x':
		l.State.ClearMarks()
	case 'l':
		if !l.multiTrack() {
			l.State.ToggleLoop()
		}
	case '/':
		l.openBrowser()
	case 's':
		l.openSaveDialog()
	case 'e':
		l.spawnEditor()
	case 'q':
		l.quit = true
	}
}

// openBrowser scans the currently loaded file's directory (or the
// working directory, if none is loaded yet) and switches the active
// modal (spec §4.7, §4.10's `/` binding).
func (l *Loop) openBrowser() {
	root := "."
	if l.filename != "" {
		root = filepath.Dir(l.filename)
	}
	b, err := browser.New(root)
	if err != nil {
		logging.Get().Error("failed to scan directory", "root", root, "err", err)
		return
	}
	l.Browser = b
	l.queryBuf = ""
	l.State.OpenBrowser()
}

func (l *Loop) dispatchBrowser(e KeyEvent) {
	switch e.Key {
	case KeyUp:
		l.Browser.Previous()
	case KeyDown:
		l.Browser.Next()
	case KeyEnter:
		if path, ok := l.Browser.GetSelectedPath(); ok {
			l.loadTrack(path)
		}
		l.State.CloseModal()
	case KeyEscape:
		l.State.CloseModal()
	case KeyRune:
		l.queryBuf += string(e.Rune)
		l.Browser.Filter(l.queryBuf)
	}
}

// openSaveDialog seeds a SaveDialog rooted at the loaded file's
// directory with the exporter's suggested selection filename (spec
// §4.8) and switches the active modal.
func (l *Loop) openSaveDialog() {
	if l.filename == "" {
		return
	}
	dir := filepath.Dir(l.filename)
	stem := strings.TrimSuffix(filepath.Base(l.filename), filepath.Ext(l.filename))
	suggested := filepath.Base(export.SuggestSelectionFilename(dir, stem))
	l.Save = NewSaveDialog(dir, suggested)
	l.State.OpenSaveDialog()
}

func (l *Loop) dispatchSaveDialog(e KeyEvent) {
	if l.Save == nil {
		l.State.CloseModal()
		return
	}
	switch e.Key {
	case KeyTab:
		l.Save.ToggleFocus()
	case KeyUp:
		l.Save.Previous()
	case KeyDown:
		l.Save.Next()
	case KeyEnter:
		if l.Save.Focus == FocusList {
			l.Save.EnterSelected()
		} else {
			l.confirmSave()
		}
	case KeyBackspace:
		l.Save.Backspace()
	case KeyEscape:
		l.Save = nil
		l.State.CloseModal()
	case KeyRune:
		l.Save.AppendRune(e.Rune)
	}
}

// confirmSave runs the exporter against the save dialog's current
// directory/filename (spec §4.8): a selection export when both marks
// are set, otherwise a full-file save. Export always opens its own
// decoder instance on the source path, so the live mixer keeps playing
// unaffected (spec §5).
func (l *Loop) confirmSave() {
	sd := l.Save
	target := sd.TargetPath()

	var err error
	if l.State.MarksComplete() && len(l.Mixer.Tracks) > 0 {
		sr := l.Mixer.Tracks[0].Decoder.Info().SampleRate
		start := uint64(math.Round(float64(*l.State.MarkIn) * float64(sr)))
		end := uint64(math.Round(float64(*l.State.MarkOut) * float64(sr)))
		job := export.Job{
			SourcePath:   l.filename,
			TargetPath:   target,
			FrameStart:   start,
			FrameEnd:     end,
			CloneSidecar: true,
		}
		if err = export.SaveSelection(job); err == nil {
			if cerr := export.CloneSidecar(job, sr, time.Now()); cerr != nil {
				logging.Get().Warn("export sidecar write failed", "err", cerr)
				sd.Status = "wav saved, sidecar failed"
			}
		}
	} else {
		err = export.SaveFull(export.Job{SourcePath: l.filename, TargetPath: target})
	}

	if err != nil {
		logging.Get().Error("export failed", "path", target, "err", err)
		sd.Status = err.Error()
		return
	}

	l.Save = nil
	l.State.CloseModal()
}

// loadTrack swaps the currently loaded decoder/mixer for a freshly
// opened one, dropping the previous decoder atomically (spec §3).
func (l *Loop) loadTrack(path string) {
	d, err := decoder.Open(path)
	if err != nil {
		logging.Get().Error("failed to load track", "path", path, "err", err)
		return
	}
	tr := mixer.NewTrack(d, 1.0, 0.0)
	m, err := mixer.New([]*mixer.Track{tr})
	if err != nil {
		logging.Get().Error("failed to rebuild mixer", "path", path, "err", err)
		return
	}
	l.Mixer = m
	l.filename = path
	duration := float32(d.Info().TotalFrames) / float32(maxInt(d.Info().SampleRate, 1))
	l.State.Load(duration)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// spawnEditor runs $EDITOR on the current track's sidecar (spec §6),
// suspending raw terminal mode first so the editor owns the tty and
// restoring it once the editor exits.
func (l *Loop) spawnEditor() {
	editor := os.Getenv("EDITOR")
	if editor == "" || l.filename == "" || l.reader == nil {
		return
	}

	resume, err := l.reader.Suspend()
	if err != nil {
		logging.Get().Warn("failed to suspend terminal for editor", "err", err)
		return
	}

	cmd := exec.Command(editor, l.filename+".md")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		logging.Get().Warn("editor exited with error", "err", err)
	}

	if err := resume(); err != nil {
		logging.Get().Error("failed to resume raw terminal mode after editor", "err", err)
	}
}

// tick implements spec §4.10 steps 3-4: drain the tap, update the
// waveform buffer and level engine, check the loop boundary, refresh
// position from the mixer's decoder cursor.
func (l *Loop) tick() {
	frames := l.Tap.Drain()
	l.Wave.Push(frames, 2)
	l.Level.Update(frames, l.State.Playing)

	for _, err := range l.Mixer.DrainErrors() {
		logging.Get().Warn("decode error downgraded to silence", "err", err)
	}

	if target, should := l.State.CheckLoopBoundary(); should {
		l.seekAllTracksTo(target)
		l.State.SetPositionFromCursor(target)
	} else if target, pending := l.State.TakePendingSeek(); pending {
		l.seekAllTracksTo(target)
		l.State.SetPositionFromCursor(target)
	} else if len(l.Mixer.Tracks) > 0 {
		pos, err := l.Mixer.TrackPosition(0)
		if err == nil {
			sr := l.Mixer.SampleRate()
			l.State.SetPositionFromCursor(float32(pos) / float32(maxInt(sr, 1)))
		}
	}

	if l.Mixer.Done() {
		l.State.Pause()
	}
}

// seekAllTracksTo repositions every track's Decoder to the frame
// corresponding to targetSeconds, going through Mixer.SeekTrack so the
// seek is serialized against the audio callback's concurrent
// PullFrames (spec §3: "Decoders are exclusively owned by whoever
// pulls them").
func (l *Loop) seekAllTracksTo(targetSeconds float32) {
	sr := l.Mixer.SampleRate()
	frame := uint64(targetSeconds * float32(sr))
	for i := range l.Mixer.Tracks {
		_ = l.Mixer.SeekTrack(i, frame)
	}
}

func (l *Loop) render() {
	scope := l.Wave.ReadDownsampled(ScopeWidth)
	out := RenderWithModal(l.width, l.height, l.filename, l.State, l.Level, scope, l.Browser, l.Save)
	l.out.WriteString("\x1b[H\x1b[2J")
	l.out.WriteString(out)
}
