package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zim-audio/zim/internal/decoder"
	"github.com/zim-audio/zim/internal/mixer"
	"github.com/zim-audio/zim/internal/player"
	"github.com/zim-audio/zim/internal/zimerr"
)

type fakeDecoder struct {
	sampleRate  int
	totalFrames uint64
	pos         uint64
}

func (f *fakeDecoder) Info() decoder.Info {
	return decoder.Info{SampleRate: f.sampleRate, Channels: 2, TotalFrames: f.totalFrames}
}
func (f *fakeDecoder) Position() uint64 { return f.pos }
func (f *fakeDecoder) Seek(n uint64) error {
	f.pos = n
	return nil
}
func (f *fakeDecoder) PullFrames(n int) ([]float32, error) {
	f.pos += uint64(n)
	return make([]float32, n*2), nil
}
func (f *fakeDecoder) Close() error { return nil }

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	d := &fakeDecoder{sampleRate: 44100, totalFrames: 441000}
	tr := mixer.NewTrack(d, 1.0, 0.0)
	m, err := mixer.New([]*mixer.Track{tr})
	require.NoError(t, err)
	return NewLoop(m, "song.wav", 10)
}

func TestDispatchSpaceTogglesPlay(t *testing.T) {
	l := newTestLoop(t)
	before := l.State.Playing
	l.dispatch(KeyEvent{Key: KeySpace})
	assert.NotEqual(t, before, l.State.Playing)
}

func TestDispatchRuneQOpensQuit(t *testing.T) {
	l := newTestLoop(t)
	l.dispatch(KeyEvent{Key: KeyRune, Rune: 'q'})
	assert.True(t, l.quit)
}

func TestDispatchRuneSlashOpensBrowserModal(t *testing.T) {
	l := newTestLoop(t)
	l.dispatch(KeyEvent{Key: KeyRune, Rune: '/'})
	assert.Equal(t, player.ModalBrowser, l.State.Modal)
}

func TestTickUpdatesPositionFromDecoderCursor(t *testing.T) {
	l := newTestLoop(t)
	l.Mixer.PullFrames(4410) // advance decoder cursor by 0.1s worth of frames
	l.tick()
	assert.InDelta(t, 0.1, l.State.PositionSeconds, 0.01)
}

func TestTickPausesWhenMixerDone(t *testing.T) {
	d := &fakeDecoderEOS{}
	tr := mixer.NewTrack(d, 1.0, 0.0)
	m, err := mixer.New([]*mixer.Track{tr})
	require.NoError(t, err)
	l := NewLoop(m, "song.wav", 0)
	l.State.Play()

	l.Mixer.PullFrames(1)
	l.tick()
	assert.False(t, l.State.Playing)
}

func newMultiTrackTestLoop(t *testing.T) *Loop {
	t.Helper()
	d1 := &fakeDecoder{sampleRate: 44100, totalFrames: 441000}
	d2 := &fakeDecoder{sampleRate: 44100, totalFrames: 441000}
	tr1 := mixer.NewTrack(d1, 1.0, -1.0)
	tr2 := mixer.NewTrack(d2, 1.0, 1.0)
	m, err := mixer.New([]*mixer.Track{tr1, tr2})
	require.NoError(t, err)
	return NewLoop(m, "mix", 10)
}

func TestMultiTrackDisablesMarksLoopAndSeek(t *testing.T) {
	l := newMultiTrackTestLoop(t)

	l.dispatch(KeyEvent{Key: KeyRune, Rune: 'i'})
	assert.Nil(t, l.State.MarkIn)

	l.dispatch(KeyEvent{Key: KeyRune, Rune: 'o'})
	assert.Nil(t, l.State.MarkOut)

	l.dispatch(KeyEvent{Key: KeyRune, Rune: 'l'})
	assert.False(t, l.State.LoopActive)

	before := l.State.PositionSeconds
	l.dispatch(KeyEvent{Key: KeyRight})
	l.dispatch(KeyEvent{Key: KeyShiftRight})
	assert.Equal(t, before, l.State.PositionSeconds)
}

func TestSingleTrackStillAllowsMarksAndSeek(t *testing.T) {
	l := newTestLoop(t)

	l.dispatch(KeyEvent{Key: KeyRune, Rune: 'i'})
	assert.NotNil(t, l.State.MarkIn)

	l.dispatch(KeyEvent{Key: KeyRight})
	assert.Greater(t, l.State.PositionSeconds, float32(0))
}

// TestDispatchSeekRightAppliesToDecoderOnNextTick checks that one Right
// press (seek +5s) leaves position at 5.0 after one tick: a seek must
// actually reposition the Decoder, not just the
// display field, and the following tick must not clobber it back to the
// pre-seek cursor.
func TestDispatchSeekRightAppliesToDecoderOnNextTick(t *testing.T) {
	l := newTestLoop(t)
	d := l.Mixer.Tracks[0].Decoder.(*fakeDecoder)

	l.dispatch(KeyEvent{Key: KeyRight}) // SeekRelative(+5s)
	l.tick()

	assert.Equal(t, uint64(5*44100), d.pos)
	assert.InDelta(t, 5.0, l.State.PositionSeconds, 0.01)
}

// writeTestWAV writes a minimal canonical 16-bit PCM WAV file matching
// internal/export's writer layout, so the save-dialog tests can exercise
// the real exporter against a real file on disk.
func writeTestWAV(t *testing.T, path string, channels, sampleRate int, frames []float32) {
	t.Helper()
	bytesPerFrame := channels * 2
	totalFrames := len(frames) / channels
	dataSize := uint32(totalFrames * bytesPerFrame)

	buf := make([]byte, 0, 44+len(frames)*2)
	buf = append(buf, "RIFF"...)
	buf = append(buf, le32(36+dataSize)...)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = append(buf, le32(16)...)
	buf = append(buf, le16(1)...)
	buf = append(buf, le16(uint16(channels))...)
	buf = append(buf, le32(uint32(sampleRate))...)
	buf = append(buf, le32(uint32(sampleRate*bytesPerFrame))...)
	buf = append(buf, le16(uint16(bytesPerFrame))...)
	buf = append(buf, le16(16)...)
	buf = append(buf, "data"...)
	buf = append(buf, le32(dataSize)...)
	for _, s := range frames {
		v := int16(s * 32767)
		buf = append(buf, le16(uint16(v))...)
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func le16(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func newTestLoopWithRealFile(t *testing.T, path string) *Loop {
	t.Helper()
	d, err := decoder.Open(path)
	require.NoError(t, err)
	tr := mixer.NewTrack(d, 1.0, 0.0)
	m, err := mixer.New([]*mixer.Track{tr})
	require.NoError(t, err)
	duration := float32(d.Info().TotalFrames) / float32(d.Info().SampleRate)
	return NewLoop(m, path, duration)
}

func TestOpenSaveDialogSeedsSuggestedFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "take.wav")
	writeTestWAV(t, path, 1, 8000, []float32{0, 0.25, 0.5, 0.75})

	l := newTestLoopWithRealFile(t, path)
	l.dispatch(KeyEvent{Key: KeyRune, Rune: 's'})

	require.NotNil(t, l.Save)
	assert.Equal(t, "take_edit.wav", l.Save.Filename)
	assert.Equal(t, player.ModalSaveDialog, l.State.Modal)
}

func TestConfirmSaveWritesSelectionAndClosesModal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "take.wav")
	writeTestWAV(t, path, 1, 8000, []float32{0, 0.25, 0.5, 0.75})

	l := newTestLoopWithRealFile(t, path)
	l.State.SetMarkIn()
	l.State.PositionSeconds = 0.0003 // ~frame 2 at 8kHz
	require.NoError(t, l.State.SetMarkOut())

	l.dispatch(KeyEvent{Key: KeyRune, Rune: 's'})
	require.NotNil(t, l.Save)
	l.Save.Filename = "selection.wav"

	l.dispatch(KeyEvent{Key: KeyEnter})

	assert.Nil(t, l.Save)
	assert.Equal(t, player.ModalPlayer, l.State.Modal)

	target := filepath.Join(dir, "selection.wav")
	_, err := os.Stat(target)
	assert.NoError(t, err)
}

func TestDispatchSaveDialogEscapeCancels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "take.wav")
	writeTestWAV(t, path, 1, 8000, []float32{0, 0.25})

	l := newTestLoopWithRealFile(t, path)
	l.dispatch(KeyEvent{Key: KeyRune, Rune: 's'})
	require.NotNil(t, l.Save)

	l.dispatch(KeyEvent{Key: KeyEscape})
	assert.Nil(t, l.Save)
	assert.Equal(t, player.ModalPlayer, l.State.Modal)
}

type fakeDecoderEOS struct{}

func (f *fakeDecoderEOS) Info() decoder.Info {
	return decoder.Info{SampleRate: 44100, Channels: 2, TotalFrames: 0}
}
func (f *fakeDecoderEOS) Position() uint64  { return 0 }
func (f *fakeDecoderEOS) Seek(uint64) error { return nil }
func (f *fakeDecoderEOS) Close() error      { return nil }
func (f *fakeDecoderEOS) PullFrames(int) ([]float32, error) {
	return nil, zimerr.ErrEndOfStream
}
