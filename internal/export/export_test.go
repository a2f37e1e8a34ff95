package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zim-audio/zim/internal/decoder"
	"github.com/zim-audio/zim/internal/zimerr"
)

func writeTestWAV(t *testing.T, path string, channels, sampleRate int, frames []float32) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	totalFrames := uint64(len(frames) / channels)
	require.NoError(t, writeWAVHeader(f, channels, sampleRate, totalFrames))
	require.NoError(t, writeFrames(f, frames))
}

func TestSaveFullOfWAVIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	frames := []float32{0.1, -0.2, 0.3, -0.4, 0.5, -0.6}
	writeTestWAV(t, src, 2, 44100, frames)

	dst := filepath.Join(dir, "out.wav")
	require.NoError(t, SaveFull(Job{SourcePath: src, TargetPath: dst}))

	srcBytes, err := os.ReadFile(src)
	require.NoError(t, err)
	dstBytes, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, srcBytes, dstBytes)
}

func TestSaveSelectionExtractsExactFrameRange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	// 4 mono frames: 0.0, 0.25, 0.5, 0.75
	writeTestWAV(t, src, 1, 8000, []float32{0.0, 0.25, 0.5, 0.75})

	dst := filepath.Join(dir, "selection.wav")
	require.NoError(t, SaveSelection(Job{SourcePath: src, TargetPath: dst, FrameStart: 1, FrameEnd: 3}))

	d, err := decoder.Open(dst)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, uint64(2), d.Info().TotalFrames)

	out, err := d.PullFrames(2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.25, out[0], 0.001)
	assert.InDelta(t, 0.5, out[1], 0.001)
}

func TestSuggestSelectionFilenameFindsSmallestUnusedSuffix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "take_edit.wav"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "take_edit_2.wav"), nil, 0o644))

	got := SuggestSelectionFilename(dir, "take")
	assert.Equal(t, filepath.Join(dir, "take_edit_3.wav"), got)
}

func TestSuggestSelectionFilenameFirstCallUsesPlainEditName(t *testing.T) {
	dir := t.TempDir()
	got := SuggestSelectionFilename(dir, "take")
	assert.Equal(t, filepath.Join(dir, "take_edit.wav"), got)
}

func TestCloneSidecarWritesProvenanceWithoutSourceSidecar(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.wav")
	target := filepath.Join(dir, "out.wav")

	job := Job{SourcePath: src, TargetPath: target, FrameStart: 44100 * 65, FrameEnd: 44100 * 130}
	require.NoError(t, CloneSidecar(job, 44100, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	content, err := os.ReadFile(target + ".md")
	require.NoError(t, err)
	s := string(content)
	assert.Contains(t, s, "extraction_type: selection")
	assert.Contains(t, s, `source_time_start: "01:05"`)
	assert.Contains(t, s, `source_time_end: "02:10"`)
}

func TestCloneSidecarFailureReturnsExportPartial(t *testing.T) {
	// targetPath in a directory that doesn't exist: sidecar write fails.
	job := Job{SourcePath: "src.wav", TargetPath: "/nonexistent-dir-zzz/out.wav", FrameStart: 0, FrameEnd: 100}
	err := CloneSidecar(job, 44100, time.Now())
	require.ErrorIs(t, err, zimerr.ErrExportPartial)
}
