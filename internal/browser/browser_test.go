package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestBrowser(t *testing.T) (*Browser, string) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "drumloop.wav"), "")
	writeFile(t, filepath.Join(root, "drumloop.wav.md"), "loop take with no vocal")
	writeFile(t, filepath.Join(root, "vocal_take.wav"), "")
	writeFile(t, filepath.Join(root, "vocal_take.wav.md"), "a warm analog synth pad recorded live")
	writeFile(t, filepath.Join(root, "bassline.flac"), "")

	b, err := New(root)
	require.NoError(t, err)
	return b, root
}

func TestEmptyQueryReturnsAllInOriginalOrder(t *testing.T) {
	b, _ := newTestBrowser(t)
	assert.Len(t, b.Entries(), 3)
	for i, e := range b.Entries() {
		assert.Equal(t, b.entries[i].AudioPath, e.AudioPath)
	}
}

func TestFilenameMatchScoresHigherThanBodyOnlyMatch(t *testing.T) {
	b, _ := newTestBrowser(t)
	b.Filter("vocal")
	entries := b.Entries()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].AudioPath, "vocal_take")
	assert.Contains(t, entries[1].AudioPath, "drumloop")
}

func TestFilterDropsNonMatches(t *testing.T) {
	b, _ := newTestBrowser(t)
	b.Filter("synth")
	entries := b.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].AudioPath, "vocal_take")
}

func TestFilterIsIdempotent(t *testing.T) {
	b, _ := newTestBrowser(t)
	b.Filter("wav")
	first := append([]ScoredEntry{}, b.Entries()...)
	b.Filter("wav")
	second := b.Entries()
	assert.Equal(t, first, second)
}

func TestNavigationWraps(t *testing.T) {
	b, _ := newTestBrowser(t)
	n := len(b.Entries())
	require.Greater(t, n, 1)

	for i := 0; i < n; i++ {
		b.Next()
	}
	assert.Equal(t, 0, b.Selected())

	b.Previous()
	assert.Equal(t, n-1, b.Selected())
}

func TestGetSelectedPathEmptyReturnsFalse(t *testing.T) {
	b, _ := newTestBrowser(t)
	b.Filter("this-will-not-match-anything")
	_, ok := b.GetSelectedPath()
	assert.False(t, ok)
}
