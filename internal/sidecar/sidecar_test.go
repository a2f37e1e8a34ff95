package sidecar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidSidecar(t *testing.T) {
	content := "---\n" +
		"file: kick.wav\n" +
		"path: /samples/kick.wav\n" +
		"title: Kick\n" +
		"duration: 1.5\n" +
		"channels: 2\n" +
		"tags:\n" +
		"  - punchy\n" +
		"  - 808\n" +
		"---\n" +
		"punchy 808 body text\n"

	doc, err := Parse("kick.wav.md", content)
	require.NoError(t, err)
	require.NotNil(t, doc.Frontmatter.Duration.Seconds)
	assert.Equal(t, "kick.wav", doc.Frontmatter.File)
	assert.Equal(t, 1.5, *doc.Frontmatter.Duration.Seconds)
	assert.Equal(t, 2, doc.Frontmatter.Channels)
	assert.Contains(t, doc.Body, "punchy 808")
}

func TestParseUnknownDuration(t *testing.T) {
	content := "---\nfile: a.wav\npath: /a.wav\nduration: unknown\n---\n"
	doc, err := Parse("a.wav.md", content)
	require.NoError(t, err)
	assert.Nil(t, doc.Frontmatter.Duration.Seconds)
}

func TestParseMissingRequiredKeys(t *testing.T) {
	_, err := Parse("a.wav.md", "---\ntitle: no file or path\n---\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestParseUnknownTopLevelKey(t *testing.T) {
	content := "---\nfile: a.wav\npath: /a.wav\nbogus: 1\n---\n"
	_, err := Parse("a.wav.md", content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestParseInvalidChannels(t *testing.T) {
	content := "---\nfile: a.wav\npath: /a.wav\nchannels: 5\n---\n"
	_, err := Parse("a.wav.md", content)
	require.Error(t, err)
}

func TestParseMissingFence(t *testing.T) {
	_, err := Parse("a.wav.md", "no fences here at all")
	require.Error(t, err)
}

func TestRenderRoundTripsRecognizedKeys(t *testing.T) {
	seconds := 2.5
	doc := &Document{
		Frontmatter: Frontmatter{
			File:     "a.wav",
			Path:     "/a.wav",
			Duration: Duration{Seconds: &seconds},
			Channels: 2,
		},
		Body: "notes\n",
	}

	rendered, err := doc.Render()
	require.NoError(t, err)

	reparsed, err := Parse("a.wav.md", rendered)
	require.NoError(t, err)
	assert.Equal(t, "a.wav", reparsed.Frontmatter.File)
	assert.Equal(t, seconds, *reparsed.Frontmatter.Duration.Seconds)
	assert.Equal(t, "notes\n", reparsed.Body)
}

func TestRenderUnknownDuration(t *testing.T) {
	doc := &Document{Frontmatter: Frontmatter{File: "a.wav", Path: "/a.wav"}}
	rendered, err := doc.Render()
	require.NoError(t, err)
	assert.Contains(t, rendered, "duration: unknown")
}
