package cliargs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlayerNoFile(t *testing.T) {
	pa, err := ParsePlayer(nil)
	require.NoError(t, err)
	assert.Equal(t, "", pa.File)
}

func TestParsePlayerWithFile(t *testing.T) {
	pa, err := ParsePlayer([]string{"song.wav"})
	require.NoError(t, err)
	assert.Equal(t, "song.wav", pa.File)
}

func TestParsePlayerTelemetryFlag(t *testing.T) {
	pa, err := ParsePlayer([]string{"--telemetry", "song.wav"})
	require.NoError(t, err)
	assert.True(t, pa.Telemetry)
	assert.Equal(t, "song.wav", pa.File)
}

func TestParsePlayerRejectsTooManyFiles(t *testing.T) {
	_, err := ParsePlayer([]string{"a.wav", "b.wav"})
	require.Error(t, err)
}

func TestParsePlayDefaultsGainsAndPans(t *testing.T) {
	pa, err := ParsePlay([]string{"a.wav", "b.wav"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 1.0}, pa.Gains)
	assert.Equal(t, []float64{0.0, 0.0}, pa.Pans)
}

func TestParsePlayParsesGainsAndPans(t *testing.T) {
	pa, err := ParsePlay([]string{"a.wav", "b.wav", "--gains=0.5,1.5", "--pans=-1,1"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, pa.Gains)
	assert.Equal(t, []float64{-1, 1}, pa.Pans)
}

func TestParsePlayClampsOutOfRangeValues(t *testing.T) {
	pa, err := ParsePlay([]string{"a.wav", "--gains=5"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0}, pa.Gains)
}

func TestParsePlayRejectsWrongGainCount(t *testing.T) {
	_, err := ParsePlay([]string{"a.wav", "b.wav", "--gains=1.0"})
	require.Error(t, err)
}

func TestParsePlayRejectsNoFiles(t *testing.T) {
	_, err := ParsePlay(nil)
	require.Error(t, err)
}

func TestParsePlayRejectsTooManyFiles(t *testing.T) {
	_, err := ParsePlay([]string{"a.wav", "b.wav", "c.wav", "d.wav"})
	require.Error(t, err)
}
