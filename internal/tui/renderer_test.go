package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zim-audio/zim/internal/meter"
	"github.com/zim-audio/zim/internal/player"
)

func TestFormatMMSS(t *testing.T) {
	assert.Equal(t, "00:00", FormatMMSS(0))
	assert.Equal(t, "01:05", FormatMMSS(65))
	assert.Equal(t, "59:59", FormatMMSS(3599.4))
}

func TestFormatPercentIsThreeDigitsOneDecimal(t *testing.T) {
	assert.Equal(t, "000.0", FormatPercent(0))
	assert.Equal(t, "050.0", FormatPercent(0.5))
	assert.Equal(t, "100.0", FormatPercent(1))
}

func TestRenderProducesNonEmptyOutputAtMinWidth(t *testing.T) {
	st := player.New(120)
	lvl := meter.New()
	out := Render(80, 24, "song.wav", st, lvl, make([]float32, 80))
	assert.NotEmpty(t, out)
}

func TestRenderHidesScopeBelowMinHeight(t *testing.T) {
	st := player.New(120)
	lvl := meter.New()
	short := Render(80, MinScopeHeight-1, "song.wav", st, lvl, make([]float32, 80))
	tall := Render(80, MinScopeHeight+10, "song.wav", st, lvl, make([]float32, 80))
	assert.Less(t, len(short), len(tall))
}

func TestCellIndexZeroDurationIsZero(t *testing.T) {
	assert.Equal(t, 0, cellIndex(80, 10, 0))
}

func TestRenderWithModalShowsSaveDialogInsteadOfScope(t *testing.T) {
	st := player.New(120)
	st.Modal = player.ModalSaveDialog
	lvl := meter.New()
	sd := NewSaveDialog(t.TempDir(), "take_edit.wav")

	out := RenderWithModal(80, 24, "song.wav", st, lvl, nil, nil, sd)
	assert.Contains(t, out, "filename: take_edit.wav")
}

func TestRenderWithModalHandlesNilSaveDialog(t *testing.T) {
	st := player.New(120)
	st.Modal = player.ModalSaveDialog
	lvl := meter.New()

	out := RenderWithModal(80, 24, "song.wav", st, lvl, nil, nil, nil)
	assert.NotEmpty(t, out)
}
