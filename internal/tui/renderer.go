/*------------------------------------------------------------------
 *
 * Purpose:	TUI renderer (spec §4.9): title, filename + LED meters,
 *		progress bar with marks, oscilloscope canvas, key hints.
 *		Styling via github.com/charmbracelet/lipgloss, an indirect
 *		dependency in the teacher promoted to a direct one here.
 *
 *------------------------------------------------------------------*/
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zim-audio/zim/internal/browser"
	"github.com/zim-audio/zim/internal/meter"
	"github.com/zim-audio/zim/internal/player"
)

// ledChars is the bucketed level glyph ramp from spec §4.9.
var ledChars = []rune{'◦', '○', '◐', '●'}

var (
	styleGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleYellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleTitle  = lipgloss.NewStyle().Bold(true)
)

// MinScopeHeight is the terminal height below which the oscilloscope
// canvas is hidden (spec §4.9).
const MinScopeHeight = 20

// ledFor picks the glyph + color for a level in [0,1], pinning red
// above 0.9 for clipping.
func ledFor(level float64) string {
	idx := int(level * float64(len(ledChars)))
	if idx >= len(ledChars) {
		idx = len(ledChars) - 1
	}
	if idx < 0 {
		idx = 0
	}
	glyph := string(ledChars[idx])

	switch {
	case level > 0.9:
		return styleRed.Render(glyph)
	case level > 0.6:
		return styleYellow.Render(glyph)
	default:
		return styleGreen.Render(glyph)
	}
}

// FormatMMSS renders seconds as MM:SS (spec §4.9).
func FormatMMSS(seconds float32) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds + 0.5)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatPercent renders a fraction in [0,1] as a 3-digit, one-decimal
// percentage (spec §4.9): e.g. "042.5".
func FormatPercent(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return fmt.Sprintf("%05.1f", fraction*100)
}

// Render draws one full frame at the given terminal width/height.
func Render(width, height int, filename string, st *player.State, lvl *meter.Engine, scope []float32) string {
	return RenderWithModal(width, height, filename, st, lvl, scope, nil, nil)
}

// RenderWithModal is Render plus the browser/save-dialog overlays shown
// when those modals are active (spec §4.9, §4.10). Either modal
// argument may be nil when the corresponding modal is not current.
func RenderWithModal(width, height int, filename string, st *player.State, lvl *meter.Engine, scope []float32, br *browser.Browser, sd *SaveDialog) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("zim"))
	b.WriteByte('\n')

	b.WriteString(renderFilenameAndMeters(width, filename, lvl))
	b.WriteByte('\n')

	b.WriteString(renderProgressBar(width, st))
	b.WriteByte('\n')

	switch st.Modal {
	case player.ModalBrowser:
		b.WriteString(renderBrowser(width, br))
		b.WriteByte('\n')
	case player.ModalSaveDialog:
		b.WriteString(renderSaveDialog(width, sd))
		b.WriteByte('\n')
	default:
		if height >= MinScopeHeight {
			scopeHeight := height - 6
			if scopeHeight < 1 {
				scopeHeight = 1
			}
			b.WriteString(renderOscilloscope(width, scopeHeight, scope))
			b.WriteByte('\n')
		}
	}

	b.WriteString(renderKeyHints(st.Modal))
	return b.String()
}

func renderBrowser(width int, br *browser.Browser) string {
	if br == nil {
		return styleDim.Render("(no directory loaded)")
	}
	entries := br.Entries()
	if len(entries) == 0 {
		return styleDim.Render("(no matches)")
	}
	var lines []string
	for i, e := range entries {
		line := e.AudioPath
		if i == br.Selected() {
			line = "> " + line
		} else {
			line = "  " + line
		}
		if len(line) > width {
			line = line[:width]
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderSaveDialog(width int, sd *SaveDialog) string {
	if sd == nil {
		return styleDim.Render("(no save in progress)")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "dir: %s\n", sd.Dir)
	for i, e := range sd.Entries {
		prefix := "  "
		if sd.Focus == FocusList && i == sd.Selected {
			prefix = "> "
		}
		b.WriteString(prefix + e + "\n")
	}

	filenameLine := "filename: " + sd.Filename
	if sd.Focus == FocusFilename {
		filenameLine = styleYellow.Render(filenameLine + "_")
	}
	b.WriteString(filenameLine)

	if sd.Status != "" {
		b.WriteByte('\n')
		b.WriteString(styleRed.Render(sd.Status))
	}

	return b.String()
}

func renderFilenameAndMeters(width int, filename string, lvl *meter.Engine) string {
	meters := ledFor(lvl.Left.OutputLevel) + " " + ledFor(lvl.Right.OutputLevel)
	pad := width - len(filename) - lipgloss.Width(meters)
	if pad < 1 {
		pad = 1
	}
	return filename + strings.Repeat(" ", pad) + meters
}

func renderProgressBar(width int, st *player.State) string {
	if width < 2 {
		width = 2
	}
	cells := make([]rune, width)
	for i := range cells {
		cells[i] = '─'
	}

	posIdx := cellIndex(width, st.PositionSeconds, st.DurationSeconds)
	if posIdx >= 0 && posIdx < width {
		cells[posIdx] = '●'
	}
	if st.MarkIn != nil {
		if idx := cellIndex(width, *st.MarkIn, st.DurationSeconds); idx >= 0 && idx < width {
			cells[idx] = '['
		}
	}
	if st.MarkOut != nil {
		if idx := cellIndex(width, *st.MarkOut, st.DurationSeconds); idx >= 0 && idx < width {
			cells[idx] = ']'
		}
	}

	timing := fmt.Sprintf("%s / %s  %s%%", FormatMMSS(st.PositionSeconds), FormatMMSS(st.DurationSeconds),
		FormatPercent(fractionOf(st.PositionSeconds, st.DurationSeconds)))
	return string(cells) + "\n" + timing
}

func cellIndex(width int, pos, duration float32) int {
	if duration <= 0 {
		return 0
	}
	frac := float64(pos) / float64(duration)
	return int(frac * float64(width-1))
}

func fractionOf(pos, duration float32) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(pos) / float64(duration)
}

// renderOscilloscope draws a grid (every 10 columns, 5 horizontal
// guide lines) with the waveform samples plotted against it.
func renderOscilloscope(width, height int, samples []float32) string {
	rows := make([][]rune, height)
	for r := range rows {
		rows[r] = make([]rune, width)
		for c := range rows[r] {
			if r%5 == 0 || c%10 == 0 {
				rows[r][c] = styleDimChar(r, c)
			} else {
				rows[r][c] = ' '
			}
		}
	}

	mid := height / 2
	for c := 0; c < width && c < len(samples); c++ {
		v := samples[c]
		r := mid - int(v*float32(mid))
		if r < 0 {
			r = 0
		}
		if r >= height {
			r = height - 1
		}
		rows[r][c] = '█'
	}

	var b strings.Builder
	for r, row := range rows {
		if r > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func styleDimChar(r, c int) rune {
	if r%5 == 0 && c%10 == 0 {
		return '+'
	}
	if r%5 == 0 {
		return '-'
	}
	return '|'
}

func renderKeyHints(modal player.Modal) string {
	switch modal {
	case player.ModalBrowser:
		return styleDim.Render("type to filter · ↑/↓ move · enter load · esc close")
	case player.ModalSaveDialog:
		return styleDim.Render("tab switch field · ↑/↓ move · enter confirm · esc cancel")
	default:
		return styleDim.Render("space play/pause · ←/→ seek 5s · shift+←/→ seek 20% · i/o mark · x clear · l loop · / browse · s save · e edit · q quit")
	}
}
