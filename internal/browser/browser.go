/*------------------------------------------------------------------
 *
 * Purpose:	Browser: directory scan, sidecar-aware substring scoring,
 *		and list navigation with wraparound (spec §4.7).
 *
 * Description:	scan(root) defers to internal/scanner for the actual
 *		recursive walk (parallel across subdirectories, C11);
 *		Browser owns the resulting entry list, the current
 *		selection, and the filtering/scoring pass over a query
 *		string.
 *
 *------------------------------------------------------------------*/
package browser

import (
	"os"
	"sort"
	"strings"

	"github.com/zim-audio/zim/internal/scanner"
)

// ContextWindow is the default number of characters of sidecar body
// shown around the first match (spec §4.7).
const ContextWindow = 80

// Entry is one audio file discovered by the browser, with its sidecar
// content loaded verbatim when present.
type Entry struct {
	AudioPath      string
	SidecarPath    string
	SidecarContent string
	HasSidecar     bool
}

// ScoredEntry pairs an Entry with its filter score and a display
// context window into the sidecar body.
type ScoredEntry struct {
	Entry
	Score   int
	Context string
}

// Browser holds the scanned entry list and the current selection.
type Browser struct {
	entries  []Entry
	filtered []ScoredEntry
	query    string
	selected int
}

// New scans root and returns a Browser positioned at the first entry.
func New(root string) (*Browser, error) {
	paths, scanErrs := scanner.Scan(root)
	for _, e := range scanErrs {
		_ = e // per-branch scan errors are logged by the caller, not fatal here
	}

	b := &Browser{}
	for _, p := range paths {
		entry := Entry{AudioPath: p}
		sidecarPath := p + ".md"
		if content, err := os.ReadFile(sidecarPath); err == nil {
			entry.SidecarPath = sidecarPath
			entry.SidecarContent = string(content)
			entry.HasSidecar = true
		}
		b.entries = append(b.entries, entry)
	}
	b.Filter("")
	return b, nil
}

// Filter re-scores b.entries against query per spec §4.7 and resets
// the selection to the first result. Idempotent for the same query on
// the same entry set (spec §8 round-trip law).
func (b *Browser) Filter(query string) {
	b.query = query
	q := strings.ToLower(query)

	if q == "" {
		b.filtered = make([]ScoredEntry, len(b.entries))
		for i, e := range b.entries {
			b.filtered[i] = ScoredEntry{Entry: e, Score: 0}
		}
		b.selected = 0
		return
	}

	var scored []ScoredEntry
	for _, e := range b.entries {
		score, ctx, matched := scoreEntry(e, q)
		if !matched {
			continue
		}
		scored = append(scored, ScoredEntry{Entry: e, Score: score, Context: ctx})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	b.filtered = scored
	b.selected = 0
}

func scoreEntry(e Entry, lowerQuery string) (score int, context string, matched bool) {
	nameMatch := strings.Contains(strings.ToLower(e.AudioPath), lowerQuery)
	if nameMatch {
		score += 100
	}

	if e.HasSidecar {
		lowerBody := strings.ToLower(e.SidecarContent)
		idx := strings.Index(lowerBody, lowerQuery)
		if idx >= 0 {
			bonus := 50 - idx
			if bonus < 0 {
				bonus = 0
			}
			score += bonus
			context = contextWindow(e.SidecarContent, idx, ContextWindow)
			matched = true
		}
	}

	if nameMatch {
		matched = true
	}
	return score, context, matched
}

func contextWindow(body string, matchIdx, width int) string {
	half := width / 2
	start := matchIdx - half
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(body) {
		end = len(body)
		start = end - width
		if start < 0 {
			start = 0
		}
	}
	return body[start:end]
}

// Entries returns the currently filtered, scored, sorted list.
func (b *Browser) Entries() []ScoredEntry { return b.filtered }

// Selected returns the index of the current selection.
func (b *Browser) Selected() int { return b.selected }

// Next advances the selection, wrapping past the last entry to the
// first.
func (b *Browser) Next() {
	if len(b.filtered) == 0 {
		return
	}
	b.selected = (b.selected + 1) % len(b.filtered)
}

// Previous moves the selection back, wrapping past the first entry to
// the last.
func (b *Browser) Previous() {
	if len(b.filtered) == 0 {
		return
	}
	b.selected = (b.selected - 1 + len(b.filtered)) % len(b.filtered)
}

// GetSelectedPath returns the audio path of the current selection, or
// "", false when the filtered list is empty.
func (b *Browser) GetSelectedPath() (string, bool) {
	if len(b.filtered) == 0 {
		return "", false
	}
	return b.filtered[b.selected].AudioPath, true
}
