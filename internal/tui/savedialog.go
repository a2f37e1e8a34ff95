/*------------------------------------------------------------------
 *
 * Purpose:	Save dialog (part of C8): directory navigation and
 *		filename entry driving the Exporter (spec §4.8, §4.10's
 *		"SaveDialog: Tab toggles focus (directory list ↔ filename),
 *		arrows navigate list, enter confirms current field, esc
 *		cancels").
 *
 *------------------------------------------------------------------*/
package tui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SaveFocus identifies which field of the save dialog currently
// receives keystrokes.
type SaveFocus int

const (
	FocusList SaveFocus = iota
	FocusFilename
)

// SaveDialog holds the UI-owned state for the save modal: the current
// directory, its subdirectory listing (for navigation, `..` included
// whenever not at the filesystem root), the selected entry, and a
// filename text buffer pre-seeded with the exporter's suggestion.
type SaveDialog struct {
	Dir      string
	Entries  []string
	Selected int
	Filename string
	Focus    SaveFocus
	Status   string
}

// NewSaveDialog seeds a dialog rooted at dir with
// the exporter's suggested selection filename (spec §4.8).
func NewSaveDialog(dir, suggestedFilename string) *SaveDialog {
	sd := &SaveDialog{
		Dir:      dir,
		Filename: suggestedFilename,
		Focus:    FocusFilename,
	}
	sd.refresh()
	return sd
}

func (sd *SaveDialog) refresh() {
	entries := []string{}
	if filepath.Dir(sd.Dir) != sd.Dir {
		entries = append(entries, "..")
	}
	if items, err := os.ReadDir(sd.Dir); err == nil {
		var dirs []string
		for _, it := range items {
			if it.IsDir() && !strings.HasPrefix(it.Name(), ".") {
				dirs = append(dirs, it.Name())
			}
		}
		sort.Strings(dirs)
		entries = append(entries, dirs...)
	}
	sd.Entries = entries
	if sd.Selected >= len(sd.Entries) {
		sd.Selected = 0
	}
}

// ToggleFocus flips between the directory list and the filename field
// (spec §4.10's Tab binding).
func (sd *SaveDialog) ToggleFocus() {
	if sd.Focus == FocusList {
		sd.Focus = FocusFilename
	} else {
		sd.Focus = FocusList
	}
}

// Next/Previous wrap navigation within the directory list, mirroring
// the Browser's wraparound behavior (spec §4.7).
func (sd *SaveDialog) Next() {
	if len(sd.Entries) == 0 {
		return
	}
	sd.Selected = (sd.Selected + 1) % len(sd.Entries)
}

func (sd *SaveDialog) Previous() {
	if len(sd.Entries) == 0 {
		return
	}
	sd.Selected = (sd.Selected - 1 + len(sd.Entries)) % len(sd.Entries)
}

// EnterSelected descends into (or up out of, for "..") the currently
// highlighted directory. No-op when the filename field has focus.
func (sd *SaveDialog) EnterSelected() {
	if sd.Focus != FocusList || len(sd.Entries) == 0 {
		return
	}
	name := sd.Entries[sd.Selected]
	if name == ".." {
		sd.Dir = filepath.Dir(sd.Dir)
	} else {
		sd.Dir = filepath.Join(sd.Dir, name)
	}
	sd.refresh()
}

// AppendRune and Backspace edit the filename field; both are no-ops
// when the list has focus.
func (sd *SaveDialog) AppendRune(r rune) {
	if sd.Focus == FocusFilename {
		sd.Filename += string(r)
	}
}

func (sd *SaveDialog) Backspace() {
	if sd.Focus == FocusFilename && len(sd.Filename) > 0 {
		sd.Filename = sd.Filename[:len(sd.Filename)-1]
	}
}

// TargetPath is the full path the exporter should write to.
func (sd *SaveDialog) TargetPath() string {
	return filepath.Join(sd.Dir, sd.Filename)
}
