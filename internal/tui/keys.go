/*------------------------------------------------------------------
 *
 * Purpose:	Raw terminal keyboard input for the event loop (spec
 *		§4.10). Puts the terminal into raw mode so individual
 *		keystrokes (including escape sequences for arrows) arrive
 *		unbuffered and unechoed, then decodes them into Key values.
 *
 * Description:	github.com/pkg/term is the teacher's library for owning
 *		a raw serial/tty device end to end; here it's repurposed
 *		from serial-port framing to terminal raw-mode keystroke
 *		framing, the same "own the device, read bytes, decode a
 *		frame" shape.
 *
 *------------------------------------------------------------------*/
package tui

import (
	"sync"

	"github.com/pkg/term"
)

// Key identifies one decoded keypress relevant to the player (spec
// §4.10's shortcut table) or a browser/save-dialog navigation key.
type Key int

const (
	KeyNone Key = iota
	KeySpace
	KeyLeft
	KeyRight
	KeyShiftLeft
	KeyShiftRight
	KeyUp
	KeyDown
	KeyEnter
	KeyEscape
	KeyTab
	KeyBackspace
	KeyRune // the actual character is in KeyEvent.Rune
)

// Reader owns the raw terminal device and decodes keystrokes. t is
// guarded by mu because the resume function returned by Suspend (spec
// §4.10's `e` editor shortcut) swaps it out from under a
// concurrently-blocked ReadKey call
// running on the reader goroutine.
type Reader struct {
	mu   sync.Mutex
	t    *term.Term
	path string
}

// OpenReader puts the controlling terminal into raw mode.
func OpenReader() (*Reader, error) {
	const path = "/dev/tty"
	t, err := term.Open(path, term.RawMode)
	if err != nil {
		return nil, err
	}
	return &Reader{t: t, path: path}, nil
}

// Close restores the terminal to its original mode.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.t == nil {
		return nil
	}
	if err := r.t.Restore(); err != nil {
		r.t.Close()
		return err
	}
	return r.t.Close()
}

// Suspend restores cooked terminal mode so a spawned child process
// (the `e` shortcut's $EDITOR) can own the controlling terminal
// directly, and returns a resume function that re-enters raw mode.
// Editors that reopen /dev/tty themselves (vim, nano) manage their own
// raw mode independently of this Reader's fd, so the two do not fight
// over termios state; this Reader simply stops decoding keystrokes
// until resume is called.
func (r *Reader) Suspend() (resume func() error, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.t.Restore(); err != nil {
		return nil, err
	}
	return func() error {
		r.mu.Lock()
		defer r.mu.Unlock()
		t, err := term.Open(r.path, term.RawMode)
		if err != nil {
			return err
		}
		r.t = t
		return nil
	}, nil
}

// ReadKey blocks for exactly one decoded keystroke. Callers run this
// on its own goroutine and feed results through a channel so the event
// loop's poll step (spec §4.10 step 1) can apply its own ~33ms
// timeout around it.
func (r *Reader) ReadKey() (KeyEvent, error) {
	r.mu.Lock()
	t := r.t
	r.mu.Unlock()

	buf := make([]byte, 6)
	n, err := t.Read(buf)
	if err != nil {
		return KeyEvent{Key: KeyNone}, err
	}
	if n == 0 {
		return KeyEvent{Key: KeyNone}, nil
	}
	buf = buf[:n]

	if key, ok := decodeShiftArrow(buf); ok {
		return KeyEvent{Key: key}, nil
	}
	if buf[0] == 0x1b && n >= 3 && buf[1] == '[' {
		switch buf[2] {
		case 'C':
			return KeyEvent{Key: KeyRight}, nil
		case 'D':
			return KeyEvent{Key: KeyLeft}, nil
		case 'A':
			return KeyEvent{Key: KeyUp}, nil
		case 'B':
			return KeyEvent{Key: KeyDown}, nil
		}
		return KeyEvent{Key: KeyNone}, nil
	}
	if buf[0] == 0x1b && n == 1 {
		return KeyEvent{Key: KeyEscape}, nil
	}

	switch buf[0] {
	case ' ':
		return KeyEvent{Key: KeySpace}, nil
	case '\r', '\n':
		return KeyEvent{Key: KeyEnter}, nil
	case '\t':
		return KeyEvent{Key: KeyTab}, nil
	case 0x7f, 0x08:
		return KeyEvent{Key: KeyBackspace}, nil
	default:
		return KeyEvent{Key: KeyRune, Rune: rune(buf[0])}, nil
	}
}

// RunReader reads keystrokes in a loop and sends them on events until
// Close is called (which breaks the underlying Read and ends the
// goroutine). Intended to be run with `go`.
func RunReader(r *Reader, events chan<- KeyEvent) {
	for {
		e, err := r.ReadKey()
		if err != nil {
			close(events)
			return
		}
		if e.Key == KeyNone {
			continue
		}
		events <- e
	}
}

// decodeShiftArrow recognizes the xterm escape sequences for
// shift+arrow; ReadKey checks it before the plain-arrow decode, when
// the read returned enough bytes to distinguish them. Terminals vary here; this
// covers the common xterm/vt100 "CSI 1;2 C/D" form.
func decodeShiftArrow(buf []byte) (Key, bool) {
	if len(buf) >= 6 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == '1' && buf[3] == ';' && buf[4] == '2' {
		switch buf[5] {
		case 'C':
			return KeyShiftRight, true
		case 'D':
			return KeyShiftLeft, true
		}
	}
	return KeyNone, false
}
