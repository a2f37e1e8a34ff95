/*------------------------------------------------------------------
 *
 * Purpose:	Player state machine: position, duration, marks, loop,
 *		volume and the active modal, plus the command handlers that
 *		enforce spec §4.6's invariants on every transition.
 *
 * Description:	State is owned exclusively by the UI thread (spec §5);
 *		the audio thread never touches it directly. Position is
 *		refreshed from the decoder/mixer cursor once per tick by
 *		the event loop, not computed here.
 *
 *------------------------------------------------------------------*/
package player

import "github.com/zim-audio/zim/internal/zimerr"

// Modal identifies which surface currently owns keyboard input.
type Modal int

const (
	ModalPlayer Modal = iota
	ModalBrowser
	ModalSaveDialog
)

// SeekRelativeStep and SeekJumpFraction are the step sizes for the two
// seek commands (spec §4.6).
const (
	SeekRelativeStep = 5.0  // seconds
	SeekJumpFraction = 0.20 // fraction of duration
)

const (
	MinVolume = 0.0
	MaxVolume = 2.0
)

// State is the player's mutable UI-thread-owned state.
type State struct {
	PositionSeconds float32
	DurationSeconds float32

	MarkIn  *float32
	MarkOut *float32

	// PendingSeekSeconds is a seek target set by SeekRelative/SeekJump
	// that the event loop must apply to the Decoder on its next tick
	// (spec §4.10 step 4: "may command Decoder (seek)"). nil when no
	// seek is outstanding. TakePendingSeek clears it.
	PendingSeekSeconds *float32

	LoopActive bool
	Playing    bool

	Volume float64

	Modal Modal
}

// New returns a fresh State at the start of a newly loaded track.
func New(durationSeconds float32) *State {
	return &State{
		DurationSeconds: durationSeconds,
		Volume:          1.0,
		Modal:           ModalPlayer,
	}
}

// Load resets position/marks/loop for a newly opened track while
// preserving volume and modal (spec §3: "replacing the file drops the
// previous decoder atomically from the mixer").
func (s *State) Load(durationSeconds float32) {
	s.PositionSeconds = 0
	s.DurationSeconds = durationSeconds
	s.MarkIn = nil
	s.MarkOut = nil
	s.PendingSeekSeconds = nil
	s.LoopActive = false
	s.Playing = false
}

func (s *State) Play()  { s.Playing = true }
func (s *State) Pause() { s.Playing = false }

func (s *State) TogglePlay() {
	s.Playing = !s.Playing
}

// SeekRelative moves position by ±SeekRelativeStep seconds, clamped to
// [0, duration], and flags the target for the event loop to actually
// apply to the Decoder on the next tick (spec line 27: "Event loop...
// may command Decoder (seek)").
func (s *State) SeekRelative(deltaSeconds float32) {
	s.setPendingSeek(s.PositionSeconds + deltaSeconds)
}

// SeekJump moves position by ±SeekJumpFraction of the track duration,
// flagging the target the same way as SeekRelative.
func (s *State) SeekJump(sign float32) {
	s.setPendingSeek(s.PositionSeconds + sign*SeekJumpFraction*s.DurationSeconds)
}

func (s *State) setPendingSeek(v float32) {
	s.setPosition(v)
	target := s.PositionSeconds
	s.PendingSeekSeconds = &target
}

func (s *State) setPosition(v float32) {
	if v < 0 {
		v = 0
	}
	if v > s.DurationSeconds {
		v = s.DurationSeconds
	}
	s.PositionSeconds = v
}

// TakePendingSeek returns and clears a seek target set by
// SeekRelative/SeekJump, if any. The event loop calls this once per
// tick, before refreshing position from the Decoder's cursor, so a
// user-initiated seek actually repositions the Decoder instead of
// being overwritten by the stale cursor on the very next tick.
func (s *State) TakePendingSeek() (target float32, ok bool) {
	if s.PendingSeekSeconds == nil {
		return 0, false
	}
	target = *s.PendingSeekSeconds
	s.PendingSeekSeconds = nil
	return target, true
}

// SetPositionFromCursor is how the event loop feeds the decoder/mixer's
// actual frame cursor back into player state each tick.
func (s *State) SetPositionFromCursor(v float32) {
	s.setPosition(v)
}

// SetMarkIn sets mark_in to the current position. If the new in point
// would leave mark_out < mark_in, mark_out is cleared (spec §4.6).
func (s *State) SetMarkIn() {
	at := s.PositionSeconds
	s.MarkIn = &at
	if s.MarkOut != nil && *s.MarkOut < at {
		s.MarkOut = nil
		s.LoopActive = false
	}
}

// SetMarkOut sets mark_out to the current position. Rejected (no
// change) if it would leave mark_out < mark_in (spec §4.6).
func (s *State) SetMarkOut() error {
	at := s.PositionSeconds
	if s.MarkIn != nil && *s.MarkIn > at {
		return zimerr.ErrInvalidMarks
	}
	s.MarkOut = &at
	return nil
}

// ClearMarks removes both marks and disables loop.
func (s *State) ClearMarks() {
	s.MarkIn = nil
	s.MarkOut = nil
	s.LoopActive = false
}

// ToggleLoop flips loop_active. No-op when both marks aren't set
// (spec §4.6).
func (s *State) ToggleLoop() {
	if s.MarkIn == nil || s.MarkOut == nil {
		return
	}
	s.LoopActive = !s.LoopActive
}

// SetVolume clamps v into [MinVolume, MaxVolume].
func (s *State) SetVolume(v float64) {
	if v < MinVolume {
		v = MinVolume
	}
	if v > MaxVolume {
		v = MaxVolume
	}
	s.Volume = v
}

func (s *State) OpenBrowser()    { s.Modal = ModalBrowser }
func (s *State) OpenSaveDialog() { s.Modal = ModalSaveDialog }
func (s *State) CloseModal()     { s.Modal = ModalPlayer }

// MarksComplete reports whether both marks are set.
func (s *State) MarksComplete() bool {
	return s.MarkIn != nil && s.MarkOut != nil
}

// CheckLoopBoundary implements spec §4.6's loop-back rule: when
// loop_active and position has reached or passed mark_out, seek to
// mark_in. Checked on the UI tick, never from the audio thread. Returns
// the seek target when a loop-back should happen, or false otherwise —
// the caller is responsible for actually repositioning the decoder.
func (s *State) CheckLoopBoundary() (target float32, shouldSeek bool) {
	if !s.LoopActive || !s.MarksComplete() {
		return 0, false
	}
	if s.PositionSeconds >= *s.MarkOut {
		return *s.MarkIn, true
	}
	return 0, false
}
