// Package zimerr centralizes the error kinds that cross component
// boundaries in zim. Every kind here is an explicit value or wrapped
// value — nothing in the player panics its way out of a decode or I/O
// failure (the audio thread in particular must never panic; see
// internal/mixer).
package zimerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is against these, not string comparison.
var (
	// ErrUnsupportedFormat means the file's container/codec isn't one
	// zim knows how to decode. Load is refused; state is unchanged.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrCorruptHeader means the container's header failed to parse.
	ErrCorruptHeader = errors.New("corrupt header")

	// ErrSeekOutOfRange means a seek target fell outside [0, total_frames].
	// Callers clamp silently; this is not surfaced to the user.
	ErrSeekOutOfRange = errors.New("seek out of range")

	// ErrEndOfStream is not a failure — pull_frames returns it when a
	// decoder has no more frames. It is its own sentinel and does not
	// wrap io.EOF.
	ErrEndOfStream = errors.New("end of stream")

	// ErrInvalidMarks means a mark transition was rejected because it
	// would violate mark_in <= mark_out.
	ErrInvalidMarks = errors.New("invalid marks")

	// ErrDeviceUnavailable is fatal at startup: the sound card could not
	// be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrExportPartial means the WAV was written but the sidecar write
	// failed. The WAV is not rolled back.
	ErrExportPartial = errors.New("export partial: sidecar not written")
)

// IOError wraps a filesystem or device I/O failure with the path that
// triggered it.
type IOError struct {
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error on %q: %v", e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// NewIOError wraps cause with the path that produced it. Returns nil if
// cause is nil, so callers can write `return zimerr.NewIOError(path, err)`
// unconditionally.
func NewIOError(path string, cause error) error {
	if cause == nil {
		return nil
	}
	return &IOError{Path: path, Cause: cause}
}

// SidecarParseError wraps a YAML frontmatter parse or schema validation
// failure, as returned by sidecar.Parse. The browser never produces it:
// it keeps sidecar text unparsed, so an entry whose sidecar is invalid
// still shows that text. The external lint tool uses the same parser
// and surfaces this as a report line.
type SidecarParseError struct {
	Path   string
	Detail string
}

func (e *SidecarParseError) Error() string {
	return fmt.Sprintf("sidecar parse error in %q: %s", e.Path, e.Detail)
}

// NewSidecarParseError constructs a SidecarParseError.
func NewSidecarParseError(path, detail string) error {
	return &SidecarParseError{Path: path, Detail: detail}
}
