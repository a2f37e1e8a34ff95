/*------------------------------------------------------------------
 *
 * Package:	decoder
 *
 * Purpose:	Open an audio file, expose its metadata, and stream
 *		normalized interleaved f32 samples with seek support.
 *
 * Description:	Three container variants — wav, flac, aiff — sit behind
 *		one capability interface (Decoder). Format detection is by
 *		magic bytes first, extension second. The rest of the
 *		system (mixer, exporter) never branches on format; it only
 *		ever talks to the Decoder interface, matching spec §9's
 *		"dynamic dispatch across formats... expressed as a tagged
 *		variant or capability trait returning a uniform frame
 *		iterator."
 *
 *------------------------------------------------------------------*/
package decoder

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zim-audio/zim/internal/zimerr"
)

// SourceKind identifies which container a Decoder was opened from.
type SourceKind string

const (
	KindWAV  SourceKind = "wav"
	KindFLAC SourceKind = "flac"
	KindAIFF SourceKind = "aiff"
)

// Info is the metadata a Decoder exposes immediately after Open.
type Info struct {
	SampleRate   int
	Channels     int        // 1 or 2
	TotalFrames  uint64     // may be 0 for streaming sources
	BitDepthHint int
	SourceKind   SourceKind
}

// Decoder is exclusively owned by whoever pulls it — it is not safe for
// concurrent use by more than one goroutine (spec §3).
type Decoder interface {
	// Info returns the decoder's metadata, fixed after Open.
	Info() Info

	// PullFrames reads up to n interleaved frames. The returned slice
	// has len() == framesRead*Channels. Returns zimerr.ErrEndOfStream
	// (not io.EOF) once no more frames remain; that is normal, not
	// an error condition for callers to report to the user.
	PullFrames(n int) ([]float32, error)

	// Seek repositions the decode cursor to frameIndex. The very next
	// PullFrames begins at that frame. Returns zimerr.ErrSeekOutOfRange
	// if frameIndex is past the end.
	Seek(frameIndex uint64) error

	// Position returns the current decode cursor, in frames.
	Position() uint64

	Close() error
}

// Open detects the container format from the file's magic bytes,
// falling back to its extension, and returns the matching Decoder.
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zimerr.NewIOError(path, err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(12)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, zimerr.NewIOError(path, err)
	}

	kind := detectKind(magic, path)
	switch kind {
	case KindWAV:
		return openWAV(path, f, br)
	case KindFLAC:
		return openFLAC(path, f, br)
	case KindAIFF:
		return openAIFF(path, f, br)
	default:
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, zimerr.ErrUnsupportedFormat)
	}
}

func detectKind(magic []byte, path string) SourceKind {
	switch {
	case len(magic) >= 4 && bytes.Equal(magic[0:4], []byte("fLaC")):
		return KindFLAC
	case len(magic) >= 12 && bytes.Equal(magic[0:4], []byte("RIFF")) && bytes.Equal(magic[8:12], []byte("WAVE")):
		return KindWAV
	case len(magic) >= 12 && bytes.Equal(magic[0:4], []byte("FORM")) && bytes.Equal(magic[8:12], []byte("AIFF")):
		return KindAIFF
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return KindWAV
	case ".flac":
		return KindFLAC
	case ".aiff", ".aif":
		return KindAIFF
	}
	return ""
}

// SupportedExtensions lists the file extensions the Browser (C7) treats
// as audio. Kept here so format support is declared once.
var SupportedExtensions = []string{".wav", ".wave", ".flac", ".aiff", ".aif"}

// IsSupportedExtension reports whether path's extension matches a
// container zim can decode.
func IsSupportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
