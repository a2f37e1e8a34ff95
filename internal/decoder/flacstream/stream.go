package flacstream

import (
	"bufio"
	"fmt"
	"io"
)

// Stream reads FLAC metadata once at Open and then decodes frames on
// demand via NextFrame. It holds no file handle of its own — callers
// own the io.ReadSeeker and, after repositioning it for a seek, attach
// a fresh reader with BeginFrames; see decoder.flacDecoder.Seek for how
// the two compose.
type Stream struct {
	Info      StreamInfo
	SeekTable []SeekPoint

	// DataStart is the absolute offset (within the reader originally
	// passed to Open) of the first frame, i.e. where SeekPoint.StreamOffset
	// values are relative to.
	DataStart int64

	br *bitReader
}

// Open reads the "fLaC" magic and metadata blocks from r (positioned at
// the start of the file) and returns a Stream ready to decode frames
// starting at DataStart.
func Open(r io.Reader) (*Stream, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("flac: reading magic: %w", err)
	}
	if string(magic[:]) != "fLaC" {
		return nil, fmt.Errorf("flac: bad magic %q", magic)
	}

	info, seekTable, consumed, err := readMetadata(r)
	if err != nil {
		return nil, err
	}

	return &Stream{
		Info:      info,
		SeekTable: seekTable,
		DataStart: 4 + consumed,
	}, nil
}

// BeginFrames attaches the frame-decoding bit reader to br, which must
// be positioned at s.DataStart within the underlying file.
func (s *Stream) BeginFrames(br *bufio.Reader) {
	s.br = newBitReader(br)
}

// NextFrame decodes the next frame and returns its interleaved integer
// samples (not yet normalized), channel count, bit depth, and block
// size (frame count).
func (s *Stream) NextFrame() (samples []int32, channels int, bitsPerSample int, blockSize int, err error) {
	if s.br == nil {
		return nil, 0, 0, 0, fmt.Errorf("flac: BeginFrames was not called")
	}
	return decodeFrame(s.br, s.Info)
}
