/*------------------------------------------------------------------
 *
 * Purpose:	WAV (RIFF) decoder. Supports PCM 8/16/24/32-bit and
 *		32-bit float, mono or stereo. Seek is offset math into
 *		the data chunk (spec §4.1).
 *
 *------------------------------------------------------------------*/
package decoder

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/zim-audio/zim/internal/zimerr"
)

const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
	wavFormatExtensible = 0xFFFE
)

type wavDecoder struct {
	f    *os.File
	br   *bufio.Reader
	path string

	info Info

	audioFormat   uint16
	bitDepth      int
	bytesPerFrame int // across all channels
	bytesPerSamp  int // per channel sample

	dataStart int64
	dataSize  int64

	pos uint64 // current frame cursor
}

func openWAV(path string, f *os.File, br *bufio.Reader) (Decoder, error) {
	_ = br // the 12-byte peek is re-read below; start clean from offset 0.

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, zimerr.NewIOError(path, err)
	}

	var riffHeader [12]byte
	if _, err := io.ReadFull(f, riffHeader[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w: %v", path, zimerr.ErrCorruptHeader, err)
	}
	if !bytes.Equal(riffHeader[0:4], []byte("RIFF")) || !bytes.Equal(riffHeader[8:12], []byte("WAVE")) {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, zimerr.ErrCorruptHeader)
	}

	d := &wavDecoder{f: f, path: path}

	var sawFmt bool
	for {
		var chunkID [4]byte
		var chunkSize uint32
		if _, err := io.ReadFull(f, chunkID[:]); err != nil {
			if err == io.EOF {
				break
			}
			f.Close()
			return nil, fmt.Errorf("%s: %w: %v", path, zimerr.ErrCorruptHeader, err)
		}
		if err := binary.Read(f, binary.LittleEndian, &chunkSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w: %v", path, zimerr.ErrCorruptHeader, err)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			if err := d.readFmtChunk(f, chunkSize); err != nil {
				f.Close()
				return nil, err
			}
			sawFmt = true
		case "data":
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				f.Close()
				return nil, zimerr.NewIOError(path, err)
			}
			d.dataStart = pos
			d.dataSize = int64(chunkSize)
			// Stop at the first data chunk; anything after (e.g. a
			// LIST/INFO tail) is irrelevant to decoding.
			goto haveData
		default:
			if _, err := f.Seek(int64(chunkSize)+int64(chunkSize&1), io.SeekCurrent); err != nil {
				f.Close()
				return nil, zimerr.NewIOError(path, err)
			}
		}
	}
haveData:

	if !sawFmt || d.dataStart == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: %w: missing fmt or data chunk", path, zimerr.ErrCorruptHeader)
	}

	totalFrames := uint64(d.dataSize) / uint64(d.bytesPerFrame)
	d.info.TotalFrames = totalFrames
	d.info.SourceKind = KindWAV

	if _, err := f.Seek(d.dataStart, io.SeekStart); err != nil {
		f.Close()
		return nil, zimerr.NewIOError(path, err)
	}
	d.br = bufio.NewReaderSize(f, 64*1024)

	return d, nil
}

func (d *wavDecoder) readFmtChunk(f *os.File, size uint32) error {
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("%s: %w: %v", d.path, zimerr.ErrCorruptHeader, err)
	}
	if len(buf) < 16 {
		return fmt.Errorf("%s: %w: short fmt chunk", d.path, zimerr.ErrCorruptHeader)
	}

	d.audioFormat = binary.LittleEndian.Uint16(buf[0:2])
	channels := binary.LittleEndian.Uint16(buf[2:4])
	sampleRate := binary.LittleEndian.Uint32(buf[4:8])
	bitsPerSample := binary.LittleEndian.Uint16(buf[14:16])

	if d.audioFormat == wavFormatExtensible && len(buf) >= 40 {
		// The real sub-format GUID's first two bytes distinguish PCM
		// from IEEE float in WAVE_FORMAT_EXTENSIBLE.
		sub := binary.LittleEndian.Uint16(buf[24:26])
		d.audioFormat = sub
	}

	if channels != 1 && channels != 2 {
		return fmt.Errorf("%s: %w: unsupported channel count %d", d.path, zimerr.ErrUnsupportedFormat, channels)
	}
	if d.audioFormat != wavFormatPCM && d.audioFormat != wavFormatIEEEFloat {
		return fmt.Errorf("%s: %w: audio format %d", d.path, zimerr.ErrUnsupportedFormat, d.audioFormat)
	}
	switch bitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%s: %w: bit depth %d", d.path, zimerr.ErrUnsupportedFormat, bitsPerSample)
	}

	d.bitDepth = int(bitsPerSample)
	d.bytesPerSamp = d.bitDepth / 8
	d.bytesPerFrame = d.bytesPerSamp * int(channels)
	d.info.Channels = int(channels)
	d.info.SampleRate = int(sampleRate)
	d.info.BitDepthHint = d.bitDepth
	return nil
}

func (d *wavDecoder) Info() Info { return d.info }

func (d *wavDecoder) Position() uint64 { return d.pos }

func (d *wavDecoder) Seek(frameIndex uint64) error {
	if d.info.TotalFrames > 0 && frameIndex > d.info.TotalFrames {
		return zimerr.ErrSeekOutOfRange
	}
	offset := d.dataStart + int64(frameIndex)*int64(d.bytesPerFrame)
	if _, err := d.f.Seek(offset, io.SeekStart); err != nil {
		return zimerr.NewIOError(d.path, err)
	}
	d.br = bufio.NewReaderSize(d.f, 64*1024)
	d.pos = frameIndex
	return nil
}

func (d *wavDecoder) PullFrames(n int) ([]float32, error) {
	if n <= 0 {
		return nil, nil
	}

	raw := make([]byte, n*d.bytesPerFrame)
	read, err := io.ReadFull(d.br, raw)
	framesRead := read / d.bytesPerFrame
	raw = raw[:framesRead*d.bytesPerFrame]

	out := make([]float32, framesRead*d.info.Channels)
	for i := 0; i < framesRead*d.info.Channels; i++ {
		sample := raw[i*d.bytesPerSamp : (i+1)*d.bytesPerSamp]
		out[i] = d.decodeSample(sample)
	}
	d.pos += uint64(framesRead)

	if err != nil && (err == io.ErrUnexpectedEOF || err == io.EOF) {
		if framesRead == 0 {
			return nil, zimerr.ErrEndOfStream
		}
		return out, nil
	}
	if err != nil {
		return out, zimerr.NewIOError(d.path, err)
	}
	return out, nil
}

func (d *wavDecoder) decodeSample(b []byte) float32 {
	switch d.bitDepth {
	case 8:
		return normalizeU8(b[0])
	case 16:
		return normalizeS16(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		u := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		return normalizeS24(sign24(u))
	case 32:
		if d.audioFormat == wavFormatIEEEFloat {
			bits := binary.LittleEndian.Uint32(b)
			return math32FromBits(bits)
		}
		return normalizeS32(int32(binary.LittleEndian.Uint32(b)))
	}
	return 0
}

func (d *wavDecoder) Close() error { return d.f.Close() }
