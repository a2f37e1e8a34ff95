/*------------------------------------------------------------------
 *
 * Purpose:	AIFF (FORM/AIFF) decoder. Big-endian, integer PCM only
 *		(AIFF-C float variants are out of scope). Seek is SSND
 *		chunk offset math (spec §4.1).
 *
 *------------------------------------------------------------------*/
package decoder

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/zim-audio/zim/internal/zimerr"
)

type aiffDecoder struct {
	f    *os.File
	br   *bufio.Reader
	path string

	info Info

	bytesPerSamp  int
	bytesPerFrame int

	ssndStart int64 // start of sample data, after the 8-byte offset+blockSize header
	ssndSize  int64

	pos uint64
}

func openAIFF(path string, f *os.File, _ *bufio.Reader) (Decoder, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, zimerr.NewIOError(path, err)
	}

	var header [12]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w: %v", path, zimerr.ErrCorruptHeader, err)
	}
	if !bytes.Equal(header[0:4], []byte("FORM")) || !bytes.Equal(header[8:12], []byte("AIFF")) {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, zimerr.ErrCorruptHeader)
	}

	d := &aiffDecoder{f: f, path: path}
	var sawCOMM bool

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
		if err := binary.Read(f, binary.BigEndian, &chunkSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w: %v", path, zimerr.ErrCorruptHeader, err)
		}

		switch string(chunkID[:]) {
		case "COMM":
			if err := d.readCOMM(f, chunkSize); err != nil {
				f.Close()
				return nil, err
			}
			sawCOMM = true
		case "SSND":
			var offset, blockSize uint32
			if err := binary.Read(f, binary.BigEndian, &offset); err != nil {
				f.Close()
				return nil, fmt.Errorf("%s: %w: %v", path, zimerr.ErrCorruptHeader, err)
			}
			if err := binary.Read(f, binary.BigEndian, &blockSize); err != nil {
				f.Close()
				return nil, fmt.Errorf("%s: %w: %v", path, zimerr.ErrCorruptHeader, err)
			}
			if _, err := f.Seek(int64(offset), io.SeekCurrent); err != nil {
				f.Close()
				return nil, zimerr.NewIOError(path, err)
			}
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				f.Close()
				return nil, zimerr.NewIOError(path, err)
			}
			d.ssndStart = pos
			d.ssndSize = int64(chunkSize) - 8 - int64(offset)
			goto haveSSND
		default:
			if _, err := f.Seek(int64(chunkSize)+int64(chunkSize&1), io.SeekCurrent); err != nil {
				f.Close()
				return nil, zimerr.NewIOError(path, err)
			}
		}
	}
haveSSND:

	if !sawCOMM || d.ssndStart == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: %w: missing COMM or SSND chunk", path, zimerr.ErrCorruptHeader)
	}

	totalFrames := uint64(d.ssndSize) / uint64(d.bytesPerFrame)
	if d.info.TotalFrames == 0 || totalFrames < d.info.TotalFrames {
		d.info.TotalFrames = totalFrames
	}
	d.info.SourceKind = KindAIFF

	if _, err := f.Seek(d.ssndStart, io.SeekStart); err != nil {
		f.Close()
		return nil, zimerr.NewIOError(path, err)
	}
	d.br = bufio.NewReaderSize(f, 64*1024)

	return d, nil
}

func (d *aiffDecoder) readCOMM(f *os.File, size uint32) error {
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("%s: %w: %v", d.path, zimerr.ErrCorruptHeader, err)
	}
	if len(buf) < 18 {
		return fmt.Errorf("%s: %w: short COMM chunk", d.path, zimerr.ErrCorruptHeader)
	}

	channels := binary.BigEndian.Uint16(buf[0:2])
	numFrames := binary.BigEndian.Uint32(buf[2:6])
	bitsPerSample := binary.BigEndian.Uint16(buf[6:8])
	sampleRate := extendedToFloat64(buf[8:18])

	if channels != 1 && channels != 2 {
		return fmt.Errorf("%s: %w: unsupported channel count %d", d.path, zimerr.ErrUnsupportedFormat, channels)
	}
	switch bitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%s: %w: bit depth %d", d.path, zimerr.ErrUnsupportedFormat, bitsPerSample)
	}

	d.bytesPerSamp = int(bitsPerSample) / 8
	d.bytesPerFrame = d.bytesPerSamp * int(channels)
	d.info.Channels = int(channels)
	d.info.SampleRate = int(sampleRate)
	d.info.BitDepthHint = int(bitsPerSample)
	d.info.TotalFrames = uint64(numFrames)
	return nil
}

// extendedToFloat64 decodes the 80-bit IEEE 754 extended precision float
// used by AIFF's COMM.sampleRate field.
func extendedToFloat64(b []byte) float64 {
	sign := 1.0
	if b[0]&0x80 != 0 {
		sign = -1.0
	}
	exponent := int(binary.BigEndian.Uint16(b[0:2]) & 0x7FFF)
	mantissa := binary.BigEndian.Uint64(b[2:10])

	if exponent == 0 && mantissa == 0 {
		return 0
	}
	return sign * float64(mantissa) * math.Pow(2, float64(exponent-16383-63))
}

func (d *aiffDecoder) Info() Info      { return d.info }
func (d *aiffDecoder) Position() uint64 { return d.pos }

func (d *aiffDecoder) Seek(frameIndex uint64) error {
	if d.info.TotalFrames > 0 && frameIndex > d.info.TotalFrames {
		return zimerr.ErrSeekOutOfRange
	}
	offset := d.ssndStart + int64(frameIndex)*int64(d.bytesPerFrame)
	if _, err := d.f.Seek(offset, io.SeekStart); err != nil {
		return zimerr.NewIOError(d.path, err)
	}
	d.br = bufio.NewReaderSize(d.f, 64*1024)
	d.pos = frameIndex
	return nil
}

func (d *aiffDecoder) PullFrames(n int) ([]float32, error) {
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

func (d *aiffDecoder) decodeSample(b []byte) float32 {
	switch d.bytesPerSamp {
	case 1:
		// AIFF 8-bit samples are signed, unlike WAV's unsigned 8-bit.
		return float32(int8(b[0])) / scale8
	case 2:
		return normalizeS16(int16(binary.BigEndian.Uint16(b)))
	case 3:
		u := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
		return normalizeS24(sign24(u))
	case 4:
		return normalizeS32(int32(binary.BigEndian.Uint32(b)))
	}
	return 0
}

func (d *aiffDecoder) Close() error { return d.f.Close() }
