/*------------------------------------------------------------------
 *
 * Purpose:	Canonical 16-bit PCM WAV writer used by the exporter
 *		(spec §4.8, §6): RIFF header with `fmt ` and `data` chunks,
 *		little-endian, interleaved.
 *
 *------------------------------------------------------------------*/
package export

import (
	"encoding/binary"
	"io"
	"math"
)

const bitsPerSampleOut = 16

// writeWAVHeader writes a canonical RIFF/WAVE header for PCM audio
// with the given channel count, sample rate, and total sample frames,
// sized for 16-bit samples.
func writeWAVHeader(w io.Writer, channels, sampleRate int, totalFrames uint64) error {
	bytesPerFrame := channels * (bitsPerSampleOut / 8)
	dataSize := uint32(totalFrames) * uint32(bytesPerFrame)
	byteRate := uint32(sampleRate * bytesPerFrame)

	buf := make([]byte, 0, 44)
	buf = append(buf, "RIFF"...)
	buf = appendU32(buf, 36+dataSize)
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = appendU32(buf, 16)
	buf = appendU16(buf, 1) // PCM
	buf = appendU16(buf, uint16(channels))
	buf = appendU32(buf, uint32(sampleRate))
	buf = appendU32(buf, byteRate)
	buf = appendU16(buf, uint16(bytesPerFrame))
	buf = appendU16(buf, bitsPerSampleOut)
	buf = append(buf, "data"...)
	buf = appendU32(buf, dataSize)

	_, err := w.Write(buf)
	return err
}

// writeFrames converts interleaved f32 frames in [-1,1] to 16-bit
// signed PCM and writes them.
func writeFrames(w io.Writer, frames []float32) error {
	out := make([]byte, len(frames)*2)
	for i, s := range frames {
		v := int16(math.Round(float64(clampF32(s, -1, 1)) * 32767))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	_, err := w.Write(out)
	return err
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
