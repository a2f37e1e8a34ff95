package flacstream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// StreamInfo mirrors FLAC's mandatory STREAMINFO metadata block.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	TotalSamples  uint64
}

// SeekPoint is one entry of a SEEKTABLE metadata block.
type SeekPoint struct {
	SampleNumber uint64
	StreamOffset uint64 // bytes, relative to the first frame's start
	FrameSamples uint16
}

const (
	blockTypeStreamInfo = 0
	blockTypeSeekTable  = 3
)

// readMetadata consumes metadata blocks from r (an io.Reader positioned
// right after the "fLaC" magic) until the last-block flag is seen,
// returning the mandatory StreamInfo, any SeekTable found, and the
// number of bytes consumed (so the caller knows where frame data
// starts).
func readMetadata(r io.Reader) (StreamInfo, []SeekPoint, int64, error) {
	var info StreamInfo
	var seekTable []SeekPoint
	var haveInfo bool
	var consumed int64

	for {
		var header [4]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return info, nil, consumed, fmt.Errorf("flac: reading metadata block header: %w", err)
		}
		consumed += 4

		last := header[0]&0x80 != 0
		blockType := header[0] & 0x7F
		length := int(header[1])<<16 | int(header[2])<<8 | int(header[3])

		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return info, nil, consumed, fmt.Errorf("flac: reading metadata block body: %w", err)
		}
		consumed += int64(length)

		switch blockType {
		case blockTypeStreamInfo:
			if length < 34 {
				return info, nil, consumed, fmt.Errorf("flac: short STREAMINFO block")
			}
			info.MinBlockSize = binary.BigEndian.Uint16(body[0:2])
			info.MaxBlockSize = binary.BigEndian.Uint16(body[2:4])
			info.MinFrameSize = uint24(body[4:7])
			info.MaxFrameSize = uint24(body[7:10])

			packed := binary.BigEndian.Uint64(body[10:18])
			info.SampleRate = uint32(packed >> 44)
			info.Channels = uint8((packed>>41)&0x7) + 1
			info.BitsPerSample = uint8((packed>>36)&0x1F) + 1
			info.TotalSamples = packed & 0xFFFFFFFFF
			haveInfo = true
		case blockTypeSeekTable:
			for off := 0; off+18 <= length; off += 18 {
				sp := SeekPoint{
					SampleNumber: binary.BigEndian.Uint64(body[off : off+8]),
					StreamOffset: binary.BigEndian.Uint64(body[off+8 : off+16]),
					FrameSamples: binary.BigEndian.Uint16(body[off+16 : off+18]),
				}
				if sp.SampleNumber == 0xFFFFFFFFFFFFFFFF {
					continue // placeholder point, per the FLAC format
				}
				seekTable = append(seekTable, sp)
			}
		}

		if last {
			break
		}
	}

	if !haveInfo {
		return info, nil, consumed, fmt.Errorf("flac: missing STREAMINFO block")
	}
	return info, seekTable, consumed, nil
}

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
