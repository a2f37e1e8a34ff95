package flacstream

import (
	"fmt"
)

const (
	channelAssignLeftSide = 8
	channelAssignRightSide = 9
	channelAssignMidSide  = 10
)

// frameHeader holds the fields of a parsed FLAC frame header that the
// decoder actually needs; sample/frame number and CRC-8 are consumed
// (to keep the bitstream aligned) but not retained.
type frameHeader struct {
	blockSize        int
	channelAssign    int
	bitsPerSample    int
}

var blockSizeFixed = map[uint64]int{
	1: 192, 2: 576, 3: 1152, 4: 2304, 5: 4608,
}

var sampleSizeBits = map[uint64]int{
	1: 8, 2: 12, 4: 16, 5: 20, 6: 24,
}

func readFrameHeader(br *bitReader, info StreamInfo) (frameHeader, error) {
	sync, err := br.ReadBits(14)
	if err != nil {
		return frameHeader{}, err
	}
	if sync != 0x3FFE {
		return frameHeader{}, fmt.Errorf("flac: bad frame sync code %x", sync)
	}
	if _, err := br.ReadBits(1); err != nil { // reserved
		return frameHeader{}, err
	}
	if _, err := br.ReadBits(1); err != nil { // blocking strategy, unused
		return frameHeader{}, err
	}

	blockSizeCode, err := br.ReadBits(4)
	if err != nil {
		return frameHeader{}, err
	}
	sampleRateCode, err := br.ReadBits(4)
	if err != nil {
		return frameHeader{}, err
	}
	channelAssign, err := br.ReadBits(4)
	if err != nil {
		return frameHeader{}, err
	}
	sampleSizeCode, err := br.ReadBits(3)
	if err != nil {
		return frameHeader{}, err
	}
	if _, err := br.ReadBits(1); err != nil { // reserved
		return frameHeader{}, err
	}

	if err := skipUTF8Number(br); err != nil {
		return frameHeader{}, err
	}

	var blockSize int
	switch {
	case blockSizeCode == 6:
		v, err := br.ReadBits(8)
		if err != nil {
			return frameHeader{}, err
		}
		blockSize = int(v) + 1
	case blockSizeCode == 7:
		v, err := br.ReadBits(16)
		if err != nil {
			return frameHeader{}, err
		}
		blockSize = int(v) + 1
	case blockSizeCode >= 8:
		blockSize = 1 << blockSizeCode
	default:
		bs, ok := blockSizeFixed[blockSizeCode]
		if !ok {
			return frameHeader{}, fmt.Errorf("flac: reserved block size code %d", blockSizeCode)
		}
		blockSize = bs
	}

	switch sampleRateCode {
	case 12:
		if _, err := br.ReadBits(8); err != nil {
			return frameHeader{}, err
		}
	case 13, 14:
		if _, err := br.ReadBits(16); err != nil {
			return frameHeader{}, err
		}
	}

	bitsPerSample := int(info.BitsPerSample)
	if bits, ok := sampleSizeBits[sampleSizeCode]; ok {
		bitsPerSample = bits
	}

	if _, err := br.ReadBits(8); err != nil { // CRC-8, unverified
		return frameHeader{}, err
	}

	return frameHeader{blockSize: blockSize, channelAssign: int(channelAssign), bitsPerSample: bitsPerSample}, nil
}

// skipUTF8Number consumes FLAC's UTF-8-style coded frame/sample number.
// The value itself is not needed for playback: byte-accurate positioning
// comes from the seek table or a linear decode-and-discard scan.
func skipUTF8Number(br *bitReader) error {
	first, err := br.ReadBits(8)
	if err != nil {
		return err
	}
	var extra int
	switch {
	case first&0x80 == 0:
		extra = 0
	case first&0xE0 == 0xC0:
		extra = 1
	case first&0xF0 == 0xE0:
		extra = 2
	case first&0xF8 == 0xF0:
		extra = 3
	case first&0xFC == 0xF8:
		extra = 4
	case first&0xFE == 0xFC:
		extra = 5
	case first&0xFF == 0xFE:
		extra = 6
	default:
		return fmt.Errorf("flac: invalid UTF-8 coded number lead byte %#x", first)
	}
	for i := 0; i < extra; i++ {
		if _, err := br.ReadBits(8); err != nil {
			return err
		}
	}
	return nil
}

// decodeFrame reads one full frame (header, all subframes, footer
// padding/CRC-16) and returns interleaved, reconstructed integer
// samples at the frame's bit depth (not yet normalized to float32).
func decodeFrame(br *bitReader, info StreamInfo) (samples []int32, channels int, bitsPerSample int, blockSize int, err error) {
	hdr, err := readFrameHeader(br, info)
	if err != nil {
		return nil, 0, 0, 0, err
	}

	var numSubframes int
	switch hdr.channelAssign {
	case channelAssignLeftSide, channelAssignRightSide, channelAssignMidSide:
		numSubframes = 2
	default:
		numSubframes = hdr.channelAssign + 1
	}
	if numSubframes != 1 && numSubframes != 2 {
		return nil, 0, 0, 0, fmt.Errorf("flac: unsupported channel count %d", numSubframes)
	}

	subframes := make([][]int32, numSubframes)
	for ch := 0; ch < numSubframes; ch++ {
		bps := hdr.bitsPerSample
		switch hdr.channelAssign {
		case channelAssignLeftSide:
			if ch == 1 {
				bps++
			}
		case channelAssignRightSide:
			if ch == 0 {
				bps++
			}
		case channelAssignMidSide:
			if ch == 1 {
				bps++
			}
		}

		sf, err := decodeSubframe(br, hdr.blockSize, bps)
		if err != nil {
			return nil, 0, 0, 0, err
		}
		subframes[ch] = sf
	}

	br.Align()
	if _, err := br.ReadBits(16); err != nil { // frame CRC-16, unverified
		return nil, 0, 0, 0, err
	}

	left, right := reconstructStereo(hdr.channelAssign, subframes)

	out := make([]int32, hdr.blockSize*numSubframes)
	if numSubframes == 1 {
		copy(out, subframes[0])
	} else {
		for i := 0; i < hdr.blockSize; i++ {
			out[2*i] = left[i]
			out[2*i+1] = right[i]
		}
	}

	return out, numSubframes, hdr.bitsPerSample, hdr.blockSize, nil
}

func reconstructStereo(assign int, sub [][]int32) (left, right []int32) {
	if len(sub) != 2 {
		return sub[0], nil
	}
	n := len(sub[0])
	switch assign {
	case channelAssignLeftSide:
		left = sub[0]
		right = make([]int32, n)
		for i := range right {
			right[i] = left[i] - sub[1][i]
		}
	case channelAssignRightSide:
		right = sub[1]
		left = make([]int32, n)
		for i := range left {
			left[i] = right[i] + sub[0][i]
		}
	case channelAssignMidSide:
		left = make([]int32, n)
		right = make([]int32, n)
		for i := 0; i < n; i++ {
			mid := sub[0][i]
			side := sub[1][i]
			mid = (mid << 1) | (side & 1)
			left[i] = (mid + side) >> 1
			right[i] = (mid - side) >> 1
		}
	default:
		left = sub[0]
		right = sub[1]
	}
	return left, right
}
