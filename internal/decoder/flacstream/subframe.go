package flacstream

import "fmt"

const (
	subframeConstant = 0
	subframeVerbatim = 1
	subframeFixedBase = 0b001000
	subframeLPCBase   = 0b100000
)

// decodeSubframe decodes one channel's subframe into blockSize signed
// samples at bitsPerSample resolution (before any stereo
// decorrelation reconstruction).
func decodeSubframe(br *bitReader, blockSize int, bitsPerSample int) ([]int32, error) {
	if _, err := br.ReadBits(1); err != nil { // zero pad
		return nil, err
	}
	typeCode, err := br.ReadBits(6)
	if err != nil {
		return nil, err
	}

	wastedFlag, err := br.ReadBits(1)
	if err != nil {
		return nil, err
	}
	wasted := 0
	if wastedFlag == 1 {
		u, err := br.ReadUnary()
		if err != nil {
			return nil, err
		}
		wasted = int(u) + 1
	}
	effectiveBits := bitsPerSample - wasted

	var out []int32
	switch {
	case typeCode == subframeConstant:
		out, err = decodeConstant(br, blockSize, effectiveBits)
	case typeCode == subframeVerbatim:
		out, err = decodeVerbatim(br, blockSize, effectiveBits)
	case typeCode&0b111000 == subframeFixedBase:
		order := int(typeCode & 0b111)
		out, err = decodeFixed(br, blockSize, effectiveBits, order)
	case typeCode&0b100000 == subframeLPCBase:
		order := int(typeCode&0b011111) + 1
		out, err = decodeLPC(br, blockSize, effectiveBits, order)
	default:
		return nil, fmt.Errorf("flac: reserved subframe type %#x", typeCode)
	}
	if err != nil {
		return nil, err
	}

	if wasted > 0 {
		for i := range out {
			out[i] <<= uint(wasted)
		}
	}
	return out, nil
}

func decodeConstant(br *bitReader, blockSize int, bits int) ([]int32, error) {
	v, err := br.ReadBitsSigned(uint(bits))
	if err != nil {
		return nil, err
	}
	out := make([]int32, blockSize)
	for i := range out {
		out[i] = int32(v)
	}
	return out, nil
}

func decodeVerbatim(br *bitReader, blockSize int, bits int) ([]int32, error) {
	out := make([]int32, blockSize)
	for i := range out {
		v, err := br.ReadBitsSigned(uint(bits))
		if err != nil {
			return nil, err
		}
		out[i] = int32(v)
	}
	return out, nil
}

var fixedCoeffs = [][]int64{
	{},
	{1},
	{2, -1},
	{3, -3, 1},
	{4, -6, 4, -1},
}

func decodeFixed(br *bitReader, blockSize, bits, order int) ([]int32, error) {
	if order > 4 {
		return nil, fmt.Errorf("flac: invalid fixed predictor order %d", order)
	}
	out := make([]int32, blockSize)
	for i := 0; i < order; i++ {
		v, err := br.ReadBitsSigned(uint(bits))
		if err != nil {
			return nil, err
		}
		out[i] = int32(v)
	}

	residual, err := decodeResidual(br, blockSize, order)
	if err != nil {
		return nil, err
	}

	coeffs := fixedCoeffs[order]
	for i := order; i < blockSize; i++ {
		var pred int64
		for j, c := range coeffs {
			pred += c * int64(out[i-1-j])
		}
		out[i] = int32(pred) + residual[i-order]
	}
	return out, nil
}

func decodeLPC(br *bitReader, blockSize, bits, order int) ([]int32, error) {
	if order < 1 || order > 32 {
		return nil, fmt.Errorf("flac: invalid LPC order %d", order)
	}
	out := make([]int32, blockSize)
	for i := 0; i < order; i++ {
		v, err := br.ReadBitsSigned(uint(bits))
		if err != nil {
			return nil, err
		}
		out[i] = int32(v)
	}

	precisionCode, err := br.ReadBits(4)
	if err != nil {
		return nil, err
	}
	if precisionCode == 0xF {
		return nil, fmt.Errorf("flac: invalid QLP precision code")
	}
	precision := int(precisionCode) + 1

	shiftRaw, err := br.ReadBitsSigned(5)
	if err != nil {
		return nil, err
	}
	shift := int(shiftRaw)
	if shift < 0 {
		// Negative shift is a reserved/encoder-only case in the
		// reference decoder's practice; treat as zero rather than
		// reject playback outright.
		shift = 0
	}

	coeffs := make([]int64, order)
	for i := range coeffs {
		v, err := br.ReadBitsSigned(uint(precision))
		if err != nil {
			return nil, err
		}
		coeffs[i] = v
	}

	residual, err := decodeResidual(br, blockSize, order)
	if err != nil {
		return nil, err
	}

	for i := order; i < blockSize; i++ {
		var pred int64
		for j, c := range coeffs {
			pred += c * int64(out[i-1-j])
		}
		out[i] = int32(pred>>uint(shift)) + residual[i-order]
	}
	return out, nil
}

// decodeResidual decodes the rice-coded (or raw, via escape code)
// residual for a FIXED/LPC subframe covering blockSize-predictorOrder
// samples, split across 2^partitionOrder equal partitions.
func decodeResidual(br *bitReader, blockSize, predictorOrder int) ([]int32, error) {
	method, err := br.ReadBits(2)
	if err != nil {
		return nil, err
	}
	if method > 1 {
		return nil, fmt.Errorf("flac: reserved residual coding method %d", method)
	}
	paramBits := uint(4)
	escape := uint64(0xF)
	if method == 1 {
		paramBits = 5
		escape = 0x1F
	}

	partitionOrderRaw, err := br.ReadBits(4)
	if err != nil {
		return nil, err
	}
	partitionOrder := int(partitionOrderRaw)
	numPartitions := 1 << partitionOrder

	if blockSize%numPartitions != 0 {
		return nil, fmt.Errorf("flac: block size %d not divisible by %d partitions", blockSize, numPartitions)
	}
	samplesPerPartition := blockSize / numPartitions

	out := make([]int32, blockSize-predictorOrder)
	pos := 0
	for p := 0; p < numPartitions; p++ {
		n := samplesPerPartition
		if p == 0 {
			n -= predictorOrder
		}

		param, err := br.ReadBits(paramBits)
		if err != nil {
			return nil, err
		}

		if param == escape {
			rawBitsVal, err := br.ReadBits(5)
			if err != nil {
				return nil, err
			}
			rawBits := uint(rawBitsVal)
			for i := 0; i < n; i++ {
				v, err := br.ReadBitsSigned(rawBits)
				if err != nil {
					return nil, err
				}
				out[pos] = int32(v)
				pos++
			}
			continue
		}

		for i := 0; i < n; i++ {
			q, err := br.ReadUnary()
			if err != nil {
				return nil, err
			}
			r, err := br.ReadBits(uint(param))
			if err != nil {
				return nil, err
			}
			raw := uint64(q)<<param | r
			out[pos] = zigzagDecode(raw)
			pos++
		}
	}
	return out, nil
}

func zigzagDecode(u uint64) int32 {
	if u&1 != 0 {
		return int32(-(int64(u>>1) + 1))
	}
	return int32(u >> 1)
}
