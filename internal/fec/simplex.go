package fec

import (
	"math/bits"
)

// The (63, 6) Simplex code carries the frame-start marker. Codeword bit i is
// the inner product of the data word with i+1 over GF(2); decoding
// correlates the soft word against all 64 codewords and picks the maximum,
// which tolerates heavy corruption of individual bits.

// SimplexLen is the codeword length.
const SimplexLen = 63

// SimplexEncode writes the bipolar codeword for data (0..63) into out.
func SimplexEncode(out []int8, data int) {
	for i := 0; i < SimplexLen; i++ {
		if bits.OnesCount(uint(data&(i+1)))&1 != 0 {
			out[i] = -1
		} else {
			out[i] = 1
		}
	}
}

// SimplexDecode correlates the soft word against every codeword and returns
// the data value with the largest correlation.
func SimplexDecode(soft []int8) int {
	best, bestSum := 0, int32(-1<<31)
	for data := 0; data < 64; data++ {
		var sum int32
		for i := 0; i < SimplexLen; i++ {
			if bits.OnesCount(uint(data&(i+1)))&1 != 0 {
				sum -= int32(soft[i])
			} else {
				sum += int32(soft[i])
			}
		}
		if sum > bestSum {
			best, bestSum = data, sum
		}
	}
	return best
}
