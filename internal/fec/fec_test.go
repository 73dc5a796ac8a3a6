package fec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCRC32_AppendResidueIsZero(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 300).Draw(t, "data")

		crc := CRC32(data)
		var tail [4]byte
		binary.LittleEndian.PutUint32(tail[:], crc)

		assert.Zero(t, CRC32Update(crc, tail[:]),
			"message plus its own register must drive the LFSR to zero")
	})
}

func TestCRC32_DetectsSingleBitError(t *testing.T) {
	data := make([]byte, 260)
	for i := range data {
		data[i] = byte(i * 7)
	}
	want := CRC32(data)
	data[130] ^= 0x10
	if CRC32(data) == want {
		t.Error("single bit flip left the CRC unchanged")
	}
}

func TestXorshift32_Deterministic(t *testing.T) {
	a, b := NewXorshift32(), NewXorshift32()
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}

func TestXorshift32_ByteStreamLooksWhitened(t *testing.T) {
	x := NewXorshift32()
	var counts [256]int
	n := 256 * 64
	for i := 0; i < n; i++ {
		counts[x.NextByte()]++
	}
	for v, c := range counts {
		if c == 0 {
			t.Fatalf("byte value %#x never produced in %d draws", v, n)
		}
	}
}

func TestMLS_PeriodAndBalance(t *testing.T) {
	for _, poly := range []uint32{0x67, 0x43} {
		m := NewMLS(poly)
		period := m.Period()
		require.Equal(t, 63, period)

		seq := make([]bool, period)
		ones := 0
		for i := range seq {
			seq[i] = m.Next()
			if seq[i] {
				ones++
			}
		}
		// Maximum-length property: one more one than zeros per period,
		// and the sequence repeats exactly.
		assert.Equal(t, 32, ones, "poly %#x", poly)
		for i := 0; i < period; i++ {
			assert.Equal(t, seq[i], m.Next(), "poly %#x repeat at %d", poly, i)
		}
	}
}

func TestInterleaver_Bijection(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.SampledFrom([]int{16, 256, 4096}).Draw(t, "size")
		il := NewInterleaver(size)

		src := make([]int8, size)
		for i := range src {
			src[i] = int8(i % 127)
		}
		mid := make([]int8, size)
		out := make([]int8, size)
		il.Forward(mid, src)
		il.Reverse(out, mid)

		assert.Equal(t, src, out)
	})
}

func TestInterleaver_ActuallyPermutes(t *testing.T) {
	il := NewInterleaver(4096)
	src := make([]int8, 4096)
	for i := range src {
		src[i] = int8(i % 127)
	}
	dst := make([]int8, 4096)
	il.Forward(dst, src)

	moved := 0
	for i := range src {
		if src[i] != dst[i] {
			moved++
		}
	}
	if moved < 4096/2 {
		t.Errorf("only %d of 4096 positions moved", moved)
	}
}

func TestSimplex_RoundTrip(t *testing.T) {
	var word [SimplexLen]int8
	for data := 0; data < 64; data++ {
		SimplexEncode(word[:], data)
		require.Equal(t, data, SimplexDecode(word[:]))
	}
}

func TestSimplex_SurvivesSignFlips(t *testing.T) {
	// Minimum distance 32: up to 15 hard flips always decode.
	var word [SimplexLen]int8
	SimplexEncode(word[:], 1)
	for i := 0; i < 15; i++ {
		word[(i*17)%SimplexLen] *= -1
	}
	assert.Equal(t, 1, SimplexDecode(word[:]))
}

func TestSimplex_RejectsOtherMarkers(t *testing.T) {
	var word [SimplexLen]int8
	SimplexEncode(word[:], 5)
	assert.NotEqual(t, 1, SimplexDecode(word[:]))
}
