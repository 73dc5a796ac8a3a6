package polar

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/ribbitlabs/ribbit/internal/fec"
)

// DefaultListSize picks the decoder list width from the host SIMD width:
// 32 lanes on AVX2-class machines, 16 elsewhere. Correctness does not
// depend on the width, only the residual error rate does.
func DefaultListSize() int {
	if cpuid.CPU.Supports(cpuid.AVX2) {
		return 32
	}
	return 16
}

// Encoder produces the systematic codeword for one scrambled message.
type Encoder struct {
	bits [CodeLen]uint8
}

// NewEncoder returns a systematic encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode writes CodeLen NRZ code values for the 256 scrambled message
// bytes: the message bits and their CRC-32 land on the information
// positions, frozen positions carry the parity structure.
func (e *Encoder) Encode(code []int8, message []byte) {
	bits := e.bits[:]
	for i := range bits {
		bits[i] = 0
	}
	for i := 0; i < DataBits; i++ {
		bits[infoPos[i]] = message[i>>3] >> (i & 7) & 1
	}
	crc := fec.CRC32(message[:DataBits/8])
	for i := 0; i < crcBits; i++ {
		bits[infoPos[DataBits+i]] = uint8(crc >> i & 1)
	}

	// Systematic double transform: map to the u domain, clear the frozen
	// coordinates there, and transform back. The information positions of
	// the result reproduce the message exactly.
	polarTransform(bits)
	for i := 0; i < CodeLen; i++ {
		if frozen[i] {
			bits[i] = 0
		}
	}
	polarTransform(bits)

	for i := 0; i < CodeLen; i++ {
		if bits[i] != 0 {
			code[i] = -1
		} else {
			code[i] = 1
		}
	}
}

// Decoder recovers a message from soft code values.
type Decoder struct {
	list   *listDecoder
	packed [mesgBits / 8]byte
}

// NewDecoder returns a list decoder of the default width.
func NewDecoder() *Decoder {
	return NewDecoderWidth(DefaultListSize())
}

// NewDecoderWidth returns a list decoder with an explicit list width.
func NewDecoderWidth(width int) *Decoder {
	return &Decoder{list: newListDecoder(Order, width)}
}

// Decode runs a CRC-aided list decode over the soft values in code and
// writes the 256 recovered (still scrambled) message bytes. The return
// value counts the 2048 data positions where the hard-sliced input
// disagrees with the accepted codeword, or is -1 when no list candidate
// passes the CRC.
func (d *Decoder) Decode(message []byte, code []int8) int {
	order := d.list.decode(code)
	for _, path := range order {
		cw := d.list.codeword(path)

		packed := d.packed[:]
		for i := range packed {
			packed[i] = 0
		}
		for i := 0; i < mesgBits; i++ {
			packed[i>>3] |= cw[infoPos[i]] << (i & 7)
		}
		if fec.CRC32(packed) != 0 {
			continue
		}

		flips := 0
		for i := 0; i < DataBits; i++ {
			j := infoPos[i]
			received := code[j] < 0
			decoded := cw[j] != 0
			if received != decoded {
				flips++
			}
			if decoded {
				message[i>>3] |= 1 << (i & 7)
			} else {
				message[i>>3] &^= 1 << (i & 7)
			}
		}
		return flips
	}
	return -1
}
