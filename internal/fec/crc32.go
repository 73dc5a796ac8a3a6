// Package fec holds the outer coding primitives of the modem: the framing
// CRC, the maximum-length and Xorshift sequences, the payload interleaver
// and the Simplex metadata code.
package fec

import (
	"hash/crc32"
)

// The frame CRC is a plain reflected LFSR over the polynomial below, with a
// zero initial state and no output inversion. hash/crc32 implements the same
// LFSR behind its table lookups but fixes init and xorout to ^0; both are
// removed algebraically so the raw register value is exposed. Appending the
// register LSB-first to the message drives it back to zero, which is the
// check the polar list decoder relies on.
const crcPoly = 0x8F6E37A0

var crcTable = crc32.MakeTable(crcPoly)

// CRC32 is the raw register after feeding data into the zero-initialised LFSR.
func CRC32(data []byte) uint32 {
	return CRC32Update(0, data)
}

// CRC32Update continues a raw CRC over more data.
func CRC32Update(crc uint32, data []byte) uint32 {
	return ^crc32.Update(^crc, crcTable, data)
}
