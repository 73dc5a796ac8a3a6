// Package ribbit implements the physical layer of the Ribbit acoustic data
// modem: a coupled OFDM encoder and decoder that turn a 256-byte payload
// into a mono float audio waveform and back, surviving carrier frequency
// offset, timing uncertainty and channel noise.
//
// The package is a pure library. It owns no goroutines, performs no I/O and
// reports every failure as a numeric return value. Audio capture, playback
// and transport live in cmd/ and internal/audio.
package ribbit

// Modem parameters. Transmitter and receiver must agree on all of them;
// changing any value breaks compatibility with existing transmissions.
const (
	// SymbolLength is the number of samples per OFDM symbol after the IFFT.
	SymbolLength = 256

	// GuardLength samples precede each symbol. The first half of the guard
	// is crossfaded against the previous symbol with a half-cosine window.
	GuardLength = SymbolLength / 8

	// ExtendedLength is one symbol including its guard.
	ExtendedLength = SymbolLength + GuardLength

	// SubcarrierCount is the number of active subcarriers per symbol.
	SubcarrierCount = 64

	// firstSubcarrierTx is the lowest active DFT bin at the transmitter.
	firstSubcarrierTx = 16

	// firstSubcarrierRx centres the active band on DC in the receiver's
	// analytic baseband domain.
	firstSubcarrierRx = -SubcarrierCount / 2

	// PayloadSymbols is the number of QPSK payload symbols per frame.
	PayloadSymbols = 32

	// NoiseSymbols is the number of shaped-noise symbols leading a frame.
	NoiseSymbols = 14

	// PayloadBytes is the fixed payload size.
	PayloadBytes = 256

	// metaLen is the length of the Simplex-encoded frame marker.
	metaLen = 63

	// filterLength is the tap count of the Hilbert and block-DC filters.
	filterLength = 33

	// bufferLength is the capacity of the receiver ring.
	bufferLength = 5 * ExtendedLength

	// searchPosition is where a correlator hit lands inside the ring.
	searchPosition = 2 * ExtendedLength

	// codeLen is the polar code length, 2^12.
	codeLen = 4096

	// dataBits is the number of information bits in a payload.
	dataBits = 8 * PayloadBytes
)

// MLS polynomials and the band offset between transmitter and receiver.
const (
	mlsPilotPoly  = 0x67  // Schmidl-Cox reference and preamble carriers
	mlsMetaPoly   = 0x43  // preamble data randomiser
	mlsNoisePoly  = 0x951 // noise symbol filler
	bandOffsetBin = firstSubcarrierTx - firstSubcarrierRx
)

// rxBin maps subcarrier k to its DFT bin in the centred receive band.
func rxBin(carrier int) int {
	return (carrier + firstSubcarrierRx + SymbolLength) % SymbolLength
}

func nrz(bit bool) int {
	if bit {
		return -1
	}
	return 1
}
