package ribbit

import (
	"fmt"
	"math"

	"github.com/ribbitlabs/ribbit/internal/buffer"
	"github.com/ribbitlabs/ribbit/internal/dsp"
	"github.com/ribbitlabs/ribbit/internal/fec"
	"github.com/ribbitlabs/ribbit/internal/polar"
)

// Decoder recovers payloads from a stream of mono audio samples. Feed
// accepts arbitrary chunks of at most ExtendedLength samples; once it
// reports true the demodulated frame is ready and Fetch runs the polar
// list decode.
//
// Internally every sample is DC-filtered, converted to its analytic form,
// shifted so the active band is centred on DC, and pushed through a ring
// monitored by the Schmidl-Cox correlator. Correlator hits latch into a
// stored slot; at each symbol boundary the stored hit is promoted to a
// staged slot and the preamble gate decides whether a frame starts.
type Decoder struct {
	fft         *dsp.FFT
	correlator  *correlator
	blockDC     *dsp.BlockDC
	hilbert     *dsp.Hilbert
	baseband    *dsp.Phasor
	osc         *dsp.Phasor
	ring        *buffer.Ring
	interleaver *fec.Interleaver
	polarDec    *polar.Decoder

	temp []complex128
	freq []complex128
	prev [SubcarrierCount]complex128
	cons [SubcarrierCount]complex128
	soft [codeLen]int8
	code [codeLen]int8
	meta [metaLen]int8

	symbolNumber   int
	symbolPosition int
	stored         syncEvent
	staged         syncEvent
	accumulated    int

	// buf is an owned snapshot of the ring taken at each symbol boundary,
	// so later pushes cannot alias the window being demodulated.
	buf []complex128

	syncCFO float64
	syncOK  bool
}

// NewDecoder creates an idle decoder.
func NewDecoder() *Decoder {
	fft := dsp.NewFFT(SymbolLength)
	d := &Decoder{
		fft:            fft,
		correlator:     newCorrelator(fft),
		blockDC:        dsp.NewBlockDC(filterLength),
		hilbert:        dsp.NewHilbert(filterLength),
		baseband:       dsp.NewPhasor(),
		osc:            dsp.NewPhasor(),
		ring:           buffer.NewRing(bufferLength),
		interleaver:    fec.NewInterleaver(codeLen),
		polarDec:       polar.NewDecoder(),
		temp:           make([]complex128, ExtendedLength),
		freq:           make([]complex128, SymbolLength),
		buf:            make([]complex128, bufferLength),
		symbolNumber:   PayloadSymbols,
		symbolPosition: searchPosition,
	}
	// Fixed shift from the transmit band to the centred receive band.
	d.baseband.Omega(-2 * math.Pi * bandOffsetBin / SymbolLength)
	return d
}

// Feed pushes up to ExtendedLength samples into the decoder. It returns
// true when a full frame has been demodulated and Fetch should be called.
func (d *Decoder) Feed(samples []float32) (bool, error) {
	if len(samples) > ExtendedLength {
		return false, fmt.Errorf("ribbit: feed accepts at most %d samples, got %d", ExtendedLength, len(samples))
	}
	for _, s := range samples {
		z := d.hilbert.Filter(d.blockDC.Filter(float64(s))) * d.baseband.Next()
		win := d.ring.Push(z)
		if ev, ok := d.correlator.process(win); ok {
			// Rebase from the fire-time window onto the snapshot the event
			// will be consumed against. Last writer wins within a window.
			ev.symbolPos += d.accumulated + 1 - ExtendedLength
			if ev.symbolPos >= 0 && ev.symbolPos <= bufferLength-2*ExtendedLength {
				d.stored = ev
			}
		}
		d.accumulated++
		if d.accumulated == ExtendedLength {
			copy(d.buf, win)
		}
	}
	if d.accumulated >= ExtendedLength {
		d.accumulated -= ExtendedLength
		if d.stored.valid {
			d.staged = d.stored
			d.stored.valid = false
		}
		return d.process(), nil
	}
	return false, nil
}

// Fetch deinterleaves the demodulated soft bits, runs the CRC-aided polar
// list decode and descrambles the accepted candidate into payload. The
// result is the number of hard-decision flips (a channel quality proxy),
// or -1 when no list candidate passes the CRC.
func (d *Decoder) Fetch(payload []byte) int {
	if len(payload) != PayloadBytes {
		return -1
	}
	d.interleaver.Reverse(d.code[:], d.soft[:])
	result := d.polarDec.Decode(payload, d.code[:])
	if result < 0 {
		return -1
	}
	scrambler := fec.NewXorshift32()
	for i := range payload {
		payload[i] ^= scrambler.NextByte()
	}
	return result
}

// SyncCFO reports the carrier offset of the last accepted preamble in
// radians per sample.
func (d *Decoder) SyncCFO() (float64, bool) {
	return d.syncCFO, d.syncOK
}

// process runs once per symbol boundary: first the preamble gate on a
// freshly staged sync event, then one payload symbol of an in-flight frame.
func (d *Decoder) process() bool {
	if d.staged.valid {
		d.staged.valid = false
		if d.preamble() == 1 {
			d.osc.Omega(-d.staged.cfoRad)
			d.symbolPosition = d.staged.symbolPos
			d.symbolNumber = -1
			d.syncCFO = d.staged.cfoRad
			d.syncOK = true
			return false
		}
	}
	fetchPayload := false
	if d.symbolNumber < PayloadSymbols {
		for i := 0; i < ExtendedLength; i++ {
			d.temp[i] = d.buf[d.symbolPosition+i] * d.osc.Next()
		}
		d.fft.Forward(d.freq, d.temp[:SymbolLength])
		if d.symbolNumber >= 0 {
			for i := 0; i < SubcarrierCount; i++ {
				d.cons[i] = demodOrErase(d.freq[rxBin(i)], d.prev[i])
			}
			d.demap()
		}
		d.symbolNumber++
		if d.symbolNumber == PayloadSymbols {
			fetchPayload = true
		}
		for i := 0; i < SubcarrierCount; i++ {
			d.prev[i] = d.freq[rxBin(i)]
		}
	}
	return fetchPayload
}

// preamble demodulates the symbol after the staged sync position and
// decodes the Simplex frame marker.
func (d *Decoder) preamble() int {
	nco := dsp.NewPhasor()
	nco.Omega(-d.staged.cfoRad)
	base := d.staged.symbolPos + ExtendedLength
	for i := 0; i < SymbolLength; i++ {
		d.temp[i] = d.buf[base+i] * nco.Next()
	}
	d.fft.Forward(d.freq, d.temp[:SymbolLength])
	for i := 0; i < metaLen; i++ {
		cons := demodOrErase(d.freq[rxBin(i+1)], d.freq[rxBin(i)])
		dsp.BPSKSoft(&d.meta[i], cons, 8)
	}
	seq := fec.NewMLS(mlsMetaPoly)
	for i := 0; i < metaLen; i++ {
		d.meta[i] *= int8(nrz(seq.Next()))
	}
	return fec.SimplexDecode(d.meta[:])
}

// demap estimates the symbol's signal-to-noise precision from the hard
// decision residuals and writes scaled soft bits into the code buffer.
func (d *Decoder) demap() {
	var sp, np float64
	for i := 0; i < SubcarrierCount; i++ {
		h0, h1 := dsp.QPSKHard(d.cons[i])
		hard := dsp.QPSKMap(h0, h1)
		err := d.cons[i] - hard
		sp += norm(hard)
		np += norm(err)
	}
	precision := sp / np
	for i := 0; i < SubcarrierCount; i++ {
		k := 2 * (SubcarrierCount*d.symbolNumber + i)
		dsp.QPSKSoft(d.soft[k:k+2], d.cons[i], precision)
	}
}

// demodOrErase recovers the differential constellation point, erasing
// bins whose reference is missing or whose ratio is implausibly large.
func demodOrErase(curr, prev complex128) complex128 {
	if norm(prev) <= 0 {
		return 0
	}
	c := curr / prev
	if norm(c) > 4 {
		return 0
	}
	return c
}
