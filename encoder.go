package ribbit

import (
	"fmt"
	"math"

	"github.com/ribbitlabs/ribbit/internal/buffer"
	"github.com/ribbitlabs/ribbit/internal/dsp"
	"github.com/ribbitlabs/ribbit/internal/fec"
	"github.com/ribbitlabs/ribbit/internal/polar"
)

// Encoder turns one 256-byte payload into a baseband audio waveform. After
// Init, successive Read calls drain the frame into caller-sized buffers:
//
//	14 noise symbols, the Schmidl-Cox pair, the preamble, 32 payload
//	symbols, one silence symbol.
//
// Symbols are produced lazily so no more than three extended symbols of
// audio are ever queued.
type Encoder struct {
	fft         *dsp.FFT
	deque       *buffer.Deque
	noiseSeq    *fec.MLS
	interleaver *fec.Interleaver
	polarEnc    *polar.Encoder

	freq  []complex128
	temp  []complex128
	guard [GuardLength]float64
	mesg  [PayloadBytes]byte
	code  [codeLen]int8
	sent  [codeLen]int8

	symbolNumber int
	countDown    int
	noiseCount   int
}

// NewEncoder creates an idle encoder.
func NewEncoder() *Encoder {
	return &Encoder{
		fft:          dsp.NewFFT(SymbolLength),
		deque:        buffer.NewDeque(3 * ExtendedLength),
		noiseSeq:     fec.NewMLS(mlsNoisePoly),
		interleaver:  fec.NewInterleaver(codeLen),
		polarEnc:     polar.NewEncoder(),
		freq:         make([]complex128, SymbolLength),
		temp:         make([]complex128, SymbolLength),
		symbolNumber: PayloadSymbols,
	}
}

// Init arms the encoder with a payload: the payload is scrambled, polar
// encoded and interleaved, and the producer state machine is reset. Any
// audio still queued from a previous frame is discarded.
func (e *Encoder) Init(payload []byte) error {
	if len(payload) != PayloadBytes {
		return fmt.Errorf("ribbit: payload must be %d bytes, got %d", PayloadBytes, len(payload))
	}
	e.symbolNumber = 0
	e.countDown = 5
	e.noiseCount = NoiseSymbols
	e.deque.Clear()
	for i := range e.guard {
		e.guard[i] = 0
	}
	for i := range e.freq {
		e.freq[i] = 0
	}

	scrambler := fec.NewXorshift32()
	for i := range e.mesg {
		e.mesg[i] = payload[i] ^ scrambler.NextByte()
	}
	e.polarEnc.Encode(e.code[:], e.mesg[:])
	e.interleaver.Forward(e.sent[:], e.code[:])
	return nil
}

// Read fills out with produced audio, emitting zeros once the frame is
// drained. It returns true when nothing remains queued after the call.
func (e *Encoder) Read(out []float32) bool {
	for i := range out {
		e.produce()
		if e.deque.Len() > 0 {
			out[i] = float32(e.deque.PopBack())
		} else {
			out[i] = 0
		}
	}
	return e.deque.Len() == 0
}

// produce emits at most one frame phase step, gated on enough head-room
// for the longest emission (the two-symbol Schmidl-Cox pair).
func (e *Encoder) produce() bool {
	if e.deque.Len() > e.deque.Cap()-2*ExtendedLength {
		return false
	}
	switch e.countDown {
	case 5:
		if e.noiseCount > 0 {
			e.noiseCount--
			e.noiseSymbol()
			break
		}
		e.countDown--
		fallthrough
	case 4:
		e.schmidlCox()
		e.countDown--
	case 3:
		e.preamble(1)
		e.countDown--
	case 2:
		e.payloadSymbol()
		e.symbolNumber++
		if e.symbolNumber == PayloadSymbols {
			e.countDown--
		}
	case 1:
		e.silence()
		e.countDown--
	default:
		return false
	}
	return true
}

// noiseSymbol fills the active band with bipolar noise from the free
// running noise sequence.
func (e *Encoder) noiseSymbol() {
	factor := math.Sqrt(float64(SymbolLength) / SubcarrierCount)
	for i := 0; i < SubcarrierCount; i++ {
		e.freq[firstSubcarrierTx+i] = complex(
			factor*float64(nrz(e.noiseSeq.Next())),
			factor*float64(nrz(e.noiseSeq.Next())))
	}
	e.symbol(true)
}

// schmidlCox emits the synchronisation pair: a differentially modulated
// pilot symbol, sent twice back to back. The second copy carries no guard
// so the two halves are contiguous for the delay correlator.
func (e *Encoder) schmidlCox() {
	seq := fec.NewMLS(mlsPilotPoly)
	e.freq[firstSubcarrierTx] = complex(math.Sqrt(float64(2*SymbolLength)/SubcarrierCount), 0)
	for i := firstSubcarrierTx + 1; i < firstSubcarrierTx+SubcarrierCount; i++ {
		e.freq[i] = e.freq[i-1] * complex(float64(nrz(seq.Next())), 0)
	}
	e.symbol(true)
	e.symbol(false)
}

// preamble emits the Simplex-encoded frame marker, differentially BPSK
// modulated across the band and whitened with its own sequence.
func (e *Encoder) preamble(data int) {
	var meta [metaLen]int8
	fec.SimplexEncode(meta[:], data)
	seq := fec.NewMLS(mlsMetaPoly)
	e.freq[firstSubcarrierTx] = complex(math.Sqrt(float64(SymbolLength)/SubcarrierCount), 0)
	for i := 0; i < metaLen; i++ {
		e.freq[firstSubcarrierTx+1+i] = e.freq[firstSubcarrierTx+i] *
			complex(float64(meta[i])*float64(nrz(seq.Next())), 0)
	}
	e.symbol(true)
}

// payloadSymbol rotates each active subcarrier by the QPSK mapping of the
// next two interleaved code bits. The spectrum accumulates from symbol to
// symbol, which is what makes the modulation differential.
func (e *Encoder) payloadSymbol() {
	for i := 0; i < SubcarrierCount; i++ {
		k := 2 * (SubcarrierCount*e.symbolNumber + i)
		e.freq[firstSubcarrierTx+i] *= dsp.QPSKMap(e.sent[k], e.sent[k+1])
	}
	e.symbol(true)
}

func (e *Encoder) silence() {
	for i := range e.freq {
		e.freq[i] = 0
	}
	e.symbol(true)
}

// symbol transforms the spectrum to time domain and queues it, preceded by
// a guard whose first half crossfades the previous symbol's continuation
// into this symbol's cyclic prefix through a half-cosine window.
func (e *Encoder) symbol(outputGuard bool) {
	e.fft.Inverse(e.temp, e.freq)
	scale := complex(1/math.Sqrt(8*SymbolLength), 0)
	for i := range e.temp {
		e.temp[i] *= scale
	}
	if outputGuard {
		for i := 0; i < GuardLength; i++ {
			x := float64(i) / (GuardLength - 1)
			if x > 0.5 {
				x = 0.5
			}
			x /= 0.5
			y := 0.5 * (1 - math.Cos(math.Pi*x))
			tail := real(e.temp[SymbolLength-GuardLength+i])
			e.deque.PushFront(e.guard[i] + (tail-e.guard[i])*y)
		}
	}
	for i := 0; i < GuardLength; i++ {
		e.guard[i] = real(e.temp[i])
	}
	for i := 0; i < SymbolLength; i++ {
		e.deque.PushFront(real(e.temp[i]))
	}
}
