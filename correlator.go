package ribbit

import (
	"math"
	"math/cmplx"

	"github.com/ribbitlabs/ribbit/internal/dsp"
	"github.com/ribbitlabs/ribbit/internal/fec"
)

// syncEvent is one correlator hit: the residual carrier offset in radians
// per sample and the start of the second Schmidl-Cox symbol inside the ring
// window it was detected in.
type syncEvent struct {
	cfoRad    float64
	symbolPos int
	valid     bool
}

const (
	matchLen = GuardLength | 1
	matchDel = (matchLen - 1) / 2

	// Detection hysteresis on the smoothed timing metric, and the age cap
	// after which a tracked peak is abandoned.
	riseThreshold = 19.0 / 32
	fallThreshold = 17.0 / 32
	maxPeakAge    = ExtendedLength / 2

	// Spectral gate: the differential correlation peak must carry at least
	// this share of the band's differential energy.
	peakGate = 0.5

	// Integer CFO search span in bins, either side of the centred band.
	cfoSearchSpan = SubcarrierCount
)

// correlator is a streaming Schmidl-Cox detector. Each pushed sample
// updates a delay correlation at a fixed look-back inside the ring window;
// a hysteresis trigger tracks the metric peak and, on the falling edge,
// a frequency-domain pass against the known pilot sequence verifies the
// hit, resolves the integer carrier offset and refines symbol timing.
type correlator struct {
	fft *dsp.FFT
	seq [metaLen + 1]float64 // differential pilot values, index 1..63

	cor   *slidingCmplx
	pwr   *slidingReal
	match *slidingReal
	phase *delayLine

	tracking  bool
	peakVal   float64
	peakPhase float64
	age       int

	tmp  []complex128
	spec []complex128
	diff []complex128
}

func newCorrelator(fft *dsp.FFT) *correlator {
	c := &correlator{
		fft:   fft,
		cor:   newSlidingCmplx(SymbolLength),
		pwr:   newSlidingReal(SymbolLength),
		match: newSlidingReal(matchLen),
		phase: newDelayLine(matchDel),
		tmp:   make([]complex128, SymbolLength),
		spec:  make([]complex128, SymbolLength),
		diff:  make([]complex128, SymbolLength),
	}
	seq := fec.NewMLS(mlsPilotPoly)
	for i := 1; i <= metaLen; i++ {
		c.seq[i] = float64(nrz(seq.Next()))
	}
	return c
}

// process consumes the ring window after one push and reports a sync event
// when a preamble pair has been confirmed.
func (c *correlator) process(win []complex128) (syncEvent, bool) {
	a := win[searchPosition]
	b := win[searchPosition+SymbolLength]

	// Both the lag correlation and the reference power are sums over one
	// symbol, so the normalised metric tops out near one.
	p := c.cor.push(cmplx.Conj(a) * b)
	r := c.pwr.push(norm(b))
	if min := 1e-4 * SymbolLength; r < min {
		r = min
	}
	timing := c.match.push(norm(p)/(r*r)) / matchLen
	phase := c.phase.push(cmplx.Phase(p))

	if !c.tracking {
		if timing > riseThreshold {
			c.tracking = true
			c.peakVal = timing
			c.peakPhase = phase
			c.age = matchDel
		}
		return syncEvent{}, false
	}

	if timing > c.peakVal {
		c.peakVal = timing
		c.peakPhase = phase
		c.age = matchDel
	} else {
		c.age++
	}
	if timing < fallThreshold {
		c.tracking = false
		return c.confirm(win)
	}
	if c.age > maxPeakAge {
		c.tracking = false
	}
	return syncEvent{}, false
}

// confirm runs the frequency-domain stage at the tracked peak position.
func (c *correlator) confirm(win []complex128) (syncEvent, bool) {
	fracCFO := c.peakPhase / SymbolLength

	// Start of the second pilot symbol at the peak, slid by the age of the
	// peak within the current window.
	pos := searchPosition + 1 - c.age
	if pos < 0 || pos+SymbolLength > len(win) {
		return syncEvent{}, false
	}

	nco := dsp.NewPhasor()
	nco.Omega(-fracCFO)
	for i := 0; i < SymbolLength; i++ {
		c.tmp[i] = win[pos+i] * nco.Next()
	}
	c.fft.Forward(c.spec, c.tmp)
	for k := 0; k < SymbolLength; k++ {
		c.diff[k] = c.spec[k] * cmplx.Conj(c.spec[(k-1+SymbolLength)%SymbolLength])
	}

	// Cross-correlate the differential spectrum against the pilot sequence
	// over candidate integer bin offsets.
	var best complex128
	bestShift := 0
	bestMag := 0.0
	for s := -cfoSearchSpan; s < cfoSearchSpan; s++ {
		var sum complex128
		for i := 1; i <= metaLen; i++ {
			k := (rxBin(i) + s + SymbolLength) % SymbolLength
			sum += c.diff[k] * complex(c.seq[i], 0)
		}
		if m := norm(sum); m > bestMag {
			bestMag = m
			best = sum
			bestShift = s
		}
	}

	var energy float64
	for i := 1; i <= metaLen; i++ {
		k := (rxBin(i) + bestShift + SymbolLength) % SymbolLength
		energy += cmplx.Abs(c.diff[k])
	}
	if cmplx.Abs(best) < peakGate*energy {
		return syncEvent{}, false
	}

	// The correlation phase is the fractional-sample timing offset of the
	// analysed block relative to the true symbol start.
	tau := int(math.Round(cmplx.Phase(best) * SymbolLength / (2 * math.Pi)))
	if tau > GuardLength {
		tau = GuardLength
	} else if tau < -GuardLength {
		tau = -GuardLength
	}

	ev := syncEvent{
		cfoRad:    fracCFO + 2*math.Pi*float64(bestShift)/SymbolLength,
		symbolPos: pos - tau,
		valid:     true,
	}
	return ev, true
}

func norm(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}

// slidingReal is a fixed-length sliding sum over float64 values.
type slidingReal struct {
	hist []float64
	sum  float64
	pos  int
}

func newSlidingReal(length int) *slidingReal {
	return &slidingReal{hist: make([]float64, length)}
}

func (s *slidingReal) push(x float64) float64 {
	s.sum += x - s.hist[s.pos]
	s.hist[s.pos] = x
	s.pos++
	if s.pos == len(s.hist) {
		s.pos = 0
	}
	return s.sum
}

// slidingCmplx is a fixed-length sliding sum over complex values.
type slidingCmplx struct {
	hist []complex128
	sum  complex128
	pos  int
}

func newSlidingCmplx(length int) *slidingCmplx {
	return &slidingCmplx{hist: make([]complex128, length)}
}

func (s *slidingCmplx) push(z complex128) complex128 {
	s.sum += z - s.hist[s.pos]
	s.hist[s.pos] = z
	s.pos++
	if s.pos == len(s.hist) {
		s.pos = 0
	}
	return s.sum
}

// delayLine delays a real value by a fixed number of pushes.
type delayLine struct {
	hist []float64
	pos  int
}

func newDelayLine(depth int) *delayLine {
	return &delayLine{hist: make([]float64, depth)}
}

func (d *delayLine) push(x float64) float64 {
	out := d.hist[d.pos]
	d.hist[d.pos] = x
	d.pos++
	if d.pos == len(d.hist) {
		d.pos = 0
	}
	return out
}
