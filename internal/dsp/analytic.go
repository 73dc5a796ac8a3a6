package dsp

import (
	"math"
)

// BlockDC is a streaming DC remover: it subtracts the mean of the last N
// samples from the current sample. The first N-1 outputs are transient.
type BlockDC struct {
	hist []float64
	sum  float64
	pos  int
}

// NewBlockDC creates a DC remover averaging over length samples.
func NewBlockDC(length int) *BlockDC {
	return &BlockDC{hist: make([]float64, length)}
}

// Filter pushes one sample and returns it with the running mean removed.
func (b *BlockDC) Filter(x float64) float64 {
	b.sum += x - b.hist[b.pos]
	b.hist[b.pos] = x
	b.pos++
	if b.pos == len(b.hist) {
		b.pos = 0
	}
	return x - b.sum/float64(len(b.hist))
}

// Hilbert converts a real stream into its analytic signal using an odd
// length FIR phase splitter. The real output is the input delayed by
// (taps-1)/2 samples; the imaginary output is the 90 degree companion.
type Hilbert struct {
	taps  []float64
	hist  []float64
	pos   int
	delay int
}

// NewHilbert creates a phase splitter with the given odd tap count.
func NewHilbert(taps int) *Hilbert {
	if taps%2 == 0 {
		panic("dsp: Hilbert tap count must be odd")
	}
	h := &Hilbert{
		taps:  make([]float64, taps),
		hist:  make([]float64, taps),
		delay: (taps - 1) / 2,
	}
	// Ideal Hilbert response 2/(pi*m) at odd offsets, Blackman windowed.
	for i := range h.taps {
		m := i - h.delay
		if m&1 == 0 {
			continue
		}
		w := 0.42 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(taps-1)) +
			0.08*math.Cos(4*math.Pi*float64(i)/float64(taps-1))
		h.taps[i] = w * 2 / (math.Pi * float64(m))
	}
	return h
}

// Filter pushes one real sample and returns the analytic sample aligned to
// the filter's group delay.
func (h *Hilbert) Filter(x float64) complex128 {
	h.hist[h.pos] = x
	n := len(h.hist)
	var im float64
	// hist[pos] is x[n], hist[pos-k mod n] is x[n-k]
	idx := h.pos
	for k := 0; k < n; k++ {
		im += h.taps[k] * h.hist[idx]
		idx--
		if idx < 0 {
			idx = n - 1
		}
	}
	re := h.hist[(h.pos-h.delay+n)%n]
	h.pos++
	if h.pos == n {
		h.pos = 0
	}
	return complex(re, im)
}
