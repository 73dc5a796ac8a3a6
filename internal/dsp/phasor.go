package dsp

import (
	"math/cmplx"
)

// Phasor is a numerically stable complex oscillator producing exp(j*w*n).
// The magnitude is renormalised on every step so long runs do not drift.
type Phasor struct {
	value complex128
	delta complex128
}

// NewPhasor returns an oscillator at zero frequency and phase.
func NewPhasor() *Phasor {
	return &Phasor{value: 1, delta: 1}
}

// Omega sets the frequency in radians per sample and resets the phase.
func (p *Phasor) Omega(w float64) {
	p.value = 1
	p.delta = cmplx.Exp(complex(0, w))
}

// Next returns the current phasor value and advances one sample.
func (p *Phasor) Next() complex128 {
	v := p.value
	p.value *= p.delta
	if a := cmplx.Abs(p.value); a > 0 {
		p.value = complex(real(p.value)/a, imag(p.value)/a)
	}
	return v
}
