// Package dsp holds the signal-processing primitives shared by the modem:
// FFT, analytic-signal filtering, a numerically stable oscillator and the
// PSK soft mappers.
package dsp

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT wraps an unnormalised complex transform of fixed length.
//
// Forward and Inverse are both unnormalised: Inverse(Forward(x)) scales x by
// the transform length. The modem relies on this split — the encoder divides
// its IFFT output by sqrt(8*N) while the decoder FFT is left unscaled.
type FFT struct {
	fft *fourier.CmplxFFT
	n   int
}

// NewFFT creates a transform of length n. n must be a power of two.
func NewFFT(n int) *FFT {
	if n&(n-1) != 0 || n <= 0 {
		panic("dsp: FFT length must be a power of 2")
	}
	return &FFT{fft: fourier.NewCmplxFFT(n), n: n}
}

// Len returns the transform length.
func (f *FFT) Len() int { return f.n }

// Forward computes the DFT of src into dst.
func (f *FFT) Forward(dst, src []complex128) {
	f.fft.Coefficients(dst[:f.n], src[:f.n])
}

// Inverse computes the unnormalised inverse DFT of src into dst.
func (f *FFT) Inverse(dst, src []complex128) {
	f.fft.Sequence(dst[:f.n], src[:f.n])
}
