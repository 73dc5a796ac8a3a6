package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestFFT_InverseRoundTrip(t *testing.T) {
	// Inverse(Forward(x)) scales by N: the modem depends on this split.
	n := 256
	f := NewFFT(n)
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(math.Sin(2*math.Pi*3*float64(i)/float64(n)), float64(i)/float64(n))
	}

	y := make([]complex128, n)
	z := make([]complex128, n)
	f.Forward(y, x)
	f.Inverse(z, y)

	for i := range x {
		want := x[i] * complex(float64(n), 0)
		if cmplx.Abs(z[i]-want) > 1e-9 {
			t.Fatalf("Inverse(Forward(x))[%d] = %v, want %v", i, z[i], want)
		}
	}
}

func TestFFT_SingleBin(t *testing.T) {
	// A lone bin k produces exp(+j*2*pi*k*n/N) under the inverse transform.
	n := 256
	k := 16
	f := NewFFT(n)
	freq := make([]complex128, n)
	freq[k] = 1
	td := make([]complex128, n)
	f.Inverse(td, freq)

	for i := 0; i < n; i++ {
		want := cmplx.Exp(complex(0, 2*math.Pi*float64(k)*float64(i)/float64(n)))
		if cmplx.Abs(td[i]-want) > 1e-9 {
			t.Fatalf("Inverse bin %d sample %d = %v, want %v", k, i, td[i], want)
		}
	}
}

func TestFFT_Parseval(t *testing.T) {
	n := 256
	f := NewFFT(n)
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(math.Sin(2*math.Pi*float64(i)/float64(n)), 0)
	}

	y := make([]complex128, n)
	f.Forward(y, x)

	var sumX, sumY float64
	for i := range x {
		sumX += real(x[i])*real(x[i]) + imag(x[i])*imag(x[i])
		sumY += real(y[i])*real(y[i]) + imag(y[i])*imag(y[i])
	}
	sumY /= float64(n)

	if math.Abs(sumX-sumY) > 1e-6 {
		t.Errorf("Parseval violated: sumX=%v, sumY/N=%v", sumX, sumY)
	}
}

func TestHilbert_AnalyticTone(t *testing.T) {
	// A cosine in the passband becomes a rotating phasor of near-unit
	// magnitude once the filter has warmed up.
	h := NewHilbert(33)
	omega := 2 * math.Pi * 48 / 256 // mid band
	var worst float64
	for i := 0; i < 2000; i++ {
		z := h.Filter(math.Cos(omega * float64(i)))
		if i < 100 {
			continue
		}
		if d := math.Abs(cmplx.Abs(z) - 1); d > worst {
			worst = d
		}
	}
	if worst > 0.03 {
		t.Errorf("analytic magnitude error %v, want < 0.03", worst)
	}
}

func TestBlockDC_RemovesOffset(t *testing.T) {
	b := NewBlockDC(33)
	var out float64
	for i := 0; i < 500; i++ {
		out = b.Filter(0.25)
	}
	if math.Abs(out) > 1e-12 {
		t.Errorf("constant input leaks %v after warm-up", out)
	}
}

func TestPhasor_FrequencyAndMagnitude(t *testing.T) {
	p := NewPhasor()
	w := 0.1
	p.Omega(w)
	prev := p.Next()
	for i := 1; i < 10000; i++ {
		cur := p.Next()
		if math.Abs(cmplx.Abs(cur)-1) > 1e-9 {
			t.Fatalf("magnitude drift at %d: %v", i, cmplx.Abs(cur))
		}
		step := cmplx.Phase(cur * cmplx.Conj(prev))
		if math.Abs(step-w) > 1e-6 {
			t.Fatalf("phase step at %d: %v, want %v", i, step, w)
		}
		prev = cur
	}
}

func TestQPSK_HardMatchesMap(t *testing.T) {
	for _, c := range [][2]int8{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
		z := QPSKMap(c[0], c[1])
		h0, h1 := QPSKHard(z)
		if h0 != c[0] || h1 != c[1] {
			t.Errorf("hard(map(%d,%d)) = (%d,%d)", c[0], c[1], h0, h1)
		}
	}
}

func TestQPSKSoft_SaturatesAndSigns(t *testing.T) {
	var out [2]int8
	QPSKSoft(out[:], QPSKMap(1, -1), 1e9)
	if out[0] != 127 || out[1] != -127 {
		t.Errorf("saturated soft = %v", out)
	}
	QPSKSoft(out[:], 0, 1e9)
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("erasure soft = %v", out)
	}
}
