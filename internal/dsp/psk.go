package dsp

import (
	"math"
)

// PSK soft mappers. Code values are NRZ: +1 encodes bit 0, -1 encodes bit 1,
// so a negative soft value reads as a one. Soft outputs are signed 8 bit,
// scaled by a caller-supplied precision and saturated at +/-127.

const sqrtHalf = 0.7071067811865476

// QPSKMap maps two NRZ code values onto a unit-magnitude constellation point.
func QPSKMap(c0, c1 int8) complex128 {
	return complex(float64(c0)*sqrtHalf, float64(c1)*sqrtHalf)
}

// QPSKHard slices a received point to the nearest NRZ pair.
func QPSKHard(z complex128) (int8, int8) {
	return hardSign(real(z)), hardSign(imag(z))
}

// QPSKSoft writes two soft code values for z into out, scaled by precision.
func QPSKSoft(out []int8, z complex128, precision float64) {
	out[0] = quantize(precision * real(z) / sqrtHalf)
	out[1] = quantize(precision * imag(z) / sqrtHalf)
}

// BPSKMap maps one NRZ code value onto the real axis.
func BPSKMap(c int8) complex128 {
	return complex(float64(c), 0)
}

// BPSKSoft writes one soft code value for z into out, scaled by precision.
func BPSKSoft(out *int8, z complex128, precision float64) {
	*out = quantize(precision * real(z))
}

func hardSign(v float64) int8 {
	if v < 0 {
		return -1
	}
	return 1
}

func quantize(v float64) int8 {
	if math.IsNaN(v) {
		return 0
	}
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(math.Round(v))
}
