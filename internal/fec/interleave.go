package fec

// Interleaver permutes the 4096 code values between the polar encoder and
// the subcarrier mapper with a Fisher-Yates shuffle drawn from a fixed-seed
// Xorshift32 stream. The permutation is frozen at construction; transmitter
// and receiver instances are identical by seed.
type Interleaver struct {
	perm []int
}

// NewInterleaver builds the shared permutation over size elements.
func NewInterleaver(size int) *Interleaver {
	rng := NewXorshift32()
	perm := make([]int, size)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < size-1; i++ {
		j := i + int(rng.Next()%uint32(size-i))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return &Interleaver{perm: perm}
}

// Forward applies the transmit permutation: dst[i] = src[perm[i]].
func (il *Interleaver) Forward(dst, src []int8) {
	for i, p := range il.perm {
		dst[i] = src[p]
	}
}

// Reverse applies the exact inverse permutation.
func (il *Interleaver) Reverse(dst, src []int8) {
	for i, p := range il.perm {
		dst[p] = src[i]
	}
}
