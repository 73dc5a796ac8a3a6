// Package polar implements the CRC-aided systematic polar code protecting
// the payload: frozen-set construction, the systematic encoder and a
// successive-cancellation list decoder with CRC selection.
package polar

import (
	"math"
	"sort"
)

// Code geometry. The 2080 information positions carry 2048 payload bits
// plus a 32-bit CRC; the remaining positions are frozen to zero.
const (
	Order    = 12
	CodeLen  = 1 << Order
	DataBits = 2048
	crcBits  = 32
	mesgBits = DataBits + crcBits
)

var (
	frozen  [CodeLen]bool
	infoPos [mesgBits]int
)

func init() {
	constructFrozenSet()
}

// constructFrozenSet regenerates the frozen bitmap with the binary erasure
// channel Bhattacharyya recursion at design erasure 1/2, keeping the 2080
// most reliable bit channels as information positions. Both ends of the
// link share this table by construction; it is part of the wire contract.
func constructFrozenSet() {
	// Log-domain keeps the ordering exact where z underflows to zero.
	logZ := []float64{math.Log(0.5)}
	for level := 0; level < Order; level++ {
		next := make([]float64, 2*len(logZ))
		for i, l := range logZ {
			z := math.Exp(l)
			next[2*i] = l + math.Log(2-z) // upper channel degrades
			next[2*i+1] = 2 * l           // lower channel improves
		}
		logZ = next
	}

	order := make([]int, CodeLen)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return logZ[order[a]] < logZ[order[b]]
	})

	for i := range frozen {
		frozen[i] = true
	}
	info := order[:mesgBits]
	sort.Ints(info)
	for i, pos := range info {
		frozen[pos] = false
		infoPos[i] = pos
	}
}
