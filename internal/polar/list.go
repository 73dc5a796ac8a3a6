package polar

import (
	"sort"
)

// listDecoder is a successive-cancellation list decoder over min-sum LLRs.
// Soft inputs follow the modem's NRZ convention: negative means bit one.
//
// Per-path state lives in three flat arrays laid out as a binary tree of
// levels: level d occupies indices [1<<d, 1<<(d+1)). alpha holds LLRs on the
// way down, beta the hard partial sums on the way up, left the saved bits of
// finished left subtrees. Forking a path at an information leaf deep-copies
// all three, which captures every pending computation.
type listDecoder struct {
	order int
	n     int
	width int

	alpha  [][]int32
	beta   [][]uint8
	left   [][]uint8
	metric []int64
	active []bool

	uIdx  int
	cands []leafCand
	surv  [][2]leafCand
	nSurv []int
	free  []int
}

type leafCand struct {
	path   int
	bit    uint8
	metric int64
}

func newListDecoder(order, width int) *listDecoder {
	n := 1 << order
	ld := &listDecoder{
		order:  order,
		n:      n,
		width:  width,
		alpha:  make([][]int32, width),
		beta:   make([][]uint8, width),
		left:   make([][]uint8, width),
		metric: make([]int64, width),
		active: make([]bool, width),
		cands:  make([]leafCand, 0, 2*width),
		surv:   make([][2]leafCand, width),
		nSurv:  make([]int, width),
		free:   make([]int, 0, width),
	}
	for p := 0; p < width; p++ {
		ld.alpha[p] = make([]int32, 2*n)
		ld.beta[p] = make([]uint8, 2*n)
		ld.left[p] = make([]uint8, 2*n)
	}
	return ld
}

// decode runs the list decode and returns surviving path slots ordered by
// ascending path metric (best first). Codeword bits for slot p are
// beta[p][n:2n]; the caller reads them through codeword().
func (ld *listDecoder) decode(code []int8) []int {
	for p := range ld.active {
		ld.active[p] = false
	}
	ld.active[0] = true
	ld.metric[0] = 0
	root := ld.alpha[0][ld.n : 2*ld.n]
	for i, v := range code {
		root[i] = int32(v)
	}
	ld.uIdx = 0
	ld.node(ld.order)

	order := make([]int, 0, ld.width)
	for p := 0; p < ld.width; p++ {
		if ld.active[p] {
			order = append(order, p)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ld.metric[order[a]] < ld.metric[order[b]]
	})
	return order
}

// codeword returns the re-encoded hard codeword of a surviving path.
func (ld *listDecoder) codeword(path int) []uint8 {
	return ld.beta[path][ld.n : 2*ld.n]
}

func (ld *listDecoder) node(d int) {
	if d == 0 {
		ld.leaf()
		return
	}
	h := 1 << (d - 1)
	off := 1 << d
	offc := h

	for p := 0; p < ld.width; p++ {
		if !ld.active[p] {
			continue
		}
		a := ld.alpha[p]
		for i := 0; i < h; i++ {
			a[offc+i] = fMinSum(a[off+i], a[off+h+i])
		}
	}
	ld.node(d - 1)

	for p := 0; p < ld.width; p++ {
		if !ld.active[p] {
			continue
		}
		copy(ld.left[p][offc:offc+h], ld.beta[p][offc:offc+h])
		a, l := ld.alpha[p], ld.left[p]
		for i := 0; i < h; i++ {
			if l[offc+i] != 0 {
				a[offc+i] = a[off+h+i] - a[off+i]
			} else {
				a[offc+i] = a[off+h+i] + a[off+i]
			}
		}
	}
	ld.node(d - 1)

	for p := 0; p < ld.width; p++ {
		if !ld.active[p] {
			continue
		}
		b, l := ld.beta[p], ld.left[p]
		for i := 0; i < h; i++ {
			b[off+i] = l[offc+i] ^ b[offc+i]
			b[off+h+i] = b[offc+i]
		}
	}
}

func (ld *listDecoder) leaf() {
	u := ld.uIdx
	ld.uIdx++

	if frozen[u] {
		for p := 0; p < ld.width; p++ {
			if !ld.active[p] {
				continue
			}
			if l := ld.alpha[p][1]; l < 0 {
				ld.metric[p] -= int64(l)
			}
			ld.beta[p][1] = 0
		}
		return
	}

	// Information leaf: every active path proposes both bit values, the
	// best width candidates survive.
	ld.cands = ld.cands[:0]
	for p := 0; p < ld.width; p++ {
		if !ld.active[p] {
			continue
		}
		l := ld.alpha[p][1]
		var pen0, pen1 int64
		if l < 0 {
			pen0 = int64(-l)
		} else {
			pen1 = int64(l)
		}
		ld.cands = append(ld.cands,
			leafCand{path: p, bit: 0, metric: ld.metric[p] + pen0},
			leafCand{path: p, bit: 1, metric: ld.metric[p] + pen1})
	}
	sort.SliceStable(ld.cands, func(a, b int) bool {
		ca, cb := ld.cands[a], ld.cands[b]
		if ca.metric != cb.metric {
			return ca.metric < cb.metric
		}
		if ca.path != cb.path {
			return ca.path < cb.path
		}
		return ca.bit < cb.bit
	})

	keep := len(ld.cands)
	if keep > ld.width {
		keep = ld.width
	}
	for p := 0; p < ld.width; p++ {
		ld.nSurv[p] = 0
	}
	for _, c := range ld.cands[:keep] {
		ld.surv[c.path][ld.nSurv[c.path]] = c
		ld.nSurv[c.path]++
	}

	ld.free = ld.free[:0]
	for p := 0; p < ld.width; p++ {
		if !ld.active[p] {
			ld.free = append(ld.free, p)
		} else if ld.nSurv[p] == 0 {
			ld.active[p] = false
			ld.free = append(ld.free, p)
		}
	}

	for p := 0; p < ld.width; p++ {
		if ld.nSurv[p] == 0 {
			continue
		}
		if ld.nSurv[p] == 2 {
			q := ld.free[len(ld.free)-1]
			ld.free = ld.free[:len(ld.free)-1]
			copy(ld.alpha[q], ld.alpha[p])
			copy(ld.beta[q], ld.beta[p])
			copy(ld.left[q], ld.left[p])
			c := ld.surv[p][1]
			ld.metric[q] = c.metric
			ld.beta[q][1] = c.bit
			ld.active[q] = true
		}
		c := ld.surv[p][0]
		ld.metric[p] = c.metric
		ld.beta[p][1] = c.bit
	}
}

// fMinSum is the min-sum check-node update.
func fMinSum(a, b int32) int32 {
	aa, ab := a, b
	if aa < 0 {
		aa = -aa
	}
	if ab < 0 {
		ab = -ab
	}
	m := aa
	if ab < aa {
		m = ab
	}
	if (a < 0) != (b < 0) {
		return -m
	}
	return m
}
