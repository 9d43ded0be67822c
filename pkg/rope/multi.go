package rope

import "container/heap"

// workItem is one group of strings sharing an emitted suffix: the slice
// [b, e) of the string-pointer table, the BWT interval [l, u) that suffix
// maps to, and how many symbols of each string have been emitted.
type workItem struct {
	l, u  int64
	b, e  int64
	depth int64
}

// workHeap is a min-heap on the insertion cursor l. Processing groups in
// ascending l keeps every previously computed offset valid: all insertions
// at smaller positions have already happened.
type workHeap []workItem

func (h workHeap) Len() int            { return len(h) }
func (h workHeap) Less(i, j int) bool  { return h[i].l < h[j].l }
func (h workHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *workHeap) Push(x interface{}) { *h = append(*h, x.(workItem)) }
func (h *workHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// InsertMulti inserts every string of buf at once. buf concatenates
// sentinel-terminated symbol strings and must end with a sentinel. Strings
// are partitioned by successive symbols, counting-sorted per group, and the
// groups are scheduled through a min-heap on their insertion cursors; each
// group inserts its symbols as whole runs. The rope afterwards holds the BWT
// of the previous content merged with the new strings.
func (r *Rope) InsertMulti(buf []byte) error {
	if len(buf) == 0 {
		return ErrEmptyInput
	}
	if buf[len(buf)-1] != 0 {
		return ErrNoTerminator
	}
	m := int64(0)
	for _, b := range buf {
		if b >= NumSymbols {
			return ErrSymbolRange
		}
		if b == 0 {
			m++
		}
	}

	// Work on reversed copies so the rope stores the BWT of the strings as
	// given, not of their mirrors. Each entry keeps its sentinel at the end.
	rev := make([]byte, len(buf))
	ptr := make([][]byte, 0, m)
	start := 0
	for i, b := range buf {
		if b != 0 {
			continue
		}
		s := rev[start : i+1]
		for j, k := 0, i-1; k >= start; j, k = j+1, k-1 {
			s[j] = buf[k]
		}
		s[i-start] = 0
		ptr = append(ptr, s)
		start = i + 1
	}

	oracle := make([]byte, m)
	sorted := make([][]byte, m)
	h := &workHeap{{l: 0, u: r.counts[0], b: 0, e: m, depth: 0}}

	var c, ac, fill, tl, tu [NumSymbols]int64
	for h.Len() > 0 {
		top := heap.Pop(h).(workItem)
		group := ptr[top.b:top.e]
		n := int64(len(group))

		// Fetch this depth's symbol for every string, then count.
		for i := int64(0); i < n; i++ {
			oracle[i] = group[i][top.depth]
		}
		c = [NumSymbols]int64{}
		for i := int64(0); i < n; i++ {
			c[oracle[i]]++
		}
		ac[0] = 0
		for a := 1; a < NumSymbols; a++ {
			ac[a] = ac[a-1] + c[a-1]
		}
		fill = ac
		for i := int64(0); i < n; i++ {
			sorted[fill[oracle[i]]] = group[i]
			fill[oracle[i]]++
		}
		copy(group, sorted[:n])

		r.Rank2(top.l, top.u, &tl, &tu)
		x := top.l
		ac2 := int64(0)
		for a := 0; a < NumSymbols; a++ {
			if c[a] > 0 {
				r.InsertRun(x, a, c[a])
				if a != 0 {
					// Sentinels have no successor; everything else spawns
					// the next-depth group.
					heap.Push(h, workItem{
						l:     ac2 + tl[a] + m,
						u:     ac2 + tu[a] + m,
						b:     top.b + ac[a],
						e:     top.b + ac[a] + c[a],
						depth: top.depth + 1,
					})
				}
			}
			ac2 += r.counts[a]
			x += tu[a] - tl[a]
		}
		m -= c[0]
	}
	return nil
}
