// Package rope implements a dynamic, rank-queryable string index over the
// six-symbol alphabet $ACGTN: a B+ tree whose leaves hold run-length-encoded
// symbol blocks and whose internal entries carry per-symbol marginal counts.
// Inserting a run and ranking a position both run in a single root-to-leaf
// pass; full buckets are split on the way down so no split ever propagates
// upward. The structure is the core of incremental Burrows-Wheeler Transform
// construction: see InsertString, InsertStringRLO and InsertMulti.
//
// A Rope is single-writer. It holds no locks; callers that share a rope
// across goroutines must serialize access themselves.
package rope

import (
	"errors"

	"github.com/ldenti/ropebwt2/pkg/mempool"
	"github.com/ldenti/ropebwt2/pkg/rle"
)

// NumSymbols is the alphabet size. Symbol 0 is the sentinel that terminates
// every inserted string.
const NumSymbols = rle.NumSymbols

// Default geometry: branching factor and leaf block capacity.
const (
	DefaultMaxNodes = 64
	DefaultBlockLen = 512
)

// Approximate element footprints, used only to size arena chunks.
const (
	bucketBytes = 48
	entryBytes  = 96
)

var (
	// ErrSymbolRange reports a sequence byte outside the 0..5 alphabet.
	ErrSymbolRange = errors.New("rope: symbol outside the $ACGTN alphabet")
	// ErrEmptyInput reports an empty multi-string buffer.
	ErrEmptyInput = errors.New("rope: empty input buffer")
	// ErrNoTerminator reports a multi-string buffer whose last byte is not
	// the sentinel.
	ErrNoTerminator = errors.New("rope: input buffer must end with a sentinel")
)

// entry is one child slot of a bucket: the child reference plus the decoded
// length and per-symbol counts of the subtree below it. Exactly one of down
// and leaf is set, depending on the owning bucket's isBottom flag.
type entry struct {
	down   *bucket
	leaf   []byte
	length int64
	counts [NumSymbols]int64
}

// bucket is a contiguous slab of up to maxNodes sibling entries. Bottom
// buckets parent leaf blocks instead of child buckets.
type bucket struct {
	n        int
	isBottom bool
	entries  []entry
}

// Rope is the B+ tree. All nodes come from bump pools owned by the rope;
// nothing is freed individually and dropping the rope releases everything.
type Rope struct {
	maxNodes int
	blockLen int
	counts   [NumSymbols]int64
	root     *bucket
	buckets  *mempool.Arena[bucket]
	entries  *mempool.Arena[entry]
	leaves   *mempool.Pool
}

// New creates an empty rope. maxNodes is rounded up to an even number of at
// least 4; blockLen is rounded up to a multiple of 8 of at least 32.
func New(maxNodes, blockLen int) *Rope {
	if maxNodes < 4 {
		maxNodes = 4
	}
	maxNodes = (maxNodes + 1) >> 1 << 1
	if blockLen < 32 {
		blockLen = 32
	}
	blockLen = (blockLen + 7) >> 3 << 3
	r := &Rope{
		maxNodes: maxNodes,
		blockLen: blockLen,
		buckets:  mempool.NewArena[bucket](bucketBytes),
		entries:  mempool.NewArena[entry](entryBytes),
		leaves:   mempool.NewPool(blockLen),
	}
	r.root = r.newBucket(true)
	r.root.n = 1
	r.root.entries[0].leaf = r.leaves.Alloc()
	return r
}

func (r *Rope) newBucket(bottom bool) *bucket {
	b := r.buckets.Alloc()
	b.isBottom = bottom
	b.entries = r.entries.AllocSlice(r.maxNodes)
	return b
}

// MaxNodes returns the bucket branching factor after normalization.
func (r *Rope) MaxNodes() int { return r.maxNodes }

// BlockLen returns the leaf block capacity after normalization.
func (r *Rope) BlockLen() int { return r.blockLen }

// Counts returns the per-symbol totals of the stored sequence.
func (r *Rope) Counts() [NumSymbols]int64 { return r.counts }

// TotalLen returns the decoded length of the stored sequence.
func (r *Rope) TotalLen() int64 {
	t := int64(0)
	for _, v := range r.counts {
		t += v
	}
	return t
}

// splitChild splits the child of parent.entries[pi]. With a nil parent the
// root itself is split: a fresh single-entry root is seeded from the rope's
// totals first, then the old root is halved beneath it. Returns the bucket
// and index of the entry whose child was split (the new root's slot 0 after
// a root split). The caller guarantees parent has room for one more entry;
// top-down pre-splitting makes that invariant hold.
func (r *Rope) splitChild(parent *bucket, pi int) (*bucket, int) {
	if parent == nil {
		nr := r.newBucket(false)
		nr.n = 1
		e := &nr.entries[0]
		e.down = r.root
		e.counts = r.counts
		for _, v := range r.counts {
			e.length += v
		}
		r.root = nr
		parent, pi = nr, 0
	}
	v := &parent.entries[pi]
	copy(parent.entries[pi+2:parent.n+1], parent.entries[pi+1:parent.n])
	parent.n++
	w := &parent.entries[pi+1]
	*w = entry{}
	if parent.isBottom {
		w.leaf = r.leaves.Alloc()
		rle.Split(v.leaf, w.leaf)
		rle.Count(w.leaf, &w.counts)
	} else {
		child := v.down
		nb := r.newBucket(child.isBottom)
		half := r.maxNodes >> 1
		child.n -= half
		copy(nb.entries[:half], child.entries[child.n:child.n+half])
		nb.n = half
		for i := 0; i < half; i++ {
			for a := 0; a < NumSymbols; a++ {
				w.counts[a] += nb.entries[i].counts[a]
			}
		}
		w.down = nb
	}
	for a := 0; a < NumSymbols; a++ {
		w.length += w.counts[a]
		v.counts[a] -= w.counts[a]
	}
	v.length -= w.length
	return parent, pi
}

// InsertRun inserts runLen copies of symbol a after the first x symbols of
// the stored sequence and returns C(a) + rank(a, x), where C(a) is the total
// of all symbols smaller than a before the insertion. Position, symbol and
// run length outside their ranges are programmer errors and panic.
func (r *Rope) InsertRun(x int64, a int, runLen int64) int64 {
	if a < 0 || a >= NumSymbols {
		panic("rope: symbol out of range")
	}
	if runLen < 1 {
		panic("rope: run length must be positive")
	}
	if x < 0 || x > r.TotalLen() {
		panic("rope: position out of range")
	}
	// One encoded run carries at most rle.MaxRunLen symbols; longer runs go
	// in as separate passes at the same position. Each pass lands before the
	// previous one, so the first pass already returns the final rank.
	z := r.insertRun(x, a, min64(runLen, rle.MaxRunLen))
	for runLen > rle.MaxRunLen {
		runLen -= rle.MaxRunLen
		r.insertRun(x, a, min64(runLen, rle.MaxRunLen))
	}
	return z
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func (r *Rope) insertRun(x int64, a int, runLen int64) int64 {
	z := int64(0)
	for i := 0; i < a; i++ {
		z += r.counts[i]
	}
	var parent *bucket
	pi := 0
	cur := r.root
	y := int64(0)
	for {
		if cur.n == r.maxNodes {
			parent, pi = r.splitChild(parent, pi)
			pe := &parent.entries[pi]
			if y+pe.length <= x {
				// The left half no longer reaches x; step into the new
				// right sibling.
				y += pe.length
				z += pe.counts[a]
				pi++
				pe = &parent.entries[pi]
			}
			cur = pe.down
		}
		var i int
		if parent != nil && x-y > parent.entries[pi].length>>1 {
			// Closer to the right edge: walk backward from the last entry.
			pe := &parent.entries[pi]
			y += pe.length
			z += pe.counts[a]
			i = cur.n
			for y >= x {
				i--
				y -= cur.entries[i].length
				z -= cur.entries[i].counts[a]
			}
		} else {
			for i = 0; y+cur.entries[i].length < x; i++ {
				y += cur.entries[i].length
				z += cur.entries[i].counts[a]
			}
		}
		if parent != nil {
			// Credit the parent entry now; the chosen entry itself must
			// stay untouched in case its child is split below.
			pe := &parent.entries[pi]
			pe.counts[a] += runLen
			pe.length += runLen
		}
		if cur.isBottom {
			e := &cur.entries[i]
			r.counts[a] += runLen
			var cnt [NumSymbols]int64
			used := rle.Insert(e.leaf, x-y, a, runLen, &cnt, &e.counts)
			z += cnt[a]
			e.counts[a] += runLen
			e.length += runLen
			if used+rle.MinSpace > r.blockLen {
				r.splitChild(cur, i)
			}
			return z
		}
		parent, pi = cur, i
		cur = cur.entries[i].down
	}
}

// countToLeaf walks to the leaf containing position x, accumulating the
// marginal counts of everything left of the walk into cx. Returns the leaf's
// parent entry and the residual offset within the leaf.
func (r *Rope) countToLeaf(x int64, cx *[NumSymbols]int64) (*entry, int64) {
	*cx = [NumSymbols]int64{}
	var parent *bucket
	pi := 0
	cur := r.root
	y := int64(0)
	for {
		var i int
		if parent != nil && x-y > parent.entries[pi].length>>1 {
			pe := &parent.entries[pi]
			y += pe.length
			for a := 0; a < NumSymbols; a++ {
				cx[a] += pe.counts[a]
			}
			i = cur.n
			for y >= x {
				i--
				y -= cur.entries[i].length
				for a := 0; a < NumSymbols; a++ {
					cx[a] -= cur.entries[i].counts[a]
				}
			}
		} else {
			for i = 0; y+cur.entries[i].length < x; i++ {
				y += cur.entries[i].length
				for a := 0; a < NumSymbols; a++ {
					cx[a] += cur.entries[i].counts[a]
				}
			}
		}
		e := &cur.entries[i]
		if cur.isBottom {
			return e, x - y
		}
		parent, pi = cur, i
		cur = e.down
	}
}

// Rank1 writes to cx the per-symbol counts of the first x symbols.
func (r *Rope) Rank1(x int64, cx *[NumSymbols]int64) {
	if x < 0 || x > r.TotalLen() {
		panic("rope: position out of range")
	}
	e, rest := r.countToLeaf(x, cx)
	rle.Rank1(e.leaf, rest, cx, &e.counts)
}

// Rank2 writes to cx and cy the per-symbol counts of the first x and first y
// symbols. When both positions land in the same leaf the block is scanned
// once. With y < x or a nil cy only cx is written.
func (r *Rope) Rank2(x, y int64, cx, cy *[NumSymbols]int64) {
	if x < 0 || x > r.TotalLen() {
		panic("rope: position out of range")
	}
	if y < x || cy == nil {
		r.Rank1(x, cx)
		return
	}
	if y > r.TotalLen() {
		panic("rope: position out of range")
	}
	e, rest := r.countToLeaf(x, cx)
	if rest+(y-x) <= e.length {
		*cy = *cx
		rle.Rank2(e.leaf, rest, rest+(y-x), cx, cy, &e.counts)
		return
	}
	rle.Rank1(e.leaf, rest, cx, &e.counts)
	e2, rest2 := r.countToLeaf(y, cy)
	rle.Rank1(e2.leaf, rest2, cy, &e2.counts)
}

// Bytes decodes and concatenates every leaf, returning the stored sequence
// as symbols 0..5.
func (r *Rope) Bytes() []byte {
	out := make([]byte, 0, r.TotalLen())
	it := r.Iter()
	for blk := it.Next(); blk != nil; blk = it.Next() {
		out = rle.Decode(out, blk)
	}
	return out
}

// Stats describes a rope's shape.
type Stats struct {
	TotalLen int64             `json:"total_len"`
	Counts   [NumSymbols]int64 `json:"counts"`
	MaxNodes int               `json:"max_nodes"`
	BlockLen int               `json:"block_len"`
	Depth    int               `json:"depth"`
	Leaves   int64             `json:"leaves"`
	Buckets  int64             `json:"buckets"`
}

// Stats reports the rope's current shape.
func (r *Rope) Stats() Stats {
	depth := 1
	for b := r.root; !b.isBottom; b = b.entries[0].down {
		depth++
	}
	return Stats{
		TotalLen: r.TotalLen(),
		Counts:   r.counts,
		MaxNodes: r.maxNodes,
		BlockLen: r.blockLen,
		Depth:    depth,
		Leaves:   r.leaves.Blocks(),
		Buckets:  r.buckets.Elems(),
	}
}
