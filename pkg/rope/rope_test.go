package rope

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/ldenti/ropebwt2/pkg/rle"
)

// checkInvariants verifies the structural invariants that must hold after
// every public mutating call: marginal-count agreement on every entry, the
// leaf capacity bound, equal leaf depth and bucket occupancy.
func checkInvariants(t *testing.T, r *Rope) {
	t.Helper()
	leafDepth := -1
	var walk func(b *bucket, level int) [NumSymbols]int64
	walk = func(b *bucket, level int) [NumSymbols]int64 {
		if b.n < 1 || b.n > r.maxNodes {
			t.Fatalf("Bucket occupancy %d out of range [1, %d]", b.n, r.maxNodes)
		}
		var total [NumSymbols]int64
		for i := 0; i < b.n; i++ {
			e := &b.entries[i]
			var got [NumSymbols]int64
			if b.isBottom {
				if leafDepth == -1 {
					leafDepth = level
				} else if leafDepth != level {
					t.Fatalf("Leaves at depths %d and %d", leafDepth, level)
				}
				rle.Count(e.leaf, &got)
				if used := rle.Used(e.leaf); used+rle.MinSpace > r.blockLen {
					t.Fatalf("Leaf uses %d bytes, over the %d-byte bound", used, r.blockLen-rle.MinSpace)
				}
			} else {
				got = walk(e.down, level+1)
			}
			if got != e.counts {
				t.Fatalf("Entry counts %v disagree with subtree counts %v", e.counts, got)
			}
			sum := int64(0)
			for _, v := range got {
				sum += v
			}
			if e.length != sum {
				t.Fatalf("Entry length %d disagrees with count sum %d", e.length, sum)
			}
			for a := 0; a < NumSymbols; a++ {
				total[a] += got[a]
			}
		}
		return total
	}
	if total := walk(r.root, 0); total != r.counts {
		t.Fatalf("Rope totals %v disagree with tree totals %v", r.counts, total)
	}
}

func histogram(seq []byte) [NumSymbols]int64 {
	var c [NumSymbols]int64
	for _, b := range seq {
		c[b]++
	}
	return c
}

func insertRef(ref []byte, off int64, sym byte, runLen int64) []byte {
	out := make([]byte, 0, int64(len(ref))+runLen)
	out = append(out, ref[:off]...)
	for i := int64(0); i < runLen; i++ {
		out = append(out, sym)
	}
	return append(out, ref[off:]...)
}

func TestEmptyRope(t *testing.T) {
	r := New(DefaultMaxNodes, DefaultBlockLen)
	if r.Counts() != ([NumSymbols]int64{}) {
		t.Fatalf("Empty rope has counts %v", r.Counts())
	}
	if r.TotalLen() != 0 {
		t.Fatalf("Empty rope has length %d", r.TotalLen())
	}

	it := r.Iter()
	blk := it.Next()
	if blk == nil {
		t.Fatal("Empty rope should yield one leaf")
	}
	if len(blk) != r.BlockLen() {
		t.Fatalf("Leaf block has %d bytes, want %d", len(blk), r.BlockLen())
	}
	if got := rle.Decode(nil, blk); len(got) != 0 {
		t.Fatalf("Empty leaf decodes to %v", got)
	}
	if it.Next() != nil {
		t.Fatal("Empty rope should yield exactly one leaf")
	}
	checkInvariants(t, r)
}

func TestGeometryNormalization(t *testing.T) {
	r := New(5, 33)
	if r.MaxNodes() != 6 {
		t.Fatalf("maxNodes 5 should round up to 6, got %d", r.MaxNodes())
	}
	if r.BlockLen() != 40 {
		t.Fatalf("blockLen 33 should round up to 40, got %d", r.BlockLen())
	}
	r = New(0, 0)
	if r.MaxNodes() != 4 || r.BlockLen() != 32 {
		t.Fatalf("Minimum geometry should be 4/32, got %d/%d", r.MaxNodes(), r.BlockLen())
	}
}

func TestSingleInsert(t *testing.T) {
	r := New(DefaultMaxNodes, DefaultBlockLen)
	z := r.InsertRun(0, 1, 1)
	if z != 0 {
		t.Fatalf("InsertRun on an empty rope returned %d, want 0", z)
	}
	if got := r.Bytes(); !bytes.Equal(got, []byte{1}) {
		t.Fatalf("Rope decodes to %v, want [1]", got)
	}
	want := [NumSymbols]int64{0, 1, 0, 0, 0, 0}
	if r.Counts() != want {
		t.Fatalf("Counts %v, want %v", r.Counts(), want)
	}
	checkInvariants(t, r)
}

func TestInsertRunAgainstReference(t *testing.T) {
	r := New(4, 32)
	rnd := rand.New(rand.NewSource(11))
	var ref []byte
	for i := 0; i < 3000; i++ {
		a := 1 + rnd.Intn(5)
		runLen := int64(1 + rnd.Intn(5))
		x := rnd.Int63n(int64(len(ref)) + 1)

		before := r.Counts()
		z := r.InsertRun(x, a, runLen)

		// The return value must be C(a) + rank(a, x) over the pre-insert
		// content: the inserted run becomes the occurrence numbered by the
		// count of a in the prefix.
		want := int64(0)
		for s := 0; s < a; s++ {
			want += before[s]
		}
		for _, b := range ref[:x] {
			if int(b) == a {
				want++
			}
		}
		if z != want {
			t.Fatalf("Insert %d: InsertRun(%d, %d, %d) = %d, want %d", i, x, a, runLen, z, want)
		}

		ref = insertRef(ref, x, byte(a), runLen)
		if i%500 == 499 {
			checkInvariants(t, r)
			if got := r.Bytes(); !bytes.Equal(got, ref) {
				t.Fatalf("Insert %d: decoded rope diverged from reference", i)
			}
		}
	}
	checkInvariants(t, r)
	if got := r.Bytes(); !bytes.Equal(got, ref) {
		t.Fatal("Final decoded rope diverged from reference")
	}
}

func TestRankConsistency(t *testing.T) {
	r := New(6, 64)
	rnd := rand.New(rand.NewSource(23))
	var ref []byte
	for i := 0; i < 2000; i++ {
		a := 1 + rnd.Intn(5)
		runLen := int64(1 + rnd.Intn(4))
		x := rnd.Int63n(int64(len(ref)) + 1)
		r.InsertRun(x, a, runLen)
		ref = insertRef(ref, x, byte(a), runLen)
	}

	total := r.TotalLen()
	if total != int64(len(ref)) {
		t.Fatalf("TotalLen %d, want %d", total, len(ref))
	}

	var cx, cy [NumSymbols]int64
	for i := 0; i < 300; i++ {
		x := rnd.Int63n(total + 1)
		y := x + rnd.Int63n(total-x+1)
		r.Rank2(x, y, &cx, &cy)

		if cx != histogram(ref[:x]) {
			t.Fatalf("Rank at %d: %v, want %v", x, cx, histogram(ref[:x]))
		}
		if cy != histogram(ref[:y]) {
			t.Fatalf("Rank at %d: %v, want %v", y, cy, histogram(ref[:y]))
		}
		sx, sy := int64(0), int64(0)
		for a := 0; a < NumSymbols; a++ {
			sx += cx[a]
			sy += cy[a]
			if cx[a] > cy[a] {
				t.Fatalf("Rank not monotone for symbol %d", a)
			}
		}
		if sx != x || sy != y {
			t.Fatalf("Rank sums %d/%d, want %d/%d", sx, sy, x, y)
		}
	}

	// The full interval ranks to zero and the rope totals.
	r.Rank2(0, total, &cx, &cy)
	if cx != ([NumSymbols]int64{}) {
		t.Fatalf("Rank at 0 is %v, want zeros", cx)
	}
	if cy != r.Counts() {
		t.Fatalf("Rank at total is %v, want %v", cy, r.Counts())
	}

	// Rank1 agrees with the two-point variant.
	x := total / 2
	var c1 [NumSymbols]int64
	r.Rank1(x, &c1)
	if c1 != histogram(ref[:x]) {
		t.Fatalf("Rank1 at %d: %v, want %v", x, c1, histogram(ref[:x]))
	}
}

func TestRandomInsertionsInvariants(t *testing.T) {
	r := New(4, 32)
	rnd := rand.New(rand.NewSource(5))
	for i := 0; i < 10000; i++ {
		a := 1 + rnd.Intn(5)
		x := rnd.Int63n(r.TotalLen() + 1)
		r.InsertRun(x, a, 1)
		if i%1000 == 999 {
			checkInvariants(t, r)
		}
	}
	checkInvariants(t, r)
	if r.TotalLen() != 10000 {
		t.Fatalf("TotalLen %d, want 10000", r.TotalLen())
	}
}

func TestSmallGeometryStringInsertion(t *testing.T) {
	r := New(4, 32)
	rnd := rand.New(rand.NewSource(99))
	prevDepth := r.Stats().Depth
	for i := 0; i < 100; i++ {
		s := make([]byte, 1+rnd.Intn(20))
		for j := range s {
			s[j] = byte(1 + rnd.Intn(5))
		}
		if err := r.InsertStringRLO(s); err != nil {
			t.Fatalf("InsertStringRLO: %v", err)
		}
		d := r.Stats().Depth
		if d < prevDepth {
			t.Fatalf("Depth shrank from %d to %d", prevDepth, d)
		}
		prevDepth = d
	}
	checkInvariants(t, r)
	if prevDepth < 2 {
		t.Fatalf("Expected at least one root split, depth is %d", prevDepth)
	}
	if r.Counts()[0] != 100 {
		t.Fatalf("Expected 100 sentinels, got %d", r.Counts()[0])
	}
}

func TestIteratorRoundTrip(t *testing.T) {
	r := New(4, 32)
	rnd := rand.New(rand.NewSource(17))
	var ref []byte
	for i := 0; i < 1500; i++ {
		a := 1 + rnd.Intn(5)
		x := rnd.Int63n(int64(len(ref)) + 1)
		r.InsertRun(x, a, 1)
		ref = insertRef(ref, x, byte(a), 1)
	}

	var decoded []byte
	leaves := 0
	it := r.Iter()
	for blk := it.Next(); blk != nil; blk = it.Next() {
		if len(blk) != r.BlockLen() {
			t.Fatalf("Leaf block has %d bytes, want %d", len(blk), r.BlockLen())
		}
		decoded = rle.Decode(decoded, blk)
		leaves++
	}
	if leaves < 2 {
		t.Fatalf("Expected several leaves at this geometry, got %d", leaves)
	}
	if !bytes.Equal(decoded, ref) {
		t.Fatal("Iterator concatenation does not decode to the stored sequence")
	}
	if histogram(decoded) != r.Counts() {
		t.Fatal("Decoded histogram disagrees with rope counts")
	}
}

func TestInsertRunChunking(t *testing.T) {
	r := New(DefaultMaxNodes, DefaultBlockLen)
	const runLen = int64(rle.MaxRunLen)*2 + 5
	z := r.InsertRun(0, 3, runLen)
	if z != 0 {
		t.Fatalf("InsertRun returned %d, want 0", z)
	}
	if r.Counts()[3] != runLen {
		t.Fatalf("Counts[3] = %d, want %d", r.Counts()[3], runLen)
	}
	checkInvariants(t, r)

	// A later insertion at the front still ranks correctly.
	z = r.InsertRun(0, 3, 1)
	if z != 0 {
		t.Fatalf("Front insert returned %d, want 0", z)
	}
	if r.TotalLen() != runLen+1 {
		t.Fatalf("TotalLen %d, want %d", r.TotalLen(), runLen+1)
	}
}

func TestInsertRunPreconditions(t *testing.T) {
	r := New(DefaultMaxNodes, DefaultBlockLen)
	for _, tc := range []struct {
		name string
		fn   func()
	}{
		{"symbol too large", func() { r.InsertRun(0, 6, 1) }},
		{"negative symbol", func() { r.InsertRun(0, -1, 1) }},
		{"position out of range", func() { r.InsertRun(1, 1, 1) }},
		{"zero run", func() { r.InsertRun(0, 1, 0) }},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic", tc.name)
				}
			}()
			tc.fn()
		}()
	}
}
