package mempool

import "testing"

func TestArenaAllocZeroed(t *testing.T) {
	a := NewArena[int64](8)
	for i := 0; i < 1000; i++ {
		p := a.Alloc()
		if *p != 0 {
			t.Fatalf("Alloc returned non-zero element: %d", *p)
		}
		*p = int64(i)
	}
	if a.Elems() != 1000 {
		t.Fatalf("Expected 1000 elements, got %d", a.Elems())
	}
}

func TestArenaPointerStability(t *testing.T) {
	a := NewArena[int64](8)
	ptrs := make([]*int64, 0, 5000)
	for i := 0; i < 5000; i++ {
		p := a.Alloc()
		*p = int64(i)
		ptrs = append(ptrs, p)
	}
	// Earlier pointers must still see their values after later allocations.
	for i, p := range ptrs {
		if *p != int64(i) {
			t.Fatalf("Pointer %d lost its value: got %d", i, *p)
		}
	}
}

func TestArenaAllocSlice(t *testing.T) {
	a := NewArena[int32](4)
	s := a.AllocSlice(64)
	if len(s) != 64 {
		t.Fatalf("Expected slice of 64, got %d", len(s))
	}
	for i, v := range s {
		if v != 0 {
			t.Fatalf("Slot %d not zeroed: %d", i, v)
		}
	}
	// Writing the last slot must not bleed into the next allocation.
	s2 := a.AllocSlice(64)
	s[63] = 7
	if s2[0] != 0 {
		t.Fatal("Adjacent slices alias each other")
	}
}

func TestArenaOversizedSlice(t *testing.T) {
	a := NewArena[byte](1)
	s := a.AllocSlice(3 << 20)
	if len(s) != 3<<20 {
		t.Fatalf("Expected oversized slice, got %d", len(s))
	}
}

func TestPoolAlloc(t *testing.T) {
	p := NewPool(512)
	if p.BlockSize() != 512 {
		t.Fatalf("Expected block size 512, got %d", p.BlockSize())
	}
	seen := make(map[*byte]bool)
	for i := 0; i < 4096; i++ {
		b := p.Alloc()
		if len(b) != 512 {
			t.Fatalf("Expected 512-byte block, got %d", len(b))
		}
		for _, v := range b {
			if v != 0 {
				t.Fatal("Block not zeroed")
			}
		}
		if seen[&b[0]] {
			t.Fatal("Pool returned the same block twice")
		}
		seen[&b[0]] = true
		b[0] = 0xFF
	}
	if p.Blocks() != 4096 {
		t.Fatalf("Expected 4096 blocks, got %d", p.Blocks())
	}
}

func TestPoolBlocksDoNotAlias(t *testing.T) {
	p := NewPool(32)
	a := p.Alloc()
	b := p.Alloc()
	for i := range a {
		a[i] = 0xAA
	}
	for _, v := range b {
		if v != 0 {
			t.Fatal("Writing one block modified another")
		}
	}
	// Appending past a block's length must not be possible.
	if cap(a) != len(a) {
		t.Fatalf("Block capacity %d exceeds length %d", cap(a), len(a))
	}
}
