// Package rle implements the run-length-encoded leaf codec for the BWT rope.
//
// A leaf is a fixed-capacity byte block. The first two bytes hold the encoded
// payload length in little-endian; runs follow. A run packs its symbol into
// the low 3 bits of the lead byte. Lengths 1..30 live in the high 5 bits;
// the value 31 escapes to a uvarint length after the lead byte.
//
// Rank outputs accumulate into their [NumSymbols]int64 arguments so the rope
// can prime them with path counts before descending into a leaf; Count and
// Insert overwrite theirs.
package rle

import "encoding/binary"

const (
	// NumSymbols is the alphabet size; symbol 0 is the sentinel.
	NumSymbols = 6

	// MinSpace is the worst-case growth in bytes of a single Insert: one
	// straddled run split in two plus one maximal new run. The rope must
	// never let a block's used size exceed capacity minus MinSpace before
	// an insertion.
	MinSpace = 16

	// MaxRunLen is the largest length one encoded run can carry. Longer
	// insertions must be issued in chunks; runs that would outgrow it by
	// merging are stored as adjacent same-symbol runs instead.
	MaxRunLen = 1<<28 - 1

	headerSize   = 2
	maxDirectLen = 30
	escapeLen    = 31

	// maxRunBytes bounds the encoded size of one run: a lead byte plus up
	// to four uvarint length bytes.
	maxRunBytes = 5
)

// Len returns the encoded payload length of a block in bytes.
func Len(block []byte) int {
	return int(binary.LittleEndian.Uint16(block))
}

// Used returns the total bytes in use, header included.
func Used(block []byte) int {
	return headerSize + Len(block)
}

func setLen(block []byte, n int) {
	binary.LittleEndian.PutUint16(block, uint16(n))
}

func sum(c *[NumSymbols]int64) int64 {
	t := int64(0)
	for _, v := range c {
		t += v
	}
	return t
}

// readRun decodes the run starting at data[i] and returns its symbol, length
// and encoded size.
func readRun(data []byte, i int) (sym int, l int64, n int) {
	b := data[i]
	sym = int(b & 7)
	hi := b >> 3
	if hi < escapeLen {
		return sym, int64(hi), 1
	}
	v, m := binary.Uvarint(data[i+1:])
	return sym, int64(v), 1 + m
}

// putRun encodes one run at dst[0:] and returns its encoded size. The
// length must not exceed MaxRunLen.
func putRun(dst []byte, sym int, l int64) int {
	if l > MaxRunLen {
		panic("rle: run length exceeds MaxRunLen")
	}
	if l <= maxDirectLen {
		dst[0] = byte(sym) | byte(l)<<3
		return 1
	}
	dst[0] = byte(sym) | escapeLen<<3
	return 1 + binary.PutUvarint(dst[1:], uint64(l))
}

// Count sets c to the per-symbol totals of the block.
func Count(block []byte, c *[NumSymbols]int64) {
	*c = [NumSymbols]int64{}
	data := block[headerSize : headerSize+Len(block)]
	for i := 0; i < len(data); {
		s, l, n := readRun(data, i)
		c[s] += l
		i += n
	}
}

// DecodedLen returns the number of symbols stored in the block.
func DecodedLen(block []byte) int64 {
	var c [NumSymbols]int64
	Count(block, &c)
	return sum(&c)
}

// splice replaces data[j:j+oldN] of a block's payload with repl, shifting the
// tail, and returns the new payload length.
func splice(block []byte, j, oldN int, repl []byte) int {
	dataLen := Len(block)
	data := block[headerSize:]
	delta := len(repl) - oldN
	if delta != 0 {
		copy(data[j+len(repl):dataLen+delta], data[j+oldN:dataLen])
	}
	copy(data[j:], repl)
	setLen(block, dataLen+delta)
	return dataLen + delta
}

// Insert inserts runLen copies of sym at decoded position off and returns the
// block's used size in bytes. It merges with an adjacent run of the same
// symbol when possible; a straddled run of a different symbol is split in
// three. On a boundary the insertion attaches to the left run if its symbol
// matches, else to the right run if its symbol matches, else a new run is
// created between them. cnt is set to the per-symbol counts of the first off
// symbols (the in-leaf rank at the insertion point). parentC carries the
// block's pre-insert totals.
//
// The caller guarantees at least MinSpace bytes of headroom; Insert never
// grows a block by more than that.
func Insert(block []byte, off int64, sym int, runLen int64, cnt, parentC *[NumSymbols]int64) int {
	dataLen := Len(block)
	data := block[headerSize : headerSize+dataLen]
	var tmp [3 * maxRunBytes]byte

	if off == sum(parentC) {
		// Appending at the end: the rank is the whole block, no counting
		// pass needed, only the position of the last run.
		*cnt = *parentC
		prev, prevSym, prevLen, prevN := -1, -1, int64(0), 0
		for i := 0; i < len(data); {
			s, l, n := readRun(data, i)
			prev, prevSym, prevLen, prevN = i, s, l, n
			i += n
		}
		if prev >= 0 && prevSym == sym && prevLen+runLen <= MaxRunLen {
			n := putRun(tmp[:], sym, prevLen+runLen)
			splice(block, prev, prevN, tmp[:n])
		} else {
			n := putRun(tmp[:], sym, runLen)
			splice(block, dataLen, 0, tmp[:n])
		}
		return Used(block)
	}

	*cnt = [NumSymbols]int64{}
	pos := int64(0)
	i := 0
	prev, prevSym, prevLen, prevN := -1, -1, int64(0), 0
	for {
		s, l, n := readRun(data, i)
		if pos+l > off {
			break
		}
		pos += l
		cnt[s] += l
		prev, prevSym, prevLen, prevN = i, s, l, n
		i += n
	}

	if pos == off {
		// On the boundary before the run at i.
		s, l, n := readRun(data, i)
		switch {
		case prev >= 0 && prevSym == sym && prevLen+runLen <= MaxRunLen:
			m := putRun(tmp[:], sym, prevLen+runLen)
			splice(block, prev, prevN, tmp[:m])
		case s == sym && l+runLen <= MaxRunLen:
			m := putRun(tmp[:], sym, l+runLen)
			splice(block, i, n, tmp[:m])
		default:
			m := putRun(tmp[:], sym, runLen)
			splice(block, i, 0, tmp[:m])
		}
		return Used(block)
	}

	// Inside the run at i.
	s, l, n := readRun(data, i)
	left := off - pos
	cnt[s] += left
	if s == sym && l+runLen <= MaxRunLen {
		m := putRun(tmp[:], sym, l+runLen)
		splice(block, i, n, tmp[:m])
	} else {
		// A straddled run of another symbol, or a same-symbol run that a
		// merge would push past MaxRunLen, is split in three.
		m := putRun(tmp[:], s, left)
		m += putRun(tmp[m:], sym, runLen)
		m += putRun(tmp[m:], s, l-left)
		splice(block, i, n, tmp[:m])
	}
	return Used(block)
}

// Split moves the later runs of a into the empty block b, cutting at the
// first run boundary at or past half of a's payload. Both blocks remain
// valid encodings; the caller must recount both afterwards.
func Split(a, b []byte) {
	la := Len(a)
	data := a[headerSize : headerSize+la]
	half := la / 2
	cut := 0
	for cut < half {
		_, _, n := readRun(data, cut)
		cut += n
	}
	if cut == la {
		// The final run swallowed the midpoint; cut before it instead so
		// b is only left empty when a holds a single run.
		back := 0
		for i := 0; i < la; {
			_, _, n := readRun(data, i)
			if i+n == la {
				back = i
				break
			}
			i += n
		}
		if back > 0 {
			cut = back
		}
	}
	copy(b[headerSize:], data[cut:la])
	setLen(b, la-cut)
	setLen(a, cut)
}

// Rank1 adds to c the per-symbol counts of the first off symbols. parentC
// carries the block's totals and short-circuits a whole-block rank.
func Rank1(block []byte, off int64, c, parentC *[NumSymbols]int64) {
	if off >= sum(parentC) {
		for a := 0; a < NumSymbols; a++ {
			c[a] += parentC[a]
		}
		return
	}
	data := block[headerSize : headerSize+Len(block)]
	pos := int64(0)
	for i := 0; i < len(data) && pos < off; {
		s, l, n := readRun(data, i)
		if pos+l > off {
			c[s] += off - pos
			return
		}
		c[s] += l
		pos += l
		i += n
	}
}

// Rank2 adds the counts of the first off1 symbols to c1 and of the first off2
// symbols to c2, sharing one pass. Requires off1 <= off2.
func Rank2(block []byte, off1, off2 int64, c1, c2, parentC *[NumSymbols]int64) {
	if off1 >= sum(parentC) {
		for a := 0; a < NumSymbols; a++ {
			c1[a] += parentC[a]
			c2[a] += parentC[a]
		}
		return
	}
	data := block[headerSize : headerSize+Len(block)]
	var acc [NumSymbols]int64
	pos := int64(0)
	i := 0
	for i < len(data) && pos < off1 {
		s, l, n := readRun(data, i)
		if pos+l > off1 {
			// The run straddles off1; count its prefix, leave the rest to
			// the second leg.
			k := off1 - pos
			acc[s] += k
			for a := 0; a < NumSymbols; a++ {
				c1[a] += acc[a]
			}
			rank2Tail(data, i, pos, off2, &acc, c2, k)
			return
		}
		acc[s] += l
		pos += l
		i += n
	}
	for a := 0; a < NumSymbols; a++ {
		c1[a] += acc[a]
	}
	rank2Tail(data, i, pos, off2, &acc, c2, 0)
}

// rank2Tail continues a Rank2 scan from the run at data[i] toward off2.
// consumed is how much of that run the first leg already counted.
func rank2Tail(data []byte, i int, pos, off2 int64, acc, c2 *[NumSymbols]int64, consumed int64) {
	if consumed > 0 {
		s, l, n := readRun(data, i)
		if pos+l > off2 {
			acc[s] += off2 - pos - consumed
			for a := 0; a < NumSymbols; a++ {
				c2[a] += acc[a]
			}
			return
		}
		acc[s] += l - consumed
		pos += l
		i += n
	}
	for i < len(data) && pos < off2 {
		s, l, n := readRun(data, i)
		if pos+l > off2 {
			acc[s] += off2 - pos
			break
		}
		acc[s] += l
		pos += l
		i += n
	}
	for a := 0; a < NumSymbols; a++ {
		c2[a] += acc[a]
	}
}

// Decode appends the block's symbols to dst and returns the extended slice.
func Decode(dst, block []byte) []byte {
	data := block[headerSize : headerSize+Len(block)]
	for i := 0; i < len(data); {
		s, l, n := readRun(data, i)
		for k := int64(0); k < l; k++ {
			dst = append(dst, byte(s))
		}
		i += n
	}
	return dst
}

// Run is one decoded run of a block.
type Run struct {
	Sym byte
	Len int64
}

// Runs appends the block's runs to dst and returns the extended slice.
func Runs(dst []Run, block []byte) []Run {
	data := block[headerSize : headerSize+Len(block)]
	for i := 0; i < len(data); {
		s, l, n := readRun(data, i)
		dst = append(dst, Run{Sym: byte(s), Len: l})
		i += n
	}
	return dst
}
