package rope

// validateSeq rejects sequences containing sentinels or bytes outside the
// alphabet. Callers pass symbols 1..5; the rope appends the sentinel itself.
func validateSeq(s []byte) error {
	for _, b := range s {
		if b == 0 || b >= NumSymbols {
			return ErrSymbolRange
		}
	}
	return nil
}

// insertCore inserts the symbols of s back-to-front starting at position x,
// chaining each insertion point off the previous rank, then terminates the
// string with a sentinel. Walking the string in reverse keeps the stored
// sequence the BWT of s rather than of its mirror image.
func (r *Rope) insertCore(s []byte, x int64) {
	for i := len(s) - 1; i >= 0; i-- {
		x = r.InsertRun(x, int(s[i]), 1) + 1
	}
	r.InsertRun(x, 0, 1)
}

// InsertString inserts one string in input order: its symbols are threaded
// into the BWT starting at the sentinel column. s holds symbols 1..5 without
// a terminator.
func (r *Rope) InsertString(s []byte) error {
	if err := validateSeq(s); err != nil {
		return err
	}
	r.insertCore(s, r.counts[0])
	return nil
}

// InsertStringRLO inserts one string in reverse-lexicographic order: rank
// queries narrow a BWT interval for the symbol's context, keeping equal
// suffixes clustered. When the context interval empties the remainder of the
// string is threaded in plainly. s holds symbols 1..5 without a terminator.
func (r *Rope) InsertStringRLO(s []byte) error {
	if err := validateSeq(s); err != nil {
		return err
	}
	var tl, tu [NumSymbols]int64
	l, u := int64(0), r.counts[0]
	for i := len(s) - 1; i >= 0; i-- {
		c := int(s[i])
		r.Rank2(l, u, &tl, &tu)
		for a := 0; a < c; a++ {
			l += tu[a] - tl[a]
		}
		if tl[c] < tu[c] {
			r.InsertRun(l, c, 1)
			base := int64(0)
			for a := 0; a < c; a++ {
				base += r.counts[a]
			}
			l = base + tl[c] + 1
			u = base + tu[c] + 1
		} else {
			r.insertCore(s[:i+1], l)
			return nil
		}
	}
	r.InsertRun(l, 0, 1)
	return nil
}
