package rope

// Alphabet lists the symbols in rank order; the sentinel prints as '$'.
const Alphabet = "$ACGTN"

// Nt6 maps ASCII bases to symbols 1..5. Lower case folds to upper; anything
// that is not A, C, G or T maps to N.
var Nt6 [256]byte

func init() {
	for i := range Nt6 {
		Nt6[i] = 5
	}
	for b, sym := range map[byte]byte{'A': 1, 'C': 2, 'G': 3, 'T': 4} {
		Nt6[b] = sym
		Nt6[b+'a'-'A'] = sym
	}
}

// EncodeSeq converts an ASCII nucleotide sequence to alphabet symbols.
func EncodeSeq(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[i] = Nt6[b]
	}
	return out
}

// DecodeSeq converts alphabet symbols back to $ACGTN text.
func DecodeSeq(sym []byte) []byte {
	out := make([]byte, len(sym))
	for i, b := range sym {
		out[i] = Alphabet[b]
	}
	return out
}
