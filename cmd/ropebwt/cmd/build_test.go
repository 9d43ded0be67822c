package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ldenti/ropebwt2/pkg/rope"
)

func TestReadSequences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reads.txt")
	if err := os.WriteFile(path, []byte("ACG\n\nggt\n"), 0600); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	seqs, err := readSequences([]string{path})
	if err != nil {
		t.Fatalf("readSequences: %v", err)
	}
	if len(seqs) != 2 {
		t.Fatalf("Expected 2 sequences (blank lines skipped), got %d", len(seqs))
	}
	if !bytes.Equal(seqs[0], []byte{1, 2, 3}) {
		t.Fatalf("First sequence encoded as %v", seqs[0])
	}
	if !bytes.Equal(seqs[1], []byte{3, 3, 4}) {
		t.Fatalf("Second sequence encoded as %v", seqs[1])
	}
}

func TestInsertModes(t *testing.T) {
	seqs := [][]byte{{1, 2, 3}, {3, 3}}
	for _, mode := range []string{"rlo", "io", "multi"} {
		r := rope.New(4, 32)
		if err := insert(r, mode, seqs); err != nil {
			t.Fatalf("insert mode %s: %v", mode, err)
		}
		if r.TotalLen() != 7 {
			t.Fatalf("Mode %s stored %d symbols, want 7", mode, r.TotalLen())
		}
		if r.Counts()[0] != 2 {
			t.Fatalf("Mode %s stored %d sentinels, want 2", mode, r.Counts()[0])
		}
	}
	if err := insert(rope.New(4, 32), "bogus", seqs); err == nil {
		t.Fatal("Expected an error for an unknown mode")
	}
}

func TestPrintStats(t *testing.T) {
	r := rope.New(4, 32)
	if err := r.InsertStringRLO([]byte{1, 2, 3}); err != nil {
		t.Fatalf("InsertStringRLO: %v", err)
	}
	var buf bytes.Buffer
	printStats(&buf, r.Stats())
	out := buf.String()
	for _, want := range []string{"symbols: 4", "depth:", "max_nodes=4", "block_len=32"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Fatalf("Stats output missing %q:\n%s", want, out)
		}
	}
}
