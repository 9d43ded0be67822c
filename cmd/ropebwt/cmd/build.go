package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ldenti/ropebwt2/pkg/rope"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build [file...]",
	Short: "Build the BWT of the given sequences",
	Long: `Build the Burrows-Wheeler Transform of plain-text sequence files
(one ACGTN sequence per line; bases outside ACGT fold to N) and print it as
$ACGTN text. With no file arguments, sequences are read from stdin.

Example:
  ropebwt build --mode multi reads.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		withStats, _ := cmd.Flags().GetBool("stats")

		seqs, err := readSequences(args)
		if err != nil {
			return err
		}
		if len(seqs) == 0 {
			return fmt.Errorf("no sequences to index")
		}

		r := rope.New(cfg.Rope.MaxNodes, cfg.Rope.BlockLen)
		if err := insert(r, mode, seqs); err != nil {
			return err
		}

		out := bufio.NewWriter(cmd.OutOrStdout())
		out.Write(rope.DecodeSeq(r.Bytes()))
		out.WriteByte('\n')
		if withStats {
			printStats(out, r.Stats())
		}
		return out.Flush()
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringP("mode", "m", "rlo", "Insertion mode: rlo, io or multi")
	buildCmd.Flags().Bool("stats", false, "Print structural statistics after the transform")
}

// readSequences loads one sequence per line from the given files, or from
// stdin when none are given. Blank lines are skipped.
func readSequences(paths []string) ([][]byte, error) {
	var readers []io.Reader
	if len(paths) == 0 {
		readers = append(readers, os.Stdin)
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", p, err)
		}
		defer f.Close()
		readers = append(readers, f)
	}

	var seqs [][]byte
	for _, rd := range readers {
		sc := bufio.NewScanner(rd)
		sc.Buffer(make([]byte, 1<<20), 1<<26)
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			seqs = append(seqs, rope.EncodeSeq(line))
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	return seqs, nil
}

func insert(r *rope.Rope, mode string, seqs [][]byte) error {
	switch mode {
	case "multi":
		var buf []byte
		for _, s := range seqs {
			buf = append(buf, s...)
			buf = append(buf, 0)
		}
		return r.InsertMulti(buf)
	case "io":
		for _, s := range seqs {
			if err := r.InsertString(s); err != nil {
				return err
			}
		}
		return nil
	case "rlo":
		for _, s := range seqs {
			if err := r.InsertStringRLO(s); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown insertion mode: %s", mode)
	}
}

func printStats(w io.Writer, st rope.Stats) {
	fmt.Fprintf(w, "symbols: %d\n", st.TotalLen)
	for a := 0; a < rope.NumSymbols; a++ {
		fmt.Fprintf(w, "  %c: %d\n", rope.Alphabet[a], st.Counts[a])
	}
	fmt.Fprintf(w, "depth: %d\nleaves: %d\nbuckets: %d\n", st.Depth, st.Leaves, st.Buckets)
	fmt.Fprintf(w, "geometry: max_nodes=%d block_len=%d\n", st.MaxNodes, st.BlockLen)
}
