package cmd

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldenti/ropebwt2/pkg/rope"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats [file...]",
	Short: "Index sequences and print structural statistics",
	Long: `Index the given sequences (one ACGTN sequence per line; stdin when no
files are given) and print symbol counts and tree statistics without emitting
the transform itself.

Example:
  ropebwt stats --mode multi reads.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")

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
		printStats(out, r.Stats())
		return out.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("mode", "m", "multi", "Insertion mode: rlo, io or multi")
}
