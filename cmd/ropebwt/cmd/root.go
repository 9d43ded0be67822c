package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ldenti/ropebwt2/pkg/config"
)

// cfg is resolved once before any subcommand runs.
var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ropebwt",
	Short: "ropebwt - incremental BWT construction over a run-length B+ rope",
	Long: `ropebwt builds and serves Burrows-Wheeler Transforms of DNA sequences
using a dynamic rank-queryable rope: a B+ tree of run-length-encoded leaves
over the $ACGTN alphabet.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path != "" && config.ConfigExists(path) {
			loaded, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			cfg = loaded
		} else {
			cfg = config.DefaultConfig()
		}
		if v, _ := cmd.Flags().GetInt("max-nodes"); v != 0 {
			cfg.Rope.MaxNodes = v
		}
		if v, _ := cmd.Flags().GetInt("block-len"); v != 0 {
			cfg.Rope.BlockLen = v
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().Int("max-nodes", 0, "Bucket branching factor (even, >= 4)")
	rootCmd.PersistentFlags().Int("block-len", 0, "Leaf block capacity in bytes")
}
