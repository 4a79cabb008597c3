// Command statectl is the operator surface over the versioned state
// storage engine: inspecting stale nodes, recovering from the recycle
// bin, and importing/exporting state snapshots.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rooch-network/rooch-sub004/config"
	"github.com/rooch-network/rooch-sub004/store"
)

var (
	v      = viper.GetViper()
	cfg    *config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "statectl",
		Short:         "operator tooling for the versioned state storage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cmd, v)
			if err != nil {
				return err
			}
			cfg = loaded
			verbose, _ := cmd.Flags().GetBool("verbose")
			l, err := config.NewLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
	config.AddFlags(root, v)
	config.AddConfigFlag(root)
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")

	root.AddCommand(newDBCmd())
	root.AddCommand(newIndexerCmd())
	root.AddCommand(newDACmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "statectl:", err)
		os.Exit(1)
	}
}

func openNetworkStore() (*store.PebbleStore, error) {
	dir := cfg.DataDir + "/" + cfg.Network
	return store.OpenPebble(dir)
}
