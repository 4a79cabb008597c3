package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDACmd is a placeholder for the transaction-history repair tool. It
// is not state-related and belongs to the DA/transaction-history
// component, an external collaborator this engine only reads through
// gc.TxHistory — nothing here touches the node store.
func newDACmd() *cobra.Command {
	cmd := &cobra.Command{Use: "da", Short: "transaction-history/DA tooling (external collaborator, not implemented here)"}
	cmd.AddCommand(&cobra.Command{
		Use:   "repair",
		Short: "repair transaction history (stub: owned by the DA component)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("da repair is owned by the transaction-history component and is not implemented in this engine")
		},
	})
	return cmd
}
