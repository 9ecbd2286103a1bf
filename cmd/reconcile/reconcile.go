// Package reconcile handles the currency backfill command.
package reconcile

import (
	"github.com/spf13/cobra"

	"ledgerpipe/cmd/root"
	"ledgerpipe/internal/logging"
)

// Cmd represents the reconcile command.
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Retry currency conversion for unconverted transactions",
	Long: `Find persisted transactions that still lack a reference-currency amount
and retry their conversion with the current rate cache.`,
	Run: reconcileFunc,
}

func reconcileFunc(cmd *cobra.Command, args []string) {
	converted, remaining, err := root.AppContainer.Reconciler().Run(root.ContextOrBackground(cmd))
	if err != nil {
		root.Exit("reconciliation failed", err)
	}

	root.Log.Info("reconciliation complete",
		logging.Field{Key: "converted", Value: converted},
		logging.Field{Key: "remaining", Value: remaining})
}
