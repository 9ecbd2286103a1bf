// Package export handles the CSV export command.
package export

import (
	"os"

	"github.com/spf13/cobra"

	"ledgerpipe/cmd/root"
	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/report"
)

// Cmd represents the export command.
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's transactions to CSV",
	Run:   exportFunc,
}

func exportFunc(cmd *cobra.Command, args []string) {
	ctx := root.ContextOrBackground(cmd)

	txs, err := root.AppContainer.Store().ListTransactions(ctx, root.Flags.User)
	if err != nil {
		root.Exit("failed to load transactions", err)
	}

	out := os.Stdout
	if root.Flags.Output != "" {
		f, err := os.Create(root.Flags.Output)
		if err != nil {
			root.Exit("failed to create output file", err)
		}
		defer f.Close()
		out = f
	}

	if err := report.WriteCSV(out, txs); err != nil {
		root.Exit("failed to write CSV", err)
	}

	root.Log.Info("export complete",
		logging.Field{Key: "transactions", Value: len(txs)},
		logging.Field{Key: "output", Value: root.Flags.Output})
}
