// Package quota handles the quota query command.
package quota

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"ledgerpipe/cmd/root"
)

// Cmd represents the quota command.
var Cmd = &cobra.Command{
	Use:   "quota",
	Short: "Show the current month's AI extraction quota",
	Run:   quotaFunc,
}

func quotaFunc(cmd *cobra.Command, args []string) {
	status, err := root.AppContainer.QuotaService().Status(root.ContextOrBackground(cmd), root.Flags.User)
	if err != nil {
		root.Exit("failed to query quota", err)
	}

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		root.Exit("failed to encode quota status", err)
	}
	os.Stdout.Write(append(out, '\n'))
}
