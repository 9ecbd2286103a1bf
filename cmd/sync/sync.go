// Package sync handles the provider sync command.
package sync

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"ledgerpipe/cmd/root"
	syncer "ledgerpipe/internal/sync"
)

var (
	tokenFlag   string
	accountFlag string
)

// Cmd represents the sync command.
var Cmd = &cobra.Command{
	Use:   "sync <provider>",
	Short: "Pull transactions from a connected account provider",
	Long: `Pull new transactions from a connected account provider (mercadopago,
wise), normalize them, and persist everything that is not already known.`,
	Args: cobra.ExactArgs(1),
	Run:  syncFunc,
}

func init() {
	Cmd.Flags().StringVar(&tokenFlag, "token", "", "Provider access token (or set via environment)")
	Cmd.Flags().StringVar(&accountFlag, "account", "", "Provider-side account identifier")
}

func syncFunc(cmd *cobra.Command, args []string) {
	provider := args[0]

	token := tokenFlag
	if token == "" {
		token = os.Getenv("LEDGERPIPE_SYNC_TOKEN")
	}
	if token == "" {
		root.Exit("missing provider access token", nil)
	}

	result := root.AppContainer.Syncer().Run(
		root.ContextOrBackground(cmd), root.Flags.User, provider,
		syncer.Credentials{AccessToken: token, AccountID: accountFlag})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		root.Exit("failed to encode result", err)
	}
	os.Stdout.Write(append(out, '\n'))

	if !result.Success {
		os.Exit(1)
	}
}
