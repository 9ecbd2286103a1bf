// Package rules handles category rule management commands.
package rules

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"ledgerpipe/cmd/root"
	"ledgerpipe/internal/logging"
	"ledgerpipe/internal/rulestore"
)

// Cmd represents the rules command.
var Cmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage category rules",
}

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load category rules from a YAML seed file into storage",
	Args:  cobra.MaximumNArgs(1),
	Run:   seedFunc,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's category rules",
	Run:   listFunc,
}

func init() {
	Cmd.AddCommand(seedCmd)
	Cmd.AddCommand(listCmd)
}

func seedFunc(cmd *cobra.Command, args []string) {
	path := root.Cfg.Rules.SeedFile
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		root.Exit("no seed file given and rules.seed_file is not configured", nil)
	}

	loaded, err := rulestore.LoadSeedFile(path, root.Flags.User, root.Log)
	if err != nil {
		root.Exit("failed to load rule seed file", err)
	}
	if len(loaded) == 0 {
		root.Log.Warn("seed file contained no usable rules",
			logging.Field{Key: "path", Value: path})
		return
	}

	if err := root.AppContainer.Store().SaveRules(root.ContextOrBackground(cmd), loaded); err != nil {
		root.Exit("failed to save rules", err)
	}

	root.Log.Info("rules seeded",
		logging.Field{Key: "path", Value: path},
		logging.Field{Key: "rules", Value: len(loaded)})
}

func listFunc(cmd *cobra.Command, args []string) {
	list, err := root.AppContainer.Store().ListRules(root.ContextOrBackground(cmd), root.Flags.User)
	if err != nil {
		root.Exit("failed to load rules", err)
	}

	out, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		root.Exit("failed to encode rules", err)
	}
	os.Stdout.Write(append(out, '\n'))
}
