// Package root contains the root command and the shared state the verb
// commands reach for.
package root

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ledgerpipe/internal/config"
	"ledgerpipe/internal/container"
	"ledgerpipe/internal/logging"
)

// SharedFlags are the flags common to multiple commands.
type SharedFlags struct {
	User     string
	Output   string
	Currency string
}

var (
	// Log is the shared logger for commands.
	Log logging.Logger = logging.NewLogrusAdapterFromLogger(logrus.New())

	// Cfg is the loaded configuration, set by PersistentPreRun.
	Cfg *config.Config

	// AppContainer is the wired application, set by PersistentPreRun.
	AppContainer *container.Container

	// Flags holds the common flag values.
	Flags = SharedFlags{}

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "ledgerpipe",
		Short: "Ingest bank statements and account feeds into one transaction ledger.",
		Long: `ledgerpipe ingests financial transactions from uploaded bank statements
(PDF, CSV, XLSX, CAMT.053) and from connected account providers, and
normalizes everything into a single categorized, currency-converted
transaction schema.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			Cfg = cfg
			Log = logging.NewLogrusAdapterFromLogger(config.ConfigureLogging(cfg))

			c, err := container.New(cmd.Context(), cfg, Log)
			if err != nil {
				return err
			}
			AppContainer = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if AppContainer != nil {
				if err := AppContainer.Close(); err != nil {
					Log.WithError(err).Warn("failed to close application container")
				}
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("use --help to see available commands")
		},
	}
)

// Init registers the persistent flags.
func Init() {
	Cmd.PersistentFlags().StringVarP(&Flags.User, "user", "u", "default", "User the operation runs as")
	Cmd.PersistentFlags().StringVarP(&Flags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().StringVarP(&Flags.Currency, "currency", "c", "", "Native currency override for documents")
}

// ContextOrBackground returns the command context, falling back to the
// background context.
func ContextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Exit logs a fatal error and terminates.
func Exit(msg string, err error) {
	Log.WithError(err).Error(msg)
	os.Exit(1)
}
