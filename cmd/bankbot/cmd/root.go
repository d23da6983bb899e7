package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankbot/internal/cli"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	envFiles []string
}

// newRootCmd builds the command tree. Tests build their own tree so flag
// state never leaks between runs.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "bankbot",
		Short: "Bank transaction notifier",
		Long: `bankbot polls bank accounts through the GoCardless Bank Account Data API
and posts newly booked transactions, monthly spent/earned totals and the
current balance to a Slack channel.

Examples:
  bankbot bot
  bankbot bot --accounts "Checking:3fa85f64-...,Savings:7c9e6679-..." --channel "#bank"
  bankbot renew --institution-id REVOLUT_REVOGB21`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			cli.LoadEnvFile(opts.envFiles...)
		},
	}

	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv file(s) to load (default .env)")

	root.AddCommand(newBotCmd(), newRenewCmd())
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return newRootCmd().Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}
