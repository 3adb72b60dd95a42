package commands

import (
	"context"

	"github.com/spf13/cobra"
)

const appName = "handoff"

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Bounded producer/consumer hand-off",
		Long: `handoff moves a finite stream of items from producers to consumers through a
bounded buffer and stops every worker once the stream is exhausted.

Settings can be provided as HANDOFF_* environment variables, a YAML file and flags.
Flags take precedence over the file, the file over the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "YAML settings file")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("log-dev", false, "human-readable development logs")

	cmd.AddCommand(newRunCmd())

	return cmd
}
