package commands

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// NewRootCommand creates the backoffice command tree sharing rt
func NewRootCommand(version string, rt *Runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "backoffice",
		Short: "Command line client for the restaurant back-office API",
		Long: `Command line client for the restaurant back-office REST API.

Requests carry the stored session token, transient failures of idempotent
requests are retried with exponential backoff and every failure is reported
with a stable error kind.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(rt.Stdout)
	rootCmd.SetErr(rt.Stderr)
	rootCmd.PersistentFlags().StringVarP(&rt.ConfigPath, "config", "c", "", "Path to the YAML config file")

	rootCmd.AddCommand(
		NewLoginCommand(rt),
		NewLogoutCommand(rt),
		NewWhoamiCommand(rt),
		NewVersionCommand(version),
	)
	rootCmd.AddCommand(NewRequestCommands(rt)...)

	return rootCmd
}

// Execute runs the command tree with args and releases the runtime afterwards,
// whether or not the command succeeded.
func Execute(ctx context.Context, version string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	rt := NewRuntime(stdout, stderr)
	rootCmd := NewRootCommand(version, rt)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)

	runErr := rootCmd.ExecuteContext(ctx)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, rt.Close(closeCtx))
}
