package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "riskctl",
		Short:         "Query the QuakePredictEC risk backend from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.backendURL, "backend", envOr("RISK_BACKEND_URL", "http://localhost:8000"), "risk backend base URL")
	flags.DurationVar(&opts.timeout, "timeout", 0, "fetch timeout (0 = none)")
	flags.Float64Var(&opts.threshold, "threshold", 0, "alert threshold (default 0.70)")

	cmd.AddCommand(
		newFetchCommand(opts),
		newAlertsCommand(opts),
		newExportCommand(opts),
	)
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
