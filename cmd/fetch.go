package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/poewiki-assets/internal/asset"
)

// newFetchCmd creates the 'fetch' subcommand, which resolves every configured
// request. Individual asset failures are logged and never change the exit code.
// The root command runs the same batch when invoked without a subcommand.
func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "fetch",
		Short:   "Copies or renders every configured asset into the output directory",
		PreRunE: buildApp,
		RunE:    runFetchCommand,
		PostRun: closeApp,
	}
}

// buildApp constructs the App from the loaded config and stores it in the
// command context.
func buildApp(cmd *cobra.Command, _ []string) error {
	cfg, err := configFrom(cmd.Context())
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
	return nil
}

func closeApp(cmd *cobra.Command, _ []string) {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return
	}
	// The run context may already be canceled by a signal.
	if err := a.Close(context.WithoutCancel(cmd.Context())); err != nil {
		a.Logger().Warn("shutdown failed", zap.Error(err))
	}
}

func runFetchCommand(cmd *cobra.Command, _ []string) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}
	summary := asset.Summarize(a.Run(cmd.Context()))
	fmt.Fprintf(cmd.OutOrStdout(), "cached=%d fetched=%d failed=%d\n", summary.Cached, summary.Fetched, summary.Failed)
	return nil
}
