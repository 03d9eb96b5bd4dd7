// Package cmd defines the CLI commands for the poewiki-assets executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/poewiki-assets/internal/app"
	"github.com/JakeFAU/poewiki-assets/internal/asset"
	"github.com/JakeFAU/poewiki-assets/internal/config"
)

// ctxKey is the type for values stored in the command context.
type ctxKey string

const (
	configKey ctxKey = "config"
	appKey    ctxKey = "app"
)

// App is the part of *app.App the commands use. Tests swap in a fake.
type App interface {
	Run(ctx context.Context) []asset.Result
	Logger() *zap.Logger
	Close(ctx context.Context) error
}

// newApp is the application factory; a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		dev     bool
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "poewiki-assets",
		Short: "Collects passive node, item and skill images from the Path of Exile wiki.",
		Long: `poewiki-assets resolves every configured node, item and skill name to an
image in the output directory. Names already present in the local asset cache
are copied; everything else is rendered from its poewiki.net page and added to
the cache for the next run.`,
		SilenceUsage: true,

		// Loads configuration before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("dev") {
				cfg.Logging.Development = dev
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.Mirror.DryRun = dryRun
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},

		// Without a subcommand the root runs the fetch batch.
		PreRunE: buildApp,
		RunE:    runFetchCommand,
		PostRun: closeApp,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
	cmd.PersistentFlags().BoolVar(&dev, "dev", false, "use the development logger")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "keep mirror uploads in memory instead of writing them")

	cmd.AddCommand(newFetchCmd(), newIndexCmd())
	return cmd
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func configFrom(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(configKey).(config.Config)
	if !ok {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

func appFrom(ctx context.Context) (App, error) {
	a, ok := ctx.Value(appKey).(App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}
