package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"readtrac/internal/app"
	"readtrac/internal/config"
	"readtrac/internal/logging"
)

type rootOptions struct {
	configPath string
	noMigrate  bool
	jsonOut    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "readtrac",
		Short:         "Track your reading and get book recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnvFiles()
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Logging.Format == "" && term.IsTerminal(int(os.Stderr.Fd())) {
				cfg.Logging.Format = "console"
			}
			logging.Init(cfg.Logging)
			opts.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file (default $CONFIG_PATH or ./readtrac.yaml)")
	flags.BoolVar(&opts.noMigrate, "no-migrate", false, "do not apply pending migrations before running")
	flags.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newBooksCmd(opts),
		newReviewsCmd(opts),
		newRecommendCmd(opts),
		newCatalogCmd(opts),
		newSeedCmd(opts),
		newAuthCmd(),
	)
	return root
}

// withApp builds the application, applies pending migrations unless
// --no-migrate is set, and closes everything once fn returns.
func (o *rootOptions) withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.New(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if !o.noMigrate {
		if err := a.Migrate(ctx, "up"); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return fn(ctx, a)
}
