package main

import (
	"context"

	"github.com/spf13/cobra"

	"readtrac/internal/app"
	"readtrac/internal/logging"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Server.Addr = addr
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if !opts.cfg.Auth.Enabled() {
					logging.Warn().Msg("owner auth not configured, mutating routes are open")
				}
				return a.Serve(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
