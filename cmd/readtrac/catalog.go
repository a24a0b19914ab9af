package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readtrac/internal/app"
	"readtrac/internal/catalog"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Search Google Books and import results",
	}
	cmd.AddCommand(newCatalogSearchCmd(opts), newCatalogImportCmd(opts))
	return cmd
}

func newCatalogSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				found, err := a.Catalog.Search(ctx, strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), found)
				}
				tw := newTable(cmd.OutOrStdout(), "CATALOG ID", "TITLE", "AUTHOR", "GENRE", "RATING", "PUBLISHED")
				for _, b := range found {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						b.ExternalID, truncate(b.Title, 50), truncate(b.Author, 30), dash(b.Genre), formatRating(b.Rating), dash(b.PublishedDate))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", catalog.DefaultLimit, "maximum results (up to 40)")
	return cmd
}

func newCatalogImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog-id>",
		Short: "Add a catalog volume to your library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				b, err := a.Catalog.Import(ctx, args[0])
				if err != nil {
					return err
				}
				return report(cmd, opts, b, fmt.Sprintf("imported %q as book %d", b.Title, b.ID))
			})
		},
	}
}
