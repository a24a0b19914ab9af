package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"readtrac/internal/app"
	"readtrac/internal/recommend"
)

func newRecommendCmd(opts *rootOptions) *cobra.Command {
	var (
		limit    int
		category string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest books based on what you have read and rated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Recommend.Recommend(ctx, limit, category)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), res)
				}

				out := cmd.OutOrStdout()
				if len(res.Books) == 0 {
					fmt.Fprintf(out, "no recommendations (source: %s)\n", res.Source)
					return nil
				}
				tw := newTable(out, "#", "TITLE", "AUTHOR", "GENRE", "RATING", "WHY", "CATALOG ID")
				for i, p := range res.Books {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
						i+1, p.Title, p.Author, dash(p.Genre), formatRating(p.Rating), p.Reason, dash(p.ExternalID))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nsource: %s\n", res.Source)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", recommend.DefaultLimit, "number of books to suggest")
	cmd.Flags().StringVar(&category, "category", "", "catalog subject to draw candidates from")
	return cmd
}
