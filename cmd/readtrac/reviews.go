package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readtrac/internal/app"
	"readtrac/internal/review"
)

func newReviewsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reviews",
		Aliases: []string{"review"},
		Short:   "Read and write book reviews",
	}
	cmd.AddCommand(newReviewsListCmd(opts), newReviewsAddCmd(opts))
	return cmd
}

func newReviewsListCmd(opts *rootOptions) *cobra.Command {
	var (
		bookID     int64
		publicOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var (
					reviews []review.Review
					err     error
				)
				switch {
				case bookID > 0:
					reviews, err = a.Reviews.ListForBook(ctx, bookID)
				case publicOnly:
					reviews, err = a.Reviews.ListPublic(ctx)
				default:
					reviews, err = a.Reviews.ListAll(ctx)
				}
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), reviews)
				}

				tw := newTable(cmd.OutOrStdout(), "ID", "BOOK", "PUBLIC", "CREATED", "TEXT")
				for _, r := range reviews {
					fmt.Fprintf(tw, "%d\t%d\t%t\t%s\t%s\n",
						r.ID, r.BookID, r.IsPublic, r.CreatedAt.Local().Format("2006-01-02"), truncate(r.Text, 60))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().Int64Var(&bookID, "book", 0, "only reviews of this book id")
	cmd.Flags().BoolVar(&publicOnly, "public", false, "only public reviews")
	return cmd
}

func newReviewsAddCmd(opts *rootOptions) *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "add <book-id> <text...>",
		Short: "Write a review for a book",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				r, err := a.Reviews.Create(ctx, bookID, text, public)
				if err != nil {
					return err
				}
				return report(cmd, opts, r, fmt.Sprintf("added review %d for book %d", r.ID, r.BookID))
			})
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "make the review public")
	return cmd
}
