package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"readtrac/internal/app"
	"readtrac/internal/book"
)

func newBooksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"book"},
		Short:   "List and edit books in your library",
	}
	cmd.AddCommand(
		newBooksListCmd(opts),
		newBooksAddCmd(opts),
		newBooksProgressCmd(opts),
		newBooksRateCmd(opts),
		newBooksDeleteCmd(opts),
	)
	return cmd
}

func newBooksListCmd(opts *rootOptions) *cobra.Command {
	var q book.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Status = strings.ToUpper(q.Status)
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				books, err := a.Books.List(ctx, q)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), books)
				}
				return printBooks(cmd.OutOrStdout(), books)
			})
		},
	}
	cmd.Flags().StringVarP(&q.Q, "query", "q", "", "match title or author")
	cmd.Flags().StringVar(&q.Genre, "genre", "", "exact genre, case-insensitive")
	cmd.Flags().StringVar(&q.Status, "status", "", "wishlist, reading or finished")
	return cmd
}

func newBooksAddCmd(opts *rootOptions) *cobra.Command {
	var (
		b      book.Book
		rating float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("rating") {
				b.Rating = &rating
			}
			b.Progress = book.ClampProgress(b.Progress)
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Books.Create(ctx, &b); err != nil {
					return err
				}
				return report(cmd, opts, b, fmt.Sprintf("added book %d: %s", b.ID, b.Title))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&b.Title, "title", "", "book title")
	f.StringVar(&b.Author, "author", "", "book author")
	f.StringVar(&b.Genre, "genre", "", "genre")
	f.StringVar(&b.Notes, "notes", "", "free-text notes")
	f.Float64Var(&b.Progress, "progress", 0, "reading progress between 0 and 1")
	f.Float64Var(&rating, "rating", 0, "rating between 0 and 5")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}

func newBooksProgressCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id> <fraction>",
		Short: "Record reading progress (0 to 1, values outside are clamped)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid progress %q", args[1])
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				b, err := a.Books.UpdateProgress(ctx, id, p)
				if err != nil {
					return err
				}
				return report(cmd, opts, b, fmt.Sprintf("%s: %.0f%% (%s)", b.Title, b.Progress*100, b.Status()))
			})
		},
	}
}

func newBooksRateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <rating|none>",
		Short: "Rate a book from 0 to 5, or clear the rating with none",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var rating *float64
			if !strings.EqualFold(args[1], "none") {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid rating %q", args[1])
				}
				rating = &v
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				b, err := a.Books.UpdateRating(ctx, id, rating)
				if err != nil {
					return err
				}
				return report(cmd, opts, b, fmt.Sprintf("%s: rating %s", b.Title, formatRating(b.Rating)))
			})
		},
	}
}

func newBooksDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book and its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Books.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted book %d\n", id)
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// report prints v as JSON under --json, otherwise the one-line summary.
func report(cmd *cobra.Command, opts *rootOptions, v any, summary string) error {
	if opts.jsonOut {
		return printJSON(cmd.OutOrStdout(), v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), summary)
	return err
}
