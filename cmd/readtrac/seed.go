package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"readtrac/internal/app"
	"readtrac/internal/book"
	"readtrac/internal/logging"
)

var (
	seedGenres  = []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Fantasy"}
	seedAuthors = []string{"Ursula K. Le Guin", "Terry Pratchett", "Mary Beard", "Carl Sagan", "Agatha Christie", "Jane Austen", "Iain M. Banks", "Hilary Mantel"}
	seedWords   = []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the library with generated sample books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("count must be positive")
			}
			rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				for i := range count {
					b := sampleBook(rng, i)
					if err := a.Books.Create(ctx, &b); err != nil {
						return fmt.Errorf("seed book %d: %w", i+1, err)
					}
					if (i+1)%100 == 0 {
						logging.Info().Int("done", i+1).Int("total", count).Msg("seeding")
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "inserted %d books\n", count)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 25, "number of books to generate")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	return cmd
}

// sampleBook returns a book with a mix of wishlist, reading and finished
// states; finished books are usually rated.
func sampleBook(rng *rand.Rand, i int) book.Book {
	pick := func(s []string) string { return s[rng.IntN(len(s))] }

	b := book.Book{
		Title:  fmt.Sprintf("The %s of %s", pick(seedWords), pick(seedWords)),
		Author: pick(seedAuthors),
		Genre:  pick(seedGenres),
	}
	if i%7 == 0 {
		b.Genre = ""
	}

	switch rng.IntN(3) {
	case 0:
		b.Progress = 0
	case 1:
		b.Progress = float64(1+rng.IntN(99)) / 100
	default:
		b.Progress = 1
		if rng.IntN(4) > 0 {
			r := float64(rng.IntN(11)) / 2
			b.Rating = &r
		}
	}
	pages := 100 + rng.IntN(800)
	b.PageCount = &pages
	b.PublishedDate = fmt.Sprintf("%d", 1950+rng.IntN(75))
	return b
}
