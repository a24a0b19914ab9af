package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readtrac/internal/book"
	"readtrac/internal/catalog"
	"readtrac/internal/platform/crypto"
	"readtrac/internal/recommend"
	"readtrac/internal/review"
)

// setup points the CLI at a fresh SQLite file with the catalog disabled.
func setup(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("READTRAC_DATABASE_DRIVER", "sqlite")
	t.Setenv("READTRAC_DATABASE_PATH", filepath.Join(dir, "readtrac.db"))
	t.Setenv("READTRAC_CATALOG_ENABLED", "false")
	t.Setenv("READTRAC_LOGGING_LEVEL", "disabled")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func TestBooksCommands(t *testing.T) {
	setup(t)

	out := mustRun(t, "books", "add", "--title", "Dune", "--author", "Frank Herbert", "--genre", "Science Fiction")
	assert.Contains(t, out, "added book 1: Dune")
	mustRun(t, "books", "add", "--title", "Emma", "--author", "Jane Austen", "--rating", "4.5", "--progress", "1")

	out = mustRun(t, "books", "progress", "1", "0.25")
	assert.Contains(t, out, "Dune: 25% (READING)")

	out = mustRun(t, "books", "rate", "2", "none")
	assert.Contains(t, out, "Emma: rating -")

	var books []book.Book
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--json", "books", "list", "--status", "reading")), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)

	out = mustRun(t, "books", "list")
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Emma")

	_, err := run(t, "", "books", "rate", "1", "9")
	assert.ErrorIs(t, err, book.ErrInvalidRating)

	mustRun(t, "books", "delete", "2")
	_, err = run(t, "", "books", "delete", "2")
	assert.ErrorIs(t, err, book.ErrNotFound)

	_, err = run(t, "", "books", "progress", "abc", "0.5")
	assert.ErrorContains(t, err, "invalid id")
}

func TestReviewsCommands(t *testing.T) {
	setup(t)
	mustRun(t, "books", "add", "--title", "Dune", "--author", "Frank Herbert")

	out := mustRun(t, "reviews", "add", "1", "Worth", "the", "sand", "--public")
	assert.Contains(t, out, "added review 1 for book 1")

	var reviews []review.Review
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--json", "reviews", "list", "--public")), &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, "Worth the sand", reviews[0].Text)

	_, err := run(t, "", "reviews", "add", "42", "orphan")
	assert.ErrorIs(t, err, review.ErrBookNotFound)
}

func TestRecommendWithoutCatalog(t *testing.T) {
	setup(t)

	out := mustRun(t, "recommend")
	assert.Contains(t, out, "source: none")

	mustRun(t, "books", "add", "--title", "Emma", "--author", "Jane Austen", "--genre", "Romance", "--rating", "5", "--progress", "1")
	var res recommend.Result
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--json", "recommend", "-n", "3")), &res))
	assert.Equal(t, recommend.SourceLibrary, res.Source)
	assert.Empty(t, res.Books)
}

func TestCatalogDisabled(t *testing.T) {
	setup(t)
	_, err := run(t, "", "catalog", "search", "dune")
	assert.ErrorIs(t, err, catalog.ErrDisabled)
}

func TestSeedCommand(t *testing.T) {
	setup(t)
	out := mustRun(t, "seed", "--count", "12", "--seed", "7")
	assert.Contains(t, out, "inserted 12 books")

	var books []book.Book
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--json", "books", "list")), &books))
	assert.Len(t, books, 12)
	for _, b := range books {
		assert.NoError(t, b.Validate())
	}
}

func TestMigrateCommands(t *testing.T) {
	setup(t)
	mustRun(t, "migrate", "up")
	mustRun(t, "migrate", "version")
	mustRun(t, "migrate", "status")
}

func TestAuthHashPassword(t *testing.T) {
	out, err := run(t, "correct horse battery\n", "auth", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.True(t, crypto.VerifyPassword(hash, "correct horse battery"))

	_, err = run(t, "short\n", "auth", "hash-password")
	assert.ErrorIs(t, err, crypto.ErrPasswordTooShort)
}
