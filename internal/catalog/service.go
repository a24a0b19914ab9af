// Package catalog exposes external catalog search and import into the library.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"readtrac/internal/book"
	"readtrac/internal/logging"
	"readtrac/internal/platform/googlebooks"
)

//go:generate mockgen -source=service.go -destination=mock_service.go -package=catalog

var (
	// ErrDisabled is returned when no catalog client is configured.
	ErrDisabled = errors.New("catalog disabled")
	// ErrNotFound is returned when the catalog has no such volume.
	ErrNotFound = errors.New("catalog volume not found")
	// ErrUnavailable is returned when the catalog cannot be reached.
	ErrUnavailable = errors.New("catalog unavailable")
	ErrEmptyQuery  = errors.New("query is required")
)

const (
	DefaultLimit = 10
	MaxLimit     = 40
)

// Searcher is the external catalog.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]book.Book, error)
	Volume(ctx context.Context, id string) (book.Book, error)
}

// Importer stores catalog results in the library.
type Importer interface {
	ImportFromCatalog(ctx context.Context, external book.Book) (book.Book, error)
}

type Service struct {
	catalog Searcher
	books   Importer
}

// NewService returns a catalog service. A nil searcher disables every call.
func NewService(catalog Searcher, books Importer) *Service {
	return &Service{catalog: catalog, books: books}
}

// Enabled reports whether a catalog client is configured.
func (s *Service) Enabled() bool {
	return s.catalog != nil
}

// Search runs a free-text query against the catalog.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]book.Book, error) {
	if s.catalog == nil {
		return nil, ErrDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	found, err := s.catalog.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, classify(err))
	}
	return found, nil
}

// Import fetches a volume and saves it into the library. Importing the same
// volume twice returns the stored book.
func (s *Service) Import(ctx context.Context, externalID string) (book.Book, error) {
	if s.catalog == nil {
		return book.Book{}, ErrDisabled
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return book.Book{}, ErrNotFound
	}

	v, err := s.catalog.Volume(ctx, externalID)
	if err != nil {
		return book.Book{}, fmt.Errorf("fetch volume %s: %w", externalID, classify(err))
	}
	b, err := s.books.ImportFromCatalog(ctx, v)
	if err != nil {
		return book.Book{}, err
	}
	logging.Ctx(ctx).Info().Int64("book_id", b.ID).Str("external_id", externalID).Msg("catalog volume imported")
	return b, nil
}

// classify maps client failures onto this package's errors. Anything other
// than a missing volume or caller cancellation is an upstream outage.
func classify(err error) error {
	switch {
	case errors.Is(err, googlebooks.ErrNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errors.Join(ErrUnavailable, err)
	}
}
