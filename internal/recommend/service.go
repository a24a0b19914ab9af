package recommend

import (
	"context"
	"fmt"
	"strings"

	"readtrac/internal/book"
	"readtrac/internal/logging"
	"readtrac/internal/metrics"
)

// Candidate sources reported in Result.
const (
	SourceCatalog = "catalog"
	SourceLibrary = "library"
	SourceNone    = "none"
)

// Genre searched for readers with an empty library when no category is given.
const starterGenre = "fiction"

// Minimum number of catalog candidates requested per recommendation.
const minCatalogPool = 20

// HistoryLoader returns a snapshot of the reader's library.
type HistoryLoader interface {
	ListAll(ctx context.Context) ([]book.Book, error)
}

// CatalogSource searches the external catalog by subject.
type CatalogSource interface {
	SearchBySubject(ctx context.Context, subject string, limit int) ([]book.Book, error)
}

// Result is a recommendation list and where its candidates came from.
type Result struct {
	Books  []Pick `json:"books"`
	Source string `json:"source"`
}

type Service struct {
	history HistoryLoader
	catalog CatalogSource
	metrics metrics.Recorder
}

// NewService wires the pipeline. catalog may be nil, in which case the
// reader's own library is the only candidate pool.
func NewService(history HistoryLoader, catalog CatalogSource, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{history: history, catalog: catalog, metrics: rec}
}

// Recommend loads the library, gathers candidates and ranks them. Catalog
// failures degrade to ranking within the library and are never returned.
func (s *Service) Recommend(ctx context.Context, limit int, category string) (Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	category = strings.TrimSpace(category)

	history, err := s.history.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load history: %w", err)
	}

	var res Result
	if len(history) == 0 {
		res = s.starter(ctx, limit, category)
	} else {
		res = s.ranked(ctx, history, limit, category)
	}

	reasons := make([]string, len(res.Books))
	for i, p := range res.Books {
		reasons[i] = p.Reason
	}
	s.metrics.RecordRecommendation(res.Source, reasons)
	logging.Ctx(ctx).Debug().
		Str("source", res.Source).
		Int("history", len(history)).
		Int("count", len(res.Books)).
		Msg("recommendations computed")
	return res, nil
}

// starter serves a reader with an empty library straight from the catalog.
func (s *Service) starter(ctx context.Context, limit int, category string) Result {
	if s.catalog == nil {
		return Result{Books: []Pick{}, Source: SourceNone}
	}
	subject := category
	if subject == "" {
		subject = starterGenre
	}
	found, err := s.catalog.SearchBySubject(ctx, subject, limit)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("subject", subject).Msg("catalog unavailable for starter recommendations")
		return Result{Books: []Pick{}, Source: SourceNone}
	}

	picks := make([]Pick, 0, min(limit, len(found)))
	seen := make(map[string]struct{}, len(found))
	for _, b := range found {
		if len(picks) == limit {
			break
		}
		if _, dup := seen[b.Identity()]; dup {
			continue
		}
		seen[b.Identity()] = struct{}{}
		picks = append(picks, Pick{Book: b, Reason: SourceCatalog})
	}
	return Result{Books: picks, Source: SourceCatalog}
}

func (s *Service) ranked(ctx context.Context, history []book.Book, limit int, category string) Result {
	hint := category
	if hint == "" {
		hint = DominantGenre(history)
	}

	if s.catalog != nil && hint != "" {
		candidates, err := s.catalog.SearchBySubject(ctx, hint, max(limit*4, minCatalogPool))
		if err == nil {
			return Result{Books: RankPicks(history, candidates, limit), Source: SourceCatalog}
		}
		logging.Ctx(ctx).Warn().Err(err).Str("subject", hint).Msg("catalog unavailable, ranking within library")
	}

	return Result{Books: RankPicks(history, history, limit), Source: SourceLibrary}
}

// DominantGenre returns the most frequent non-empty genre in history. Ties
// go to the genre that appears first.
func DominantGenre(history []book.Book) string {
	counts := map[string]int{}
	var order []string
	for _, b := range history {
		if b.Genre == "" {
			continue
		}
		if counts[b.Genre] == 0 {
			order = append(order, b.Genre)
		}
		counts[b.Genre]++
	}

	best, bestN := "", 0
	for _, g := range order {
		if counts[g] > bestN {
			best, bestN = g, counts[g]
		}
	}
	return best
}
