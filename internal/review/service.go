package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"readtrac/internal/logging"
)

type Service struct {
	repo      Repository
	books     BookChecker
	sanitizer Sanitizer
	now       func() time.Time
}

type plainText struct{}

func (plainText) Text(s string) string { return s }

func NewService(repo Repository, books BookChecker, sanitizer Sanitizer) *Service {
	if sanitizer == nil {
		sanitizer = plainText{}
	}
	return &Service{repo: repo, books: books, sanitizer: sanitizer, now: time.Now}
}

func (s *Service) ListAll(ctx context.Context) ([]Review, error) {
	return s.repo.List(ctx, Filter{})
}

func (s *Service) ListForBook(ctx context.Context, bookID int64) ([]Review, error) {
	return s.repo.List(ctx, Filter{BookID: bookID})
}

func (s *Service) ListPublic(ctx context.Context) ([]Review, error) {
	return s.repo.List(ctx, Filter{PublicOnly: true})
}

func (s *Service) Get(ctx context.Context, id int64) (Review, error) {
	return s.repo.Get(ctx, id)
}

// Create attaches a new review to an existing book.
func (s *Service) Create(ctx context.Context, bookID int64, text string, isPublic bool) (Review, error) {
	text = strings.TrimSpace(s.sanitizer.Text(text))
	if text == "" {
		return Review{}, ErrEmptyText
	}
	ok, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return Review{}, fmt.Errorf("check book %d: %w", bookID, err)
	}
	if !ok {
		return Review{}, ErrBookNotFound
	}

	r := Review{
		BookID:    bookID,
		Text:      text,
		CreatedAt: s.now().UTC(),
		IsPublic:  isPublic,
	}
	if err := s.repo.Create(ctx, &r); err != nil {
		return Review{}, fmt.Errorf("create review: %w", err)
	}
	logging.Ctx(ctx).Info().Int64("review_id", r.ID).Int64("book_id", bookID).Msg("review added")
	return r, nil
}

// Update replaces the text and visibility of a review.
func (s *Service) Update(ctx context.Context, id int64, text string, isPublic bool) (Review, error) {
	text = strings.TrimSpace(s.sanitizer.Text(text))
	if text == "" {
		return Review{}, ErrEmptyText
	}
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Review{}, err
	}
	r.Text = text
	r.IsPublic = isPublic
	if err := s.repo.Update(ctx, &r); err != nil {
		return Review{}, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// DeleteForBook removes every review of a book and returns how many went.
func (s *Service) DeleteForBook(ctx context.Context, bookID int64) (int, error) {
	n, err := s.repo.DeleteByBook(ctx, bookID)
	if err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Info().Int64("book_id", bookID).Int("deleted", n).Msg("reviews deleted")
	return n, nil
}
