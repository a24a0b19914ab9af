package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"readtrac/internal/logging"
)

// Service provides book-related business logic.
type Service struct {
	repo      Repository
	sanitizer Sanitizer
	now       func() time.Time
}

type plainText struct{}

func (plainText) Text(s string) string { return s }

// NewService creates a new book service. A nil sanitizer stores text as given.
func NewService(repo Repository, sanitizer Sanitizer) *Service {
	if sanitizer == nil {
		sanitizer = plainText{}
	}
	return &Service{repo: repo, sanitizer: sanitizer, now: time.Now}
}

// List returns the books matching the query.
func (s *Service) List(ctx context.Context, q Query) ([]Book, error) {
	if err := ValidateStatus(q.Status); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, q)
}

// ListAll returns a snapshot of the whole library.
func (s *Service) ListAll(ctx context.Context) ([]Book, error) {
	return s.repo.List(ctx, Query{})
}

// Get returns a book by id.
func (s *Service) Get(ctx context.Context, id int64) (Book, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether a book with the given id is stored.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create validates and stores a new book, assigning its id.
func (s *Service) Create(ctx context.Context, b *Book) error {
	s.clean(b)
	if err := b.Validate(); err != nil {
		return err
	}
	now := s.now().UTC()
	if b.DateAdded.IsZero() {
		b.DateAdded = now
	}
	b.UpdatedAt = now
	if err := s.repo.Create(ctx, b); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	logging.Ctx(ctx).Info().Int64("book_id", b.ID).Str("title", b.Title).Msg("book added")
	return nil
}

// Update replaces the editable fields of a stored book. The catalog link
// and any catalog metadata the edit leaves empty are kept.
func (s *Service) Update(ctx context.Context, b *Book) error {
	s.clean(b)
	if err := b.Validate(); err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, b.ID)
	if err != nil {
		return err
	}
	keepCatalogFields(b, existing)
	b.DateAdded = existing.DateAdded
	b.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, b)
}

// Delete removes a book together with its reviews.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Int64("book_id", id).Msg("book deleted")
	return nil
}

// UpdateProgress stores new reading progress, clamped to [0, 1].
func (s *Service) UpdateProgress(ctx context.Context, id int64, progress float64) (Book, error) {
	return s.mutate(ctx, id, func(b *Book) error {
		b.Progress = ClampProgress(progress)
		return nil
	})
}

// UpdateRating sets the rating, or clears it when rating is nil.
func (s *Service) UpdateRating(ctx context.Context, id int64, rating *float64) (Book, error) {
	if err := ValidateRating(rating); err != nil {
		return Book{}, err
	}
	return s.mutate(ctx, id, func(b *Book) error {
		b.Rating = rating
		return nil
	})
}

// UpdateNotes replaces the free-text notes.
func (s *Service) UpdateNotes(ctx context.Context, id int64, notes string) (Book, error) {
	return s.mutate(ctx, id, func(b *Book) error {
		b.Notes = s.sanitizer.Text(notes)
		return nil
	})
}

// ImportFromCatalog saves a catalog result into the library. Importing the
// same catalog id twice returns the stored record.
func (s *Service) ImportFromCatalog(ctx context.Context, external Book) (Book, error) {
	if external.ExternalID == "" {
		return Book{}, errors.Join(ErrInvalidBook, errors.New("external id is required"))
	}
	existing, err := s.repo.GetByExternalID(ctx, external.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Book{}, err
	}

	imported := external
	imported.ID = 0
	imported.IsExternal = true
	imported.Progress = 0
	// The catalog average is not the reader's own rating.
	imported.Rating = nil
	imported.DateAdded = time.Time{}
	if err := s.Create(ctx, &imported); err != nil {
		return Book{}, err
	}
	return imported, nil
}

func keepCatalogFields(b *Book, existing Book) {
	b.ExternalID = existing.ExternalID
	b.IsExternal = existing.IsExternal
	if b.CoverURL == "" {
		b.CoverURL = existing.CoverURL
	}
	if b.Description == "" {
		b.Description = existing.Description
	}
	if b.PageCount == nil {
		b.PageCount = existing.PageCount
	}
	if b.PublishedDate == "" {
		b.PublishedDate = existing.PublishedDate
	}
}

func (s *Service) mutate(ctx context.Context, id int64, fn func(b *Book) error) (Book, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if err := fn(&b); err != nil {
		return Book{}, err
	}
	b.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

func (s *Service) clean(b *Book) {
	b.Notes = s.sanitizer.Text(b.Notes)
	b.Description = s.sanitizer.Text(b.Description)
}
