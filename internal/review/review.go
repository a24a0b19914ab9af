package review

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a review is not found.
	ErrNotFound = errors.New("review not found")
	// ErrBookNotFound is returned when a review targets a missing book.
	ErrBookNotFound = errors.New("book not found")
	// ErrEmptyText is returned for reviews without text.
	ErrEmptyText = errors.New("review text is required")
)

// Review is a free-text review attached to a book.
type Review struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	IsPublic  bool      `json:"is_public"`
}

// Filter narrows a review listing. Zero value lists everything.
type Filter struct {
	BookID     int64
	PublicOnly bool
}

//go:generate mockgen -source=review.go -destination=mock_repository.go -package=review

// Repository defines the contract for review data storage.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Review, error)
	Get(ctx context.Context, id int64) (Review, error)
	Create(ctx context.Context, r *Review) error
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id int64) error
	DeleteByBook(ctx context.Context, bookID int64) (int, error)
}

// BookChecker reports whether a book exists.
type BookChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Sanitizer strips markup from review text.
type Sanitizer interface {
	Text(s string) string
}
