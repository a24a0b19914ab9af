package book

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidRating is returned for ratings outside [MinRating, MaxRating].
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
	// ErrInvalidBook is returned when required fields are missing.
	ErrInvalidBook = errors.New("invalid book")
	// ErrInvalidStatus is returned for an unknown status filter.
	ErrInvalidStatus = errors.New("invalid status")
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

// Reading status derived from progress.
const (
	StatusWishlist = "WISHLIST"
	StatusReading  = "READING"
	StatusFinished = "FINISHED"
)

// Book represents a book in the user's library, or a catalog candidate
// that has not been saved yet (ID == 0).
type Book struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Progress      float64   `json:"progress"`
	Rating        *float64  `json:"rating,omitempty"`
	Genre         string    `json:"genre,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	ExternalID    string    `json:"external_id,omitempty"`
	CoverURL      string    `json:"cover_url,omitempty"`
	Description   string    `json:"description,omitempty"`
	PageCount     *int      `json:"page_count,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	IsExternal    bool      `json:"is_external"`
	DateAdded     time.Time `json:"date_added"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Identity is the key used to compare books across sources. Books imported
// from the catalog keep their catalog id so they match remote results.
func (b Book) Identity() string {
	if b.ExternalID != "" {
		return "ext:" + b.ExternalID
	}
	return "id:" + strconv.FormatInt(b.ID, 10)
}

// RatingValue returns the rating, treating a missing rating as 0.
func (b Book) RatingValue() float64 {
	if b.Rating == nil {
		return 0
	}
	return *b.Rating
}

// Status derives the reading status from progress.
func (b Book) Status() string {
	switch {
	case b.Progress <= 0:
		return StatusWishlist
	case b.Progress >= 1:
		return StatusFinished
	default:
		return StatusReading
	}
}

// Validate checks the fields every stored book must have.
func (b Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return errors.Join(ErrInvalidBook, errors.New("title is required"))
	}
	if strings.TrimSpace(b.Author) == "" {
		return errors.Join(ErrInvalidBook, errors.New("author is required"))
	}
	if b.Progress < 0 || b.Progress > 1 {
		return errors.Join(ErrInvalidBook, errors.New("progress must be between 0 and 1"))
	}
	return ValidateRating(b.Rating)
}

// ValidateRating accepts nil (unrated) or a value in [MinRating, MaxRating].
func ValidateRating(r *float64) error {
	if r == nil {
		return nil
	}
	if *r < MinRating || *r > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// ClampProgress coerces p into [0, 1].
func ClampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Query defines filters for listing books.
type Query struct {
	Q      string
	Genre  string
	Status string
}

// ValidateStatus accepts an empty status (no filter) or one of the known statuses.
func ValidateStatus(status string) error {
	switch status {
	case "", StatusWishlist, StatusReading, StatusFinished:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}

// containsPattern builds a LIKE pattern matching s as a literal substring.
// Callers pair it with ESCAPE '\'.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Matches reports whether b passes the query filters, with the same
// semantics the repositories implement in SQL. SQLite folds case for ASCII
// letters only, so Q matching is case-sensitive for other scripts there.
func (q Query) Matches(b Book) bool {
	if q.Q != "" {
		needle := strings.ToLower(q.Q)
		if !strings.Contains(strings.ToLower(b.Title), needle) &&
			!strings.Contains(strings.ToLower(b.Author), needle) {
			return false
		}
	}
	if q.Genre != "" && !strings.EqualFold(b.Genre, q.Genre) {
		return false
	}
	if q.Status != "" && b.Status() != q.Status {
		return false
	}
	return true
}
