package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

const pgBookColumns = `id, title, author, progress, rating, genre, notes, external_id,
	cover_url, description, page_count, published_date, is_external, date_added, updated_at`

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if q.Q != "" {
		clauses = append(clauses, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR author ILIKE $%d ESCAPE '\')`, argn, argn+1))
		pattern := containsPattern(q.Q)
		args = append(args, pattern, pattern)
		argn += 2
	}

	if q.Genre != "" {
		clauses = append(clauses, fmt.Sprintf("lower(genre) = lower($%d)", argn))
		args = append(args, q.Genre)
		argn++
	}

	switch q.Status {
	case StatusWishlist:
		clauses = append(clauses, "progress <= 0")
	case StatusReading:
		clauses = append(clauses, "progress > 0 AND progress < 1")
	case StatusFinished:
		clauses = append(clauses, "progress >= 1")
	}

	query := fmt.Sprintf("SELECT %s FROM books WHERE %s ORDER BY date_added, id",
		pgBookColumns, strings.Join(clauses, " AND "))

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanPGBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id int64) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	row := r.db.QueryRow(timeoutCtx, "SELECT "+pgBookColumns+" FROM books WHERE id = $1", id)
	b, err := scanPGBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) GetByExternalID(ctx context.Context, externalID string) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	row := r.db.QueryRow(timeoutCtx, "SELECT "+pgBookColumns+" FROM books WHERE external_id = $1 LIMIT 1", externalID)
	b, err := scanPGBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const sql = `
		INSERT INTO books (title, author, progress, rating, genre, notes, external_id,
		                   cover_url, description, page_count, published_date, is_external,
		                   date_added, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.QueryRow(timeoutCtx, sql,
		b.Title, b.Author, b.Progress, b.Rating, b.Genre, b.Notes, nullIfEmpty(b.ExternalID),
		b.CoverURL, b.Description, b.PageCount, b.PublishedDate, b.IsExternal,
		b.DateAdded, b.UpdatedAt,
	).Scan(&b.ID)
}

func (r *PostgresRepo) Update(ctx context.Context, b *Book) error {
	const sql = `
		UPDATE books SET
			title = $2, author = $3, progress = $4, rating = $5, genre = $6, notes = $7,
			external_id = $8, cover_url = $9, description = $10, page_count = $11,
			published_date = $12, is_external = $13, updated_at = $14
		WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, sql,
		b.ID, b.Title, b.Author, b.Progress, b.Rating, b.Genre, b.Notes, nullIfEmpty(b.ExternalID),
		b.CoverURL, b.Description, b.PageCount, b.PublishedDate, b.IsExternal, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the book; reviews go with it through ON DELETE CASCADE.
func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPGBook(row pgx.Row) (Book, error) {
	var b Book
	var externalID *string
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Progress, &b.Rating, &b.Genre, &b.Notes, &externalID,
		&b.CoverURL, &b.Description, &b.PageCount, &b.PublishedDate, &b.IsExternal,
		&b.DateAdded, &b.UpdatedAt,
	)
	if err != nil {
		return Book{}, err
	}
	if externalID != nil {
		b.ExternalID = *externalID
	}
	return b, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
