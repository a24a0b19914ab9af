package book

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// SQLiteRepo stores books in the embedded SQLite database.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

const sqliteBookColumns = `id, title, author, progress, rating, genre, notes, external_id,
	cover_url, description, page_count, published_date, is_external, date_added, updated_at`

func (r *SQLiteRepo) List(ctx context.Context, q Query) ([]Book, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if q.Q != "" {
		clauses = append(clauses, `(lower(title) LIKE lower(?) ESCAPE '\' OR lower(author) LIKE lower(?) ESCAPE '\')`)
		pattern := containsPattern(q.Q)
		args = append(args, pattern, pattern)
	}
	if q.Genre != "" {
		clauses = append(clauses, "lower(genre) = lower(?)")
		args = append(args, q.Genre)
	}
	switch q.Status {
	case StatusWishlist:
		clauses = append(clauses, "progress <= 0")
	case StatusReading:
		clauses = append(clauses, "progress > 0 AND progress < 1")
	case StatusFinished:
		clauses = append(clauses, "progress >= 1")
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sqliteBookColumns+" FROM books WHERE "+strings.Join(clauses, " AND ")+" ORDER BY date_added, id",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanSQLiteBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Get(ctx context.Context, id int64) (Book, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sqliteBookColumns+" FROM books WHERE id = ?", id)
	b, err := scanSQLiteBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	return b, err
}

func (r *SQLiteRepo) GetByExternalID(ctx context.Context, externalID string) (Book, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sqliteBookColumns+" FROM books WHERE external_id = ? LIMIT 1", externalID)
	b, err := scanSQLiteBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	return b, err
}

func (r *SQLiteRepo) Create(ctx context.Context, b *Book) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO books (title, author, progress, rating, genre, notes, external_id,
		                   cover_url, description, page_count, published_date, is_external,
		                   date_added, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.Progress, b.Rating, b.Genre, b.Notes, nullString(b.ExternalID),
		b.CoverURL, b.Description, b.PageCount, b.PublishedDate, b.IsExternal,
		b.DateAdded, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	b.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepo) Update(ctx context.Context, b *Book) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE books SET
			title = ?, author = ?, progress = ?, rating = ?, genre = ?, notes = ?,
			external_id = ?, cover_url = ?, description = ?, page_count = ?,
			published_date = ?, is_external = ?, updated_at = ?
		WHERE id = ?`,
		b.Title, b.Author, b.Progress, b.Rating, b.Genre, b.Notes, nullString(b.ExternalID),
		b.CoverURL, b.Description, b.PageCount, b.PublishedDate, b.IsExternal, b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes the book. The connection runs with foreign keys enabled so
// the reviews table cascades.
func (r *SQLiteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteBook(row rowScanner) (Book, error) {
	var (
		b          Book
		rating     sql.NullFloat64
		externalID sql.NullString
		pageCount  sql.NullInt64
	)
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Progress, &rating, &b.Genre, &b.Notes, &externalID,
		&b.CoverURL, &b.Description, &pageCount, &b.PublishedDate, &b.IsExternal,
		&b.DateAdded, &b.UpdatedAt,
	)
	if err != nil {
		return Book{}, err
	}
	if rating.Valid {
		v := rating.Float64
		b.Rating = &v
	}
	if pageCount.Valid {
		v := int(pageCount.Int64)
		b.PageCount = &v
	}
	b.ExternalID = externalID.String
	return b, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
