package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgForeignKeyViolation = "23503"

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (repo *PostgresRepo) List(ctx context.Context, f Filter) ([]Review, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.BookID != 0 {
		args = append(args, f.BookID)
		clauses = append(clauses, fmt.Sprintf("book_id = $%d", len(args)))
	}
	if f.PublicOnly {
		clauses = append(clauses, "is_public")
	}

	query := `SELECT id, book_id, text, created_at, is_public FROM reviews WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY created_at, id`
	rows, err := repo.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.BookID, &r.Text, &r.CreatedAt, &r.IsPublic); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (repo *PostgresRepo) Get(ctx context.Context, id int64) (Review, error) {
	var r Review
	err := repo.db.QueryRow(ctx,
		`SELECT id, book_id, text, created_at, is_public FROM reviews WHERE id = $1`, id,
	).Scan(&r.ID, &r.BookID, &r.Text, &r.CreatedAt, &r.IsPublic)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Review{}, ErrNotFound
		}
		return Review{}, err
	}
	return r, nil
}

func (repo *PostgresRepo) Create(ctx context.Context, r *Review) error {
	err := repo.db.QueryRow(ctx, `
		INSERT INTO reviews (book_id, text, created_at, is_public)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		r.BookID, r.Text, r.CreatedAt, r.IsPublic,
	).Scan(&r.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrBookNotFound
	}
	return err
}

func (repo *PostgresRepo) Update(ctx context.Context, r *Review) error {
	tag, err := repo.db.Exec(ctx,
		`UPDATE reviews SET text = $2, is_public = $3 WHERE id = $1`,
		r.ID, r.Text, r.IsPublic)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *PostgresRepo) Delete(ctx context.Context, id int64) error {
	tag, err := repo.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (repo *PostgresRepo) DeleteByBook(ctx context.Context, bookID int64) (int, error) {
	tag, err := repo.db.Exec(ctx, `DELETE FROM reviews WHERE book_id = $1`, bookID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
