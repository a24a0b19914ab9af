package review

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (repo *SQLiteRepo) List(ctx context.Context, f Filter) ([]Review, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.BookID != 0 {
		clauses = append(clauses, "book_id = ?")
		args = append(args, f.BookID)
	}
	if f.PublicOnly {
		clauses = append(clauses, "is_public = 1")
	}

	rows, err := repo.db.QueryContext(ctx,
		`SELECT id, book_id, text, created_at, is_public FROM reviews WHERE `+
			strings.Join(clauses, " AND ")+` ORDER BY created_at, id`,
		args...)
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

func (repo *SQLiteRepo) Get(ctx context.Context, id int64) (Review, error) {
	var r Review
	err := repo.db.QueryRowContext(ctx,
		`SELECT id, book_id, text, created_at, is_public FROM reviews WHERE id = ?`, id,
	).Scan(&r.ID, &r.BookID, &r.Text, &r.CreatedAt, &r.IsPublic)
	if errors.Is(err, sql.ErrNoRows) {
		return Review{}, ErrNotFound
	}
	return r, err
}

func (repo *SQLiteRepo) Create(ctx context.Context, r *Review) error {
	res, err := repo.db.ExecContext(ctx,
		`INSERT INTO reviews (book_id, text, created_at, is_public) VALUES (?, ?, ?, ?)`,
		r.BookID, r.Text, r.CreatedAt, r.IsPublic)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return ErrBookNotFound
		}
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (repo *SQLiteRepo) Update(ctx context.Context, r *Review) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE reviews SET text = ?, is_public = ? WHERE id = ?`,
		r.Text, r.IsPublic, r.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (repo *SQLiteRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (repo *SQLiteRepo) DeleteByBook(ctx context.Context, bookID int64) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM reviews WHERE book_id = ?`, bookID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
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
