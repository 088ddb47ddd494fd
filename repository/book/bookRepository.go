package bookrepo

import (
	"context"
	"database/sql"

	"librarycatalog/model"
)

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	Search(ctx context.Context, f model.SearchFilter, page, size int, sort string) ([]model.Book, int64, error)

	// Tx-scoped; the lending and catalog services orchestrate the transaction.
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error)
	UpdateMeta(ctx context.Context, tx *sql.Tx, b *model.Book) error
	SetCopies(ctx context.Context, tx *sql.Tx, id int64, total, available int) error
	DecrementAvailable(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	IncrementAvailable(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	Delete(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const bookCols = `id, title, author, isbn, genre, publisher, publication_year, description, total_copies, available_copies`

func scanBook(row interface{ Scan(...any) error }, b *model.Book) error {
	return row.Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Genre, &b.Publisher,
		&b.PublicationYear, &b.Description, &b.TotalCopies, &b.AvailableCopies,
	)
}

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
INSERT INTO books (title, author, isbn, genre, publisher, publication_year, description, total_copies, available_copies)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id`
	return r.db.QueryRowContext(ctx, q,
		b.Title, b.Author, b.ISBN, b.Genre, b.Publisher,
		b.PublicationYear, b.Description, b.TotalCopies, b.AvailableCopies,
	).Scan(&b.ID)
}

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	var b model.Book
	if err := scanBook(r.db.QueryRowContext(ctx, `SELECT `+bookCols+` FROM books WHERE id=$1`, id), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
	var b model.Book
	if err := scanBook(tx.QueryRowContext(ctx, `SELECT `+bookCols+` FROM books WHERE id=$1 FOR UPDATE`, id), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) UpdateMeta(ctx context.Context, tx *sql.Tx, b *model.Book) error {
	const q = `
UPDATE books
SET title=$2, author=$3, isbn=$4, genre=$5, publisher=$6, publication_year=$7, description=$8
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q,
		b.ID, b.Title, b.Author, b.ISBN, b.Genre, b.Publisher, b.PublicationYear, b.Description)
	return err
}

func (r *repo) SetCopies(ctx context.Context, tx *sql.Tx, id int64, total, available int) error {
	const q = `
UPDATE books
SET total_copies=$2, available_copies=$3
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id, total, available)
	return err
}

// DecrementAvailable only succeeds while a copy is on the shelf.
func (r *repo) DecrementAvailable(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	const q = `
UPDATE books
SET available_copies = available_copies - 1
WHERE id = $1
AND available_copies > 0`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

// IncrementAvailable refuses to push available_copies past total_copies.
// The caller treats a miss as an invariant breach, not a no-op.
func (r *repo) IncrementAvailable(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	const q = `
UPDATE books
SET available_copies = available_copies + 1
WHERE id = $1
AND available_copies < total_copies`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}

func (r *repo) Delete(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff == 1, nil
}
