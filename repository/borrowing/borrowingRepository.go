// repository/borrowing/borrowingRepository.go
package borrowingrepo

import (
	"context"
	"database/sql"
	"time"

	"librarycatalog/model"
)

type Repo interface {
	// Tx-scoped; the lending service owns the transaction.
	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, borrowDate, dueDate time.Time) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error
	ExistsOpen(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	CountOpenByBook(ctx context.Context, tx *sql.Tx, bookID int64) (int, error)

	GetByID(ctx context.Context, id int64) (*model.Borrowing, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Borrowing, error)
	ListByBook(ctx context.Context, bookID int64) ([]model.Borrowing, error)
	ListAll(ctx context.Context) ([]model.Borrowing, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, borrowDate, dueDate time.Time) (int64, error) {
	const q = `
		INSERT INTO borrowings (user_id, book_id, borrow_date, due_date, status)
		VALUES ($1, $2, $3, $4, 'BORROWED')
		RETURNING id`
	var id int64
	if err := tx.QueryRowContext(ctx, q, userID, bookID, borrowDate, dueDate).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
	const q = `
		SELECT id, user_id, book_id, borrow_date, due_date, return_date, status
		FROM borrowings
		WHERE id = $1
		FOR UPDATE`
	var b model.Borrowing
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.DueDate, &b.ReturnDate, &b.Status,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	const q = `
		UPDATE borrowings
		SET status = 'RETURNED',
			return_date = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, at)
	return err
}

func (r *repo) ExistsOpen(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM borrowings
			WHERE user_id = $1 AND book_id = $2 AND status = 'BORROWED'
		)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) CountOpenByBook(ctx context.Context, tx *sql.Tx, bookID int64) (int, error) {
	const q = `
		SELECT COUNT(*) FROM borrowings
		WHERE book_id = $1 AND status = 'BORROWED'`
	var n int
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&n)
	return n, err
}

const listCols = `
			b.id          AS id,
			b.user_id     AS user_id,
			b.book_id     AS book_id,
			b.borrow_date AS borrow_date,
			b.due_date    AS due_date,
			b.return_date AS return_date,
			b.status      AS status,
			COALESCE(bk.title, '') AS book_title,
			u.username    AS username`

func (r *repo) GetByID(ctx context.Context, id int64) (*model.Borrowing, error) {
	const q = `
			SELECT ` + listCols + `
			FROM borrowings b
			LEFT JOIN books bk ON bk.id = b.book_id
			JOIN users u  ON u.id = b.user_id
			WHERE b.id = $1`
	var b model.Borrowing
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.DueDate, &b.ReturnDate, &b.Status,
		&b.BookTitle, &b.Username,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Borrowing, error) {
	const q = `
			SELECT ` + listCols + `
			FROM borrowings b
			LEFT JOIN books bk ON bk.id = b.book_id
			JOIN users u  ON u.id = b.user_id
			WHERE b.user_id = $1
			ORDER BY b.borrow_date DESC, b.id DESC`
	return r.list(ctx, q, userID)
}

func (r *repo) ListByBook(ctx context.Context, bookID int64) ([]model.Borrowing, error) {
	const q = `
			SELECT ` + listCols + `
			FROM borrowings b
			LEFT JOIN books bk ON bk.id = b.book_id
			JOIN users u  ON u.id = b.user_id
			WHERE b.book_id = $1
			ORDER BY b.borrow_date DESC, b.id DESC`
	return r.list(ctx, q, bookID)
}

func (r *repo) ListAll(ctx context.Context) ([]model.Borrowing, error) {
	const q = `
			SELECT ` + listCols + `
			FROM borrowings b
			LEFT JOIN books bk ON bk.id = b.book_id
			JOIN users u  ON u.id = b.user_id
			ORDER BY b.borrow_date DESC, b.id DESC`
	return r.list(ctx, q)
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.Borrowing, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Borrowing
	for rows.Next() {
		var b model.Borrowing
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.DueDate, &b.ReturnDate, &b.Status,
			&b.BookTitle, &b.Username,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
