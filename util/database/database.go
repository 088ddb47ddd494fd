package database

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// New opens a *sql.DB backed by the pgx driver and verifies the connection.
func New(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'USER',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key    ON users (lower(email));
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (lower(username));

CREATE TABLE IF NOT EXISTS books (
	id               BIGSERIAL PRIMARY KEY,
	title            TEXT NOT NULL,
	author           TEXT NOT NULL,
	isbn             TEXT NOT NULL,
	genre            TEXT NOT NULL DEFAULT '',
	publisher        TEXT NOT NULL DEFAULT '',
	publication_year INT  NOT NULL DEFAULT 0,
	description      TEXT NOT NULL DEFAULT '',
	total_copies     INT  NOT NULL CHECK (total_copies >= 0),
	available_copies INT  NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies)
);
CREATE UNIQUE INDEX IF NOT EXISTS books_isbn_key ON books (isbn);

CREATE TABLE IF NOT EXISTS borrowings (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES users(id),
	-- intentionally no FK: returned loans are kept for audit after a book is deleted
	book_id     BIGINT NOT NULL,
	borrow_date TIMESTAMPTZ NOT NULL,
	due_date    TIMESTAMPTZ NOT NULL,
	return_date TIMESTAMPTZ,
	status      TEXT NOT NULL CHECK (status IN ('BORROWED','RETURNED'))
);
-- One open loan per user per book; backs the duplicate-loan check under races.
CREATE UNIQUE INDEX IF NOT EXISTS borrowings_open_loan_key
	ON borrowings (user_id, book_id) WHERE status = 'BORROWED';
CREATE INDEX IF NOT EXISTS borrowings_user_idx ON borrowings (user_id);
CREATE INDEX IF NOT EXISTS borrowings_book_idx ON borrowings (book_id);
`

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
