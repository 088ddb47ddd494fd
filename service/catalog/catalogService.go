package catalogsvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"librarycatalog/model"
)

type ErrCode string

const (
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrISBNTaken      ErrCode = "ISBN_TAKEN"
	ErrHasActiveLoans ErrCode = "HAS_ACTIVE_LOANS"
	ErrBadInput       ErrCode = "BAD_INPUT"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

const (
	DefaultPageSize = 10
	maxPageSize     = 100
)

type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type BookStore interface {
	Create(ctx context.Context, b *model.Book) error
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	Search(ctx context.Context, f model.SearchFilter, page, size int, sort string) ([]model.Book, int64, error)

	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error)
	UpdateMeta(ctx context.Context, tx *sql.Tx, b *model.Book) error
	SetCopies(ctx context.Context, tx *sql.Tx, id int64, total, available int) error
	Delete(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
}

type LoanStore interface {
	CountOpenByBook(ctx context.Context, tx *sql.Tx, bookID int64) (int, error)
}

type Service interface {
	Create(ctx context.Context, b *model.Book) (*model.Book, error)
	Get(ctx context.Context, id int64) (*model.Book, error)
	Update(ctx context.Context, id int64, b *model.Book) (*model.Book, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, f model.SearchFilter, page, size int, sort string) (*model.BookPage, error)
}

type service struct {
	tx    TxRunner
	books BookStore
	loans LoanStore
}

func New(tx TxRunner, books BookStore, loans LoanStore) Service {
	return &service{tx: tx, books: books, loans: loans}
}

func validateBook(b *model.Book) error {
	if strings.TrimSpace(b.Title) == "" ||
		strings.TrimSpace(b.Author) == "" ||
		strings.TrimSpace(b.ISBN) == "" {
		return makeErr(ErrBadInput)
	}
	if b.TotalCopies < 1 {
		return makeErr(ErrBadInput)
	}
	return nil
}

func mapUniqueErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return makeErr(ErrISBNTaken)
	}
	return nil
}

func (s *service) Create(ctx context.Context, b *model.Book) (*model.Book, error) {
	if err := validateBook(b); err != nil {
		return nil, err
	}
	// A new title starts with every copy on the shelf.
	b.AvailableCopies = b.TotalCopies
	if err := s.books.Create(ctx, b); err != nil {
		if derr := mapUniqueErr(err); derr != nil {
			return nil, derr
		}
		return nil, err
	}
	return b, nil
}

func (s *service) Get(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

// Update edits metadata. A totalCopies change moves availableCopies by the
// same delta; totalCopies can never drop below the open-loan count.
func (s *service) Update(ctx context.Context, id int64, b *model.Book) (*model.Book, error) {
	if err := validateBook(b); err != nil {
		return nil, err
	}
	var out *model.Book
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.books.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}

		open, err := s.loans.CountOpenByBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.TotalCopies < open {
			return makeErr(ErrBadInput)
		}

		b.ID = cur.ID
		if err := s.books.UpdateMeta(ctx, tx, b); err != nil {
			if derr := mapUniqueErr(err); derr != nil {
				return derr
			}
			return err
		}
		available := b.TotalCopies - open
		if err := s.books.SetCopies(ctx, tx, id, b.TotalCopies, available); err != nil {
			return err
		}

		out = b
		out.AvailableCopies = available
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	return s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.books.GetForUpdate(ctx, tx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		open, err := s.loans.CountOpenByBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return makeErr(ErrHasActiveLoans)
		}
		ok, err := s.books.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrNotFound)
		}
		return nil
	})
}

func (s *service) Search(ctx context.Context, f model.SearchFilter, page, size int, sort string) (*model.BookPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	items, total, err := s.books.Search(ctx, f, page, size, sort)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Book{}
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	return &model.BookPage{
		Content:       items,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}
