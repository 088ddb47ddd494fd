package lendingsvc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"librarycatalog/model"
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrNoCopies        ErrCode = "NO_COPIES_AVAILABLE"
	ErrDuplicateLoan   ErrCode = "DUPLICATE_LOAN"
	ErrAlreadyReturned ErrCode = "ALREADY_RETURNED"
	ErrNotOwner        ErrCode = "NOT_OWNER"
	ErrInvariant       ErrCode = "INVARIANT_BREACH"
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

type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type BookStore interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error)
	DecrementAvailable(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	IncrementAvailable(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
}

type LoanStore interface {
	Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, borrowDate, dueDate time.Time) (int64, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error
	ExistsOpen(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)

	GetByID(ctx context.Context, id int64) (*model.Borrowing, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Borrowing, error)
	ListByBook(ctx context.Context, bookID int64) ([]model.Borrowing, error)
	ListAll(ctx context.Context) ([]model.Borrowing, error)
}

type Service interface {
	// Borrow takes one copy off the shelf and opens a loan, atomically.
	Borrow(ctx context.Context, userID, bookID int64) (*model.Borrowing, error)

	// Return closes an open loan and puts the copy back, atomically.
	// Admins may return any loan; users only their own.
	Return(ctx context.Context, callerID int64, admin bool, borrowingID int64) (*model.Borrowing, error)

	MyLoans(ctx context.Context, userID int64) ([]model.Borrowing, error)
	UserLoans(ctx context.Context, userID int64) ([]model.Borrowing, error)
	BookLoans(ctx context.Context, bookID int64) ([]model.Borrowing, error)
	AllLoans(ctx context.Context) ([]model.Borrowing, error)
}

type service struct {
	tx     TxRunner
	books  BookStore
	loans  LoanStore
	period time.Duration
	now    func() time.Time
	log    *slog.Logger
}

func New(tx TxRunner, books BookStore, loans LoanStore, loanPeriod time.Duration, log *slog.Logger) Service {
	return &service{
		tx:     tx,
		books:  books,
		loans:  loans,
		period: loanPeriod,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// NewWithClock is used by tests that need a fixed clock.
func NewWithClock(tx TxRunner, books BookStore, loans LoanStore, loanPeriod time.Duration, log *slog.Logger, now func() time.Time) Service {
	s := New(tx, books, loans, loanPeriod, log).(*service)
	s.now = now
	return s
}

func (s *service) Borrow(ctx context.Context, userID, bookID int64) (*model.Borrowing, error) {
	var out *model.Borrowing
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		// Row lock on the book serializes concurrent borrows per book.
		book, err := s.books.GetForUpdate(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrBookNotFound)
			}
			return err
		}
		if book.AvailableCopies <= 0 {
			return makeErr(ErrNoCopies)
		}

		open, err := s.loans.ExistsOpen(ctx, tx, userID, bookID)
		if err != nil {
			return err
		}
		if open {
			return makeErr(ErrDuplicateLoan)
		}

		ok, err := s.books.DecrementAvailable(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !ok {
			// Unreachable while the row lock is held; a miss means the
			// counter no longer matches the ledger.
			s.log.Error("available_copies decrement refused under lock", "book_id", bookID)
			return makeErr(ErrInvariant)
		}

		now := s.now()
		due := now.Add(s.period)
		id, err := s.loans.Insert(ctx, tx, userID, bookID, now, due)
		if err != nil {
			return err
		}

		out = &model.Borrowing{
			ID:         id,
			UserID:     userID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    due,
			Status:     model.StatusBorrowed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Return(ctx context.Context, callerID int64, admin bool, borrowingID int64) (*model.Borrowing, error) {
	var returned model.Borrowing
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		loan, err := s.loans.GetForUpdate(ctx, tx, borrowingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if !admin && loan.UserID != callerID {
			return makeErr(ErrNotOwner)
		}
		if loan.Status != model.StatusBorrowed {
			return makeErr(ErrAlreadyReturned)
		}

		now := s.now()
		if err := s.loans.MarkReturned(ctx, tx, borrowingID, now); err != nil {
			return err
		}

		ok, err := s.books.IncrementAvailable(ctx, tx, loan.BookID)
		if err != nil {
			return err
		}
		if !ok {
			// available_copies would exceed total_copies: the ledger and the
			// counter disagree. Reject rather than clamp.
			s.log.Error("available_copies would exceed total_copies on return",
				"borrowing_id", borrowingID, "book_id", loan.BookID)
			return makeErr(ErrInvariant)
		}

		returned = *loan
		returned.Status = model.StatusReturned
		returned.ReturnDate = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Re-read after commit for the joined book title and username.
	if full, err := s.loans.GetByID(ctx, borrowingID); err == nil {
		return full, nil
	}
	return &returned, nil
}

func (s *service) MyLoans(ctx context.Context, userID int64) ([]model.Borrowing, error) {
	return s.listWithOverdue(s.loans.ListByUser)(ctx, userID)
}

func (s *service) UserLoans(ctx context.Context, userID int64) ([]model.Borrowing, error) {
	return s.listWithOverdue(s.loans.ListByUser)(ctx, userID)
}

func (s *service) BookLoans(ctx context.Context, bookID int64) ([]model.Borrowing, error) {
	return s.listWithOverdue(s.loans.ListByBook)(ctx, bookID)
}

func (s *service) AllLoans(ctx context.Context) ([]model.Borrowing, error) {
	rows, err := s.loans.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	ApplyOverdue(rows, s.now())
	return rows, nil
}

// listWithOverdue keeps every listing path on the same derived-status rule.
func (s *service) listWithOverdue(list func(context.Context, int64) ([]model.Borrowing, error)) func(context.Context, int64) ([]model.Borrowing, error) {
	return func(ctx context.Context, id int64) ([]model.Borrowing, error) {
		rows, err := list(ctx, id)
		if err != nil {
			return nil, err
		}
		ApplyOverdue(rows, s.now())
		return rows, nil
	}
}
