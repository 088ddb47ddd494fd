package lendingsvc

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"librarycatalog/model"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory book + loan store. Its conditional counter
// updates mirror the SQL guards, and the fakeTx mutex serializes units of
// work the way the database transaction does.
type memStore struct {
	mu     sync.Mutex
	books  map[int64]*model.Book
	loans  map[int64]*model.Borrowing
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		books:  map[int64]*model.Book{},
		loans:  map[int64]*model.Borrowing{},
		nextID: 1,
	}
}

func (m *memStore) addBook(id int64, total, available int) {
	m.books[id] = &model.Book{ID: id, Title: "t", TotalCopies: total, AvailableCopies: available}
}

func (m *memStore) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
	b, ok := m.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) DecrementAvailable(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	b, ok := m.books[id]
	if !ok || b.AvailableCopies <= 0 {
		return false, nil
	}
	b.AvailableCopies--
	return true, nil
}

func (m *memStore) IncrementAvailable(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	b, ok := m.books[id]
	if !ok || b.AvailableCopies >= b.TotalCopies {
		return false, nil
	}
	b.AvailableCopies++
	return true, nil
}

func (m *memStore) Insert(ctx context.Context, tx *sql.Tx, userID, bookID int64, borrowDate, dueDate time.Time) (int64, error) {
	id := m.nextID
	m.nextID++
	m.loans[id] = &model.Borrowing{
		ID: id, UserID: userID, BookID: bookID,
		BorrowDate: borrowDate, DueDate: dueDate, Status: model.StatusBorrowed,
	}
	return id, nil
}

func (m *memStore) GetForUpdateLoan(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
	l, ok := m.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, at time.Time) error {
	l := m.loans[id]
	l.Status = model.StatusReturned
	l.ReturnDate = &at
	return nil
}

func (m *memStore) ExistsOpen(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error) {
	for _, l := range m.loans {
		if l.UserID == userID && l.BookID == bookID && l.Status == model.StatusBorrowed {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*model.Borrowing, error) {
	l, ok := m.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	if b, ok := m.books[l.BookID]; ok {
		cp.BookTitle = b.Title
	}
	return &cp, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID int64) ([]model.Borrowing, error) {
	var out []model.Borrowing
	for _, l := range m.loans {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) ListByBook(ctx context.Context, bookID int64) ([]model.Borrowing, error) {
	var out []model.Borrowing
	for _, l := range m.loans {
		if l.BookID == bookID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) ListAll(ctx context.Context) ([]model.Borrowing, error) {
	var out []model.Borrowing
	for _, l := range m.loans {
		out = append(out, *l)
	}
	return out, nil
}

// loanStore adapts memStore to the LoanStore interface (the loan row lock
// method name collides with the book one).
type loanStore struct{ *memStore }

func (s loanStore) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
	return s.GetForUpdateLoan(ctx, tx, id)
}

// fakeTx serializes units of work with a mutex, standing in for the
// database transaction's row locks.
type fakeTx struct{ mu *sync.Mutex }

func (f fakeTx) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(nil)
}

const loanPeriod = 14 * 24 * time.Hour

func newTestService(store *memStore, now time.Time) Service {
	log := slog.New(slog.NewTextHandler(testWriter{}, nil))
	return NewWithClock(fakeTx{mu: &store.mu}, store, loanStore{store}, loanPeriod, log,
		func() time.Time { return now })
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestBorrow_Success(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 3, 3)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)

	b, err := svc.Borrow(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusBorrowed, b.Status)
	require.Equal(t, now, b.BorrowDate)
	require.Equal(t, now.Add(loanPeriod), b.DueDate)
	require.Equal(t, 2, store.books[1].AvailableCopies)
}

func TestBorrow_BookNotFound(t *testing.T) {
	svc := newTestService(newMemStore(), time.Now())
	_, err := svc.Borrow(context.Background(), 7, 99)
	require.Equal(t, ErrBookNotFound, Code(err))
}

func TestBorrow_NoCopies(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 1, 0)
	svc := newTestService(store, time.Now())

	_, err := svc.Borrow(context.Background(), 7, 1)
	require.Equal(t, ErrNoCopies, Code(err))
}

func TestBorrow_DuplicateLoan(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 5, 5)
	svc := newTestService(store, time.Now())

	_, err := svc.Borrow(context.Background(), 7, 1)
	require.NoError(t, err)

	_, err = svc.Borrow(context.Background(), 7, 1)
	require.Equal(t, ErrDuplicateLoan, Code(err))
	require.Equal(t, 4, store.books[1].AvailableCopies)
}

func TestBorrow_LastCopyRace(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 1, 1)
	svc := newTestService(store, time.Now())

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, uid := range []int64{10, 11} {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, err := svc.Borrow(context.Background(), uid, 1)
			errs <- err
		}(uid)
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case Code(err) == ErrNoCopies:
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, lost)
	require.Equal(t, 0, store.books[1].AvailableCopies)
}

func TestReturn_Success(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 2, 2)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)

	b, err := svc.Borrow(context.Background(), 7, 1)
	require.NoError(t, err)

	out, err := svc.Return(context.Background(), 7, false, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusReturned, out.Status)
	require.NotNil(t, out.ReturnDate)
	require.Equal(t, "t", out.BookTitle, "response carries the joined book title")
	require.Equal(t, 2, store.books[1].AvailableCopies)
}

func TestReturn_Twice(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 1, 1)
	svc := newTestService(store, time.Now())

	b, err := svc.Borrow(context.Background(), 7, 1)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), 7, false, b.ID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), 7, false, b.ID)
	require.Equal(t, ErrAlreadyReturned, Code(err))
	require.Equal(t, model.StatusReturned, store.loans[b.ID].Status)
	require.Equal(t, 1, store.books[1].AvailableCopies)
}

func TestReturn_NotFound(t *testing.T) {
	svc := newTestService(newMemStore(), time.Now())
	_, err := svc.Return(context.Background(), 7, false, 42)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestReturn_OwnershipAndAdminOverride(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 1, 1)
	svc := newTestService(store, time.Now())

	b, err := svc.Borrow(context.Background(), 7, 1)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), 8, false, b.ID)
	require.Equal(t, ErrNotOwner, Code(err))

	// admin may force-return any loan
	_, err = svc.Return(context.Background(), 8, true, b.ID)
	require.NoError(t, err)
}

func TestReturn_InvariantBreachRejected(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 1, 1)
	svc := newTestService(store, time.Now())

	b, err := svc.Borrow(context.Background(), 7, 1)
	require.NoError(t, err)

	// Corrupt the counter: an open loan but a full shelf. The increment on
	// return must be refused, not clamped.
	store.books[1].AvailableCopies = 1

	_, err = svc.Return(context.Background(), 7, false, b.ID)
	require.Equal(t, ErrInvariant, Code(err))
}

// The scenario walks the full lifecycle: 2 copies, three users competing,
// then a return frees the shelf for the blocked borrower.
func TestLendingScenario(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 2, 2)
	svc := newTestService(store, time.Now())
	ctx := context.Background()

	l1, err := svc.Borrow(ctx, 100, 1)
	require.NoError(t, err)
	require.Equal(t, 1, store.books[1].AvailableCopies)

	_, err = svc.Borrow(ctx, 200, 1)
	require.NoError(t, err)
	require.Equal(t, 0, store.books[1].AvailableCopies)

	_, err = svc.Borrow(ctx, 300, 1)
	require.Equal(t, ErrNoCopies, Code(err))

	_, err = svc.Return(ctx, 0, true, l1.ID)
	require.NoError(t, err)
	require.Equal(t, 1, store.books[1].AvailableCopies)

	l3, err := svc.Borrow(ctx, 300, 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusBorrowed, l3.Status)
	require.Equal(t, 0, store.books[1].AvailableCopies)
}

func TestListings_DeriveOverdue(t *testing.T) {
	store := newMemStore()
	store.addBook(1, 2, 2)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	ctx := context.Background()

	b, err := svc.Borrow(ctx, 7, 1)
	require.NoError(t, err)

	// jump past the due date
	late := newTestService(store, now.Add(loanPeriod+time.Hour))

	for name, list := range map[string]func() ([]model.Borrowing, error){
		"my":   func() ([]model.Borrowing, error) { return late.MyLoans(ctx, 7) },
		"book": func() ([]model.Borrowing, error) { return late.BookLoans(ctx, 1) },
		"all":  func() ([]model.Borrowing, error) { return late.AllLoans(ctx) },
	} {
		rows, err := list()
		require.NoError(t, err, name)
		require.Len(t, rows, 1, name)
		require.Equal(t, model.StatusOverdue, rows[0].Status, name)
	}

	// stored state is untouched
	require.Equal(t, model.StatusBorrowed, store.loans[b.ID].Status)

	// once returned, the loan reads RETURNED even though it was overdue
	_, err = late.Return(ctx, 7, false, b.ID)
	require.NoError(t, err)
	rows, err := late.MyLoans(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, model.StatusReturned, rows[0].Status)
}
