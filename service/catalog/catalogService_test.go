// service/catalog/catalogService_test.go
package catalogsvc_test

import (
	"context"
	"database/sql"
	"testing"

	"librarycatalog/model"
	catalogsvc "librarycatalog/service/catalog"
)

type bookMock struct {
	createFn       func(ctx context.Context, b *model.Book) error
	getFn          func(ctx context.Context, id int64) (*model.Book, error)
	searchFn       func(ctx context.Context, f model.SearchFilter, page, size int, sort string) ([]model.Book, int64, error)
	getForUpdateFn func(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error)
	updateMetaFn   func(ctx context.Context, tx *sql.Tx, b *model.Book) error
	setCopiesFn    func(ctx context.Context, tx *sql.Tx, id int64, total, available int) error
	deleteFn       func(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
}

func (m *bookMock) Create(ctx context.Context, b *model.Book) error { return m.createFn(ctx, b) }
func (m *bookMock) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	return m.getFn(ctx, id)
}
func (m *bookMock) Search(ctx context.Context, f model.SearchFilter, page, size int, sort string) ([]model.Book, int64, error) {
	return m.searchFn(ctx, f, page, size, sort)
}
func (m *bookMock) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
	return m.getForUpdateFn(ctx, tx, id)
}
func (m *bookMock) UpdateMeta(ctx context.Context, tx *sql.Tx, b *model.Book) error {
	return m.updateMetaFn(ctx, tx, b)
}
func (m *bookMock) SetCopies(ctx context.Context, tx *sql.Tx, id int64, total, available int) error {
	return m.setCopiesFn(ctx, tx, id, total, available)
}
func (m *bookMock) Delete(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	return m.deleteFn(ctx, tx, id)
}

type loanMock struct {
	countOpenFn func(ctx context.Context, tx *sql.Tx, bookID int64) (int, error)
}

func (m *loanMock) CountOpenByBook(ctx context.Context, tx *sql.Tx, bookID int64) (int, error) {
	return m.countOpenFn(ctx, tx, bookID)
}

type passTx struct{}

func (passTx) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

func validBook() *model.Book {
	return &model.Book{
		Title:       "Dune",
		Author:      "Frank Herbert",
		ISBN:        "9780441172719",
		Genre:       "Science",
		TotalCopies: 3,
	}
}

func TestCreate_Validation(t *testing.T) {
	s := catalogsvc.New(passTx{}, &bookMock{}, &loanMock{})
	ctx := context.Background()

	b := validBook()
	b.Title = ""
	if _, err := s.Create(ctx, b); catalogsvc.Code(err) != catalogsvc.ErrBadInput {
		t.Fatalf("expected BAD_INPUT for empty title, got %v", err)
	}

	b = validBook()
	b.TotalCopies = 0
	if _, err := s.Create(ctx, b); catalogsvc.Code(err) != catalogsvc.ErrBadInput {
		t.Fatalf("expected BAD_INPUT for zero copies, got %v", err)
	}
}

func TestCreate_InitializesAvailable(t *testing.T) {
	m := &bookMock{
		createFn: func(ctx context.Context, b *model.Book) error {
			b.ID = 42
			return nil
		},
	}
	s := catalogsvc.New(passTx{}, m, &loanMock{})

	b := validBook()
	b.AvailableCopies = 99 // caller-supplied value must be ignored
	out, err := s.Create(context.Background(), b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.ID != 42 || out.AvailableCopies != out.TotalCopies {
		t.Fatalf("got id=%d available=%d total=%d", out.ID, out.AvailableCopies, out.TotalCopies)
	}
}

func TestGet_NotFound(t *testing.T) {
	m := &bookMock{
		getFn: func(ctx context.Context, id int64) (*model.Book, error) { return nil, sql.ErrNoRows },
	}
	s := catalogsvc.New(passTx{}, m, &loanMock{})
	if _, err := s.Get(context.Background(), 5); catalogsvc.Code(err) != catalogsvc.ErrNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSearch_PaginationMath(t *testing.T) {
	m := &bookMock{
		searchFn: func(ctx context.Context, f model.SearchFilter, page, size int, sort string) ([]model.Book, int64, error) {
			return make([]model.Book, 9), 19, nil
		},
	}
	s := catalogsvc.New(passTx{}, m, &loanMock{})

	out, err := s.Search(context.Background(), model.SearchFilter{Genre: "Science"}, 0, 9, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out.TotalPages != 3 || out.TotalElements != 19 {
		t.Fatalf("got totalPages=%d totalElements=%d; want 3, 19", out.TotalPages, out.TotalElements)
	}
}

func TestSearch_OutOfRangePageIsEmptyNotError(t *testing.T) {
	m := &bookMock{
		searchFn: func(ctx context.Context, f model.SearchFilter, page, size int, sort string) ([]model.Book, int64, error) {
			return nil, 4, nil
		},
	}
	s := catalogsvc.New(passTx{}, m, &loanMock{})

	out, err := s.Search(context.Background(), model.SearchFilter{}, 7, 10, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out.Content == nil || len(out.Content) != 0 {
		t.Fatalf("want empty non-nil content, got %#v", out.Content)
	}
	if out.TotalPages != 1 {
		t.Fatalf("totalPages=%d; want 1", out.TotalPages)
	}
}

func TestSearch_DefaultsAndClamps(t *testing.T) {
	var gotPage, gotSize int
	m := &bookMock{
		searchFn: func(ctx context.Context, f model.SearchFilter, page, size int, sort string) ([]model.Book, int64, error) {
			gotPage, gotSize = page, size
			return nil, 0, nil
		},
	}
	s := catalogsvc.New(passTx{}, m, &loanMock{})

	if _, err := s.Search(context.Background(), model.SearchFilter{}, -3, 0, ""); err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotPage != 0 || gotSize != catalogsvc.DefaultPageSize {
		t.Fatalf("got page=%d size=%d; want 0, %d", gotPage, gotSize, catalogsvc.DefaultPageSize)
	}
}

func TestUpdate_TotalCopiesFloor(t *testing.T) {
	m := &bookMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
			return &model.Book{ID: id, TotalCopies: 5, AvailableCopies: 2}, nil
		},
	}
	l := &loanMock{
		countOpenFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int, error) { return 3, nil },
	}
	s := catalogsvc.New(passTx{}, m, l)

	b := validBook()
	b.TotalCopies = 2 // below the three open loans
	if _, err := s.Update(context.Background(), 1, b); catalogsvc.Code(err) != catalogsvc.ErrBadInput {
		t.Fatalf("expected BAD_INPUT, got %v", err)
	}
}

func TestUpdate_AdjustsAvailableByDelta(t *testing.T) {
	var setTotal, setAvailable int
	m := &bookMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
			return &model.Book{ID: id, TotalCopies: 5, AvailableCopies: 2}, nil
		},
		updateMetaFn: func(ctx context.Context, tx *sql.Tx, b *model.Book) error { return nil },
		setCopiesFn: func(ctx context.Context, tx *sql.Tx, id int64, total, available int) error {
			setTotal, setAvailable = total, available
			return nil
		},
	}
	l := &loanMock{
		countOpenFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int, error) { return 3, nil },
	}
	s := catalogsvc.New(passTx{}, m, l)

	b := validBook()
	b.TotalCopies = 10
	out, err := s.Update(context.Background(), 1, b)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if setTotal != 10 || setAvailable != 7 {
		t.Fatalf("set total=%d available=%d; want 10, 7", setTotal, setAvailable)
	}
	if out.AvailableCopies != 7 {
		t.Fatalf("out.AvailableCopies=%d; want 7", out.AvailableCopies)
	}
}

func TestDelete_WithActiveLoansConflicts(t *testing.T) {
	m := &bookMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
			return &model.Book{ID: id}, nil
		},
	}
	l := &loanMock{
		countOpenFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int, error) { return 1, nil },
	}
	s := catalogsvc.New(passTx{}, m, l)

	if err := s.Delete(context.Background(), 1); catalogsvc.Code(err) != catalogsvc.ErrHasActiveLoans {
		t.Fatalf("expected HAS_ACTIVE_LOANS, got %v", err)
	}
}

func TestDelete_HistoricalLoansAllowed(t *testing.T) {
	deleted := false
	m := &bookMock{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
			return &model.Book{ID: id}, nil
		},
		deleteFn: func(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
			deleted = true
			return true, nil
		},
	}
	l := &loanMock{
		countOpenFn: func(ctx context.Context, tx *sql.Tx, bookID int64) (int, error) { return 0, nil },
	}
	s := catalogsvc.New(passTx{}, m, l)

	if err := s.Delete(context.Background(), 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected repo delete to be called")
	}
}
