package bookrepo

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"librarycatalog/model"
)

var pg = goqu.Dialect("postgres")

// sortColumns whitelists the sortable fields exposed by the search API.
var sortColumns = map[string]string{
	"title":  "title",
	"author": "author",
	"year":   "publication_year",
}

// BuildSearch turns the conjunctive filter set into a goqu dataset over books.
// All text matching is case-insensitive substring matching.
func BuildSearch(f model.SearchFilter) *goqu.SelectDataset {
	ds := pg.From("books")

	if q := strings.TrimSpace(f.Query); q != "" {
		pat := "%" + strings.ToLower(q) + "%"
		ds = ds.Where(goqu.Or(
			goqu.L("lower(title)").Like(pat),
			goqu.L("lower(author)").Like(pat),
			goqu.L("lower(isbn)").Like(pat),
			goqu.L("lower(genre)").Like(pat),
			goqu.L("lower(publisher)").Like(pat),
			goqu.L("lower(description)").Like(pat),
		))
	}
	if g := strings.TrimSpace(f.Genre); g != "" {
		ds = ds.Where(goqu.L("lower(genre)").Like("%" + strings.ToLower(g) + "%"))
	}
	if a := strings.TrimSpace(f.Author); a != "" {
		ds = ds.Where(goqu.L("lower(author)").Like("%" + strings.ToLower(a) + "%"))
	}
	if p := strings.TrimSpace(f.Publisher); p != "" {
		ds = ds.Where(goqu.L("lower(publisher)").Like("%" + strings.ToLower(p) + "%"))
	}
	if f.YearFrom != nil {
		ds = ds.Where(goqu.C("publication_year").Gte(*f.YearFrom))
	}
	if f.YearTo != nil {
		ds = ds.Where(goqu.C("publication_year").Lte(*f.YearTo))
	}
	if f.Available {
		ds = ds.Where(goqu.C("available_copies").Gt(0))
	}
	return ds
}

// OrderSearch applies the sort directive ("field" or "field,desc"); unknown
// fields fall back to the default title ascending.
func OrderSearch(ds *goqu.SelectDataset, sort string) *goqu.SelectDataset {
	field, dir, _ := strings.Cut(strings.TrimSpace(sort), ",")
	col, ok := sortColumns[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		col = "title"
		dir = ""
	}
	if strings.EqualFold(strings.TrimSpace(dir), "desc") {
		return ds.Order(goqu.I(col).Desc(), goqu.I("id").Asc())
	}
	return ds.Order(goqu.I(col).Asc(), goqu.I("id").Asc())
}

func (r *repo) Search(ctx context.Context, f model.SearchFilter, page, size int, sort string) ([]model.Book, int64, error) {
	base := BuildSearch(f)

	countSQL, countArgs, err := base.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	ds := OrderSearch(base, sort).
		Select(
			"id", "title", "author", "isbn", "genre", "publisher",
			"publication_year", "description", "total_copies", "available_copies",
		).
		Limit(uint(size)).
		Offset(uint(page * size))
	q, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := scanBook(rows, &b); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}
