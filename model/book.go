// model/book.go
package model

type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	Publisher       string `json:"publisher"`
	PublicationYear int    `json:"publicationYear"`
	Description     string `json:"description"`
	TotalCopies     int    `json:"totalCopies"`
	AvailableCopies int    `json:"availableCopies"`
}

// SearchFilter carries the optional, conjunctive catalog filters.
// Query matches title/author/isbn/genre/publisher/description, case-insensitive.
type SearchFilter struct {
	Query     string
	Genre     string
	Author    string
	Publisher string
	YearFrom  *int
	YearTo    *int
	Available bool
}

// BookPage is one page of search results plus the paging totals the
// client needs to render its pager.
type BookPage struct {
	Content       []Book `json:"content"`
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	TotalElements int64  `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
}
