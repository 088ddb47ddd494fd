// model/borrowing.go
package model

import "time"

type BorrowingStatus string

const (
	StatusBorrowed BorrowingStatus = "BORROWED"
	StatusReturned BorrowingStatus = "RETURNED"

	// StatusOverdue is derived at read time from dueDate; it is never
	// written to storage. A loan past due still stores BORROWED.
	StatusOverdue BorrowingStatus = "OVERDUE"
)

type Borrowing struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	BookID     int64           `json:"bookId"`
	BorrowDate time.Time       `json:"borrowDate"`
	DueDate    time.Time       `json:"dueDate"`
	ReturnDate *time.Time      `json:"returnDate,omitempty"`
	Status     BorrowingStatus `json:"status"`

	// Joined for display in listings.
	BookTitle string `json:"bookTitle,omitempty"`
	Username  string `json:"username,omitempty"`
}
