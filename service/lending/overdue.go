package lendingsvc

import (
	"time"

	"librarycatalog/model"
)

// EffectiveStatus derives what a loan should report right now. An open loan
// past its due date reads as OVERDUE; stored state is never rewritten, and a
// returned loan reads RETURNED no matter how late it was.
func EffectiveStatus(b model.Borrowing, now time.Time) model.BorrowingStatus {
	if b.Status == model.StatusBorrowed && b.DueDate.Before(now) {
		return model.StatusOverdue
	}
	return b.Status
}

// ApplyOverdue rewrites the presented status of each loan in place.
func ApplyOverdue(loans []model.Borrowing, now time.Time) {
	for i := range loans {
		loans[i].Status = EffectiveStatus(loans[i], now)
	}
}
