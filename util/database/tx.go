package database

import (
	"context"
	"database/sql"
)

// Runner wraps a *sql.DB so services can run a unit of work inside one
// transaction without holding the DB handle themselves.
type Runner struct{ DB *sql.DB }

func (r Runner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
