package database

import (
	"context"
	"database/sql"
)

// Transact runs fn inside a transaction. SQLite transactions are always
// serializable, and that is the sole concurrency mechanism for renumbering:
// a failure rolls back every shift and mutation performed within it, so a
// partially renumbered survey is never observable.
func Transact(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
