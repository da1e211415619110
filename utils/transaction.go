package utils

import (
	"context"
	"database/sql"
	"fmt"
)

// TxOptions is used by WithTransaction.
var TxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// WithTransaction runs fn inside a transaction, committing when fn returns
// nil and rolling back otherwise (including on panic).
func WithTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, TxOptions)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
