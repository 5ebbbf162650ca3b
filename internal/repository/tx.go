package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Sentinel errors surfaced by lifecycle transactions. Services translate them
// into API errors; repositories keep them storage-flavoured.
var (
	ErrActivityUnavailable = errors.New("activity not open for enrollment")
	ErrActivityFull        = errors.New("activity has no free seats")
	ErrDuplicateEnrollment = errors.New("student already enrolled in activity")
	ErrInvalidTransition   = errors.New("enrollment status transition not allowed")
)

// withTx runs fn inside a transaction, committing on success and rolling back
// on error or panic. All seat-ledger mutations go through here.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
