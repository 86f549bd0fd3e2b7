package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brauwerk/brauwerk-backend/pkg/errors"
)

type txKey struct{}

// Transaction executes fn within a database transaction. The transaction is
// stored in the context, so every repository call made with the returned
// context runs on that transaction. Nested calls join the ambient transaction
// instead of opening a new one; only the outermost call commits.
//
// Business errors returned by fn propagate unchanged after rollback. Begin and
// commit failures are wrapped as PersistenceFailure: the caller may safely
// retry the whole operation since nothing was applied.
func (db *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.PersistenceFailure(fmt.Errorf("failed to begin transaction: %w", err))
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.PersistenceFailure(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// txFromContext extracts the transaction from context if present
func txFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
