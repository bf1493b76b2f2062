package services

import (
	"context"

	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/jmoiron/sqlx"
)

// runInTx executes fn in one transaction. Errors returned by fn are expected to
// be translated already; begin and commit failures become ErrPersistence.
func runInTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx repositories.SQLExecutor) error) error {
	err := repositories.WithTx(ctx, db, fn)
	if err == nil || isDomainError(err) {
		return err
	}
	return persistenceError(op, err)
}
