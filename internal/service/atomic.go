package service

import (
	"context"
	"fmt"

	"github.com/Veraticus/pennywise/internal/common"
)

// Atomically runs fn inside one storage transaction. Nothing fn does is
// visible unless it returns nil and the commit succeeds. Domain errors pass
// through unchanged; anything else is logged and wrapped as internal.
func Atomically(ctx context.Context, store Storage, action string, fn func(tx Transaction) error) error {
	err := runInTx(ctx, store, fn)
	if err == nil || common.IsDomain(err) {
		return err
	}
	common.LogError(ctx, err, "failed to "+action, common.Fields{"action": action})
	return common.WrapInternal(action, err)
}

func runInTx(ctx context.Context, store Storage, fn func(tx Transaction) error) (err error) {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
