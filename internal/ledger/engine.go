// Package ledger records income, expense and transfer transactions and keeps
// account balances consistent with them.
package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/account"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

// CreateInput describes a new transaction. Zero ids are unset; a zero Date
// means now. Standard transactions need AccountID and CategoryID, transfers
// need SenderAccountID and ReceiverAccountID. ExternalID, when set, must be
// new for AccountID.
type CreateInput struct {
	Date              time.Time
	Amount            decimal.Decimal
	Type              model.TransactionType
	Description       string
	ExternalID        string
	AccountID         int64
	CategoryID        int64
	SenderAccountID   int64
	ReceiverAccountID int64
}

// UpdatePatch holds the fields to change. Nil fields keep their stored value.
type UpdatePatch struct {
	Date              *time.Time
	Amount            *decimal.Decimal
	Type              *model.TransactionType
	Description       *string
	AccountID         *int64
	CategoryID        *int64
	SenderAccountID   *int64
	ReceiverAccountID *int64
}

// Engine orchestrates every ledger mutation. Each create, update and remove
// runs in one storage scope together with its balance adjustments.
type Engine struct {
	store    service.Storage
	adjuster *account.Adjuster
	now      func() time.Time
}

// NewEngine creates a ledger engine.
func NewEngine(store service.Storage, adjuster *account.Adjuster) *Engine {
	return &Engine{store: store, adjuster: adjuster, now: time.Now}
}

// SetClock overrides the clock used for default transaction dates.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Create validates the input, applies its balance effects and stores the row.
func (e *Engine) Create(ctx context.Context, owner model.OwnerID, in CreateInput) (*model.Transaction, error) {
	d := draft{
		Type:        in.Type,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: in.Description,
		ExternalID:  in.ExternalID,
		AccountID:   in.AccountID,
		CategoryID:  in.CategoryID,
		SenderID:    in.SenderAccountID,
		ReceiverID:  in.ReceiverAccountID,
	}
	if d.Date.IsZero() {
		d.Date = e.now()
	}
	if in.Type.IsTransfer() && strings.TrimSpace(in.ExternalID) != "" {
		return nil, common.BadRequestf("transfers cannot carry a statement line id")
	}

	var created *model.Transaction
	err := service.Atomically(ctx, e.store, "create transaction", func(tx service.Transaction) error {
		txn, err := d.derive(ctx, tx, owner)
		if err != nil {
			return err
		}
		txn.ID = uuid.NewString()

		if err := e.apply(ctx, tx, txn, false); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		created = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created transaction",
		"id", created.ID,
		"type", created.Type,
		"amount", created.Amount.String())
	return created, nil
}

// Update reverses the stored effects, re-derives the transaction from the
// patch merged over the stored values, applies the new effects and saves.
// The type may change, which swaps the shape.
func (e *Engine) Update(ctx context.Context, owner model.OwnerID, id string, patch UpdatePatch) (*model.Transaction, error) {
	var updated *model.Transaction
	err := service.Atomically(ctx, e.store, "update transaction", func(tx service.Transaction) error {
		existing, err := tx.GetTransaction(ctx, owner, id)
		if err != nil {
			return err
		}

		if err := e.apply(ctx, tx, existing, true); err != nil {
			return err
		}

		d := draftFrom(existing)
		d.merge(patch)
		txn, err := d.derive(ctx, tx, owner)
		if err != nil {
			return err
		}
		txn.ID = existing.ID
		txn.CreatedAt = existing.CreatedAt

		if err := e.apply(ctx, tx, txn, false); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, txn); err != nil {
			return err
		}
		updated = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated transaction",
		"id", updated.ID,
		"type", updated.Type,
		"amount", updated.Amount.String())
	return updated, nil
}

// Remove reverses the stored effects and deletes the row.
func (e *Engine) Remove(ctx context.Context, owner model.OwnerID, id string) error {
	err := service.Atomically(ctx, e.store, "remove transaction", func(tx service.Transaction) error {
		existing, err := tx.GetTransaction(ctx, owner, id)
		if err != nil {
			return err
		}
		return e.remove(ctx, tx, existing)
	})
	if err != nil {
		return err
	}

	slog.Info("removed transaction", "id", id)
	return nil
}

// RemoveByCategories reverses and deletes every transaction filed under
// categoryIDs inside the caller's scope.
func (e *Engine) RemoveByCategories(ctx context.Context, scope service.Transaction, owner model.OwnerID, categoryIDs []int64) error {
	txns, err := scope.ListTransactionsByCategories(ctx, owner, categoryIDs)
	if err != nil {
		return err
	}
	for i := range txns {
		if err := e.remove(ctx, scope, &txns[i]); err != nil {
			return err
		}
	}
	if len(txns) > 0 {
		slog.Info("removed transactions for categories", "categories", categoryIDs, "count", len(txns))
	}
	return nil
}

// FindAll returns one page of the owner's transactions. Without sort keys
// the newest transactions come first.
func (e *Engine) FindAll(ctx context.Context, owner model.OwnerID, filter service.TransactionFilter) (*service.TransactionPage, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	if len(filter.Sort) == 0 {
		filter.Sort = []service.SortKey{{Field: service.SortByTransactionDate, Desc: true}}
	}

	items, total, err := e.store.ListTransactions(ctx, owner, filter)
	if err != nil {
		return nil, common.WrapInternal("list transactions", err)
	}
	return &service.TransactionPage{Items: items, Total: total}, nil
}

// FindOne returns a single transaction.
func (e *Engine) FindOne(ctx context.Context, owner model.OwnerID, id string) (*model.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.BadRequestf("transaction id is required")
	}
	txn, err := e.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return nil, common.WrapInternal("find transaction", err)
	}
	return txn, nil
}

func (e *Engine) remove(ctx context.Context, tx service.Transaction, txn *model.Transaction) error {
	if err := e.apply(ctx, tx, txn, true); err != nil {
		return err
	}
	return tx.DeleteTransaction(ctx, txn.Owner, txn.ID)
}

// apply runs the transaction's forward effects, or their inverses when reverse is set.
func (e *Engine) apply(ctx context.Context, tx service.Transaction, txn *model.Transaction, reverse bool) error {
	effects, err := txn.Effects()
	if reverse {
		effects, err = txn.ReverseEffects()
	}
	if err != nil {
		return err
	}
	return e.adjuster.Apply(ctx, tx, txn.Owner, txn.Amount, effects)
}

func validateFilter(filter service.TransactionFilter) error {
	if filter.Skip < 0 || filter.Take < 0 {
		return common.BadRequestf("skip and take must not be negative")
	}
	if filter.Date != nil && filter.Date.End.Before(filter.Date.Start) {
		return common.BadRequestf("date range ends before it starts")
	}
	if filter.Amount != nil {
		if filter.Amount.Max.LessThan(filter.Amount.Min) {
			return common.BadRequestf("amount range maximum is below its minimum")
		}
		if err := service.ValidateMoney(filter.Amount.Min); err != nil {
			return err
		}
		if err := service.ValidateMoney(filter.Amount.Max); err != nil {
			return err
		}
	}
	for _, t := range filter.Types {
		if !t.Valid() {
			return common.BadRequestf("unknown transaction type %q", t)
		}
	}
	for _, key := range filter.Sort {
		if !key.Field.Valid() {
			return common.BadRequestf("cannot sort by %q", key.Field)
		}
	}
	return nil
}
