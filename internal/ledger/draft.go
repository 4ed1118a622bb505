package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

// draft is a flat, not yet validated set of transaction fields. Only the
// references belonging to Type's shape are used when it is derived.
type draft struct {
	Date        time.Time
	Amount      decimal.Decimal
	Type        model.TransactionType
	Description string
	ExternalID  string
	AccountID   int64
	CategoryID  int64
	SenderID    int64
	ReceiverID  int64
}

func draftFrom(txn *model.Transaction) draft {
	d := draft{
		Type:        txn.Type,
		Amount:      txn.Amount,
		Date:        txn.Date,
		Description: txn.Description,
		ExternalID:  txn.ExternalID,
	}
	switch s := txn.Shape.(type) {
	case model.StandardShape:
		d.AccountID = s.AccountID
		d.CategoryID = s.CategoryID
	case model.TransferShape:
		d.SenderID = s.SenderAccountID
		d.ReceiverID = s.ReceiverAccountID
	}
	return d
}

// merge overwrites d with every field set in patch.
func (d *draft) merge(patch UpdatePatch) {
	if patch.Type != nil {
		d.Type = *patch.Type
	}
	if patch.Amount != nil {
		d.Amount = *patch.Amount
	}
	if patch.Date != nil {
		d.Date = *patch.Date
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.AccountID != nil {
		d.AccountID = *patch.AccountID
	}
	if patch.CategoryID != nil {
		d.CategoryID = *patch.CategoryID
	}
	if patch.SenderAccountID != nil {
		d.SenderID = *patch.SenderAccountID
	}
	if patch.ReceiverAccountID != nil {
		d.ReceiverID = *patch.ReceiverAccountID
	}
}

// derive validates the draft against the owner's accounts and categories and
// returns the transaction with the shape its type calls for.
func (d draft) derive(ctx context.Context, q service.Queries, owner model.OwnerID) (*model.Transaction, error) {
	if !d.Type.Valid() {
		return nil, common.BadRequestf("unknown transaction type %q", d.Type)
	}
	if !d.Amount.IsPositive() {
		return nil, common.BadRequestf("amount must be positive, got %s", d.Amount)
	}
	if err := service.ValidateMoney(d.Amount); err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		Owner:       owner,
		Type:        d.Type,
		Amount:      d.Amount,
		Date:        d.Date,
		Description: strings.TrimSpace(d.Description),
		ExternalID:  strings.TrimSpace(d.ExternalID),
	}

	if d.Type.IsTransfer() {
		// Statement line ids are scoped to a single account.
		txn.ExternalID = ""
		shape, err := d.transferShape(ctx, q, owner)
		if err != nil {
			return nil, err
		}
		txn.Shape = shape
		return txn, nil
	}

	shape, err := d.standardShape(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	txn.Shape = shape
	return txn, nil
}

func (d draft) transferShape(ctx context.Context, q service.Queries, owner model.OwnerID) (model.TransferShape, error) {
	if d.SenderID == 0 || d.ReceiverID == 0 {
		return model.TransferShape{}, common.BadRequestf("a transfer needs a sender and a receiver account")
	}
	if d.SenderID == d.ReceiverID {
		return model.TransferShape{}, common.BadRequestf("sender and receiver must be different accounts")
	}
	for _, id := range []int64{d.SenderID, d.ReceiverID} {
		if _, err := q.GetAccount(ctx, owner, id); err != nil {
			return model.TransferShape{}, err
		}
	}
	return model.TransferShape{SenderAccountID: d.SenderID, ReceiverAccountID: d.ReceiverID}, nil
}

func (d draft) standardShape(ctx context.Context, q service.Queries, owner model.OwnerID) (model.StandardShape, error) {
	if d.AccountID == 0 || d.CategoryID == 0 {
		return model.StandardShape{}, common.BadRequestf("a %s transaction needs an account and a category", d.Type)
	}
	if _, err := q.GetAccount(ctx, owner, d.AccountID); err != nil {
		return model.StandardShape{}, err
	}
	category, err := q.GetCategory(ctx, owner, d.CategoryID)
	if err != nil {
		return model.StandardShape{}, err
	}
	want, _ := d.Type.CategoryType()
	if category.Type != want {
		return model.StandardShape{}, common.BadRequestf("%s transaction cannot use %s category %q", d.Type, category.Type, category.Name)
	}
	return model.StandardShape{AccountID: d.AccountID, CategoryID: d.CategoryID}, nil
}
