// Package account owns account balances and the account registry.
package account

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

// Adjuster is the only writer of account balances. It always runs inside
// a scope owned by the caller and never opens or commits one itself.
type Adjuster struct{}

// NewAdjuster returns a balance adjuster.
func NewAdjuster() *Adjuster {
	return &Adjuster{}
}

// Adjust credits or debits magnitude against the account and returns the
// updated account. magnitude must be non-negative; the sign comes from dir.
func (a *Adjuster) Adjust(ctx context.Context, scope service.Transaction, owner model.OwnerID, accountID int64, magnitude decimal.Decimal, dir model.Direction) (*model.Account, error) {
	if magnitude.IsNegative() {
		return nil, common.BadRequestf("adjustment magnitude must not be negative, got %s", magnitude)
	}
	if !dir.Valid() {
		return nil, common.BadRequestf("unknown adjustment direction %q", dir)
	}

	account, err := scope.GetAccount(ctx, owner, accountID)
	if err != nil {
		return nil, err
	}

	delta := magnitude
	if dir == model.DirectionDebit {
		delta = magnitude.Neg()
	}
	account.Balance = account.Balance.Add(delta)

	if err := scope.SetAccountBalance(ctx, owner, accountID, account.Balance); err != nil {
		return nil, err
	}

	slog.Debug("adjusted balance",
		"account_id", accountID,
		"direction", dir,
		"magnitude", magnitude.String(),
		"balance", account.Balance.String())
	return account, nil
}

// Apply runs each effect in order with the same magnitude.
func (a *Adjuster) Apply(ctx context.Context, scope service.Transaction, owner model.OwnerID, magnitude decimal.Decimal, effects []model.Effect) error {
	for _, effect := range effects {
		if _, err := a.Adjust(ctx, scope, owner, effect.AccountID, magnitude, effect.Direction); err != nil {
			return err
		}
	}
	return nil
}
