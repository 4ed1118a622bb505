package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

// CreateInput describes a new account. TypeID is optional.
type CreateInput struct {
	InitialBalance decimal.Decimal
	TypeID         *int64
	Name           string
	Description    string
	IconID         string
	SortOrder      int
}

// TypeUpdate moves an account to another type. A nil ID leaves it untyped.
type TypeUpdate struct {
	ID *int64
}

// UpdatePatch holds the account fields to change. Nil fields are left as is.
type UpdatePatch struct {
	Name           *string
	Description    *string
	IconID         *string
	InitialBalance *decimal.Decimal
	SortOrder      *int
	Type           *TypeUpdate
}

// Registry manages the lifecycle of accounts.
type Registry struct {
	store    service.Storage
	adjuster *Adjuster
}

// NewRegistry creates an account registry backed by store.
func NewRegistry(store service.Storage, adjuster *Adjuster) *Registry {
	return &Registry{store: store, adjuster: adjuster}
}

// Create adds an account whose balance starts at its initial balance.
func (r *Registry) Create(ctx context.Context, owner model.OwnerID, in CreateInput) (*model.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.BadRequestf("account name is required")
	}
	if err := service.ValidateMoney(in.InitialBalance); err != nil {
		return nil, err
	}

	account := &model.Account{
		Owner:          owner,
		Name:           name,
		Description:    in.Description,
		IconID:         in.IconID,
		TypeID:         in.TypeID,
		Balance:        in.InitialBalance,
		InitialBalance: in.InitialBalance,
		SortOrder:      in.SortOrder,
	}

	err := service.Atomically(ctx, r.store, "create account", func(tx service.Transaction) error {
		if err := ensureNameFree(ctx, tx, owner, name, 0); err != nil {
			return err
		}
		if err := service.RequireIcon(ctx, tx, in.IconID); err != nil {
			return err
		}
		if err := requireType(ctx, tx, owner, in.TypeID); err != nil {
			return err
		}
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created account", "id", account.ID, "name", account.Name, "balance", account.Balance.String())
	return account, nil
}

// Update applies patch to an account. A new initial balance moves the
// running balance by the same delta.
func (r *Registry) Update(ctx context.Context, owner model.OwnerID, id int64, patch UpdatePatch) (*model.Account, error) {
	var updated *model.Account
	err := service.Atomically(ctx, r.store, "update account", func(tx service.Transaction) error {
		account, err := tx.GetAccount(ctx, owner, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return common.BadRequestf("account name is required")
			}
			if name != account.Name {
				if err := ensureNameFree(ctx, tx, owner, name, id); err != nil {
					return err
				}
			}
			account.Name = name
		}
		if patch.Description != nil {
			account.Description = *patch.Description
		}
		if patch.IconID != nil {
			if err := service.RequireIcon(ctx, tx, *patch.IconID); err != nil {
				return err
			}
			account.IconID = *patch.IconID
		}
		if patch.SortOrder != nil {
			account.SortOrder = *patch.SortOrder
		}
		if patch.Type != nil {
			if err := requireType(ctx, tx, owner, patch.Type.ID); err != nil {
				return err
			}
			account.TypeID = patch.Type.ID
		}

		if patch.InitialBalance != nil {
			if err := service.ValidateMoney(*patch.InitialBalance); err != nil {
				return err
			}
			delta := patch.InitialBalance.Sub(account.InitialBalance)
			if !delta.IsZero() {
				dir := model.DirectionCredit
				if delta.IsNegative() {
					dir = model.DirectionDebit
				}
				adjusted, err := r.adjuster.Adjust(ctx, tx, owner, id, delta.Abs(), dir)
				if err != nil {
					return err
				}
				account.Balance = adjusted.Balance
			}
			account.InitialBalance = *patch.InitialBalance
		}

		if err := tx.UpdateAccount(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated account", "id", updated.ID, "name", updated.Name, "balance", updated.Balance.String())
	return updated, nil
}

// Remove deletes an account that no transaction references.
func (r *Registry) Remove(ctx context.Context, owner model.OwnerID, id int64) error {
	err := service.Atomically(ctx, r.store, "remove account", func(tx service.Transaction) error {
		if _, err := tx.GetAccount(ctx, owner, id); err != nil {
			return err
		}
		count, err := tx.CountAccountTransactions(ctx, owner, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return common.BadRequestf("account %d is referenced by %d transactions", id, count)
		}
		return tx.DeleteAccount(ctx, owner, id)
	})
	if err != nil {
		return err
	}

	slog.Info("removed account", "id", id)
	return nil
}

// FindAll lists accounts grouped by account type, then by sort order and name.
func (r *Registry) FindAll(ctx context.Context, owner model.OwnerID, filter service.AccountFilter) (*service.AccountPage, error) {
	if filter.Skip < 0 || filter.Take < 0 {
		return nil, common.BadRequestf("skip and take must not be negative")
	}
	if len(filter.TypeIDs) > 0 {
		missing, err := r.store.FindMissingAccountTypeIDs(ctx, owner, filter.TypeIDs)
		if err != nil {
			return nil, common.WrapInternal("list accounts", err)
		}
		if len(missing) > 0 {
			return nil, common.NotFoundf("account types not found: %v", missing)
		}
	}
	items, total, err := r.store.ListAccounts(ctx, owner, filter)
	if err != nil {
		return nil, common.WrapInternal("list accounts", err)
	}
	return &service.AccountPage{Items: items, Total: total}, nil
}

// FindOne returns a single account.
func (r *Registry) FindOne(ctx context.Context, owner model.OwnerID, id int64) (*model.Account, error) {
	account, err := r.store.GetAccount(ctx, owner, id)
	if err != nil {
		return nil, common.WrapInternal("find account", err)
	}
	return account, nil
}

// FindByName returns the owner's account with the given name.
func (r *Registry) FindByName(ctx context.Context, owner model.OwnerID, name string) (*model.Account, error) {
	account, err := r.store.GetAccountByName(ctx, owner, name)
	if err != nil {
		return nil, common.WrapInternal("find account", err)
	}
	return account, nil
}

// UpdateSortOrder sets sort order to each id's position plus one.
func (r *Registry) UpdateSortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error {
	return service.Atomically(ctx, r.store, "update account sort order", func(tx service.Transaction) error {
		missing, err := tx.FindMissingAccountIDs(ctx, owner, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return common.NotFoundf("accounts not found: %v", missing)
		}
		return tx.SetAccountSortOrder(ctx, owner, ids)
	})
}

// TotalBalance sums every balance the owner holds.
func (r *Registry) TotalBalance(ctx context.Context, owner model.OwnerID) (decimal.Decimal, error) {
	total, err := r.store.SumAccountBalances(ctx, owner)
	if err != nil {
		return decimal.Zero, common.WrapInternal("sum balances", err)
	}
	return total, nil
}

func requireType(ctx context.Context, q service.Queries, owner model.OwnerID, typeID *int64) error {
	if typeID == nil {
		return nil
	}
	_, err := q.GetAccountType(ctx, owner, *typeID)
	return err
}

func ensureNameFree(ctx context.Context, q service.Queries, owner model.OwnerID, name string, selfID int64) error {
	existing, err := q.GetAccountByName(ctx, owner, name)
	if common.KindOf(err) == common.KindNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return common.Conflictf("account %q already exists", name)
	}
	return nil
}
