package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

// TypeInput describes a new account type.
type TypeInput struct {
	Name        string
	Description string
	IconID      string
	SortOrder   int
}

// TypePatch holds the account type fields to change. Nil fields are left as is.
type TypePatch struct {
	Name        *string
	Description *string
	IconID      *string
	SortOrder   *int
}

// TypeRegistry manages the account types accounts are grouped under.
type TypeRegistry struct {
	store service.Storage
}

// NewTypeRegistry creates an account type registry backed by store.
func NewTypeRegistry(store service.Storage) *TypeRegistry {
	return &TypeRegistry{store: store}
}

// Create adds an account type with a name unique to the owner.
func (r *TypeRegistry) Create(ctx context.Context, owner model.OwnerID, in TypeInput) (*model.AccountType, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.BadRequestf("account type name is required")
	}

	accountType := &model.AccountType{
		Owner:       owner,
		Name:        name,
		Description: in.Description,
		IconID:      in.IconID,
		SortOrder:   in.SortOrder,
	}

	err := service.Atomically(ctx, r.store, "create account type", func(tx service.Transaction) error {
		if err := ensureTypeNameFree(ctx, tx, owner, name, 0); err != nil {
			return err
		}
		if err := service.RequireIcon(ctx, tx, in.IconID); err != nil {
			return err
		}
		return tx.CreateAccountType(ctx, accountType)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created account type", "id", accountType.ID, "name", accountType.Name)
	return accountType, nil
}

// Update applies patch to an account type.
func (r *TypeRegistry) Update(ctx context.Context, owner model.OwnerID, id int64, patch TypePatch) (*model.AccountType, error) {
	var updated *model.AccountType
	err := service.Atomically(ctx, r.store, "update account type", func(tx service.Transaction) error {
		accountType, err := tx.GetAccountType(ctx, owner, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return common.BadRequestf("account type name is required")
			}
			if name != accountType.Name {
				if err := ensureTypeNameFree(ctx, tx, owner, name, id); err != nil {
					return err
				}
			}
			accountType.Name = name
		}
		if patch.Description != nil {
			accountType.Description = *patch.Description
		}
		if patch.IconID != nil {
			if err := service.RequireIcon(ctx, tx, *patch.IconID); err != nil {
				return err
			}
			accountType.IconID = *patch.IconID
		}
		if patch.SortOrder != nil {
			accountType.SortOrder = *patch.SortOrder
		}

		if err := tx.UpdateAccountType(ctx, accountType); err != nil {
			return err
		}
		updated = accountType
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated account type", "id", updated.ID, "name", updated.Name)
	return updated, nil
}

// Remove deletes an account type that no account belongs to.
func (r *TypeRegistry) Remove(ctx context.Context, owner model.OwnerID, id int64) error {
	err := service.Atomically(ctx, r.store, "remove account type", func(tx service.Transaction) error {
		accountType, err := tx.GetAccountType(ctx, owner, id)
		if err != nil {
			return err
		}
		if accountType.AccountCount > 0 {
			return common.BadRequestf("account type %d still has %d accounts", id, accountType.AccountCount)
		}
		return tx.DeleteAccountType(ctx, owner, id)
	})
	if err != nil {
		return err
	}

	slog.Info("removed account type", "id", id)
	return nil
}

// FindAll lists every account type ordered by sort order then name.
func (r *TypeRegistry) FindAll(ctx context.Context, owner model.OwnerID) ([]model.AccountType, error) {
	types, err := r.store.ListAccountTypes(ctx, owner)
	if err != nil {
		return nil, common.WrapInternal("list account types", err)
	}
	return types, nil
}

// FindOne returns a single account type.
func (r *TypeRegistry) FindOne(ctx context.Context, owner model.OwnerID, id int64) (*model.AccountType, error) {
	accountType, err := r.store.GetAccountType(ctx, owner, id)
	if err != nil {
		return nil, common.WrapInternal("find account type", err)
	}
	return accountType, nil
}

// FindByName returns the owner's account type with the given name.
func (r *TypeRegistry) FindByName(ctx context.Context, owner model.OwnerID, name string) (*model.AccountType, error) {
	accountType, err := r.store.GetAccountTypeByName(ctx, owner, name)
	if err != nil {
		return nil, common.WrapInternal("find account type", err)
	}
	return accountType, nil
}

// UpdateSortOrder sets sort order to each id's position plus one.
func (r *TypeRegistry) UpdateSortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error {
	return service.Atomically(ctx, r.store, "update account type sort order", func(tx service.Transaction) error {
		missing, err := tx.FindMissingAccountTypeIDs(ctx, owner, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return common.NotFoundf("account types not found: %v", missing)
		}
		return tx.SetAccountTypeSortOrder(ctx, owner, ids)
	})
}

func ensureTypeNameFree(ctx context.Context, q service.Queries, owner model.OwnerID, name string, selfID int64) error {
	existing, err := q.GetAccountTypeByName(ctx, owner, name)
	if common.KindOf(err) == common.KindNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return common.Conflictf("account type %q already exists", name)
	}
	return nil
}
