package seed

import (
	"context"
	"log/slog"

	"github.com/Veraticus/pennywise/internal/account"
	"github.com/Veraticus/pennywise/internal/category"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

// CategoryCreator is satisfied by *category.Manager.
type CategoryCreator interface {
	Create(ctx context.Context, owner model.OwnerID, in category.CreateInput) (*model.Category, error)
	FindByName(ctx context.Context, owner model.OwnerID, name string) (*model.Category, error)
}

// AccountTypeCreator is satisfied by *account.TypeRegistry.
type AccountTypeCreator interface {
	Create(ctx context.Context, owner model.OwnerID, in account.TypeInput) (*model.AccountType, error)
	FindByName(ctx context.Context, owner model.OwnerID, name string) (*model.AccountType, error)
}

// AccountCreator is satisfied by *account.Registry.
type AccountCreator interface {
	Create(ctx context.Context, owner model.OwnerID, in account.CreateInput) (*model.Account, error)
}

// Result counts what Load created and what already existed.
type Result struct {
	CategoriesCreated int
	CategoriesSkipped int
	TypesCreated      int
	TypesSkipped      int
	AccountsCreated   int
	AccountsSkipped   int
}

// Skipped is every seeded row that already existed.
func (r *Result) Skipped() int {
	return r.CategoriesSkipped + r.TypesSkipped + r.AccountsSkipped
}

// Load creates the default account types, category forest and cash account
// for owner. Names that already exist are skipped, so Load can be run again
// safely.
func Load(ctx context.Context, owner model.OwnerID, locale Locale, categories CategoryCreator, types AccountTypeCreator, accounts AccountCreator) (*Result, error) {
	res := &Result{}

	var cashType *model.AccountType
	for i, name := range DefaultAccountTypes(locale) {
		accountType, err := ensureAccountType(ctx, types, owner, name, i+1, res)
		if err != nil {
			return res, err
		}
		if cashType == nil {
			cashType = accountType
		}
	}

	for i, root := range DefaultForest(locale) {
		parent, err := ensureCategory(ctx, categories, owner, root, nil, i+1, res)
		if err != nil {
			return res, err
		}
		for j, child := range root.Children {
			if _, err := ensureCategory(ctx, categories, owner, child, &parent.ID, j+1, res); err != nil {
				return res, err
			}
		}
	}

	_, err := accounts.Create(ctx, owner, account.CreateInput{
		Name:      DefaultAccountName(locale),
		TypeID:    &cashType.ID,
		SortOrder: 1,
	})
	switch {
	case err == nil:
		res.AccountsCreated++
	case common.KindOf(err) == common.KindConflict:
		res.AccountsSkipped++
	default:
		return res, err
	}

	slog.Info("seeded owner",
		"owner", owner,
		"locale", locale,
		"categories_created", res.CategoriesCreated,
		"categories_skipped", res.CategoriesSkipped,
		"account_types_created", res.TypesCreated,
		"accounts_created", res.AccountsCreated)
	return res, nil
}

func ensureCategory(ctx context.Context, categories CategoryCreator, owner model.OwnerID, node Node, parentID *int64, sortOrder int, res *Result) (*model.Category, error) {
	created, err := categories.Create(ctx, owner, category.CreateInput{
		Name:      node.Name,
		Type:      node.Type,
		ParentID:  parentID,
		SortOrder: sortOrder,
	})
	if err == nil {
		res.CategoriesCreated++
		return created, nil
	}
	if common.KindOf(err) != common.KindConflict {
		return nil, err
	}

	res.CategoriesSkipped++
	return categories.FindByName(ctx, owner, node.Name)
}

func ensureAccountType(ctx context.Context, types AccountTypeCreator, owner model.OwnerID, name string, sortOrder int, res *Result) (*model.AccountType, error) {
	created, err := types.Create(ctx, owner, account.TypeInput{Name: name, SortOrder: sortOrder})
	if err == nil {
		res.TypesCreated++
		return created, nil
	}
	if common.KindOf(err) != common.KindConflict {
		return nil, err
	}

	res.TypesSkipped++
	return types.FindByName(ctx, owner, name)
}
