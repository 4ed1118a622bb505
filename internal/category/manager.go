package category

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

// TransactionRemover reverses and deletes the transactions filed under a set
// of categories inside the caller's scope. The ledger engine implements it.
type TransactionRemover interface {
	RemoveByCategories(ctx context.Context, scope service.Transaction, owner model.OwnerID, categoryIDs []int64) error
}

// CreateInput describes a new category.
type CreateInput struct {
	ParentID    *int64
	Name        string
	Description string
	IconID      string
	Type        model.CategoryType
	SortOrder   int
}

// ParentUpdate moves a category. A nil ID detaches it to a root.
type ParentUpdate struct {
	ID *int64
}

// UpdatePatch holds the category fields to change. Nil fields are left as is.
type UpdatePatch struct {
	Name        *string
	Type        *model.CategoryType
	Description *string
	IconID      *string
	SortOrder   *int
	Parent      *ParentUpdate
}

// Forest is a filtered category forest and its node count.
type Forest struct {
	Roots []*model.CategoryNode
	Total int
}

// Manager enforces the tree invariants: children share their parent's type,
// names are unique per owner and the hierarchy never contains a cycle.
type Manager struct {
	store   service.Storage
	remover TransactionRemover
}

// NewManager creates a category manager. remover may be nil, in which case
// categories that still have transactions cannot be removed.
func NewManager(store service.Storage, remover TransactionRemover) *Manager {
	return &Manager{store: store, remover: remover}
}

// Create adds a category, optionally under a parent of the same type.
func (m *Manager) Create(ctx context.Context, owner model.OwnerID, in CreateInput) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.BadRequestf("category name is required")
	}
	if !in.Type.Valid() {
		return nil, common.BadRequestf("unknown category type %q", in.Type)
	}

	category := &model.Category{
		Owner:       owner,
		Name:        name,
		Type:        in.Type,
		Description: in.Description,
		IconID:      in.IconID,
		ParentID:    in.ParentID,
		SortOrder:   in.SortOrder,
	}

	err := service.Atomically(ctx, m.store, "create category", func(tx service.Transaction) error {
		if err := ensureNameFree(ctx, tx, owner, name, 0); err != nil {
			return err
		}
		if in.ParentID != nil {
			parent, err := tx.GetCategory(ctx, owner, *in.ParentID)
			if err != nil {
				return err
			}
			if parent.Type != in.Type {
				return common.BadRequestf("category type %s does not match parent %q type %s", in.Type, parent.Name, parent.Type)
			}
		}
		if err := service.RequireIcon(ctx, tx, in.IconID); err != nil {
			return err
		}
		return tx.CreateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created category", "id", category.ID, "name", category.Name, "type", category.Type)
	return category, nil
}

// Update applies patch. A type change is only allowed on a leaf with no
// transactions, and the resulting type must match the resulting parent.
func (m *Manager) Update(ctx context.Context, owner model.OwnerID, id int64, patch UpdatePatch) (*model.Category, error) {
	var updated *model.Category
	err := service.Atomically(ctx, m.store, "update category", func(tx service.Transaction) error {
		category, err := tx.GetCategory(ctx, owner, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return common.BadRequestf("category name is required")
			}
			if name != category.Name {
				if err := ensureNameFree(ctx, tx, owner, name, id); err != nil {
					return err
				}
			}
			category.Name = name
		}

		newType := category.Type
		if patch.Type != nil && *patch.Type != category.Type {
			if !patch.Type.Valid() {
				return common.BadRequestf("unknown category type %q", *patch.Type)
			}
			if err := m.checkTypeChange(ctx, tx, owner, id); err != nil {
				return err
			}
			newType = *patch.Type
		}

		parentID := category.ParentID
		moved := false
		if patch.Parent != nil && !sameParent(category.ParentID, patch.Parent.ID) {
			if patch.Parent.ID != nil {
				if err := checkNotDescendant(ctx, tx, owner, id, *patch.Parent.ID); err != nil {
					return err
				}
			}
			parentID = patch.Parent.ID
			moved = true
		}

		if parentID != nil {
			parent, err := tx.GetCategory(ctx, owner, *parentID)
			if err != nil {
				return err
			}
			if parent.Type != newType {
				return common.BadRequestf("category type %s does not match parent %q type %s", newType, parent.Name, parent.Type)
			}
		}

		if patch.Description != nil {
			category.Description = *patch.Description
		}
		if patch.IconID != nil {
			if err := service.RequireIcon(ctx, tx, *patch.IconID); err != nil {
				return err
			}
			category.IconID = *patch.IconID
		}
		if patch.SortOrder != nil {
			category.SortOrder = *patch.SortOrder
		}
		category.Type = newType

		if err := tx.UpdateCategory(ctx, category); err != nil {
			return err
		}
		if moved {
			if err := tx.MoveCategory(ctx, owner, id, parentID); err != nil {
				return err
			}
			category.ParentID = parentID
		}
		updated = category
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated category", "id", updated.ID, "name", updated.Name, "type", updated.Type)
	return updated, nil
}

// checkTypeChange requires the category to have no descendants besides
// itself and no transactions filed under it.
func (m *Manager) checkTypeChange(ctx context.Context, tx service.Transaction, owner model.OwnerID, id int64) error {
	descendants, err := tx.GetDescendantIDs(ctx, owner, id)
	if err != nil {
		return err
	}
	if len(descendants) > 1 {
		return common.BadRequestf("cannot change type of category %d: it has %d subcategories", id, len(descendants)-1)
	}
	count, err := tx.CountCategoryTransactions(ctx, owner, descendants)
	if err != nil {
		return err
	}
	if count > 0 {
		return common.BadRequestf("cannot change type of category %d: it has %d transactions", id, count)
	}
	return nil
}

// Remove deletes a category and its subtree after the transaction remover
// has reversed and removed every transaction filed under them.
func (m *Manager) Remove(ctx context.Context, owner model.OwnerID, id int64) error {
	var removed []int64
	err := service.Atomically(ctx, m.store, "remove category", func(tx service.Transaction) error {
		ids, err := tx.GetDescendantIDs(ctx, owner, id)
		if err != nil {
			return err
		}
		count, err := tx.CountCategoryTransactions(ctx, owner, ids)
		if err != nil {
			return err
		}
		if count > 0 {
			if m.remover == nil {
				return common.BadRequestf("category %d still has %d transactions", id, count)
			}
			if err := m.remover.RemoveByCategories(ctx, tx, owner, ids); err != nil {
				return err
			}
		}
		removed = ids
		return tx.DeleteCategory(ctx, owner, id)
	})
	if err != nil {
		return err
	}

	slog.Info("removed category", "id", id, "subtree_size", len(removed))
	return nil
}

// FindAll returns the forest restricted to categories matching filter and
// their ancestors. An empty filter returns everything.
func (m *Manager) FindAll(ctx context.Context, owner model.OwnerID, filter service.CategoryFilter) (*Forest, error) {
	all, err := m.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, common.WrapInternal("list categories", err)
	}

	for _, t := range filter.Types {
		if !t.Valid() {
			return nil, common.BadRequestf("unknown category type %q", t)
		}
	}

	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))
	retained := RetainWithAncestors(all, func(c *model.Category) bool {
		if keyword != "" && !strings.Contains(strings.ToLower(c.Name), keyword) {
			return false
		}
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, c.Type) {
			return false
		}
		return true
	})

	return &Forest{Roots: BuildForest(retained), Total: len(retained)}, nil
}

// FindOne returns a category with its full subtree attached.
func (m *Manager) FindOne(ctx context.Context, owner model.OwnerID, id int64) (*model.CategoryNode, error) {
	all, err := m.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, common.WrapInternal("find category", err)
	}
	node := Subtree(BuildForest(all), id)
	if node == nil {
		return nil, common.NotFoundf("category %d not found", id)
	}
	return node, nil
}

// FindByName returns the owner's category with the given name.
func (m *Manager) FindByName(ctx context.Context, owner model.OwnerID, name string) (*model.Category, error) {
	category, err := m.store.GetCategoryByName(ctx, owner, name)
	if err != nil {
		return nil, common.WrapInternal("find category", err)
	}
	return category, nil
}

// UpdateSortOrder sets sort order to each id's position plus one.
func (m *Manager) UpdateSortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error {
	return service.Atomically(ctx, m.store, "update category sort order", func(tx service.Transaction) error {
		missing, err := tx.FindMissingCategoryIDs(ctx, owner, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return common.NotFoundf("categories not found: %v", missing)
		}
		return tx.SetCategorySortOrder(ctx, owner, ids)
	})
}

func ensureNameFree(ctx context.Context, q service.Queries, owner model.OwnerID, name string, selfID int64) error {
	existing, err := q.GetCategoryByName(ctx, owner, name)
	if common.KindOf(err) == common.KindNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return common.Conflictf("category %q already exists", name)
	}
	return nil
}

// checkNotDescendant rejects moving id beneath itself or its subtree.
func checkNotDescendant(ctx context.Context, q service.Queries, owner model.OwnerID, id, newParentID int64) error {
	descendants, err := q.GetDescendantIDs(ctx, owner, id)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if d == newParentID {
			return common.BadRequestf("cannot move category %d beneath its own subtree", id)
		}
	}
	return nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
