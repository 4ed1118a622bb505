package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

const categoryColumns = `id, owner_id, name, type, description, icon_id, parent_id,
	sort_order, created_at, updated_at`

// CreateCategory inserts a category and its closure rows.
func (q *queries) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateOwner(category.Owner); err != nil {
		return err
	}
	if err := validateString(category.Name, "category name"); err != nil {
		return err
	}

	now := q.stamp()
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO categories (owner_id, name, type, description, icon_id, parent_id,
			sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		category.Owner, category.Name, category.Type, category.Description,
		nullableString(category.IconID), nullableInt(category.ParentID),
		category.SortOrder, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return common.Conflictf("category %q already exists", category.Name)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category id: %w", err)
	}

	if _, err := q.q.ExecContext(ctx,
		`INSERT INTO category_closure (ancestor_id, descendant_id, depth) VALUES (?, ?, 0)`,
		id, id); err != nil {
		return fmt.Errorf("failed to insert closure self row: %w", err)
	}
	if category.ParentID != nil {
		if _, err := q.q.ExecContext(ctx, `
			INSERT INTO category_closure (ancestor_id, descendant_id, depth)
			SELECT ancestor_id, ?, depth + 1 FROM category_closure WHERE descendant_id = ?`,
			id, *category.ParentID); err != nil {
			return fmt.Errorf("failed to insert closure ancestors: %w", err)
		}
	}

	category.ID = id
	category.CreatedAt = fromMillis(now)
	category.UpdatedAt = fromMillis(now)

	slog.Debug("created category", "name", category.Name, "id", id)
	return nil
}

// GetCategory retrieves an owner's category by ID.
func (q *queries) GetCategory(ctx context.Context, owner model.OwnerID, id int64) (*model.Category, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	row := q.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? AND id = ?`, owner, id)
	category, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("category %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// GetCategoryByName retrieves an owner's category by its unique name.
func (q *queries) GetCategoryByName(ctx context.Context, owner model.OwnerID, name string) (*model.Category, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	if err := validateString(name, "category name"); err != nil {
		return nil, err
	}

	row := q.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? AND name = ?`, owner, name)
	category, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("category %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// ListCategories returns every category the owner has, ordered for display.
func (q *queries) ListCategories(ctx context.Context, owner model.OwnerID) ([]model.Category, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id = ?
		ORDER BY sort_order ASC, name ASC, id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// UpdateCategory writes name, type, description, icon and sort order.
// Parent changes go through MoveCategory so the closure stays in sync.
func (q *queries) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateOwner(category.Owner); err != nil {
		return err
	}
	if err := validateString(category.Name, "category name"); err != nil {
		return err
	}

	now := q.stamp()
	result, err := q.q.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, type = ?, description = ?, icon_id = ?, sort_order = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		category.Name, category.Type, category.Description, nullableString(category.IconID),
		category.SortOrder, now, category.Owner, category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return common.Conflictf("category %q already exists", category.Name)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	if err := expectOneRow(result, "category", category.ID); err != nil {
		return err
	}
	category.UpdatedAt = fromMillis(now)
	return nil
}

// MoveCategory re-parents a category and its subtree. A nil parentID makes
// it a root. Callers must have ruled out moving a node under its own subtree.
func (q *queries) MoveCategory(ctx context.Context, owner model.OwnerID, id int64, parentID *int64) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}

	result, err := q.q.ExecContext(ctx,
		`UPDATE categories SET parent_id = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		nullableInt(parentID), q.stamp(), owner, id)
	if err != nil {
		return fmt.Errorf("failed to update category parent: %w", err)
	}
	if err := expectOneRow(result, "category", id); err != nil {
		return err
	}

	// Detach the subtree from its old ancestors.
	if _, err := q.q.ExecContext(ctx, `
		DELETE FROM category_closure
		WHERE descendant_id IN (SELECT descendant_id FROM category_closure WHERE ancestor_id = ?)
		AND ancestor_id NOT IN (SELECT descendant_id FROM category_closure WHERE ancestor_id = ?)`,
		id, id); err != nil {
		return fmt.Errorf("failed to detach category subtree: %w", err)
	}

	if parentID == nil {
		return nil
	}

	// Attach it under every ancestor of the new parent.
	if _, err := q.q.ExecContext(ctx, `
		INSERT INTO category_closure (ancestor_id, descendant_id, depth)
		SELECT p.ancestor_id, c.descendant_id, p.depth + c.depth + 1
		FROM category_closure p, category_closure c
		WHERE p.descendant_id = ? AND c.ancestor_id = ?`,
		*parentID, id); err != nil {
		return fmt.Errorf("failed to attach category subtree: %w", err)
	}
	return nil
}

// GetDescendantIDs returns id and every category beneath it.
func (q *queries) GetDescendantIDs(ctx context.Context, owner model.OwnerID, id int64) ([]int64, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT cc.descendant_id
		FROM category_closure cc
		JOIN categories c ON c.id = cc.descendant_id
		WHERE cc.ancestor_id = ? AND c.owner_id = ?
		ORDER BY cc.depth ASC, cc.descendant_id ASC`, id, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query descendants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var descendant int64
		if err := rows.Scan(&descendant); err != nil {
			return nil, fmt.Errorf("failed to scan descendant: %w", err)
		}
		ids = append(ids, descendant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, common.NotFoundf("category %d not found", id)
	}
	return ids, nil
}

// DeleteCategory removes a category together with its whole subtree.
func (q *queries) DeleteCategory(ctx context.Context, owner model.OwnerID, id int64) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}

	result, err := q.q.ExecContext(ctx, `
		DELETE FROM categories
		WHERE owner_id = ?
		AND id IN (SELECT descendant_id FROM category_closure WHERE ancestor_id = ?)`,
		owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return expectOneRow(result, "category", id)
}

// CountCategoryTransactions counts transactions filed under any of ids.
func (q *queries) CountCategoryTransactions(ctx context.Context, owner model.OwnerID, ids []int64) (int, error) {
	if err := validateScope(ctx, owner); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	in, args := inClause(ids)
	var count int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE owner_id = ? AND category_id IN `+in,
		append([]any{owner}, args...)...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count category transactions: %w", err)
	}
	return count, nil
}

// FindMissingCategoryIDs returns the ids that do not name one of the owner's categories.
func (q *queries) FindMissingCategoryIDs(ctx context.Context, owner model.OwnerID, ids []int64) ([]int64, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	return q.findMissing(ctx, "categories", owner, ids)
}

// SetCategorySortOrder assigns sort order i+1 to ids[i].
func (q *queries) SetCategorySortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}
	return q.setSortOrder(ctx, "categories", owner, ids)
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		category  model.Category
		owner     string
		catType   string
		iconID    sql.NullString
		parentID  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&category.ID, &owner, &category.Name, &catType, &category.Description,
		&iconID, &parentID, &category.SortOrder, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	category.Owner = model.OwnerID(owner)
	category.Type = model.CategoryType(catType)
	category.IconID = iconID.String
	category.ParentID = intPtr(parentID)
	category.CreatedAt = fromMillis(createdAt)
	category.UpdatedAt = fromMillis(updatedAt)
	return &category, nil
}
