package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

const accountTypeColumns = `ty.id, ty.owner_id, ty.name, ty.description, ty.icon_id, ty.sort_order,
	ty.created_at, ty.updated_at,
	(SELECT COUNT(*) FROM accounts a WHERE a.account_type_id = ty.id)`

// CreateAccountType inserts a new account type and fills in its ID and timestamps.
func (q *queries) CreateAccountType(ctx context.Context, accountType *model.AccountType) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if accountType == nil {
		return fmt.Errorf("%w: account type", ErrNilParameter)
	}
	if err := validateOwner(accountType.Owner); err != nil {
		return err
	}
	if err := validateString(accountType.Name, "account type name"); err != nil {
		return err
	}

	now := q.stamp()
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO account_types (owner_id, name, description, icon_id, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		accountType.Owner, accountType.Name, accountType.Description,
		nullableString(accountType.IconID), accountType.SortOrder, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return common.Conflictf("account type %q already exists", accountType.Name)
		}
		return fmt.Errorf("failed to create account type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account type id: %w", err)
	}
	accountType.ID = id
	accountType.CreatedAt = fromMillis(now)
	accountType.UpdatedAt = fromMillis(now)
	return nil
}

// GetAccountType retrieves an owner's account type by ID.
func (q *queries) GetAccountType(ctx context.Context, owner model.OwnerID, id int64) (*model.AccountType, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	row := q.q.QueryRowContext(ctx,
		`SELECT `+accountTypeColumns+` FROM account_types ty WHERE ty.owner_id = ? AND ty.id = ?`, owner, id)
	accountType, err := scanAccountType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("account type %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account type: %w", err)
	}
	return accountType, nil
}

// GetAccountTypeByName retrieves an owner's account type by its unique name.
func (q *queries) GetAccountTypeByName(ctx context.Context, owner model.OwnerID, name string) (*model.AccountType, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	if err := validateString(name, "account type name"); err != nil {
		return nil, err
	}

	row := q.q.QueryRowContext(ctx,
		`SELECT `+accountTypeColumns+` FROM account_types ty WHERE ty.owner_id = ? AND ty.name = ?`, owner, name)
	accountType, err := scanAccountType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("account type %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account type: %w", err)
	}
	return accountType, nil
}

// ListAccountTypes returns every account type of the owner ordered by sort order then name.
func (q *queries) ListAccountTypes(ctx context.Context, owner model.OwnerID) ([]model.AccountType, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+accountTypeColumns+` FROM account_types ty
		WHERE ty.owner_id = ?
		ORDER BY ty.sort_order ASC, ty.name ASC, ty.id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list account types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var types []model.AccountType
	for rows.Next() {
		accountType, err := scanAccountType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account type: %w", err)
		}
		types = append(types, *accountType)
	}
	return types, rows.Err()
}

// UpdateAccountType writes the mutable account type fields.
func (q *queries) UpdateAccountType(ctx context.Context, accountType *model.AccountType) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if accountType == nil {
		return fmt.Errorf("%w: account type", ErrNilParameter)
	}
	if err := validateOwner(accountType.Owner); err != nil {
		return err
	}
	if err := validateString(accountType.Name, "account type name"); err != nil {
		return err
	}

	now := q.stamp()
	result, err := q.q.ExecContext(ctx, `
		UPDATE account_types
		SET name = ?, description = ?, icon_id = ?, sort_order = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		accountType.Name, accountType.Description, nullableString(accountType.IconID),
		accountType.SortOrder, now, accountType.Owner, accountType.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return common.Conflictf("account type %q already exists", accountType.Name)
		}
		return fmt.Errorf("failed to update account type: %w", err)
	}
	if err := expectOneRow(result, "account type", accountType.ID); err != nil {
		return err
	}
	accountType.UpdatedAt = fromMillis(now)
	return nil
}

// DeleteAccountType removes an account type row.
func (q *queries) DeleteAccountType(ctx context.Context, owner model.OwnerID, id int64) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}

	result, err := q.q.ExecContext(ctx, `DELETE FROM account_types WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete account type: %w", err)
	}
	return expectOneRow(result, "account type", id)
}

// FindMissingAccountTypeIDs returns the ids that do not name one of the owner's account types.
func (q *queries) FindMissingAccountTypeIDs(ctx context.Context, owner model.OwnerID, ids []int64) ([]int64, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	return q.findMissing(ctx, "account_types", owner, ids)
}

// SetAccountTypeSortOrder assigns sort order i+1 to ids[i].
func (q *queries) SetAccountTypeSortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}
	return q.setSortOrder(ctx, "account_types", owner, ids)
}

func scanAccountType(row rowScanner) (*model.AccountType, error) {
	var (
		accountType model.AccountType
		owner       string
		iconID      sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&accountType.ID, &owner, &accountType.Name, &accountType.Description, &iconID,
		&accountType.SortOrder, &createdAt, &updatedAt, &accountType.AccountCount)
	if err != nil {
		return nil, err
	}
	accountType.Owner = model.OwnerID(owner)
	accountType.IconID = iconID.String
	accountType.CreatedAt = fromMillis(createdAt)
	accountType.UpdatedAt = fromMillis(updatedAt)
	return &accountType, nil
}
