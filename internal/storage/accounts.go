package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

const accountColumns = `a.id, a.owner_id, a.name, a.description, a.icon_id, a.account_type_id,
	a.balance_minor, a.initial_balance_minor, a.sort_order, a.created_at, a.updated_at`

// CreateAccount inserts a new account and fills in its ID and timestamps.
func (q *queries) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateOwner(account.Owner); err != nil {
		return err
	}
	if err := validateString(account.Name, "account name"); err != nil {
		return err
	}

	balance, err := model.ToMinorUnits(account.Balance)
	if err != nil {
		return err
	}
	initial, err := model.ToMinorUnits(account.InitialBalance)
	if err != nil {
		return err
	}

	now := q.stamp()
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO accounts (owner_id, name, description, icon_id, account_type_id, balance_minor,
			initial_balance_minor, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.Owner, account.Name, account.Description, nullableString(account.IconID),
		nullableInt(account.TypeID), balance, initial, account.SortOrder, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return common.Conflictf("account %q already exists", account.Name)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account id: %w", err)
	}
	account.ID = id
	account.CreatedAt = fromMillis(now)
	account.UpdatedAt = fromMillis(now)
	return nil
}

// GetAccount retrieves an owner's account by ID.
func (q *queries) GetAccount(ctx context.Context, owner model.OwnerID, id int64) (*model.Account, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	row := q.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE a.owner_id = ? AND a.id = ?`, owner, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("account %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetAccountByName retrieves an owner's account by its unique name.
func (q *queries) GetAccountByName(ctx context.Context, owner model.OwnerID, name string) (*model.Account, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	if err := validateString(name, "account name"); err != nil {
		return nil, err
	}

	row := q.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE a.owner_id = ? AND a.name = ?`, owner, name)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("account %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns one page of accounts plus the total number of
// matches. Accounts are grouped by their type's sort order and name, untyped
// accounts last, then ordered by their own sort order and name.
func (q *queries) ListAccounts(ctx context.Context, owner model.OwnerID, filter service.AccountFilter) ([]model.Account, int, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, 0, err
	}

	where := ` WHERE a.owner_id = ?`
	args := []any{owner}
	if filter.Keyword != "" {
		where += ` AND a.name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(filter.Keyword))
	}
	if len(filter.TypeIDs) > 0 {
		in, inArgs := inClause(filter.TypeIDs)
		where += ` AND a.account_type_id IN ` + in
		args = append(args, inArgs...)
	}

	var total int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts a
		LEFT JOIN account_types ty ON ty.id = a.account_type_id` + where +
		` ORDER BY ty.id IS NULL, ty.sort_order ASC, ty.name ASC,
			a.sort_order ASC, a.name ASC, a.id ASC LIMIT ? OFFSET ?`
	args = append(args, limitArg(filter.Take), filter.Skip)

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, total, rows.Err()
}

// UpdateAccount writes the mutable account fields. Balance is left alone;
// it only moves through SetAccountBalance.
func (q *queries) UpdateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateOwner(account.Owner); err != nil {
		return err
	}
	if err := validateString(account.Name, "account name"); err != nil {
		return err
	}

	initial, err := model.ToMinorUnits(account.InitialBalance)
	if err != nil {
		return err
	}

	now := q.stamp()
	result, err := q.q.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, description = ?, icon_id = ?, account_type_id = ?,
			initial_balance_minor = ?, sort_order = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		account.Name, account.Description, nullableString(account.IconID), nullableInt(account.TypeID),
		initial, account.SortOrder, now, account.Owner, account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return common.Conflictf("account %q already exists", account.Name)
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	if err := expectOneRow(result, "account", account.ID); err != nil {
		return err
	}
	account.UpdatedAt = fromMillis(now)
	return nil
}

// SetAccountBalance overwrites the stored balance.
func (q *queries) SetAccountBalance(ctx context.Context, owner model.OwnerID, id int64, balance decimal.Decimal) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}
	minor, err := model.ToMinorUnits(balance)
	if err != nil {
		return err
	}

	result, err := q.q.ExecContext(ctx,
		`UPDATE accounts SET balance_minor = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		minor, q.stamp(), owner, id)
	if err != nil {
		return fmt.Errorf("failed to set account balance: %w", err)
	}
	return expectOneRow(result, "account", id)
}

// DeleteAccount removes an account row.
func (q *queries) DeleteAccount(ctx context.Context, owner model.OwnerID, id int64) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}

	result, err := q.q.ExecContext(ctx, `DELETE FROM accounts WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(result, "account", id)
}

// CountAccountTransactions counts transactions that reference the account in any role.
func (q *queries) CountAccountTransactions(ctx context.Context, owner model.OwnerID, id int64) (int, error) {
	if err := validateScope(ctx, owner); err != nil {
		return 0, err
	}

	var count int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE owner_id = ? AND (account_id = ? OR sender_account_id = ? OR receiver_account_id = ?)`,
		owner, id, id, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count account transactions: %w", err)
	}
	return count, nil
}

// FindMissingAccountIDs returns the ids that do not name one of the owner's accounts.
func (q *queries) FindMissingAccountIDs(ctx context.Context, owner model.OwnerID, ids []int64) ([]int64, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	return q.findMissing(ctx, "accounts", owner, ids)
}

// SetAccountSortOrder assigns sort order i+1 to ids[i].
func (q *queries) SetAccountSortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}
	return q.setSortOrder(ctx, "accounts", owner, ids)
}

// SumAccountBalances adds up every balance the owner holds.
func (q *queries) SumAccountBalances(ctx context.Context, owner model.OwnerID) (decimal.Decimal, error) {
	if err := validateScope(ctx, owner); err != nil {
		return decimal.Zero, err
	}

	var total int64
	err := q.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance_minor), 0) FROM accounts WHERE owner_id = ?`, owner).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum balances: %w", err)
	}
	return model.FromMinorUnits(total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account        model.Account
		owner          string
		iconID         sql.NullString
		typeID         sql.NullInt64
		balance        int64
		initialBalance int64
		createdAt      int64
		updatedAt      int64
	)
	err := row.Scan(&account.ID, &owner, &account.Name, &account.Description, &iconID, &typeID,
		&balance, &initialBalance, &account.SortOrder, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	account.Owner = model.OwnerID(owner)
	account.IconID = iconID.String
	account.TypeID = intPtr(typeID)
	account.Balance = model.FromMinorUnits(balance)
	account.InitialBalance = model.FromMinorUnits(initialBalance)
	account.CreatedAt = fromMillis(createdAt)
	account.UpdatedAt = fromMillis(updatedAt)
	return &account, nil
}

// findMissing returns the subset of ids absent from table for owner, in input order.
func (q *queries) findMissing(ctx context.Context, table string, owner model.OwnerID, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	in, args := inClause(ids)
	rows, err := q.q.QueryContext(ctx,
		`SELECT id FROM `+table+` WHERE owner_id = ? AND id IN `+in,
		append([]any{owner}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// setSortOrder writes positions in one statement using a CASE expression.
func (q *queries) setSortOrder(ctx context.Context, table string, owner model.OwnerID, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE ` + table + ` SET sort_order = CASE id`
	args := make([]any, 0, len(ids)*3+2)
	for i, id := range ids {
		query += ` WHEN ? THEN ?`
		args = append(args, id, i+1)
	}
	in, inArgs := inClause(ids)
	query += ` END, updated_at = ? WHERE owner_id = ? AND id IN ` + in
	args = append(args, q.stamp(), owner)
	args = append(args, inArgs...)

	if _, err := q.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s sort order: %w", table, err)
	}
	return nil
}

func expectOneRow(result sql.Result, entity string, id any) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return common.NotFoundf("%s %v not found", entity, id)
	}
	return nil
}
