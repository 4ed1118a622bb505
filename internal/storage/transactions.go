package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

const transactionColumns = `t.id, t.owner_id, t.type, t.amount_minor, t.transaction_date, t.description,
	t.account_id, t.category_id, t.sender_account_id, t.receiver_account_id,
	t.external_id, t.created_at, t.updated_at`

var sortColumns = map[service.SortField]string{
	service.SortByTransactionDate: "t.transaction_date",
	service.SortByAmount:          "t.amount_minor",
	service.SortByType:            "t.type",
	service.SortByDescription:     "t.description",
	service.SortByCreatedAt:       "t.created_at",
	service.SortByUpdatedAt:       "t.updated_at",
}

// shapeColumns maps a domain shape onto the four nullable reference columns.
type shapeColumns struct {
	account  sql.NullInt64
	category sql.NullInt64
	sender   sql.NullInt64
	receiver sql.NullInt64
}

func columnsFor(shape model.Shape) shapeColumns {
	var cols shapeColumns
	switch s := shape.(type) {
	case model.StandardShape:
		cols.account = sql.NullInt64{Int64: s.AccountID, Valid: true}
		cols.category = sql.NullInt64{Int64: s.CategoryID, Valid: true}
	case model.TransferShape:
		cols.sender = sql.NullInt64{Int64: s.SenderAccountID, Valid: true}
		cols.receiver = sql.NullInt64{Int64: s.ReceiverAccountID, Valid: true}
	}
	return cols
}

func (c shapeColumns) shape() (model.Shape, error) {
	switch {
	case c.sender.Valid && c.receiver.Valid && !c.account.Valid && !c.category.Valid:
		return model.TransferShape{SenderAccountID: c.sender.Int64, ReceiverAccountID: c.receiver.Int64}, nil
	case c.account.Valid && c.category.Valid && !c.sender.Valid && !c.receiver.Valid:
		return model.StandardShape{AccountID: c.account.Int64, CategoryID: c.category.Int64}, nil
	}
	return nil, ErrInvalidShape
}

// InsertTransaction stores a new ledger row. The caller supplies the ID.
func (q *queries) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	amount, err := model.ToMinorUnits(txn.Amount)
	if err != nil {
		return err
	}

	cols := columnsFor(txn.Shape)
	now := q.stamp()
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, type, amount_minor, transaction_date, description,
			account_id, category_id, sender_account_id, receiver_account_id, external_id,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.Owner, txn.Type, amount, toMillis(txn.Date), txn.Description,
		cols.account, cols.category, cols.sender, cols.receiver, nullableString(txn.ExternalID),
		now, now)
	if err != nil {
		if isUniqueViolation(err) {
			if txn.ExternalID != "" {
				return common.Conflictf("statement line %s already recorded", txn.ExternalID)
			}
			return common.Conflictf("transaction %s already exists", txn.ID)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	txn.CreatedAt = fromMillis(now)
	txn.UpdatedAt = fromMillis(now)
	return nil
}

// GetTransaction retrieves an owner's transaction by ID.
func (q *queries) GetTransaction(ctx context.Context, owner model.OwnerID, id string) (*model.Transaction, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	if err := validateString(id, "transaction id"); err != nil {
		return nil, err
	}

	row := q.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions t WHERE t.owner_id = ? AND t.id = ?`, owner, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("transaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// UpdateTransaction overwrites every mutable column of an existing row.
func (q *queries) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	amount, err := model.ToMinorUnits(txn.Amount)
	if err != nil {
		return err
	}

	cols := columnsFor(txn.Shape)
	now := q.stamp()
	result, err := q.q.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount_minor = ?, transaction_date = ?, description = ?,
			account_id = ?, category_id = ?, sender_account_id = ?, receiver_account_id = ?,
			external_id = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		txn.Type, amount, toMillis(txn.Date), txn.Description,
		cols.account, cols.category, cols.sender, cols.receiver,
		nullableString(txn.ExternalID), now, txn.Owner, txn.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return common.Conflictf("statement line %s already recorded", txn.ExternalID)
		}
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if err := expectOneRow(result, "transaction", txn.ID); err != nil {
		return err
	}
	txn.UpdatedAt = fromMillis(now)
	return nil
}

// DeleteTransaction removes a ledger row.
func (q *queries) DeleteTransaction(ctx context.Context, owner model.OwnerID, id string) error {
	if err := validateScope(ctx, owner); err != nil {
		return err
	}

	result, err := q.q.ExecContext(ctx, `DELETE FROM transactions WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOneRow(result, "transaction", id)
}

// ListTransactions returns one page of matching transactions and the total match count.
// An empty sort list falls back to transaction date, newest first.
func (q *queries) ListTransactions(ctx context.Context, owner model.OwnerID, filter service.TransactionFilter) ([]model.Transaction, int, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, 0, err
	}

	where, args, err := transactionWhere(owner, filter)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	orderBy, err := transactionOrder(filter.Sort)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions t` + where + orderBy + ` LIMIT ? OFFSET ?`
	args = append(args, limitArg(filter.Take), filter.Skip)

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// ListTransactionsByCategories returns every transaction filed under one of categoryIDs.
func (q *queries) ListTransactionsByCategories(ctx context.Context, owner model.OwnerID, categoryIDs []int64) ([]model.Transaction, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	in, args := inClause(categoryIDs)
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions t
		WHERE t.owner_id = ? AND t.category_id IN `+in+`
		ORDER BY t.transaction_date ASC, t.id ASC`,
		append([]any{owner}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions by category: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// FindExternalIDs reports which of externalIDs are already recorded on accountID.
func (q *queries) FindExternalIDs(ctx context.Context, owner model.OwnerID, accountID int64, externalIDs []string) (map[string]bool, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}
	found := make(map[string]bool)
	if len(externalIDs) == 0 {
		return found, nil
	}

	placeholders := make([]string, len(externalIDs))
	args := make([]any, 0, len(externalIDs)+2)
	args = append(args, owner, accountID)
	for i, id := range externalIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT external_id FROM transactions
		WHERE owner_id = ? AND account_id = ? AND external_id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to look up statement lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan statement line: %w", err)
		}
		found[id] = true
	}
	return found, rows.Err()
}

func transactionWhere(owner model.OwnerID, filter service.TransactionFilter) (string, []any, error) {
	conditions := []string{"t.owner_id = ?"}
	args := []any{owner}

	addIn := func(column string, ids []int64) {
		if len(ids) == 0 {
			return
		}
		in, inArgs := inClause(ids)
		conditions = append(conditions, column+" IN "+in)
		args = append(args, inArgs...)
	}

	if filter.Keyword != "" {
		conditions = append(conditions, `t.description LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Keyword))
	}
	addIn("t.account_id", filter.AccountIDs)
	addIn("t.category_id", filter.CategoryIDs)
	addIn("t.sender_account_id", filter.SenderAccountIDs)
	addIn("t.receiver_account_id", filter.ReceiverAccountIDs)

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		conditions = append(conditions, "t.type IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.Date != nil {
		conditions = append(conditions, "t.transaction_date BETWEEN ? AND ?")
		args = append(args, toMillis(filter.Date.Start), toMillis(filter.Date.End))
	}

	if filter.Amount != nil {
		lo, err := model.ToMinorUnits(filter.Amount.Min)
		if err != nil {
			return "", nil, err
		}
		hi, err := model.ToMinorUnits(filter.Amount.Max)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, "t.amount_minor BETWEEN ? AND ?")
		args = append(args, lo, hi)
	}

	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

func transactionOrder(keys []service.SortKey) (string, error) {
	if len(keys) == 0 {
		keys = []service.SortKey{{Field: service.SortByTransactionDate, Desc: true}}
	}

	terms := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		column, ok := sortColumns[key.Field]
		if !ok {
			return "", common.BadRequestf("cannot sort by %q", key.Field)
		}
		direction := "ASC"
		if key.Desc {
			direction = "DESC"
		}
		terms = append(terms, column+" "+direction)
	}
	// Stable pagination across equal sort keys.
	terms = append(terms, "t.id ASC")
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		owner      string
		txnType    string
		amount     int64
		date       int64
		cols       shapeColumns
		externalID sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(&txn.ID, &owner, &txnType, &amount, &date, &txn.Description,
		&cols.account, &cols.category, &cols.sender, &cols.receiver, &externalID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	shape, err := cols.shape()
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}

	txn.Owner = model.OwnerID(owner)
	txn.Type = model.TransactionType(txnType)
	txn.Amount = model.FromMinorUnits(amount)
	txn.Date = fromMillis(date)
	txn.Shape = shape
	txn.ExternalID = externalID.String
	txn.CreatedAt = fromMillis(createdAt)
	txn.UpdatedAt = fromMillis(updatedAt)
	return &txn, nil
}
