package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

// analyticsWhere builds the shared predicate over standard transactions t
// joined to their category c.
func analyticsWhere(owner model.OwnerID, rng service.DateRange, filter service.AnalyticsFilter) (string, []any) {
	where := ` WHERE t.owner_id = ? AND t.type IN (?, ?) AND t.transaction_date BETWEEN ? AND ?`
	args := []any{owner, model.TransactionTypeIncome, model.TransactionTypeExpense,
		toMillis(rng.Start), toMillis(rng.End)}

	if len(filter.AccountIDs) > 0 {
		in, inArgs := inClause(filter.AccountIDs)
		where += ` AND t.account_id IN ` + in
		args = append(args, inArgs...)
	}
	if len(filter.CategoryIDs) > 0 {
		// A listed parent also pulls in its direct children.
		in, inArgs := inClause(filter.CategoryIDs)
		where += ` AND (t.category_id IN ` + in + ` OR c.parent_id IN ` + in + `)`
		args = append(args, inArgs...)
		args = append(args, inArgs...)
	}
	return where, args
}

// SumByType totals income and expense separately over the range.
func (q *queries) SumByType(ctx context.Context, owner model.OwnerID, rng service.DateRange, filter service.AnalyticsFilter) (map[model.TransactionType]decimal.Decimal, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	where, args := analyticsWhere(owner, rng, filter)
	rows, err := q.q.QueryContext(ctx, `
		SELECT t.type, COALESCE(SUM(t.amount_minor), 0) AS total
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id`+where+`
		GROUP BY t.type`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query type summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sums := map[model.TransactionType]decimal.Decimal{
		model.TransactionTypeIncome:  decimal.Zero,
		model.TransactionTypeExpense: decimal.Zero,
	}
	for rows.Next() {
		var (
			txnType string
			total   int64
		)
		if err := rows.Scan(&txnType, &total); err != nil {
			return nil, fmt.Errorf("failed to scan type summary: %w", err)
		}
		sums[model.TransactionType(txnType)] = model.FromMinorUnits(total)
	}
	return sums, rows.Err()
}

// ListLedgerRows returns the date, type and amount of every standard
// transaction in range, oldest first.
func (q *queries) ListLedgerRows(ctx context.Context, owner model.OwnerID, rng service.DateRange, filter service.AnalyticsFilter) ([]service.LedgerRow, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	where, args := analyticsWhere(owner, rng, filter)
	rows, err := q.q.QueryContext(ctx, `
		SELECT t.transaction_date, t.type, t.amount_minor
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id`+where+`
		ORDER BY t.transaction_date ASC, t.id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ledger []service.LedgerRow
	for rows.Next() {
		var (
			date    int64
			txnType string
			amount  int64
		)
		if err := rows.Scan(&date, &txnType, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		ledger = append(ledger, service.LedgerRow{
			Date:   fromMillis(date),
			Type:   model.TransactionType(txnType),
			Amount: model.FromMinorUnits(amount),
		})
	}
	return ledger, rows.Err()
}

// SumByRootCategory sums transactions of txnType grouped by the top-level
// ancestor of their category, largest first.
func (q *queries) SumByRootCategory(ctx context.Context, owner model.OwnerID, txnType model.TransactionType, rng service.DateRange, filter service.AnalyticsFilter) ([]service.CategoryTotal, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	where, args := analyticsWhere(owner, rng, filter)
	where += ` AND t.type = ?`
	args = append(args, txnType)

	rows, err := q.q.QueryContext(ctx, `
		SELECT r.id, r.name, SUM(t.amount_minor) AS total
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		JOIN category_closure cc ON cc.descendant_id = t.category_id
		JOIN categories r ON r.id = cc.ancestor_id AND r.parent_id IS NULL`+where+`
		GROUP BY r.id, r.name
		ORDER BY total DESC, r.name ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category rollup: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var totals []service.CategoryTotal
	for rows.Next() {
		var (
			total service.CategoryTotal
			minor int64
		)
		if err := rows.Scan(&total.CategoryID, &total.Label, &minor); err != nil {
			return nil, fmt.Errorf("failed to scan category rollup: %w", err)
		}
		total.Total = model.FromMinorUnits(minor)
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

// SumByCategory sums transactions of txnType per directly assigned category.
func (q *queries) SumByCategory(ctx context.Context, owner model.OwnerID, txnType model.TransactionType, rng service.DateRange) (map[int64]decimal.Decimal, error) {
	if err := validateScope(ctx, owner); err != nil {
		return nil, err
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT t.category_id, SUM(t.amount_minor) AS total
		FROM transactions t
		WHERE t.owner_id = ? AND t.type = ? AND t.category_id IS NOT NULL
		AND t.transaction_date BETWEEN ? AND ?
		GROUP BY t.category_id`,
		owner, txnType, toMillis(rng.Start), toMillis(rng.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query category sums: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sums := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			id    int64
			minor int64
		)
		if err := rows.Scan(&id, &minor); err != nil {
			return nil, fmt.Errorf("failed to scan category sums: %w", err)
		}
		sums[id] = model.FromMinorUnits(minor)
	}
	return sums, rows.Err()
}
