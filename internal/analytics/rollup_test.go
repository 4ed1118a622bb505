package analytics

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

func ranked(values ...int64) []service.CategoryTotal {
	out := make([]service.CategoryTotal, len(values))
	for i, v := range values {
		out[i] = service.CategoryTotal{CategoryID: int64(i + 1), Label: fmt.Sprintf("c%d", i+1), Total: decimal.NewFromInt(v)}
	}
	return out
}

func TestCollapseTail(t *testing.T) {
	t.Run("eight groups collapse to six", func(t *testing.T) {
		got := collapseTail(ranked(800, 700, 600, 500, 400, 300, 200, 100))
		require.Len(t, got, 6)
		assert.Equal(t, "c5", got[4].Label)
		assert.Equal(t, OtherLabel, got[5].Label)
		assert.True(t, decimal.NewFromInt(600).Equal(got[5].Total))
		assert.Zero(t, got[5].CategoryID)
	})

	t.Run("six groups stay", func(t *testing.T) {
		got := collapseTail(ranked(6, 5, 4, 3, 2, 1))
		require.Len(t, got, 6)
		assert.Equal(t, "c6", got[5].Label)
	})

	t.Run("seven groups fold two", func(t *testing.T) {
		got := collapseTail(ranked(7, 6, 5, 4, 3, 2, 1))
		require.Len(t, got, 6)
		assert.True(t, decimal.NewFromInt(3).Equal(got[5].Total))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, collapseTail(nil))
	})
}

func TestAggregator_CategoryRollup(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.record(t, model.TransactionTypeExpense, "30", utc(2024, 5, 2), "Wallet", "Food")
	f.record(t, model.TransactionTypeExpense, "45", utc(2024, 5, 3), "Wallet", "Dining")
	f.record(t, model.TransactionTypeExpense, "60", utc(2024, 5, 4), "Bank", "Rent")
	f.record(t, model.TransactionTypeIncome, "999", utc(2024, 5, 4), "Bank", "Salary")

	totals, err := f.agg.CategoryRollup(ctx, owner, model.TransactionTypeExpense, nil, service.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "Food", totals[0].Label)
	assert.Equal(t, "75.00", model.FormatMoney(totals[0].Total))
	assert.Equal(t, "Rent", totals[1].Label)

	_, err = f.agg.CategoryRollup(ctx, owner, model.TransactionTypeTransfer, nil, service.AnalyticsFilter{})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err))
}

func TestAggregator_CategoryRollupCollapsesEightRoots(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		name := fmt.Sprintf("Bucket %d", i)
		f.fx.WithCategory(name, model.CategoryTypeExpense)
		f.record(t, model.TransactionTypeExpense, fmt.Sprintf("%d", i*10), utc(2024, 5, 5), "Wallet", name)
	}

	totals, err := f.agg.CategoryRollup(ctx, owner, model.TransactionTypeExpense, nil, service.AnalyticsFilter{})
	require.NoError(t, err)
	require.Len(t, totals, 6)
	assert.Equal(t, "Bucket 8", totals[0].Label)
	assert.Equal(t, OtherLabel, totals[5].Label)
	assert.Equal(t, "60.00", model.FormatMoney(totals[5].Total))
}

func TestAggregator_CategoryTree(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.record(t, model.TransactionTypeExpense, "30", utc(2024, 5, 2), "Wallet", "Food")
	f.record(t, model.TransactionTypeExpense, "45", utc(2024, 5, 3), "Wallet", "Dining")
	f.record(t, model.TransactionTypeExpense, "99", utc(2024, 4, 3), "Wallet", "Dining")

	forest, err := f.agg.CategoryTree(ctx, owner, model.TransactionTypeExpense, nil)
	require.NoError(t, err)
	require.Len(t, forest, 2)

	byName := map[string]*model.CategoryNode{}
	for _, root := range forest {
		root.Walk(func(n *model.CategoryNode) { byName[n.Name] = n })
	}
	assert.NotContains(t, byName, "Salary")
	assert.Equal(t, "75.00", model.FormatMoney(byName["Food"].Amount))
	assert.Equal(t, "45.00", model.FormatMoney(byName["Dining"].Amount))
	assert.True(t, byName["Rent"].Amount.IsZero())
}
