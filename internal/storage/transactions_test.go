package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

type ledgerFixture struct {
	store    *SQLiteStorage
	wallet   *model.Account
	bank     *model.Account
	salary   *model.Category
	food     *model.Category
	dining   *model.Category
	baseDate time.Time
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := createTestStorage(t)
	f := &ledgerFixture{
		store:    store,
		wallet:   mustAccount(t, store, testOwner, "Wallet", "0"),
		bank:     mustAccount(t, store, testOwner, "Bank", "0"),
		salary:   mustCategory(t, store, testOwner, "Salary", model.CategoryTypeIncome, nil),
		food:     mustCategory(t, store, testOwner, "Food", model.CategoryTypeExpense, nil),
		baseDate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.dining = mustCategory(t, store, testOwner, "Dining", model.CategoryTypeExpense, f.food)
	return f
}

func (f *ledgerFixture) day(n int) time.Time {
	return f.baseDate.AddDate(0, 0, n)
}

func TestInsertAndGetTransaction(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	t.Run("standard", func(t *testing.T) {
		mustStandard(t, f.store, "std-1", model.TransactionTypeExpense, "19.99", f.day(0), f.wallet, f.dining, "pizza")

		txn, err := f.store.GetTransaction(ctx, testOwner, "std-1")
		require.NoError(t, err)
		assert.Equal(t, model.TransactionTypeExpense, txn.Type)
		assert.Equal(t, "19.99", model.FormatMoney(txn.Amount))
		assert.Equal(t, f.day(0), txn.Date)
		assert.Equal(t, "pizza", txn.Description)

		shape, ok := txn.Standard()
		require.True(t, ok)
		assert.Equal(t, model.StandardShape{AccountID: f.wallet.ID, CategoryID: f.dining.ID}, shape)
	})

	t.Run("transfer", func(t *testing.T) {
		txn := &model.Transaction{
			ID:     "xfer-1",
			Owner:  testOwner,
			Type:   model.TransactionTypeTransfer,
			Amount: decimal.NewFromInt(200),
			Date:   f.day(1),
			Shape:  model.TransferShape{SenderAccountID: f.bank.ID, ReceiverAccountID: f.wallet.ID},
		}
		require.NoError(t, f.store.InsertTransaction(ctx, txn))

		fetched, err := f.store.GetTransaction(ctx, testOwner, "xfer-1")
		require.NoError(t, err)
		shape, ok := fetched.Transfer()
		require.True(t, ok)
		assert.Equal(t, f.bank.ID, shape.SenderAccountID)
		assert.Equal(t, f.wallet.ID, shape.ReceiverAccountID)
	})

	t.Run("other owner cannot see it", func(t *testing.T) {
		_, err := f.store.GetTransaction(ctx, otherOwner, "std-1")
		assert.Equal(t, common.KindNotFound, common.KindOf(err))
	})
}

func TestInsertTransactionValidation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		txn  *model.Transaction
	}{
		{
			name: "transfer type with standard shape",
			txn: &model.Transaction{
				ID: "bad-1", Owner: testOwner, Type: model.TransactionTypeTransfer, Amount: decimal.NewFromInt(1),
				Shape: model.StandardShape{AccountID: f.wallet.ID, CategoryID: f.food.ID},
			},
		},
		{
			name: "same sender and receiver",
			txn: &model.Transaction{
				ID: "bad-2", Owner: testOwner, Type: model.TransactionTypeTransfer, Amount: decimal.NewFromInt(1),
				Shape: model.TransferShape{SenderAccountID: f.wallet.ID, ReceiverAccountID: f.wallet.ID},
			},
		},
		{
			name: "negative amount",
			txn: &model.Transaction{
				ID: "bad-3", Owner: testOwner, Type: model.TransactionTypeExpense, Amount: decimal.NewFromInt(-5),
				Shape: model.StandardShape{AccountID: f.wallet.ID, CategoryID: f.food.ID},
			},
		},
		{
			name: "missing shape",
			txn: &model.Transaction{
				ID: "bad-4", Owner: testOwner, Type: model.TransactionTypeIncome, Amount: decimal.NewFromInt(5),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.store.InsertTransaction(ctx, tt.txn)
			assert.ErrorIs(t, err, ErrInvalidShape)
		})
	}

	t.Run("unknown account", func(t *testing.T) {
		err := f.store.InsertTransaction(ctx, &model.Transaction{
			ID: "bad-5", Owner: testOwner, Type: model.TransactionTypeExpense, Amount: decimal.NewFromInt(5),
			Shape: model.StandardShape{AccountID: 9999, CategoryID: f.food.ID},
		})
		require.Error(t, err)
	})
}

func TestUpdateTransactionChangesShape(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	txn := mustStandard(t, f.store, "t-1", model.TransactionTypeExpense, "10", f.day(0), f.wallet, f.food, "groceries")

	txn.Type = model.TransactionTypeTransfer
	txn.Shape = model.TransferShape{SenderAccountID: f.wallet.ID, ReceiverAccountID: f.bank.ID}
	txn.Amount = decimal.NewFromInt(25)
	require.NoError(t, f.store.UpdateTransaction(ctx, txn))

	fetched, err := f.store.GetTransaction(ctx, testOwner, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionTypeTransfer, fetched.Type)
	_, isStandard := fetched.Standard()
	assert.False(t, isStandard)
	assert.True(t, decimal.NewFromInt(25).Equal(fetched.Amount))

	require.NoError(t, f.store.DeleteTransaction(ctx, testOwner, "t-1"))
	err = f.store.DeleteTransaction(ctx, testOwner, "t-1")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestListTransactions(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	mustStandard(t, f.store, "a", model.TransactionTypeIncome, "1000", f.day(0), f.bank, f.salary, "May salary")
	mustStandard(t, f.store, "b", model.TransactionTypeExpense, "12.50", f.day(1), f.wallet, f.dining, "Lunch 50% off")
	mustStandard(t, f.store, "c", model.TransactionTypeExpense, "80", f.day(2), f.wallet, f.food, "Groceries")
	mustStandard(t, f.store, "d", model.TransactionTypeExpense, "5", f.day(3), f.bank, f.dining, "Coffee 50 cents")
	require.NoError(t, f.store.InsertTransaction(ctx, &model.Transaction{
		ID: "e", Owner: testOwner, Type: model.TransactionTypeTransfer, Amount: decimal.NewFromInt(300),
		Date: f.day(4), Description: "Top up",
		Shape: model.TransferShape{SenderAccountID: f.bank.ID, ReceiverAccountID: f.wallet.ID},
	}))

	ids := func(txns []model.Transaction) []string {
		out := make([]string, len(txns))
		for i, txn := range txns {
			out[i] = txn.ID
		}
		return out
	}

	tests := []struct {
		name      string
		filter    service.TransactionFilter
		wantIDs   []string
		wantTotal int
	}{
		{
			name:      "default sort newest first",
			filter:    service.TransactionFilter{},
			wantIDs:   []string{"e", "d", "c", "b", "a"},
			wantTotal: 5,
		},
		{
			name:      "keyword escapes wildcards",
			filter:    service.TransactionFilter{Keyword: "50%"},
			wantIDs:   []string{"b"},
			wantTotal: 1,
		},
		{
			name:      "keyword is case insensitive",
			filter:    service.TransactionFilter{Keyword: "COFFEE"},
			wantIDs:   []string{"d"},
			wantTotal: 1,
		},
		{
			name:      "account ids",
			filter:    service.TransactionFilter{AccountIDs: []int64{f.wallet.ID}},
			wantIDs:   []string{"c", "b"},
			wantTotal: 2,
		},
		{
			name:      "category ids",
			filter:    service.TransactionFilter{CategoryIDs: []int64{f.dining.ID}},
			wantIDs:   []string{"d", "b"},
			wantTotal: 2,
		},
		{
			name:      "sender ids",
			filter:    service.TransactionFilter{SenderAccountIDs: []int64{f.bank.ID}},
			wantIDs:   []string{"e"},
			wantTotal: 1,
		},
		{
			name:      "receiver ids",
			filter:    service.TransactionFilter{ReceiverAccountIDs: []int64{f.bank.ID}},
			wantIDs:   nil,
			wantTotal: 0,
		},
		{
			name:      "types",
			filter:    service.TransactionFilter{Types: []model.TransactionType{model.TransactionTypeIncome, model.TransactionTypeTransfer}},
			wantIDs:   []string{"e", "a"},
			wantTotal: 2,
		},
		{
			name: "inclusive date range",
			filter: service.TransactionFilter{
				Date: &service.DateRange{Start: f.day(1), End: f.day(3)},
			},
			wantIDs:   []string{"d", "c", "b"},
			wantTotal: 3,
		},
		{
			name: "inclusive amount range",
			filter: service.TransactionFilter{
				Amount: &service.AmountRange{Min: decimal.RequireFromString("12.50"), Max: decimal.NewFromInt(80)},
			},
			wantIDs:   []string{"c", "b"},
			wantTotal: 2,
		},
		{
			name: "multi key sort",
			filter: service.TransactionFilter{
				Sort: []service.SortKey{{Field: service.SortByType}, {Field: service.SortByAmount, Desc: true}},
			},
			wantIDs:   []string{"c", "b", "d", "a", "e"},
			wantTotal: 5,
		},
		{
			name: "pagination keeps total",
			filter: service.TransactionFilter{
				Sort: []service.SortKey{{Field: service.SortByTransactionDate}},
				Skip: 1,
				Take: 2,
			},
			wantIDs:   []string{"b", "c"},
			wantTotal: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, total, err := f.store.ListTransactions(ctx, testOwner, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			if tt.wantIDs == nil {
				assert.Empty(t, txns)
				return
			}
			assert.Equal(t, tt.wantIDs, ids(txns))
		})
	}

	t.Run("unknown sort field", func(t *testing.T) {
		_, _, err := f.store.ListTransactions(ctx, testOwner, service.TransactionFilter{
			Sort: []service.SortKey{{Field: "owner_id; DROP TABLE accounts"}},
		})
		assert.Equal(t, common.KindBadRequest, common.KindOf(err))
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		txns, total, err := f.store.ListTransactions(ctx, otherOwner, service.TransactionFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, txns)
	})

	t.Run("by categories", func(t *testing.T) {
		txns, err := f.store.ListTransactionsByCategories(ctx, testOwner, []int64{f.food.ID, f.dining.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "d"}, ids(txns))
	})
}

func TestCountAccountTransactions(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	mustStandard(t, f.store, "a", model.TransactionTypeExpense, "1", f.day(0), f.wallet, f.food, "")
	require.NoError(t, f.store.InsertTransaction(ctx, &model.Transaction{
		ID: "b", Owner: testOwner, Type: model.TransactionTypeTransfer, Amount: decimal.NewFromInt(1),
		Date:  f.day(0),
		Shape: model.TransferShape{SenderAccountID: f.bank.ID, ReceiverAccountID: f.wallet.ID},
	}))

	count, err := f.store.CountAccountTransactions(ctx, testOwner, f.wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = f.store.CountAccountTransactions(ctx, testOwner, f.bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExternalIDsAreUniquePerAccount(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	line := func(id string, account *model.Account) *model.Transaction {
		return &model.Transaction{
			ID:         id,
			Owner:      testOwner,
			Type:       model.TransactionTypeExpense,
			Amount:     decimal.NewFromInt(5),
			Date:       f.day(0),
			ExternalID: "acct:2024011501",
			Shape:      model.StandardShape{AccountID: account.ID, CategoryID: f.food.ID},
		}
	}

	require.NoError(t, f.store.InsertTransaction(ctx, line("ext-1", f.wallet)))

	err := f.store.InsertTransaction(ctx, line("ext-2", f.wallet))
	assert.Equal(t, common.KindConflict, common.KindOf(err))

	// The same statement line may exist on a different account.
	require.NoError(t, f.store.InsertTransaction(ctx, line("ext-3", f.bank)))

	txn, err := f.store.GetTransaction(ctx, testOwner, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "acct:2024011501", txn.ExternalID)

	found, err := f.store.FindExternalIDs(ctx, testOwner, f.wallet.ID, []string{"acct:2024011501", "acct:other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"acct:2024011501": true}, found)

	found, err = f.store.FindExternalIDs(ctx, otherOwner, f.wallet.ID, []string{"acct:2024011501"})
	require.NoError(t, err)
	assert.Empty(t, found)

	// Rows without an external id never collide.
	mustStandard(t, f.store, "plain-1", model.TransactionTypeExpense, "1", f.day(1), f.wallet, f.food, "")
	mustStandard(t, f.store, "plain-2", model.TransactionTypeExpense, "1", f.day(1), f.wallet, f.food, "")
}
