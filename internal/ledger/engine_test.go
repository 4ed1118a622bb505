package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/account"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/Veraticus/pennywise/internal/testutil"
)

const owner = testutil.DefaultOwner

var fixedNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

type ledgerSetup struct {
	engine *Engine
	db     *testutil.TestDB
	fx     *testutil.Fixtures
}

func newLedger(t *testing.T) *ledgerSetup {
	t.Helper()
	db := testutil.SetupTestDB(t)
	engine := NewEngine(db.Storage, account.NewAdjuster())
	engine.SetClock(func() time.Time { return fixedNow })

	fx := db.Fixtures(owner).
		WithAccount("A", "500").
		WithAccount("B", "0").
		WithCategory("Salary", model.CategoryTypeIncome).
		WithCategory("Food", model.CategoryTypeExpense).
		WithChild("Food", "Dining")
	return &ledgerSetup{engine: engine, db: db, fx: fx}
}

func (s *ledgerSetup) balance(name string) string {
	return model.FormatMoney(s.db.Balance(owner, s.fx.Account(name).ID))
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func (s *ledgerSetup) expense(t *testing.T, amount string) *model.Transaction {
	t.Helper()
	txn, err := s.engine.Create(context.Background(), owner, CreateInput{
		Type:       model.TransactionTypeExpense,
		Amount:     money(amount),
		AccountID:  s.fx.Account("A").ID,
		CategoryID: s.fx.Category("Food").ID,
	})
	require.NoError(t, err)
	return txn
}

func TestEngine_ExpenseLifecycle(t *testing.T) {
	s := newLedger(t)
	ctx := context.Background()

	txn := s.expense(t, "100")
	assert.Equal(t, "400.00", s.balance("A"))
	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, fixedNow, txn.Date)

	updated, err := s.engine.Update(ctx, owner, txn.ID, UpdatePatch{Amount: ptr(money("40"))})
	require.NoError(t, err)
	assert.Equal(t, "40.00", model.FormatMoney(updated.Amount))
	assert.Equal(t, "460.00", s.balance("A"))

	require.NoError(t, s.engine.Remove(ctx, owner, txn.ID))
	assert.Equal(t, "500.00", s.balance("A"))
	assert.Equal(t, 0, s.db.CountTransactions(owner))
}

func TestEngine_IncomeCreditsAccount(t *testing.T) {
	s := newLedger(t)

	_, err := s.engine.Create(context.Background(), owner, CreateInput{
		Type:       model.TransactionTypeIncome,
		Amount:     money("1200.50"),
		AccountID:  s.fx.Account("B").ID,
		CategoryID: s.fx.Category("Salary").ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "1200.50", s.balance("B"))
}

func TestEngine_TransferConservesTotal(t *testing.T) {
	s := newLedger(t)
	ctx := context.Background()

	txn, err := s.engine.Create(ctx, owner, CreateInput{
		Type:              model.TransactionTypeTransfer,
		Amount:            money("200"),
		SenderAccountID:   s.fx.Account("A").ID,
		ReceiverAccountID: s.fx.Account("B").ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "300.00", s.balance("A"))
	assert.Equal(t, "200.00", s.balance("B"))

	total, err := s.db.Storage.SumAccountBalances(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "500.00", model.FormatMoney(total))

	shape, ok := txn.Transfer()
	require.True(t, ok)
	assert.Equal(t, s.fx.Account("A").ID, shape.SenderAccountID)

	require.NoError(t, s.engine.Remove(ctx, owner, txn.ID))
	assert.Equal(t, "500.00", s.balance("A"))
	assert.Equal(t, "0.00", s.balance("B"))
}

func TestEngine_NoOpUpdateKeepsBalances(t *testing.T) {
	s := newLedger(t)

	txn := s.expense(t, "75.25")
	before := s.balance("A")

	updated, err := s.engine.Update(context.Background(), owner, txn.ID, UpdatePatch{})
	require.NoError(t, err)
	assert.Equal(t, before, s.balance("A"))
	assert.Equal(t, txn.Shape, updated.Shape)
	assert.True(t, txn.Amount.Equal(updated.Amount))
}

func TestEngine_UpdateMovesBetweenAccounts(t *testing.T) {
	s := newLedger(t)

	txn := s.expense(t, "50")
	_, err := s.engine.Update(context.Background(), owner, txn.ID, UpdatePatch{AccountID: ptr(s.fx.Account("B").ID)})
	require.NoError(t, err)

	assert.Equal(t, "500.00", s.balance("A"))
	assert.Equal(t, "-50.00", s.balance("B"))
}

func TestEngine_UpdateChangesExpenseToTransfer(t *testing.T) {
	s := newLedger(t)
	ctx := context.Background()

	txn := s.expense(t, "100")
	updated, err := s.engine.Update(ctx, owner, txn.ID, UpdatePatch{
		Type:              ptr(model.TransactionTypeTransfer),
		SenderAccountID:   ptr(s.fx.Account("A").ID),
		ReceiverAccountID: ptr(s.fx.Account("B").ID),
	})
	require.NoError(t, err)

	_, ok := updated.Transfer()
	assert.True(t, ok)
	assert.Equal(t, "400.00", s.balance("A"))
	assert.Equal(t, "100.00", s.balance("B"))

	stored, err := s.engine.FindOne(ctx, owner, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionTypeTransfer, stored.Type)
	assert.Equal(t, model.TransferShape{
		SenderAccountID:   s.fx.Account("A").ID,
		ReceiverAccountID: s.fx.Account("B").ID,
	}, stored.Shape)
}

func TestEngine_FailedUpdateRollsBack(t *testing.T) {
	s := newLedger(t)

	txn := s.expense(t, "100")
	// Salary is an income category, so the re-derived transaction is invalid
	// after the old effects were already reversed inside the scope.
	_, err := s.engine.Update(context.Background(), owner, txn.ID, UpdatePatch{
		Amount:     ptr(money("10")),
		CategoryID: ptr(s.fx.Category("Salary").ID),
	})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err))
	assert.Equal(t, "400.00", s.balance("A"))

	stored, err := s.engine.FindOne(context.Background(), owner, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", model.FormatMoney(stored.Amount))
}

func TestEngine_CreateValidation(t *testing.T) {
	s := newLedger(t)
	a, b := s.fx.Account("A").ID, s.fx.Account("B").ID
	food, salary := s.fx.Category("Food").ID, s.fx.Category("Salary").ID

	tests := []struct {
		name string
		in   CreateInput
		kind common.Kind
	}{
		{
			name: "unknown type",
			in:   CreateInput{Type: "REFUND", Amount: money("1"), AccountID: a, CategoryID: food},
			kind: common.KindBadRequest,
		},
		{
			name: "zero amount",
			in:   CreateInput{Type: model.TransactionTypeExpense, Amount: decimal.Zero, AccountID: a, CategoryID: food},
			kind: common.KindBadRequest,
		},
		{
			name: "negative amount",
			in:   CreateInput{Type: model.TransactionTypeExpense, Amount: money("-5"), AccountID: a, CategoryID: food},
			kind: common.KindBadRequest,
		},
		{
			name: "sub-cent amount",
			in:   CreateInput{Type: model.TransactionTypeExpense, Amount: money("1.005"), AccountID: a, CategoryID: food},
			kind: common.KindBadRequest,
		},
		{
			name: "expense under income category",
			in:   CreateInput{Type: model.TransactionTypeExpense, Amount: money("1"), AccountID: a, CategoryID: salary},
			kind: common.KindBadRequest,
		},
		{
			name: "income under expense category",
			in:   CreateInput{Type: model.TransactionTypeIncome, Amount: money("1"), AccountID: a, CategoryID: food},
			kind: common.KindBadRequest,
		},
		{
			name: "standard without category",
			in:   CreateInput{Type: model.TransactionTypeExpense, Amount: money("1"), AccountID: a},
			kind: common.KindBadRequest,
		},
		{
			name: "missing account",
			in:   CreateInput{Type: model.TransactionTypeExpense, Amount: money("1"), AccountID: 9999, CategoryID: food},
			kind: common.KindNotFound,
		},
		{
			name: "missing category",
			in:   CreateInput{Type: model.TransactionTypeExpense, Amount: money("1"), AccountID: a, CategoryID: 9999},
			kind: common.KindNotFound,
		},
		{
			name: "transfer to self",
			in:   CreateInput{Type: model.TransactionTypeTransfer, Amount: money("1"), SenderAccountID: a, ReceiverAccountID: a},
			kind: common.KindBadRequest,
		},
		{
			name: "transfer without receiver",
			in:   CreateInput{Type: model.TransactionTypeTransfer, Amount: money("1"), SenderAccountID: a},
			kind: common.KindBadRequest,
		},
		{
			name: "transfer to missing account",
			in:   CreateInput{Type: model.TransactionTypeTransfer, Amount: money("1"), SenderAccountID: b, ReceiverAccountID: 9999},
			kind: common.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.engine.Create(context.Background(), owner, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, common.KindOf(err))
		})
	}

	assert.Equal(t, "500.00", s.balance("A"))
	assert.Equal(t, "0.00", s.balance("B"))
	assert.Equal(t, 0, s.db.CountTransactions(owner))
}

func TestEngine_OwnerIsolation(t *testing.T) {
	s := newLedger(t)
	ctx := context.Background()

	txn := s.expense(t, "10")

	_, err := s.engine.FindOne(ctx, "someone-else", txn.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	err = s.engine.Remove(ctx, "someone-else", txn.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	_, err = s.engine.Create(ctx, "someone-else", CreateInput{
		Type:       model.TransactionTypeExpense,
		Amount:     money("1"),
		AccountID:  s.fx.Account("A").ID,
		CategoryID: s.fx.Category("Food").ID,
	})
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	assert.Equal(t, "490.00", s.balance("A"))
}

func TestEngine_RemoveByCategories(t *testing.T) {
	s := newLedger(t)
	ctx := context.Background()

	s.expense(t, "20")
	_, err := s.engine.Create(ctx, owner, CreateInput{
		Type:       model.TransactionTypeExpense,
		Amount:     money("30"),
		AccountID:  s.fx.Account("B").ID,
		CategoryID: s.fx.Category("Dining").ID,
	})
	require.NoError(t, err)

	ids := []int64{s.fx.Category("Food").ID, s.fx.Category("Dining").ID}
	require.NoError(t, s.db.WithCommit(func(tx service.Transaction) error {
		return s.engine.RemoveByCategories(ctx, tx, owner, ids)
	}))

	assert.Equal(t, "500.00", s.balance("A"))
	assert.Equal(t, "0.00", s.balance("B"))
	assert.Equal(t, 0, s.db.CountTransactions(owner))
}

func TestEngine_FindAll(t *testing.T) {
	s := newLedger(t)
	ctx := context.Background()

	for i, amount := range []string{"10", "20", "30"} {
		_, err := s.engine.Create(ctx, owner, CreateInput{
			Type:        model.TransactionTypeExpense,
			Amount:      money(amount),
			Date:        fixedNow.AddDate(0, 0, i),
			Description: "groceries",
			AccountID:   s.fx.Account("A").ID,
			CategoryID:  s.fx.Category("Food").ID,
		})
		require.NoError(t, err)
	}

	page, err := s.engine.FindAll(ctx, owner, service.TransactionFilter{Take: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "30.00", model.FormatMoney(page.Items[0].Amount))
	assert.Equal(t, "20.00", model.FormatMoney(page.Items[1].Amount))

	page, err = s.engine.FindAll(ctx, owner, service.TransactionFilter{
		Sort: []service.SortKey{{Field: service.SortByAmount}},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "10.00", model.FormatMoney(page.Items[0].Amount))
}

func TestEngine_FindAllValidation(t *testing.T) {
	s := newLedger(t)

	tests := []struct {
		name   string
		filter service.TransactionFilter
	}{
		{name: "negative skip", filter: service.TransactionFilter{Skip: -1}},
		{name: "negative take", filter: service.TransactionFilter{Take: -1}},
		{name: "unknown sort field", filter: service.TransactionFilter{Sort: []service.SortKey{{Field: "balance"}}}},
		{name: "unknown type", filter: service.TransactionFilter{Types: []model.TransactionType{"REFUND"}}},
		{
			name:   "inverted date range",
			filter: service.TransactionFilter{Date: &service.DateRange{Start: fixedNow, End: fixedNow.Add(-time.Hour)}},
		},
		{
			name:   "inverted amount range",
			filter: service.TransactionFilter{Amount: &service.AmountRange{Min: money("10"), Max: money("1")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.engine.FindAll(context.Background(), owner, tt.filter)
			assert.Equal(t, common.KindBadRequest, common.KindOf(err))
		})
	}
}

func TestEngine_ExternalIDRecordedOnce(t *testing.T) {
	s := newLedger(t)
	ctx := context.Background()

	in := CreateInput{
		Type:       model.TransactionTypeExpense,
		Amount:     money("25.50"),
		AccountID:  s.fx.Account("A").ID,
		CategoryID: s.fx.Category("Food").ID,
		ExternalID: "1234567890:2024011501",
	}
	txn, err := s.engine.Create(ctx, owner, in)
	require.NoError(t, err)
	assert.Equal(t, "1234567890:2024011501", txn.ExternalID)
	assert.Equal(t, "474.50", s.balance("A"))

	// The duplicate is rejected and its balance change rolled back.
	_, err = s.engine.Create(ctx, owner, in)
	assert.Equal(t, common.KindConflict, common.KindOf(err))
	assert.Equal(t, "474.50", s.balance("A"))

	// An edit keeps the statement line id.
	updated, err := s.engine.Update(ctx, owner, txn.ID, UpdatePatch{Description: ptr("coffee")})
	require.NoError(t, err)
	assert.Equal(t, "1234567890:2024011501", updated.ExternalID)

	_, err = s.engine.Create(ctx, owner, CreateInput{
		Type:              model.TransactionTypeTransfer,
		Amount:            money("1"),
		SenderAccountID:   s.fx.Account("A").ID,
		ReceiverAccountID: s.fx.Account("B").ID,
		ExternalID:        "x",
	})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err))
}
