package category

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/Veraticus/pennywise/internal/testutil"
)

const owner = testutil.DefaultOwner

func ptr[T any](v T) *T {
	return &v
}

// stubRemover deletes the filed transactions without touching balances.
type stubRemover struct {
	calls [][]int64
}

func (r *stubRemover) RemoveByCategories(ctx context.Context, scope service.Transaction, o model.OwnerID, ids []int64) error {
	r.calls = append(r.calls, ids)
	txns, err := scope.ListTransactionsByCategories(ctx, o, ids)
	if err != nil {
		return err
	}
	for _, txn := range txns {
		if err := scope.DeleteTransaction(ctx, o, txn.ID); err != nil {
			return err
		}
	}
	return nil
}

func fileExpense(t *testing.T, db *testutil.TestDB, id string, accountID, categoryID int64) {
	t.Helper()
	require.NoError(t, db.Storage.InsertTransaction(context.Background(), &model.Transaction{
		ID:     id,
		Owner:  owner,
		Type:   model.TransactionTypeExpense,
		Amount: decimal.NewFromInt(10),
		Shape:  model.StandardShape{AccountID: accountID, CategoryID: categoryID},
	}))
}

func TestManager_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := NewManager(db.Storage, nil)
	ctx := context.Background()

	food, err := m.Create(ctx, owner, CreateInput{Name: " Food ", Type: model.CategoryTypeExpense})
	require.NoError(t, err)
	assert.Equal(t, "Food", food.Name)

	dining, err := m.Create(ctx, owner, CreateInput{Name: "Dining", Type: model.CategoryTypeExpense, ParentID: &food.ID})
	require.NoError(t, err)
	assert.Equal(t, &food.ID, dining.ParentID)

	tests := []struct {
		name string
		in   CreateInput
		kind common.Kind
	}{
		{name: "duplicate name", in: CreateInput{Name: "Food", Type: model.CategoryTypeExpense}, kind: common.KindConflict},
		{name: "empty name", in: CreateInput{Name: "  ", Type: model.CategoryTypeExpense}, kind: common.KindBadRequest},
		{name: "unknown type", in: CreateInput{Name: "Misc", Type: "SAVINGS"}, kind: common.KindBadRequest},
		{name: "missing parent", in: CreateInput{Name: "Misc", Type: model.CategoryTypeExpense, ParentID: ptr(int64(999))}, kind: common.KindNotFound},
		{name: "parent type mismatch", in: CreateInput{Name: "Bonus", Type: model.CategoryTypeIncome, ParentID: &food.ID}, kind: common.KindBadRequest},
		{name: "missing icon", in: CreateInput{Name: "Misc", Type: model.CategoryTypeExpense, IconID: "nope"}, kind: common.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(ctx, owner, tt.in)
			assert.Equal(t, tt.kind, common.KindOf(err))
		})
	}

	// Names are scoped per owner.
	_, err = m.Create(ctx, "other-owner", CreateInput{Name: "Food", Type: model.CategoryTypeExpense})
	assert.NoError(t, err)
}

func TestManager_UpdateTypeChange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := NewManager(db.Storage, nil)
	ctx := context.Background()

	fx := db.Fixtures(owner).
		WithAccount("Wallet", "0").
		WithCategory("Food", model.CategoryTypeExpense).
		WithChild("Food", "Dining").
		WithCategory("Gifts", model.CategoryTypeExpense).
		WithCategory("Books", model.CategoryTypeExpense)

	_, err := m.Update(ctx, owner, fx.Category("Food").ID, UpdatePatch{Type: ptr(model.CategoryTypeIncome)})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err), "category with children")

	_, err = m.Update(ctx, owner, fx.Category("Dining").ID, UpdatePatch{Type: ptr(model.CategoryTypeIncome)})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err), "child would differ from parent")

	fileExpense(t, db, "t-1", fx.Account("Wallet").ID, fx.Category("Books").ID)
	_, err = m.Update(ctx, owner, fx.Category("Books").ID, UpdatePatch{Type: ptr(model.CategoryTypeIncome)})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err), "leaf with transactions")

	gifts, err := m.Update(ctx, owner, fx.Category("Gifts").ID, UpdatePatch{Type: ptr(model.CategoryTypeIncome)})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTypeIncome, gifts.Type)

	// Detaching and retyping together is judged against the resulting parent.
	dining, err := m.Update(ctx, owner, fx.Category("Dining").ID, UpdatePatch{
		Type:   ptr(model.CategoryTypeIncome),
		Parent: &ParentUpdate{ID: nil},
	})
	require.NoError(t, err)
	assert.Nil(t, dining.ParentID)
	assert.Equal(t, model.CategoryTypeIncome, dining.Type)
}

func TestManager_UpdateMove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := NewManager(db.Storage, nil)
	ctx := context.Background()

	fx := db.Fixtures(owner).
		WithCategory("Food", model.CategoryTypeExpense).
		WithChild("Food", "Dining").
		WithChild("Dining", "Coffee").
		WithCategory("Travel", model.CategoryTypeExpense).
		WithCategory("Salary", model.CategoryTypeIncome)
	food, dining, coffee := fx.Category("Food").ID, fx.Category("Dining").ID, fx.Category("Coffee").ID

	_, err := m.Update(ctx, owner, food, UpdatePatch{Parent: &ParentUpdate{ID: &coffee}})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err), "beneath own descendant")

	_, err = m.Update(ctx, owner, food, UpdatePatch{Parent: &ParentUpdate{ID: &food}})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err), "beneath itself")

	_, err = m.Update(ctx, owner, dining, UpdatePatch{Parent: &ParentUpdate{ID: ptr(fx.Category("Salary").ID)}})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err), "beneath a different type")

	moved, err := m.Update(ctx, owner, dining, UpdatePatch{Parent: &ParentUpdate{ID: ptr(fx.Category("Travel").ID)}})
	require.NoError(t, err)
	assert.Equal(t, fx.Category("Travel").ID, *moved.ParentID)

	ids, err := db.Storage.GetDescendantIDs(ctx, owner, fx.Category("Travel").ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{fx.Category("Travel").ID, dining, coffee}, ids)

	ids, err = db.Storage.GetDescendantIDs(ctx, owner, food)
	require.NoError(t, err)
	assert.Equal(t, []int64{food}, ids)

	_, err = m.Update(ctx, owner, coffee, UpdatePatch{Name: ptr("Food")})
	assert.Equal(t, common.KindConflict, common.KindOf(err))
}

func TestManager_Remove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	fx := db.Fixtures(owner).
		WithAccount("Wallet", "0").
		WithCategory("Food", model.CategoryTypeExpense).
		WithChild("Food", "Dining").
		WithCategory("Travel", model.CategoryTypeExpense)
	fileExpense(t, db, "t-1", fx.Account("Wallet").ID, fx.Category("Dining").ID)

	strict := NewManager(db.Storage, nil)
	err := strict.Remove(ctx, owner, fx.Category("Food").ID)
	assert.Equal(t, common.KindBadRequest, common.KindOf(err))

	remover := &stubRemover{}
	m := NewManager(db.Storage, remover)
	require.NoError(t, m.Remove(ctx, owner, fx.Category("Food").ID))
	require.Len(t, remover.calls, 1)
	assert.ElementsMatch(t, []int64{fx.Category("Food").ID, fx.Category("Dining").ID}, remover.calls[0])

	_, err = db.Storage.GetCategory(ctx, owner, fx.Category("Dining").ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	assert.Equal(t, 0, db.CountTransactions(owner))

	// Nothing filed, so the remover is not consulted.
	require.NoError(t, m.Remove(ctx, owner, fx.Category("Travel").ID))
	assert.Len(t, remover.calls, 1)

	err = m.Remove(ctx, owner, fx.Category("Travel").ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestManager_FindAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := NewManager(db.Storage, nil)
	ctx := context.Background()

	db.Fixtures(owner).
		WithCategory("Food", model.CategoryTypeExpense).
		WithChild("Food", "Dining").
		WithChild("Dining", "Coffee shops").
		WithCategory("Salary", model.CategoryTypeIncome)

	forest, err := m.FindAll(ctx, owner, service.CategoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, forest.Total)
	assert.Len(t, forest.Roots, 2)

	forest, err = m.FindAll(ctx, owner, service.CategoryFilter{Keyword: "COFFEE"})
	require.NoError(t, err)
	assert.Equal(t, 3, forest.Total)
	require.Len(t, forest.Roots, 1)
	assert.Equal(t, "Food", forest.Roots[0].Name)
	assert.Equal(t, "Coffee shops", forest.Roots[0].Children[0].Children[0].Name)

	forest, err = m.FindAll(ctx, owner, service.CategoryFilter{Types: []model.CategoryType{model.CategoryTypeIncome}})
	require.NoError(t, err)
	assert.Equal(t, 1, forest.Total)

	_, err = m.FindAll(ctx, owner, service.CategoryFilter{Types: []model.CategoryType{"SAVINGS"}})
	assert.Equal(t, common.KindBadRequest, common.KindOf(err))
}

func TestManager_FindOneAndSortOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := NewManager(db.Storage, nil)
	ctx := context.Background()

	fx := db.Fixtures(owner).
		WithCategory("Food", model.CategoryTypeExpense).
		WithChild("Food", "Dining").
		WithCategory("Travel", model.CategoryTypeExpense)

	node, err := m.FindOne(ctx, owner, fx.Category("Food").ID)
	require.NoError(t, err)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "Dining", node.Children[0].Name)

	_, err = m.FindOne(ctx, "other-owner", fx.Category("Food").ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	require.NoError(t, m.UpdateSortOrder(ctx, owner, []int64{fx.Category("Travel").ID, fx.Category("Food").ID}))
	forest, err := m.FindAll(ctx, owner, service.CategoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Travel", forest.Roots[0].Name)

	err = m.UpdateSortOrder(ctx, owner, []int64{fx.Category("Food").ID, 404})
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}
