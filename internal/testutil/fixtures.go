package testutil

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/model"
)

// Fixtures seeds rows for one owner and remembers them by name.
type Fixtures struct {
	db           *TestDB
	Accounts     map[string]*model.Account
	AccountTypes map[string]*model.AccountType
	Categories   map[string]*model.Category
	Owner        model.OwnerID
}

// Fixtures starts a fixture set for owner.
func (db *TestDB) Fixtures(owner model.OwnerID) *Fixtures {
	return &Fixtures{
		db:           db,
		Owner:        owner,
		Accounts:     make(map[string]*model.Account),
		AccountTypes: make(map[string]*model.AccountType),
		Categories:   make(map[string]*model.Category),
	}
}

// WithAccount creates an account whose balance and initial balance are balance.
func (f *Fixtures) WithAccount(name, balance string) *Fixtures {
	f.db.t.Helper()
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		f.db.t.Fatalf("invalid fixture balance %q: %v", balance, err)
	}
	account := &model.Account{Owner: f.Owner, Name: name, Balance: amount, InitialBalance: amount}
	if err := f.db.Storage.CreateAccount(context.Background(), account); err != nil {
		f.db.t.Fatalf("failed to seed account %q: %v", name, err)
	}
	f.Accounts[name] = account
	return f
}

// WithAccountType creates an account type at the given sort order.
func (f *Fixtures) WithAccountType(name string, sortOrder int) *Fixtures {
	f.db.t.Helper()
	accountType := &model.AccountType{Owner: f.Owner, Name: name, SortOrder: sortOrder}
	if err := f.db.Storage.CreateAccountType(context.Background(), accountType); err != nil {
		f.db.t.Fatalf("failed to seed account type %q: %v", name, err)
	}
	f.AccountTypes[name] = accountType
	return f
}

// WithTypedAccount creates an account under a previously seeded account type.
func (f *Fixtures) WithTypedAccount(name, balance, typeName string) *Fixtures {
	f.db.t.Helper()
	accountType, ok := f.AccountTypes[typeName]
	if !ok {
		f.db.t.Fatalf("fixture account type %q was never seeded", typeName)
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		f.db.t.Fatalf("invalid fixture balance %q: %v", balance, err)
	}
	account := &model.Account{Owner: f.Owner, Name: name, Balance: amount, InitialBalance: amount, TypeID: &accountType.ID}
	if err := f.db.Storage.CreateAccount(context.Background(), account); err != nil {
		f.db.t.Fatalf("failed to seed account %q: %v", name, err)
	}
	f.Accounts[name] = account
	return f
}

// WithCategory creates a root category.
func (f *Fixtures) WithCategory(name string, catType model.CategoryType) *Fixtures {
	f.db.t.Helper()
	f.createCategory(&model.Category{Owner: f.Owner, Name: name, Type: catType})
	return f
}

// WithChild creates a category under a previously seeded parent, inheriting its type.
func (f *Fixtures) WithChild(parent, name string) *Fixtures {
	f.db.t.Helper()
	p := f.Category(parent)
	f.createCategory(&model.Category{Owner: f.Owner, Name: name, Type: p.Type, ParentID: &p.ID})
	return f
}

// Account returns a seeded account or fails the test.
func (f *Fixtures) Account(name string) *model.Account {
	f.db.t.Helper()
	account, ok := f.Accounts[name]
	if !ok {
		f.db.t.Fatalf("fixture account %q was never seeded", name)
	}
	return account
}

// Category returns a seeded category or fails the test.
func (f *Fixtures) Category(name string) *model.Category {
	f.db.t.Helper()
	category, ok := f.Categories[name]
	if !ok {
		f.db.t.Fatalf("fixture category %q was never seeded", name)
	}
	return category
}

func (f *Fixtures) createCategory(category *model.Category) {
	f.db.t.Helper()
	if err := f.db.Storage.CreateCategory(context.Background(), category); err != nil {
		f.db.t.Fatalf("failed to seed category %q: %v", category.Name, err)
	}
	f.Categories[category.Name] = category
}
