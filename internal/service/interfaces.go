// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/model"
)

// DateRange is an inclusive time interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Duration returns End minus Start.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// AmountRange is an inclusive amount interval.
type AmountRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// SortField names a sortable transaction column.
type SortField string

// Sortable transaction fields.
const (
	SortByTransactionDate SortField = "transactionDate"
	SortByAmount          SortField = "amount"
	SortByType            SortField = "type"
	SortByDescription     SortField = "description"
	SortByCreatedAt       SortField = "createdAt"
	SortByUpdatedAt       SortField = "updatedAt"
)

// Valid reports whether f names a sortable field.
func (f SortField) Valid() bool {
	switch f {
	case SortByTransactionDate, SortByAmount, SortByType, SortByDescription, SortByCreatedAt, SortByUpdatedAt:
		return true
	}
	return false
}

// SortKey is one ordering term; keys apply in slice order.
type SortKey struct {
	Field SortField
	Desc  bool
}

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	Date               *DateRange
	Amount             *AmountRange
	Keyword            string
	AccountIDs         []int64
	CategoryIDs        []int64
	SenderAccountIDs   []int64
	ReceiverAccountIDs []int64
	Types              []model.TransactionType
	Sort               []SortKey
	Skip               int
	Take               int
}

// TransactionPage is one page of transactions plus the unpaginated total.
type TransactionPage struct {
	Items []model.Transaction
	Total int
}

// AccountFilter defines filtering options for account listings.
type AccountFilter struct {
	Keyword string
	TypeIDs []int64
	Skip    int
	Take    int
}

// AccountPage is one page of accounts plus the unpaginated total.
type AccountPage struct {
	Items []model.Account
	Total int
}

// CategoryFilter narrows category listings by name keyword and type.
type CategoryFilter struct {
	Keyword string
	Types   []model.CategoryType
}

// AnalyticsFilter narrows analytics to accounts and categories. A category
// filter also matches children whose parent is listed.
type AnalyticsFilter struct {
	AccountIDs  []int64
	CategoryIDs []int64
}

// LedgerRow is the minimal projection of a standard transaction used for bucketing.
type LedgerRow struct {
	Date   time.Time
	Amount decimal.Decimal
	Type   model.TransactionType
}

// CategoryTotal is the summed amount attributed to one category.
type CategoryTotal struct {
	Label      string
	Total      decimal.Decimal
	CategoryID int64
}

// AccountQueries covers account rows.
type AccountQueries interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, owner model.OwnerID, id int64) (*model.Account, error)
	GetAccountByName(ctx context.Context, owner model.OwnerID, name string) (*model.Account, error)
	ListAccounts(ctx context.Context, owner model.OwnerID, filter AccountFilter) ([]model.Account, int, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
	SetAccountBalance(ctx context.Context, owner model.OwnerID, id int64, balance decimal.Decimal) error
	DeleteAccount(ctx context.Context, owner model.OwnerID, id int64) error
	CountAccountTransactions(ctx context.Context, owner model.OwnerID, id int64) (int, error)
	FindMissingAccountIDs(ctx context.Context, owner model.OwnerID, ids []int64) ([]int64, error)
	SetAccountSortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error
	SumAccountBalances(ctx context.Context, owner model.OwnerID) (decimal.Decimal, error)
}

// AccountTypeQueries covers account type rows.
type AccountTypeQueries interface {
	CreateAccountType(ctx context.Context, accountType *model.AccountType) error
	GetAccountType(ctx context.Context, owner model.OwnerID, id int64) (*model.AccountType, error)
	GetAccountTypeByName(ctx context.Context, owner model.OwnerID, name string) (*model.AccountType, error)
	ListAccountTypes(ctx context.Context, owner model.OwnerID) ([]model.AccountType, error)
	UpdateAccountType(ctx context.Context, accountType *model.AccountType) error
	DeleteAccountType(ctx context.Context, owner model.OwnerID, id int64) error
	FindMissingAccountTypeIDs(ctx context.Context, owner model.OwnerID, ids []int64) ([]int64, error)
	SetAccountTypeSortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error
}

// CategoryQueries covers category rows and their closure table.
type CategoryQueries interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, owner model.OwnerID, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, owner model.OwnerID, name string) (*model.Category, error)
	ListCategories(ctx context.Context, owner model.OwnerID) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	MoveCategory(ctx context.Context, owner model.OwnerID, id int64, parentID *int64) error
	GetDescendantIDs(ctx context.Context, owner model.OwnerID, id int64) ([]int64, error)
	DeleteCategory(ctx context.Context, owner model.OwnerID, id int64) error
	CountCategoryTransactions(ctx context.Context, owner model.OwnerID, ids []int64) (int, error)
	FindMissingCategoryIDs(ctx context.Context, owner model.OwnerID, ids []int64) ([]int64, error)
	SetCategorySortOrder(ctx context.Context, owner model.OwnerID, ids []int64) error
}

// TransactionQueries covers ledger rows.
type TransactionQueries interface {
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransaction(ctx context.Context, owner model.OwnerID, id string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, owner model.OwnerID, id string) error
	ListTransactions(ctx context.Context, owner model.OwnerID, filter TransactionFilter) ([]model.Transaction, int, error)
	ListTransactionsByCategories(ctx context.Context, owner model.OwnerID, categoryIDs []int64) ([]model.Transaction, error)
	FindExternalIDs(ctx context.Context, owner model.OwnerID, accountID int64, externalIDs []string) (map[string]bool, error)
}

// AnalyticsQueries are read-only aggregations over standard transactions.
type AnalyticsQueries interface {
	SumByType(ctx context.Context, owner model.OwnerID, rng DateRange, filter AnalyticsFilter) (map[model.TransactionType]decimal.Decimal, error)
	ListLedgerRows(ctx context.Context, owner model.OwnerID, rng DateRange, filter AnalyticsFilter) ([]LedgerRow, error)
	SumByRootCategory(ctx context.Context, owner model.OwnerID, txnType model.TransactionType, rng DateRange, filter AnalyticsFilter) ([]CategoryTotal, error)
	SumByCategory(ctx context.Context, owner model.OwnerID, txnType model.TransactionType, rng DateRange) (map[int64]decimal.Decimal, error)
}

// IconResolver checks that an opaque icon reference exists.
type IconResolver interface {
	IconExists(ctx context.Context, id string) (bool, error)
}

// IconQueries adds icon registration to IconResolver.
type IconQueries interface {
	IconResolver
	CreateIcon(ctx context.Context, icon model.Icon) error
}

// Queries is every row operation; it runs on the store or inside a Transaction.
type Queries interface {
	AccountQueries
	AccountTypeQueries
	CategoryQueries
	TransactionQueries
	AnalyticsQueries
	IconQueries
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Queries
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Queries
	Commit() error
	Rollback() error
}

// OwnerResolver supplies the authenticated owner for a call.
type OwnerResolver interface {
	Owner(ctx context.Context) (model.OwnerID, error)
}
