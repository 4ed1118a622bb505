package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OwnerID identifies the user that every account, category and transaction belongs to.
type OwnerID string

// String returns the raw owner identifier.
func (o OwnerID) String() string {
	return string(o)
}

// Account holds a running balance. Balance is only ever changed through
// the balance adjuster so it stays equal to InitialBalance plus the signed
// effect of every transaction attributed to the account.
type Account struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Balance        decimal.Decimal
	InitialBalance decimal.Decimal
	TypeID         *int64
	Owner          OwnerID
	Name           string
	Description    string
	IconID         string
	ID             int64
	SortOrder      int
}

// AccountType groups accounts in listings, for example cash or bank.
// AccountCount is filled in on reads.
type AccountType struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Owner        OwnerID
	Name         string
	Description  string
	IconID       string
	ID           int64
	SortOrder    int
	AccountCount int
}

// Icon is an opaque asset reference attached to accounts and categories.
type Icon struct {
	ID   string
	Name string
	URL  string
}
