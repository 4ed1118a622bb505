package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryType indicates whether a category is for income or expense.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "INCOME"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "EXPENSE"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Direction returns the balance direction applied by transactions of this type.
func (t CategoryType) Direction() Direction {
	if t == CategoryTypeIncome {
		return DirectionCredit
	}
	return DirectionDebit
}

// Category is one node of an owner's category forest. A child always has
// the same Type as its parent.
type Category struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ParentID    *int64
	Owner       OwnerID
	Name        string
	Description string
	IconID      string
	Type        CategoryType
	ID          int64
	SortOrder   int
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryNode is a category with its children attached. Amount is only
// populated by analytics roll-ups.
type CategoryNode struct {
	Amount   decimal.Decimal
	Children []*CategoryNode
	Category
}

// Walk visits n and every descendant depth-first.
func (n *CategoryNode) Walk(fn func(*CategoryNode)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
