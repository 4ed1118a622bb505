package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/model"
)

// FormatAmount renders a money value, in the expense color when negative.
func FormatAmount(d decimal.Decimal) string {
	s := model.FormatMoney(d)
	if d.IsNegative() {
		return ExpenseStyle.Render(s)
	}
	return s
}

// FormatSigned renders a transaction amount with the sign its type gives
// it: + for income, - for expense, none for transfers.
func FormatSigned(txnType model.TransactionType, amount decimal.Decimal) string {
	s := model.FormatMoney(amount)
	switch txnType {
	case model.TransactionTypeIncome:
		return IncomeStyle.Render("+" + s)
	case model.TransactionTypeExpense:
		return ExpenseStyle.Render("-" + s)
	}
	return s
}

// FormatPercent renders a percentage change, or n/a when there is none.
func FormatPercent(p *decimal.Decimal) string {
	if p == nil {
		return SubtleStyle.Render("n/a")
	}
	s := p.StringFixed(2) + "%"
	if p.IsPositive() {
		s = "+" + s
	}
	return s
}

// Table writes aligned columns with a bold header row.
type Table struct {
	w *tabwriter.Writer
}

// NewTable starts a table on out.
func NewTable(out io.Writer, headers ...string) *Table {
	t := &Table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}
	bold := make([]string, len(headers))
	for i, h := range headers {
		bold[i] = BoldStyle.Render(h)
	}
	fmt.Fprintln(t.w, strings.Join(bold, "\t"))
	return t
}

// Row appends one row; each cell is printed with %v.
func (t *Table) Row(cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(t.w, strings.Join(parts, "\t"))
}

// Flush writes the table.
func (t *Table) Flush() error {
	return t.w.Flush()
}
