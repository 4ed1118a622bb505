// Package analytics computes read-only summaries over an owner's standard
// transactions: period comparisons, time-bucketed charts and category roll-ups.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

// Reader is the slice of storage the aggregator needs.
type Reader interface {
	service.AnalyticsQueries
	ListCategories(ctx context.Context, owner model.OwnerID) ([]model.Category, error)
}

// Granularity selects the chart bucket size.
type Granularity string

// Supported chart granularities.
const (
	Day   Granularity = "day"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// ParseGranularity accepts day, month or year in any case.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Month, Year:
		return g, nil
	}
	return "", common.BadRequestf("unknown granularity %q", s)
}

func (g Granularity) label() string {
	switch g {
	case Day:
		return "2006-01-02"
	case Year:
		return "2006"
	default:
		return "Jan 2006"
	}
}

// truncate returns the start of t's bucket in t's location.
func (g Granularity) truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	switch g {
	case Day:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
}

// Metrics are income, expense and their difference over one range.
type Metrics struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
}

// Change holds percentage changes. A nil field means the previous value was zero.
type Change struct {
	Income   *decimal.Decimal
	Expenses *decimal.Decimal
	Net      *decimal.Decimal
}

// Summary compares a range with the equally long range right before it.
type Summary struct {
	Range         service.DateRange
	PreviousRange service.DateRange
	Current       Metrics
	Previous      Metrics
	Change        Change
}

// ChartPoint is one bucket of a chart.
type ChartPoint struct {
	Start   time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
	Label   string
}

// Aggregator answers analytics queries for one timezone.
type Aggregator struct {
	store Reader
	loc   *time.Location
	now   func() time.Time
}

// NewAggregator creates an aggregator bucketing in loc. A nil loc means UTC.
func NewAggregator(store Reader, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{store: store, loc: loc, now: time.Now}
}

// SetClock overrides the clock used for default ranges.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// CurrentMonth returns the calendar month containing now, in the
// aggregator's timezone, ending on its last millisecond.
func (a *Aggregator) CurrentMonth() service.DateRange {
	now := a.now().In(a.loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, a.loc)
	return service.DateRange{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Millisecond)}
}

func (a *Aggregator) resolve(rng *service.DateRange) (service.DateRange, error) {
	if rng == nil {
		return a.CurrentMonth(), nil
	}
	if rng.End.Before(rng.Start) {
		return service.DateRange{}, common.BadRequestf("date range ends before it starts")
	}
	return *rng, nil
}

// PeriodSummary returns income, expenses and net for rng and for the
// preceding range of the same duration, with percentage changes. A nil rng
// means the current month.
func (a *Aggregator) PeriodSummary(ctx context.Context, owner model.OwnerID, rng *service.DateRange, filter service.AnalyticsFilter) (*Summary, error) {
	current, err := a.resolve(rng)
	if err != nil {
		return nil, err
	}
	prevEnd := current.Start.Add(-time.Millisecond)
	previous := service.DateRange{Start: prevEnd.Add(-current.Duration()), End: prevEnd}

	cur, err := a.metrics(ctx, owner, current, filter)
	if err != nil {
		return nil, err
	}
	prev, err := a.metrics(ctx, owner, previous, filter)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Range:         current,
		PreviousRange: previous,
		Current:       cur,
		Previous:      prev,
		Change: Change{
			Income:   PercentChange(cur.Income, prev.Income),
			Expenses: PercentChange(cur.Expenses, prev.Expenses),
			Net:      PercentChange(cur.Net, prev.Net),
		},
	}, nil
}

func (a *Aggregator) metrics(ctx context.Context, owner model.OwnerID, rng service.DateRange, filter service.AnalyticsFilter) (Metrics, error) {
	sums, err := a.store.SumByType(ctx, owner, rng, filter)
	if err != nil {
		return Metrics{}, common.WrapInternal("sum transactions", err)
	}
	income := sums[model.TransactionTypeIncome]
	expenses := sums[model.TransactionTypeExpense]
	return Metrics{Income: income, Expenses: expenses, Net: income.Sub(expenses)}, nil
}

// PercentChange returns (cur-prev)/prev*100 rounded to two places, or nil
// when prev is zero.
func PercentChange(cur, prev decimal.Decimal) *decimal.Decimal {
	if prev.IsZero() {
		return nil
	}
	change := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	return &change
}

// Chart sums income and expense per bucket of g across rng, in
// chronological order. Empty buckets are omitted.
func (a *Aggregator) Chart(ctx context.Context, owner model.OwnerID, rng *service.DateRange, g Granularity, filter service.AnalyticsFilter) ([]ChartPoint, error) {
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}
	resolved, err := a.resolve(rng)
	if err != nil {
		return nil, err
	}

	rows, err := a.store.ListLedgerRows(ctx, owner, resolved, filter)
	if err != nil {
		return nil, common.WrapInternal("list ledger rows", err)
	}

	var points []ChartPoint
	index := make(map[time.Time]int)
	for _, row := range rows {
		start := g.truncate(row.Date.In(a.loc))
		i, ok := index[start]
		if !ok {
			i = len(points)
			index[start] = i
			points = append(points, ChartPoint{Start: start, Label: start.Format(g.label())})
		}
		switch row.Type {
		case model.TransactionTypeIncome:
			points[i].Income = points[i].Income.Add(row.Amount)
		case model.TransactionTypeExpense:
			points[i].Expense = points[i].Expense.Add(row.Amount)
		default:
			return nil, common.WrapInternal("bucket ledger rows", fmt.Errorf("unexpected %s row", row.Type))
		}
	}
	return points, nil
}
