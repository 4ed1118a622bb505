package analytics

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/category"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

const (
	// maxSlices is the largest roll-up returned without collapsing.
	maxSlices = 6
	// keptSlices survive a collapse; the rest become OtherLabel.
	keptSlices = 5
	// OtherLabel names the bucket holding the collapsed tail.
	OtherLabel = "Other"
)

// CategoryRollup sums rng's transactions of txnType per top-level category,
// largest first. More than six groups collapse into the top five plus Other.
func (a *Aggregator) CategoryRollup(ctx context.Context, owner model.OwnerID, txnType model.TransactionType, rng *service.DateRange, filter service.AnalyticsFilter) ([]service.CategoryTotal, error) {
	if _, ok := txnType.CategoryType(); !ok {
		return nil, common.BadRequestf("roll-up needs INCOME or EXPENSE, got %q", txnType)
	}
	resolved, err := a.resolve(rng)
	if err != nil {
		return nil, err
	}

	totals, err := a.store.SumByRootCategory(ctx, owner, txnType, resolved, filter)
	if err != nil {
		return nil, common.WrapInternal("sum by category", err)
	}
	return collapseTail(totals), nil
}

// collapseTail keeps ranked totals as they are when there are at most
// maxSlices, otherwise the first keptSlices followed by one Other entry.
func collapseTail(ranked []service.CategoryTotal) []service.CategoryTotal {
	if len(ranked) <= maxSlices {
		return ranked
	}
	out := make([]service.CategoryTotal, 0, keptSlices+1)
	out = append(out, ranked[:keptSlices]...)

	other := decimal.Zero
	for _, t := range ranked[keptSlices:] {
		other = other.Add(t.Total)
	}
	return append(out, service.CategoryTotal{Label: OtherLabel, Total: other})
}

// CategoryTree returns the forest of categories of the matching type where
// each node's Amount is its own total in rng plus its descendants' totals.
func (a *Aggregator) CategoryTree(ctx context.Context, owner model.OwnerID, txnType model.TransactionType, rng *service.DateRange) ([]*model.CategoryNode, error) {
	catType, ok := txnType.CategoryType()
	if !ok {
		return nil, common.BadRequestf("category tree needs INCOME or EXPENSE, got %q", txnType)
	}
	resolved, err := a.resolve(rng)
	if err != nil {
		return nil, err
	}

	all, err := a.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, common.WrapInternal("list categories", err)
	}
	sums, err := a.store.SumByCategory(ctx, owner, txnType, resolved)
	if err != nil {
		return nil, common.WrapInternal("sum by category", err)
	}

	var typed []model.Category
	for _, c := range all {
		if c.Type == catType {
			typed = append(typed, c)
		}
	}

	forest := category.BuildForest(typed)
	for _, root := range forest {
		rollUp(root, sums)
	}
	return forest, nil
}

func rollUp(node *model.CategoryNode, sums map[int64]decimal.Decimal) decimal.Decimal {
	total := sums[node.ID]
	for _, child := range node.Children {
		total = total.Add(rollUp(child, sums))
	}
	node.Amount = total
	return total
}
