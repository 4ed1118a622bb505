package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/account"
	"github.com/Veraticus/pennywise/internal/analytics"
	"github.com/Veraticus/pennywise/internal/category"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/config"
	"github.com/Veraticus/pennywise/internal/ledger"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/Veraticus/pennywise/internal/storage"
)

const dateLayout = "2006-01-02"

// app is the wired core for one command run.
type app struct {
	store        *storage.SQLiteStorage
	accounts     *account.Registry
	accountTypes *account.TypeRegistry
	categories   *category.Manager
	ledger       *ledger.Engine
	analytics    *analytics.Aggregator
	owner        model.OwnerID
	loc          *time.Location
}

// initStorage opens the configured database and runs migrations.
func (e *env) initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(e.cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// openApp wires storage and every core service for the configured owner.
func (e *env) openApp(ctx context.Context) (*app, error) {
	owner, err := config.StaticOwner(e.cfg.Owner).Owner(ctx)
	if err != nil {
		return nil, err
	}

	store, err := e.initStorage(ctx)
	if err != nil {
		return nil, err
	}

	adjuster := account.NewAdjuster()
	engine := ledger.NewEngine(store, adjuster)

	return &app{
		store:        store,
		accounts:     account.NewRegistry(store, adjuster),
		accountTypes: account.NewTypeRegistry(store),
		categories:   category.NewManager(store, engine),
		ledger:       engine,
		analytics:    analytics.NewAggregator(store, e.cfg.Location),
		owner:        owner,
		loc:          e.cfg.Location,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp opens the app for the duration of fn.
func (e *env) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := e.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(ctx, a)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.BadRequestf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := model.ParseMoney(s)
	if err != nil {
		return decimal.Zero, common.BadRequestf("%v", err)
	}
	return d, nil
}

// parseDate reads a YYYY-MM-DD date at local midnight in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, common.BadRequestf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// parseRange turns optional --from/--to dates into an inclusive range. The
// end date covers its whole day. Both empty means no range.
func parseRange(from, to string, loc *time.Location) (*service.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, common.BadRequestf("--from and --to must be given together")
	}
	start, err := parseDate(from, loc)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(to, loc)
	if err != nil {
		return nil, err
	}
	return &service.DateRange{Start: start, End: end.AddDate(0, 0, 1).Add(-time.Millisecond)}, nil
}

func parseTransactionType(s string) (model.TransactionType, error) {
	t := model.TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", common.BadRequestf("invalid transaction type %q: want income, expense or transfer", s)
	}
	return t, nil
}

func parseCategoryType(s string) (model.CategoryType, error) {
	t := model.CategoryType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", common.BadRequestf("invalid category type %q: want income or expense", s)
	}
	return t, nil
}

// changedString returns a pointer to the flag's string value when it was set.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func changedInt(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func changedID(cmd *cobra.Command, name string) (*int64, error) {
	s := changedString(cmd, name)
	if s == nil {
		return nil, nil
	}
	id, err := parseID(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func changedAmount(cmd *cobra.Command, name string) (*decimal.Decimal, error) {
	s := changedString(cmd, name)
	if s == nil {
		return nil, nil
	}
	d, err := parseAmount(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

