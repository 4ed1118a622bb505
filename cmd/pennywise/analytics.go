package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/analytics"
	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

func analyticsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analytics",
		Aliases: []string{"report"},
		Short:   "Summaries, charts and category breakdowns",
		Long: `Read-only reports over income and expense transactions. Transfers are
never counted. Without --from/--to the current calendar month is used.`,
	}

	cmd.AddCommand(summaryCmd(e))
	cmd.AddCommand(chartCmd(e))
	cmd.AddCommand(rollupCmd(e))
	cmd.AddCommand(treeCmd(e))

	return cmd
}

type rangeFlags struct {
	from, to   string
	accounts   []string
	categories []string
}

func (f *rangeFlags) register(cmd *cobra.Command, withFilter bool) {
	cmd.Flags().StringVar(&f.from, "from", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day, YYYY-MM-DD")
	if withFilter {
		cmd.Flags().StringSliceVar(&f.accounts, "account", nil, "Only these account ids")
		cmd.Flags().StringSliceVar(&f.categories, "category", nil, "Only these category ids (and their direct children)")
	}
}

func (f *rangeFlags) resolve(e *env) (*service.DateRange, service.AnalyticsFilter, error) {
	var filter service.AnalyticsFilter
	rng, err := parseRange(f.from, f.to, e.cfg.Location)
	if err != nil {
		return nil, filter, err
	}
	if filter.AccountIDs, err = parseIDs(f.accounts); err != nil {
		return nil, filter, err
	}
	if filter.CategoryIDs, err = parseIDs(f.categories); err != nil {
		return nil, filter, err
	}
	return rng, filter, nil
}

func summaryCmd(e *env) *cobra.Command {
	flags := &rangeFlags{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Income, expenses and net compared with the previous period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, filter, err := flags.resolve(e)
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := a.analytics.PeriodSummary(ctx, a.owner, rng, filter)
				if err != nil {
					return err
				}

				var b strings.Builder
				table := cli.NewTable(&b, "", "CURRENT", "PREVIOUS", "CHANGE")
				table.Row("Income", cli.FormatAmount(s.Current.Income), cli.FormatAmount(s.Previous.Income), cli.FormatPercent(s.Change.Income))
				table.Row("Expenses", cli.FormatAmount(s.Current.Expenses), cli.FormatAmount(s.Previous.Expenses), cli.FormatPercent(s.Change.Expenses))
				table.Row("Net", cli.FormatAmount(s.Current.Net), cli.FormatAmount(s.Previous.Net), cli.FormatPercent(s.Change.Net))
				if err := table.Flush(); err != nil {
					return err
				}

				title := fmt.Sprintf("Summary %s to %s", formatDate(s.Range.Start, a.loc), formatDate(s.Range.End, a.loc))
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(title, strings.TrimRight(b.String(), "\n")))
				return nil
			})
		},
	}

	flags.register(cmd, true)

	return cmd
}

func chartCmd(e *env) *cobra.Command {
	flags := &rangeFlags{}
	var granularity string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Income and expenses bucketed by day, month or year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := analytics.ParseGranularity(granularity)
			if err != nil {
				return err
			}
			rng, filter, err := flags.resolve(e)
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				points, err := a.analytics.Chart(ctx, a.owner, rng, g, filter)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(points) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No income or expenses in range."))
					return nil
				}

				table := cli.NewTable(out, "PERIOD", "INCOME", "EXPENSES", "NET")
				for _, p := range points {
					table.Row(p.Label, model.FormatMoney(p.Income), model.FormatMoney(p.Expense), cli.FormatAmount(p.Income.Sub(p.Expense)))
				}
				return table.Flush()
			})
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&granularity, "by", "g", string(analytics.Month), "Bucket size: day, month or year")

	return cmd
}

func rollupCmd(e *env) *cobra.Command {
	flags := &rangeFlags{}
	var typeFlag string

	cmd := &cobra.Command{
		Use:   "rollup",
		Short: "Top-level categories ranked by total, the tail folded into Other",
		RunE: func(cmd *cobra.Command, _ []string) error {
			txnType, err := parseStandardType(typeFlag)
			if err != nil {
				return err
			}
			rng, filter, err := flags.resolve(e)
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				totals, err := a.analytics.CategoryRollup(ctx, a.owner, txnType, rng, filter)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(totals) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("Nothing to show in range."))
					return nil
				}

				table := cli.NewTable(out, "CATEGORY", "TOTAL")
				for _, t := range totals {
					table.Row(t.Label, model.FormatMoney(t.Total))
				}
				return table.Flush()
			})
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "expense", "income or expense")

	return cmd
}

func treeCmd(e *env) *cobra.Command {
	flags := &rangeFlags{}
	var typeFlag string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Category forest with each node's total including descendants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			txnType, err := parseStandardType(typeFlag)
			if err != nil {
				return err
			}
			rng, _, err := flags.resolve(e)
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				roots, err := a.analytics.CategoryTree(ctx, a.owner, txnType, rng)
				if err != nil {
					return err
				}
				if len(roots) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No categories of this type."))
					return nil
				}
				printForest(cmd.OutOrStdout(), roots, true)
				return nil
			})
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "expense", "income or expense")

	return cmd
}

// parseStandardType accepts only the two transaction types analytics report on.
func parseStandardType(s string) (model.TransactionType, error) {
	t, err := parseTransactionType(s)
	if err != nil {
		return "", err
	}
	if t.IsTransfer() {
		return "", common.BadRequestf("analytics cover income and expense only")
	}
	return t, nil
}
