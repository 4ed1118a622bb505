package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/ledger"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/ofx"
	"github.com/Veraticus/pennywise/internal/storage"
)

type importOptions struct {
	accountID         int64
	incomeCategoryID  int64
	expenseCategoryID int64
	dryRun            bool
	noCheckpoint      bool
}

func importCmd(e *env) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import statement lines from OFX or QFX (Quicken) files exported from your
bank. Credits become income under --income-category and debits become
expenses under --expense-category, all on --account.

An automatic checkpoint is taken before anything is written.`,
		Example: `  # Import single file
  pennywise import ~/Downloads/chase_jan_2024.qfx --account 1 --income-category 3 --expense-category 12

  # Preview a directory of statements
  pennywise import ~/Downloads/*.qfx --account 1 --income-category 3 --expense-category 12 --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, e, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&opts.accountID, "account", 0, "Account id the statement belongs to")
	flags.Int64Var(&opts.incomeCategoryID, "income-category", 0, "Income category id for credits")
	flags.Int64Var(&opts.expenseCategoryID, "expense-category", 0, "Expense category id for debits")
	flags.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Preview import without saving")
	flags.BoolVar(&opts.noCheckpoint, "no-checkpoint", false, "Skip the automatic checkpoint")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("income-category")
	_ = cmd.MarkFlagRequired("expense-category")

	return cmd
}

func runImport(cmd *cobra.Command, e *env, opts *importOptions, args []string) error {
	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	entries, err := parseStatements(cmd.Context(), files)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Found %d entries in %d files", len(entries), len(files))))

	entries, repeated := ofx.Dedupe(entries)
	if repeated > 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipped %d duplicate entries across files", repeated)))
	}
	if len(entries) == 0 {
		return nil
	}

	return e.withApp(cmd, func(ctx context.Context, a *app) error {
		entries, recorded, err := dropRecorded(ctx, a, opts.accountID, entries)
		if err != nil {
			return err
		}
		if recorded > 0 {
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipped %d entries already imported", recorded)))
		}

		if opts.dryRun {
			table := cli.NewTable(out, "DATE", "AMOUNT", "DESCRIPTION")
			for _, entry := range entries {
				table.Row(formatDate(entry.Date, e.cfg.Location), cli.FormatAmount(entry.Amount), entry.Description)
			}
			if err := table.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, cli.SubtleStyle.Render("Dry run: nothing was saved."))
			return nil
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, cli.FormatSuccess("Imported 0 transactions"))
			return nil
		}

		if !opts.noCheckpoint {
			if err := autoCheckpoint(ctx, a.store); err != nil {
				return err
			}
		}

		handler := cli.NewInterruptHandler(out, "Import", "Transactions recorded so far were kept.")
		ctx, stop := handler.HandleInterrupts(ctx)
		defer stop()

		imported, skipped, err := importEntries(ctx, a, opts, entries, cli.NewProgress(out, len(entries), "Importing"))
		if err != nil {
			if handler.WasInterrupted() {
				return nil
			}
			return err
		}

		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions", imported)))
		if skipped > 0 {
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipped %d zero-amount entries", skipped)))
		}
		return nil
	})
}

// lookupBatch bounds the statement line ids bound into a single query.
const lookupBatch = 500

// dropRecorded removes entries whose statement line is already on the account.
func dropRecorded(ctx context.Context, a *app, accountID int64, entries []ofx.Entry) ([]ofx.Entry, int, error) {
	recorded := make(map[string]bool)
	for start := 0; start < len(entries); start += lookupBatch {
		end := min(start+lookupBatch, len(entries))
		keys := make([]string, 0, end-start)
		for _, entry := range entries[start:end] {
			keys = append(keys, entry.Key())
		}
		found, err := a.store.FindExternalIDs(ctx, a.owner, accountID, keys)
		if err != nil {
			return nil, 0, err
		}
		for key := range found {
			recorded[key] = true
		}
	}
	if len(recorded) == 0 {
		return entries, 0, nil
	}

	fresh := entries[:0:0]
	for _, entry := range entries {
		if !recorded[entry.Key()] {
			fresh = append(fresh, entry)
		}
	}
	return fresh, len(entries) - len(fresh), nil
}

// importEntries records each entry as its own ledger mutation.
func importEntries(ctx context.Context, a *app, opts *importOptions, entries []ofx.Entry, progress *cli.Progress) (int, int, error) {
	imported, skipped := 0, 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return imported, skipped, err
		}

		in, ok := entryInput(entry, opts)
		if !ok {
			skipped++
			progress.Step()
			continue
		}
		if _, err := a.ledger.Create(ctx, a.owner, in); err != nil {
			return imported, skipped, fmt.Errorf("failed to import %s: %w", entry.FitID, err)
		}
		imported++
		progress.Step()
	}
	progress.Finish()

	slog.Info("imported statement entries", "imported", imported, "skipped", skipped, "account", opts.accountID)
	return imported, skipped, nil
}

// entryInput maps a signed statement line onto an income or expense draft.
// Zero amounts have no ledger meaning and are skipped.
func entryInput(entry ofx.Entry, opts *importOptions) (ledger.CreateInput, bool) {
	in := ledger.CreateInput{
		Date:        entry.Date,
		Amount:      entry.Amount.Abs(),
		Description: entry.Description,
		AccountID:   opts.accountID,
		ExternalID:  entry.Key(),
	}
	switch {
	case entry.Amount.IsPositive():
		in.Type = model.TransactionTypeIncome
		in.CategoryID = opts.incomeCategoryID
	case entry.Amount.IsNegative():
		in.Type = model.TransactionTypeExpense
		in.CategoryID = opts.expenseCategoryID
	default:
		return in, false
	}
	return in, true
}

func autoCheckpoint(ctx context.Context, store *storage.SQLiteStorage) error {
	manager, err := storage.NewCheckpointManager(store)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	info, err := manager.AutoCheckpoint(ctx, "import")
	if err != nil {
		return err
	}
	slog.Info("created automatic checkpoint", "id", info.ID)
	return nil
}

// expandFiles resolves glob patterns and plain paths, in order, without duplicates.
func expandFiles(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, common.BadRequestf("invalid pattern %s: %v", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err != nil {
				slog.Warn("No files found matching pattern", "pattern", pattern)
				continue
			}
			matches = []string{pattern}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, common.BadRequestf("no files to import")
	}
	return files, nil
}

func parseStatements(ctx context.Context, files []string) ([]ofx.Entry, error) {
	parser := ofx.NewParser()
	var entries []ofx.Entry
	for _, path := range files {
		f, err := os.Open(path) //nolint:gosec // user-supplied statement path
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		parsed, err := parser.ParseFile(ctx, f)
		closeErr := f.Close()
		if err != nil {
			return nil, common.BadRequestf("failed to parse %s: %v", path, err)
		}
		if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close statement", "path", path, "error", closeErr)
		}
		entries = append(entries, parsed...)
	}
	return entries, nil
}
