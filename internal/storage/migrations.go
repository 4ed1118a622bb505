package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 6

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: accounts, categories, transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id TEXT NOT NULL,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					balance_minor INTEGER NOT NULL DEFAULT 0,
					initial_balance_minor INTEGER NOT NULL DEFAULT 0,
					sort_order INTEGER NOT NULL DEFAULT 1,
					created_at INTEGER NOT NULL,
					updated_at INTEGER NOT NULL,
					UNIQUE (owner_id, name)
				)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id TEXT NOT NULL,
					name TEXT NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
					description TEXT NOT NULL DEFAULT '',
					parent_id INTEGER REFERENCES categories(id) ON DELETE CASCADE,
					sort_order INTEGER NOT NULL DEFAULT 1,
					created_at INTEGER NOT NULL,
					updated_at INTEGER NOT NULL,
					UNIQUE (owner_id, name)
				)`,
				`CREATE INDEX idx_categories_parent ON categories(parent_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE', 'TRANSFER')),
					amount_minor INTEGER NOT NULL CHECK (amount_minor > 0),
					transaction_date INTEGER NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					account_id INTEGER REFERENCES accounts(id),
					category_id INTEGER REFERENCES categories(id),
					sender_account_id INTEGER REFERENCES accounts(id),
					receiver_account_id INTEGER REFERENCES accounts(id),
					created_at INTEGER NOT NULL,
					updated_at INTEGER NOT NULL,
					CHECK (
						(type = 'TRANSFER'
							AND sender_account_id IS NOT NULL
							AND receiver_account_id IS NOT NULL
							AND sender_account_id <> receiver_account_id
							AND account_id IS NULL
							AND category_id IS NULL)
						OR
						(type IN ('INCOME', 'EXPENSE')
							AND account_id IS NOT NULL
							AND category_id IS NOT NULL
							AND sender_account_id IS NULL
							AND receiver_account_id IS NULL)
					)
				)`,
				`CREATE INDEX idx_transactions_owner_date ON transactions(owner_id, transaction_date)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add category closure table",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS category_closure (
					ancestor_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					descendant_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					depth INTEGER NOT NULL,
					PRIMARY KEY (ancestor_id, descendant_id)
				)`,
				`CREATE INDEX idx_category_closure_descendant ON category_closure(descendant_id)`,
				// Backfill self rows, then walk parent links one level at a time.
				`INSERT OR IGNORE INTO category_closure (ancestor_id, descendant_id, depth)
					SELECT id, id, 0 FROM categories`,
				`WITH RECURSIVE chain(ancestor_id, descendant_id, depth) AS (
					SELECT parent_id, id, 1 FROM categories WHERE parent_id IS NOT NULL
					UNION ALL
					SELECT c.parent_id, chain.descendant_id, chain.depth + 1
					FROM chain JOIN categories c ON c.id = chain.ancestor_id
					WHERE c.parent_id IS NOT NULL
				)
				INSERT OR IGNORE INTO category_closure (ancestor_id, descendant_id, depth)
					SELECT ancestor_id, descendant_id, depth FROM chain`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add icons and icon references",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS icons (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					url TEXT NOT NULL DEFAULT ''
				)`,
				`ALTER TABLE accounts ADD COLUMN icon_id TEXT REFERENCES icons(id)`,
				`ALTER TABLE categories ADD COLUMN icon_id TEXT REFERENCES icons(id)`,
			})
		},
	},
	{
		Version:     4,
		Description: "Index transaction references",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category_id)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_account_id)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_account_id)`,
			})
		},
	},
	{
		Version:     5,
		Description: "Add account types",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS account_types (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id TEXT NOT NULL,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					icon_id TEXT REFERENCES icons(id),
					sort_order INTEGER NOT NULL DEFAULT 1,
					created_at INTEGER NOT NULL,
					updated_at INTEGER NOT NULL,
					UNIQUE (owner_id, name)
				)`,
				`ALTER TABLE accounts ADD COLUMN account_type_id INTEGER REFERENCES account_types(id)`,
				`CREATE INDEX IF NOT EXISTS idx_accounts_type ON accounts(account_type_id)`,
			})
		},
	},
	{
		Version:     6,
		Description: "Record statement line ids on imported transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`ALTER TABLE transactions ADD COLUMN external_id TEXT`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_external
					ON transactions(owner_id, account_id, external_id)
					WHERE external_id IS NOT NULL`,
			})
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion > ExpectedSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, ExpectedSchemaVersion)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
