// Package storage is the SQLite persistence layer: transactions behind
// the dedup gate, the exchange-rate cache, atomic quota bookkeeping,
// category rules and document metadata.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"ledgerpipe/internal/logging"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if necessary) the database at path and applies
// the schema. Use ":memory:" for tests.
func Open(path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) applySchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			description TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL,
			type TEXT NOT NULL,
			currency TEXT NOT NULL,
			category_id TEXT,
			confidence INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			provider_tx_id TEXT NOT NULL DEFAULT '',
			source_file TEXT NOT NULL DEFAULT '',
			needs_review INTEGER NOT NULL DEFAULT 0,
			ai_processed INTEGER NOT NULL DEFAULT 0,
			converted_amount TEXT,
			converted_currency TEXT NOT NULL DEFAULT '',
			installment_group_id TEXT NOT NULL DEFAULT '',
			installment_number INTEGER NOT NULL DEFAULT 0,
			installment_total INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tx_provider_key
			ON transactions(user_id, provider, provider_tx_id)
			WHERE provider_tx_id != ''`,
		`CREATE INDEX IF NOT EXISTS idx_tx_content_key
			ON transactions(user_id, date, description, amount, source_file)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_unconverted
			ON transactions(user_id) WHERE converted_amount IS NULL`,
		`CREATE TABLE IF NOT EXISTS exchange_rates (
			date TEXT NOT NULL,
			base TEXT NOT NULL,
			quote TEXT NOT NULL,
			rate TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (date, base, quote)
		)`,
		`CREATE TABLE IF NOT EXISTS ai_quota (
			user_id TEXT NOT NULL,
			month TEXT NOT NULL,
			used INTEGER NOT NULL DEFAULT 0,
			monthly_limit INTEGER NOT NULL,
			PRIMARY KEY (user_id, month)
		)`,
		`CREATE TABLE IF NOT EXISTS category_rules (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			keyword TEXT NOT NULL,
			category_id TEXT NOT NULL,
			match_type TEXT NOT NULL DEFAULT 'contains',
			field TEXT NOT NULL DEFAULT 'description',
			priority INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_user ON category_rules(user_id)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			institution TEXT NOT NULL DEFAULT '',
			account_id TEXT NOT NULL DEFAULT '',
			account_type TEXT NOT NULL DEFAULT '',
			period_start TEXT,
			period_end TEXT,
			opening_balance TEXT,
			closing_balance TEXT,
			method TEXT NOT NULL,
			confidence INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
