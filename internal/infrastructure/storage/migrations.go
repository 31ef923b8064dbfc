package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "production_pieces",
		Up:      migration001ProductionPieces,
	},
	{
		Version: 2,
		Name:    "sync_runs",
		Up:      migration002SyncRuns,
	},
	{
		Version: 3,
		Name:    "status_configs",
		Up:      migration003StatusConfigs,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(`
			INSERT INTO schema_migrations (version, name) VALUES (?, ?)
		`, migration.Version, migration.Name)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table
func (s *Storage) ensureMigrationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	_, err := s.db.Exec(query)
	return err
}

// getAppliedMigrations returns a set of applied migration versions
func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// migration001ProductionPieces creates the production_pieces table. The
// short_product_id unique constraint is the last line of defense of the id
// generator: a racing run cannot commit a duplicate id.
func migration001ProductionPieces(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS production_pieces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			short_product_id TEXT UNIQUE NOT NULL,
			internal_order_number TEXT NOT NULL,
			baselinker_order_id INTEGER NOT NULL,
			order_product_id TEXT,
			sequence_number INTEGER NOT NULL,
			product_name TEXT NOT NULL,
			species TEXT,
			technology TEXT,
			wood_class TEXT,
			finish_state TEXT,
			length_cm REAL DEFAULT 0,
			width_cm REAL DEFAULT 0,
			thickness_cm REAL DEFAULT 0,
			volume_m3 REAL DEFAULT 0,
			weight_kg REAL DEFAULT 0,
			price_net REAL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'czeka_na_wyciecie',
			priority INTEGER DEFAULT 0,
			priority_locked BOOLEAN DEFAULT 0,
			deadline TIMESTAMP,
			payment_date TIMESTAMP,
			client_name TEXT,
			client_email TEXT,
			client_phone TEXT,
			client_address TEXT,
			sync_source TEXT DEFAULT 'baselinker_auto',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_production_pieces_order_id
		 ON production_pieces(baselinker_order_id)`,

		`CREATE INDEX IF NOT EXISTS idx_production_pieces_status
		 ON production_pieces(status)`,

		`CREATE INDEX IF NOT EXISTS idx_production_pieces_deadline
		 ON production_pieces(deadline)`,

		`CREATE INDEX IF NOT EXISTS idx_production_pieces_internal_order
		 ON production_pieces(internal_order_number)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// migration002SyncRuns creates the sync_runs table
func migration002SyncRuns(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE sync_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trigger_source TEXT NOT NULL DEFAULT 'manual',
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'in_progress',
			dry_run BOOLEAN DEFAULT 0,
			force_update BOOLEAN DEFAULT 0,
			pages_processed INTEGER DEFAULT 0,
			orders_found INTEGER DEFAULT 0,
			orders_matched_status INTEGER DEFAULT 0,
			orders_processed INTEGER DEFAULT 0,
			orders_skipped INTEGER DEFAULT 0,
			products_created INTEGER DEFAULT 0,
			products_updated INTEGER DEFAULT 0,
			products_skipped INTEGER DEFAULT 0,
			errors_count INTEGER DEFAULT 0,
			status_changes INTEGER DEFAULT 0,
			error_details TEXT,
			duration_seconds REAL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started
		 ON sync_runs(started_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_sync_runs_status
		 ON sync_runs(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// migration003StatusConfigs creates the status_configs table holding the
// locally cached order-status definitions.
func migration003StatusConfigs(db *sql.Tx) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS status_configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			config_type TEXT NOT NULL DEFAULT 'order_status',
			baselinker_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			is_default BOOLEAN DEFAULT 0,
			is_active BOOLEAN DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(config_type, baselinker_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_status_configs_type
		 ON status_configs(config_type)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
