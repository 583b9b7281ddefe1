package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	// busy_timeout keeps concurrent writers queued instead of failing fast.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS loads (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            source_city TEXT NOT NULL,
            destination_city TEXT NOT NULL,
            material TEXT NOT NULL,
            weight_mt REAL NOT NULL,
            truck_type TEXT NOT NULL,
            load_type TEXT NOT NULL DEFAULT 'full',
            scheduled_date DATETIME NOT NULL,
            trucks_required INTEGER NOT NULL DEFAULT 1,
            contact_name TEXT,
            contact_phone TEXT,
            status TEXT NOT NULL DEFAULT 'open',
            posted_by INTEGER NOT NULL,
            assigned_to INTEGER,
            booking_fee INTEGER NOT NULL,
            payment_id TEXT,
            accepted_quote_amount INTEGER NOT NULL DEFAULT 0,
            final_payment_id TEXT,
            cancellation_reason TEXT,
            cancelled_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS quotes (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            load_id INTEGER NOT NULL,
            transporter_id INTEGER NOT NULL,
            amount INTEGER NOT NULL,
            message TEXT,
            estimated_days INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (load_id) REFERENCES loads(id)
        )`,
		`CREATE TABLE IF NOT EXISTS load_status_events (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            load_id INTEGER NOT NULL,
            status TEXT NOT NULL,
            note TEXT,
            changed_by INTEGER NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY (load_id) REFERENCES loads(id)
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            load_id INTEGER NOT NULL,
            phase TEXT NOT NULL,
            gateway_order_id TEXT NOT NULL UNIQUE,
            gateway_payment_id TEXT NOT NULL,
            gateway_signature TEXT NOT NULL,
            amount INTEGER NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (load_id, phase)
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            load_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_loads_status ON loads(status)`,
		`CREATE INDEX IF NOT EXISTS idx_loads_posted_by ON loads(posted_by)`,
		`CREATE INDEX IF NOT EXISTS idx_loads_assigned_to ON loads(assigned_to)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_load_id ON quotes(load_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_transporter_id ON quotes(transporter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_status ON quotes(status)`,
		`CREATE INDEX IF NOT EXISTS idx_status_events_load_id ON load_status_events(load_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_load_id ON payments(load_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	return nil
}
