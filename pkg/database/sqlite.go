package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func Initialize(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway, but keep the pool bounded so a
	// burst of gallery-page loads cannot exhaust file handles.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	const maxPingAttempts = 5
	pingDelay := 200 * time.Millisecond
	var pingErr error
	for attempt := 1; attempt <= maxPingAttempts; attempt++ {
		pingErr = db.Ping()
		if pingErr == nil {
			break
		}
		if attempt < maxPingAttempts {
			time.Sleep(pingDelay)
			if pingDelay < 2*time.Second {
				pingDelay *= 2
			}
		}
	}
	if pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxPingAttempts, pingErr)
	}

	// SQLite ships with foreign keys off.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL keeps gallery reads from blocking behind revocation writes.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Wait up to 5 seconds when the database is locked by another writer
	// instead of failing immediately with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	return db, nil
}

// InitSchema creates all tables and indexes. Safe to call on every startup
// because every statement uses IF NOT EXISTS.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			photo_limit INTEGER NOT NULL,
			storage_quota_bytes INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS photographers (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			plan_id TEXT NOT NULL DEFAULT 'free',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (plan_id) REFERENCES plans(id)
		);

		CREATE TABLE IF NOT EXISTS galleries (
			id TEXT PRIMARY KEY,
			photographer_id TEXT NOT NULL,
			plan_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			client_password_hash TEXT,
			share_token TEXT,
			is_shared INTEGER DEFAULT 0,
			photos_count INTEGER DEFAULT 0,
			upload_restricted INTEGER DEFAULT 0,
			upload_restricted_until DATETIME,
			additional_photos_allowed INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (photographer_id) REFERENCES photographers(id) ON DELETE CASCADE,
			FOREIGN KEY (plan_id) REFERENCES plans(id)
		);

		CREATE TABLE IF NOT EXISTS share_history (
			gallery_id TEXT NOT NULL,
			photographer_id TEXT NOT NULL,
			first_shared_at DATETIME NOT NULL,
			last_shared_at DATETIME NOT NULL,
			last_revoked_at DATETIME,
			sharing_count INTEGER NOT NULL DEFAULT 0,
			revocation_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (gallery_id, photographer_id),
			FOREIGN KEY (gallery_id) REFERENCES galleries(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS photos (
			id TEXT PRIMARY KEY,
			gallery_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (gallery_id) REFERENCES galleries(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS selections (
			id TEXT PRIMARY KEY,
			gallery_id TEXT NOT NULL,
			photo_id TEXT NOT NULL,
			client_name TEXT NOT NULL,
			rating INTEGER NOT NULL DEFAULT 0,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			comment TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (photo_id, client_name),
			FOREIGN KEY (gallery_id) REFERENCES galleries(id) ON DELETE CASCADE,
			FOREIGN KEY (photo_id) REFERENCES photos(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			event_name TEXT NOT NULL,
			gallery_id TEXT NOT NULL,
			photographer_id TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS rate_limit_counters (
			scope_key TEXT PRIMARY KEY,
			count INTEGER NOT NULL,
			window_end DATETIME NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_galleries_photographer_id ON galleries(photographer_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_galleries_share_token ON galleries(share_token) WHERE share_token IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_galleries_upload_restricted_until ON galleries(upload_restricted_until);
		CREATE INDEX IF NOT EXISTS idx_photos_gallery_id ON photos(gallery_id);
		CREATE INDEX IF NOT EXISTS idx_selections_gallery_id ON selections(gallery_id);
		CREATE INDEX IF NOT EXISTS idx_audit_events_gallery_id ON audit_events(gallery_id);
		CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);
		CREATE INDEX IF NOT EXISTS idx_rate_limit_counters_window_end ON rate_limit_counters(window_end);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Columns added after the initial schema shipped.
	if err := addColumnIfNotExists(db, "galleries", "client_password_hash", "TEXT"); err != nil {
		return fmt.Errorf("failed to add client_password_hash column: %w", err)
	}
	if err := addColumnIfNotExists(db, "selections", "comment", "TEXT"); err != nil {
		return fmt.Errorf("failed to add comment column: %w", err)
	}

	// Seed plans.
	plans := []struct {
		id           string
		name         string
		photoLimit   int
		storageQuota int64
	}{
		{"free", "Free", 100, 2 << 30},
		{"pro", "Pro", 1000, 50 << 30},
		{"studio", "Studio", 5000, 500 << 30},
	}
	for _, p := range plans {
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO plans (id, name, photo_limit, storage_quota_bytes) VALUES (?, ?, ?, ?)`,
			p.id, p.name, p.photoLimit, p.storageQuota,
		); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", p.id, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, colDef string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dfltValue *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil // column already exists
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, colDef))
	return err
}
