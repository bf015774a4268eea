package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeCreatesDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "snapselect.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Fatalf("expected database directory to exist: %v", err)
	}
}

func TestInitSchemaCreatesAndSeedsTables(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "schema.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema first run failed: %v", err)
	}
	// Ensure idempotency and exercise the "column already exists" branch.
	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema second run failed: %v", err)
	}

	for _, table := range []string{"plans", "photographers", "galleries", "share_history", "photos", "selections", "audit_events", "rate_limit_counters"} {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("expected %s table to exist: %v", table, err)
		}
	}

	var freeLimit int
	if err := db.QueryRow(`SELECT photo_limit FROM plans WHERE id = 'free'`).Scan(&freeLimit); err != nil {
		t.Fatalf("expected seeded free plan: %v", err)
	}
	if freeLimit != 100 {
		t.Fatalf("unexpected free plan photo limit: %d", freeLimit)
	}
}

func TestInitSchemaShareTokenUniqueness(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "tokens.db")

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer db.Close()

	if err := InitSchema(db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO photographers (id, email, password_hash) VALUES ('p1', 'p1@example.com', 'x')`); err != nil {
		t.Fatalf("insert photographer: %v", err)
	}
	insertGallery := `INSERT INTO galleries (id, photographer_id, plan_id, name, share_token) VALUES (?, 'p1', 'free', 'g', ?)`
	if _, err := db.Exec(insertGallery, "g1", "tok-1"); err != nil {
		t.Fatalf("insert first gallery: %v", err)
	}
	if _, err := db.Exec(insertGallery, "g2", "tok-1"); err == nil {
		t.Fatal("expected duplicate share token to be rejected")
	}

	// NULL tokens are exempt from the unique index.
	if _, err := db.Exec(insertGallery, "g3", nil); err != nil {
		t.Fatalf("insert gallery with nil token: %v", err)
	}
	if _, err := db.Exec(insertGallery, "g4", nil); err != nil {
		t.Fatalf("insert second gallery with nil token: %v", err)
	}
}
