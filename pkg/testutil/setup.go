package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/snapselect/snapselect/pkg/database"
)

// TestConfig holds test configuration
type TestConfig struct {
	DBPath      string
	StoragePath string
}

// SetupTest creates a test environment with temporary database and storage
func SetupTest(t *testing.T) (*sql.DB, *TestConfig, func()) {
	t.Helper()

	// Create temporary directory for test data
	tmpDir, err := os.MkdirTemp("", "snapselect-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}

	cfg := &TestConfig{
		DBPath:      filepath.Join(tmpDir, "test.db"),
		StoragePath: filepath.Join(tmpDir, "storage"),
	}
	cleanupTmpDir := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.Logf("Failed to remove temp directory %q: %v", tmpDir, err)
		}
	}

	// Create test database
	db, err := database.Initialize(cfg.DBPath)
	if err != nil {
		cleanupTmpDir()
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Initialize schema using the same logic as runtime startup.
	if err := database.InitSchema(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			t.Logf("Failed to close test database after schema init error: %v", closeErr)
		}
		cleanupTmpDir()
		t.Fatalf("Failed to initialize test schema: %v", err)
	}

	// Create storage directory
	if err := os.MkdirAll(cfg.StoragePath, 0750); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			t.Logf("Failed to close test database after storage init error: %v", closeErr)
		}
		cleanupTmpDir()
		t.Fatalf("Failed to create storage directory: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
		cleanupTmpDir()
	}

	return db, cfg, cleanup
}

// CreatePhotographer inserts a photographer row on the given plan and
// returns its ID.
func CreatePhotographer(t *testing.T, db *sql.DB, planID string) string {
	t.Helper()

	id := uuid.New().String()
	_, err := db.Exec(
		`INSERT INTO photographers (id, email, password_hash, plan_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, id+"@example.com", "x", planID, time.Now(),
	)
	if err != nil {
		t.Fatalf("Failed to insert photographer: %v", err)
	}
	return id
}

// CreateGallery inserts an unshared gallery owned by the photographer and
// returns its ID.
func CreateGallery(t *testing.T, db *sql.DB, photographerID string) string {
	t.Helper()

	id := uuid.New().String()
	_, err := db.Exec(
		`INSERT INTO galleries (id, photographer_id, plan_id, name, is_shared, photos_count, upload_restricted, created_at, updated_at)
		 VALUES (?, ?, 'free', ?, 0, 0, 0, ?, ?)`,
		id, photographerID, "Test Gallery", time.Now(), time.Now(),
	)
	if err != nil {
		t.Fatalf("Failed to insert gallery: %v", err)
	}
	return id
}
