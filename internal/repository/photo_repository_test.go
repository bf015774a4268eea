package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/pkg/testutil"
)

func newTestPhoto(galleryID string) *models.Photo {
	return &models.Photo{
		ID:         uuid.New().String(),
		GalleryID:  galleryID,
		Filename:   "shot.jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  2048,
		UploadedAt: time.Now(),
	}
}

func galleryPhotoCount(t *testing.T, db *sql.DB, galleryID string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT photos_count FROM galleries WHERE id = ?`, galleryID).Scan(&n); err != nil {
		t.Fatalf("read photos_count: %v", err)
	}
	return n
}

func TestPhotoCreateBumpsGalleryCounter(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	photographerID := testutil.CreatePhotographer(t, db, "free")
	galleryID := testutil.CreateGallery(t, db, photographerID)
	repo := NewPhotoRepository(db)

	if err := repo.Create(newTestPhoto(galleryID)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(newTestPhoto(galleryID)); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	if n := galleryPhotoCount(t, db, galleryID); n != 2 {
		t.Fatalf("photos_count = %d, want 2", n)
	}
}

func TestPhotoCreateConsumingQuota(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	photographerID := testutil.CreatePhotographer(t, db, "free")
	galleryID := testutil.CreateGallery(t, db, photographerID)
	repo := NewPhotoRepository(db)

	until := time.Now().Add(24 * time.Hour)
	if _, err := db.Exec(`
		UPDATE galleries SET upload_restricted = 1, upload_restricted_until = ?, additional_photos_allowed = 2
		WHERE id = ?
	`, until, galleryID); err != nil {
		t.Fatalf("set quota: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.CreateConsumingQuota(newTestPhoto(galleryID)); err != nil {
			t.Fatalf("upload %d under quota: %v", i+1, err)
		}
	}

	err := repo.CreateConsumingQuota(newTestPhoto(galleryID))
	if !errors.Is(err, ErrUploadQuotaExhausted) {
		t.Fatalf("expected ErrUploadQuotaExhausted, got %v", err)
	}

	// The failed attempt must not insert a photo or bump the counter.
	if n := galleryPhotoCount(t, db, galleryID); n != 2 {
		t.Fatalf("photos_count = %d, want 2", n)
	}
	photos, err := repo.GetByGallery(galleryID)
	if err != nil {
		t.Fatalf("GetByGallery: %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("stored photos = %d, want 2", len(photos))
	}

	var remaining int
	if err := db.QueryRow(`SELECT additional_photos_allowed FROM galleries WHERE id = ?`, galleryID).Scan(&remaining); err != nil {
		t.Fatalf("read quota: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining quota = %d, want 0", remaining)
	}
}

func TestPhotoDeleteDecrementsCounter(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	photographerID := testutil.CreatePhotographer(t, db, "free")
	galleryID := testutil.CreateGallery(t, db, photographerID)
	repo := NewPhotoRepository(db)

	photo := newTestPhoto(galleryID)
	if err := repo.Create(photo); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(photo.ID, galleryID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := galleryPhotoCount(t, db, galleryID); n != 0 {
		t.Fatalf("photos_count = %d, want 0", n)
	}

	if err := repo.Delete(photo.ID, galleryID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows on double delete, got %v", err)
	}
	// The counter never goes negative.
	if n := galleryPhotoCount(t, db, galleryID); n != 0 {
		t.Fatalf("photos_count = %d after failed delete, want 0", n)
	}
}

func TestPhotoCountByPhotographer(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	photographerID := testutil.CreatePhotographer(t, db, "free")
	otherID := testutil.CreatePhotographer(t, db, "free")
	galleryID := testutil.CreateGallery(t, db, photographerID)
	otherGalleryID := testutil.CreateGallery(t, db, otherID)
	repo := NewPhotoRepository(db)

	if err := repo.Create(newTestPhoto(galleryID)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(newTestPhoto(otherGalleryID)); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	if n, err := repo.CountByPhotographer(photographerID); err != nil || n != 1 {
		t.Fatalf("CountByPhotographer = %d, %v; want 1", n, err)
	}
}
