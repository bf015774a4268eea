package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/pkg/testutil"
)

func insertTestPhoto(t *testing.T, repo *PhotoRepository, galleryID string) *models.Photo {
	t.Helper()
	photo := newTestPhoto(galleryID)
	if err := repo.Create(photo); err != nil {
		t.Fatalf("insert photo: %v", err)
	}
	return photo
}

func TestSelectionUpsertReplacesVerdict(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	photographerID := testutil.CreatePhotographer(t, db, "free")
	galleryID := testutil.CreateGallery(t, db, photographerID)
	photo := insertTestPhoto(t, NewPhotoRepository(db), galleryID)
	repo := NewSelectionRepository(db)

	now := time.Now()
	first := &models.Selection{
		ID:         uuid.New().String(),
		GalleryID:  galleryID,
		PhotoID:    photo.ID,
		ClientName: "Alex",
		Rating:     3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Upsert(first); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	comment := "love this one"
	second := &models.Selection{
		ID:         uuid.New().String(),
		GalleryID:  galleryID,
		PhotoID:    photo.ID,
		ClientName: "Alex",
		Rating:     5,
		IsFavorite: true,
		Comment:    &comment,
		CreatedAt:  now.Add(time.Minute),
		UpdatedAt:  now.Add(time.Minute),
	}
	if err := repo.Upsert(second); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	stored, err := repo.GetByPhotoAndClient(photo.ID, "Alex")
	if err != nil {
		t.Fatalf("GetByPhotoAndClient: %v", err)
	}
	if stored.ID != first.ID {
		t.Errorf("stored ID = %q, want the original %q", stored.ID, first.ID)
	}
	if stored.Rating != 5 || !stored.IsFavorite {
		t.Errorf("stored verdict = rating %d favorite %v, want 5/true", stored.Rating, stored.IsFavorite)
	}
	if stored.Comment == nil || *stored.Comment != comment {
		t.Errorf("stored comment = %v, want %q", stored.Comment, comment)
	}

	all, err := repo.GetByGallery(galleryID)
	if err != nil {
		t.Fatalf("GetByGallery: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 selection row, got %d", len(all))
	}
}

func TestSelectionDistinctClientsKeepSeparateRows(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	photographerID := testutil.CreatePhotographer(t, db, "free")
	galleryID := testutil.CreateGallery(t, db, photographerID)
	photo := insertTestPhoto(t, NewPhotoRepository(db), galleryID)
	repo := NewSelectionRepository(db)

	now := time.Now()
	for _, client := range []string{"Alex", "Sam"} {
		sel := &models.Selection{
			ID:         uuid.New().String(),
			GalleryID:  galleryID,
			PhotoID:    photo.ID,
			ClientName: client,
			Rating:     4,
			IsFavorite: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.Upsert(sel); err != nil {
			t.Fatalf("Upsert %s: %v", client, err)
		}
	}

	all, err := repo.GetByGallery(galleryID)
	if err != nil {
		t.Fatalf("GetByGallery: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 selection rows, got %d", len(all))
	}

	if n, err := repo.CountByPhotographer(photographerID); err != nil || n != 2 {
		t.Fatalf("CountByPhotographer = %d, %v; want 2", n, err)
	}
	if n, err := repo.CountFavoritesByPhotographer(photographerID); err != nil || n != 2 {
		t.Fatalf("CountFavoritesByPhotographer = %d, %v; want 2", n, err)
	}
}
