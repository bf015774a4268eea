package service

import (
	"testing"
	"time"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/repository"
	"github.com/snapselect/snapselect/pkg/testutil"
)

func TestDashboardStats(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	galleryRepo := repository.NewGalleryRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	svc := NewStatsService(galleryRepo, photoRepo, selectionRepo)
	now := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	photographerID := testutil.CreatePhotographer(t, db, "free")
	g1 := testutil.CreateGallery(t, db, photographerID)
	g2 := testutil.CreateGallery(t, db, photographerID)
	testutil.CreateGallery(t, db, photographerID)

	// g1 is shared, g2 sits inside an active cooling window.
	if err := galleryRepo.MarkShared(g1, "stats-token", nil, now); err != nil {
		t.Fatalf("MarkShared: %v", err)
	}
	until := now.Add(72 * time.Hour)
	if _, err := db.Exec(
		`UPDATE galleries SET upload_restricted = 1, upload_restricted_until = ? WHERE id = ?`,
		until, g2,
	); err != nil {
		t.Fatalf("restrict g2: %v", err)
	}

	for i, id := range []string{"stats-photo-1", "stats-photo-2"} {
		if err := photoRepo.Create(&models.Photo{
			ID: id, GalleryID: g1, Filename: "wedding.jpg",
			MimeType: "image/jpeg", SizeBytes: int64(i + 1), UploadedAt: now,
		}); err != nil {
			t.Fatalf("create photo: %v", err)
		}
	}

	if err := selectionRepo.Upsert(&models.Selection{
		ID: "stats-sel-1", GalleryID: g1, PhotoID: "stats-photo-1",
		ClientName: "Ana", Rating: 5, IsFavorite: true,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("upsert selection: %v", err)
	}
	if err := selectionRepo.Upsert(&models.Selection{
		ID: "stats-sel-2", GalleryID: g1, PhotoID: "stats-photo-2",
		ClientName: "Ana", Rating: 3,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("upsert selection: %v", err)
	}

	// Another photographer's data must not leak into the counts.
	otherID := testutil.CreatePhotographer(t, db, "free")
	otherGallery := testutil.CreateGallery(t, db, otherID)
	if err := photoRepo.Create(&models.Photo{
		ID: "stats-other-photo", GalleryID: otherGallery, Filename: "x.jpg",
		MimeType: "image/jpeg", UploadedAt: now,
	}); err != nil {
		t.Fatalf("create other photo: %v", err)
	}

	stats, err := svc.Dashboard(photographerID)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	want := models.DashboardStats{
		TotalGalleries:      3,
		SharedGalleries:     1,
		RestrictedGalleries: 1,
		TotalPhotos:         2,
		TotalSelections:     2,
		TotalFavorites:      1,
	}
	if *stats != want {
		t.Fatalf("stats = %+v, want %+v", *stats, want)
	}
}

func TestDashboardStatsEmptyAccount(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	svc := NewStatsService(
		repository.NewGalleryRepository(db),
		repository.NewPhotoRepository(db),
		repository.NewSelectionRepository(db),
	)

	stats, err := svc.Dashboard(testutil.CreatePhotographer(t, db, "free"))
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if *stats != (models.DashboardStats{}) {
		t.Fatalf("stats = %+v, want all zeros", *stats)
	}
}
