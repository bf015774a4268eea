package service

import (
	"time"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/repository"
)

// StatsService aggregates the numbers shown on the photographer dashboard.
type StatsService struct {
	galleryRepo   *repository.GalleryRepository
	photoRepo     *repository.PhotoRepository
	selectionRepo *repository.SelectionRepository

	// now is overridable in tests.
	now func() time.Time
}

func NewStatsService(
	galleryRepo *repository.GalleryRepository,
	photoRepo *repository.PhotoRepository,
	selectionRepo *repository.SelectionRepository,
) *StatsService {
	return &StatsService{
		galleryRepo:   galleryRepo,
		photoRepo:     photoRepo,
		selectionRepo: selectionRepo,
		now:           time.Now,
	}
}

func (s *StatsService) Dashboard(photographerID string) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	var err error
	if stats.TotalGalleries, err = s.galleryRepo.CountByPhotographer(photographerID); err != nil {
		return nil, err
	}
	if stats.SharedGalleries, err = s.galleryRepo.CountSharedByPhotographer(photographerID); err != nil {
		return nil, err
	}
	if stats.RestrictedGalleries, err = s.galleryRepo.CountRestrictedByPhotographer(photographerID, s.now()); err != nil {
		return nil, err
	}
	if stats.TotalPhotos, err = s.photoRepo.CountByPhotographer(photographerID); err != nil {
		return nil, err
	}
	if stats.TotalSelections, err = s.selectionRepo.CountByPhotographer(photographerID); err != nil {
		return nil, err
	}
	if stats.TotalFavorites, err = s.selectionRepo.CountFavoritesByPhotographer(photographerID); err != nil {
		return nil, err
	}
	return stats, nil
}
