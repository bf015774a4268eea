package service

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/repository"
)

const (
	maxClientNameLength = 80
	maxCommentLength    = 1000
	maxRating           = 5
)

var (
	ErrInvalidShareToken       = errors.New("invalid or revoked share link")
	ErrGalleryPasswordRequired = errors.New("gallery password required")
	ErrInvalidGalleryPassword  = errors.New("invalid gallery password")
	ErrInvalidRating           = errors.New("rating must be between 0 and 5")
	ErrClientNameRequired      = errors.New("client name required")
	ErrPhotoNotInGallery       = errors.New("photo does not belong to this gallery")
)

// SelectionService is the client-facing side of a shared gallery: token
// access, photo browsing, and selection/rating/favorite submissions.
type SelectionService struct {
	galleryRepo   *repository.GalleryRepository
	photoRepo     *repository.PhotoRepository
	selectionRepo *repository.SelectionRepository
}

func NewSelectionService(
	galleryRepo *repository.GalleryRepository,
	photoRepo *repository.PhotoRepository,
	selectionRepo *repository.SelectionRepository,
) *SelectionService {
	return &SelectionService{
		galleryRepo:   galleryRepo,
		photoRepo:     photoRepo,
		selectionRepo: selectionRepo,
	}
}

// AccessGallery resolves a share token to its gallery, enforcing the
// optional client password. Revoked or never-shared tokens are
// indistinguishable from unknown ones.
func (s *SelectionService) AccessGallery(token string, password *string) (*models.Gallery, error) {
	gallery, err := s.galleryRepo.GetByShareToken(token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidShareToken
		}
		return nil, err
	}

	if gallery.ClientPasswordHash != nil {
		if password == nil || *password == "" {
			return nil, ErrGalleryPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*gallery.ClientPasswordHash), []byte(*password)); err != nil {
			return nil, ErrInvalidGalleryPassword
		}
	}
	return gallery, nil
}

func (s *SelectionService) ListPhotos(token string, password *string) ([]*models.Photo, error) {
	gallery, err := s.AccessGallery(token, password)
	if err != nil {
		return nil, err
	}
	return s.photoRepo.GetByGallery(gallery.ID)
}

type SubmitSelectionRequest struct {
	ShareToken string
	Password   *string
	PhotoID    string
	ClientName string
	Rating     int
	IsFavorite bool
	Comment    *string
}

// SubmitSelection records a client's verdict on a photo. Re-submitting for
// the same photo and client name updates the earlier verdict in place.
func (s *SelectionService) SubmitSelection(req *SubmitSelectionRequest) (*models.Selection, error) {
	clientName := strings.TrimSpace(req.ClientName)
	if clientName == "" {
		return nil, ErrClientNameRequired
	}
	if len(clientName) > maxClientNameLength {
		clientName = clientName[:maxClientNameLength]
	}
	if req.Rating < 0 || req.Rating > maxRating {
		return nil, ErrInvalidRating
	}

	gallery, err := s.AccessGallery(req.ShareToken, req.Password)
	if err != nil {
		return nil, err
	}

	photo, err := s.photoRepo.GetByID(req.PhotoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	if photo.GalleryID != gallery.ID {
		return nil, ErrPhotoNotInGallery
	}

	comment := req.Comment
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			if len(trimmed) > maxCommentLength {
				trimmed = trimmed[:maxCommentLength]
			}
			comment = &trimmed
		}
	}

	now := time.Now()
	selection := &models.Selection{
		ID:         uuid.New().String(),
		GalleryID:  gallery.ID,
		PhotoID:    photo.ID,
		ClientName: clientName,
		Rating:     req.Rating,
		IsFavorite: req.IsFavorite,
		Comment:    comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.selectionRepo.Upsert(selection); err != nil {
		return nil, err
	}

	// Return the stored row so repeated submissions expose the original
	// created_at and the server-assigned ID.
	return s.selectionRepo.GetByPhotoAndClient(photo.ID, clientName)
}

// ListForGallery is the photographer's view of the verdicts on a gallery.
func (s *SelectionService) ListForGallery(galleryID, photographerID string) ([]*models.Selection, error) {
	gallery, err := s.galleryRepo.GetByID(galleryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGalleryNotFound
		}
		return nil, err
	}
	if gallery.PhotographerID != photographerID {
		return nil, ErrNotGalleryOwner
	}
	return s.selectionRepo.GetByGallery(galleryID)
}
