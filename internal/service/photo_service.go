package service

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/policy"
	"github.com/snapselect/snapselect/internal/repository"
	"github.com/snapselect/snapselect/pkg/logger"
	"github.com/snapselect/snapselect/pkg/sanitize"
)

// AllowedPhotoMIMETypes defines the image formats accepted for upload.
var AllowedPhotoMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/heic": true,
}

var (
	ErrPhotoNotFound        = errors.New("photo not found")
	ErrUploadsRestricted    = errors.New("uploads are currently restricted for this gallery")
	ErrPhotoLimitReached    = errors.New("plan photo limit reached for this gallery")
	ErrUnsupportedMediaType = errors.New("unsupported media type, images only")
)

type PhotoService struct {
	photoRepo   *repository.PhotoRepository
	galleryRepo *repository.GalleryRepository
	planRepo    *repository.PlanRepository
	engine      *policy.Engine
	storagePath string
}

func NewPhotoService(
	photoRepo *repository.PhotoRepository,
	galleryRepo *repository.GalleryRepository,
	planRepo *repository.PlanRepository,
	engine *policy.Engine,
	storagePath string,
) *PhotoService {
	return &PhotoService{
		photoRepo:   photoRepo,
		galleryRepo: galleryRepo,
		planRepo:    planRepo,
		engine:      engine,
		storagePath: storagePath,
	}
}

type UploadPhotoRequest struct {
	GalleryID      string
	PhotographerID string
	Filename       string
	Data           io.Reader
	Size           int64
}

const sniffSize = 3072

// Upload stores a photo after checking, in order: ownership, the policy
// engine's current upload restriction, the plan photo limit, and the
// content type sniffed from the first bytes. During a partial restriction
// each upload consumes one unit of the additional-photos quota; the
// decrement is guarded in the same transaction as the insert so two tabs
// cannot overspend it.
func (s *PhotoService) Upload(req *UploadPhotoRequest) (*models.Photo, error) {
	gallery, err := s.galleryRepo.GetByID(req.GalleryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGalleryNotFound
		}
		return nil, err
	}
	if gallery.PhotographerID != req.PhotographerID {
		return nil, ErrNotGalleryOwner
	}

	access := s.engine.EvaluateCurrentRestriction(gallery)
	if access.Lapsed {
		s.engine.ClearLapsedRestriction(gallery.ID)
	}
	if !access.Allowed {
		return nil, ErrUploadsRestricted
	}

	underQuota := access.AdditionalPhotosAllowed != nil
	if !underQuota {
		planLimit, err := s.planRepo.GetPhotoLimit(gallery.PlanID)
		if err != nil || planLimit <= 0 {
			planLimit = policy.DefaultPlanPhotoLimit
		}
		if gallery.PhotosCount >= planLimit {
			return nil, ErrPhotoLimitReached
		}
	}

	// Sniff the real content type; the client-supplied filename decides
	// nothing.
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(req.Data, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	mtype := mimetype.Detect(head)
	if !AllowedPhotoMIMETypes[mtype.String()] {
		return nil, ErrUnsupportedMediaType
	}

	photo := &models.Photo{
		ID:         uuid.New().String(),
		GalleryID:  gallery.ID,
		Filename:   sanitize.Filename(req.Filename),
		MimeType:   mtype.String(),
		SizeBytes:  req.Size,
		UploadedAt: time.Now(),
	}

	path := s.photoPath(photo)
	if err := s.writePhotoFile(path, io.MultiReader(bytes.NewReader(head), req.Data)); err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	if underQuota {
		err = s.photoRepo.CreateConsumingQuota(photo)
		if errors.Is(err, repository.ErrUploadQuotaExhausted) {
			_ = os.Remove(path)
			return nil, ErrUploadsRestricted
		}
	} else {
		err = s.photoRepo.Create(photo)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("record photo: %w", err)
	}

	return photo, nil
}

func (s *PhotoService) writePhotoFile(path string, data io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func (s *PhotoService) photoPath(photo *models.Photo) string {
	return filepath.Join(s.storagePath, photo.GalleryID, photo.ID)
}

// FilePath returns the on-disk location of a stored photo.
func (s *PhotoService) FilePath(photo *models.Photo) string {
	return s.photoPath(photo)
}

func (s *PhotoService) GetByID(id string) (*models.Photo, error) {
	photo, err := s.photoRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return photo, nil
}

// GetOwned returns a photo only when the caller owns its gallery.
func (s *PhotoService) GetOwned(photoID, photographerID string) (*models.Photo, error) {
	photo, err := s.GetByID(photoID)
	if err != nil {
		return nil, err
	}
	gallery, err := s.galleryRepo.GetByID(photo.GalleryID)
	if err != nil {
		return nil, err
	}
	if gallery.PhotographerID != photographerID {
		return nil, ErrNotGalleryOwner
	}
	return photo, nil
}

func (s *PhotoService) ListByGallery(galleryID, photographerID string) ([]*models.Photo, error) {
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
	return s.photoRepo.GetByGallery(galleryID)
}

func (s *PhotoService) Delete(photoID, photographerID string) error {
	photo, err := s.GetByID(photoID)
	if err != nil {
		return err
	}
	gallery, err := s.galleryRepo.GetByID(photo.GalleryID)
	if err != nil {
		return err
	}
	if gallery.PhotographerID != photographerID {
		return ErrNotGalleryOwner
	}

	if err := s.photoRepo.Delete(photoID, photo.GalleryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPhotoNotFound
		}
		return err
	}

	if err := os.Remove(s.photoPath(photo)); err != nil && !os.IsNotExist(err) {
		logger.Warn().
			Err(err).
			Str("photo_id", photoID).
			Msg("Failed to remove photo file after delete")
	}

	logger.Audit("photo_deleted", photographerID, map[string]string{
		"photo_id":   photoID,
		"gallery_id": photo.GalleryID,
	})
	return nil
}
