package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/policy"
	"github.com/snapselect/snapselect/internal/repository"
	"github.com/snapselect/snapselect/pkg/logger"
)

var (
	ErrGalleryNotFound      = errors.New("gallery not found")
	ErrNotGalleryOwner      = errors.New("not the gallery owner")
	ErrGalleryNotShared     = errors.New("gallery is not shared")
	ErrGalleryAlreadyShared = errors.New("gallery is already shared")
)

type GalleryService struct {
	galleryRepo      *repository.GalleryRepository
	photographerRepo *repository.PhotographerRepository
	engine           *policy.Engine
}

func NewGalleryService(
	galleryRepo *repository.GalleryRepository,
	photographerRepo *repository.PhotographerRepository,
	engine *policy.Engine,
) *GalleryService {
	return &GalleryService{
		galleryRepo:      galleryRepo,
		photographerRepo: photographerRepo,
		engine:           engine,
	}
}

type CreateGalleryRequest struct {
	PhotographerID string
	Name           string
	Description    string
}

func (s *GalleryService) Create(req *CreateGalleryRequest) (*models.Gallery, error) {
	photographer, err := s.photographerRepo.GetByID(req.PhotographerID)
	if err != nil {
		return nil, fmt.Errorf("load photographer: %w", err)
	}

	now := time.Now()
	gallery := &models.Gallery{
		ID:             uuid.New().String(),
		PhotographerID: photographer.ID,
		PlanID:         photographer.PlanID,
		Name:           req.Name,
		Description:    req.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.galleryRepo.Create(gallery); err != nil {
		return nil, fmt.Errorf("create gallery: %w", err)
	}
	return gallery, nil
}

// getOwned loads a gallery and verifies ownership.
func (s *GalleryService) getOwned(galleryID, photographerID string) (*models.Gallery, error) {
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
	return gallery, nil
}

// Get returns the gallery together with its current upload access,
// recomputed from the persisted restriction timestamp. Lapsed restriction
// state is cleared best-effort on the way out.
func (s *GalleryService) Get(galleryID, photographerID string) (*models.Gallery, policy.UploadAccess, error) {
	gallery, err := s.getOwned(galleryID, photographerID)
	if err != nil {
		return nil, policy.UploadAccess{}, err
	}

	access := s.engine.EvaluateCurrentRestriction(gallery)
	if access.Lapsed {
		s.engine.ClearLapsedRestriction(gallery.ID)
		gallery.UploadRestricted = false
		gallery.UploadRestrictedUntil = nil
		gallery.AdditionalPhotosAllowed = nil
	}
	return gallery, access, nil
}

func (s *GalleryService) List(photographerID string) ([]*models.Gallery, error) {
	return s.galleryRepo.GetByPhotographer(photographerID)
}

func (s *GalleryService) Delete(galleryID, photographerID string) error {
	if _, err := s.getOwned(galleryID, photographerID); err != nil {
		return err
	}
	if err := s.galleryRepo.Delete(galleryID); err != nil {
		return err
	}
	logger.Audit("gallery_deleted", photographerID, map[string]string{
		"gallery_id": galleryID,
	})
	return nil
}

// Share publishes a gallery under a fresh share token, with an optional
// client password, and records the share in the history the policy engine
// escalates from.
func (s *GalleryService) Share(galleryID, photographerID string, clientPassword *string) (*models.Gallery, error) {
	gallery, err := s.getOwned(galleryID, photographerID)
	if err != nil {
		return nil, err
	}
	if gallery.IsShared {
		return nil, ErrGalleryAlreadyShared
	}

	var passwordHash *string
	if clientPassword != nil && *clientPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*clientPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash client password: %w", err)
		}
		hashed := string(hash)
		passwordHash = &hashed
	}

	token := uuid.New().String()
	if err := s.galleryRepo.MarkShared(galleryID, token, passwordHash, time.Now()); err != nil {
		return nil, fmt.Errorf("publish share link: %w", err)
	}
	if err := s.engine.RecordShare(galleryID, photographerID); err != nil {
		// The link is live but the history write failed. Count updates are
		// last-write-wins tolerant, so surface the error and let the
		// photographer retry rather than withdrawing the link.
		return nil, err
	}

	gallery.ShareToken = &token
	gallery.ClientPasswordHash = passwordHash
	gallery.IsShared = true
	return gallery, nil
}

// RevokeWarning selects the confirmation warning shown before a revoke.
// Read-only; safe to call any number of times.
func (s *GalleryService) RevokeWarning(galleryID, photographerID string) (policy.WarningKind, string, error) {
	if _, err := s.getOwned(galleryID, photographerID); err != nil {
		return "", "", err
	}
	kind, err := s.engine.WarningFor(galleryID, photographerID)
	if err != nil {
		return "", "", err
	}
	return kind, policy.WarningMessage(kind), nil
}

// Revoke withdraws the share link and applies the escalating upload
// restriction. The history update, restriction state and link withdrawal
// land in one transaction inside the engine's store; on error nothing
// changed and the caller may retry.
func (s *GalleryService) Revoke(galleryID, photographerID string) (*policy.RestrictionDecision, error) {
	gallery, err := s.getOwned(galleryID, photographerID)
	if err != nil {
		return nil, err
	}
	if !gallery.IsShared {
		return nil, ErrGalleryNotShared
	}
	return s.engine.ProcessRevocation(galleryID, photographerID)
}
