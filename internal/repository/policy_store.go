package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/snapselect/snapselect/internal/models"
	"github.com/snapselect/snapselect/internal/policy"
)

// PolicyStore backs the access-policy engine with SQLite. It composes the
// plain repositories for reads and owns the multi-table transactional
// writes the engine demands.
type PolicyStore struct {
	db          *sql.DB
	galleryRepo *GalleryRepository
	historyRepo *ShareHistoryRepository
	planRepo    *PlanRepository
	auditRepo   *AuditRepository
}

func NewPolicyStore(db *sql.DB) *PolicyStore {
	return &PolicyStore{
		db:          db,
		galleryRepo: NewGalleryRepository(db),
		historyRepo: NewShareHistoryRepository(db),
		planRepo:    NewPlanRepository(db),
		auditRepo:   NewAuditRepository(db),
	}
}

func (s *PolicyStore) GetShareHistory(galleryID, photographerID string) (*models.ShareHistory, error) {
	return s.historyRepo.Get(galleryID, photographerID)
}

func (s *PolicyStore) GetGallery(galleryID string) (*models.Gallery, error) {
	return s.galleryRepo.GetByID(galleryID)
}

func (s *PolicyStore) GetPlanPhotoLimit(planID string) (int, error) {
	return s.planRepo.GetPhotoLimit(planID)
}

func (s *PolicyStore) RecordShare(galleryID, photographerID string, sharedAt time.Time) error {
	return s.historyRepo.RecordShare(galleryID, photographerID, sharedAt)
}

// ApplyRevocation writes the history update, the gallery restriction state
// and the share-link withdrawal in one transaction. A failure anywhere
// rolls back everything: history and gallery state never diverge from
// each other.
func (s *PolicyStore) ApplyRevocation(rev policy.Revocation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin revocation transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if rev.HistoryExists {
		res, err := tx.Exec(`
			UPDATE share_history
			SET last_revoked_at = ?, revocation_count = ?
			WHERE gallery_id = ? AND photographer_id = ?
		`, rev.RevokedAt, rev.NewRevocationCount, rev.GalleryID, rev.PhotographerID)
		if err != nil {
			return fmt.Errorf("update share history: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("share history row missing for gallery %s", rev.GalleryID)
		}
	} else {
		// Revoke with no prior history: create the record as if a single
		// share had just happened.
		if _, err := tx.Exec(`
			INSERT INTO share_history (gallery_id, photographer_id, first_shared_at, last_shared_at,
				last_revoked_at, sharing_count, revocation_count)
			VALUES (?, ?, ?, ?, ?, 1, ?)
		`, rev.GalleryID, rev.PhotographerID, rev.RevokedAt, rev.RevokedAt, rev.RevokedAt,
			rev.NewRevocationCount); err != nil {
			return fmt.Errorf("insert share history: %w", err)
		}
	}

	restricted := 0
	if rev.Restriction.Restricted {
		restricted = 1
	}
	res, err := tx.Exec(`
		UPDATE galleries
		SET upload_restricted = ?, upload_restricted_until = ?, additional_photos_allowed = ?,
			is_shared = 0, share_token = NULL, updated_at = ?
		WHERE id = ?
	`, restricted, rev.Restriction.Until, rev.Restriction.AdditionalPhotosAllowed,
		rev.RevokedAt, rev.GalleryID)
	if err != nil {
		return fmt.Errorf("update gallery restriction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("gallery %s not found", rev.GalleryID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revocation: %w", err)
	}
	return nil
}

func (s *PolicyStore) ClearRestriction(galleryID string) error {
	return s.galleryRepo.ClearRestriction(galleryID)
}

func (s *PolicyStore) RecordAuditEvent(eventName, galleryID, photographerID string, details map[string]string) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	return s.auditRepo.Create(&models.AuditEvent{
		ID:             uuid.New().String(),
		EventName:      eventName,
		GalleryID:      galleryID,
		PhotographerID: photographerID,
		Details:        string(payload),
		CreatedAt:      time.Now(),
	})
}
