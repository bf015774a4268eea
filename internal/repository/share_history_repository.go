package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/snapselect/snapselect/internal/models"
)

type ShareHistoryRepository struct {
	db *sql.DB
}

func NewShareHistoryRepository(db *sql.DB) *ShareHistoryRepository {
	return &ShareHistoryRepository{db: db}
}

// Get returns (nil, nil) when no history exists yet; the absence of a row
// is meaningful (never shared) rather than an error.
func (r *ShareHistoryRepository) Get(galleryID, photographerID string) (*models.ShareHistory, error) {
	h := &models.ShareHistory{}
	err := r.db.QueryRow(`
		SELECT gallery_id, photographer_id, first_shared_at, last_shared_at, last_revoked_at,
			sharing_count, revocation_count
		FROM share_history WHERE gallery_id = ? AND photographer_id = ?
	`, galleryID, photographerID).Scan(
		&h.GalleryID, &h.PhotographerID, &h.FirstSharedAt, &h.LastSharedAt, &h.LastRevokedAt,
		&h.SharingCount, &h.RevocationCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// RecordShare upserts the share side of the lifecycle: FirstSharedAt is set
// exactly once, LastSharedAt refreshed, SharingCount incremented.
func (r *ShareHistoryRepository) RecordShare(galleryID, photographerID string, sharedAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO share_history (gallery_id, photographer_id, first_shared_at, last_shared_at,
			sharing_count, revocation_count)
		VALUES (?, ?, ?, ?, 1, 0)
		ON CONFLICT(gallery_id, photographer_id) DO UPDATE SET
			last_shared_at = excluded.last_shared_at,
			sharing_count = share_history.sharing_count + 1
	`, galleryID, photographerID, sharedAt, sharedAt)
	return err
}
