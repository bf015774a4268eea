package repository

import (
	"database/sql"
	"time"

	"github.com/snapselect/snapselect/internal/models"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(e *models.AuditEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO audit_events (id, event_name, gallery_id, photographer_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.EventName, e.GalleryID, e.PhotographerID, e.Details, e.CreatedAt)
	return err
}

func (r *AuditRepository) GetByGallery(galleryID string, limit int) ([]*models.AuditEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, event_name, gallery_id, photographer_id, details, created_at
		FROM audit_events WHERE gallery_id = ? ORDER BY created_at DESC LIMIT ?
	`, galleryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		e := &models.AuditEvent{}
		if err := rows.Scan(&e.ID, &e.EventName, &e.GalleryID, &e.PhotographerID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteOlderThan prunes aged audit rows. Run by the hourly cleanup job.
func (r *AuditRepository) DeleteOlderThan(cutoff time.Time) error {
	_, err := r.db.Exec(`DELETE FROM audit_events WHERE created_at < ?`, cutoff)
	return err
}
