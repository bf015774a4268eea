package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/snapselect/snapselect/internal/models"
)

// ErrUploadQuotaExhausted is returned by CreateConsumingQuota when the
// gallery's additional-photos quota has already been spent.
var ErrUploadQuotaExhausted = errors.New("upload quota exhausted")

type PhotoRepository struct {
	db *sql.DB
}

func NewPhotoRepository(db *sql.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts the photo and bumps the gallery's photo counter in one
// transaction.
func (r *PhotoRepository) Create(photo *models.Photo) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertPhoto(tx, photo); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`UPDATE galleries SET photos_count = photos_count + 1, updated_at = ? WHERE id = ?`,
		photo.UploadedAt, photo.GalleryID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateConsumingQuota inserts the photo while atomically decrementing the
// gallery's additional-photos quota. The guarded UPDATE is the gate: if the
// quota is already zero no row changes and the insert is rolled back.
func (r *PhotoRepository) CreateConsumingQuota(photo *models.Photo) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE galleries
		SET additional_photos_allowed = additional_photos_allowed - 1,
			photos_count = photos_count + 1, updated_at = ?
		WHERE id = ? AND additional_photos_allowed IS NOT NULL AND additional_photos_allowed > 0
	`, photo.UploadedAt, photo.GalleryID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUploadQuotaExhausted
	}

	if err := insertPhoto(tx, photo); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPhoto(tx *sql.Tx, photo *models.Photo) error {
	if _, err := tx.Exec(`
		INSERT INTO photos (id, gallery_id, filename, mime_type, size_bytes, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, photo.ID, photo.GalleryID, photo.Filename, photo.MimeType, photo.SizeBytes, photo.UploadedAt); err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

func (r *PhotoRepository) GetByID(id string) (*models.Photo, error) {
	photo := &models.Photo{}
	err := r.db.QueryRow(`
		SELECT id, gallery_id, filename, mime_type, size_bytes, uploaded_at
		FROM photos WHERE id = ?
	`, id).Scan(&photo.ID, &photo.GalleryID, &photo.Filename, &photo.MimeType, &photo.SizeBytes, &photo.UploadedAt)
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func (r *PhotoRepository) GetByGallery(galleryID string) ([]*models.Photo, error) {
	rows, err := r.db.Query(`
		SELECT id, gallery_id, filename, mime_type, size_bytes, uploaded_at
		FROM photos WHERE gallery_id = ? ORDER BY uploaded_at
	`, galleryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		photo := &models.Photo{}
		if err := rows.Scan(&photo.ID, &photo.GalleryID, &photo.Filename, &photo.MimeType, &photo.SizeBytes, &photo.UploadedAt); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

// Delete removes the photo and decrements the gallery counter atomically.
func (r *PhotoRepository) Delete(id, galleryID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM photos WHERE id = ? AND gallery_id = ?`, id, galleryID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	if _, err := tx.Exec(`
		UPDATE galleries SET photos_count = MAX(photos_count - 1, 0) WHERE id = ?
	`, galleryID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PhotoRepository) CountByPhotographer(photographerID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM photos p
		JOIN galleries g ON g.id = p.gallery_id
		WHERE g.photographer_id = ?
	`, photographerID).Scan(&n)
	return n, err
}
