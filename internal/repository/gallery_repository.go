package repository

import (
	"database/sql"
	"time"

	"github.com/snapselect/snapselect/internal/models"
)

type GalleryRepository struct {
	db *sql.DB
}

func NewGalleryRepository(db *sql.DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

const galleryColumns = `id, photographer_id, plan_id, name, description, client_password_hash,
	share_token, is_shared, photos_count, upload_restricted, upload_restricted_until,
	additional_photos_allowed, created_at, updated_at`

func scanGallery(row interface{ Scan(...interface{}) error }) (*models.Gallery, error) {
	g := &models.Gallery{}
	var isShared, uploadRestricted int
	err := row.Scan(
		&g.ID, &g.PhotographerID, &g.PlanID, &g.Name, &g.Description, &g.ClientPasswordHash,
		&g.ShareToken, &isShared, &g.PhotosCount, &uploadRestricted, &g.UploadRestrictedUntil,
		&g.AdditionalPhotosAllowed, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.IsShared = isShared == 1
	g.UploadRestricted = uploadRestricted == 1
	return g, nil
}

func (r *GalleryRepository) Create(g *models.Gallery) error {
	isShared := 0
	if g.IsShared {
		isShared = 1
	}
	_, err := r.db.Exec(`
		INSERT INTO galleries (id, photographer_id, plan_id, name, description, client_password_hash,
			share_token, is_shared, photos_count, upload_restricted, upload_restricted_until,
			additional_photos_allowed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL, ?, ?)
	`, g.ID, g.PhotographerID, g.PlanID, g.Name, g.Description, g.ClientPasswordHash,
		g.ShareToken, isShared, g.PhotosCount, g.CreatedAt, g.UpdatedAt)
	return err
}

func (r *GalleryRepository) GetByID(id string) (*models.Gallery, error) {
	return scanGallery(r.db.QueryRow(`SELECT `+galleryColumns+` FROM galleries WHERE id = ?`, id))
}

func (r *GalleryRepository) GetByShareToken(token string) (*models.Gallery, error) {
	return scanGallery(r.db.QueryRow(
		`SELECT `+galleryColumns+` FROM galleries WHERE share_token = ? AND is_shared = 1`, token))
}

func (r *GalleryRepository) GetByPhotographer(photographerID string) ([]*models.Gallery, error) {
	rows, err := r.db.Query(
		`SELECT `+galleryColumns+` FROM galleries WHERE photographer_id = ? ORDER BY created_at DESC`,
		photographerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var galleries []*models.Gallery
	for rows.Next() {
		g, err := scanGallery(rows)
		if err != nil {
			return nil, err
		}
		galleries = append(galleries, g)
	}
	return galleries, rows.Err()
}

// MarkShared publishes the gallery under a share token, with an optional
// client password hash.
func (r *GalleryRepository) MarkShared(id, token string, clientPasswordHash *string, now time.Time) error {
	_, err := r.db.Exec(`
		UPDATE galleries
		SET share_token = ?, client_password_hash = ?, is_shared = 1, updated_at = ?
		WHERE id = ?
	`, token, clientPasswordHash, now, id)
	return err
}

// ClearRestriction wipes lapsed restriction state. The read path never
// trusts the boolean flag alone, so this is housekeeping, not correctness.
func (r *GalleryRepository) ClearRestriction(id string) error {
	_, err := r.db.Exec(`
		UPDATE galleries
		SET upload_restricted = 0, upload_restricted_until = NULL, additional_photos_allowed = NULL,
			updated_at = ?
		WHERE id = ?
	`, time.Now(), id)
	return err
}

// ClearLapsedRestrictions clears restriction state on every gallery whose
// window has already passed. Run by the hourly cleanup job.
func (r *GalleryRepository) ClearLapsedRestrictions(now time.Time) (int64, error) {
	res, err := r.db.Exec(`
		UPDATE galleries
		SET upload_restricted = 0, upload_restricted_until = NULL, additional_photos_allowed = NULL,
			updated_at = ?
		WHERE upload_restricted_until IS NOT NULL AND upload_restricted_until <= ?
	`, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *GalleryRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM galleries WHERE id = ?`, id)
	return err
}

func (r *GalleryRepository) CountByPhotographer(photographerID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM galleries WHERE photographer_id = ?`, photographerID).Scan(&n)
	return n, err
}

func (r *GalleryRepository) CountSharedByPhotographer(photographerID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM galleries WHERE photographer_id = ? AND is_shared = 1`, photographerID).Scan(&n)
	return n, err
}

func (r *GalleryRepository) CountRestrictedByPhotographer(photographerID string, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM galleries
		WHERE photographer_id = ? AND upload_restricted_until IS NOT NULL AND upload_restricted_until > ?
	`, photographerID, now).Scan(&n)
	return n, err
}
