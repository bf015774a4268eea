package repository

import (
	"database/sql"

	"github.com/snapselect/snapselect/internal/models"
)

type SelectionRepository struct {
	db *sql.DB
}

func NewSelectionRepository(db *sql.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Upsert records a client's verdict on a photo. A repeated submission by
// the same client for the same photo updates the existing row in place.
func (r *SelectionRepository) Upsert(s *models.Selection) error {
	isFavorite := 0
	if s.IsFavorite {
		isFavorite = 1
	}
	_, err := r.db.Exec(`
		INSERT INTO selections (id, gallery_id, photo_id, client_name, rating, is_favorite, comment,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(photo_id, client_name) DO UPDATE SET
			rating = excluded.rating,
			is_favorite = excluded.is_favorite,
			comment = excluded.comment,
			updated_at = excluded.updated_at
	`, s.ID, s.GalleryID, s.PhotoID, s.ClientName, s.Rating, isFavorite, s.Comment,
		s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *SelectionRepository) GetByGallery(galleryID string) ([]*models.Selection, error) {
	rows, err := r.db.Query(`
		SELECT id, gallery_id, photo_id, client_name, rating, is_favorite, comment, created_at, updated_at
		FROM selections WHERE gallery_id = ? ORDER BY updated_at DESC
	`, galleryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var selections []*models.Selection
	for rows.Next() {
		s := &models.Selection{}
		var isFavorite int
		if err := rows.Scan(&s.ID, &s.GalleryID, &s.PhotoID, &s.ClientName, &s.Rating, &isFavorite,
			&s.Comment, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.IsFavorite = isFavorite == 1
		selections = append(selections, s)
	}
	return selections, rows.Err()
}

func (r *SelectionRepository) GetByPhotoAndClient(photoID, clientName string) (*models.Selection, error) {
	s := &models.Selection{}
	var isFavorite int
	err := r.db.QueryRow(`
		SELECT id, gallery_id, photo_id, client_name, rating, is_favorite, comment, created_at, updated_at
		FROM selections WHERE photo_id = ? AND client_name = ?
	`, photoID, clientName).Scan(&s.ID, &s.GalleryID, &s.PhotoID, &s.ClientName, &s.Rating, &isFavorite,
		&s.Comment, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.IsFavorite = isFavorite == 1
	return s, nil
}

func (r *SelectionRepository) CountByPhotographer(photographerID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM selections s
		JOIN galleries g ON g.id = s.gallery_id
		WHERE g.photographer_id = ?
	`, photographerID).Scan(&n)
	return n, err
}

func (r *SelectionRepository) CountFavoritesByPhotographer(photographerID string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM selections s
		JOIN galleries g ON g.id = s.gallery_id
		WHERE g.photographer_id = ? AND s.is_favorite = 1
	`, photographerID).Scan(&n)
	return n, err
}
