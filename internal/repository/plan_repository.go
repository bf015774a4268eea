package repository

import (
	"database/sql"

	"github.com/snapselect/snapselect/internal/models"
)

type PlanRepository struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) GetByID(id string) (*models.Plan, error) {
	p := &models.Plan{}
	err := r.db.QueryRow(`
		SELECT id, name, photo_limit, storage_quota_bytes
		FROM plans WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.PhotoLimit, &p.StorageQuota)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PlanRepository) GetPhotoLimit(id string) (int, error) {
	var limit int
	err := r.db.QueryRow(`SELECT photo_limit FROM plans WHERE id = ?`, id).Scan(&limit)
	return limit, err
}

func (r *PlanRepository) GetAll() ([]*models.Plan, error) {
	rows, err := r.db.Query(`SELECT id, name, photo_limit, storage_quota_bytes FROM plans ORDER BY photo_limit`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		p := &models.Plan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.PhotoLimit, &p.StorageQuota); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}
