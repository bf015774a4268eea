package repository

import (
	"database/sql"

	"github.com/snapselect/snapselect/internal/models"
)

type PhotographerRepository struct {
	db *sql.DB
}

func NewPhotographerRepository(db *sql.DB) *PhotographerRepository {
	return &PhotographerRepository{db: db}
}

func (r *PhotographerRepository) Create(p *models.Photographer) error {
	_, err := r.db.Exec(`
		INSERT INTO photographers (id, email, password_hash, plan_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Email, p.PasswordHash, p.PlanID, p.CreatedAt)
	return err
}

func (r *PhotographerRepository) GetByID(id string) (*models.Photographer, error) {
	p := &models.Photographer{}
	err := r.db.QueryRow(`
		SELECT id, email, password_hash, plan_id, created_at
		FROM photographers WHERE id = ?
	`, id).Scan(&p.ID, &p.Email, &p.PasswordHash, &p.PlanID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PhotographerRepository) GetByEmail(email string) (*models.Photographer, error) {
	p := &models.Photographer{}
	err := r.db.QueryRow(`
		SELECT id, email, password_hash, plan_id, created_at
		FROM photographers WHERE email = ? COLLATE NOCASE
	`, email).Scan(&p.ID, &p.Email, &p.PasswordHash, &p.PlanID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PhotographerRepository) UpdatePlan(id, planID string) error {
	_, err := r.db.Exec(`UPDATE photographers SET plan_id = ? WHERE id = ?`, planID, id)
	return err
}
