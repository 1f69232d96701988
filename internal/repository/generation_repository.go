package repository

import (
	"studygen_backend/internal/model"

	"gorm.io/gorm"
)

// GenerationRepository is the request ledger. Rows are appended and
// advanced through the state machine, never deleted.
type GenerationRepository struct {
	DB *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{DB: db}
}

func (r *GenerationRepository) Create(req *model.GenerationRequest) error {
	return r.DB.Create(req).Error
}

func (r *GenerationRepository) Save(req *model.GenerationRequest) error {
	return r.DB.Save(req).Error
}

func (r *GenerationRepository) FindByID(id uint) (*model.GenerationRequest, error) {
	var req model.GenerationRequest
	err := r.DB.First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *GenerationRepository) FindByUser(userID uint, limit int) ([]model.GenerationRequest, error) {
	var reqs []model.GenerationRequest
	err := r.DB.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}
