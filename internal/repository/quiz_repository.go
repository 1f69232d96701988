package repository

import (
	"errors"
	"studygen_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.First(&quiz, id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) FindByModule(moduleID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("module_id = ?", moduleID).
		Order("created_at desc").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

// FindInstructorQuiz returns the most recent instructor-authored quiz for
// a module tagged with the given technique, or nil when none exists.
func (r *QuizRepository) FindInstructorQuiz(moduleID uint, technique string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Where("module_id = ? AND technique = ? AND source = ?",
		moduleID, technique, model.SourceInstructor).
		Order("created_at desc").
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}
