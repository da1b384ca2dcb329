package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/models"
)

// AssessmentQuestionRepository reads assessment question configuration.
type AssessmentQuestionRepository interface {
	GetByID(ctx context.Context, id uint) (models.AssessmentQuestion, error)
}

type assessmentQuestionRepository struct {
	db *gorm.DB
}

// NewAssessmentQuestionRepository builds a gorm-backed assessment question repository.
func NewAssessmentQuestionRepository(db *gorm.DB) AssessmentQuestionRepository {
	return &assessmentQuestionRepository{db: db}
}

func (r *assessmentQuestionRepository) GetByID(ctx context.Context, id uint) (models.AssessmentQuestion, error) {
	var assessmentQuestion models.AssessmentQuestion
	if err := r.db.WithContext(ctx).
		Preload("Assessment").
		First(&assessmentQuestion, id).Error; err != nil {
		return models.AssessmentQuestion{}, err
	}

	return assessmentQuestion, nil
}
