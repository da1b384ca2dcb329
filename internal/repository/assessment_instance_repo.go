package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/models"
)

// AssessmentInstanceTotals aggregates instance question points for one
// assessment instance.
type AssessmentInstanceTotals struct {
	Points    float64
	MaxPoints float64
}

// AssessmentInstanceRepository provides persistence for assessment instances.
type AssessmentInstanceRepository interface {
	GetByID(ctx context.Context, id uint) (models.AssessmentInstance, error)
	Update(ctx context.Context, instance *models.AssessmentInstance) error
	SumInstanceQuestionPoints(ctx context.Context, id uint) (AssessmentInstanceTotals, error)
}

type assessmentInstanceRepository struct {
	db *gorm.DB
}

// NewAssessmentInstanceRepository builds a gorm-backed assessment instance repository.
func NewAssessmentInstanceRepository(db *gorm.DB) AssessmentInstanceRepository {
	return &assessmentInstanceRepository{db: db}
}

func (r *assessmentInstanceRepository) GetByID(ctx context.Context, id uint) (models.AssessmentInstance, error) {
	var instance models.AssessmentInstance
	if err := r.db.WithContext(ctx).
		Preload("Assessment").
		First(&instance, id).Error; err != nil {
		return models.AssessmentInstance{}, err
	}

	return instance, nil
}

func (r *assessmentInstanceRepository) Update(ctx context.Context, instance *models.AssessmentInstance) error {
	return r.db.WithContext(ctx).Save(instance).Error
}

// SumInstanceQuestionPoints totals current points and ceilings across the
// instance's questions.
func (r *assessmentInstanceRepository) SumInstanceQuestionPoints(ctx context.Context, id uint) (AssessmentInstanceTotals, error) {
	var totals AssessmentInstanceTotals
	err := r.db.WithContext(ctx).
		Model(&models.InstanceQuestion{}).
		Select("COALESCE(SUM(instance_questions.points), 0) AS points, COALESCE(SUM(assessment_questions.max_points), 0) AS max_points").
		Joins("JOIN assessment_questions ON assessment_questions.id = instance_questions.assessment_question_id").
		Where("instance_questions.assessment_instance_id = ?", id).
		Scan(&totals).Error
	if err != nil {
		return AssessmentInstanceTotals{}, err
	}

	return totals, nil
}
