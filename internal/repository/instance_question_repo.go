package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/models"
)

// InstanceQuestionRepository provides persistence for instance question
// scoring state, including the optimistic-concurrency update used by graders.
type InstanceQuestionRepository interface {
	GetByID(ctx context.Context, id uint) (models.InstanceQuestion, error)
	GetForAssessment(ctx context.Context, assessmentID, id uint) (models.InstanceQuestion, error)
	GetWithHistory(ctx context.Context, id uint) (models.InstanceQuestion, error)
	ListByAssessmentQuestion(ctx context.Context, assessmentQuestionID uint) ([]models.InstanceQuestion, error)
	ListByAssessmentInstance(ctx context.Context, assessmentInstanceID uint) ([]models.InstanceQuestion, error)
	Update(ctx context.Context, instanceQuestion *models.InstanceQuestion) error
	UpdateIfUnmodified(ctx context.Context, instanceQuestion *models.InstanceQuestion, expected time.Time) (bool, error)
	SaveReplayedHistory(ctx context.Context, instanceQuestion *models.InstanceQuestion, submissions []*models.Submission, variantModifiedAt map[uint]time.Time) error
}

type instanceQuestionRepository struct {
	db *gorm.DB
}

// NewInstanceQuestionRepository builds a gorm-backed instance question repository.
func NewInstanceQuestionRepository(db *gorm.DB) InstanceQuestionRepository {
	return &instanceQuestionRepository{db: db}
}

func (r *instanceQuestionRepository) GetByID(ctx context.Context, id uint) (models.InstanceQuestion, error) {
	var instanceQuestion models.InstanceQuestion
	if err := r.db.WithContext(ctx).
		Preload("AssessmentQuestion").
		Preload("AssessmentInstance").
		Preload("AssessmentInstance.Assessment").
		First(&instanceQuestion, id).Error; err != nil {
		return models.InstanceQuestion{}, err
	}

	return instanceQuestion, nil
}

func (r *instanceQuestionRepository) GetForAssessment(ctx context.Context, assessmentID, id uint) (models.InstanceQuestion, error) {
	var instanceQuestion models.InstanceQuestion
	if err := r.db.WithContext(ctx).
		Preload("AssessmentQuestion").
		Preload("AssessmentInstance").
		Preload("AssessmentInstance.Assessment").
		Joins("JOIN assessment_instances ON assessment_instances.id = instance_questions.assessment_instance_id").
		Where("instance_questions.id = ? AND assessment_instances.assessment_id = ?", id, assessmentID).
		First(&instanceQuestion).Error; err != nil {
		return models.InstanceQuestion{}, err
	}

	return instanceQuestion, nil
}

// GetWithHistory loads the full nested replay snapshot: every variant, every
// submission, every grading job, in creation order.
func (r *instanceQuestionRepository) GetWithHistory(ctx context.Context, id uint) (models.InstanceQuestion, error) {
	var instanceQuestion models.InstanceQuestion
	if err := r.db.WithContext(ctx).
		Preload("AssessmentQuestion").
		Preload("AssessmentInstance").
		Preload("AssessmentInstance.Assessment").
		Preload("Variants", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("variants.id ASC")
		}).
		Preload("Variants.Submissions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("submissions.created_at ASC, submissions.id ASC")
		}).
		Preload("Variants.Submissions.GradingJobs", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("grading_jobs.graded_at ASC, grading_jobs.id ASC")
		}).
		First(&instanceQuestion, id).Error; err != nil {
		return models.InstanceQuestion{}, err
	}

	return instanceQuestion, nil
}

func (r *instanceQuestionRepository) ListByAssessmentQuestion(ctx context.Context, assessmentQuestionID uint) ([]models.InstanceQuestion, error) {
	var instanceQuestions []models.InstanceQuestion
	if err := r.db.WithContext(ctx).
		Where("assessment_question_id = ?", assessmentQuestionID).
		Order("id ASC").
		Find(&instanceQuestions).Error; err != nil {
		return nil, err
	}

	return instanceQuestions, nil
}

func (r *instanceQuestionRepository) ListByAssessmentInstance(ctx context.Context, assessmentInstanceID uint) ([]models.InstanceQuestion, error) {
	var instanceQuestions []models.InstanceQuestion
	if err := r.db.WithContext(ctx).
		Where("assessment_instance_id = ?", assessmentInstanceID).
		Order("id ASC").
		Find(&instanceQuestions).Error; err != nil {
		return nil, err
	}

	return instanceQuestions, nil
}

func (r *instanceQuestionRepository) Update(ctx context.Context, instanceQuestion *models.InstanceQuestion) error {
	return r.db.WithContext(ctx).Save(instanceQuestion).Error
}

// UpdateIfUnmodified writes the scoring fields only when the row's
// modified_at still matches the caller's token. Returns false when a
// concurrent edit won the race.
func (r *instanceQuestionRepository) UpdateIfUnmodified(ctx context.Context, instanceQuestion *models.InstanceQuestion, expected time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InstanceQuestion{}).
		Where("id = ? AND modified_at = ?", instanceQuestion.ID, expected).
		Updates(map[string]interface{}{
			"auto_points":              instanceQuestion.AutoPoints,
			"manual_points":            instanceQuestion.ManualPoints,
			"points":                   instanceQuestion.Points,
			"score_perc":               instanceQuestion.ScorePerc,
			"status":                   instanceQuestion.Status,
			"open":                     instanceQuestion.Open,
			"highest_submission_score": instanceQuestion.HighestSubmissionScore,
			"current_value":            instanceQuestion.CurrentValue,
			"points_list":              instanceQuestion.PointsList,
			"variants_points_list":     instanceQuestion.VariantsPointsList,
			"number_attempts":          instanceQuestion.NumberAttempts,
			"modified_at":              instanceQuestion.ModifiedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// SaveReplayedHistory writes a reconstructed instance question, its rewritten
// submissions, and the touched variants' modified_at in one transaction, so a
// half-applied regrade can never be observed.
func (r *instanceQuestionRepository) SaveReplayedHistory(ctx context.Context, instanceQuestion *models.InstanceQuestion, submissions []*models.Submission, variantModifiedAt map[uint]time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(instanceQuestion).Error; err != nil {
			return err
		}
		for _, submission := range submissions {
			if err := tx.Save(submission).Error; err != nil {
				return err
			}
		}
		for variantID, modifiedAt := range variantModifiedAt {
			if err := tx.Model(&models.Variant{}).
				Where("id = ?", variantID).
				Update("modified_at", modifiedAt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
