package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/models"
)

// GradingJobRepository persists the grading audit log.
type GradingJobRepository interface {
	Create(ctx context.Context, job *models.GradingJob) error
	GetLatestForInstanceQuestion(ctx context.Context, instanceQuestionID uint) (models.GradingJob, error)
	DeleteAIJobsForAssessmentQuestion(ctx context.Context, assessmentQuestionID uint) (int64, error)
}

type gradingJobRepository struct {
	db *gorm.DB
}

// NewGradingJobRepository builds a gorm-backed grading job repository.
func NewGradingJobRepository(db *gorm.DB) GradingJobRepository {
	return &gradingJobRepository{db: db}
}

func (r *gradingJobRepository) Create(ctx context.Context, job *models.GradingJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetLatestForInstanceQuestion returns the most recent grading job across all
// submissions of the instance question. Used to report the competing job on a
// modified_at conflict.
func (r *gradingJobRepository) GetLatestForInstanceQuestion(ctx context.Context, instanceQuestionID uint) (models.GradingJob, error) {
	var job models.GradingJob
	if err := r.db.WithContext(ctx).
		Joins("JOIN submissions ON submissions.id = grading_jobs.submission_id").
		Joins("JOIN variants ON variants.id = submissions.variant_id").
		Where("variants.instance_question_id = ?", instanceQuestionID).
		Order("grading_jobs.created_at DESC, grading_jobs.id DESC").
		First(&job).Error; err != nil {
		return models.GradingJob{}, err
	}

	return job, nil
}

// DeleteAIJobsForAssessmentQuestion soft-deletes every AI grading job under
// the assessment question, returning how many rows were removed. Afterwards
// each instance question's history must be reconstructed.
func (r *gradingJobRepository) DeleteAIJobsForAssessmentQuestion(ctx context.Context, assessmentQuestionID uint) (int64, error) {
	submissionIDs := r.db.
		Model(&models.Submission{}).
		Select("submissions.id").
		Joins("JOIN variants ON variants.id = submissions.variant_id").
		Joins("JOIN instance_questions ON instance_questions.id = variants.instance_question_id").
		Where("instance_questions.assessment_question_id = ?", assessmentQuestionID)

	result := r.db.WithContext(ctx).
		Where("grading_method = ? AND submission_id IN (?)", models.GradingMethodAI, submissionIDs).
		Delete(&models.GradingJob{})

	return result.RowsAffected, result.Error
}
