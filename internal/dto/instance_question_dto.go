package dto

import (
	"time"

	"github.com/noah-isme/tally-scoring-api/internal/models"
)

// InstanceQuestionResponse serializes the scoring state of an instance question.
type InstanceQuestionResponse struct {
	ID                     uint      `json:"id"`
	AssessmentInstanceID   uint      `json:"assessment_instance_id"`
	AssessmentQuestionID   uint      `json:"assessment_question_id"`
	NumberAttempts         int       `json:"number_attempts"`
	AutoPoints             float64   `json:"auto_points"`
	ManualPoints           float64   `json:"manual_points"`
	Points                 float64   `json:"points"`
	ScorePerc              float64   `json:"score_perc"`
	HighestSubmissionScore float64   `json:"highest_submission_score"`
	CurrentValue           *float64  `json:"current_value"`
	PointsList             []float64 `json:"points_list"`
	VariantsPointsList     []float64 `json:"variants_points_list"`
	Status                 string    `json:"status"`
	Open                   bool      `json:"open"`
	ModifiedAt             time.Time `json:"modified_at"`
}

// NewInstanceQuestionResponse converts an InstanceQuestion model into a DTO.
func NewInstanceQuestionResponse(model models.InstanceQuestion) InstanceQuestionResponse {
	return InstanceQuestionResponse{
		ID:                     model.ID,
		AssessmentInstanceID:   model.AssessmentInstanceID,
		AssessmentQuestionID:   model.AssessmentQuestionID,
		NumberAttempts:         model.NumberAttempts,
		AutoPoints:             model.AutoPoints,
		ManualPoints:           model.ManualPoints,
		Points:                 model.Points,
		ScorePerc:              model.ScorePerc,
		HighestSubmissionScore: model.HighestSubmissionScore,
		CurrentValue:           model.CurrentValue,
		PointsList:             model.PointsList,
		VariantsPointsList:     model.VariantsPointsList,
		Status:                 model.Status,
		Open:                   model.Open,
		ModifiedAt:             model.ModifiedAt,
	}
}

// GradeSubmissionRequest is the payload delivered by the grading layer after
// a submission has been evaluated.
type GradeSubmissionRequest struct {
	SubmissionID    uint    `json:"submission_id" validate:"required,gt=0"`
	SubmissionScore float64 `json:"submission_score" validate:"gte=0,lte=1"`
}

// AssessmentInstanceScoreResponse summarizes an assessment instance's totals.
type AssessmentInstanceScoreResponse struct {
	AssessmentInstanceID uint      `json:"assessment_instance_id"`
	Points               float64   `json:"points"`
	MaxPoints            float64   `json:"max_points"`
	ScorePerc            float64   `json:"score_perc"`
	ModifiedAt           time.Time `json:"modified_at"`
}
