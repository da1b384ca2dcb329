package models

import (
	"time"

	"gorm.io/datatypes"
)

// Instance question status values. Derived by the scoring engine, never set
// directly from a user action.
const (
	InstanceQuestionStatusUnanswered = "unanswered"
	InstanceQuestionStatusSaved      = "saved"
	InstanceQuestionStatusSaving     = "saving"
	InstanceQuestionStatusGrading    = "grading"
	InstanceQuestionStatusInvalid    = "invalid"
	InstanceQuestionStatusCorrect    = "correct"
	InstanceQuestionStatusIncorrect  = "incorrect"
	InstanceQuestionStatusComplete   = "complete"
)

// InstanceQuestion is one student's working state for one assessment question
// within one assessment instance. It is the row every scoring operation
// ultimately mutates; modified_at is the optimistic-concurrency token.
type InstanceQuestion struct {
	ID                     uint                         `gorm:"primaryKey" json:"id"`
	AssessmentInstanceID   uint                         `gorm:"not null;index" json:"assessment_instance_id"`
	AssessmentQuestionID   uint                         `gorm:"not null;index" json:"assessment_question_id"`
	NumberAttempts         int                          `gorm:"not null;default:0" json:"number_attempts"`
	AutoPoints             float64                      `gorm:"not null;default:0" json:"auto_points"`
	ManualPoints           float64                      `gorm:"not null;default:0" json:"manual_points"`
	Points                 float64                      `gorm:"not null;default:0" json:"points"`
	ScorePerc              float64                      `gorm:"not null;default:0" json:"score_perc"`
	HighestSubmissionScore float64                      `gorm:"not null;default:0" json:"highest_submission_score"`
	CurrentValue           *float64                     `json:"current_value"`
	PointsList             datatypes.JSONSlice[float64] `gorm:"type:json" json:"points_list"`
	PointsListOriginal     datatypes.JSONSlice[float64] `gorm:"type:json" json:"points_list_original"`
	VariantsPointsList     datatypes.JSONSlice[float64] `gorm:"type:json" json:"variants_points_list"`
	Status                 string                       `gorm:"size:16;not null;default:unanswered" json:"status"`
	Open                   bool                         `gorm:"not null;default:true" json:"open"`
	ModifiedAt             time.Time                    `gorm:"not null" json:"modified_at"`
	CreatedAt              time.Time                    `json:"created_at"`
	UpdatedAt              time.Time                    `json:"updated_at"`
	AssessmentInstance     AssessmentInstance           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assessment_instance"`
	AssessmentQuestion     AssessmentQuestion           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assessment_question"`
	Variants               []Variant                    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"variants,omitempty"`
}
