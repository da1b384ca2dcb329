package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is one answer a student handed in for a variant. Grading state
// on the row mirrors the latest authoritative grading job; the regrade engine
// rewrites these fields when history is replayed.
type Submission struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	VariantID          uint              `gorm:"not null;index" json:"variant_id"`
	Score              *float64          `json:"score"`
	Correct            *bool             `json:"correct"`
	Gradable           bool              `gorm:"not null;default:true" json:"gradable"`
	Broken             bool              `gorm:"not null;default:false" json:"broken"`
	GradingRequestedAt *time.Time        `json:"grading_requested_at"`
	GradedAt           *time.Time        `json:"graded_at"`
	Feedback           datatypes.JSONMap `gorm:"type:json" json:"feedback"`
	PartialScores      datatypes.JSONMap `gorm:"type:json" json:"partial_scores"`
	ModifiedAt         time.Time         `gorm:"not null" json:"modified_at"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	GradingJobs        []GradingJob      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grading_jobs,omitempty"`
}

// IsGraded reports whether the submission carries a final grade.
func (s Submission) IsGraded() bool {
	return s.GradedAt != nil
}
