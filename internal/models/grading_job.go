package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Grading methods. Internal jobs are the replay log for reconstruction;
// Manual and AI jobs audit grader edits applied through the score updater.
const (
	GradingMethodInternal = "Internal"
	GradingMethodExternal = "External"
	GradingMethodManual   = "Manual"
	GradingMethodAI       = "AI"
)

// GradingJob is an immutable record of one grading attempt for a submission.
type GradingJob struct {
	ID                       uint              `gorm:"primaryKey" json:"id"`
	SubmissionID             uint              `gorm:"not null;index" json:"submission_id"`
	GradingMethod            string            `gorm:"size:16;not null" json:"grading_method"`
	Score                    *float64          `json:"score"`
	Gradable                 bool              `gorm:"not null;default:true" json:"gradable"`
	AutoPoints               *float64          `json:"auto_points"`
	ManualPoints             *float64          `json:"manual_points"`
	Feedback                 datatypes.JSONMap `gorm:"type:json" json:"feedback"`
	PartialScores            datatypes.JSONMap `gorm:"type:json" json:"partial_scores"`
	ManualRubricData         datatypes.JSONMap `gorm:"type:json" json:"manual_rubric_data"`
	AuthnUserID              *uint             `json:"authn_user_id"`
	GradingRequestedAt       *time.Time        `json:"grading_requested_at"`
	GradedAt                 *time.Time        `json:"graded_at"`
	GradingRequestCanceledAt *time.Time        `json:"grading_request_canceled_at"`
	DeletedAt                gorm.DeletedAt    `gorm:"index" json:"deleted_at"`
	CreatedAt                time.Time         `json:"created_at"`
}

// CountsForReplay reports whether the job belongs to the canonical replay log
// used by history reconstruction.
func (j GradingJob) CountsForReplay() bool {
	return j.GradingMethod == GradingMethodInternal &&
		j.GradingRequestCanceledAt == nil &&
		j.GradedAt != nil
}
