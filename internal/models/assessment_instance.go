package models

import "time"

// AssessmentInstance is one student's (or group's) run of an assessment.
type AssessmentInstance struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssessmentID uint       `gorm:"not null;index" json:"assessment_id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	Points       float64    `gorm:"not null;default:0" json:"points"`
	MaxPoints    float64    `gorm:"not null;default:0" json:"max_points"`
	ScorePerc    float64    `gorm:"not null;default:0" json:"score_perc"`
	Open         bool       `gorm:"not null;default:true" json:"open"`
	ModifiedAt   time.Time  `gorm:"not null" json:"modified_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Assessment   Assessment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assessment"`
}
