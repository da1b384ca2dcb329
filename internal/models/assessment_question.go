package models

import (
	"time"

	"gorm.io/datatypes"
)

// AssessmentQuestion binds a question to an assessment together with its
// points configuration. Written at sync time, read-only afterwards.
type AssessmentQuestion struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	AssessmentID    uint                        `gorm:"not null;index" json:"assessment_id"`
	QuestionID      uint                        `gorm:"not null" json:"question_id"`
	MaxPoints       *float64                    `json:"max_points"`
	MaxAutoPoints   *float64                    `json:"max_auto_points"`
	MaxManualPoints *float64                    `json:"max_manual_points"`
	InitPoints      *float64                    `json:"init_points"`
	PointsList      datatypes.JSONSlice[float64] `gorm:"type:json" json:"points_list"`
	TriesPerVariant int                         `gorm:"not null;default:1" json:"tries_per_variant"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	Assessment      Assessment                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assessment"`
}

// EffectiveMaxPoints returns max_points treating null as zero.
func (aq AssessmentQuestion) EffectiveMaxPoints() float64 {
	if aq.MaxPoints == nil {
		return 0
	}
	return *aq.MaxPoints
}

// EffectiveMaxAutoPoints returns max_auto_points treating null as zero.
func (aq AssessmentQuestion) EffectiveMaxAutoPoints() float64 {
	if aq.MaxAutoPoints == nil {
		return 0
	}
	return *aq.MaxAutoPoints
}

// EffectiveMaxManualPoints returns max_manual_points treating null as zero.
func (aq AssessmentQuestion) EffectiveMaxManualPoints() float64 {
	if aq.MaxManualPoints == nil {
		return 0
	}
	return *aq.MaxManualPoints
}
