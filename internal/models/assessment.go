package models

import "time"

const (
	// AssessmentTypeExam uses a decreasing points schedule per attempt.
	AssessmentTypeExam = "Exam"
	// AssessmentTypeHomework uses per-variant value accrual.
	AssessmentTypeHomework = "Homework"
)

// Assessment is the scoring-relevant slice of an assessment definition.
type Assessment struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Title                 string    `gorm:"size:255;not null" json:"title"`
	Type                  string    `gorm:"size:16;not null" json:"type"`
	ConstantQuestionValue bool      `gorm:"not null;default:false" json:"constant_question_value"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// IsExam reports whether the exam scoring policy applies.
func (a Assessment) IsExam() bool {
	return a.Type == AssessmentTypeExam
}
