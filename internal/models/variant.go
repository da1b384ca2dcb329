package models

import "time"

// Variant is one randomized instantiation of a question (fixed seed).
type Variant struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`
	InstanceQuestionID uint         `gorm:"not null;index" json:"instance_question_id"`
	Number             int          `gorm:"not null;default:1" json:"number"`
	Seed               string       `gorm:"size:64" json:"seed"`
	Open               bool         `gorm:"not null;default:true" json:"open"`
	ModifiedAt         time.Time    `gorm:"not null" json:"modified_at"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Submissions        []Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"submissions,omitempty"`
}
