package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/models"
	"github.com/noah-isme/tally-scoring-api/internal/repository"
)

func newScoringDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Assessment{},
		&models.AssessmentQuestion{},
		&models.AssessmentInstance{},
		&models.InstanceQuestion{},
		&models.Variant{},
		&models.Submission{},
		&models.GradingJob{},
	))

	return db
}

type scoringFixture struct {
	assessment       models.Assessment
	question         models.AssessmentQuestion
	instance         models.AssessmentInstance
	instanceQuestion models.InstanceQuestion
	variant          models.Variant
	submission       models.Submission
}

type fixtureConfig struct {
	assessmentType        string
	constantQuestionValue bool
	maxPoints             float64
	maxAutoPoints         float64
	maxManualPoints       float64
	initPoints            *float64
	pointsList            []float64
	currentValue          *float64
	modifiedAt            time.Time
}

func seedScoringFixture(t *testing.T, db *gorm.DB, cfg fixtureConfig) scoringFixture {
	t.Helper()

	if cfg.modifiedAt.IsZero() {
		cfg.modifiedAt = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	}

	assessment := models.Assessment{
		Title:                 "Scoring Fixture",
		Type:                  cfg.assessmentType,
		ConstantQuestionValue: cfg.constantQuestionValue,
	}
	require.NoError(t, db.Create(&assessment).Error)

	question := models.AssessmentQuestion{
		AssessmentID:    assessment.ID,
		QuestionID:      1,
		MaxPoints:       &cfg.maxPoints,
		MaxAutoPoints:   &cfg.maxAutoPoints,
		MaxManualPoints: &cfg.maxManualPoints,
		InitPoints:      cfg.initPoints,
		PointsList:      datatypes.JSONSlice[float64](cfg.pointsList),
	}
	require.NoError(t, db.Create(&question).Error)

	instance := models.AssessmentInstance{
		AssessmentID: assessment.ID,
		UserID:       7,
		MaxPoints:    cfg.maxPoints,
		Open:         true,
		ModifiedAt:   cfg.modifiedAt,
	}
	require.NoError(t, db.Create(&instance).Error)

	instanceQuestion := models.InstanceQuestion{
		AssessmentInstanceID: instance.ID,
		AssessmentQuestionID: question.ID,
		Status:               models.InstanceQuestionStatusUnanswered,
		Open:                 true,
		PointsList:           datatypes.JSONSlice[float64](cfg.pointsList),
		PointsListOriginal:   datatypes.JSONSlice[float64](cfg.pointsList),
		CurrentValue:         cfg.currentValue,
		ModifiedAt:           cfg.modifiedAt,
	}
	require.NoError(t, db.Create(&instanceQuestion).Error)

	variant := models.Variant{
		InstanceQuestionID: instanceQuestion.ID,
		Number:             1,
		Open:               true,
		ModifiedAt:         cfg.modifiedAt,
	}
	require.NoError(t, db.Create(&variant).Error)

	submission := models.Submission{
		VariantID:  variant.ID,
		Gradable:   true,
		ModifiedAt: cfg.modifiedAt,
	}
	require.NoError(t, db.Create(&submission).Error)

	return scoringFixture{
		assessment:       assessment,
		question:         question,
		instance:         instance,
		instanceQuestion: instanceQuestion,
		variant:          variant,
		submission:       submission,
	}
}

type repositoryBundle struct {
	db                *gorm.DB
	instanceQuestions repository.InstanceQuestionRepository
	submissions       repository.SubmissionRepository
	gradingJobs       repository.GradingJobRepository
	instances         repository.AssessmentInstanceRepository
}

func floatPointer(value float64) *float64 {
	return &value
}
