package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/models"
)

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
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

func seedInstanceQuestion(t *testing.T, db *gorm.DB) models.InstanceQuestion {
	t.Helper()

	modifiedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	maxPoints := 10.0

	assessment := models.Assessment{Title: "Repo Fixture", Type: models.AssessmentTypeExam}
	require.NoError(t, db.Create(&assessment).Error)

	question := models.AssessmentQuestion{
		AssessmentID: assessment.ID,
		QuestionID:   1,
		MaxPoints:    &maxPoints,
	}
	require.NoError(t, db.Create(&question).Error)

	instance := models.AssessmentInstance{
		AssessmentID: assessment.ID,
		UserID:       1,
		MaxPoints:    maxPoints,
		Open:         true,
		ModifiedAt:   modifiedAt,
	}
	require.NoError(t, db.Create(&instance).Error)

	instanceQuestion := models.InstanceQuestion{
		AssessmentInstanceID: instance.ID,
		AssessmentQuestionID: question.ID,
		Status:               models.InstanceQuestionStatusUnanswered,
		Open:                 true,
		PointsList:           datatypes.JSONSlice[float64]{10, 7, 4},
		PointsListOriginal:   datatypes.JSONSlice[float64]{10, 7, 4},
		ModifiedAt:           modifiedAt,
	}
	require.NoError(t, db.Create(&instanceQuestion).Error)

	return instanceQuestion
}

func TestUpdateIfUnmodifiedAppliesWhenTokenMatches(t *testing.T) {
	db := setupTestDB(t, "iq_repo_cas_ok")
	seeded := seedInstanceQuestion(t, db)
	repo := NewInstanceQuestionRepository(db)
	ctx := context.Background()

	loaded, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	previous := loaded.ModifiedAt
	loaded.Points = 7.5
	loaded.ScorePerc = 75
	loaded.ModifiedAt = previous.Add(time.Second)

	updated, err := repo.UpdateIfUnmodified(ctx, &loaded, previous)
	require.NoError(t, err)
	require.True(t, updated)

	stored, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.InDelta(t, 7.5, stored.Points, 1e-9)
	require.True(t, stored.ModifiedAt.After(previous))
}

func TestUpdateIfUnmodifiedRejectsStaleToken(t *testing.T) {
	db := setupTestDB(t, "iq_repo_cas_stale")
	seeded := seedInstanceQuestion(t, db)
	repo := NewInstanceQuestionRepository(db)
	ctx := context.Background()

	loaded, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)

	loaded.Points = 7.5
	loaded.ModifiedAt = loaded.ModifiedAt.Add(time.Second)

	updated, err := repo.UpdateIfUnmodified(ctx, &loaded, seeded.ModifiedAt.Add(-time.Hour))
	require.NoError(t, err)
	require.False(t, updated)

	stored, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.Zero(t, stored.Points)
}

func TestGetForAssessmentScopesByAssessment(t *testing.T) {
	db := setupTestDB(t, "iq_repo_scope")
	seeded := seedInstanceQuestion(t, db)
	repo := NewInstanceQuestionRepository(db)
	ctx := context.Background()

	var instance models.AssessmentInstance
	require.NoError(t, db.First(&instance, seeded.AssessmentInstanceID).Error)

	found, err := repo.GetForAssessment(ctx, instance.AssessmentID, seeded.ID)
	require.NoError(t, err)
	require.Equal(t, seeded.ID, found.ID)
	require.NotZero(t, found.AssessmentQuestion.ID)

	_, err = repo.GetForAssessment(ctx, instance.AssessmentID+1, seeded.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetWithHistoryLoadsOrderedGradingJobs(t *testing.T) {
	db := setupTestDB(t, "iq_repo_history")
	seeded := seedInstanceQuestion(t, db)
	repo := NewInstanceQuestionRepository(db)
	ctx := context.Background()

	modifiedAt := seeded.ModifiedAt
	variant := models.Variant{InstanceQuestionID: seeded.ID, Number: 1, Open: true, ModifiedAt: modifiedAt}
	require.NoError(t, db.Create(&variant).Error)

	submission := models.Submission{VariantID: variant.ID, Gradable: true, ModifiedAt: modifiedAt}
	require.NoError(t, db.Create(&submission).Error)

	later := modifiedAt.Add(2 * time.Minute)
	earlier := modifiedAt.Add(time.Minute)
	score := 0.5
	jobs := []models.GradingJob{
		{SubmissionID: submission.ID, GradingMethod: models.GradingMethodInternal, Score: &score, Gradable: true, GradedAt: &later},
		{SubmissionID: submission.ID, GradingMethod: models.GradingMethodInternal, Score: &score, Gradable: true, GradedAt: &earlier},
	}
	for i := range jobs {
		require.NoError(t, db.Create(&jobs[i]).Error)
	}

	loaded, err := repo.GetWithHistory(ctx, seeded.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Variants, 1)
	require.Len(t, loaded.Variants[0].Submissions, 1)

	gradingJobs := loaded.Variants[0].Submissions[0].GradingJobs
	require.Len(t, gradingJobs, 2)
	require.True(t, gradingJobs[0].GradedAt.Before(*gradingJobs[1].GradedAt))
}
