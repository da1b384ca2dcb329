package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tally-scoring-api/internal/models"
	"github.com/noah-isme/tally-scoring-api/internal/repository"
)

func TestAssessmentInstanceScoreCaching(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := newScoringDB(t, "assessment_instance_cache")
	fixture := seedScoringFixture(t, db, fixtureConfig{
		assessmentType: models.AssessmentTypeExam,
		maxPoints:      10,
		maxAutoPoints:  10,
		pointsList:     []float64{10},
	})
	require.NoError(t, db.Model(&models.AssessmentInstance{}).
		Where("id = ?", fixture.instance.ID).
		Updates(map[string]interface{}{"points": 6.0, "score_perc": 60.0}).Error)

	instanceRepo := repository.NewAssessmentInstanceRepository(db)
	svc := NewAssessmentInstanceService(instanceRepo, redisClient, time.Minute, zerolog.Nop())

	ctx := context.Background()
	first, err := svc.GetScore(ctx, fixture.instance.ID)
	require.NoError(t, err)
	require.InDelta(t, 6.0, first.Points, 1e-9)

	// Modify database to ensure cached response is returned unchanged.
	require.NoError(t, db.Model(&models.AssessmentInstance{}).
		Where("id = ?", fixture.instance.ID).
		Update("points", 9.0).Error)

	cached, err := svc.GetScore(ctx, fixture.instance.ID)
	require.NoError(t, err)
	require.InDelta(t, 6.0, cached.Points, 1e-9)

	// Recomputing invalidates the cache and re-derives from instance questions.
	require.NoError(t, db.Model(&models.InstanceQuestion{}).
		Where("id = ?", fixture.instanceQuestion.ID).
		Update("points", 8.0).Error)
	require.NoError(t, svc.RecomputeScore(ctx, fixture.instance.ID))

	fresh, err := svc.GetScore(ctx, fixture.instance.ID)
	require.NoError(t, err)
	require.InDelta(t, 8.0, fresh.Points, 1e-9)
	require.InDelta(t, 80, fresh.ScorePerc, 1e-9)
}

func TestRecomputeScoreWithNoInstanceQuestions(t *testing.T) {
	db := newScoringDB(t, "assessment_instance_empty")

	assessment := models.Assessment{Title: "Empty", Type: models.AssessmentTypeExam}
	require.NoError(t, db.Create(&assessment).Error)

	instance := models.AssessmentInstance{
		AssessmentID: assessment.ID,
		UserID:       1,
		Points:       5,
		ScorePerc:    50,
		MaxPoints:    10,
		Open:         true,
		ModifiedAt:   time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&instance).Error)

	instanceRepo := repository.NewAssessmentInstanceRepository(db)
	svc := NewAssessmentInstanceService(instanceRepo, nil, time.Minute, zerolog.Nop())

	require.NoError(t, svc.RecomputeScore(context.Background(), instance.ID))

	var stored models.AssessmentInstance
	require.NoError(t, db.First(&stored, instance.ID).Error)
	require.Zero(t, stored.Points)
	require.Zero(t, stored.ScorePerc)
}

func TestGetScoreUnknownInstance(t *testing.T) {
	db := newScoringDB(t, "assessment_instance_unknown")

	instanceRepo := repository.NewAssessmentInstanceRepository(db)
	svc := NewAssessmentInstanceService(instanceRepo, nil, time.Minute, zerolog.Nop())

	_, err := svc.GetScore(context.Background(), 12345)
	require.ErrorIs(t, err, ErrAssessmentInstanceNotFound)
}
