package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tally-scoring-api/internal/models"
	"github.com/noah-isme/tally-scoring-api/internal/repository"
)

func buildScoreUploadService(t *testing.T, dbName string, cfg fixtureConfig) (ScoreUploadService, scoringFixture, *repositoryBundle) {
	t.Helper()

	db := newScoringDB(t, dbName)
	fixture := seedScoringFixture(t, db, cfg)

	bundle := &repositoryBundle{
		db:                db,
		instanceQuestions: repository.NewInstanceQuestionRepository(db),
		submissions:       repository.NewSubmissionRepository(db),
		gradingJobs:       repository.NewGradingJobRepository(db),
		instances:         repository.NewAssessmentInstanceRepository(db),
	}
	scorer := NewAssessmentInstanceService(bundle.instances, nil, time.Minute, zerolog.Nop())
	updates := NewScoreUpdateService(bundle.instanceQuestions, bundle.submissions, bundle.gradingJobs, scorer, nil, zerolog.Nop())

	svc := NewScoreUploadService(updates, bundle.instanceQuestions, bundle.instances, zerolog.Nop())
	return svc, fixture, bundle
}

func TestApplyCSVInstanceQuestionRows(t *testing.T) {
	svc, fixture, bundle := buildScoreUploadService(t, "upload_instance_questions", fixtureConfig{
		assessmentType: models.AssessmentTypeExam,
		maxPoints:      10,
		maxAutoPoints:  10,
		pointsList:     []float64{10},
	})

	csv := fmt.Sprintf(
		"instance_question_id,submission_id,points,feedback\n%d,%d,7.5,Good <script>alert(1)</script> work\n",
		fixture.instanceQuestion.ID, fixture.submission.ID,
	)

	report, err := svc.ApplyCSV(context.Background(), fixture.assessment.ID, strings.NewReader(csv), 42)
	require.NoError(t, err)
	require.Equal(t, 1, report.Processed)
	require.Equal(t, 1, report.Applied)
	require.Zero(t, report.Conflicts)
	require.Zero(t, report.Skipped)
	require.Empty(t, report.Errors)

	var stored models.InstanceQuestion
	require.NoError(t, bundle.db.First(&stored, fixture.instanceQuestion.ID).Error)
	require.InDelta(t, 7.5, stored.Points, 1e-9)
	require.InDelta(t, 75, stored.ScorePerc, 1e-9)

	// Feedback is sanitized before it is stored.
	var submission models.Submission
	require.NoError(t, bundle.db.First(&submission, fixture.submission.ID).Error)
	manual, ok := submission.Feedback["manual"].(map[string]interface{})
	require.True(t, ok)
	comment, ok := manual["comment"].(string)
	require.True(t, ok)
	require.NotContains(t, comment, "<script>")
	require.Contains(t, comment, "Good")
}

func TestApplyCSVClampsOutOfRangeValues(t *testing.T) {
	svc, fixture, bundle := buildScoreUploadService(t, "upload_clamp", fixtureConfig{
		assessmentType: models.AssessmentTypeExam,
		maxPoints:      10,
		maxAutoPoints:  10,
		pointsList:     []float64{10},
	})

	csv := fmt.Sprintf("instance_question_id,points\n%d,25\n", fixture.instanceQuestion.ID)

	report, err := svc.ApplyCSV(context.Background(), fixture.assessment.ID, strings.NewReader(csv), 42)
	require.NoError(t, err)
	require.Equal(t, 1, report.Applied)

	var stored models.InstanceQuestion
	require.NoError(t, bundle.db.First(&stored, fixture.instanceQuestion.ID).Error)
	require.InDelta(t, 10, stored.Points, 1e-9)
}

func TestApplyCSVAssessmentInstanceRow(t *testing.T) {
	svc, fixture, bundle := buildScoreUploadService(t, "upload_assessment_instance", fixtureConfig{
		assessmentType: models.AssessmentTypeExam,
		maxPoints:      20,
		maxAutoPoints:  20,
		pointsList:     []float64{20},
	})

	csv := fmt.Sprintf("assessment_instance_id,score_perc\n%d,80\n", fixture.instance.ID)

	report, err := svc.ApplyCSV(context.Background(), fixture.assessment.ID, strings.NewReader(csv), 42)
	require.NoError(t, err)
	require.Equal(t, 1, report.Applied)

	var instance models.AssessmentInstance
	require.NoError(t, bundle.db.First(&instance, fixture.instance.ID).Error)
	require.InDelta(t, 80, instance.ScorePerc, 1e-9)
	require.InDelta(t, 16, instance.Points, 1e-9)
}

func TestApplyCSVReportsRowErrors(t *testing.T) {
	svc, fixture, _ := buildScoreUploadService(t, "upload_row_errors", fixtureConfig{
		assessmentType: models.AssessmentTypeExam,
		maxPoints:      10,
		maxAutoPoints:  10,
		pointsList:     []float64{10},
	})

	csv := fmt.Sprintf(
		"instance_question_id,points\nabc,5\n%d,5\n99999,5\n",
		fixture.instanceQuestion.ID,
	)

	report, err := svc.ApplyCSV(context.Background(), fixture.assessment.ID, strings.NewReader(csv), 42)
	require.NoError(t, err)
	require.Equal(t, 1, report.Applied)
	require.Equal(t, 2, report.Skipped)
	require.Len(t, report.Errors, 2)
	require.Equal(t, 2, report.Errors[0].Line)
}

func TestApplyCSVRejectsEmptyUpload(t *testing.T) {
	svc, fixture, _ := buildScoreUploadService(t, "upload_empty", fixtureConfig{
		assessmentType: models.AssessmentTypeExam,
		maxPoints:      10,
		maxAutoPoints:  10,
		pointsList:     []float64{10},
	})

	_, err := svc.ApplyCSV(context.Background(), fixture.assessment.ID, strings.NewReader(""), 42)
	require.ErrorIs(t, err, ErrEmptyUpload)

	_, err = svc.ApplyCSV(context.Background(), fixture.assessment.ID, strings.NewReader("instance_question_id,points\n"), 42)
	require.ErrorIs(t, err, ErrEmptyUpload)
}
