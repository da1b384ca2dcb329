package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/dto"
	"github.com/noah-isme/tally-scoring-api/internal/models"
	"github.com/noah-isme/tally-scoring-api/internal/observability"
	"github.com/noah-isme/tally-scoring-api/internal/repository"
)

// ErrInstanceQuestionNotFound indicates the instance question was not located.
var ErrInstanceQuestionNotFound = errors.New("instance question not found")

// ErrSubmissionNotFound indicates the referenced submission was not located.
var ErrSubmissionNotFound = errors.New("submission not found")

// AssessmentInstanceScorer recomputes an assessment instance's totals after
// an instance question changed. Invoked explicitly after a successful score
// write, never from inside the scoring arithmetic.
type AssessmentInstanceScorer interface {
	RecomputeScore(ctx context.Context, assessmentInstanceID uint) error
}

// LTIScorePusher forwards a changed assessment instance score to the LTI
// platform. Failures are logged, not fatal: the outcome push is best-effort.
type LTIScorePusher interface {
	PushScore(ctx context.Context, assessmentInstanceID uint) error
}

// ScoreUpdateParams carries one manual (or AI, or upload) score edit.
type ScoreUpdateParams struct {
	AssessmentID       uint
	InstanceQuestionID uint
	SubmissionID       *uint
	CheckModifiedAt    *time.Time
	Update             dto.ScoreUpdate
	Feedback           map[string]interface{}
	ManualRubricData   map[string]interface{}
	AuthnUserID        uint
	IsAIGraded         bool
	Source             string
}

// ScoreUpdateResult reports the outcome. A conflict is a result, not an
// error: callers are expected to branch on it.
type ScoreUpdateResult struct {
	ModifiedAtConflict bool
	GradingJobID       *uint
	InstanceQuestion   models.InstanceQuestion
}

// ScoreUpdateService is the single authoritative entry point for every score
// edit that does not come from automatic submission grading.
type ScoreUpdateService interface {
	UpdateInstanceQuestionScore(ctx context.Context, params ScoreUpdateParams) (ScoreUpdateResult, error)
}

type scoreUpdateService struct {
	instanceQuestions repository.InstanceQuestionRepository
	submissions       repository.SubmissionRepository
	gradingJobs       repository.GradingJobRepository
	scorer            AssessmentInstanceScorer
	lti               LTIScorePusher
	logger            zerolog.Logger
	now               func() time.Time
}

// NewScoreUpdateService constructs the score update service.
func NewScoreUpdateService(
	instanceQuestions repository.InstanceQuestionRepository,
	submissions repository.SubmissionRepository,
	gradingJobs repository.GradingJobRepository,
	scorer AssessmentInstanceScorer,
	lti LTIScorePusher,
	logger zerolog.Logger,
) ScoreUpdateService {
	return &scoreUpdateService{
		instanceQuestions: instanceQuestions,
		submissions:       submissions,
		gradingJobs:       gradingJobs,
		scorer:            scorer,
		lti:               lti,
		logger:            logger.With().Str("component", "score_update_service").Logger(),
		now:               time.Now,
	}
}

func (s *scoreUpdateService) UpdateInstanceQuestionScore(ctx context.Context, params ScoreUpdateParams) (ScoreUpdateResult, error) {
	tracer := otel.Tracer("github.com/noah-isme/tally-scoring-api/internal/service/score_update")
	ctx, span := tracer.Start(ctx, "scoring.update_instance_question_score")
	span.SetAttributes(
		attribute.Int64("scoring.instance_question_id", int64(params.InstanceQuestionID)),
		attribute.Int64("scoring.authn_user_id", int64(params.AuthnUserID)),
		attribute.Bool("scoring.is_ai_graded", params.IsAIGraded),
	)
	defer span.End()

	source := params.Source
	if source == "" {
		if params.IsAIGraded {
			source = "ai"
		} else {
			source = "manual"
		}
	}

	instanceQuestion, err := s.instanceQuestions.GetForAssessment(ctx, params.AssessmentID, params.InstanceQuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "instance_question_not_found")
			return ScoreUpdateResult{}, ErrInstanceQuestionNotFound
		}
		span.RecordError(err)
		return ScoreUpdateResult{}, err
	}

	if params.CheckModifiedAt != nil && !instanceQuestion.ModifiedAt.Equal(*params.CheckModifiedAt) {
		span.SetAttributes(attribute.Bool("scoring.modified_at_conflict", true))
		return s.conflictResult(ctx, source, params.InstanceQuestionID)
	}

	autoPoints := instanceQuestion.AutoPoints
	manualPoints := instanceQuestion.ManualPoints
	maxPoints := instanceQuestion.AssessmentQuestion.EffectiveMaxPoints()

	switch update := params.Update.(type) {
	case nil:
		// Feedback or rubric-only edit; points stay as they are.
	case dto.ScoreUpdateByPoints:
		manualPoints = update.Points - autoPoints
	case dto.ScoreUpdateByScorePerc:
		manualPoints = update.ScorePerc/100*maxPoints - autoPoints
	case dto.ScoreUpdateByManualAuto:
		if update.ManualPoints != nil {
			manualPoints = *update.ManualPoints
		}
		if update.AutoPoints != nil {
			autoPoints = *update.AutoPoints
		}
	}

	points := autoPoints + manualPoints
	scorePerc := 0.0
	if maxPoints > 0 {
		scorePerc = points / maxPoints * 100
	}

	previousModifiedAt := instanceQuestion.ModifiedAt
	instanceQuestion.AutoPoints = autoPoints
	instanceQuestion.ManualPoints = manualPoints
	instanceQuestion.Points = points
	instanceQuestion.ScorePerc = scorePerc
	instanceQuestion.ModifiedAt = s.now()

	updated, err := s.instanceQuestions.UpdateIfUnmodified(ctx, &instanceQuestion, previousModifiedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "instance_question_update_failed")
		return ScoreUpdateResult{}, err
	}
	if !updated {
		// The row moved between our read and write.
		span.SetAttributes(attribute.Bool("scoring.modified_at_conflict", true))
		return s.conflictResult(ctx, source, params.InstanceQuestionID)
	}

	gradingJobID, err := s.recordGradingAction(ctx, instanceQuestion, params)
	if err != nil {
		span.RecordError(err)
		return ScoreUpdateResult{}, err
	}

	if err := s.scorer.RecomputeScore(ctx, instanceQuestion.AssessmentInstanceID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment_instance_recompute_failed")
		return ScoreUpdateResult{}, err
	}

	if s.lti != nil {
		if err := s.lti.PushScore(ctx, instanceQuestion.AssessmentInstanceID); err != nil {
			s.logger.Warn().Err(err).
				Uint("assessment_instance_id", instanceQuestion.AssessmentInstanceID).
				Msg("failed to push LTI score")
		}
	}

	observability.ScoreUpdates().WithLabelValues(source, "applied").Inc()
	span.SetAttributes(attribute.Float64("scoring.points", points))

	return ScoreUpdateResult{
		GradingJobID:     gradingJobID,
		InstanceQuestion: instanceQuestion,
	}, nil
}

func (s *scoreUpdateService) conflictResult(ctx context.Context, source string, instanceQuestionID uint) (ScoreUpdateResult, error) {
	observability.ScoreUpdates().WithLabelValues(source, "conflict").Inc()
	observability.ScoreConflicts().Inc()

	result := ScoreUpdateResult{ModifiedAtConflict: true}
	if job, err := s.gradingJobs.GetLatestForInstanceQuestion(ctx, instanceQuestionID); err == nil {
		jobID := job.ID
		result.GradingJobID = &jobID
	}

	s.logger.Info().
		Uint("instance_question_id", instanceQuestionID).
		Msg("score update rejected: instance question modified concurrently")

	return result, nil
}

// recordGradingAction appends the audit grading job for a human or AI edit.
// Updates without a target submission (whole-instance uploads) have nothing
// to attach the job to and skip it.
func (s *scoreUpdateService) recordGradingAction(ctx context.Context, instanceQuestion models.InstanceQuestion, params ScoreUpdateParams) (*uint, error) {
	if params.SubmissionID == nil {
		return nil, nil
	}

	submission, err := s.submissions.GetByID(ctx, *params.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	if params.Feedback != nil {
		submission.Feedback = mergeManualFeedback(submission.Feedback, params.Feedback)
		submission.ModifiedAt = s.now()
		if err := s.submissions.Update(ctx, &submission); err != nil {
			return nil, err
		}
	}

	gradedAt := s.now()
	authnUserID := params.AuthnUserID
	method := models.GradingMethodManual
	if params.IsAIGraded {
		method = models.GradingMethodAI
	}

	job := models.GradingJob{
		SubmissionID:     submission.ID,
		GradingMethod:    method,
		Gradable:         true,
		AutoPoints:       &instanceQuestion.AutoPoints,
		ManualPoints:     &instanceQuestion.ManualPoints,
		Feedback:         datatypes.JSONMap(params.Feedback),
		ManualRubricData: datatypes.JSONMap(params.ManualRubricData),
		AuthnUserID:      &authnUserID,
		GradedAt:         &gradedAt,
	}
	if err := s.gradingJobs.Create(ctx, &job); err != nil {
		return nil, err
	}

	return &job.ID, nil
}

// mergeManualFeedback replaces the manual feedback key while leaving any
// other keys (e.g. AI feedback) untouched.
func mergeManualFeedback(existing datatypes.JSONMap, manual map[string]interface{}) datatypes.JSONMap {
	merged := datatypes.JSONMap{}
	for key, value := range existing {
		merged[key] = value
	}
	merged["manual"] = manual
	return merged
}
