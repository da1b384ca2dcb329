package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/dto"
	"github.com/noah-isme/tally-scoring-api/internal/models"
	"github.com/noah-isme/tally-scoring-api/internal/observability"
	"github.com/noah-isme/tally-scoring-api/internal/repository"
	"github.com/noah-isme/tally-scoring-api/internal/scoring"
)

// ErrScoreOutOfRange indicates a fractional submission score outside [0,1].
var ErrScoreOutOfRange = errors.New("submission score out of range")

// SubmissionScoringService applies a freshly graded submission to its
// instance question using the policy selected by the assessment type.
type SubmissionScoringService interface {
	ApplyGradedSubmission(ctx context.Context, instanceQuestionID uint, payload dto.GradeSubmissionRequest) (dto.InstanceQuestionResponse, error)
}

type submissionScoringService struct {
	instanceQuestions repository.InstanceQuestionRepository
	submissions       repository.SubmissionRepository
	gradingJobs       repository.GradingJobRepository
	scorer            AssessmentInstanceScorer
	validator         *validator.Validate
	logger            zerolog.Logger
	now               func() time.Time
}

// NewSubmissionScoringService constructs the live scoring service.
func NewSubmissionScoringService(
	instanceQuestions repository.InstanceQuestionRepository,
	submissions repository.SubmissionRepository,
	gradingJobs repository.GradingJobRepository,
	scorer AssessmentInstanceScorer,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionScoringService {
	return &submissionScoringService{
		instanceQuestions: instanceQuestions,
		submissions:       submissions,
		gradingJobs:       gradingJobs,
		scorer:            scorer,
		validator:         validate,
		logger:            logger.With().Str("component", "submission_scoring_service").Logger(),
		now:               time.Now,
	}
}

func (s *submissionScoringService) ApplyGradedSubmission(ctx context.Context, instanceQuestionID uint, payload dto.GradeSubmissionRequest) (dto.InstanceQuestionResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/tally-scoring-api/internal/service/submission_scoring")
	ctx, span := tracer.Start(ctx, "scoring.apply_graded_submission")
	span.SetAttributes(
		attribute.Int64("scoring.instance_question_id", int64(instanceQuestionID)),
		attribute.Float64("scoring.submission_score", payload.SubmissionScore),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.InstanceQuestionResponse{}, err
	}
	if payload.SubmissionScore < 0 || payload.SubmissionScore > 1 {
		return dto.InstanceQuestionResponse{}, ErrScoreOutOfRange
	}

	instanceQuestion, err := s.instanceQuestions.GetByID(ctx, instanceQuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "instance_question_not_found")
			return dto.InstanceQuestionResponse{}, ErrInstanceQuestionNotFound
		}
		span.RecordError(err)
		return dto.InstanceQuestionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.InstanceQuestionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.InstanceQuestionResponse{}, err
	}

	assessmentType := instanceQuestion.AssessmentInstance.Assessment.Type
	constantQuestionValue := instanceQuestion.AssessmentInstance.Assessment.ConstantQuestionValue
	result := applyScoringPolicy(&instanceQuestion, payload.SubmissionScore, assessmentType, constantQuestionValue)

	now := s.now()
	applyScoringResult(&instanceQuestion, result, now)

	score := payload.SubmissionScore
	correct := score >= 1
	submission.Score = &score
	submission.Correct = &correct
	submission.GradedAt = &now
	submission.ModifiedAt = now

	if err := s.instanceQuestions.Update(ctx, &instanceQuestion); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "instance_question_update_failed")
		return dto.InstanceQuestionResponse{}, err
	}
	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.InstanceQuestionResponse{}, err
	}

	job := models.GradingJob{
		SubmissionID:  submission.ID,
		GradingMethod: models.GradingMethodInternal,
		Score:         &score,
		Gradable:      true,
		GradedAt:      &now,
	}
	if err := s.gradingJobs.Create(ctx, &job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading_job_create_failed")
		return dto.InstanceQuestionResponse{}, err
	}

	if err := s.scorer.RecomputeScore(ctx, instanceQuestion.AssessmentInstanceID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment_instance_recompute_failed")
		return dto.InstanceQuestionResponse{}, err
	}

	observability.SubmissionsScored().WithLabelValues(assessmentType).Inc()
	span.SetAttributes(
		attribute.Float64("scoring.auto_points", instanceQuestion.AutoPoints),
		attribute.String("scoring.status", instanceQuestion.Status),
	)

	return dto.NewInstanceQuestionResponse(instanceQuestion), nil
}

// applyScoringPolicy runs the pure policy for the assessment type over a
// snapshot of the instance question.
func applyScoringPolicy(instanceQuestion *models.InstanceQuestion, submissionScore float64, assessmentType string, constantQuestionValue bool) scoring.Result {
	state := scoring.QuestionState{
		AutoPoints:             instanceQuestion.AutoPoints,
		NumberAttempts:         instanceQuestion.NumberAttempts,
		HighestSubmissionScore: instanceQuestion.HighestSubmissionScore,
		CurrentValue:           instanceQuestion.CurrentValue,
		Status:                 instanceQuestion.Status,
		PointsList:             instanceQuestion.PointsList,
		PointsListOriginal:     instanceQuestion.PointsListOriginal,
		VariantsPointsList:     instanceQuestion.VariantsPointsList,
	}
	cfg := scoring.QuestionConfig{
		MaxPoints:       instanceQuestion.AssessmentQuestion.EffectiveMaxPoints(),
		MaxAutoPoints:   instanceQuestion.AssessmentQuestion.EffectiveMaxAutoPoints(),
		MaxManualPoints: instanceQuestion.AssessmentQuestion.EffectiveMaxManualPoints(),
	}
	if instanceQuestion.AssessmentQuestion.InitPoints != nil {
		cfg.InitPoints = *instanceQuestion.AssessmentQuestion.InitPoints
	}

	if assessmentType == models.AssessmentTypeExam {
		return scoring.ScoreExamSubmission(state, submissionScore, cfg)
	}
	return scoring.ScoreHomeworkSubmission(state, submissionScore, cfg, constantQuestionValue)
}

// applyScoringResult folds a policy result back into the instance question
// row, recombining auto points with the untouched manual points.
func applyScoringResult(instanceQuestion *models.InstanceQuestion, result scoring.Result, modifiedAt time.Time) {
	points := result.AutoPoints + instanceQuestion.ManualPoints
	maxPoints := instanceQuestion.AssessmentQuestion.EffectiveMaxPoints()

	instanceQuestion.AutoPoints = result.AutoPoints
	instanceQuestion.Points = points
	if maxPoints > 0 {
		instanceQuestion.ScorePerc = points / maxPoints * 100
	} else {
		instanceQuestion.ScorePerc = 0
	}
	instanceQuestion.Open = result.Open
	instanceQuestion.Status = result.Status
	instanceQuestion.HighestSubmissionScore = result.HighestSubmissionScore
	instanceQuestion.CurrentValue = result.CurrentValue
	instanceQuestion.PointsList = result.PointsList
	instanceQuestion.VariantsPointsList = result.VariantsPointsList
	instanceQuestion.NumberAttempts = result.NumberAttempts
	instanceQuestion.ModifiedAt = modifiedAt
}
