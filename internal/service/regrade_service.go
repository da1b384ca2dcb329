package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
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

// ErrAssessmentQuestionNotFound indicates the assessment question was not located.
var ErrAssessmentQuestionNotFound = errors.New("assessment question not found")

// RegradeProgressSubject is the NATS subject batch regrade progress is
// published on.
const RegradeProgressSubject = "tally.regrade.progress"

const defaultRegradeWorkers = 4

// RegradeService rebuilds instance question state by replaying grading job
// history, and runs batch regrades across all instance questions of an
// assessment question.
type RegradeService interface {
	ReconstructInstanceQuestionHistory(ctx context.Context, instanceQuestionID uint) error
	RegradeAssessmentQuestion(ctx context.Context, assessmentQuestionID uint) (dto.RegradeJobResponse, error)
	DeleteGradingJobs(ctx context.Context, assessmentQuestionID uint, authnUserID uint) (dto.RegradeJobResponse, error)
}

type regradeService struct {
	instanceQuestions   repository.InstanceQuestionRepository
	assessmentQuestions repository.AssessmentQuestionRepository
	gradingJobs         repository.GradingJobRepository
	scorer              AssessmentInstanceScorer
	nats                *nats.Conn
	workers             int
	logger              zerolog.Logger
	now                 func() time.Time
}

// NewRegradeService constructs the regrade service. workers bounds how many
// instance questions replay concurrently during a batch; each individual
// replay is strictly sequential.
func NewRegradeService(
	instanceQuestions repository.InstanceQuestionRepository,
	assessmentQuestions repository.AssessmentQuestionRepository,
	gradingJobs repository.GradingJobRepository,
	scorer AssessmentInstanceScorer,
	natsConn *nats.Conn,
	workers int,
	logger zerolog.Logger,
) RegradeService {
	if workers <= 0 {
		workers = defaultRegradeWorkers
	}
	return &regradeService{
		instanceQuestions:   instanceQuestions,
		assessmentQuestions: assessmentQuestions,
		gradingJobs:         gradingJobs,
		scorer:              scorer,
		nats:                natsConn,
		workers:             workers,
		logger:              logger.With().Str("component", "regrade_service").Logger(),
		now:                 time.Now,
	}
}

type replayEntry struct {
	job        models.GradingJob
	submission *models.Submission
	variant    *models.Variant
}

// ReconstructInstanceQuestionHistory replays the instance question's full
// grading history from a clean slate, exactly as live scoring would have
// processed it in order, and writes the result back atomically.
func (s *regradeService) ReconstructInstanceQuestionHistory(ctx context.Context, instanceQuestionID uint) error {
	tracer := otel.Tracer("github.com/noah-isme/tally-scoring-api/internal/service/regrade")
	ctx, span := tracer.Start(ctx, "scoring.reconstruct_history")
	span.SetAttributes(attribute.Int64("scoring.instance_question_id", int64(instanceQuestionID)))
	defer span.End()

	start := s.now()

	instanceQuestion, err := s.instanceQuestions.GetWithHistory(ctx, instanceQuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "instance_question_not_found")
			return ErrInstanceQuestionNotFound
		}
		span.RecordError(err)
		return err
	}

	assessment := instanceQuestion.AssessmentInstance.Assessment
	s.resetToBaseline(&instanceQuestion, assessment.Type)

	entries := collectReplayEntries(&instanceQuestion)

	touchedSubmissions := make(map[uint]*models.Submission)
	variantModifiedAt := make(map[uint]time.Time)

	for _, entry := range entries {
		job := entry.job
		submission := entry.submission

		submission.GradingRequestedAt = job.GradingRequestedAt
		submission.GradedAt = job.GradedAt
		submission.ModifiedAt = *job.GradedAt
		submission.Gradable = job.Gradable
		submission.Score = job.Score
		submission.PartialScores = job.PartialScores
		submission.Feedback = job.Feedback
		if job.Score != nil {
			correct := *job.Score >= 1
			submission.Correct = &correct
		} else {
			submission.Correct = nil
		}
		// Broken and format-error flags cannot be backtraced from grading
		// jobs and are intentionally left as they are.
		touchedSubmissions[submission.ID] = submission
		variantModifiedAt[entry.variant.ID] = *job.GradedAt

		if !job.Gradable {
			instanceQuestion.Status = models.InstanceQuestionStatusInvalid
			continue
		}

		score := 0.0
		if job.Score != nil {
			score = *job.Score
		}

		if assessment.Type == models.AssessmentTypeExam &&
			instanceQuestion.NumberAttempts >= len(instanceQuestion.PointsListOriginal) {
			s.logger.Warn().
				Uint("instance_question_id", instanceQuestion.ID).
				Int("number_attempts", instanceQuestion.NumberAttempts).
				Int("points_list_len", len(instanceQuestion.PointsListOriginal)).
				Msg("replay exceeds points schedule, clamping to last entry")
		}

		result := applyScoringPolicy(&instanceQuestion, score, assessment.Type, assessment.ConstantQuestionValue)
		applyScoringResult(&instanceQuestion, result, *job.GradedAt)
	}

	instanceQuestion.ModifiedAt = s.now()

	submissions := make([]*models.Submission, 0, len(touchedSubmissions))
	for _, submission := range touchedSubmissions {
		submissions = append(submissions, submission)
	}
	sort.Slice(submissions, func(i, j int) bool { return submissions[i].ID < submissions[j].ID })

	// The nested associations must not be re-saved along with the row.
	assessmentInstanceID := instanceQuestion.AssessmentInstanceID
	instanceQuestion.Variants = nil

	if err := s.instanceQuestions.SaveReplayedHistory(ctx, &instanceQuestion, submissions, variantModifiedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history_write_failed")
		return err
	}

	if err := s.scorer.RecomputeScore(ctx, assessmentInstanceID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment_instance_recompute_failed")
		return err
	}

	observability.RegradeDuration().Observe(s.now().Sub(start).Seconds())
	span.SetAttributes(attribute.Int("scoring.replayed_jobs", len(entries)))

	return nil
}

// resetToBaseline restores the clean-slate state replay starts from.
func (s *regradeService) resetToBaseline(instanceQuestion *models.InstanceQuestion, assessmentType string) {
	instanceQuestion.AutoPoints = 0
	instanceQuestion.Points = instanceQuestion.ManualPoints
	instanceQuestion.NumberAttempts = 0
	instanceQuestion.HighestSubmissionScore = 0
	instanceQuestion.Status = models.InstanceQuestionStatusUnanswered
	instanceQuestion.Open = true
	instanceQuestion.VariantsPointsList = nil
	instanceQuestion.PointsList = append(datatypes.JSONSlice[float64](nil), instanceQuestion.PointsListOriginal...)

	maxPoints := instanceQuestion.AssessmentQuestion.EffectiveMaxPoints()
	if maxPoints > 0 {
		instanceQuestion.ScorePerc = instanceQuestion.Points / maxPoints * 100
	} else {
		instanceQuestion.ScorePerc = 0
	}

	switch assessmentType {
	case models.AssessmentTypeExam:
		if len(instanceQuestion.PointsListOriginal) > 0 {
			value := instanceQuestion.PointsListOriginal[0]
			instanceQuestion.CurrentValue = &value
		} else {
			instanceQuestion.CurrentValue = nil
		}
	default:
		instanceQuestion.CurrentValue = instanceQuestion.AssessmentQuestion.InitPoints
	}
}

// collectReplayEntries flattens the nested history into the canonical replay
// log: Internal, non-canceled, graded jobs in ascending graded_at order.
func collectReplayEntries(instanceQuestion *models.InstanceQuestion) []replayEntry {
	var entries []replayEntry
	for vi := range instanceQuestion.Variants {
		variant := &instanceQuestion.Variants[vi]
		for si := range variant.Submissions {
			submission := &variant.Submissions[si]
			for _, job := range submission.GradingJobs {
				if !job.CountsForReplay() {
					continue
				}
				entries = append(entries, replayEntry{job: job, submission: submission, variant: variant})
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].job, entries[j].job
		if !a.GradedAt.Equal(*b.GradedAt) {
			return a.GradedAt.Before(*b.GradedAt)
		}
		return a.ID < b.ID
	})

	return entries
}

// RegradeAssessmentQuestion replays every instance question attached to the
// assessment question. Replays fan out across the worker pool; progress is
// published per finished question.
func (s *regradeService) RegradeAssessmentQuestion(ctx context.Context, assessmentQuestionID uint) (dto.RegradeJobResponse, error) {
	if _, err := s.assessmentQuestions.GetByID(ctx, assessmentQuestionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RegradeJobResponse{}, ErrAssessmentQuestionNotFound
		}
		return dto.RegradeJobResponse{}, err
	}

	instanceQuestions, err := s.instanceQuestions.ListByAssessmentQuestion(ctx, assessmentQuestionID)
	if err != nil {
		return dto.RegradeJobResponse{}, err
	}

	jobID := uuid.NewString()
	total := len(instanceQuestions)

	ids := make(chan uint)
	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0
	failed := 0

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				err := s.ReconstructInstanceQuestionHistory(ctx, id)

				mu.Lock()
				completed++
				done := completed
				if err != nil {
					failed++
				}
				mu.Unlock()

				event := dto.RegradeProgressEvent{
					JobID:                jobID,
					AssessmentQuestionID: assessmentQuestionID,
					InstanceQuestionID:   id,
					Completed:            done,
					Total:                total,
				}
				if err != nil {
					event.Error = err.Error()
					s.logger.Error().Err(err).
						Uint("instance_question_id", id).
						Str("job_id", jobID).
						Msg("failed to reconstruct instance question history")
				}
				s.publishProgress(event)
			}
		}()
	}

loop:
	for _, instanceQuestion := range instanceQuestions {
		select {
		case <-ctx.Done():
			break loop
		case ids <- instanceQuestion.ID:
		}
	}
	close(ids)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return dto.RegradeJobResponse{JobID: jobID, InstanceQuestions: total, Failed: failed}, err
	}

	s.logger.Info().
		Str("job_id", jobID).
		Uint("assessment_question_id", assessmentQuestionID).
		Int("instance_questions", total).
		Int("failed", failed).
		Msg("batch regrade finished")

	return dto.RegradeJobResponse{JobID: jobID, InstanceQuestions: total, Failed: failed}, nil
}

// DeleteGradingJobs removes the AI grading jobs under an assessment question
// and reconstructs every affected instance question, so deleted jobs leave no
// stale point contributions behind.
func (s *regradeService) DeleteGradingJobs(ctx context.Context, assessmentQuestionID uint, authnUserID uint) (dto.RegradeJobResponse, error) {
	deleted, err := s.gradingJobs.DeleteAIJobsForAssessmentQuestion(ctx, assessmentQuestionID)
	if err != nil {
		return dto.RegradeJobResponse{}, err
	}

	s.logger.Info().
		Uint("assessment_question_id", assessmentQuestionID).
		Uint("authn_user_id", authnUserID).
		Int64("deleted_jobs", deleted).
		Msg("deleted AI grading jobs, reconstructing history")

	return s.RegradeAssessmentQuestion(ctx, assessmentQuestionID)
}

func (s *regradeService) publishProgress(event dto.RegradeProgressEvent) {
	if s.nats == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.nats.Publish(RegradeProgressSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("job_id", event.JobID).Msg("failed to publish regrade progress")
	}
}
