package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/tally-scoring-api/internal/dto"
	"github.com/noah-isme/tally-scoring-api/internal/repository"
)

// ErrAssessmentInstanceNotFound indicates the assessment instance was not located.
var ErrAssessmentInstanceNotFound = errors.New("assessment instance not found")

// AssessmentInstanceService recomputes and serves assessment instance totals.
// It implements AssessmentInstanceScorer for the scoring services.
type AssessmentInstanceService interface {
	AssessmentInstanceScorer
	GetScore(ctx context.Context, assessmentInstanceID uint) (dto.AssessmentInstanceScoreResponse, error)
}

type assessmentInstanceService struct {
	instances repository.AssessmentInstanceRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssessmentInstanceService constructs the assessment instance service.
func NewAssessmentInstanceService(instances repository.AssessmentInstanceRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) AssessmentInstanceService {
	return &assessmentInstanceService{
		instances: instances,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger.With().Str("component", "assessment_instance_service").Logger(),
		now:       time.Now,
	}
}

func scoreCacheKey(assessmentInstanceID uint) string {
	return fmt.Sprintf("score:assessment_instance:%d", assessmentInstanceID)
}

// RecomputeScore re-derives the instance totals from its instance questions
// and invalidates the cached summary.
func (s *assessmentInstanceService) RecomputeScore(ctx context.Context, assessmentInstanceID uint) error {
	instance, err := s.instances.GetByID(ctx, assessmentInstanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssessmentInstanceNotFound
		}
		return err
	}

	totals, err := s.instances.SumInstanceQuestionPoints(ctx, assessmentInstanceID)
	if err != nil {
		return err
	}

	instance.Points = totals.Points
	instance.MaxPoints = totals.MaxPoints
	if totals.MaxPoints > 0 {
		instance.ScorePerc = totals.Points / totals.MaxPoints * 100
	} else {
		instance.ScorePerc = 0
	}
	instance.ModifiedAt = s.now()

	if err := s.instances.Update(ctx, &instance); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, scoreCacheKey(assessmentInstanceID)).Err(); err != nil {
			s.logger.Warn().Err(err).
				Uint("assessment_instance_id", assessmentInstanceID).
				Msg("failed to invalidate score cache")
		}
	}

	return nil
}

func (s *assessmentInstanceService) GetScore(ctx context.Context, assessmentInstanceID uint) (dto.AssessmentInstanceScoreResponse, error) {
	cacheKey := scoreCacheKey(assessmentInstanceID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.AssessmentInstanceScoreResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("assessment_instance_id", assessmentInstanceID).Msg("score cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read score cache")
		}
	}

	instance, err := s.instances.GetByID(ctx, assessmentInstanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssessmentInstanceScoreResponse{}, ErrAssessmentInstanceNotFound
		}
		return dto.AssessmentInstanceScoreResponse{}, err
	}

	response := dto.AssessmentInstanceScoreResponse{
		AssessmentInstanceID: instance.ID,
		Points:               instance.Points,
		MaxPoints:            instance.MaxPoints,
		ScorePerc:            instance.ScorePerc,
		ModifiedAt:           instance.ModifiedAt,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store score cache")
			}
		}
	}

	return response, nil
}
