package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tally-scoring-api/internal/dto"
	"github.com/noah-isme/tally-scoring-api/internal/service"
	"github.com/noah-isme/tally-scoring-api/internal/utils"
)

// InstanceQuestionHandler wires manual score edits and graded-submission
// scoring for instance questions.
type InstanceQuestionHandler struct {
	updates service.ScoreUpdateService
	scoring service.SubmissionScoringService
	logger  zerolog.Logger
}

// NewInstanceQuestionHandler constructs the handler.
func NewInstanceQuestionHandler(updates service.ScoreUpdateService, scoring service.SubmissionScoringService, logger zerolog.Logger) *InstanceQuestionHandler {
	return &InstanceQuestionHandler{
		updates: updates,
		scoring: scoring,
		logger:  logger.With().Str("component", "instance_question_handler").Logger(),
	}
}

// Register attaches instance question endpoints to the router group. The
// group is expected to carry an :assessmentID parameter.
func (h *InstanceQuestionHandler) Register(router fiber.Router) {
	router.Patch("/:id/score", h.updateScore)
	router.Post("/:id/grade", h.applyGradedSubmission)
}

func (h *InstanceQuestionHandler) updateScore(c *fiber.Ctx) error {
	assessmentID, err := parseUintParam(c, "assessmentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ScoreUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	update, err := payload.NormalizeUpdate()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.updates.UpdateInstanceQuestionScore(c.Context(), service.ScoreUpdateParams{
		AssessmentID:       assessmentID,
		InstanceQuestionID: id,
		SubmissionID:       payload.SubmissionID,
		CheckModifiedAt:    payload.CheckModifiedAt,
		Update:             update,
		Feedback:           payload.Feedback,
		ManualRubricData:   payload.ManualRubricData,
		AuthnUserID:        userIDFromContext(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceQuestionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "instance question not found")
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("instance_question_id", id).Msg("failed to update score")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update score")
		}
	}

	if result.ModifiedAtConflict {
		return utils.SendConflict(c, "instance question was modified concurrently", dto.ScoreUpdateResponse{
			ModifiedAtConflict: true,
			GradingJobID:       result.GradingJobID,
		})
	}

	return utils.SendSuccess(c, "score updated", dto.NewInstanceQuestionResponse(result.InstanceQuestion))
}

func (h *InstanceQuestionHandler) applyGradedSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.scoring.ApplyGradedSubmission(c.Context(), id, payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceQuestionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "instance question not found")
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case errors.Is(err, service.ErrScoreOutOfRange), isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("instance_question_id", id).Msg("failed to score submission")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to score submission")
		}
	}

	return utils.SendSuccess(c, "submission scored", response)
}
